package repository

import (
	"context"
	"database/sql"
	"time"
)

// WishlistRepo manages the (user, club) wishlist link table.
type WishlistRepo struct{ DB *sql.DB }

func NewWishlistRepo(db *sql.DB) *WishlistRepo { return &WishlistRepo{DB: db} }

// Add records interest in a club.  The composite primary key makes a
// second add fail with ErrAlreadyWishlisted; a missing club is ErrNotFound
// via the foreign key.
func (r *WishlistRepo) Add(ctx context.Context, userID, clubID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO wishlists (user_id, club_id) VALUES (?,?)", userID, clubID)
	if err != nil {
		if isMySQLErr(err, mysqlErrDupEntry) {
			return ErrAlreadyWishlisted
		}
		if isMySQLErr(err, mysqlErrNoReferenced) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Remove drops the wishlist entry.  Removing an absent entry is
// ErrNotFound so handlers can respond 404.
func (r *WishlistRepo) Remove(ctx context.Context, userID, clubID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM wishlists WHERE user_id=? AND club_id=?", userID, clubID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// WishlistDetail is a wishlist entry joined with its club.
type WishlistDetail struct {
	ClubID    uint64    `json:"club_id"`
	Title     string    `json:"title"`
	LevelCode string    `json:"level_code"`
	StartsAt  time.Time `json:"starts_at"`
	Status    string    `json:"status"`
	AddedAt   time.Time `json:"added_at"`
}

// ListByUser returns the caller's wishlist, most recently added first.
func (r *WishlistRepo) ListByUser(ctx context.Context, userID uint64) ([]WishlistDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT w.club_id, c.title, c.level_code, c.starts_at, c.status, w.created_at
		 FROM wishlists w JOIN clubs c ON c.id = w.club_id
		 WHERE w.user_id=? ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WishlistDetail
	for rows.Next() {
		var d WishlistDetail
		if err := rows.Scan(&d.ClubID, &d.Title, &d.LevelCode,
			&d.StartsAt, &d.Status, &d.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
