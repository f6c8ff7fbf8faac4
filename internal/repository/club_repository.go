package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/linguaclub/linguaclub/internal/model"
)

// ClubRepo provides CRUD operations for clubs.  Mutations are restricted
// to the hosting user; browse queries are public.
type ClubRepo struct{ DB *sql.DB }

func NewClubRepo(db *sql.DB) *ClubRepo { return &ClubRepo{DB: db} }

const clubColumns = "id,title,description,level_code,host_id,starts_at,duration_min,capacity,meeting_url,price_cents,currency,status,created_at,updated_at"

func scanClub(scan func(dest ...interface{}) error) (model.Club, error) {
	var (
		c    model.Club
		desc sql.NullString
		url  sql.NullString
	)
	err := scan(&c.ID, &c.Title, &desc, &c.LevelCode, &c.HostID, &c.StartsAt,
		&c.DurationMin, &c.Capacity, &url, &c.PriceCents, &c.Currency,
		&c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Club{}, err
	}
	if desc.Valid {
		d := desc.String
		c.Description = &d
	}
	if url.Valid {
		u := url.String
		c.MeetingURL = &u
	}
	return c, nil
}

// Create inserts a club and reads the stored row back so defaults and
// timestamps are populated.  An unknown level code surfaces as
// ErrLevelUnknown via the foreign key.
func (r *ClubRepo) Create(ctx context.Context, c *model.Club) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO clubs (title,description,level_code,host_id,starts_at,duration_min,capacity,meeting_url,price_cents,currency)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		c.Title, c.Description, c.LevelCode, c.HostID,
		c.StartsAt.UTC().Format("2006-01-02 15:04:05"),
		c.DurationMin, c.Capacity, c.MeetingURL, c.PriceCents, c.Currency)
	if err != nil {
		if isMySQLErr(err, mysqlErrNoReferenced) {
			return ErrLevelUnknown
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	fresh, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = fresh
	return nil
}

// GetByID fetches one club.
func (r *ClubRepo) GetByID(ctx context.Context, id uint64) (model.Club, error) {
	c, err := scanClub(r.DB.QueryRowContext(ctx,
		"SELECT "+clubColumns+" FROM clubs WHERE id=? LIMIT 1", id).Scan)
	if err == sql.ErrNoRows {
		return model.Club{}, ErrNotFound
	}
	return c, err
}

// List returns clubs matching the optional level and status filters,
// soonest first.  Empty filter strings match everything.
func (r *ClubRepo) List(ctx context.Context, levelCode, status string) ([]model.Club, error) {
	q := "SELECT " + clubColumns + " FROM clubs WHERE 1=1"
	args := []interface{}{}
	if levelCode != "" {
		q += " AND level_code=?"
		args = append(args, levelCode)
	}
	if status != "" {
		q += " AND status=?"
		args = append(args, status)
	}
	q += " ORDER BY starts_at ASC"
	return r.queryClubs(ctx, q, args...)
}

// ListByHost returns all clubs a user hosts, newest schedule first.
func (r *ClubRepo) ListByHost(ctx context.Context, hostID uint64) ([]model.Club, error) {
	return r.queryClubs(ctx,
		"SELECT "+clubColumns+" FROM clubs WHERE host_id=? ORDER BY starts_at DESC", hostID)
}

func (r *ClubRepo) queryClubs(ctx context.Context, q string, args ...interface{}) ([]model.Club, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Club
	for rows.Next() {
		c, err := scanClub(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClubPatch carries the mutable club fields.  Nil pointers mean "no
// change".
type ClubPatch struct {
	Title       *string
	Description *string
	LevelCode   *string
	StartsAt    *time.Time
	DurationMin *uint16
	Capacity    *uint16
	MeetingURL  *string
	PriceCents  *uint32
	Currency    *string
	Status      *string
}

// UpdateOwned applies the patch to a club the caller hosts.  ErrNotFound
// when the club does not exist, ErrForbidden when it belongs to another
// host.
func (r *ClubRepo) UpdateOwned(ctx context.Context, id, hostID uint64, p ClubPatch) (model.Club, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Club{}, err
	}
	if existing.HostID != hostID {
		return model.Club{}, ErrForbidden
	}

	set := []string{}
	args := []interface{}{}
	appendSet := func(col string, v interface{}) {
		set = append(set, col+"=?")
		args = append(args, v)
	}
	if p.Title != nil {
		appendSet("title", *p.Title)
	}
	if p.Description != nil {
		appendSet("description", *p.Description)
	}
	if p.LevelCode != nil {
		appendSet("level_code", *p.LevelCode)
	}
	if p.StartsAt != nil {
		appendSet("starts_at", p.StartsAt.UTC().Format("2006-01-02 15:04:05"))
	}
	if p.DurationMin != nil {
		appendSet("duration_min", *p.DurationMin)
	}
	if p.Capacity != nil {
		appendSet("capacity", *p.Capacity)
	}
	if p.MeetingURL != nil {
		appendSet("meeting_url", *p.MeetingURL)
	}
	if p.PriceCents != nil {
		appendSet("price_cents", *p.PriceCents)
	}
	if p.Currency != nil {
		appendSet("currency", *p.Currency)
	}
	if p.Status != nil {
		appendSet("status", *p.Status)
	}
	if len(set) == 0 {
		return existing, nil
	}
	args = append(args, id)
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE clubs SET "+joinSet(set)+" WHERE id=?", args...); err != nil {
		if isMySQLErr(err, mysqlErrNoReferenced) {
			return model.Club{}, ErrLevelUnknown
		}
		return model.Club{}, err
	}
	return r.GetByID(ctx, id)
}

// DeleteOwned removes a club the caller hosts.  Enrollments and wishlist
// entries cascade at the storage layer.
func (r *ClubRepo) DeleteOwned(ctx context.Context, id, hostID uint64) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.HostID != hostID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM clubs WHERE id=?", id)
	return err
}
