package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/linguaclub/linguaclub/internal/model"
)

// UserRepo persists users and their optional host extension row.  Both
// tables are managed together because account creation, promotion and
// demotion must keep the is_host flag and the hosts row consistent within
// one transaction.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,first_name,last_name,birth_date,password_hash,is_host,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u     model.User
		birth sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&birth, &u.PasswordHash, &u.IsHost, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if birth.Valid {
		d := birth.Time
		u.BirthDate = &d
	}
	return u, nil
}

// FindConflict reports which unique field is already taken: "username",
// "email", or "" when both are free.  Username takes priority when one
// existing row matches both.  This is only a pre-check; the UNIQUE keys
// remain the final authority under concurrent registration.
func (r *UserRepo) FindConflict(ctx context.Context, username, email string) (string, error) {
	var gotUser, gotEmail string
	err := r.DB.QueryRowContext(ctx,
		"SELECT username,email FROM users WHERE username=? OR email=? LIMIT 1",
		username, email).Scan(&gotUser, &gotEmail)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if gotUser == username {
		return "username", nil
	}
	if gotEmail == email {
		return "email", nil
	}
	return "", nil
}

// Create inserts the user row and, when asHost is set, the companion hosts
// row in the same transaction.  Either both rows exist afterwards or
// neither does.  A uniqueness violation that raced past FindConflict rolls
// the whole transaction back and is reported as ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User, asHost bool, bio *string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	isHost := 0
	if asHost {
		isHost = 1
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (username,email,first_name,last_name,birth_date,password_hash,is_host) VALUES (?,?,?,?,?,?,?)",
		u.Username, u.Email, u.FirstName, u.LastName, nullDate(u.BirthDate), u.PasswordHash, isHost)
	if err != nil {
		if isMySQLErr(err, mysqlErrDupEntry) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.IsHost = asHost

	if asHost {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO hosts (user_id, bio) VALUES (?,?)", u.ID, bio); err != nil {
			return err
		}
	}

	// Read timestamps back so the caller gets the stored values.
	if err := tx.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM users WHERE id=?", u.ID).
		Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID fetches a user by id.  sql.ErrNoRows maps to ErrNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByIdentifier fetches a user whose username or email equals the given
// identifier.  BINARY forces a case-sensitive exact match regardless of
// the column collation; no normalization is applied.
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE BINARY username=? OR BINARY email=? LIMIT 1",
		identifier, identifier))
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// EmailTakenByOther reports whether another user already owns the given
// email address.  Used when a user changes their own email.
func (r *UserRepo) EmailTakenByOther(ctx context.Context, email string, selfID uint64) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email=? AND id<>? LIMIT 1", email, selfID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ProfilePatch carries the mutable profile fields.  Nil pointers mean "no
// change".  SetBirthDate distinguishes "leave birth_date alone" from an
// explicit new value.
type ProfilePatch struct {
	FirstName    *string
	LastName     *string
	BirthDate    *time.Time
	SetBirthDate bool
	Email        *string
}

// UpdateProfile applies the patch and returns the fresh row.  A racing
// email duplicate is reported as ErrDuplicate.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfilePatch) (model.User, error) {
	set := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)
	if p.FirstName != nil {
		set = append(set, "first_name=?")
		args = append(args, *p.FirstName)
	}
	if p.LastName != nil {
		set = append(set, "last_name=?")
		args = append(args, *p.LastName)
	}
	if p.SetBirthDate {
		set = append(set, "birth_date=?")
		args = append(args, nullDate(p.BirthDate))
	}
	if p.Email != nil {
		set = append(set, "email=?")
		args = append(args, *p.Email)
	}
	if len(set) > 0 {
		q := "UPDATE users SET " + joinSet(set) + " WHERE id=?"
		args = append(args, id)
		if _, err := r.DB.ExecContext(ctx, q, args...); err != nil {
			if isMySQLErr(err, mysqlErrDupEntry) {
				return model.User{}, ErrDuplicate
			}
			return model.User{}, err
		}
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword stores a new password hash for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash []byte) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// Delete removes the user row.  Enrollments, wishlist entries, sessions
// and the hosts row go with it through ON DELETE CASCADE.  Deletion is
// refused with ErrHostedClubs while any club still references the user as
// host; the clubs.host_id RESTRICT constraint backs the pre-check up.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	var n int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM clubs WHERE host_id=?", id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrHostedClubs
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		if isMySQLErr(err, mysqlErrRowReferenced) {
			return ErrHostedClubs
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Promote sets the host flag and creates the hosts row if absent, in one
// transaction.  Calling it on a user who is already a host is a no-op; an
// existing bio is kept.
func (r *UserRepo) Promote(ctx context.Context, id uint64, bio *string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "UPDATE users SET is_host=1 WHERE id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT IGNORE INTO hosts (user_id, bio) VALUES (?,?)", id, bio); err != nil {
		return err
	}
	return tx.Commit()
}

// Demote clears the host flag and deletes the hosts row if present, in one
// transaction.  Idempotent.  Clubs already hosted by the user are left
// untouched; the owner merely loses the host capability.
func (r *UserRepo) Demote(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "UPDATE users SET is_host=0 WHERE id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM hosts WHERE user_id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetHost fetches the host extension row for a user.  ErrNotFound when the
// user has no host profile.
func (r *UserRepo) GetHost(ctx context.Context, userID uint64) (model.Host, error) {
	var (
		h   model.Host
		bio sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, bio FROM hosts WHERE user_id=? LIMIT 1", userID).
		Scan(&h.UserID, &bio)
	if err == sql.ErrNoRows {
		return model.Host{}, ErrNotFound
	}
	if err != nil {
		return model.Host{}, err
	}
	if bio.Valid {
		b := bio.String
		h.Bio = &b
	}
	return h, nil
}

// UpsertHostBio stores the bio, creating the hosts row when missing.
func (r *UserRepo) UpsertHostBio(ctx context.Context, userID uint64, bio *string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO hosts (user_id, bio) VALUES (?,?) ON DUPLICATE KEY UPDATE bio=VALUES(bio)",
		userID, bio)
	return err
}

// nullDate converts an optional date into a driver-friendly value.
func nullDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

// joinSet assembles a comma-separated SET clause.
func joinSet(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += ", " + p
	}
	return out
}
