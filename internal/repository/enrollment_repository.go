package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/linguaclub/linguaclub/internal/model"
)

// EnrollmentRepo manages enrollments, their reviews and the append-only
// audit trail.  Every state change writes its audit row inside the same
// transaction so the trail can never miss a transition.
type EnrollmentRepo struct{ DB *sql.DB }

func NewEnrollmentRepo(db *sql.DB) *EnrollmentRepo { return &EnrollmentRepo{DB: db} }

// Enroll creates a CONFIRMED enrollment for the user in the club together
// with its INSERT audit row.  The (user_id, club_id) UNIQUE key makes a
// double enrollment fail with ErrAlreadyEnrolled; enrolling into a club
// that is not SCHEDULED fails with ErrClubNotOpen.
func (r *EnrollmentRepo) Enroll(ctx context.Context, userID, clubID uint64) (model.Enrollment, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Enrollment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx,
		"SELECT status FROM clubs WHERE id=? LIMIT 1", clubID).Scan(&status)
	if err == sql.ErrNoRows {
		return model.Enrollment{}, ErrNotFound
	}
	if err != nil {
		return model.Enrollment{}, err
	}
	if status != model.ClubScheduled {
		return model.Enrollment{}, ErrClubNotOpen
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO enrollments (user_id, club_id, status) VALUES (?,?,?)",
		userID, clubID, model.EnrollConfirmed)
	if err != nil {
		if isMySQLErr(err, mysqlErrDupEntry) {
			return model.Enrollment{}, ErrAlreadyEnrolled
		}
		return model.Enrollment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Enrollment{}, err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO enrollment_audit (enrollment_id, action, old_status, new_status, changed_by) VALUES (?,?,?,?,?)",
		id, model.AuditInsert, nil, model.EnrollConfirmed, userID); err != nil {
		return model.Enrollment{}, err
	}

	e := model.Enrollment{ID: uint64(id), UserID: userID, ClubID: clubID, Status: model.EnrollConfirmed}
	if err := tx.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM enrollments WHERE id=?", e.ID).
		Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return model.Enrollment{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Enrollment{}, err
	}
	return e, nil
}

// Cancel moves the caller's enrollment in the club to CANCELLED and writes
// the UPDATE audit row in the same transaction.  Cancelling an already
// cancelled enrollment is a no-op; a missing enrollment is ErrNotEnrolled.
func (r *EnrollmentRepo) Cancel(ctx context.Context, userID, clubID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id     uint64
		status string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, status FROM enrollments WHERE user_id=? AND club_id=? LIMIT 1 FOR UPDATE",
		userID, clubID).Scan(&id, &status)
	if err == sql.ErrNoRows {
		return ErrNotEnrolled
	}
	if err != nil {
		return err
	}
	if status == model.EnrollCancelled {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE enrollments SET status=? WHERE id=?", model.EnrollCancelled, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO enrollment_audit (enrollment_id, action, old_status, new_status, changed_by) VALUES (?,?,?,?,?)",
		id, model.AuditUpdate, status, model.EnrollCancelled, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// SetStatusByHost moves an enrollment to the given status on behalf of
// the club's host (ATTENDED / NO_SHOW bookkeeping after a session).
// ErrForbidden when the acting user does not host the enrollment's club.
// The audit row records who changed it.
func (r *EnrollmentRepo) SetStatusByHost(ctx context.Context, enrollmentID uint64, newStatus string, hostID uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		old      string
		clubHost uint64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT e.status, c.host_id FROM enrollments e JOIN clubs c ON c.id = e.club_id
		 WHERE e.id=? LIMIT 1 FOR UPDATE`, enrollmentID).Scan(&old, &clubHost)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if clubHost != hostID {
		return ErrForbidden
	}
	if old == newStatus {
		return tx.Commit()
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE enrollments SET status=? WHERE id=?", newStatus, enrollmentID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO enrollment_audit (enrollment_id, action, old_status, new_status, changed_by) VALUES (?,?,?,?,?)",
		enrollmentID, model.AuditUpdate, old, newStatus, hostID); err != nil {
		return err
	}
	return tx.Commit()
}

// EnrollmentDetail is an enrollment joined with its club for display.
type EnrollmentDetail struct {
	ID         uint64    `json:"id"`
	ClubID     uint64    `json:"club_id"`
	ClubTitle  string    `json:"club_title"`
	LevelCode  string    `json:"level_code"`
	StartsAt   time.Time `json:"starts_at"`
	ClubStatus string    `json:"club_status"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListByUser returns the caller's enrollments with club info, soonest
// session first.
func (r *EnrollmentRepo) ListByUser(ctx context.Context, userID uint64) ([]EnrollmentDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT e.id, e.club_id, c.title, c.level_code, c.starts_at, c.status, e.status, e.created_at
		 FROM enrollments e JOIN clubs c ON c.id = e.club_id
		 WHERE e.user_id=? ORDER BY c.starts_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EnrollmentDetail
	for rows.Next() {
		var d EnrollmentDetail
		if err := rows.Scan(&d.ID, &d.ClubID, &d.ClubTitle, &d.LevelCode,
			&d.StartsAt, &d.ClubStatus, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetForUser returns one enrollment owned by the user.
func (r *EnrollmentRepo) GetForUser(ctx context.Context, enrollmentID, userID uint64) (model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, club_id, status, created_at, updated_at FROM enrollments WHERE id=? AND user_id=? LIMIT 1",
		enrollmentID, userID).
		Scan(&e.ID, &e.UserID, &e.ClubID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Enrollment{}, ErrNotFound
	}
	return e, err
}

// UpsertReview stores the single review for an enrollment, replacing the
// rating and comment when one already exists.  The unique key on
// enrollment_id keeps it one-to-one.
func (r *EnrollmentRepo) UpsertReview(ctx context.Context, enrollmentID uint64, rating uint8, comment *string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO reviews (enrollment_id, rating, comment) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE rating=VALUES(rating), comment=VALUES(comment)`,
		enrollmentID, rating, comment)
	return err
}

// ListAuditForHost returns the audit trail of one enrollment, oldest
// first.  Only the host of the enrollment's club may read it;
// ErrForbidden otherwise.
func (r *EnrollmentRepo) ListAuditForHost(ctx context.Context, enrollmentID, hostID uint64) ([]model.EnrollmentAudit, error) {
	var clubHost uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT c.host_id FROM enrollments e JOIN clubs c ON c.id = e.club_id WHERE e.id=? LIMIT 1",
		enrollmentID).Scan(&clubHost)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if clubHost != hostID {
		return nil, ErrForbidden
	}

	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, enrollment_id, action, old_status, new_status, changed_by, changed_at
		 FROM enrollment_audit WHERE enrollment_id=? ORDER BY id ASC`, enrollmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EnrollmentAudit
	for rows.Next() {
		var (
			a         model.EnrollmentAudit
			oldStatus sql.NullString
			newStatus sql.NullString
			changedBy sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.EnrollmentID, &a.Action, &oldStatus,
			&newStatus, &changedBy, &a.ChangedAt); err != nil {
			return nil, err
		}
		if oldStatus.Valid {
			s := oldStatus.String
			a.OldStatus = &s
		}
		if newStatus.Valid {
			s := newStatus.String
			a.NewStatus = &s
		}
		if changedBy.Valid {
			id := uint64(changedBy.Int64)
			a.ChangedBy = &id
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
