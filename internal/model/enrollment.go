package model

import "time"

// Enrollment status values.  New enrollments default to CONFIRMED.
const (
	EnrollPending   = "PENDING"
	EnrollConfirmed = "CONFIRMED"
	EnrollCancelled = "CANCELLED"
	EnrollAttended  = "ATTENDED"
	EnrollNoShow    = "NO_SHOW"
)

// Audit actions recorded per enrollment state change.
const (
	AuditInsert = "INSERT"
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
)

// Enrollment links a user to a club.  The (UserID, ClubID) pair is unique;
// a user cannot enroll twice in the same club.
type Enrollment struct {
	ID        uint64    // enrollments.id
	UserID    uint64    // enrollments.user_id
	ClubID    uint64    // enrollments.club_id
	Status    string    // enrollments.status
	CreatedAt time.Time // enrollments.created_at
	UpdatedAt time.Time // enrollments.updated_at
}

// Review is the single optional review attached to an enrollment.  The
// enrollment_id column carries a unique constraint, so at most one review
// exists per enrollment.
type Review struct {
	ID           uint64    // reviews.id
	EnrollmentID uint64    // reviews.enrollment_id
	Rating       uint8     // reviews.rating (1..5)
	Comment      *string   // reviews.comment (nullable)
	CreatedAt    time.Time // reviews.created_at
}

// EnrollmentAudit is an append-only log row written whenever an enrollment
// changes state.  ChangedBy is nullable and set to NULL when the acting
// user is later deleted.
type EnrollmentAudit struct {
	ID           uint64    // enrollment_audit.id
	EnrollmentID uint64    // enrollment_audit.enrollment_id
	Action       string    // enrollment_audit.action (INSERT/UPDATE/DELETE)
	OldStatus    *string   // enrollment_audit.old_status (nullable)
	NewStatus    *string   // enrollment_audit.new_status (nullable)
	ChangedBy    *uint64   // enrollment_audit.changed_by (nullable)
	ChangedAt    time.Time // enrollment_audit.changed_at
}

// Wishlist marks a user's interest in a club.  The pair of foreign keys is
// the composite primary key; there is no surrogate id.
type Wishlist struct {
	UserID    uint64    // wishlists.user_id
	ClubID    uint64    // wishlists.club_id
	CreatedAt time.Time // wishlists.created_at
}
