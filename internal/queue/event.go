// Package queue defines message payloads exchanged over the message broker.
package queue

// EnrollmentConfirmedEvent is published when an enrollment is successfully
// confirmed.  It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type EnrollmentConfirmedEvent struct {
	EnrollmentID uint64 `json:"enrollment_id"`
	UserID       uint64 `json:"user_id"`
	Username     string `json:"username"`
	ClubID       uint64 `json:"club_id"`
	ClubTitle    string `json:"club_title"`
	LevelCode    string `json:"level_code"`
	StartsAt     string `json:"starts_at"`
	ConfirmedAt  string `json:"confirmed_at"`
}
