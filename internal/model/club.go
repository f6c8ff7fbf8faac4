package model

import "time"

// Club status values.  A club starts out SCHEDULED and moves exactly once
// to CANCELED or COMPLETED.
const (
	ClubScheduled = "SCHEDULED"
	ClubCanceled  = "CANCELED"
	ClubCompleted = "COMPLETED"
)

// Level is a row in the static `levels` reference table (CEFR language
// levels).  Seeded once at startup and never mutated afterwards.
type Level struct {
	Code  string // levels.code (primary key, e.g. "A1")
	Label string // levels.label (human readable)
}

// Club represents a scheduled session as stored in the `clubs` table.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – session title.
//  Description – optional free-text description.
//  LevelCode   – reference to levels.code (RESTRICT on delete).
//  HostID      – user hosting the club (RESTRICT on delete).
//  StartsAt    – scheduled start time, stored in UTC.
//  DurationMin – planned duration in minutes.
//  Capacity    – maximum number of enrollments.
//  MeetingURL  – optional video call link.
//  PriceCents  – price in cents; zero means free.
//  Currency    – ISO 4217 code, defaults to EUR.
//  Status      – SCHEDULED, CANCELED or COMPLETED.
type Club struct {
	ID          uint64    // clubs.id
	Title       string    // clubs.title
	Description *string   // clubs.description (nullable)
	LevelCode   string    // clubs.level_code
	HostID      uint64    // clubs.host_id
	StartsAt    time.Time // clubs.starts_at
	DurationMin uint16    // clubs.duration_min
	Capacity    uint16    // clubs.capacity
	MeetingURL  *string   // clubs.meeting_url (nullable)
	PriceCents  uint32    // clubs.price_cents
	Currency    string    // clubs.currency
	Status      string    // clubs.status
	CreatedAt   time.Time // clubs.created_at
	UpdatedAt   time.Time // clubs.updated_at
}
