package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReceivedActivity is the idempotency ledger entry for a processed
// activity. At most one row exists per activity URI; the UNIQUE insert on
// activity_uri is the serialization point for duplicate deliveries.
type ReceivedActivity struct {
	ActivityURI string
	ReceivedAt  time.Time
}

// ModLogEntry is an immutable audit record of a moderator-initiated state
// transition. Self-actions never create one.
type ModLogEntry struct {
	Id          uuid.UUID
	ModPersonId uuid.UUID
	TargetURI   string
	Action      string // e.g. "remove_post", "remove_community"
	Reason      string
	Removed     bool // flag value after the transition
	CreatedAt   time.Time
}

// Mod-log actions.
const (
	ModLogRemoveCommunity = "remove_community"
	ModLogRemovePost      = "remove_post"
	ModLogRemoveComment   = "remove_comment"
	ModLogRemovePerson    = "remove_person"
)

// DeliveryQueueItem represents an activity waiting for delivery to a
// single remote inbox.
type DeliveryQueueItem struct {
	Id           uuid.UUID
	InboxURI     string
	ActivityJSON string
	Attempts     int
	NextRetryAt  time.Time
	CreatedAt    time.Time
}

// Instance represents a known peer instance, used for broadcast fan-out.
type Instance struct {
	Id             uuid.UUID
	Domain         string
	SharedInboxURI string
	Software       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
