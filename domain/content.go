package domain

import (
	"time"

	"github.com/google/uuid"
)

// Post represents a link or text post in a community.
// Deleted is a creator self-action, Removed a moderator action; restoring
// one never touches the other.
type Post struct {
	Id          uuid.UUID
	CreatorId   uuid.UUID
	CommunityId uuid.UUID
	ObjectURI   string
	Title       string
	URL         string
	Body        string
	Deleted     bool
	Removed     bool
	CreatedAt   time.Time
	EditedAt    *time.Time
}

// Comment represents a reply to a post or to another comment.
type Comment struct {
	Id        uuid.UUID
	CreatorId uuid.UUID
	PostId    uuid.UUID
	ParentURI string // objectURI of the parent comment, empty for top-level
	ObjectURI string
	Content   string
	Deleted   bool
	Removed   bool
	CreatedAt time.Time
	EditedAt  *time.Time
}

// PrivateMessage represents a direct message between two persons.
// Private messages only carry the Deleted axis; there is no moderator
// removal for them.
type PrivateMessage struct {
	Id          uuid.UUID
	CreatorId   uuid.UUID
	RecipientId uuid.UUID
	ObjectURI   string
	Content     string
	Deleted     bool
	CreatedAt   time.Time
}
