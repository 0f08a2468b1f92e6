package domain

import (
	"time"

	"github.com/google/uuid"
)

// CommunityVisibility controls who can see and federate a community.
type CommunityVisibility string

const (
	CommunityVisibilityPublic     CommunityVisibility = "public"
	CommunityVisibilityLocalOnly  CommunityVisibility = "local_only"
	CommunityVisibilityRestricted CommunityVisibility = "restricted"
)

// Community represents a group of posts, local or federated.
// Deleted and Removed are independent axes: Deleted is set by the
// community's own creator, Removed by a moderator or admin action.
type Community struct {
	Id                      uuid.UUID
	Name                    string
	Domain                  string // empty for local communities
	Title                   string
	Description             string
	ActorURI                string
	FollowersURI            string
	InboxURI                string
	SharedInboxURI          string
	PublicKeyPem            string
	PrivateKeyPem           string // local communities only
	IconURL                 string
	BannerURL               string
	Nsfw                    bool
	PostingRestrictedToMods bool
	Visibility              CommunityVisibility
	Local                   bool
	Deleted                 bool
	Removed                 bool
	CreatorId               uuid.UUID
	CreatedAt               time.Time
	LastRefreshedAt         time.Time
}

// BestInboxURI prefers the shared inbox endpoint if the community declared one.
func (c *Community) BestInboxURI() string {
	if c.SharedInboxURI != "" {
		return c.SharedInboxURI
	}
	return c.InboxURI
}

// CommunityUpdateForm is a partial update: nil fields leave the stored
// value untouched, non-nil fields overwrite it.
type CommunityUpdateForm struct {
	Title                   *string
	Description             *string
	IconURL                 *string
	BannerURL               *string
	Nsfw                    *bool
	PostingRestrictedToMods *bool
	PublicKeyPem            *string
	InboxURI                *string
	SharedInboxURI          *string
	FollowersURI            *string
	LastRefreshedAt         *time.Time
}

// CommunityFollower links a person to a community they follow.
type CommunityFollower struct {
	Id          uuid.UUID
	CommunityId uuid.UUID
	PersonId    uuid.UUID
	URI         string // Follow activity URI (empty for local follows)
	Pending     bool
	CreatedAt   time.Time
}

// CommunityModerator grants a person moderator rights over a community.
type CommunityModerator struct {
	Id          uuid.UUID
	CommunityId uuid.UUID
	PersonId    uuid.UUID
	CreatedAt   time.Time
}
