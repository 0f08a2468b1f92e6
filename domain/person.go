package domain

import (
	"time"

	"github.com/google/uuid"
)

// Person represents a user account, local or federated. Remote persons are
// cached copies of actors fetched from their home instance.
type Person struct {
	Id             uuid.UUID
	Username       string
	Domain         string // empty for local persons
	ActorURI       string
	DisplayName    string
	Bio            string
	InboxURI       string
	SharedInboxURI string
	PublicKeyPem   string
	PrivateKeyPem  string // local persons only
	AvatarURL      string
	Local          bool
	Admin          bool
	Deleted        bool
	CreatedAt      time.Time
	LastFetchedAt  time.Time
}

// BestInboxURI prefers the shared inbox endpoint if the actor declared one.
func (p *Person) BestInboxURI() string {
	if p.SharedInboxURI != "" {
		return p.SharedInboxURI
	}
	return p.InboxURI
}
