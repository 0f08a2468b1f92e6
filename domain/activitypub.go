package domain

// ActivityPub wire types. Only the fields this server reads or writes are
// modeled; unknown fields pass through json decoding untouched.

const (
	ActivityContext = "https://www.w3.org/ns/activitystreams"

	// PublicAudience is the well-known public collection URI.
	PublicAudience = "https://www.w3.org/ns/activitystreams#Public"
)

// Activity is the generic activity envelope for inbound processing. Object
// stays raw because its shape depends on Type.
type Activity struct {
	Context any      `json:"@context,omitempty"`
	Id      string   `json:"id"`
	Type    string   `json:"type"`
	Actor   string   `json:"actor"`
	Object  any      `json:"object,omitempty"`
	To      []string `json:"to,omitempty"`
	Cc      []string `json:"cc,omitempty"`

	// Summary carries the moderation reason. Its presence is what makes a
	// Delete a moderator removal rather than a creator deletion.
	Summary *string `json:"summary,omitempty"`

	// RemoveData asks the receiver to purge the target's content. Only
	// meaningful on person-level removals.
	RemoveData *bool `json:"removeData,omitempty"`

	Audience string `json:"audience,omitempty"`
}

// Tombstone replaces a deleted object in Delete activities.
type Tombstone struct {
	Type string `json:"type"`
	Id   string `json:"id"`
}

// PublicKey is the actor's signing key document.
type PublicKey struct {
	Id           string `json:"id"`
	Owner        string `json:"owner"`
	PublicKeyPem string `json:"publicKeyPem"`
}

// Endpoints holds the shared inbox, when the actor's instance offers one.
type Endpoints struct {
	SharedInbox string `json:"sharedInbox,omitempty"`
}

// Actor is the common actor document shape for Person and Group actors.
type Actor struct {
	Context           any        `json:"@context,omitempty"`
	Id                string     `json:"id"`
	Type              string     `json:"type"`
	PreferredUsername string     `json:"preferredUsername"`
	Name              string     `json:"name,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	Inbox             string     `json:"inbox"`
	Outbox            string     `json:"outbox,omitempty"`
	Followers         string     `json:"followers,omitempty"`
	Endpoints         *Endpoints `json:"endpoints,omitempty"`
	PublicKey         *PublicKey `json:"publicKey,omitempty"`
	Icon              *MediaLink `json:"icon,omitempty"`
	Image             *MediaLink `json:"image,omitempty"`
	Published         string     `json:"published,omitempty"`
}

// MediaLink is an icon or banner reference.
type MediaLink struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url"`
}

// SourceText carries the original markdown alongside pre-rendered content.
// When present it wins over the rendered form.
type SourceText struct {
	Content   string `json:"content"`
	MediaType string `json:"mediaType,omitempty"`
}

// GroupObject is the Group actor document embedded in community Update
// activities. Pointer fields distinguish absent from empty.
type GroupObject struct {
	Id                      string      `json:"id"`
	Type                    string      `json:"type"`
	PreferredUsername       string      `json:"preferredUsername"`
	Name                    *string     `json:"name,omitempty"`
	Summary                 *string     `json:"summary,omitempty"`
	Source                  *SourceText `json:"source,omitempty"`
	Icon                    *MediaLink  `json:"icon,omitempty"`
	Image                   *MediaLink  `json:"image,omitempty"`
	Sensitive               *bool       `json:"sensitive,omitempty"`
	PostingRestrictedToMods *bool       `json:"postingRestrictedToMods,omitempty"`
	Inbox                   *string     `json:"inbox,omitempty"`
	Followers               *string     `json:"followers,omitempty"`
	Endpoints               *Endpoints  `json:"endpoints,omitempty"`
	PublicKey               *PublicKey  `json:"publicKey,omitempty"`
}

// PageObject is an inbound post (Page) object.
type PageObject struct {
	Id           string      `json:"id"`
	Type         string      `json:"type"`
	AttributedTo string      `json:"attributedTo"`
	Name         string      `json:"name"`
	URL          string      `json:"url,omitempty"`
	Content      string      `json:"content,omitempty"`
	Source       *SourceText `json:"source,omitempty"`
	Audience     string      `json:"audience,omitempty"`
	Published    string      `json:"published,omitempty"`
}

// NoteObject is an inbound comment or private message (Note) object.
type NoteObject struct {
	Id           string      `json:"id"`
	Type         string      `json:"type"`
	AttributedTo string      `json:"attributedTo"`
	InReplyTo    string      `json:"inReplyTo,omitempty"`
	Content      string      `json:"content,omitempty"`
	Source       *SourceText `json:"source,omitempty"`
	To           []string    `json:"to,omitempty"`
	Audience     string      `json:"audience,omitempty"`
	Published    string      `json:"published,omitempty"`
}

// FollowObject is the inner object of Undo/Accept for follows; Follow
// activities themselves use the envelope with a string object.
type FollowObject struct {
	Id     string `json:"id"`
	Type   string `json:"type"`
	Actor  string `json:"actor"`
	Object string `json:"object"`
}

// WebfingerLink and WebfingerResponse implement RFC 7033 discovery.
type WebfingerLink struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

type WebfingerResponse struct {
	Subject string          `json:"subject"`
	Links   []WebfingerLink `json:"links"`
}
