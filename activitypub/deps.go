package activitypub

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
)

// Database defines the database operations required by the ActivityPub package.
// This interface allows for dependency injection and testing with mock implementations.
type Database interface {
	// Person operations
	ReadPersonByActorURI(actorURI string) (error, *domain.Person)
	ReadPersonById(id uuid.UUID) (error, *domain.Person)
	ReadLocalPersonByUsername(username string) (error, *domain.Person)
	CreatePerson(p *domain.Person) error
	UpdatePerson(p *domain.Person) error
	DeletePersonAccount(personId uuid.UUID, removeData bool, entry *domain.ModLogEntry) error

	// Community operations
	ReadCommunityByActorURI(actorURI string) (error, *domain.Community)
	ReadCommunityById(id uuid.UUID) (error, *domain.Community)
	ReadCommunityByName(name string) (error, *domain.Community)
	CreateCommunity(c *domain.Community) error
	UpdateCommunityPartial(id uuid.UUID, form *domain.CommunityUpdateForm) error
	UpdateCommunityDeleted(id uuid.UUID, deleted bool) error
	UpdateCommunityRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error

	// Post operations
	ReadPostByURI(objectURI string) (error, *domain.Post)
	ReadPostById(id uuid.UUID) (error, *domain.Post)
	CreatePost(p *domain.Post) error
	UpdatePostDeleted(id uuid.UUID, deleted bool) error
	UpdatePostRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error

	// Comment operations
	ReadCommentByURI(objectURI string) (error, *domain.Comment)
	CreateComment(c *domain.Comment) error
	UpdateCommentDeleted(id uuid.UUID, deleted bool) error
	UpdateCommentRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error

	// Private message operations
	ReadPrivateMessageByURI(objectURI string) (error, *domain.PrivateMessage)
	CreatePrivateMessage(pm *domain.PrivateMessage) error
	UpdatePrivateMessageDeleted(id uuid.UUID, deleted bool) error

	// Follower and moderator operations
	CreateCommunityFollower(f *domain.CommunityFollower) error
	ReadCommunityFollower(communityId, personId uuid.UUID) (error, *domain.CommunityFollower)
	ReadCommunityFollowerByURI(uri string) (error, *domain.CommunityFollower)
	ReadCommunityFollowers(communityId uuid.UUID) (error, *[]domain.CommunityFollower)
	AcceptCommunityFollowerByURI(uri string) error
	DeleteCommunityFollowerByURI(uri string) error
	IsCommunityModerator(communityId, personId uuid.UUID) (bool, error)

	// Received activity ledger
	InsertReceivedActivity(activityURI string) error

	// Instance operations
	UpsertInstance(inst *domain.Instance) error
	ReadAllInstances() (error, *[]domain.Instance)

	// Delivery queue operations
	EnqueueDelivery(item *domain.DeliveryQueueItem) error
	ReadPendingDeliveries(limit int) (error, *[]domain.DeliveryQueueItem)
	UpdateDeliveryAttempt(id uuid.UUID, attempts int, nextRetry time.Time) error
	DeleteDelivery(id uuid.UUID) error
}

// HTTPClient defines the HTTP client operations required by the ActivityPub package.
// This interface allows for dependency injection and testing with mock implementations.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient is the default HTTP client used in production
type DefaultHTTPClient struct {
	client *http.Client
}

// NewDefaultHTTPClient creates a new default HTTP client with the specified timeout
func NewDefaultHTTPClient(timeout time.Duration) *DefaultHTTPClient {
	return &DefaultHTTPClient{
		client: &http.Client{Timeout: timeout},
	}
}

// Do executes the HTTP request
func (c *DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req)
}
