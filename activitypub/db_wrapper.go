package activitypub

import (
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/db"
	"github.com/lemurforge/lemur/domain"
)

// DBWrapper wraps the real database to implement the Database interface.
// This adapter allows the production code to use the existing db.GetDB() singleton
// while also supporting dependency injection for tests.
type DBWrapper struct {
	db *db.DB
}

// NewDBWrapper creates a new database wrapper around the singleton database
func NewDBWrapper() *DBWrapper {
	return &DBWrapper{db: db.GetDB()}
}

// Person operations

func (w *DBWrapper) ReadPersonByActorURI(actorURI string) (error, *domain.Person) {
	return w.db.ReadPersonByActorURI(actorURI)
}

func (w *DBWrapper) ReadPersonById(id uuid.UUID) (error, *domain.Person) {
	return w.db.ReadPersonById(id)
}

func (w *DBWrapper) ReadLocalPersonByUsername(username string) (error, *domain.Person) {
	return w.db.ReadLocalPersonByUsername(username)
}

func (w *DBWrapper) CreatePerson(p *domain.Person) error {
	return w.db.CreatePerson(p)
}

func (w *DBWrapper) UpdatePerson(p *domain.Person) error {
	return w.db.UpdatePerson(p)
}

func (w *DBWrapper) DeletePersonAccount(personId uuid.UUID, removeData bool, entry *domain.ModLogEntry) error {
	return w.db.DeletePersonAccount(personId, removeData, entry)
}

// Community operations

func (w *DBWrapper) ReadCommunityByActorURI(actorURI string) (error, *domain.Community) {
	return w.db.ReadCommunityByActorURI(actorURI)
}

func (w *DBWrapper) ReadCommunityById(id uuid.UUID) (error, *domain.Community) {
	return w.db.ReadCommunityById(id)
}

func (w *DBWrapper) ReadCommunityByName(name string) (error, *domain.Community) {
	return w.db.ReadCommunityByName(name)
}

func (w *DBWrapper) CreateCommunity(c *domain.Community) error {
	return w.db.CreateCommunity(c)
}

func (w *DBWrapper) UpdateCommunityPartial(id uuid.UUID, form *domain.CommunityUpdateForm) error {
	return w.db.UpdateCommunityPartial(id, form)
}

func (w *DBWrapper) UpdateCommunityDeleted(id uuid.UUID, deleted bool) error {
	return w.db.UpdateCommunityDeleted(id, deleted)
}

func (w *DBWrapper) UpdateCommunityRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	return w.db.UpdateCommunityRemoved(id, removed, entry)
}

// Post operations

func (w *DBWrapper) ReadPostByURI(objectURI string) (error, *domain.Post) {
	return w.db.ReadPostByURI(objectURI)
}

func (w *DBWrapper) ReadPostById(id uuid.UUID) (error, *domain.Post) {
	return w.db.ReadPostById(id)
}

func (w *DBWrapper) CreatePost(p *domain.Post) error {
	return w.db.CreatePost(p)
}

func (w *DBWrapper) UpdatePostDeleted(id uuid.UUID, deleted bool) error {
	return w.db.UpdatePostDeleted(id, deleted)
}

func (w *DBWrapper) UpdatePostRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	return w.db.UpdatePostRemoved(id, removed, entry)
}

// Comment operations

func (w *DBWrapper) ReadCommentByURI(objectURI string) (error, *domain.Comment) {
	return w.db.ReadCommentByURI(objectURI)
}

func (w *DBWrapper) CreateComment(c *domain.Comment) error {
	return w.db.CreateComment(c)
}

func (w *DBWrapper) UpdateCommentDeleted(id uuid.UUID, deleted bool) error {
	return w.db.UpdateCommentDeleted(id, deleted)
}

func (w *DBWrapper) UpdateCommentRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	return w.db.UpdateCommentRemoved(id, removed, entry)
}

// Private message operations

func (w *DBWrapper) ReadPrivateMessageByURI(objectURI string) (error, *domain.PrivateMessage) {
	return w.db.ReadPrivateMessageByURI(objectURI)
}

func (w *DBWrapper) CreatePrivateMessage(pm *domain.PrivateMessage) error {
	return w.db.CreatePrivateMessage(pm)
}

func (w *DBWrapper) UpdatePrivateMessageDeleted(id uuid.UUID, deleted bool) error {
	return w.db.UpdatePrivateMessageDeleted(id, deleted)
}

// Follower and moderator operations

func (w *DBWrapper) CreateCommunityFollower(f *domain.CommunityFollower) error {
	return w.db.CreateCommunityFollower(f)
}

func (w *DBWrapper) ReadCommunityFollower(communityId, personId uuid.UUID) (error, *domain.CommunityFollower) {
	return w.db.ReadCommunityFollower(communityId, personId)
}

func (w *DBWrapper) ReadCommunityFollowerByURI(uri string) (error, *domain.CommunityFollower) {
	return w.db.ReadCommunityFollowerByURI(uri)
}

func (w *DBWrapper) ReadCommunityFollowers(communityId uuid.UUID) (error, *[]domain.CommunityFollower) {
	return w.db.ReadCommunityFollowers(communityId)
}

func (w *DBWrapper) AcceptCommunityFollowerByURI(uri string) error {
	return w.db.AcceptCommunityFollowerByURI(uri)
}

func (w *DBWrapper) DeleteCommunityFollowerByURI(uri string) error {
	return w.db.DeleteCommunityFollowerByURI(uri)
}

func (w *DBWrapper) IsCommunityModerator(communityId, personId uuid.UUID) (bool, error) {
	return w.db.IsCommunityModerator(communityId, personId)
}

// Received activity ledger

// InsertReceivedActivity maps the UNIQUE constraint violation to
// ErrAlreadyProcessed so callers can treat duplicates as success.
func (w *DBWrapper) InsertReceivedActivity(activityURI string) error {
	err := w.db.InsertReceivedActivity(activityURI)
	if db.IsUniqueConstraintError(err) {
		return ErrAlreadyProcessed
	}
	return err
}

// Instance operations

func (w *DBWrapper) UpsertInstance(inst *domain.Instance) error {
	return w.db.UpsertInstance(inst)
}

func (w *DBWrapper) ReadAllInstances() (error, *[]domain.Instance) {
	return w.db.ReadAllInstances()
}

// Delivery queue operations

func (w *DBWrapper) EnqueueDelivery(item *domain.DeliveryQueueItem) error {
	return w.db.EnqueueDelivery(item)
}

func (w *DBWrapper) ReadPendingDeliveries(limit int) (error, *[]domain.DeliveryQueueItem) {
	return w.db.ReadPendingDeliveries(limit)
}

func (w *DBWrapper) UpdateDeliveryAttempt(id uuid.UUID, attempts int, nextRetry time.Time) error {
	return w.db.UpdateDeliveryAttempt(id, attempts, nextRetry)
}

func (w *DBWrapper) DeleteDelivery(id uuid.UUID) error {
	return w.db.DeleteDelivery(id)
}

// Ensure DBWrapper implements Database interface
var _ Database = (*DBWrapper)(nil)
