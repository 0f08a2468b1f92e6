package activitypub

import (
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
)

// MockDatabase is an in-memory mock implementation of the Database interface for testing.
// It stores data in maps and provides full CRUD operations without requiring a real database.
type MockDatabase struct {
	mu sync.RWMutex

	// Storage maps
	Persons           map[uuid.UUID]*domain.Person
	PersonsByActor    map[string]*domain.Person
	PersonsByUsername map[string]*domain.Person
	Communities       map[uuid.UUID]*domain.Community
	CommunitiesActor  map[string]*domain.Community
	CommunitiesName   map[string]*domain.Community
	Posts             map[uuid.UUID]*domain.Post
	PostsByURI        map[string]*domain.Post
	Comments          map[string]*domain.Comment
	PrivateMessages   map[string]*domain.PrivateMessage
	Followers         map[string]*domain.CommunityFollower
	FollowersByURI    map[string]*domain.CommunityFollower
	Moderators        map[string]bool
	ReceivedActivity  map[string]bool
	ModLog            []*domain.ModLogEntry
	Instances         map[string]*domain.Instance
	DeliveryQueue     map[uuid.UUID]*domain.DeliveryQueueItem

	// Error injection for testing error handling
	ForceError error
}

// NewMockDatabase creates a new mock database with initialized maps
func NewMockDatabase() *MockDatabase {
	return &MockDatabase{
		Persons:           make(map[uuid.UUID]*domain.Person),
		PersonsByActor:    make(map[string]*domain.Person),
		PersonsByUsername: make(map[string]*domain.Person),
		Communities:       make(map[uuid.UUID]*domain.Community),
		CommunitiesActor:  make(map[string]*domain.Community),
		CommunitiesName:   make(map[string]*domain.Community),
		Posts:             make(map[uuid.UUID]*domain.Post),
		PostsByURI:        make(map[string]*domain.Post),
		Comments:          make(map[string]*domain.Comment),
		PrivateMessages:   make(map[string]*domain.PrivateMessage),
		Followers:         make(map[string]*domain.CommunityFollower),
		FollowersByURI:    make(map[string]*domain.CommunityFollower),
		Moderators:        make(map[string]bool),
		ReceivedActivity:  make(map[string]bool),
		Instances:         make(map[string]*domain.Instance),
		DeliveryQueue:     make(map[uuid.UUID]*domain.DeliveryQueueItem),
	}
}

func followerKey(communityId, personId uuid.UUID) string {
	return communityId.String() + "/" + personId.String()
}

// AddPerson adds a person to the mock database
func (m *MockDatabase) AddPerson(p *domain.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persons[p.Id] = p
	m.PersonsByActor[p.ActorURI] = p
	if p.Local {
		m.PersonsByUsername[p.Username] = p
	}
}

// AddCommunity adds a community to the mock database
func (m *MockDatabase) AddCommunity(c *domain.Community) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Communities[c.Id] = c
	m.CommunitiesActor[c.ActorURI] = c
	if c.Local {
		m.CommunitiesName[c.Name] = c
	}
}

// AddPost adds a post to the mock database
func (m *MockDatabase) AddPost(p *domain.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Posts[p.Id] = p
	m.PostsByURI[p.ObjectURI] = p
}

// AddComment adds a comment to the mock database
func (m *MockDatabase) AddComment(c *domain.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Comments[c.ObjectURI] = c
}

// AddPrivateMessage adds a private message to the mock database
func (m *MockDatabase) AddPrivateMessage(pm *domain.PrivateMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrivateMessages[pm.ObjectURI] = pm
}

// AddModerator marks a person as moderator of a community
func (m *MockDatabase) AddModerator(communityId, personId uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Moderators[followerKey(communityId, personId)] = true
}

// Person operations

func (m *MockDatabase) ReadPersonByActorURI(actorURI string) (error, *domain.Person) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if p, ok := m.PersonsByActor[actorURI]; ok {
		return nil, p
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) ReadPersonById(id uuid.UUID) (error, *domain.Person) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if p, ok := m.Persons[id]; ok {
		return nil, p
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) ReadLocalPersonByUsername(username string) (error, *domain.Person) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if p, ok := m.PersonsByUsername[username]; ok {
		return nil, p
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) CreatePerson(p *domain.Person) error {
	if m.ForceError != nil {
		return m.ForceError
	}
	m.AddPerson(p)
	return nil
}

func (m *MockDatabase) UpdatePerson(p *domain.Person) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Persons[p.Id] = p
	m.PersonsByActor[p.ActorURI] = p
	return nil
}

func (m *MockDatabase) DeletePersonAccount(personId uuid.UUID, removeData bool, entry *domain.ModLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	p, ok := m.Persons[personId]
	if !ok {
		return sql.ErrNoRows
	}
	p.Deleted = true
	p.DisplayName = ""
	p.Bio = ""
	p.AvatarURL = ""
	if removeData {
		for _, post := range m.Posts {
			if post.CreatorId == personId {
				post.Removed = true
			}
		}
		for _, comment := range m.Comments {
			if comment.CreatorId == personId {
				comment.Removed = true
			}
		}
	}
	if entry != nil {
		m.ModLog = append(m.ModLog, entry)
	}
	return nil
}

// Community operations

func (m *MockDatabase) ReadCommunityByActorURI(actorURI string) (error, *domain.Community) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if c, ok := m.CommunitiesActor[actorURI]; ok {
		return nil, c
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) ReadCommunityById(id uuid.UUID) (error, *domain.Community) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if c, ok := m.Communities[id]; ok {
		return nil, c
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) ReadCommunityByName(name string) (error, *domain.Community) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if c, ok := m.CommunitiesName[name]; ok {
		return nil, c
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) CreateCommunity(c *domain.Community) error {
	if m.ForceError != nil {
		return m.ForceError
	}
	m.AddCommunity(c)
	return nil
}

func (m *MockDatabase) UpdateCommunityPartial(id uuid.UUID, form *domain.CommunityUpdateForm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	c, ok := m.Communities[id]
	if !ok {
		return sql.ErrNoRows
	}
	if form.Title != nil {
		c.Title = *form.Title
	}
	if form.Description != nil {
		c.Description = *form.Description
	}
	if form.IconURL != nil {
		c.IconURL = *form.IconURL
	}
	if form.BannerURL != nil {
		c.BannerURL = *form.BannerURL
	}
	if form.Nsfw != nil {
		c.Nsfw = *form.Nsfw
	}
	if form.PostingRestrictedToMods != nil {
		c.PostingRestrictedToMods = *form.PostingRestrictedToMods
	}
	if form.PublicKeyPem != nil {
		c.PublicKeyPem = *form.PublicKeyPem
	}
	if form.InboxURI != nil {
		c.InboxURI = *form.InboxURI
	}
	if form.SharedInboxURI != nil {
		c.SharedInboxURI = *form.SharedInboxURI
	}
	if form.FollowersURI != nil {
		c.FollowersURI = *form.FollowersURI
	}
	if form.LastRefreshedAt != nil {
		c.LastRefreshedAt = *form.LastRefreshedAt
	}
	return nil
}

func (m *MockDatabase) UpdateCommunityDeleted(id uuid.UUID, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	c, ok := m.Communities[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Deleted = deleted
	return nil
}

func (m *MockDatabase) UpdateCommunityRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	c, ok := m.Communities[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.Removed = removed
	if entry != nil {
		m.ModLog = append(m.ModLog, entry)
	}
	return nil
}

// Post operations

func (m *MockDatabase) ReadPostByURI(objectURI string) (error, *domain.Post) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if p, ok := m.PostsByURI[objectURI]; ok {
		return nil, p
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) ReadPostById(id uuid.UUID) (error, *domain.Post) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if p, ok := m.Posts[id]; ok {
		return nil, p
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) CreatePost(p *domain.Post) error {
	if m.ForceError != nil {
		return m.ForceError
	}
	m.AddPost(p)
	return nil
}

func (m *MockDatabase) UpdatePostDeleted(id uuid.UUID, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	p, ok := m.Posts[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Deleted = deleted
	return nil
}

func (m *MockDatabase) UpdatePostRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	p, ok := m.Posts[id]
	if !ok {
		return sql.ErrNoRows
	}
	p.Removed = removed
	if entry != nil {
		m.ModLog = append(m.ModLog, entry)
	}
	return nil
}

// Comment operations

func (m *MockDatabase) ReadCommentByURI(objectURI string) (error, *domain.Comment) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if c, ok := m.Comments[objectURI]; ok {
		return nil, c
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) CreateComment(c *domain.Comment) error {
	if m.ForceError != nil {
		return m.ForceError
	}
	m.AddComment(c)
	return nil
}

func (m *MockDatabase) UpdateCommentDeleted(id uuid.UUID, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for _, c := range m.Comments {
		if c.Id == id {
			c.Deleted = deleted
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *MockDatabase) UpdateCommentRemoved(id uuid.UUID, removed bool, entry *domain.ModLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for _, c := range m.Comments {
		if c.Id == id {
			c.Removed = removed
			if entry != nil {
				m.ModLog = append(m.ModLog, entry)
			}
			return nil
		}
	}
	return sql.ErrNoRows
}

// Private message operations

func (m *MockDatabase) ReadPrivateMessageByURI(objectURI string) (error, *domain.PrivateMessage) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if pm, ok := m.PrivateMessages[objectURI]; ok {
		return nil, pm
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) CreatePrivateMessage(pm *domain.PrivateMessage) error {
	if m.ForceError != nil {
		return m.ForceError
	}
	m.AddPrivateMessage(pm)
	return nil
}

func (m *MockDatabase) UpdatePrivateMessageDeleted(id uuid.UUID, deleted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	for _, pm := range m.PrivateMessages {
		if pm.Id == id {
			pm.Deleted = deleted
			return nil
		}
	}
	return sql.ErrNoRows
}

// Follower and moderator operations

func (m *MockDatabase) CreateCommunityFollower(f *domain.CommunityFollower) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Followers[followerKey(f.CommunityId, f.PersonId)] = f
	m.FollowersByURI[f.URI] = f
	return nil
}

func (m *MockDatabase) ReadCommunityFollower(communityId, personId uuid.UUID) (error, *domain.CommunityFollower) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if f, ok := m.Followers[followerKey(communityId, personId)]; ok {
		return nil, f
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) ReadCommunityFollowerByURI(uri string) (error, *domain.CommunityFollower) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	if f, ok := m.FollowersByURI[uri]; ok {
		return nil, f
	}
	return sql.ErrNoRows, nil
}

func (m *MockDatabase) ReadCommunityFollowers(communityId uuid.UUID) (error, *[]domain.CommunityFollower) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	var followers []domain.CommunityFollower
	for _, f := range m.Followers {
		if f.CommunityId == communityId && !f.Pending {
			followers = append(followers, *f)
		}
	}
	return nil, &followers
}

func (m *MockDatabase) AcceptCommunityFollowerByURI(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if f, ok := m.FollowersByURI[uri]; ok {
		f.Pending = false
		return nil
	}
	return sql.ErrNoRows
}

func (m *MockDatabase) DeleteCommunityFollowerByURI(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if f, ok := m.FollowersByURI[uri]; ok {
		delete(m.Followers, followerKey(f.CommunityId, f.PersonId))
		delete(m.FollowersByURI, uri)
	}
	return nil
}

func (m *MockDatabase) IsCommunityModerator(communityId, personId uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return false, m.ForceError
	}
	return m.Moderators[followerKey(communityId, personId)], nil
}

// Received activity ledger

func (m *MockDatabase) InsertReceivedActivity(activityURI string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if m.ReceivedActivity[activityURI] {
		return ErrAlreadyProcessed
	}
	m.ReceivedActivity[activityURI] = true
	return nil
}

// Instance operations

func (m *MockDatabase) UpsertInstance(inst *domain.Instance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.Instances[inst.Domain] = inst
	return nil
}

func (m *MockDatabase) ReadAllInstances() (error, *[]domain.Instance) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	var instances []domain.Instance
	for _, inst := range m.Instances {
		instances = append(instances, *inst)
	}
	return nil, &instances
}

// Delivery queue operations

func (m *MockDatabase) EnqueueDelivery(item *domain.DeliveryQueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	m.DeliveryQueue[item.Id] = item
	return nil
}

func (m *MockDatabase) ReadPendingDeliveries(limit int) (error, *[]domain.DeliveryQueueItem) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ForceError != nil {
		return m.ForceError, nil
	}
	var items []domain.DeliveryQueueItem
	for _, item := range m.DeliveryQueue {
		if len(items) >= limit {
			break
		}
		if !item.NextRetryAt.After(time.Now()) {
			items = append(items, *item)
		}
	}
	return nil, &items
}

func (m *MockDatabase) UpdateDeliveryAttempt(id uuid.UUID, attempts int, nextRetry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	if item, ok := m.DeliveryQueue[id]; ok {
		item.Attempts = attempts
		item.NextRetryAt = nextRetry
		return nil
	}
	return sql.ErrNoRows
}

func (m *MockDatabase) DeleteDelivery(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceError != nil {
		return m.ForceError
	}
	delete(m.DeliveryQueue, id)
	return nil
}

// Ensure MockDatabase implements Database interface
var _ Database = (*MockDatabase)(nil)
