package activitypub

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// documentHTTPClient serves canned actor documents by URI.
type documentHTTPClient struct {
	documents map[string]*domain.Actor
	calls     int
	lastReq   *http.Request
}

func (c *documentHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.calls++
	c.lastReq = req
	actor, ok := c.documents[req.URL.String()]
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewReader(nil)),
		}, nil
	}
	raw, err := json.Marshal(actor)
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}, nil
}

func remoteActorDoc(uri, kind, username string) *domain.Actor {
	return &domain.Actor{
		Id:                uri,
		Type:              kind,
		PreferredUsername: username,
		Name:              username,
		Inbox:             uri + "/inbox",
		Followers:         uri + "/followers",
		Endpoints:         &domain.Endpoints{SharedInbox: "https://remote.example/inbox"},
		PublicKey: &domain.PublicKey{
			Id:           uri + "#main-key",
			Owner:        uri,
			PublicKeyPem: testKeys.Public,
		},
	}
}

func TestGetOrFetchPersonFetches(t *testing.T) {
	mock := NewMockDatabase()
	uri := "https://remote.example/u/alice"
	client := &documentHTTPClient{documents: map[string]*domain.Actor{
		uri: remoteActorDoc(uri, "Person", "alice"),
	}}

	err, person := GetOrFetchPerson(mock, client, uri)
	if err != nil {
		t.Fatalf("GetOrFetchPerson failed: %v", err)
	}
	if person.Username != "alice" || person.Domain != "remote.example" {
		t.Errorf("Unexpected person: %+v", person)
	}
	if person.SharedInboxURI != "https://remote.example/inbox" {
		t.Errorf("Shared inbox not captured: %q", person.SharedInboxURI)
	}
	if err, _ := mock.ReadPersonByActorURI(uri); err != nil {
		t.Error("Fetched person must be cached")
	}
	if got := client.lastReq.Header.Get("User-Agent"); got != util.GetNameAndVersion() {
		t.Errorf("Unexpected user agent %q", got)
	}

	// Second lookup must hit the cache, not the network
	calls := client.calls
	if err, _ := GetOrFetchPerson(mock, client, uri); err != nil {
		t.Fatalf("Cached lookup failed: %v", err)
	}
	if client.calls != calls {
		t.Error("Fresh cached person must not trigger a fetch")
	}
}

func TestGetOrFetchPersonRejectsGroup(t *testing.T) {
	mock := NewMockDatabase()
	uri := "https://remote.example/c/golang"
	client := &documentHTTPClient{documents: map[string]*domain.Actor{
		uri: remoteActorDoc(uri, "Group", "golang"),
	}}

	if err, _ := GetOrFetchPerson(mock, client, uri); err == nil {
		t.Error("Group actor must not resolve as a person")
	}
}

func TestGetOrFetchPersonStaleFallback(t *testing.T) {
	mock := NewMockDatabase()
	person := testPerson("alice")
	person.LastFetchedAt = time.Now().Add(-48 * time.Hour)
	mock.AddPerson(person)

	// Refresh fails, the stale copy is still served
	err, got := GetOrFetchPerson(mock, &failingHTTPClient{}, person.ActorURI)
	if err != nil {
		t.Fatalf("Stale cache with failed refresh must fall back, got %v", err)
	}
	if got.Id != person.Id {
		t.Error("Expected the cached person")
	}
}

func TestGetOrFetchPersonStaleRefresh(t *testing.T) {
	mock := NewMockDatabase()
	person := testPerson("alice")
	person.DisplayName = "Old Name"
	person.LastFetchedAt = time.Now().Add(-48 * time.Hour)
	mock.AddPerson(person)

	doc := remoteActorDoc(person.ActorURI, "Person", "alice")
	doc.Name = "New Name"
	client := &documentHTTPClient{documents: map[string]*domain.Actor{person.ActorURI: doc}}

	err, got := GetOrFetchPerson(mock, client, person.ActorURI)
	if err != nil {
		t.Fatalf("GetOrFetchPerson failed: %v", err)
	}
	if got.DisplayName != "New Name" {
		t.Errorf("Stale person must be refreshed, got %q", got.DisplayName)
	}
	if got.Id != person.Id {
		t.Error("Refresh must keep the stored id")
	}
}

func TestGetOrFetchCommunity(t *testing.T) {
	mock := NewMockDatabase()
	uri := "https://remote.example/c/golang"
	client := &documentHTTPClient{documents: map[string]*domain.Actor{
		uri: remoteActorDoc(uri, "Group", "golang"),
	}}

	err, community := GetOrFetchCommunity(mock, client, uri)
	if err != nil {
		t.Fatalf("GetOrFetchCommunity failed: %v", err)
	}
	if community.Name != "golang" || community.Domain != "remote.example" {
		t.Errorf("Unexpected community: %+v", community)
	}
	if community.FollowersURI != uri+"/followers" {
		t.Errorf("Followers URI not captured: %q", community.FollowersURI)
	}

	// Known communities come from the cache
	calls := client.calls
	if err, _ := GetOrFetchCommunity(mock, client, uri); err != nil {
		t.Fatalf("Cached lookup failed: %v", err)
	}
	if client.calls != calls {
		t.Error("Cached community must not trigger a fetch")
	}
}

func TestFetchActorDocumentValidation(t *testing.T) {
	uri := "https://remote.example/u/broken"
	noKey := remoteActorDoc(uri, "Person", "broken")
	noKey.PublicKey = nil
	client := &documentHTTPClient{documents: map[string]*domain.Actor{uri: noKey}}

	if _, err := FetchActorDocument(client, uri); err == nil {
		t.Error("Actor document without a public key must be rejected")
	}
	if _, err := FetchActorDocument(client, "https://remote.example/u/missing"); err == nil {
		t.Error("Non-200 response must surface as an error")
	}
}
