package activitypub

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
)

func TestExtractObjectURI(t *testing.T) {
	uri, err := ExtractObjectURI("https://remote.example/post/1")
	if err != nil || uri != "https://remote.example/post/1" {
		t.Errorf("Bare string: got %q, %v", uri, err)
	}

	uri, err = ExtractObjectURI(map[string]any{"id": "https://remote.example/post/2", "type": "Tombstone"})
	if err != nil || uri != "https://remote.example/post/2" {
		t.Errorf("Embedded map: got %q, %v", uri, err)
	}

	uri, err = ExtractObjectURI(domain.Tombstone{Type: "Tombstone", Id: "https://remote.example/post/3"})
	if err != nil || uri != "https://remote.example/post/3" {
		t.Errorf("Struct object: got %q, %v", uri, err)
	}

	if _, err := ExtractObjectURI(""); err == nil {
		t.Error("Empty string must fail")
	}
	if _, err := ExtractObjectURI(nil); err == nil {
		t.Error("Nil object must fail")
	}
	if _, err := ExtractObjectURI(map[string]any{"type": "Note"}); err == nil {
		t.Error("Map without id must fail")
	}
}

func TestResolveObjectByURI(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	person := testPerson("alice")
	post := testPost(person, community)
	comment := &domain.Comment{
		Id:        uuid.New(),
		CreatorId: person.Id,
		PostId:    post.Id,
		ObjectURI: "https://remote.example/comment/" + uuid.New().String(),
		Content:   "hi",
	}
	pm := &domain.PrivateMessage{
		Id:        uuid.New(),
		CreatorId: person.Id,
		ObjectURI: "https://remote.example/pm/" + uuid.New().String(),
	}
	mock.AddCommunity(community)
	mock.AddPerson(person)
	mock.AddPost(post)
	mock.AddComment(comment)
	mock.AddPrivateMessage(pm)

	cases := []struct {
		uri  string
		kind ObjectKind
	}{
		{community.ActorURI, ObjectCommunity},
		{post.ObjectURI, ObjectPost},
		{comment.ObjectURI, ObjectComment},
		{pm.ObjectURI, ObjectPrivateMessage},
		{person.ActorURI, ObjectPerson},
	}
	for _, c := range cases {
		err, obj := ResolveObjectByURI(mock, c.uri)
		if err != nil {
			t.Errorf("Resolve %s failed: %v", c.uri, err)
			continue
		}
		if obj.Kind != c.kind {
			t.Errorf("Resolve %s: got kind %s, want %s", c.uri, obj.Kind, c.kind)
		}
		if obj.URI() != c.uri {
			t.Errorf("URI() round trip: got %s, want %s", obj.URI(), c.uri)
		}
	}

	err, _ := ResolveObjectByURI(mock, "https://remote.example/unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Unknown URI must return not-found, got %v", err)
	}
}

func TestOwningCommunity(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	person := testPerson("alice")
	post := testPost(person, community)
	comment := &domain.Comment{
		Id:        uuid.New(),
		CreatorId: person.Id,
		PostId:    post.Id,
		ObjectURI: "https://remote.example/comment/" + uuid.New().String(),
	}
	mock.AddCommunity(community)
	mock.AddPerson(person)
	mock.AddPost(post)
	mock.AddComment(comment)

	err, got := OwningCommunity(mock, &DeletableObject{Kind: ObjectCommunity, Community: community})
	if err != nil || got != community {
		t.Errorf("Community owns itself: got %v, %v", got, err)
	}

	err, got = OwningCommunity(mock, &DeletableObject{Kind: ObjectPost, Post: post})
	if err != nil || got == nil || got.Id != community.Id {
		t.Errorf("Post's owner: got %v, %v", got, err)
	}

	err, got = OwningCommunity(mock, &DeletableObject{Kind: ObjectComment, Comment: comment})
	if err != nil || got == nil || got.Id != community.Id {
		t.Errorf("Comment's owner through its post: got %v, %v", got, err)
	}

	err, got = OwningCommunity(mock, &DeletableObject{Kind: ObjectPerson, Person: person})
	if err != nil || got != nil {
		t.Errorf("Person has no owning community: got %v, %v", got, err)
	}
}
