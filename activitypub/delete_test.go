package activitypub

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
)

func testCommunity(local bool) *domain.Community {
	host := "remote.example"
	if local {
		host = "local.example"
	}
	return &domain.Community{
		Id:           uuid.New(),
		Name:         "golang",
		Domain:       host,
		Title:        "Go",
		ActorURI:     "https://" + host + "/c/golang",
		FollowersURI: "https://" + host + "/c/golang/followers",
		InboxURI:     "https://" + host + "/c/golang/inbox",
		Visibility:   domain.CommunityVisibilityPublic,
		Local:        local,
		CreatorId:    uuid.New(),
		CreatedAt:    time.Now(),
	}
}

func testPerson(username string) *domain.Person {
	return &domain.Person{
		Id:       uuid.New(),
		Username: username,
		Domain:   "remote.example",
		ActorURI: "https://remote.example/u/" + username,
		InboxURI: "https://remote.example/u/" + username + "/inbox",
	}
}

func testPost(creator *domain.Person, community *domain.Community) *domain.Post {
	return &domain.Post{
		Id:          uuid.New(),
		CreatorId:   creator.Id,
		CommunityId: community.Id,
		ObjectURI:   "https://remote.example/post/" + uuid.New().String(),
		Title:       "A post",
		CreatedAt:   time.Now(),
	}
}

func deleteActivity(actor *domain.Person, objectURI string, community *domain.Community, reason *string) *domain.Activity {
	return &domain.Activity{
		Id:      "https://remote.example/activities/" + uuid.New().String(),
		Type:    "Delete",
		Actor:   actor.ActorURI,
		Object:  objectURI,
		To:      []string{domain.PublicAudience, community.FollowersURI},
		Summary: reason,
	}
}

func undoActivity(actor *domain.Person, inner *domain.Activity) *domain.Activity {
	return &domain.Activity{
		Id:      "https://remote.example/activities/" + uuid.New().String(),
		Type:    "Undo",
		Actor:   actor.ActorURI,
		Object:  inner,
		To:      inner.To,
		Summary: inner.Summary,
	}
}

func TestReceiveDeletePostByCreator(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	creator := testPerson("alice")
	post := testPost(creator, community)
	mock.AddCommunity(community)
	mock.AddPerson(creator)
	mock.AddPost(post)

	activity := deleteActivity(creator, post.ObjectURI, community, nil)
	if err := ReceiveDelete(mock, activity, creator); err != nil {
		t.Fatalf("ReceiveDelete failed: %v", err)
	}

	if !post.Deleted {
		t.Error("Expected post.Deleted to be true")
	}
	if post.Removed {
		t.Error("Self-delete must not touch the removed flag")
	}
	if len(mock.ModLog) != 0 {
		t.Errorf("Self-delete must not write a mod log entry, got %d", len(mock.ModLog))
	}
}

func TestReceiveDeletePostByModerator(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	creator := testPerson("alice")
	mod := testPerson("bob")
	post := testPost(creator, community)
	mock.AddCommunity(community)
	mock.AddPerson(creator)
	mock.AddPerson(mod)
	mock.AddPost(post)
	mock.AddModerator(community.Id, mod.Id)

	reason := "spam"
	activity := deleteActivity(mod, post.ObjectURI, community, &reason)
	if err := ReceiveDelete(mock, activity, mod); err != nil {
		t.Fatalf("ReceiveDelete failed: %v", err)
	}

	if !post.Removed {
		t.Error("Expected post.Removed to be true")
	}
	if post.Deleted {
		t.Error("Moderator removal must not touch the deleted flag")
	}
	if len(mock.ModLog) != 1 {
		t.Fatalf("Expected exactly one mod log entry, got %d", len(mock.ModLog))
	}
	entry := mock.ModLog[0]
	if entry.ModPersonId != mod.Id || entry.TargetURI != post.ObjectURI || entry.Reason != "spam" || !entry.Removed {
		t.Errorf("Unexpected mod log entry: %+v", entry)
	}
}

func TestReceiveDeleteRejectsNonCreator(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	creator := testPerson("alice")
	other := testPerson("mallory")
	post := testPost(creator, community)
	mock.AddCommunity(community)
	mock.AddPerson(creator)
	mock.AddPerson(other)
	mock.AddPost(post)

	activity := deleteActivity(other, post.ObjectURI, community, nil)
	err := ReceiveDelete(mock, activity, other)
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("Expected verification error, got %v", err)
	}
	if post.Deleted || post.Removed {
		t.Error("Rejected activity must not mutate state")
	}
	if mock.ReceivedActivity[activity.Id] {
		t.Error("Rejected activity must not be recorded in the ledger")
	}
}

func TestReceiveDeleteRejectsNonModeratorRemoval(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	creator := testPerson("alice")
	post := testPost(creator, community)
	mock.AddCommunity(community)
	mock.AddPerson(creator)
	mock.AddPost(post)

	// Even the creator cannot issue a moderator removal
	reason := "rules"
	activity := deleteActivity(creator, post.ObjectURI, community, &reason)
	err := ReceiveDelete(mock, activity, creator)
	if !errors.Is(err, ErrVerification) {
		t.Fatalf("Expected verification error, got %v", err)
	}
	if post.Removed {
		t.Error("Rejected removal must not set the removed flag")
	}
}

func TestDeleteUndoRoundTrip(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	creator := testPerson("alice")
	mod := testPerson("bob")
	post := testPost(creator, community)
	mock.AddCommunity(community)
	mock.AddPerson(creator)
	mock.AddPerson(mod)
	mock.AddPost(post)
	mock.AddModerator(community.Id, mod.Id)

	reason := "off topic"
	del := deleteActivity(mod, post.ObjectURI, community, &reason)
	if err := ReceiveDelete(mock, del, mod); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !post.Removed {
		t.Fatal("Expected post to be removed")
	}

	undo := undoActivity(mod, del)
	if err := ReceiveUndoDelete(mock, undo, mod); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if post.Removed || post.Deleted {
		t.Errorf("Round trip must restore original flags, got deleted=%v removed=%v", post.Deleted, post.Removed)
	}
	if len(mock.ModLog) != 2 {
		t.Fatalf("Expected mod log entries for removal and restore, got %d", len(mock.ModLog))
	}
	if mock.ModLog[0].Removed != true || mock.ModLog[1].Removed != false {
		t.Error("Mod log must record the resulting flag value of each transition")
	}
	if mock.ModLog[0].Reason != "off topic" {
		t.Errorf("Removal entry must carry the reason, got %q", mock.ModLog[0].Reason)
	}
	if mock.ModLog[1].Reason != "" {
		t.Errorf("Restore entry must not carry a reason, got %q", mock.ModLog[1].Reason)
	}
}

func TestUndoRestoresOnlyMatchingAxis(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	creator := testPerson("alice")
	mod := testPerson("bob")
	post := testPost(creator, community)
	post.Deleted = true
	post.Removed = true
	mock.AddCommunity(community)
	mock.AddPerson(creator)
	mock.AddPerson(mod)
	mock.AddPost(post)
	mock.AddModerator(community.Id, mod.Id)

	reason := "spam"
	del := deleteActivity(mod, post.ObjectURI, community, &reason)
	undo := undoActivity(mod, del)
	if err := ReceiveUndoDelete(mock, undo, mod); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if post.Removed {
		t.Error("Expected removed to be cleared")
	}
	if !post.Deleted {
		t.Error("Undo of a removal must not clear the deleted flag")
	}
}

func TestReceiveDeleteIdempotent(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	creator := testPerson("alice")
	mod := testPerson("bob")
	post := testPost(creator, community)
	mock.AddCommunity(community)
	mock.AddPerson(creator)
	mock.AddPerson(mod)
	mock.AddPost(post)
	mock.AddModerator(community.Id, mod.Id)

	reason := "spam"
	activity := deleteActivity(mod, post.ObjectURI, community, &reason)
	if err := ReceiveDelete(mock, activity, mod); err != nil {
		t.Fatalf("First delivery failed: %v", err)
	}

	err := ReceiveDelete(mock, activity, mod)
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("Second delivery should hit the ledger, got %v", err)
	}
	if len(mock.ModLog) != 1 {
		t.Errorf("Duplicate delivery must not write a second mod log entry, got %d", len(mock.ModLog))
	}
	if !post.Removed {
		t.Error("Post must stay removed")
	}
}

func TestUndoDeletePersonNotFound(t *testing.T) {
	mock := NewMockDatabase()
	person := testPerson("alice")
	mock.AddPerson(person)

	del := &domain.Activity{
		Id:     "https://remote.example/activities/" + uuid.New().String(),
		Type:   "Delete",
		Actor:  person.ActorURI,
		Object: person.ActorURI,
	}
	undo := &domain.Activity{
		Id:     "https://remote.example/activities/" + uuid.New().String(),
		Type:   "Undo",
		Actor:  person.ActorURI,
		Object: del,
	}
	err := ReceiveUndoDelete(mock, undo, person)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Undo of a person deletion must return not-found, got %v", err)
	}
}

func TestUndoDeletePrivateMessageNotFound(t *testing.T) {
	mock := NewMockDatabase()
	sender := testPerson("alice")
	mock.AddPerson(sender)
	pm := &domain.PrivateMessage{
		Id:        uuid.New(),
		CreatorId: sender.Id,
		ObjectURI: "https://remote.example/pm/" + uuid.New().String(),
		Deleted:   true,
	}
	mock.AddPrivateMessage(pm)

	del := &domain.Activity{
		Id:     "https://remote.example/activities/" + uuid.New().String(),
		Type:   "Delete",
		Actor:  sender.ActorURI,
		Object: pm.ObjectURI,
	}
	undo := &domain.Activity{
		Id:     "https://remote.example/activities/" + uuid.New().String(),
		Type:   "Undo",
		Actor:  sender.ActorURI,
		Object: del,
	}
	err := ReceiveUndoDelete(mock, undo, sender)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Undo of a private message deletion must return not-found, got %v", err)
	}
	if !pm.Deleted {
		t.Error("Private message must stay deleted")
	}
}

func TestLocalCommunityRestoreRequiresLocalAdmin(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(true)
	community.Removed = true
	remoteMod := testPerson("bob")
	mock.AddCommunity(community)
	mock.AddPerson(remoteMod)
	mock.AddModerator(community.Id, remoteMod.Id)

	reason := "rule breach"
	del := deleteActivity(remoteMod, community.ActorURI, community, &reason)
	undo := undoActivity(remoteMod, del)

	err := ReceiveUndoDelete(mock, undo, remoteMod)
	if !errors.Is(err, ErrLocalCommunityRestore) {
		t.Fatalf("Remote actor restoring a local community must hit the restore error, got %v", err)
	}
	if !community.Removed {
		t.Error("Community must stay removed")
	}

	// A local admin may restore it
	admin := testPerson("admin")
	admin.Local = true
	admin.Admin = true
	mock.AddPerson(admin)
	undo2 := undoActivity(admin, del)
	undo2.Id = "https://local.example/activities/" + uuid.New().String()
	if err := ReceiveUndoDelete(mock, undo2, admin); err != nil {
		t.Fatalf("Local admin restore failed: %v", err)
	}
	if community.Removed {
		t.Error("Expected community to be restored")
	}
}

func TestDeletePersonWithRemoveData(t *testing.T) {
	mock := NewMockDatabase()
	community := testCommunity(false)
	person := testPerson("alice")
	post := testPost(person, community)
	mock.AddCommunity(community)
	mock.AddPerson(person)
	mock.AddPost(post)

	removeData := true
	activity := &domain.Activity{
		Id:         "https://remote.example/activities/" + uuid.New().String(),
		Type:       "Delete",
		Actor:      person.ActorURI,
		Object:     person.ActorURI,
		RemoveData: &removeData,
	}
	if err := ReceiveDelete(mock, activity, person); err != nil {
		t.Fatalf("ReceiveDelete failed: %v", err)
	}
	if !person.Deleted {
		t.Error("Expected person to be deleted")
	}
	if !post.Removed {
		t.Error("removeData must purge the person's posts")
	}
}

func TestReceiveDeleteUnknownObject(t *testing.T) {
	mock := NewMockDatabase()
	person := testPerson("alice")
	mock.AddPerson(person)

	activity := &domain.Activity{
		Id:     "https://remote.example/activities/" + uuid.New().String(),
		Type:   "Delete",
		Actor:  person.ActorURI,
		Object: "https://remote.example/post/unknown",
	}
	err := ReceiveDelete(mock, activity, person)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected not-found, got %v", err)
	}
}
