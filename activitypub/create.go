package activitypub

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// ReceiveCreate stores an inbound post, comment or private message. The
// object type picks the path: Page is a post, Note is a comment when it
// replies to something and a private message when addressed to a person.
func ReceiveCreate(database Database, client HTTPClient, conf *util.AppConfig, activity *domain.Activity, actor *domain.Person) error {
	raw, err := json.Marshal(activity.Object)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}

	switch probe.Type {
	case "Page", "Article":
		var page domain.PageObject
		if err := json.Unmarshal(raw, &page); err != nil {
			return fmt.Errorf("%w: %v", ErrVerification, err)
		}
		return receiveCreatePost(database, client, activity, actor, &page)
	case "Note", "ChatMessage":
		var note domain.NoteObject
		if err := json.Unmarshal(raw, &note); err != nil {
			return fmt.Errorf("%w: %v", ErrVerification, err)
		}
		if note.InReplyTo != "" {
			return receiveCreateComment(database, activity, actor, &note)
		}
		return receiveCreatePrivateMessage(database, conf, activity, actor, &note)
	}
	return fmt.Errorf("%w: unsupported object type %q", ErrVerification, probe.Type)
}

func receiveCreatePost(database Database, client HTTPClient, activity *domain.Activity, actor *domain.Person, page *domain.PageObject) error {
	if page.Id == "" || page.AttributedTo == "" {
		return fmt.Errorf("%w: page missing id or attributedTo", ErrVerification)
	}
	if page.AttributedTo != actor.ActorURI {
		return fmt.Errorf("%w: page creator %s does not match actor", ErrVerification, page.AttributedTo)
	}

	communityURI := activity.Audience
	if communityURI == "" {
		communityURI = page.Audience
	}
	if communityURI == "" {
		return fmt.Errorf("%w: page has no community audience", ErrVerification)
	}
	err, community := GetOrFetchCommunity(database, client, communityURI)
	if err != nil || community == nil {
		return ErrNotFound
	}

	if err := VerifyVisibility(activity, community); err != nil {
		return err
	}
	if err := VerifyPersonInCommunity(database, actor, community); err != nil {
		return err
	}
	if community.PostingRestrictedToMods {
		if err := VerifyModAction(database, actor, community); err != nil {
			return err
		}
	}

	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}

	// Duplicate object: already stored, nothing to do.
	if err, existing := database.ReadPostByURI(page.Id); err == nil && existing != nil {
		return nil
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	body := page.Content
	if page.Source != nil && page.Source.Content != "" {
		body = page.Source.Content
	}
	// Link posts only keep the URL when it actually is one.
	url := page.URL
	if !util.IsURL(url) {
		url = ""
	}
	post := &domain.Post{
		Id:          uuid.New(),
		CreatorId:   actor.Id,
		CommunityId: community.Id,
		ObjectURI:   page.Id,
		Title:       util.NormalizeInput(page.Name),
		URL:         url,
		Body:        body,
		CreatedAt:   time.Now(),
	}
	log.Printf("Inbox: storing post %s in community %s", page.Id, community.Name)
	return database.CreatePost(post)
}

func receiveCreateComment(database Database, activity *domain.Activity, actor *domain.Person, note *domain.NoteObject) error {
	if note.Id == "" || note.AttributedTo == "" {
		return fmt.Errorf("%w: note missing id or attributedTo", ErrVerification)
	}
	if note.AttributedTo != actor.ActorURI {
		return fmt.Errorf("%w: note creator %s does not match actor", ErrVerification, note.AttributedTo)
	}

	// The parent is either a post or another comment; either way the
	// thread roots at a known post.
	var post *domain.Post
	err, parentPost := database.ReadPostByURI(note.InReplyTo)
	if err == nil && parentPost != nil {
		post = parentPost
	} else {
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		err, parentComment := database.ReadCommentByURI(note.InReplyTo)
		if err != nil || parentComment == nil {
			return ErrNotFound
		}
		err, post = database.ReadPostById(parentComment.PostId)
		if err != nil || post == nil {
			return ErrNotFound
		}
	}

	err, community := database.ReadCommunityById(post.CommunityId)
	if err != nil || community == nil {
		return ErrNotFound
	}
	if err := VerifyVisibility(activity, community); err != nil {
		return err
	}
	if err := VerifyPersonInCommunity(database, actor, community); err != nil {
		return err
	}

	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}

	if err, existing := database.ReadCommentByURI(note.Id); err == nil && existing != nil {
		return nil
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	content := note.Content
	if note.Source != nil && note.Source.Content != "" {
		content = note.Source.Content
	}
	comment := &domain.Comment{
		Id:        uuid.New(),
		CreatorId: actor.Id,
		PostId:    post.Id,
		ParentURI: note.InReplyTo,
		ObjectURI: note.Id,
		Content:   content,
		CreatedAt: time.Now(),
	}
	log.Printf("Inbox: storing comment %s on post %s", note.Id, post.ObjectURI)
	return database.CreateComment(comment)
}

func receiveCreatePrivateMessage(database Database, conf *util.AppConfig, activity *domain.Activity, actor *domain.Person, note *domain.NoteObject) error {
	if note.Id == "" || len(note.To) == 0 {
		return fmt.Errorf("%w: private message missing id or recipient", ErrVerification)
	}
	if note.AttributedTo != actor.ActorURI {
		return fmt.Errorf("%w: message creator %s does not match actor", ErrVerification, note.AttributedTo)
	}

	// Private messages must address a local person, never the public
	// collection.
	if IsPublicAudience(note.To) {
		return fmt.Errorf("%w: private message addressed to public", ErrVerification)
	}
	var recipient *domain.Person
	for _, to := range note.To {
		if !IsLocalURI(conf, to) {
			continue
		}
		err, person := database.ReadPersonByActorURI(to)
		if err == nil && person != nil {
			recipient = person
			break
		}
	}
	if recipient == nil {
		return ErrNotFound
	}

	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}

	if err, existing := database.ReadPrivateMessageByURI(note.Id); err == nil && existing != nil {
		return nil
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	content := note.Content
	if note.Source != nil && note.Source.Content != "" {
		content = note.Source.Content
	}
	pm := &domain.PrivateMessage{
		Id:          uuid.New(),
		CreatorId:   actor.Id,
		RecipientId: recipient.Id,
		ObjectURI:   note.Id,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	log.Printf("Inbox: storing private message %s for %s", note.Id, recipient.Username)
	return database.CreatePrivateMessage(pm)
}
