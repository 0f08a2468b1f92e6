package web

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/db"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// GetPostObject renders a local post as its ActivityPub Page document.
// Deleted or removed posts serve a Tombstone instead.
func GetPostObject(id uuid.UUID, conf *util.AppConfig) (error, string) {
	database := db.GetDB()

	err, post := database.ReadPostById(id)
	if err != nil {
		return err, "{}"
	}

	if post.Deleted || post.Removed {
		return nil, marshalObject(domain.Tombstone{Type: "Tombstone", Id: post.ObjectURI})
	}

	err, creator := database.ReadPersonById(post.CreatorId)
	if err != nil {
		return err, "{}"
	}
	err, community := database.ReadCommunityById(post.CommunityId)
	if err != nil {
		return err, "{}"
	}

	page := domain.PageObject{
		Id:           post.ObjectURI,
		Type:         "Page",
		AttributedTo: creator.ActorURI,
		Name:         post.Title,
		URL:          post.URL,
		Content:      util.MarkdownLinksToHTML(post.Body),
		Audience:     community.ActorURI,
		Published:    post.CreatedAt.Format(util.DateTimeFormat()),
	}
	if post.Body != "" {
		page.Source = &domain.SourceText{Content: post.Body, MediaType: "text/markdown"}
	}
	return nil, marshalObject(page)
}

// GetCommentObject renders a local comment as a Note document.
func GetCommentObject(id uuid.UUID, conf *util.AppConfig) (error, string) {
	database := db.GetDB()

	err, comment := database.ReadCommentById(id)
	if err != nil {
		return err, "{}"
	}

	if comment.Deleted || comment.Removed {
		return nil, marshalObject(domain.Tombstone{Type: "Tombstone", Id: comment.ObjectURI})
	}

	err, creator := database.ReadPersonById(comment.CreatorId)
	if err != nil {
		return err, "{}"
	}

	inReplyTo := comment.ParentURI
	if inReplyTo == "" {
		err, post := database.ReadPostById(comment.PostId)
		if err != nil {
			return err, "{}"
		}
		inReplyTo = post.ObjectURI
	}

	note := domain.NoteObject{
		Id:           comment.ObjectURI,
		Type:         "Note",
		AttributedTo: creator.ActorURI,
		InReplyTo:    inReplyTo,
		Content:      util.MarkdownLinksToHTML(comment.Content),
		Published:    comment.CreatedAt.Format(util.DateTimeFormat()),
	}
	if comment.Content != "" {
		note.Source = &domain.SourceText{Content: comment.Content, MediaType: "text/markdown"}
	}
	return nil, marshalObject(note)
}

// marshalObject serializes an object with the activitystreams context
// spliced in front of its own fields.
func marshalObject(v any) string {
	raw, err := json.Marshal(v)
	if err != nil || len(raw) < 2 || raw[0] != '{' {
		return "{}"
	}
	prefix := fmt.Sprintf(`{"@context":%q,`, domain.ActivityContext)
	return prefix + string(raw[1:])
}
