package activitypub

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lemurforge/lemur/domain"
)

// ObjectKind enumerates the content kinds an activity can target.
type ObjectKind string

const (
	ObjectCommunity      ObjectKind = "community"
	ObjectPost           ObjectKind = "post"
	ObjectComment        ObjectKind = "comment"
	ObjectPrivateMessage ObjectKind = "private_message"
	ObjectPerson         ObjectKind = "person"
)

// DeletableObject is the result of resolving an object URI against local
// storage. Exactly one of the pointers is set, matching Kind.
type DeletableObject struct {
	Kind           ObjectKind
	Community      *domain.Community
	Post           *domain.Post
	Comment        *domain.Comment
	PrivateMessage *domain.PrivateMessage
	Person         *domain.Person
}

// URI returns the object URI of whichever kind is set.
func (o *DeletableObject) URI() string {
	switch o.Kind {
	case ObjectCommunity:
		return o.Community.ActorURI
	case ObjectPost:
		return o.Post.ObjectURI
	case ObjectComment:
		return o.Comment.ObjectURI
	case ObjectPrivateMessage:
		return o.PrivateMessage.ObjectURI
	case ObjectPerson:
		return o.Person.ActorURI
	}
	return ""
}

// ExtractObjectURI pulls the object id out of an activity's object field,
// which may be a bare string, a Tombstone, or any embedded object with an
// id.
func ExtractObjectURI(obj any) (string, error) {
	switch v := obj.(type) {
	case string:
		if v == "" {
			return "", fmt.Errorf("empty object uri")
		}
		return v, nil
	case map[string]any:
		if id, ok := v["id"].(string); ok && id != "" {
			return id, nil
		}
		return "", fmt.Errorf("embedded object has no id")
	case nil:
		return "", fmt.Errorf("activity has no object")
	default:
		// Round-trip through json for decoded struct types
		raw, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		var probe struct {
			Id string `json:"id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil || probe.Id == "" {
			return "", fmt.Errorf("cannot extract object id")
		}
		return probe.Id, nil
	}
}

// ResolveObjectByURI looks the URI up across all content kinds, most
// specific actor types last: community, post, comment, private message,
// person. Returns ErrNotFound when nothing matches.
func ResolveObjectByURI(database Database, objectURI string) (error, *DeletableObject) {
	err, community := database.ReadCommunityByActorURI(objectURI)
	if err == nil && community != nil {
		return nil, &DeletableObject{Kind: ObjectCommunity, Community: community}
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err, nil
	}

	err, post := database.ReadPostByURI(objectURI)
	if err == nil && post != nil {
		return nil, &DeletableObject{Kind: ObjectPost, Post: post}
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err, nil
	}

	err, comment := database.ReadCommentByURI(objectURI)
	if err == nil && comment != nil {
		return nil, &DeletableObject{Kind: ObjectComment, Comment: comment}
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err, nil
	}

	err, pm := database.ReadPrivateMessageByURI(objectURI)
	if err == nil && pm != nil {
		return nil, &DeletableObject{Kind: ObjectPrivateMessage, PrivateMessage: pm}
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err, nil
	}

	err, person := database.ReadPersonByActorURI(objectURI)
	if err == nil && person != nil {
		return nil, &DeletableObject{Kind: ObjectPerson, Person: person}
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err, nil
	}

	return ErrNotFound, nil
}

// OwningCommunity returns the community an object lives in. Communities
// own themselves; private messages and persons have none.
func OwningCommunity(database Database, obj *DeletableObject) (error, *domain.Community) {
	switch obj.Kind {
	case ObjectCommunity:
		return nil, obj.Community
	case ObjectPost:
		return database.ReadCommunityById(obj.Post.CommunityId)
	case ObjectComment:
		err, post := database.ReadPostById(obj.Comment.PostId)
		if err != nil {
			return err, nil
		}
		return database.ReadCommunityById(post.CommunityId)
	}
	return nil, nil
}
