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

// ReceiveFollow handles a remote person following a local community. The
// follower row is stored and an Accept is queued back to the follower's
// inbox.
func ReceiveFollow(database Database, conf *util.AppConfig, activity *domain.Activity, actor *domain.Person) error {
	targetURI, err := ExtractObjectURI(activity.Object)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if !IsLocalURI(conf, targetURI) {
		return fmt.Errorf("%w: follow target %s is not local", ErrVerification, targetURI)
	}

	err, community := database.ReadCommunityByActorURI(targetURI)
	if err != nil || community == nil {
		return ErrNotFound
	}
	if community.Visibility == domain.CommunityVisibilityLocalOnly {
		return fmt.Errorf("%w: community %s is local only", ErrVerification, community.Name)
	}
	if community.Deleted || community.Removed {
		return fmt.Errorf("%w: community %s is deleted or removed", ErrVerification, community.Name)
	}

	// Restricted communities hold follows pending until a moderator
	// approves; public ones accept immediately.
	pending := community.Visibility == domain.CommunityVisibilityRestricted

	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}

	err, existing := database.ReadCommunityFollower(community.Id, actor.Id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if existing == nil {
		follower := &domain.CommunityFollower{
			Id:          uuid.New(),
			CommunityId: community.Id,
			PersonId:    actor.Id,
			URI:         activity.Id,
			Pending:     pending,
			CreatedAt:   time.Now(),
		}
		if err := database.CreateCommunityFollower(follower); err != nil {
			return err
		}
	}

	if !pending {
		accept := NewAccept(conf, community, activity)
		if err := EnqueueActivity(database, accept, []string{actor.BestInboxURI()}); err != nil {
			log.Printf("Inbox: failed to queue accept for %s: %v", actor.ActorURI, err)
		}
	}
	return nil
}

// ReceiveAccept marks an outgoing community follow as accepted.
func ReceiveAccept(database Database, activity *domain.Activity) error {
	inner, err := innerFollow(activity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if inner.Object != activity.Actor {
		return fmt.Errorf("%w: accept actor %s is not the follow target", ErrVerification, activity.Actor)
	}
	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}
	return database.AcceptCommunityFollowerByURI(inner.Id)
}

// ReceiveUndoFollow removes the follower relationship the wrapped Follow
// created.
func ReceiveUndoFollow(database Database, activity *domain.Activity, actor *domain.Person) error {
	inner, err := innerFollow(activity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if inner.Actor != actor.ActorURI {
		return fmt.Errorf("%w: undo actor %s did not create the follow", ErrVerification, actor.ActorURI)
	}
	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}
	return database.DeleteCommunityFollowerByURI(inner.Id)
}

func innerFollow(activity *domain.Activity) (*domain.FollowObject, error) {
	raw, err := json.Marshal(activity.Object)
	if err != nil {
		return nil, err
	}
	var inner domain.FollowObject
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	if inner.Type != "Follow" || inner.Id == "" {
		return nil, fmt.Errorf("expected wrapped Follow with id")
	}
	return &inner, nil
}

// NewFollow builds an outbound Follow from a local person to a remote
// community.
func NewFollow(conf *util.AppConfig, actor *domain.Person, community *domain.Community) *domain.Activity {
	return &domain.Activity{
		Context: domain.ActivityContext,
		Id:      GenerateActivityID(conf),
		Type:    "Follow",
		Actor:   actor.ActorURI,
		Object:  community.ActorURI,
		To:      []string{community.ActorURI},
	}
}

// NewAccept builds the Accept a community answers a Follow with.
func NewAccept(conf *util.AppConfig, community *domain.Community, follow *domain.Activity) *domain.Activity {
	return &domain.Activity{
		Context: domain.ActivityContext,
		Id:      GenerateActivityID(conf),
		Type:    "Accept",
		Actor:   community.ActorURI,
		Object: &domain.FollowObject{
			Id:     follow.Id,
			Type:   "Follow",
			Actor:  follow.Actor,
			Object: community.ActorURI,
		},
		To: []string{follow.Actor},
	}
}
