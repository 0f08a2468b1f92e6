package activitypub

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// Delete/Undo state machine. Every content kind carries two independent
// flags: deleted (creator self-action) and removed (moderator action,
// discriminated by the presence of summary on the envelope). Restoration
// clears only the axis the original activity set.

// ReceiveDelete applies an inbound Delete activity.
func ReceiveDelete(database Database, activity *domain.Activity, actor *domain.Person) error {
	objectURI, err := ExtractObjectURI(activity.Object)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}

	err, obj := ResolveObjectByURI(database, objectURI)
	if err != nil {
		return err
	}

	isRemoval := activity.Summary != nil

	if err := verifyDeleteAuthority(database, activity, actor, obj, isRemoval); err != nil {
		return err
	}

	// Ledger insert sits between verification and mutation: rejected
	// activities leave no trace, and of two concurrent duplicates only the
	// insert winner mutates.
	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}

	return applyDelete(database, activity, actor, obj, isRemoval, true)
}

// ReceiveUndoDelete applies an inbound Undo wrapping a Delete, restoring
// the axis the wrapped activity set.
func ReceiveUndoDelete(database Database, undo *domain.Activity, actor *domain.Person) error {
	inner, err := innerDelete(undo)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}

	objectURI, err := ExtractObjectURI(inner.Object)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}

	err, obj := ResolveObjectByURI(database, objectURI)
	if err != nil {
		return err
	}

	// Restoration of private messages and person accounts over federation
	// is not implemented; callers must see NotFound, never silent success.
	if obj.Kind == ObjectPrivateMessage || obj.Kind == ObjectPerson {
		return fmt.Errorf("%w: undo delete for %s", ErrNotFound, obj.Kind)
	}

	isRemoval := inner.Summary != nil

	// A local community may only be restored by a local admin: a remote
	// moderator's authority does not extend to reversing local removals.
	if obj.Kind == ObjectCommunity && isRemoval && obj.Community.Local {
		if !actor.Local || !actor.Admin {
			return ErrLocalCommunityRestore
		}
	}

	if err := verifyDeleteAuthority(database, inner, actor, obj, isRemoval); err != nil {
		return err
	}

	if err := database.InsertReceivedActivity(undo.Id); err != nil {
		return err
	}

	return applyDelete(database, undo, actor, obj, isRemoval, false)
}

// verifyDeleteAuthority runs the verification pipeline for a Delete or its
// Undo: audience, membership, then mod-or-creator authority.
func verifyDeleteAuthority(database Database, activity *domain.Activity, actor *domain.Person, obj *DeletableObject, isRemoval bool) error {
	err, community := OwningCommunity(database, obj)
	if err != nil {
		return err
	}

	if community != nil && obj.Kind != ObjectCommunity {
		// The owning community of a post or comment still gates the
		// activity even when it is itself the implicit audience.
		if err := VerifyVisibility(activity, community); err != nil {
			return err
		}
	}
	if community != nil && obj.Kind == ObjectCommunity {
		if community.Visibility == domain.CommunityVisibilityLocalOnly {
			return fmt.Errorf("%w: community %s is local only", ErrVerification, community.Name)
		}
	}
	if community != nil {
		if err := VerifyPersonInCommunity(database, actor, community); err != nil {
			return err
		}
	}

	if isRemoval {
		switch obj.Kind {
		case ObjectPrivateMessage:
			return fmt.Errorf("%w: private messages cannot be removed by moderators", ErrVerification)
		case ObjectPerson:
			if !actor.Admin {
				return fmt.Errorf("%w: actor %s is not an admin", ErrVerification, actor.ActorURI)
			}
			return nil
		default:
			return VerifyModAction(database, actor, community)
		}
	}

	switch obj.Kind {
	case ObjectCommunity:
		// Self-deletion of a community is done by its top moderator.
		return VerifyModAction(database, actor, obj.Community)
	case ObjectPost:
		return VerifySelfAction(actor, obj.Post.CreatorId)
	case ObjectComment:
		return VerifySelfAction(actor, obj.Comment.CreatorId)
	case ObjectPrivateMessage:
		return VerifySelfAction(actor, obj.PrivateMessage.CreatorId)
	case ObjectPerson:
		return VerifySelfAction(actor, obj.Person.Id)
	}
	return fmt.Errorf("%w: unknown object kind", ErrVerification)
}

// applyDelete flips the axis picked by the discriminator. newValue is true
// for Delete, false for Undo.
func applyDelete(database Database, activity *domain.Activity, actor *domain.Person, obj *DeletableObject, isRemoval, newValue bool) error {
	var entry *domain.ModLogEntry
	if isRemoval {
		entry = modLogEntryFor(activity, actor, obj, newValue)
	}

	switch obj.Kind {
	case ObjectCommunity:
		if isRemoval {
			return database.UpdateCommunityRemoved(obj.Community.Id, newValue, entry)
		}
		return database.UpdateCommunityDeleted(obj.Community.Id, newValue)
	case ObjectPost:
		if isRemoval {
			return database.UpdatePostRemoved(obj.Post.Id, newValue, entry)
		}
		return database.UpdatePostDeleted(obj.Post.Id, newValue)
	case ObjectComment:
		if isRemoval {
			return database.UpdateCommentRemoved(obj.Comment.Id, newValue, entry)
		}
		return database.UpdateCommentDeleted(obj.Comment.Id, newValue)
	case ObjectPrivateMessage:
		return database.UpdatePrivateMessageDeleted(obj.PrivateMessage.Id, newValue)
	case ObjectPerson:
		removeData := activity.RemoveData != nil && *activity.RemoveData
		log.Printf("Inbox: deleting person account %s (removeData=%v)", obj.Person.ActorURI, removeData)
		return database.DeletePersonAccount(obj.Person.Id, removeData, entry)
	}
	return fmt.Errorf("%w: unknown object kind", ErrVerification)
}

func modLogEntryFor(activity *domain.Activity, actor *domain.Person, obj *DeletableObject, removed bool) *domain.ModLogEntry {
	var action string
	switch obj.Kind {
	case ObjectCommunity:
		action = domain.ModLogRemoveCommunity
	case ObjectPost:
		action = domain.ModLogRemovePost
	case ObjectComment:
		action = domain.ModLogRemoveComment
	case ObjectPerson:
		action = domain.ModLogRemovePerson
	default:
		return nil
	}
	// Restores never carry a reason, even when the envelope repeats the
	// removal's summary.
	reason := ""
	if removed && activity.Summary != nil {
		reason = *activity.Summary
	}
	return &domain.ModLogEntry{
		Id:          uuid.New(),
		ModPersonId: actor.Id,
		TargetURI:   obj.URI(),
		Action:      action,
		Reason:      reason,
		Removed:     removed,
		CreatedAt:   time.Now(),
	}
}

// innerDelete decodes the wrapped Delete out of an Undo envelope.
func innerDelete(undo *domain.Activity) (*domain.Activity, error) {
	raw, err := json.Marshal(undo.Object)
	if err != nil {
		return nil, err
	}
	var inner domain.Activity
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	if inner.Type != "Delete" {
		return nil, fmt.Errorf("undo wraps %q, expected Delete", inner.Type)
	}
	return &inner, nil
}

// NewDelete builds an outbound Delete activity wrapping a tombstone for
// the object. A non-nil reason marks it as a moderator removal.
func NewDelete(conf *util.AppConfig, actor *domain.Person, obj *DeletableObject, community *domain.Community, reason *string) *domain.Activity {
	return &domain.Activity{
		Context: domain.ActivityContext,
		Id:      GenerateActivityID(conf),
		Type:    "Delete",
		Actor:   actor.ActorURI,
		Object:  domain.Tombstone{Type: "Tombstone", Id: obj.URI()},
		To:      GenerateTo(community),
		Cc:      []string{},
		Summary: reason,
	}
}

// NewUndoDelete builds an outbound Undo wrapping the Delete that is being
// reversed.
func NewUndoDelete(conf *util.AppConfig, actor *domain.Person, obj *DeletableObject, community *domain.Community, reason *string) *domain.Activity {
	inner := NewDelete(conf, actor, obj, community, reason)
	inner.Context = nil
	return &domain.Activity{
		Context: domain.ActivityContext,
		Id:      GenerateActivityID(conf),
		Type:    "Undo",
		Actor:   actor.ActorURI,
		Object:  inner,
		To:      GenerateTo(community),
		Cc:      []string{},
		Summary: reason,
	}
}
