package activitypub

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
)

// Verification checks. All of these are pure reads: they either return nil
// or an error wrapping ErrVerification, and never mutate state. Callers run
// them before the ledger insert and before any flag changes.

// VerifyVisibility checks that the activity's declared audience is
// compatible with the community's visibility.
func VerifyVisibility(activity *domain.Activity, community *domain.Community) error {
	if community.Visibility == domain.CommunityVisibilityLocalOnly {
		return fmt.Errorf("%w: community %s is local only", ErrVerification, community.Name)
	}
	if community.Removed || community.Deleted {
		return fmt.Errorf("%w: community %s is deleted or removed", ErrVerification, community.Name)
	}
	if community.Visibility == domain.CommunityVisibilityPublic {
		if !IsPublicAudience(activity.To) && !IsPublicAudience(activity.Cc) {
			return fmt.Errorf("%w: activity %s not addressed to public", ErrVerification, activity.Id)
		}
	}
	return nil
}

// VerifyPersonInCommunity checks that the actor may interact with the
// community at all.
func VerifyPersonInCommunity(database Database, person *domain.Person, community *domain.Community) error {
	if person.Deleted {
		return fmt.Errorf("%w: actor %s is deleted", ErrVerification, person.ActorURI)
	}
	if community.Visibility == domain.CommunityVisibilityRestricted {
		err, follower := database.ReadCommunityFollower(community.Id, person.Id)
		if err != nil || follower == nil || follower.Pending {
			isMod, modErr := database.IsCommunityModerator(community.Id, person.Id)
			if modErr != nil || !isMod {
				return fmt.Errorf("%w: actor %s is not a member of %s", ErrVerification, person.ActorURI, community.Name)
			}
		}
	}
	return nil
}

// VerifyModAction checks moderator or admin authority over the community.
func VerifyModAction(database Database, person *domain.Person, community *domain.Community) error {
	if person.Admin && person.Local {
		return nil
	}
	isMod, err := database.IsCommunityModerator(community.Id, person.Id)
	if err != nil {
		return err
	}
	if !isMod {
		return fmt.Errorf("%w: actor %s is not a moderator of %s", ErrVerification, person.ActorURI, community.Name)
	}
	return nil
}

// VerifySelfAction checks that the actor is the content's creator.
func VerifySelfAction(person *domain.Person, creatorId uuid.UUID) error {
	if person.Id != creatorId {
		return fmt.Errorf("%w: actor %s is not the creator", ErrVerification, person.ActorURI)
	}
	return nil
}

// VerifyObjectIdentity checks that an embedded object snapshot claims the
// identity of the entity being updated.
func VerifyObjectIdentity(embeddedId, expectedURI string) error {
	if embeddedId != expectedURI {
		return fmt.Errorf("%w: embedded object id %s does not match %s", ErrVerification, embeddedId, expectedURI)
	}
	return nil
}

// VerifyActivityActor checks that the envelope's actor field matches the
// signature-verified actor URI.
func VerifyActivityActor(activity *domain.Activity, verifiedActorURI string) error {
	if activity.Actor != verifiedActorURI {
		return fmt.Errorf("%w: activity actor %s does not match signing key owner %s", ErrVerification, activity.Actor, verifiedActorURI)
	}
	return nil
}
