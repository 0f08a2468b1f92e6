package activitypub

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// ReceiveUpdateCommunity maps a remote Group snapshot onto a partial
// update of the local community record. Fields absent from the snapshot
// keep their stored values; only present fields overwrite.
func ReceiveUpdateCommunity(database Database, client HTTPClient, activity *domain.Activity, actor *domain.Person) error {
	group, err := decodeGroupObject(activity.Object)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}

	err, community := database.ReadCommunityByActorURI(group.Id)
	if err != nil || community == nil {
		// Not cached yet: one on-demand fetch before giving up.
		err, community = GetOrFetchCommunity(database, client, group.Id)
		if err != nil || community == nil {
			return ErrNotFound
		}
	}

	if err := VerifyObjectIdentity(group.Id, community.ActorURI); err != nil {
		return err
	}
	if err := VerifyVisibility(activity, community); err != nil {
		return err
	}
	if err := VerifyPersonInCommunity(database, actor, community); err != nil {
		return err
	}
	if err := VerifyModAction(database, actor, community); err != nil {
		return err
	}

	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}

	form := communityUpdateForm(group)
	return database.UpdateCommunityPartial(community.Id, form)
}

// communityUpdateForm translates the wire snapshot into the pointer-field
// form. The markdown source wins over pre-rendered summary text when both
// are present.
func communityUpdateForm(group *domain.GroupObject) *domain.CommunityUpdateForm {
	form := &domain.CommunityUpdateForm{}

	form.Title = group.Name
	if group.Source != nil && group.Source.Content != "" {
		form.Description = &group.Source.Content
	} else if group.Summary != nil {
		form.Description = group.Summary
	}
	if group.Icon != nil {
		form.IconURL = &group.Icon.URL
	}
	if group.Image != nil {
		form.BannerURL = &group.Image.URL
	}
	form.Nsfw = group.Sensitive
	form.PostingRestrictedToMods = group.PostingRestrictedToMods
	if group.PublicKey != nil && group.PublicKey.PublicKeyPem != "" {
		form.PublicKeyPem = &group.PublicKey.PublicKeyPem
	}
	if group.Inbox != nil {
		form.InboxURI = group.Inbox
	}
	if group.Endpoints != nil && group.Endpoints.SharedInbox != "" {
		form.SharedInboxURI = &group.Endpoints.SharedInbox
	}
	form.FollowersURI = group.Followers

	// Stamped on every successful update, whether or not anything changed.
	now := time.Now()
	form.LastRefreshedAt = &now

	return form
}

// ReceiveUpdatePerson refreshes a cached remote person from the embedded
// actor snapshot. Only the actor may update their own profile.
func ReceiveUpdatePerson(database Database, activity *domain.Activity, actor *domain.Person) error {
	raw, err := json.Marshal(activity.Object)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	var snapshot domain.Actor
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if snapshot.Id == "" {
		return fmt.Errorf("%w: person snapshot has no id", ErrVerification)
	}
	if err := VerifyObjectIdentity(snapshot.Id, actor.ActorURI); err != nil {
		return err
	}

	if err := database.InsertReceivedActivity(activity.Id); err != nil {
		return err
	}

	updated := *actor
	if snapshot.Name != "" {
		updated.DisplayName = snapshot.Name
	}
	if snapshot.Summary != "" {
		updated.Bio = snapshot.Summary
	}
	if snapshot.Inbox != "" {
		updated.InboxURI = snapshot.Inbox
	}
	if snapshot.Endpoints != nil && snapshot.Endpoints.SharedInbox != "" {
		updated.SharedInboxURI = snapshot.Endpoints.SharedInbox
	}
	if snapshot.PublicKey != nil && snapshot.PublicKey.PublicKeyPem != "" {
		updated.PublicKeyPem = snapshot.PublicKey.PublicKeyPem
	}
	if snapshot.Icon != nil {
		updated.AvatarURL = snapshot.Icon.URL
	}
	updated.LastFetchedAt = time.Now()

	return database.UpdatePerson(&updated)
}

func decodeGroupObject(obj any) (*domain.GroupObject, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var group domain.GroupObject
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, err
	}
	if group.Id == "" {
		return nil, fmt.Errorf("group snapshot has no id")
	}
	if group.Type != "" && group.Type != "Group" {
		return nil, fmt.Errorf("update object is %q, expected Group", group.Type)
	}
	return &group, nil
}

// NewUpdateCommunity snapshots the local community into its wire shape and
// wraps it in an Update addressed to the community's audience. Callers
// broadcast it to all known instances so every linked peer converges.
func NewUpdateCommunity(conf *util.AppConfig, actor *domain.Person, community *domain.Community) *domain.Activity {
	group := &domain.GroupObject{
		Id:                community.ActorURI,
		Type:              "Group",
		PreferredUsername: community.Name,
	}
	if community.Title != "" {
		group.Name = &community.Title
	}
	if community.Description != "" {
		group.Summary = &community.Description
		group.Source = &domain.SourceText{Content: community.Description, MediaType: "text/markdown"}
	}
	if community.IconURL != "" {
		group.Icon = &domain.MediaLink{Type: "Image", URL: community.IconURL}
	}
	if community.BannerURL != "" {
		group.Image = &domain.MediaLink{Type: "Image", URL: community.BannerURL}
	}
	group.Sensitive = &community.Nsfw
	group.PostingRestrictedToMods = &community.PostingRestrictedToMods
	group.Inbox = &community.InboxURI
	if community.SharedInboxURI != "" {
		group.Endpoints = &domain.Endpoints{SharedInbox: community.SharedInboxURI}
	}
	if community.FollowersURI != "" {
		group.Followers = &community.FollowersURI
	}
	if community.PublicKeyPem != "" {
		group.PublicKey = &domain.PublicKey{
			Id:           community.ActorURI + "#main-key",
			Owner:        community.ActorURI,
			PublicKeyPem: community.PublicKeyPem,
		}
	}

	return &domain.Activity{
		Context: domain.ActivityContext,
		Id:      GenerateActivityID(conf),
		Type:    "Update",
		Actor:   actor.ActorURI,
		Object:  group,
		To:      GenerateTo(community),
		Cc:      []string{community.ActorURI},
	}
}
