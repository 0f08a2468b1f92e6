package web

import (
	"encoding/json"
	"fmt"

	"github.com/lemurforge/lemur/db"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

var actorContext = []string{
	"https://www.w3.org/ns/activitystreams",
	"https://w3id.org/security/v1",
}

// GetPersonActor renders a local person as an ActivityPub Person document.
func GetPersonActor(username string, conf *util.AppConfig) (error, string) {
	err, person := db.GetDB().ReadLocalPersonByUsername(username)
	if err != nil {
		return err, "{}"
	}
	if person.Deleted {
		return fmt.Errorf("person %s is deleted", username), "{}"
	}

	actorURI := fmt.Sprintf("https://%s/u/%s", conf.Conf.SslDomain, person.Username)
	actor := domain.Actor{
		Context:           actorContext,
		Id:                actorURI,
		Type:              "Person",
		PreferredUsername: person.Username,
		Name:              person.DisplayName,
		Summary:           person.Bio,
		Inbox:             actorURI + "/inbox",
		Outbox:            actorURI + "/outbox",
		Endpoints: &domain.Endpoints{
			SharedInbox: fmt.Sprintf("https://%s/inbox", conf.Conf.SslDomain),
		},
		PublicKey: &domain.PublicKey{
			Id:           actorURI + "#main-key",
			Owner:        actorURI,
			PublicKeyPem: person.PublicKeyPem,
		},
	}
	if person.AvatarURL != "" {
		actor.Icon = &domain.MediaLink{Type: "Image", URL: person.AvatarURL}
	}

	raw, err := json.Marshal(actor)
	if err != nil {
		return err, "{}"
	}
	return nil, string(raw)
}

// GetCommunityActor renders a local community as a Group document.
func GetCommunityActor(name string, conf *util.AppConfig) (error, string) {
	err, community := db.GetDB().ReadCommunityByName(name)
	if err != nil {
		return err, "{}"
	}
	if community.Deleted || community.Removed {
		return fmt.Errorf("community %s is deleted or removed", name), "{}"
	}
	if community.Visibility == domain.CommunityVisibilityLocalOnly {
		return fmt.Errorf("community %s is local only", name), "{}"
	}

	actorURI := fmt.Sprintf("https://%s/c/%s", conf.Conf.SslDomain, community.Name)
	actor := domain.Actor{
		Context:           actorContext,
		Id:                actorURI,
		Type:              "Group",
		PreferredUsername: community.Name,
		Name:              community.Title,
		Summary:           community.Description,
		Inbox:             actorURI + "/inbox",
		Outbox:            actorURI + "/outbox",
		Followers:         actorURI + "/followers",
		Endpoints: &domain.Endpoints{
			SharedInbox: fmt.Sprintf("https://%s/inbox", conf.Conf.SslDomain),
		},
		PublicKey: &domain.PublicKey{
			Id:           actorURI + "#main-key",
			Owner:        actorURI,
			PublicKeyPem: community.PublicKeyPem,
		},
	}
	if community.IconURL != "" {
		actor.Icon = &domain.MediaLink{Type: "Image", URL: community.IconURL}
	}
	if community.BannerURL != "" {
		actor.Image = &domain.MediaLink{Type: "Image", URL: community.BannerURL}
	}

	raw, err := json.Marshal(actor)
	if err != nil {
		return err, "{}"
	}
	return nil, string(raw)
}
