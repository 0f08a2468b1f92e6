package activitypub

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// actorCacheMaxAge is how long a cached remote actor stays fresh before a
// re-fetch.
const actorCacheMaxAge = 24 * time.Hour

// FetchActorDocument dereferences an actor URI with the ActivityPub
// content type.
func FetchActorDocument(client HTTPClient, actorURI string) (*domain.Actor, error) {
	req, err := http.NewRequest(http.MethodGet, actorURI, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/activity+json")
	req.Header.Set("User-Agent", util.GetNameAndVersion())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch actor %s: %w", actorURI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("actor fetch %s returned status %d", actorURI, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, err
	}

	var actor domain.Actor
	if err := json.Unmarshal(body, &actor); err != nil {
		return nil, fmt.Errorf("failed to parse actor document: %w", err)
	}
	if actor.Id == "" || actor.PublicKey == nil || actor.PublicKey.PublicKeyPem == "" {
		return nil, fmt.Errorf("actor document %s missing id or public key", actorURI)
	}
	return &actor, nil
}

// GetOrFetchPerson returns the person behind actorURI, fetching and
// caching the remote actor document when unknown or stale.
func GetOrFetchPerson(database Database, client HTTPClient, actorURI string) (error, *domain.Person) {
	err, person := database.ReadPersonByActorURI(actorURI)
	if err == nil && person != nil {
		if person.Local || time.Since(person.LastFetchedAt) < actorCacheMaxAge {
			return nil, person
		}
		// Stale cache, re-fetch but fall back to the cached copy on failure
		actor, fetchErr := FetchActorDocument(client, actorURI)
		if fetchErr != nil {
			log.Printf("Inbox: actor refresh failed for %s, using cached copy: %v", actorURI, fetchErr)
			return nil, person
		}
		updated := personFromActor(actor)
		updated.Id = person.Id
		if updateErr := database.UpdatePerson(updated); updateErr != nil {
			log.Printf("Inbox: failed to update cached actor %s: %v", actorURI, updateErr)
		}
		return nil, updated
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err, nil
	}

	actor, err := FetchActorDocument(client, actorURI)
	if err != nil {
		return err, nil
	}
	if actor.Type != "Person" && actor.Type != "Service" {
		return fmt.Errorf("actor %s is not a person: %s", actorURI, actor.Type), nil
	}

	person = personFromActor(actor)
	person.Id = uuid.New()
	person.CreatedAt = time.Now()
	if err := database.CreatePerson(person); err != nil {
		return err, nil
	}
	return nil, person
}

// GetOrFetchCommunity resolves a community actor URI the same way, creating
// a cached Group actor if this instance has never seen it.
func GetOrFetchCommunity(database Database, client HTTPClient, actorURI string) (error, *domain.Community) {
	err, community := database.ReadCommunityByActorURI(actorURI)
	if err == nil && community != nil {
		return nil, community
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err, nil
	}

	actor, err := FetchActorDocument(client, actorURI)
	if err != nil {
		return err, nil
	}
	if actor.Type != "Group" {
		return fmt.Errorf("actor %s is not a group: %s", actorURI, actor.Type), nil
	}

	domainName, err := ExtractDomain(actor.Id)
	if err != nil {
		return err, nil
	}
	community = &domain.Community{
		Id:              uuid.New(),
		Name:            actor.PreferredUsername,
		Domain:          domainName,
		Title:           actor.Name,
		Description:     actor.Summary,
		ActorURI:        actor.Id,
		FollowersURI:    actor.Followers,
		InboxURI:        actor.Inbox,
		PublicKeyPem:    actor.PublicKey.PublicKeyPem,
		Visibility:      domain.CommunityVisibilityPublic,
		CreatedAt:       time.Now(),
		LastRefreshedAt: time.Now(),
	}
	if actor.Endpoints != nil {
		community.SharedInboxURI = actor.Endpoints.SharedInbox
	}
	if actor.Icon != nil {
		community.IconURL = actor.Icon.URL
	}
	if actor.Image != nil {
		community.BannerURL = actor.Image.URL
	}
	if err := database.CreateCommunity(community); err != nil {
		return err, nil
	}
	return nil, community
}

func personFromActor(actor *domain.Actor) *domain.Person {
	domainName, _ := ExtractDomain(actor.Id)
	person := &domain.Person{
		Username:      actor.PreferredUsername,
		Domain:        domainName,
		ActorURI:      actor.Id,
		DisplayName:   actor.Name,
		Bio:           actor.Summary,
		InboxURI:      actor.Inbox,
		PublicKeyPem:  actor.PublicKey.PublicKeyPem,
		LastFetchedAt: time.Now(),
	}
	if actor.Endpoints != nil {
		person.SharedInboxURI = actor.Endpoints.SharedInbox
	}
	if actor.Icon != nil {
		person.AvatarURL = actor.Icon.URL
	}
	return person
}
