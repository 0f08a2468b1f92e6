package activitypub

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// Outbound dispatch. The dispatcher only computes target inboxes and hands
// serialized activities to the delivery queue; the worker in delivery.go
// owns retries. Callers never block on network delivery.

// EnqueueActivity serializes the activity once and queues one delivery row
// per inbox.
func EnqueueActivity(database Database, activity *domain.Activity, inboxes []string) error {
	raw, err := json.Marshal(activity)
	if err != nil {
		return err
	}
	for _, inbox := range inboxes {
		item := &domain.DeliveryQueueItem{
			Id:           uuid.New(),
			InboxURI:     inbox,
			ActivityJSON: string(raw),
			Attempts:     0,
			NextRetryAt:  time.Now(),
			CreatedAt:    time.Now(),
		}
		if err := database.EnqueueDelivery(item); err != nil {
			log.Printf("Outbox: failed to queue delivery to %s: %v", inbox, err)
		}
	}
	return nil
}

// SendActivityInCommunity fans an activity out to the community's follower
// inboxes plus any extra targets. With broadcastToAll set, every known
// peer instance's shared inbox is included as well. Fire and forget:
// failures are logged, never returned per target.
func SendActivityInCommunity(database Database, conf *util.AppConfig, activity *domain.Activity, community *domain.Community, extraTargets []string, broadcastToAll bool) error {
	inboxes := make(map[string]struct{})

	err, followers := database.ReadCommunityFollowers(community.Id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if followers != nil {
		for _, follower := range *followers {
			err, person := database.ReadPersonById(follower.PersonId)
			if err != nil || person == nil || person.Local {
				continue
			}
			inboxes[person.BestInboxURI()] = struct{}{}
		}
	}

	for _, target := range extraTargets {
		inboxes[target] = struct{}{}
	}

	if broadcastToAll {
		err, instances := database.ReadAllInstances()
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if instances != nil {
			for _, inst := range *instances {
				if inst.SharedInboxURI != "" {
					inboxes[inst.SharedInboxURI] = struct{}{}
				}
			}
		}
	}

	targets := make([]string, 0, len(inboxes))
	for inbox := range inboxes {
		if inbox == "" || IsLocalURI(conf, inbox) {
			continue
		}
		targets = append(targets, inbox)
	}

	log.Printf("Outbox: queueing %s %s to %d inboxes", activity.Type, activity.Id, len(targets))
	return EnqueueActivity(database, activity, targets)
}

// DeliverActivity performs one signed POST of a serialized activity to an
// inbox. The signing key is looked up from the activity's actor, which for
// outbound activities is always a local person or community.
func DeliverActivity(database Database, client HTTPClient, inboxURI string, activityJSON []byte) error {
	var envelope struct {
		Actor string `json:"actor"`
	}
	if err := json.Unmarshal(activityJSON, &envelope); err != nil {
		return fmt.Errorf("malformed queued activity: %w", err)
	}

	keyId, privateKeyPem, err := signingKeyForActor(database, envelope.Actor)
	if err != nil {
		return err
	}
	privateKey, err := ParsePrivateKey(privateKeyPem)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, inboxURI, bytes.NewReader(activityJSON))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/activity+json")
	req.Header.Set("User-Agent", util.GetNameAndVersion())
	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)

	if err := SignRequest(req, activityJSON, privateKey, keyId); err != nil {
		return fmt.Errorf("failed to sign delivery: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("inbox %s returned status %d", inboxURI, resp.StatusCode)
	}
	return nil
}

func signingKeyForActor(database Database, actorURI string) (string, string, error) {
	err, person := database.ReadPersonByActorURI(actorURI)
	if err == nil && person != nil && person.PrivateKeyPem != "" {
		return actorURI + "#main-key", person.PrivateKeyPem, nil
	}
	err, community := database.ReadCommunityByActorURI(actorURI)
	if err == nil && community != nil && community.PrivateKeyPem != "" {
		return actorURI + "#main-key", community.PrivateKeyPem, nil
	}
	return "", "", fmt.Errorf("no signing key for actor %s", actorURI)
}
