package activitypub

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lemurforge/lemur/domain"
	"github.com/lemurforge/lemur/util"
)

// InboxDeps holds dependencies for inbox handlers (for testing)
type InboxDeps struct {
	Database   Database
	HTTPClient HTTPClient
}

var defaultHTTPClient = NewDefaultHTTPClient(10 * time.Second)

// errUnsupportedActivity marks an activity type outside the supported
// vocabulary.
var errUnsupportedActivity = errors.New("unsupported activity type")

// HandleInbox processes incoming ActivityPub activities
func HandleInbox(w http.ResponseWriter, r *http.Request, conf *util.AppConfig) {
	deps := &InboxDeps{
		Database:   NewDBWrapper(),
		HTTPClient: defaultHTTPClient,
	}
	HandleInboxWithDeps(w, r, conf, deps)
}

// HandleInboxWithDeps processes incoming ActivityPub activities.
// This version accepts dependencies for testing.
func HandleInboxWithDeps(w http.ResponseWriter, r *http.Request, conf *util.AppConfig, deps *InboxDeps) {
	// Verify HTTP signature header is present before doing any work
	signature := r.Header.Get("Signature")
	if signature == "" {
		log.Printf("Inbox: Missing HTTP signature")
		http.Error(w, "Missing signature", http.StatusUnauthorized)
		return
	}

	// Read request body with size limit (1MB max to prevent DoS)
	const maxBodySize = 1 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Printf("Inbox: Failed to read body: %v", err)
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Check if body was truncated (too large)
	if len(body) == maxBodySize {
		log.Printf("Inbox: Request body too large")
		http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
		return
	}

	var activity domain.Activity
	if err := json.Unmarshal(body, &activity); err != nil {
		log.Printf("Inbox: Failed to parse activity: %v", err)
		http.Error(w, "Invalid activity", http.StatusBadRequest)
		return
	}
	if activity.Id == "" || activity.Type == "" || activity.Actor == "" {
		log.Printf("Inbox: Activity missing id, type or actor")
		http.Error(w, "Invalid activity", http.StatusBadRequest)
		return
	}

	log.Printf("Inbox: Received %s %s from %s", activity.Type, activity.Id, activity.Actor)

	// Fetch the signing actor to verify and cache. Accepts are signed by
	// the community (Group) actor, everything else by a person.
	var actorPerson *domain.Person
	var publicKeyPem string
	if activity.Type == "Accept" {
		err, community := GetOrFetchCommunity(deps.Database, deps.HTTPClient, activity.Actor)
		if err != nil || community == nil {
			log.Printf("Inbox: Failed to fetch community actor %s: %v", activity.Actor, err)
			http.Error(w, "Failed to verify actor", http.StatusBadRequest)
			return
		}
		publicKeyPem = community.PublicKeyPem
	} else {
		err, person := GetOrFetchPerson(deps.Database, deps.HTTPClient, activity.Actor)
		if err != nil || person == nil {
			log.Printf("Inbox: Failed to fetch actor %s: %v", activity.Actor, err)
			http.Error(w, "Failed to verify actor", http.StatusBadRequest)
			return
		}
		actorPerson = person
		publicKeyPem = person.PublicKeyPem
	}

	// Restore body for signature verification (body was consumed during read)
	r.Body = io.NopCloser(bytes.NewReader(body))

	verifiedActorURI, err := VerifyRequest(r, publicKeyPem)
	if err != nil {
		log.Printf("Inbox: Signature verification failed: %v", err)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}
	if err := VerifyActivityActor(&activity, verifiedActorURI); err != nil {
		log.Printf("Inbox: %v", err)
		http.Error(w, "Actor mismatch", http.StatusForbidden)
		return
	}

	err = routeActivity(deps, conf, &activity, actorPerson)
	switch {
	case err == nil:
		trackInstance(deps.Database, activity.Actor, actorPerson)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("Accepted"))
	case errors.Is(err, ErrAlreadyProcessed):
		// Duplicate delivery is success, not failure
		log.Printf("Inbox: Activity %s already processed", activity.Id)
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("Accepted"))
	case errors.Is(err, ErrLocalCommunityRestore):
		log.Printf("Inbox: Rejected %s: %v", activity.Id, err)
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrVerification):
		log.Printf("Inbox: Rejected %s: %v", activity.Id, err)
		http.Error(w, "Verification failed", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		log.Printf("Inbox: Object not found for %s: %v", activity.Id, err)
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, errUnsupportedActivity):
		log.Printf("Inbox: Unsupported activity type %s", activity.Type)
		http.Error(w, "Unsupported activity", http.StatusBadRequest)
	default:
		log.Printf("Inbox: Failed to process %s: %v", activity.Id, err)
		http.Error(w, "Processing failed", http.StatusInternalServerError)
	}
}

// routeActivity dispatches over the closed activity vocabulary.
func routeActivity(deps *InboxDeps, conf *util.AppConfig, activity *domain.Activity, actor *domain.Person) error {
	switch activity.Type {
	case "Create":
		return ReceiveCreate(deps.Database, deps.HTTPClient, conf, activity, actor)
	case "Update":
		if objectTypeOf(activity.Object) == "Group" {
			return ReceiveUpdateCommunity(deps.Database, deps.HTTPClient, activity, actor)
		}
		return ReceiveUpdatePerson(deps.Database, activity, actor)
	case "Delete":
		return ReceiveDelete(deps.Database, activity, actor)
	case "Follow":
		return ReceiveFollow(deps.Database, conf, activity, actor)
	case "Accept":
		return ReceiveAccept(deps.Database, activity)
	case "Undo":
		switch objectTypeOf(activity.Object) {
		case "Delete":
			return ReceiveUndoDelete(deps.Database, activity, actor)
		case "Follow":
			return ReceiveUndoFollow(deps.Database, activity, actor)
		}
		return errUnsupportedActivity
	}
	return errUnsupportedActivity
}

func objectTypeOf(obj any) string {
	raw, err := json.Marshal(obj)
	if err != nil {
		return ""
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.Type
}

// trackInstance records the sending instance and its shared inbox so
// broadcast fan-out knows about it.
func trackInstance(database Database, actorURI string, actor *domain.Person) {
	domainName, err := ExtractDomain(actorURI)
	if err != nil {
		return
	}
	inst := &domain.Instance{
		Id:     uuid.New(),
		Domain: domainName,
	}
	if actor != nil {
		inst.SharedInboxURI = actor.SharedInboxURI
	}
	if err := database.UpsertInstance(inst); err != nil {
		log.Printf("Inbox: failed to track instance %s: %v", domainName, err)
	}
}
