package activitypub

import "errors"

// Sentinel errors returned by activity handling. The inbox maps these to
// HTTP status codes.
var (
	// ErrAlreadyProcessed means the activity id is already in the
	// received-activity ledger. Treated as success.
	ErrAlreadyProcessed = errors.New("activity already processed")

	// ErrNotFound means a referenced object is unknown locally.
	ErrNotFound = errors.New("object not found")

	// ErrVerification means an activity failed an authorization or
	// well-formedness check and must not mutate state.
	ErrVerification = errors.New("activity verification failed")

	// ErrLocalCommunityRestore means a remote actor tried to restore a
	// local community; only a local admin may do that.
	ErrLocalCommunityRestore = errors.New("only a local admin can restore a local community")
)
