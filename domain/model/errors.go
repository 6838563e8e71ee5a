package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the publishing pipeline. Handlers map these
// onto HTTP statuses; the scheduler captures them into the row instead of
// letting them escape the job boundary.
var (
	// ErrInvalidOrExpiredState is returned when an authorization callback
	// carries an unknown or expired state token. The user restarts the flow.
	ErrInvalidOrExpiredState = errors.New("invalid or expired authorization state")

	// ErrRequiresReauthorization means refresh is impossible or was refused.
	// Never retried automatically; the user must reconnect.
	ErrRequiresReauthorization = errors.New("connection requires re-authorization")

	// ErrInsufficientScope means the token is live but lacks a capability.
	// Resolvable by requesting broader scopes, not by a full reconnect.
	ErrInsufficientScope = errors.New("token missing required scope")

	// ErrConnectionNotFound means no credential row exists for the pair.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrScheduleConflict rejects a due time not strictly in the future, or
	// a malformed payload, before anything is persisted.
	ErrScheduleConflict = errors.New("schedule conflict")

	// ErrMediaProcessingTimeout is raised when status polling exhausts its
	// attempt bound. The media id is dead; restart from INIT.
	ErrMediaProcessingTimeout = errors.New("media processing timed out")
)

// TokenExchangeError preserves the platform's raw rejection of a code,
// verifier or signature during an OAuth exchange.
type TokenExchangeError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed (status %d): %s", e.Platform, e.StatusCode, e.Body)
}

// MediaUploadError preserves the raw platform error body for an INIT, APPEND
// or FINALIZE failure. 403 is commonly a scope problem and 429 rate limiting;
// callers pick their retry policy off those.
type MediaUploadError struct {
	Phase      string // INIT | APPEND | FINALIZE | STATUS
	StatusCode int
	Body       string
}

func (e *MediaUploadError) Error() string {
	return fmt.Sprintf("media upload %s failed (status %d): %s", e.Phase, e.StatusCode, e.Body)
}

// ScopeProblem reports whether the failure looks like a permission problem
// rather than a transient one.
func (e *MediaUploadError) ScopeProblem() bool { return e.StatusCode == 403 }

// RateLimited reports whether the platform throttled the upload.
func (e *MediaUploadError) RateLimited() bool { return e.StatusCode == 429 }

// MediaProcessingError is a terminal transcode failure reported by the
// platform. Not retried.
type MediaProcessingError struct {
	MediaID string
	Reason  string
}

func (e *MediaProcessingError) Error() string {
	return fmt.Sprintf("media %s processing failed: %s", e.MediaID, e.Reason)
}

// PublishError is a rejected post-creation call.
type PublishError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("%s publish failed (status %d): %s", e.Platform, e.StatusCode, e.Body)
}

// ThreadResult is the structured outcome of a thread publication: the ids
// created before the chain halted plus the error that halted it. Earlier
// posts are never rolled back.
type ThreadResult struct {
	PostIDs     []string `json:"post_ids"`
	FailedIndex int      `json:"failed_index"` // -1 when the whole chain succeeded
	Err         error    `json:"-"`
}

// Ok reports whether every post in the chain was created.
func (r *ThreadResult) Ok() bool { return r.Err == nil }
