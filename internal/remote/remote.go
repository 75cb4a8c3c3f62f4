// Package remote abstracts the cloud store holding the remote copy of the
// configuration. A backend exposes whole-document fetch and push keyed by
// an opaque revision token; concrete kinds are selected by configuration
// through New, never by the engine.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error taxonomy. Callers match with errors.Is.
var (
	// ErrNotFound means no remote content exists yet (benign on first sync).
	ErrNotFound = errors.New("remote content not found")

	// ErrUnavailable is a transient network or backend fault, surfaced only
	// after the bounded retry policy is exhausted.
	ErrUnavailable = errors.New("remote backend unavailable")

	// ErrUnauthorized is a credential fault. Never retried.
	ErrUnauthorized = errors.New("remote authentication failed")

	// ErrRevisionConflict means the backend's current revision no longer
	// matches the expected one: another device wrote first.
	ErrRevisionConflict = errors.New("remote revision conflict")
)

// Backend kinds.
const (
	KindGist   = "gist"
	KindBucket = "bucket"
)

// Fetched is the remote state observed at read time.
type Fetched struct {
	// Content is the raw remote document.
	Content []byte

	// Revision is the backend's opaque revision token for this read,
	// used as the optimistic-concurrency key on a later Push.
	Revision string

	// UpdatedAt is the backend's last-modified time for the content.
	UpdatedAt time.Time
}

// Backend is the capability set every remote store implements.
type Backend interface {
	// Kind returns the backend identifier (gist, bucket).
	Kind() string

	// Fetch reads the current remote document and its revision.
	// Returns ErrNotFound when no remote content exists yet.
	Fetch(ctx context.Context) (*Fetched, error)

	// Push replaces the remote document, but only if the backend's current
	// revision still matches expectedRevision. An empty expectedRevision
	// means "create; no remote content should exist yet". Returns the new
	// revision on success, ErrRevisionConflict when another writer won.
	Push(ctx context.Context, content []byte, expectedRevision string) (string, error)
}

// Options selects and configures a backend.
type Options struct {
	// Kind is the backend kind (gist, bucket).
	Kind string

	// Timeout bounds each network call. Defaults to 30s.
	Timeout time.Duration

	// MaxAttempts bounds retries of transient faults. Defaults to 4.
	MaxAttempts uint

	Gist   GistOptions
	Bucket BucketOptions
}

// New creates the backend named by opts.Kind.
func New(opts Options) (Backend, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 4
	}

	client := &http.Client{Timeout: opts.Timeout}

	switch opts.Kind {
	case KindGist:
		return newGistBackend(opts.Gist, client, opts.MaxAttempts)
	case KindBucket:
		return newBucketBackend(opts.Bucket, client, opts.MaxAttempts)
	default:
		return nil, fmt.Errorf("unsupported backend kind: %q", opts.Kind)
	}
}

// statusError maps an HTTP status to the error taxonomy.
func statusError(status int, detail string) error {
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: %s", ErrRevisionConflict, detail)
	default:
		return fmt.Errorf("%w: %s (status %d)", ErrUnavailable, detail, status)
	}
}

// retryable reports whether an error should be retried with backoff.
// Only transient faults are; NotFound, Unauthorized, and RevisionConflict
// are terminal for the current attempt.
func retryable(err error) bool {
	return !errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrUnauthorized) &&
		!errors.Is(err, ErrRevisionConflict)
}
