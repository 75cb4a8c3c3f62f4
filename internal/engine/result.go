package engine

import (
	"fmt"

	"github.com/tabsync/tabsync/internal/backup"
	"github.com/tabsync/tabsync/internal/resolve"
)

// Action describes what a reconciliation cycle did to the two sides.
type Action string

const (
	// ActionNone means neither side changed: nothing was written or pushed.
	ActionNone Action = "none"

	// ActionDownloaded means the local file was overwritten with the
	// winning content.
	ActionDownloaded Action = "downloaded"

	// ActionUploaded means the winning content was pushed to the backend.
	ActionUploaded Action = "uploaded"

	// ActionCreated means the remote content was created for the first time.
	ActionCreated Action = "created"
)

// Result reports the outcome of one reconciliation cycle.
type Result struct {
	// State is the terminal state of the cycle.
	State State

	// Action describes the effect on local file and backend.
	Action Action

	// Decision is the resolver's decision, when one was made.
	Decision *resolve.Decision

	// Backup is the record created before a local overwrite, if any.
	Backup *backup.Record

	// Hash is the content hash both sides settled on.
	Hash string

	// Revision is the backend revision after the cycle.
	Revision string
}

// Summary returns a one-line human-readable description of the outcome.
func (r *Result) Summary() string {
	switch r.Action {
	case ActionNone:
		return "already in sync"
	case ActionDownloaded:
		if r.Decision != nil && !r.Decision.Clean() {
			return fmt.Sprintf("downloaded merged configuration (%d unresolved keys kept local)", len(r.Decision.Markers))
		}
		return "downloaded remote configuration"
	case ActionUploaded:
		return "uploaded local configuration"
	case ActionCreated:
		return "created remote configuration"
	default:
		return string(r.Action)
	}
}
