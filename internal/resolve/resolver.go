package resolve

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tabsync/tabsync/internal/document"
	"github.com/tabsync/tabsync/internal/logging"
)

// Decision is the resolver's output for one reconciliation.
type Decision struct {
	// Strategy is the strategy that produced the decision.
	Strategy Strategy

	// State is the classification the decision was made under.
	State State

	// Result is the winning content. Nil while NeedsInput is true.
	Result *document.Snapshot

	// Markers lists the key paths where an automatic merge could not
	// reconcile differing values. Empty for a clean decision.
	Markers []string

	// NeedsInput is set for the manual strategy on a true conflict: the
	// caller must supply a choice through Local and Remote.
	NeedsInput bool

	// Local and Remote carry both sides for an external decision.
	Local  *document.Snapshot
	Remote *document.Snapshot
}

// Clean reports whether the decision carried no unresolved markers.
func (d *Decision) Clean() bool {
	return len(d.Markers) == 0
}

// Resolver applies a configured strategy to classified divergence.
// All non-manual strategies are pure functions of their inputs.
type Resolver struct {
	strategy Strategy
}

// NewResolver creates a resolver for the given strategy.
func NewResolver(strategy Strategy) (*Resolver, error) {
	if !strategy.IsValid() {
		return nil, fmt.Errorf("unknown conflict strategy: %q", strategy)
	}
	return &Resolver{strategy: strategy}, nil
}

// Strategy returns the configured strategy.
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// Resolve classifies local against remote relative to lastSyncedHash and
// decides the winning content. The strategy applies only to true
// conflicts; the other states have a single correct outcome.
func (r *Resolver) Resolve(local, remote *document.Snapshot, lastSyncedHash string) (*Decision, error) {
	state := Classify(local.Hash, remote.Hash, lastSyncedHash)

	logging.Debug("classified divergence",
		logging.Operation("resolve"),
		logging.Strategy(string(r.strategy)),
		slog.String("state", string(state)),
		logging.Hash(local.Hash),
	)

	decision := &Decision{
		Strategy: r.strategy,
		State:    state,
		Local:    local,
		Remote:   remote,
	}

	switch state {
	case StateInSync:
		decision.Result = local
		return decision, nil
	case StateRemoteAhead:
		decision.Result = remote
		return decision, nil
	case StateLocalAhead:
		decision.Result = local
		return decision, nil
	}

	// True conflict: both sides changed since the last common state.
	switch r.strategy {
	case StrategyNewest:
		if remote.CapturedAt.After(local.CapturedAt) {
			decision.Result = remote
		} else {
			decision.Result = local
		}
	case StrategyOldest:
		if local.CapturedAt.Before(remote.CapturedAt) {
			decision.Result = local
		} else {
			decision.Result = remote
		}
	case StrategyLocal:
		decision.Result = local
	case StrategyCloud:
		decision.Result = remote
	case StrategyMerge:
		merged, markers := mergeDocuments(local.Doc, remote.Doc)
		result, err := document.FromDocument(merged, document.OriginLocal, laterOf(local, remote))
		if err != nil {
			return nil, fmt.Errorf("failed to build merged snapshot: %w", err)
		}
		decision.Result = result
		decision.Markers = markers
		if len(markers) > 0 {
			logging.Warn("merge kept local values for conflicting keys",
				logging.Count(len(markers)),
				slog.Any("markers", markers),
			)
		}
	case StrategyManual:
		decision.NeedsInput = true
	default:
		return nil, fmt.Errorf("unknown conflict strategy: %q", r.strategy)
	}

	return decision, nil
}

// laterOf keeps merge results pure: the merged snapshot's capture time is
// derived from the inputs, never from the wall clock.
func laterOf(a, b *document.Snapshot) time.Time {
	if b.CapturedAt.After(a.CapturedAt) {
		return b.CapturedAt
	}
	return a.CapturedAt
}
