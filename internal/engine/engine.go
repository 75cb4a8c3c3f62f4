// Package engine orchestrates one reconciliation cycle at a time: it reads
// the local configuration and the sync metadata, queries the storage
// backend, classifies divergence, delegates true conflicts to the resolver,
// and applies the winning content with backup-before-overwrite and
// write-avoidance. The engine is a single logical actor: Pull and Push
// never run concurrently against the same files, and metadata is committed
// only after a fully confirmed outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tabsync/tabsync/internal/backup"
	"github.com/tabsync/tabsync/internal/document"
	"github.com/tabsync/tabsync/internal/logging"
	"github.com/tabsync/tabsync/internal/meta"
	"github.com/tabsync/tabsync/internal/remote"
	"github.com/tabsync/tabsync/internal/resolve"
	"github.com/tabsync/tabsync/internal/util"
)

// State tracks progress through a reconciliation cycle.
type State string

const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateClassifying State = "classifying"
	StateResolving   State = "resolving"
	StateBackingUp   State = "backing-up"
	StateWriting     State = "writing"
	StateSettled     State = "settled"
	StateFailed      State = "failed"
)

// ErrManualDecisionRequired is returned when the manual strategy hits a
// true conflict and no ManualResolver was supplied: the cycle stays in
// Resolving until the caller provides a decision or abandons it.
var ErrManualDecisionRequired = errors.New("conflict requires a manual decision")

// ManualResolver supplies the external decision for manual-strategy
// conflicts: the chosen side or a custom merged document.
type ManualResolver interface {
	Resolve(ctx context.Context, local, remote *document.Snapshot) (*document.Snapshot, error)
}

// Options wires an engine together. All collaborators are explicit so
// multiple engine instances never interfere.
type Options struct {
	// ConfigPath is the local configuration file the engine reconciles.
	ConfigPath string

	// Backend is the remote storage backend.
	Backend remote.Backend

	// Meta persists the sync metadata record.
	Meta *meta.Store

	// Backups snapshots the local file before any overwrite.
	Backups *backup.Manager

	// Resolver decides true conflicts.
	Resolver *resolve.Resolver

	// Manual handles manual-strategy conflicts. Optional; without it a
	// manual conflict fails with ErrManualDecisionRequired.
	Manual ManualResolver

	// EscalateMergeMarkers routes merge decisions that produced conflict
	// markers through the manual flow instead of keeping the provisional
	// local winners.
	EscalateMergeMarkers bool
}

// Engine performs pull/push reconciliation cycles.
type Engine struct {
	opts  Options
	state State

	// lastFetch caches the remote state observed in this cycle so Push
	// does not classify against a stale revision.
	lastFetch *remote.Fetched
}

// New creates an engine. ConfigPath, Backend, Meta, Backups, and Resolver
// are required.
func New(opts Options) (*Engine, error) {
	if opts.ConfigPath == "" {
		return nil, errors.New("engine requires a config path")
	}
	if opts.Backend == nil || opts.Meta == nil || opts.Backups == nil || opts.Resolver == nil {
		return nil, errors.New("engine requires backend, metadata store, backup manager, and resolver")
	}
	return &Engine{opts: opts, state: StateIdle}, nil
}

// State returns the engine's current cycle state.
func (e *Engine) State() State {
	return e.state
}

func (e *Engine) setState(s State) {
	logging.Debug("engine state",
		slog.String("from", string(e.state)),
		slog.String("to", string(s)),
	)
	e.state = s
}

// Pull reconciles toward the local side: if the winning content differs
// from the current local bytes, the local file is backed up and
// overwritten. A missing remote is benign (first run) and leaves the local
// file and metadata untouched.
func (e *Engine) Pull(ctx context.Context) (*Result, error) {
	defer logging.Timer("pull")()

	// A pull begins a new cycle; drop any observation from a previous one.
	e.lastFetch = nil

	e.setState(StateFetching)
	fetched, err := e.fetch(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			logging.Info("no remote content yet, nothing to pull")
			e.setState(StateSettled)
			return &Result{State: StateSettled, Action: ActionNone}, nil
		}
		return e.fail(err)
	}

	decision, local, err := e.resolveCycle(ctx, fetched)
	if err != nil {
		return nil, err
	}

	result := &Result{Decision: decision, Revision: fetched.Revision, Hash: decision.Result.Hash}

	if decision.Result.Hash != local.Hash {
		record, err := e.overwriteLocal(local, decision.Result)
		if err != nil {
			return e.fail(err)
		}
		result.Backup = record
		result.Action = ActionDownloaded
	} else {
		// Write-avoidance: never rewrite identical bytes.
		result.Action = ActionNone
	}

	// lastSyncedHash moves only when both sides now hold the winning
	// content; a local-ahead or merged winner is settled by the
	// subsequent Push.
	if err := e.commitMetadata(decision.Result.Hash, fetched.Revision,
		decision.Result.Hash == decision.Remote.Hash); err != nil {
		return e.fail(err)
	}

	e.setState(StateSettled)
	result.State = StateSettled
	return result, nil
}

// Push reconciles toward the remote side: if the winning content differs
// from the remote, it is pushed with the observed revision as the
// optimistic-concurrency token. A revision conflict triggers exactly one
// re-fetch and re-classification before the cycle fails.
func (e *Engine) Push(ctx context.Context) (*Result, error) {
	defer logging.Timer("push")()

	result, err := e.pushOnce(ctx)
	if err == nil || !errors.Is(err, remote.ErrRevisionConflict) {
		return result, err
	}

	// Another device won the race: re-fetch, re-decide, try once more.
	logging.Warn("revision conflict, re-classifying once", logging.Err(err))
	e.lastFetch = nil
	return e.pushOnce(ctx)
}

func (e *Engine) pushOnce(ctx context.Context) (*Result, error) {
	e.setState(StateFetching)
	fetched, err := e.fetch(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return e.pushInitial(ctx)
		}
		return e.fail(err)
	}

	decision, local, err := e.resolveCycle(ctx, fetched)
	if err != nil {
		return nil, err
	}

	result := &Result{Decision: decision, Hash: decision.Result.Hash}

	// A merge (or remote-favoring) winner must land locally too, so both
	// sides hold identical content after the cycle.
	if decision.Result.Hash != local.Hash {
		record, err := e.overwriteLocal(local, decision.Result)
		if err != nil {
			return e.fail(err)
		}
		result.Backup = record
	}

	if decision.Result.Hash == decision.Remote.Hash {
		// Remote already holds the winner: nothing to push.
		result.Action = ActionNone
		result.Revision = fetched.Revision
		if err := e.commitMetadata(decision.Result.Hash, fetched.Revision, true); err != nil {
			return e.fail(err)
		}
		e.setState(StateSettled)
		result.State = StateSettled
		return result, nil
	}

	e.setState(StateWriting)
	newRevision, err := e.opts.Backend.Push(ctx, decision.Result.Canonical, fetched.Revision)
	if err != nil {
		return e.fail(fmt.Errorf("push rejected: %w", err))
	}

	if err := e.commitMetadata(decision.Result.Hash, newRevision, true); err != nil {
		return e.fail(err)
	}

	e.setState(StateSettled)
	result.State = StateSettled
	result.Action = ActionUploaded
	result.Revision = newRevision
	return result, nil
}

// pushInitial creates the remote content on first sync.
func (e *Engine) pushInitial(ctx context.Context) (*Result, error) {
	local, err := e.readLocal()
	if err != nil {
		return e.fail(err)
	}

	e.setState(StateWriting)
	revision, err := e.opts.Backend.Push(ctx, local.Canonical, "")
	if err != nil {
		return e.fail(fmt.Errorf("initial push rejected: %w", err))
	}

	if err := e.commitMetadata(local.Hash, revision, true); err != nil {
		return e.fail(err)
	}

	e.setState(StateSettled)
	return &Result{
		State:    StateSettled,
		Action:   ActionCreated,
		Hash:     local.Hash,
		Revision: revision,
	}, nil
}

// Sync runs a full auto-decided reconciliation: pull, then push, sharing
// the fetched remote state within the cycle.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	pulled, err := e.Pull(ctx)
	if err != nil {
		return pulled, err
	}

	pushed, err := e.Push(ctx)
	if err != nil {
		return pushed, err
	}

	if pulled.Action == ActionDownloaded && pushed.Action == ActionNone {
		return pulled, nil
	}
	return pushed, nil
}

// ForceDownload adopts the remote content unconditionally, bypassing
// classification but still backing up before the overwrite.
func (e *Engine) ForceDownload(ctx context.Context) (*Result, error) {
	e.setState(StateFetching)
	fetched, err := e.fetch(ctx)
	if err != nil {
		return e.fail(err)
	}

	remoteSnap, err := document.Capture(fetched.Content, document.OriginRemote, fetched.UpdatedAt)
	if err != nil {
		return e.fail(fmt.Errorf("remote document invalid: %w", err))
	}

	local, err := e.readLocal()
	if err != nil {
		return e.fail(err)
	}

	result := &Result{Hash: remoteSnap.Hash, Revision: fetched.Revision}
	if remoteSnap.Hash != local.Hash {
		record, err := e.overwriteLocal(local, remoteSnap)
		if err != nil {
			return e.fail(err)
		}
		result.Backup = record
		result.Action = ActionDownloaded
	} else {
		result.Action = ActionNone
	}

	if err := e.commitMetadata(remoteSnap.Hash, fetched.Revision, true); err != nil {
		return e.fail(err)
	}

	e.setState(StateSettled)
	result.State = StateSettled
	return result, nil
}

// ForceUpload pushes the local content unconditionally. The backend's
// current revision is still used as the concurrency token so a concurrent
// writer surfaces as a conflict rather than being silently overwritten.
func (e *Engine) ForceUpload(ctx context.Context) (*Result, error) {
	local, err := e.readLocal()
	if err != nil {
		return e.fail(err)
	}

	e.setState(StateFetching)
	expected := ""
	if fetched, err := e.fetch(ctx); err == nil {
		expected = fetched.Revision
	} else if !errors.Is(err, remote.ErrNotFound) {
		return e.fail(err)
	}

	e.setState(StateWriting)
	revision, err := e.opts.Backend.Push(ctx, local.Canonical, expected)
	if err != nil {
		return e.fail(fmt.Errorf("forced push rejected: %w", err))
	}

	if err := e.commitMetadata(local.Hash, revision, true); err != nil {
		return e.fail(err)
	}

	e.setState(StateSettled)
	action := ActionUploaded
	if expected == "" {
		action = ActionCreated
	}
	return &Result{State: StateSettled, Action: action, Hash: local.Hash, Revision: revision}, nil
}

// resolveCycle classifies local against the fetched remote state and
// produces a concrete decision, running the manual flow when required.
func (e *Engine) resolveCycle(ctx context.Context, fetched *remote.Fetched) (*resolve.Decision, *document.Snapshot, error) {
	e.setState(StateClassifying)

	local, err := e.readLocal()
	if err != nil {
		_, ferr := e.fail(err)
		return nil, nil, ferr
	}

	remoteSnap, err := document.Capture(fetched.Content, document.OriginRemote, fetched.UpdatedAt)
	if err != nil {
		_, ferr := e.fail(fmt.Errorf("remote document invalid: %w", err))
		return nil, nil, ferr
	}

	record := e.opts.Meta.Load()

	e.setState(StateResolving)
	decision, err := e.opts.Resolver.Resolve(local, remoteSnap, record.LastSyncedHash)
	if err != nil {
		_, ferr := e.fail(err)
		return nil, nil, ferr
	}

	if decision.NeedsInput ||
		(e.opts.EscalateMergeMarkers && decision.Strategy == resolve.StrategyMerge && !decision.Clean()) {
		chosen, err := e.resolveManually(ctx, local, remoteSnap)
		if err != nil {
			// The cycle stays in Resolving: no local state was touched.
			return nil, nil, err
		}
		decision.Result = chosen
		decision.Markers = nil
		decision.NeedsInput = false
	}

	return decision, local, nil
}

func (e *Engine) resolveManually(ctx context.Context, local, remoteSnap *document.Snapshot) (*document.Snapshot, error) {
	if e.opts.Manual == nil {
		return nil, ErrManualDecisionRequired
	}
	chosen, err := e.opts.Manual.Resolve(ctx, local, remoteSnap)
	if err != nil {
		return nil, fmt.Errorf("manual resolution failed: %w", err)
	}
	if chosen == nil {
		return nil, ErrManualDecisionRequired
	}
	return chosen, nil
}

// fetch reads the remote state, reusing the cached observation from this
// cycle when present.
func (e *Engine) fetch(ctx context.Context) (*remote.Fetched, error) {
	if e.lastFetch != nil {
		return e.lastFetch, nil
	}
	fetched, err := e.opts.Backend.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	e.lastFetch = fetched
	return fetched, nil
}

// readLocal captures the local configuration file. A missing file is an
// empty document (first run), not an error.
func (e *Engine) readLocal() (*document.Snapshot, error) {
	// #nosec G304 - path comes from validated configuration
	raw, err := os.ReadFile(e.opts.ConfigPath)
	if err != nil {
		if os.IsNotExist(err) {
			return document.Capture(nil, document.OriginLocal, time.Time{})
		}
		return nil, fmt.Errorf("failed to read local config: %w", err)
	}

	capturedAt := time.Now()
	if info, err := os.Stat(e.opts.ConfigPath); err == nil {
		capturedAt = info.ModTime()
	}

	snap, err := document.Capture(raw, document.OriginLocal, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("local config invalid: %w", err)
	}
	return snap, nil
}

// overwriteLocal snapshots the current local content, then atomically
// replaces the file with the winner. No overwrite path skips the backup.
func (e *Engine) overwriteLocal(current, winner *document.Snapshot) (*backup.Record, error) {
	var record *backup.Record

	if !current.Empty() {
		e.setState(StateBackingUp)
		var err error
		record, err = e.opts.Backups.Snapshot(current.Canonical)
		if err != nil {
			return nil, fmt.Errorf("backup failed, aborting overwrite: %w", err)
		}
	}

	e.setState(StateWriting)
	if err := util.WriteFileAtomic(e.opts.ConfigPath, winner.Canonical, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write local config: %w", err)
	}

	logging.Info("updated local configuration",
		logging.Path(e.opts.ConfigPath),
		logging.Hash(winner.Hash),
	)

	return record, nil
}

// commitMetadata records the cycle outcome. lastSyncedHash advances only
// when both sides are known to hold the winning content.
func (e *Engine) commitMetadata(hash, revision string, settled bool) error {
	record := e.opts.Meta.Load()
	if settled {
		record.LastSyncedHash = hash
		record.LastSyncedAt = time.Now()
	}
	record.RemoteRevision = revision
	return e.opts.Meta.Save(record)
}

func (e *Engine) fail(err error) (*Result, error) {
	e.setState(StateFailed)
	logging.Error("reconciliation failed", logging.Err(err))
	return &Result{State: StateFailed}, err
}
