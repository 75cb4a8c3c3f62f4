package resolve

import (
	"testing"
	"time"

	"github.com/tabsync/tabsync/internal/document"
)

func snap(t *testing.T, raw string, origin document.Origin, capturedAt time.Time) *document.Snapshot {
	t.Helper()
	s, err := document.Capture([]byte(raw), origin, capturedAt)
	if err != nil {
		t.Fatalf("failed to capture snapshot: %v", err)
	}
	return s
}

func TestNewResolverRejectsUnknownStrategy(t *testing.T) {
	if _, err := NewResolver(Strategy("random")); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	r, err := NewResolver(StrategyNewest)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}
	if r.Strategy() != StrategyNewest {
		t.Errorf("Strategy() = %v, want %v", r.Strategy(), StrategyNewest)
	}
}

func TestResolveNonConflictStates(t *testing.T) {
	older := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	common := snap(t, "key: shared\n", document.OriginLocal, older)
	changed := snap(t, "key: changed\n", document.OriginRemote, newer)

	// The strategy must not matter outside true conflicts; local is a
	// deliberately destructive choice to prove the state alone decides.
	r, err := NewResolver(StrategyLocal)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	tests := []struct {
		name           string
		local          *document.Snapshot
		remote         *document.Snapshot
		lastSyncedHash string
		wantState      State
		wantHash       string
	}{
		{"in sync", common, snap(t, "key: shared\n", document.OriginRemote, newer), common.Hash, StateInSync, common.Hash},
		{"remote ahead", common, changed, common.Hash, StateRemoteAhead, changed.Hash},
		{"local ahead", changed, common, common.Hash, StateLocalAhead, changed.Hash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := r.Resolve(tt.local, tt.remote, tt.lastSyncedHash)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if decision.State != tt.wantState {
				t.Errorf("state = %v, want %v", decision.State, tt.wantState)
			}
			if decision.Result.Hash != tt.wantHash {
				t.Errorf("result hash = %s, want %s", decision.Result.Hash, tt.wantHash)
			}
			if decision.NeedsInput {
				t.Error("non-conflict decision should not need input")
			}
		})
	}
}

func TestResolveConflictStrategies(t *testing.T) {
	older := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	local := snap(t, "key: local\n", document.OriginLocal, older)
	remote := snap(t, "key: remote\n", document.OriginRemote, newer)

	tests := []struct {
		name     string
		strategy Strategy
		local    *document.Snapshot
		remote   *document.Snapshot
		wantHash string
	}{
		{"newest picks remote", StrategyNewest, local, remote, remote.Hash},
		{"newest picks local", StrategyNewest, snap(t, "key: local\n", document.OriginLocal, newer), snap(t, "key: remote\n", document.OriginRemote, older), local.Hash},
		{"newest tie keeps local", StrategyNewest, snap(t, "key: local\n", document.OriginLocal, older), snap(t, "key: remote\n", document.OriginRemote, older), local.Hash},
		{"oldest picks local", StrategyOldest, local, remote, local.Hash},
		{"oldest picks remote", StrategyOldest, snap(t, "key: local\n", document.OriginLocal, newer), snap(t, "key: remote\n", document.OriginRemote, older), remote.Hash},
		{"oldest tie keeps remote", StrategyOldest, snap(t, "key: local\n", document.OriginLocal, older), snap(t, "key: remote\n", document.OriginRemote, older), remote.Hash},
		{"local always local", StrategyLocal, local, remote, local.Hash},
		{"cloud always remote", StrategyCloud, local, remote, remote.Hash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(tt.strategy)
			if err != nil {
				t.Fatalf("NewResolver failed: %v", err)
			}

			// Empty baseline plus differing hashes forces a conflict.
			decision, err := r.Resolve(tt.local, tt.remote, "")
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if decision.State != StateConflict {
				t.Fatalf("state = %v, want %v", decision.State, StateConflict)
			}
			if decision.Result.Hash != tt.wantHash {
				t.Errorf("result hash = %s, want %s", decision.Result.Hash, tt.wantHash)
			}
		})
	}
}

func TestResolveManualNeedsInput(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	local := snap(t, "key: local\n", document.OriginLocal, now)
	remote := snap(t, "key: remote\n", document.OriginRemote, now)

	r, err := NewResolver(StrategyManual)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	decision, err := r.Resolve(local, remote, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !decision.NeedsInput {
		t.Error("manual conflict should need input")
	}
	if decision.Result != nil {
		t.Error("manual conflict should not carry a result")
	}
	if decision.Local != local || decision.Remote != remote {
		t.Error("decision should carry both sides for the external choice")
	}
}

func TestResolveMergeDeterministic(t *testing.T) {
	older := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	local := snap(t, "fontSize: 14\ntheme: dark\n", document.OriginLocal, older)
	remote := snap(t, "fontSize: 16\nshell: zsh\n", document.OriginRemote, newer)

	r, err := NewResolver(StrategyMerge)
	if err != nil {
		t.Fatalf("NewResolver failed: %v", err)
	}

	first, err := r.Resolve(local, remote, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := r.Resolve(local, remote, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if first.Result.Hash != second.Result.Hash {
		t.Error("merge of the same inputs must produce identical output")
	}
	if !first.Result.CapturedAt.Equal(newer) {
		t.Errorf("merged capture time = %v, want later input time %v", first.Result.CapturedAt, newer)
	}

	// Local wins on the conflicting scalar; disjoint keys union.
	if got := first.Result.Doc["fontSize"]; got != 14 {
		t.Errorf("fontSize = %v, want local value 14", got)
	}
	if got := first.Result.Doc["theme"]; got != "dark" {
		t.Errorf("theme = %v, want dark", got)
	}
	if got := first.Result.Doc["shell"]; got != "zsh" {
		t.Errorf("shell = %v, want zsh", got)
	}
	if len(first.Markers) != 1 || first.Markers[0] != "fontSize" {
		t.Errorf("markers = %v, want [fontSize]", first.Markers)
	}
}
