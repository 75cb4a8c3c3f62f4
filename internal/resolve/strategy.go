// Package resolve classifies divergence between the local and remote
// configuration and decides the winning content by a configurable strategy.
package resolve

// Strategy defines how a true conflict (both sides changed since the last
// common state) is decided.
type Strategy string

const (
	// StrategyNewest adopts whichever side has the later capture timestamp.
	// Ties break toward local.
	StrategyNewest Strategy = "newest"

	// StrategyOldest adopts whichever side has the earlier capture timestamp.
	// Ties break toward remote.
	StrategyOldest Strategy = "oldest"

	// StrategyLocal adopts the local side unconditionally.
	StrategyLocal Strategy = "local"

	// StrategyCloud adopts the remote side unconditionally.
	StrategyCloud Strategy = "cloud"

	// StrategyMerge structurally merges both documents one level deep,
	// recording conflict markers where values cannot be reconciled.
	StrategyMerge Strategy = "merge"

	// StrategyManual defers the decision to an external collaborator.
	StrategyManual Strategy = "manual"
)

// IsValid returns true if the strategy is recognized.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyNewest, StrategyOldest, StrategyLocal, StrategyCloud, StrategyMerge, StrategyManual:
		return true
	default:
		return false
	}
}

// AllStrategies returns all supported conflict strategies.
func AllStrategies() []Strategy {
	return []Strategy{StrategyNewest, StrategyOldest, StrategyLocal, StrategyCloud, StrategyMerge, StrategyManual}
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Description returns a human-readable description of the strategy.
func (s Strategy) Description() string {
	switch s {
	case StrategyNewest:
		return "Adopt whichever side changed most recently (ties favor local)"
	case StrategyOldest:
		return "Adopt whichever side changed least recently (ties favor remote)"
	case StrategyLocal:
		return "Always keep the local configuration"
	case StrategyCloud:
		return "Always adopt the remote configuration"
	case StrategyMerge:
		return "Merge both sides structurally, keeping local values on conflict"
	case StrategyManual:
		return "Ask for a decision on every conflict"
	default:
		return "Unknown strategy"
	}
}
