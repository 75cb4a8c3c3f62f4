package resolve

// State classifies the divergence between local and remote content
// relative to the last known common state.
type State string

const (
	// StateInSync means local and remote content are identical.
	StateInSync State = "in-sync"

	// StateRemoteAhead means only the remote changed since the last sync;
	// it is adopted unconditionally.
	StateRemoteAhead State = "remote-ahead"

	// StateLocalAhead means only the local side changed since the last
	// sync; it is adopted unconditionally.
	StateLocalAhead State = "local-ahead"

	// StateConflict means both sides changed independently since the last
	// common state. Only here does the strategy apply.
	StateConflict State = "conflict"
)

// Classify compares content hashes against the last synced hash.
// An empty lastSyncedHash (first run) means neither side can be proven
// unchanged, so any difference is a conflict.
func Classify(localHash, remoteHash, lastSyncedHash string) State {
	if localHash == remoteHash {
		return StateInSync
	}
	if lastSyncedHash != "" {
		if localHash == lastSyncedHash {
			return StateRemoteAhead
		}
		if remoteHash == lastSyncedHash {
			return StateLocalAhead
		}
	}
	return StateConflict
}
