package resolve

import (
	"reflect"
	"sort"

	"github.com/tabsync/tabsync/internal/document"
)

// mergeDocuments structurally merges remote into local at one level of
// nesting. For each top-level key present in either document: keep keys
// present on only one side; keep equal values; on differing scalar values
// keep the local value and record a conflict marker; recurse exactly one
// level into mappings present on both sides, where deeper differences are
// compared as whole subtrees under the same marker rule. The merge is
// bounded and deterministic for a given input pair.
func mergeDocuments(local, remote document.Document) (document.Document, []string) {
	merged := document.Document{}
	var markers []string

	for _, key := range unionKeys(local, remote) {
		localVal, inLocal := local[key]
		remoteVal, inRemote := remote[key]

		switch {
		case !inRemote:
			merged[key] = localVal
		case !inLocal:
			merged[key] = remoteVal
		case valuesEqual(localVal, remoteVal):
			merged[key] = localVal
		default:
			localMap, localIsMap := localVal.(map[string]any)
			remoteMap, remoteIsMap := remoteVal.(map[string]any)
			if localIsMap && remoteIsMap {
				sub, subMarkers := mergeNested(localMap, remoteMap, key)
				merged[key] = sub
				markers = append(markers, subMarkers...)
			} else {
				// Differing scalars (or mixed shapes): local wins
				// provisionally, with a marker.
				merged[key] = localVal
				markers = append(markers, key)
			}
		}
	}

	return merged, markers
}

// mergeNested merges one nested mapping level. No further recursion:
// differences below this level are whole-subtree comparisons.
func mergeNested(local, remote map[string]any, prefix string) (map[string]any, []string) {
	merged := make(map[string]any, len(local)+len(remote))
	var markers []string

	for _, key := range unionKeys(local, remote) {
		localVal, inLocal := local[key]
		remoteVal, inRemote := remote[key]

		switch {
		case !inRemote:
			merged[key] = localVal
		case !inLocal:
			merged[key] = remoteVal
		case valuesEqual(localVal, remoteVal):
			merged[key] = localVal
		default:
			merged[key] = localVal
			markers = append(markers, prefix+"."+key)
		}
	}

	return merged, markers
}

// unionKeys returns the sorted union of both key sets, which fixes the
// iteration order and keeps merge output deterministic.
func unionKeys[M ~map[string]any](a, b M) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
