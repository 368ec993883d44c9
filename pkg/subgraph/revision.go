package subgraph

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/soundprediction/blockgraph/pkg/temporal"
)

// RevisionKey selects one revision of a vertex, or one as-of entry of an edge list.
// Ontology types use their numeric version; temporal entities use an RFC 3339 timestamp.
type RevisionKey string

// RevisionKeyFromVersion formats an ontology version.
func RevisionKeyFromVersion(version uint32) RevisionKey {
	return RevisionKey(strconv.FormatUint(uint64(version), 10))
}

// RevisionKeyFromTime formats a timestamp in UTC with nanosecond precision.
func RevisionKeyFromTime(t time.Time) RevisionKey {
	return RevisionKey(t.UTC().Format(time.RFC3339Nano))
}

// RevisionKeyFromBound keys a start bound by its limit, or the zero time when unbounded.
func RevisionKeyFromBound(b temporal.Bound) RevisionKey {
	if b.IsUnbounded() {
		return RevisionKeyFromTime(time.Time{})
	}
	return RevisionKeyFromTime(b.Limit)
}

// Version parses the key as an ontology version.
func (k RevisionKey) Version() (uint64, bool) {
	v, err := strconv.ParseUint(string(k), 10, 64)
	return v, err == nil
}

// Time parses the key as an RFC 3339 timestamp.
func (k RevisionKey) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, string(k))
	return t, err == nil
}

// Canonical returns the form the key is stored under. Timestamps are reformatted
// with RevisionKeyFromTime so every spelling of one instant maps to one key;
// versions and other keys are returned unchanged.
func (k RevisionKey) Canonical() RevisionKey {
	if _, ok := k.Version(); ok {
		return k
	}
	if t, ok := k.Time(); ok {
		return RevisionKeyFromTime(t)
	}
	return k
}

// UnmarshalText canonicalises keys decoded from JSON, as map keys and as values.
func (k *RevisionKey) UnmarshalText(text []byte) error {
	*k = RevisionKey(text).Canonical()
	return nil
}

// CompareRevisionKeys orders two keys. Numeric keys compare as numbers and
// timestamp keys as instants; mixed or unrecognised keys fall back to byte order.
func CompareRevisionKeys(a, b RevisionKey) int {
	if av, ok := a.Version(); ok {
		if bv, ok := b.Version(); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	}
	if at, ok := a.Time(); ok {
		if bt, ok := b.Time(); ok {
			if c := at.Compare(bt); c != 0 {
				return c
			}
		}
	}
	return strings.Compare(string(a), string(b))
}

// sortedKeys returns the keys of m in ascending revision order.
func sortedKeys[V any](m map[RevisionKey]V) []RevisionKey {
	keys := make([]RevisionKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortRevisionKeys(keys)
	return keys
}

func sortRevisionKeys(keys []RevisionKey) {
	slices.SortFunc(keys, CompareRevisionKeys)
}
