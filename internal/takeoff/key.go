package takeoff

import (
	"strconv"
	"strings"
)

// Key is the resolved grouping tuple for one material association: the
// enabled fixed fields in canonical order, then the extra parameters in
// declared order. Values are trimmed but otherwise compared verbatim
// (case-sensitive); a missing field contributes the empty-string sentinel
// so elements missing the same field group together.
type Key []string

// keySeparator joins tuple values into a map key. The unit separator
// cannot appear in model field values.
const keySeparator = "\x1f"

// buildKey assembles the grouping tuple for one material association: the
// enabled fixed-field values in canonical order, then the extra parameter
// values in declared order. Fixed values are trimmed; extras arrive already
// formatted. With no grouping at all, a hidden element/association
// discriminator keeps every association in its own row while staying
// deterministically sortable.
func buildKey(cfg Config, fixedValues map[GroupField]string, extras []string, elementID string, assocIndex int) Key {
	var key Key
	for _, f := range cfg.keyFields() {
		key = append(key, strings.TrimSpace(fixedValues[f]))
	}
	key = append(key, extras...)
	if !cfg.grouped() {
		key = append(key, elementID, strconv.Itoa(assocIndex))
	}
	return key
}

func (k Key) join() string {
	return strings.Join(k, keySeparator)
}

// Less orders keys lexicographically by tuple element, which fixes the
// output row order for reproducible exports.
func (k Key) Less(other Key) bool {
	for i := range k {
		if i >= len(other) {
			return false
		}
		if k[i] != other[i] {
			return k[i] < other[i]
		}
	}
	return len(k) < len(other)
}
