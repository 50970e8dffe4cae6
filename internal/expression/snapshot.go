package expression

import (
	"fmt"
	"sort"
	"strings"
)

// Snapshot is an immutable set of context variables supplied per call.
// The zero value is an empty snapshot.
type Snapshot struct {
	values map[string]interface{}
}

// NewSnapshot copies values into a new snapshot
func NewSnapshot(values map[string]interface{}) Snapshot {
	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Snapshot{values: copied}
}

// SnapshotFromStrings builds a snapshot from string values, as sent by transports
func SnapshotFromStrings(values map[string]string) Snapshot {
	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Snapshot{values: copied}
}

// With returns a new snapshot with name set to value. The receiver is unchanged.
func (s Snapshot) With(name string, value interface{}) Snapshot {
	copied := make(map[string]interface{}, len(s.values)+1)
	for k, v := range s.values {
		copied[k] = v
	}
	copied[name] = value
	return Snapshot{values: copied}
}

// Get returns the raw value stored under name
func (s Snapshot) Get(name string) (interface{}, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Lookup resolves a placeholder name. Unprefixed names fall back to the global "#name"
// variable. Nil and empty-string values count as absent.
func (s Snapshot) Lookup(name string) (interface{}, bool) {
	if v, ok := s.values[name]; ok && !isBlankValue(v) {
		return v, true
	}
	if !strings.HasPrefix(name, "#") && !strings.HasPrefix(name, "$") {
		if v, ok := s.values["#"+name]; ok && !isBlankValue(v) {
			return v, true
		}
	}
	return nil, false
}

// Len returns the number of variables
func (s Snapshot) Len() int {
	return len(s.values)
}

// Names returns the variable names in sorted order
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String renders the snapshot deterministically, used for cache keys
func (s Snapshot) String() string {
	var b strings.Builder
	for i, name := range s.Names() {
		if i > 0 {
			b.WriteString("&")
		}
		fmt.Fprintf(&b, "%s=%v", name, s.values[name])
	}
	return b.String()
}

func isBlankValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
