// C1: the state-value model. A StateValue is the recursive record
// representation of an active configuration described in spec §3/§4.1: a
// leaf name, a single-key record mapping a compound node's active child to
// its own sub-configuration, or a multi-key record holding every region of
// an active parallel node. The three shapes share one Go representation: a
// leaf carries only a name, everything else carries a children map (of
// length one for a compound, of length N for a parallel's N regions).
package core

import (
	"fmt"
	"sort"
	"strings"
)

// StateValue is an immutable-by-convention value: callers must not mutate a
// children map obtained from one; use Clone to get an independent copy.
type StateValue struct {
	leaf     string
	children map[string]StateValue
}

// Leaf builds a StateValue denoting "currently exactly this named atomic (or
// otherwise terminal) node", with no further nested configuration.
func Leaf(name string) StateValue {
	return StateValue{leaf: name}
}

// Node builds a StateValue from a children map: one entry for a compound
// node's single active child, or one entry per region of a parallel node.
func Node(children map[string]StateValue) StateValue {
	return StateValue{children: children}
}

// IsLeaf reports whether v is a bare leaf name with no further structure.
func (v StateValue) IsLeaf() bool {
	return len(v.children) == 0
}

// LeafName returns v's leaf name and true, if v IsLeaf.
func (v StateValue) LeafName() (string, bool) {
	if v.IsLeaf() {
		return v.leaf, true
	}
	return "", false
}

// Children returns v's children map. Do not mutate the result; it may be
// shared with other StateValues.
func (v StateValue) Children() map[string]StateValue {
	return v.children
}

// EncodePath builds the StateValue that a root-to-leaf path denotes: the
// last segment becomes a leaf, every preceding segment wraps it in a
// single-key Node. EncodePath(nil) returns the zero StateValue.
func EncodePath(path []string) StateValue {
	if len(path) == 0 {
		return StateValue{}
	}
	if len(path) == 1 {
		return Leaf(path[0])
	}
	return Node(map[string]StateValue{path[0]: EncodePath(path[1:])})
}

// Paths decodes v into its set of root-to-leaf paths, each a slice of
// segment names relative to v's own position in the tree. Results are
// ordered deterministically by segment name so callers get stable output
// for a fixed v (spec P-5 requires determinism under injection).
func (v StateValue) Paths() [][]string {
	if v.IsLeaf() {
		return [][]string{{v.leaf}}
	}
	names := sortedKeys(v.children)
	var out [][]string
	for _, name := range names {
		for _, sub := range v.children[name].Paths() {
			full := make([]string, 0, len(sub)+1)
			full = append(full, name)
			full = append(full, sub...)
			out = append(out, full)
		}
	}
	return out
}

// PathStrings is Paths rendered as dot-joined strings.
func (v StateValue) PathStrings() []string {
	paths := v.Paths()
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = strings.Join(p, ".")
	}
	return out
}

// NodeSet returns every active path in v, including every leaf and every
// strict prefix of every leaf (spec §3: "active node set").
func (v StateValue) NodeSet() map[string]bool {
	out := make(map[string]bool)
	for _, p := range v.Paths() {
		for i := range p {
			out[strings.Join(p[:i+1], ".")] = true
		}
	}
	return out
}

// Merge combines a list of disjoint StateValues (e.g. the untouched regions
// of a parallel state plus a newly resolved region) into one. A single
// value is returned unchanged, including a bare leaf. Merging more than one
// value requires every value to be a Node (not a leaf) with pairwise
// disjoint top-level keys; any violation is an error, since it would mean
// two sources disagree about which child of the same node is active.
func Merge(values ...StateValue) (StateValue, error) {
	switch len(values) {
	case 0:
		return StateValue{}, nil
	case 1:
		return values[0], nil
	}
	merged := make(map[string]StateValue)
	for _, v := range values {
		if v.IsLeaf() {
			return StateValue{}, fmt.Errorf("statevalue: cannot merge leaf %q alongside sibling values", v.leaf)
		}
		for k, child := range v.children {
			if _, exists := merged[k]; exists {
				return StateValue{}, fmt.Errorf("statevalue: duplicate key %q across merged values", k)
			}
			merged[k] = child
		}
	}
	return Node(merged), nil
}

// Matches reports whether the dotted-string query is a prefix of some
// active path in v (spec §4.1, Snapshot.matches). An empty query always
// matches.
func (v StateValue) Matches(query string) bool {
	if query == "" {
		return true
	}
	return v.NodeSet()[query]
}

// MatchesValue reports whether every path reachable in the nested-record
// query is a prefix of some active path in v.
func (v StateValue) MatchesValue(query StateValue) bool {
	nodeSet := v.NodeSet()
	for _, p := range queryPaths(query, nil) {
		if !nodeSet[strings.Join(p, ".")] {
			return false
		}
	}
	return true
}

// queryPaths walks a (possibly partial) query value, treating any node with
// no children as terminal even if it is not a true leaf, so a query can name
// an interior node without having to specify a full path to one of its
// descendants.
func queryPaths(v StateValue, prefix []string) [][]string {
	if v.IsLeaf() && v.leaf != "" {
		return [][]string{append(append([]string{}, prefix...), v.leaf)}
	}
	if len(v.children) == 0 {
		if len(prefix) == 0 {
			return nil
		}
		return [][]string{append([]string{}, prefix...)}
	}
	var out [][]string
	for _, name := range sortedKeys(v.children) {
		childPrefix := append(append([]string{}, prefix...), name)
		out = append(out, queryPaths(v.children[name], childPrefix)...)
	}
	return out
}

// Clone returns an independent deep copy of v, safe to store in a history
// entry or hand to a caller that might otherwise alias v's internal maps.
func (v StateValue) Clone() StateValue {
	if v.IsLeaf() {
		return Leaf(v.leaf)
	}
	if v.children == nil {
		return StateValue{}
	}
	out := make(map[string]StateValue, len(v.children))
	for k, child := range v.children {
		out[k] = child.Clone()
	}
	return Node(out)
}

// Equal reports deep structural equality between two StateValues.
func (v StateValue) Equal(other StateValue) bool {
	if v.IsLeaf() != other.IsLeaf() {
		return false
	}
	if v.IsLeaf() {
		return v.leaf == other.leaf
	}
	if len(v.children) != len(other.children) {
		return false
	}
	for k, child := range v.children {
		oc, ok := other.children[k]
		if !ok || !child.Equal(oc) {
			return false
		}
	}
	return true
}

func (v StateValue) String() string {
	if v.IsLeaf() {
		return v.leaf
	}
	names := sortedKeys(v.children)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s:%s", n, v.children[n])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func sortedKeys(m map[string]StateValue) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
