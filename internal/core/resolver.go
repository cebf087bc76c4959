// C3: the transition resolver. Selects the transition(s) an incoming event
// fires across the active path set, computes the Least Common Ancestor of
// each selected transition's source and resolved target, and derives the
// exit set (deepest first) and entry set (shallowest first) between them
// (spec §4.3). Grounded on the teacher's internal/core/interpreter.go
// (computeLCCA, getExitStates, getEntryStates, candidateTransition),
// generalised from a single active leaf to a full active-path-set walk
// across parallel regions.
package core

import (
	"sort"
	"strings"

	"github.com/nullstyle/ustate/internal/primitives"
)

// SelectedTransition describes one fired transition: where it was found,
// its descriptor, and (once resolved) its LCA/exit/entry sets.
type SelectedTransition struct {
	SourcePath string
	Descriptor primitives.TransitionDescriptor
	// Internal is true for a target-less descriptor: actions run with no
	// exit/entry set computed (spec §4.3 "Internal transitions").
	Internal bool

	LCAPath  string
	ExitSet  []string // deepest-first
	EntrySet []string // shallowest-first
	NextValue StateValue
}

// Resolver selects and resolves transitions against one MachineDefinition.
type Resolver struct {
	def     *primitives.MachineDefinition
	targets *TargetResolver
}

// NewResolver builds a Resolver for def, using hist for history resolution.
func NewResolver(def *primitives.MachineDefinition, hist *HistoryStore) *Resolver {
	return &Resolver{def: def, targets: NewTargetResolver(def, hist)}
}

// SelectEvent implements the §4.3 selection rule for an external or
// eventless event against the current configuration: for every active path,
// walk from its deepest node to the root, and take the first path×level
// whose `on` map holds a descriptor list containing a guard-passing entry.
// Distinct active paths (regions of a parallel state) each select
// independently and are returned as separate transitions, applied within
// the same macro-step; root-level global `on` transitions are consulted
// only when nothing in the active node set handles the event.
func (r *Resolver) SelectEvent(current StateValue, ctx *primitives.Context, event primitives.Event, impls primitives.Implementations) []SelectedTransition {
	var out []SelectedTransition
	handledAnyPath := false
	seenSource := make(map[string]bool)

	for _, path := range current.Paths() {
		trans, found := r.selectAlongPath(path, event, ctx, impls)
		if found {
			handledAnyPath = true
			// A shared ancestor above two sibling regions can be reached by
			// more than one active path; it is the same transition and must
			// fire once, not once per path that reaches it.
			if !seenSource[trans.SourcePath] {
				seenSource[trans.SourcePath] = true
				out = append(out, trans)
			}
		}
	}
	if handledAnyPath {
		return out
	}

	if descList, ok := r.def.On[event.Type]; ok {
		if desc, ok := firstGuardedDescriptor(descList, ctx, event, impls); ok {
			out = append(out, r.resolveSelected("", desc, current))
		}
	}
	return out
}

// selectAlongPath walks one active leaf path from its deepest node to the
// root looking for the first level whose `on` map has a guard-passing
// descriptor for event.Type.
func (r *Resolver) selectAlongPath(path []string, event primitives.Event, ctx *primitives.Context, impls primitives.Implementations) (SelectedTransition, bool) {
	for level := len(path); level >= 1; level-- {
		nodePath := strings.Join(path[:level], ".")
		node, err := r.def.FindState(nodePath)
		if err != nil {
			continue
		}
		descList, ok := node.On[event.Type]
		if !ok {
			continue
		}
		desc, ok := firstGuardedDescriptor(descList, ctx, event, impls)
		if !ok {
			continue
		}
		return r.resolveSelected(nodePath, desc, StateValue{}), true
	}
	return SelectedTransition{}, false
}

// SelectAlways implements one eventless-closure iteration: it evaluates
// `always` descriptors region-by-region (one candidate at most per active
// leaf path, found by walking that path's own ancestors, never crossing
// into a different region) rather than interleaving across regions within
// the iteration (spec §9 Open Questions, required for P-5).
func (r *Resolver) SelectAlways(current StateValue, ctx *primitives.Context, impls primitives.Implementations) []SelectedTransition {
	var out []SelectedTransition
	for _, path := range current.Paths() {
		for level := len(path); level >= 1; level-- {
			nodePath := strings.Join(path[:level], ".")
			node, err := r.def.FindState(nodePath)
			if err != nil {
				continue
			}
			if len(node.Always) == 0 {
				continue
			}
			desc, ok := firstGuardedDescriptor(node.Always, ctx, primitives.Event{Type: "$$always"}, impls)
			if !ok {
				continue
			}
			out = append(out, r.resolveSelected(nodePath, desc, StateValue{}))
			break
		}
	}
	return out
}

// SelectDelay resolves the single transition a fired `(path, key)` delay
// should execute, if the path is still active and still declares the delay.
func (r *Resolver) SelectDelay(current StateValue, path, key string, ctx *primitives.Context, impls primitives.Implementations) (SelectedTransition, bool) {
	if !current.NodeSet()[path] {
		return SelectedTransition{}, false
	}
	node, err := r.def.FindState(path)
	if err != nil {
		return SelectedTransition{}, false
	}
	descList, ok := node.After[key]
	if !ok {
		return SelectedTransition{}, false
	}
	desc, ok := firstGuardedDescriptor(descList, ctx, primitives.Event{Type: "$delay." + path + "." + key}, impls)
	if !ok {
		return SelectedTransition{}, false
	}
	return r.resolveSelected(path, desc, StateValue{}), true
}

func firstGuardedDescriptor(list []primitives.TransitionDescriptor, ctx *primitives.Context, event primitives.Event, impls primitives.Implementations) (primitives.TransitionDescriptor, bool) {
	for _, desc := range list {
		guard, _ := impls.ResolveGuard(desc.Guard)
		if guard(ctx, event) {
			return desc, true
		}
	}
	return primitives.TransitionDescriptor{}, false
}

// resolveSelected fills in Internal (no target) without computing
// LCA/exit/entry/NextValue; those require the caller to also know the
// current full configuration, supplied via Resolve.
func (r *Resolver) resolveSelected(sourcePath string, desc primitives.TransitionDescriptor, _ StateValue) SelectedTransition {
	return SelectedTransition{
		SourcePath: sourcePath,
		Descriptor: desc,
		Internal:   desc.Target == "",
	}
}

// Resolve fills in a SelectedTransition's LCA, exit set, entry set and next
// configuration, given the full current configuration. Internal transitions
// are returned unchanged (no exit/entry set, no configuration change).
func (r *Resolver) Resolve(current StateValue, t SelectedTransition) (SelectedTransition, error) {
	if t.Internal {
		return t, nil
	}

	abs, err := r.targets.ResolveAbsolute(t.SourcePath, t.Descriptor.Target)
	if err != nil {
		return SelectedTransition{}, err
	}

	lca := computeLCA(t.SourcePath, abs)
	next, err := r.targets.ResolveNextValue(current, t.SourcePath, lca, t.Descriptor.Target)
	if err != nil {
		return SelectedTransition{}, err
	}

	t.LCAPath = lca
	t.ExitSet = exitSet(current, lca)
	t.EntrySet = entrySet(next, lca)
	t.NextValue = next
	return t, nil
}

// computeLCA returns the Least Common Ancestor path of source and target. A
// self-transition (target == source) is treated as exiting the source
// itself: the LCA is the source's parent, so compound self-transitions
// re-initialise their children (spec §4.3 "restart semantics").
func computeLCA(sourcePath, targetPath string) string {
	if sourcePath == targetPath {
		parent, err := parentOf(sourcePath)
		if err != nil {
			return ""
		}
		return parent
	}

	source := strings.Split(sourcePath, ".")
	target := strings.Split(targetPath, ".")

	minLen := len(source)
	if len(target) < minLen {
		minLen = len(target)
	}
	i := 0
	for i < minLen && source[i] == target[i] {
		i++
	}
	if i == 0 {
		return ""
	}
	return strings.Join(source[:i], ".")
}

// exitSet returns every node in current's active node set that is a strict
// descendant of lca, deepest-first. Nodes at equal depth (e.g. two parallel
// regions exited together) are ordered lexically by path before the depth
// sort, so a node set drawn from the unordered NodeSet() map always yields
// the same exit order (spec §5 "each region's actions run in region
// declaration order").
func exitSet(current StateValue, lca string) []string {
	var out []string
	for path := range current.NodeSet() {
		if isStrictDescendant(path, lca) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	sortByDepthDesc(out)
	return out
}

// entrySet returns every node in next's active node set that is a strict
// descendant of lca, shallowest-first, with the same lexical tie-break as
// exitSet.
func entrySet(next StateValue, lca string) []string {
	var out []string
	for path := range next.NodeSet() {
		if isStrictDescendant(path, lca) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	sortByDepthAsc(out)
	return out
}

func isStrictDescendant(path, lca string) bool {
	if path == lca {
		return false
	}
	if lca == "" {
		return true
	}
	return strings.HasPrefix(path, lca+".")
}

func sortByDepthAsc(paths []string) {
	sortByDepth(paths, true)
}

func sortByDepthDesc(paths []string) {
	sortByDepth(paths, false)
}

func sortByDepth(paths []string, ascending bool) {
	depth := func(p string) int { return strings.Count(p, ".") }
	// insertion sort: exit/entry sets are small (bounded by tree depth), and
	// a stable sort preserves document order among nodes at equal depth.
	for i := 1; i < len(paths); i++ {
		j := i
		for j > 0 {
			a, b := depth(paths[j-1]), depth(paths[j])
			swap := a > b
			if !ascending {
				swap = a < b
			}
			if !swap {
				break
			}
			paths[j-1], paths[j] = paths[j], paths[j-1]
			j--
		}
	}
}
