// C4: the target resolver. Given a raw transition target (absolute,
// relative/sibling, or a history reference) it produces the fully expanded
// StateValue the transition enters, merges it with the untouched regions of
// the prior configuration, and autocompletes any parallel node whose
// regions are not all present (spec §4.4). Grounded on the teacher's
// internal/core/interpreter.go (resolveInitialLeaf) and historymanager.go,
// generalised from a single active leaf to full parallel/history support.
package core

import (
	"fmt"
	"strings"

	"github.com/nullstyle/ustate/internal/primitives"
)

// TargetResolver resolves transition targets against one MachineDefinition
// and history store.
type TargetResolver struct {
	def     *primitives.MachineDefinition
	history *HistoryStore
}

// NewTargetResolver builds a resolver for def, consulting hist for history
// node restoration.
func NewTargetResolver(def *primitives.MachineDefinition, hist *HistoryStore) *TargetResolver {
	return &TargetResolver{def: def, history: hist}
}

// ResolveAbsolute resolves a possibly relative/sibling target string to an
// absolute dotted path, searching upward from sourcePath's ancestors for one
// whose parent scope contains a child named by the target's first segment;
// falling through to the machine root (spec §4.4).
func (r *TargetResolver) ResolveAbsolute(sourcePath, target string) (string, error) {
	if target == "" {
		return "", fmt.Errorf("target: empty transition target")
	}
	firstSeg := target
	if idx := strings.IndexByte(target, '.'); idx >= 0 {
		firstSeg = target[:idx]
	}

	segs := strings.Split(sourcePath, ".")
	for end := len(segs); end >= 1; end-- {
		scopePath := strings.Join(segs[:end], ".")
		parentPath, err := parentOf(scopePath)
		if err != nil {
			continue
		}
		children := r.childrenAt(parentPath)
		if _, ok := children[firstSeg]; ok {
			if parentPath == "" {
				return target, nil
			}
			return parentPath + "." + target, nil
		}
	}
	if _, ok := r.def.States[firstSeg]; ok {
		return target, nil
	}
	return "", fmt.Errorf("invalid-config: cannot resolve target %q relative to %q", target, sourcePath)
}

// ResolveTargetValue expands an absolute target path into the StateValue it
// denotes, plus the path at which that value must be substituted into the
// overall configuration. For atomic/compound/parallel targets this is the
// target path itself; for a history target it is the history node's parent,
// since entering history re-activates the parent's restored children, not
// the pseudo-state itself.
func (r *TargetResolver) ResolveTargetValue(path string) (effectivePath string, value StateValue, err error) {
	node, err := r.def.FindState(path)
	if err != nil {
		return "", StateValue{}, err
	}
	if node.Kind == primitives.History {
		parentPath, perr := parentOf(path)
		if perr != nil {
			return "", StateValue{}, fmt.Errorf("invalid-config: history node %q has no parent", path)
		}
		val, herr := r.expandHistory(path, node, parentPath)
		if herr != nil {
			return "", StateValue{}, herr
		}
		return parentPath, val, nil
	}
	val, eerr := r.Expand(path)
	if eerr != nil {
		return "", StateValue{}, eerr
	}
	return path, val, nil
}

// Expand recursively resolves path's own configuration: an atomic node
// expands to its bare leaf name; a compound node follows `initial`; a
// parallel node expands every region; a history node restores or falls back
// per ResolveTargetValue's rules (reachable here only when a history node is
// itself named as an `initial` or parallel region, which is unusual but not
// forbidden).
func (r *TargetResolver) Expand(path string) (StateValue, error) {
	node, err := r.def.FindState(path)
	if err != nil {
		return StateValue{}, err
	}
	switch node.Kind {
	case primitives.Atomic:
		return Leaf(lastSegment(path)), nil
	case primitives.Compound:
		if node.Initial == "" {
			return StateValue{}, fmt.Errorf("invalid-config: compound %q has no initial", path)
		}
		sub, err := r.Expand(joinPath(path, node.Initial))
		if err != nil {
			return StateValue{}, err
		}
		return wrapOwn(node.Initial, sub), nil
	case primitives.Parallel:
		regions := make(map[string]StateValue, len(node.Children))
		for childID := range node.Children {
			sub, err := r.Expand(joinPath(path, childID))
			if err != nil {
				return StateValue{}, err
			}
			regions[childID] = sub
		}
		return Node(regions), nil
	case primitives.History:
		parentPath, perr := parentOf(path)
		if perr != nil {
			return StateValue{}, fmt.Errorf("invalid-config: history node %q has no parent", path)
		}
		return r.expandHistory(path, node, parentPath)
	default:
		return StateValue{}, fmt.Errorf("invalid-config: unknown state kind at %q", path)
	}
}

func (r *TargetResolver) expandHistory(histPath string, node *primitives.StateNode, parentPath string) (StateValue, error) {
	if stored, ok := r.history.Get(parentPath); ok {
		switch node.History {
		case primitives.DeepHistory:
			return stored.Clone(), nil
		case primitives.ShallowHistory:
			return r.projectShallow(parentPath, stored)
		default:
			return StateValue{}, fmt.Errorf("invalid-config: history node %q has no history flavor", histPath)
		}
	}
	if node.Target != "" {
		abs, err := r.ResolveAbsolute(histPath, node.Target)
		if err != nil {
			return StateValue{}, err
		}
		if !strings.HasPrefix(abs, parentPath+".") {
			return StateValue{}, fmt.Errorf("invalid-config: history node %q's target %q does not stay within its parent", histPath, abs)
		}
		rel := abs[len(parentPath)+1:]
		val, eerr := r.Expand(abs)
		if eerr != nil {
			return StateValue{}, eerr
		}
		return wrapChain(strings.Split(rel, "."), val), nil
	}
	parentNode, err := r.def.FindState(parentPath)
	if err != nil {
		return StateValue{}, err
	}
	if parentNode.Initial == "" {
		return StateValue{}, fmt.Errorf("invalid-config: history node %q's parent has no initial to fall back to", histPath)
	}
	return r.Expand(parentPath)
}

// projectShallow re-resolves every compound descendant of stored via its
// own `initial`, discarding the deeper structure stored actually held (spec
// §4.4 "shallow keeps only the immediate child identity... re-resolving it
// via initial").
func (r *TargetResolver) projectShallow(path string, stored StateValue) (StateValue, error) {
	if stored.IsLeaf() {
		return stored, nil
	}
	out := make(map[string]StateValue, len(stored.Children()))
	for name := range stored.Children() {
		childPath := joinPath(path, name)
		node, err := r.def.FindState(childPath)
		if err != nil {
			return StateValue{}, err
		}
		sub, err := r.Expand(childPath)
		if err != nil {
			return StateValue{}, err
		}
		_ = node
		out[name] = sub
	}
	return Node(out), nil
}

// ResolveNextValue computes the full next configuration given the prior
// configuration, the LCA path at which the transition's exit/entry sets are
// rooted, and the raw (possibly relative or history) target string. It
// merges the newly entered subtree with untouched sibling regions at the
// LCA and autocompletes any parallel node left with missing regions.
func (r *TargetResolver) ResolveNextValue(prior StateValue, sourcePath, lcaPath, rawTarget string) (StateValue, error) {
	abs, err := r.ResolveAbsolute(sourcePath, rawTarget)
	if err != nil {
		return StateValue{}, err
	}
	effectivePath, leafVal, err := r.ResolveTargetValue(abs)
	if err != nil {
		return StateValue{}, err
	}

	newLCAValue, err := r.buildLCAValue(prior, lcaPath, effectivePath, leafVal)
	if err != nil {
		return StateValue{}, err
	}

	merged, err := ReplaceAt(prior, lcaPath, newLCAValue)
	if err != nil {
		return StateValue{}, err
	}
	return r.Autocomplete(merged)
}

// buildLCAValue builds the value to be substituted at lcaPath: the chain of
// newly entered nodes from lcaPath down to effectivePath, merged with any
// untouched sibling regions if lcaPath names a parallel node.
func (r *TargetResolver) buildLCAValue(prior StateValue, lcaPath, effectivePath string, leafVal StateValue) (StateValue, error) {
	if lcaPath == effectivePath {
		return leafVal, nil
	}
	if lcaPath != "" && !strings.HasPrefix(effectivePath, lcaPath+".") {
		return StateValue{}, fmt.Errorf("target: resolved target %q is not a descendant of lca %q", effectivePath, lcaPath)
	}
	remainder := effectivePath
	if lcaPath != "" {
		remainder = effectivePath[len(lcaPath)+1:]
	}
	segs := strings.Split(remainder, ".")

	if lcaPath == "" {
		return wrapChain(segs, leafVal), nil
	}

	lcaNode, err := r.def.FindState(lcaPath)
	if err != nil {
		return StateValue{}, err
	}
	enteredKey := segs[0]
	enteredVal := leafVal
	for i := len(segs) - 1; i >= 1; i-- {
		enteredVal = wrapOwn(segs[i], enteredVal)
	}

	if lcaNode.Kind != primitives.Parallel {
		return wrapOwn(enteredKey, enteredVal), nil
	}

	priorAtLCA, err := NavigateTo(prior, lcaPath)
	if err != nil {
		return StateValue{}, err
	}
	merged := make(map[string]StateValue, len(priorAtLCA.Children())+1)
	for k, v := range priorAtLCA.Children() {
		merged[k] = v
	}
	merged[enteredKey] = enteredVal
	return Node(merged), nil
}

// wrapOwn wraps sub under key name, representing "name is active and sub is
// name's own recursively-expanded configuration" (spec §4.1's single-key
// Node convention). When sub is already the bare Leaf(name) - i.e. name
// itself is the terminal atomic node, with nothing beneath it - wrapping
// again would duplicate name as both the map key and the leaf's own name,
// so this returns sub unchanged instead.
func wrapOwn(name string, sub StateValue) StateValue {
	if leafName, ok := sub.LeafName(); ok && leafName == name {
		return sub
	}
	return Node(map[string]StateValue{name: sub})
}

// wrapChain builds the nested-map chain segs[0]->segs[1]->...->leafVal,
// collapse-aware at every level (used for the lcaPath=="" case, where the
// entered root-level state has no enclosing key of its own to collapse
// into, and for a history node's explicit default target).
func wrapChain(segs []string, leafVal StateValue) StateValue {
	value := leafVal
	for i := len(segs) - 1; i >= 1; i-- {
		value = wrapOwn(segs[i], value)
	}
	return wrapOwn(segs[0], value)
}

// Autocomplete walks value against the machine tree, inserting any missing
// region of a parallel node using that region's `initial` resolution.
func (r *TargetResolver) Autocomplete(value StateValue) (StateValue, error) {
	return r.autocompleteAt("", value)
}

func (r *TargetResolver) autocompleteAt(path string, v StateValue) (StateValue, error) {
	if v.IsLeaf() {
		return v, nil
	}
	out := make(map[string]StateValue, len(v.Children()))
	for name, sub := range v.Children() {
		fixed, err := r.autocompleteAt(joinPath(path, name), sub)
		if err != nil {
			return StateValue{}, err
		}
		out[name] = fixed
	}
	if path != "" {
		node, err := r.def.FindState(path)
		if err == nil && node.Kind == primitives.Parallel {
			for regionID := range node.Children {
				if _, ok := out[regionID]; !ok {
					expanded, eerr := r.Expand(joinPath(path, regionID))
					if eerr != nil {
						return StateValue{}, eerr
					}
					out[regionID] = expanded
				}
			}
		}
	}
	return Node(out), nil
}

func (r *TargetResolver) childrenAt(path string) map[string]*primitives.StateNode {
	if path == "" {
		return r.def.States
	}
	node, err := r.def.FindState(path)
	if err != nil {
		return nil
	}
	return node.Children
}

// NavigateTo returns the sub-StateValue of root found by walking path.
func NavigateTo(root StateValue, path string) (StateValue, error) {
	if path == "" {
		return root, nil
	}
	cur := root
	for _, seg := range strings.Split(path, ".") {
		children := cur.Children()
		if children == nil {
			return StateValue{}, fmt.Errorf("target: cannot navigate into leaf state at %q", path)
		}
		child, ok := children[seg]
		if !ok {
			return StateValue{}, fmt.Errorf("target: %q is not active", path)
		}
		cur = child
	}
	return cur, nil
}

// ReplaceAt returns a copy of root with the sub-value at path replaced by
// newSub. path must be a navigable prefix of root (every ancestor of path
// already active); this always holds for an LCA, which is by construction
// common to both the exiting and entering branches.
func ReplaceAt(root StateValue, path string, newSub StateValue) (StateValue, error) {
	if path == "" {
		return newSub, nil
	}
	return replaceSegs(root, strings.Split(path, "."), newSub)
}

func replaceSegs(v StateValue, segs []string, newSub StateValue) (StateValue, error) {
	children := v.Children()
	if children == nil {
		return StateValue{}, fmt.Errorf("target: cannot descend into leaf state to replace %q", strings.Join(segs, "."))
	}
	head := segs[0]
	child, ok := children[head]
	if !ok {
		return StateValue{}, fmt.Errorf("target: path segment %q is not active", head)
	}
	var replaced StateValue
	var err error
	if len(segs) == 1 {
		replaced = newSub
	} else {
		replaced, err = replaceSegs(child, segs[1:], newSub)
		if err != nil {
			return StateValue{}, err
		}
	}
	out := make(map[string]StateValue, len(children))
	for k, c := range children {
		out[k] = c
	}
	out[head] = replaced
	return Node(out), nil
}

func parentOf(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("target: root has no parent")
	}
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return "", nil
	}
	return path[:idx], nil
}

func joinPath(path, seg string) string {
	if path == "" {
		return seg
	}
	return path + "." + seg
}

func lastSegment(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}
