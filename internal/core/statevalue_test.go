package core

import (
	"reflect"
	"sort"
	"testing"
)

func TestStateValueLeafAndNode(t *testing.T) {
	leaf := Leaf("idle")
	if !leaf.IsLeaf() {
		t.Fatal("Leaf should report IsLeaf")
	}
	name, ok := leaf.LeafName()
	if !ok || name != "idle" {
		t.Errorf("LeafName() = %q, %v; want idle, true", name, ok)
	}

	node := Node(map[string]StateValue{"a": Leaf("x"), "b": Leaf("y")})
	if node.IsLeaf() {
		t.Fatal("Node should not report IsLeaf")
	}
	if _, ok := node.LeafName(); ok {
		t.Error("LeafName on a Node should return false")
	}
}

func TestStateValuePathsAndNodeSet(t *testing.T) {
	v := Node(map[string]StateValue{
		"regionA": Node(map[string]StateValue{"child": Leaf("a1")}),
		"regionB": Leaf("b1"),
	})

	paths := v.PathStrings()
	sort.Strings(paths)
	want := []string{"regionA.child.a1", "regionB.b1"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("PathStrings() = %v, want %v", paths, want)
	}

	nodeSet := v.NodeSet()
	for _, p := range []string{"regionA", "regionA.child", "regionB"} {
		if !nodeSet[p] {
			t.Errorf("NodeSet missing %q", p)
		}
	}
}

func TestEncodePath(t *testing.T) {
	v := EncodePath([]string{"a", "b", "c"})
	if got := v.PathStrings(); len(got) != 1 || got[0] != "a.b.c" {
		t.Errorf("EncodePath round-trip = %v", got)
	}
	if got := EncodePath(nil); !got.Equal(StateValue{}) {
		t.Errorf("EncodePath(nil) = %v, want zero value", got)
	}
}

func TestStateValueMerge(t *testing.T) {
	a := Node(map[string]StateValue{"regionA": Leaf("x")})
	b := Node(map[string]StateValue{"regionB": Leaf("y")})

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(merged.Children()) != 2 {
		t.Errorf("got %d merged children, want 2", len(merged.Children()))
	}

	if _, err := Merge(Leaf("solo"), b); err == nil {
		t.Error("merging a leaf alongside a sibling should error")
	}

	dup := Node(map[string]StateValue{"regionA": Leaf("z")})
	if _, err := Merge(a, dup); err == nil {
		t.Error("merging values with a duplicate top-level key should error")
	}

	single, err := Merge(a)
	if err != nil || !single.Equal(a) {
		t.Errorf("Merge of a single value should return it unchanged")
	}
}

func TestStateValueMatches(t *testing.T) {
	v := Node(map[string]StateValue{"a": Node(map[string]StateValue{"b": Leaf("c")})})
	if !v.Matches("") {
		t.Error("empty query should always match")
	}
	if !v.Matches("a.b.c") {
		t.Error("full leaf path should match")
	}
	if !v.Matches("a") {
		t.Error("prefix should match")
	}
	if v.Matches("a.b.d") {
		t.Error("non-existent path should not match")
	}
}

func TestStateValueMatchesValue(t *testing.T) {
	current := Node(map[string]StateValue{
		"regionA": Leaf("a1"),
		"regionB": Node(map[string]StateValue{"child": Leaf("b1")}),
	})
	query := Node(map[string]StateValue{"regionB": StateValue{}})
	if !current.MatchesValue(query) {
		t.Error("partial query naming an interior node should match")
	}

	badQuery := Node(map[string]StateValue{"regionC": StateValue{}})
	if current.MatchesValue(badQuery) {
		t.Error("query naming an inactive region should not match")
	}
}

func TestStateValueCloneIsIndependent(t *testing.T) {
	original := Node(map[string]StateValue{"a": Leaf("x")})
	clone := original.Clone()
	if !original.Equal(clone) {
		t.Fatal("clone should be structurally equal")
	}
	// mutating the clone's underlying map must not affect the original
	clone.Children()["a"] = Leaf("mutated")
	if original.Children()["a"].leaf != "x" {
		t.Error("mutating the clone leaked into the original")
	}
}

func TestStateValueEqual(t *testing.T) {
	a := Node(map[string]StateValue{"x": Leaf("1")})
	b := Node(map[string]StateValue{"x": Leaf("1")})
	c := Node(map[string]StateValue{"x": Leaf("2")})
	if !a.Equal(b) {
		t.Error("structurally identical values should be equal")
	}
	if a.Equal(c) {
		t.Error("structurally different values should not be equal")
	}
	if a.Equal(Leaf("x")) {
		t.Error("a node and a leaf should never be equal")
	}
}
