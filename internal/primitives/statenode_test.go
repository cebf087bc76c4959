package primitives

import "testing"

func TestStateNodeValidate(t *testing.T) {
	cases := []struct {
		name    string
		node    *StateNode
		wantErr bool
	}{
		{
			name:    "atomic ok",
			node:    NewStateNode("idle", Atomic),
			wantErr: false,
		},
		{
			name: "atomic with children rejected",
			node: func() *StateNode {
				n := NewStateNode("idle", Atomic)
				n.AddChild(NewStateNode("nope", Atomic))
				return n
			}(),
			wantErr: true,
		},
		{
			name:    "compound without children rejected",
			node:    NewStateNode("group", Compound),
			wantErr: true,
		},
		{
			name: "compound without initial rejected",
			node: func() *StateNode {
				n := NewStateNode("group", Compound)
				n.AddChild(NewStateNode("a", Atomic))
				return n
			}(),
			wantErr: true,
		},
		{
			name: "compound ok",
			node: func() *StateNode {
				n := NewStateNode("group", Compound)
				n.AddChild(NewStateNode("a", Atomic))
				n.Initial = "a"
				return n
			}(),
			wantErr: false,
		},
		{
			name: "parallel with initial rejected",
			node: func() *StateNode {
				n := NewStateNode("group", Parallel)
				n.AddChild(NewStateNode("a", Atomic))
				n.Initial = "a"
				return n
			}(),
			wantErr: true,
		},
		{
			name: "history with children rejected",
			node: func() *StateNode {
				n := NewStateNode("hist", History)
				n.History = ShallowHistory
				n.AddChild(NewStateNode("a", Atomic))
				return n
			}(),
			wantErr: true,
		},
		{
			name: "history without flavor rejected",
			node: NewStateNode("hist", History),
			wantErr: true,
		},
		{
			name: "empty event name rejected",
			node: func() *StateNode {
				n := NewStateNode("idle", Atomic)
				n.AddTransition("", TransitionDescriptor{Target: "idle"})
				return n
			}(),
			wantErr: true,
		},
		{
			name: "mismatched children key rejected",
			node: func() *StateNode {
				n := NewStateNode("group", Compound)
				n.Initial = "a"
				n.Children = map[string]*StateNode{"wrong": NewStateNode("a", Atomic)}
				return n
			}(),
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.node.Validate(tc.node.ID)
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestStateNodeFlatten(t *testing.T) {
	child := NewStateNode("child", Atomic)
	root := NewStateNode("root", Compound)
	root.Initial = "child"
	root.AddChild(child)

	out := make(map[string]*StateNode)
	root.Flatten("root", out)

	if len(out) != 2 {
		t.Fatalf("got %d flattened nodes, want 2", len(out))
	}
	if out["root"] != root {
		t.Error("root entry does not match")
	}
	if out["root.child"] != child {
		t.Error("child entry does not match")
	}
}

func TestIsCompoundLike(t *testing.T) {
	if !NewStateNode("a", Compound).IsCompoundLike() {
		t.Error("compound should be compound-like")
	}
	if !NewStateNode("a", Parallel).IsCompoundLike() {
		t.Error("parallel should be compound-like")
	}
	if NewStateNode("a", Atomic).IsCompoundLike() {
		t.Error("atomic should not be compound-like")
	}
}
