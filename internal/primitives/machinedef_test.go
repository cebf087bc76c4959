package primitives

import "testing"

func buildTrafficDef(t *testing.T) *MachineDefinition {
	t.Helper()
	red := NewStateNode("red", Atomic)
	red.AddTransition("tick", TransitionDescriptor{Target: "green"})
	green := NewStateNode("green", Atomic)

	def := &MachineDefinition{
		ID:      "traffic",
		Initial: "red",
		States: map[string]*StateNode{
			"red":   red,
			"green": green,
		},
	}
	if err := ValidateAndNormalize(def); err != nil {
		t.Fatalf("ValidateAndNormalize: %v", err)
	}
	return def
}

func TestMachineDefinitionFindState(t *testing.T) {
	def := buildTrafficDef(t)

	if _, err := def.FindState(""); err == nil {
		t.Error("empty path should error")
	}
	if _, err := def.FindState("missing"); err == nil {
		t.Error("unknown root should error")
	}
	node, err := def.FindState("red")
	if err != nil || node.ID != "red" {
		t.Errorf("FindState(red) = %v, %v", node, err)
	}
}

func TestMachineDefinitionFlatten(t *testing.T) {
	def := buildTrafficDef(t)
	flat := def.Flatten()
	if len(flat) != 2 {
		t.Fatalf("got %d flattened states, want 2", len(flat))
	}
	if _, ok := flat["red"]; !ok {
		t.Error("missing red in flattened map")
	}
	if _, ok := flat["green"]; !ok {
		t.Error("missing green in flattened map")
	}
}

func TestMachineDefinitionProvideDoesNotMutateOriginal(t *testing.T) {
	def := buildTrafficDef(t)
	overrides := NewImplementations()
	overrides.Actions["x"] = func(*Context, Event, ActionAPI) []Effect { return nil }

	next := def.Provide(overrides)
	if _, ok := def.Impls.Actions["x"]; ok {
		t.Error("Provide must not mutate the receiver's Implementations")
	}
	if _, ok := next.Impls.Actions["x"]; !ok {
		t.Error("Provide's result should carry the override")
	}
	if next.States["red"] != def.States["red"] {
		t.Error("Provide should share the same state tree, not copy it")
	}
}
