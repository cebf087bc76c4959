package primitives

import "testing"

func TestNewEvent(t *testing.T) {
	e := NewEvent("ping", 42)
	if e.Type != "ping" {
		t.Errorf("got Type=%q want ping", e.Type)
	}
	if v, ok := e.Data.(int); !ok || v != 42 {
		t.Errorf("got Data=%v (%T) want 42", e.Data, e.Data)
	}
}

func TestEventImmutability(t *testing.T) {
	e := NewEvent("ping", 42)
	cp := e
	cp.Type = "modified"
	cp.Data = "changed"
	if e.Type != "ping" {
		t.Error("original Type was mutated")
	}
	if v, ok := e.Data.(int); !ok || v != 42 {
		t.Error("original Data was mutated")
	}
}
