// Injectable ID generator for auto-generated actor/invocation ids (spec §6
// "Environment & services", §9 "Global mutable state"). The interface is
// new; the default implementation's dependency is grounded on
// runpod-hsm/go.mod's github.com/google/uuid, the only UUID library present
// anywhere in the retrieval pack.
package core

import (
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator produces identifiers for spawned/invoked actors that were not
// given an explicit id.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator is the default IDGenerator, backed by google/uuid.
type UUIDGenerator struct{}

// NewUUIDGenerator returns the default, non-deterministic IDGenerator.
func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// SequentialIDGenerator is a deterministic IDGenerator for tests (spec §6:
// "test implementations permit deterministic replay"): it emits
// "<prefix>-1", "<prefix>-2", ... in call order.
type SequentialIDGenerator struct {
	Prefix string
	next   int
}

// NewSequentialIDGenerator returns a deterministic generator starting at 1.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{Prefix: prefix}
}

func (g *SequentialIDGenerator) NewID() string {
	g.next++
	prefix := g.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return prefix + "-" + strconv.Itoa(g.next)
}
