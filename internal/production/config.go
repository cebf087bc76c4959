// Package production holds ambient adapters that touch the outside world:
// loading/saving a MachineDefinition and fanning out actor snapshots. §6.1's
// config loading is retargeted from the teacher's persister.go, which
// persisted a runtime core.MachineSnapshot (excluded here by the "no
// persistence across restarts" non-goal); a MachineDefinition is an
// authoring-time artifact the non-goal does not cover.
package production

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nullstyle/ustate/internal/primitives"
)

// LoadDefinition reads a .yaml/.yml or .json file (dispatch by extension,
// both handled by the same YAML decoder since JSON is a YAML subset) into a
// MachineDefinition and validates it. Action/guard/delay fields in a loaded
// definition are always string references — a file format cannot express a
// callable — so the caller must Provide an Implementations table supplying
// them before spawning an actor from the result.
func LoadDefinition(path string) (*primitives.MachineDefinition, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("ustate: %s: unsupported config extension %q", path, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ustate: reading %s: %w", path, err)
	}

	var def primitives.MachineDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("ustate: parsing %s: %w", path, err)
	}
	def.Impls = primitives.NewImplementations()

	if err := primitives.ValidateAndNormalize(&def); err != nil {
		return nil, fmt.Errorf("ustate: %s: %w", path, err)
	}
	return &def, nil
}

// SaveDefinition writes def to path in YAML, the inverse of LoadDefinition
// for round-tripping authored definitions (not runtime snapshots). Callable
// action/guard/delay references are not serialisable and are silently
// omitted by yaml.Marshal's inability to encode func values as anything
// other than a marshal error, so SaveDefinition rejects a definition
// carrying any direct callables rather than produce a file LoadDefinition
// cannot round-trip.
func SaveDefinition(path string, def *primitives.MachineDefinition) error {
	if err := rejectCallableRefs(def); err != nil {
		return err
	}
	data, err := yaml.Marshal(def)
	if err != nil {
		return fmt.Errorf("ustate: encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("ustate: writing %s: %w", path, err)
	}
	return nil
}

func rejectCallableRefs(def *primitives.MachineDefinition) error {
	for path, node := range def.Flatten() {
		if err := rejectNodeCallables(path, node); err != nil {
			return err
		}
	}
	return nil
}

func rejectNodeCallables(path string, node *primitives.StateNode) error {
	for _, list := range node.On {
		if err := rejectDescriptorCallables(path, list); err != nil {
			return err
		}
	}
	if err := rejectDescriptorCallables(path, node.Always); err != nil {
		return err
	}
	for _, list := range node.After {
		if err := rejectDescriptorCallables(path, list); err != nil {
			return err
		}
	}
	for _, ref := range append(append([]primitives.ActionRef{}, node.Entry...), node.Exit...) {
		if !isSymbolicRef(ref) {
			return fmt.Errorf("ustate: %q: cannot save a direct callable action reference", path)
		}
	}
	return nil
}

func rejectDescriptorCallables(path string, list []primitives.TransitionDescriptor) error {
	for _, desc := range list {
		if desc.Guard != nil && !isSymbolicRef(desc.Guard) {
			return fmt.Errorf("ustate: %q: cannot save a direct callable guard reference", path)
		}
		for _, ref := range desc.Actions {
			if !isSymbolicRef(ref) {
				return fmt.Errorf("ustate: %q: cannot save a direct callable action reference", path)
			}
		}
	}
	return nil
}

func isSymbolicRef(ref any) bool {
	if ref == nil {
		return true
	}
	_, ok := ref.(string)
	return ok
}
