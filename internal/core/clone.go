// Deep-clone primitive for arbitrary user context values (spec §3 "Context"
// invariant, §9 "Context cloning of arbitrary user data"). No deep-copy
// library (jinzhu/copier, mohae/deepcopy, mergo, ...) appears anywhere in
// the retrieval pack, and encoding/gob was rejected: gob requires every
// concrete type reachable from an `any` to be registered up front and
// cannot round-trip unexported fields or channels, either of which would
// silently corrupt a user's context. A reflect-based walk with a
// pointer-identity visited map handles cycles and arbitrary
// structs/maps/slices/arrays without a registration step; unexported struct
// fields are left at their zero value in the copy.
package core

import (
	"reflect"
	"time"

	"github.com/nullstyle/ustate/internal/primitives"
)

// CloneContext returns a deep copy of ctx's Data, honoring primitives.Cloner
// when Data implements it (spec §9: "for targets... prefer a copy-on-write
// context with explicit operations" — Cloner is that escape hatch for a
// context type owning resources reflection should not walk).
func CloneContext(ctx *primitives.Context) *primitives.Context {
	if ctx == nil {
		return &primitives.Context{}
	}
	return &primitives.Context{Data: CloneValue(ctx.Data)}
}

// CloneValue deep-copies an arbitrary value via reflection, with
// pointer-identity cycle detection so cyclic graphs terminate instead of
// recursing forever.
func CloneValue(v any) any {
	if v == nil {
		return nil
	}
	if c, ok := v.(primitives.Cloner); ok {
		return c.CloneContext()
	}
	visited := make(map[uintptr]reflect.Value)
	cloned := cloneReflect(reflect.ValueOf(v), visited)
	return cloned.Interface()
}

var timeType = reflect.TypeOf(time.Time{})

func cloneReflect(v reflect.Value, visited map[uintptr]reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	if v.Type() == timeType {
		return v // time.Time is an immutable value type; copy as-is.
	}

	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		addr := v.Pointer()
		if existing, ok := visited[addr]; ok {
			return existing
		}
		out := reflect.New(v.Type().Elem())
		visited[addr] = out
		out.Elem().Set(cloneReflect(v.Elem(), visited))
		return out

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(cloneReflect(v.Elem(), visited).Convert(v.Elem().Type()))
		return out

	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			cloned := cloneFieldValue(field, visited)
			setField(out.Field(i), cloned)
		}
		return out

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(cloneReflect(iter.Key(), visited), cloneReflect(iter.Value(), visited))
		}
		return out

	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneReflect(v.Index(i), visited))
		}
		return out

	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneReflect(v.Index(i), visited))
		}
		return out

	case reflect.Chan, reflect.Func:
		return v // not safely cloneable; share the reference.

	default:
		return v // bool, numeric, string and unexported-inaccessible leaves.
	}
}

// cloneFieldValue clones a struct field's value. Exported fields clone
// fully. An unexported field cannot be written back into the freshly
// allocated clone without the unsafe package (reflect.Value.Set panics on
// it), so it is left at its zero value in the clone; this mirrors the same
// limitation documented by every other reflect-only deep-copy library.
func cloneFieldValue(field reflect.Value, visited map[uintptr]reflect.Value) reflect.Value {
	return cloneReflect(field, visited)
}

func setField(dst, src reflect.Value) {
	if dst.CanSet() {
		dst.Set(src)
	}
}
