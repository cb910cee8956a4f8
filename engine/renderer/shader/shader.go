// Package shader reflects WGSL source: it finds the render entry points and the resources the
// shader binds, so a pipeline can be laid out without hard-coding either.
package shader

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingEntryPoint is returned when the source declares no @vertex or no @fragment function.
	ErrMissingEntryPoint = errors.New("missing entry point")

	// ErrMissingBinding is returned by Reflection.Uniform when no matching uniform is declared.
	ErrMissingBinding = errors.New("missing binding")
)

// Binding is one @group/@binding resource declaration.
type Binding struct {
	// Group is the bind group index.
	Group uint32
	// Binding is the index within the group.
	Binding uint32
	// AddressSpace is the var<...> qualifier, e.g. "uniform" or "storage, read"; empty for
	// handle types such as textures and samplers.
	AddressSpace string
	// Name is the variable name.
	Name string
	// Type is the WGSL type of the variable.
	Type string
	// MinSize is the byte size of a buffer binding's type, or zero if it could not be resolved.
	MinSize uint64
}

// IsBuffer reports whether the binding lives in the uniform or storage address space.
func (b Binding) IsBuffer() bool {
	space, _, _ := strings.Cut(b.AddressSpace, ",")
	space = strings.TrimSpace(space)
	return space == "uniform" || space == "storage"
}

// Reflection is what a render pipeline needs to know about a WGSL module.
type Reflection struct {
	// VertexEntryPoint is the first @vertex function.
	VertexEntryPoint string
	// FragmentEntryPoint is the first @fragment function.
	FragmentEntryPoint string
	// Bindings are the declared resources, sorted by group and binding.
	Bindings []Binding
}

// Reflect parses WGSL source. It does not validate the shader beyond finding its entry points;
// the GPU driver remains the authority on whether it compiles.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - Reflection: the entry points and bindings
//   - error: ErrMissingEntryPoint if either render stage has no entry point
func Reflect(source string) (Reflection, error) {
	cleaned := stripComments(source)
	r := Reflection{
		VertexEntryPoint:   parseEntryPoint(cleaned, vertexEntryRegex),
		FragmentEntryPoint: parseEntryPoint(cleaned, fragmentEntryRegex),
		Bindings:           parseBindings(cleaned),
	}
	if r.VertexEntryPoint == "" {
		return Reflection{}, fmt.Errorf("%w: no @vertex function", ErrMissingEntryPoint)
	}
	if r.FragmentEntryPoint == "" {
		return Reflection{}, fmt.Errorf("%w: no @fragment function", ErrMissingEntryPoint)
	}
	return r, nil
}

// Uniform returns the uniform buffer declared at group/binding.
//
// Parameters:
//   - group: the bind group index
//   - binding: the binding index
//
// Returns:
//   - Binding: the declaration
//   - error: ErrMissingBinding if nothing, or something other than a uniform, is declared there
func (r Reflection) Uniform(group, binding uint32) (Binding, error) {
	for _, b := range r.Bindings {
		if b.Group != group || b.Binding != binding {
			continue
		}
		if strings.TrimSpace(b.AddressSpace) != "uniform" {
			return Binding{}, fmt.Errorf("%w: @group(%d) @binding(%d) %s is not a uniform", ErrMissingBinding, group, binding, b.Name)
		}
		return b, nil
	}
	return Binding{}, fmt.Errorf("%w: nothing declared at @group(%d) @binding(%d)", ErrMissingBinding, group, binding)
}
