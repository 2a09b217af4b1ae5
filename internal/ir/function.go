package ir

import (
	"fmt"

	"github.com/born-ml/aot/internal/tensor"
)

// Function is a compiled function's value inventory.
type Function struct {
	name   string
	values []*Value
	byName map[string]*Value
}

// NewFunction creates an empty function.
func NewFunction(name string) *Function {
	return &Function{
		name:   name,
		byName: make(map[string]*Value),
	}
}

// Name returns the function name.
func (f *Function) Name() string {
	return f.name
}

// AddConstant adds a constant weight. The payload length must equal the
// type's byte size; the slice is retained, not copied.
func (f *Function) AddConstant(name string, typ Type, payload []byte) (*Value, error) {
	if len(payload) != typ.SizeInBytes() {
		return nil, fmt.Errorf("%w: constant %q has %d bytes, type %s%s needs %d",
			ErrPayloadSize, name, len(payload), typ.ElementName(), typ.Shape, typ.SizeInBytes())
	}
	return f.add(&Value{
		Name:    name,
		Type:    typ,
		Region:  RegionConstant,
		Kind:    KindWeight,
		Payload: payload,
	})
}

// AddPlaceholder adds a caller-supplied mutable weight.
func (f *Function) AddPlaceholder(name string, typ Type) (*Value, error) {
	return f.add(&Value{
		Name:   name,
		Type:   typ,
		Region: RegionMutable,
		Kind:   KindWeight,
	})
}

// AddActivation adds a scratch buffer.
func (f *Function) AddActivation(name string, typ Type) (*Value, error) {
	return f.add(&Value{
		Name:   name,
		Type:   typ,
		Region: RegionActivation,
		Kind:   KindActivation,
	})
}

// AddTensorView adds a view of typ starting offset bytes into base.
// Views of constants carry the aliased slice of the base payload.
func (f *Function) AddTensorView(name string, base *Value, offset uint64, typ Type) (*Value, error) {
	if base == nil || f.Value(base.ID) != base {
		return nil, fmt.Errorf("%w: base of view %q", ErrUnknownValue, name)
	}
	//nolint:gosec // G115: byte sizes are never negative
	end := offset + uint64(typ.SizeInBytes())
	//nolint:gosec // G115: byte sizes are never negative
	if end > uint64(base.Type.SizeInBytes()) {
		return nil, fmt.Errorf("%w: view %q covers [%d, %d), base %q has %d bytes",
			ErrViewOutOfBounds, name, offset, end, base.Name, base.Type.SizeInBytes())
	}

	v := &Value{
		Name:       name,
		Type:       typ,
		Region:     base.Region,
		Kind:       KindView,
		Base:       base.ID,
		ViewOffset: offset,
	}
	if base.Payload != nil {
		v.Payload = base.Payload[offset:end]
	}
	return f.add(v)
}

func (f *Function) add(v *Value) (*Value, error) {
	if v.Name == "" {
		return nil, ErrEmptyName
	}
	if _, exists := f.byName[v.Name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, v.Name)
	}
	if err := v.Type.Shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for %q: %w", v.Name, err)
	}
	v.Type.Shape = v.Type.Shape.Clone()
	v.ID = ValueID(len(f.values))
	f.values = append(f.values, v)
	f.byName[v.Name] = v
	return v, nil
}

// Value returns the value with the given ID, or nil.
func (f *Function) Value(id ValueID) *Value {
	if id < 0 || int(id) >= len(f.values) {
		return nil
	}
	return f.values[id]
}

// Lookup returns the value with the given name, or nil.
func (f *Function) Lookup(name string) *Value {
	return f.byName[name]
}

// Values returns every value in creation order.
func (f *Function) Values() []*Value {
	out := make([]*Value, len(f.values))
	copy(out, f.values)
	return out
}

// Constants returns constant weights and views of constants, in creation order.
// An alias always follows the value it aliases.
func (f *Function) Constants() []*Value {
	return f.filter(func(v *Value) bool {
		return v.Region == RegionConstant
	})
}

// Placeholders returns the externally visible mutable weights, in creation order.
func (f *Function) Placeholders() []*Value {
	return f.filter((*Value).IsMutable)
}

// Activations returns the scratch buffers, in creation order.
func (f *Function) Activations() []*Value {
	return f.filter(func(v *Value) bool {
		return v.Kind == KindActivation
	})
}

// TensorViews returns every view, in creation order.
func (f *Function) TensorViews() []*Value {
	return f.filter((*Value).IsAlias)
}

func (f *Function) filter(keep func(*Value) bool) []*Value {
	var out []*Value
	for _, v := range f.values {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Scalar is a convenience Type constructor.
func Scalar(dt tensor.DataType) Type {
	return Type{DType: dt}
}

// Tensor is a convenience Type constructor.
func Tensor(dt tensor.DataType, dims ...int) Type {
	return Type{DType: dt, Shape: tensor.Shape(dims)}
}
