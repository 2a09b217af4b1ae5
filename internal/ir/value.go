package ir

import (
	"fmt"

	"github.com/born-ml/aot/internal/tensor"
)

// ValueID is the stable identity of a value inside its Function.
// IDs are dense and assigned in creation order starting at zero.
type ValueID int

// Region is one of the three disjoint memory areas of a bundle.
type Region int

// Memory regions.
const (
	RegionConstant Region = iota
	RegionMutable
	RegionActivation
)

// String returns the region name.
func (r Region) String() string {
	switch r {
	case RegionConstant:
		return "constant"
	case RegionMutable:
		return "mutable"
	case RegionActivation:
		return "activation"
	default:
		return fmt.Sprintf("Region(%d)", int(r))
	}
}

// Kind says how a value obtains its storage.
type Kind int

// Value kinds.
const (
	// KindWeight is a constant weight or a placeholder with its own storage.
	KindWeight Kind = iota
	// KindActivation is scratch storage allocated in the activations region.
	KindActivation
	// KindView aliases a byte range of another value.
	KindView
)

// Type is the storage descriptor of a value.
type Type struct {
	DType tensor.DataType
	Shape tensor.Shape
}

// Size returns the number of elements.
func (t Type) Size() int {
	return t.Shape.NumElements()
}

// SizeInBytes returns the storage footprint in bytes.
func (t Type) SizeInBytes() int {
	return t.Size() * t.DType.Size()
}

// ElementName returns the element type name printed in headers.
func (t Type) ElementName() string {
	return t.DType.String()
}

// Value is a named memory object of a Function.
type Value struct {
	ID     ValueID
	Name   string
	Type   Type
	Region Region
	Kind   Kind

	// Payload holds the bytes of a constant. It is nil for other regions.
	Payload []byte

	// Base and ViewOffset are only meaningful for KindView.
	Base       ValueID
	ViewOffset uint64
}

// IsAlias reports whether the value shares storage with another value.
func (v *Value) IsAlias() bool {
	return v.Kind == KindView
}

// IsMutable reports whether the value is an externally visible placeholder.
func (v *Value) IsMutable() bool {
	return v.Region == RegionMutable && v.Kind == KindWeight
}
