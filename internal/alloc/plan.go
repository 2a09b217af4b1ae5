// Package alloc assigns byte offsets to the values of an ir.Function.
//
// The bundle saver treats allocation as an external pass: it drives an
// Allocator through its four steps exactly once and then only reads the
// resulting Plan. Linear is the reference allocator used by the CLI.
package alloc

import (
	"errors"
	"fmt"

	"github.com/born-ml/aot/internal/ir"
)

// Common errors.
var (
	ErrUnassignable = errors.New("value cannot be assigned an address")
	ErrFrozen       = errors.New("allocation plan is frozen")
)

// Plan is the outcome of an allocation pass: one byte offset per value,
// relative to the start of the value's region, plus the region totals.
type Plan struct {
	numbered    []ir.ValueID
	numberOf    map[ir.ValueID]int
	addresses   map[ir.ValueID]uint64
	regionSizes [3]uint64
	alignment   uint64
	frozen      bool
}

// NewPlan returns an empty plan. Every Save starts from a fresh plan so
// previously assigned addresses are never reused.
func NewPlan() *Plan {
	return &Plan{
		numberOf:  make(map[ir.ValueID]int),
		addresses: make(map[ir.ValueID]uint64),
	}
}

// Number gives id the next slot in the offsets table. Numbering the same
// value twice is a no-op.
func (p *Plan) Number(id ir.ValueID) error {
	if p.frozen {
		return ErrFrozen
	}
	if _, ok := p.numberOf[id]; ok {
		return nil
	}
	p.numberOf[id] = len(p.numbered)
	p.numbered = append(p.numbered, id)
	return nil
}

// Assign records the address of id.
func (p *Plan) Assign(id ir.ValueID, addr uint64) error {
	if p.frozen {
		return ErrFrozen
	}
	p.addresses[id] = addr
	return nil
}

// SetRegionSize records the total size of a region.
func (p *Plan) SetRegionSize(r ir.Region, size uint64) error {
	if p.frozen {
		return ErrFrozen
	}
	if r < ir.RegionConstant || r > ir.RegionActivation {
		return fmt.Errorf("unknown region %v", r)
	}
	p.regionSizes[r] = size
	return nil
}

// SetAlignment records the boundary every allocated value starts on. It must
// be a power of two.
func (p *Plan) SetAlignment(alignment uint64) error {
	if p.frozen {
		return ErrFrozen
	}
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return fmt.Errorf("alignment %d is not a power of two", alignment)
	}
	p.alignment = alignment
	return nil
}

// Alignment returns the recorded alignment, or 0 if the allocator set none.
func (p *Plan) Alignment() uint64 {
	return p.alignment
}

// Freeze makes the plan read-only.
func (p *Plan) Freeze() {
	p.frozen = true
}

// Frozen reports whether Freeze was called.
func (p *Plan) Frozen() bool {
	return p.frozen
}

// Address returns the assigned offset of id within its region.
func (p *Plan) Address(id ir.ValueID) (uint64, bool) {
	addr, ok := p.addresses[id]
	return addr, ok
}

// Numbered returns the values in offsets-table order.
func (p *Plan) Numbered() []ir.ValueID {
	out := make([]ir.ValueID, len(p.numbered))
	copy(out, p.numbered)
	return out
}

// NumberOf returns the offsets-table slot of id.
func (p *Plan) NumberOf(id ir.ValueID) (int, bool) {
	n, ok := p.numberOf[id]
	return n, ok
}

// RegionSize returns the total size of a region in bytes.
func (p *Plan) RegionSize(r ir.Region) uint64 {
	if r < ir.RegionConstant || r > ir.RegionActivation {
		return 0
	}
	return p.regionSizes[r]
}

// ConstantWeightVarsMemSize is the constant region total.
func (p *Plan) ConstantWeightVarsMemSize() uint64 { return p.regionSizes[ir.RegionConstant] }

// MutableWeightVarsMemSize is the mutable region total.
func (p *Plan) MutableWeightVarsMemSize() uint64 { return p.regionSizes[ir.RegionMutable] }

// ActivationsMemSize is the activation region total.
func (p *Plan) ActivationsMemSize() uint64 { return p.regionSizes[ir.RegionActivation] }

// Allocator is an allocation pass over a function. The bundle saver calls
// the steps in declaration order, once each.
type Allocator interface {
	// NumberValues fixes the order of the offsets table.
	NumberValues(f *ir.Function, p *Plan) error
	// AllocateActivations places scratch buffers.
	AllocateActivations(f *ir.Function, p *Plan) error
	// AllocateWeightVars places constants and placeholders at fresh addresses.
	AllocateWeightVars(f *ir.Function, p *Plan) error
	// AllocateTensorViews resolves every view to an address inside its base.
	AllocateTensorViews(f *ir.Function, p *Plan) error
}
