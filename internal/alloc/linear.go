package alloc

import (
	"fmt"

	"github.com/born-ml/aot/internal/ir"
)

// Linear is a bump allocator. Each region is laid out in creation order with
// every value starting on an Alignment boundary, and each region total is
// rounded up to Alignment. It never reuses memory between values, which keeps
// the layout trivially valid at the cost of activation footprint.
type Linear struct {
	Alignment uint64
}

// NewLinear returns a Linear allocator. Alignment must be a power of two.
func NewLinear(alignment uint64) (*Linear, error) {
	if alignment == 0 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("alignment %d is not a power of two", alignment)
	}
	return &Linear{Alignment: alignment}, nil
}

// AlignSize rounds size up to the alignment boundary.
func AlignSize(size, align uint64) uint64 {
	return (size + align - 1) &^ (align - 1)
}

// NumberValues numbers every value in creation order and records the
// allocator's alignment on the plan.
func (a *Linear) NumberValues(f *ir.Function, p *Plan) error {
	if err := p.SetAlignment(a.Alignment); err != nil {
		return err
	}
	for _, v := range f.Values() {
		if err := p.Number(v.ID); err != nil {
			return err
		}
	}
	return nil
}

// AllocateActivations places activations back to back.
func (a *Linear) AllocateActivations(f *ir.Function, p *Plan) error {
	return a.bump(f.Activations(), ir.RegionActivation, p)
}

// AllocateWeightVars places constants, then placeholders.
func (a *Linear) AllocateWeightVars(f *ir.Function, p *Plan) error {
	var constants []*ir.Value
	for _, v := range f.Constants() {
		if !v.IsAlias() {
			constants = append(constants, v)
		}
	}
	if err := a.bump(constants, ir.RegionConstant, p); err != nil {
		return err
	}
	return a.bump(f.Placeholders(), ir.RegionMutable, p)
}

// AllocateTensorViews assigns each view its base address plus the view offset.
// Views are visited in creation order, so a view of a view sees its base resolved.
func (a *Linear) AllocateTensorViews(f *ir.Function, p *Plan) error {
	for _, v := range f.TensorViews() {
		base, ok := p.Address(v.Base)
		if !ok {
			return fmt.Errorf("%w: view %q has an unallocated base", ErrUnassignable, v.Name)
		}
		if err := p.Assign(v.ID, base+v.ViewOffset); err != nil {
			return err
		}
	}
	return nil
}

func (a *Linear) bump(values []*ir.Value, region ir.Region, p *Plan) error {
	if a.Alignment == 0 {
		return fmt.Errorf("%w: zero alignment", ErrUnassignable)
	}
	var offset uint64
	for _, v := range values {
		if v.Region != region {
			return fmt.Errorf("%w: %q belongs to the %s region, not %s", ErrUnassignable, v.Name, v.Region, region)
		}
		offset = AlignSize(offset, a.Alignment)
		if err := p.Assign(v.ID, offset); err != nil {
			return err
		}
		offset += uint64(v.Type.SizeInBytes()) //nolint:gosec // G115: byte sizes are never negative
	}
	return p.SetRegionSize(region, AlignSize(offset, a.Alignment))
}
