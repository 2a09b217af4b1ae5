package bundle

import (
	"github.com/born-ml/aot/internal/alloc"
	"github.com/born-ml/aot/internal/codegen"
	"github.com/born-ml/aot/internal/ir"
	"github.com/born-ml/aot/internal/serialization"
	"github.com/born-ml/aot/internal/tensor"
)

// Totals are the region sizes and alignment of a finished layout.
type Totals struct {
	ConstantWeightVarsMemSize uint64
	MutableWeightVarsMemSize  uint64
	ActivationsMemSize        uint64
	Alignment                 uint64
}

// Total is the combined size of the three regions.
func (t Totals) Total() uint64 {
	return t.ConstantWeightVarsMemSize + t.MutableWeightVarsMemSize + t.ActivationsMemSize
}

// Variable is the reconciled layout record of one value.
type Variable struct {
	ID          ir.ValueID
	Name        string
	Region      ir.Region
	Kind        ir.Kind
	Offset      uint64 // Byte offset within Region
	Size        uint64 // Number of elements
	SizeInBytes uint64
	ElementType string
	Shape       tensor.Shape
	Payload     []byte // Constant bytes, nil outside the constant region
}

// Layout is the read-only result of one allocation pass. All emitters read
// offsets and totals from it.
type Layout struct {
	fn        *ir.Function
	plan      *alloc.Plan
	totals    Totals
	variables []Variable // Indexed by ValueID
}

// reconcileLayout runs every allocator step once over fn on a fresh plan,
// freezes the plan and checks the result.
func reconcileLayout(fn *ir.Function, allocator alloc.Allocator) (*Layout, error) {
	plan := alloc.NewPlan()
	steps := []struct {
		name string
		run  func(*ir.Function, *alloc.Plan) error
	}{
		{"number values", allocator.NumberValues},
		{"allocate activations", allocator.AllocateActivations},
		{"allocate weight variables", allocator.AllocateWeightVars},
		{"allocate tensor views", allocator.AllocateTensorViews},
	}
	for _, step := range steps {
		if err := step.run(fn, plan); err != nil {
			return nil, fail(step.name, "", ErrAllocation, err)
		}
	}
	plan.Freeze()

	// Allocators that do not record an alignment are assumed to honor the
	// build-time tensor alignment.
	alignment := plan.Alignment()
	if alignment == 0 {
		alignment = codegen.TensorAlignment
	}

	l := &Layout{
		fn:   fn,
		plan: plan,
		totals: Totals{
			ConstantWeightVarsMemSize: plan.ConstantWeightVarsMemSize(),
			MutableWeightVarsMemSize:  plan.MutableWeightVarsMemSize(),
			ActivationsMemSize:        plan.ActivationsMemSize(),
			Alignment:                 alignment,
		},
	}

	values := fn.Values()
	l.variables = make([]Variable, len(values))
	for _, v := range values {
		addr, ok := plan.Address(v.ID)
		if !ok {
			return nil, failf("reconcile layout", ErrAllocation, "value %q has no address", v.Name)
		}
		l.variables[v.ID] = Variable{
			ID:          v.ID,
			Name:        v.Name,
			Region:      v.Region,
			Kind:        v.Kind,
			Offset:      addr,
			Size:        uint64(v.Type.Size()),        //nolint:gosec // G115: element counts are never negative
			SizeInBytes: uint64(v.Type.SizeInBytes()), //nolint:gosec // G115: byte sizes are never negative
			ElementType: v.Type.ElementName(),
			Shape:       v.Type.Shape.Clone(),
			Payload:     v.Payload,
		}
	}
	for _, id := range plan.Numbered() {
		if fn.Value(id) == nil {
			return nil, invariantf("reconcile layout", "numbered value %d does not exist", id)
		}
	}

	if err := l.validate(); err != nil {
		return nil, err
	}
	if plan.Alignment() != 0 {
		if err := l.validateAlignment(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// validateAlignment checks that every allocated value starts on the
// alignment boundary advertised to clients. Views may start anywhere in
// their base.
func (l *Layout) validateAlignment() error {
	for _, v := range l.variables {
		if v.Kind == ir.KindView {
			continue
		}
		if v.Offset%l.totals.Alignment != 0 {
			return failf("validate layout", ErrAllocation, "%q at offset %d is not %d-byte aligned",
				v.Name, v.Offset, l.totals.Alignment)
		}
	}
	return nil
}

// validate checks every variable against its region total. Distinct weights
// may not overlap; activations and aliases may share memory.
func (l *Layout) validate() error {
	regions := []ir.Region{ir.RegionConstant, ir.RegionMutable, ir.RegionActivation}
	for _, region := range regions {
		var owned, shared []serialization.TensorMeta
		for _, v := range l.variables {
			if v.Region != region {
				continue
			}
			meta := serialization.TensorMeta{
				Name:   v.Name,
				DType:  v.ElementType,
				Shape:  []int(v.Shape),
				Offset: int64(v.Offset),      //nolint:gosec // G115: offsets are bounded by the region size
				Size:   int64(v.SizeInBytes), //nolint:gosec // G115: sizes are bounded by the region size
			}
			if v.Kind == ir.KindWeight {
				owned = append(owned, meta)
			} else {
				shared = append(shared, meta)
			}
		}
		size := int64(l.plan.RegionSize(region)) //nolint:gosec // G115: region sizes fit in int64
		if err := serialization.ValidateTensorOffsets(owned, size); err != nil {
			return invariantf("validate layout", "%s region: %v", region, err)
		}
		if err := serialization.ValidateTensorBounds(shared, size); err != nil {
			return invariantf("validate layout", "%s region: %v", region, err)
		}
	}
	return nil
}

// Function returns the function the layout was computed for.
func (l *Layout) Function() *ir.Function {
	return l.fn
}

// Totals returns the region sizes and alignment.
func (l *Layout) Totals() Totals {
	return l.totals
}

// Address returns the offset assigned to id within its region.
func (l *Layout) Address(id ir.ValueID) (uint64, bool) {
	return l.plan.Address(id)
}

// Variable returns the layout record of id.
func (l *Layout) Variable(id ir.ValueID) (Variable, bool) {
	if id < 0 || int(id) >= len(l.variables) {
		return Variable{}, false
	}
	return l.variables[id], true
}

// Variables returns every variable of a region in creation order, aliases
// included.
func (l *Layout) Variables(region ir.Region) []Variable {
	var out []Variable
	for _, v := range l.variables {
		if v.Region == region {
			out = append(out, v)
		}
	}
	return out
}

// Constants returns the constant region variables in the function's
// enumeration order.
func (l *Layout) Constants() []Variable {
	return l.pick(l.fn.Constants())
}

// Placeholders returns the externally visible mutable variables in the
// function's enumeration order.
func (l *Layout) Placeholders() []Variable {
	return l.pick(l.fn.Placeholders())
}

// OffsetsTable returns the address of every numbered value, in numbering
// order. The entry function passes it to the compiled body.
func (l *Layout) OffsetsTable() []uint64 {
	ids := l.plan.Numbered()
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = l.variables[id].Offset
	}
	return out
}

func (l *Layout) pick(values []*ir.Value) []Variable {
	out := make([]Variable, len(values))
	for i, v := range values {
		out[i] = l.variables[v.ID]
	}
	return out
}
