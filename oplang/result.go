package oplang

import (
	"github.com/pyros-projects/zxplorer/oplang/schedule"
	"github.com/pyros-projects/zxplorer/oplang/vector"
)

// LayoutKind describes how a multi-output result maps onto images
type LayoutKind int

const (
	// LayoutSingle is one conditioning, one image
	LayoutSingle LayoutKind = iota
	// LayoutWalk is an ordered interpolation strip
	LayoutWalk
	// LayoutGrid is a row-major rows x cols arrangement
	LayoutGrid
	// LayoutExplore is one conditioning rendered under diverse seeds
	LayoutExplore
)

// String returns a human-readable layout name
func (k LayoutKind) String() string {
	switch k {
	case LayoutSingle:
		return "single"
	case LayoutWalk:
		return "walk"
	case LayoutGrid:
		return "grid"
	case LayoutExplore:
		return "explore"
	}
	return "unknown"
}

// Result is the value produced per AST node during bottom-up evaluation.
// Intermediate results are transient; only the root's Result survives to
// be expanded into a GenerationPlan.
type Result struct {
	// Embeddings holds the conditioning vectors. Static results carry
	// exactly one; temporal results carry the bank the schedule indexes
	// into; walk/grid results carry one per output in order.
	Embeddings []vector.Vector

	// Schedule is the declared temporal behavior, nil for static results
	Schedule *schedule.Schedule

	// Lookup is the schedule resolved against the request's total step
	// count, precomputed so the generation loop queries it in O(1)
	Lookup *schedule.StepLookup

	// OutputCount is the number of images this result expands to.
	// Always >= 1.
	OutputCount int

	// Layout describes the multi-output arrangement
	Layout LayoutKind

	// Rows and Cols are set for LayoutGrid
	Rows, Cols int

	// PinnedSeed overrides the request's base seed when set
	PinnedSeed *int64
}

// static reports whether the result is a single fixed conditioning
// (one embedding, no schedule, one output)
func (r *Result) static() bool {
	return r != nil && r.Schedule == nil && r.OutputCount == 1 && len(r.Embeddings) == 1
}

// singleResult wraps one embedding as a static result
func singleResult(v vector.Vector) *Result {
	return &Result{
		Embeddings:  []vector.Vector{v},
		OutputCount: 1,
		Layout:      LayoutSingle,
	}
}
