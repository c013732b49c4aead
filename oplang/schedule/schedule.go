// Package schedule builds step-indexed conditioning lookups for temporal
// prompt operators.
//
// A Schedule declares which embedding is active over which fraction of
// the generation run, either as [start,end) fraction ranges or as a
// cyclic alternation. Build resolves the declaration against a concrete
// total step count into a flat StepLookup array.
//
// The StepLookup sits on the hot path of the denoising loop: it is
// queried synchronously once per generation step and must answer in O(1)
// with no allocation and no dynamic dispatch, which is why resolution
// happens entirely up front.
package schedule

import (
	"math"

	"github.com/pyros-projects/zxplorer/errors"
)

// Range activates one embedding over a fraction interval of the run.
// StartFrac is inclusive, EndFrac exclusive except at 1.0.
type Range struct {
	StartFrac      float64 `json:"start_frac"`
	EndFrac        float64 `json:"end_frac"`
	EmbeddingIndex int     `json:"embedding_index"`
}

// Schedule declares temporal conditioning as either fraction ranges or a
// cyclic alternation. Exactly one of Ranges/Alternation is populated.
//
// Overlapping ranges resolve by last-declared-wins: ranges are applied in
// declaration order and later declarations overwrite earlier ones. This is
// deliberate and documented rather than silently merged.
type Schedule struct {
	Ranges      []Range `json:"ranges,omitempty"`
	Alternation []int   `json:"alternation,omitempty"`
	Period      int     `json:"period,omitempty"` // steps per alternation entry, default 1
}

// StepLookup is the resolved step→embedding-index table. Precomputed,
// read-only, O(1) per query.
type StepLookup struct {
	steps []int
}

// At returns the active embedding index for a generation step.
// Steps outside [0, Len) clamp to the nearest edge.
func (l *StepLookup) At(step int) int {
	if step < 0 {
		step = 0
	}
	if step >= len(l.steps) {
		step = len(l.steps) - 1
	}
	return l.steps[step]
}

// Len returns the total step count the lookup was built for
func (l *StepLookup) Len() int {
	return len(l.steps)
}

// Indices exposes the raw table for tests and serialization
func (l *StepLookup) Indices() []int {
	out := make([]int, len(l.steps))
	copy(out, l.steps)
	return out
}

// Build resolves a schedule against a total step count.
//
// Range fractions are multiplied by totalSteps and rounded to step
// indices; each range then paints its embedding index over its steps in
// declaration order, so overlaps resolve last-declared-wins. Alternation
// cycles entries every Period steps.
func Build(s Schedule, totalSteps int) (*StepLookup, error) {
	if totalSteps < 1 {
		return nil, errors.Newf("schedule requires at least 1 step, got %d", totalSteps)
	}
	if len(s.Ranges) > 0 && len(s.Alternation) > 0 {
		return nil, errors.New("schedule declares both ranges and alternation")
	}

	steps := make([]int, totalSteps)

	switch {
	case len(s.Ranges) > 0:
		for _, r := range s.Ranges {
			if r.StartFrac < 0 || r.EndFrac > 1 || r.StartFrac > r.EndFrac {
				return nil, errors.Newf("invalid schedule range [%g, %g]", r.StartFrac, r.EndFrac)
			}
			start := int(math.Round(r.StartFrac * float64(totalSteps)))
			end := int(math.Round(r.EndFrac * float64(totalSteps)))
			if end > totalSteps {
				end = totalSteps
			}
			for i := start; i < end; i++ {
				steps[i] = r.EmbeddingIndex
			}
		}

	case len(s.Alternation) > 0:
		period := s.Period
		if period < 1 {
			period = 1
		}
		for i := 0; i < totalSteps; i++ {
			steps[i] = s.Alternation[(i/period)%len(s.Alternation)]
		}

	default:
		return nil, errors.New("empty schedule")
	}

	return &StepLookup{steps: steps}, nil
}

// Rescale compresses a set of ranges into the prefix [0, frac) of the
// run, making room for a later phase. Used when temporal switches chain:
// the left operand's schedule shrinks proportionally into the prefix.
func Rescale(ranges []Range, frac float64) []Range {
	out := make([]Range, len(ranges))
	for i, r := range ranges {
		out[i] = Range{
			StartFrac:      r.StartFrac * frac,
			EndFrac:        r.EndFrac * frac,
			EmbeddingIndex: r.EmbeddingIndex,
		}
	}
	return out
}
