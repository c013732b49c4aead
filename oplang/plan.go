package oplang

import (
	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/oplang/schedule"
	"github.com/pyros-projects/zxplorer/oplang/vector"
)

// exploreSeedStride spaces exploration seeds apart deterministically.
// A prime stride keeps neighboring outputs from sharing low-bit seed
// structure while staying fully reproducible from the base seed.
const exploreSeedStride = 9973

// Output is one concrete generation instruction inside a plan
type Output struct {
	// Index is the output's position in deterministic plan order
	Index int

	// Row and Col locate the output for grid layouts (row-major)
	Row, Col int

	// Seed for the image-generation collaborator
	Seed int64

	// Embedding is the fixed conditioning for static outputs
	Embedding vector.Vector

	// Embeddings and Lookup drive scheduled outputs: the lookup maps a
	// generation step to an index into the bank. Both nil for static
	// outputs.
	Embeddings []vector.Vector
	Lookup     *schedule.StepLookup
}

// ActiveAt returns the conditioning active at a generation step.
// This sits on the denoising hot path: O(1), no allocation.
func (o *Output) ActiveAt(step int) vector.Vector {
	if o.Lookup == nil {
		return o.Embedding
	}
	return o.Embeddings[o.Lookup.At(step)]
}

// Scheduled reports whether the output swaps conditioning mid-run
func (o *Output) Scheduled() bool {
	return o.Lookup != nil
}

// GenerationPlan is the expanded set of per-image instructions handed to
// the image-generation collaborator. Output order is deterministic:
// walks preserve interpolation order, grids are row-major.
type GenerationPlan struct {
	Count   int
	Layout  LayoutKind
	Rows    int
	Cols    int
	Outputs []Output
}

// Expand turns an operator Result into a concrete GenerationPlan,
// assigning seeds deterministically from baseSeed.
//
// Single and walk/grid outputs use baseSeed + index (row-major for
// grids). Exploration outputs draw from the documented stride sequence
// baseSeed + index*exploreSeedStride so runs reproduce exactly given the
// same base seed; nothing is entropy-sourced.
func Expand(res *Result, baseSeed int64) (*GenerationPlan, error) {
	if res == nil {
		return nil, errors.New("cannot expand nil result")
	}
	if res.OutputCount < 1 {
		return nil, errors.Newf("result output count must be positive, got %d", res.OutputCount)
	}
	if res.PinnedSeed != nil {
		baseSeed = *res.PinnedSeed
	}

	plan := &GenerationPlan{
		Count:  res.OutputCount,
		Layout: res.Layout,
		Rows:   res.Rows,
		Cols:   res.Cols,
	}

	switch res.Layout {
	case LayoutExplore:
		if len(res.Embeddings) != 1 {
			return nil, errors.Newf("explore result carries %d embeddings, expected 1", len(res.Embeddings))
		}
		for i := 0; i < res.OutputCount; i++ {
			plan.Outputs = append(plan.Outputs, Output{
				Index:     i,
				Seed:      baseSeed + int64(i)*exploreSeedStride,
				Embedding: res.Embeddings[0],
			})
		}

	case LayoutWalk, LayoutGrid:
		if len(res.Embeddings) != res.OutputCount {
			return nil, errors.Newf("%s result carries %d embeddings for %d outputs", res.Layout, len(res.Embeddings), res.OutputCount)
		}
		for i := 0; i < res.OutputCount; i++ {
			out := Output{
				Index:     i,
				Seed:      baseSeed + int64(i),
				Embedding: res.Embeddings[i],
			}
			if res.Layout == LayoutGrid && res.Cols > 0 {
				out.Row = i / res.Cols
				out.Col = i % res.Cols
			}
			plan.Outputs = append(plan.Outputs, out)
		}

	default: // LayoutSingle
		out := Output{Index: 0, Seed: baseSeed}
		if res.Lookup != nil {
			out.Embeddings = res.Embeddings
			out.Lookup = res.Lookup
		} else {
			if len(res.Embeddings) != 1 {
				return nil, errors.Newf("single result carries %d embeddings", len(res.Embeddings))
			}
			out.Embedding = res.Embeddings[0]
		}
		plan.Outputs = []Output{out}
	}

	return plan, nil
}

// Seeds returns the plan's seed list in output order
func (p *GenerationPlan) Seeds() []int64 {
	seeds := make([]int64, len(p.Outputs))
	for i, o := range p.Outputs {
		seeds[i] = o.Seed
	}
	return seeds
}
