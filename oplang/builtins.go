package oplang

import (
	"math"

	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/oplang/parser"
	"github.com/pyros-projects/zxplorer/oplang/schedule"
	"github.com/pyros-projects/zxplorer/oplang/vector"
)

// Builtin operator symbols. Precedence orders binding strength from
// tightest (emphasis) to loosest (exploration), so an unparenthesized
// chain of mixed operators groups the tighter operators first.
const (
	SymEmphasize = "!"  // unary scale up
	SymNegate    = "~"  // unary scale negative
	SymSeedPin   = "@"  // unary seed pin, requires ': <seed>'
	SymBlend     = "+"  // binary weighted blend
	SymSubtract  = "-"  // binary subtraction
	SymSwitch    = "^"  // binary temporal switch at fraction
	SymAlternate = "|"  // binary per-step alternation
	SymWalk      = "%"  // binary interpolation walk
	SymPingPong  = "%%" // binary there-and-back walk
	SymGrid      = "#"  // binary grid fan-out
	SymExplore   = "*"  // unary diverse-seed fan-out
)

const (
	precUnaryTight = 70 // ! ~ @
	precBlend      = 50 // + -
	precTemporal   = 40 // ^ |
	precWalk       = 30 // % %%
	precGrid       = 20 // #
	precExplore    = 10 // *
)

// maxFanOut bounds how many images a single operator may request
const maxFanOut = 100

// maxPingPongSteps keeps the round trip inside maxFanOut: a pingpong
// over n steps emits 2n-1 images, the far endpoint rendered once and
// the start revisited
const maxPingPongSteps = (maxFanOut + 1) / 2

func registerBuiltins(r *Registry) error {
	descriptors := []*Descriptor{
		{
			Symbol: SymEmphasize, Name: "emphasize",
			Precedence: precUnaryTight, Arity: parser.ArityUnary,
			DefaultParam: 1.5, HasDefault: true,
			Validate: func(operands []*Result, param parser.Param) error {
				if err := requireStatic(operands...); err != nil {
					return err
				}
				if factor := paramOr(param, 1.5); factor <= 0 {
					return errors.Newf("emphasis factor must be positive, got %g", factor)
				}
				return nil
			},
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				factor := paramOr(param, 1.5)
				return singleResult(vector.Scale(operands[0].Embeddings[0], factor)), nil
			},
		},
		{
			Symbol: SymNegate, Name: "negate",
			Precedence: precUnaryTight, Arity: parser.ArityUnary,
			DefaultParam: 0.8, HasDefault: true,
			Validate: func(operands []*Result, param parser.Param) error {
				if err := requireStatic(operands...); err != nil {
					return err
				}
				if mag := paramOr(param, 0.8); mag <= 0 {
					return errors.Newf("negation magnitude must be positive, got %g", mag)
				}
				return nil
			},
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				// Magnitude is supplied positive; negation flips the sign
				mag := paramOr(param, 0.8)
				return singleResult(vector.Scale(operands[0].Embeddings[0], -mag)), nil
			},
		},
		{
			Symbol: SymSeedPin, Name: "seed-pin",
			Precedence: precUnaryTight, Arity: parser.ArityUnary,
			RequiresParam: true,
			Validate: func(operands []*Result, param parser.Param) error {
				if !param.Set {
					return errors.New("seed pin requires an explicit seed")
				}
				if param.Value < 0 || param.Value != math.Trunc(param.Value) {
					return errors.Newf("seed must be a non-negative integer, got %g", param.Value)
				}
				return nil
			},
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				out := *operands[0]
				seed := int64(param.Value)
				out.PinnedSeed = &seed
				return &out, nil
			},
		},
		{
			Symbol: SymBlend, Name: "blend",
			Precedence: precBlend, Arity: parser.ArityBinary,
			DefaultParam: 0.5, HasDefault: true,
			Validate: func(operands []*Result, param parser.Param) error {
				if err := requireStatic(operands...); err != nil {
					return err
				}
				if err := requireSameShape(operands[0], operands[1]); err != nil {
					return err
				}
				if ratio := paramOr(param, 0.5); ratio < 0 || ratio > 1 {
					return errors.Newf("blend ratio must be in [0, 1], got %g", ratio)
				}
				return nil
			},
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				blended, err := vector.Blend(operands[0].Embeddings[0], operands[1].Embeddings[0], paramOr(param, 0.5))
				if err != nil {
					return nil, err
				}
				return singleResult(blended), nil
			},
		},
		{
			Symbol: SymSubtract, Name: "subtract",
			Precedence: precBlend, Arity: parser.ArityBinary,
			DefaultParam: 1.0, HasDefault: true,
			Validate: func(operands []*Result, param parser.Param) error {
				if err := requireStatic(operands...); err != nil {
					return err
				}
				if err := requireSameShape(operands[0], operands[1]); err != nil {
					return err
				}
				if strength := paramOr(param, 1.0); strength <= 0 {
					return errors.Newf("subtract strength must be positive, got %g", strength)
				}
				return nil
			},
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				diff, err := vector.Subtract(operands[0].Embeddings[0], operands[1].Embeddings[0], paramOr(param, 1.0))
				if err != nil {
					return nil, err
				}
				return singleResult(diff), nil
			},
		},
		{
			Symbol: SymSwitch, Name: "temporal-switch",
			Precedence: precTemporal, Arity: parser.ArityBinary,
			DefaultParam: 50, HasDefault: true, // percent of the run
			Validate:     validateSwitch,
			Execute:      executeSwitch,
		},
		{
			Symbol: SymAlternate, Name: "alternate",
			Precedence: precTemporal, Arity: parser.ArityBinary,
			DefaultParam: 1, HasDefault: true, // steps per alternation entry
			Validate:     validateAlternate,
			Execute:      executeAlternate,
		},
		{
			Symbol: SymWalk, Name: "interpolate-walk",
			Precedence: precWalk, Arity: parser.ArityBinary,
			DefaultParam: 5, HasDefault: true,
			Validate:     validateFanOut(SymWalk, 1, maxFanOut),
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				steps := int(paramOr(param, 5))
				walk, err := vector.InterpolateWalk(operands[0].Embeddings[0], operands[1].Embeddings[0], steps)
				if err != nil {
					return nil, err
				}
				return &Result{
					Embeddings:  walk,
					OutputCount: len(walk),
					Layout:      LayoutWalk,
				}, nil
			},
		},
		{
			Symbol: SymPingPong, Name: "pingpong-walk",
			Precedence: precWalk, Arity: parser.ArityBinary,
			DefaultParam: 5, HasDefault: true,
			Validate:     validateFanOut(SymPingPong, 2, maxPingPongSteps),
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				steps := int(paramOr(param, 5))
				walk, err := vector.InterpolateWalk(operands[0].Embeddings[0], operands[1].Embeddings[0], steps)
				if err != nil {
					return nil, err
				}
				// Return leg omits the far endpoint so it isn't rendered twice
				for i := len(walk) - 2; i >= 0; i-- {
					walk = append(walk, walk[i])
				}
				return &Result{
					Embeddings:  walk,
					OutputCount: len(walk),
					Layout:      LayoutWalk,
				}, nil
			},
		},
		{
			Symbol: SymGrid, Name: "grid",
			Precedence: precGrid, Arity: parser.ArityBinary,
			DefaultParam: 4, HasDefault: true,
			Validate: func(operands []*Result, param parser.Param) error {
				if err := requireStatic(operands...); err != nil {
					return err
				}
				if err := requireSameShape(operands[0], operands[1]); err != nil {
					return err
				}
				n := paramOr(param, 4)
				if n < 1 || n != math.Trunc(n) || n > maxFanOut {
					return errors.Newf("grid size must be a whole number in [1, %d], got %g", maxFanOut, n)
				}
				if side := math.Sqrt(n); side != math.Trunc(side) {
					return errors.Newf("grid size must be a perfect square, got %g", n)
				}
				return nil
			},
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				n := int(paramOr(param, 4))
				side := int(math.Sqrt(float64(n)))
				cells, err := vector.InterpolateWalk(operands[0].Embeddings[0], operands[1].Embeddings[0], n)
				if err != nil {
					return nil, err
				}
				return &Result{
					Embeddings:  cells,
					OutputCount: n,
					Layout:      LayoutGrid,
					Rows:        side,
					Cols:        side,
				}, nil
			},
		},
		{
			Symbol: SymExplore, Name: "explore",
			Precedence: precExplore, Arity: parser.ArityUnary,
			DefaultParam: 4, HasDefault: true,
			Validate: func(operands []*Result, param parser.Param) error {
				if err := requireStatic(operands...); err != nil {
					return err
				}
				n := paramOr(param, 4)
				if n < 1 || n != math.Trunc(n) || n > maxFanOut {
					return errors.Newf("explore count must be a whole number in [1, %d], got %g", maxFanOut, n)
				}
				return nil
			},
			Execute: func(env *Env, operands []*Result, param parser.Param) (*Result, error) {
				return &Result{
					Embeddings:  []vector.Vector{operands[0].Embeddings[0]},
					OutputCount: int(paramOr(param, 4)),
					Layout:      LayoutExplore,
				}, nil
			},
		},
	}

	for _, d := range descriptors {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// paramOr returns the explicit parameter value or the default
func paramOr(p parser.Param, def float64) float64 {
	if p.Set {
		return p.Value
	}
	return def
}

// requireStatic rejects operands that are already temporal, multi-output,
// or seed-pinned; most operators compose single fixed conditionings.
// Pinned seeds only survive Expand when '@' is the outermost operator, so
// a pin feeding another operator must fail loudly instead of being
// dropped on the floor.
func requireStatic(operands ...*Result) error {
	for _, op := range operands {
		if op.Schedule != nil {
			return errors.New("operand already carries a temporal schedule; combine temporal operators last")
		}
		if op.OutputCount != 1 {
			return errors.Newf("operand already fans out to %d images; multi-output operators cannot be nested", op.OutputCount)
		}
		if op.PinnedSeed != nil {
			return errors.New("operand carries a pinned seed; apply '@' to the full expression instead")
		}
	}
	return nil
}

// requireSameShape rejects operand embeddings with mismatched dimensions
// before any execution work happens
func requireSameShape(a, b *Result) error {
	la, lb := len(a.Embeddings[0]), len(b.Embeddings[0])
	if la != lb {
		return errors.Wrapf(errors.ErrShapeMismatch, "left=%d right=%d", la, lb)
	}
	return nil
}

// validateFanOut builds a validator for walk-style operators with a
// whole-number step parameter
func validateFanOut(sym string, minSteps, maxSteps float64) ValidateFunc {
	return func(operands []*Result, param parser.Param) error {
		if err := requireStatic(operands...); err != nil {
			return err
		}
		if err := requireSameShape(operands[0], operands[1]); err != nil {
			return err
		}
		steps := paramOr(param, 5)
		if steps < minSteps || steps != math.Trunc(steps) || steps > maxSteps {
			return errors.Newf("'%s' step count must be a whole number in [%g, %g], got %g", sym, minSteps, maxSteps, steps)
		}
		return nil
	}
}

// validateSwitch allows a plain static left operand, or a left operand
// that is itself a range schedule (chained switches flatten)
func validateSwitch(operands []*Result, param parser.Param) error {
	left, right := operands[0], operands[1]
	if err := requireStatic(right); err != nil {
		return errors.Wrap(err, "right operand of '^'")
	}
	if !left.static() && (left.Schedule == nil || len(left.Schedule.Ranges) == 0) {
		return errors.New("left operand of '^' must be a static conditioning or a chained temporal switch")
	}
	if left.PinnedSeed != nil {
		return errors.New("left operand of '^' carries a pinned seed; apply '@' to the full expression instead")
	}
	frac := paramOr(param, 50) / 100
	if frac <= 0 || frac >= 1 {
		return errors.Newf("switch point must be strictly between 0%% and 100%%, got %g%%", paramOr(param, 50))
	}
	return nil
}

func executeSwitch(env *Env, operands []*Result, param parser.Param) (*Result, error) {
	left, right := operands[0], operands[1]
	frac := paramOr(param, 50) / 100

	var embeddings []vector.Vector
	var ranges []schedule.Range

	if left.Schedule != nil && len(left.Schedule.Ranges) > 0 {
		// Chained switch: the left schedule compresses into the prefix
		embeddings = append(embeddings, left.Embeddings...)
		ranges = schedule.Rescale(left.Schedule.Ranges, frac)
	} else {
		embeddings = append(embeddings, left.Embeddings[0])
		ranges = []schedule.Range{{StartFrac: 0, EndFrac: frac, EmbeddingIndex: 0}}
	}
	rightIndex := len(embeddings)
	embeddings = append(embeddings, right.Embeddings[0])
	ranges = append(ranges, schedule.Range{StartFrac: frac, EndFrac: 1, EmbeddingIndex: rightIndex})

	sched := &schedule.Schedule{Ranges: ranges}
	lookup, err := schedule.Build(*sched, env.TotalSteps)
	if err != nil {
		return nil, err
	}
	return &Result{
		Embeddings:  embeddings,
		Schedule:    sched,
		Lookup:      lookup,
		OutputCount: 1,
		Layout:      LayoutSingle,
	}, nil
}

// validateAlternate allows a static left operand or a chained alternation
func validateAlternate(operands []*Result, param parser.Param) error {
	left, right := operands[0], operands[1]
	if err := requireStatic(right); err != nil {
		return errors.Wrap(err, "right operand of '|'")
	}
	if !left.static() && (left.Schedule == nil || len(left.Schedule.Alternation) == 0) {
		return errors.New("left operand of '|' must be a static conditioning or a chained alternation")
	}
	if left.PinnedSeed != nil {
		return errors.New("left operand of '|' carries a pinned seed; apply '@' to the full expression instead")
	}
	period := paramOr(param, 1)
	if period < 1 || period != math.Trunc(period) {
		return errors.Newf("alternation period must be a whole number >= 1, got %g", period)
	}
	return nil
}

func executeAlternate(env *Env, operands []*Result, param parser.Param) (*Result, error) {
	left, right := operands[0], operands[1]

	var embeddings []vector.Vector
	var cycle []int

	if left.Schedule != nil && len(left.Schedule.Alternation) > 0 {
		embeddings = append(embeddings, left.Embeddings...)
		cycle = append(cycle, left.Schedule.Alternation...)
	} else {
		embeddings = append(embeddings, left.Embeddings[0])
		cycle = []int{0}
	}
	cycle = append(cycle, len(embeddings))
	embeddings = append(embeddings, right.Embeddings[0])

	sched := &schedule.Schedule{Alternation: cycle, Period: int(paramOr(param, 1))}
	lookup, err := schedule.Build(*sched, env.TotalSteps)
	if err != nil {
		return nil, err
	}
	return &Result{
		Embeddings:  embeddings,
		Schedule:    sched,
		Lookup:      lookup,
		OutputCount: 1,
		Layout:      LayoutSingle,
	}, nil
}
