// Package vector implements the embedding algebra of the prompt operator
// language: pure, stateless functions over opaque conditioning vectors.
//
// Embeddings are treated as algebraic values supporting elementwise
// weighted sums and scalar scaling. The package never inspects
// dimensionality beyond requiring operand shapes to match, and has no
// dependency on model state, so everything here is unit-testable with
// synthetic vectors.
package vector

import (
	"github.com/pyros-projects/zxplorer/errors"
)

// Vector is a dense conditioning embedding produced by a text encoder
type Vector []float32

// Clone returns an independent copy of the vector
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// checkShape errors when two operand vectors differ in dimensionality
func checkShape(a, b Vector) error {
	if len(a) != len(b) {
		return errors.Wrapf(errors.ErrShapeMismatch, "left=%d right=%d", len(a), len(b))
	}
	if len(a) == 0 {
		return errors.New("empty embedding vector")
	}
	return nil
}

// Blend computes the weighted sum a*ratio + b*(1-ratio).
// ratio 1.0 returns a, ratio 0.0 returns b.
func Blend(a, b Vector, ratio float64) (Vector, error) {
	if err := checkShape(a, b); err != nil {
		return nil, err
	}
	r := float32(ratio)
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i]*r + b[i]*(1-r)
	}
	return out, nil
}

// Subtract computes a - b*strength, removing the direction of b from a
func Subtract(a, b Vector, strength float64) (Vector, error) {
	if err := checkShape(a, b); err != nil {
		return nil, err
	}
	s := float32(strength)
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] - b[i]*s
	}
	return out, nil
}

// Scale multiplies a vector by a scalar. Factors above 1 emphasize,
// negative factors negate with tunable magnitude.
func Scale(a Vector, factor float64) Vector {
	f := float32(factor)
	out := make(Vector, len(a))
	for i := range a {
		out[i] = a[i] * f
	}
	return out
}

// InterpolateWalk produces steps evenly spaced points from a to b,
// inclusive of both endpoints when steps >= 2.
//
// For steps == 1 the walk is just [a]: a single-entry plan reproduces the
// left operand's image rather than an arbitrary midpoint.
func InterpolateWalk(a, b Vector, steps int) ([]Vector, error) {
	if steps < 1 {
		return nil, errors.Newf("walk requires at least 1 step, got %d", steps)
	}
	if err := checkShape(a, b); err != nil {
		return nil, err
	}
	if steps == 1 {
		return []Vector{a.Clone()}, nil
	}

	out := make([]Vector, steps)
	for s := 0; s < steps; s++ {
		t := float64(s) / float64(steps-1)
		point, err := Blend(b, a, t) // t=0 → a, t=1 → b after argument swap
		if err != nil {
			return nil, err
		}
		out[s] = point
	}
	return out, nil
}
