package oplang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/oplang/parser"
	"github.com/pyros-projects/zxplorer/oplang/vector"
)

// testEncoder maps known prompt text to fixed unit-style vectors so
// operator arithmetic is checkable by hand
func testEncoder(vocab map[string]vector.Vector) EncodeFunc {
	return func(ctx context.Context, text string) (vector.Vector, error) {
		if v, ok := vocab[text]; ok {
			return v.Clone(), nil
		}
		return vector.Vector{1, 1}, nil
	}
}

var defaultVocab = map[string]vector.Vector{
	"cat":   {1, 0},
	"dog":   {0, 1},
	"day":   {2, 0},
	"night": {0, 2},
	"a":     {0, 0},
	"b":     {1, 1},
}

func execute(t *testing.T, prompt string, totalSteps int) (*Result, error) {
	t.Helper()
	node, err := parser.ParseText(prompt, DefaultRegistry())
	require.NoError(t, err)
	exec := NewExecutor(DefaultRegistry(), nil)
	return exec.Execute(context.Background(), node, testEncoder(defaultVocab), totalSteps)
}

func assertVector(t *testing.T, want []float64, got vector.Vector) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], float64(got[i]), 1e-6, "component %d", i)
	}
}

func TestExecuteBlend(t *testing.T) {
	res, err := execute(t, "cat + dog : 0.3", 20)
	require.NoError(t, err)

	assert.Equal(t, 1, res.OutputCount)
	assert.Equal(t, LayoutSingle, res.Layout)
	require.Len(t, res.Embeddings, 1)
	assertVector(t, []float64{0.3, 0.7}, res.Embeddings[0])
}

func TestExecuteBlendDefaultRatio(t *testing.T) {
	res, err := execute(t, "cat + dog", 20)
	require.NoError(t, err)
	assertVector(t, []float64{0.5, 0.5}, res.Embeddings[0])
}

func TestExecuteEmphasize(t *testing.T) {
	res, err := execute(t, "!cat", 20)
	require.NoError(t, err)
	assertVector(t, []float64{1.5, 0}, res.Embeddings[0])

	res, err = execute(t, "!cat : 2", 20)
	require.NoError(t, err)
	assertVector(t, []float64{2, 0}, res.Embeddings[0])
}

func TestExecuteNegate(t *testing.T) {
	res, err := execute(t, "~cat", 20)
	require.NoError(t, err)
	assertVector(t, []float64{-0.8, 0}, res.Embeddings[0])
}

func TestExecuteSubtract(t *testing.T) {
	res, err := execute(t, "day - cat : 0.5", 20)
	require.NoError(t, err)
	assertVector(t, []float64{1.5, 0}, res.Embeddings[0])
}

func TestExecuteNestedArithmetic(t *testing.T) {
	// (cat + dog) blends first, then emphasis scales the blend
	res, err := execute(t, "!(cat + dog : 0.5) : 2", 20)
	require.NoError(t, err)
	assertVector(t, []float64{1, 1}, res.Embeddings[0])
}

func TestExecuteTemporalSwitch(t *testing.T) {
	res, err := execute(t, "day ^ night", 10)
	require.NoError(t, err)

	assert.Equal(t, 1, res.OutputCount)
	require.NotNil(t, res.Lookup)
	require.Len(t, res.Embeddings, 2)

	for step := 0; step < 5; step++ {
		assert.Equal(t, 0, res.Lookup.At(step), "step %d", step)
	}
	for step := 5; step < 10; step++ {
		assert.Equal(t, 1, res.Lookup.At(step), "step %d", step)
	}
}

func TestExecuteSwitchCustomPoint(t *testing.T) {
	res, err := execute(t, "day ^ night : 20%", 10)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Lookup.At(0))
	assert.Equal(t, 0, res.Lookup.At(1))
	assert.Equal(t, 1, res.Lookup.At(2))
	assert.Equal(t, 1, res.Lookup.At(9))
}

func TestExecuteChainedSwitch(t *testing.T) {
	// Left-associative chain compresses earlier phases into the prefix:
	// cat holds [0, 25%), dog [25%, 50%), night [50%, 100%]
	res, err := execute(t, "cat ^ dog ^ night", 8)
	require.NoError(t, err)

	require.Len(t, res.Embeddings, 3)
	want := []int{0, 0, 1, 1, 2, 2, 2, 2}
	for step, idx := range want {
		assert.Equal(t, idx, res.Lookup.At(step), "step %d", step)
	}
}

func TestExecuteAlternate(t *testing.T) {
	res, err := execute(t, "cat | dog", 6)
	require.NoError(t, err)

	want := []int{0, 1, 0, 1, 0, 1}
	for step, idx := range want {
		assert.Equal(t, idx, res.Lookup.At(step), "step %d", step)
	}
}

func TestExecuteAlternatePeriod(t *testing.T) {
	res, err := execute(t, "cat | dog : 2", 8)
	require.NoError(t, err)

	want := []int{0, 0, 1, 1, 0, 0, 1, 1}
	for step, idx := range want {
		assert.Equal(t, idx, res.Lookup.At(step), "step %d", step)
	}
}

func TestExecuteChainedAlternate(t *testing.T) {
	res, err := execute(t, "cat | dog | night", 6)
	require.NoError(t, err)

	require.Len(t, res.Embeddings, 3)
	want := []int{0, 1, 2, 0, 1, 2}
	for step, idx := range want {
		assert.Equal(t, idx, res.Lookup.At(step), "step %d", step)
	}
}

func TestExecuteWalk(t *testing.T) {
	res, err := execute(t, "a % b : 5", 20)
	require.NoError(t, err)

	assert.Equal(t, 5, res.OutputCount)
	assert.Equal(t, LayoutWalk, res.Layout)
	require.Len(t, res.Embeddings, 5)

	// Endpoints are inclusive, interior evenly spaced
	assertVector(t, []float64{0, 0}, res.Embeddings[0])
	assertVector(t, []float64{0.5, 0.5}, res.Embeddings[2])
	assertVector(t, []float64{1, 1}, res.Embeddings[4])
	for i := 1; i < 5; i++ {
		assert.Greater(t, float64(res.Embeddings[i][0]), float64(res.Embeddings[i-1][0]))
	}
}

func TestExecutePingPong(t *testing.T) {
	res, err := execute(t, "a %% b : 3", 20)
	require.NoError(t, err)

	// 3 out plus 2 back, far endpoint rendered once
	assert.Equal(t, 5, res.OutputCount)
	assertVector(t, []float64{0, 0}, res.Embeddings[0])
	assertVector(t, []float64{1, 1}, res.Embeddings[2])
	assertVector(t, []float64{0.5, 0.5}, res.Embeddings[3])
	assertVector(t, []float64{0, 0}, res.Embeddings[4])
}

func TestExecuteGrid(t *testing.T) {
	res, err := execute(t, "a # b : 9", 20)
	require.NoError(t, err)

	assert.Equal(t, 9, res.OutputCount)
	assert.Equal(t, LayoutGrid, res.Layout)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 3, res.Cols)
	require.Len(t, res.Embeddings, 9)
	assertVector(t, []float64{0, 0}, res.Embeddings[0])
	assertVector(t, []float64{1, 1}, res.Embeddings[8])
}

func TestExecuteExplore(t *testing.T) {
	res, err := execute(t, "*cat : 6", 20)
	require.NoError(t, err)

	assert.Equal(t, 6, res.OutputCount)
	assert.Equal(t, LayoutExplore, res.Layout)
	require.Len(t, res.Embeddings, 1)
	assertVector(t, []float64{1, 0}, res.Embeddings[0])
}

func TestExecuteSeedPin(t *testing.T) {
	res, err := execute(t, "@(cat + dog) : 42", 20)
	require.NoError(t, err)

	require.NotNil(t, res.PinnedSeed)
	assert.Equal(t, int64(42), *res.PinnedSeed)
}

func TestExecuteSeedPinOverFanOut(t *testing.T) {
	// Pinning an entire fan-out subtree keeps the pin and the fan-out
	res, err := execute(t, "@(a % b : 3) : 9", 20)
	require.NoError(t, err)

	assert.Equal(t, 3, res.OutputCount)
	require.NotNil(t, res.PinnedSeed)
	assert.Equal(t, int64(9), *res.PinnedSeed)
}

func TestExecutePingPongAtStepLimit(t *testing.T) {
	// 50 steps out and 49 back stays inside the 100-image fan-out cap
	res, err := execute(t, "a %% b : 50", 20)
	require.NoError(t, err)
	assert.Equal(t, 99, res.OutputCount)
	require.Len(t, res.Embeddings, 99)
}

func TestExecuteValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		op      string
		message string
	}{
		{"blend ratio above one", "cat + dog : 1.5", "+", "blend ratio"},
		{"grid not a square", "a # b : 5", "#", "perfect square"},
		{"fan-out over limit", "a % b : 500", "%", "step count"},
		{"nested fan-out", "(a % b : 3) # cat", "#", "fans out"},
		{"temporal under arithmetic", "(day ^ night) + cat", "+", "temporal"},
		{"switch point at zero", "day ^ night : 0%", "^", "strictly between"},
		{"negative seed", "@cat : -1", "@", "non-negative"},
		{"pinned seed under blend", "@cat : 42 + dog", "+", "pinned seed"},
		{"pinned seed under switch", "(@cat : 7) ^ night", "^", "pinned seed"},
		{"pinned seed under alternate", "(@cat : 7) | dog", "|", "pinned seed"},
		{"pingpong round trip over limit", "a %% b : 60", "%%", "step count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.prompt, 10)
			require.Error(t, err)

			var execErr *ExecutionError
			require.True(t, errors.As(err, &execErr))
			assert.Equal(t, tt.op, execErr.Op)
			assert.Contains(t, execErr.Message, tt.message)
			assert.NotEmpty(t, execErr.Suggestion)
		})
	}
}

func TestExecutionErrorSpan(t *testing.T) {
	_, err := execute(t, "cat + dog : 1.5", 10)
	require.Error(t, err)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, 0, execErr.Span.Start.Offset)
	assert.Contains(t, execErr.Error(), "offset 0")
}

func TestExecuteEncoderFailure(t *testing.T) {
	node, err := parser.ParseText("cat + dog", DefaultRegistry())
	require.NoError(t, err)

	failing := func(ctx context.Context, text string) (vector.Vector, error) {
		return nil, errors.New("encoder offline")
	}
	exec := NewExecutor(DefaultRegistry(), nil)
	_, err = exec.Execute(context.Background(), node, failing, 10)
	require.Error(t, err)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Empty(t, execErr.Op)
	assert.Contains(t, execErr.Message, "encoder offline")
}

func TestExecuteShapeMismatch(t *testing.T) {
	vocab := map[string]vector.Vector{
		"cat":  {1, 0},
		"bird": {0, 1, 0},
	}
	node, err := parser.ParseText("cat + bird", DefaultRegistry())
	require.NoError(t, err)

	exec := NewExecutor(DefaultRegistry(), nil)
	_, err = exec.Execute(context.Background(), node, testEncoder(vocab), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrShapeMismatch))
}

func TestExecuteRequiresEncoder(t *testing.T) {
	node, err := parser.ParseText("cat", DefaultRegistry())
	require.NoError(t, err)

	exec := NewExecutor(DefaultRegistry(), nil)
	_, err = exec.Execute(context.Background(), node, nil, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrModelNotLoaded))
}

func TestExecuteRejectsZeroSteps(t *testing.T) {
	node, err := parser.ParseText("cat", DefaultRegistry())
	require.NoError(t, err)

	exec := NewExecutor(DefaultRegistry(), nil)
	_, err = exec.Execute(context.Background(), node, testEncoder(defaultVocab), 0)
	assert.Error(t, err)
}

func TestExecuteHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	node, err := parser.ParseText("cat + dog", DefaultRegistry())
	require.NoError(t, err)

	exec := NewExecutor(DefaultRegistry(), nil)
	_, err = exec.Execute(ctx, node, testEncoder(defaultVocab), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
