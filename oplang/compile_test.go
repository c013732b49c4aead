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

func TestParseAndValidateOK(t *testing.T) {
	res := ParseAndValidate("cat + dog : 0.3")

	assert.True(t, res.OK)
	assert.Nil(t, res.Error)
	require.NotNil(t, res.AST)
	assert.Equal(t, `(+ "cat" "dog" :0.3)`, res.Shape)
}

func TestParseAndValidatePlainText(t *testing.T) {
	res := ParseAndValidate("a cozy cabin in the woods")
	assert.True(t, res.OK)
	assert.Equal(t, `"a cozy cabin in the woods"`, res.Shape)
}

func TestParseAndValidateParseError(t *testing.T) {
	res := ParseAndValidate("cat %")

	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, "parse", res.Error.Kind)
	assert.Equal(t, 4, res.Error.Offset)
	assert.NotEmpty(t, res.Error.Suggestions)
}

func TestParseAndValidateTokenizeError(t *testing.T) {
	res := ParseAndValidate("a + (b % c")

	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, "tokenize", res.Error.Kind)
	assert.Equal(t, 4, res.Error.Offset)
}

func TestCompileBlend(t *testing.T) {
	c, err := Compile(context.Background(), "cat + dog : 0.3", testEncoder(defaultVocab), 20, 1000)
	require.NoError(t, err)

	assert.True(t, c.OK)
	require.NotNil(t, c.Plan)
	assert.Equal(t, 1, c.Plan.Count)
	require.Len(t, c.Plan.Outputs, 1)

	out := c.Plan.Outputs[0]
	assert.Equal(t, int64(1000), out.Seed)
	assert.False(t, out.Scheduled())
	assertVector(t, []float64{0.3, 0.7}, out.Embedding)
}

func TestCompileWalkPlan(t *testing.T) {
	c, err := Compile(context.Background(), "a % b : 5", testEncoder(defaultVocab), 20, 1000)
	require.NoError(t, err)

	require.True(t, c.OK)
	assert.Equal(t, 5, c.Plan.Count)
	assert.Equal(t, LayoutWalk, c.Plan.Layout)
	require.Len(t, c.Plan.Outputs, 5)

	// Interpolation order preserved, seeds sequential from the base
	for i, out := range c.Plan.Outputs {
		assert.Equal(t, i, out.Index)
		assert.Equal(t, int64(1000+i), out.Seed)
		if i > 0 {
			prev := c.Plan.Outputs[i-1].Embedding
			assert.Greater(t, float64(out.Embedding[0]), float64(prev[0]))
		}
	}
}

func TestCompileScheduledOutput(t *testing.T) {
	c, err := Compile(context.Background(), "day ^ night", testEncoder(defaultVocab), 10, 7)
	require.NoError(t, err)

	require.True(t, c.OK)
	require.Len(t, c.Plan.Outputs, 1)
	out := c.Plan.Outputs[0]
	require.True(t, out.Scheduled())

	assertVector(t, []float64{2, 0}, out.ActiveAt(0))
	assertVector(t, []float64{2, 0}, out.ActiveAt(4))
	assertVector(t, []float64{0, 2}, out.ActiveAt(5))
	assertVector(t, []float64{0, 2}, out.ActiveAt(9))
}

func TestCompileParseErrorIsFatal(t *testing.T) {
	_, err := Compile(context.Background(), "cat %", testEncoder(defaultVocab), 10, 0)
	require.Error(t, err)

	perr, ok := err.(*parser.ParseError)
	require.True(t, ok)
	assert.Equal(t, 4, perr.Offset())
}

func TestCompileExecutionFailureFallsBack(t *testing.T) {
	c, err := Compile(context.Background(), "cat + dog : 1.5", testEncoder(defaultVocab), 10, 0)
	require.NoError(t, err)

	assert.False(t, c.OK)
	assert.Nil(t, c.Plan)
	assert.Equal(t, "cat + dog : 1.5", c.FallbackText)
	assert.Contains(t, c.Warning, "blend ratio")
}

func TestCompileNestedSeedPinFallsBack(t *testing.T) {
	// '@' binds tighter than '+', so the pin lands on a blend operand
	// where it cannot survive; the request degrades with a warning
	// instead of dropping the pin
	c, err := Compile(context.Background(), "@cat : 42 + dog", testEncoder(defaultVocab), 10, 0)
	require.NoError(t, err)

	assert.False(t, c.OK)
	assert.Nil(t, c.Plan)
	assert.Equal(t, "@cat : 42 + dog", c.FallbackText)
	assert.Contains(t, c.Warning, "pinned seed")
}

func TestCompileEncoderFailureFallsBack(t *testing.T) {
	failing := func(ctx context.Context, text string) (vector.Vector, error) {
		return nil, errors.New("encoder offline")
	}
	c, err := Compile(context.Background(), "cat + dog", failing, 10, 0)
	require.NoError(t, err)

	assert.False(t, c.OK)
	assert.Equal(t, "cat + dog", c.FallbackText)
	assert.Contains(t, c.Warning, "encoder offline")
}

func TestCompileCancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Compile(ctx, "cat + dog", testEncoder(defaultVocab), 10, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
