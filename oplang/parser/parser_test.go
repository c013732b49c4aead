package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOpSet is a fixture mirroring the builtin precedence table
type testOpSet struct {
	infos map[string]OperatorInfo
}

func (s *testOpSet) Symbols() []string {
	out := make([]string, 0, len(s.infos))
	for sym := range s.infos {
		out = append(out, sym)
	}
	return out
}

func (s *testOpSet) Info(symbol string) (OperatorInfo, bool) {
	info, ok := s.infos[symbol]
	return info, ok
}

func newTestOps() *testOpSet {
	infos := map[string]OperatorInfo{
		"!":  {Symbol: "!", Precedence: 70, Arity: ArityUnary},
		"~":  {Symbol: "~", Precedence: 70, Arity: ArityUnary},
		"@":  {Symbol: "@", Precedence: 70, Arity: ArityUnary, RequiresParam: true},
		"+":  {Symbol: "+", Precedence: 50, Arity: ArityBinary},
		"-":  {Symbol: "-", Precedence: 50, Arity: ArityBinary},
		"^":  {Symbol: "^", Precedence: 40, Arity: ArityBinary},
		"|":  {Symbol: "|", Precedence: 40, Arity: ArityBinary},
		"%":  {Symbol: "%", Precedence: 30, Arity: ArityBinary},
		"%%": {Symbol: "%%", Precedence: 30, Arity: ArityBinary},
		"#":  {Symbol: "#", Precedence: 20, Arity: ArityBinary},
		"*":  {Symbol: "*", Precedence: 10, Arity: ArityUnary},
	}
	return &testOpSet{infos: infos}
}

func mustParse(t *testing.T, text string) Node {
	t.Helper()
	node, err := ParseText(text, newTestOps())
	require.NoError(t, err)
	return node
}

func TestParseStructure(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "a serene mountain lake", `"a serene mountain lake"`},
		{"blend with param", "cat + dog : 0.3", `(+ "cat" "dog" :0.3)`},
		{"blend default param", "cat + dog", `(+ "cat" "dog")`},
		{"unary emphasis", "!portrait", `(! "portrait")`},
		{"unary with param", "!portrait : 2", `(! "portrait" :2)`},
		{"nested unary", "!~blurry", `(! (~ "blurry"))`},
		{"left associative", "a + b + c", `(+ (+ "a" "b") "c")`},
		{"precedence blend over walk", "a + b % c", `(% (+ "a" "b") "c")`},
		{"precedence blend over grid", "a # b + c", `(# "a" (+ "b" "c"))`},
		{"parens override", "a + (b % c)", `(+ "a" (% "b" "c"))`},
		{"explore binds loosest", "*sunset + rain", `(* (+ "sunset" "rain"))`},
		{"explore leaf with param", "*sunset : 9", `(* "sunset" :9)`},
		{"pingpong multi-char", "a %% b : 4", `(%% "a" "b" :4)`},
		{"percent param", "day ^ night : 40%", `(^ "day" "night" :40%)`},
		{"grouped explore param", "*(a + b) : 6", `(* (+ "a" "b") :6)`},
		{"unary operand of binary", "!cat + ~dog", `(+ (! "cat") (~ "dog"))`},
		{"seed pin", "@(cat + dog) : 42", `(@ (+ "cat" "dog") :42)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := mustParse(t, tt.input)
			assert.Equal(t, tt.want, StructureString(node))
		})
	}
}

func TestParseRedundantParensSameStructure(t *testing.T) {
	plain := mustParse(t, "cat + dog : 0.3")
	wrapped := mustParse(t, "((cat) + (dog) : 0.3)")
	assert.Equal(t, StructureString(plain), StructureString(wrapped))
}

func TestParseTrailingOperatorErrorPosition(t *testing.T) {
	// A dangling operator reports at the operator's own offset
	_, err := ParseText("cat %", newTestOps())
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrorKindArity, perr.Kind)
	assert.Equal(t, 4, perr.Offset())
	assert.Contains(t, perr.Message, "missing its operand")
}

func TestParseUnaryTrailingOperator(t *testing.T) {
	_, err := ParseText("a + !", newTestOps())
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, 4, perr.Offset())
}

func TestParseBinaryWithoutLeftOperand(t *testing.T) {
	_, err := ParseText("+ dog", newTestOps())
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrorKindArity, perr.Kind)
	assert.Equal(t, 0, perr.Offset())
}

func TestParseUnaryInBinaryPosition(t *testing.T) {
	_, err := ParseText("cat ! dog", newTestOps())
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrorKindArity, perr.Kind)
	assert.Equal(t, 4, perr.Offset())
}

func TestParseRequiredParamMissing(t *testing.T) {
	_, err := ParseText("@cat", newTestOps())
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Contains(t, perr.Message, "requires an explicit")
	require.NotEmpty(t, perr.Suggestions)
}

func TestParseStrayColon(t *testing.T) {
	_, err := ParseText(": 5", newTestOps())
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrorKindSyntax, perr.Kind)
	assert.Equal(t, 0, perr.Offset())
}

func TestParseColonAtEOF(t *testing.T) {
	_, err := ParseText("a + b :", newTestOps())
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrorKindNumber, perr.Kind)
}

func TestParseUnterminatedParen(t *testing.T) {
	_, err := ParseText("a + (b % c", newTestOps())
	require.Error(t, err)
	terr, ok := err.(*TokenizeError)
	require.True(t, ok)
	assert.Equal(t, 4, terr.Pos.Offset)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := ParseText("", newTestOps())
	require.Error(t, err)
	perr, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Contains(t, perr.Message, "unexpected end of input")
}

func TestParseSpans(t *testing.T) {
	node := mustParse(t, "cat + dog : 0.3")
	bin, ok := node.(*BinaryOpNode)
	require.True(t, ok)

	assert.Equal(t, 0, bin.Span().Start.Offset)
	assert.Equal(t, 15, bin.Span().End.Offset)
	assert.Equal(t, 0, bin.Left.Span().Start.Offset)
	assert.Equal(t, 3, bin.Left.Span().End.Offset)
	assert.Equal(t, 6, bin.Right.Span().Start.Offset)
}

func TestParseParenSpanWidens(t *testing.T) {
	node := mustParse(t, "(cat + dog)")
	assert.Equal(t, 0, node.Span().Start.Offset)
	assert.Equal(t, 11, node.Span().End.Offset)
}

func TestParseParamBelongsToInnerOperator(t *testing.T) {
	// Without parens the suffix binds to the operator that consumed the
	// right operand, not the outer unary
	node := mustParse(t, "*a + b : 6")
	assert.Equal(t, `(* (+ "a" "b" :6))`, StructureString(node))
}

func TestParseErrorFormatting(t *testing.T) {
	_, err := ParseText("cat %", newTestOps())
	require.Error(t, err)
	perr := err.(*ParseError)

	plain := perr.FormatError(ErrorContextPlain)
	assert.Contains(t, plain, "missing its operand")
	assert.Contains(t, plain, "offset 4")
	assert.Contains(t, plain, "Suggestions:")
}
