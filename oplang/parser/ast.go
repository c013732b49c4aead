package parser

import (
	"fmt"
	"strings"
)

// Arity is the operand count an operator declares
type Arity int

const (
	ArityUnary  Arity = 1
	ArityBinary Arity = 2
)

// OperatorInfo is the parse-time view of a registered operator.
// The registry owns the full descriptor (validation and execution rules);
// the parser only needs binding strength, arity, and parameter defaults.
type OperatorInfo struct {
	Symbol        string
	Precedence    int // higher binds tighter
	Arity         Arity
	DefaultParam  float64
	HasDefault    bool
	RequiresParam bool // operator is invalid without an explicit ': <number>'
}

// OperatorSet is the read-only registry view consumed by the tokenizer
// and parser. Implementations must be safe for concurrent use.
type OperatorSet interface {
	// Symbols returns every registered operator symbol
	Symbols() []string
	// Info returns parse-time information for a symbol
	Info(symbol string) (OperatorInfo, bool)
}

// Param is an optional numeric parameter attached to an operator node
/// via the ': <number>' suffix. Unset params fall back to the operator
// descriptor's default at execution time.
type Param struct {
	Value float64
	Set   bool
	Unit  string // "%" when the literal carried a percent marker
}

// Node is a parsed expression tree node. The tree is a strict ownership
// hierarchy: nodes own their children exclusively, are built once by the
// parser, and are consumed once by the executor.
type Node interface {
	// Span returns the source range the node was built from
	Span() Range
	node()
}

// TextNode is a leaf holding a plain prompt text run
type TextNode struct {
	Text string
	span Range
}

func (n *TextNode) Span() Range { return n.span }
func (n *TextNode) node()       {}

// UnaryOpNode applies a single-operand operator (emphasis, negation,
// seed pin, explore) to its operand subtree
type UnaryOpNode struct {
	Operator string
	Operand  Node
	Param    Param
	span     Range
}

func (n *UnaryOpNode) Span() Range { return n.span }
func (n *UnaryOpNode) node()       {}

// BinaryOpNode applies a two-operand operator (blend, subtract, temporal
// switch, alternation, walk, grid) to its left and right subtrees
type BinaryOpNode struct {
	Operator string
	Left     Node
	Right    Node
	Param    Param
	span     Range
}

func (n *BinaryOpNode) Span() Range { return n.span }
func (n *BinaryOpNode) node()       {}

// NewTextNode constructs a text leaf with an explicit span (used by tests)
func NewTextNode(text string, span Range) *TextNode {
	return &TextNode{Text: text, span: span}
}

// StructureString renders the tree as an S-expression ignoring source
// spans, so two parses of equivalent expressions compare equal even when
// parenthesization moved the offsets around.
func StructureString(n Node) string {
	var b strings.Builder
	writeStructure(&b, n)
	return b.String()
}

func writeStructure(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *TextNode:
		fmt.Fprintf(b, "%q", v.Text)
	case *UnaryOpNode:
		fmt.Fprintf(b, "(%s ", v.Operator)
		writeStructure(b, v.Operand)
		writeParam(b, v.Param)
		b.WriteString(")")
	case *BinaryOpNode:
		fmt.Fprintf(b, "(%s ", v.Operator)
		writeStructure(b, v.Left)
		b.WriteString(" ")
		writeStructure(b, v.Right)
		writeParam(b, v.Param)
		b.WriteString(")")
	default:
		b.WriteString("<?>")
	}
}

func writeParam(b *strings.Builder, p Param) {
	if p.Set {
		fmt.Fprintf(b, " :%g%s", p.Value, p.Unit)
	}
}
