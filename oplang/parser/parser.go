// Package parser implements the prompt operator language front end:
// tokenization, precedence-climbing parsing, and position-tagged errors.
//
// The grammar is a small expression language embedded in free-form
// generation prompts. Plain text runs are leaves; symbolic operators
// combine them, with parentheses overriding ambient precedence and an
// optional ': <number>' suffix supplying a per-operator parameter:
//
//	cat + dog : 0.3          blend, 30% toward cat
//	(oil painting + photo) % sketch : 5
//	!portrait ^ ~blurry : 40
//
// Parsing is fail-fast: every syntax problem is reported with the
// character offset of the offending token before any model work happens.
package parser

import "fmt"

// Parse consumes a token stream and produces an AST or a ParseError.
// The operator set supplies the precedence table; parenthesized
// sub-expressions always parse as independent subtrees.
func Parse(tokens []Token, ops OperatorSet) (Node, *ParseError) {
	p := &parser{tokens: tokens, ops: ops}
	node, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != TokenEOF {
		if tok.Kind == TokenRParen {
			return nil, NewParseError(ErrorKindBalance, "unbalanced ')' without matching '('").
				WithToken(tok).
				WithSuggestion("remove the stray ')' or add a matching '('")
		}
		return nil, NewParseError(ErrorKindSyntax, fmt.Sprintf("unexpected %s token '%s' after expression", tok.Kind, tok.Text)).
			WithToken(tok)
	}
	return node, nil
}

// ParseText tokenizes and parses prompt text in one step.
// The returned error is a *TokenizeError or *ParseError.
func ParseText(text string, ops OperatorSet) (Node, error) {
	tokens, terr := Tokenize(text, ops.Symbols())
	if terr != nil {
		return nil, terr
	}
	node, perr := Parse(tokens, ops)
	if perr != nil {
		return nil, perr
	}
	return node, nil
}

type parser struct {
	tokens []Token
	pos    int
	ops    OperatorSet
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// parseExpr is the precedence-climbing loop. It parses a primary, then
// greedily consumes binary operators whose precedence is at least minPrec,
// recursing with a higher floor for right operands (left associativity).
func (p *parser) parseExpr(minPrec int) (Node, *ParseError) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok.Kind != TokenOperator && tok.Kind != TokenMultiOperator {
			break
		}
		info, ok := p.ops.Info(tok.Text)
		if !ok {
			return nil, NewParseError(ErrorKindSyntax, fmt.Sprintf("unknown operator '%s'", tok.Text)).
				WithToken(tok)
		}
		if info.Arity != ArityBinary {
			return nil, NewParseError(ErrorKindArity, fmt.Sprintf("operator '%s' is unary and cannot appear between operands", tok.Text)).
				WithToken(tok).
				WithSuggestion(fmt.Sprintf("write it as a prefix: %s<operand>", tok.Text))
		}
		if info.Precedence < minPrec {
			break
		}
		opTok := p.next()

		if err := p.requireOperand(opTok); err != nil {
			return nil, err
		}
		right, err := p.parseExpr(info.Precedence + 1)
		if err != nil {
			return nil, err
		}

		param, endTok, err := p.parseOptionalParam(opTok, info)
		if err != nil {
			return nil, err
		}

		span := RangeFromPositions(left.Span().Start, right.Span().End)
		if endTok != nil {
			span.End = tokenEnd(*endTok)
		}
		left = &BinaryOpNode{
			Operator: opTok.Text,
			Left:     left,
			Right:    right,
			Param:    param,
			span:     span,
		}
	}

	return left, nil
}

// parsePrimary parses a leaf, a parenthesized subtree, or a unary
// operator application.
func (p *parser) parsePrimary() (Node, *ParseError) {
	tok := p.peek()

	switch tok.Kind {
	case TokenText:
		p.next()
		return &TextNode{
			Text: tok.Text,
			span: RangeFromPositions(tok.Pos, tokenEnd(tok)),
		}, nil

	case TokenLParen:
		open := p.next()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		closing := p.peek()
		if closing.Kind != TokenRParen {
			return nil, NewParseError(ErrorKindBalance, "expected ')' to close group").
				WithToken(open).
				WithSuggestion("add a closing parenthesis")
		}
		p.next()
		// Parenthesized subtrees keep their inner structure; only the span widens
		return respan(inner, RangeFromPositions(open.Pos, tokenEnd(closing))), nil

	case TokenOperator, TokenMultiOperator:
		info, ok := p.ops.Info(tok.Text)
		if !ok {
			return nil, NewParseError(ErrorKindSyntax, fmt.Sprintf("unknown operator '%s'", tok.Text)).
				WithToken(tok)
		}
		if info.Arity != ArityUnary {
			return nil, NewParseError(ErrorKindArity, fmt.Sprintf("operator '%s' is missing its left operand", tok.Text)).
				WithToken(tok).
				WithSuggestion("binary operators need operands on both sides")
		}
		opTok := p.next()
		if err := p.requireOperand(opTok); err != nil {
			return nil, err
		}
		operand, err := p.parseExpr(info.Precedence)
		if err != nil {
			return nil, err
		}
		param, endTok, err := p.parseOptionalParam(opTok, info)
		if err != nil {
			return nil, err
		}
		span := RangeFromPositions(opTok.Pos, operand.Span().End)
		if endTok != nil {
			span.End = tokenEnd(*endTok)
		}
		return &UnaryOpNode{
			Operator: opTok.Text,
			Operand:  operand,
			Param:    param,
			span:     span,
		}, nil

	case TokenColon:
		return nil, NewParseError(ErrorKindSyntax, "unexpected ':' without an operator to parameterize").
			WithToken(tok).
			WithSuggestion("parameters attach to operators, e.g. 'a + b : 0.3'")

	case TokenRParen:
		return nil, NewParseError(ErrorKindBalance, "unexpected ')'").
			WithToken(tok)

	case TokenNumber:
		return nil, NewParseError(ErrorKindSyntax, fmt.Sprintf("unexpected number '%s'", tok.Text)).
			WithToken(tok)

	default:
		return nil, NewParseError(ErrorKindSyntax, "unexpected end of input").
			WithToken(tok)
	}
}

// requireOperand fails fast when an operator has no operand following it,
// reporting the error at the operator's own offset.
func (p *parser) requireOperand(opTok Token) *ParseError {
	next := p.peek()
	if next.Kind == TokenEOF || next.Kind == TokenRParen || next.Kind == TokenColon {
		return NewParseError(ErrorKindArity, fmt.Sprintf("operator '%s' is missing its operand", opTok.Text)).
			WithToken(opTok).
			WithSuggestion(fmt.Sprintf("supply an operand after '%s'", opTok.Text))
	}
	return nil
}

// parseOptionalParam consumes a trailing ': <number>' suffix if present.
// Returns the param, and the number token when one was consumed.
func (p *parser) parseOptionalParam(opTok Token, info OperatorInfo) (Param, *Token, *ParseError) {
	if p.peek().Kind != TokenColon {
		if info.RequiresParam {
			return Param{}, nil, NewParseError(ErrorKindSyntax, fmt.Sprintf("operator '%s' requires an explicit ': <number>' parameter", opTok.Text)).
				WithToken(opTok).
				WithSuggestion(fmt.Sprintf("write '%s<operand> : <number>'", opTok.Text))
		}
		return Param{}, nil, nil
	}
	p.next() // colon
	numTok := p.peek()
	if numTok.Kind != TokenNumber {
		// Tokenizer scans numbers after ':', so this only happens at EOF
		return Param{}, nil, NewParseError(ErrorKindNumber, "expected number after ':'").
			WithToken(numTok)
	}
	p.next()
	return Param{Value: numTok.Value, Set: true, Unit: numTok.Unit}, &numTok, nil
}

// respan returns the node with its span widened to cover enclosing parens
func respan(n Node, r Range) Node {
	switch v := n.(type) {
	case *TextNode:
		v.span = r
	case *UnaryOpNode:
		v.span = r
	case *BinaryOpNode:
		v.span = r
	}
	return n
}

// tokenEnd computes the position just past a token, accounting for
// newlines inside multi-line text runs
func tokenEnd(tok Token) Position {
	end := tok.Pos
	for i := 0; i < len(tok.Text); i++ {
		if tok.Text[i] == '\n' {
			end.Line++
			end.Character = 0
		} else {
			end.Character++
		}
		end.Offset++
	}
	if tok.Text == "" {
		end.Offset += tok.Length
		end.Character += tok.Length
	}
	return end
}
