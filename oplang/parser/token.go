package parser

import (
	"strconv"
	"strings"
)

// TokenKind classifies a token produced by the tokenizer
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenOperator
	TokenMultiOperator
	TokenNumber
	TokenColon
	TokenLParen
	TokenRParen
	TokenEOF
)

// String returns a human-readable name for the token kind
func (k TokenKind) String() string {
	switch k {
	case TokenText:
		return "TEXT"
	case TokenOperator:
		return "OPERATOR"
	case TokenMultiOperator:
		return "MULTI_OPERATOR"
	case TokenNumber:
		return "NUMBER"
	case TokenColon:
		return "COLON"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenEOF:
		return "EOF"
	}
	return "UNKNOWN"
}

// Token is a single lexical unit of a prompt expression.
// Tokens are immutable once produced and carry their source span so
// later parse and execution errors can point back at the prompt text.
type Token struct {
	Kind   TokenKind
	Text   string  // raw source slice (symbol, text run, or literal)
	Value  float64 // numeric value, TokenNumber only
	Unit   string  // trailing unit marker on a number ("%"), if any
	Pos    Position
	Length int
}

// Tokenize scans prompt text into a flat token stream, always ending with EOF.
//
// Scanning is left to right with maximal munch: the longest matching
// multi-character operator symbol wins before single-character symbols are
// considered, so "%%" is never split into two "%" tokens. Character runs
// that match no token rule accumulate into TEXT tokens terminated only by
// an operator, paren, colon, or end of input.
//
// Numeric literals are scanned only where the grammar expects them, directly
// after a COLON parameter marker. Everywhere else digits are prompt text
// ("2 cats" stays one TEXT run).
func Tokenize(text string, symbols []string) ([]Token, *TokenizeError) {
	multi, single := splitSymbols(symbols)

	pt := NewPositionTracker(text)
	var tokens []Token

	// Text run accumulation state
	textStart := -1
	var textStartPos Position

	// Open paren positions for unterminated-grouping reporting
	var openParens []Position

	// Set after a COLON so the next non-space run is scanned as a number
	expectNumber := false

	flushText := func(end int) {
		if textStart < 0 {
			return
		}
		raw := text[textStart:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := strings.Index(raw, trimmed[:1])
			start := textStartPos
			start.Character += lead
			start.Offset += lead
			tokens = append(tokens, Token{
				Kind:   TokenText,
				Text:   trimmed,
				Pos:    start,
				Length: len(trimmed),
			})
		}
		textStart = -1
	}

	for pt.offset < len(text) {
		i := pt.offset
		ch := text[i]
		pos := pt.CurrentPosition()

		if expectNumber {
			if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
				pt.AdvanceBytes(1)
				continue
			}
			tok, consumed, terr := scanNumber(text, pos)
			if terr != nil {
				return nil, terr
			}
			tokens = append(tokens, tok)
			pt.AdvanceBytes(consumed)
			expectNumber = false
			continue
		}

		switch ch {
		case '(':
			flushText(i)
			tokens = append(tokens, Token{Kind: TokenLParen, Text: "(", Pos: pos, Length: 1})
			openParens = append(openParens, pos)
			pt.AdvanceBytes(1)
			continue
		case ')':
			flushText(i)
			tokens = append(tokens, Token{Kind: TokenRParen, Text: ")", Pos: pos, Length: 1})
			if len(openParens) > 0 {
				openParens = openParens[:len(openParens)-1]
			}
			pt.AdvanceBytes(1)
			continue
		case ':':
			flushText(i)
			tokens = append(tokens, Token{Kind: TokenColon, Text: ":", Pos: pos, Length: 1})
			expectNumber = true
			pt.AdvanceBytes(1)
			continue
		}

		// Maximal munch: multi-character symbols before single-character ones
		if sym := matchSymbol(text[i:], multi); sym != "" {
			flushText(i)
			tokens = append(tokens, Token{Kind: TokenMultiOperator, Text: sym, Pos: pos, Length: len(sym)})
			pt.AdvanceBytes(len(sym))
			continue
		}
		if sym := matchSymbol(text[i:], single); sym != "" {
			flushText(i)
			tokens = append(tokens, Token{Kind: TokenOperator, Text: sym, Pos: pos, Length: len(sym)})
			pt.AdvanceBytes(len(sym))
			continue
		}

		// Plain text run
		if textStart < 0 {
			textStart = i
			textStartPos = pos
		}
		pt.AdvanceBytes(1)
	}

	flushText(len(text))

	if len(openParens) > 0 {
		last := openParens[len(openParens)-1]
		return nil, &TokenizeError{
			Message: "unterminated parenthesis",
			Pos:     last,
		}
	}

	tokens = append(tokens, Token{Kind: TokenEOF, Pos: pt.CurrentPosition()})
	return tokens, nil
}

// scanNumber reads an integer or decimal literal with an optional trailing
// unit marker. Returns the token and the number of bytes consumed.
func scanNumber(text string, pos Position) (Token, int, *TokenizeError) {
	i := pos.Offset
	j := i
	sawDigit := false
	sawDot := false

	if j < len(text) && (text[j] == '-' || text[j] == '+') {
		j++
	}
	for j < len(text) {
		c := text[j]
		if c >= '0' && c <= '9' {
			sawDigit = true
			j++
			continue
		}
		if c == '.' {
			if sawDot {
				return Token{}, 0, &TokenizeError{
					Message: "malformed numeric literal: multiple decimal points",
					Pos:     pos,
				}
			}
			sawDot = true
			j++
			continue
		}
		break
	}

	if !sawDigit {
		return Token{}, 0, &TokenizeError{
			Message: "expected numeric parameter after ':'",
			Pos:     pos,
		}
	}

	raw := text[i:j]
	unit := ""
	if j < len(text) && text[j] == '%' {
		unit = "%"
		j++
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(raw, "."), 64)
	if err != nil {
		return Token{}, 0, &TokenizeError{
			Message: "malformed numeric literal: " + raw,
			Pos:     pos,
		}
	}

	return Token{
		Kind:   TokenNumber,
		Text:   text[i:j],
		Value:  value,
		Unit:   unit,
		Pos:    pos,
		Length: j - i,
	}, j - i, nil
}

// splitSymbols partitions operator symbols into multi- and single-character
// sets, with multi-character symbols ordered longest first for maximal munch.
func splitSymbols(symbols []string) (multi, single []string) {
	for _, s := range symbols {
		if len(s) > 1 {
			multi = append(multi, s)
		} else if len(s) == 1 {
			single = append(single, s)
		}
	}
	// Insertion sort by descending length; symbol sets are tiny
	for i := 1; i < len(multi); i++ {
		for j := i; j > 0 && len(multi[j]) > len(multi[j-1]); j-- {
			multi[j], multi[j-1] = multi[j-1], multi[j]
		}
	}
	return multi, single
}

func matchSymbol(rest string, symbols []string) string {
	for _, s := range symbols {
		if strings.HasPrefix(rest, s) {
			return s
		}
	}
	return ""
}
