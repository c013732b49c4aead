package parser

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// ErrorContext indicates the environment where parser errors will be displayed
type ErrorContext string

const (
	// ErrorContextTerminal indicates errors will be displayed in terminal with ANSI colors
	ErrorContextTerminal ErrorContext = "terminal"
	// ErrorContextPlain indicates errors will be displayed without ANSI codes (web UI, logs, etc)
	ErrorContextPlain ErrorContext = "plain"
)

// ErrorSeverity indicates the severity level of a parser error
type ErrorSeverity string

const (
	SeverityError   ErrorSeverity = "error"   // Syntax errors that prevent parsing
	SeverityWarning ErrorSeverity = "warning" // Best-effort parsing warnings
	SeverityHint    ErrorSeverity = "hint"    // Suggestions for improvement
)

// ErrorKind categorizes parser errors for programmatic handling
type ErrorKind string

const (
	ErrorKindSyntax  ErrorKind = "syntax"  // Invalid expression syntax
	ErrorKindArity   ErrorKind = "arity"   // Operator missing an operand
	ErrorKindBalance ErrorKind = "balance" // Unbalanced grouping
	ErrorKindNumber  ErrorKind = "number"  // Malformed numeric parameter
	ErrorKindUnknown ErrorKind = "unknown" // Uncategorized
)

// TokenizeError reports a failure to scan prompt text into tokens.
// Carries the character offset where scanning stopped.
type TokenizeError struct {
	Message string
	Pos     Position
}

// Error implements the error interface
func (e *TokenizeError) Error() string {
	return fmt.Sprintf("%s (at offset %d)", e.Message, e.Pos.Offset)
}

// ParseError represents a structured parser error with source position,
// the offending token, and suggested fixes.
type ParseError struct {
	Err         error     // Underlying error (optional)
	Kind        ErrorKind // Error category
	Severity    ErrorSeverity
	Message     string   // Human-readable message
	Token       *Token   // Token that caused the error (optional)
	Range       *Range   // Source range (optional)
	Suggestions []string // Possible fixes
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return e.FormatError(ErrorContextPlain)
}

// FormatError generates a context-appropriate error message
func (e *ParseError) FormatError(ctx ErrorContext) string {
	if ctx == ErrorContextTerminal {
		return e.formatTerminalError()
	}
	return e.formatPlainError()
}

// formatPlainError creates a concise error for web UI and logs
func (e *ParseError) formatPlainError() string {
	msg := e.Message
	if e.Token != nil {
		msg += fmt.Sprintf(" (at offset %d)", e.Token.Pos.Offset)
	} else if e.Range != nil {
		msg += fmt.Sprintf(" (at offset %d)", e.Range.Start.Offset)
	}
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(". Suggestions: %s", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// formatTerminalError creates a rich colored error for the terminal
func (e *ParseError) formatTerminalError() string {
	var baseMsg string
	switch e.Severity {
	case SeverityError:
		baseMsg = pterm.Red(e.Message)
	case SeverityWarning:
		baseMsg = pterm.Yellow(e.Message)
	case SeverityHint:
		baseMsg = pterm.LightCyan(e.Message)
	default:
		baseMsg = e.Message
	}

	context := ""
	if e.Token != nil {
		context += fmt.Sprintf("\n  %s '%s'", pterm.Yellow("Token:"), e.Token.Text)
		context += fmt.Sprintf("\n  %s %d", pterm.Yellow("Offset:"), e.Token.Pos.Offset)
	} else if e.Range != nil {
		context += fmt.Sprintf("\n  %s %d", pterm.Yellow("Offset:"), e.Range.Start.Offset)
	}
	if context != "" {
		context = fmt.Sprintf("\n\n%s%s", pterm.LightCyan("Context:"), context)
	}

	if len(e.Suggestions) > 0 {
		context += fmt.Sprintf("\n\n%s", pterm.Green("Suggestions:"))
		for _, suggestion := range e.Suggestions {
			context += fmt.Sprintf("\n  - %s", suggestion)
		}
	}

	return baseMsg + context
}

// Offset returns the character offset the error points at, or -1
func (e *ParseError) Offset() int {
	if e.Token != nil {
		return e.Token.Pos.Offset
	}
	if e.Range != nil {
		return e.Range.Start.Offset
	}
	return -1
}

// Unwrap for errors.Is/As compatibility
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError with the given kind and message
func NewParseError(kind ErrorKind, message string) *ParseError {
	return &ParseError{
		Kind:     kind,
		Severity: SeverityError,
		Message:  message,
	}
}

// WithToken sets the token that caused the error
func (e *ParseError) WithToken(token Token) *ParseError {
	t := token
	e.Token = &t
	return e
}

// WithRange sets the source range
func (e *ParseError) WithRange(r Range) *ParseError {
	e.Range = &r
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ParseError) WithSuggestion(suggestion string) *ParseError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithUnderlying sets the underlying error
func (e *ParseError) WithUnderlying(err error) *ParseError {
	e.Err = err
	return e
}
