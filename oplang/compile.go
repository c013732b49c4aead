package oplang

import (
	"context"

	"go.uber.org/zap"

	"github.com/pyros-projects/zxplorer/logger"
	"github.com/pyros-projects/zxplorer/oplang/parser"
)

// ValidationResult is the outcome of checking a prompt expression
// without executing it. Used by thin validation surfaces (CLI, server)
// so callers can surface parse errors before committing to generation.
type ValidationResult struct {
	OK    bool         `json:"ok"`
	AST   parser.Node  `json:"-"`
	Shape string       `json:"shape,omitempty"` // structure dump for display
	Error *PromptError `json:"error,omitempty"`
}

// PromptError is the serializable form of a tokenize or parse failure
type PromptError struct {
	Kind        string   `json:"kind"` // "tokenize" or "parse"
	Message     string   `json:"message"`
	Offset      int      `json:"offset"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ParseAndValidate parses a prompt expression against the default
// registry. Parse failures are fatal for the request and always
// reported, never silently recovered.
func ParseAndValidate(promptText string) *ValidationResult {
	return parseAndValidate(promptText, DefaultRegistry())
}

func parseAndValidate(promptText string, reg *Registry) *ValidationResult {
	node, err := parser.ParseText(promptText, reg)
	if err != nil {
		return &ValidationResult{OK: false, Error: toPromptError(err)}
	}
	return &ValidationResult{
		OK:    true,
		AST:   node,
		Shape: parser.StructureString(node),
	}
}

func toPromptError(err error) *PromptError {
	switch e := err.(type) {
	case *parser.TokenizeError:
		return &PromptError{
			Kind:    "tokenize",
			Message: e.Message,
			Offset:  e.Pos.Offset,
		}
	case *parser.ParseError:
		return &PromptError{
			Kind:        "parse",
			Message:     e.Message,
			Offset:      e.Offset(),
			Suggestions: e.Suggestions,
		}
	default:
		return &PromptError{Kind: "parse", Message: err.Error(), Offset: -1}
	}
}

// Compiled is the result of compiling a prompt expression for a
// generation request. Either Plan is set (OK), or FallbackText carries
// the raw prompt to be used literally with a warning attached.
type Compiled struct {
	OK           bool
	Plan         *GenerationPlan
	FallbackText string
	Warning      string
}

// Compile is the single entry point the generation orchestrator calls.
//
// Tokenize/parse failures return an error: they are fatal for the
// request, reported at the originating offset before any encoder work.
// Execution-time failures degrade gracefully instead, returning the raw
// prompt as fallback text with a warning; generation must never
// hard-fail merely because an operator combination couldn't be honored.
func Compile(ctx context.Context, promptText string, encode EncodeFunc, totalSteps int, baseSeed int64) (*Compiled, error) {
	return compile(ctx, promptText, DefaultRegistry(), encode, totalSteps, baseSeed, logger.Logger)
}

func compile(ctx context.Context, promptText string, reg *Registry, encode EncodeFunc, totalSteps int, baseSeed int64, log *zap.SugaredLogger) (*Compiled, error) {
	node, err := parser.ParseText(promptText, reg)
	if err != nil {
		return nil, err
	}

	exec := NewExecutor(reg, log)
	res, err := exec.Execute(ctx, node, encode, totalSteps)
	if err != nil {
		// Cancellation is not a degradation case; let it propagate
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warnw("operator execution failed, falling back to literal prompt",
			logger.FieldError, err.Error(),
			logger.FieldPrompt, promptText,
		)
		return &Compiled{
			OK:           false,
			FallbackText: promptText,
			Warning:      err.Error(),
		}, nil
	}

	plan, err := Expand(res, baseSeed)
	if err != nil {
		log.Warnw("plan expansion failed, falling back to literal prompt",
			logger.FieldError, err.Error(),
		)
		return &Compiled{
			OK:           false,
			FallbackText: promptText,
			Warning:      err.Error(),
		}, nil
	}

	return &Compiled{OK: true, Plan: plan}, nil
}
