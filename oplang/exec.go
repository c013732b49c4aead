package oplang

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/logger"
	"github.com/pyros-projects/zxplorer/oplang/parser"
)

// ExecutionError reports a failure while evaluating an AST node. It
// carries the node's recorded source span so the caller can point at the
// originating character offset, plus a suggested fix where one exists.
type ExecutionError struct {
	Op         string // operator symbol, empty for text leaves
	Span       parser.Range
	Message    string
	Suggestion string
	Err        error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = fmt.Sprintf("operator '%s': %s", e.Op, msg)
	}
	msg = fmt.Sprintf("%s (at offset %d)", msg, e.Span.Start.Offset)
	if e.Suggestion != "" {
		msg += ". Suggestion: " + e.Suggestion
	}
	return msg
}

// Unwrap for errors.Is/As compatibility
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Executor walks a parsed expression bottom-up, producing the root
// Result. Text leaves call the injected encoder; operator nodes validate
// and execute their registered descriptors.
type Executor struct {
	reg *Registry
	log *zap.SugaredLogger
}

// NewExecutor creates an executor over the given registry.
// A nil logger falls back to the global logger.
func NewExecutor(reg *Registry, log *zap.SugaredLogger) *Executor {
	if log == nil {
		log = logger.Logger
	}
	return &Executor{reg: reg, log: log}
}

// Execute evaluates the AST post-order, children before parent.
//
// Exactly one encoder call happens per TEXT leaf. Repeated identical
// text is re-encoded rather than deduplicated: the simplicity and
// determinism of one-call-per-leaf beats the saved encoder work.
func (e *Executor) Execute(ctx context.Context, root parser.Node, encode EncodeFunc, totalSteps int) (*Result, error) {
	if encode == nil {
		return nil, errors.Wrap(errors.ErrModelNotLoaded, "no encoder supplied")
	}
	if totalSteps < 1 {
		return nil, errors.Newf("total steps must be >= 1, got %d", totalSteps)
	}
	env := &Env{Ctx: ctx, TotalSteps: totalSteps}
	return e.eval(env, root, encode)
}

func (e *Executor) eval(env *Env, node parser.Node, encode EncodeFunc) (*Result, error) {
	// Cancellation propagates between node evaluations so an aborted
	// request never starts another encoder call
	if err := env.Ctx.Err(); err != nil {
		return nil, err
	}

	switch n := node.(type) {
	case *parser.TextNode:
		v, err := encode(env.Ctx, n.Text)
		if err != nil {
			return nil, &ExecutionError{
				Span:    n.Span(),
				Message: fmt.Sprintf("encoding %q failed: %v", n.Text, err),
				Err:     err,
			}
		}
		return singleResult(v), nil

	case *parser.UnaryOpNode:
		operand, err := e.eval(env, n.Operand, encode)
		if err != nil {
			return nil, err
		}
		return e.apply(env, n.Operator, n.Span(), []*Result{operand}, n.Param)

	case *parser.BinaryOpNode:
		left, err := e.eval(env, n.Left, encode)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(env, n.Right, encode)
		if err != nil {
			return nil, err
		}
		return e.apply(env, n.Operator, n.Span(), []*Result{left, right}, n.Param)

	default:
		return nil, errors.AssertionFailedf("unknown AST node type %T", node)
	}
}

// apply validates and executes one operator over its computed operands
func (e *Executor) apply(env *Env, symbol string, span parser.Range, operands []*Result, param parser.Param) (*Result, error) {
	desc, ok := e.reg.Lookup(symbol)
	if !ok {
		return nil, &ExecutionError{
			Op:      symbol,
			Span:    span,
			Message: "operator is not registered",
		}
	}

	if desc.Validate != nil {
		if err := desc.Validate(operands, param); err != nil {
			return nil, &ExecutionError{
				Op:         symbol,
				Span:       span,
				Message:    err.Error(),
				Suggestion: fmt.Sprintf("adjust the operands or parameter of '%s' (%s)", symbol, desc.Name),
				Err:        err,
			}
		}
	}

	res, err := desc.Execute(env, operands, param)
	if err != nil {
		return nil, &ExecutionError{
			Op:      symbol,
			Span:    span,
			Message: err.Error(),
			Err:     err,
		}
	}
	if res.OutputCount < 1 {
		return nil, errors.AssertionFailedf("operator %q produced output count %d", symbol, res.OutputCount)
	}

	e.log.Debugw("operator executed",
		logger.FieldOperator, symbol,
		logger.FieldOutputCount, res.OutputCount,
	)
	return res, nil
}
