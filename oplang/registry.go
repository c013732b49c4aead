package oplang

import (
	"context"
	"sort"

	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/oplang/parser"
	"github.com/pyros-projects/zxplorer/oplang/vector"
)

// EncodeFunc is the single point of contact with the external
// text-encoding collaborator. It must honor context cancellation.
type EncodeFunc func(ctx context.Context, text string) (vector.Vector, error)

// Env carries per-request execution state into operator execute rules
type Env struct {
	Ctx        context.Context
	TotalSteps int
}

// ValidateFunc checks operand results and the parameter before execution.
// Called with the already-computed child results; a non-nil error becomes
// a span-tagged ExecutionError and triggers graceful degradation.
type ValidateFunc func(operands []*Result, param parser.Param) error

// ExecuteFunc produces the node's Result from its operands
type ExecuteFunc func(env *Env, operands []*Result, param parser.Param) (*Result, error)

// Descriptor declares one operator's symbol, binding behavior, and
// validation/execution rules. Descriptors are registered once at process
// start and shared read-only across concurrent requests.
type Descriptor struct {
	Symbol        string
	Name          string // human-readable name for errors and metadata
	Precedence    int    // higher binds tighter
	Arity         parser.Arity
	DefaultParam  float64
	HasDefault    bool
	RequiresParam bool
	Validate      ValidateFunc
	Execute       ExecuteFunc
}

// Registry maps operator symbols to descriptors. Populate it fully
// before first use; lookups are lock-free because the table never
// mutates after initialization.
type Registry struct {
	ops map[string]*Descriptor
}

// NewRegistry creates an empty operator registry
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Descriptor)}
}

// Register adds a descriptor, rejecting duplicate symbols
func (r *Registry) Register(d *Descriptor) error {
	if d.Symbol == "" {
		return errors.New("operator descriptor has empty symbol")
	}
	if _, exists := r.ops[d.Symbol]; exists {
		return errors.Wrapf(errors.ErrDuplicateOperator, "symbol %q", d.Symbol)
	}
	if d.Execute == nil {
		return errors.Newf("operator %q has no execute rule", d.Symbol)
	}
	r.ops[d.Symbol] = d
	return nil
}

// Lookup returns the descriptor for a symbol
func (r *Registry) Lookup(symbol string) (*Descriptor, bool) {
	d, ok := r.ops[symbol]
	return d, ok
}

// PrecedenceOf returns the binding strength of a symbol
func (r *Registry) PrecedenceOf(symbol string) (int, bool) {
	d, ok := r.ops[symbol]
	if !ok {
		return 0, false
	}
	return d.Precedence, true
}

// Symbols returns every registered operator symbol, sorted for
// deterministic tokenizer behavior. Implements parser.OperatorSet.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.ops))
	for sym := range r.ops {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Info returns the parse-time view of a symbol. Implements
// parser.OperatorSet.
func (r *Registry) Info(symbol string) (parser.OperatorInfo, bool) {
	d, ok := r.ops[symbol]
	if !ok {
		return parser.OperatorInfo{}, false
	}
	return parser.OperatorInfo{
		Symbol:        d.Symbol,
		Precedence:    d.Precedence,
		Arity:         d.Arity,
		DefaultParam:  d.DefaultParam,
		HasDefault:    d.HasDefault,
		RequiresParam: d.RequiresParam,
	}, true
}

var defaultRegistry = NewRegistry()

func init() {
	if err := registerBuiltins(defaultRegistry); err != nil {
		// A broken builtin table is a programming error, not a runtime
		// condition; fail loudly at process start.
		panic(err)
	}
}

// DefaultRegistry returns the process-wide operator registry, populated
// with the builtin operator set at init
func DefaultRegistry() *Registry {
	return defaultRegistry
}
