package gen

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pyros-projects/zxplorer/config"
	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/logger"
	"github.com/pyros-projects/zxplorer/oplang"
	"github.com/pyros-projects/zxplorer/vars"
)

// Orchestrator runs the two-phase generation workflow: resolve and
// compile the prompt first, then walk the plan rendering each output.
// One orchestrator serves many concurrent requests; all per-request
// state lives on the stack.
type Orchestrator struct {
	renderer Renderer
	encode   oplang.EncodeFunc
	store    *vars.Store // nil disables variable substitution
	defaults config.GenerationConfig
	log      *zap.SugaredLogger
}

// NewOrchestrator wires the generation workflow. A nil logger falls back
// to the global logger.
func NewOrchestrator(renderer Renderer, encode oplang.EncodeFunc, store *vars.Store, defaults config.GenerationConfig, log *zap.SugaredLogger) *Orchestrator {
	if log == nil {
		log = logger.Logger
	}
	return &Orchestrator{
		renderer: renderer,
		encode:   encode,
		store:    store,
		defaults: defaults,
		log:      log,
	}
}

// Generate runs one request end to end.
//
// Parse errors in the prompt expression are fatal and returned as an
// error before any rendering starts. Execution-level operator failures
// degrade to rendering the literal prompt text with a warning. Failures
// of individual outputs are recorded in the result and do not abort the
// remaining outputs; only context cancellation does.
func (o *Orchestrator) Generate(ctx context.Context, req GenerationRequest, progress ProgressFunc) (*GenerationResult, error) {
	if req.Prompt == "" {
		return nil, errors.Wrap(errors.ErrInvalidRequest, "prompt must not be empty")
	}
	if o.renderer == nil {
		return nil, errors.Wrap(errors.ErrServiceUnavailable, "no renderer configured")
	}

	start := time.Now()
	requestID := uuid.NewString()
	emit := func(ev ProgressEvent) {
		if progress != nil {
			ev.RequestID = requestID
			progress(ev)
		}
	}

	steps := req.Steps
	if steps <= 0 {
		steps = o.defaults.DefaultSteps
	}
	width, height := req.Width, req.Height
	if width <= 0 {
		width = o.defaults.DefaultWidth
	}
	if height <= 0 {
		height = o.defaults.DefaultHeight
	}

	var baseSeed int64
	if req.Seed != nil {
		baseSeed = *req.Seed
	} else {
		baseSeed = rand.Int63()
	}

	result := &GenerationResult{
		RequestID: requestID,
		Prompt:    req.Prompt,
	}

	// Phase 1: resolve variables, then compile the operator expression
	emit(ProgressEvent{Stage: StageResolving, Message: "resolving prompt variables"})
	resolved := req.Prompt
	if o.store != nil {
		sub := o.store.Substitute(ctx, req.Prompt, baseSeed)
		resolved = sub.Result
		result.Warnings = append(result.Warnings, sub.Warnings...)
	}
	result.ResolvedPrompt = resolved

	emit(ProgressEvent{Stage: StageCompiling, Message: "compiling prompt expression"})
	compiled, err := oplang.Compile(ctx, resolved, o.encode, steps, baseSeed)
	if err != nil {
		emit(ProgressEvent{Stage: StageError, Message: err.Error()})
		return nil, err
	}

	o.log.Infow("generation started",
		logger.FieldRequestID, requestID,
		logger.FieldPrompt, resolved,
		logger.FieldSeed, baseSeed,
		logger.FieldSteps, steps,
	)

	// Phase 2: render each planned output
	var specs []RenderSpec
	if compiled.OK {
		for i := range compiled.Plan.Outputs {
			out := &compiled.Plan.Outputs[i]
			specs = append(specs, RenderSpec{
				RequestID: requestID,
				Index:     out.Index,
				Seed:      out.Seed,
				Width:     width,
				Height:    height,
				Steps:     steps,
				Prompt:    resolved,
				Output:    out,
			})
		}
	} else {
		result.Warnings = append(result.Warnings, compiled.Warning)
		specs = []RenderSpec{{
			RequestID: requestID,
			Index:     0,
			Seed:      baseSeed,
			Width:     width,
			Height:    height,
			Steps:     steps,
			Prompt:    compiled.FallbackText,
		}}
	}

	total := len(specs)
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			emit(ProgressEvent{Stage: StageError, Message: err.Error()})
			return nil, err
		}

		emit(ProgressEvent{
			Stage:   StageRendering,
			Message: fmt.Sprintf("rendering output %d of %d", i+1, total),
			Percent: float64(i) / float64(total) * 100,
			Data:    map[string]any{"index": spec.Index, "seed": spec.Seed},
		})

		img, err := o.renderer.Render(ctx, spec)
		if err != nil {
			if ctx.Err() != nil {
				emit(ProgressEvent{Stage: StageError, Message: ctx.Err().Error()})
				return nil, ctx.Err()
			}
			o.log.Warnw("output render failed",
				logger.FieldRequestID, requestID,
				"index", spec.Index,
				logger.FieldError, err.Error(),
			)
			result.Errors = append(result.Errors, fmt.Sprintf("output %d: %v", spec.Index, err))
			continue
		}
		result.Images = append(result.Images, img)
		result.SeedsUsed = append(result.SeedsUsed, img.Seed)
	}

	result.Duration = time.Since(start)

	if len(result.Images) == 0 && len(result.Errors) > 0 {
		emit(ProgressEvent{Stage: StageError, Message: "all outputs failed"})
		return result, errors.Newf("all %d outputs failed to render", total)
	}

	emit(ProgressEvent{
		Stage:   StageComplete,
		Message: fmt.Sprintf("rendered %d of %d outputs", len(result.Images), total),
		Percent: 100,
	})
	o.log.Infow("generation finished",
		logger.FieldRequestID, requestID,
		logger.FieldOutputCount, len(result.Images),
		logger.FieldDurationMS, result.Duration.Milliseconds(),
	)
	return result, nil
}
