package gen

import (
	"context"
	"time"

	"github.com/pyros-projects/zxplorer/oplang"
)

// GenerationRequest describes one generation run as submitted by the CLI
// or server surface. Zero-valued fields fall back to configured defaults.
type GenerationRequest struct {
	Prompt string `json:"prompt"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Steps  int    `json:"steps,omitempty"`

	// Seed pins the base seed; nil draws a fresh one
	Seed *int64 `json:"seed,omitempty"`
}

// Image is one rendered output
type Image struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Seed  int64  `json:"seed"`
}

// GenerationResult summarizes a completed run. Per-output failures are
// collected in Errors; the run as a whole still succeeds if at least one
// output rendered.
type GenerationResult struct {
	RequestID      string        `json:"request_id"`
	Prompt         string        `json:"prompt"`
	ResolvedPrompt string        `json:"resolved_prompt"`
	Images         []Image       `json:"images"`
	SeedsUsed      []int64       `json:"seeds_used"`
	Warnings       []string      `json:"warnings,omitempty"`
	Errors         []string      `json:"errors,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

// Progress stages, in workflow order
const (
	StageResolving = "resolving" // variable substitution
	StageCompiling = "compiling" // operator expression compilation
	StageRendering = "rendering" // per-output image rendering
	StageComplete  = "complete"
	StageError     = "error"
)

// ProgressEvent is a typed progress notification emitted during a run
type ProgressEvent struct {
	RequestID string         `json:"request_id"`
	Stage     string         `json:"stage"`
	Message   string         `json:"message"`
	Percent   float64        `json:"percent"`
	Data      map[string]any `json:"data,omitempty"`
}

// ProgressFunc receives progress events; may be nil
type ProgressFunc func(ProgressEvent)

// RenderSpec is the per-output instruction handed to the renderer
type RenderSpec struct {
	RequestID string
	Index     int
	Seed      int64
	Width     int
	Height    int
	Steps     int

	// Prompt is the resolved prompt text, always set for bookkeeping and
	// the only conditioning available when Output is nil (literal fallback)
	Prompt string

	// Output carries the compiled conditioning; nil in fallback mode
	Output *oplang.Output
}

// Renderer is the image-generation collaborator. Implementations must
// honor context cancellation.
type Renderer interface {
	Render(ctx context.Context, spec RenderSpec) (Image, error)
}
