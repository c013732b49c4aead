// Package oplang implements the prompt operator language: a small
// expression language embedded in image-generation prompts that composes,
// blends, schedules, and fans out conditioning embeddings.
//
// # Overview
//
// A prompt expression combines plain text runs with symbolic operators:
//
//	cat + dog : 0.3              blend two concepts, 30% toward cat
//	portrait - blurry            subtract a direction
//	!golden hour                 emphasize
//	~oversaturated               negate
//	day ^ night : 40             switch conditioning 40% into the run
//	sketch | photo               alternate conditioning every step
//	winter % summer : 5          5-image interpolation walk
//	forest # desert : 9          3x3 grid between two concepts
//	*(a + b) : 6                 6 diverse seeds of one conditioning
//	@(castle) : 42               pin the subtree's seed
//
// # Pipeline
//
// Raw prompt text flows through the tokenizer and parser
// (oplang/parser) into an AST, which the Executor evaluates bottom-up:
// text leaves call the injected encoder, operator nodes call into the
// embedding algebra (oplang/vector) and the temporal scheduler
// (oplang/schedule). The root Result is expanded by Expand into a
// GenerationPlan of per-image outputs with deterministic seeds.
//
// # Failure semantics
//
// Tokenize and parse errors are fatal for the request and reported with
// character offsets before any encoder work happens. Execution-time
// failures (encoder unavailable, shape mismatch, unsupported operator
// combination) degrade gracefully: Compile returns the original raw
// prompt as fallback text with a warning instead of an error, so
// generation never hard-fails merely because an operator combination
// couldn't be honored.
//
// # Concurrency
//
// The operator registry is populated once at process start and is
// read-only thereafter, so concurrent requests share it without locking.
// Token streams, ASTs, Results, and plans are exclusively owned per
// request.
package oplang
