package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pyros-projects/zxplorer/errors"
)

// StubRenderer satisfies Renderer without a diffusion backend: it writes
// an empty placeholder file per output. Used by the default "stub"
// backend config and throughout tests.
type StubRenderer struct {
	OutputDir string
}

// Render writes the placeholder file and returns its metadata
func (r *StubRenderer) Render(ctx context.Context, spec RenderSpec) (Image, error) {
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return Image{}, errors.Wrapf(err, "failed to create output directory %s", r.OutputDir)
	}

	path := filepath.Join(r.OutputDir, fmt.Sprintf("%s_%03d.png", spec.RequestID, spec.Index))
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		return Image{}, errors.Wrapf(err, "failed to write placeholder %s", path)
	}

	return Image{Index: spec.Index, Path: path, Seed: spec.Seed}, nil
}
