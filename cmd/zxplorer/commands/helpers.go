package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/pyros-projects/zxplorer/config"
	"github.com/pyros-projects/zxplorer/errors"
	"github.com/pyros-projects/zxplorer/gen"
	"github.com/pyros-projects/zxplorer/vars"
)

// stubEncoderDim is the conditioning width used by the stub backend
const stubEncoderDim = 768

// loadConfig honors the --config flag, falling back to the standard
// search path (project zxplorer.toml, user config, env vars)
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// buildOrchestrator wires the renderer, encoder, and variable store
// declared by the config into a generation orchestrator
func buildOrchestrator(cfg *config.Config) (*gen.Orchestrator, *vars.Store, error) {
	store, err := vars.NewStore(cfg.Vars.Dir)
	if err != nil {
		return nil, nil, err
	}

	var renderer gen.Renderer
	switch cfg.Renderer.Backend {
	case "stub", "":
		renderer = &gen.StubRenderer{OutputDir: cfg.Generation.OutputDir}
	case "external":
		if cfg.Renderer.Endpoint == "" {
			return nil, nil, errors.New("renderer backend 'external' requires renderer.endpoint")
		}
		renderer = gen.NewHTTPRenderer(cfg.Renderer.Endpoint, time.Duration(cfg.Renderer.TimeoutSeconds)*time.Second)
	default:
		return nil, nil, errors.Newf("unknown renderer backend %q", cfg.Renderer.Backend)
	}

	orch := gen.NewOrchestrator(renderer, gen.StubEncoder(stubEncoderDim), store, cfg.Generation, nil)
	return orch, store, nil
}
