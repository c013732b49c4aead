package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/pyros-projects/zxplorer/config"
	"github.com/pyros-projects/zxplorer/history"
	"github.com/pyros-projects/zxplorer/logger"
	"github.com/pyros-projects/zxplorer/server"
)

// ServeCmd starts the HTTP/WebSocket server
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP/WebSocket server",
	Long: `Start the zxplorer server. It exposes prompt validation, image
generation, run history, and prompt variables over HTTP, and streams
generation progress over WebSocket at /ws.`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().Int("port", 0, "Listen port (0 = configured default)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = &port
	}

	orch, varsStore, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	if err := varsStore.StartWatching(); err != nil {
		logger.Warnw("Vars directory watching disabled",
			logger.FieldError, err.Error())
	}
	defer varsStore.StopWatching()

	runs, err := history.Open(cfg.Database.Path, nil)
	if err != nil {
		return err
	}
	defer runs.Close()

	srv := server.New(cfg.Server, orch, runs, varsStore, nil)

	// Server settings take effect on restart; the watcher only logs so
	// an edited config is not silently ignored
	if configPath := watchableConfigPath(cmd); configPath != "" {
		watcher, err := config.NewConfigWatcher(configPath)
		if err != nil {
			logger.Warnw("Config watching disabled",
				logger.FieldError, err.Error())
		} else {
			watcher.OnReload(func(newCfg *config.Config) error {
				logger.Infow("Config file changed; restart to apply server settings")
				return nil
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	pterm.Success.Printfln("zxplorer listening on :%d", cfg.Server.PortOrDefault())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infow("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// watchableConfigPath resolves the config file to watch for changes
func watchableConfigPath(cmd *cobra.Command) string {
	if path, _ := cmd.Root().PersistentFlags().GetString("config"); path != "" {
		return path
	}
	return config.ProjectConfigPath()
}
