package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/pyros-projects/zxplorer/gen"
	"github.com/pyros-projects/zxplorer/history"
	"github.com/pyros-projects/zxplorer/logger"
)

// GenerateCmd renders a prompt expression to images
var GenerateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Render a prompt expression to images",
	Long: `Render a prompt expression to one or more images.

The prompt may use operators and __variable__ placeholders:

  zxplorer generate "cat + dog : 0.3"
  zxplorer generate "dawn % dusk : 5" --seed 42
  zxplorer generate "a __style__ portrait" --steps 30`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	GenerateCmd.Flags().Int("steps", 0, "Diffusion steps (0 = configured default)")
	GenerateCmd.Flags().Int("width", 0, "Image width in pixels (0 = configured default)")
	GenerateCmd.Flags().Int("height", 0, "Image height in pixels (0 = configured default)")
	GenerateCmd.Flags().Int64("seed", -1, "Base seed (-1 = random)")
	GenerateCmd.Flags().Bool("no-history", false, "Skip recording the run in history")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	orch, _, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	req := gen.GenerationRequest{Prompt: strings.Join(args, " ")}
	req.Steps, _ = cmd.Flags().GetInt("steps")
	req.Width, _ = cmd.Flags().GetInt("width")
	req.Height, _ = cmd.Flags().GetInt("height")
	if seed, _ := cmd.Flags().GetInt64("seed"); seed >= 0 {
		req.Seed = &seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressbar, _ := pterm.DefaultProgressbar.WithTotal(100).WithTitle("generating").Start()
	result, err := orch.Generate(ctx, req, func(ev gen.ProgressEvent) {
		progressbar.UpdateTitle(ev.Message)
		if ev.Percent > 0 {
			progressbar.Current = int(ev.Percent)
		}
	})
	progressbar.Stop()
	if err != nil {
		pterm.Error.Println(err.Error())
		return err
	}

	for _, w := range result.Warnings {
		pterm.Warning.Println(w)
	}
	for _, e := range result.Errors {
		pterm.Error.Println(e)
	}

	rows := pterm.TableData{{"#", "Seed", "Path"}}
	for _, img := range result.Images {
		rows = append(rows, []string{
			fmt.Sprintf("%d", img.Index),
			fmt.Sprintf("%d", img.Seed),
			img.Path,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	pterm.Success.Printfln("rendered %d image(s) in %s", len(result.Images), result.Duration.Round(time.Millisecond))

	if skip, _ := cmd.Flags().GetBool("no-history"); !skip {
		recordRun(ctx, cfg.Database.Path, result)
	}
	return nil
}

// recordRun best-effort persists the run; a broken history database
// must not fail a successful generation
func recordRun(ctx context.Context, dbPath string, result *gen.GenerationResult) {
	store, err := history.Open(dbPath, nil)
	if err != nil {
		logger.Warnw("Failed to open history database",
			logger.FieldError, err.Error())
		return
	}
	defer store.Close()

	err = store.Record(ctx, history.Run{
		ID:             result.RequestID,
		Prompt:         result.Prompt,
		ResolvedPrompt: result.ResolvedPrompt,
		Seeds:          result.SeedsUsed,
		OutputCount:    len(result.Images),
		Warnings:       result.Warnings,
	})
	if err != nil {
		logger.Warnw("Failed to record run",
			logger.FieldRequestID, result.RequestID,
			logger.FieldError, err.Error())
	}
}
