package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/slopwatch/internal/pipeline"
	"github.com/ppiankov/slopwatch/internal/server"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a project and classify assistant claims as they arrive",
	Long: `Watch starts the file watcher on a project directory and the HTTP API
that receives conversation messages.

Assistant messages are posted to POST /api/messages; every claim found in
them is correlated with file changes inside the analysis window and ends
with a verdict (verified, partial, lie or unknown).

Example:
  slopwatch watch .
  slopwatch watch ./web --listen 127.0.0.1:9000 --window 1m
  slopwatch watch . --store sqlite --forward http://localhost:8080/ingest`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("listen", "", "API listen address (default from config: 127.0.0.1:7433)")
	watchCmd.Flags().Duration("window", 0, "analysis window (default from config: 30s)")
	watchCmd.Flags().Bool("no-auto", false, "disable automatic analysis; claims wait for POST /api/analyze")
	watchCmd.Flags().String("store", "", "verdict store driver: memory or sqlite")
	watchCmd.Flags().String("forward", "", "URL to forward claims and verdicts to")
	watchCmd.Flags().StringSlice("include", nil, "only watch paths matching these globs")
	watchCmd.Flags().StringSlice("exclude", nil, "additional globs to ignore")

	_ = viper.BindPFlag("server.listen", watchCmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("store.driver", watchCmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("forward.url", watchCmd.Flags().Lookup("forward"))
	_ = viper.BindPFlag("include", watchCmd.Flags().Lookup("include"))
	_ = viper.BindPFlag("exclude", watchCmd.Flags().Lookup("exclude"))
}

func runWatch(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		viper.Set("project_path", args[0])
	}
	if cmd.Flags().Changed("window") {
		window, _ := cmd.Flags().GetDuration("window")
		viper.Set("analysis_window", window)
	}
	if noAuto, _ := cmd.Flags().GetBool("no-auto"); noAuto {
		viper.Set("auto_analyze", false)
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	logger := slog.Default()
	p, err := pipeline.New(cfg, pipeline.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("starting slopwatch: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("Failed to close pipeline", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(p, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.Run(gctx)
	})
	g.Go(func() error {
		return srv.ListenAndServe(gctx, cfg.Server.Listen)
	})

	go func() {
		select {
		case <-p.Watching():
			fmt.Fprintf(os.Stderr, "Watching %s (window %s, API http://%s)\n", cfg.ProjectPath, cfg.AnalysisWindow, cfg.Server.Listen)
		case <-gctx.Done():
		}
	}()

	start := time.Now()
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Shut down", "uptime", time.Since(start).Round(time.Second))
	return nil
}
