package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/soundlens/soundlens/internal/api"
	"github.com/soundlens/soundlens/internal/config"
	"github.com/soundlens/soundlens/internal/events"
	"github.com/soundlens/soundlens/internal/pipeline"
	"github.com/soundlens/soundlens/internal/qa"
)

var rootCmd = &cobra.Command{
	Use:   "soundlens",
	Short: "Analytics over personal streaming-history exports",
	Long: `soundlens normalizes streaming-history JSON exports, segments them
into listening sessions, computes summary statistics, and answers
free-text questions about them through an external QA model.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		setupLogging(cfg.LogLevel)

		slog.Info("soundlens starting", "port", cfg.Port)

		var pub *events.Publisher
		if cfg.NatsURL != "" {
			var err error
			pub, err = events.Connect(cfg.NatsURL, cfg.NatsToken, slog.Default())
			if err != nil {
				return fmt.Errorf("connect nats: %w", err)
			}
			defer pub.Close()
			slog.Info("NATS connected", "url", cfg.NatsURL)
		} else {
			slog.Warn("NATS not configured — running without announcements")
		}

		model := qa.NewClient(cfg.QAURL, cfg.QAModel)
		adapter := qa.NewAdapter(model, cfg.QAMinScore, slog.Default())
		slog.Info("qa client ready", "url", cfg.QAURL, "model", cfg.QAModel)

		pipe := pipeline.New(slog.Default())
		srv := api.NewServer(cfg.Port, pipe, adapter, pub, slog.Default())
		return srv.Start()
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <export.json> [more.json...]",
	Short: "Analyze export files and print the listening report",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		setupLogging(cfg.LogLevel)

		res, err := pipeline.New(slog.Default()).RunFiles(args)
		if err != nil {
			return err
		}

		printSummary(cmd, res)
		cmd.Println(res.Context)
		return nil
	},
}

var askQuestion string

var askCmd = &cobra.Command{
	Use:   "ask -q <question> <export.json> [more.json...]",
	Short: "Ask a question about export files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		setupLogging(cfg.LogLevel)

		res, err := pipeline.New(slog.Default()).RunFiles(args)
		if err != nil {
			return err
		}

		model := qa.NewClient(cfg.QAURL, cfg.QAModel)
		adapter := qa.NewAdapter(model, cfg.QAMinScore, slog.Default())

		answer := adapter.Ask(context.Background(), askQuestion, res.Context)
		cmd.Println(answer.Answer)
		if answer.Answered {
			cmd.Printf("(confidence %.2f)\n", answer.Score)
		}
		return nil
	},
}

func printSummary(cmd *cobra.Command, res *pipeline.Result) {
	for _, warning := range res.Warnings {
		cmd.PrintErrln("warning:", warning)
	}
	cmd.Printf("events: %d  sessions: %d  artists: %d  tracks: %d\n\n",
		res.KPIs.EventCount, len(res.Sessions), res.KPIs.UniqueArtists, res.KPIs.UniqueTracks)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func main() {
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask about the data")
	_ = askCmd.MarkFlagRequired("question")

	rootCmd.AddCommand(serveCmd, analyzeCmd, askCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
