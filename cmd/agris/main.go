package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Vedant23258/AgrisIntelligence/internal/config"
	"github.com/Vedant23258/AgrisIntelligence/internal/logging"
)

var version = "dev"

func main() {
	_ = godotenv.Load(".env", ".env.local")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	asOf     string
	window   int
	format   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "agris",
		Short: "Market signals for agricultural retail and mandi prices",
		Long: `agris turns retail sales and mandi price CSV files into demand and price
signals, gap analysis, alerts and recommendations.

Examples:
  agris analyze --retail sales.csv --mandi prices.csv
  agris analyze --retail sales.csv --mandi prices.csv --as-of 2024-03-11 --format json
  agris upload --server http://localhost:8000 --kind mandi prices.csv
  agris report --server http://localhost:8000 --window 7`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(g.logLevel, "console")
			if g.format != "table" && g.format != "json" {
				return fmt.Errorf("unknown format %q, use table or json", g.format)
			}
			if g.window < 0 || g.window > 90 {
				return fmt.Errorf("window must be between 1 and 90 days")
			}
			if g.asOf != "" {
				if _, err := time.Parse("2006-01-02", g.asOf); err != nil {
					return fmt.Errorf("as-of must be YYYY-MM-DD: %w", err)
				}
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.asOf, "as-of", "", "analysis date YYYY-MM-DD (default: day after the newest record)")
	root.PersistentFlags().IntVar(&g.window, "window", 0, "window length in days (default: configured window)")
	root.PersistentFlags().StringVar(&g.format, "format", "table", "output format: table, json")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newAnalyzeCmd(g),
		newReportCmd(g),
		newUploadCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "agris", version)
			},
		},
	)
	return root
}

func loadEngineConfig(path string) (config.EngineConfig, error) {
	if path == "" {
		path = os.Getenv("ENGINE_CONFIG")
	}
	cfg, err := config.LoadEngine(path)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
