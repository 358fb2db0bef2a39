package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
	"github.com/Vedant23258/AgrisIntelligence/internal/services"
)

func defaultServer() string {
	if v := os.Getenv("AGRIS_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func newReportCmd(g *globalFlags) *cobra.Command {
	var server string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fetch the current analysis from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := services.NewAnalysisClient(server, timeout)
			q := services.AnalysisQuery{AsOf: g.asOf, WindowDays: g.window}

			var (
				out   reportOutput
				price models.PriceResponse
				gap   models.GapResponse
				recs  models.RecommendationsResponse
			)
			eg, ctx := errgroup.WithContext(cmd.Context())
			eg.Go(func() (err error) {
				price, err = client.Price(ctx, q)
				return err
			})
			eg.Go(func() (err error) {
				gap, err = client.Gap(ctx, q)
				return err
			})
			eg.Go(func() (err error) {
				recs, err = client.Recommendations(ctx, q)
				return err
			})
			if err := eg.Wait(); err != nil {
				return fmt.Errorf("fetching report from %s: %w", server, err)
			}

			out.AsOf = gap.AsOf
			out.WindowDays = gap.WindowDays
			out.Window = models.AnalysisWindow{AsOf: gap.AsOf}
			if len(price.Signals) > 0 {
				out.Window = price.Signals[0].Window
			}
			out.Price = price.Signals
			out.Gaps = gap.GapAnalysis
			out.GapSummary = gap.Summary
			out.Alerts = recs.Alerts
			out.Recommendations = recs.Recommendations
			out.AlertSummary = recs.Summary
			out.Insights = recs.ActionableInsights
			if g.format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return renderTables(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&server, "server", defaultServer(), "agris API base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "per-request timeout")
	return cmd
}

func newUploadCmd() *cobra.Command {
	var server, kind string
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload a retail or mandi CSV to a running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != "retail" && kind != "mandi" {
				return fmt.Errorf("kind must be retail or mandi, got %q", kind)
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			client := services.NewAnalysisClient(server, time.Minute)
			res, err := client.Upload(cmd.Context(), kind, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows, %d products, %s..%s (batch %s)\n",
				res.Filename, res.Rows, res.Products, res.DateStart, res.DateEnd, res.BatchID)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", defaultServer(), "agris API base URL")
	cmd.Flags().StringVar(&kind, "kind", "", "dataset kind: retail or mandi")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
