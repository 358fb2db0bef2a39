package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vedant23258/AgrisIntelligence/internal/engine"
	"github.com/Vedant23258/AgrisIntelligence/internal/ingest"
	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var retailPath, mandiPath, enginePath string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze local CSV files without a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if retailPath == "" && mandiPath == "" {
				return fmt.Errorf("at least one of --retail or --mandi is required")
			}
			ecfg, err := loadEngineConfig(enginePath)
			if err != nil {
				return err
			}

			req := engine.Request{WindowDays: g.window}
			if g.asOf != "" {
				req.AsOf, _ = time.Parse("2006-01-02", g.asOf)
			}
			if retailPath != "" {
				batch, err := readFile(retailPath, ingest.ParseRetail)
				if err != nil {
					return err
				}
				req.Retail = batch.Records
			}
			if mandiPath != "" {
				batch, err := readFile(mandiPath, ingest.ParseMandi)
				if err != nil {
					return err
				}
				req.Mandi = batch.Records
			}

			rep, err := engine.New(ecfg).Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := outputFromReport(rep)
			if g.format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return renderTables(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&retailPath, "retail", "", "retail sales CSV (date, product, sales_quantity, sales_value)")
	cmd.Flags().StringVar(&mandiPath, "mandi", "", "mandi price CSV (date, product, price, location)")
	cmd.Flags().StringVar(&enginePath, "engine-config", "", "engine thresholds YAML file")
	return cmd
}

func readFile[T any](path string, parse func(io.Reader) (*ingest.Batch[T], error)) (*ingest.Batch[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	batch, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, describeIngestError(err))
	}
	return batch, nil
}

// describeIngestError spells out the first rejected rows for terminal output.
func describeIngestError(err error) error {
	var rej *ingest.RejectionError
	if !errors.As(err, &rej) {
		return err
	}
	msg := rej.Error()
	for i, r := range rej.Rejections {
		if i == 5 {
			msg += fmt.Sprintf("\n  ... %d more", rej.Total-i)
			break
		}
		msg += fmt.Sprintf("\n  row %d %s: %s", r.Row, r.Column, r.Reason)
	}
	return errors.New(msg)
}

type reportOutput struct {
	AsOf            string                    `json:"as_of"`
	WindowDays      int                       `json:"window_days"`
	Window          models.AnalysisWindow     `json:"window"`
	Demand          []models.DemandSignal     `json:"demand"`
	Price           []models.PriceSignal      `json:"price"`
	Gaps            []models.GapAnalysis      `json:"gap_analysis"`
	GapSummary      models.GapSummary         `json:"gap_summary"`
	Alerts          []models.Alert            `json:"alerts"`
	Recommendations []models.Recommendation   `json:"recommendations"`
	AlertSummary    models.AlertSummary       `json:"alert_summary"`
	Insights        models.ActionableInsights `json:"actionable_insights"`
}

func outputFromReport(rep *engine.Report) reportOutput {
	wire := rep.Windows.Wire()
	return reportOutput{
		AsOf:            wire.AsOf,
		WindowDays:      rep.Windows.Days,
		Window:          wire,
		Demand:          rep.Demand,
		Price:           rep.Price,
		Gaps:            rep.Gaps,
		GapSummary:      rep.GapSummary,
		Alerts:          rep.Alerts,
		Recommendations: rep.Recommendations,
		AlertSummary:    rep.AlertSummary,
		Insights:        rep.Insights,
	}
}
