package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func renderTables(w io.Writer, out reportOutput) error {
	fmt.Fprintf(w, "\nMarket signals as of %s (%d-day windows, current %s..%s)\n\n",
		out.AsOf, out.WindowDays, out.Window.CurrentStart, out.Window.CurrentEnd)

	if len(out.Gaps) == 0 {
		fmt.Fprintln(w, "No products with data in the current window.")
		return nil
	}

	prices := make(map[string]models.PriceSignal, len(out.Price))
	for _, p := range out.Price {
		prices[p.Product] = p
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Product", "Demand Δ", "Price Δ", "Volatility", "Forecast", "Signal", "Recommendation"}),
	)
	for _, g := range out.Gaps {
		vol, forecast := "-", "-"
		if p, ok := prices[g.Product]; ok {
			vol = fmt.Sprintf("%s %.2f%%", p.VolatilityTier, p.VolatilityPercentage)
			forecast = formatForecast(p.ForecastPrices)
		}
		table.Append([]string{
			g.Product,
			signedPct(g.DemandChange),
			signedPct(g.PriceChange),
			vol,
			forecast,
			g.SignalColor + " " + string(g.SignalLevel),
			g.Recommendation,
		})
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d products: %d opportunities, %d watch, %d risks\n",
		out.GapSummary.TotalProducts, out.GapSummary.Opportunities, out.GapSummary.Watches, out.GapSummary.Risks)

	return renderAlerts(w, out.Alerts, out.Insights)
}

func renderAlerts(w io.Writer, alerts []models.Alert, insights models.ActionableInsights) error {
	if len(alerts) > 0 {
		fmt.Fprintf(w, "\nAlerts (%d)\n", len(alerts))
		table := tablewriter.NewTable(w,
			tablewriter.WithHeader([]string{"#", "Level", "Product", "Message"}),
		)
		for _, a := range alerts {
			table.Append([]string{fmt.Sprint(a.ID), string(a.SignalLevel), a.Product, a.Message})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	if len(insights.ImmediateActions) > 0 {
		fmt.Fprintln(w, "\nImmediate actions:")
		for _, a := range insights.ImmediateActions {
			fmt.Fprintln(w, "  -", a)
		}
	}
	return nil
}

func signedPct(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

func formatForecast(prices []float64) string {
	if len(prices) == 0 {
		return "-"
	}
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = fmt.Sprintf("%.2f", p)
	}
	return strings.Join(parts, " → ")
}
