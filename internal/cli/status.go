package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vietddude/tema/internal/control"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe every collaborator once and print their health",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := setup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize tema", "error", err)
		os.Exit(1)
	}
	defer app.Stop(ctx)

	report := app.Health.CheckHealth(ctx)
	renderReport(report)
	if report.Overall == health.StatusDown {
		os.Exit(2)
	}
}

func renderReport(report health.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Service", "Status", "Latency (ms)", "Error"})
	for _, svc := range domain.AllServices {
		h, ok := report.Services[svc]
		if !ok {
			continue
		}
		tw.AppendRow(table.Row{svc.DisplayName(), h.Status, h.LatencyMs, h.Error})
	}
	tw.AppendFooter(table.Row{"Overall", report.Overall, "", report.LastCheck.Format(time.RFC3339)})
	tw.Render()
}
