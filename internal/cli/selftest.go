package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/vietddude/tema/internal/control"
	"github.com/vietddude/tema/internal/core/domain"
	"github.com/vietddude/tema/internal/health"
	"github.com/vietddude/tema/internal/notify"
	"github.com/vietddude/tema/internal/resilience/cache"
	"github.com/vietddude/tema/internal/resilience/recovery"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the integration checks one after another and summarize",
	Run:   runSelftest,
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}

type check struct {
	name string
	fn   func(ctx context.Context) error
}

type checkResult struct {
	name     string
	err      error
	duration time.Duration
}

// runChecks runs checks sequentially; a failing check does not stop the rest.
func runChecks(ctx context.Context, checks []check) []checkResult {
	results := make([]checkResult, 0, len(checks))
	for _, c := range checks {
		start := time.Now()
		err := c.fn(ctx)
		results = append(results, checkResult{name: c.name, err: err, duration: time.Since(start)})
	}
	return results
}

func buildChecks(app *control.App) []check {
	return []check{
		{"cache round trip", func(context.Context) error {
			c := cache.New()
			key := cache.Key("selftest", "cache")
			c.Set(key, "ok", time.Minute)
			v, ok := cache.Get[string](c, key)
			if !ok || v != "ok" {
				return errors.New("cached value not returned")
			}
			c.Delete(key)
			if _, ok := c.Get(key); ok {
				return errors.New("deleted value still present")
			}
			return nil
		}},
		{"templates", func(context.Context) error {
			for _, t := range []domain.Template{
				domain.TemplateConsultationConfirmed,
				domain.TemplateConsultationCancelled,
				domain.TemplateAppointmentReminder,
				domain.TemplatePaymentConfirmed,
				domain.TemplatePaymentFailed,
				domain.TemplateWelcome,
			} {
				if _, err := notify.Render(t, map[string]string{"name": "Teste"}); err != nil {
					return fmt.Errorf("%s: %w", t, err)
				}
			}
			return nil
		}},
		{"receipt pdf", func(context.Context) error {
			pdf, err := notify.RenderReceipt(notify.Receipt{
				PaymentID:   "selftest",
				Name:        "Teste",
				CPF:         "12345678909",
				Description: "Plano Tema Saúde",
				Value:       49.9,
				BillingType: domain.BillingBoleto,
			})
			if err != nil {
				return err
			}
			if len(pdf) == 0 {
				return errors.New("empty pdf")
			}
			return nil
		}},
		{"connectivity", func(ctx context.Context) error {
			var down []string
			for svc, ok := range recovery.CheckConnectivity(ctx, app.Probes(), 0) {
				if !ok {
					down = append(down, svc.DisplayName())
				}
			}
			if len(down) > 0 {
				return fmt.Errorf("unreachable: %v", down)
			}
			return nil
		}},
		{"health", func(ctx context.Context) error {
			r := app.Health.CheckHealth(ctx)
			if r.Overall == health.StatusDown {
				return fmt.Errorf("overall %s", r.Overall)
			}
			return nil
		}},
		{"offline queue", func(ctx context.Context) error {
			st := app.Recovery.ProcessOfflineQueue(ctx)
			if st.Failed > 0 {
				return fmt.Errorf("%d of %d queued operations still failing", st.Failed, st.Processed)
			}
			return nil
		}},
	}
}

func runSelftest(cmd *cobra.Command, args []string) {
	cfg := setup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize tema", "error", err)
		os.Exit(1)
	}

	results := runChecks(ctx, buildChecks(app))
	failed := renderResults(results)
	_ = app.Stop(ctx)
	if failed > 0 {
		os.Exit(1)
	}
}

func renderResults(results []checkResult) int {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Check", "Result", "Duration", "Detail"})
	failed := 0
	for _, r := range results {
		status, detail := "PASS", ""
		if r.err != nil {
			status, detail = "FAIL", r.err.Error()
			failed++
		}
		tw.AppendRow(table.Row{r.name, status, r.duration.Round(time.Millisecond), detail})
	}
	tw.AppendFooter(table.Row{"Summary", fmt.Sprintf("%d/%d passed", len(results)-failed, len(results)), "", ""})
	tw.Render()
	return failed
}
