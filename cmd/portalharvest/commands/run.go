package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"portalharvest/internal/collect"
	"portalharvest/internal/components/chrono"
	"portalharvest/internal/components/telemetry"
	"portalharvest/internal/dedupe"
	"portalharvest/internal/normalize"
	"portalharvest/internal/sink"
	"portalharvest/internal/store"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

type runParams struct {
	cfg    Config
	source collect.UnitSource
	cap    int
	reset  bool
}

// runCollection wires the output, the key set and the checkpoint store
// around the source and runs it to completion.
func runCollection(ctx context.Context, params runParams) (collect.Summary, error) {
	cfg := params.cfg
	tel := telemetry.SlogAPI{}
	clock := chrono.StandardTime{}

	delimiter, err := cfg.delimiter()
	if err != nil {
		return collect.Summary{}, err
	}

	db, err := cfg.Checkpoint.OpenDB()
	if err != nil {
		return collect.Summary{}, fmt.Errorf("open checkpoint store: %w", err)
	}
	defer db.Close()
	checkpoints := store.NewStore(db, cfg.Output, clock)

	if params.reset {
		slog.Info("forgetting checkpoints", "output", cfg.Output)
		err = checkpoints.Reset(ctx)
		if err != nil {
			return collect.Summary{}, fmt.Errorf("reset checkpoints: %w", err)
		}
	}

	var keys dedupe.KeySet = dedupe.NewMemorySet()
	if cfg.PersistKeys {
		keys, err = checkpoints.KeySet(context.WithoutCancel(ctx))
		if err != nil {
			return collect.Summary{}, fmt.Errorf("load keys: %w", err)
		}
	}

	out, err := collect.OpenSink(cfg.Output, sink.Options{
		Delimiter: delimiter,
		Cap:       params.cap,
		BOM:       cfg.BOM,
	}, keys)
	if err != nil {
		return collect.Summary{}, err
	}
	defer out.Close()
	slog.Info(
		"resuming output",
		"path", cfg.Output,
		"records", out.Count(),
		"known_keys", keys.Len(),
	)

	orchestrator := collect.NewOrchestrator(collect.Options{
		Source:      params.source,
		Normalizer:  normalize.NewNormalizer(nil, cfg.DetailTemplate, tel),
		Keys:        keys,
		Sink:        out,
		Checkpoints: checkpoints,
		Pacer:       chrono.SleepPacer{Delay: time.Duration(cfg.DelayMs) * time.Millisecond},
		Time:        clock,
		Tel:         tel,
	})
	return orchestrator.Run(ctx)
}

func printSummary(summary collect.Summary) {
	t := newTable()
	t.SetTitle("Run %s", summary.RunID)
	t.AppendRows([]table.Row{
		{"Mode", summary.Mode},
		{"Outcome", string(summary.Outcome)},
		{"Units attempted", summary.Attempted},
		{"Units succeeded", summary.Succeeded},
		{"Units failed", summary.Failed},
		{"Units skipped", summary.Skipped},
		{"Records fetched", summary.Fetched},
		{"Records written", summary.Written},
		{"Duplicates dropped", summary.Duplicates},
		{"Distinct UFs", summary.Regions},
		{"Distinct beneficiaries", summary.Identifiers},
		{"Total disbursed (R$)", collect.FormatAmount(summary.TotalAmount)},
		{"Duration", summary.Duration.Round(time.Millisecond).String()},
	})
	t.Render()

	if len(summary.Failures) == 0 {
		return
	}
	failures := newTable()
	failures.SetTitle("Failed units")
	failures.AppendHeader(table.Row{"Unit", "Kind", "Error"})
	for _, f := range summary.Failures {
		failures.AppendRow(table.Row{f.Unit, f.Kind, f.Message})
	}
	failures.Render()
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
