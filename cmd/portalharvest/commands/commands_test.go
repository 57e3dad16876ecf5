package commands

import (
	"context"
	"os"
	"path/filepath"
	"portalharvest/internal/components/telemetry"
	"portalharvest/internal/record"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestParsePeriodRange(t *testing.T) {
	periods, err := parsePeriodRange("202411", "02/2025")
	require.NoError(t, err)
	require.Equal(t, []record.Period{
		record.NewPeriod(2024, 11),
		record.NewPeriod(2024, 12),
		record.NewPeriod(2025, 1),
		record.NewPeriod(2025, 2),
	}, periods)

	periods, err = parsePeriodRange("202501", "")
	require.NoError(t, err)
	require.Len(t, periods, 1)

	_, err = parsePeriodRange("", "")
	require.Error(t, err)
	_, err = parsePeriodRange("202503", "202501")
	require.Error(t, err)
	_, err = parsePeriodRange("2025-01", "")
	require.Error(t, err)
}

func TestLatestPeriods(t *testing.T) {
	now := time.Date(2025, 1, 15, 6, 0, 0, 0, time.UTC)

	periods, err := latestPeriods(Config{}, now)
	require.NoError(t, err)
	require.Equal(t, []record.Period{record.NewPeriod(2024, 12)}, periods)

	periods, err = latestPeriods(Config{From: "202410"}, now)
	require.NoError(t, err)
	require.Len(t, periods, 3)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath = filepath.Join(dir, "portalharvest.json5")
	t.Cleanup(func() { configPath = "portalharvest.json5" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	require.Equal(t, defaultConfig.Output, cfg.Output)
	require.Equal(t, defaultConfig.Output+".state.db", cfg.Checkpoint.File)
	require.Equal(t, 20000, cfg.PageCap)

	err = os.WriteFile(configPath, []byte(`{
		// archive runs only
		output: "out/pdm.csv",
		delimiter: ",",
		from: "202401",
	}`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "portalharvest.local.json5"), []byte(`{
		checkpoint: { url: "libsql://pdm.example.turso.io", auth_token: "t" },
	}`), 0644)
	require.NoError(t, err)

	cfg, err = loadConfig()
	require.NoError(t, err)
	require.Equal(t, "out/pdm.csv", cfg.Output)
	require.Equal(t, "202401", cfg.From)
	require.Equal(t, 2000, cfg.DelayMs)
	require.Equal(t, "libsql://pdm.example.turso.io", cfg.Checkpoint.Url)
	require.Empty(t, cfg.Checkpoint.File)

	delimiter, err := cfg.delimiter()
	require.NoError(t, err)
	require.Equal(t, ',', delimiter)

	_, err = Config{Delimiter: ";;"}.delimiter()
	require.Error(t, err)
}

func TestShutdownTelemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	otel = telemetry.Telemetry{MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))}
	t.Cleanup(func() { otel = telemetry.Telemetry{} })

	shutdownTelemetry()

	err := reader.Collect(context.Background(), &metricdata.ResourceMetrics{})
	require.ErrorIs(t, err, sdkmetric.ErrReaderShutdown)
}

func TestRunPagesReturnsErrors(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		snapshotDir = ""
		pagesFrom = "01/01/2025"
	})

	snapshotDir = filepath.Join(t.TempDir(), "missing")
	_, err := runPages(cmd, Config{}, record.Period{})
	require.ErrorContains(t, err, "read snapshots")

	snapshotDir = ""
	pagesFrom = "2025-01-01"
	_, err = runPages(cmd, Config{}, record.Period{})
	require.ErrorContains(t, err, "invalid --from")
}
