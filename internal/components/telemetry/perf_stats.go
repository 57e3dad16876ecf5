package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

var rssGauge, _ = meter.Int64Gauge("process.rss_mb")
var allocGauge, _ = meter.Int64Gauge("process.allocated_mb")

// MemoryStats is a point-in-time reading of the process memory footprint.
type MemoryStats struct {
	RSSMegabytes   int64
	AllocMegabytes int64
}

// ReadMemoryStats reads the resident set size of the current process and the
// go heap allocation.
func ReadMemoryStats(ctx context.Context) (MemoryStats, error) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	out := MemoryStats{AllocMegabytes: int64(memStats.Alloc / 1_000_000)}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return out, err
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return out, err
	}
	out.RSSMegabytes = int64(info.RSS / 1_000_000)
	return out, nil
}

// InstrumentPerfStats records memory gauges every interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats, err := ReadMemoryStats(ctx)
				if err != nil {
					slog.Debug("failed to read process memory", "err", err)
				}
				rssGauge.Record(ctx, stats.RSSMegabytes)
				allocGauge.Record(ctx, stats.AllocMegabytes)
			case <-ctx.Done():
				return
			}
		}
	}()
}
