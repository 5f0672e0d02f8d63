package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("lib/telemetry")
var cpuGauge, _ = meter.Float64Gauge("placescout.process.cpu_percent")
var rssGauge, _ = meter.Int64Gauge("placescout.process.rss_mb")
var browserRssGauge, _ = meter.Int64Gauge("placescout.browser.rss_mb")
var goroutineGauge, _ = meter.Int64Gauge("placescout.process.goroutines")

// PerfSample is one reading of the resource usage of this process and the
// processes it spawned (the browser).
type PerfSample struct {
	CpuPercent float64
	RssMb      int64
	ChildRssMb int64
	Goroutines int
}

func rssMb(ctx context.Context, p *process.Process) int64 {
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0
	}
	return int64(info.RSS / 1_000_000)
}

// SamplePerf reads the current usage of this process.
func SamplePerf(ctx context.Context) (PerfSample, error) {
	self, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return PerfSample{}, err
	}
	sample := PerfSample{
		RssMb:      rssMb(ctx, self),
		Goroutines: runtime.NumGoroutine(),
	}
	sample.CpuPercent, err = self.CPUPercentWithContext(ctx)
	if err != nil {
		return sample, err
	}
	// a process without children reports an error here
	children, _ := self.ChildrenWithContext(ctx)
	for _, child := range children {
		sample.ChildRssMb += rssMb(ctx, child)
	}
	return sample, nil
}

// InstrumentPerfStats records a PerfSample every interval until ctx is done.
func InstrumentPerfStats(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sample, err := SamplePerf(ctx)
				if err != nil {
					slog.DebugContext(ctx, "failed to sample resource usage", "err", err)
				}
				cpuGauge.Record(ctx, sample.CpuPercent)
				rssGauge.Record(ctx, sample.RssMb)
				browserRssGauge.Record(ctx, sample.ChildRssMb)
				goroutineGauge.Record(ctx, int64(sample.Goroutines))
			case <-ctx.Done():
				return
			}
		}
	}()
}
