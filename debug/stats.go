package debug

// Periodic stats logger started when config.Debug is true. Emits goroutine
// count, heap and process RSS next to whatever the caller's StatsFunc reports
// (pipeline and capture counters).

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"
)

// StatsFunc returns extra attributes to log with each sample.
type StatsFunc func() []slog.Attr

// StartStatsLogger logs a sample every interval until ctx is done.
func StartStatsLogger(ctx context.Context, interval time.Duration, logger *slog.Logger, extra StatsFunc) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		var rssErrLogged bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			attrs := Sample()
			rss, err := residentSetSize()
			if err != nil && !rssErrLogged {
				logger.Warn("stats: rss query failed", slog.String("err", err.Error()))
				rssErrLogged = true
			}
			attrs = append(attrs, slog.Uint64(rssKey, rss))
			if extra != nil {
				attrs = append(attrs, extra()...)
			}
			logger.LogAttrs(ctx, slog.LevelInfo, "stats", attrs...)
		}
	}()
}

// Sample reads goroutine and heap figures from the runtime.
func Sample() []slog.Attr {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var goroutines uint64
	if samples[0].Value.Kind() == metrics.KindUint64 {
		goroutines = samples[0].Value.Uint64()
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return []slog.Attr{
		slog.Uint64("goroutines", goroutines),
		slog.Uint64("heap_alloc", ms.HeapAlloc),
		slog.Uint64("heap_inuse", ms.HeapInuse),
		slog.Uint64("stack_inuse", ms.StackInuse),
		slog.Uint64("num_gc", uint64(ms.NumGC)),
	}
}
