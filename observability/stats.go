package observability

import (
	"context"
	"os"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/metric"
)

func appStatsName(name string) string {
	builder := &strings.Builder{}
	builder.WriteString("xtree/app")
	builder.WriteString("/")
	if len(strings.TrimSpace(name)) > 0 {
		builder.WriteString(name)
	} else {
		builder.WriteString("default")
	}
	return builder.String()
}

// InitAppStats registers the goroutines, GOMAXPROCS and RSS of
// the current process, plus the go runtime metrics.
func InitAppStats(mp metric.MeterProvider, name string) error {
	meter := mp.Meter(
		appStatsName(name),
		metric.WithInstrumentationVersion(otelruntime.Version()),
	)
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
		"app.core.goroutines",
		metric.WithDescription(`The application goroutines' info.`),
		metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
			ob.Observe(int64(runtime.NumGoroutine()))
			return nil
		}),
	))
	lo.Must[metric.Int64ObservableUpDownCounter](meter.Int64ObservableUpDownCounter(
		"app.core.processes",
		metric.WithDescription(`The application processes' info.`),
		metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
			ob.Observe(int64(runtime.GOMAXPROCS(0)))
			return nil
		}),
	))
	lo.Must[metric.Int64ObservableGauge](meter.Int64ObservableGauge(
		"app.core.rss",
		metric.WithDescription(`The application resident set size.`),
		metric.WithUnit("By"),
		metric.WithInt64Callback(func(ctx context.Context, ob metric.Int64Observer) error {
			mem, err := proc.MemoryInfoWithContext(ctx)
			if err != nil {
				return err
			}
			ob.Observe(int64(mem.RSS))
			return nil
		}),
	))
	return otelruntime.Start(otelruntime.WithMeterProvider(mp))
}
