package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"io"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"

	"github.com/benz9527/xtree/lib/infra"
)

// NewConsoleMeterProvider serves for test/dev environment.
// The metrics are exported to w periodically and on shutdown.
func NewConsoleMeterProvider(w io.Writer, interval, timeout time.Duration) (*metric.MeterProvider, error) {
	opts := make([]stdoutmetric.Option, 0, 2)
	if w != nil {
		opts = append(opts, stdoutmetric.WithWriter(w))
	}
	opts = append(opts, stdoutmetric.WithPrettyPrint())
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, infra.WrapErrorStack(err, "[observability] stdout metrics exporter")
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	return mp, nil
}

// NewPrometheusMeterProvider serves for the product environment and
// fetch stats metrics by HTTP. Each call owns an independent registry.
func NewPrometheusMeterProvider() (*metric.MeterProvider, http.Handler, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, infra.WrapErrorStack(err, "[observability] prometheus metrics exporter")
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}
