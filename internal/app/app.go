package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/benz9527/xtree/internal/config"
	"github.com/benz9527/xtree/internal/script"
	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/lib/tree"
	"github.com/benz9527/xtree/observability"
	"github.com/benz9527/xtree/xlog"
)

// Version is overwritten by -ldflags "-X".
var Version = "v0.1.0-dev"

type Params struct {
	ConfigPath string
	Scripts    []string
	// Hold keeps the app running until it receives a signal.
	Hold bool
	// Out receives the script outputs, stdout if nil.
	Out io.Writer
	// LogOut receives the logs, stderr if nil.
	LogOut zapcore.WriteSyncer
	// MetricsOut receives the stdout exporter metrics, stderr if nil.
	MetricsOut io.Writer
}

type banner struct{}

func (banner) JSON() string      { return `{"app":"xtree","version":"` + Version + `"}` }
func (banner) PlainText() string { return "xtree " + Version }

// Module wires the whole app. The scripts are run by the Batch.
func Module(params Params) fx.Option {
	return fx.Options(
		fx.Supply(params),
		fx.Provide(
			newConfig,
			newLogger,
			newMeterProvider,
			observability.NewTreeStats,
			newPool,
			newRunner,
			newBatch,
		),
		fx.WithLogger(func(logger xlog.XLogger) fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Invoke(setMaxProcs, watchConfig),
	)
}

func newConfig(params Params) (*config.Config, error) {
	return config.Load(params.ConfigPath)
}

func newLogger(lc fx.Lifecycle, params Params, cfg *config.Config) (xlog.XLogger, error) {
	enc, ok := xlog.ParseLogEncoder(cfg.Log.Encoder)
	if !ok {
		return nil, infra.NewErrorStack("unknown log encoder " + cfg.Log.Encoder)
	}
	ws := params.LogOut
	if ws == nil {
		ws = zapcore.Lock(os.Stderr)
	}
	logger := xlog.NewXLogger(
		xlog.WithXLoggerLevel(xlog.ParseLogLevel(cfg.Log.Level)),
		xlog.WithXLoggerEncoder(enc),
		xlog.WithXLoggerWriteSyncer(ws),
		xlog.WithXLoggerTimeEncoder(zapcore.ISO8601TimeEncoder),
		xlog.WithXLoggerLevelEncoder(zapcore.CapitalLevelEncoder),
	)
	logger.Banner(banner{})
	lc.Append(fx.StopHook(func() {
		_ = logger.Sync()
	}))
	return logger, nil
}

func newMeterProvider(lc fx.Lifecycle, params Params, cfg *config.Config, logger xlog.XLogger) (metric.MeterProvider, error) {
	var (
		mp      metric.MeterProvider
		handler http.Handler
	)
	switch cfg.Metrics.Exporter {
	case config.MetricsExporterStdout:
		w := params.MetricsOut
		if w == nil {
			w = os.Stderr
		}
		smp, err := observability.NewConsoleMeterProvider(w, cfg.Metrics.Interval, cfg.Metrics.Interval)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(smp.Shutdown))
		mp = smp
	case config.MetricsExporterPrometheus:
		pmp, h, err := observability.NewPrometheusMeterProvider()
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(pmp.Shutdown))
		mp, handler = pmp, h
	default:
		return noop.NewMeterProvider(), nil
	}

	otel.SetMeterProvider(mp)
	if err := observability.InitAppStats(mp, "run"); err != nil {
		return nil, err
	}
	if handler != nil {
		appendMetricsServer(lc, cfg.Metrics.Addr, handler, logger)
	}
	return mp, nil
}

func appendMetricsServer(lc fx.Lifecycle, addr string, handler http.Handler, logger xlog.XLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return infra.WrapErrorStack(err, "listen metrics "+addr)
			}
			logger.Info("metrics server started", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.ErrorStack(infra.WrapErrorStack(err, "serve metrics"), "metrics server stopped")
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})
}

func newPool(lc fx.Lifecycle, cfg *config.Config, logger xlog.XLogger) (*ants.Pool, error) {
	pool, err := ants.NewPool(cfg.Runner.Workers, ants.WithLogger(xlog.NewAntsXLogger(logger)))
	if err != nil {
		return nil, infra.WrapErrorStack(err, "new worker pool")
	}
	lc.Append(fx.StopHook(func() error {
		return pool.ReleaseTimeout(3 * time.Second)
	}))
	return pool, nil
}

func newRunner(cfg *config.Config, logger xlog.XLogger, stats *observability.TreeStats) *script.Runner {
	treeOpts := make([]tree.RBTreeOpt[int64], 0, 2)
	if cfg.Tree.Desc {
		treeOpts = append(treeOpts, tree.WithRBTreeDesc[int64]())
	}
	if cfg.Tree.BorrowPred {
		treeOpts = append(treeOpts, tree.WithRBTreeRemoveBorrowPred[int64]())
	}
	return script.NewRunner(logger,
		script.WithRunnerStrict(cfg.Runner.Strict),
		script.WithRunnerTreeOptions(treeOpts...),
		script.WithRunnerTreeStats(stats),
	)
}

func setMaxProcs(lc fx.Lifecycle, logger xlog.XLogger) error {
	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Logf(zapcore.InfoLevel, format, args...)
	}))
	if err != nil {
		return infra.WrapErrorStack(err, "set GOMAXPROCS")
	}
	lc.Append(fx.StopHook(undo))
	return nil
}

// The log level follows the config file while the app is held.
func watchConfig(params Params, cfg *config.Config, logger xlog.XLogger) error {
	if !params.Hold || cfg.ConfigFile() == "" {
		return nil
	}
	return cfg.Watch(func(next *config.Config, err error) {
		if err != nil {
			logger.ErrorStack(err, "reload config")
			return
		}
		lvl, err := zapcore.ParseLevel(next.Log.Level)
		if err != nil {
			logger.ErrorStack(infra.WrapErrorStack(err, "reload log level"), "reload config")
			return
		}
		logger.IncreaseLogLevel(lvl)
		logger.Info("log level reloaded", zap.String("level", lvl.String()))
	})
}
