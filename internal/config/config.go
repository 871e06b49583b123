package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/benz9527/xtree/lib/infra"
	"github.com/benz9527/xtree/xlog"
)

type MetricsExporter string

const (
	MetricsExporterNone       MetricsExporter = "none"
	MetricsExporterStdout     MetricsExporter = "stdout"
	MetricsExporterPrometheus MetricsExporter = "prometheus"
)

const (
	DefaultLogLevel        = "info"
	DefaultLogEncoder      = "json"
	DefaultMetricsExporter = MetricsExporterNone
	DefaultMetricsInterval = 10 * time.Second
	DefaultMetricsAddr     = ":9464"
	DefaultRunnerWorkers   = 4
)

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Encoder string `mapstructure:"encoder"`
}

type MetricsConfig struct {
	Exporter MetricsExporter `mapstructure:"exporter"`
	Interval time.Duration   `mapstructure:"interval"`
	Addr     string          `mapstructure:"addr"`
}

type TreeConfig struct {
	// Desc keeps the keys in descending order.
	Desc bool `mapstructure:"desc"`
	// BorrowPred splices the predecessor on two children removal.
	BorrowPred bool `mapstructure:"borrow_pred"`
}

type RunnerConfig struct {
	Workers int `mapstructure:"workers"`
	// Strict validates the tree after each mutating command.
	Strict bool `mapstructure:"strict"`
}

type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tree    TreeConfig    `mapstructure:"tree"`
	Runner  RunnerConfig  `mapstructure:"runner"`

	v *viper.Viper
}

// ConfigFile returns the config file in use, empty for defaults and env only.
func (cfg *Config) ConfigFile() string {
	if cfg == nil || cfg.v == nil {
		return ""
	}
	return cfg.v.ConfigFileUsed()
}

func (cfg *Config) Validate() error {
	var err error
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, infra.NewErrorStack("unknown log.level "+cfg.Log.Level))
	}
	if _, ok := xlog.ParseLogEncoder(cfg.Log.Encoder); !ok {
		err = multierr.Append(err, infra.NewErrorStack("unknown log.encoder "+cfg.Log.Encoder))
	}
	switch cfg.Metrics.Exporter {
	case MetricsExporterNone:
	case MetricsExporterStdout:
		if cfg.Metrics.Interval <= 0 {
			err = multierr.Append(err, infra.NewErrorStack("metrics.interval must be positive"))
		}
	case MetricsExporterPrometheus:
		if len(strings.TrimSpace(cfg.Metrics.Addr)) == 0 {
			err = multierr.Append(err, infra.NewErrorStack("metrics.addr is empty"))
		}
	default:
		err = multierr.Append(err, infra.NewErrorStack("unknown metrics.exporter "+string(cfg.Metrics.Exporter)))
	}
	if cfg.Runner.Workers <= 0 {
		err = multierr.Append(err, infra.NewErrorStack("runner.workers must be positive"))
	}
	return err
}
