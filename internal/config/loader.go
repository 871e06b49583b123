package config

import (
	"errors"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/benz9527/xtree/lib/infra"
)

const (
	configName      = ".xtree"
	configType      = "yaml"
	envPrefix       = "XTREE"
	envKeySeparator = "_"
)

// Load reads the configuration from defaults, the config file and the
// XTREE_ prefixed env vars, in increasing priority.
// An empty path searches .xtree.yaml in CWD and $HOME, a missing
// file is not an error then.
func Load(path string) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, infra.WrapErrorStack(err, "read config")
		}
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, infra.WrapErrorStack(err, "unmarshal config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, infra.WrapErrorStack(err, "validate config")
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.encoder", DefaultLogEncoder)

	v.SetDefault("metrics.exporter", string(DefaultMetricsExporter))
	v.SetDefault("metrics.interval", DefaultMetricsInterval)
	v.SetDefault("metrics.addr", DefaultMetricsAddr)

	v.SetDefault("tree.desc", false)
	v.SetDefault("tree.borrow_pred", false)

	v.SetDefault("runner.workers", DefaultRunnerWorkers)
	v.SetDefault("runner.strict", false)
}

// Watch reloads the config file on each change and hands over the
// decoded result, or the error if the new content is invalid.
// The callback runs on the watcher goroutine.
func (cfg *Config) Watch(fn func(next *Config, err error)) error {
	if cfg.ConfigFile() == "" {
		return infra.NewErrorStack("watch config without config file")
	}
	if fn == nil {
		return infra.NewErrorStack("nil config watch callback")
	}
	cfg.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		fn(decode(cfg.v))
	})
	cfg.v.WatchConfig()
	return nil
}
