// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML/JSON file -> environment variables.
// CLI flags are applied on top by the cli package.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"
)

// EnvPrefix is the prefix of environment variable overrides, e.g.
// LOGCHURN_CHURN_WORKERS -> churn.workers.
const EnvPrefix = "LOGCHURN_"

// Config is the root configuration structure for logchurn.
type Config struct {
	LogLevel string         `koanf:"loglevel"`
	LogFile  string         `koanf:"logfile"`
	Churn    ChurnConfig    `koanf:"churn"`
	Listener ListenerConfig `koanf:"listener"`
	Reporter ReporterConfig `koanf:"reporter"`
	Emitter  EmitterConfig  `koanf:"emitter"`
}

// ChurnConfig controls the file churn generator.
type ChurnConfig struct {
	Root           string        `koanf:"root"`
	Workers        int           `koanf:"workers"`
	FilesPerWorker int           `koanf:"filesperworker"`
	MaxLineLength  int           `koanf:"maxlinelength"`
	PoolRounds     int           `koanf:"poolrounds"`
	RotateSuffix   string        `koanf:"rotatesuffix"`
	Iterations     int           `koanf:"iterations"` // 0 runs until cancelled
	Weights        WeightsConfig `koanf:"weights"`
}

// WeightsConfig is the relative weight of each lifecycle action.
type WeightsConfig struct {
	Delete   int `koanf:"delete"`
	Create   int `koanf:"create"`
	Rotate   int `koanf:"rotate"`
	Truncate int `koanf:"truncate"`
	Write    int `koanf:"write"`
}

// Total returns the sum of all weights.
func (w WeightsConfig) Total() int {
	return w.Delete + w.Create + w.Rotate + w.Truncate + w.Write
}

// ListenerConfig configures the line report listener.
type ListenerConfig struct {
	Address       string `koanf:"address"`
	MaxFrameBytes int    `koanf:"maxframebytes"`
	Verify        bool   `koanf:"verify"`
}

// ReporterConfig configures the throughput reporter.
type ReporterConfig struct {
	Interval time.Duration `koanf:"interval"`
	Sinks    SinkConfig    `koanf:"sinks"`
}

// SinkConfig holds configuration for all reporter sinks.
type SinkConfig struct {
	Stdout        StdoutSinkConfig        `koanf:"stdout"`
	File          FileSinkConfig          `koanf:"file"`
	Elasticsearch ElasticsearchSinkConfig `koanf:"elasticsearch"`
	Loki          LokiSinkConfig          `koanf:"loki"`
}

// StdoutSinkConfig configures the stdout sink.
type StdoutSinkConfig struct {
	Enabled bool   `koanf:"enabled"`
	Format  string `koanf:"format"` // "text" or "json"
}

// FileSinkConfig configures the rotating JSON lines sink.
type FileSinkConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"maxsizemb"`
	MaxBackups int    `koanf:"maxbackups"`
	MaxAgeDays int    `koanf:"maxagedays"`
	Compress   bool   `koanf:"compress"`
}

// ElasticsearchSinkConfig configures the Elasticsearch sink.
type ElasticsearchSinkConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Addresses     []string      `koanf:"addresses"`
	Index         string        `koanf:"index"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	FlushInterval time.Duration `koanf:"flushinterval"`
}

// LokiSinkConfig configures the Grafana Loki sink.
type LokiSinkConfig struct {
	Enabled       bool              `koanf:"enabled"`
	URL           string            `koanf:"url"`
	TenantID      string            `koanf:"tenantid"`
	Labels        map[string]string `koanf:"labels"`
	BatchSize     int               `koanf:"batchsize"`
	FlushInterval time.Duration     `koanf:"flushinterval"`
}

// EmitterConfig holds configuration for the traffic emitters.
type EmitterConfig struct {
	Native NativeEmitterConfig `koanf:"native"`
	Statsd StatsdEmitterConfig `koanf:"statsd"`
}

// NativeEmitterConfig configures the framed TCP line emitter.
type NativeEmitterConfig struct {
	Address      string        `koanf:"address"`
	PoolSize     int           `koanf:"poolsize"`
	PayloadLimit int           `koanf:"payloadlimit"` // mean lines per payload
	Delay        time.Duration `koanf:"delay"`        // wait before reconnecting
}

// StatsdEmitterConfig configures the UDP statsd emitter.
type StatsdEmitterConfig struct {
	Address   string        `koanf:"address"`
	PoolSize  int           `koanf:"poolsize"`
	LineLimit int           `koanf:"linelimit"` // lines per interval before throttling
	Delay     time.Duration `koanf:"delay"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		Churn: ChurnConfig{
			Root:           "/tmp/log_gen",
			Workers:        1,
			FilesPerWorker: 16,
			MaxLineLength:  2047,
			PoolRounds:     16,
			RotateSuffix:   ".1",
			Weights: WeightsConfig{
				Delete:   5,
				Create:   10,
				Rotate:   10,
				Truncate: 5,
				Write:    70,
			},
		},
		Listener: ListenerConfig{
			Address:       "127.0.0.1:1972",
			MaxFrameBytes: 16 * 1024 * 1024,
			Verify:        true,
		},
		Reporter: ReporterConfig{
			Interval: 1 * time.Second,
			Sinks: SinkConfig{
				Stdout: StdoutSinkConfig{
					Enabled: true,
					Format:  "text",
				},
				File: FileSinkConfig{
					Enabled:    false,
					Path:       "logchurn-stats.jsonl",
					MaxSizeMB:  100,
					MaxBackups: 3,
					MaxAgeDays: 7,
					Compress:   true,
				},
				Elasticsearch: ElasticsearchSinkConfig{
					Enabled:       false,
					Index:         "logchurn",
					FlushInterval: 5 * time.Second,
				},
				Loki: LokiSinkConfig{
					Enabled:       false,
					Labels:        map[string]string{"job": "logchurn"},
					BatchSize:     10,
					FlushInterval: 5 * time.Second,
				},
			},
		},
		Emitter: EmitterConfig{
			Native: NativeEmitterConfig{
				Address:      "127.0.0.1:1972",
				PoolSize:     1000,
				PayloadLimit: 100,
				Delay:        100 * time.Millisecond,
			},
			Statsd: StatsdEmitterConfig{
				Address:   "127.0.0.1:8125",
				PoolSize:  1000,
				LineLimit: 100000,
				Delay:     10 * time.Millisecond,
			},
		},
	}
}

// Default returns the built-in configuration without reading any source.
func Default() *Config {
	cfg := defaults()
	return &cfg
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	// Add file source if path provided or if default config exists
	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./logchurn.yaml", "/etc/logchurn/config.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the options every run needs. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Churn.Root) == "" {
		errs = append(errs, errors.New("churn.root is required"))
	}
	if c.Churn.Workers < 1 {
		errs = append(errs, fmt.Errorf("churn.workers must be >= 1, got %d", c.Churn.Workers))
	}
	if c.Churn.FilesPerWorker < 1 {
		errs = append(errs, fmt.Errorf("churn.filesperworker must be >= 1, got %d", c.Churn.FilesPerWorker))
	}
	if c.Churn.MaxLineLength < 1 {
		errs = append(errs, fmt.Errorf("churn.maxlinelength must be >= 1, got %d", c.Churn.MaxLineLength))
	}
	if c.Churn.PoolRounds < 1 {
		errs = append(errs, fmt.Errorf("churn.poolrounds must be >= 1, got %d", c.Churn.PoolRounds))
	}
	if c.Churn.RotateSuffix == "" {
		errs = append(errs, errors.New("churn.rotatesuffix is required"))
	}
	if c.Churn.Iterations < 0 {
		errs = append(errs, fmt.Errorf("churn.iterations must be >= 0, got %d", c.Churn.Iterations))
	}
	if err := c.Churn.Weights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Listener.Address == "" {
		errs = append(errs, errors.New("listener.address is required"))
	}
	if c.Listener.MaxFrameBytes < 1 {
		errs = append(errs, fmt.Errorf("listener.maxframebytes must be >= 1, got %d", c.Listener.MaxFrameBytes))
	}
	if c.Reporter.Interval <= 0 {
		errs = append(errs, fmt.Errorf("reporter.interval must be positive, got %v", c.Reporter.Interval))
	}
	if c.Reporter.Sinks.File.Enabled && c.Reporter.Sinks.File.Path == "" {
		errs = append(errs, errors.New("reporter.sinks.file.path is required when the file sink is enabled"))
	}
	if c.Reporter.Sinks.Elasticsearch.Enabled && len(c.Reporter.Sinks.Elasticsearch.Addresses) == 0 {
		errs = append(errs, errors.New("reporter.sinks.elasticsearch.addresses is required when the elasticsearch sink is enabled"))
	}
	if c.Reporter.Sinks.Loki.Enabled {
		if c.Reporter.Sinks.Loki.URL == "" {
			errs = append(errs, errors.New("reporter.sinks.loki.url is required when the loki sink is enabled"))
		}
		if c.Reporter.Sinks.Loki.BatchSize < 1 {
			errs = append(errs, fmt.Errorf("reporter.sinks.loki.batchsize must be >= 1, got %d", c.Reporter.Sinks.Loki.BatchSize))
		}
		if c.Reporter.Sinks.Loki.FlushInterval <= 0 {
			errs = append(errs, fmt.Errorf("reporter.sinks.loki.flushinterval must be positive, got %v", c.Reporter.Sinks.Loki.FlushInterval))
		}
	}

	return errors.Join(errs...)
}

// Validate checks that no weight is negative and at least one is positive.
func (w WeightsConfig) Validate() error {
	for name, v := range map[string]int{
		"delete":   w.Delete,
		"create":   w.Create,
		"rotate":   w.Rotate,
		"truncate": w.Truncate,
		"write":    w.Write,
	} {
		if v < 0 {
			return fmt.Errorf("churn.weights.%s must be >= 0, got %d", name, v)
		}
	}
	if w.Total() == 0 {
		return errors.New("churn.weights must not all be zero")
	}
	return nil
}
