package reporter

import (
	"context"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/model"
)

// Sink defines the contract for sample destinations.
type Sink interface {
	// Start initializes the sink (files, clients, buffers).
	// Called once before Emit is called.
	Start(ctx context.Context) error

	// Emit writes one sample.
	Emit(ctx context.Context, s *model.Sample) error

	// Stop flushes buffered samples and releases resources.
	Stop(ctx context.Context) error

	// Name returns a unique identifier for this sink.
	Name() string
}

// BuildSinks creates the enabled sinks.
func BuildSinks(cfg config.SinkConfig, log logger.ILogger) []Sink {
	var sinks []Sink

	if cfg.Stdout.Enabled {
		sinks = append(sinks, NewStdoutSink(cfg.Stdout, log))
	}
	if cfg.File.Enabled {
		sinks = append(sinks, NewFileSink(cfg.File, log))
	}
	if cfg.Elasticsearch.Enabled {
		sinks = append(sinks, NewElasticsearchSink(cfg.Elasticsearch, log))
	}
	if cfg.Loki.Enabled {
		sinks = append(sinks, NewLokiSink(cfg.Loki, log))
	}

	return sinks
}
