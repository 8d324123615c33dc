package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

// IndexerFactory creates a new BulkIndexer.
type IndexerFactory func(cfg config.ElasticsearchSinkConfig) (esutil.BulkIndexer, error)

// ElasticsearchOption configures the ElasticsearchSink.
type ElasticsearchOption func(*ElasticsearchSink)

// WithIndexerFactory sets a custom factory for creating the BulkIndexer.
func WithIndexerFactory(f IndexerFactory) ElasticsearchOption {
	return func(s *ElasticsearchSink) {
		s.factory = f
	}
}

// ElasticsearchSink bulk-indexes samples, one document per sample.
type ElasticsearchSink struct {
	cfg     config.ElasticsearchSinkConfig
	factory IndexerFactory
	indexer esutil.BulkIndexer
	mu      sync.Mutex
	logger  logger.ILogger
}

// NewElasticsearchSink creates a new Elasticsearch sink.
func NewElasticsearchSink(cfg config.ElasticsearchSinkConfig, log logger.ILogger, opts ...ElasticsearchOption) *ElasticsearchSink {
	s := &ElasticsearchSink{
		cfg:    cfg,
		logger: log.SubLogger("ElasticsearchSink"),
	}

	s.factory = func(cfg config.ElasticsearchSinkConfig) (esutil.BulkIndexer, error) {
		esCfg := elasticsearch.Config{
			Addresses: cfg.Addresses,
		}

		if cfg.Username != "" {
			esCfg.Username = cfg.Username
			esCfg.Password = cfg.Password
		}

		client, err := elasticsearch.NewClient(esCfg)
		if err != nil {
			return nil, fmt.Errorf("creating elasticsearch client: %w", err)
		}

		return esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
			Client:        client,
			Index:         cfg.Index,
			NumWorkers:    1,
			FlushInterval: cfg.FlushInterval,
		})
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the sink identifier.
func (s *ElasticsearchSink) Name() string {
	return "elasticsearch"
}

// Start creates the client and bulk indexer.
func (s *ElasticsearchSink) Start(ctx context.Context) error {
	indexer, err := s.factory(s.cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.indexer = indexer
	s.mu.Unlock()

	s.logger.Debugf("elasticsearch sink started: index=%s", s.cfg.Index)
	return nil
}

// Stop flushes and closes the bulk indexer.
func (s *ElasticsearchSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexer == nil {
		return nil
	}

	err := s.indexer.Close(ctx)
	stats := s.indexer.Stats()
	s.logger.Debugf("elasticsearch sink stopped: indexed=%d failed=%d", stats.NumIndexed, stats.NumFailed)
	s.indexer = nil
	return err
}

// Emit queues the sample for the next bulk request.
func (s *ElasticsearchSink) Emit(ctx context.Context, sample *model.Sample) error {
	s.mu.Lock()
	indexer := s.indexer
	s.mu.Unlock()

	if indexer == nil {
		return nil
	}

	doc := sample.Fields()
	doc["@timestamp"] = doc["timestamp"]
	delete(doc, "timestamp")

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return indexer.Add(ctx, esutil.BulkIndexerItem{
		Action: "index",
		Body:   bytes.NewReader(data),
		OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
			if err != nil {
				s.logger.Warningf("failed to index sample: error=%v", err)
				return
			}
			s.logger.Warningf("failed to index sample: type=%s reason=%s", res.Error.Type, res.Error.Reason)
		},
	})
}
