package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/model"
)

// HTTPDoer abstracts HTTP client operations for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ HTTPDoer = (*http.Client)(nil)

// lokiPushRequest is the Loki push API request format.
type lokiPushRequest struct {
	Streams []lokiStream `json:"streams"`
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// LokiOption configures a LokiSink.
type LokiOption func(*LokiSink)

// WithLokiHTTPClient sets a custom HTTP client.
func WithLokiHTTPClient(client HTTPDoer) LokiOption {
	return func(s *LokiSink) {
		s.client = client
	}
}

// LokiSink pushes samples to Grafana Loki as text lines, one stream per run.
type LokiSink struct {
	cfg      config.LokiSinkConfig
	client   HTTPDoer
	batch    []lokiStream
	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
	logger   logger.ILogger
}

// NewLokiSink creates a new Loki sink.
func NewLokiSink(cfg config.LokiSinkConfig, log logger.ILogger, opts ...LokiOption) *LokiSink {
	s := &LokiSink{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		done:   make(chan struct{}),
		logger: log.SubLogger("LokiSink"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the sink identifier.
func (s *LokiSink) Name() string {
	return "loki"
}

// Start begins the background flush goroutine.
func (s *LokiSink) Start(ctx context.Context) error {
	go s.flushLoop(ctx)
	s.logger.Debugf("loki sink started: url=%s", s.cfg.URL)
	return nil
}

// Stop flushes the remaining samples.
func (s *LokiSink) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.done)
		err = s.flush(ctx)
	})
	return err
}

func (s *LokiSink) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.flush(ctx); err != nil {
				s.logger.Warningf("loki push failed: error=%v", err)
			}
		}
	}
}

// Emit queues the sample and pushes the batch once it is full.
func (s *LokiSink) Emit(ctx context.Context, sample *model.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels := maps.Clone(s.cfg.Labels)
	if labels == nil {
		labels = make(map[string]string)
	}
	labels["run_id"] = sample.RunID

	value := []string{strconv.FormatInt(sample.Timestamp.UnixNano(), 10), sample.String()}

	found := false
	for i := range s.batch {
		if maps.Equal(s.batch[i].Stream, labels) {
			s.batch[i].Values = append(s.batch[i].Values, value)
			found = true
			break
		}
	}
	if !found {
		s.batch = append(s.batch, lokiStream{Stream: labels, Values: [][]string{value}})
	}

	if s.batchSize() >= s.cfg.BatchSize {
		return s.flushLocked(ctx)
	}
	return nil
}

func (s *LokiSink) batchSize() int {
	n := 0
	for _, st := range s.batch {
		n += len(st.Values)
	}
	return n
}

func (s *LokiSink) flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// flushLocked sends the batch. The caller holds s.mu.
func (s *LokiSink) flushLocked(ctx context.Context) error {
	if len(s.batch) == 0 {
		return nil
	}

	data, err := json.Marshal(lokiPushRequest{Streams: s.batch})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL+"/loki/api/v1/push", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", s.cfg.TenantID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("loki push failed with status: %d", resp.StatusCode)
	}

	s.batch = s.batch[:0]
	return nil
}
