package reporter

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/model"
)

// StdoutSink prints samples to standard output.
type StdoutSink struct {
	cfg    config.StdoutSinkConfig
	writer io.Writer
	mu     sync.Mutex
	logger logger.ILogger
}

// NewStdoutSink creates a new stdout sink.
func NewStdoutSink(cfg config.StdoutSinkConfig, log logger.ILogger) *StdoutSink {
	return NewStdoutSinkWithWriter(cfg, os.Stdout, log)
}

// NewStdoutSinkWithWriter creates a stdout sink with a custom writer (for testing).
func NewStdoutSinkWithWriter(cfg config.StdoutSinkConfig, w io.Writer, log logger.ILogger) *StdoutSink {
	return &StdoutSink{
		cfg:    cfg,
		writer: w,
		logger: log.SubLogger("StdoutSink"),
	}
}

// Name returns the sink identifier.
func (s *StdoutSink) Name() string {
	return "stdout"
}

// Start initializes the sink (no-op for stdout).
func (s *StdoutSink) Start(ctx context.Context) error {
	s.logger.Debugf("stdout sink started: format=%s", s.cfg.Format)
	return nil
}

// Stop shuts down the sink (no-op for stdout).
func (s *StdoutSink) Stop(ctx context.Context) error {
	s.logger.Debug("stdout sink stopped")
	return nil
}

// Emit writes one line per sample.
func (s *StdoutSink) Emit(ctx context.Context, sample *model.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var output []byte
	switch s.cfg.Format {
	case "json":
		var err error
		output, err = json.Marshal(sample.Fields())
		if err != nil {
			return err
		}
	default:
		output = []byte(sample.String())
	}

	_, err := s.writer.Write(append(output, '\n'))
	return err
}
