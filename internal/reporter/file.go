package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/GabrielNunesIT/logchurn/internal/config"
	"github.com/GabrielNunesIT/logchurn/internal/model"
	"github.com/natefinch/lumberjack"
)

// WriterFactory creates a new WriteCloser.
type WriterFactory func(cfg config.FileSinkConfig) (io.WriteCloser, error)

// FileOption configures the FileSink.
type FileOption func(*FileSink)

// WithWriterFactory sets a custom factory for creating the writer.
func WithWriterFactory(f WriterFactory) FileOption {
	return func(s *FileSink) {
		s.factory = f
	}
}

// FileSink appends samples as JSON lines to a size-rotated file.
type FileSink struct {
	cfg     config.FileSinkConfig
	factory WriterFactory
	writer  io.WriteCloser
	mu      sync.Mutex
	logger  logger.ILogger
}

// NewFileSink creates a new file sink.
func NewFileSink(cfg config.FileSinkConfig, log logger.ILogger, opts ...FileOption) *FileSink {
	s := &FileSink{
		cfg:    cfg,
		logger: log.SubLogger("FileSink"),
	}

	s.factory = func(cfg config.FileSinkConfig) (io.WriteCloser, error) {
		return &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}, nil
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the sink identifier.
func (s *FileSink) Name() string {
	return "file"
}

// Start opens the rotating file writer.
func (s *FileSink) Start(ctx context.Context) error {
	w, err := s.factory(s.cfg)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.cfg.Path, err)
	}

	s.mu.Lock()
	s.writer = w
	s.mu.Unlock()

	s.logger.Debugf("file sink started: path=%s", s.cfg.Path)
	return nil
}

// Stop closes the file writer.
func (s *FileSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	return err
}

// Emit appends the sample as one JSON document.
func (s *FileSink) Emit(ctx context.Context, sample *model.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		return nil
	}

	output, err := json.Marshal(sample.Fields())
	if err != nil {
		return err
	}

	_, err = s.writer.Write(append(output, '\n'))
	return err
}
