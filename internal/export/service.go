package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"deskplan/internal/storage"

	"github.com/rs/zerolog"
)

// Config holds configuration for the export service.
type Config struct {
	Dir      string
	Interval time.Duration

	// ExportOnStart if true, runs export immediately on service start.
	ExportOnStart bool
}

// Service writes periodic workbook snapshots of the room.
type Service struct {
	config  Config
	source  Source
	writer  func() ExcelWriter // factory for creating new Excel writers
	logger  zerolog.Logger
	now     func() time.Time
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewService(cfg Config, source Source, writerFactory func() ExcelWriter, logger *zerolog.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 7 * 24 * time.Hour
	}
	if writerFactory == nil {
		writerFactory = NewExcelizeWriter
	}
	return &Service{
		config: cfg,
		source: source,
		writer: writerFactory,
		logger: logger.With().Str("component", "export").Logger(),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start begins the export scheduler.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()

	s.logger.Info().Str("dir", s.config.Dir).Dur("interval", s.config.Interval).Msg("Export service started")
}

// Stop gracefully stops the export service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopCh)
	s.wg.Wait()

	s.logger.Info().Msg("Export service stopped")
}

func (s *Service) loop() {
	defer s.wg.Done()

	if s.config.ExportOnStart {
		s.run()
	}

	timer := time.NewTimer(s.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-timer.C:
			s.run()
			timer.Reset(s.config.Interval)
		}
	}
}

func (s *Service) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.ExportNow(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Failed to export workbook")
	}
}

// Write renders the current room into w.
func (s *Service) Write(w io.Writer) error {
	excel := s.writer()
	if excel == nil {
		return fmt.Errorf("failed to create excel writer")
	}
	defer excel.Close()

	if err := WriteWorkbook(excel, s.source.Desks()); err != nil {
		return err
	}
	if err := excel.Save(w); err != nil {
		return fmt.Errorf("save excel: %w", err)
	}
	return nil
}

// ExportNow writes a workbook into the export directory and returns its path.
func (s *Service) ExportNow(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.config.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	var buf bytes.Buffer
	if err := s.Write(&buf); err != nil {
		return "", err
	}

	path := filepath.Join(s.config.Dir, GenerateFilename(s.now()))
	if err := storage.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}

	s.logger.Info().Str("path", path).Int("size", buf.Len()).Msg("Workbook exported")
	return path, nil
}
