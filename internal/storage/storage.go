// Package storage persists the roster document as a single JSON file.
//
// Every read goes through the migration pass, and every write replaces the file
// atomically, so an interrupted save leaves the previous document intact.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/chrolicious/hoolgg-roster/internal/derive"
	"github.com/chrolicious/hoolgg-roster/internal/logging"
	"github.com/chrolicious/hoolgg-roster/internal/metrics"
	"github.com/chrolicious/hoolgg-roster/internal/migrate"
	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// DefaultFileName is the document file name used when only a directory is configured.
const DefaultFileName = "data.json"

// StorageError reports a failure to read, parse or write the document file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithClock overrides the clock used to stamp meta.last_updated.
func WithClock(now func() time.Time) Option {
	return func(s *FileStore) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *FileStore) { s.logger = logging.OrNop(logger) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FileStore) { s.metrics = m }
}

// FileStore is a single-writer store for the roster document. Update and View
// hold a process-wide lock for the whole load→mutate→save sequence.
type FileStore struct {
	path    string
	mu      sync.Mutex
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{
		path:   path,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the document file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads, migrates and derives the document. A missing file is replaced by
// a fresh default document, which is written before returning.
func (s *FileStore) Load(ctx context.Context) (*types.RosterDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, _, err := s.load(ctx)
	return doc, err
}

// Save writes doc, stamping meta.last_updated.
func (s *FileStore) Save(ctx context.Context, doc *types.RosterDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, doc)
}

// Update runs fn against the current document and saves the result. When fn
// returns an error nothing is written and the error is returned unchanged.
func (s *FileStore) Update(ctx context.Context, fn func(*types.RosterDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(ctx, doc)
}

// View runs fn against the current document without saving.
func (s *FileStore) View(ctx context.Context, fn func(*types.RosterDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// Migrate loads the document and writes it back in the current schema.
func (s *FileStore) Migrate(ctx context.Context) (migrate.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, report, err := s.load(ctx)
	if err != nil {
		return report, err
	}
	return report, s.save(ctx, doc)
}

// ReadRaw returns the file contents without migrating them.
func (s *FileStore) ReadRaw(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}
	return data, nil
}

func (s *FileStore) load(ctx context.Context) (doc *types.RosterDocument, report migrate.Report, err error) {
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStore("load", start, err) }()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("document not found, creating default", zap.String("path", s.path))
		doc = types.NewDocument(s.now())
		if err := s.save(ctx, doc); err != nil {
			return nil, report, err
		}
		return doc, report, nil
	}
	if err != nil {
		return nil, report, &StorageError{Op: "read", Path: s.path, Err: err}
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, report, &StorageError{Op: "parse", Path: s.path, Err: err}
	}

	doc, report, err = migrate.Migrate(raw)
	if err != nil {
		return nil, report, &StorageError{Op: "migrate", Path: s.path, Err: err}
	}
	if report.Changed() {
		s.logger.Info("migrated document",
			zap.String("path", s.path),
			zap.Int("renamed", report.RenamedKeys),
			zap.Int("backfilled", report.Backfilled),
			zap.Int("normalized", report.NormalizedKeys),
			zap.Int("repaired", report.Repaired))
		s.metrics.ObserveMigration(report.RenamedKeys, report.Backfilled, report.NormalizedKeys, report.Repaired)
		if len(report.Dropped) > 0 {
			s.logger.Warn("dropped unknown keys during migration",
				zap.String("path", s.path),
				zap.Strings("keys", report.Dropped))
		}
	}

	derive.RefreshDocument(doc)
	s.metrics.SetCharacters(len(doc.Characters))
	return doc, report, nil
}

func (s *FileStore) save(ctx context.Context, doc *types.RosterDocument) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.metrics.ObserveStore("save", start, err) }()

	derive.RefreshDocument(doc)
	doc.Meta.LastUpdated = s.now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: s.path, Err: err}
	}
	data = append(data, '\n')

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &StorageError{Op: "write", Path: s.path, Err: err}
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return &StorageError{Op: "write", Path: s.path, Err: err}
	}

	s.logger.Debug("saved document",
		zap.String("path", s.path),
		zap.Int("characters", len(doc.Characters)),
		zap.Int("bytes", len(data)))
	return nil
}

// ResolvePath picks the document location: an explicit file, else data.json in
// dataDir, else data.json beside the running executable.
func ResolvePath(dataFile, dataDir string) (string, error) {
	if dataFile != "" {
		return dataFile, nil
	}
	if dataDir != "" {
		return filepath.Join(dataDir, DefaultFileName), nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), DefaultFileName), nil
}
