package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ticket-wallet/internal/async"
	"github.com/joseph-ayodele/ticket-wallet/internal/core"
)

// IngestionResult is the per-file enqueue outcome.
type IngestionResult struct {
	SourcePath string
	TraceID    string
	Err        string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Queued  uint32
	Failed  uint32
}

// Service feeds discovered PDFs into the conversion queue.
type Service struct {
	queue  async.Queue
	logger *slog.Logger
}

func NewService(q async.Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{queue: q, logger: logger}
}

// IngestDirectory queues every PDF under root with the same options.
func (s *Service) IngestDirectory(ctx context.Context, root string, skipHidden bool, opts core.ProcessOptions) ([]IngestionResult, DirStats, error) {
	s.logger.Info("starting directory ingest", "root", root, "skip_hidden", skipHidden)
	paths, stats, err := ScanDirectory(root, skipHidden)
	if err != nil {
		s.logger.Error("directory scan failed", "root", root, "error", err)
		return nil, stats, err
	}

	results := make([]IngestionResult, 0, len(paths))
	for _, p := range paths {
		r := s.enqueue(ctx, p, opts)
		if r.Err != "" {
			stats.Failed++
		} else {
			stats.Queued++
		}
		results = append(results, r)
	}
	s.logger.Info("directory ingest completed", "root", root,
		"scanned", stats.Scanned, "matched", stats.Matched, "queued", stats.Queued, "failed", stats.Failed)
	return results, stats, nil
}

// Watch queues PDFs appearing under cfg.Roots until ctx ends.
func (s *Service) Watch(ctx context.Context, cfg WatchConfig, opts core.ProcessOptions) error {
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	events, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-events:
			if !ok {
				return nil
			}
			s.enqueue(ctx, p, opts)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.logger.Warn("watcher error", "error", err)
		}
	}
}

func (s *Service) enqueue(ctx context.Context, path string, opts core.ProcessOptions) IngestionResult {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	job := async.Job{Path: abs, Options: opts, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("enqueue failed", "path", abs, "error", err)
		return IngestionResult{SourcePath: abs, TraceID: job.TraceID, Err: err.Error()}
	}
	return IngestionResult{SourcePath: abs, TraceID: job.TraceID}
}
