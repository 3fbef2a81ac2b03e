package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"railguard/internal/bootstrap/logging"
	"railguard/internal/errs"
	"railguard/internal/ports"
	defectops "railguard/internal/usecase/defect"
)

type counters struct {
	processed atomic.Uint64
	submitted atomic.Uint64
}

// Runner watches an intake directory for captured frames, asks the vision
// model for a verdict and submits defective frames through the enrichment
// pipeline. Already-ingested files are remembered in the KV cache so a
// restart does not resubmit them.
type Runner struct {
	watchDir            string
	confidenceThreshold float64

	vision ports.VisionClient
	images ports.ImageStore
	cache  ports.Cache
	ingest *defectops.Service
}

func NewRunner(
	watchDir string,
	confidenceThreshold float64,
	vision ports.VisionClient,
	images ports.ImageStore,
	cache ports.Cache,
	ingest *defectops.Service,
) *Runner {
	return &Runner{
		watchDir:            watchDir,
		confidenceThreshold: confidenceThreshold,
		vision:              vision,
		images:              images,
		cache:               cache,
		ingest:              ingest,
	}
}

// Run blocks until ctx is cancelled. It scans the intake directory once, then
// follows filesystem notifications.
func (r *Runner) Run(ctx context.Context, counter *counters) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if strings.TrimSpace(r.watchDir) == "" {
		return errors.New("watch directory is required")
	}
	if err := os.MkdirAll(r.watchDir, 0o755); err != nil {
		return errs.Wrapf(err, "create watch directory %q", r.watchDir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errs.Wrap(err, "create watcher")
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(r.watchDir); err != nil {
		return errs.Wrapf(err, "watch directory %q", r.watchDir)
	}

	pending := make(chan string, 64)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(pending)
		if err := r.scanExisting(groupCtx, pending); err != nil {
			return err
		}
		return r.watchEvents(groupCtx, watcher, pending)
	})

	group.Go(func() error {
		for {
			select {
			case <-groupCtx.Done():
				return groupCtx.Err()
			case path, ok := <-pending:
				if !ok {
					return nil
				}
				r.processImage(groupCtx, path, counter)
			}
		}
	})

	return group.Wait()
}

func (r *Runner) scanExisting(ctx context.Context, pending chan<- string) error {
	entries, err := os.ReadDir(r.watchDir)
	if err != nil {
		return errs.Wrap(err, "scan watch directory")
	}

	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pending <- filepath.Join(r.watchDir, entry.Name()):
		}
	}
	return nil
}

func (r *Runner) watchEvents(ctx context.Context, watcher *fsnotify.Watcher, pending chan<- string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isImageFile(event.Name) {
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case pending <- event.Name:
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn(ctx, "watcher error", slog.Any("err", errs.Loggable(watchErr)))
		}
	}
}

func (r *Runner) processImage(ctx context.Context, path string, counter *counters) {
	logCtx := logging.WithAttrs(ctx, slog.String("image", filepath.Base(path)))

	dedupeKey := "ingested:" + filepath.Base(path)
	if _, found, err := r.cache.Get(ctx, dedupeKey); err == nil && found {
		return
	}

	counter.processed.Add(1)

	prediction, err := r.vision.Predict(ctx, path)
	if err != nil {
		// Vision failure is its own category: no defect is recorded.
		logging.Warn(logCtx, "vision prediction failed, image skipped",
			slog.Any("err", errs.Loggable(err)))
		return
	}

	if prediction.Prediction != "Defective" || prediction.Confidence <= r.confidenceThreshold {
		logging.Info(logCtx, "no defect detected",
			slog.String("prediction", prediction.Prediction),
			slog.Float64("confidence", prediction.Confidence))
		r.markIngested(ctx, dedupeKey)
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logging.Warn(logCtx, "open captured image failed",
			slog.Any("err", errs.Loggable(err)))
		return
	}
	ref, err := r.images.Save(ctx, file, filepath.Base(path))
	_ = file.Close()
	if err != nil {
		logging.Warn(logCtx, "store captured image failed",
			slog.Any("err", errs.Loggable(err)))
		return
	}

	if _, err := r.ingest.Ingest(ctx, defectops.IngestInput{
		DefectType: "Track Defect",
		Confidence: prediction.Confidence,
		ImageRef:   ref,
	}); err != nil {
		logging.Error(logCtx, "defect submission failed",
			slog.Any("err", errs.Loggable(err)))
		return
	}

	counter.submitted.Add(1)
	r.markIngested(ctx, dedupeKey)
}

func (r *Runner) markIngested(ctx context.Context, key string) {
	if err := r.cache.Set(ctx, key, "done", 0); err != nil {
		logging.Warn(ctx, "record ingested image failed", slog.Any("err", errs.Loggable(err)))
	}
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
