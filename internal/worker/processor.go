package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/metrics"
	"github.com/dharsanguruparan/HoloHeri/internal/processing"
	"github.com/dharsanguruparan/HoloHeri/internal/queue"
)

// ObjectStore is the subset of the S3 mirror used by the worker.
type ObjectStore interface {
	UploadFile(ctx context.Context, key, path, contentType string) error
	Remove(ctx context.Context, key string) error
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	uploadDir string
	objects   ObjectStore
	log       *zap.SugaredLogger
}

// NewProcessor constructs a worker processor. objects may be nil when no
// object store is configured; mirror tasks then fail permanently.
func NewProcessor(uploadDir string, objects ObjectStore, log *zap.SugaredLogger) *Processor {
	if log == nil {
		log = zap.S()
	}
	return &Processor{uploadDir: uploadDir, objects: objects, log: log}
}

// Handler registers the media task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ReclaimMediaTask, p.handleReclaim)
	mux.HandleFunc(queue.MirrorMediaTask, p.handleMirror)
	return mux
}

func (p *Processor) handleReclaim(ctx context.Context, task *asynq.Task) error {
	var payload queue.ReclaimPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	var failed int
	for _, name := range payload.Names {
		if err := processing.RemoveStored(p.uploadDir, name); err != nil {
			failed++
			metrics.ReclaimFailures.Inc()
			p.log.Errorw("failed to remove stored file", "file", name, "error", err)
			continue
		}
		if p.objects != nil && isModel(name) {
			if err := p.objects.Remove(ctx, name); err != nil {
				p.log.Warnw("failed to remove mirrored object", "key", name, "error", err)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("reclaim: %d of %d files not removed", failed, len(payload.Names))
	}
	p.log.Infow("reclaimed stored files", "count", len(payload.Names))
	return nil
}

func (p *Processor) handleMirror(ctx context.Context, task *asynq.Task) error {
	var payload queue.MirrorPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	if p.objects == nil {
		return fmt.Errorf("mirror %s: no object store configured: %w", payload.Name, asynq.SkipRetry)
	}
	if payload.Name == "" || filepath.Base(payload.Name) != payload.Name {
		return fmt.Errorf("mirror %q: not a stored file name: %w", payload.Name, asynq.SkipRetry)
	}
	path := filepath.Join(p.uploadDir, payload.Name)
	if err := p.objects.UploadFile(ctx, payload.Name, path, contentType(payload.Name)); err != nil {
		p.log.Errorw("mirror failed", "file", payload.Name, "error", err)
		return err
	}
	metrics.ObjectsMirrored.Inc()
	p.log.Infow("mirrored model", "file", payload.Name)
	return nil
}

func isModel(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".glb" || ext == ".gltf"
}

func contentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gltf":
		return "model/gltf+json"
	default:
		return "model/gltf-binary"
	}
}
