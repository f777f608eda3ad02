package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/metrics"
)

const (
	// ReclaimMediaTask removes the stored files of a deleted site.
	ReclaimMediaTask = "media:reclaim"
	// MirrorMediaTask copies an uploaded 3D model to the object store.
	MirrorMediaTask = "media:mirror"

	enqueueTimeout = 5 * time.Second
)

// ReclaimPayload lists file names relative to the upload directory.
type ReclaimPayload struct {
	Names []string `json:"names"`
}

// MirrorPayload names one file in the upload directory.
type MirrorPayload struct {
	Name string `json:"name"`
}

// NewReclaimTask builds a reclaim task. Failed removals are retried by the
// queue up to three times.
func NewReclaimTask(names []string) (*asynq.Task, error) {
	data, err := json.Marshal(ReclaimPayload{Names: names})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ReclaimMediaTask, data, asynq.MaxRetry(3)), nil
}

// NewMirrorTask builds a mirror task.
func NewMirrorTask(name string) (*asynq.Task, error) {
	data, err := json.Marshal(MirrorPayload{Name: name})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(MirrorMediaTask, data, asynq.MaxRetry(5)), nil
}

// Enqueuer is the subset of *asynq.Client used by Dispatcher.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher hands reclaim and mirror work to the asynq queue. Enqueue
// failures are logged and the work is dropped.
type Dispatcher struct {
	client Enqueuer
	log    *zap.SugaredLogger
}

// NewDispatcher wraps an asynq client.
func NewDispatcher(client Enqueuer, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.S()
	}
	return &Dispatcher{client: client, log: log}
}

// Reclaim enqueues removal of the given stored files.
func (d *Dispatcher) Reclaim(names []string) {
	if len(names) == 0 {
		return
	}
	task, err := NewReclaimTask(names)
	if err == nil {
		err = d.enqueue(task)
	}
	if err != nil {
		metrics.ReclaimDropped.Inc()
		d.log.Errorw("enqueue reclaim task failed", "files", names, "error", err)
	}
}

// Mirror enqueues a copy of the stored model to the object store.
func (d *Dispatcher) Mirror(name string) {
	task, err := NewMirrorTask(name)
	if err == nil {
		err = d.enqueue(task)
	}
	if err != nil {
		d.log.Errorw("enqueue mirror task failed", "file", name, "error", err)
	}
}

// enqueue uses its own context so the work outlives the request that
// triggered it.
func (d *Dispatcher) enqueue(task *asynq.Task) error {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()
	if _, err := d.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s task: %w", task.Type(), err)
	}
	return nil
}
