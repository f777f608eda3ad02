// Package processing runs the in-process reclaim pool: stored upload files of
// deleted sites are removed by a small set of worker goroutines so the
// delete request never waits on the filesystem.
package processing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/HoloHeri/internal/metrics"
)

// Job lists the stored file names to remove from the upload directory.
type Job struct {
	Names []string
}

// Processor consumes reclaim Jobs.
type Processor struct {
	dir     string
	queue   chan Job
	workers int
	log     *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New builds a Processor with queue capacity tied to worker count.
func New(dir string, workers int, log *zap.SugaredLogger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.S()
	}
	return &Processor{
		dir:     dir,
		queue:   make(chan Job, workers*16),
		workers: workers,
		log:     log,
	}
}

// Start launches worker goroutines. Workers exit when ctx is cancelled or
// Stop is called.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Reclaim queues the files for removal. It never blocks: when the queue is
// full the job is logged and dropped.
func (p *Processor) Reclaim(names []string) {
	if len(names) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.Warnw("reclaim pool stopped, dropping job", "files", names)
		metrics.ReclaimDropped.Inc()
		return
	}
	select {
	case p.queue <- Job{Names: names}:
	default:
		p.log.Warnw("reclaim queue full, dropping job", "files", names)
		metrics.ReclaimDropped.Inc()
	}
}

// Stop closes the queue and waits for queued jobs to finish.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Processor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			p.process(job)
		}
	}
}

func (p *Processor) process(job Job) {
	for _, name := range job.Names {
		if err := RemoveStored(p.dir, name); err != nil {
			metrics.ReclaimFailures.Inc()
			p.log.Errorw("failed to remove stored file", "file", name, "error", err)
		}
	}
}

// RemoveStored deletes one file from the upload directory. Names that are not
// plain file names are refused; a file that is already gone is not an error.
func RemoveStored(dir, name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("refusing to remove %q: not a stored file name", name)
	}
	err := os.Remove(filepath.Join(dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
