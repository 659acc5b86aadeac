// Package dispatch runs blurs on a pool of background workers and hands the
// results back through channels or rendering surfaces.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/source"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("dispatcher is shut down")

// Result is the outcome of one blur job.
type Result struct {
	JobID   uuid.UUID
	Buffer  *blur.PixelBuffer
	Err     error
	Elapsed time.Duration
}

// Surface displays blurred pixels. Surfaces are compared by identity, so
// implementations should be pointer types.
type Surface interface {
	Render(buf *blur.PixelBuffer)
}

// FailureReporter is implemented by surfaces that want to hear about failed blurs.
type FailureReporter interface {
	Fail(err error)
}

type job struct {
	id      uuid.UUID
	engine  blur.Engine
	src     source.Source
	deliver func(Result)
}

type Dispatcher struct {
	poolSize  int
	jobs      chan *job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	processed atomic.Int64

	surfaceMu sync.Mutex
	latest    map[Surface]uuid.UUID
	inFlight  map[uuid.UUID]struct{}
}

func New(poolSize, queueSize int) (*Dispatcher, error) {
	if poolSize < 1 {
		return nil, errors.New("pool size must be at least 1")
	}
	if queueSize < 0 {
		return nil, errors.New("queue size must not be negative")
	}
	return &Dispatcher{
		poolSize: poolSize,
		jobs:     make(chan *job, queueSize),
		latest:   make(map[Surface]uuid.UUID),
		inFlight: make(map[uuid.UUID]struct{}),
	}, nil
}

func (d *Dispatcher) StartWorkers() {
	log.Info().Int("poolSize", d.poolSize).Msg("starting blur workers")

	d.wg.Add(d.poolSize)
	for i := range d.poolSize {
		go d.worker(i)
	}
}

func (d *Dispatcher) worker(i int) {
	defer d.wg.Done()
	log.Debug().Int("worker", i).Msg("worker started")
	for j := range d.jobs {
		j.deliver(d.run(j))
		d.processed.Add(1)
	}
	log.Debug().Int("worker", i).Msg("worker finished")
}

func (d *Dispatcher) run(j *job) Result {
	start := time.Now()
	result := Result{JobID: j.id}

	buf, err := j.src.PixelBuffer()
	if err != nil {
		result.Err = fmt.Errorf("failed to read source: %w", err)
	} else {
		result.Buffer, result.Err = j.engine.Blur(buf)
	}

	result.Elapsed = time.Since(start)
	l := log.With().Str("job", j.id.String()).Dur("elapsed", result.Elapsed).Logger()
	if result.Err != nil {
		l.Warn().Err(result.Err).Msg("blur failed")
	} else {
		l.Debug().Int("width", result.Buffer.Width).Int("height", result.Buffer.Height).Msg("blur finished")
	}
	return result
}

func (d *Dispatcher) enqueue(ctx context.Context, j *job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}

	select {
	case d.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newJobID() uuid.UUID {
	id, err := uuid.NewV4()
	if err != nil {
		// Only fails when the system entropy source is broken.
		panic(fmt.Sprintf("failed to generate job id: %v", err))
	}
	return id
}

// Submit queues a blur of src and returns a channel that receives exactly one
// Result. It blocks while the queue is full until ctx is done.
func (d *Dispatcher) Submit(ctx context.Context, engine blur.Engine, src source.Source) (<-chan Result, error) {
	results := make(chan Result, 1)
	j := &job{
		id:      newJobID(),
		engine:  engine,
		src:     src,
		deliver: func(r Result) { results <- r },
	}

	if err := d.enqueue(ctx, j); err != nil {
		return nil, err
	}
	return results, nil
}

// Into queues a blur of src for display on surface. If another job for the
// same surface is submitted before this one finishes, this result is dropped.
func (d *Dispatcher) Into(ctx context.Context, engine blur.Engine, src source.Source, surface Surface) (uuid.UUID, error) {
	id := newJobID()

	d.surfaceMu.Lock()
	previous, hadPrevious := d.latest[surface]
	d.latest[surface] = id
	d.inFlight[id] = struct{}{}
	d.surfaceMu.Unlock()

	j := &job{
		id:      id,
		engine:  engine,
		src:     src,
		deliver: func(r Result) { d.deliver(surface, r) },
	}

	if err := d.enqueue(ctx, j); err != nil {
		d.surfaceMu.Lock()
		delete(d.inFlight, id)
		if d.latest[surface] == id {
			// Only a job that can still deliver may become current again.
			if _, pending := d.inFlight[previous]; hadPrevious && pending {
				d.latest[surface] = previous
			} else {
				delete(d.latest, surface)
			}
		}
		d.surfaceMu.Unlock()
		return uuid.Nil, err
	}
	return id, nil
}

func (d *Dispatcher) deliver(surface Surface, r Result) {
	d.surfaceMu.Lock()
	defer d.surfaceMu.Unlock()

	delete(d.inFlight, r.JobID)
	if d.latest[surface] != r.JobID {
		log.Debug().Str("job", r.JobID.String()).Msg("discarding superseded result")
		return
	}
	delete(d.latest, surface)

	if r.Err != nil {
		if fr, ok := surface.(FailureReporter); ok {
			fr.Fail(r.Err)
		}
		return
	}
	surface.Render(r.Buffer)
}

// Processed returns the number of jobs that have run to completion.
func (d *Dispatcher) Processed() int64 {
	return d.processed.Load()
}

// Shutdown stops accepting jobs, lets queued jobs finish and waits for the
// workers to exit. It is safe to call more than once.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	d.wg.Wait()
	log.Info().Int64("processed", d.Processed()).Msg("blur workers stopped")
}
