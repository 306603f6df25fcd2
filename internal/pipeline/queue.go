package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultDocTimeout  = 2 * time.Minute
	defaultEnqueueWait = 5 * time.Second
)

// ErrQueueClosed is returned by Enqueue after Shutdown has begun.
var ErrQueueClosed = errors.New("pipeline: queue closed")

// Sink receives every Result exactly once. Implementations are called from a
// single goroutine at a time; the queue serializes delivery.
type Sink interface {
	Consume(Result)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Result)

func (f SinkFunc) Consume(r Result) { f(r) }

// Queue fans documents out to a bounded pool of workers, each running the
// full processor chain, and funnels results into the sink. Completed results
// are never discarded: cancellation only stops new work from starting.
type Queue struct {
	logger    *slog.Logger
	processor *Processor
	sink      Sink

	workers    int
	queueSize  int
	docTimeout time.Duration

	ch     chan Document
	wg     sync.WaitGroup
	mu     sync.Mutex
	sinkMu sync.Mutex
	closed bool
	once   sync.Once
}

// QueueOption customizes Queue construction.
type QueueOption func(*Queue)

// WithWorkers sets the number of concurrent document workers.
func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithQueueSize sets the pending-document buffer size.
func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.queueSize = n
		}
	}
}

// WithDocTimeout bounds how long a single document may take end to end.
func WithDocTimeout(d time.Duration) QueueOption {
	return func(q *Queue) {
		if d > 0 {
			q.docTimeout = d
		}
	}
}

// NewQueue builds a queue over the given processor and sink. Workers start
// lazily on the first Enqueue.
func NewQueue(logger *slog.Logger, processor *Processor, sink Sink, opts ...QueueOption) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		logger:     logger,
		processor:  processor,
		sink:       sink,
		workers:    defaultWorkers,
		queueSize:  defaultQueueSize,
		docTimeout: defaultDocTimeout,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.ch = make(chan Document, q.queueSize)
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(i)
		}
		q.logger.Info("queue.started", slog.Int("workers", q.workers))
	})
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for doc := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.docTimeout)
		res := q.processor.Process(ctx, doc)
		cancel()

		q.sinkMu.Lock()
		q.sink.Consume(res)
		q.sinkMu.Unlock()

		q.logger.Debug("queue.document.done",
			slog.Int("worker", id),
			slog.String("source", doc.SourcePath),
			slog.String("status", string(res.Status)))
	}
}

// Enqueue submits one document for processing. It blocks briefly under
// backpressure and returns ErrQueueClosed once Shutdown has begun. The mutex
// is held across the send so Shutdown can never close the channel under a
// parked sender.
func (q *Queue) Enqueue(ctx context.Context, doc Document) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.start()

	select {
	case q.ch <- doc:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(defaultEnqueueWait):
		return errors.New("pipeline: queue full")
	}
}

// Shutdown stops accepting new documents and waits for in-flight work to
// drain, or for ctx to expire, whichever comes first. Results already
// delivered to the sink are unaffected either way.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("queue.drained")
		return nil
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.timeout")
		return ctx.Err()
	}
}
