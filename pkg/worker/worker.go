// Package worker runs test synthesis for snapshots submitted from many
// goroutines on a single consumer, so one synthesizer is never used
// concurrently.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/speakeasy-api/testrecorder"
	"github.com/speakeasy-api/testrecorder/synth"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("worker is closed")

// Planner turns a snapshot into a test plan. *synth.Synthesizer implements it.
type Planner interface {
	PlanSnapshot(snap *testrecorder.Snapshot) (*synth.TestPlan, error)
}

// Result is the outcome for one snapshot. Exactly one of Plan and Err is set.
type Result struct {
	Snapshot *testrecorder.Snapshot
	Plan     *synth.TestPlan
	Err      error
}

// Options configures a Worker.
type Options struct {
	// Buffer is the number of snapshots that can wait (default: 64).
	Buffer int
	// Logger receives failures (default: no-op).
	Logger *zap.Logger
	// OnResult is called on the consumer goroutine for every snapshot.
	OnResult func(Result)
}

// Worker drains a queue of snapshots on one goroutine.
type Worker struct {
	mu     sync.RWMutex
	closed bool
	queue  chan *testrecorder.Snapshot
	done   chan struct{}

	planner  Planner
	log      *zap.Logger
	onResult func(Result)

	processed atomic.Int64
	failures  atomic.Int64
}

// New starts a worker planning with p.
func New(p Planner, opts Options) *Worker {
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.OnResult == nil {
		opts.OnResult = func(Result) {}
	}
	w := &Worker{
		queue:    make(chan *testrecorder.Snapshot, opts.Buffer),
		done:     make(chan struct{}),
		planner:  p,
		log:      opts.Logger,
		onResult: opts.OnResult,
	}
	go w.run()
	return w
}

// Submit queues snap. It blocks while the queue is full until ctx is done.
func (w *Worker) Submit(ctx context.Context, snap *testrecorder.Snapshot) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.queue <- snap:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting snapshots and waits until the queued ones are
// processed. Calling Close more than once is safe.
func (w *Worker) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

// Processed returns the number of snapshots handled so far.
func (w *Worker) Processed() int64 { return w.processed.Load() }

// Failures returns the number of snapshots that could not be planned.
func (w *Worker) Failures() int64 { return w.failures.Load() }

func (w *Worker) run() {
	defer close(w.done)
	for snap := range w.queue {
		w.onResult(w.handle(snap))
		w.processed.Add(1)
	}
}

// handle plans one snapshot. A failing snapshot is logged and skipped.
func (w *Worker) handle(snap *testrecorder.Snapshot) (res Result) {
	res.Snapshot = snap
	method := "<nil>"
	if snap != nil {
		method = snap.Method.String()
	}
	defer func() {
		if r := recover(); r != nil {
			res.Plan, res.Err = nil, fmt.Errorf("panic while planning %s: %v", method, r)
			w.failures.Add(1)
			w.log.Error("synthesis panicked", zap.String("method", method), zap.Any("panic", r))
		}
	}()

	plan, err := w.planner.PlanSnapshot(snap)
	if err != nil {
		w.failures.Add(1)
		w.log.Warn("skipping snapshot", zap.String("method", method), zap.Error(err))
		return Result{Snapshot: snap, Err: err}
	}
	w.log.Debug("planned snapshot", zap.String("method", method), zap.String("run", plan.RunID))
	return Result{Snapshot: snap, Plan: plan}
}
