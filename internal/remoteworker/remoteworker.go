// Package remoteworker serializes all use of a remote transport through a
// single consumer goroutine and cooperatively cancels stale fetch requests
// using a shared liveness range, exactly as a Remote Worker is specified to
// behave: one owner, FIFO consumption, Exists checks always executed,
// Fetch requests dropped up front when their index has drifted out of
// range.
package remoteworker

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrCancelled is returned for a Fetch whose index was outside the current
// LivenessRange when the worker reached it in the queue. The transport is
// never invoked in that case.
var ErrCancelled = errors.New("remoteworker: cancelled")

// Transport is the narrow surface remoteworker needs from
// internal/remotetransport, kept as an interface so the worker can be
// driven by a fake in tests.
type Transport interface {
	Exists(path string) (bool, error)
	Fetch(path string) ([]byte, error)
	Close() error
}

// request is the FIFO queue's element type: Exists and Fetch share one
// queue so their relative order is preserved exactly as enqueued.
type request interface {
	handle(w *Worker)
}

// ExistsResult is delivered on an ExistsRequest's reply channel.
type ExistsResult struct {
	Exists bool
	Err    error
}

// ExistsRequest asks whether Path exists on the remote host. Never
// cancellation-gated: existence checks are cheap and used synchronously
// during sequence discovery.
type ExistsRequest struct {
	Path  string
	Reply chan ExistsResult
}

func (r *ExistsRequest) handle(w *Worker) {
	id := uuid.NewString()
	w.waitLimiter()
	ok, err := w.transport.Exists(r.Path)
	w.logger.Debug("remote exists", slog.Group("request", "id", id, "path", r.Path), "ok", ok, "err", err)
	r.Reply <- ExistsResult{Exists: ok, Err: err}
}

// FetchResult is delivered on a FetchRequest's reply channel.
type FetchResult struct {
	Bytes []byte
	Err   error
}

// FetchRequest fetches the bytes at Path, identified by Idx for the
// liveness check. If Idx is outside the worker's current LivenessRange
// when the request is dequeued, the reply is ErrCancelled and the
// transport is never called.
type FetchRequest struct {
	Idx   uint64
	Path  string
	Reply chan FetchResult
}

func (r *FetchRequest) handle(w *Worker) {
	id := uuid.NewString()
	if !w.liveness.Contains(r.Idx) {
		w.logger.Debug("remote fetch cancelled", slog.Group("request", "id", id, "path", r.Path, "idx", r.Idx))
		r.Reply <- FetchResult{Err: ErrCancelled}
		return
	}
	w.waitLimiter()
	b, err := w.transport.Fetch(r.Path)
	w.logger.Debug("remote fetch", slog.Group("request", "id", id, "path", r.Path, "idx", r.Idx), "bytes", len(b), "err", err)
	r.Reply <- FetchResult{Bytes: b, Err: err}
}

// Options configures a Worker. A zero Options is valid: no rate limiting,
// and logs are discarded.
type Options struct {
	// Limiter paces outbound Exists/Fetch calls that actually reach the
	// transport. Requests are delayed, never dropped, by this limiter — it
	// has no bearing on the cancellation semantics above. Nil disables
	// pacing.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

// Worker owns a Transport exclusively for its lifetime. Construct with New
// and call Run in its own goroutine; callers use Exists/Fetch from any
// goroutine.
type Worker struct {
	transport Transport
	liveness  *LivenessRange
	limiter   *rate.Limiter
	logger    *slog.Logger

	// queue is generously buffered: typical window sizes (radius · step)
	// are small, so this avoids callers stalling on backpressure without
	// pretending the queue is unbounded.
	queue  chan request
	closed chan struct{}
}

// New constructs a Worker. The caller must run w.Run() in its own goroutine
// before issuing Exists/Fetch.
func New(transport Transport, liveness *LivenessRange, opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		transport: transport,
		liveness:  liveness,
		limiter:   opts.Limiter,
		logger:    logger,
		queue:     make(chan request, 1024),
		closed:    make(chan struct{}),
	}
}

// Run consumes the request queue FIFO until Close is called, then closes
// the transport (which sends QUIT over the remote shell) before returning.
// Run must be called exactly once, in its own goroutine.
func (w *Worker) Run() {
	defer func() {
		if err := w.transport.Close(); err != nil {
			w.logger.Debug("remote transport close", "err", err)
		}
		close(w.closed)
	}()
	for req := range w.queue {
		req.handle(w)
	}
}

// Close stops accepting new requests and waits for Run to finish draining
// and shutting down the transport.
func (w *Worker) Close() {
	close(w.queue)
	<-w.closed
}

// Exists enqueues an existence check and blocks for its reply.
func (w *Worker) Exists(path string) (bool, error) {
	reply := make(chan ExistsResult, 1)
	w.queue <- &ExistsRequest{Path: path, Reply: reply}
	res := <-reply
	return res.Exists, res.Err
}

// Fetch enqueues a byte fetch and blocks for its reply. idx is used only
// for the liveness check at dequeue time.
func (w *Worker) Fetch(idx uint64, path string) ([]byte, error) {
	reply := make(chan FetchResult, 1)
	w.queue <- &FetchRequest{Idx: idx, Path: path, Reply: reply}
	res := <-reply
	return res.Bytes, res.Err
}

func (w *Worker) waitLimiter() {
	if w.limiter == nil {
		return
	}
	// No deadline is imposed here, matching the cache's no-timeout contract;
	// this can only block on the limiter's own refill timer.
	_ = w.limiter.Wait(context.Background())
}
