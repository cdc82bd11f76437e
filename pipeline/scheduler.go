package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/khaledhikmat/vs-overlay/model"
	"github.com/khaledhikmat/vs-overlay/service/inference"
	"github.com/khaledhikmat/vs-overlay/service/lgr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/atomic"
)

// DefaultScalingPolicy matches how the detection model was calibrated.
const DefaultScalingPolicy = model.StretchFill

// Scheduler runs at most one inference at a time on the freshest frame.
//
//	Idle        --Submit(f)-->   Busy(f)
//	Busy(f)     --Submit(g)-->   BusyPending(f, g)
//	BusyPending --Submit(h)-->   BusyPending(f, h)   g is closed
//	Busy(f)     --complete-->    Idle
//	BusyPending --complete-->    Busy(g)
//
// Submit never blocks. The worker goroutine is the only caller of the
// backend, and mu is never held across Infer.
type Scheduler struct {
	backend     inference.IService
	store       *ResultStore
	policy      model.ScalingPolicy
	tracer      trace.Tracer
	errorStream chan interface{}

	mu      sync.Mutex
	cond    *sync.Cond
	state   model.SchedulerState
	next    *model.Frame
	pending *model.Frame
	started bool
	stopped bool
	done    chan struct{}

	submitted  atomic.Uint64
	inferred   atomic.Uint64
	superseded atomic.Uint64
	failed     atomic.Uint64
	rejected   atomic.Uint64
	procTime   atomic.Duration
	startTime  time.Time
}

type SchedulerOption func(*Scheduler)

// WithTracer wraps each inference cycle in a span.
func WithTracer(tracer trace.Tracer) SchedulerOption {
	return func(s *Scheduler) {
		s.tracer = tracer
	}
}

// WithErrorStream reports per-frame failures as model.CustomError values.
// Sends are dropped when nobody is listening.
func WithErrorStream(errorStream chan interface{}) SchedulerOption {
	return func(s *Scheduler) {
		s.errorStream = errorStream
	}
}

// NewScheduler returns a scheduler publishing into store. A nil backend
// means detection is disabled: frames are accepted and discarded.
func NewScheduler(backend inference.IService, store *ResultStore, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		backend:   backend,
		store:     store,
		policy:    DefaultScalingPolicy,
		tracer:    noop.NewTracerProvider().Tracer("vs-overlay/pipeline"),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	s.cond = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Disabled reports whether detection is off for the process lifetime.
func (s *Scheduler) Disabled() bool {
	return s.backend == nil
}

// Start launches the inference worker. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	if s.Disabled() {
		close(s.done)
		return
	}

	go s.worker(ctx)
}

// Submit hands a frame to the scheduler and returns immediately. Ownership
// of frame passes to the scheduler.
func (s *Scheduler) Submit(frame model.Frame) {
	s.submitted.Inc()

	if s.Disabled() {
		s.rejected.Inc()
		frame.Close()
		return
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		s.rejected.Inc()
		frame.Close()
		return
	}

	var dropped *model.Frame
	switch s.state {
	case model.Idle:
		s.next = &frame
		s.state = model.Busy
		s.cond.Signal()
	default:
		dropped = s.pending
		s.pending = &frame
		s.state = model.BusyPending
	}
	s.mu.Unlock()

	if dropped != nil {
		s.superseded.Inc()
		dropped.Close()
	}
}

// State reports the current state machine position.
func (s *Scheduler) State() model.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop ends the worker after the in-flight inference completes and closes
// the pending frame. It blocks until the worker has exited.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.stopped = true
	started := s.started
	dropped := []*model.Frame{s.next, s.pending}
	s.next, s.pending = nil, nil
	s.cond.Broadcast()
	s.mu.Unlock()

	for _, f := range dropped {
		if f != nil {
			s.superseded.Inc()
			f.Close()
		}
	}

	if !started {
		close(s.done)
		return
	}
	<-s.done
}

func (s *Scheduler) Stats() model.SchedulerStats {
	inferred := s.inferred.Load()
	var avg float64
	if inferred > 0 {
		avg = s.procTime.Load().Seconds() / float64(inferred)
	}
	return model.SchedulerStats{
		Name:        "inferenceScheduler",
		Disabled:    s.Disabled(),
		Submitted:   s.submitted.Load(),
		Inferred:    inferred,
		Superseded:  s.superseded.Load(),
		Failed:      s.failed.Load(),
		Rejected:    s.rejected.Load(),
		Uptime:      int64(time.Since(s.startTime).Seconds()),
		AvgProcTime: avg,
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer close(s.done)

	lgr.Logger.Info(
		"inference scheduler started",
		slog.String("policy", s.policy.String()),
	)

	for {
		frame, ok := s.take()
		if !ok {
			lgr.Logger.Info(
				"inference scheduler stopped",
			)
			return
		}

		s.run(ctx, frame)
		s.complete()
	}
}

// take blocks until a frame has been accepted and hands it to the worker.
func (s *Scheduler) take() (model.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.next == nil && !s.stopped {
		s.cond.Wait()
	}
	if s.stopped {
		return model.Frame{}, false
	}

	frame := *s.next
	s.next = nil
	return frame, true
}

// complete promotes the pending frame, if any, or returns to Idle.
func (s *Scheduler) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.next = s.pending
		s.pending = nil
		s.state = model.Busy
		return
	}
	s.state = model.Idle
}

func (s *Scheduler) run(ctx context.Context, frame model.Frame) {
	defer frame.Close()

	ctx, span := s.tracer.Start(ctx, "scheduler.infer", trace.WithAttributes(
		attribute.Int64("frame.seq", int64(frame.Seq)),
		attribute.String("policy", s.policy.String()),
	))
	defer span.End()

	start := time.Now()
	set, err := s.backend.Infer(ctx, frame, s.policy)
	s.procTime.Add(time.Since(start))
	s.inferred.Inc()

	if err != nil {
		s.failed.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference failed")

		lgr.Logger.WarnContext(ctx,
			"inference failed, publishing empty set",
			slog.Uint64("seq", frame.Seq),
			slog.Any("error", lgr.Stack(err)),
		)
		s.report(model.GenError("inference_scheduler",
			err,
			map[string]interface{}{"seq": frame.Seq},
			"inference failed for frame %d", frame.Seq))

		set = model.ObservationSet{}
	}

	// The set always describes the frame it came from.
	set.FrameSeq = frame.Seq
	set.FrameWidth = frame.Width
	set.FrameHeight = frame.Height
	if set.Timestamp.IsZero() {
		set.Timestamp = time.Now()
	}

	span.SetAttributes(attribute.Int("observations", set.Len()))
	s.store.Publish(set)
}

func (s *Scheduler) report(err model.CustomError) {
	if s.errorStream == nil {
		return
	}
	select {
	case s.errorStream <- err:
	default:
		lgr.Logger.Debug("errorStream busy, dropping scheduler error")
	}
}
