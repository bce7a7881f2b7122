package audit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrDrainTimeout is returned by [Dispatcher.Close] when buffered events were
// still pending at the drain deadline.
var ErrDrainTimeout = errors.New("audit drain deadline exceeded")

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// DrainTimeout bounds how long Close waits for buffered events.
	// Zero waits until the sink has seen every one of them.
	DrainTimeout time.Duration
}

// Dispatcher delivers session events to a sink on one goroutine, in the
// order they were emitted.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	queue chan Event

	// emitMu is held shared by in-flight Emit calls so Close can wait for
	// them before the final drain.
	emitMu   sync.RWMutex
	stopping chan struct{}
	drain    chan struct{}
	finished chan struct{}
	expired  atomic.Bool

	dropped    atomic.Uint64
	abandoned  atomic.Uint64
	sinkPanics atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg is
// disabled; a nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:      cfg,
		sink:     sink,
		queue:    make(chan Event, cfg.BufferSize),
		stopping: make(chan struct{}),
		drain:    make(chan struct{}),
		finished: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.finished)

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.drain:
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver isolates the dispatcher from a panicking sink. Past the drain
// deadline events are counted and discarded instead.
func (d *Dispatcher) deliver(event Event) {
	if d.expired.Load() {
		d.abandoned.Add(1)
		return
	}
	defer func() {
		if recover() != nil {
			d.sinkPanics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull a full buffer drops the event; otherwise
// Emit waits for room until ctx is done or the dispatcher closes. Events
// emitted after Close are ignored.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.emitMu.RLock()
	defer d.emitMu.RUnlock()

	select {
	case <-d.stopping:
		return
	default:
	}

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stopping:
		d.dropped.Add(1)
	}
}

// Close stops accepting events and delivers the buffered ones, giving up
// after DrainTimeout. Events left behind are counted by [Dispatcher.Abandoned]
// and the error wraps [ErrDrainTimeout]. Close is idempotent.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	d.closeOnce.Do(func() {
		close(d.stopping)
		d.emitMu.Lock()
		d.emitMu.Unlock()
		close(d.drain)
		d.closeErr = d.awaitDrain()
	})
	return d.closeErr
}

func (d *Dispatcher) awaitDrain() error {
	if d.cfg.DrainTimeout <= 0 {
		<-d.finished
		return nil
	}

	timer := time.NewTimer(d.cfg.DrainTimeout)
	defer timer.Stop()

	select {
	case <-d.finished:
		return nil
	case <-timer.C:
		d.expired.Store(true)
		return ErrDrainTimeout
	}
}

// Dropped counts events discarded at Emit because the buffer was full, the
// caller's context ended, or the dispatcher was closing.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Abandoned counts buffered events discarded after the drain deadline.
func (d *Dispatcher) Abandoned() uint64 {
	if d == nil {
		return 0
	}
	return d.abandoned.Load()
}

// SinkPanics counts deliveries that panicked inside the sink.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.sinkPanics.Load()
}
