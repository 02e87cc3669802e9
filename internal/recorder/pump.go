package recorder

import (
	"context"
	"log/slog"
	"sync"

	"github.com/zkplatoon/platoon/internal/queue"
	"github.com/zkplatoon/platoon/pkg/core"
)

type job struct {
	name string
	fn   func(Backend) error
}

// Pump feeds simulation events to a Backend from its own goroutine, so
// a slow backend never holds up the controller. It implements the
// controller's Observer interface. Events reach the backend in the
// order they were observed.
type Pump struct {
	backend Backend
	log     *slog.Logger
	jobs    *queue.Queue[job]

	once    sync.Once
	stop    chan struct{}
	done    chan struct{}
	idle    sync.Cond
	mu      sync.Mutex
	pending int
}

// NewPump starts a pump writing to backend.
func NewPump(backend Backend, logger *slog.Logger) *Pump {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pump{
		backend: backend,
		log:     logger,
		jobs:    queue.New[job](),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.idle.L = &p.mu
	go p.loop()
	return p
}

func (p *Pump) enqueue(name string, fn func(Backend) error) {
	p.mu.Lock()
	p.pending++
	p.mu.Unlock()
	p.jobs.Push(job{name: name, fn: fn})
}

func (p *Pump) loop() {
	defer close(p.done)
	for {
		select {
		case <-p.jobs.Ready():
			p.runAll()
		case <-p.stop:
			p.runAll()
			return
		}
	}
}

func (p *Pump) runAll() {
	batch := p.jobs.GetAndEmpty()
	for _, j := range batch {
		if err := j.fn(p.backend); err != nil {
			p.log.Warn("Recorder write failed", "event", j.name, "error", err)
		}
	}
	if len(batch) == 0 {
		return
	}
	p.mu.Lock()
	p.pending -= len(batch)
	if p.pending == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

// Sync blocks until every event observed so far has been written.
func (p *Pump) Sync() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.pending > 0 {
		p.idle.Wait()
	}
}

// Pending returns how many observed events are not yet written.
func (p *Pump) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Close writes the remaining events and stops the pump. It does not
// close the backend.
func (p *Pump) Close(ctx context.Context) error {
	p.once.Do(func() { close(p.stop) })
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pump) OnStart(run core.Run, snap core.Snapshot) {
	p.enqueue("start_run", func(b Backend) error { return b.StartRun(&run, &snap) })
}

func (p *Pump) OnTick(snap core.Snapshot) {
	p.enqueue("tick", func(b Backend) error { return b.RecordTick(&snap) })
}

func (p *Pump) OnFault(ev core.FaultEvent) {
	p.enqueue("fault", func(b Backend) error { return b.RecordFault(&ev) })
}

func (p *Pump) OnShuffle(ev core.ShuffleEvent) {
	p.enqueue("shuffle", func(b Backend) error { return b.RecordShuffle(&ev) })
}

func (p *Pump) OnStop(_ core.Run, final core.Snapshot) {
	p.enqueue("end_run", func(b Backend) error { return b.EndRun(&final) })
}
