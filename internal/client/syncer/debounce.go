package syncer

import (
	"sync"
	"time"
)

// Debouncer runs the latest function scheduled for a key once the key has
// been quiet for the configured delay.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	gen     uint64
	pending map[string]*debounced
	// running tracks calls whose timer already fired.
	running sync.WaitGroup
}

type debounced struct {
	timer *time.Timer
	fn    func()
	gen   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: make(map[string]*debounced)}
}

// Schedule replaces any pending call for key and restarts its timer.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending[key] = &debounced{
		fn:    fn,
		gen:   gen,
		timer: time.AfterFunc(d.delay, func() { d.fire(key, gen) }),
	}
}

func (d *Debouncer) fire(key string, gen uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.gen != gen {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.running.Add(1)
	d.mu.Unlock()

	defer d.running.Done()
	p.fn()
}

// Wait blocks until calls started by their timer have returned.
func (d *Debouncer) Wait() {
	d.running.Wait()
}

// Flush runs every pending call now, in the caller's goroutine.
func (d *Debouncer) Flush() {
	for _, fn := range d.drain() {
		fn()
	}
}

// Stop discards every pending call.
func (d *Debouncer) Stop() {
	_ = d.drain()
}

func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) drain() []func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	fns := make([]func(), 0, len(d.pending))
	for key, p := range d.pending {
		p.timer.Stop()
		fns = append(fns, p.fn)
		delete(d.pending, key)
	}
	return fns
}
