package watcher

import (
	"sync"
	"time"
)

// DefaultDebounce is used when a non-positive delay is given.
const DefaultDebounce = 100 * time.Millisecond

// Debounced wraps a Watcher so that operations on the same path within the
// delay are coalesced into one Event carrying all of them.
type Debounced struct {
	inner Watcher
	delay time.Duration

	mu       sync.Mutex
	pending  map[string]*pendingEvent
	events   chan Event
	errors   chan error
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// NewDebounced wraps inner.
func NewDebounced(inner Watcher, delay time.Duration) *Debounced {
	if delay <= 0 {
		delay = DefaultDebounce
	}

	d := &Debounced{
		inner:   inner,
		delay:   delay,
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, 64),
		errors:  make(chan error, 16),
		closeCh: make(chan struct{}),
	}

	d.closedWg.Add(1)
	go d.processLoop()

	return d
}

// Watch starts watching a path.
func (d *Debounced) Watch(path string) error {
	return d.inner.Watch(path)
}

// Unwatch stops watching a path.
func (d *Debounced) Unwatch(path string) error {
	return d.inner.Unwatch(path)
}

// Events returns the debounced event channel.
func (d *Debounced) Events() <-chan Event {
	return d.events
}

// Errors returns the error channel.
func (d *Debounced) Errors() <-chan error {
	return d.errors
}

// Close stops the watcher, dropping pending events.
func (d *Debounced) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.closeCh)
	for path, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, path)
	}
	d.mu.Unlock()

	err := d.inner.Close()
	d.closedWg.Wait()

	// Timers that already fired may still be sending; they observe closed.
	d.mu.Lock()
	close(d.events)
	close(d.errors)
	d.mu.Unlock()

	return err
}

// Pending returns the number of paths waiting for their delay to pass.
func (d *Debounced) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Flush delivers every pending event now.
func (d *Debounced) Flush() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for path, p := range d.pending {
		p.timer.Stop()
		paths = append(paths, path)
	}
	d.mu.Unlock()

	for _, path := range paths {
		d.fire(path)
	}
}

func (d *Debounced) processLoop() {
	defer d.closedWg.Done()

	for {
		select {
		case <-d.closeCh:
			return

		case event, ok := <-d.inner.Events():
			if !ok {
				return
			}
			d.add(event)

		case err, ok := <-d.inner.Errors():
			if !ok {
				return
			}
			d.mu.Lock()
			if !d.closed {
				select {
				case d.errors <- err:
				default:
				}
			}
			d.mu.Unlock()
		}
	}
}

func (d *Debounced) add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	if p, ok := d.pending[event.Path]; ok {
		p.event.Op |= event.Op
		p.event.Timestamp = event.Timestamp
		p.timer.Reset(d.delay)
		return
	}

	path := event.Path
	d.pending[path] = &pendingEvent{
		event: event,
		timer: time.AfterFunc(d.delay, func() { d.fire(path) }),
	}
}

func (d *Debounced) fire(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.pending[path]
	if !ok || d.closed {
		return
	}
	delete(d.pending, path)

	select {
	case d.events <- p.event:
	default:
	}
}

var _ Watcher = (*Debounced)(nil)
