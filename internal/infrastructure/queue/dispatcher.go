package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hwidlock/license-system/internal/core/domain"
	"github.com/hwidlock/license-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher writes license audit events through a fixed set of workers,
// sharded by license key so events for one license are stored in order.
// Record never blocks: when a worker's buffer is full the event is dropped.
type Dispatcher struct {
	workers []chan domain.LicenseEvent
	sink    ports.AuditRepository
	log     zerolog.Logger
	wg      sync.WaitGroup
	onDrop  func(domain.LicenseEvent)
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.LicenseEvent, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.LicenseEvent, channelBuffer)
	}
	return d
}

// OnDrop registers a callback invoked for every event dropped on a full buffer.
func (d *Dispatcher) OnDrop(fn func(domain.LicenseEvent)) {
	d.onDrop = fn
}

// Start launches all worker goroutines. Workers drain their buffer and stop
// when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record implements ports.AuditLog.
func (d *Dispatcher) Record(event domain.LicenseEvent) {
	select {
	case d.workers[d.shardIndex(event.LicenseKey)] <- event:
	default:
		d.log.Warn().
			Str("type", string(event.Type)).
			Int64("license_id", event.LicenseID).
			Msg("audit buffer full, event dropped")
		if d.onDrop != nil {
			d.onDrop(event)
		}
	}
}

// shardIndex maps a license key deterministically to a worker index.
func (d *Dispatcher) shardIndex(licenseKey string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(licenseKey))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.LicenseEvent) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case event := <-ch:
			d.write(ctx, id, event)
		}
	}
}

// drain flushes whatever is still buffered using a fresh context.
func (d *Dispatcher) drain(id int, ch <-chan domain.LicenseEvent) {
	for {
		select {
		case event := <-ch:
			d.write(context.Background(), id, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(ctx context.Context, id int, event domain.LicenseEvent) {
	if err := d.sink.InsertEvent(ctx, &event); err != nil {
		d.log.Error().Err(err).
			Str("type", string(event.Type)).
			Int64("license_id", event.LicenseID).
			Int("worker_id", id).
			Msg("audit event write failed")
	}
}
