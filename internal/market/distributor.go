package market

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unihub-app/unihub-go/internal/logger"
	"github.com/unihub-app/unihub-go/internal/models"
)

const defaultInterval = 10 * time.Second

// Source is the periodic pull the distributor turns into a push feed
type Source interface {
	Fetch(ctx context.Context) ([]models.Quote, error)
}

// Listener receives quote snapshots. OnError may be nil.
type Listener struct {
	OnUpdate func([]models.Quote)
	OnError  func(error)
}

// Distributor converts the periodic quote fetch into a subscription:
// the interval ticker exists exactly while the listener set is
// non-empty, every listener of one tick sees the same snapshot, and a
// failed fetch never stops the ticker.
type Distributor struct {
	interval time.Duration
	source   Source
	logger   logger.Logger

	mu        sync.Mutex
	listeners map[uuid.UUID]Listener
	stop      chan struct{} // non-nil exactly while the ticker goroutine runs
	closed    bool
}

func NewDistributor(source Source, interval time.Duration, log logger.Logger) *Distributor {
	if interval <= 0 {
		interval = defaultInterval
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Distributor{
		interval:  interval,
		source:    source,
		logger:    log,
		listeners: make(map[uuid.UUID]Listener),
	}
}

// Subscribe registers the listener and returns its unsubscribe
// function. The first subscriber starts the ticker and triggers one
// immediate fetch, so it does not wait a full interval for data.
// Unsubscribing the last listener stops the ticker. Removal goes
// through the returned handle only, two structurally identical
// listeners stay distinct.
func (d *Distributor) Subscribe(l Listener) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("Subscribe on destroyed distributor ignored")
		return func() {}
	}

	id := uuid.New()
	d.listeners[id] = l

	if len(d.listeners) == 1 {
		d.start()
	}

	d.logger.Debug("Listener subscribed", "listener_id", id, "count", len(d.listeners))

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if _, ok := d.listeners[id]; !ok {
			return
		}
		delete(d.listeners, id)

		d.logger.Debug("Listener unsubscribed", "listener_id", id, "count", len(d.listeners))

		if len(d.listeners) == 0 {
			d.stopTicker()
		}
	}
}

// Destroy stops the ticker and drops all listeners unconditionally.
// For use at process shutdown; later Subscribe calls become no-ops.
func (d *Distributor) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.listeners = make(map[uuid.UUID]Listener)
	d.stopTicker()

	d.logger.Debug("Distributor destroyed")
}

// start launches the ticker goroutine. Caller must hold d.mu.
func (d *Distributor) start() {
	stop := make(chan struct{})
	d.stop = stop

	d.logger.Debug("Starting quote ticker", "interval", d.interval)

	go func() {
		// Immediate fetch for the first subscriber, off its goroutine
		// so Subscribe never blocks on network I/O
		d.poll(context.Background())

		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				d.logger.Debug("Quote ticker stopped")
				return
			case <-ticker.C:
				d.poll(context.Background())
			}
		}
	}()
}

// stopTicker signals the ticker goroutine to exit. Caller must hold d.mu.
func (d *Distributor) stopTicker() {
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
}

// poll performs one fetch and fans the outcome out to every listener
// registered at notification time. All of them observe the identical
// snapshot; invocation order is unspecified.
func (d *Distributor) poll(ctx context.Context) {
	quotes, err := d.source.Fetch(ctx)

	d.mu.Lock()
	current := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		current = append(current, l)
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("Quote fetch failed", "error", err)
		for _, l := range current {
			if l.OnError != nil {
				l.OnError(err)
			}
		}
		return
	}

	for _, l := range current {
		l.OnUpdate(quotes)
	}
}
