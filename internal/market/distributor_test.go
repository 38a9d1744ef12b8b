package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unihub-app/unihub-go/internal/logger"
	"github.com/unihub-app/unihub-go/internal/models"
)

// fakeSource returns a distinct snapshot on every fetch so tests can
// tell which fetch a notification came from
type fakeSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSource) Fetch(ctx context.Context) ([]models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []models.Quote{{ID: int64(f.calls), Symbol: "AAPL"}}, nil
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// recorder collects everything a listener observed
type recorder struct {
	mu      sync.Mutex
	updates [][]models.Quote
	errors  []error
}

func (r *recorder) listener() Listener {
	return Listener{
		OnUpdate: func(quotes []models.Quote) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.updates = append(r.updates, quotes)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, err)
		},
	}
}

func (r *recorder) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) errorCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

func (r *recorder) lastUpdate() []models.Quote {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[len(r.updates)-1]
}

const testInterval = 200 * time.Millisecond

func TestDistributor_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("first subscriber gets an immediate fetch", func(t *testing.T) {
		source := &fakeSource{}
		d := NewDistributor(source, testInterval, logger.NewNoOpLogger())
		defer d.Destroy()

		rec := &recorder{}
		unsubscribe := d.Subscribe(rec.listener())
		defer unsubscribe()

		require.Eventually(t, func() bool { return rec.updateCount() == 1 },
			testInterval/2, 5*time.Millisecond,
			"first subscriber should receive data well before the first tick")
		assert.Equal(t, 1, source.count())
	})

	t.Run("second subscriber causes no extra immediate fetch", func(t *testing.T) {
		source := &fakeSource{}
		d := NewDistributor(source, testInterval, logger.NewNoOpLogger())
		defer d.Destroy()

		recA := &recorder{}
		unsubA := d.Subscribe(recA.listener())
		defer unsubA()

		require.Eventually(t, func() bool { return source.count() == 1 },
			testInterval/2, 5*time.Millisecond)

		recB := &recorder{}
		unsubB := d.Subscribe(recB.listener())
		defer unsubB()

		// Stay inside the same interval window
		time.Sleep(testInterval / 4)
		assert.Equal(t, 1, source.count(), "joining an active distributor must not trigger a fetch")
	})

	t.Run("listeners of one tick share the snapshot", func(t *testing.T) {
		source := &fakeSource{}
		d := NewDistributor(source, testInterval, logger.NewNoOpLogger())
		defer d.Destroy()

		recA, recB := &recorder{}, &recorder{}
		unsubA := d.Subscribe(recA.listener())
		defer unsubA()
		unsubB := d.Subscribe(recB.listener())
		defer unsubB()

		require.Eventually(t, func() bool { return recA.updateCount() >= 2 && recB.updateCount() >= 1 },
			3*testInterval, 5*time.Millisecond)

		// Snapshots carry the fetch ordinal; every notification B saw
		// must match one A saw too, never a fetch of B's own.
		// A and B are notified in unspecified order within a tick, so
		// allow A's matching append to land.
		lastB := recB.lastUpdate()
		require.NotEmpty(t, lastB)

		require.Eventually(t, func() bool {
			recA.mu.Lock()
			defer recA.mu.Unlock()
			for _, update := range recA.updates {
				if update[0].ID == lastB[0].ID {
					return true
				}
			}
			return false
		}, testInterval/2, 5*time.Millisecond, "B's snapshot should come from the same fetch as one of A's")
	})

	t.Run("unsubscribing the last listener stops fetching", func(t *testing.T) {
		source := &fakeSource{}
		d := NewDistributor(source, testInterval, logger.NewNoOpLogger())
		defer d.Destroy()

		recA, recB := &recorder{}, &recorder{}
		unsubA := d.Subscribe(recA.listener())
		unsubB := d.Subscribe(recB.listener())

		require.Eventually(t, func() bool { return source.count() >= 1 },
			testInterval/2, 5*time.Millisecond)

		unsubA()
		unsubB()

		settled := source.count()
		time.Sleep(5 * testInterval / 2)
		assert.Equal(t, settled, source.count(), "no fetches after the listener set is empty")
	})

	t.Run("unsubscribe is idempotent", func(t *testing.T) {
		source := &fakeSource{}
		d := NewDistributor(source, testInterval, logger.NewNoOpLogger())
		defer d.Destroy()

		recA, recB := &recorder{}, &recorder{}
		unsubA := d.Subscribe(recA.listener())
		unsubB := d.Subscribe(recB.listener())

		unsubA()
		unsubA() // must not eat B's registration

		require.Eventually(t, func() bool { return recB.updateCount() >= 1 },
			2*testInterval, 5*time.Millisecond,
			"remaining listener should keep receiving updates")

		unsubB()
	})

	t.Run("resubscribing after stop starts a fresh ticker", func(t *testing.T) {
		source := &fakeSource{}
		d := NewDistributor(source, testInterval, logger.NewNoOpLogger())
		defer d.Destroy()

		rec := &recorder{}
		unsubscribe := d.Subscribe(rec.listener())
		require.Eventually(t, func() bool { return source.count() == 1 },
			testInterval/2, 5*time.Millisecond)
		unsubscribe()

		rec2 := &recorder{}
		unsubscribe2 := d.Subscribe(rec2.listener())
		defer unsubscribe2()

		require.Eventually(t, func() bool { return rec2.updateCount() >= 1 },
			testInterval/2, 5*time.Millisecond,
			"new first subscriber should again get an immediate fetch")
	})
}

func TestDistributor_Errors(t *testing.T) {
	t.Parallel()

	t.Run("failed tick notifies error callbacks and keeps ticking", func(t *testing.T) {
		source := &fakeSource{}
		source.setErr(errors.New("connection refused"))

		d := NewDistributor(source, testInterval, logger.NewNoOpLogger())
		defer d.Destroy()

		recA, recB := &recorder{}, &recorder{}
		unsubA := d.Subscribe(recA.listener())
		defer unsubA()
		unsubB := d.Subscribe(recB.listener())
		defer unsubB()

		require.Eventually(t, func() bool { return recA.errorCount() >= 1 && recB.errorCount() >= 1 },
			2*testInterval, 5*time.Millisecond,
			"both error callbacks should fire")
		assert.Zero(t, recA.updateCount())

		// Transient failure: once the source recovers the next tick delivers data
		source.setErr(nil)

		require.Eventually(t, func() bool { return recA.updateCount() >= 1 && recB.updateCount() >= 1 },
			3*testInterval, 5*time.Millisecond,
			"timer must survive fetch failures")
	})

	t.Run("nil error callback is skipped", func(t *testing.T) {
		source := &fakeSource{}
		source.setErr(errors.New("boom"))

		d := NewDistributor(source, testInterval, logger.NewNoOpLogger())
		defer d.Destroy()

		unsubscribe := d.Subscribe(Listener{OnUpdate: func([]models.Quote) {}})
		defer unsubscribe()

		// Nothing to assert beyond "does not panic": give it one tick
		time.Sleep(testInterval / 2)
	})
}

func TestDistributor_Destroy(t *testing.T) {
	t.Parallel()

	source := &fakeSource{}
	d := NewDistributor(source, testInterval, logger.NewNoOpLogger())

	rec := &recorder{}
	d.Subscribe(rec.listener())

	require.Eventually(t, func() bool { return source.count() >= 1 },
		testInterval/2, 5*time.Millisecond)

	d.Destroy()

	settled := source.count()
	time.Sleep(5 * testInterval / 2)
	assert.Equal(t, settled, source.count(), "no fetches after Destroy")

	// Subscribe after Destroy is a no-op
	unsubscribe := d.Subscribe(rec.listener())
	unsubscribe()

	time.Sleep(testInterval)
	assert.Equal(t, settled, source.count(), "destroyed distributor must not restart")
}
