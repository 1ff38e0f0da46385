// Package sweeper runs periodic housekeeping against the chat store on a
// cron schedule: pruning expired typing entries and persisting a snapshot of
// the current state.
package sweeper

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/adhocore/gronx"

	"github.com/tinyland-inc/partyline/pkg/chat"
	"github.com/tinyland-inc/partyline/pkg/logger"
)

// Saver persists a snapshot of the store. The run command wires this to a
// JSON file under the configured state path.
type Saver func(state chat.StoredState) error

type Sweeper struct {
	store    *chat.Store
	save     Saver
	schedule string
	running  atomic.Bool
	done     chan struct{}
}

func New(store *chat.Store, schedule string, save Saver) *Sweeper {
	return &Sweeper{
		store:    store,
		save:     save,
		schedule: schedule,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called. It
// returns immediately if the sweeper is already running.
func (sw *Sweeper) Start(ctx context.Context) {
	if !sw.running.CompareAndSwap(false, true) {
		return
	}
	go sw.loop(ctx)
}

func (sw *Sweeper) Stop() {
	if sw.running.CompareAndSwap(true, false) {
		close(sw.done)
	}
}

func (sw *Sweeper) loop(ctx context.Context) {
	logger.InfoCF("sweeper", "Sweeper started", map[string]any{
		"schedule": sw.schedule,
	})

	for {
		now := time.Now()
		next, err := gronx.NextTickAfter(sw.schedule, now, false)
		if err != nil {
			logger.ErrorCF("sweeper", "Bad schedule, retrying in 30s", map[string]any{
				"schedule": sw.schedule,
				"error":    err.Error(),
			})
			next = now.Add(30 * time.Second)
		}

		select {
		case <-time.After(next.Sub(now)):
			sw.sweep()
		case <-sw.done:
			logger.InfoC("sweeper", "Sweeper stopped")
			return
		case <-ctx.Done():
			logger.InfoC("sweeper", "Sweeper stopped")
			return
		}
	}
}

func (sw *Sweeper) sweep() {
	if sw.store.PruneTyping() {
		logger.DebugC("sweeper", "Pruned expired typing entries")
	}

	if sw.save == nil {
		return
	}
	if err := sw.save(sw.store.ToStoredState()); err != nil {
		logger.ErrorCF("sweeper", "Snapshot save failed", map[string]any{
			"error": err.Error(),
		})
	}
}
