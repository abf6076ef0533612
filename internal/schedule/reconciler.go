package schedule

import (
	"context"

	"go.uber.org/zap"

	"github.com/Luisotee/maplelegends-bot/internal/domain"
	"github.com/Luisotee/maplelegends-bot/internal/store"
)

// TaskCashDelivery names every scheduled per-entry cash delivery task.
const TaskCashDelivery = "cash_update"

// Deliverer performs one scheduled cash delivery for one entry.
type Deliverer interface {
	Deliver(ctx context.Context, userID int64, entry domain.CashWatchEntry)
}

// Reconciler keeps the scheduler's cash delivery tasks in sync with the
// watcher store: every rebuild drops all of them and re-creates exactly one
// daily task per (user, entry) pair at that entry's delivery time. A full
// rebuild avoids tracking task identity separately from entry identity when
// entries are added, removed, or rescheduled.
type Reconciler struct {
	sched     *Scheduler
	store     *store.Store
	deliverer Deliverer
	logger    *zap.Logger
}

// NewReconciler wires the scheduler to the store.
func NewReconciler(sched *Scheduler, st *store.Store, deliverer Deliverer, logger *zap.Logger) *Reconciler {
	return &Reconciler{sched: sched, store: st, deliverer: deliverer, logger: logger}
}

// Rebuild replaces the full set of cash delivery tasks from the current store
// content. An entry with an unparseable stored time is logged and skipped so
// one bad record never takes down deliveries for other users.
func (r *Reconciler) Rebuild() {
	r.sched.RemoveAll(TaskCashDelivery)

	total := 0
	for userID, entries := range r.store.AllCashWatches() {
		userID := userID // per-iteration copies; the go directive predates Go 1.22 loop scoping
		for _, entry := range entries {
			entry := entry
			at, err := ParseWallTime(entry.UpdateTime)
			if err != nil {
				r.logger.Warn("skipping cash watch with bad delivery time",
					zap.Int64("user_id", userID),
					zap.String("account_id", entry.ID),
					zap.String("update_time", entry.UpdateTime),
					zap.Error(err))
				continue
			}

			r.sched.RunDaily(TaskCashDelivery, at, func(ctx context.Context) {
				r.deliverer.Deliver(ctx, userID, entry)
			})
			total++
		}
	}

	r.logger.Info("cash delivery schedule rebuilt", zap.Int("tasks", total))
}
