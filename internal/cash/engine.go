package cash

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/Luisotee/maplelegends-bot/internal/domain"
	"github.com/Luisotee/maplelegends-bot/internal/maplelegends"
	"github.com/Luisotee/maplelegends-bot/internal/schedule"
	"github.com/Luisotee/maplelegends-bot/internal/store"
)

// Fetcher reads the current username and vote cash for an account.
type Fetcher interface {
	AccountCash(ctx context.Context, accountID string) (username string, cash int, err error)
}

// Notifier is the messaging sink the engine delivers through.
type Notifier interface {
	SendText(chatID int64, text string) error
	SendEditable(chatID int64, text string) (messageID int, err error)
	EditText(chatID int64, messageID int, text string) error
}

// Engine implements the cash watch operations: subscribe, remove, on-demand
// lookups, the detached bulk refresh, and the scheduled daily deliveries.
// Command-shaped operations return the reply text plus whether the watch set
// changed, so the caller knows to reconcile the schedule.
type Engine struct {
	store    *store.Store
	fetcher  Fetcher
	notifier Notifier
	logger   *zap.Logger
}

// NewEngine wires the engine to its store, remote fetcher and notifier.
func NewEngine(st *store.Store, fetcher Fetcher, notifier Notifier, logger *zap.Logger) *Engine {
	return &Engine{store: st, fetcher: fetcher, notifier: notifier, logger: logger}
}

// Watch subscribes the user to daily cash updates for the account, or moves
// an existing subscription to a new delivery time. The account must be
// fetchable right now; a fetch failure changes nothing. The entry is seeded
// (or refreshed) with the just-fetched username and cash.
func (e *Engine) Watch(ctx context.Context, userID int64, updateTime, accountID string) (reply string, changed bool) {
	if _, err := schedule.ParseWallTime(updateTime); err != nil {
		return "Invalid time format. Please use HH:MM.", false
	}

	username, cash, err := e.fetcher.AccountCash(ctx, accountID)
	if err != nil {
		return "Error fetching data: " + err.Error(), false
	}

	created, err := e.store.UpsertCashWatch(userID, domain.CashWatchEntry{
		ID:         accountID,
		Username:   username,
		LastCash:   cash,
		UpdateTime: updateTime,
	})
	if err != nil {
		e.logger.Error("persist failed after cash watch upsert",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	if created {
		return fmt.Sprintf("You will now receive daily cash updates for %s at %s UTC", username, updateTime), true
	}
	return fmt.Sprintf("Updated: You will receive daily cash updates for %s at %s UTC", username, updateTime), true
}

// Remove drops the user's watch whose stored username matches
// case-insensitively.
func (e *Engine) Remove(userID int64, username string) (reply string, changed bool) {
	removed, err := e.store.RemoveCashWatchByName(userID, username)
	switch {
	case errors.Is(err, store.ErrNoWatchers):
		return "You don't have any registered cash watchers.", false
	case errors.Is(err, store.ErrWatcherNotFound):
		return "No cash watcher found for username: " + username, false
	case err != nil:
		// Removed in memory, persist failed. Logged, not rolled back.
		e.logger.Error("persist failed after cash watch removal",
			zap.Int64("user_id", userID), zap.Error(err))
	}
	return fmt.Sprintf("Successfully removed cash watcher for %s.", removed.Username), true
}

// Lookup fetches and formats the vote cash for an account without touching
// the store, so it works for users with no subscriptions.
func (e *Engine) Lookup(ctx context.Context, accountID string) string {
	username, cash, err := e.fetcher.AccountCash(ctx, accountID)
	if err != nil {
		if errors.Is(err, maplelegends.ErrContentNotFound) {
			return err.Error()
		}
		return "Error fetching data: " + err.Error()
	}
	return fmt.Sprintf("Vote Cash amount for %s: %d", username, cash)
}

// BulkRefresh fetches every entry of the user concurrently and edits one
// placeholder message into an aggregate report. Entries that fetched
// successfully are updated and persisted in one batch; failed entries keep
// their stored values and contribute an error line instead.
func (e *Engine) BulkRefresh(ctx context.Context, userID int64) {
	entries := e.store.ListCashWatches(userID)
	if len(entries) == 0 {
		e.send(userID, "You haven't registered any accounts to watch. Use /watchCash to add accounts.")
		return
	}

	messageID, err := e.notifier.SendEditable(userID, "Fetching cash amounts...")
	if err != nil {
		e.logger.Error("sending bulk refresh placeholder failed",
			zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	lines := make([]string, len(entries))
	results := make([]store.FetchResult, len(entries))

	p := pool.New()
	for i, entry := range entries {
		i, entry := i, entry // per-iteration copies; the go directive predates Go 1.22 loop scoping
		p.Go(func() {
			username, cash, err := e.fetcher.AccountCash(ctx, entry.ID)
			if err != nil {
				e.logger.Error("cash fetch failed",
					zap.String("account_id", entry.ID), zap.Error(err))
				lines[i] = fmt.Sprintf("%s (ID %s): Error fetching data", entry.Username, entry.ID)
				results[i] = store.FetchResult{AccountID: entry.ID}
				return
			}
			lines[i] = fmt.Sprintf("%s: %s (%s since last check)",
				username, formatCash(cash), formatDelta(cash-entry.LastCash))
			results[i] = store.FetchResult{AccountID: entry.ID, Username: username, Cash: cash, OK: true}
		})
	}
	p.Wait()

	if err := e.store.RecordFetches(userID, results); err != nil {
		e.logger.Error("persist failed after bulk refresh",
			zap.Int64("user_id", userID), zap.Error(err))
	}

	text := "Current Vote Cash amounts:\n" + strings.Join(lines, "\n")
	if err := e.notifier.EditText(userID, messageID, text); err != nil {
		// Store is already updated; losing the edit only loses the report.
		e.logger.Error("editing bulk refresh message failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}

// Deliver runs one scheduled daily update. The payload identifies the entry;
// the stored values are re-read so the diff is against the latest persisted
// cash, not a snapshot taken at schedule-rebuild time.
func (e *Engine) Deliver(ctx context.Context, userID int64, entry domain.CashWatchEntry) {
	stored, ok := e.store.GetCashWatch(userID, entry.ID)
	if !ok {
		e.logger.Debug("skipping delivery for removed cash watch",
			zap.Int64("user_id", userID), zap.String("account_id", entry.ID))
		return
	}

	var text string
	username, cash, err := e.fetcher.AccountCash(ctx, stored.ID)
	if err != nil {
		e.logger.Error("cash fetch failed",
			zap.String("account_id", stored.ID), zap.Error(err))
		text = fmt.Sprintf("Error fetching data for %s (ID %s)", stored.Username, stored.ID)
	} else {
		text = fmt.Sprintf("Vote Cash update for %s: %s (%s since last check)",
			username, formatCash(cash), formatDelta(cash-stored.LastCash))
		if err := e.store.RecordFetch(userID, stored.ID, username, cash); err != nil {
			e.logger.Error("persist failed after cash delivery",
				zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	e.send(userID, text)
}

// send logs and swallows notification failures; one unreachable user must not
// affect anything else.
func (e *Engine) send(userID int64, text string) {
	if err := e.notifier.SendText(userID, text); err != nil {
		e.logger.Error("sending cash message failed",
			zap.Int64("user_id", userID), zap.Error(err))
	}
}
