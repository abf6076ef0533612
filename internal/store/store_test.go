package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Luisotee/maplelegends-bot/internal/domain"
	"github.com/Luisotee/maplelegends-bot/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s := store.New(filepath.Join(dir, "watching_users.json"), filepath.Join(dir, "cash_watchers.json"), zap.NewNop())
	require.NoError(t, s.Load())
	return s
}

func TestStore_LoadMissingFiles(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	assert.Empty(t, s.StatusWatchers())
	assert.Empty(t, s.ListCashWatches(1))
}

func TestStore_ToggleStatusWatch(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	watching, err := s.ToggleStatusWatch(42)
	require.NoError(t, err)
	assert.True(t, watching)
	assert.Equal(t, []int64{42}, s.StatusWatchers())

	watching, err = s.ToggleStatusWatch(42)
	require.NoError(t, err)
	assert.False(t, watching)
	assert.Empty(t, s.StatusWatchers())
}

func TestStore_UpsertCashWatch(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	created, err := s.UpsertCashWatch(1, domain.CashWatchEntry{
		ID: "abc", Username: "Foo", LastCash: 100, UpdateTime: "08:00",
	})
	require.NoError(t, err)
	assert.True(t, created)

	// Same account ID replaces in place, no duplicate.
	created, err = s.UpsertCashWatch(1, domain.CashWatchEntry{
		ID: "abc", Username: "Foo", LastCash: 250, UpdateTime: "09:30",
	})
	require.NoError(t, err)
	assert.False(t, created)

	entries := s.ListCashWatches(1)
	require.Len(t, entries, 1)
	assert.Equal(t, 250, entries[0].LastCash)
	assert.Equal(t, "09:30", entries[0].UpdateTime)

	// Account ID matching is case-sensitive.
	created, err = s.UpsertCashWatch(1, domain.CashWatchEntry{ID: "ABC", Username: "Other"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, s.ListCashWatches(1), 2)
}

func TestStore_RemoveCashWatchByName(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.RemoveCashWatchByName(1, "anyone")
	assert.ErrorIs(t, err, store.ErrNoWatchers)

	_, err = s.UpsertCashWatch(1, domain.CashWatchEntry{ID: "abc", Username: "Foo", UpdateTime: "08:00"})
	require.NoError(t, err)

	_, err = s.RemoveCashWatchByName(1, "bar")
	assert.ErrorIs(t, err, store.ErrWatcherNotFound)

	// Username matching is case-insensitive.
	removed, err := s.RemoveCashWatchByName(1, "foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo", removed.Username)
	assert.Empty(t, s.ListCashWatches(1))

	// List is now empty, not absent: removal of the last entry reports
	// ErrNoWatchers on the next attempt.
	_, err = s.RemoveCashWatchByName(1, "foo")
	assert.ErrorIs(t, err, store.ErrNoWatchers)
}

func TestStore_RecordFetches(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, e := range []domain.CashWatchEntry{
		{ID: "a", Username: "One", LastCash: 10, UpdateTime: "01:00"},
		{ID: "b", Username: "Two", LastCash: 20, UpdateTime: "02:00"},
		{ID: "c", Username: "Three", LastCash: 30, UpdateTime: "03:00"},
	} {
		_, err := s.UpsertCashWatch(7, e)
		require.NoError(t, err)
	}

	err := s.RecordFetches(7, []store.FetchResult{
		{AccountID: "a", Username: "OneRenamed", Cash: 11, OK: true},
		{AccountID: "b"}, // failed fetch, must not touch the entry
		{AccountID: "c", Username: "Three", Cash: 33, OK: true},
	})
	require.NoError(t, err)

	entries := s.ListCashWatches(7)
	require.Len(t, entries, 3)
	assert.Equal(t, "OneRenamed", entries[0].Username)
	assert.Equal(t, 11, entries[0].LastCash)
	assert.Equal(t, "Two", entries[1].Username)
	assert.Equal(t, 20, entries[1].LastCash)
	assert.Equal(t, 33, entries[2].LastCash)

	// Delivery times survive a refresh.
	assert.Equal(t, "01:00", entries[0].UpdateTime)
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	usersPath := filepath.Join(dir, "watching_users.json")
	cashPath := filepath.Join(dir, "cash_watchers.json")

	s := store.New(usersPath, cashPath, zap.NewNop())
	require.NoError(t, s.Load())

	_, err := s.ToggleStatusWatch(100)
	require.NoError(t, err)
	_, err = s.ToggleStatusWatch(200)
	require.NoError(t, err)

	want := []domain.CashWatchEntry{
		{ID: "sess1", Username: "Alpha", LastCash: 1234, UpdateTime: "08:00"},
		{ID: "sess2", Username: "Beta", LastCash: 0, UpdateTime: "23:59"},
	}
	for _, e := range want {
		_, err := s.UpsertCashWatch(100, e)
		require.NoError(t, err)
	}

	reloaded := store.New(usersPath, cashPath, zap.NewNop())
	require.NoError(t, reloaded.Load())

	assert.Equal(t, []int64{100, 200}, reloaded.StatusWatchers())
	assert.Equal(t, want, reloaded.ListCashWatches(100))
}

func TestStore_FileFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cashPath := filepath.Join(dir, "cash_watchers.json")
	s := store.New(filepath.Join(dir, "watching_users.json"), cashPath, zap.NewNop())
	require.NoError(t, s.Load())

	_, err := s.UpsertCashWatch(12345, domain.CashWatchEntry{
		ID: "sess", Username: "Alpha", LastCash: 7, UpdateTime: "08:00",
	})
	require.NoError(t, err)

	// User keys are written as decimal strings.
	data, err := os.ReadFile(cashPath)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"12345":[{"id":"sess","username":"Alpha","last_cash":7,"update_time":"08:00"}]}`,
		string(data))
}
