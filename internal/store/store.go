package store

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/Luisotee/maplelegends-bot/internal/domain"
)

var (
	// ErrNoWatchers means the user has no cash watch entries at all.
	ErrNoWatchers = errors.New("no cash watchers registered")
	// ErrWatcherNotFound means no entry matched the requested username.
	ErrWatcherNotFound = errors.New("cash watcher not found")
)

// Store is the durable mapping of user -> watched resources: a set of
// status-watching users and a per-user list of cash watch entries. The
// in-memory state is the source of truth; every mutator rewrites the backing
// JSON file before returning. A persist failure leaves the in-memory change
// applied and is returned to the caller for logging.
type Store struct {
	mu sync.Mutex

	usersPath string
	cashPath  string

	statusWatchers []int64
	cashWatchers   map[int64][]domain.CashWatchEntry

	logger *zap.Logger
}

// New creates an empty store backed by the two given file paths.
// Call Load before first use.
func New(usersPath, cashPath string, logger *zap.Logger) *Store {
	return &Store{
		usersPath:    usersPath,
		cashPath:     cashPath,
		cashWatchers: make(map[int64][]domain.CashWatchEntry),
		logger:       logger,
	}
}

// Load reads both files. A missing file means an empty store, not an error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data, err := os.ReadFile(s.usersPath); err == nil {
		var users []int64
		if err := sonic.Unmarshal(data, &users); err != nil {
			return fmt.Errorf("parse %s: %w", s.usersPath, err)
		}
		s.statusWatchers = users
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", s.usersPath, err)
	}

	if data, err := os.ReadFile(s.cashPath); err == nil {
		byKey := make(map[string][]domain.CashWatchEntry)
		if err := sonic.Unmarshal(data, &byKey); err != nil {
			return fmt.Errorf("parse %s: %w", s.cashPath, err)
		}
		for key, entries := range byKey {
			userID, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return fmt.Errorf("parse %s: bad user key %q: %w", s.cashPath, key, err)
			}
			s.cashWatchers[userID] = entries
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", s.cashPath, err)
	}

	s.logger.Info("watcher store loaded",
		zap.Int("status_watchers", len(s.statusWatchers)),
		zap.Int("cash_watcher_users", len(s.cashWatchers)))
	return nil
}

// ToggleStatusWatch flips the user's membership in the status watcher set and
// persists. Returns whether the user is watching after the toggle.
func (s *Store) ToggleStatusWatch(userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, id := range s.statusWatchers {
		if id == userID {
			s.statusWatchers = append(s.statusWatchers[:i], s.statusWatchers[i+1:]...)
			return false, s.persistStatusWatchers()
		}
	}
	s.statusWatchers = append(s.statusWatchers, userID)
	return true, s.persistStatusWatchers()
}

// StatusWatchers returns a copy of the status watcher set.
func (s *Store) StatusWatchers() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int64, len(s.statusWatchers))
	copy(out, s.statusWatchers)
	return out
}

// UpsertCashWatch adds the entry or, if an entry with the same account ID
// already exists for the user, replaces it in place. Account ID matching is
// case-sensitive. Returns whether a new entry was created.
func (s *Store) UpsertCashWatch(userID int64, entry domain.CashWatchEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cashWatchers[userID]
	for i, e := range entries {
		if e.ID == entry.ID {
			entries[i] = entry
			return false, s.persistCashWatchers()
		}
	}
	s.cashWatchers[userID] = append(entries, entry)
	return true, s.persistCashWatchers()
}

// RemoveCashWatchByName removes the first entry whose stored username matches
// case-insensitively. ErrNoWatchers if the user has no entries at all,
// ErrWatcherNotFound if nothing matched.
func (s *Store) RemoveCashWatchByName(userID int64, username string) (domain.CashWatchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cashWatchers[userID]
	if len(entries) == 0 {
		return domain.CashWatchEntry{}, ErrNoWatchers
	}
	for i, e := range entries {
		if strings.EqualFold(e.Username, username) {
			s.cashWatchers[userID] = append(entries[:i], entries[i+1:]...)
			return e, s.persistCashWatchers()
		}
	}
	return domain.CashWatchEntry{}, ErrWatcherNotFound
}

// ListCashWatches returns a copy of the user's entries.
func (s *Store) ListCashWatches(userID int64) []domain.CashWatchEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cashWatchers[userID]
	out := make([]domain.CashWatchEntry, len(entries))
	copy(out, entries)
	return out
}

// GetCashWatch returns the user's entry for the given account ID.
func (s *Store) GetCashWatch(userID int64, accountID string) (domain.CashWatchEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.cashWatchers[userID] {
		if e.ID == accountID {
			return e, true
		}
	}
	return domain.CashWatchEntry{}, false
}

// AllCashWatches returns a deep copy of every user's entries, for schedule
// reconciliation.
func (s *Store) AllCashWatches() map[int64][]domain.CashWatchEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64][]domain.CashWatchEntry, len(s.cashWatchers))
	for userID, entries := range s.cashWatchers {
		cp := make([]domain.CashWatchEntry, len(entries))
		copy(cp, entries)
		out[userID] = cp
	}
	return out
}

// FetchResult is the outcome of one remote fetch for one entry.
type FetchResult struct {
	AccountID string
	Username  string
	Cash      int
	OK        bool
}

// RecordFetches updates username/last cash for every successful result and
// persists once. Failed results leave their entries untouched.
func (s *Store) RecordFetches(userID int64, results []FetchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cashWatchers[userID]
	for _, res := range results {
		if !res.OK {
			continue
		}
		for i, e := range entries {
			if e.ID == res.AccountID {
				entries[i].Username = res.Username
				entries[i].LastCash = res.Cash
				break
			}
		}
	}
	return s.persistCashWatchers()
}

// RecordFetch updates a single entry after a successful fetch and persists.
func (s *Store) RecordFetch(userID int64, accountID, username string, cash int) error {
	return s.RecordFetches(userID, []FetchResult{{
		AccountID: accountID,
		Username:  username,
		Cash:      cash,
		OK:        true,
	}})
}

// persistStatusWatchers rewrites the status watcher file. Caller holds mu.
func (s *Store) persistStatusWatchers() error {
	users := s.statusWatchers
	if users == nil {
		users = []int64{}
	}
	data, err := sonic.Marshal(users)
	if err != nil {
		return fmt.Errorf("marshal status watchers: %w", err)
	}
	if err := os.WriteFile(s.usersPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.usersPath, err)
	}
	return nil
}

// persistCashWatchers rewrites the cash watcher file. Caller holds mu.
// ConfigStd keeps map keys sorted so consecutive saves of the same state
// produce identical files.
func (s *Store) persistCashWatchers() error {
	byKey := make(map[string][]domain.CashWatchEntry, len(s.cashWatchers))
	for userID, entries := range s.cashWatchers {
		byKey[strconv.FormatInt(userID, 10)] = entries
	}

	data, err := sonic.ConfigStd.Marshal(byKey)
	if err != nil {
		return fmt.Errorf("marshal cash watchers: %w", err)
	}
	if err := os.WriteFile(s.cashPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.cashPath, err)
	}
	return nil
}
