package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Dan9191/mercury-notifier/internal/config"
)

// ErrCorruptState is returned when persisted state is not valid structured data
var ErrCorruptState = errors.New("persisted state is corrupt")

// SeenState maps an account name to the set of transaction ids already delivered
type SeenState map[string]map[string]struct{}

// NewSeenState returns empty sets for every account
func NewSeenState(accounts []string) SeenState {
	s := make(SeenState, len(accounts))
	for _, a := range accounts {
		s[a] = map[string]struct{}{}
	}
	return s
}

// Has reports whether id was delivered for account
func (s SeenState) Has(account, id string) bool {
	_, ok := s[account][id]
	return ok
}

// Add records id as delivered for account
func (s SeenState) Add(account, id string) {
	set, ok := s[account]
	if !ok {
		set = map[string]struct{}{}
		s[account] = set
	}
	set[id] = struct{}{}
}

// IDs returns the account's ids in sorted order
func (s SeenState) IDs(account string) []string {
	ids := make([]string, 0, len(s[account]))
	for id := range s[account] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts returns the number of ids per account
func (s SeenState) Counts() map[string]int {
	out := make(map[string]int, len(s))
	for acct, ids := range s {
		out[acct] = len(ids)
	}
	return out
}

// ensure adds empty sets for accounts missing from s
func (s SeenState) ensure(accounts []string) SeenState {
	for _, a := range accounts {
		if _, ok := s[a]; !ok {
			s[a] = map[string]struct{}{}
		}
	}
	return s
}

// Store persists SeenState between runs
type Store interface {
	// Load returns persisted state, with empty sets for accounts that have none.
	Load(ctx context.Context, accounts []string) (SeenState, error)
	// Save overwrites persisted state with state.
	Save(ctx context.Context, state SeenState) error
	Close() error
}

// Open initializes the store selected by cfg.StateDriver
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StateDriver {
	case config.DriverFile, "":
		return NewFileStore(cfg.StateFile), nil
	case config.DriverSQLite, config.DriverPostgres:
		return OpenRepository(ctx, cfg.StateDriver, cfg.StateDSN)
	default:
		return nil, fmt.Errorf("unknown state driver: %s", cfg.StateDriver)
	}
}
