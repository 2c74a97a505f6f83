// Package store holds the application state and the named transitions that change it.
//
// Every transition validates its input, computes the next state on a copy, persists the
// slots it touched in one write, and only then publishes the new state.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/history"
	"github.com/finansage/finansage/internal/logging"
	"github.com/finansage/finansage/internal/report"
	"github.com/finansage/finansage/internal/storage"
)

// Options configures a Store.
type Options struct {
	Logger zerolog.Logger
	// Now is the clock used for "today". Defaults to time.Now.
	Now func() time.Time
	// Currency seeds the primary currency when the slot is empty.
	Currency string
}

// Store is the single writer for all persisted collections.
type Store struct {
	mu     sync.Mutex
	kv     storage.KV
	log    zerolog.Logger
	ledger zerolog.Logger
	now    func() time.Time
	state  State
}

// Open loads every slot from kv and records today's net worth.
func Open(ctx context.Context, kv storage.KV, opts Options) (*Store, error) {
	s := &Store{
		kv:     kv,
		log:    logging.Component(opts.Logger, logging.ComponentStore),
		ledger: logging.Component(opts.Logger, logging.ComponentLedger),
		now:    opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	st, err := s.load(ctx, opts.Currency)
	if err != nil {
		return nil, err
	}
	s.state = st

	if err := s.RecordNetWorth(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Today is the store clock's calendar date.
func (s *Store) Today() date.Date { return date.Of(s.now()) }

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Close releases the underlying storage.
func (s *Store) Close() error { return s.kv.Close() }

// RecordNetWorth upserts today's net worth into the history.
func (s *Store) RecordNetWorth(ctx context.Context) error {
	return s.mutate(ctx, "recording net worth", func(st *State) ([]string, error) {
		st.NetWorthHistory = history.Record(st.NetWorthHistory, s.Today(), report.NetWorth(st.Accounts))
		return []string{storage.KeyNetWorthHistory}, nil
	})
}

// Flush writes every slot from the current state, so defaults chosen at load time
// become stored data.
func (s *Store) Flush(ctx context.Context) error {
	return s.mutate(ctx, "flushing", func(*State) ([]string, error) {
		return slices.Clone(storage.Keys), nil
	})
}

// mutate runs fn against a copy of the state, persists the slots fn reports and publishes the copy.
// Any change to the accounts slot also refreshes today's net-worth entry.
func (s *Store) mutate(ctx context.Context, op string, fn func(st *State) ([]string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	keys, err := fn(&next)
	if err != nil {
		return err
	}

	if slices.Contains(keys, storage.KeyAccounts) {
		next.NetWorthHistory = history.Record(next.NetWorthHistory, s.Today(), report.NetWorth(next.Accounts))
		keys = append(keys, storage.KeyNetWorthHistory)
	}

	slots := make(map[string][]byte, len(keys))
	for _, k := range keys {
		data, err := next.slot(k)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		slots[k] = data
	}
	if err := s.kv.SetMany(ctx, slots); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.state = next
	return nil
}

// warnOrphans logs ledger sides that named an account no longer present.
func (s *Store) warnOrphans(txnID string, orphans []string) {
	for _, acct := range orphans {
		s.ledger.Warn().Str("transaction", txnID).Str("account", acct).Msg("skipped balance change for missing account")
	}
}
