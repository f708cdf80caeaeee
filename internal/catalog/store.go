// Package catalog wraps the database with the transactional access rules the
// scanner relies on: writers are exclusive against everything, readers run
// concurrently with each other.
package catalog

import (
	"sync"

	"gorm.io/gorm"
)

// Store serializes catalog access. WriteTx holds the write lock for the
// duration of the transaction, so a reader can never observe a half-linked
// track.
type Store struct {
	mu sync.RWMutex
	db *gorm.DB
}

// NewStore creates a store over an initialized database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WriteTx runs fn inside a database transaction while holding the exclusive
// lock. A returned error rolls the transaction back.
func (s *Store) WriteTx(fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Transaction(fn)
}

// ReadTx runs fn while holding the shared lock. fn must not mutate the
// catalog.
func (s *Store) ReadTx(fn func(tx *gorm.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.db)
}
