package store

import (
	"sync"
	"time"

	"github.com/bookvault/bookvault/store/db"
)

// Store is the vault repository. It owns all reads and writes of book and
// vault-entry data and enforces their invariants. One Store wraps one live
// database handle for the process lifetime.
type Store struct {
	db         *db.DB
	vaultCache sync.Map // map[int64]*model.VaultBook

	// now is swapped out in tests.
	now func() time.Time
}

func NewStore(db *db.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ResetCache drops every cached view. Callers must invoke it after any
// mutation that bypasses the repository, such as a backup restore.
func (s *Store) ResetCache() {
	s.vaultCache.Range(func(key, _ any) bool {
		s.vaultCache.Delete(key)
		return true
	})
}

func (s *Store) timeMillis() int64 {
	return s.now().UnixMilli()
}
