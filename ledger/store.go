package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
)

var (
	// ErrConflict means an account read by a transaction changed before it
	// committed. Nothing from the transaction was applied.
	ErrConflict        = errors.New("transaction conflict")
	ErrAccountNotFound = errors.New("account not found")
	ErrTxDone          = errors.New("transaction already committed or discarded")
)

// Account is one addressed record in the store.
type Account struct {
	Address solana.PublicKey `json:"address"`
	Owner   solana.PublicKey `json:"owner"`
	Data    []byte           `json:"data"`
	Version uint64           `json:"version"`
}

func (a *Account) clone() *Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// Store is an in-memory keyed account store. Each committed write bumps the
// account to a fresh, store-wide unique version.
type Store struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*Account
	seq      uint64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{accounts: make(map[solana.PublicKey]*Account)}
}

// Get returns a copy of the account at addr.
func (s *Store) Get(addr solana.PublicKey) (*Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[addr]
	if !ok {
		return nil, false
	}
	return acct.clone(), true
}

// AccountsOwnedBy returns copies of every account owned by owner, ordered by
// address.
func (s *Store) AccountsOwnedBy(owner solana.PublicKey) []*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Account
	for _, acct := range s.accounts {
		if acct.Owner.Equals(owner) {
			out = append(out, acct.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.String() < out[j].Address.String()
	})
	return out
}

// Len returns the number of live accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

func (s *Store) version(addr solana.PublicKey) uint64 {
	if acct, ok := s.accounts[addr]; ok {
		return acct.Version
	}
	return 0
}

// Begin starts an optimistic transaction over the store.
func (s *Store) Begin() *Tx {
	return &Tx{
		ID:     uuid.New(),
		store:  s,
		reads:  make(map[solana.PublicKey]uint64),
		writes: make(map[solana.PublicKey]*Account),
	}
}

// Tx buffers writes and records the version of every account it touches.
// Version 0 stands for "absent", so creating an account that someone else
// created concurrently is also a conflict.
type Tx struct {
	ID     uuid.UUID
	store  *Store
	reads  map[solana.PublicKey]uint64
	writes map[solana.PublicKey]*Account // nil value means delete
	order  []solana.PublicKey
	done   bool
}

func (tx *Tx) observe(addr solana.PublicKey) *Account {
	tx.store.mu.RLock()
	defer tx.store.mu.RUnlock()

	if _, seen := tx.reads[addr]; !seen {
		tx.reads[addr] = tx.store.version(addr)
	}
	acct, ok := tx.store.accounts[addr]
	if !ok {
		return nil
	}
	return acct.clone()
}

// Get returns the account at addr as seen by this transaction.
func (tx *Tx) Get(addr solana.PublicKey) (*Account, bool) {
	if w, ok := tx.writes[addr]; ok {
		if w == nil {
			return nil, false
		}
		return w.clone(), true
	}

	// A changed account is returned as-is; Commit rejects the stale read.
	acct := tx.observe(addr)
	if acct == nil {
		return nil, false
	}
	return acct, true
}

// Exists reports whether addr holds an account in this transaction's view.
func (tx *Tx) Exists(addr solana.PublicKey) bool {
	_, ok := tx.Get(addr)
	return ok
}

// Put stages a create or overwrite of addr.
func (tx *Tx) Put(addr, owner solana.PublicKey, data []byte) {
	tx.observe(addr)
	tx.stage(addr, &Account{
		Address: addr,
		Owner:   owner,
		Data:    append([]byte(nil), data...),
	})
}

// Delete stages removal of addr.
func (tx *Tx) Delete(addr solana.PublicKey) {
	tx.observe(addr)
	tx.stage(addr, nil)
}

func (tx *Tx) stage(addr solana.PublicKey, acct *Account) {
	if _, ok := tx.writes[addr]; !ok {
		tx.order = append(tx.order, addr)
	}
	tx.writes[addr] = acct
}

// Writes returns the number of staged writes.
func (tx *Tx) Writes() int {
	return len(tx.writes)
}

// Commit validates every observed version and applies all staged writes
// atomically. On ErrConflict nothing is applied and the caller should retry
// with a fresh transaction.
func (tx *Tx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	tx.done = true

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for addr, seen := range tx.reads {
		if current := s.version(addr); current != seen {
			return fmt.Errorf("%w: account %s at version %d, read %d", ErrConflict, addr, current, seen)
		}
	}

	for _, addr := range tx.order {
		acct := tx.writes[addr]
		if acct == nil {
			delete(s.accounts, addr)
			continue
		}
		s.seq++
		acct.Version = s.seq
		s.accounts[addr] = acct
	}
	return nil
}

// Discard abandons the transaction.
func (tx *Tx) Discard() {
	tx.done = true
}
