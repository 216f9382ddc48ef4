package ledger

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func TestTx_CommitAppliesWrites(t *testing.T) {
	store := NewStore()
	addr, owner := newKey(), newKey()

	tx := store.Begin()
	tx.Put(addr, owner, []byte("hello"))

	_, ok := store.Get(addr)
	check.False(t, ok)

	got, ok := tx.Get(addr)
	assert.True(t, ok)
	check.Equal(t, []byte("hello"), got.Data)

	assert.NoError(t, tx.Commit())

	acct, ok := store.Get(addr)
	assert.True(t, ok)
	check.Equal(t, []byte("hello"), acct.Data)
	check.True(t, acct.Owner.Equals(owner))
	check.True(t, acct.Version > 0)
	check.Equal(t, 1, store.Len())
}

func TestTx_Delete(t *testing.T) {
	store := NewStore()
	addr := newKey()

	tx := store.Begin()
	tx.Put(addr, newKey(), []byte{1})
	assert.NoError(t, tx.Commit())

	tx = store.Begin()
	tx.Delete(addr)
	check.False(t, tx.Exists(addr))
	assert.NoError(t, tx.Commit())

	_, ok := store.Get(addr)
	check.False(t, ok)
	check.Equal(t, 0, store.Len())
}

func TestTx_ConflictOnConcurrentWrite(t *testing.T) {
	store := NewStore()
	addr := newKey()

	seed := store.Begin()
	seed.Put(addr, newKey(), []byte{0})
	assert.NoError(t, seed.Commit())

	first := store.Begin()
	second := store.Begin()
	_, ok := first.Get(addr)
	assert.True(t, ok)
	_, ok = second.Get(addr)
	assert.True(t, ok)

	first.Put(addr, newKey(), []byte{1})
	second.Put(addr, newKey(), []byte{2})

	assert.NoError(t, first.Commit())
	err := second.Commit()
	check.True(t, errors.Is(err, ErrConflict))

	acct, _ := store.Get(addr)
	check.Equal(t, []byte{1}, acct.Data)
}

func TestTx_ConflictOnConcurrentCreate(t *testing.T) {
	store := NewStore()
	addr := newKey()

	first := store.Begin()
	second := store.Begin()
	check.False(t, first.Exists(addr))
	check.False(t, second.Exists(addr))

	first.Put(addr, newKey(), []byte{1})
	second.Put(addr, newKey(), []byte{2})

	assert.NoError(t, first.Commit())
	check.True(t, errors.Is(second.Commit(), ErrConflict))
}

func TestTx_ConflictAppliesNothing(t *testing.T) {
	store := NewStore()
	contended, other := newKey(), newKey()

	tx := store.Begin()
	check.False(t, tx.Exists(contended))
	tx.Put(other, newKey(), []byte{9})

	racer := store.Begin()
	racer.Put(contended, newKey(), []byte{1})
	assert.NoError(t, racer.Commit())

	tx.Put(contended, newKey(), []byte{2})
	check.True(t, errors.Is(tx.Commit(), ErrConflict))

	_, ok := store.Get(other)
	check.False(t, ok)
}

func TestTx_UnrelatedAccountsDoNotConflict(t *testing.T) {
	store := NewStore()
	a, b := newKey(), newKey()

	first := store.Begin()
	second := store.Begin()
	first.Put(a, newKey(), []byte{1})
	second.Put(b, newKey(), []byte{2})

	check.NoError(t, first.Commit())
	check.NoError(t, second.Commit())
	check.Equal(t, 2, store.Len())
}

func TestTx_CommitTwice(t *testing.T) {
	store := NewStore()
	tx := store.Begin()
	assert.NoError(t, tx.Commit())
	check.True(t, errors.Is(tx.Commit(), ErrTxDone))

	discarded := store.Begin()
	discarded.Discard()
	check.True(t, errors.Is(discarded.Commit(), ErrTxDone))
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore()
	addr := newKey()

	tx := store.Begin()
	tx.Put(addr, newKey(), []byte{1, 2, 3})
	assert.NoError(t, tx.Commit())

	acct, _ := store.Get(addr)
	acct.Data[0] = 99

	again, _ := store.Get(addr)
	check.Equal(t, []byte{1, 2, 3}, again.Data)
}

func TestStore_AccountsOwnedBy(t *testing.T) {
	store := NewStore()
	owner := newKey()

	tx := store.Begin()
	tx.Put(newKey(), owner, []byte{1})
	tx.Put(newKey(), owner, []byte{2})
	tx.Put(newKey(), newKey(), []byte{3})
	assert.NoError(t, tx.Commit())

	owned := store.AccountsOwnedBy(owner)
	check.Equal(t, 2, len(owned))
	check.True(t, owned[0].Address.String() < owned[1].Address.String())
}
