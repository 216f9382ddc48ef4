package program

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/peterldowns/testy/assert"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/ledger"
	"github.com/cloudx-io/settlement/programapi"
)

type harness struct {
	t     *testing.T
	store *ledger.Store
	clock *ledger.ManualClock
	keys  *KeyManager
	proc  *Processor
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithConfig(t, Config{})
}

func newHarnessWithConfig(t *testing.T, cfg Config) *harness {
	t.Helper()
	keys, err := NewKeyManager()
	assert.NoError(t, err)

	store := ledger.NewStore()
	clock := ledger.NewManualClock(0)
	return &harness{
		t:     t,
		store: store,
		clock: clock,
		keys:  keys,
		proc:  NewProcessor(store, clock, keys, cfg),
	}
}

func newKey() solana.PublicKey {
	return solana.NewWallet().PublicKey()
}

func (h *harness) fund(owner, mint solana.PublicKey, amount uint64) {
	h.t.Helper()
	assert.NoError(h.t, h.store.ApplyGenesis([]ledger.GenesisBalance{{Owner: owner, Mint: mint, Amount: amount}}))
}

func (h *harness) balance(owner, mint solana.PublicKey) uint64 {
	h.t.Helper()
	_, amount, err := h.proc.Balance(owner, mint)
	assert.NoError(h.t, err)
	return amount
}

func (h *harness) exec(signer solana.PublicKey, ix programapi.Instruction) (*Result, error) {
	return h.proc.Execute(context.Background(), signer, ix)
}

func (h *harness) mustExec(signer solana.PublicKey, ix programapi.Instruction) *Result {
	h.t.Helper()
	result, err := h.exec(signer, ix)
	assert.NoError(h.t, err)
	return result
}

func (h *harness) exists(addr solana.PublicKey) bool {
	_, ok := h.store.Get(addr)
	return ok
}

// market is a house plus one open auction:
// fee_bps=1, starting_price=2,000,000, amount=50, decimal=6, end slot 100.
type market struct {
	admin, seller solana.PublicKey
	mintA, mintB  solana.PublicKey
	house         solana.PublicKey
	auction       solana.PublicKey
	vault         solana.PublicKey
}

func (h *harness) openMarket(feeBps uint16) *market {
	h.t.Helper()
	m := &market{
		admin:  newKey(),
		seller: newKey(),
		mintA:  newKey(),
		mintB:  newKey(),
	}

	res := h.mustExec(m.admin, programapi.InitHouse{FeeBps: feeBps, Name: "house"})
	m.house = res.Addresses[RoleHouse]

	h.fund(m.seller, m.mintA, 50)
	res = h.mustExec(m.seller, programapi.InitAuction{
		House:         m.house,
		MintA:         m.mintA,
		MintB:         m.mintB,
		StartingPrice: 2_000_000,
		End:           100,
		Amount:        50,
		Decimal:       6,
	})
	m.auction = res.Addresses[RoleAuction]
	m.vault = res.Addresses[RoleVault]
	return m
}

func (h *harness) auction(addr solana.PublicKey) *core.Auction {
	h.t.Helper()
	resp, err := h.proc.DescribeAccount(addr)
	assert.NoError(h.t, err)
	assert.NotNil(h.t, resp.Auction)
	return resp.Auction
}
