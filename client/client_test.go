package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/ledger"
	"github.com/cloudx-io/settlement/program"
	"github.com/cloudx-io/settlement/programapi"
)

// fakeNode answers requests from an in-process processor.
type fakeNode struct {
	proc  *program.Processor
	store *ledger.Store
	clock *ledger.ManualClock
	addr  string

	mu sync.Mutex
	// beforeInstruction runs ahead of every instruction request.
	beforeInstruction func()
}

func (n *fakeNode) onInstruction(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.beforeInstruction = fn
}

func startFakeNode(t *testing.T) *fakeNode {
	t.Helper()
	keys, err := program.NewKeyManager()
	assert.NoError(t, err)
	store := ledger.NewStore()
	clock := ledger.NewManualClock(0)
	node := &fakeNode{
		proc:  program.NewProcessor(store, clock, keys, program.Config{}),
		store: store,
		clock: clock,
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })
	node.addr = listener.Addr().String()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go node.handle(conn)
		}
	}()
	return node
}

func (n *fakeNode) handle(conn net.Conn) {
	defer conn.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil {
		return
	}

	var base struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(buf.Bytes(), &base)

	var resp any
	switch base.Type {
	case programapi.TypePing:
		resp = programapi.PingResponse{Type: programapi.TypePong, Slot: n.clock.Slot()}
	case programapi.TypeInstruction:
		n.mu.Lock()
		hook := n.beforeInstruction
		n.mu.Unlock()
		if hook != nil {
			hook()
		}
		var req programapi.InstructionRequest
		_ = json.Unmarshal(buf.Bytes(), &req)
		resp = n.proc.Process(context.Background(), &req)
	case programapi.TypeAccountRequest:
		var req programapi.AccountRequest
		_ = json.Unmarshal(buf.Bytes(), &req)
		account, err := n.proc.DescribeAccount(req.Address)
		if err != nil {
			resp = programapi.AccountResponse{Type: programapi.TypeAccountResponse, Message: err.Error()}
		} else {
			resp = account
		}
	case "hangup":
		return
	default:
		resp = programapi.ErrorResponse{Type: programapi.TypeError, Message: "Unknown request type: " + base.Type}
	}
	_ = json.NewEncoder(conn).Encode(resp)
}

type fixture struct {
	node    *fakeNode
	client  *Client
	seller  solana.PrivateKey
	mintB   solana.PublicKey
	auction solana.PublicKey
}

// openAuction creates a house and an auction starting at 2.000000 for
// 50 units at 6 decimals, ending at slot 100.
func openAuction(t *testing.T) *fixture {
	t.Helper()
	node := startFakeNode(t)
	c := NewTCP(node.addr)
	ctx := context.Background()

	admin := solana.NewWallet().PrivateKey
	seller := solana.NewWallet().PrivateKey
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	assert.NoError(t, node.store.ApplyGenesis([]ledger.GenesisBalance{{Owner: seller.PublicKey(), Mint: mintA, Amount: 50}}))

	resp, err := c.Submit(ctx, programapi.InitHouse{FeeBps: 1, Name: "client"}, admin)
	assert.NoError(t, err)
	house := solana.MustPublicKeyFromBase58(resp.Addresses[program.RoleHouse])

	resp, err = c.Submit(ctx, programapi.InitAuction{
		House: house, MintA: mintA, MintB: mintB,
		StartingPrice: 2_000_000, End: 100, Amount: 50, Decimal: 6,
	}, seller)
	assert.NoError(t, err)

	return &fixture{
		node:    node,
		client:  c,
		seller:  seller,
		mintB:   mintB,
		auction: solana.MustPublicKeyFromBase58(resp.Addresses[program.RoleAuction]),
	}
}

func (f *fixture) bidder(t *testing.T, amount uint64) solana.PrivateKey {
	t.Helper()
	key := solana.NewWallet().PrivateKey
	assert.NoError(t, f.node.store.ApplyGenesis([]ledger.GenesisBalance{{Owner: key.PublicKey(), Mint: f.mintB, Amount: amount}}))
	return key
}

func TestPing(t *testing.T) {
	node := startFakeNode(t)
	node.clock.Set(7)

	resp, err := NewTCP(node.addr).Ping(context.Background())
	assert.NoError(t, err)
	check.Equal(t, programapi.TypePong, resp.Type)
	check.Equal(t, uint64(7), resp.Slot)
}

func TestNodeErrors(t *testing.T) {
	node := startFakeNode(t)
	c := NewTCP(node.addr)

	_, err := c.PublicKey(context.Background())
	check.True(t, errors.Is(err, ErrNodeError))

	var resp programapi.PingResponse
	err = c.do(context.Background(), map[string]string{"type": "hangup"}, &resp)
	check.True(t, errors.Is(err, ErrNodeError))

	_, err = c.Account(context.Background(), solana.NewWallet().PublicKey())
	check.True(t, errors.Is(err, ErrNodeError))
}

func TestDialFailure(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err)
	addr := listener.Addr().String()
	assert.NoError(t, listener.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = NewTCP(addr).Ping(ctx)
	check.Error(t, err)
}

func TestSubmit_InstructionError(t *testing.T) {
	f := openAuction(t)
	bidder := f.bidder(t, 1_000)

	resp, err := f.client.Submit(context.Background(), programapi.Bid{Auction: f.auction, Price: 1_000_000}, bidder)
	assert.Error(t, err)
	assert.NotNil(t, resp)
	check.False(t, resp.Success)
	check.True(t, errors.Is(err, core.ErrBidTooLow))

	var ixErr *InstructionError
	assert.True(t, errors.As(err, &ixErr))
	check.Equal(t, programapi.InstructionBid, ixErr.Instruction)
	check.Equal(t, "BidTooLow", ixErr.Code)
}

func TestOutbid(t *testing.T) {
	f := openAuction(t)
	ctx := context.Background()
	alice := f.bidder(t, 1_000)
	bob := f.bidder(t, 1_000)

	_, err := f.client.Submit(ctx, programapi.Bid{Auction: f.auction, Price: 3_000_000}, alice)
	assert.NoError(t, err)

	// A competing bid lands between bob's read and bob's bid once.
	raced := false
	f.node.onInstruction(func() {
		if raced {
			return
		}
		raced = true
		_, err := f.node.proc.Execute(context.Background(), alice.PublicKey(), programapi.Bid{Auction: f.auction, Price: 3_200_000})
		check.NoError(t, err)
	})

	resp, price, err := f.client.Outbid(ctx, f.auction, 100_000, 4_000_000, bob)
	assert.NoError(t, err)
	assert.NotNil(t, resp)
	check.Equal(t, uint64(3_300_000), price)

	account, err := f.client.Account(ctx, f.auction)
	assert.NoError(t, err)
	check.True(t, account.Auction.IsLeader(bob.PublicKey()))

	// Already leading: nothing to do.
	resp, price, err = f.client.Outbid(ctx, f.auction, 100_000, 4_000_000, bob)
	assert.NoError(t, err)
	check.Nil(t, resp)
	check.Equal(t, uint64(3_300_000), price)
}

func TestOutbid_PriceCap(t *testing.T) {
	f := openAuction(t)
	ctx := context.Background()
	alice := f.bidder(t, 1_000)
	bob := f.bidder(t, 1_000)

	_, err := f.client.Submit(ctx, programapi.Bid{Auction: f.auction, Price: 3_000_000}, alice)
	assert.NoError(t, err)

	_, _, err = f.client.Outbid(ctx, f.auction, 100_000, 3_050_000, bob)
	check.True(t, errors.Is(err, ErrPriceCapReached))

	_, _, err = f.client.Outbid(ctx, f.auction, 0, 5_000_000, bob)
	check.True(t, errors.Is(err, core.ErrInvalidAmount))
}
