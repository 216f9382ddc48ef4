package program

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/ledger"
	"github.com/cloudx-io/settlement/programapi"
)

// Account discriminator names of program records.
const (
	AccountHouse   = "AuctionHouse"
	AccountAuction = "Auction"
	AccountBid     = "BidState"
)

// Roles under which Result.Addresses reports accounts.
const (
	RoleHouse         = "house"
	RoleAuction       = "auction"
	RoleVault         = "vault"
	RoleBid           = "bid"
	RoleEscrow        = "escrow"
	RoleWinnerHolding = "winner_holding"
	RoleSellerHolding = "seller_holding"
	RoleAdminHolding  = "admin_holding"
	RoleBidderHolding = "bidder_holding"
)

// execution is the state of one instruction attempt.
type execution struct {
	tx      *ledger.Tx
	deriver core.Deriver
	signer  solana.PublicKey
	slot    uint64
	result  *Result
	receipt *programapi.SettlementReceipt
}

func (e *execution) apply(ix programapi.Instruction) error {
	switch ix := ix.(type) {
	case programapi.InitHouse:
		return e.initHouse(ix)
	case *programapi.InitHouse:
		return e.initHouse(*ix)
	case programapi.InitAuction:
		return e.initAuction(ix)
	case *programapi.InitAuction:
		return e.initAuction(*ix)
	case programapi.Bid:
		return e.bid(ix)
	case *programapi.Bid:
		return e.bid(*ix)
	case programapi.Finalize:
		return e.finalize(ix)
	case *programapi.Finalize:
		return e.finalize(*ix)
	case programapi.Cancel:
		return e.cancel(ix)
	case *programapi.Cancel:
		return e.cancel(*ix)
	case programapi.Withdraw:
		return e.withdraw(ix)
	case *programapi.Withdraw:
		return e.withdraw(*ix)
	default:
		return fmt.Errorf("%w: %T", programapi.ErrUnknownInstruction, ix)
	}
}

func (e *execution) programID() solana.PublicKey {
	return e.deriver.ProgramID
}

// loadRecord decodes a program-owned record. missing is returned, wrapped,
// when no record lives at addr.
func (e *execution) loadRecord(addr solana.PublicKey, name string, v any, missing error) error {
	acct, ok := e.tx.Get(addr)
	if !ok {
		return fmt.Errorf("%w: %s", missing, addr)
	}
	if !acct.Owner.Equals(e.programID()) {
		return fmt.Errorf("%w: %s is not owned by the program", missing, addr)
	}
	return ledger.Unmarshal(name, acct.Data, v)
}

func (e *execution) saveRecord(addr solana.PublicKey, name string, v any) error {
	return e.tx.PutEncoded(addr, e.programID(), name, v)
}

// holding returns owner's associated custody account for mint, creating it
// if needed.
func (e *execution) holding(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, err := e.deriver.CustodyAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if err := e.tx.CreateTokenAccount(addr, mint, owner); err != nil {
		return solana.PublicKey{}, err
	}
	return addr, nil
}

// debit transfers from a principal's holding. A missing holding is reported
// as an insufficient balance.
func (e *execution) debit(from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	err := e.tx.Transfer(from, to, amount)
	if errors.Is(err, ledger.ErrAccountNotFound) && !e.tx.Exists(from) {
		return fmt.Errorf("%w: no holding at %s", core.ErrInsufficientBalance, from)
	}
	return err
}

func (e *execution) initHouse(ix programapi.InitHouse) error {
	houseAddr, bump, err := e.deriver.HouseAddress(ix.Name)
	if err != nil {
		return err
	}
	if ix.FeeBps > core.BasisPointsDenominator {
		return fmt.Errorf("%w: %d", core.ErrInvalidFee, ix.FeeBps)
	}
	if e.tx.Exists(houseAddr) {
		return fmt.Errorf("%w: house %q at %s", core.ErrAlreadyInitialized, ix.Name, houseAddr)
	}

	house := core.AuctionHouse{
		Admin:  e.signer,
		FeeBps: ix.FeeBps,
		Bump:   bump,
		Name:   ix.Name,
	}
	if err := e.saveRecord(houseAddr, AccountHouse, house); err != nil {
		return err
	}

	e.result.Addresses[RoleHouse] = houseAddr
	log.Printf("INFO: House %q created at %s: admin=%s, fee_bps=%d", ix.Name, houseAddr, e.signer, ix.FeeBps)
	return nil
}

func (e *execution) initAuction(ix programapi.InitAuction) error {
	var house core.AuctionHouse
	if err := e.loadRecord(ix.House, AccountHouse, &house, core.ErrHouseNotFound); err != nil {
		return err
	}

	auctionAddr, bump, err := e.deriver.AuctionAddress(ix.House, e.signer, ix.MintA, ix.MintB)
	if err != nil {
		return err
	}
	if e.tx.Exists(auctionAddr) {
		return fmt.Errorf("%w: auction at %s", core.ErrAlreadyInitialized, auctionAddr)
	}

	auction, err := core.NewAuction(core.AuctionParams{
		House:         ix.House,
		Seller:        e.signer,
		MintA:         ix.MintA,
		MintB:         ix.MintB,
		Bump:          bump,
		StartingPrice: ix.StartingPrice,
		End:           ix.End,
		Amount:        ix.Amount,
		Decimal:       ix.Decimal,
	}, e.slot)
	if err != nil {
		return err
	}

	vault, err := e.deriver.CustodyAddress(auctionAddr, ix.MintA)
	if err != nil {
		return err
	}
	if err := e.tx.CreateTokenAccount(vault, ix.MintA, auctionAddr); err != nil {
		return err
	}
	sellerHolding, err := e.deriver.CustodyAddress(e.signer, ix.MintA)
	if err != nil {
		return err
	}
	if err := e.debit(sellerHolding, vault, ix.Amount); err != nil {
		return err
	}

	if err := e.saveRecord(auctionAddr, AccountAuction, auction); err != nil {
		return err
	}

	e.result.Addresses[RoleAuction] = auctionAddr
	e.result.Addresses[RoleVault] = vault
	log.Printf("INFO: Auction %s opened by %s: amount=%d, starting_price=%d, end=%d",
		auctionAddr, e.signer, ix.Amount, ix.StartingPrice, ix.End)
	return nil
}

func (e *execution) bid(ix programapi.Bid) error {
	var auction core.Auction
	if err := e.loadRecord(ix.Auction, AccountAuction, &auction, core.ErrAuctionNotFound); err != nil {
		return err
	}

	// Validated against the price read in this transaction; a concurrent
	// higher bid makes the commit conflict and the retry re-reads it.
	if err := auction.PlaceBid(e.signer, ix.Price, e.slot); err != nil {
		return err
	}
	required, err := auction.RequiredEscrow(ix.Price)
	if err != nil {
		return err
	}

	bidAddr, bump, err := e.deriver.BidAddress(ix.Auction, e.signer)
	if err != nil {
		return err
	}
	escrow, err := e.deriver.CustodyAddress(bidAddr, auction.MintB)
	if err != nil {
		return err
	}

	if !e.tx.Exists(bidAddr) {
		state := core.BidState{
			Bidder:  e.signer,
			Auction: ix.Auction,
			Mint:    auction.MintB,
			Bump:    bump,
		}
		if err := e.saveRecord(bidAddr, AccountBid, state); err != nil {
			return err
		}
	}
	if err := e.tx.CreateTokenAccount(escrow, auction.MintB, bidAddr); err != nil {
		return err
	}
	held, err := e.tx.TokenAccount(escrow)
	if err != nil {
		return err
	}

	bidderHolding, err := e.deriver.CustodyAddress(e.signer, auction.MintB)
	if err != nil {
		return err
	}
	switch {
	case required > held.Amount:
		if err := e.debit(bidderHolding, escrow, required-held.Amount); err != nil {
			return err
		}
	case required < held.Amount:
		if err := e.tx.Transfer(escrow, bidderHolding, held.Amount-required); err != nil {
			return err
		}
	}

	if err := e.saveRecord(ix.Auction, AccountAuction, auction); err != nil {
		return err
	}

	e.result.Addresses[RoleAuction] = ix.Auction
	e.result.Addresses[RoleBid] = bidAddr
	e.result.Addresses[RoleEscrow] = escrow
	log.Printf("INFO: Bid on %s by %s: price=%d, escrow=%d", ix.Auction, e.signer, ix.Price, required)
	return nil
}

func (e *execution) finalize(ix programapi.Finalize) error {
	var auction core.Auction
	if err := e.loadRecord(ix.Auction, AccountAuction, &auction, core.ErrAuctionNotFound); err != nil {
		return err
	}
	if err := auction.CheckFinalize(e.slot); err != nil {
		return err
	}
	var house core.AuctionHouse
	if err := e.loadRecord(auction.House, AccountHouse, &house, core.ErrHouseNotFound); err != nil {
		return err
	}

	winner := *auction.Bidder
	bidAddr, _, err := e.deriver.BidAddress(ix.Auction, winner)
	if err != nil {
		return err
	}
	escrow, err := e.deriver.CustodyAddress(bidAddr, auction.MintB)
	if err != nil {
		return err
	}
	held, err := e.tx.TokenAccount(escrow)
	if err != nil {
		return err
	}

	settlement, err := auction.Finalize(e.slot, held.Amount, house.FeeBps)
	if err != nil {
		return err
	}

	vault, err := e.deriver.CustodyAddress(ix.Auction, auction.MintA)
	if err != nil {
		return err
	}
	winnerHolding, err := e.holding(winner, auction.MintA)
	if err != nil {
		return err
	}
	sellerHolding, err := e.holding(auction.Seller, auction.MintB)
	if err != nil {
		return err
	}
	adminHolding, err := e.holding(house.Admin, auction.MintB)
	if err != nil {
		return err
	}

	if err := e.tx.Transfer(vault, winnerHolding, settlement.AssetAmount); err != nil {
		return err
	}
	if err := e.tx.Transfer(escrow, adminHolding, settlement.Fee); err != nil {
		return err
	}
	if err := e.tx.Transfer(escrow, sellerHolding, settlement.SellerPayout); err != nil {
		return err
	}

	if err := e.tx.CloseTokenAccount(escrow); err != nil {
		return err
	}
	if err := e.tx.CloseTokenAccount(vault); err != nil {
		return err
	}
	e.tx.Delete(bidAddr)
	e.tx.Delete(ix.Auction)

	e.result.Settlement = settlement
	e.result.Addresses[RoleAuction] = ix.Auction
	e.result.Addresses[RoleWinnerHolding] = winnerHolding
	e.result.Addresses[RoleSellerHolding] = sellerHolding
	e.result.Addresses[RoleAdminHolding] = adminHolding
	log.Printf("INFO: Auction %s finalized: winner=%s, escrow=%d, fee=%d, seller_payout=%d",
		ix.Auction, winner, settlement.Escrow, settlement.Fee, settlement.SellerPayout)

	return e.buildReceipt(ix.Auction, &auction, house.FeeBps, settlement)
}

func (e *execution) cancel(ix programapi.Cancel) error {
	var auction core.Auction
	if err := e.loadRecord(ix.Auction, AccountAuction, &auction, core.ErrAuctionNotFound); err != nil {
		return err
	}
	if !auction.Seller.Equals(e.signer) {
		return fmt.Errorf("%w: only the seller %s may cancel", core.ErrUnauthorized, auction.Seller)
	}
	var house core.AuctionHouse
	if err := e.loadRecord(auction.House, AccountHouse, &house, core.ErrHouseNotFound); err != nil {
		return err
	}

	settlement, err := auction.Cancel(e.slot)
	if err != nil {
		return err
	}

	vault, err := e.deriver.CustodyAddress(ix.Auction, auction.MintA)
	if err != nil {
		return err
	}
	sellerHolding, err := e.holding(auction.Seller, auction.MintA)
	if err != nil {
		return err
	}
	if err := e.tx.Transfer(vault, sellerHolding, settlement.AssetAmount); err != nil {
		return err
	}
	if err := e.tx.CloseTokenAccount(vault); err != nil {
		return err
	}
	e.tx.Delete(ix.Auction)

	e.result.Settlement = settlement
	e.result.Addresses[RoleAuction] = ix.Auction
	e.result.Addresses[RoleSellerHolding] = sellerHolding
	log.Printf("INFO: Auction %s cancelled: %d returned to seller %s", ix.Auction, settlement.AssetAmount, auction.Seller)

	return e.buildReceipt(ix.Auction, &auction, house.FeeBps, settlement)
}

func (e *execution) withdraw(ix programapi.Withdraw) error {
	bidAddr, _, err := e.deriver.BidAddress(ix.Auction, e.signer)
	if err != nil {
		return err
	}
	var state core.BidState
	if err := e.loadRecord(bidAddr, AccountBid, &state, core.ErrNoSuchBid); err != nil {
		return err
	}

	var auction *core.Auction
	if e.tx.Exists(ix.Auction) {
		auction = &core.Auction{}
		if err := e.loadRecord(ix.Auction, AccountAuction, auction, core.ErrAuctionNotFound); err != nil {
			return err
		}
	}
	if err := core.CheckWithdraw(auction, e.signer); err != nil {
		return err
	}

	escrow, err := e.deriver.CustodyAddress(bidAddr, state.Mint)
	if err != nil {
		return err
	}
	held, err := e.tx.TokenAccount(escrow)
	if err != nil {
		return err
	}
	bidderHolding, err := e.holding(e.signer, state.Mint)
	if err != nil {
		return err
	}
	if err := e.tx.Transfer(escrow, bidderHolding, held.Amount); err != nil {
		return err
	}
	if err := e.tx.CloseTokenAccount(escrow); err != nil {
		return err
	}
	e.tx.Delete(bidAddr)

	e.result.Addresses[RoleBid] = bidAddr
	e.result.Addresses[RoleBidderHolding] = bidderHolding
	log.Printf("INFO: Withdrew %d from %s to %s", held.Amount, escrow, e.signer)
	return nil
}

func (e *execution) buildReceipt(auctionAddr solana.PublicKey, auction *core.Auction, feeBps uint16, s *core.Settlement) error {
	nonce, err := generateNonce()
	if err != nil {
		return err
	}

	receipt := &programapi.SettlementReceipt{
		ReceiptID:      uuid.NewString(),
		ProgramID:      e.programID().String(),
		Auction:        auctionAddr.String(),
		House:          auction.House.String(),
		Seller:         auction.Seller.String(),
		MintA:          auction.MintA.String(),
		MintB:          auction.MintB.String(),
		Status:         s.Status.String(),
		HighestPrice:   auction.HighestPrice,
		Decimal:        auction.Decimal,
		Escrow:         s.Escrow,
		FeeBps:         feeBps,
		Fee:            s.Fee,
		SellerPayout:   s.SellerPayout,
		AssetAmount:    s.AssetAmount,
		Slot:           e.slot,
		Nonce:          nonce,
		SettlementHash: core.ComputeSettlementHash(auctionAddr, *s, e.slot, nonce),
		Timestamp:      time.Now().UnixMilli(),
	}
	if s.Winner != nil {
		receipt.Winner = s.Winner.String()
		receipt.BidHash = core.ComputeBidHash(auctionAddr, *s.Winner, auction.HighestPrice, nonce)
	}
	e.receipt = receipt
	return nil
}
