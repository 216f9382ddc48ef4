package core

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// AuctionParams are the seller's inputs to open an auction.
type AuctionParams struct {
	House         solana.PublicKey
	Seller        solana.PublicKey
	MintA         solana.PublicKey
	MintB         solana.PublicKey
	Bump          uint8
	StartingPrice uint64
	End           uint64
	Amount        uint64
	Decimal       uint8
}

// NewAuction validates params against the current slot and returns an Active
// auction with no bidder.
//
// HighestPrice starts at StartingPrice-1 (saturating) so that the first
// accepted bid must be at least StartingPrice.
func NewAuction(params AuctionParams, now uint64) (*Auction, error) {
	if params.Amount == 0 {
		return nil, ErrInvalidAmount
	}
	if params.End <= now {
		return nil, fmt.Errorf("%w: end slot %d, current slot %d", ErrInvalidEnd, params.End, now)
	}

	highest := uint64(0)
	if params.StartingPrice > 0 {
		highest = params.StartingPrice - 1
	}

	return &Auction{
		House:        params.House,
		Seller:       params.Seller,
		MintA:        params.MintA,
		MintB:        params.MintB,
		Bump:         params.Bump,
		End:          params.End,
		HighestPrice: highest,
		Decimal:      params.Decimal,
		Amount:       params.Amount,
		Status:       StatusActive,
	}, nil
}

// HasBids reports whether any bid has ever been accepted.
func (a *Auction) HasBids() bool {
	return a.Bidder != nil
}

// IsLeader reports whether bidder is the current highest bidder.
func (a *Auction) IsLeader(bidder solana.PublicKey) bool {
	return a.Bidder != nil && a.Bidder.Equals(bidder)
}

// Ended reports whether bidding is closed at slot now.
func (a *Auction) Ended(now uint64) bool {
	return now >= a.End
}

// PlaceBid applies a bid at the current slot. Ties are rejected: price must
// strictly exceed HighestPrice as read at execution time. On error the
// auction is left untouched.
func (a *Auction) PlaceBid(bidder solana.PublicKey, price, now uint64) error {
	if a.Status != StatusActive {
		return fmt.Errorf("%w: status %s", ErrAuctionNotActive, a.Status)
	}
	if a.Ended(now) {
		return fmt.Errorf("%w: end slot %d, current slot %d", ErrAuctionEnded, a.End, now)
	}
	if price <= a.HighestPrice {
		return fmt.Errorf("%w: price %d, highest %d", ErrBidTooLow, price, a.HighestPrice)
	}

	leader := bidder
	a.HighestPrice = price
	a.Bidder = &leader
	return nil
}

// RequiredEscrow returns the escrow a bid of price must hold on this lot.
func (a *Auction) RequiredEscrow(price uint64) (uint64, error) {
	return RequiredEscrow(price, a.Amount, a.Decimal)
}

// CheckFinalize returns nil if the auction can be settled to its winner.
func (a *Auction) CheckFinalize(now uint64) error {
	if a.Status != StatusActive {
		return fmt.Errorf("%w: status %s", ErrAuctionNotActive, a.Status)
	}
	if !a.Ended(now) {
		return fmt.Errorf("%w: ends at slot %d, current slot %d", ErrAuctionStillActive, a.End, now)
	}
	if !a.HasBids() {
		return ErrNoBids
	}
	return nil
}

// CheckCancel returns nil if the auction ended without a single bid.
func (a *Auction) CheckCancel(now uint64) error {
	if a.Status != StatusActive {
		return fmt.Errorf("%w: status %s", ErrAuctionNotActive, a.Status)
	}
	if !a.Ended(now) {
		return fmt.Errorf("%w: ends at slot %d, current slot %d", ErrAuctionStillActive, a.End, now)
	}
	if a.HasBids() {
		return ErrBidsExist
	}
	return nil
}

// Finalize computes the settlement of the winning escrow and moves the
// auction to Finalized.
func (a *Auction) Finalize(now, escrow uint64, feeBps uint16) (*Settlement, error) {
	if err := a.CheckFinalize(now); err != nil {
		return nil, err
	}

	fee, payout, err := SplitFee(escrow, feeBps)
	if err != nil {
		return nil, err
	}

	winner := *a.Bidder
	a.Status = StatusFinalized
	return &Settlement{
		Status:       StatusFinalized,
		Winner:       &winner,
		Escrow:       escrow,
		Fee:          fee,
		SellerPayout: payout,
		AssetAmount:  a.Amount,
	}, nil
}

// Cancel moves a bidless, ended auction to Cancelled. The whole lot returns
// to the seller.
func (a *Auction) Cancel(now uint64) (*Settlement, error) {
	if err := a.CheckCancel(now); err != nil {
		return nil, err
	}
	a.Status = StatusCancelled
	return &Settlement{
		Status:      StatusCancelled,
		AssetAmount: a.Amount,
	}, nil
}

// CheckWithdraw decides whether bidder may reclaim their escrow. auction is
// nil once the auction record has been closed by finalize or cancel.
func CheckWithdraw(auction *Auction, bidder solana.PublicKey) error {
	if auction == nil || auction.Status.Terminal() {
		return nil
	}
	if auction.IsLeader(bidder) {
		return ErrStillHighestBidder
	}
	return nil
}
