package core

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Status is the lifecycle state of an auction.
type Status uint8

const (
	StatusCreated Status = iota
	StatusActive
	StatusFinalized
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusActive:
		return "active"
	case StatusFinalized:
		return "finalized"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	for _, status := range []Status{StatusCreated, StatusActive, StatusFinalized, StatusCancelled} {
		if status.String() == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown auction status %q", s)
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusFinalized || s == StatusCancelled
}

// AuctionHouse is the fee registry, one per name.
type AuctionHouse struct {
	Admin  solana.PublicKey `json:"admin"`
	FeeBps uint16           `json:"fee_bps"`
	Bump   uint8            `json:"bump"`
	Name   string           `json:"name"`
}

// Auction holds the live state of one English auction. The asset lot is held
// in custody by the auction's vault until settlement.
type Auction struct {
	House        solana.PublicKey  `json:"house"`
	Seller       solana.PublicKey  `json:"seller"`
	MintA        solana.PublicKey  `json:"mint_a"`
	MintB        solana.PublicKey  `json:"mint_b"`
	Bump         uint8             `json:"bump"`
	End          uint64            `json:"end"`
	HighestPrice uint64            `json:"highest_price"`
	Decimal      uint8             `json:"decimal"`
	Amount       uint64            `json:"amount"`
	Status       Status            `json:"status"`
	Bidder       *solana.PublicKey `json:"bidder,omitempty" bin:"optional"`
}

// BidState records one bidder's escrowed position on one auction. The escrow
// balance itself lives in the custody account owned by this record, for Mint.
type BidState struct {
	Bidder  solana.PublicKey `json:"bidder"`
	Auction solana.PublicKey `json:"auction"`
	Mint    solana.PublicKey `json:"mint"`
	Bump    uint8            `json:"bump"`
}

// Settlement is the value movement computed when an auction closes.
type Settlement struct {
	Status       Status            `json:"status"`
	Winner       *solana.PublicKey `json:"winner,omitempty"`
	Escrow       uint64            `json:"escrow"`
	Fee          uint64            `json:"fee"`
	SellerPayout uint64            `json:"seller_payout"`
	AssetAmount  uint64            `json:"asset_amount"`
}
