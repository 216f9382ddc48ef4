package core

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DefaultProgramID is the address the auction program is deployed under.
var DefaultProgramID = solana.MustPublicKeyFromBase58("7VNBDULA3eH3ctDqx5ckpfZA1Xe2AkjUnGjuXe7de6bf")

// Seed tags for program derived addresses.
var (
	SeedHouse   = []byte("house")
	SeedAuction = []byte("auction")
	SeedBid     = []byte("bid")
)

// MaxHouseNameLength is the longest house name usable as a derivation seed.
const MaxHouseNameLength = solana.MaxSeedLength - 1

// Deriver computes the deterministic addresses of every record the program
// owns. The same seeds always derive the same address and bump.
type Deriver struct {
	ProgramID solana.PublicKey
}

// NewDeriver returns a Deriver for programID, or for DefaultProgramID when
// programID is the zero key.
func NewDeriver(programID solana.PublicKey) Deriver {
	if programID.IsZero() {
		programID = DefaultProgramID
	}
	return Deriver{ProgramID: programID}
}

// ValidateHouseName checks the name fits a single derivation seed.
func ValidateHouseName(name string) error {
	if len(name) == 0 || len(name) > MaxHouseNameLength {
		return fmt.Errorf("%w: got %d bytes", ErrNameTooLong, len(name))
	}
	return nil
}

// HouseAddress derives the house registry address: ["house", name].
func (d Deriver) HouseAddress(name string) (solana.PublicKey, uint8, error) {
	if err := ValidateHouseName(name); err != nil {
		return solana.PublicKey{}, 0, err
	}
	return d.find(SeedHouse, []byte(name))
}

// AuctionAddress derives ["auction", house, seller, mint_a, mint_b]. The end
// slot is not part of the seeds, so a seller has at most one live auction per
// house and mint pair.
func (d Deriver) AuctionAddress(house, seller, mintA, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	return d.find(SeedAuction, house[:], seller[:], mintA[:], mintB[:])
}

// BidAddress derives ["bid", auction, bidder].
func (d Deriver) BidAddress(auction, bidder solana.PublicKey) (solana.PublicKey, uint8, error) {
	return d.find(SeedBid, auction[:], bidder[:])
}

// CustodyAddress derives the token holding of owner for mint. Vaults are the
// custody accounts of an auction, escrows those of a bid record.
func (d Deriver) CustodyAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive custody address: %w", err)
	}
	return addr, nil
}

func (d Deriver) find(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, d.ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive %s address: %w", seeds[0], err)
	}
	return addr, bump, nil
}
