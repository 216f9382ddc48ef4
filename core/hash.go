package core

import (
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ComputeBidHash commits to one accepted bid.
// Used by the program (to stamp receipts) and by validation (to verify them).
//
// Formula: SHA256(auction + "|" + bidder + "|" + price + "|" + nonce)
func ComputeBidHash(auction, bidder solana.PublicKey, price uint64, nonce string) string {
	data := fmt.Sprintf("%s|%s|%d|%s", auction, bidder, price, nonce)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeSettlementHash commits to the value movement of a closed auction.
// Used by the program (to stamp receipts) and by validation (to verify them).
//
// Formula: SHA256(auction|status|winner|escrow|fee|seller_payout|asset_amount|slot|nonce)
// where winner is the empty string for a cancelled auction.
func ComputeSettlementHash(auction solana.PublicKey, s Settlement, slot uint64, nonce string) string {
	winner := ""
	if s.Winner != nil {
		winner = s.Winner.String()
	}
	data := fmt.Sprintf("%s|%s|%s|%d|%d|%d|%d|%d|%s",
		auction, s.Status, winner, s.Escrow, s.Fee, s.SellerPayout, s.AssetAmount, slot, nonce)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
