package core

import (
	"crypto/sha256"
	"fmt"
	"testing"

	"github.com/peterldowns/testy/check"
)

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

func TestComputeBidHash(t *testing.T) {
	auction := newKey()
	bidder := newKey()

	hash := ComputeBidHash(auction, bidder, 3_000_000, "nonce")

	check.Equal(t, 64, len(hash))
	check.True(t, isHex(hash))
	check.Equal(t, hash, ComputeBidHash(auction, bidder, 3_000_000, "nonce"))

	expectedData := fmt.Sprintf("%s|%s|%d|%s", auction, bidder, 3_000_000, "nonce")
	check.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData))), hash)

	check.NotEqual(t, hash, ComputeBidHash(auction, bidder, 3_000_001, "nonce"))
	check.NotEqual(t, hash, ComputeBidHash(auction, newKey(), 3_000_000, "nonce"))
	check.NotEqual(t, hash, ComputeBidHash(auction, bidder, 3_000_000, "other"))
}

func TestComputeSettlementHash(t *testing.T) {
	auction := newKey()
	winner := newKey()
	settlement := Settlement{
		Status:       StatusFinalized,
		Winner:       &winner,
		Escrow:       200,
		Fee:          0,
		SellerPayout: 200,
		AssetAmount:  50,
	}

	hash := ComputeSettlementHash(auction, settlement, 100, "nonce")
	check.Equal(t, 64, len(hash))
	check.True(t, isHex(hash))
	check.Equal(t, hash, ComputeSettlementHash(auction, settlement, 100, "nonce"))

	expectedData := fmt.Sprintf("%s|finalized|%s|200|0|200|50|100|nonce", auction, winner)
	check.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData))), hash)

	tampered := settlement
	tampered.Fee = 1
	tampered.SellerPayout = 199
	check.NotEqual(t, hash, ComputeSettlementHash(auction, tampered, 100, "nonce"))
	check.NotEqual(t, hash, ComputeSettlementHash(auction, settlement, 101, "nonce"))
}

func TestComputeSettlementHash_Cancelled(t *testing.T) {
	auction := newKey()
	settlement := Settlement{Status: StatusCancelled, AssetAmount: 50}

	hash := ComputeSettlementHash(auction, settlement, 100, "n")
	expectedData := fmt.Sprintf("%s|cancelled||0|0|0|50|100|n", auction)
	check.Equal(t, fmt.Sprintf("%x", sha256.Sum256([]byte(expectedData))), hash)
}
