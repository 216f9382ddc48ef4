package validation

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/programapi"
)

// ValidateSettlementReceipt validates a signed settlement receipt and verifies:
// - COSE signature against the node's published key
// - Settlement and winning bid hashes
// - Escrow and fee split arithmetic
// - Value conservation (fee + seller payout == escrow)
// - Auction address and winner expectations
//
// Returns:
//   - ReceiptValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed receipt)
func ValidateSettlementReceipt(input *ReceiptValidationInput) (*ReceiptValidationResult, error) {
	raw, err := input.ReceiptCOSEBase64.Decode()
	if err != nil {
		return nil, err
	}

	receipt, err := raw.ParseReceipt()
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt: %w", err)
	}

	result := &ReceiptValidationResult{
		ValidationDetails: []string{},
		Receipt:           receipt,
	}

	if err := VerifyReceiptSignature(raw, input.PublicKeyPEM); err != nil {
		result.detail(fmt.Sprintf("Signature verification failed: %v", err))
	} else {
		result.SignatureValid = true
		result.detail("COSE signature verified")
	}

	result.HashValid = validateHashes(receipt, result)
	result.FeeValid = validateFeeSplit(receipt, result)
	result.ConservationValid = validateConservation(receipt, result)
	result.AuctionMatch = validateAuction(input, receipt, result)
	result.WinnerValid = validateWinner(input, receipt, result)

	return result, nil
}

func validateHashes(receipt *programapi.SettlementReceipt, result *ReceiptValidationResult) bool {
	if receipt.Nonce == "" {
		result.detail("Receipt nonce missing")
		return false
	}

	settlement, auction, err := settlementFromReceipt(receipt)
	if err != nil {
		result.detail(fmt.Sprintf("Receipt fields invalid: %v", err))
		return false
	}

	computed := core.ComputeSettlementHash(auction, *settlement, receipt.Slot, receipt.Nonce)
	if computed != receipt.SettlementHash {
		result.detail(fmt.Sprintf("Settlement hash mismatch: computed %s, receipt has %s", computed, receipt.SettlementHash))
		return false
	}
	result.detail(fmt.Sprintf("Settlement hash verified: %s", computed))

	if settlement.Winner == nil {
		if receipt.BidHash != "" {
			result.detail("Bid hash present on a receipt without a winner")
			return false
		}
		return true
	}

	bidHash := core.ComputeBidHash(auction, *settlement.Winner, receipt.HighestPrice, receipt.Nonce)
	if bidHash != receipt.BidHash {
		result.detail(fmt.Sprintf("Bid hash mismatch: computed %s, receipt has %s", bidHash, receipt.BidHash))
		return false
	}
	result.detail(fmt.Sprintf("Winning bid hash verified: %s", bidHash))
	return true
}

func validateFeeSplit(receipt *programapi.SettlementReceipt, result *ReceiptValidationResult) bool {
	switch receipt.Status {
	case core.StatusCancelled.String():
		if receipt.Escrow != 0 || receipt.Fee != 0 || receipt.SellerPayout != 0 {
			result.detail(fmt.Sprintf("Cancelled auction moved value: escrow %d, fee %d, payout %d",
				receipt.Escrow, receipt.Fee, receipt.SellerPayout))
			return false
		}
		result.detail("Fee validation passed: cancelled auction moves no payment")
		return true

	case core.StatusFinalized.String():
		escrow, err := core.RequiredEscrow(receipt.HighestPrice, receipt.AssetAmount, receipt.Decimal)
		if err != nil {
			result.detail(fmt.Sprintf("Escrow recomputation failed: %v", err))
			return false
		}
		if escrow != receipt.Escrow {
			result.detail(fmt.Sprintf("Escrow mismatch: computed %d, receipt has %d", escrow, receipt.Escrow))
			return false
		}

		fee, payout, err := core.SplitFee(receipt.Escrow, receipt.FeeBps)
		if err != nil {
			result.detail(fmt.Sprintf("Fee recomputation failed: %v", err))
			return false
		}
		if fee != receipt.Fee || payout != receipt.SellerPayout {
			result.detail(fmt.Sprintf("Fee split mismatch: computed fee %d payout %d, receipt has fee %d payout %d",
				fee, payout, receipt.Fee, receipt.SellerPayout))
			return false
		}
		result.detail(fmt.Sprintf("Fee validation passed: %d bps of %d is %d", receipt.FeeBps, receipt.Escrow, fee))
		return true

	default:
		result.detail(fmt.Sprintf("Receipt status %q is not terminal", receipt.Status))
		return false
	}
}

func validateConservation(receipt *programapi.SettlementReceipt, result *ReceiptValidationResult) bool {
	if receipt.Fee > receipt.Escrow || receipt.Escrow-receipt.Fee != receipt.SellerPayout {
		result.detail(fmt.Sprintf("Value not conserved: fee %d + payout %d != escrow %d",
			receipt.Fee, receipt.SellerPayout, receipt.Escrow))
		return false
	}
	result.detail("Value conserved: fee + seller payout == escrow")
	return true
}

func validateAuction(input *ReceiptValidationInput, receipt *programapi.SettlementReceipt, result *ReceiptValidationResult) bool {
	if input.Auction == "" {
		return true
	}
	if input.Auction != receipt.Auction {
		result.detail(fmt.Sprintf("Auction mismatch: expected %s, receipt covers %s", input.Auction, receipt.Auction))
		return false
	}
	result.detail(fmt.Sprintf("Receipt covers auction %s", receipt.Auction))
	return true
}

func validateWinner(input *ReceiptValidationInput, receipt *programapi.SettlementReceipt, result *ReceiptValidationResult) bool {
	if receipt.Status == core.StatusFinalized.String() && receipt.Winner == "" {
		result.detail("Finalized receipt has no winner")
		return false
	}
	if receipt.Status == core.StatusCancelled.String() && receipt.Winner != "" {
		result.detail("Cancelled receipt names a winner")
		return false
	}

	if input.ExpectedWinner == nil {
		return true
	}

	expected := *input.ExpectedWinner
	if expected == receipt.Winner {
		if expected == "" {
			result.detail("Winner validation passed: no winner as expected")
		} else {
			result.detail(fmt.Sprintf("Winner validation passed: %s", expected))
		}
		return true
	}

	if expected == "" {
		result.detail(fmt.Sprintf("Winner validation failed: expected no winner, receipt names %s", receipt.Winner))
	} else {
		result.detail(fmt.Sprintf("Winner validation failed: expected %s, receipt names %q", expected, receipt.Winner))
	}
	return false
}

// settlementFromReceipt rebuilds the hashed settlement from receipt fields.
func settlementFromReceipt(receipt *programapi.SettlementReceipt) (*core.Settlement, solana.PublicKey, error) {
	auction, err := solana.PublicKeyFromBase58(receipt.Auction)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("auction address: %w", err)
	}

	status, err := core.ParseStatus(receipt.Status)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	settlement := &core.Settlement{
		Status:       status,
		Escrow:       receipt.Escrow,
		Fee:          receipt.Fee,
		SellerPayout: receipt.SellerPayout,
		AssetAmount:  receipt.AssetAmount,
	}
	if receipt.Winner != "" {
		winner, err := solana.PublicKeyFromBase58(receipt.Winner)
		if err != nil {
			return nil, solana.PublicKey{}, fmt.Errorf("winner address: %w", err)
		}
		settlement.Winner = &winner
	}
	return settlement, auction, nil
}
