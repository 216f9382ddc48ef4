package validation

import "github.com/cloudx-io/settlement/programapi"

// ReceiptValidationInput contains all inputs needed for settlement receipt validation
type ReceiptValidationInput struct {
	ReceiptCOSEBase64 programapi.ReceiptCOSEBase64 // From InstructionResponse or ReceiptResponse
	PublicKeyPEM      string                       // Node key from KeyResponse.PublicKey
	Auction           string                       // Optional: auction address the receipt must cover
	ExpectedWinner    *string                      // nil = not checked, "" = expect no winner
}

// ReceiptValidationResult contains the outcome of every receipt check
type ReceiptValidationResult struct {
	SignatureValid    bool
	HashValid         bool
	FeeValid          bool
	ConservationValid bool
	AuctionMatch      bool
	WinnerValid       bool
	ValidationDetails []string

	Receipt *programapi.SettlementReceipt
}

// IsValid returns true if all receipt validation checks passed
func (r *ReceiptValidationResult) IsValid() bool {
	return r.SignatureValid && r.HashValid && r.FeeValid && r.ConservationValid &&
		r.AuctionMatch && r.WinnerValid
}

func (r *ReceiptValidationResult) detail(msg string) {
	r.ValidationDetails = append(r.ValidationDetails, msg)
}
