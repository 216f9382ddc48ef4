package programapi

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/cloudx-io/settlement/core"
)

// Request and response types on the node wire.
const (
	TypePing            = "ping"
	TypePong            = "pong"
	TypeError           = "error"
	TypeKeyRequest      = "key_request"
	TypeKeyResponse     = "key_response"
	TypeInstruction     = "instruction"
	TypeInstructionResp = "instruction_response"
	TypeAccountRequest  = "account_request"
	TypeAccountResponse = "account_response"
	TypeBalanceRequest  = "balance_request"
	TypeBalanceResponse = "balance_response"
	TypeReceiptRequest  = "receipt_request"
	TypeReceiptResponse = "receipt_response"
)

var ErrInvalidSignature = errors.New("invalid request signature")

// InstructionRequest carries one signed instruction to the node.
// The signature covers RequestID followed by Data.
type InstructionRequest struct {
	Type      string           `json:"type"`
	RequestID uuid.UUID        `json:"request_id"`
	Signer    solana.PublicKey `json:"signer"`
	Data      []byte           `json:"data"` // encoded instruction
	Signature solana.Signature `json:"signature"`
}

// NewSignedRequest encodes ix and signs it with key under a fresh request ID.
func NewSignedRequest(ix Instruction, key solana.PrivateKey) (*InstructionRequest, error) {
	data, err := EncodeInstruction(ix)
	if err != nil {
		return nil, err
	}
	// Version 7 IDs embed their creation time, which the node uses to bound
	// how long it must remember consumed IDs.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate request id: %w", err)
	}
	req := &InstructionRequest{
		Type:      TypeInstruction,
		RequestID: id,
		Signer:    key.PublicKey(),
		Data:      data,
	}
	sig, err := key.Sign(req.SigningMessage())
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	req.Signature = sig
	return req, nil
}

// SigningMessage returns the bytes covered by Signature.
func (r *InstructionRequest) SigningMessage() []byte {
	msg := make([]byte, 0, len(r.RequestID)+len(r.Data))
	msg = append(msg, r.RequestID[:]...)
	return append(msg, r.Data...)
}

// Verify checks Signature against Signer.
func (r *InstructionRequest) Verify() error {
	if !r.Signature.Verify(r.Signer, r.SigningMessage()) {
		return fmt.Errorf("%w: signer %s", ErrInvalidSignature, r.Signer)
	}
	return nil
}

// InstructionResponse reports the outcome of one instruction.
type InstructionResponse struct {
	Type              string            `json:"type"`
	Success           bool              `json:"success"`
	Message           string            `json:"message"`
	ErrorCode         string            `json:"error_code,omitempty"`
	Instruction       string            `json:"instruction,omitempty"`
	RequestID         uuid.UUID         `json:"request_id"`
	TransactionID     string            `json:"transaction_id,omitempty"`
	Slot              uint64            `json:"slot"`
	Addresses         map[string]string `json:"addresses,omitempty"` // records created or touched, by role
	ReceiptCOSEBase64 ReceiptCOSEBase64 `json:"receipt_cose_base64,omitempty"`
	ProcessingTime    int64             `json:"processing_time_ms"`
}

// PingResponse answers a ping.
type PingResponse struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Slot      uint64 `json:"slot"`
	Timestamp int64  `json:"timestamp"`
}

// KeyResponse publishes the receipt signing key.
type KeyResponse struct {
	Type      string           `json:"type"`
	Algorithm string           `json:"algorithm"`  // COSE algorithm name, e.g. "ES256"
	PublicKey string           `json:"public_key"` // PEM format
	ProgramID solana.PublicKey `json:"program_id"`
}

// AccountRequest asks for the record at Address.
type AccountRequest struct {
	Type    string           `json:"type"`
	Address solana.PublicKey `json:"address"`
}

// AccountResponse returns a record decoded by its kind.
type AccountResponse struct {
	Type    string             `json:"type"`
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Address solana.PublicKey   `json:"address"`
	Kind    string             `json:"kind,omitempty"`
	Owner   solana.PublicKey   `json:"owner"`
	Version uint64             `json:"version"`
	House   *core.AuctionHouse `json:"house,omitempty"`
	Auction *core.Auction      `json:"auction,omitempty"`
	Bid     *core.BidState     `json:"bid,omitempty"`
	Token   *TokenBalance      `json:"token,omitempty"`
}

// TokenBalance is the wire view of a token custody account.
type TokenBalance struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// BalanceRequest asks for Owner's associated balance of Mint.
type BalanceRequest struct {
	Type  string           `json:"type"`
	Owner solana.PublicKey `json:"owner"`
	Mint  solana.PublicKey `json:"mint"`
}

// BalanceResponse returns a balance. A missing account reports zero.
type BalanceResponse struct {
	Type    string           `json:"type"`
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Address solana.PublicKey `json:"address"`
	Amount  uint64           `json:"amount"`
}

// ReceiptRequest asks for the settlement receipt of Auction.
type ReceiptRequest struct {
	Type    string           `json:"type"`
	Auction solana.PublicKey `json:"auction"`
}

// ReceiptResponse returns a COSE signed settlement receipt.
type ReceiptResponse struct {
	Type              string            `json:"type"`
	Success           bool              `json:"success"`
	Message           string            `json:"message,omitempty"`
	ReceiptCOSEBase64 ReceiptCOSEBase64 `json:"receipt_cose_base64,omitempty"`
}

// ErrorResponse is returned for malformed or unknown requests.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
