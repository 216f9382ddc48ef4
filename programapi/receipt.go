package programapi

import (
	"encoding/base64"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/settlement/programapi/parsing"
)

// ReceiptAlgorithm is the COSE algorithm receipts are signed with.
const ReceiptAlgorithm = "ES256"

// SettlementReceipt is the signed record of a closed auction. Keys are base58
// strings so the payload reads the same in CBOR and JSON.
type SettlementReceipt struct {
	ReceiptID      string `json:"receipt_id" cbor:"receipt_id"`
	ProgramID      string `json:"program_id" cbor:"program_id"`
	Auction        string `json:"auction" cbor:"auction"`
	House          string `json:"house" cbor:"house"`
	Seller         string `json:"seller" cbor:"seller"`
	MintA          string `json:"mint_a" cbor:"mint_a"`
	MintB          string `json:"mint_b" cbor:"mint_b"`
	Status         string `json:"status" cbor:"status"`
	Winner         string `json:"winner,omitempty" cbor:"winner,omitempty"`
	HighestPrice   uint64 `json:"highest_price" cbor:"highest_price"`
	Decimal        uint8  `json:"decimal" cbor:"decimal"`
	Escrow         uint64 `json:"escrow" cbor:"escrow"`
	FeeBps         uint16 `json:"fee_bps" cbor:"fee_bps"`
	Fee            uint64 `json:"fee" cbor:"fee"`
	SellerPayout   uint64 `json:"seller_payout" cbor:"seller_payout"`
	AssetAmount    uint64 `json:"asset_amount" cbor:"asset_amount"`
	Slot           uint64 `json:"slot" cbor:"slot"`
	Nonce          string `json:"nonce" cbor:"nonce"`
	BidHash        string `json:"bid_hash,omitempty" cbor:"bid_hash,omitempty"`
	SettlementHash string `json:"settlement_hash" cbor:"settlement_hash"`
	Timestamp      int64  `json:"timestamp" cbor:"timestamp"` // unix milliseconds
}

// ReceiptCOSE is a raw COSE_Sign1 message whose payload is a CBOR encoded
// SettlementReceipt.
type ReceiptCOSE []byte

// ReceiptCOSEBase64 is a ReceiptCOSE in standard base64 for JSON transport.
type ReceiptCOSEBase64 string

// EncodeBase64 encodes raw COSE bytes to standard base64.
func (c ReceiptCOSE) EncodeBase64() ReceiptCOSEBase64 {
	return ReceiptCOSEBase64(base64.StdEncoding.EncodeToString(c))
}

// Decode decodes base64 back to raw COSE bytes.
func (c ReceiptCOSEBase64) Decode() (ReceiptCOSE, error) {
	data, err := base64.StdEncoding.DecodeString(string(c))
	if err != nil {
		return nil, fmt.Errorf("decode receipt base64: %w", err)
	}
	return ReceiptCOSE(data), nil
}

func (c ReceiptCOSEBase64) String() string {
	return string(c)
}

// ParseReceipt extracts the receipt payload without checking the signature.
func (c ReceiptCOSE) ParseReceipt() (*SettlementReceipt, error) {
	payload, err := parsing.ExtractCOSEPayload(c)
	if err != nil {
		return nil, err
	}

	var receipt SettlementReceipt
	if err := cbor.Unmarshal(payload, &receipt); err != nil {
		return nil, fmt.Errorf("parse receipt payload: %w", err)
	}
	return &receipt, nil
}

// ParseReceipt decodes base64 and extracts the receipt payload.
func (c ReceiptCOSEBase64) ParseReceipt() (*SettlementReceipt, error) {
	raw, err := c.Decode()
	if err != nil {
		return nil, err
	}
	return raw.ParseReceipt()
}
