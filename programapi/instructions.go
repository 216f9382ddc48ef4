package programapi

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction names, as used for the 8-byte instruction discriminator.
const (
	InstructionInitHouse   = "init_house"
	InstructionInitAuction = "init_auction"
	InstructionBid         = "bid"
	InstructionFinalize    = "finalize"
	InstructionCancel      = "cancel"
	InstructionWithdraw    = "withdraw"
)

var ErrUnknownInstruction = errors.New("unknown instruction")

// Instruction is one of the six program instructions.
type Instruction interface {
	InstructionName() string
}

// InitHouse creates the fee registry for Name. Signed by the admin.
type InitHouse struct {
	FeeBps uint16 `json:"fee_bps"`
	Name   string `json:"name"`
}

// InitAuction opens an auction under House. Signed by the seller.
type InitAuction struct {
	House         solana.PublicKey `json:"house"`
	MintA         solana.PublicKey `json:"mint_a"`
	MintB         solana.PublicKey `json:"mint_b"`
	StartingPrice uint64           `json:"starting_price"`
	End           uint64           `json:"end"`
	Amount        uint64           `json:"amount"`
	Decimal       uint8            `json:"decimal"`
}

// Bid raises the price on Auction. Signed by the bidder.
type Bid struct {
	Auction solana.PublicKey `json:"auction"`
	Price   uint64           `json:"price"`
}

// Finalize settles Auction to its winner. Any signer may pay for it.
type Finalize struct {
	Auction solana.PublicKey `json:"auction"`
}

// Cancel closes a bidless Auction. Signed by the seller.
type Cancel struct {
	Auction solana.PublicKey `json:"auction"`
}

// Withdraw returns the signer's escrow on Auction.
type Withdraw struct {
	Auction solana.PublicKey `json:"auction"`
}

func (InitHouse) InstructionName() string { return InstructionInitHouse }
func (InitAuction) InstructionName() string { return InstructionInitAuction }
func (Bid) InstructionName() string { return InstructionBid }
func (Finalize) InstructionName() string { return InstructionFinalize }
func (Cancel) InstructionName() string { return InstructionCancel }
func (Withdraw) InstructionName() string { return InstructionWithdraw }

var instructionFactories = map[string]func() Instruction{
	InstructionInitHouse:   func() Instruction { return &InitHouse{} },
	InstructionInitAuction: func() Instruction { return &InitAuction{} },
	InstructionBid:         func() Instruction { return &Bid{} },
	InstructionFinalize:    func() Instruction { return &Finalize{} },
	InstructionCancel:      func() Instruction { return &Cancel{} },
	InstructionWithdraw:    func() Instruction { return &Withdraw{} },
}

// EncodeInstruction serializes ix as its discriminator followed by Borsh
// encoded arguments.
func EncodeInstruction(ix Instruction) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(bin.SighashInstruction(ix.InstructionName()))
	if err := bin.NewBorshEncoder(&buf).Encode(ix); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ix.InstructionName(), err)
	}
	return buf.Bytes(), nil
}

// DecodeInstruction parses data produced by EncodeInstruction. The returned
// value is a pointer to the concrete instruction type.
func DecodeInstruction(data []byte) (Instruction, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes of instruction data", ErrUnknownInstruction, len(data))
	}
	for name, factory := range instructionFactories {
		if !bytes.Equal(data[:8], bin.SighashInstruction(name)) {
			continue
		}
		ix := factory()
		if err := bin.NewBorshDecoder(data[8:]).Decode(ix); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return ix, nil
	}
	return nil, fmt.Errorf("%w: discriminator %x", ErrUnknownInstruction, data[:8])
}
