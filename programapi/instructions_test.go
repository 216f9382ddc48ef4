package programapi

import (
	"errors"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestEncodeInstruction_Discriminator(t *testing.T) {
	data, err := EncodeInstruction(Bid{Auction: solana.NewWallet().PublicKey(), Price: 3_000_000})
	assert.NoError(t, err)
	check.Equal(t, bin.SighashInstruction("bid"), data[:8])
	// 32 byte auction key plus u64 price
	check.Equal(t, 8+32+8, len(data))
}

func TestDecodeInstruction(t *testing.T) {
	house := solana.NewWallet().PublicKey()
	auction := solana.NewWallet().PublicKey()

	testCases := []struct {
		name string
		ix   Instruction
	}{
		{InstructionInitHouse, InitHouse{FeeBps: 1, Name: "main"}},
		{InstructionInitAuction, InitAuction{
			House:         house,
			MintA:         solana.NewWallet().PublicKey(),
			MintB:         solana.NewWallet().PublicKey(),
			StartingPrice: 2_000_000,
			End:           500,
			Amount:        50,
			Decimal:       6,
		}},
		{InstructionBid, Bid{Auction: auction, Price: 4_000_000}},
		{InstructionFinalize, Finalize{Auction: auction}},
		{InstructionCancel, Cancel{Auction: auction}},
		{InstructionWithdraw, Withdraw{Auction: auction}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeInstruction(tc.ix)
			assert.NoError(t, err)

			decoded, err := DecodeInstruction(data)
			assert.NoError(t, err)
			check.Equal(t, tc.name, decoded.InstructionName())

			// Re-encoding the decoded value yields identical bytes.
			again, err := EncodeInstruction(deref(decoded))
			assert.NoError(t, err)
			check.Equal(t, data, again)
		})
	}
}

func deref(ix Instruction) Instruction {
	switch v := ix.(type) {
	case *InitHouse:
		return *v
	case *InitAuction:
		return *v
	case *Bid:
		return *v
	case *Finalize:
		return *v
	case *Cancel:
		return *v
	case *Withdraw:
		return *v
	}
	return ix
}

func TestDecodeInstruction_Fields(t *testing.T) {
	data, err := EncodeInstruction(InitHouse{FeeBps: 250, Name: "house-one"})
	assert.NoError(t, err)

	decoded, err := DecodeInstruction(data)
	assert.NoError(t, err)
	ix, ok := decoded.(*InitHouse)
	assert.True(t, ok)
	check.Equal(t, uint16(250), ix.FeeBps)
	check.Equal(t, "house-one", ix.Name)
}

func TestDecodeInstruction_Unknown(t *testing.T) {
	_, err := DecodeInstruction([]byte{1, 2, 3})
	check.True(t, errors.Is(err, ErrUnknownInstruction))

	_, err = DecodeInstruction(append(bin.SighashInstruction("transfer"), 0, 0))
	check.True(t, errors.Is(err, ErrUnknownInstruction))
}

func TestDecodeInstruction_Truncated(t *testing.T) {
	data, err := EncodeInstruction(Bid{Auction: solana.NewWallet().PublicKey(), Price: 1})
	assert.NoError(t, err)

	_, err = DecodeInstruction(data[:20])
	check.Error(t, err)
}
