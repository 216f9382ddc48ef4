package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/settlement/core"
)

func TestMarshalAuction(t *testing.T) {
	bidder := newKey()
	auction := core.Auction{
		House:        newKey(),
		Seller:       newKey(),
		MintA:        newKey(),
		MintB:        newKey(),
		Bump:         254,
		End:          1_000,
		HighestPrice: 3_000_000,
		Decimal:      6,
		Amount:       50,
		Status:       core.StatusActive,
		Bidder:       &bidder,
	}

	data, err := Marshal("Auction", auction)
	assert.NoError(t, err)
	check.Equal(t, bin.SighashAccount("Auction"), data[:bin.ACCOUNT_DISCRIMINATOR_SIZE])

	var decoded core.Auction
	assert.NoError(t, Unmarshal("Auction", data, &decoded))
	check.True(t, decoded.Seller.Equals(auction.Seller))
	check.Equal(t, auction.HighestPrice, decoded.HighestPrice)
	check.Equal(t, core.StatusActive, decoded.Status)
	assert.NotNil(t, decoded.Bidder)
	check.True(t, decoded.Bidder.Equals(bidder))
}

func TestMarshalAuction_NoBidder(t *testing.T) {
	auction := core.Auction{Amount: 1, Status: core.StatusActive}

	data, err := Marshal("Auction", auction)
	assert.NoError(t, err)

	var decoded core.Auction
	assert.NoError(t, Unmarshal("Auction", data, &decoded))
	check.Nil(t, decoded.Bidder)
}

func TestUnmarshal_WrongDiscriminator(t *testing.T) {
	data, err := Marshal("BidState", core.BidState{Bidder: newKey()})
	assert.NoError(t, err)

	var auction core.Auction
	err = Unmarshal("Auction", data, &auction)
	check.True(t, errors.Is(err, ErrDiscriminatorMismatch))

	err = Unmarshal("Auction", []byte{1, 2}, &auction)
	check.Error(t, err)
}

func TestManualClock(t *testing.T) {
	clock := NewManualClock(10)
	check.Equal(t, uint64(10), clock.Slot())
	check.Equal(t, uint64(15), clock.Advance(5))
	clock.Set(3)
	check.Equal(t, uint64(3), clock.Slot())
}

func TestSlotClock(t *testing.T) {
	genesis := time.Unix(1_700_000_000, 0)
	clock := NewSlotClock(genesis, time.Second)

	clock.now = func() time.Time { return genesis.Add(10500 * time.Millisecond) }
	check.Equal(t, uint64(10), clock.Slot())

	clock.now = func() time.Time { return genesis.Add(-time.Minute) }
	check.Equal(t, uint64(0), clock.Slot())

	check.Equal(t, DefaultSlotDuration, NewSlotClock(genesis, 0).duration)
}

func TestLoadGenesisFile(t *testing.T) {
	owner, mint := newKey(), newKey()
	path := filepath.Join(t.TempDir(), "genesis.json")
	content := `{"balances":[{"owner":"` + owner.String() + `","mint":"` + mint.String() + `","amount":250}]}`
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	balances, err := LoadGenesisFile(path)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(balances))
	check.True(t, balances[0].Owner.Equals(owner))
	check.True(t, balances[0].Mint.Equals(mint))
	check.Equal(t, uint64(250), balances[0].Amount)
}

func TestLoadGenesisFile_Errors(t *testing.T) {
	_, err := LoadGenesisFile(filepath.Join(t.TempDir(), "missing.json"))
	check.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.json")
	assert.NoError(t, os.WriteFile(path, []byte(`{"balances":[]}`), 0o600))
	_, err = LoadGenesisFile(path)
	check.Error(t, err)
}
