package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/ledger"
	"github.com/cloudx-io/settlement/programapi"
)

// DescribeAccount decodes the committed account at addr by its discriminator.
func (p *Processor) DescribeAccount(addr solana.PublicKey) (*programapi.AccountResponse, error) {
	acct, ok := p.store.Get(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr)
	}

	resp := &programapi.AccountResponse{
		Type:    programapi.TypeAccountResponse,
		Success: true,
		Address: addr,
		Owner:   acct.Owner,
		Version: acct.Version,
	}

	var err error
	switch {
	case hasDiscriminator(acct.Data, AccountHouse):
		resp.Kind = AccountHouse
		resp.House = &core.AuctionHouse{}
		err = ledger.Unmarshal(AccountHouse, acct.Data, resp.House)
	case hasDiscriminator(acct.Data, AccountAuction):
		resp.Kind = AccountAuction
		resp.Auction = &core.Auction{}
		err = ledger.Unmarshal(AccountAuction, acct.Data, resp.Auction)
	case hasDiscriminator(acct.Data, AccountBid):
		resp.Kind = AccountBid
		resp.Bid = &core.BidState{}
		err = ledger.Unmarshal(AccountBid, acct.Data, resp.Bid)
	case hasDiscriminator(acct.Data, ledger.TokenAccountName):
		resp.Kind = ledger.TokenAccountName
		var ta ledger.TokenAccount
		err = ledger.Unmarshal(ledger.TokenAccountName, acct.Data, &ta)
		resp.Token = &programapi.TokenBalance{Mint: ta.Mint, Owner: ta.Owner, Amount: ta.Amount}
	default:
		return nil, fmt.Errorf("unrecognized account data at %s", addr)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Balance returns owner's associated holding of mint. A missing holding has
// a zero balance.
func (p *Processor) Balance(owner, mint solana.PublicKey) (solana.PublicKey, uint64, error) {
	addr, err := p.deriver.CustodyAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, 0, err
	}
	if _, ok := p.store.Get(addr); !ok {
		return addr, 0, nil
	}
	amount, err := p.store.Balance(addr)
	if err != nil {
		return addr, 0, err
	}
	return addr, amount, nil
}

func hasDiscriminator(data []byte, name string) bool {
	return len(data) >= bin.ACCOUNT_DISCRIMINATOR_SIZE &&
		bytes.Equal(data[:bin.ACCOUNT_DISCRIMINATOR_SIZE], bin.SighashAccount(name))
}
