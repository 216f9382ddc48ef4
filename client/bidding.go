package client

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/programapi"
)

// ErrPriceCapReached is returned by Outbid when beating the current highest
// price would exceed the caller's cap.
var ErrPriceCapReached = errors.New("outbidding would exceed the price cap")

// Outbid bids increment above the current highest price, re-reading the
// auction and retrying whenever another bid lands first. It gives up once
// the next price would exceed maxPrice.
func (c *Client) Outbid(ctx context.Context, auction solana.PublicKey, increment, maxPrice uint64, key solana.PrivateKey) (*programapi.InstructionResponse, uint64, error) {
	if increment == 0 {
		return nil, 0, fmt.Errorf("%w: increment must be positive", core.ErrInvalidAmount)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		account, err := c.Account(ctx, auction)
		if err != nil {
			return nil, 0, err
		}
		if account.Auction == nil {
			return nil, 0, fmt.Errorf("%w: %s is a %s account", core.ErrAuctionNotFound, auction, account.Kind)
		}
		if account.Auction.IsLeader(key.PublicKey()) {
			return nil, account.Auction.HighestPrice, nil
		}

		current := account.Auction.HighestPrice
		if current > maxPrice || maxPrice-current < increment {
			return nil, current, fmt.Errorf("%w: highest %d, cap %d", ErrPriceCapReached, current, maxPrice)
		}
		price := current + increment

		resp, err := c.Submit(ctx, programapi.Bid{Auction: auction, Price: price}, key)
		if errors.Is(err, core.ErrBidTooLow) {
			log.Printf("INFO: Bid of %d was outpaced, re-reading auction %s", price, auction)
			continue
		}
		return resp, price, err
	}
}
