package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/gagliardetto/solana-go"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/programapi"
)

func newFlagSet(name string, opts *globalOptions) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	opts.register(fs)
	return fs
}

func parsePublicKey(name, value string) (solana.PublicKey, error) {
	if value == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: --%s is required", errUsage, name)
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: invalid --%s: %v", errUsage, name, err)
	}
	return key, nil
}

// submit signs and sends ix, then prints the response.
func submit(ctx context.Context, opts *globalOptions, ix programapi.Instruction) error {
	key, err := opts.key()
	if err != nil {
		return err
	}
	c, err := opts.newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	resp, err := c.Submit(ctx, ix, key)
	if resp != nil {
		if printErr := printJSON(resp); printErr != nil {
			return printErr
		}
	}
	return err
}

func runInitHouse(ctx context.Context, opts *globalOptions, args []string) error {
	fs := newFlagSet("init-house", opts)
	name := fs.String("name", "", "House name (1 to 31 bytes)")
	feeBps := fs.Uint("fee-bps", 0, "House fee in basis points (0 to 10000)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := core.ValidateHouseName(*name); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *feeBps > core.BasisPointsDenominator {
		return fmt.Errorf("%w: %v", errUsage, core.ErrInvalidFee)
	}
	return submit(ctx, opts, programapi.InitHouse{FeeBps: uint16(*feeBps), Name: *name})
}

func runInitAuction(ctx context.Context, opts *globalOptions, args []string) error {
	fs := newFlagSet("init-auction", opts)
	house := fs.String("house", "", "Auction house address")
	mintA := fs.String("mint-a", "", "Mint of the asset being sold")
	mintB := fs.String("mint-b", "", "Mint of the payment currency")
	startingPrice := fs.String("starting-price", "", "Minimum price per whole unit, e.g. 2.0")
	decimal := fs.Uint("decimal", 6, "Decimals of the asset mint")
	amount := fs.Uint64("amount", 0, "Asset base units to sell")
	end := fs.Uint64("end", 0, "Slot at which bidding closes")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	ix := programapi.InitAuction{Amount: *amount, End: *end}
	var err error
	if ix.House, err = parsePublicKey("house", *house); err != nil {
		return err
	}
	if ix.MintA, err = parsePublicKey("mint-a", *mintA); err != nil {
		return err
	}
	if ix.MintB, err = parsePublicKey("mint-b", *mintB); err != nil {
		return err
	}
	if *decimal > 255 {
		return fmt.Errorf("%w: --decimal must be at most 255", errUsage)
	}
	ix.Decimal = uint8(*decimal)
	if ix.StartingPrice, err = core.ParsePrice(*startingPrice, ix.Decimal); err != nil {
		return fmt.Errorf("%w: invalid --starting-price: %v", errUsage, err)
	}
	return submit(ctx, opts, ix)
}

func runBid(ctx context.Context, opts *globalOptions, args []string) error {
	fs := newFlagSet("bid", opts)
	auctionFlag := fs.String("auction", "", "Auction address")
	price := fs.String("price", "", "Bid price per whole unit, e.g. 3.0")
	outbid := fs.Bool("outbid", false, "Bid --increment above the current highest price, retrying when outpaced")
	increment := fs.String("increment", "", "Outbid increment per whole unit")
	maxPrice := fs.String("max-price", "", "Highest price --outbid may reach")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	auction, err := parsePublicKey("auction", *auctionFlag)
	if err != nil {
		return err
	}
	c, err := opts.newClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	// Prices are entered per whole unit, scaled by the auction's decimals.
	account, err := c.Account(ctx, auction)
	if err != nil {
		return err
	}
	if account.Auction == nil {
		return fmt.Errorf("%s is a %s account, not an auction", auction, account.Kind)
	}
	decimals := account.Auction.Decimal

	if !*outbid {
		units, err := core.ParsePrice(*price, decimals)
		if err != nil {
			return fmt.Errorf("%w: invalid --price: %v", errUsage, err)
		}
		return submit(ctx, opts, programapi.Bid{Auction: auction, Price: units})
	}

	key, err := opts.key()
	if err != nil {
		return err
	}
	step, err := core.ParsePrice(*increment, decimals)
	if err != nil {
		return fmt.Errorf("%w: invalid --increment: %v", errUsage, err)
	}
	limit, err := core.ParsePrice(*maxPrice, decimals)
	if err != nil {
		return fmt.Errorf("%w: invalid --max-price: %v", errUsage, err)
	}

	resp, placed, err := c.Outbid(ctx, auction, step, limit, key)
	if err != nil {
		return err
	}
	if resp == nil {
		logger.Info(fmt.Sprintf("Already the highest bidder at %s", core.FormatPrice(placed, decimals)))
		return nil
	}
	logger.Info(fmt.Sprintf("Bid placed at %s", core.FormatPrice(placed, decimals)))
	return printJSON(resp)
}

func auctionCommand(name string, build func(solana.PublicKey) programapi.Instruction) func(context.Context, *globalOptions, []string) error {
	return func(ctx context.Context, opts *globalOptions, args []string) error {
		fs := newFlagSet(name, opts)
		auctionFlag := fs.String("auction", "", "Auction address")
		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		auction, err := parsePublicKey("auction", *auctionFlag)
		if err != nil {
			return err
		}
		return submit(ctx, opts, build(auction))
	}
}

var (
	runWithdraw = auctionCommand("withdraw", func(a solana.PublicKey) programapi.Instruction { return programapi.Withdraw{Auction: a} })
	runFinalize = auctionCommand("finalize", func(a solana.PublicKey) programapi.Instruction { return programapi.Finalize{Auction: a} })
	runCancel   = auctionCommand("cancel", func(a solana.PublicKey) programapi.Instruction { return programapi.Cancel{Auction: a} })
)

func runShow(ctx context.Context, opts *globalOptions, args []string) error {
	fs := newFlagSet("show", opts)
	address := fs.String("address", "", "Show the account at this address")
	owner := fs.String("owner", "", "Show the balance of this owner (with --mint)")
	mint := fs.String("mint", "", "Mint for --owner")
	receipt := fs.String("receipt", "", "Show the settlement receipt of this auction")
	key := fs.Bool("key", false, "Show the node's receipt signing key")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	c, err := opts.newClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	switch {
	case *address != "":
		addr, err := parsePublicKey("address", *address)
		if err != nil {
			return err
		}
		resp, err := c.Account(ctx, addr)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case *owner != "":
		ownerKey, err := parsePublicKey("owner", *owner)
		if err != nil {
			return err
		}
		mintKey, err := parsePublicKey("mint", *mint)
		if err != nil {
			return err
		}
		resp, err := c.Balance(ctx, ownerKey, mintKey)
		if err != nil {
			return err
		}
		return printJSON(resp)

	case *receipt != "":
		auction, err := parsePublicKey("receipt", *receipt)
		if err != nil {
			return err
		}
		encoded, err := c.Receipt(ctx, auction)
		if err != nil {
			return err
		}
		parsed, err := encoded.ParseReceipt()
		if err != nil {
			return err
		}
		return printJSON(struct {
			ReceiptCOSEBase64 programapi.ReceiptCOSEBase64  `json:"receipt_cose_base64"`
			Receipt           *programapi.SettlementReceipt `json:"receipt"`
		}{encoded, parsed})

	case *key:
		resp, err := c.PublicKey(ctx)
		if err != nil {
			return err
		}
		logger.Info(resp.PublicKey)
		return nil

	default:
		return fmt.Errorf("%w: show needs one of --address, --owner, --receipt or --key", errUsage)
	}
}
