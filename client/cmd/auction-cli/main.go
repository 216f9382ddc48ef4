package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/cloudx-io/settlement/client"
)

// plainTextHandler is a simple slog handler that writes plain text to stdout
// without timestamps or log levels - appropriate for CLI output
type plainTextHandler struct{}

func (*plainTextHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (*plainTextHandler) Handle(_ context.Context, r slog.Record) error {
	_, err := fmt.Fprintln(os.Stdout, r.Message)
	return err
}

func (h *plainTextHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *plainTextHandler) WithGroup(_ string) slog.Handler {
	return h
}

var logger = slog.New(&plainTextHandler{})

var errUsage = errors.New("usage")

// globalOptions select the node and the signing key.
type globalOptions struct {
	node      string
	transport string
	cid       uint
	port      uint
	keypair   string
	timeout   time.Duration
}

func (o *globalOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&o.node, "node", "127.0.0.1:5000", "Node TCP address")
	fs.StringVar(&o.transport, "transport", "tcp", "Transport: tcp or vsock")
	fs.UintVar(&o.cid, "cid", 16, "Node VM context ID (vsock)")
	fs.UintVar(&o.port, "port", 5000, "Node port (vsock)")
	fs.StringVar(&o.keypair, "keypair", "", "Path to a solana-keygen JSON keypair")
	fs.DurationVar(&o.timeout, "timeout", client.DefaultTimeout, "Request timeout")
}

func (o *globalOptions) newClient() (*client.Client, error) {
	switch o.transport {
	case "tcp":
		return client.NewTCP(o.node), nil
	case "vsock":
		return client.NewVsock(uint32(o.cid), uint32(o.port)), nil
	default:
		return nil, fmt.Errorf("invalid transport %q (must be tcp or vsock)", o.transport)
	}
}

func (o *globalOptions) key() (solana.PrivateKey, error) {
	if o.keypair == "" {
		return nil, fmt.Errorf("%w: --keypair is required", errUsage)
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(o.keypair)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair: %w", err)
	}
	return key, nil
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, opts *globalOptions, args []string) error
}

var commands = []command{
	{"init-house", "Create an auction house (fee registry)", runInitHouse},
	{"init-auction", "Open an auction and deposit the lot", runInitAuction},
	{"bid", "Bid on an auction, escrowing the payment", runBid},
	{"withdraw", "Reclaim the escrow of a losing or settled bid", runWithdraw},
	{"finalize", "Settle an ended auction with bids", runFinalize},
	{"cancel", "Close an ended auction without bids", runCancel},
	{"show", "Show an account, a balance, a receipt or the node key", runShow},
}

func main() {
	if len(os.Args) < 2 || os.Args[1] == "help" || os.Args[1] == "--help" || os.Args[1] == "-h" {
		showUsage()
		os.Exit(0)
	}

	name := os.Args[1]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		opts := &globalOptions{}
		err := cmd.run(context.Background(), opts, os.Args[2:])
		switch {
		case err == nil:
			os.Exit(0)
		case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
	showUsage()
	os.Exit(2)
}

func showUsage() {
	logger.Info("Auction CLI")
	logger.Info("")
	logger.Info("Submits signed instructions to a settlement node and inspects its state.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  auction-cli <command> [flags]")
	logger.Info("")
	logger.Info("Commands:")
	for _, cmd := range commands {
		logger.Info(fmt.Sprintf("  %-14s %s", cmd.name, cmd.summary))
	}
	logger.Info("")
	logger.Info("Connection Flags (all commands):")
	logger.Info("  --node <host:port>                Node TCP address (default: 127.0.0.1:5000)")
	logger.Info("  --transport <tcp|vsock>           Transport (default: tcp)")
	logger.Info("  --cid <id> --port <port>          Node vsock address")
	logger.Info("  --keypair <path>                  solana-keygen keypair that signs instructions")
	logger.Info("")
	logger.Info("Examples:")
	logger.Info("  auction-cli init-house --keypair admin.json --name main --fee-bps 250")
	logger.Info("  auction-cli bid --keypair bidder.json --auction <address> --price 3.0")
	logger.Info("  auction-cli show --receipt <auction> > receipt.json")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Success")
	logger.Info("  1 - Request failed or instruction rejected")
	logger.Info("  2 - Invalid usage")
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
