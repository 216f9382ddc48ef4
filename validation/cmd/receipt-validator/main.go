package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/cloudx-io/settlement/programapi"
	"github.com/cloudx-io/settlement/validation"
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

// receiptFile matches both InstructionResponse and ReceiptResponse JSON.
type receiptFile struct {
	ReceiptCOSEBase64 programapi.ReceiptCOSEBase64 `json:"receipt_cose_base64"`
}

func main() {
	var (
		receiptPath   = flag.String("receipt", "", "Path to finalize/cancel or receipt response JSON file (required)")
		publicKeyPath = flag.String("public-key", "", "Path to node public key PEM file (required)")
		auction       = flag.String("auction", "", "Auction address the receipt must cover")
		winner        = flag.String("winner", "", "Expected winner address")
		noWinner      = flag.Bool("no-winner", false, "Expect the auction to close without a winner")
		outputFormat  = flag.String("format", "text", "Output format: text or json")
		help          = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	if *help || *receiptPath == "" || *publicKeyPath == "" {
		showUsage()
		if *receiptPath == "" || *publicKeyPath == "" {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *noWinner && *winner != "" {
		fmt.Fprintln(os.Stderr, "Error: --winner and --no-winner are mutually exclusive")
		os.Exit(2)
	}

	receipt, err := readReceipt(*receiptPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading receipt: %v\n", err)
		os.Exit(2)
	}

	publicKey, err := os.ReadFile(*publicKeyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading public key: %v\n", err)
		os.Exit(2)
	}

	input := &validation.ReceiptValidationInput{
		ReceiptCOSEBase64: receipt,
		PublicKeyPEM:      string(publicKey),
		Auction:           *auction,
	}
	switch {
	case *noWinner:
		empty := ""
		input.ExpectedWinner = &empty
	case *winner != "":
		input.ExpectedWinner = winner
	}

	result, err := validation.ValidateSettlementReceipt(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	if *outputFormat == "json" {
		if err := outputJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
			os.Exit(2)
		}
	} else {
		outputText(result)
	}

	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	logger.Info("Settlement Receipt Validator")
	logger.Info("")
	logger.Info("Verifies a signed settlement receipt against the node's public key")
	logger.Info("and recomputes its hashes, fee split and value conservation.")
	logger.Info("")
	logger.Info("Usage:")
	logger.Info("  receipt-validator --receipt <path> --public-key <pem> [options]")
	logger.Info("")
	logger.Info("Required Flags:")
	logger.Info("  --receipt <path>                  Path to response JSON carrying receipt_cose_base64")
	logger.Info("  --public-key <path>               Path to node public key PEM file")
	logger.Info("")
	logger.Info("Optional Flags:")
	logger.Info("  --auction <address>               Auction address the receipt must cover")
	logger.Info("  --winner <address>                Expected winner")
	logger.Info("  --no-winner                       Expect a cancelled auction with no winner")
	logger.Info("  --format <text|json>              Output format (default: text)")
	logger.Info("  --help                            Show this help message")
	logger.Info("")
	logger.Info("Examples:")
	logger.Info("  receipt-validator --receipt finalize.json --public-key node.pem")
	logger.Info("  receipt-validator --receipt finalize.json --public-key node.pem --winner <address> --format json")
	logger.Info("")
	logger.Info("Exit Codes:")
	logger.Info("  0 - Validation passed")
	logger.Info("  1 - Validation failed")
	logger.Info("  2 - Invalid input or runtime error")
}

func readReceipt(path string) (programapi.ReceiptCOSEBase64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var file receiptFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("failed to parse JSON: %w", err)
	}

	if file.ReceiptCOSEBase64 == "" {
		return "", fmt.Errorf("missing receipt_cose_base64 field")
	}
	return file.ReceiptCOSEBase64, nil
}

func outputText(result *validation.ReceiptValidationResult) {
	logger.Info("Settlement Receipt Validator")
	logger.Info("============================")
	logger.Info("")

	if r := result.Receipt; r != nil {
		logger.Info("Receipt:")
		logger.Info(fmt.Sprintf("  Auction:       %s", r.Auction))
		logger.Info(fmt.Sprintf("  Status:        %s", r.Status))
		if r.Winner != "" {
			logger.Info(fmt.Sprintf("  Winner:        %s", r.Winner))
		}
		logger.Info(fmt.Sprintf("  Escrow:        %d", r.Escrow))
		logger.Info(fmt.Sprintf("  Fee:           %d (%d bps)", r.Fee, r.FeeBps))
		logger.Info(fmt.Sprintf("  Seller Payout: %d", r.SellerPayout))
		logger.Info(fmt.Sprintf("  Slot:          %d", r.Slot))
		logger.Info("")
	}

	logger.Info("Details:")
	for _, detail := range result.ValidationDetails {
		logger.Info("  " + detail)
	}

	logger.Info("")
	logger.Info("Summary:")
	logger.Info(fmt.Sprintf("  Signature Valid:    %v", result.SignatureValid))
	logger.Info(fmt.Sprintf("  Hashes Valid:       %v", result.HashValid))
	logger.Info(fmt.Sprintf("  Fee Split Valid:    %v", result.FeeValid))
	logger.Info(fmt.Sprintf("  Value Conserved:    %v", result.ConservationValid))
	logger.Info(fmt.Sprintf("  Auction Match:      %v", result.AuctionMatch))
	logger.Info(fmt.Sprintf("  Winner Valid:       %v", result.WinnerValid))

	logger.Info("")
	logger.Info("============================")
	if result.IsValid() {
		logger.Info("VALIDATION: ✓ PASSED")
		logger.Info("Exit Code: 0")
	} else {
		logger.Info("VALIDATION: ✗ FAILED")
		logger.Info("Exit Code: 1")
	}
}

func outputJSON(result *validation.ReceiptValidationResult) error {
	output := map[string]any{
		"valid":              result.IsValid(),
		"signature_valid":    result.SignatureValid,
		"hash_valid":         result.HashValid,
		"fee_valid":          result.FeeValid,
		"conservation_valid": result.ConservationValid,
		"auction_match":      result.AuctionMatch,
		"winner_valid":       result.WinnerValid,
		"receipt":            result.Receipt,
		"details":            result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return err
	}
	logger.Info(string(data))
	return nil
}
