package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestParsePublicKey(t *testing.T) {
	want := solana.NewWallet().PublicKey()

	got, err := parsePublicKey("auction", want.String())
	assert.NoError(t, err)
	check.True(t, got.Equals(want))

	_, err = parsePublicKey("auction", "")
	check.True(t, errors.Is(err, errUsage))

	_, err = parsePublicKey("auction", "0OIl")
	check.True(t, errors.Is(err, errUsage))
}

func TestGlobalOptions(t *testing.T) {
	opts := &globalOptions{transport: "udp"}
	_, err := opts.newClient()
	check.Error(t, err)

	opts.transport = "vsock"
	_, err = opts.newClient()
	check.NoError(t, err)

	_, err = opts.key()
	check.True(t, errors.Is(err, errUsage))
}

func TestGlobalOptions_Keypair(t *testing.T) {
	wallet := solana.NewWallet()
	path := filepath.Join(t.TempDir(), "id.json")

	// solana-keygen files hold the 64-byte key as a JSON array of numbers.
	values := make([]int, len(wallet.PrivateKey))
	for i, b := range wallet.PrivateKey {
		values[i] = int(b)
	}
	data, err := json.Marshal(values)
	assert.NoError(t, err)
	assert.NoError(t, os.WriteFile(path, data, 0o600))

	opts := &globalOptions{keypair: path}
	key, err := opts.key()
	assert.NoError(t, err)
	check.True(t, key.PublicKey().Equals(wallet.PublicKey()))
}

func TestUsageErrors(t *testing.T) {
	ctx := context.Background()
	auction := solana.NewWallet().PublicKey().String()

	tests := []struct {
		name string
		run  func(context.Context, *globalOptions, []string) error
		args []string
	}{
		{"init-house without name", runInitHouse, []string{"--fee-bps", "10"}},
		{"init-house fee too high", runInitHouse, []string{"--name", "main", "--fee-bps", "10001"}},
		{"init-auction without house", runInitAuction, []string{"--starting-price", "2.0"}},
		{"init-auction bad price", runInitAuction, []string{
			"--house", auction, "--mint-a", auction, "--mint-b", auction, "--starting-price", "two",
		}},
		{"bid without auction", runBid, []string{"--price", "3.0"}},
		{"finalize without auction", runFinalize, nil},
		{"withdraw bad auction", runWithdraw, []string{"--auction", "nope!"}},
		{"show without target", runShow, nil},
		{"unknown flag", runCancel, []string{"--bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(ctx, &globalOptions{}, tt.args)
			check.True(t, errors.Is(err, errUsage))
		})
	}
}
