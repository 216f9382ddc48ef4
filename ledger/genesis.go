package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
)

// GenesisBalance funds owner's custody account for mint at startup.
type GenesisBalance struct {
	Owner  solana.PublicKey `json:"owner"`
	Mint   solana.PublicKey `json:"mint"`
	Amount uint64           `json:"amount"`
}

// GenesisConfig is the on-disk genesis file.
type GenesisConfig struct {
	Balances []GenesisBalance `json:"balances"`
}

// LoadGenesisFile loads genesis balances from a JSON file
func LoadGenesisFile(path string) ([]GenesisBalance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read genesis file: %w", err)
	}

	var config GenesisConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse genesis file: %w", err)
	}

	if len(config.Balances) == 0 {
		return nil, fmt.Errorf("no balances found in genesis file")
	}

	return config.Balances, nil
}

// ApplyGenesis funds each balance into the owner's associated custody
// account for the mint.
func (s *Store) ApplyGenesis(balances []GenesisBalance) error {
	for i, b := range balances {
		addr, _, err := solana.FindAssociatedTokenAddress(b.Owner, b.Mint)
		if err != nil {
			return fmt.Errorf("genesis balance %d: %w", i, err)
		}
		if err := s.Fund(addr, b.Mint, b.Owner, b.Amount); err != nil {
			return fmt.Errorf("genesis balance %d: %w", i, err)
		}
	}
	return nil
}
