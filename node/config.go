package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/ledger"
)

const (
	TransportTCP   = "tcp"
	TransportVsock = "vsock"

	defaultPort = 5000
)

// NodeConfig is read from NODE_* environment variables.
type NodeConfig struct {
	MaxWorkers   int
	Transport    string
	Port         uint32
	SlotDuration time.Duration
	ProgramID    solana.PublicKey
	GenesisPath  string
}

func loadConfig() (*NodeConfig, error) {
	maxWorkers, err := getRequiredEnvInt("NODE_MAX_WORKERS")
	if err != nil {
		return nil, fmt.Errorf("failed to get max workers config: %w", err)
	}
	if maxWorkers <= 0 {
		return nil, fmt.Errorf("NODE_MAX_WORKERS must be positive, got %d", maxWorkers)
	}

	transport := getEnvString("NODE_TRANSPORT", TransportTCP)
	if transport != TransportTCP && transport != TransportVsock {
		return nil, fmt.Errorf("invalid value for NODE_TRANSPORT: %s (must be %s or %s)", transport, TransportTCP, TransportVsock)
	}

	port, err := getEnvInt("NODE_PORT", defaultPort)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("invalid value for NODE_PORT: %d", port)
	}

	slotMillis, err := getEnvInt("NODE_SLOT_DURATION_MS", int(ledger.DefaultSlotDuration/time.Millisecond))
	if err != nil {
		return nil, err
	}
	if slotMillis <= 0 {
		return nil, fmt.Errorf("NODE_SLOT_DURATION_MS must be positive, got %d", slotMillis)
	}

	programID := core.DefaultProgramID
	if value := os.Getenv("NODE_PROGRAM_ID"); value != "" {
		programID, err = solana.PublicKeyFromBase58(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for NODE_PROGRAM_ID: %w", err)
		}
	}

	return &NodeConfig{
		MaxWorkers:   maxWorkers,
		Transport:    transport,
		Port:         uint32(port),
		SlotDuration: time.Duration(slotMillis) * time.Millisecond,
		ProgramID:    programID,
		GenesisPath:  os.Getenv("NODE_GENESIS_PATH"),
	}, nil
}

// Helper function for required environment variable parsing
func getRequiredEnvInt(key string) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, fmt.Errorf("required environment variable %s is not set", key)
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %s (must be a valid integer)", key, value)
	}

	log.Printf("INFO: Using %s=%d from environment", key, intValue)
	return intValue, nil
}

func getEnvInt(key string, fallback int) (int, error) {
	if os.Getenv(key) == "" {
		return fallback, nil
	}
	return getRequiredEnvInt(key)
}

func getEnvString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		log.Printf("INFO: Using %s=%s from environment", key, value)
		return value
	}
	return fallback
}
