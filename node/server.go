package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/settlement/ledger"
	"github.com/cloudx-io/settlement/program"
)

const (
	requestTimeout       = 30 * time.Second
	guardCleanupInterval = 10 * time.Second
)

// NodeServer serves the settlement program over TCP or vsock.
type NodeServer struct {
	config    *NodeConfig
	keys      *program.KeyManager
	processor *program.Processor
}

// NewNodeServer builds the ledger, clock, signing key and processor.
func NewNodeServer(cfg *NodeConfig) (*NodeServer, error) {
	keys, err := program.NewKeyManager()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize key manager: %w", err)
	}
	log.Printf("INFO: KeyManager initialized")

	store := ledger.NewStore()
	if cfg.GenesisPath != "" {
		balances, err := ledger.LoadGenesisFile(cfg.GenesisPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load genesis: %w", err)
		}
		if err := store.ApplyGenesis(balances); err != nil {
			return nil, fmt.Errorf("failed to apply genesis: %w", err)
		}
		log.Printf("INFO: Applied %d genesis balances from %s", len(balances), cfg.GenesisPath)
	}

	clock := ledger.NewSlotClock(time.Now(), cfg.SlotDuration)
	processor := program.NewProcessor(store, clock, keys, program.Config{ProgramID: cfg.ProgramID})

	return &NodeServer{
		config:    cfg,
		keys:      keys,
		processor: processor,
	}, nil
}

func (s *NodeServer) listen() (net.Listener, error) {
	switch s.config.Transport {
	case TransportVsock:
		listener, err := vsock.Listen(s.config.Port, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create vsock listener: %w", err)
		}
		return listener, nil
	default:
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", s.config.Port))
		if err != nil {
			return nil, fmt.Errorf("failed to create tcp listener: %w", err)
		}
		return listener, nil
	}
}

func (s *NodeServer) Start(ctx context.Context) error {
	s.processor.RequestGuard().StartExpirationCleanup(ctx, guardCleanupInterval)
	log.Printf("INFO: Request ID cleanup started (interval: %s)", guardCleanupInterval)

	listener, err := s.listen()
	if err != nil {
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Printf("ERROR: Failed to close listener: %v", err)
		}
	}()

	log.Printf("INFO: Settlement node listening on %s port %d (program %s)",
		s.config.Transport, s.config.Port, s.processor.Deriver().ProgramID)

	return s.serve(ctx, listener)
}

// serve accepts connections until ctx is done or listener is closed.
func (s *NodeServer) serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	semaphore := make(chan struct{}, s.config.MaxWorkers)
	log.Printf("INFO: Worker pool initialized with %d max concurrent workers", s.config.MaxWorkers)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			log.Printf("ERROR: Failed to accept connection: %v", err)
			continue
		}

		// Acquire worker slot - immediate rejection if pool full
		select {
		case semaphore <- struct{}{}:
			go func(c net.Conn) {
				defer func() { <-semaphore }() // Release worker slot
				s.handleConnection(ctx, c)
			}(conn)
		default:
			log.Printf("INFO: No workers available, rejecting connection (pool full)")
			if err := conn.Close(); err != nil {
				log.Printf("ERROR: Failed to close rejected connection: %v", err)
			}
		}
	}
}

func (s *NodeServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Panic recovered in handleConnection: %v", r)
		}
		if err := conn.Close(); err != nil {
			log.Printf("ERROR: Failed to close connection: %v", err)
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(requestTimeout))

	var buf bytes.Buffer
	_, err := io.Copy(&buf, conn)
	if err != nil {
		log.Printf("ERROR: Failed to read request: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	requestType, response := s.dispatch(ctx, buf.Bytes())

	encoder := json.NewEncoder(conn)
	if err := encoder.Encode(response); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	} else {
		log.Printf("INFO: Successfully sent response for %s", requestType)
	}
}
