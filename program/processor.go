package program

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/ledger"
	"github.com/cloudx-io/settlement/programapi"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxAttempts   = 8
	DefaultRequestMaxAge = 2 * time.Minute
)

// Config tunes a Processor.
type Config struct {
	ProgramID     solana.PublicKey
	MaxAttempts   int           // attempts per instruction when transactions conflict
	RequestMaxAge time.Duration // accepted age of request IDs
}

// Processor executes program instructions against a ledger store. Each
// instruction runs in its own optimistic transaction and is retried from a
// fresh read when it conflicts with a concurrent instruction.
type Processor struct {
	store       *ledger.Store
	clock       ledger.Clock
	deriver     core.Deriver
	keys        *KeyManager
	guard       *RequestGuard
	maxAttempts int

	mu       sync.RWMutex
	receipts map[solana.PublicKey]programapi.ReceiptCOSE
}

// NewProcessor wires a Processor. keys may be nil, in which case no receipts
// are produced.
func NewProcessor(store *ledger.Store, clock ledger.Clock, keys *KeyManager, cfg Config) *Processor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RequestMaxAge <= 0 {
		cfg.RequestMaxAge = DefaultRequestMaxAge
	}
	return &Processor{
		store:       store,
		clock:       clock,
		deriver:     core.NewDeriver(cfg.ProgramID),
		keys:        keys,
		guard:       NewRequestGuard(cfg.RequestMaxAge),
		maxAttempts: cfg.MaxAttempts,
		receipts:    make(map[solana.PublicKey]programapi.ReceiptCOSE),
	}
}

func (p *Processor) Deriver() core.Deriver { return p.deriver }
func (p *Processor) Store() *ledger.Store { return p.store }
func (p *Processor) Clock() ledger.Clock { return p.clock }
func (p *Processor) RequestGuard() *RequestGuard { return p.guard }

// Result describes a committed instruction.
type Result struct {
	TransactionID uuid.UUID
	Slot          uint64
	Attempts      int
	Addresses     map[string]solana.PublicKey
	Settlement    *core.Settlement
	Receipt       programapi.ReceiptCOSE
}

// Execute runs ix signed by signer. Instruction errors abort without
// committing anything and are never retried; only transaction conflicts are.
func (p *Processor) Execute(ctx context.Context, signer solana.PublicKey, ix programapi.Instruction) (*Result, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tx := p.store.Begin()
		exec := &execution{
			tx:      tx,
			deriver: p.deriver,
			signer:  signer,
			slot:    p.clock.Slot(),
			result: &Result{
				TransactionID: tx.ID,
				Attempts:      attempt,
				Addresses:     make(map[string]solana.PublicKey),
			},
		}
		exec.result.Slot = exec.slot

		if err := exec.apply(ix); err != nil {
			tx.Discard()
			return nil, err
		}

		if exec.receipt != nil && p.keys != nil {
			raw, err := p.keys.SignReceipt(exec.receipt)
			if err != nil {
				tx.Discard()
				return nil, err
			}
			exec.result.Receipt = raw
		}

		err := tx.Commit()
		if errors.Is(err, ledger.ErrConflict) {
			log.Printf("WARNING: %s attempt %d conflicted, retrying: %v", ix.InstructionName(), attempt, err)
			continue
		}
		if err != nil {
			return nil, err
		}

		if exec.result.Receipt != nil {
			p.mu.Lock()
			p.receipts[exec.result.Addresses[RoleAuction]] = exec.result.Receipt
			p.mu.Unlock()
		}
		return exec.result, nil
	}
	return nil, fmt.Errorf("%s: gave up after %d attempts: %w", ix.InstructionName(), p.maxAttempts, ledger.ErrConflict)
}

// Process verifies, deduplicates and executes one signed request.
func (p *Processor) Process(ctx context.Context, req *programapi.InstructionRequest) programapi.InstructionResponse {
	startTime := time.Now()
	resp := programapi.InstructionResponse{
		Type:      programapi.TypeInstructionResp,
		RequestID: req.RequestID,
	}

	fail := func(err error) programapi.InstructionResponse {
		resp.Success = false
		resp.Message = err.Error()
		resp.ErrorCode = ErrorCode(err)
		resp.Slot = p.clock.Slot()
		resp.ProcessingTime = time.Since(startTime).Milliseconds()
		log.Printf("INFO: Request %s rejected: %s (%v)", req.RequestID, resp.ErrorCode, err)
		return resp
	}

	if err := req.Verify(); err != nil {
		return fail(fmt.Errorf("%w: %v", core.ErrUnauthorized, err))
	}
	if err := p.guard.Consume(req.RequestID); err != nil {
		return fail(err)
	}

	ix, err := programapi.DecodeInstruction(req.Data)
	if err != nil {
		return fail(err)
	}
	resp.Instruction = ix.InstructionName()
	log.Printf("INFO: Processing %s from %s (request %s)", ix.InstructionName(), req.Signer, req.RequestID)

	result, err := p.Execute(ctx, req.Signer, ix)
	if err != nil {
		return fail(err)
	}

	resp.Success = true
	resp.Message = fmt.Sprintf("%s committed at slot %d", ix.InstructionName(), result.Slot)
	resp.TransactionID = result.TransactionID.String()
	resp.Slot = result.Slot
	resp.Addresses = make(map[string]string, len(result.Addresses))
	for role, addr := range result.Addresses {
		resp.Addresses[role] = addr.String()
	}
	if result.Receipt != nil {
		resp.ReceiptCOSEBase64 = result.Receipt.EncodeBase64()
	}
	resp.ProcessingTime = time.Since(startTime).Milliseconds()

	log.Printf("INFO: %s complete: tx=%s, slot=%d, attempts=%d, processing=%dms",
		ix.InstructionName(), resp.TransactionID, result.Slot, result.Attempts, resp.ProcessingTime)
	return resp
}

// Receipt returns the signed settlement receipt of a closed auction.
func (p *Processor) Receipt(auction solana.PublicKey) (programapi.ReceiptCOSE, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	raw, ok := p.receipts[auction]
	return raw, ok
}

// ErrorCode returns the stable code reported for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrReplayedRequest):
		return "ReplayedRequest"
	case errors.Is(err, ErrStaleRequest):
		return "StaleRequest"
	case errors.Is(err, programapi.ErrUnknownInstruction):
		return "UnknownInstruction"
	case errors.Is(err, ledger.ErrConflict):
		return "Conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	}
	return core.ErrorCode(err)
}

func generateNonce() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate secure nonce - %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
