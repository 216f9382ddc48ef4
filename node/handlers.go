package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cloudx-io/settlement/programapi"
)

func errorResponse(format string, args ...any) programapi.ErrorResponse {
	return programapi.ErrorResponse{
		Type:    programapi.TypeError,
		Message: fmt.Sprintf(format, args...),
	}
}

// dispatch decodes one request by its type field and returns the response.
func (s *NodeServer) dispatch(ctx context.Context, data []byte) (string, any) {
	var baseReq struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &baseReq); err != nil {
		log.Printf("ERROR: Failed to decode base request: %v", err)
		return "", errorResponse("Failed to decode request: %v", err)
	}

	log.Printf("INFO: Received request type: %s", baseReq.Type)

	switch baseReq.Type {
	case programapi.TypePing:
		log.Printf("INFO: Responding to ping with pong")
		return baseReq.Type, programapi.PingResponse{
			Type:      programapi.TypePong,
			Message:   "Settlement node is healthy",
			Slot:      s.processor.Clock().Slot(),
			Timestamp: time.Now().Unix(),
		}

	case programapi.TypeKeyRequest:
		return baseReq.Type, s.handleKeyRequest()

	case programapi.TypeInstruction:
		var req programapi.InstructionRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("ERROR: Failed to decode instruction request: %v", err)
			return baseReq.Type, errorResponse("Failed to decode instruction request: %v", err)
		}
		return baseReq.Type, s.processor.Process(ctx, &req)

	case programapi.TypeAccountRequest:
		var req programapi.AccountRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("ERROR: Failed to decode account request: %v", err)
			return baseReq.Type, errorResponse("Failed to decode account request: %v", err)
		}
		return baseReq.Type, s.handleAccountRequest(req)

	case programapi.TypeBalanceRequest:
		var req programapi.BalanceRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("ERROR: Failed to decode balance request: %v", err)
			return baseReq.Type, errorResponse("Failed to decode balance request: %v", err)
		}
		return baseReq.Type, s.handleBalanceRequest(req)

	case programapi.TypeReceiptRequest:
		var req programapi.ReceiptRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("ERROR: Failed to decode receipt request: %v", err)
			return baseReq.Type, errorResponse("Failed to decode receipt request: %v", err)
		}
		return baseReq.Type, s.handleReceiptRequest(req)

	default:
		return baseReq.Type, errorResponse("Unknown request type: %s", baseReq.Type)
	}
}

func (s *NodeServer) handleKeyRequest() any {
	log.Printf("INFO: Processing key request")
	publicKey, err := s.keys.PublicKeyPEM()
	if err != nil {
		log.Printf("ERROR: Key request failed: %v", err)
		return errorResponse("Key request failed: %v", err)
	}
	return programapi.KeyResponse{
		Type:      programapi.TypeKeyResponse,
		Algorithm: programapi.ReceiptAlgorithm,
		PublicKey: publicKey,
		ProgramID: s.processor.Deriver().ProgramID,
	}
}

func (s *NodeServer) handleAccountRequest(req programapi.AccountRequest) programapi.AccountResponse {
	resp, err := s.processor.DescribeAccount(req.Address)
	if err != nil {
		log.Printf("INFO: Account request for %s failed: %v", req.Address, err)
		return programapi.AccountResponse{
			Type:    programapi.TypeAccountResponse,
			Message: err.Error(),
			Address: req.Address,
		}
	}
	return *resp
}

func (s *NodeServer) handleBalanceRequest(req programapi.BalanceRequest) programapi.BalanceResponse {
	addr, amount, err := s.processor.Balance(req.Owner, req.Mint)
	if err != nil {
		log.Printf("ERROR: Balance request for %s/%s failed: %v", req.Owner, req.Mint, err)
		return programapi.BalanceResponse{
			Type:    programapi.TypeBalanceResponse,
			Message: err.Error(),
			Address: addr,
		}
	}
	return programapi.BalanceResponse{
		Type:    programapi.TypeBalanceResponse,
		Success: true,
		Address: addr,
		Amount:  amount,
	}
}

func (s *NodeServer) handleReceiptRequest(req programapi.ReceiptRequest) programapi.ReceiptResponse {
	raw, ok := s.processor.Receipt(req.Auction)
	if !ok {
		return programapi.ReceiptResponse{
			Type:    programapi.TypeReceiptResponse,
			Message: fmt.Sprintf("no settlement receipt for auction %s", req.Auction),
		}
	}
	return programapi.ReceiptResponse{
		Type:              programapi.TypeReceiptResponse,
		Success:           true,
		ReceiptCOSEBase64: raw.EncodeBase64(),
	}
}
