package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/mdlayher/vsock"

	"github.com/cloudx-io/settlement/core"
	"github.com/cloudx-io/settlement/programapi"
)

// DefaultTimeout bounds one request when ctx carries no deadline.
const DefaultTimeout = 30 * time.Second

// ErrNodeError is returned when the node answers with an error response.
var ErrNodeError = errors.New("node error")

// InstructionError reports an instruction the node rejected. It unwraps to
// the matching core error, so errors.Is(err, core.ErrBidTooLow) works.
type InstructionError struct {
	Instruction string
	Code        string
	Message     string
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("%s rejected (%s): %s", e.Instruction, e.Code, e.Message)
}

func (e *InstructionError) Unwrap() error {
	return core.ErrorForCode(e.Code)
}

// Dialer opens one connection per request.
type Dialer func(ctx context.Context) (net.Conn, error)

// TCPDialer dials a node listening on a TCP address.
func TCPDialer(addr string) Dialer {
	return func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
}

// VsockDialer dials a node listening on a vsock port of the VM with context ID cid.
func VsockDialer(cid, port uint32) Dialer {
	return func(_ context.Context) (net.Conn, error) {
		return vsock.Dial(cid, port, nil)
	}
}

// Client sends requests to a settlement node.
type Client struct {
	dial    Dialer
	timeout time.Duration
}

func New(dial Dialer) *Client {
	return &Client{dial: dial, timeout: DefaultTimeout}
}

// NewTCP returns a client for the node at addr.
func NewTCP(addr string) *Client {
	return New(TCPDialer(addr))
}

// NewVsock returns a client for the node at cid:port.
func NewVsock(cid, port uint32) *Client {
	return New(VsockDialer(cid, port))
}

type closeWriter interface {
	CloseWrite() error
}

// do writes req, half-closes the connection so the node sees the end of the
// request, then decodes one response into resp.
func (c *Client) do(ctx context.Context, req, resp any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial node: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	if cw, ok := conn.(closeWriter); ok {
		if err := cw.CloseWrite(); err != nil {
			return fmt.Errorf("close request stream: %w", err)
		}
	}

	data, err := io.ReadAll(conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("%w: connection closed without a response (worker pool full?)", ErrNodeError)
	}

	var base struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if base.Type == programapi.TypeError {
		return fmt.Errorf("%w: %s", ErrNodeError, base.Message)
	}

	if err := json.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("decode %s: %w", base.Type, err)
	}
	return nil
}

// Ping checks the node is serving and returns its current slot.
func (c *Client) Ping(ctx context.Context) (*programapi.PingResponse, error) {
	var resp programapi.PingResponse
	if err := c.do(ctx, map[string]string{"type": programapi.TypePing}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PublicKey fetches the node's receipt signing key.
func (c *Client) PublicKey(ctx context.Context) (*programapi.KeyResponse, error) {
	var resp programapi.KeyResponse
	if err := c.do(ctx, map[string]string{"type": programapi.TypeKeyRequest}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit signs ix with key and sends it. A rejected instruction returns the
// response together with an *InstructionError.
func (c *Client) Submit(ctx context.Context, ix programapi.Instruction, key solana.PrivateKey) (*programapi.InstructionResponse, error) {
	req, err := programapi.NewSignedRequest(ix, key)
	if err != nil {
		return nil, err
	}

	var resp programapi.InstructionResponse
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return &resp, &InstructionError{
			Instruction: ix.InstructionName(),
			Code:        resp.ErrorCode,
			Message:     resp.Message,
		}
	}
	return &resp, nil
}

// Account fetches and decodes the record at addr.
func (c *Client) Account(ctx context.Context, addr solana.PublicKey) (*programapi.AccountResponse, error) {
	var resp programapi.AccountResponse
	req := programapi.AccountRequest{Type: programapi.TypeAccountRequest, Address: addr}
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrNodeError, resp.Message)
	}
	return &resp, nil
}

// Balance returns owner's associated balance of mint.
func (c *Client) Balance(ctx context.Context, owner, mint solana.PublicKey) (*programapi.BalanceResponse, error) {
	var resp programapi.BalanceResponse
	req := programapi.BalanceRequest{Type: programapi.TypeBalanceRequest, Owner: owner, Mint: mint}
	if err := c.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%w: %s", ErrNodeError, resp.Message)
	}
	return &resp, nil
}

// Receipt fetches the signed settlement receipt of a closed auction.
func (c *Client) Receipt(ctx context.Context, auction solana.PublicKey) (programapi.ReceiptCOSEBase64, error) {
	var resp programapi.ReceiptResponse
	req := programapi.ReceiptRequest{Type: programapi.TypeReceiptRequest, Auction: auction}
	if err := c.do(ctx, req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("%w: %s", ErrNodeError, resp.Message)
	}
	return resp.ReceiptCOSEBase64, nil
}
