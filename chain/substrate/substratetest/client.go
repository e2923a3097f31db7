package substratetest

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
)

// Fake payment info every query returns; PartialFee is one planck per byte.
const (
	RefTime   = 145_000_000
	ProofSize = 3593
)

// Client is an in-memory node. Maps are keyed by hex and may be filled
// before use.
type Client struct {
	mu sync.Mutex

	// Balances holds free balances by account id.
	Balances map[string]*big.Int
	Blocks   map[string]substrate.Block
	Events   map[string][]byte
	// Statuses scripts the status stream of an extrinsic.
	Statuses map[string][]substrate.ExtrinsicStatus
	// Open keeps the status stream of an extrinsic open after its statuses.
	Open      map[string]bool
	SubmitErr error
	// AutoBlock, when set, includes every extrinsic without scripted
	// statuses in that block with a success event.
	AutoBlock []byte

	SigningFor []string
	Queried    [][]byte
	Submitted  [][]byte

	autoEvents []Event
}

func NewClient() *Client {
	return &Client{
		Balances: map[string]*big.Int{},
		Blocks:   map[string]substrate.Block{},
		Events:   map[string][]byte{},
		Statuses: map[string][]substrate.ExtrinsicStatus{},
		Open:     map[string]bool{},
	}
}

// SetBalance sets the free balance of an account.
func (c *Client) SetBalance(accountID []byte, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[substrate.HexEncode(accountID)] = big.NewInt(amount)
}

func (c *Client) SigningInfo(_ context.Context, address string) (substrate.SigningInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SigningFor = append(c.SigningFor, address)
	return substrate.SigningInfo{
		Nonce:              1,
		BlockHash:          bytes.Repeat([]byte{0xbb}, 32),
		BlockNumber:        42,
		GenesisHash:        bytes.Repeat([]byte{0x91}, 32),
		SpecVersion:        1_002_000,
		TransactionVersion: 26,
	}, nil
}

func (c *Client) PaymentInfo(_ context.Context, extrinsic []byte) (substrate.PaymentInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Queried = append(c.Queried, extrinsic)
	return substrate.PaymentInfo{
		PartialFee: big.NewInt(int64(len(extrinsic))),
		RefTime:    RefTime,
		ProofSize:  ProofSize,
		Class:      "normal",
	}, nil
}

func (c *Client) FreeBalance(_ context.Context, accountID []byte) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.Balances[substrate.HexEncode(accountID)]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (c *Client) SubmitAndWatch(_ context.Context, extrinsic []byte) (<-chan substrate.ExtrinsicStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubmitErr != nil {
		return nil, c.SubmitErr
	}
	c.Submitted = append(c.Submitted, extrinsic)

	key := substrate.HexEncode(extrinsic)
	statuses, ok := c.Statuses[key]
	if !ok && c.AutoBlock != nil {
		statuses = []substrate.ExtrinsicStatus{{Kind: substrate.StatusInBlock, BlockHash: c.AutoBlock}}
		c.include(extrinsic)
	}
	out := make(chan substrate.ExtrinsicStatus, len(statuses))
	for _, st := range statuses {
		out <- st
	}
	if !c.Open[key] {
		close(out)
	}
	return out, nil
}

func (c *Client) include(extrinsic []byte) {
	block := substrate.HexEncode(c.AutoBlock)
	b := c.Blocks[block]
	if b.Number == 0 {
		b.Number = 1
	}
	c.autoEvents = append(c.autoEvents, ExtrinsicSuccess(uint32(len(b.Extrinsics))))
	b.Extrinsics = append(b.Extrinsics, extrinsic)
	c.Blocks[block] = b
	c.Events[block] = EncodeEvents(c.autoEvents...)
}

func (c *Client) Block(_ context.Context, blockHash []byte) (substrate.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.Blocks[substrate.HexEncode(blockHash)]
	if !ok {
		return substrate.Block{}, errors.New("unknown block")
	}
	return b, nil
}

func (c *Client) EventsAt(_ context.Context, blockHash []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Events[substrate.HexEncode(blockHash)], nil
}
