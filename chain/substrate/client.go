package substrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	gsrpc "github.com/misko9/go-substrate-rpc-client/v4"
	gstypes "github.com/misko9/go-substrate-rpc-client/v4/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("client is not connected")

// StatusKind is a transaction pool status reported while watching a submission.
type StatusKind int

const (
	StatusFuture StatusKind = iota
	StatusReady
	StatusBroadcast
	StatusInBlock
	StatusRetracted
	StatusFinalityTimeout
	StatusFinalized
	StatusUsurped
	StatusDropped
	StatusInvalid
	// StatusError reports a broken subscription; Err is set.
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusFuture:
		return "future"
	case StatusReady:
		return "ready"
	case StatusBroadcast:
		return "broadcast"
	case StatusInBlock:
		return "inBlock"
	case StatusRetracted:
		return "retracted"
	case StatusFinalityTimeout:
		return "finalityTimeout"
	case StatusFinalized:
		return "finalized"
	case StatusUsurped:
		return "usurped"
	case StatusDropped:
		return "dropped"
	case StatusInvalid:
		return "invalid"
	}
	return "error"
}

// ExtrinsicStatus is one update of a watched submission.
type ExtrinsicStatus struct {
	Kind      StatusKind
	BlockHash []byte
	Err       error
}

// PaymentInfo is the node's fee estimate for an extrinsic.
type PaymentInfo struct {
	PartialFee *big.Int
	RefTime    uint64
	ProofSize  uint64
	Class      string
}

// ParsePaymentInfo reads a payment_queryInfo result. Weight is either the
// two-dimensional {refTime, proofSize} object or a legacy scalar.
func ParsePaymentInfo(data []byte) (PaymentInfo, error) {
	if !gjson.ValidBytes(data) {
		return PaymentInfo{}, fmt.Errorf("invalid payment info %q", data)
	}
	res := gjson.ParseBytes(data)
	fee, err := parseBigInt(res.Get("partialFee").String())
	if err != nil {
		return PaymentInfo{}, fmt.Errorf("partialFee: %w", err)
	}
	info := PaymentInfo{PartialFee: fee, Class: res.Get("class").String()}
	weight := res.Get("weight")
	if weight.IsObject() {
		info.RefTime = firstOf(weight, "refTime", "ref_time").Uint()
		info.ProofSize = firstOf(weight, "proofSize", "proof_size").Uint()
	} else {
		info.RefTime = weight.Uint()
	}
	return info, nil
}

func firstOf(res gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := res.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// ClientConfig configures a node connection.
type ClientConfig struct {
	URL string
	// SS58Format overrides the address format read from System.SS58Prefix.
	SS58Format *uint16
	Attempts   uint
	Delay      time.Duration
}

// Client talks to a substrate node over JSON-RPC.
type Client struct {
	log *zap.Logger
	cfg ClientConfig
	api *gsrpc.SubstrateAPI

	mu      sync.Mutex
	meta    *gstypes.Metadata
	runtime *Runtime
}

// Dial connects to the node, retrying transient failures.
func Dial(ctx context.Context, log *zap.Logger, cfg ClientConfig) (*Client, error) {
	if cfg.Attempts == 0 {
		cfg.Attempts = 5
	}
	if cfg.Delay == 0 {
		cfg.Delay = time.Second
	}
	c := &Client{log: log.With(zap.String("url", cfg.URL)), cfg: cfg}
	if err := c.retry(ctx, func() error {
		api, err := gsrpc.NewSubstrateAPI(cfg.URL)
		if err != nil {
			return err
		}
		c.api = api
		return nil
	}); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, err)
	}
	return c, nil
}

func (c *Client) retry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(c.cfg.Attempts),
		retry.Delay(c.cfg.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Debug("Retrying node request", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

// Runtime fetches metadata once and returns the ledger context built from it.
func (c *Client) Runtime(ctx context.Context) (*Runtime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runtime != nil {
		return c.runtime, nil
	}
	if err := c.loadMetadata(ctx); err != nil {
		return nil, err
	}
	rt, err := RuntimeFromMetadata(c.meta, c.cfg.SS58Format)
	if err != nil {
		return nil, err
	}
	c.runtime = rt
	return rt, nil
}

func (c *Client) loadMetadata(ctx context.Context) error {
	if c.api == nil {
		return ErrNotConnected
	}
	if c.meta != nil {
		return nil
	}
	return c.retry(ctx, func() error {
		meta, err := c.api.RPC.State.GetMetadataLatest()
		if err != nil {
			return err
		}
		c.meta = meta
		return nil
	})
}

func (c *Client) metadata(ctx context.Context) (*gstypes.Metadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadMetadata(ctx); err != nil {
		return nil, err
	}
	return c.meta, nil
}

// SigningInfo collects nonce, versions and the finalized checkpoint for address.
func (c *Client) SigningInfo(ctx context.Context, address string) (SigningInfo, error) {
	if err := ctx.Err(); err != nil {
		return SigningInfo{}, err
	}
	if c.api == nil {
		return SigningInfo{}, ErrNotConnected
	}
	genesis, err := c.api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return SigningInfo{}, fmt.Errorf("genesis hash: %w", err)
	}
	rv, err := c.api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return SigningInfo{}, fmt.Errorf("runtime version: %w", err)
	}
	head, err := c.api.RPC.Chain.GetFinalizedHead()
	if err != nil {
		return SigningInfo{}, fmt.Errorf("finalized head: %w", err)
	}
	header, err := c.api.RPC.Chain.GetHeader(head)
	if err != nil {
		return SigningInfo{}, fmt.Errorf("header %s: %w", head.Hex(), err)
	}
	nonce, err := c.api.RPC.System.AccountNextIndex(address)
	if err != nil {
		return SigningInfo{}, fmt.Errorf("nonce of %s: %w", address, err)
	}

	return SigningInfo{
		Nonce:              uint64(nonce),
		BlockHash:          append([]byte(nil), head[:]...),
		BlockNumber:        uint64(header.Number),
		GenesisHash:        append([]byte(nil), genesis[:]...),
		SpecVersion:        uint32(rv.SpecVersion),
		TransactionVersion: uint32(rv.TransactionVersion),
	}, nil
}

// FreeBalance returns the transferable balance stored in System.Account.
func (c *Client) FreeBalance(ctx context.Context, accountID []byte) (*big.Int, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}
	key, err := gstypes.CreateStorageKey(meta, "System", "Account", accountID)
	if err != nil {
		return nil, err
	}

	var accountInfo gstypes.AccountInfo
	ok, err := c.api.RPC.State.GetStorageLatest(key, &accountInfo)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return accountInfo.Data.Free.Int, nil
}

// PaymentInfo asks the node to estimate fees for a signed (or fake-signed) extrinsic.
func (c *Client) PaymentInfo(ctx context.Context, extrinsic []byte) (PaymentInfo, error) {
	if err := ctx.Err(); err != nil {
		return PaymentInfo{}, err
	}
	if c.api == nil {
		return PaymentInfo{}, ErrNotConnected
	}
	var raw json.RawMessage
	if err := c.api.Client.Call(&raw, "payment_queryInfo", HexEncode(extrinsic)); err != nil {
		return PaymentInfo{}, fmt.Errorf("payment_queryInfo: %w", err)
	}
	return ParsePaymentInfo(raw)
}

// Block is the part of a block the submission watcher reads.
type Block struct {
	Number     uint64
	Extrinsics [][]byte
}

// Block returns the number and raw extrinsics of a block.
func (c *Client) Block(ctx context.Context, blockHash []byte) (Block, error) {
	if err := ctx.Err(); err != nil {
		return Block{}, err
	}
	if c.api == nil {
		return Block{}, ErrNotConnected
	}
	var raw json.RawMessage
	if err := c.api.Client.Call(&raw, "chain_getBlock", HexEncode(blockHash)); err != nil {
		return Block{}, fmt.Errorf("chain_getBlock: %w", err)
	}
	return ParseBlock(raw)
}

// ParseBlock reads a chain_getBlock result.
func ParseBlock(data []byte) (Block, error) {
	if !gjson.ValidBytes(data) {
		return Block{}, fmt.Errorf("invalid block %q", data)
	}
	res := gjson.ParseBytes(data)
	number, err := strconv.ParseUint(strings.TrimPrefix(res.Get("block.header.number").String(), "0x"), 16, 64)
	if err != nil {
		return Block{}, fmt.Errorf("block number: %w", err)
	}
	b := Block{Number: number}
	for _, ext := range res.Get("block.extrinsics").Array() {
		data, err := HexDecode(ext.String())
		if err != nil {
			return Block{}, fmt.Errorf("block extrinsic: %w", err)
		}
		b.Extrinsics = append(b.Extrinsics, data)
	}
	return b, nil
}

// EventsAt returns the raw System.Events storage value at a block.
func (c *Client) EventsAt(ctx context.Context, blockHash []byte) ([]byte, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}
	key, err := gstypes.CreateStorageKey(meta, "System", "Events", nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.api.RPC.State.GetStorageRaw(key, gstypes.NewHash(blockHash))
	if err != nil {
		return nil, fmt.Errorf("events at %s: %w", HexEncode(blockHash), err)
	}
	if raw == nil {
		return nil, nil
	}
	return []byte(*raw), nil
}

// SubmitAndWatch submits the extrinsic and streams its pool status. The
// channel is closed once the subscription ends or ctx is done.
func (c *Client) SubmitAndWatch(ctx context.Context, extrinsic []byte) (<-chan ExtrinsicStatus, error) {
	if c.api == nil {
		return nil, ErrNotConnected
	}
	updates := make(chan gstypes.ExtrinsicStatus)
	sub, err := c.api.Client.Subscribe(ctx, "author", "submitAndWatchExtrinsic", "unwatchExtrinsic",
		"extrinsicUpdate", updates, HexEncode(extrinsic))
	if err != nil {
		return nil, fmt.Errorf("submit extrinsic: %w", err)
	}

	out := make(chan ExtrinsicStatus)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			var st ExtrinsicStatus
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err == nil {
					return
				}
				st = ExtrinsicStatus{Kind: StatusError, Err: err}
			case u := <-updates:
				st = convertStatus(u)
			}
			select {
			case out <- st:
			case <-ctx.Done():
				return
			}
			if st.Kind == StatusError {
				return
			}
		}
	}()
	return out, nil
}

func convertStatus(s gstypes.ExtrinsicStatus) ExtrinsicStatus {
	switch {
	case s.IsReady:
		return ExtrinsicStatus{Kind: StatusReady}
	case s.IsBroadcast:
		return ExtrinsicStatus{Kind: StatusBroadcast}
	case s.IsInBlock:
		return ExtrinsicStatus{Kind: StatusInBlock, BlockHash: append([]byte(nil), s.AsInBlock[:]...)}
	case s.IsRetracted:
		return ExtrinsicStatus{Kind: StatusRetracted, BlockHash: append([]byte(nil), s.AsRetracted[:]...)}
	case s.IsFinalityTimeout:
		return ExtrinsicStatus{Kind: StatusFinalityTimeout, BlockHash: append([]byte(nil), s.AsFinalityTimeout[:]...)}
	case s.IsFinalized:
		return ExtrinsicStatus{Kind: StatusFinalized, BlockHash: append([]byte(nil), s.AsFinalized[:]...)}
	case s.IsUsurped:
		return ExtrinsicStatus{Kind: StatusUsurped}
	case s.IsDropped:
		return ExtrinsicStatus{Kind: StatusDropped}
	case s.IsInvalid:
		return ExtrinsicStatus{Kind: StatusInvalid}
	}
	return ExtrinsicStatus{Kind: StatusFuture}
}

// Close releases the connection.
func (c *Client) Close() {
	if c.api != nil {
		c.api.Client.Close()
	}
}
