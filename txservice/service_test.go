package txservice_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/chain/substrate/substratetest"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
	"github.com/novasamatech/nova-spektr-sub000/txservice"
)

const chainID = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"

func newService(t *testing.T, client *substratetest.Client) *txservice.Service {
	return txservice.New(zaptest.NewLogger(t), chainID, client, substratetest.Runtime(t), nil)
}

func transferTx(t *testing.T, value string) transaction.Transaction {
	return transaction.Transaction{
		ChainID: chainID,
		Address: substratetest.Address(t, "alice"),
		Type:    transaction.Transfer,
		Args:    transaction.Args{"dest": substratetest.Address(t, "bob"), "value": value},
	}
}

func TestEstimateFee(t *testing.T) {
	client := substratetest.NewClient()
	svc := newService(t, client)

	fee, err := svc.EstimateFee(context.Background(), transferTx(t, "1000"))
	require.NoError(t, err)
	require.Len(t, client.Queried, 1)
	require.Equal(t, int64(len(client.Queried[0])), fee.Int64())
	require.Equal(t, []string{substratetest.Address(t, "alice")}, client.SigningFor)

	weight, err := svc.EstimateWeight(context.Background(), transferTx(t, "1000"))
	require.NoError(t, err)
	require.Equal(t, transaction.Weight{RefTime: substratetest.RefTime, ProofSize: substratetest.ProofSize}, weight)

	_, err = svc.EstimateFee(context.Background(), transaction.Transaction{ChainID: chainID, Type: "SWAP"})
	require.ErrorContains(t, err, `unknown transaction type "SWAP"`)
}

func TestEstimateFees(t *testing.T) {
	client := substratetest.NewClient()
	svc := newService(t, client)

	txs := []transaction.Transaction{
		transferTx(t, "1"),
		transferTx(t, "1000000000000000000"),
		{ChainID: chainID, Address: substratetest.Address(t, "alice"), Type: transaction.Chill, Args: transaction.Args{}},
	}
	fees, err := svc.EstimateFees(context.Background(), txs)
	require.NoError(t, err)
	require.Len(t, fees, len(txs))
	for i, tx := range txs {
		want, err := svc.EstimateFee(context.Background(), tx)
		require.NoError(t, err)
		require.Equal(t, want, fees[i], i)
	}

	txs = append(txs, transaction.Transaction{ChainID: chainID, Address: substratetest.Address(t, "alice"), Type: transaction.Transfer, Args: transaction.Args{}})
	_, err = svc.EstimateFees(context.Background(), txs)
	require.ErrorContains(t, err, "transaction 3")
}

func TestCheckBalance(t *testing.T) {
	client := substratetest.NewClient()
	client.Balances[substrate.HexEncode(substratetest.AccountID("alice"))] = big.NewInt(1_000)
	svc := newService(t, client)
	alice := substratetest.Address(t, "alice")

	require.NoError(t, svc.CheckBalance(context.Background(), alice, big.NewInt(1_000)))

	err := svc.CheckBalance(context.Background(), alice, big.NewInt(1_001))
	require.ErrorIs(t, err, txservice.ErrInsufficientBalance)

	err = svc.CheckBalance(context.Background(), substratetest.Address(t, "bob"), big.NewInt(1))
	require.ErrorIs(t, err, txservice.ErrInsufficientBalance)

	_, err = svc.CheckFeeBalance(context.Background(), transferTx(t, "900"), big.NewInt(900))
	require.ErrorIs(t, err, txservice.ErrInsufficientBalance)

	fee, err := svc.CheckFeeBalance(context.Background(), transferTx(t, "1"), big.NewInt(1))
	require.NoError(t, err)
	require.Positive(t, fee.Int64())
}

func TestVerifySignature(t *testing.T) {
	svc := newService(t, substratetest.NewClient())
	signer, err := substrate.DevSigner(substrate.Ed25519, "alice")
	require.NoError(t, err)

	payload := []byte("payload")
	sig, err := signer.Sign(payload)
	require.NoError(t, err)

	ok, err := svc.VerifySignature(substrate.Ed25519, signer.PublicKey(), payload, sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.VerifySignature(substrate.Ed25519, signer.PublicKey(), []byte("other"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDispatchError(t *testing.T) {
	svc := newService(t, substratetest.NewClient())
	require.Equal(t, "Bad Origin", svc.DispatchError("BadOrigin"))
	require.Equal(t, "proxy: Not Found", svc.DispatchError(map[string]any{"Module": map[string]any{
		"index": big.NewInt(substratetest.ProxyIndex),
		"error": []byte{1, 0, 0, 0},
	}}))
}

func extrinsic(b byte) *substrate.SignedExtrinsic {
	data := []byte{0x84, b, b, b}
	return &substrate.SignedExtrinsic{Data: data, Hash: substrate.Blake2b256(data)}
}

type outcome struct {
	ok  bool
	res txservice.Result
}

func submit(t *testing.T, svc *txservice.Service, ctx context.Context, ext *substrate.SignedExtrinsic) []outcome {
	t.Helper()
	var got []outcome
	svc.Submit(ctx, ext, func(ok bool, res txservice.Result) {
		got = append(got, outcome{ok, res})
	})
	return got
}

func TestSubmit(t *testing.T) {
	ext := extrinsic(1)
	other := extrinsic(2)
	blockHash := bytes.Repeat([]byte{0xaa}, 32)
	balancesErr := substratetest.ModuleError{Pallet: substratetest.BalancesIndex, Error: 2}
	multisig := substratetest.AccountID("multisig")
	alice := substratetest.AccountID("alice")
	callHash := substrate.Blake2b256([]byte("call"))

	inBlock := []substrate.ExtrinsicStatus{
		{Kind: substrate.StatusReady},
		{Kind: substrate.StatusBroadcast},
		{Kind: substrate.StatusInBlock, BlockHash: blockHash},
	}

	tests := []struct {
		name     string
		statuses []substrate.ExtrinsicStatus
		events   []substratetest.Event
		ok       bool
		check    func(t *testing.T, res txservice.Result)
	}{
		{
			name:     "success scoped to own index",
			statuses: inBlock,
			events: []substratetest.Event{
				substratetest.ExtrinsicFailed(0, balancesErr),
				substratetest.BalancesTransfer(1, alice, multisig, 5),
				substratetest.ExtrinsicSuccess(1),
			},
			ok: true,
			check: func(t *testing.T, res txservice.Result) {
				require.Equal(t, transaction.Timepoint{Height: 100, Index: 1}, res.Timepoint)
				require.Equal(t, substrate.HexEncode(blockHash), res.BlockHash)
				require.Equal(t, substrate.HexEncode(ext.Hash), res.ExtrinsicHash)
				require.False(t, res.IsFinalApprove)
				require.Empty(t, res.Error)
			},
		},
		{
			name:     "failure wins over later success",
			statuses: inBlock,
			events: []substratetest.Event{
				substratetest.ExtrinsicFailed(1, balancesErr),
				substratetest.ExtrinsicSuccess(1),
			},
			check: func(t *testing.T, res txservice.Result) {
				require.Equal(t, "balances: Insufficient Balance", res.Error)
			},
		},
		{
			name:     "final multisig approval",
			statuses: inBlock,
			events: []substratetest.Event{
				substratetest.MultisigExecuted(1, alice, multisig, callHash, 90, 3, &balancesErr),
				substratetest.ExtrinsicSuccess(1),
			},
			ok: true,
			check: func(t *testing.T, res txservice.Result) {
				require.True(t, res.IsFinalApprove)
				require.Equal(t, "balances: Insufficient Balance", res.MultisigError)
			},
		},
		{
			name:     "final multisig approval executed cleanly",
			statuses: inBlock,
			events: []substratetest.Event{
				substratetest.MultisigExecuted(1, alice, multisig, callHash, 90, 3, nil),
				substratetest.ExtrinsicSuccess(1),
			},
			ok: true,
			check: func(t *testing.T, res txservice.Result) {
				require.True(t, res.IsFinalApprove)
				require.Empty(t, res.MultisigError)
			},
		},
		{
			name:     "finalized without outcome",
			statuses: append(inBlock, substrate.ExtrinsicStatus{Kind: substrate.StatusFinalized, BlockHash: blockHash}),
			events:   []substratetest.Event{substratetest.ExtrinsicSuccess(0)},
			check: func(t *testing.T, res txservice.Result) {
				require.Equal(t, "included without an outcome event", res.Error)
			},
		},
		{
			name:     "dropped",
			statuses: []substrate.ExtrinsicStatus{{Kind: substrate.StatusReady}, {Kind: substrate.StatusDropped}},
			check: func(t *testing.T, res txservice.Result) {
				require.Equal(t, "dropped", res.Error)
			},
		},
		{
			name:     "invalid",
			statuses: []substrate.ExtrinsicStatus{{Kind: substrate.StatusInvalid}},
			check: func(t *testing.T, res txservice.Result) {
				require.Equal(t, "invalid", res.Error)
			},
		},
		{
			name:     "subscription error",
			statuses: []substrate.ExtrinsicStatus{{Kind: substrate.StatusError, Err: errors.New("connection reset")}},
			check: func(t *testing.T, res txservice.Result) {
				require.Equal(t, "connection reset", res.Error)
			},
		},
		{
			name:     "stream closed early",
			statuses: []substrate.ExtrinsicStatus{{Kind: substrate.StatusReady}},
			check: func(t *testing.T, res txservice.Result) {
				require.Equal(t, "subscription closed before inclusion", res.Error)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := substratetest.NewClient()
			client.Statuses[substrate.HexEncode(ext.Data)] = tt.statuses
			client.Blocks[substrate.HexEncode(blockHash)] = substrate.Block{Number: 100, Extrinsics: [][]byte{other.Data, ext.Data}}
			client.Events[substrate.HexEncode(blockHash)] = substratetest.EncodeEvents(tt.events...)

			got := submit(t, newService(t, client), context.Background(), ext)
			require.Len(t, got, 1)
			require.Equal(t, tt.ok, got[0].ok)
			tt.check(t, got[0].res)
		})
	}
}

func TestSubmitWaitsForBlockWithExtrinsic(t *testing.T) {
	ext := extrinsic(1)
	first := bytes.Repeat([]byte{0x01}, 32)
	second := bytes.Repeat([]byte{0x02}, 32)

	client := substratetest.NewClient()
	client.Statuses[substrate.HexEncode(ext.Data)] = []substrate.ExtrinsicStatus{
		{Kind: substrate.StatusInBlock, BlockHash: first},
		{Kind: substrate.StatusRetracted, BlockHash: first},
		{Kind: substrate.StatusInBlock, BlockHash: second},
	}
	client.Blocks[substrate.HexEncode(first)] = substrate.Block{Number: 7, Extrinsics: [][]byte{extrinsic(9).Data}}
	client.Blocks[substrate.HexEncode(second)] = substrate.Block{Number: 8, Extrinsics: [][]byte{extrinsic(9).Data, extrinsic(8).Data, ext.Data}}
	client.Events[substrate.HexEncode(second)] = substratetest.EncodeEvents(substratetest.ExtrinsicSuccess(2))

	got := submit(t, newService(t, client), context.Background(), ext)
	require.Len(t, got, 1)
	require.True(t, got[0].ok)
	require.Equal(t, transaction.Timepoint{Height: 8, Index: 2}, got[0].res.Timepoint)
}

func TestSubmitCancelled(t *testing.T) {
	ext := extrinsic(1)
	client := substratetest.NewClient()
	client.Statuses[substrate.HexEncode(ext.Data)] = []substrate.ExtrinsicStatus{{Kind: substrate.StatusReady}}
	client.Open[substrate.HexEncode(ext.Data)] = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.Empty(t, submit(t, newService(t, client), ctx, ext))
}

func TestSubmitRejected(t *testing.T) {
	client := substratetest.NewClient()
	client.SubmitErr = errors.New("1010: Invalid Transaction")

	got := submit(t, newService(t, client), context.Background(), extrinsic(1))
	require.Len(t, got, 1)
	require.False(t, got[0].ok)
	require.Equal(t, "1010: Invalid Transaction", got[0].res.Error)
}

func TestSubmitAll(t *testing.T) {
	exts := []*substrate.SignedExtrinsic{extrinsic(1), extrinsic(2), extrinsic(3)}
	blockHash := bytes.Repeat([]byte{0xcc}, 32)

	client := substratetest.NewClient()
	for i, ext := range exts {
		client.Statuses[substrate.HexEncode(ext.Data)] = []substrate.ExtrinsicStatus{{Kind: substrate.StatusInBlock, BlockHash: blockHash}}
		if i == 2 {
			client.Statuses[substrate.HexEncode(ext.Data)] = []substrate.ExtrinsicStatus{{Kind: substrate.StatusUsurped}}
		}
	}
	client.Blocks[substrate.HexEncode(blockHash)] = substrate.Block{Number: 5, Extrinsics: [][]byte{exts[0].Data, exts[1].Data}}
	client.Events[substrate.HexEncode(blockHash)] = substratetest.EncodeEvents(
		substratetest.ExtrinsicSuccess(0),
		substratetest.ExtrinsicFailed(1, substratetest.ModuleError{Pallet: substratetest.ProxyIndex, Error: 1}),
	)

	var (
		mu    sync.Mutex
		calls = map[int][]outcome{}
	)
	newService(t, client).SubmitAll(context.Background(), exts, func(i int, ok bool, res txservice.Result) {
		mu.Lock()
		defer mu.Unlock()
		calls[i] = append(calls[i], outcome{ok, res})
	})

	require.Len(t, calls, 3)
	for i := range exts {
		require.Len(t, calls[i], 1, i)
	}
	require.True(t, calls[0][0].ok)
	require.False(t, calls[1][0].ok)
	require.Equal(t, "proxy: Not Found", calls[1][0].res.Error)
	require.False(t, calls[2][0].ok)
	require.Equal(t, "usurped", calls[2][0].res.Error)
}
