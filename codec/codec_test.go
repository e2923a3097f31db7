package codec_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/chain/substrate/substratetest"
	"github.com/novasamatech/nova-spektr-sub000/codec"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

const chainID = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"

func roundTrip(t *testing.T, l codec.Ledger, tx transaction.Transaction) transaction.DecodedTransaction {
	t.Helper()

	call, err := codec.BuildCall(l, tx)
	require.NoError(t, err)

	decoded, err := codec.Decode(l, tx.ChainID, tx.Address, call.Data)
	require.NoError(t, err)
	require.Equal(t, call.Section, decoded.Section)
	require.Equal(t, call.Method, decoded.Method)

	if diff := cmp.Diff(tx, decoded.ToTransaction()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	return decoded
}

func newTx(t *testing.T, typ transaction.Type, args transaction.Args) transaction.Transaction {
	return transaction.Transaction{
		ChainID: chainID,
		Address: substratetest.Address(t, "alice"),
		Type:    typ,
		Args:    args,
	}
}

func hexID(name string) string {
	return substrate.HexEncode(substratetest.AccountID(name))
}

func TestRoundTrip(t *testing.T) {
	rt := substratetest.Runtime(t)
	bob := substratetest.Address(t, "bob")
	charlie := substratetest.Address(t, "charlie")

	chill := newTx(t, transaction.Chill, transaction.Args{})
	chillCall, err := codec.BuildCall(rt, chill)
	require.NoError(t, err)
	chillHash := substrate.HexEncode(rt.Hash(chillCall.Data))

	destV3 := `{"V3":{"interior":{"X1":{"Parachain":"2000"}},"parents":"1"}}`
	destV4 := `{"V4":{"interior":{"X1":[{"Parachain":"1000"}]},"parents":"1"}}`
	beneficiaryV3 := fmt.Sprintf(`{"V3":{"interior":{"X1":{"AccountId32":{"id":"%s","network":null}}},"parents":"0"}}`, hexID("bob"))
	beneficiaryV4 := fmt.Sprintf(`{"V4":{"interior":{"X1":[{"AccountId32":{"id":"%s","network":null}}]},"parents":"0"}}`, hexID("bob"))
	assetsV3 := `{"V3":[{"fun":{"Fungible":"1000"},"id":{"Concrete":{"interior":"Here","parents":"1"}}}]}`
	assetsV4 := `{"V4":[{"fun":{"Fungible":"2500"},"id":{"interior":"Here","parents":"1"}}]}`

	tests := []struct {
		name   string
		tx     transaction.Transaction
		method string
	}{
		{"transfer", newTx(t, transaction.Transfer, transaction.Args{
			"dest": bob, "value": "1000000000000",
		}), "transferKeepAlive"},
		{"asset transfer", newTx(t, transaction.AssetTransfer, transaction.Args{
			"asset": "1984", "dest": bob, "value": "5",
		}), "transferKeepAlive"},
		{"orml transfer", newTx(t, transaction.OrmlTransfer, transaction.Args{
			"asset": `{"Token":"DOT"}`, "dest": bob, "value": "5",
		}), "transfer"},
		{"orml foreign asset", newTx(t, transaction.OrmlTransfer, transaction.Args{
			"asset": `{"ForeignAsset":"3"}`, "dest": bob, "value": "7",
		}), "transfer"},
		{"xcm limited transfer", newTx(t, transaction.XcmLimitedTransfer, transaction.Args{
			"dest": destV3, "beneficiary": beneficiaryV3, "assets": assetsV3,
			"feeAssetItem": "0", "weightLimit": `"Unlimited"`,
			"value": "1000", "destinationChain": "2000",
		}), "limitedReserveTransferAssets"},
		{"xcm teleport", newTx(t, transaction.XcmTeleport, transaction.Args{
			"dest": destV4, "beneficiary": beneficiaryV4, "assets": assetsV4,
			"feeAssetItem": "0", "weightLimit": `{"Limited":{"proofSize":"65536","refTime":"1000000000"}}`,
			"value": "2500", "destinationChain": "1000",
		}), "limitedTeleportAssets"},
		{"polkadot xcm limited transfer", newTx(t, transaction.PolkadotXcmLimitedTransfer, transaction.Args{
			"dest": destV4, "beneficiary": beneficiaryV4, "assets": assetsV4,
			"feeAssetItem": "0", "weightLimit": `"Unlimited"`,
			"value": "2500", "destinationChain": "1000",
		}), "limitedReserveTransferAssets"},
		{"polkadot xcm teleport to relay", newTx(t, transaction.PolkadotXcmTeleport, transaction.Args{
			"dest": `{"V3":{"interior":"Here","parents":"1"}}`, "beneficiary": beneficiaryV3, "assets": assetsV3,
			"feeAssetItem": "0", "weightLimit": `"Unlimited"`,
			"value": "1000",
		}), "limitedTeleportAssets"},
		{"xtokens", newTx(t, transaction.XTokensTransferMultiasset, transaction.Args{
			"asset": `{"V3":{"fun":{"Fungible":"500"},"id":{"Concrete":{"interior":"Here","parents":"1"}}}}`,
			"dest": fmt.Sprintf(`{"V3":{"interior":{"X2":[{"Parachain":"2000"},{"AccountId32":{"id":"%s","network":null}}]},"parents":"1"}}`,
				hexID("bob")),
			"destWeightLimit":  `"Unlimited"`,
			"value":            "500",
			"destinationChain": "2000",
		}), "transferMultiasset"},

		{"bond", newTx(t, transaction.Bond, transaction.Args{
			"value": "10000000000", "payee": transaction.Payee{Type: transaction.PayeeStaked},
		}), "bond"},
		{"bond to account", newTx(t, transaction.Bond, transaction.Args{
			"value": "1", "payee": transaction.Payee{Type: transaction.PayeeAccount, Account: charlie},
		}), "bond"},
		{"unstake", newTx(t, transaction.Unstake, transaction.Args{"value": "3"}), "unbond"},
		{"restake", newTx(t, transaction.Restake, transaction.Args{"value": "3"}), "rebond"},
		{"redeem", newTx(t, transaction.Redeem, transaction.Args{"numSlashingSpans": "0"}), "withdrawUnbonded"},
		{"nominate", newTx(t, transaction.Nominate, transaction.Args{"targets": []string{bob, charlie}}), "nominate"},
		{"stake more", newTx(t, transaction.StakeMore, transaction.Args{"maxAdditional": "42"}), "bondExtra"},
		{"destination", newTx(t, transaction.Destination, transaction.Args{
			"payee": transaction.Payee{Type: transaction.PayeeStash},
		}), "setPayee"},
		{"chill", chill, "chill"},

		{"add proxy", newTx(t, transaction.AddProxy, transaction.Args{
			"delegate": bob, "proxyType": "Any", "delay": "0",
		}), "addProxy"},
		{"remove proxy", newTx(t, transaction.RemoveProxy, transaction.Args{
			"delegate": bob, "proxyType": "Staking", "delay": "10",
		}), "removeProxy"},
		{"create pure proxy", newTx(t, transaction.CreatePureProxy, transaction.Args{
			"proxyType": "Any", "delay": "0", "index": "0",
		}), "createPure"},
		{"remove pure proxy", newTx(t, transaction.RemovePureProxy, transaction.Args{
			"spawner": bob, "proxyType": "Any", "index": "0", "blockNumber": "1234", "extrinsicIndex": "2",
		}), "killPure"},
		{"proxy", newTx(t, transaction.Proxy, transaction.Args{
			transaction.ArgReal:           bob,
			transaction.ArgForceProxyType: "Staking",
			transaction.ArgTransaction: transaction.Transaction{
				ChainID: chainID, Address: bob, Type: transaction.Chill, Args: transaction.Args{},
			},
		}), "proxy"},

		{"as multi", newTx(t, transaction.MultisigAsMulti, transaction.Args{
			transaction.ArgThreshold:        "2",
			transaction.ArgOtherSignatories: []string{bob, charlie},
			transaction.ArgMaybeTimepoint:   nil,
			transaction.ArgCallData:         substrate.HexEncode(chillCall.Data),
			transaction.ArgCallHash:         chillHash,
			transaction.ArgMaxWeight:        transaction.Weight{RefTime: 1_000_000, ProofSize: 4096},
		}), "asMulti"},
		{"approve as multi", newTx(t, transaction.MultisigApproveAsMulti, transaction.Args{
			transaction.ArgThreshold:        "2",
			transaction.ArgOtherSignatories: []string{bob},
			transaction.ArgMaybeTimepoint:   transaction.Timepoint{Height: 100, Index: 1},
			transaction.ArgCallHash:         chillHash,
			transaction.ArgMaxWeight:        transaction.Weight{},
		}), "approveAsMulti"},
		{"cancel as multi", newTx(t, transaction.MultisigCancelAsMulti, transaction.Args{
			transaction.ArgThreshold:        "3",
			transaction.ArgOtherSignatories: []string{bob, charlie},
			transaction.ArgTimepoint:        transaction.Timepoint{Height: 100, Index: 1},
			transaction.ArgCallHash:         chillHash,
		}), "cancelAsMulti"},

		{"vote", newTx(t, transaction.Vote, transaction.Args{
			"referendum": "12",
			transaction.ArgVote: transaction.AccountVote{
				Kind: transaction.VoteStandard, Aye: true, Conviction: transaction.Locked2x, Balance: "100",
			},
		}), "vote"},
		{"vote nay", newTx(t, transaction.Vote, transaction.Args{
			"referendum": "12",
			transaction.ArgVote: transaction.AccountVote{
				Kind: transaction.VoteStandard, Conviction: transaction.ConvictionNone, Balance: "1",
			},
		}), "vote"},
		{"split vote", newTx(t, transaction.Vote, transaction.Args{
			"referendum": "12",
			transaction.ArgVote: transaction.AccountVote{
				Kind: transaction.VoteSplit, AyeBalance: "3", NayBalance: "4",
			},
		}), "vote"},
		{"abstain vote", newTx(t, transaction.Vote, transaction.Args{
			"referendum": "12",
			transaction.ArgVote: transaction.AccountVote{
				Kind: transaction.VoteSplitAbstain, AyeBalance: "1", NayBalance: "2", AbstainBalance: "3",
			},
		}), "vote"},
		{"remove vote", newTx(t, transaction.RemoveVote, transaction.Args{"track": "0", "referendum": "12"}), "removeVote"},
		{"remove vote without track", newTx(t, transaction.RemoveVote, transaction.Args{"track": nil, "referendum": "12"}), "removeVote"},
		{"delegate", newTx(t, transaction.Delegate, transaction.Args{
			"track": "1", "target": bob, "conviction": transaction.Locked6x, "balance": "100",
		}), "delegate"},
		{"undelegate", newTx(t, transaction.Undelegate, transaction.Args{"track": "1"}), "undelegate"},
		{"unlock", newTx(t, transaction.Unlock, transaction.Args{"track": "1", "target": bob}), "unlock"},

		{"batch", newTx(t, transaction.BatchAll, transaction.Args{
			transaction.ArgTransactions: []transaction.Transaction{
				newTx(t, transaction.Bond, transaction.Args{
					"value": "10", "payee": transaction.Payee{Type: transaction.PayeeStaked},
				}),
				newTx(t, transaction.Nominate, transaction.Args{"targets": []string{bob}}),
			},
		}), "batchAll"},
		{"collective vote", newTx(t, transaction.CollectiveVote, transaction.Args{
			"pallet": "fellowship", "poll": "7", "aye": true,
		}), "vote"},
	}

	covered := make(map[transaction.Type]bool)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := roundTrip(t, rt, tt.tx)
			require.Equal(t, tt.method, decoded.Method)
		})
		covered[tt.tx.Type] = true
	}

	// REVOTE shares the vote call and is covered separately
	for _, typ := range transaction.Types() {
		if typ != transaction.Revote {
			require.True(t, covered[typ], "no round trip for %s", typ)
		}
	}
}

func TestRoundTripLegacy(t *testing.T) {
	rt := substratetest.LegacyRuntime(t)
	alice := substratetest.Address(t, "alice")
	bob := substratetest.Address(t, "bob")

	chillCall, err := codec.BuildCall(rt, newTx(t, transaction.Chill, transaction.Args{}))
	require.NoError(t, err)

	tests := []struct {
		name   string
		tx     transaction.Transaction
		method string
	}{
		{"transfer", newTx(t, transaction.Transfer, transaction.Args{"dest": bob, "value": "1"}), "transfer"},
		{"asset transfer", newTx(t, transaction.AssetTransfer, transaction.Args{
			"asset": "1", "dest": bob, "value": "1",
		}), "transfer"},
		{"orml transfer", newTx(t, transaction.OrmlTransfer, transaction.Args{
			"asset": `{"Token":"ACA"}`, "dest": bob, "value": "1",
		}), "transfer"},
		{"bond", newTx(t, transaction.Bond, transaction.Args{
			"controller": bob, "value": "1", "payee": transaction.Payee{Type: transaction.PayeeController},
		}), "bond"},
		{"xtokens", newTx(t, transaction.XTokensTransferMultiasset, transaction.Args{
			"asset":            `{"V3":{"fun":{"Fungible":"9"},"id":{"Concrete":{"interior":"Here","parents":"1"}}}}`,
			"dest":             `{"V3":{"interior":{"X1":{"Parachain":"2004"}},"parents":"1"}}`,
			"destWeight":       "5000000000",
			"value":            "9",
			"destinationChain": "2004",
		}), "transferMultiasset"},
		{"as multi", newTx(t, transaction.MultisigAsMulti, transaction.Args{
			transaction.ArgThreshold:        "2",
			transaction.ArgOtherSignatories: []string{alice},
			transaction.ArgMaybeTimepoint:   nil,
			transaction.ArgCallData:         substrate.HexEncode(chillCall.Data),
			transaction.ArgCallHash:         substrate.HexEncode(rt.Hash(chillCall.Data)),
			transaction.ArgStoreCall:        false,
			transaction.ArgMaxWeight:        "640000000",
		}), "asMulti"},
		{"approve as multi", newTx(t, transaction.MultisigApproveAsMulti, transaction.Args{
			transaction.ArgThreshold:        "2",
			transaction.ArgOtherSignatories: []string{alice},
			transaction.ArgMaybeTimepoint:   transaction.Timepoint{Height: 1, Index: 0},
			transaction.ArgCallHash:         substrate.HexEncode(rt.Hash(chillCall.Data)),
			transaction.ArgMaxWeight:        "0",
		}), "approveAsMulti"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := roundTrip(t, rt, tt.tx)
			require.Equal(t, tt.method, decoded.Method)
		})
	}
}

func TestBondControllerDefaultsToOrigin(t *testing.T) {
	rt := substratetest.LegacyRuntime(t)
	tx := newTx(t, transaction.Bond, transaction.Args{"value": "1"})

	call, err := codec.BuildCall(rt, tx)
	require.NoError(t, err)

	decoded, err := codec.Decode(rt, chainID, tx.Address, call.Data)
	require.NoError(t, err)
	require.Equal(t, transaction.Args{
		"controller": tx.Address,
		"value":      "1",
		"payee":      transaction.Payee{Type: transaction.PayeeStaked},
	}, decoded.Args)
}

func TestMultisigShapeDetection(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		rt, err := substratetest.NewRuntime(legacy)
		require.NoError(t, err)

		chillCall, err := codec.BuildCall(rt, newTx(t, transaction.Chill, transaction.Args{}))
		require.NoError(t, err)

		call, err := codec.BuildCall(rt, newTx(t, transaction.MultisigAsMulti, transaction.Args{
			transaction.ArgThreshold:        "2",
			transaction.ArgOtherSignatories: []string{substratetest.Address(t, "bob")},
			transaction.ArgCallData:         substrate.HexEncode(chillCall.Data),
			transaction.ArgMaxWeight:        transaction.Weight{RefTime: 7, ProofSize: 8},
		}))
		require.NoError(t, err)

		parsed, err := rt.ParseCall(call.Data)
		require.NoError(t, err)

		decoded, err := codec.Decode(rt, chainID, "", call.Data)
		require.NoError(t, err)
		require.Equal(t, substrate.HexEncode(rt.Hash(chillCall.Data)), decoded.Args[transaction.ArgCallHash])

		if legacy {
			require.Len(t, parsed.Args, 6)
			require.Equal(t, false, decoded.Args[transaction.ArgStoreCall])
			require.Equal(t, "7", decoded.Args[transaction.ArgMaxWeight])
		} else {
			require.Len(t, parsed.Args, 5)
			require.NotContains(t, decoded.Args, transaction.ArgStoreCall)
			require.Equal(t, transaction.Weight{RefTime: 7, ProofSize: 8}, decoded.Args[transaction.ArgMaxWeight])
		}
	}
}

func TestAsMultiWithoutCallDataApproves(t *testing.T) {
	rt := substratetest.Runtime(t)
	hash := substrate.HexEncode(bytes.Repeat([]byte{0xab}, 32))

	call, err := codec.BuildCall(rt, newTx(t, transaction.MultisigAsMulti, transaction.Args{
		transaction.ArgThreshold:        "2",
		transaction.ArgOtherSignatories: []string{substratetest.Address(t, "bob")},
		transaction.ArgMaybeTimepoint:   transaction.Timepoint{Height: 5, Index: 2},
		transaction.ArgCallData:         "",
		transaction.ArgCallHash:         hash,
	}))
	require.NoError(t, err)
	require.Equal(t, "approveAsMulti", call.Method)

	decoded, err := codec.Decode(rt, chainID, "", call.Data)
	require.NoError(t, err)
	require.Equal(t, transaction.MultisigApproveAsMulti, decoded.Type)
	require.Equal(t, hash, decoded.Args[transaction.ArgCallHash])
	require.Equal(t, transaction.Weight{}, decoded.Args[transaction.ArgMaxWeight])
}

func TestCapabilityBranching(t *testing.T) {
	current := substratetest.Runtime(t)
	legacy := substratetest.LegacyRuntime(t)
	tx := newTx(t, transaction.Transfer, transaction.Args{
		"dest":  substratetest.Address(t, "bob"),
		"value": "1",
	})

	keepAlive, err := codec.BuildCall(current, tx)
	require.NoError(t, err)
	require.Equal(t, "transferKeepAlive", keepAlive.Method)

	plain, err := codec.BuildCall(legacy, tx)
	require.NoError(t, err)
	require.Equal(t, "transfer", plain.Method)

	require.NotEqual(t, keepAlive.Data, plain.Data)
	require.Equal(t, keepAlive.Data[2:], plain.Data[2:])

	for _, rt := range []*substrate.Runtime{current, legacy} {
		decoded, err := codec.Decode(rt, chainID, tx.Address, mustCall(t, rt, tx).Data)
		require.NoError(t, err)
		require.Equal(t, transaction.Transfer, decoded.Type)
	}

	orml := newTx(t, transaction.OrmlTransfer, transaction.Args{
		"asset": `{"Token":"DOT"}`, "dest": substratetest.Address(t, "bob"), "value": "1",
	})
	require.Equal(t, "currencies", mustCall(t, current, orml).Section)
	require.Equal(t, "tokens", mustCall(t, legacy, orml).Section)
}

func mustCall(t *testing.T, l codec.Ledger, tx transaction.Transaction) substrate.Call {
	t.Helper()
	call, err := codec.BuildCall(l, tx)
	require.NoError(t, err)
	return call
}

func TestRevoteDecodesAsVote(t *testing.T) {
	rt := substratetest.Runtime(t)
	vote := transaction.AccountVote{Kind: transaction.VoteStandard, Aye: true, Conviction: transaction.Locked1x, Balance: "5"}

	revote := mustCall(t, rt, newTx(t, transaction.Revote, transaction.Args{"referendum": "3", transaction.ArgVote: vote}))
	plain := mustCall(t, rt, newTx(t, transaction.Vote, transaction.Args{"referendum": "3", transaction.ArgVote: vote}))
	require.Equal(t, plain.Data, revote.Data)

	decoded, err := codec.Decode(rt, chainID, "", revote.Data)
	require.NoError(t, err)
	require.Equal(t, transaction.Vote, decoded.Type)
}

func TestDecodeAddProxy(t *testing.T) {
	rt := substratetest.Runtime(t)
	delegate := substratetest.AccountID("dave")

	data := []byte{substratetest.ProxyIndex, 1, 0x00}
	data = append(data, delegate...)
	data = append(data, 0x00)                   // ProxyType::Any
	data = append(data, 0x00, 0x00, 0x00, 0x00) // delay

	decoded, err := codec.Decode(rt, chainID, substratetest.Address(t, "alice"), data)
	require.NoError(t, err)

	require.Equal(t, transaction.DecodedTransaction{
		ChainID: chainID,
		Address: substratetest.Address(t, "alice"),
		Type:    transaction.AddProxy,
		Section: "proxy",
		Method:  "addProxy",
		Args: transaction.Args{
			"delegate":  substratetest.Address(t, "dave"),
			"proxyType": "Any",
			"delay":     "0",
		},
	}, decoded)
}

func TestDecodeBatchOrder(t *testing.T) {
	rt := substratetest.Runtime(t)
	alice := substratetest.Address(t, "alice")

	inner := []transaction.Transaction{
		newTx(t, transaction.Unstake, transaction.Args{"value": "1"}),
		newTx(t, transaction.Chill, transaction.Args{}),
		newTx(t, transaction.Restake, transaction.Args{"value": "2"}),
	}
	call := mustCall(t, rt, newTx(t, transaction.BatchAll, transaction.Args{transaction.ArgTransactions: inner}))

	decoded, err := codec.Decode(rt, chainID, alice, call.Data)
	require.NoError(t, err)
	require.Equal(t, transaction.BatchAll, decoded.Type)

	children, ok := decoded.Args[transaction.ArgTransactions].([]transaction.DecodedTransaction)
	require.True(t, ok)
	require.Len(t, children, 3)
	for i, tx := range inner {
		single, err := codec.Decode(rt, chainID, alice, mustCall(t, rt, tx).Data)
		require.NoError(t, err)
		require.Equal(t, single, children[i])
		require.Equal(t, alice, children[i].Address)
	}
}

func TestDecodeProxyNesting(t *testing.T) {
	rt := substratetest.Runtime(t)
	bob := substratetest.Address(t, "bob")

	call := mustCall(t, rt, newTx(t, transaction.Proxy, transaction.Args{
		transaction.ArgReal: bob,
		transaction.ArgTransaction: transaction.Transaction{
			ChainID: chainID, Address: bob, Type: transaction.Transfer,
			Args: transaction.Args{"dest": substratetest.Address(t, "charlie"), "value": "9"},
		},
	}))

	decoded, err := codec.Decode(rt, chainID, substratetest.Address(t, "alice"), call.Data)
	require.NoError(t, err)
	require.Equal(t, transaction.Proxy, decoded.Type)
	require.Equal(t, bob, decoded.Args[transaction.ArgReal])
	require.Nil(t, decoded.Args[transaction.ArgForceProxyType])

	inner, ok := decoded.Args[transaction.ArgTransaction].(transaction.DecodedTransaction)
	require.True(t, ok)
	require.Equal(t, transaction.Transfer, inner.Type)
	require.Equal(t, bob, inner.Address)
	require.Equal(t, "9", inner.Args["value"])
}

func TestDecodeUnknownCall(t *testing.T) {
	rt := substratetest.Runtime(t)

	call, err := rt.NewCall("system", "remark", map[string]any{"remark": []byte{1, 2}})
	require.NoError(t, err)

	decoded, err := codec.Decode(rt, chainID, "", call.Data)
	require.NoError(t, err)
	require.False(t, decoded.Known())
	require.Equal(t, "system", decoded.Section)
	require.Equal(t, "remark", decoded.Method)
	require.Equal(t, transaction.Args{"arg0": `"0x0102"`}, decoded.Args)
	require.Equal(t, "system.remark", transaction.DecodedTitle(decoded))

	// plain batch is not batchAll
	batch, err := rt.NewCall("utility", "batch", map[string]any{"calls": []any{call}})
	require.NoError(t, err)
	decoded, err = codec.Decode(rt, chainID, "", batch.Data)
	require.NoError(t, err)
	require.False(t, decoded.Known())
	require.Equal(t, transaction.Args{"arg0": fmt.Sprintf(`["%s"]`, substrate.HexEncode(call.Data))}, decoded.Args)
}

func TestDecodeErrors(t *testing.T) {
	rt := substratetest.Runtime(t)

	_, err := codec.Decode(rt, chainID, "", []byte{0xfe, 0x00})
	require.ErrorIs(t, err, codec.ErrMalformedCall)

	_, err = codec.Decode(rt, chainID, "", nil)
	require.ErrorIs(t, err, codec.ErrMalformedCall)

	// chill wrapped in more proxies than the decoder follows
	data := mustCall(t, rt, newTx(t, transaction.Chill, transaction.Args{})).Data
	for i := 0; i <= codec.MaxDepth+1; i++ {
		wrapped := []byte{substratetest.ProxyIndex, 0, 0x00}
		wrapped = append(wrapped, substratetest.AccountID("bob")...)
		wrapped = append(wrapped, 0x00)
		data = append(wrapped, data...)
	}
	_, err = codec.Decode(rt, chainID, "", data)
	require.ErrorIs(t, err, codec.ErrDepth)
}

func TestBuildCallErrors(t *testing.T) {
	rt := substratetest.Runtime(t)

	_, err := codec.BuildCall(rt, newTx(t, transaction.Transfer, transaction.Args{}))
	require.ErrorIs(t, err, codec.ErrMissingArg)
	require.ErrorContains(t, err, "dest")
	require.ErrorContains(t, err, "value")

	_, err = codec.BuildCall(rt, newTx(t, "SWAP", transaction.Args{}))
	require.ErrorIs(t, err, codec.ErrUnknownType)

	_, err = codec.BuildCall(rt, newTx(t, transaction.Bond, transaction.Args{
		"value": "1", "payee": transaction.Payee{Type: "Elsewhere"},
	}))
	require.ErrorIs(t, err, codec.ErrUnparseableSelector)

	_, err = codec.BuildCall(rt, newTx(t, transaction.Vote, transaction.Args{"referendum": "1", "vote": "aye"}))
	require.ErrorIs(t, err, codec.ErrUnparseableSelector)

	_, err = codec.BuildCall(rt, newTx(t, transaction.Proxy, transaction.Args{transaction.ArgReal: "x"}))
	require.ErrorIs(t, err, codec.ErrMissingArg)

	tx := newTx(t, transaction.Chill, transaction.Args{})
	for i := 0; i <= codec.MaxDepth+1; i++ {
		tx = newTx(t, transaction.Proxy, transaction.Args{
			transaction.ArgReal:        substratetest.Address(t, "bob"),
			transaction.ArgTransaction: tx,
		})
	}
	_, err = codec.BuildCall(rt, tx)
	require.ErrorIs(t, err, codec.ErrDepth)
}

func TestBondPayeeDefault(t *testing.T) {
	rt := substratetest.Runtime(t)

	call := mustCall(t, rt, newTx(t, transaction.Bond, transaction.Args{"value": "1"}))
	decoded, err := codec.Decode(rt, chainID, "", call.Data)
	require.NoError(t, err)
	require.Equal(t, transaction.Payee{Type: transaction.PayeeStaked}, decoded.Args["payee"])
}

func TestBuildUnsigned(t *testing.T) {
	rt := substratetest.Runtime(t)
	tx := newTx(t, transaction.Transfer, transaction.Args{
		"dest":  substratetest.Address(t, "bob"),
		"value": "1",
	})
	info := substrate.SigningInfo{
		Nonce:              1,
		BlockHash:          bytes.Repeat([]byte{0x01}, 32),
		BlockNumber:        10,
		GenesisHash:        bytes.Repeat([]byte{0x02}, 32),
		SpecVersion:        1,
		TransactionVersion: 1,
	}

	u, err := codec.BuildUnsigned(rt, tx, info, substrate.Options{})
	require.NoError(t, err)
	require.Equal(t, substratetest.AccountID("alice"), u.AccountID)
	require.Equal(t, mustCall(t, rt, tx).Data, u.Call.Data)
	require.Equal(t, uint64(1), u.Nonce)

	payload, err := u.SigningPayload()
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, u.Call.Data))

	tx.Address = "not an address"
	_, err = codec.BuildUnsigned(rt, tx, info, substrate.Options{})
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	for _, tt := range []struct {
		section, method string
		want            transaction.Type
		collective      string
	}{
		{"balances", "transferAllowDeath", transaction.Transfer, ""},
		{"staking", "withdrawUnbonded", transaction.Redeem, ""},
		{"technicalCollective", "vote", transaction.CollectiveVote, "technical"},
		{"collective", "vote", "", ""},
		{"fellowshipCollective", "cleanupPoll", "", ""},
		{"utility", "batch", "", ""},
	} {
		got, collective := codec.Classify(tt.section, tt.method)
		require.Equal(t, tt.want, got, "%s.%s", tt.section, tt.method)
		require.Equal(t, tt.collective, collective)
	}
}
