package transaction

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	types := Types()
	require.Len(t, types, 32)

	seen := make(map[Type]bool)
	for _, tt := range types {
		require.True(t, tt.Valid(), tt)
		require.False(t, seen[tt], "duplicate %s", tt)
		seen[tt] = true
		require.NotEqual(t, "Unknown operation", Title(tt), tt)
	}

	require.False(t, Type("").Valid())
	require.False(t, Type("SWAP").Valid())
	require.True(t, XTokensTransferMultiasset.IsXcm())
	require.False(t, Transfer.IsXcm())
	require.True(t, MultisigCancelAsMulti.IsMultisig())
	require.True(t, Proxy.IsWrapper())
	require.True(t, BatchAll.IsWrapper())
	require.False(t, Bond.IsWrapper())
}

func TestTransaction_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		tx := Transaction{
			ChainID: "0x91b1",
			Address: "alice",
			Type:    Proxy,
			Args: Args{
				ArgReal: "bob",
				ArgTransaction: Transaction{
					ChainID: "0x91b1",
					Address: "bob",
					Type:    Chill,
				},
			},
		}

		require.NoError(t, tx.Validate())
	})

	t.Run("invalid", func(t *testing.T) {
		for _, tt := range []struct {
			Tx      Transaction
			WantErr string
		}{
			{
				Transaction{},
				"transaction chain id cannot be empty",
			},
			{
				Transaction{ChainID: "0x01", Type: "SWAP"},
				`unknown transaction type "SWAP"`,
			},
			{
				Transaction{ChainID: "0x01", Type: Proxy},
				"proxy transaction needs a nested transaction",
			},
			{
				Transaction{ChainID: "0x01", Type: BatchAll, Args: Args{ArgTransactions: []Transaction{}}},
				"batch needs at least one transaction",
			},
			{
				Transaction{ChainID: "0x01", Type: BatchAll, Args: Args{ArgTransactions: []Transaction{{ChainID: "0x01"}}}},
				`batch transaction 0: unknown transaction type ""`,
			},
		} {
			err := tt.Tx.Validate()

			require.Error(t, err, tt)
			require.EqualError(t, err, tt.WantErr, tt)
		}
	})
}

func TestDecodedTransaction_ToTransaction(t *testing.T) {
	decoded := DecodedTransaction{
		ChainID: "0x01",
		Address: "alice",
		Type:    BatchAll,
		Section: "utility",
		Method:  "batchAll",
		Args: Args{
			ArgTransactions: []DecodedTransaction{
				{ChainID: "0x01", Address: "alice", Type: Chill, Section: "staking", Method: "chill", Args: Args{}},
				{
					ChainID: "0x01", Address: "bob", Type: Proxy, Section: "proxy", Method: "proxy",
					Args: Args{
						ArgReal:           "bob",
						ArgForceProxyType: nil,
						ArgTransaction: DecodedTransaction{
							ChainID: "0x01", Address: "bob", Type: Unstake, Section: "staking", Method: "unbond",
							Args: Args{"value": "10"},
						},
					},
				},
			},
		},
	}

	want := Transaction{
		ChainID: "0x01",
		Address: "alice",
		Type:    BatchAll,
		Args: Args{
			ArgTransactions: []Transaction{
				{ChainID: "0x01", Address: "alice", Type: Chill, Args: Args{}},
				{
					ChainID: "0x01", Address: "bob", Type: Proxy,
					Args: Args{
						ArgReal:           "bob",
						ArgForceProxyType: nil,
						ArgTransaction:    Transaction{ChainID: "0x01", Address: "bob", Type: Unstake, Args: Args{"value": "10"}},
					},
				},
			},
		},
	}

	if diff := cmp.Diff(want, decoded.ToTransaction()); diff != "" {
		t.Fatalf("unexpected transaction (-want +got):\n%s", diff)
	}

	txs, ok := decoded.Args.Transactions(ArgTransactions)
	require.True(t, ok)
	require.Len(t, txs, 2)
	inner, ok := txs[1].Args.Transaction(ArgTransaction)
	require.True(t, ok)
	require.Equal(t, Unstake, inner.Type)
}

func TestArgs(t *testing.T) {
	args := Args{
		"dest":    "bob",
		"targets": []any{"a", "b"},
		"list":    []string{"c"},
		"mixed":   []any{"a", 1},
		"none":    nil,
	}

	s, ok := args.String("dest")
	require.True(t, ok)
	require.Equal(t, "bob", s)

	_, ok = args.String("targets")
	require.False(t, ok)

	list, ok := args.Strings("targets")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, list)

	list, ok = args.Strings("list")
	require.True(t, ok)
	require.Equal(t, []string{"c"}, list)

	_, ok = args.Strings("mixed")
	require.False(t, ok)

	require.True(t, args.Has("dest"))
	require.False(t, args.Has("none"))
	require.False(t, args.Has("missing"))
}

func TestSelectors(t *testing.T) {
	require.NoError(t, Payee{Type: PayeeStaked}.Validate())
	require.NoError(t, Payee{Type: PayeeAccount, Account: "alice"}.Validate())
	require.Error(t, Payee{Type: PayeeAccount}.Validate())
	require.Error(t, Payee{Type: PayeeStash, Account: "alice"}.Validate())
	require.Error(t, Payee{Type: "Elsewhere"}.Validate())

	require.NoError(t, AccountVote{Kind: VoteStandard, Aye: true, Conviction: Locked3x, Balance: "100"}.Validate())
	require.NoError(t, AccountVote{Kind: VoteSplit, AyeBalance: "1", NayBalance: "2"}.Validate())
	require.NoError(t, AccountVote{Kind: VoteSplitAbstain, AyeBalance: "1", NayBalance: "2", AbstainBalance: "3"}.Validate())
	require.Error(t, AccountVote{Kind: VoteStandard, Conviction: "Locked9x", Balance: "1"}.Validate())
	require.Error(t, AccountVote{Kind: VoteSplit, AyeBalance: "1.5", NayBalance: "2"}.Validate())
	require.Error(t, AccountVote{Kind: "Maybe"}.Validate())

	for i := uint8(0); i <= 6; i++ {
		c, err := ConvictionFromIndex(i)
		require.NoError(t, err)
		idx, err := c.Index()
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
	_, err := ConvictionFromIndex(7)
	require.Error(t, err)
}

func TestParseTimepoint(t *testing.T) {
	tp, err := ParseTimepoint("18000000-3")
	require.NoError(t, err)
	require.Equal(t, Timepoint{Height: 18_000_000, Index: 3}, tp)
	require.Equal(t, "18000000-3", tp.String())

	for _, bad := range []string{"", "42", "42-", "-3", "42-x", "4294967296-0"} {
		_, err := ParseTimepoint(bad)
		require.Error(t, err, bad)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	doc := `
- chainId: "0x91b1"
  address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
  type: BATCH_ALL
  args:
    transactions:
      - chainId: "0x91b1"
        address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
        type: BOND
        args:
          value: 10000000000
          payee: Staked
      - chainId: "0x91b1"
        address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
        type: NOMINATE
        args:
          targets: [a, b]
- chainId: "0x91b1"
  address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
  type: MULTISIG_AS_MULTI
  args:
    threshold: 2
    otherSignatories: [b]
    maybeTimepoint: null
    callData: "0x0706"
    callHash: "0xaa"
    maxWeight: {refTime: 10, proofSize: 20}
- chainId: "0x91b1"
  address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
  type: VOTE
  args:
    referendum: 12
    vote: {kind: Standard, aye: true, conviction: Locked1x, balance: "5"}
`
	txs, err := ReadYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, txs, 3)

	batch, ok := txs[0].Args.Transactions(ArgTransactions)
	require.True(t, ok)
	require.Len(t, batch, 2)
	require.Equal(t, Args{"value": "10000000000", ArgPayee: Payee{Type: PayeeStaked}}, batch[0].Args)
	require.Equal(t, Args{"targets": []string{"a", "b"}}, batch[1].Args)

	require.Equal(t, Args{
		ArgThreshold:        "2",
		ArgOtherSignatories: []string{"b"},
		ArgMaybeTimepoint:   nil,
		ArgCallData:         "0x0706",
		ArgCallHash:         "0xaa",
		ArgMaxWeight:        Weight{RefTime: 10, ProofSize: 20},
	}, txs[1].Args)

	require.Equal(t, AccountVote{Kind: VoteStandard, Aye: true, Conviction: Locked1x, Balance: "5"}, txs[2].Args[ArgVote])

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, txs))
	again, err := ReadYAML(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(txs, again); diff != "" {
		t.Fatalf("yaml round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestReadYAMLRejectsInvalid(t *testing.T) {
	_, err := ReadYAML(strings.NewReader("- chainId: \"0x01\"\n  type: SWAP\n"))
	require.ErrorContains(t, err, `transaction 0: unknown transaction type "SWAP"`)
}

func TestReadYAMLKeepsLargeAmounts(t *testing.T) {
	doc := `
- chainId: "0x91b1"
  address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
  type: TRANSFER
  args:
    dest: 14E5nqKAp3oAJcmzgZhUD2RcptBeUBScxKHgJKU4HPNcKVf3
    value: 20123456789012345678
- chainId: "0x91b1"
  address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
  type: TRANSFER
  args:
    dest: 14E5nqKAp3oAJcmzgZhUD2RcptBeUBScxKHgJKU4HPNcKVf3
    value: 1.123456789012345678
- chainId: "0x91b1"
  address: 15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5
  type: NOMINATE
  args:
    targets: [340282366920938463463374607431768211455, 2]
`
	txs, err := ReadYAML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, txs, 3)
	require.Equal(t, "20123456789012345678", txs[0].Args["value"])
	require.Equal(t, "1.123456789012345678", txs[1].Args["value"])
	require.Equal(t, []string{"340282366920938463463374607431768211455", "2"}, txs[2].Args["targets"])

	planck, err := ParseAmount(txs[1].Args["value"].(string), 18)
	require.NoError(t, err)
	require.Equal(t, "1123456789012345678", planck)

	_, err = ReadYAML(strings.NewReader("- chainId: \"0x91b1\"\n  type: TRANSFER\n  args:\n    value: .inf\n"))
	require.ErrorContains(t, err, "invalid number")
}

func TestVoteAmountsAreIntegers(t *testing.T) {
	for _, amount := range []string{"0", "5", "340282366920938463463374607431768211455"} {
		require.NoError(t, AccountVote{Kind: VoteStandard, Conviction: Locked1x, Balance: amount}.Validate(), amount)
	}
	for _, amount := range []string{"-5", "1e3", "1.0", "0x10", "five"} {
		require.Error(t, AccountVote{Kind: VoteStandard, Conviction: Locked1x, Balance: amount}.Validate(), amount)
	}
}

func TestAmounts(t *testing.T) {
	for _, tt := range []struct {
		text      string
		precision int32
		planck    string
	}{
		{"1", 10, "10000000000"},
		{"1.5", 10, "15000000000"},
		{"0.0000000001", 10, "1"},
		{"12.345", 12, "12345000000000"},
	} {
		planck, err := ParseAmount(tt.text, tt.precision)
		require.NoError(t, err, tt.text)
		require.Equal(t, tt.planck, planck)

		back, err := FormatAmount(planck, tt.precision)
		require.NoError(t, err)
		require.Equal(t, tt.text, back)
	}

	_, err := ParseAmount("0.00000000001", 10)
	require.Error(t, err)
	_, err = ParseAmount("-1", 10)
	require.Error(t, err)
	_, err = ParseAmount("one", 10)
	require.Error(t, err)
}

func TestDecodedTitle(t *testing.T) {
	require.Equal(t, "Start staking", DecodedTitle(DecodedTransaction{Type: Bond}))
	require.Equal(t, "system.remark", DecodedTitle(DecodedTransaction{Section: "system", Method: "remark"}))
	require.Equal(t, "Unknown operation", DecodedTitle(DecodedTransaction{}))
}
