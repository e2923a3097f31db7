package wallet_test

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/wallet"
)

func id(b byte) wallet.AccountID {
	return bytes.Repeat([]byte{b}, 32)
}

func TestKind(t *testing.T) {
	for _, k := range []wallet.Kind{wallet.SingleShard, wallet.MultiShard, wallet.Vault, wallet.WalletConnect} {
		require.True(t, k.Valid())
		require.True(t, k.CanSign(), k)
	}
	for _, k := range []wallet.Kind{wallet.Multisig, wallet.Proxied, wallet.WatchOnly} {
		require.True(t, k.Valid())
		require.False(t, k.CanSign(), k)
	}
	require.False(t, wallet.Kind("ledger").Valid())
}

func TestParseAccountID(t *testing.T) {
	hex := strings.Repeat("ab", 32)
	got, err := wallet.ParseAccountID("0x" + hex)
	require.NoError(t, err)
	require.Equal(t, "0x"+hex, got.String())

	addr, err := substrate.EncodeAddressSS58(id(7), 42)
	require.NoError(t, err)
	got, err = wallet.ParseAccountID(addr)
	require.NoError(t, err)
	require.True(t, got.Equal(id(7)))

	_, err = wallet.ParseAccountID("0x0102")
	require.Error(t, err)
	_, err = wallet.ParseAccountID("not-an-address")
	require.Error(t, err)
}

func TestAccountIDYAML(t *testing.T) {
	var a wallet.BaseAccount
	addr, err := substrate.EncodeAddressSS58(id(3), 0)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal([]byte(fmt.Sprintf("wallet-id: 1\nname: main\naccount-id: %s\n", addr)), &a))
	require.Equal(t, 1, a.WalletID)
	require.True(t, a.AccountID.Equal(id(3)))

	out, err := yaml.Marshal(a)
	require.NoError(t, err)
	require.Contains(t, string(out), id(3).String())
}

func newDirectory(t *testing.T) *wallet.Directory {
	t.Helper()
	d, err := wallet.NewDirectory(
		[]wallet.Wallet{
			{ID: 1, Name: "Alice", Kind: wallet.SingleShard},
			{ID: 2, Name: "Bob watch", Kind: wallet.WatchOnly},
			{ID: 3, Name: "Team", Kind: wallet.Multisig},
			{ID: 4, Name: "Stash", Kind: wallet.Proxied},
		},
		[]wallet.Account{
			wallet.BaseAccount{WalletID: 1, Name: "alice", AccountID: id(1)},
			wallet.BaseAccount{WalletID: 2, Name: "bob", AccountID: id(2), ChainID: "0xpolkadot"},
			wallet.BaseAccount{WalletID: 2, Name: "alice watched", AccountID: id(1)},
			wallet.MultisigAccount{
				BaseAccount: wallet.BaseAccount{WalletID: 3, Name: "team", AccountID: id(9)},
				Threshold:   2,
				Signatories: []wallet.Signatory{{AccountID: id(1)}, {AccountID: id(2)}},
			},
			wallet.ProxiedAccount{
				BaseAccount:    wallet.BaseAccount{WalletID: 4, Name: "stash", AccountID: id(8), ChainID: "0xkusama"},
				ProxyAccountID: id(1),
				ProxyType:      "Staking",
			},
		},
	)
	require.NoError(t, err)
	return d
}

func TestDirectory(t *testing.T) {
	d := newDirectory(t)

	require.Len(t, d.Wallets(), 4)
	require.Equal(t, 1, d.Wallets()[0].ID)

	w, ok := d.Wallet(3)
	require.True(t, ok)
	require.Equal(t, wallet.Multisig, w.Kind)
	_, ok = d.Wallet(42)
	require.False(t, ok)

	matches := d.AccountsByID(id(1), "0xpolkadot")
	require.Len(t, matches, 2)
	require.Equal(t, "alice", matches[0].Base().Name)
	require.Equal(t, "alice watched", matches[1].Base().Name)

	require.Len(t, d.AccountsByID(id(2), "0xpolkadot"), 1)
	require.Empty(t, d.AccountsByID(id(2), "0xkusama"))
	require.Len(t, d.AccountsByID(id(8), "0xkusama"), 1)

	signer, ok := d.Signer(id(1), "0xpolkadot")
	require.True(t, ok)
	require.Equal(t, 1, signer.Base().WalletID)
	_, ok = d.Signer(id(2), "0xpolkadot")
	require.False(t, ok)

	ms, ok := d.Accounts(3)[0].(wallet.MultisigAccount)
	require.True(t, ok)
	require.True(t, ms.HasSignatory(id(2)))
	require.False(t, ms.HasSignatory(id(5)))

	w, err := d.WalletOf(ms)
	require.NoError(t, err)
	require.Equal(t, "Team", w.Name)
	_, err = d.WalletOf(wallet.BaseAccount{WalletID: 42})
	require.ErrorIs(t, err, wallet.ErrUnknownWallet)
}

func TestNewDirectoryRejects(t *testing.T) {
	tests := []struct {
		name     string
		wallets  []wallet.Wallet
		accounts []wallet.Account
		want     string
	}{
		{
			name:    "duplicate wallet",
			wallets: []wallet.Wallet{{ID: 1, Name: "a", Kind: wallet.Vault}, {ID: 1, Name: "b", Kind: wallet.Vault}},
			want:    "duplicate wallet id 1",
		},
		{
			name:    "unknown kind",
			wallets: []wallet.Wallet{{ID: 1, Name: "a", Kind: "paper"}},
			want:    `wallet 1: unknown kind "paper"`,
		},
		{
			name:     "orphan account",
			wallets:  []wallet.Wallet{{ID: 1, Name: "a", Kind: wallet.Vault}},
			accounts: []wallet.Account{wallet.BaseAccount{WalletID: 2, AccountID: id(1)}},
			want:     "unknown wallet 2",
		},
		{
			name:     "short account id",
			wallets:  []wallet.Wallet{{ID: 1, Name: "a", Kind: wallet.Vault}},
			accounts: []wallet.Account{wallet.BaseAccount{WalletID: 1, AccountID: []byte{1, 2}}},
			want:     "AccountID",
		},
		{
			name:     "plain account in multisig wallet",
			wallets:  []wallet.Wallet{{ID: 1, Name: "a", Kind: wallet.Multisig}},
			accounts: []wallet.Account{wallet.BaseAccount{WalletID: 1, AccountID: id(1)}},
			want:     "plain account in multisig wallet",
		},
		{
			name:    "multisig with one signatory",
			wallets: []wallet.Wallet{{ID: 1, Name: "a", Kind: wallet.Multisig}},
			accounts: []wallet.Account{wallet.MultisigAccount{
				BaseAccount: wallet.BaseAccount{WalletID: 1, AccountID: id(1)},
				Threshold:   1,
				Signatories: []wallet.Signatory{{AccountID: id(2)}},
			}},
			want: "Signatories",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wallet.NewDirectory(tt.wallets, tt.accounts)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestRead(t *testing.T) {
	doc := fmt.Sprintf(`wallets:
  - id: 1
    name: Alice
    kind: single-shard
  - id: 2
    name: Team
    kind: multisig
accounts:
  - wallet-id: 1
    name: alice
    account-id: %[1]s
multisig:
  - wallet-id: 2
    name: team
    account-id: %[3]s
    threshold: 2
    signatories:
      - account-id: %[1]s
      - account-id: %[2]s
        name: bob
`, id(1), id(2), id(9))

	d, err := wallet.Read(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, d.Accounts(1), 1)
	ms := d.Accounts(2)[0].(wallet.MultisigAccount)
	require.Equal(t, 2, ms.Threshold)
	require.Equal(t, "bob", ms.Signatories[1].Name)

	_, err = wallet.Read(strings.NewReader("wallets: []\nunknown: 1\n"))
	require.ErrorContains(t, err, "decode wallets")
}
