package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const sample = `
wallets = "wallets.yaml"

[log]
format = "json"
level = "info"

[metrics]
listen = "localhost:9102"

[[chains]]
name = "Polkadot"
chain-id = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"
url = "wss://rpc.polkadot.io"
precision = 10
attempts = 3
delay = "500ms"
tip = "1000"

[[chains]]
name = "Westend"
chain-id = "0xe143f23803ac50e8f6f8e62695d1ce9e4e1d68aa36c1cd2cfd15340213f3423e"
metadata-file = "westend.hex"
ss58-format = 42
precision = 12
immortal = true
`

func TestRead(t *testing.T) {
	c, err := Read(strings.NewReader(sample), nil)
	require.NoError(t, err)

	require.Equal(t, "json", c.Log.Format)
	require.Equal(t, "localhost:9102", c.Metrics.Listen)
	require.Len(t, c.Chains, 2)

	dot, err := c.Chain("polkadot")
	require.NoError(t, err)
	cc := dot.ClientConfig()
	require.Equal(t, "wss://rpc.polkadot.io", cc.URL)
	require.Equal(t, uint(3), cc.Attempts)
	require.Equal(t, 500*time.Millisecond, cc.Delay)
	require.Nil(t, cc.SS58Format)
	require.Equal(t, "1000", dot.Options().Tip.String())

	wnd, err := c.Chain("0xe143f23803ac50e8f6f8e62695d1ce9e4e1d68aa36c1cd2cfd15340213f3423e")
	require.NoError(t, err)
	require.Equal(t, uint16(42), *wnd.SS58Format)
	require.True(t, wnd.Options().Immortal)
	require.Nil(t, wnd.Options().Tip)

	_, err = c.Chain("kusama")
	require.ErrorIs(t, err, ErrUnknownChain)
}

func TestReadOverrides(t *testing.T) {
	overrides, err := ParseOverrides([]string{"log.level=debug", "log.file=stdout", "wallets=/tmp/w.yaml"})
	require.NoError(t, err)

	c, err := Read(strings.NewReader(sample), overrides)
	require.NoError(t, err)
	require.Equal(t, "debug", c.Log.Level)
	require.Equal(t, "stdout", c.Log.File)
	require.Equal(t, "json", c.Log.Format)
	require.Equal(t, "/tmp/w.yaml", c.Wallets)

	_, err = ParseOverrides([]string{"nokey"})
	require.Error(t, err)

	overrides, err = ParseOverrides([]string{"wallets.path=x"})
	require.NoError(t, err)
	_, err = Read(strings.NewReader(sample), overrides)
	require.ErrorContains(t, err, "wallets is not a table")
}

func TestReadRejects(t *testing.T) {
	chain := func(extra string) string {
		return "[[chains]]\nname = \"Polkadot\"\nchain-id = \"0x91b1\"\nurl = \"wss://rpc.polkadot.io\"\n" + extra
	}
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "colour = \"blue\"\n", "unknown config keys"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "Level"},
		{"bad chain id", "[[chains]]\nname = \"x\"\nchain-id = \"91b1\"\nurl = \"wss://a.b\"\n", "ChainID"},
		{"no endpoint", "[[chains]]\nname = \"x\"\nchain-id = \"0x01\"\n", "needs a url or a metadata file"},
		{"duplicate chain", chain("") + chain(""), "duplicate chain id 0x91b1"},
		{"bad delay", chain("delay = \"soon\"\n"), "delay"},
		{"not toml", "[[[", "decode config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.doc), nil)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestWriteDefault(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, Write(buf, Default()))

	c, err := Read(buf, nil)
	require.NoError(t, err)
	require.Equal(t, Default(), c)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spektr.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	c, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, c.Chains, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"), nil)
	require.Error(t, err)
}

func TestRecursiveModifyToml(t *testing.T) {
	c := map[string]any{"log": map[string]any{"level": "info", "format": "console"}}
	require.NoError(t, RecursiveModifyToml(c, Toml{"log": Toml{"level": "debug"}, "metrics": Toml{"listen": ":9102"}}))
	require.Equal(t, map[string]any{
		"log":     map[string]any{"level": "debug", "format": "console"},
		"metrics": map[string]any{"listen": ":9102"},
	}, c)
}

func TestValidateReportsAll(t *testing.T) {
	c := Default()
	c.Chains[1].ChainID = c.Chains[0].ChainID
	c.Chains[1].URL = ""
	c.Chains[0].Delay = "later"

	err := c.Validate()
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 3)
}
