// Package config loads the TOML configuration of the spektr command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	tomlv2 "github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
)

var ErrUnknownChain = errors.New("unknown chain")

// Config is the root of the configuration file.
type Config struct {
	Log     Log     `toml:"log"`
	Wallets string  `toml:"wallets"`
	// History is the sqlite journal of submissions; empty disables it.
	History string  `toml:"history"`
	Metrics Metrics `toml:"metrics"`
	Chains  []Chain `toml:"chains" validate:"dive"`
}

type Log struct {
	File   string `toml:"file"`
	Format string `toml:"format" validate:"omitempty,oneof=console json"`
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
}

type Metrics struct {
	// Listen is the address of the prometheus endpoint; empty disables it.
	Listen string `toml:"listen" validate:"omitempty,hostname_port"`
}

// Chain describes one network the wallet talks to.
type Chain struct {
	Name    string `toml:"name" validate:"required"`
	ChainID string `toml:"chain-id" validate:"required,startswith=0x"`
	URL     string `toml:"url" validate:"omitempty,url"`
	// MetadataFile is hex metadata used when no node is reachable.
	MetadataFile string `toml:"metadata-file"`
	// SS58Format overrides System.SS58Prefix.
	SS58Format *uint16 `toml:"ss58-format" validate:"omitempty,lte=16383"`
	Precision  int32   `toml:"precision" validate:"gte=0,lte=36"`
	Attempts   uint    `toml:"attempts"`
	Delay      string  `toml:"delay"`
	EraPeriod  uint64  `toml:"era-period"`
	Immortal   bool    `toml:"immortal"`
	Tip        string  `toml:"tip" validate:"omitempty,number"`
}

// Default returns the configuration written by "spektr config init".
func Default() Config {
	return Config{
		Log:     Log{File: "stderr", Format: "console", Level: "info"},
		Wallets: "wallets.yaml",
		History: "history.db",
		Chains: []Chain{
			{
				Name:      "Polkadot",
				ChainID:   "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3",
				URL:       "wss://rpc.polkadot.io",
				Precision: 10,
				Delay:     "1s",
				Attempts:  5,
				EraPeriod: substrate.DefaultEraPeriod,
			},
			{
				Name:      "Kusama",
				ChainID:   "0xb0a8d493285c2df73290dfb7e61f870f17b41801197a149ca93654499ea3dafe",
				URL:       "wss://kusama-rpc.polkadot.io",
				Precision: 12,
				Delay:     "1s",
				Attempts:  5,
				EraPeriod: substrate.DefaultEraPeriod,
			},
		},
	}
}

// Validate checks field constraints and that chain ids are unique. All
// problems are reported together.
func (c Config) Validate() error {
	var err error
	if verr := validator.New().Struct(c); verr != nil {
		multierr.AppendInto(&err, verr)
	}
	seen := make(map[string]bool, len(c.Chains))
	for _, ch := range c.Chains {
		if seen[ch.ChainID] {
			multierr.AppendInto(&err, fmt.Errorf("duplicate chain id %s", ch.ChainID))
		}
		seen[ch.ChainID] = true
		if ch.URL == "" && ch.MetadataFile == "" {
			multierr.AppendInto(&err, fmt.Errorf("chain %s needs a url or a metadata file", ch.Name))
		}
		if _, derr := ch.RetryDelay(); derr != nil {
			multierr.AppendInto(&err, fmt.Errorf("chain %s: %w", ch.Name, derr))
		}
	}
	return err
}

// Chain returns the chain with the given id or case-insensitive name.
func (c Config) Chain(key string) (Chain, error) {
	for _, ch := range c.Chains {
		if ch.ChainID == key || strings.EqualFold(ch.Name, key) {
			return ch, nil
		}
	}
	return Chain{}, fmt.Errorf("%w %q", ErrUnknownChain, key)
}

// RetryDelay parses Delay; empty means the client default.
func (ch Chain) RetryDelay() (time.Duration, error) {
	if ch.Delay == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(ch.Delay)
	if err != nil {
		return 0, fmt.Errorf("delay: %w", err)
	}
	return d, nil
}

// ClientConfig returns the node connection settings.
func (ch Chain) ClientConfig() substrate.ClientConfig {
	delay, _ := ch.RetryDelay()
	return substrate.ClientConfig{
		URL:        ch.URL,
		SS58Format: ch.SS58Format,
		Attempts:   ch.Attempts,
		Delay:      delay,
	}
}

// Options returns the extrinsic envelope settings.
func (ch Chain) Options() substrate.Options {
	opts := substrate.Options{EraPeriod: ch.EraPeriod, Immortal: ch.Immortal}
	if tip, ok := new(big.Int).SetString(ch.Tip, 10); ok {
		opts.Tip = tip
	}
	return opts
}

// Toml is used for holding the decoded state of a toml config file.
type Toml map[string]any

// Read decodes a configuration, applies overrides and validates the result.
// Unknown keys are rejected.
func Read(r io.Reader, overrides Toml) (Config, error) {
	var raw Toml
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if raw == nil {
		raw = make(Toml)
	}
	if err := RecursiveModifyToml(raw, overrides); err != nil {
		return Config{}, fmt.Errorf("apply overrides: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(raw); err != nil {
		return Config{}, fmt.Errorf("encode config: %w", err)
	}
	var c Config
	md, err := toml.Decode(buf.String(), &c)
	if err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown config keys: %v", undecoded)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}

// Load reads the configuration file at path.
func Load(path string, overrides Toml) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer f.Close()
	return Read(f, overrides)
}

// Write encodes c as TOML.
func Write(w io.Writer, c Config) error {
	enc := tomlv2.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// RecursiveModifyToml will apply toml modifications at the current depth,
// then recurse for new depths.
func RecursiveModifyToml(c map[string]any, modifications Toml) error {
	for key, value := range modifications {
		if reflect.ValueOf(value).Kind() == reflect.Map {
			cV, ok := c[key]
			if !ok {
				// Did not find section in existing config, populating fresh.
				cV = make(Toml)
			}
			// Retrieve existing config to apply overrides to.
			cVM, ok := asMap(cV)
			if !ok {
				return fmt.Errorf("%s is not a table", key)
			}
			mods, ok := asMap(value)
			if !ok {
				return fmt.Errorf("%s: unsupported override %T", key, value)
			}
			if err := RecursiveModifyToml(cVM, mods); err != nil {
				return err
			}
			c[key] = cVM
		} else {
			// Not a map, so we can set override value directly.
			c[key] = value
		}
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case Toml:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

// ParseOverrides turns "log.level=debug" style assignments into a Toml tree.
// Values that parse as integers or booleans are stored as such.
func ParseOverrides(assignments []string) (Toml, error) {
	out := make(Toml)
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("override %q is not key=value", a)
		}
		parts := strings.Split(key, ".")
		node := out
		for _, p := range parts[:len(parts)-1] {
			next, ok := node[p].(Toml)
			if !ok {
				next = make(Toml)
				node[p] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = overrideValue(value)
	}
	return out, nil
}

func overrideValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
