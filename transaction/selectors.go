package transaction

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Payee types of the staking reward destination.
const (
	PayeeStaked     = "Staked"
	PayeeStash      = "Stash"
	PayeeController = "Controller"
	PayeeAccount    = "Account"
	PayeeNone       = "None"
)

// Payee is where staking rewards go. Account is set only for PayeeAccount.
type Payee struct {
	Type    string `yaml:"type" json:"type"`
	Account string `yaml:"account,omitempty" json:"account,omitempty"`
}

// Validate returns an error if the payee is not well-formed.
func (p Payee) Validate() error {
	switch p.Type {
	case PayeeStaked, PayeeStash, PayeeController, PayeeNone:
		if p.Account != "" {
			return fmt.Errorf("payee %s cannot carry an account", p.Type)
		}
		return nil
	case PayeeAccount:
		if p.Account == "" {
			return fmt.Errorf("payee account cannot be empty")
		}
		return nil
	}
	return fmt.Errorf("unknown payee type %q", p.Type)
}

// Conviction multiplies voting power in exchange for a longer lock.
type Conviction string

const (
	ConvictionNone Conviction = "None"
	Locked1x       Conviction = "Locked1x"
	Locked2x       Conviction = "Locked2x"
	Locked3x       Conviction = "Locked3x"
	Locked4x       Conviction = "Locked4x"
	Locked5x       Conviction = "Locked5x"
	Locked6x       Conviction = "Locked6x"
)

var convictions = []Conviction{ConvictionNone, Locked1x, Locked2x, Locked3x, Locked4x, Locked5x, Locked6x}

// ConvictionFromIndex returns the conviction at its ledger index.
func ConvictionFromIndex(i uint8) (Conviction, error) {
	if int(i) >= len(convictions) {
		return "", fmt.Errorf("conviction index %d out of range", i)
	}
	return convictions[i], nil
}

// Index is the ledger index of c.
func (c Conviction) Index() (uint8, error) {
	for i, known := range convictions {
		if c == known {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("unknown conviction %q", c)
}

// Vote kinds of a referendum vote.
const (
	VoteStandard     = "Standard"
	VoteSplit        = "Split"
	VoteSplitAbstain = "SplitAbstain"
)

// AccountVote is a referendum vote. Standard votes use Aye, Conviction and
// Balance; split votes use the per-side balances.
type AccountVote struct {
	Kind           string     `yaml:"kind" json:"kind"`
	Aye            bool       `yaml:"aye,omitempty" json:"aye,omitempty"`
	Conviction     Conviction `yaml:"conviction,omitempty" json:"conviction,omitempty"`
	Balance        string     `yaml:"balance,omitempty" json:"balance,omitempty"`
	AyeBalance     string     `yaml:"ayeBalance,omitempty" json:"ayeBalance,omitempty"`
	NayBalance     string     `yaml:"nayBalance,omitempty" json:"nayBalance,omitempty"`
	AbstainBalance string     `yaml:"abstainBalance,omitempty" json:"abstainBalance,omitempty"`
}

// Validate returns an error if the vote is not well-formed.
func (v AccountVote) Validate() error {
	switch v.Kind {
	case VoteStandard:
		if _, err := v.Conviction.Index(); err != nil {
			return err
		}
		return requireAmount("balance", v.Balance)
	case VoteSplit:
		if err := requireAmount("ayeBalance", v.AyeBalance); err != nil {
			return err
		}
		return requireAmount("nayBalance", v.NayBalance)
	case VoteSplitAbstain:
		if err := requireAmount("ayeBalance", v.AyeBalance); err != nil {
			return err
		}
		if err := requireAmount("nayBalance", v.NayBalance); err != nil {
			return err
		}
		return requireAmount("abstainBalance", v.AbstainBalance)
	}
	return fmt.Errorf("unknown vote kind %q", v.Kind)
}

func requireAmount(name, v string) error {
	if v == "" {
		return fmt.Errorf("vote %s cannot be empty", name)
	}
	if !isDecimal(v) {
		return fmt.Errorf("vote %s %q is not a decimal amount", name, v)
	}
	return nil
}

// isDecimal reports whether s is a plain non-negative integer.
func isDecimal(s string) bool {
	d, err := decimal.NewFromString(s)
	return err == nil && !d.IsNegative() && d.IsInteger() && d.String() == s
}

// Weight is a two-dimensional dispatch weight.
type Weight struct {
	RefTime   uint64 `yaml:"refTime" json:"refTime"`
	ProofSize uint64 `yaml:"proofSize" json:"proofSize"`
}

// IsZero reports whether no weight was set.
func (w Weight) IsZero() bool {
	return w.RefTime == 0 && w.ProofSize == 0
}

// Timepoint identifies the extrinsic that opened a multisig operation.
type Timepoint struct {
	Height uint32 `yaml:"height" json:"height"`
	Index  uint32 `yaml:"index" json:"index"`
}

// ParseTimepoint reads a timepoint written as height-index.
func ParseTimepoint(s string) (Timepoint, error) {
	height, index, ok := strings.Cut(s, "-")
	if !ok {
		return Timepoint{}, fmt.Errorf("timepoint %q: expected height-index", s)
	}
	h, err := strconv.ParseUint(height, 10, 32)
	if err != nil {
		return Timepoint{}, fmt.Errorf("timepoint %q: height: %w", s, err)
	}
	i, err := strconv.ParseUint(index, 10, 32)
	if err != nil {
		return Timepoint{}, fmt.Errorf("timepoint %q: index: %w", s, err)
	}
	return Timepoint{Height: uint32(h), Index: uint32(i)}, nil
}

func (t Timepoint) String() string {
	return fmt.Sprintf("%d-%d", t.Height, t.Index)
}
