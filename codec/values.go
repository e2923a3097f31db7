package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/icza/dyno"
	"github.com/tidwall/gjson"

	"github.com/novasamatech/nova-spektr-sub000/chain/substrate"
	"github.com/novasamatech/nova-spektr-sub000/transaction"
)

// valueReader turns decoded call arguments into wallet argument values.
// The first conversion failure is kept and later reads become no-ops.
type valueReader struct {
	ledger Ledger
	call   *substrate.ParsedCall
	err    error
}

func (r *valueReader) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s.%s %s: %w", r.call.Section, r.call.Method, name, err)
	}
}

func (r *valueReader) raw(name string) any {
	v, ok := r.call.Arg(name)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("%s.%s: %w %s", r.call.Section, r.call.Method, ErrMalformedCall, name)
	}
	return v
}

func (r *valueReader) has(name string) bool {
	_, ok := r.call.Arg(name)
	return ok
}

func (r *valueReader) number(name string) string {
	v := r.raw(name)
	if v == nil {
		return ""
	}
	s, err := numberString(v)
	if err != nil {
		r.fail(name, err)
	}
	return s
}

// optionalNumber returns nil for Option::None.
func (r *valueReader) optionalNumber(name string) any {
	if v := r.raw(name); v == nil {
		return nil
	}
	return r.number(name)
}

func (r *valueReader) bool(name string) bool {
	b, _ := r.raw(name).(bool)
	return b
}

func (r *valueReader) variant(name string) string {
	v := r.raw(name)
	s, ok := v.(string)
	if !ok {
		r.fail(name, fmt.Errorf("expected a fieldless variant, got %T", v))
	}
	return s
}

func (r *valueReader) optionalVariant(name string) any {
	if v := r.raw(name); v == nil {
		return nil
	}
	return r.variant(name)
}

func (r *valueReader) address(name string) string {
	s, err := addressString(r.ledger, r.raw(name))
	if err != nil {
		r.fail(name, err)
	}
	return s
}

func (r *valueReader) addresses(name string) []string {
	items, ok := r.raw(name).([]any)
	if !ok {
		r.fail(name, fmt.Errorf("expected a list of accounts"))
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := addressString(r.ledger, item)
		if err != nil {
			r.fail(name, err)
			return nil
		}
		out = append(out, s)
	}
	return out
}

// json renders a structured argument (XCM locations, currency ids) as JSON
// text with sorted keys.
func (r *valueReader) json(name string) string {
	s, err := substrate.RenderJSON(r.raw(name))
	if err != nil {
		r.fail(name, err)
	}
	return s
}

func (r *valueReader) bytes(name string) []byte {
	switch t := r.raw(name).(type) {
	case substrate.RawCall:
		return t
	case []byte:
		return t
	}
	r.fail(name, fmt.Errorf("expected bytes"))
	return nil
}

func (r *valueReader) weight(name string) transaction.Weight {
	var w transaction.Weight
	m, ok := r.raw(name).(map[string]any)
	if !ok {
		r.fail(name, fmt.Errorf("expected a weight record"))
		return w
	}
	var err error
	if w.RefTime, err = uint64Of(m["refTime"]); err != nil {
		r.fail(name, err)
	}
	if w.ProofSize, err = uint64Of(m["proofSize"]); err != nil {
		r.fail(name, err)
	}
	return w
}

// timepoint returns nil for Option::None.
func (r *valueReader) timepoint(name string) any {
	v := r.raw(name)
	if v == nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		r.fail(name, fmt.Errorf("expected a timepoint"))
		return nil
	}
	height, err := uint64Of(m["height"])
	if err != nil {
		r.fail(name, err)
	}
	index, err := uint64Of(m["index"])
	if err != nil {
		r.fail(name, err)
	}
	return transaction.Timepoint{Height: uint32(height), Index: uint32(index)}
}

// payee parses the reward destination from its JSON form: a bare variant
// name, or {"Account": "0x.."}.
func (r *valueReader) payee(name string) transaction.Payee {
	text, err := substrate.RenderJSON(r.raw(name))
	if err != nil {
		r.fail(name, err)
		return transaction.Payee{}
	}
	res := gjson.Parse(text)
	switch {
	case res.Type == gjson.String:
		p := transaction.Payee{Type: res.String()}
		if err := p.Validate(); err != nil {
			r.fail(name, fmt.Errorf("%w: %s", ErrUnparseableSelector, text))
		}
		return p
	case res.IsObject():
		account := res.Get(transaction.PayeeAccount)
		if !account.Exists() {
			break
		}
		id, err := substrate.HexDecode(account.String())
		if err != nil {
			break
		}
		addr, err := r.ledger.EncodeAddress(id)
		if err != nil {
			break
		}
		return transaction.Payee{Type: transaction.PayeeAccount, Account: addr}
	}
	r.fail(name, fmt.Errorf("%w: %s", ErrUnparseableSelector, text))
	return transaction.Payee{}
}

// vote parses an AccountVote. The standard vote byte carries aye in its high
// bit and the conviction index in the low bits.
func (r *valueReader) vote(name string) transaction.AccountVote {
	text, err := substrate.RenderJSON(r.raw(name))
	if err != nil {
		r.fail(name, err)
		return transaction.AccountVote{}
	}
	res := gjson.Parse(text)
	switch {
	case res.Get(transaction.VoteStandard).Exists():
		std := res.Get(transaction.VoteStandard)
		b, err := strconv.ParseUint(std.Get("vote").String(), 10, 8)
		if err != nil {
			break
		}
		conviction, err := transaction.ConvictionFromIndex(uint8(b) & 0x7f)
		if err != nil {
			break
		}
		return transaction.AccountVote{
			Kind:       transaction.VoteStandard,
			Aye:        b&0x80 != 0,
			Conviction: conviction,
			Balance:    std.Get("balance").String(),
		}
	case res.Get(transaction.VoteSplit).Exists():
		split := res.Get(transaction.VoteSplit)
		return transaction.AccountVote{
			Kind:       transaction.VoteSplit,
			AyeBalance: split.Get("aye").String(),
			NayBalance: split.Get("nay").String(),
		}
	case res.Get(transaction.VoteSplitAbstain).Exists():
		split := res.Get(transaction.VoteSplitAbstain)
		return transaction.AccountVote{
			Kind:           transaction.VoteSplitAbstain,
			AyeBalance:     split.Get("aye").String(),
			NayBalance:     split.Get("nay").String(),
			AbstainBalance: split.Get("abstain").String(),
		}
	}
	r.fail(name, fmt.Errorf("%w: %s", ErrUnparseableSelector, text))
	return transaction.AccountVote{}
}

func numberString(v any) (string, error) {
	switch t := v.(type) {
	case *big.Int:
		return t.String(), nil
	case string:
		return t, nil
	}
	return "", fmt.Errorf("expected a number, got %T", v)
}

func uint64Of(v any) (uint64, error) {
	n, ok := v.(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("expected an unsigned number, got %v", v)
	}
	return n.Uint64(), nil
}

// addressString encodes a decoded account: a raw AccountId32, or a
// MultiAddress carrying one. Other MultiAddress forms are kept as JSON text.
func addressString(l Ledger, v any) (string, error) {
	switch t := v.(type) {
	case []byte:
		if len(t) == 32 {
			return l.EncodeAddress(t)
		}
	case map[string]any:
		for _, key := range []string{"Id", "Address32"} {
			if id, ok := t[key].([]byte); ok && len(id) == 32 {
				return l.EncodeAddress(id)
			}
		}
		return substrate.RenderJSON(t)
	}
	return "", fmt.Errorf("expected an account, got %T", v)
}

// parseJSONArg turns JSON text arguments back into values the runtime encoder
// accepts. Text that is not JSON is passed through as a bare string.
func parseJSONArg(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return s
	}
	return out
}

// parachainOf returns the destination parachain id of a rendered
// VersionedLocation.
func parachainOf(location any) (string, bool) {
	for _, path := range [][]any{
		{"V3", "interior", "X1", "Parachain"},
		{"V3", "interior", "X2", 0, "Parachain"},
		{"V3", "interior", "X3", 0, "Parachain"},
		{"V4", "interior", "X1", 0, "Parachain"},
		{"V4", "interior", "X2", 0, "Parachain"},
		{"V4", "interior", "X3", 0, "Parachain"},
	} {
		if id, err := dyno.GetString(location, path...); err == nil {
			return id, true
		}
	}
	return "", false
}

// fungibleOf returns the fungible amount of a rendered VersionedAssets
// (first asset) or VersionedAsset.
func fungibleOf(assets any) (string, bool) {
	for _, path := range [][]any{
		{"V3", 0, "fun", "Fungible"},
		{"V4", 0, "fun", "Fungible"},
		{"V3", "fun", "Fungible"},
		{"V4", "fun", "Fungible"},
	} {
		if amount, err := dyno.GetString(assets, path...); err == nil {
			return amount, true
		}
	}
	return "", false
}
