package substrate

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

var ErrNoEventRecords = errors.New("runtime does not declare System.Events")

// Phase is the block execution phase an event was emitted in.
type Phase struct {
	ApplyExtrinsic bool
	ExtrinsicIndex uint32
}

// EventRecord is one entry of System.Events.
type EventRecord struct {
	Phase   Phase
	Section string
	Name    string
	Fields  any
}

// Is reports whether the record is section.name.
func (e EventRecord) Is(section, name string) bool {
	return e.Section == section && e.Name == name
}

// Field returns a named event field.
func (e EventRecord) Field(name string) (any, bool) {
	m, ok := e.Fields.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[name]
	return v, ok
}

// DecodeEvents decodes the raw System.Events storage value.
func (r *Registry) DecodeEvents(data []byte) ([]EventRecord, error) {
	if !r.hasEventRecords {
		return nil, ErrNoEventRecords
	}
	v, err := r.DecodeValue(r.eventRecords, data)
	if err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("decode events: unexpected %T", v)
	}

	records := make([]EventRecord, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("event %d: unexpected %T", i, item)
		}
		rec := EventRecord{Phase: parsePhase(m["phase"])}
		pallet, inner, ok := singleKey(m["event"])
		if !ok {
			return nil, fmt.Errorf("event %d: malformed event", i)
		}
		rec.Section = lowerFirst(pallet)
		switch ev := inner.(type) {
		case string:
			rec.Name = ev
		default:
			name, fields, ok := singleKey(ev)
			if !ok {
				return nil, fmt.Errorf("event %d: malformed %s event", i, pallet)
			}
			rec.Name, rec.Fields = name, fields
		}
		records = append(records, rec)
	}
	return records, nil
}

func parsePhase(v any) Phase {
	name, inner, ok := singleKey(v)
	if !ok || name != "ApplyExtrinsic" {
		return Phase{}
	}
	n, err := toBigInt(inner)
	if err != nil || !n.IsUint64() {
		return Phase{}
	}
	return Phase{ApplyExtrinsic: true, ExtrinsicIndex: uint32(n.Uint64())}
}

func singleKey(v any) (string, any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return "", nil, false
	}
	for k, val := range m {
		return k, val, true
	}
	return "", nil, false
}

// ModuleErrorName resolves a pallet-indexed error to "<section>: <Words>".
func (r *Registry) ModuleErrorName(palletIndex, errorIndex uint8) (string, error) {
	p, ok := r.palletByIndex[palletIndex]
	if !ok || !p.HasErrors {
		return "", fmt.Errorf("no errors declared for pallet index %d", palletIndex)
	}
	def, err := r.typeDef(p.Errors)
	if err != nil {
		return "", err
	}
	v, ok := def.variantByIndex(errorIndex)
	if !ok {
		return "", fmt.Errorf("%s: unknown error index %d", p.Name, errorIndex)
	}
	return fmt.Sprintf("%s: %s", p.Section(), SplitWords(v.Name)), nil
}

// DispatchErrorName renders a decoded DispatchError as readable text.
func (r *Registry) DispatchErrorName(v any) string {
	if s, ok := v.(string); ok {
		return SplitWords(s)
	}
	kind, inner, ok := singleKey(v)
	if !ok {
		return "Unknown error"
	}
	if kind == "Module" {
		palletIdx, errIdx, ok := moduleErrorIndices(inner)
		if !ok {
			return "Unknown module error"
		}
		name, err := r.ModuleErrorName(palletIdx, errIdx)
		if err != nil {
			return fmt.Sprintf("Module error %d:%d", palletIdx, errIdx)
		}
		return name
	}
	if s, ok := inner.(string); ok {
		return SplitWords(kind) + ": " + SplitWords(s)
	}
	return SplitWords(kind)
}

// moduleErrorIndices handles both ModuleError layouts: error as u8 and as [u8; 4].
func moduleErrorIndices(v any) (uint8, uint8, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return 0, 0, false
	}
	idx, ok := m["index"].(*big.Int)
	if !ok || !idx.IsUint64() {
		return 0, 0, false
	}
	switch e := m["error"].(type) {
	case []byte:
		if len(e) == 0 {
			return 0, 0, false
		}
		return uint8(idx.Uint64()), e[0], true
	case *big.Int:
		return uint8(idx.Uint64()), uint8(e.Uint64()), true
	}
	return 0, 0, false
}

// SplitWords splits an identifier on capitalisation boundaries:
// "InsufficientBalance" -> "Insufficient Balance".
func SplitWords(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
