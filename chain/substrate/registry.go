package substrate

import (
	"fmt"
	"strings"
)

// TypeID indexes a type in the runtime's portable type registry.
type TypeID uint32

// TypeKind is the shape of a registry type.
type TypeKind uint8

const (
	KindPrimitive TypeKind = iota
	KindComposite
	KindVariant
	KindSequence
	KindArray
	KindTuple
	KindCompact
	KindBitSequence
)

// Primitive follows the ordering used by scale-info.
type Primitive uint8

const (
	Bool Primitive = iota
	Char
	Str
	U8
	U16
	U32
	U64
	U128
	U256
	I8
	I16
	I32
	I64
	I128
	I256
)

// Field is a named or positional member of a composite type or variant.
type Field struct {
	Name     string
	TypeName string
	Type     TypeID
}

// Variant is one arm of an enum type.
type Variant struct {
	Name   string
	Index  uint8
	Fields []Field
}

// TypeDef describes a single registry entry.
type TypeDef struct {
	Path      []string
	Kind      TypeKind
	Primitive Primitive
	Fields    []Field
	Variants  []Variant
	Elem      TypeID
	Len       uint32
	Tuple     []TypeID
}

// Name is the last path segment, e.g. "MultiAddress".
func (d *TypeDef) Name() string {
	if len(d.Path) == 0 {
		return ""
	}
	return d.Path[len(d.Path)-1]
}

func (d *TypeDef) isOption() bool {
	return d.Kind == KindVariant && d.Name() == "Option"
}

func (d *TypeDef) variantByIndex(idx uint8) (*Variant, bool) {
	for i := range d.Variants {
		if d.Variants[i].Index == idx {
			return &d.Variants[i], true
		}
	}
	return nil, false
}

func (d *TypeDef) variantByName(name string) (*Variant, bool) {
	for i := range d.Variants {
		if d.Variants[i].Name == name {
			return &d.Variants[i], true
		}
	}
	return nil, false
}

// Constant is a pallet constant as declared in metadata.
type Constant struct {
	Type  TypeID
	Value []byte
}

// Pallet is a runtime module.
type Pallet struct {
	Name      string
	Index     uint8
	HasCalls  bool
	Calls     TypeID
	HasEvents bool
	Events    TypeID
	HasErrors bool
	Errors    TypeID
	Constants map[string]Constant
}

// Section is the camelCase pallet name used for classification, e.g. "convictionVoting".
func (p *Pallet) Section() string {
	return lowerFirst(p.Name)
}

// SignedExtension is a transaction extension in the order the runtime expects it.
type SignedExtension struct {
	Identifier       string
	Type             TypeID
	AdditionalSigned TypeID
}

type callEntry struct {
	pallet  *Pallet
	variant *Variant
}

// Registry is a read-only view over runtime metadata: types, pallets and the
// outer call/event enums. It is safe for concurrent use once built.
type Registry struct {
	types            map[TypeID]*TypeDef
	pallets          []*Pallet
	palletByIndex    map[uint8]*Pallet
	palletBySection  map[string]*Pallet
	calls            map[string]callEntry
	callType         TypeID
	hasCallType      bool
	eventRecords     TypeID
	hasEventRecords  bool
	extrinsicVersion uint8
	extensions       []SignedExtension
}

// RegistryConfig carries the pieces of metadata a Registry is built from.
type RegistryConfig struct {
	Types            map[TypeID]*TypeDef
	Pallets          []Pallet
	CallType         *TypeID
	EventRecords     *TypeID
	ExtrinsicVersion uint8
	Extensions       []SignedExtension
}

// NewRegistry indexes the given metadata. When CallType is nil the outer call
// enum is located by matching pallet call types.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	r := &Registry{
		types:            cfg.Types,
		palletByIndex:    make(map[uint8]*Pallet, len(cfg.Pallets)),
		palletBySection:  make(map[string]*Pallet, len(cfg.Pallets)),
		calls:            make(map[string]callEntry),
		extrinsicVersion: cfg.ExtrinsicVersion,
		extensions:       cfg.Extensions,
	}
	if r.types == nil {
		r.types = make(map[TypeID]*TypeDef)
	}

	for i := range cfg.Pallets {
		p := cfg.Pallets[i]
		r.pallets = append(r.pallets, &p)
		r.palletByIndex[p.Index] = &p
		r.palletBySection[p.Section()] = &p
		if !p.HasCalls {
			continue
		}
		def, err := r.typeDef(p.Calls)
		if err != nil {
			return nil, fmt.Errorf("pallet %s calls: %w", p.Name, err)
		}
		if def.Kind != KindVariant {
			return nil, fmt.Errorf("pallet %s calls: type %d is not an enum", p.Name, p.Calls)
		}
		for j := range def.Variants {
			r.calls[callKey(p.Section(), camelCase(def.Variants[j].Name))] = callEntry{pallet: &p, variant: &def.Variants[j]}
		}
	}

	switch {
	case cfg.CallType != nil:
		r.callType, r.hasCallType = *cfg.CallType, true
	default:
		r.callType, r.hasCallType = r.findOuterEnum(func(p *Pallet) (TypeID, bool) { return p.Calls, p.HasCalls })
	}
	if cfg.EventRecords != nil {
		r.eventRecords, r.hasEventRecords = *cfg.EventRecords, true
	}
	return r, nil
}

// findOuterEnum locates the aggregate enum (RuntimeCall, RuntimeEvent) whose
// arms wrap each pallet's own enum at the pallet index.
func (r *Registry) findOuterEnum(inner func(p *Pallet) (TypeID, bool)) (TypeID, bool) {
	for id, def := range r.types {
		if def.Kind != KindVariant || len(def.Variants) == 0 {
			continue
		}
		matched := 0
		for _, v := range def.Variants {
			p, ok := r.palletByIndex[v.Index]
			if !ok || len(v.Fields) != 1 {
				break
			}
			t, ok := inner(p)
			if !ok || t != v.Fields[0].Type {
				break
			}
			matched++
		}
		if matched == len(def.Variants) {
			return id, true
		}
	}
	return 0, false
}

func (r *Registry) typeDef(id TypeID) (*TypeDef, error) {
	def, ok := r.types[id]
	if !ok {
		return nil, fmt.Errorf("type %d not found in registry", id)
	}
	return def, nil
}

// Pallet returns the pallet with the given camelCase section name.
func (r *Registry) Pallet(section string) (*Pallet, bool) {
	p, ok := r.palletBySection[section]
	return p, ok
}

// PalletByIndex returns the pallet at the given index.
func (r *Registry) PalletByIndex(idx uint8) (*Pallet, bool) {
	p, ok := r.palletByIndex[idx]
	return p, ok
}

// HasMethod reports whether section.method is a declared call.
func (r *Registry) HasMethod(section, method string) bool {
	_, ok := r.calls[callKey(section, method)]
	return ok
}

// Params lists the camelCase parameter names of section.method in declaration
// order, or nil when the call is not declared.
func (r *Registry) Params(section, method string) []string {
	e, ok := r.calls[callKey(section, method)]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(e.variant.Fields))
	for _, f := range e.variant.Fields {
		names = append(names, camelCase(f.Name))
	}
	return names
}

// ExtrinsicVersion is the extrinsic format version declared by metadata.
func (r *Registry) ExtrinsicVersion() uint8 {
	return r.extrinsicVersion
}

// SignedExtensions returns the runtime's transaction extensions in order.
func (r *Registry) SignedExtensions() []SignedExtension {
	return r.extensions
}

func callKey(section, method string) string {
	return section + "." + method
}

// camelCase converts snake_case identifiers (call and argument names) to the
// camelCase form used throughout the wallet.
func camelCase(s string) string {
	if !strings.Contains(s, "_") {
		return lowerFirst(s)
	}
	parts := strings.Split(s, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(lowerFirst(p))
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return b.String()
}

// lowerFirst lowercases the leading run of capitals the way pallet names are
// rendered: "XTokens" -> "xTokens", "ConvictionVoting" -> "convictionVoting".
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	upper := 0
	for upper < len(s) && s[upper] >= 'A' && s[upper] <= 'Z' {
		upper++
	}
	switch {
	case upper == 0:
		return s
	case upper == 1 || upper == len(s):
		return strings.ToLower(s[:upper]) + s[upper:]
	default:
		// keep the capital that starts the next word
		return strings.ToLower(s[:upper-1]) + s[upper-1:]
	}
}
