package substrate

import "strings"

// RegistryBuilder assembles a Registry by hand. It backs test runtimes and
// tools that work without a live node.
type RegistryBuilder struct {
	types      map[TypeID]*TypeDef
	next       TypeID
	prims      map[Primitive]TypeID
	pallets    []Pallet
	extensions []SignedExtension
	callType   *TypeID
	eventType  *TypeID
	records    *TypeID
	version    uint8
}

// NewRegistryBuilder returns an empty builder for extrinsic format v4.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		types:   make(map[TypeID]*TypeDef),
		prims:   make(map[Primitive]TypeID),
		version: 4,
	}
}

// NamedField is a named composite or call field.
func NamedField(name string, t TypeID) Field {
	return Field{Name: name, Type: t}
}

// NewVariant is an enum arm.
func NewVariant(name string, index uint8, fields ...Field) Variant {
	return Variant{Name: name, Index: index, Fields: fields}
}

// Add registers def and returns its id.
func (b *RegistryBuilder) Add(def TypeDef) TypeID {
	id := b.next
	b.next++
	d := def
	b.types[id] = &d
	return id
}

// Primitive returns the id of a primitive, registering it once.
func (b *RegistryBuilder) Primitive(p Primitive) TypeID {
	if id, ok := b.prims[p]; ok {
		return id
	}
	id := b.Add(TypeDef{Kind: KindPrimitive, Primitive: p})
	b.prims[p] = id
	return id
}

func (b *RegistryBuilder) Compact(of TypeID) TypeID {
	return b.Add(TypeDef{Kind: KindCompact, Elem: of})
}

func (b *RegistryBuilder) Sequence(of TypeID) TypeID {
	return b.Add(TypeDef{Kind: KindSequence, Elem: of})
}

func (b *RegistryBuilder) Array(n uint32, of TypeID) TypeID {
	return b.Add(TypeDef{Kind: KindArray, Len: n, Elem: of})
}

func (b *RegistryBuilder) Tuple(of ...TypeID) TypeID {
	return b.Add(TypeDef{Kind: KindTuple, Tuple: of})
}

// Composite registers a struct; path is a "::"-separated type path.
func (b *RegistryBuilder) Composite(path string, fields ...Field) TypeID {
	return b.Add(TypeDef{Path: splitPath(path), Kind: KindComposite, Fields: fields})
}

// Enum registers a variant type; path is a "::"-separated type path.
func (b *RegistryBuilder) Enum(path string, variants ...Variant) TypeID {
	return b.Add(TypeDef{Path: splitPath(path), Kind: KindVariant, Variants: variants})
}

func (b *RegistryBuilder) Option(of TypeID) TypeID {
	return b.Enum("Option", NewVariant("None", 0), NewVariant("Some", 1, Field{Type: of}))
}

// CallType reserves the outer call enum so call arguments can refer to it;
// Build fills it from the registered pallets.
func (b *RegistryBuilder) CallType() TypeID {
	if b.callType == nil {
		id := b.Add(TypeDef{})
		b.callType = &id
	}
	return *b.callType
}

// WithEventRecords makes Build register RuntimeEvent and the
// Vec<EventRecord> stored under System.Events.
func (b *RegistryBuilder) WithEventRecords() *RegistryBuilder {
	if b.eventType == nil {
		id := b.Add(TypeDef{})
		b.eventType = &id
	}
	return b
}

// Pallet registers a module. Calls, events and errors are given as enum arms.
func (b *RegistryBuilder) Pallet(name string, index uint8, calls, events, errs []Variant) *RegistryBuilder {
	p := Pallet{Name: name, Index: index, Constants: make(map[string]Constant)}
	mod := "pallet_" + strings.ToLower(name)
	if calls != nil {
		p.HasCalls, p.Calls = true, b.Enum(mod+"::pallet::Call", calls...)
	}
	if events != nil {
		p.HasEvents, p.Events = true, b.Enum(mod+"::pallet::Event", events...)
	}
	if errs != nil {
		p.HasErrors, p.Errors = true, b.Enum(mod+"::pallet::Error", errs...)
	}
	b.pallets = append(b.pallets, p)
	return b
}

// Constant attaches a constant to an already registered pallet.
func (b *RegistryBuilder) Constant(pallet, name string, t TypeID, value []byte) *RegistryBuilder {
	for i := range b.pallets {
		if b.pallets[i].Name == pallet {
			b.pallets[i].Constants[name] = Constant{Type: t, Value: value}
		}
	}
	return b
}

// Extensions sets the signed extension identifiers in runtime order.
func (b *RegistryBuilder) Extensions(ids ...string) *RegistryBuilder {
	empty := b.Tuple()
	b.extensions = b.extensions[:0]
	for _, id := range ids {
		b.extensions = append(b.extensions, SignedExtension{Identifier: id, Type: empty, AdditionalSigned: empty})
	}
	return b
}

// Build finalises the outer enums and returns the registry.
func (b *RegistryBuilder) Build() (*Registry, error) {
	if b.callType != nil {
		outer := TypeDef{Path: []string{"runtime", "RuntimeCall"}, Kind: KindVariant}
		for _, p := range b.pallets {
			if p.HasCalls {
				outer.Variants = append(outer.Variants, NewVariant(p.Name, p.Index, Field{Type: p.Calls}))
			}
		}
		b.types[*b.callType] = &outer
	}

	if b.eventType != nil {
		outer := TypeDef{Path: []string{"runtime", "RuntimeEvent"}, Kind: KindVariant}
		for _, p := range b.pallets {
			if p.HasEvents {
				outer.Variants = append(outer.Variants, NewVariant(p.Name, p.Index, Field{Type: p.Events}))
			}
		}
		b.types[*b.eventType] = &outer

		phase := b.Enum("frame_system::Phase",
			NewVariant("ApplyExtrinsic", 0, Field{Type: b.Primitive(U32)}),
			NewVariant("Finalization", 1),
			NewVariant("Initialization", 2),
		)
		hash := b.Array(32, b.Primitive(U8))
		record := b.Composite("frame_system::EventRecord",
			NamedField("phase", phase),
			NamedField("event", *b.eventType),
			NamedField("topics", b.Sequence(hash)),
		)
		records := b.Sequence(record)
		b.records = &records
	}

	return NewRegistry(RegistryConfig{
		Types:            b.types,
		Pallets:          b.pallets,
		CallType:         b.callType,
		EventRecords:     b.records,
		ExtrinsicVersion: b.version,
		Extensions:       b.extensions,
	})
}

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, "::")
}
