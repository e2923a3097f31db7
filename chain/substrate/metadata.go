package substrate

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	gstypes "github.com/misko9/go-substrate-rpc-client/v4/types"
	"github.com/misko9/go-substrate-rpc-client/v4/types/codec"
)

var ErrMetadataVersion = errors.New("unsupported metadata version")

// RegistryFromMetadata converts V14 runtime metadata into a Registry.
func RegistryFromMetadata(meta *gstypes.Metadata) (*Registry, error) {
	if meta.Version != 14 {
		return nil, fmt.Errorf("%w: v%d", ErrMetadataVersion, meta.Version)
	}
	m := meta.AsMetadataV14

	types := make(map[TypeID]*TypeDef, len(m.Lookup.Types))
	for _, pt := range m.Lookup.Types {
		def, err := convertType(pt.Type)
		if err != nil {
			return nil, fmt.Errorf("type %d: %w", lookupID(pt.ID), err)
		}
		types[lookupID(pt.ID)] = def
	}

	var (
		pallets      = make([]Pallet, 0, len(m.Pallets))
		eventRecords *TypeID
	)
	for _, p := range m.Pallets {
		pallet := Pallet{
			Name:      string(p.Name),
			Index:     uint8(p.Index),
			HasCalls:  p.HasCalls,
			Calls:     lookupID(p.Calls.Type),
			HasEvents: p.HasEvents,
			Events:    lookupID(p.Events.Type),
			HasErrors: p.HasErrors,
			Errors:    lookupID(p.Errors.Type),
			Constants: make(map[string]Constant, len(p.Constants)),
		}
		for _, c := range p.Constants {
			pallet.Constants[string(c.Name)] = Constant{Type: lookupID(c.Type), Value: []byte(c.Value)}
		}
		if pallet.Name == "System" && p.HasStorage {
			for _, item := range p.Storage.Items {
				if string(item.Name) == "Events" && item.Type.IsPlainType {
					id := lookupID(item.Type.AsPlainType)
					eventRecords = &id
				}
			}
		}
		pallets = append(pallets, pallet)
	}

	extensions := make([]SignedExtension, 0, len(m.Extrinsic.SignedExtensions))
	for _, ext := range m.Extrinsic.SignedExtensions {
		extensions = append(extensions, SignedExtension{
			Identifier:       string(ext.Identifier),
			Type:             lookupID(ext.Type),
			AdditionalSigned: lookupID(ext.AdditionalSigned),
		})
	}

	return NewRegistry(RegistryConfig{
		Types:            types,
		Pallets:          pallets,
		EventRecords:     eventRecords,
		ExtrinsicVersion: uint8(m.Extrinsic.Version),
		Extensions:       extensions,
	})
}

// RuntimeFromMetadata builds a Runtime, taking the address format from
// System.SS58Prefix unless an override is given.
func RuntimeFromMetadata(meta *gstypes.Metadata, ss58Override *uint16) (*Runtime, error) {
	reg, err := RegistryFromMetadata(meta)
	if err != nil {
		return nil, err
	}
	format, ok := ss58FormatFromConstants(reg)
	if ss58Override != nil {
		format, ok = *ss58Override, true
	}
	if !ok {
		format = 42
	}
	return NewRuntime(reg, format), nil
}

// LoadMetadataFile reads hex-encoded metadata as returned by state_getMetadata.
func LoadMetadataFile(path string) (*gstypes.Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var meta gstypes.Metadata
	if err := codec.DecodeFromHex(strings.TrimSpace(string(raw)), &meta); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", path, err)
	}
	return &meta, nil
}

func lookupID(id gstypes.Si1LookupTypeID) TypeID {
	n := big.Int(id.UCompact)
	return TypeID(n.Uint64())
}

func convertType(t gstypes.Si1Type) (*TypeDef, error) {
	def := &TypeDef{Path: make([]string, 0, len(t.Path))}
	for _, seg := range t.Path {
		def.Path = append(def.Path, string(seg))
	}

	switch {
	case t.Def.IsComposite:
		def.Kind = KindComposite
		def.Fields = convertFields(t.Def.Composite.Fields)
	case t.Def.IsVariant:
		def.Kind = KindVariant
		for _, v := range t.Def.Variant.Variants {
			def.Variants = append(def.Variants, Variant{
				Name:   string(v.Name),
				Index:  uint8(v.Index),
				Fields: convertFields(v.Fields),
			})
		}
	case t.Def.IsSequence:
		def.Kind = KindSequence
		def.Elem = lookupID(t.Def.Sequence.Type)
	case t.Def.IsArray:
		def.Kind = KindArray
		def.Len = uint32(t.Def.Array.Len)
		def.Elem = lookupID(t.Def.Array.Type)
	case t.Def.IsTuple:
		def.Kind = KindTuple
		for _, id := range t.Def.Tuple {
			def.Tuple = append(def.Tuple, lookupID(id))
		}
	case t.Def.IsPrimitive:
		def.Kind = KindPrimitive
		def.Primitive = Primitive(t.Def.Primitive.Si0TypeDefPrimitive)
	case t.Def.IsCompact:
		def.Kind = KindCompact
		def.Elem = lookupID(t.Def.Compact.Type)
	case t.Def.IsBitSequence:
		def.Kind = KindBitSequence
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, strings.Join(def.Path, "::"))
	}
	return def, nil
}

func convertFields(fields []gstypes.Si1Field) []Field {
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		field := Field{Type: lookupID(f.Type)}
		if f.HasName {
			field.Name = string(f.Name)
		}
		if f.HasTypeName {
			field.TypeName = string(f.TypeName)
		}
		out = append(out, field)
	}
	return out
}
