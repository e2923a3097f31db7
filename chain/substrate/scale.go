package substrate

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/misko9/go-substrate-rpc-client/v4/scale"
)

// maxValueDepth bounds recursion through nested types and embedded calls.
const maxValueDepth = 64

var (
	ErrTrailingBytes = errors.New("trailing bytes after value")
	ErrValueDepth    = errors.New("value nesting too deep")
	ErrUnsupported   = errors.New("unsupported type")
)

// RawCall is an encoded runtime call found inside another value, e.g. the
// inner call of a proxy or each element of a batch.
type RawCall []byte

// decoder walks a byte slice with gsrpc's SCALE primitives while tracking the
// offset, so embedded calls can be cut out verbatim.
type decoder struct {
	reg  *Registry
	data []byte
	r    *bytes.Reader
	dec  *scale.Decoder
}

func newDecoder(reg *Registry, data []byte) *decoder {
	r := bytes.NewReader(data)
	return &decoder{reg: reg, data: data, r: r, dec: scale.NewDecoder(r)}
}

func (d *decoder) offset() int {
	return len(d.data) - d.r.Len()
}

func (d *decoder) remaining() int {
	return d.r.Len()
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if n < 0 || n > d.r.Len() {
		return nil, fmt.Errorf("need %d bytes, have %d", n, d.r.Len())
	}
	b := make([]byte, n)
	if err := d.dec.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *decoder) compactLen() (int, error) {
	n, err := d.dec.DecodeUintCompact()
	if err != nil {
		return 0, err
	}
	if !n.IsInt64() || n.Int64() > int64(d.r.Len()) {
		return 0, fmt.Errorf("length %s exceeds remaining input", n)
	}
	return int(n.Int64()), nil
}

// DecodeValue decodes a complete value of the given type from data.
func (r *Registry) DecodeValue(id TypeID, data []byte) (any, error) {
	d := newDecoder(r, data)
	v, err := d.value(id, 0)
	if err != nil {
		return nil, err
	}
	if d.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d", ErrTrailingBytes, d.remaining())
	}
	return v, nil
}

func (d *decoder) value(id TypeID, depth int) (any, error) {
	if depth > maxValueDepth {
		return nil, ErrValueDepth
	}
	if d.reg.hasCallType && id == d.reg.callType {
		start := d.offset()
		if _, err := d.call(depth + 1); err != nil {
			return nil, err
		}
		return RawCall(append([]byte(nil), d.data[start:d.offset()]...)), nil
	}

	def, err := d.reg.typeDef(id)
	if err != nil {
		return nil, err
	}

	switch def.Kind {
	case KindPrimitive:
		return d.primitive(def.Primitive)
	case KindCompact:
		return d.dec.DecodeUintCompact()
	case KindComposite:
		return d.fields(def.Fields, depth)
	case KindVariant:
		idx, err := d.dec.ReadOneByte()
		if err != nil {
			return nil, err
		}
		v, ok := def.variantByIndex(idx)
		if !ok {
			return nil, fmt.Errorf("%s: unknown variant index %d", def.Name(), idx)
		}
		if def.isOption() {
			if len(v.Fields) == 0 {
				return nil, nil
			}
			return d.value(v.Fields[0].Type, depth+1)
		}
		if len(v.Fields) == 0 {
			return v.Name, nil
		}
		inner, err := d.fields(v.Fields, depth)
		if err != nil {
			return nil, err
		}
		return map[string]any{v.Name: inner}, nil
	case KindSequence:
		n, err := d.compactLen()
		if err != nil {
			return nil, err
		}
		return d.list(def.Elem, n, depth)
	case KindArray:
		return d.list(def.Elem, int(def.Len), depth)
	case KindTuple:
		if len(def.Tuple) == 0 {
			return nil, nil
		}
		out := make([]any, 0, len(def.Tuple))
		for _, t := range def.Tuple {
			v, err := d.value(t, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, strings.Join(def.Path, "::"))
	}
}

// fields decodes composite or variant members: named members become a map,
// a single positional member is unwrapped, several become a list.
func (d *decoder) fields(fields []Field, depth int) (any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if fields[0].Name == "" {
		if len(fields) == 1 {
			return d.value(fields[0].Type, depth+1)
		}
		out := make([]any, 0, len(fields))
		for _, f := range fields {
			v, err := d.value(f.Type, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, err := d.value(f.Type, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		out[camelCase(f.Name)] = v
	}
	return out, nil
}

func (d *decoder) list(elem TypeID, n int, depth int) (any, error) {
	if d.reg.isByte(elem) {
		return d.readBytes(n)
	}
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		v, err := d.value(elem, depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (d *decoder) primitive(p Primitive) (any, error) {
	switch p {
	case Bool:
		b, err := d.dec.ReadOneByte()
		if err != nil {
			return nil, err
		}
		if b > 1 {
			return nil, fmt.Errorf("invalid bool byte %d", b)
		}
		return b == 1, nil
	case Char:
		b, err := d.readBytes(4)
		if err != nil {
			return nil, err
		}
		return string(rune(leUint(b).Int64())), nil
	case Str:
		n, err := d.compactLen()
		if err != nil {
			return nil, err
		}
		b, err := d.readBytes(n)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	size, signed := primitiveSize(p)
	b, err := d.readBytes(size)
	if err != nil {
		return nil, err
	}
	v := leUint(b)
	if signed && b[size-1]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), uint(size*8)))
	}
	return v, nil
}

func primitiveSize(p Primitive) (int, bool) {
	switch p {
	case U8:
		return 1, false
	case U16:
		return 2, false
	case U32:
		return 4, false
	case U64:
		return 8, false
	case U128:
		return 16, false
	case U256:
		return 32, false
	case I8:
		return 1, true
	case I16:
		return 2, true
	case I32:
		return 4, true
	case I64:
		return 8, true
	case I128:
		return 16, true
	default:
		return 32, true
	}
}

func leUint(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be)
}

func (r *Registry) isByte(id TypeID) bool {
	def, ok := r.types[id]
	return ok && def.Kind == KindPrimitive && def.Primitive == U8
}

// encoder writes values of registry types, coercing the loose inputs callers
// build by hand (decimal strings, hex, SS58 addresses, bare variant names).
type encoder struct {
	reg     *Registry
	buf     *bytes.Buffer
	enc     *scale.Encoder
	address func(string) ([]byte, error)
}

func newEncoder(reg *Registry, address func(string) ([]byte, error)) *encoder {
	buf := new(bytes.Buffer)
	return &encoder{reg: reg, buf: buf, enc: scale.NewEncoder(buf), address: address}
}

// EncodeValue encodes v as the given type. SS58 inputs for account ids are
// accepted only when an address decoder is provided.
func (r *Registry) EncodeValue(id TypeID, v any, address func(string) ([]byte, error)) ([]byte, error) {
	e := newEncoder(r, address)
	if err := e.value(id, v, 0); err != nil {
		return nil, err
	}
	return e.buf.Bytes(), nil
}

func (e *encoder) value(id TypeID, v any, depth int) error {
	if depth > maxValueDepth {
		return ErrValueDepth
	}
	if e.reg.hasCallType && id == e.reg.callType {
		b, err := callBytes(v)
		if err != nil {
			return err
		}
		return e.enc.Write(b)
	}

	def, err := e.reg.typeDef(id)
	if err != nil {
		return err
	}

	switch def.Kind {
	case KindPrimitive:
		return e.primitive(def.Primitive, v)
	case KindCompact:
		n, err := toBigInt(v)
		if err != nil {
			return err
		}
		if n.Sign() < 0 {
			return fmt.Errorf("compact value %s is negative", n)
		}
		return e.enc.EncodeUintCompact(*n)
	case KindComposite:
		return e.fields(def.Fields, v, depth)
	case KindVariant:
		return e.variant(def, v, depth)
	case KindSequence:
		if e.reg.isByte(def.Elem) {
			b, err := e.toBytes(v, -1)
			if err != nil {
				return err
			}
			if err := e.enc.EncodeUintCompact(*big.NewInt(int64(len(b)))); err != nil {
				return err
			}
			return e.enc.Write(b)
		}
		items, err := toList(v)
		if err != nil {
			return err
		}
		if err := e.enc.EncodeUintCompact(*big.NewInt(int64(len(items)))); err != nil {
			return err
		}
		return e.list(def.Elem, items, depth)
	case KindArray:
		if e.reg.isByte(def.Elem) {
			b, err := e.toBytes(v, int(def.Len))
			if err != nil {
				return err
			}
			return e.enc.Write(b)
		}
		items, err := toList(v)
		if err != nil {
			return err
		}
		if len(items) != int(def.Len) {
			return fmt.Errorf("array needs %d items, got %d", def.Len, len(items))
		}
		return e.list(def.Elem, items, depth)
	case KindTuple:
		if len(def.Tuple) == 0 {
			return nil
		}
		items, err := toList(v)
		if err != nil {
			return err
		}
		if len(items) != len(def.Tuple) {
			return fmt.Errorf("tuple needs %d items, got %d", len(def.Tuple), len(items))
		}
		for i, t := range def.Tuple {
			if err := e.value(t, items[i], depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, strings.Join(def.Path, "::"))
	}
}

func (e *encoder) list(elem TypeID, items []any, depth int) error {
	for i, item := range items {
		if err := e.value(elem, item, depth+1); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (e *encoder) fields(fields []Field, v any, depth int) error {
	if len(fields) == 0 {
		return nil
	}
	if fields[0].Name == "" {
		if len(fields) == 1 {
			return e.value(fields[0].Type, v, depth+1)
		}
		items, err := toList(v)
		if err != nil {
			return err
		}
		if len(items) != len(fields) {
			return fmt.Errorf("need %d positional fields, got %d", len(fields), len(items))
		}
		for i, f := range fields {
			if err := e.value(f.Type, items[i], depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("expected map for named fields, got %T", v)
	}
	for _, f := range fields {
		fv, ok := m[camelCase(f.Name)]
		if !ok {
			fv, ok = m[f.Name]
		}
		if !ok {
			return fmt.Errorf("missing field %s", camelCase(f.Name))
		}
		if err := e.value(f.Type, fv, depth+1); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	return nil
}

func (e *encoder) variant(def *TypeDef, v any, depth int) error {
	if def.isOption() {
		if isNil(v) {
			return e.enc.PushByte(0)
		}
		some, ok := def.variantByName("Some")
		if !ok || len(some.Fields) != 1 {
			return fmt.Errorf("malformed Option type")
		}
		if err := e.enc.PushByte(some.Index); err != nil {
			return err
		}
		return e.value(some.Fields[0].Type, v, depth+1)
	}

	var (
		name  string
		inner any
	)
	_, hasID := def.variantByName("Id")
	switch t := v.(type) {
	case string:
		if _, ok := def.variantByName(t); ok || !hasID {
			name = t
			break
		}
		// a bare account for MultiAddress
		name, inner = "Id", t
	case map[string]any:
		if len(t) != 1 {
			return fmt.Errorf("%s: expected a single variant key, got %d", def.Name(), len(t))
		}
		for k, val := range t {
			name, inner = k, val
		}
	default:
		if !hasID {
			return fmt.Errorf("%s: cannot encode %T as a variant", def.Name(), v)
		}
		name, inner = "Id", v
	}

	variant, ok := def.variantByName(name)
	if !ok {
		return fmt.Errorf("%s: unknown variant %q", def.Name(), name)
	}
	if err := e.enc.PushByte(variant.Index); err != nil {
		return err
	}
	return e.fields(variant.Fields, inner, depth)
}

func (e *encoder) primitive(p Primitive, v any) error {
	switch p {
	case Bool:
		b, err := toBool(v)
		if err != nil {
			return err
		}
		if b {
			return e.enc.PushByte(1)
		}
		return e.enc.PushByte(0)
	case Char:
		s, ok := v.(string)
		if !ok || len([]rune(s)) != 1 {
			return fmt.Errorf("expected single character, got %v", v)
		}
		return e.enc.Write(leBytes(big.NewInt(int64([]rune(s)[0])), 4))
	case Str:
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case []byte:
			s = string(t)
		default:
			return fmt.Errorf("expected string, got %T", v)
		}
		if err := e.enc.EncodeUintCompact(*big.NewInt(int64(len(s)))); err != nil {
			return err
		}
		return e.enc.Write([]byte(s))
	}

	n, err := toBigInt(v)
	if err != nil {
		return err
	}
	size, signed := primitiveSize(p)
	bits := uint(size * 8)
	if signed {
		limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return fmt.Errorf("%s out of range for %d-bit signed integer", n, bits)
		}
		if n.Sign() < 0 {
			n = new(big.Int).Add(n, new(big.Int).Lsh(big.NewInt(1), bits))
		}
	} else if n.Sign() < 0 || n.BitLen() > int(bits) {
		return fmt.Errorf("%s out of range for %d-bit unsigned integer", n, bits)
	}
	return e.enc.Write(leBytes(n, size))
}

func leBytes(n *big.Int, size int) []byte {
	be := n.Bytes()
	out := make([]byte, size)
	for i := 0; i < len(be) && i < size; i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}

// toBytes accepts raw bytes, 0x-prefixed hex, or (for 32-byte ids) an address.
func (e *encoder) toBytes(v any, size int) ([]byte, error) {
	var b []byte
	switch t := v.(type) {
	case []byte:
		b = t
	case RawCall:
		b = t
	case string:
		if strings.HasPrefix(t, "0x") {
			decoded, err := hex.DecodeString(t[2:])
			if err != nil {
				return nil, fmt.Errorf("invalid hex %q: %w", t, err)
			}
			b = decoded
			break
		}
		if size == 32 && e.address != nil {
			decoded, err := e.address(t)
			if err != nil {
				return nil, err
			}
			b = decoded
			break
		}
		if size < 0 {
			b = []byte(t)
			break
		}
		return nil, fmt.Errorf("cannot use %q as %d bytes", t, size)
	case []any:
		b = make([]byte, 0, len(t))
		for _, item := range t {
			n, err := toBigInt(item)
			if err != nil || !n.IsUint64() || n.Uint64() > 0xff {
				return nil, fmt.Errorf("invalid byte %v", item)
			}
			b = append(b, byte(n.Uint64()))
		}
	default:
		return nil, fmt.Errorf("expected bytes, got %T", v)
	}
	if size >= 0 && len(b) != size {
		return nil, fmt.Errorf("expected %d bytes, got %d", size, len(b))
	}
	return b, nil
}

func callBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case RawCall:
		return t, nil
	case []byte:
		return t, nil
	case Call:
		return t.Data, nil
	case string:
		if strings.HasPrefix(t, "0x") {
			return hex.DecodeString(t[2:])
		}
	}
	return nil, fmt.Errorf("expected encoded call, got %T", v)
}

func toBigInt(v any) (*big.Int, error) {
	switch t := v.(type) {
	case *big.Int:
		if t == nil {
			return nil, errors.New("nil integer")
		}
		return t, nil
	case big.Int:
		return &t, nil
	case json.Number:
		return parseBigInt(t.String())
	case string:
		return parseBigInt(t)
	case bool:
		if t {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case float64:
		if t != float64(int64(t)) {
			return nil, fmt.Errorf("non-integer number %v", t)
		}
		return big.NewInt(int64(t)), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("expected integer, got %T", v)
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = s[2:], 16
	}
	n, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strconv.ParseBool(t)
	}
	return false, fmt.Errorf("expected bool, got %T", v)
}

func toList(v any) ([]any, error) {
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
