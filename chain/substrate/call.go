package substrate

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrUnknownCall is returned when a pallet or call index (or name) is not
// declared by the runtime.
var ErrUnknownCall = errors.New("unknown call")

// Arg is a decoded call argument in declaration order.
type Arg struct {
	Name     string
	TypeName string
	Type     TypeID
	Value    any
}

// ParsedCall is a call blob resolved against metadata.
type ParsedCall struct {
	Section     string
	Method      string
	PalletIndex uint8
	CallIndex   uint8
	Args        []Arg
}

// Arg returns the value of the named argument.
func (c *ParsedCall) Arg(name string) (any, bool) {
	for _, a := range c.Args {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Call is an encoded call ready to be embedded or signed.
type Call struct {
	Section string
	Method  string
	Data    []byte
}

// ParseCall resolves call data to section, method and decoded arguments.
// Embedded calls are returned as RawCall values.
func (r *Registry) ParseCall(data []byte) (*ParsedCall, error) {
	d := newDecoder(r, data)
	c, err := d.call(0)
	if err != nil {
		return nil, err
	}
	if d.remaining() != 0 {
		return nil, fmt.Errorf("%s.%s: %w: %d", c.Section, c.Method, ErrTrailingBytes, d.remaining())
	}
	return c, nil
}

func (d *decoder) call(depth int) (*ParsedCall, error) {
	if depth > maxValueDepth {
		return nil, ErrValueDepth
	}
	palletIdx, err := d.dec.ReadOneByte()
	if err != nil {
		return nil, fmt.Errorf("read pallet index: %w", err)
	}
	p, ok := d.reg.palletByIndex[palletIdx]
	if !ok || !p.HasCalls {
		return nil, fmt.Errorf("%w: pallet index %d", ErrUnknownCall, palletIdx)
	}
	callIdx, err := d.dec.ReadOneByte()
	if err != nil {
		return nil, fmt.Errorf("read call index: %w", err)
	}
	def, err := d.reg.typeDef(p.Calls)
	if err != nil {
		return nil, err
	}
	v, ok := def.variantByIndex(callIdx)
	if !ok {
		return nil, fmt.Errorf("%w: %s call index %d", ErrUnknownCall, p.Name, callIdx)
	}

	c := &ParsedCall{
		Section:     p.Section(),
		Method:      camelCase(v.Name),
		PalletIndex: palletIdx,
		CallIndex:   callIdx,
		Args:        make([]Arg, 0, len(v.Fields)),
	}
	for i, f := range v.Fields {
		val, err := d.value(f.Type, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s.%s %s: %w", c.Section, c.Method, argName(f, i), err)
		}
		c.Args = append(c.Args, Arg{Name: argName(f, i), TypeName: f.TypeName, Type: f.Type, Value: val})
	}
	return c, nil
}

// NewCall encodes section.method with named arguments. Every declared
// parameter must be present; missing ones are reported together.
func (r *Registry) NewCall(section, method string, args map[string]any, address func(string) ([]byte, error)) (Call, error) {
	entry, ok := r.calls[callKey(section, method)]
	if !ok {
		return Call{}, fmt.Errorf("%w: %s.%s", ErrUnknownCall, section, method)
	}

	e := newEncoder(r, address)
	if err := e.enc.PushByte(entry.pallet.Index); err != nil {
		return Call{}, err
	}
	if err := e.enc.PushByte(entry.variant.Index); err != nil {
		return Call{}, err
	}

	var missing error
	for i, f := range entry.variant.Fields {
		name := argName(f, i)
		v, ok := args[name]
		if !ok {
			multierr.AppendInto(&missing, fmt.Errorf("missing argument %s", name))
			continue
		}
		if missing != nil {
			continue
		}
		if err := e.value(f.Type, v, 0); err != nil {
			return Call{}, fmt.Errorf("%s.%s %s: %w", section, method, name, err)
		}
	}
	if missing != nil {
		return Call{}, fmt.Errorf("%s.%s: %w", section, method, missing)
	}
	return Call{Section: section, Method: method, Data: e.buf.Bytes()}, nil
}

func argName(f Field, i int) string {
	if f.Name == "" {
		return fmt.Sprintf("arg%d", i)
	}
	return camelCase(f.Name)
}
