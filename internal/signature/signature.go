// Package signature parses and validates D-Bus type signatures and maps
// them onto the Go types used by generated bindings.
package signature

import (
	"fmt"
	"strings"
)

const (
	maxLength      = 255
	maxArrayDepth  = 32
	maxStructDepth = 32
)

const basicCodes = "ybnqiuxtdhsog"

// Type is a single complete D-Bus type.
type Type struct {
	code   byte
	elem   *Type  // array element, nil unless code == 'a'
	key    *Type  // dict entry key, nil unless dict entry array
	value  *Type  // dict entry value, nil unless dict entry array
	fields []Type // struct members, nil unless code == '('
}

// Code returns the leading type code: a basic code, 'v', 'a' or '('.
func (t Type) Code() byte {
	return t.code
}

// IsBasic reports whether t is one of the fixed or string-like basic types.
func (t Type) IsBasic() bool {
	return strings.IndexByte(basicCodes, t.code) >= 0
}

// IsContainer reports whether t is an array, dict, struct or variant.
func (t Type) IsContainer() bool {
	return !t.IsBasic()
}

// IsDict reports whether t is an array of dict entries.
func (t Type) IsDict() bool {
	return t.code == 'a' && t.key != nil
}

// Elem returns the element type of an array, or false for non-arrays and dicts.
func (t Type) Elem() (Type, bool) {
	if t.code != 'a' || t.elem == nil {
		return Type{}, false
	}
	return *t.elem, true
}

// KeyValue returns the key and value types of a dict, or false otherwise.
func (t Type) KeyValue() (Type, Type, bool) {
	if !t.IsDict() {
		return Type{}, Type{}, false
	}
	return *t.key, *t.value, true
}

// Fields returns the member types of a struct, or nil otherwise.
func (t Type) Fields() []Type {
	return t.fields
}

// String reconstructs the wire signature for t.
func (t Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t Type) write(b *strings.Builder) {
	switch {
	case t.IsDict():
		b.WriteString("a{")
		t.key.write(b)
		t.value.write(b)
		b.WriteByte('}')
	case t.code == 'a':
		b.WriteByte('a')
		t.elem.write(b)
	case t.code == '(':
		b.WriteByte('(')
		for _, f := range t.fields {
			f.write(b)
		}
		b.WriteByte(')')
	default:
		b.WriteByte(t.code)
	}
}

// GoType returns the Go type generated bindings use to hold a value of t.
// Container types other than arrays and dicts of mappable members fall back
// to the forms godbus produces when decoding into untyped storage.
func (t Type) GoType() string {
	switch t.code {
	case 'y':
		return "byte"
	case 'b':
		return "bool"
	case 'n':
		return "int16"
	case 'q':
		return "uint16"
	case 'i':
		return "int32"
	case 'u':
		return "uint32"
	case 'x':
		return "int64"
	case 't':
		return "uint64"
	case 'd':
		return "float64"
	case 'h':
		return "dbus.UnixFD"
	case 's':
		return "string"
	case 'o':
		return "dbus.ObjectPath"
	case 'g':
		return "dbus.Signature"
	case 'v':
		return "dbus.Variant"
	case 'a':
		if t.IsDict() {
			return "map[" + t.key.GoType() + "]" + t.value.GoType()
		}
		return "[]" + t.elem.GoType()
	case '(':
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

// Parse splits sig into its sequence of single complete types. The empty
// signature is valid and yields an empty slice.
func Parse(sig string) ([]Type, error) {
	if len(sig) > maxLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLong, len(sig))
	}

	var types []Type
	p := &parser{sig: sig}
	for !p.done() {
		t, err := p.complete(0, 0)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	if types == nil {
		types = []Type{}
	}
	return types, nil
}

// ParseSingle parses a signature that must hold exactly one complete type,
// the form introspection property and argument types take.
func ParseSingle(sig string) (Type, error) {
	types, err := Parse(sig)
	if err != nil {
		return Type{}, err
	}
	if len(types) != 1 {
		return Type{}, fmt.Errorf("%w: %q holds %d", ErrNotSingle, sig, len(types))
	}
	return types[0], nil
}

// Valid reports whether sig is a well-formed D-Bus signature.
func Valid(sig string) bool {
	_, err := Parse(sig)
	return err == nil
}

type parser struct {
	sig string
	pos int
}

func (p *parser) done() bool {
	return p.pos >= len(p.sig)
}

func (p *parser) next() (byte, error) {
	if p.done() {
		return 0, fmt.Errorf("%w: offset %d in %q", ErrIncomplete, p.pos, p.sig)
	}
	c := p.sig[p.pos]
	p.pos++
	return c, nil
}

// complete consumes one single complete type starting at the current offset.
func (p *parser) complete(arrayDepth, structDepth int) (Type, error) {
	c, err := p.next()
	if err != nil {
		return Type{}, err
	}

	switch {
	case strings.IndexByte(basicCodes, c) >= 0 || c == 'v':
		return Type{code: c}, nil

	case c == 'a':
		if arrayDepth+1 > maxArrayDepth {
			return Type{}, fmt.Errorf("%w: arrays nested beyond %d in %q", ErrDepthExceeded, maxArrayDepth, p.sig)
		}
		return p.arrayElem(arrayDepth+1, structDepth)

	case c == '(':
		if structDepth+1 > maxStructDepth {
			return Type{}, fmt.Errorf("%w: structs nested beyond %d in %q", ErrDepthExceeded, maxStructDepth, p.sig)
		}
		return p.structBody(arrayDepth, structDepth+1)

	default:
		return Type{}, fmt.Errorf("%w: %q at offset %d in %q", ErrUnknownCode, c, p.pos-1, p.sig)
	}
}

func (p *parser) arrayElem(arrayDepth, structDepth int) (Type, error) {
	if p.done() {
		return Type{}, fmt.Errorf("%w: array at end of %q", ErrIncomplete, p.sig)
	}

	if p.sig[p.pos] == '{' {
		p.pos++
		if structDepth+1 > maxStructDepth {
			return Type{}, fmt.Errorf("%w: dict entries nested beyond %d in %q", ErrDepthExceeded, maxStructDepth, p.sig)
		}
		key, err := p.complete(arrayDepth, structDepth+1)
		if err != nil {
			return Type{}, err
		}
		if !key.IsBasic() {
			return Type{}, fmt.Errorf("%w: got %q in %q", ErrBadDictKey, key.String(), p.sig)
		}
		value, err := p.complete(arrayDepth, structDepth+1)
		if err != nil {
			return Type{}, err
		}
		term, err := p.next()
		if err != nil {
			return Type{}, err
		}
		if term != '}' {
			return Type{}, fmt.Errorf("%w: dict entry holds more than two types in %q", ErrIncomplete, p.sig)
		}
		return Type{code: 'a', key: &key, value: &value}, nil
	}

	elem, err := p.complete(arrayDepth, structDepth)
	if err != nil {
		return Type{}, err
	}
	return Type{code: 'a', elem: &elem}, nil
}

func (p *parser) structBody(arrayDepth, structDepth int) (Type, error) {
	var fields []Type
	for {
		if p.done() {
			return Type{}, fmt.Errorf("%w: unterminated struct in %q", ErrIncomplete, p.sig)
		}
		if p.sig[p.pos] == ')' {
			p.pos++
			if len(fields) == 0 {
				return Type{}, fmt.Errorf("%w: in %q", ErrEmptyStruct, p.sig)
			}
			return Type{code: '(', fields: fields}, nil
		}
		f, err := p.complete(arrayDepth, structDepth)
		if err != nil {
			return Type{}, err
		}
		fields = append(fields, f)
	}
}
