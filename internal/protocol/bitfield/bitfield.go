// Package bitfield packs an ordered list of fixed-width fields into a byte
// buffer and back.
//
// Fields are laid out back to back as one little-endian bit stream: bit n of
// the stream is bit n%8 of byte n/8, so the first declared field occupies the
// least-significant bits. Whole-byte fields that start on a byte boundary are
// therefore plain little-endian words.
package bitfield

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrTruncatedBuffer = errors.New("bitfield: truncated buffer")
	ErrInvalidLayout   = errors.New("bitfield: invalid layout")
	ErrValueCount      = errors.New("bitfield: value count mismatch")
	ErrValueType       = errors.New("bitfield: value type mismatch")
	ErrValueOutOfRange = errors.New("bitfield: value out of range")
)

// Kind is the wire representation of a field.
type Kind uint8

const (
	KindReserved Kind = iota
	KindUint
	KindInt
	KindFloat
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindReserved:
		return "reserved"
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is one entry of a layout.
type Field struct {
	Name string
	Bits int
	Kind Kind
}

// Uint declares an unsigned integer of the given width.
func Uint(name string, bits int) Field {
	return Field{Name: name, Bits: bits, Kind: KindUint}
}

// Int declares a two's complement signed integer of the given width.
func Int(name string, bits int) Field {
	return Field{Name: name, Bits: bits, Kind: KindInt}
}

// Float32 declares an IEEE-754 single precision float.
func Float32(name string) Field {
	return Field{Name: name, Bits: 32, Kind: KindFloat}
}

// Bytes declares a fixed-length byte string of n bytes.
func Bytes(name string, n int) Field {
	return Field{Name: name, Bits: n * 8, Kind: KindBytes}
}

// Reserved declares a region that is written as zero and never surfaced.
func Reserved(bits int) Field {
	return Field{Name: "reserved", Bits: bits, Kind: KindReserved}
}

// Reserved reports whether f is a reserved region.
func (f Field) Reserved() bool { return f.Kind == KindReserved }

// Size returns the width of f in whole bytes, rounded up.
func (f Field) Size() int { return (f.Bits + 7) / 8 }

func (f Field) validate(offset int) error {
	if f.Bits <= 0 {
		return fmt.Errorf("%w: field %q has width %d", ErrInvalidLayout, f.Name, f.Bits)
	}
	switch f.Kind {
	case KindReserved:
	case KindUint, KindInt:
		if f.Bits > 64 {
			return fmt.Errorf("%w: integer field %q wider than 64 bits", ErrInvalidLayout, f.Name)
		}
	case KindFloat:
		if f.Bits != 32 {
			return fmt.Errorf("%w: float field %q must be 32 bits", ErrInvalidLayout, f.Name)
		}
		if offset%8 != 0 {
			return fmt.Errorf("%w: float field %q not byte aligned", ErrInvalidLayout, f.Name)
		}
	case KindBytes:
		if f.Bits%8 != 0 || offset%8 != 0 {
			return fmt.Errorf("%w: byte field %q not byte aligned", ErrInvalidLayout, f.Name)
		}
	default:
		return fmt.Errorf("%w: field %q has unknown kind %d", ErrInvalidLayout, f.Name, f.Kind)
	}
	return nil
}

// Value is one decoded field value. Only the member matching Kind is set.
type Value struct {
	Kind  Kind
	Uint  uint64
	Int   int64
	Float float32
	Bytes []byte
}

// Interface returns the plain Go value held by v: uint64, int64, float32 or
// a copy of the byte slice. Reserved values return nil.
func (v Value) Interface() any {
	switch v.Kind {
	case KindUint:
		return v.Uint
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBytes:
		out := make([]byte, len(v.Bytes))
		copy(out, v.Bytes)
		return out
	default:
		return nil
	}
}

// Zero returns the zero value for f.
func Zero(f Field) Value {
	v := Value{Kind: f.Kind}
	if f.Kind == KindBytes {
		v.Bytes = make([]byte, f.Size())
	}
	return v
}

// ValueFor converts a Go value into a Value for f, checking that it fits the
// declared width. Short byte strings are zero padded.
func ValueFor(f Field, x any) (Value, error) {
	switch f.Kind {
	case KindUint:
		u, err := toUint(x)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s", err, f.Name)
		}
		if f.Bits < 64 && u >= uint64(1)<<f.Bits {
			return Value{}, fmt.Errorf("%w: %s=%d needs more than %d bits", ErrValueOutOfRange, f.Name, u, f.Bits)
		}
		return Value{Kind: KindUint, Uint: u}, nil
	case KindInt:
		i, err := toInt(x)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s", err, f.Name)
		}
		if f.Bits < 64 {
			lo, hi := -(int64(1) << (f.Bits - 1)), int64(1)<<(f.Bits-1)-1
			if i < lo || i > hi {
				return Value{}, fmt.Errorf("%w: %s=%d outside [%d, %d]", ErrValueOutOfRange, f.Name, i, lo, hi)
			}
		}
		return Value{Kind: KindInt, Int: i}, nil
	case KindFloat:
		fl, err := toFloat(x)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s", err, f.Name)
		}
		if math.IsInf(fl, 0) || math.Abs(fl) > math.MaxFloat32 {
			return Value{}, fmt.Errorf("%w: %s=%g", ErrValueOutOfRange, f.Name, fl)
		}
		return Value{Kind: KindFloat, Float: float32(fl)}, nil
	case KindBytes:
		var b []byte
		switch t := x.(type) {
		case []byte:
			b = t
		case string:
			b = []byte(t)
		default:
			return Value{}, fmt.Errorf("%w: %s expects bytes, got %T", ErrValueType, f.Name, x)
		}
		if len(b) > f.Size() {
			return Value{}, fmt.Errorf("%w: %s holds %d bytes, got %d", ErrValueOutOfRange, f.Name, f.Size(), len(b))
		}
		buf := make([]byte, f.Size())
		copy(buf, b)
		return Value{Kind: KindBytes, Bytes: buf}, nil
	default:
		return Value{}, fmt.Errorf("%w: %s is not assignable", ErrValueType, f.Name)
	}
}

func toUint(x any) (uint64, error) {
	switch t := x.(type) {
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case uint:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	}
	i, err := toInt(x)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, ErrValueOutOfRange
	}
	return uint64(i), nil
}

func toInt(x any) (int64, error) {
	switch t := x.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, ErrValueOutOfRange
		}
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, ErrValueOutOfRange
		}
		return int64(t), nil
	default:
		return 0, ErrValueType
	}
}

func toFloat(x any) (float64, error) {
	switch t := x.(type) {
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	}
	i, err := toInt(x)
	if err != nil {
		return 0, err
	}
	return float64(i), nil
}

// Layout is an immutable ordered field list with precomputed bit offsets.
type Layout struct {
	fields  []Field
	offsets []int
	index   map[string]int
	bits    int
}

// NewLayout validates fields and computes their offsets. The layout must
// cover a whole number of bytes and non-reserved names must be unique.
func NewLayout(fields ...Field) (Layout, error) {
	l := Layout{
		fields:  make([]Field, len(fields)),
		offsets: make([]int, len(fields)),
		index:   make(map[string]int, len(fields)),
	}
	copy(l.fields, fields)
	for i, f := range l.fields {
		if err := f.validate(l.bits); err != nil {
			return Layout{}, err
		}
		l.offsets[i] = l.bits
		l.bits += f.Bits
		if f.Reserved() {
			continue
		}
		if f.Name == "" {
			return Layout{}, fmt.Errorf("%w: field %d has no name", ErrInvalidLayout, i)
		}
		if _, dup := l.index[f.Name]; dup {
			return Layout{}, fmt.Errorf("%w: duplicate field %q", ErrInvalidLayout, f.Name)
		}
		l.index[f.Name] = i
	}
	if l.bits%8 != 0 {
		return Layout{}, fmt.Errorf("%w: %d bits is not a whole number of bytes", ErrInvalidLayout, l.bits)
	}
	return l, nil
}

// MustLayout is NewLayout for static tables; it panics on error.
func MustLayout(fields ...Field) Layout {
	l, err := NewLayout(fields...)
	if err != nil {
		panic(err)
	}
	return l
}

// Join concatenates sections into one layout. Each section is already a
// whole number of bytes, so sub-byte groups never straddle two sections.
func Join(sections ...Layout) (Layout, error) {
	var fields []Field
	for _, s := range sections {
		fields = append(fields, s.fields...)
	}
	return NewLayout(fields...)
}

// MustJoin is Join for static tables; it panics on error.
func MustJoin(sections ...Layout) Layout {
	l, err := Join(sections...)
	if err != nil {
		panic(err)
	}
	return l
}

// Len returns the number of fields, reserved ones included.
func (l Layout) Len() int { return len(l.fields) }

// Bits returns the total width in bits.
func (l Layout) Bits() int { return l.bits }

// Size returns the total width in bytes.
func (l Layout) Size() int { return l.bits / 8 }

// Field returns the i-th field.
func (l Layout) Field(i int) Field { return l.fields[i] }

// Offset returns the bit offset of the i-th field.
func (l Layout) Offset(i int) int { return l.offsets[i] }

// Fields returns a copy of the field list.
func (l Layout) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Index returns the position of the named field. Reserved fields are never
// found.
func (l Layout) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Names returns the non-reserved field names in declaration order.
func (l Layout) Names() []string {
	out := make([]string, 0, len(l.index))
	for _, f := range l.fields {
		if !f.Reserved() {
			out = append(out, f.Name)
		}
	}
	return out
}

// Zero returns one zero value per field.
func (l Layout) Zero() []Value {
	out := make([]Value, len(l.fields))
	for i, f := range l.fields {
		out[i] = Zero(f)
	}
	return out
}

// Encode writes values into dst[:l.Size()]. Reserved regions are zeroed
// whatever their value says.
func (l Layout) Encode(dst []byte, values []Value) error {
	if len(dst) < l.Size() {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedBuffer, l.Size(), len(dst))
	}
	if len(values) != len(l.fields) {
		return fmt.Errorf("%w: layout has %d fields, got %d values", ErrValueCount, len(l.fields), len(values))
	}
	for i, f := range l.fields {
		off := l.offsets[i]
		v := values[i]
		if f.Reserved() {
			zeroBits(dst, off, f.Bits)
			continue
		}
		if v.Kind != f.Kind {
			return fmt.Errorf("%w: %s is %s, got %s", ErrValueType, f.Name, f.Kind, v.Kind)
		}
		switch f.Kind {
		case KindUint:
			putUint(dst, off, f.Bits, v.Uint)
		case KindInt:
			putUint(dst, off, f.Bits, uint64(v.Int))
		case KindFloat:
			binary.LittleEndian.PutUint32(dst[off/8:], math.Float32bits(v.Float))
		case KindBytes:
			if len(v.Bytes) > f.Size() {
				return fmt.Errorf("%w: %s holds %d bytes, got %d", ErrValueOutOfRange, f.Name, f.Size(), len(v.Bytes))
			}
			region := dst[off/8 : off/8+f.Size()]
			clear(region)
			copy(region, v.Bytes)
		}
	}
	return nil
}

// Decode reads one value per field from src and returns them with the
// number of bits consumed.
func (l Layout) Decode(src []byte) ([]Value, int, error) {
	if len(src)*8 < l.bits {
		return nil, 0, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedBuffer, l.Size(), len(src))
	}
	out := make([]Value, len(l.fields))
	for i, f := range l.fields {
		off := l.offsets[i]
		switch f.Kind {
		case KindReserved:
			out[i] = Value{Kind: KindReserved}
		case KindUint:
			out[i] = Value{Kind: KindUint, Uint: getUint(src, off, f.Bits)}
		case KindInt:
			raw := getUint(src, off, f.Bits)
			if f.Bits < 64 && raw&(uint64(1)<<(f.Bits-1)) != 0 {
				raw |= ^uint64(0) << f.Bits
			}
			out[i] = Value{Kind: KindInt, Int: int64(raw)}
		case KindFloat:
			out[i] = Value{Kind: KindFloat, Float: math.Float32frombits(binary.LittleEndian.Uint32(src[off/8:]))}
		case KindBytes:
			b := make([]byte, f.Size())
			copy(b, src[off/8:])
			out[i] = Value{Kind: KindBytes, Bytes: b}
		}
	}
	return out, l.bits, nil
}

func putUint(buf []byte, off, n int, v uint64) {
	if off%8 == 0 {
		switch n {
		case 8:
			buf[off/8] = byte(v)
			return
		case 16:
			binary.LittleEndian.PutUint16(buf[off/8:], uint16(v))
			return
		case 32:
			binary.LittleEndian.PutUint32(buf[off/8:], uint32(v))
			return
		case 64:
			binary.LittleEndian.PutUint64(buf[off/8:], v)
			return
		}
	}
	for i := 0; i < n; {
		at := off + i
		shift := at % 8
		take := min(8-shift, n-i)
		mask := byte(uint16(1)<<take-1) << shift
		buf[at/8] = buf[at/8]&^mask | byte(v>>i)<<shift&mask
		i += take
	}
}

func getUint(buf []byte, off, n int) uint64 {
	if off%8 == 0 {
		switch n {
		case 8:
			return uint64(buf[off/8])
		case 16:
			return uint64(binary.LittleEndian.Uint16(buf[off/8:]))
		case 32:
			return uint64(binary.LittleEndian.Uint32(buf[off/8:]))
		case 64:
			return binary.LittleEndian.Uint64(buf[off/8:])
		}
	}
	var v uint64
	for i := 0; i < n; {
		at := off + i
		shift := at % 8
		take := min(8-shift, n-i)
		chunk := uint64(buf[at/8]>>shift) & (uint64(1)<<take - 1)
		v |= chunk << i
		i += take
	}
	return v
}

func zeroBits(buf []byte, off, n int) {
	for n > 0 {
		take := min(n, 64)
		putUint(buf, off, take, 0)
		off += take
		n -= take
	}
}
