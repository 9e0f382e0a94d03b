package schema

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/danmuck/lifxctl/internal/protocol/bitfield"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var (
	ErrInvalidEncoding  = errors.New("schema: invalid utf-8 encoding")
	ErrUnknownEnumName  = errors.New("schema: unknown enum name")
	ErrUnknownEnumValue = errors.New("schema: unknown enum value")
)

// LabelSize is the capacity of a label field in bytes.
const LabelSize = 32

// SemanticKind is the user-facing kind of a field.
type SemanticKind uint8

const (
	KindInteger SemanticKind = iota + 1
	KindFloat
	KindBytes
	KindLabel
	KindEnum
)

func (k SemanticKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	case KindLabel:
		return "label"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Converter translates between a field's wire value and its user value.
type Converter interface {
	Kind() SemanticKind
	ToWire(f bitfield.Field, v any) (bitfield.Value, error)
	FromWire(v bitfield.Value) (any, error)
}

// LabelConverter maps strings onto fixed-size NUL padded byte fields.
// Input longer than the field is cut at the last whole rune that fits.
type LabelConverter struct{}

func (LabelConverter) Kind() SemanticKind { return KindLabel }

func (LabelConverter) ToWire(f bitfield.Field, v any) (bitfield.Value, error) {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return bitfield.Value{}, fmt.Errorf("%w: %s expects a string, got %T", bitfield.ErrValueType, f.Name, v)
	}
	if !utf8.ValidString(s) {
		return bitfield.Value{}, fmt.Errorf("%w: %s", ErrInvalidEncoding, f.Name)
	}
	return bitfield.ValueFor(f, TruncateLabel(s, f.Size()))
}

func (LabelConverter) FromWire(v bitfield.Value) (any, error) {
	b := v.Bytes
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if !utf8.Valid(b) {
		return nil, ErrInvalidEncoding
	}
	return string(b), nil
}

// TruncateLabel shortens s to at most max bytes without splitting a rune.
func TruncateLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// EnumConverter maps raw integers to fixed symbolic names.
type EnumConverter struct {
	names  map[uint64]string
	values map[string]uint64
}

// NewEnum builds an enum converter. Names must be unique; the mapping is
// static data, so a duplicate panics.
func NewEnum(names map[uint64]string) *EnumConverter {
	e := &EnumConverter{
		names:  make(map[uint64]string, len(names)),
		values: make(map[string]uint64, len(names)),
	}
	for raw, name := range names {
		if _, dup := e.values[name]; dup {
			panic(fmt.Sprintf("schema: duplicate enum name %q", name))
		}
		e.names[raw] = name
		e.values[name] = raw
	}
	return e
}

func (e *EnumConverter) Kind() SemanticKind { return KindEnum }

func (e *EnumConverter) ToWire(f bitfield.Field, v any) (bitfield.Value, error) {
	name, ok := v.(string)
	if !ok {
		return bitfield.Value{}, fmt.Errorf("%w: %s expects an enum name, got %T", bitfield.ErrValueType, f.Name, v)
	}
	raw, ok := e.values[name]
	if !ok {
		return bitfield.Value{}, fmt.Errorf("%w: %s=%q", ErrUnknownEnumName, f.Name, name)
	}
	return bitfield.ValueFor(f, raw)
}

func (e *EnumConverter) FromWire(v bitfield.Value) (any, error) {
	name, ok := e.names[v.Uint]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEnumValue, v.Uint)
	}
	return name, nil
}

// Names returns the symbolic names ordered by raw value.
func (e *EnumConverter) Names() []string {
	raws := maps.Keys(e.names)
	slices.Sort(raws)
	out := make([]string, len(raws))
	for i, raw := range raws {
		out[i] = e.names[raw]
	}
	return out
}
