package schema

import (
	"fmt"

	"github.com/danmuck/lifxctl/internal/protocol/bitfield"
)

// Direction records who normally emits a payload.
type Direction uint8

const (
	Send Direction = iota + 1
	Recv
)

func (d Direction) String() string {
	switch d {
	case Send:
		return "send"
	case Recv:
		return "recv"
	default:
		return "unknown"
	}
}

// Field is one payload field: its wire layout plus an optional converter.
type Field struct {
	bitfield.Field
	Converter Converter
}

// Kind returns the user-facing kind of f.
func (f Field) Kind() SemanticKind {
	if f.Converter != nil {
		return f.Converter.Kind()
	}
	return KindOf(f.Field)
}

// KindOf maps a bare wire field onto its semantic kind.
func KindOf(f bitfield.Field) SemanticKind {
	switch f.Kind {
	case bitfield.KindFloat:
		return KindFloat
	case bitfield.KindBytes:
		return KindBytes
	default:
		return KindInteger
	}
}

// Definition declares one registry entry. A definition without fields is an
// empty request: it carries no payload bytes at all.
type Definition struct {
	TypeID    uint16
	Name      string
	Direction Direction
	Fields    []Field
}

// Schema is an immutable payload layout bound to one type discriminant.
type Schema struct {
	typeID    uint16
	name      string
	direction Direction
	fields    []Field
	layout    bitfield.Layout
}

func newSchema(def Definition) (*Schema, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("schema: type %d has no name", def.TypeID)
	}
	wire := make([]bitfield.Field, len(def.Fields))
	for i, f := range def.Fields {
		wire[i] = f.Field
	}
	layout, err := bitfield.NewLayout(wire...)
	if err != nil {
		return nil, fmt.Errorf("schema: %s: %w", def.Name, err)
	}
	fields := make([]Field, len(def.Fields))
	copy(fields, def.Fields)
	return &Schema{
		typeID:    def.TypeID,
		name:      def.Name,
		direction: def.Direction,
		fields:    fields,
		layout:    layout,
	}, nil
}

func (s *Schema) TypeID() uint16          { return s.typeID }
func (s *Schema) Name() string            { return s.name }
func (s *Schema) Direction() Direction    { return s.direction }
func (s *Schema) Layout() bitfield.Layout { return s.layout }
func (s *Schema) Empty() bool             { return len(s.fields) == 0 }

// Size returns the payload length in bytes.
func (s *Schema) Size() int { return s.layout.Size() }

// Fields returns a copy of the field list, reserved regions included.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field looks up a non-reserved field and its position in the layout.
func (s *Schema) Field(name string) (Field, int, bool) {
	i, ok := s.layout.Index(name)
	if !ok {
		return Field{}, 0, false
	}
	return s.fields[i], i, true
}

// Converter returns the converter declared for name, if any.
func (s *Schema) Converter(name string) (Converter, bool) {
	f, _, ok := s.Field(name)
	if !ok || f.Converter == nil {
		return nil, false
	}
	return f.Converter, true
}

// FieldNames lists the non-reserved payload fields in wire order.
func (s *Schema) FieldNames() []string {
	return s.layout.Names()
}

func (s *Schema) String() string {
	return fmt.Sprintf("%s(%d)", s.name, s.typeID)
}
