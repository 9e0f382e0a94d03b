package protocol

import (
	"net"

	"github.com/danmuck/lifxctl/internal/protocol/bitfield"
	"github.com/danmuck/lifxctl/internal/protocol/header"
	"github.com/danmuck/lifxctl/internal/protocol/schema"
)

var (
	sizeIndex = mustHeaderIndex("size")
	typeIndex = mustHeaderIndex("type")
)

func mustHeaderIndex(name string) int {
	i, ok := header.Index(name)
	if !ok {
		panic("protocol: header has no field " + name)
	}
	return i
}

// Message is one header plus an optional payload. It is not safe for
// concurrent mutation.
type Message struct {
	schema  *schema.Schema
	header  []bitfield.Value
	payload []bitfield.Value
}

// fieldRef locates a named field in either namespace.
type fieldRef struct {
	payload bool
	index   int
	field   bitfield.Field
	conv    schema.Converter
}

// lookup resolves name against the payload first, then the header.
func (m *Message) lookup(name string) (fieldRef, bool) {
	if m.payload != nil {
		if f, i, ok := m.schema.Field(name); ok {
			return fieldRef{payload: true, index: i, field: f.Field, conv: f.Converter}, true
		}
	}
	if i, ok := header.Index(name); ok {
		return fieldRef{index: i, field: header.Layout.Field(i)}, true
	}
	return fieldRef{}, false
}

func (m *Message) values(ref fieldRef) []bitfield.Value {
	if ref.payload {
		return m.payload
	}
	return m.header
}

// Get returns the user value of a field: the converter's output when one
// is declared, otherwise uint64, int64, float32 or []byte.
func (m *Message) Get(name string) (any, error) {
	ref, ok := m.lookup(name)
	if !ok {
		return nil, &FieldError{Field: name, Err: ErrUnknownField}
	}
	v := m.values(ref)[ref.index]
	if ref.conv == nil {
		return v.Interface(), nil
	}
	out, err := ref.conv.FromWire(v)
	if err != nil {
		return nil, &FieldError{Field: name, Err: err}
	}
	return out, nil
}

// Set assigns a field, running the converter when one is declared. size
// and type are derived from the schema and cannot be set.
func (m *Message) Set(name string, value any) error {
	ref, ok := m.lookup(name)
	if !ok {
		return &FieldError{Field: name, Err: ErrUnknownField}
	}
	if !ref.payload && (ref.index == sizeIndex || ref.index == typeIndex) {
		return &FieldError{Field: name, Err: ErrReadOnlyField}
	}
	switch t := value.(type) {
	case Target:
		value = t[:]
	case net.HardwareAddr:
		value = []byte(t)
	}
	var (
		v   bitfield.Value
		err error
	)
	if ref.conv != nil {
		v, err = ref.conv.ToWire(ref.field, value)
	} else {
		v, err = bitfield.ValueFor(ref.field, value)
	}
	if err != nil {
		return &FieldError{Field: name, Err: err}
	}
	m.values(ref)[ref.index] = v
	return nil
}

// Kind returns the semantic kind of a named field.
func (m *Message) Kind(name string) (schema.SemanticKind, error) {
	ref, ok := m.lookup(name)
	if !ok {
		return 0, &FieldError{Field: name, Err: ErrUnknownField}
	}
	if ref.conv != nil {
		return ref.conv.Kind(), nil
	}
	return schema.KindOf(ref.field), nil
}

// HeaderFieldNames lists the addressable header fields.
func (m *Message) HeaderFieldNames() []string {
	return header.FieldNames()
}

// PayloadFieldNames lists the addressable payload fields; it is empty for
// empty requests and unregistered types.
func (m *Message) PayloadFieldNames() []string {
	if m.payload == nil {
		return []string{}
	}
	return m.schema.FieldNames()
}

// Schema returns the payload schema, or nil for an unregistered type.
func (m *Message) Schema() *schema.Schema { return m.schema }

// Header returns a typed copy of the header.
func (m *Message) Header() header.Header { return header.FromValues(m.header) }

// TypeID returns the type discriminant.
func (m *Message) TypeID() uint16 { return uint16(m.header[typeIndex].Uint) }

// TypeName returns the schema name, or "" for an unregistered type.
func (m *Message) TypeName() string {
	if m.schema == nil {
		return ""
	}
	return m.schema.Name()
}

// Size returns the size field, which always equals len(Serialize()).
func (m *Message) Size() int { return int(m.header[sizeIndex].Uint) }

// FieldValue is one named user value.
type FieldValue struct {
	Name  string
	Kind  schema.SemanticKind
	Value any
}

// Tree is the ordered, reserved-free view of a message.
type Tree struct {
	Type    uint16
	Name    string
	Header  []FieldValue
	Payload []FieldValue
}

// Walk reads every addressable field in wire order, header first.
func (m *Message) Walk() (Tree, error) {
	t := Tree{Type: m.TypeID(), Name: m.TypeName()}
	for _, name := range m.HeaderFieldNames() {
		fv, err := m.fieldValue(name)
		if err != nil {
			return Tree{}, err
		}
		t.Header = append(t.Header, fv)
	}
	for _, name := range m.PayloadFieldNames() {
		fv, err := m.fieldValue(name)
		if err != nil {
			return Tree{}, err
		}
		t.Payload = append(t.Payload, fv)
	}
	return t, nil
}

func (m *Message) fieldValue(name string) (FieldValue, error) {
	v, err := m.Get(name)
	if err != nil {
		return FieldValue{}, err
	}
	k, err := m.Kind(name)
	if err != nil {
		return FieldValue{}, err
	}
	return FieldValue{Name: name, Kind: k, Value: v}, nil
}
