package protocol

import (
	"fmt"

	"github.com/danmuck/lifxctl/internal/protocol/header"
	"github.com/danmuck/lifxctl/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

// Build returns a new message of typeID. Payload fields start at zero and
// the size field is fixed from the schema width.
func (c *Codec) Build(typeID uint16, target Target) (*Message, error) {
	s, ok := c.registry.LookupID(typeID)
	if !ok {
		log.Error().Uint16("type", typeID).Msg("protocol.Build unknown type")
		return nil, fmt.Errorf("%w: %d", ErrUnknownTypeID, typeID)
	}
	return build(s, target), nil
}

// BuildByName is Build keyed by the schema name.
func (c *Codec) BuildByName(name string, target Target) (*Message, error) {
	s, ok := c.registry.LookupName(name)
	if !ok {
		log.Error().Str("name", name).Msg("protocol.Build unknown type")
		return nil, fmt.Errorf("%w: %q", ErrUnknownTypeID, name)
	}
	return build(s, target), nil
}

func build(s *schema.Schema, target Target) *Message {
	h := header.New(s.TypeID(), target)
	h.Size = uint16(header.Size + s.Size())
	msg := &Message{schema: s, header: h.Values()}
	if !s.Empty() {
		msg.payload = s.Layout().Zero()
	}
	log.Debug().
		Uint16("type", s.TypeID()).
		Str("name", s.Name()).
		Uint16("size", h.Size).
		Bool("tagged", h.Tagged).
		Msg("protocol.Build")
	return msg
}

// Serialize encodes the header and payload. The size field must equal the
// encoded length; a mismatch returns an *InvariantError.
func (m *Message) Serialize() ([]byte, error) {
	out := make([]byte, header.Size+m.payloadSize())
	if err := header.Layout.Encode(out[:header.Size], m.header); err != nil {
		return nil, err
	}
	if m.payload != nil {
		if err := m.schema.Layout().Encode(out[header.Size:], m.payload); err != nil {
			return nil, err
		}
	}
	if declared := int(m.header[sizeIndex].Uint); declared != len(out) {
		log.Error().
			Int("declared", declared).
			Int("actual", len(out)).
			Msg("protocol.Serialize size mismatch")
		return nil, &InvariantError{Declared: declared, Actual: len(out)}
	}
	return out, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Message) MarshalBinary() ([]byte, error) {
	return m.Serialize()
}

func (m *Message) payloadSize() int {
	if m.payload == nil {
		return 0
	}
	return m.schema.Size()
}
