package protocol

import (
	"github.com/danmuck/lifxctl/internal/protocol/header"
	"github.com/rs/zerolog/log"
)

// FromBytes decodes one message. The payload is decoded only for registered
// types that carry one; bytes past the payload are ignored. Converters are
// applied lazily by Get, so unknown enum values and bad labels surface there.
func (c *Codec) FromBytes(data []byte) (*Message, error) {
	if len(data) < header.Size {
		log.Error().Int("len", len(data)).Msg("protocol.FromBytes short header")
		return nil, &ParseError{Section: "header", Need: header.Size, Have: len(data), Err: header.ErrShortHeader}
	}
	vals, _, err := header.Layout.Decode(data)
	if err != nil {
		return nil, &ParseError{Section: "header", Need: header.Size, Have: len(data), Err: err}
	}
	msg := &Message{header: vals}
	typeID := uint16(vals[typeIndex].Uint)

	s, ok := c.registry.LookupID(typeID)
	if !ok {
		log.Debug().Uint16("type", typeID).Msg("protocol.FromBytes unregistered type, payload skipped")
		msg.header[sizeIndex].Uint = header.Size
		return msg, nil
	}
	msg.schema = s
	if !s.Empty() {
		payload, _, err := s.Layout().Decode(data[header.Size:])
		if err != nil {
			log.Error().
				Uint16("type", typeID).
				Str("name", s.Name()).
				Int("len", len(data)).
				Msg("protocol.FromBytes short payload")
			return nil, &ParseError{Section: s.Name(), Need: header.Size + s.Size(), Have: len(data), Err: err}
		}
		msg.payload = payload
	}
	// size is recomputed from the layout, never trusted from the wire.
	msg.header[sizeIndex].Uint = uint64(header.Size + s.Size())
	log.Debug().Uint16("type", typeID).Str("name", s.Name()).Msg("protocol.FromBytes")
	return msg, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using the default
// codec.
func (m *Message) UnmarshalBinary(data []byte) error {
	decoded, err := defaultCodec.FromBytes(data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}
