package protocol

import (
	"github.com/danmuck/lifxctl/internal/protocol/header"
	"github.com/danmuck/lifxctl/internal/protocol/schema"
)

// Target is the 8-byte device address; the zero value is broadcast.
type Target = header.Target

// ParseTarget parses a MAC-style device address.
func ParseTarget(s string) (Target, error) {
	return header.ParseTarget(s)
}

// HeaderSize is the length of the fixed header on the wire.
const HeaderSize = header.Size

// Codec builds and decodes messages against one payload registry.
type Codec struct {
	registry *schema.Registry
}

// NewCodec returns a codec backed by reg. A nil reg selects schema.Default.
func NewCodec(reg *schema.Registry) *Codec {
	if reg == nil {
		reg = schema.Default
	}
	return &Codec{registry: reg}
}

// Registry returns the registry the codec resolves types against.
func (c *Codec) Registry() *schema.Registry { return c.registry }

var defaultCodec = NewCodec(schema.Default)

// DefaultCodec returns the codec backed by the built-in catalogue.
func DefaultCodec() *Codec { return defaultCodec }

// Build returns a new message of typeID addressed to target.
func Build(typeID uint16, target Target) (*Message, error) {
	return defaultCodec.Build(typeID, target)
}

// BuildByName is Build keyed by the schema name.
func BuildByName(name string, target Target) (*Message, error) {
	return defaultCodec.BuildByName(name, target)
}

// FromBytes decodes one message from data.
func FromBytes(data []byte) (*Message, error) {
	return defaultCodec.FromBytes(data)
}
