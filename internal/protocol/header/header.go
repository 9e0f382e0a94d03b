package header

import (
	"fmt"

	"github.com/danmuck/lifxctl/internal/protocol/bitfield"
)

const (
	// Size is the encoded length of every header.
	Size = 36
	// ProtocolNumber is the fixed value of the protocol field.
	ProtocolNumber uint16 = 1024
	// DiscoveryType is the broadcast probe; it is the only type built tagged.
	DiscoveryType uint16 = 2
)

var ErrShortHeader = fmt.Errorf("header: short header: %w", bitfield.ErrTruncatedBuffer)

// Wire sections, in order.
var (
	Frame = bitfield.MustLayout(
		bitfield.Uint("size", 16),
		bitfield.Uint("protocol", 12),
		bitfield.Uint("addressable", 1),
		bitfield.Uint("tagged", 1),
		bitfield.Uint("origin", 2),
		bitfield.Uint("source", 32),
	)
	FrameAddress = bitfield.MustLayout(
		bitfield.Bytes("target", 8),
		bitfield.Reserved(48),
		bitfield.Reserved(6),
		bitfield.Uint("ack_required", 1),
		bitfield.Uint("res_required", 1),
		bitfield.Uint("sequence", 8),
	)
	ProtocolHeader = bitfield.MustLayout(
		bitfield.Reserved(64),
		bitfield.Uint("type", 16),
		bitfield.Reserved(16),
	)

	// Layout is the full 36-byte header.
	Layout = bitfield.MustJoin(Frame, FrameAddress, ProtocolHeader)
)

var (
	idxSize        = mustIndex("size")
	idxProtocol    = mustIndex("protocol")
	idxAddressable = mustIndex("addressable")
	idxTagged      = mustIndex("tagged")
	idxOrigin      = mustIndex("origin")
	idxSource      = mustIndex("source")
	idxTarget      = mustIndex("target")
	idxAck         = mustIndex("ack_required")
	idxRes         = mustIndex("res_required")
	idxSequence    = mustIndex("sequence")
	idxType        = mustIndex("type")
)

func mustIndex(name string) int {
	i, ok := Layout.Index(name)
	if !ok {
		panic("header: missing field " + name)
	}
	return i
}

// Header is the typed view of the three header sections.
type Header struct {
	Size        uint16
	Protocol    uint16
	Addressable bool
	Tagged      bool
	Origin      uint8
	Source      uint32
	Target      Target
	AckRequired bool
	ResRequired bool
	Sequence    uint8
	Type        uint16
}

// New returns the header a freshly built message of typeID starts with.
// Size covers the header alone; callers add the payload width.
func New(typeID uint16, target Target) Header {
	return Header{
		Size:        Size,
		Protocol:    ProtocolNumber,
		Addressable: true,
		Tagged:      typeID == DiscoveryType,
		Target:      target,
		Type:        typeID,
	}
}

// Values converts h into one bitfield value per Layout field.
func (h Header) Values() []bitfield.Value {
	vals := Layout.Zero()
	vals[idxSize].Uint = uint64(h.Size)
	vals[idxProtocol].Uint = uint64(h.Protocol)
	vals[idxAddressable].Uint = bit(h.Addressable)
	vals[idxTagged].Uint = bit(h.Tagged)
	vals[idxOrigin].Uint = uint64(h.Origin)
	vals[idxSource].Uint = uint64(h.Source)
	copy(vals[idxTarget].Bytes, h.Target[:])
	vals[idxAck].Uint = bit(h.AckRequired)
	vals[idxRes].Uint = bit(h.ResRequired)
	vals[idxSequence].Uint = uint64(h.Sequence)
	vals[idxType].Uint = uint64(h.Type)
	return vals
}

// FromValues builds the typed view from a Layout value slice.
func FromValues(vals []bitfield.Value) Header {
	var h Header
	h.Size = uint16(vals[idxSize].Uint)
	h.Protocol = uint16(vals[idxProtocol].Uint)
	h.Addressable = vals[idxAddressable].Uint != 0
	h.Tagged = vals[idxTagged].Uint != 0
	h.Origin = uint8(vals[idxOrigin].Uint)
	h.Source = uint32(vals[idxSource].Uint)
	copy(h.Target[:], vals[idxTarget].Bytes)
	h.AckRequired = vals[idxAck].Uint != 0
	h.ResRequired = vals[idxRes].Uint != 0
	h.Sequence = uint8(vals[idxSequence].Uint)
	h.Type = uint16(vals[idxType].Uint)
	return h
}

// Encode returns the 36-byte wire form of h.
func Encode(h Header) []byte {
	buf := make([]byte, Size)
	// Values always matches Layout, so Encode cannot fail here.
	if err := Layout.Encode(buf, h.Values()); err != nil {
		panic(err)
	}
	return buf
}

// Decode parses the header at the start of b and returns it with the number
// of bytes consumed.
func Decode(b []byte) (Header, int, error) {
	if len(b) < Size {
		return Header{}, 0, fmt.Errorf("%w: %d bytes", ErrShortHeader, len(b))
	}
	vals, bits, err := Layout.Decode(b)
	if err != nil {
		return Header{}, 0, err
	}
	return FromValues(vals), bits / 8, nil
}

// Index returns the Layout position of a non-reserved header field.
func Index(name string) (int, bool) {
	return Layout.Index(name)
}

// FieldNames lists the addressable header fields in wire order.
func FieldNames() []string {
	return Layout.Names()
}

func bit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
