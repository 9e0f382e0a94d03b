package observability

import (
	"net"

	"github.com/danmuck/lifxctl/internal/protocol"
	"github.com/rs/zerolog"
)

// PacketLogger logs and counts datagrams moving through the transport.
type PacketLogger struct {
	logger zerolog.Logger
}

func NewPacketLogger(logger zerolog.Logger) PacketLogger {
	return PacketLogger{logger: logger}
}

// Packet records one decoded message.
func (p PacketLogger) Packet(direction string, addr net.Addr, msg *protocol.Message) {
	RecordPacket(direction, msg.TypeName())
	h := msg.Header()
	event := p.logger.Debug()
	if msg.Schema() == nil {
		event = p.logger.Warn()
	}
	event.
		Str("direction", direction).
		Str("addr", addrString(addr)).
		Uint16("type", msg.TypeID()).
		Str("name", msg.TypeName()).
		Str("target", h.Target.String()).
		Uint32("source", h.Source).
		Uint8("sequence", h.Sequence).
		Int("bytes", msg.Size()).
		Msg("lifx_packet")
}

// DecodeFailure records a datagram that could not be decoded.
func (p PacketLogger) DecodeFailure(addr net.Addr, n int, err error) {
	RecordDecodeError()
	p.logger.Warn().
		Err(err).
		Str("addr", addrString(addr)).
		Int("bytes", n).
		Msg("lifx_decode_failed")
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
