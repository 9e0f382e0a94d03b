// Package header owns the fixed 36-byte message header.
//
// Sections, in wire order:
// - Frame (8 bytes): size, protocol, addressable, tagged, origin, source
// - FrameAddress (16 bytes): target, ack_required, res_required, sequence
// - ProtocolHeader (12 bytes): type
//
// Reserved bits are always written as zero and are not addressable.
package header
