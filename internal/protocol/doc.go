// Package protocol builds, encodes and decodes device messages.
//
// Ownership boundary:
// - message construction from a type discriminant (Build, BuildByName)
// - wire decode (FromBytes) and encode (Message.Serialize)
// - name-based field access spanning header and payload (Message.Get/Set)
//
// Layout primitives live in bitfield, the fixed header in header and the
// payload catalogue in schema.
package protocol
