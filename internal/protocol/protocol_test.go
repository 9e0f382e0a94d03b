package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/danmuck/lifxctl/internal/protocol/bitfield"
	"github.com/danmuck/lifxctl/internal/protocol/schema"
	"github.com/danmuck/lifxctl/internal/testutil/testlog"
)

// sampleValue picks a non-zero value that fits f.
func sampleValue(t *testing.T, f schema.Field) any {
	t.Helper()
	switch conv := f.Converter.(type) {
	case schema.LabelConverter:
		return "lamp " + f.Name
	case *schema.EnumConverter:
		names := conv.Names()
		return names[len(names)-1]
	}
	switch f.Field.Kind {
	case bitfield.KindUint:
		if f.Bits >= 64 {
			return uint64(1)<<63 + 7
		}
		return uint64(1)<<f.Bits - 1
	case bitfield.KindInt:
		return int64(-(1 << (f.Bits - 2)))
	case bitfield.KindFloat:
		return float32(1.25)
	case bitfield.KindBytes:
		b := make([]byte, f.Size())
		for i := range b {
			b[i] = byte(i + 1)
		}
		return b
	}
	t.Fatalf("no sample for %s", f.Name)
	return nil
}

func TestRoundTripEverySchema(t *testing.T) {
	testlog.Start(t)
	target, _ := ParseTarget("d0:73:d5:00:00:01")
	for _, s := range schema.Default.Schemas() {
		t.Run(s.Name(), func(t *testing.T) {
			msg, err := Build(s.TypeID(), target)
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			want := map[string]any{}
			for _, f := range s.Fields() {
				if f.Reserved() {
					continue
				}
				v := sampleValue(t, f)
				if err := msg.Set(f.Name, v); err != nil {
					t.Fatalf("set %s: %v", f.Name, err)
				}
				want[f.Name] = v
			}
			raw, err := msg.Serialize()
			if err != nil {
				t.Fatalf("serialize: %v", err)
			}
			if len(raw) != msg.Size() {
				t.Fatalf("size=%d len=%d", msg.Size(), len(raw))
			}
			decoded, err := FromBytes(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if decoded.TypeID() != s.TypeID() || decoded.Schema() != s {
				t.Fatalf("decoded type mismatch: %d %v", decoded.TypeID(), decoded.Schema())
			}
			for name, v := range want {
				got, err := decoded.Get(name)
				if err != nil {
					t.Fatalf("get %s: %v", name, err)
				}
				if !reflect.DeepEqual(got, v) {
					t.Fatalf("%s: got=%#v want=%#v", name, got, v)
				}
			}
			again, err := decoded.Serialize()
			if err != nil {
				t.Fatalf("re-serialize: %v", err)
			}
			if !bytes.Equal(raw, again) {
				t.Fatalf("round-trip bytes mismatch")
			}
		})
	}
}

func TestSizeMatchesSerializedLength(t *testing.T) {
	testlog.Start(t)
	for _, id := range schema.Default.IDs() {
		msg, err := Build(id, Target{})
		if err != nil {
			t.Fatalf("build %d: %v", id, err)
		}
		raw, err := msg.Serialize()
		if err != nil {
			t.Fatalf("serialize %d: %v", id, err)
		}
		size := int(binary.LittleEndian.Uint16(raw[0:2]))
		if size != len(raw) || size != msg.Size() {
			t.Fatalf("type %d: wire size=%d len=%d Size()=%d", id, size, len(raw), msg.Size())
		}
	}
}

func TestTaggedOnlyForDiscovery(t *testing.T) {
	testlog.Start(t)
	for _, id := range schema.Default.IDs() {
		msg, _ := Build(id, Target{})
		tagged, err := msg.Get("tagged")
		if err != nil {
			t.Fatalf("get tagged: %v", err)
		}
		want := uint64(0)
		if id == 2 {
			want = 1
		}
		if tagged != want {
			t.Fatalf("type %d: tagged=%v", id, tagged)
		}
	}
}

func TestEmptyRequestsAreHeaderOnly(t *testing.T) {
	testlog.Start(t)
	for _, s := range schema.Default.Schemas() {
		if !s.Empty() {
			continue
		}
		msg, _ := Build(s.TypeID(), Target{})
		raw, err := msg.Serialize()
		if err != nil {
			t.Fatalf("serialize %s: %v", s.Name(), err)
		}
		if len(raw) != HeaderSize {
			t.Fatalf("%s: %d bytes", s.Name(), len(raw))
		}
		if names := msg.PayloadFieldNames(); len(names) != 0 {
			t.Fatalf("%s: payload names %v", s.Name(), names)
		}
	}
}

func TestBuildDiscoveryScenario(t *testing.T) {
	testlog.Start(t)
	msg, err := Build(2, Target{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	checks := map[string]any{
		"size":        uint64(36),
		"tagged":      uint64(1),
		"type":        uint64(2),
		"protocol":    uint64(1024),
		"addressable": uint64(1),
		"source":      uint64(0),
		"sequence":    uint64(0),
	}
	for name, want := range checks {
		got, err := msg.Get(name)
		if err != nil {
			t.Fatalf("get %s: %v", name, err)
		}
		if got != want {
			t.Fatalf("%s: got=%v want=%v", name, got, want)
		}
	}
	if len(msg.PayloadFieldNames()) != 0 {
		t.Fatalf("expected no payload fields")
	}
	target, _ := msg.Get("target")
	if !bytes.Equal(target.([]byte), make([]byte, 8)) {
		t.Fatalf("expected broadcast target, got % x", target)
	}
}

func TestSetPowerScenario(t *testing.T) {
	testlog.Start(t)
	msg, err := Build(21, Target{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := msg.Set("level", 65535); err != nil {
		t.Fatalf("set level: %v", err)
	}
	raw, err := msg.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	level, err := decoded.Get("level")
	if err != nil {
		t.Fatalf("get level: %v", err)
	}
	if level != uint64(65535) {
		t.Fatalf("level=%v", level)
	}
}

func TestWaveformScenario(t *testing.T) {
	testlog.Start(t)
	msg, err := BuildByName("light_set_waveform", Target{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if msg.TypeID() != 103 {
		t.Fatalf("type=%d", msg.TypeID())
	}
	if err := msg.Set("waveform", "sine"); err != nil {
		t.Fatalf("set waveform: %v", err)
	}
	raw, _ := msg.Serialize()
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := decoded.Get("waveform")
	if err != nil {
		t.Fatalf("get waveform: %v", err)
	}
	if got != "sine" {
		t.Fatalf("waveform=%v", got)
	}
}

func TestEnumMismatches(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(103, Target{})
	err := msg.Set("waveform", "square")
	if !errors.Is(err, ErrUnknownEnumName) {
		t.Fatalf("expected ErrUnknownEnumName, got %v", err)
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "waveform" {
		t.Fatalf("expected FieldError for waveform, got %v", err)
	}

	raw, _ := msg.Serialize()
	raw[len(raw)-1] = 9 // waveform is the last payload byte
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := decoded.Get("waveform"); !errors.Is(err, ErrUnknownEnumValue) {
		t.Fatalf("expected ErrUnknownEnumValue, got %v", err)
	}
}

func TestLabelTruncatedAfterRoundTrip(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(24, Target{})
	long := strings.Repeat("é", 20) // 40 bytes
	if err := msg.Set("label", long); err != nil {
		t.Fatalf("set label: %v", err)
	}
	raw, _ := msg.Serialize()
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got, err := decoded.Get("label")
	if err != nil {
		t.Fatalf("get label: %v", err)
	}
	if got == long {
		t.Fatalf("label was not truncated")
	}
	if got != strings.Repeat("é", 16) {
		t.Fatalf("label=%q", got)
	}
	if len(got.(string)) > 32 {
		t.Fatalf("label is %d bytes", len(got.(string)))
	}
}

func TestInvalidLabelBytesSurfaceOnGet(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(25, Target{})
	raw, _ := msg.Serialize()
	raw[HeaderSize] = 0xff
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := decoded.Get("label"); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestDecodeShortHeader(t *testing.T) {
	testlog.Start(t)
	_, err := FromBytes(make([]byte, 30))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if !errors.Is(err, ErrTruncatedBuffer) {
		t.Fatalf("expected ErrTruncatedBuffer, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Section != "header" || pe.Have != 30 {
		t.Fatalf("unexpected parse error: %+v", pe)
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(117, Target{})
	raw, _ := msg.Serialize()
	_, err := FromBytes(raw[:len(raw)-2])
	if !errors.Is(err, ErrParse) || !errors.Is(err, ErrTruncatedBuffer) {
		t.Fatalf("expected truncated parse error, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Section != "light_set_power" || pe.Need != 42 {
		t.Fatalf("unexpected parse error: %+v", pe)
	}
}

func TestDecodeEmptyRequestIgnoresTrailingBytes(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(23, Target{})
	raw, _ := msg.Serialize()
	decoded, err := FromBytes(append(raw, 1, 2, 3))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.TypeName() != "get_label" || decoded.Size() != HeaderSize {
		t.Fatalf("unexpected decode: %s size=%d", decoded.TypeName(), decoded.Size())
	}
}

func TestDecodeUnregisteredType(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(2, Target{})
	raw, _ := msg.Serialize()
	binary.LittleEndian.PutUint16(raw[32:34], 9999)
	raw = append(raw, 0xaa, 0xbb)
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Schema() != nil || decoded.TypeName() != "" {
		t.Fatalf("expected no schema for 9999")
	}
	if typ, _ := decoded.Get("type"); typ != uint64(9999) {
		t.Fatalf("type=%v", typ)
	}
	if len(decoded.PayloadFieldNames()) != 0 {
		t.Fatalf("unregistered types have no payload fields")
	}
	out, err := decoded.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if len(out) != HeaderSize {
		t.Fatalf("serialized %d bytes", len(out))
	}
}

func TestDecodeRecomputesSize(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(22, Target{})
	raw, _ := msg.Serialize()
	binary.LittleEndian.PutUint16(raw[0:2], 999)
	decoded, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Size() != 38 {
		t.Fatalf("size should be recomputed, got %d", decoded.Size())
	}
	if _, err := decoded.Serialize(); err != nil {
		t.Fatalf("serialize: %v", err)
	}
}

func TestBuildUnknownType(t *testing.T) {
	testlog.Start(t)
	if _, err := Build(9999, Target{}); !errors.Is(err, ErrUnknownTypeID) {
		t.Fatalf("expected ErrUnknownTypeID, got %v", err)
	}
	if _, err := BuildByName("get_power", Target{}); !errors.Is(err, ErrUnknownTypeID) {
		t.Fatalf("expected ErrUnknownTypeID, got %v", err)
	}
}

func TestSerializeDetectsSizeInvariant(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(21, Target{})
	msg.header[sizeIndex].Uint = 10
	_, err := msg.Serialize()
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}
	var ie *InvariantError
	if !errors.As(err, &ie) || ie.Declared != 10 || ie.Actual != 38 {
		t.Fatalf("unexpected invariant error: %+v", ie)
	}
}

func TestBinaryMarshalerRoundTrip(t *testing.T) {
	testlog.Start(t)
	msg, _ := Build(118, Target{})
	if err := msg.Set("level", 1234); err != nil {
		t.Fatalf("set: %v", err)
	}
	raw, err := msg.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Message
	if err := out.UnmarshalBinary(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if lvl, _ := out.Get("level"); lvl != uint64(1234) {
		t.Fatalf("level=%v", lvl)
	}
}

func TestCustomRegistryCodec(t *testing.T) {
	testlog.Start(t)
	reg := schema.MustRegistry(schema.Definition{
		TypeID:    700,
		Name:      "custom",
		Direction: schema.Send,
		Fields:    []schema.Field{{Field: bitfield.Uint("value", 32)}},
	})
	codec := NewCodec(reg)
	msg, err := codec.Build(700, Target{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_ = msg.Set("value", 42)
	raw, _ := msg.Serialize()
	if len(raw) != HeaderSize+4 {
		t.Fatalf("len=%d", len(raw))
	}
	if _, err := codec.Build(2, Target{}); !errors.Is(err, ErrUnknownTypeID) {
		t.Fatalf("custom registry should not know type 2: %v", err)
	}
	decoded, err := codec.FromBytes(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, _ := decoded.Get("value"); v != uint64(42) {
		t.Fatalf("value=%v", v)
	}
	// The default codec does not know 700 and leaves the payload alone.
	plain, err := FromBytes(raw)
	if err != nil || plain.Schema() != nil {
		t.Fatalf("default codec: schema=%v err=%v", plain.Schema(), err)
	}
}
