package schema

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/danmuck/lifxctl/internal/protocol/bitfield"
	"github.com/danmuck/lifxctl/internal/testutil/testlog"
)

var labelField = bitfield.Bytes("label", LabelSize)

func TestLabelRoundTrip(t *testing.T) {
	testlog.Start(t)
	var c LabelConverter
	v, err := c.ToWire(labelField, "kitchen")
	if err != nil {
		t.Fatalf("to wire: %v", err)
	}
	if len(v.Bytes) != LabelSize {
		t.Fatalf("label not padded to %d bytes: %d", LabelSize, len(v.Bytes))
	}
	out, err := c.FromWire(v)
	if err != nil {
		t.Fatalf("from wire: %v", err)
	}
	if out != "kitchen" {
		t.Fatalf("got %q", out)
	}
}

func TestLabelTruncatesSilently(t *testing.T) {
	testlog.Start(t)
	var c LabelConverter
	long := strings.Repeat("a", 40)
	v, err := c.ToWire(labelField, long)
	if err != nil {
		t.Fatalf("truncation must not error: %v", err)
	}
	out, _ := c.FromWire(v)
	if out != long[:32] {
		t.Fatalf("got %q", out)
	}
}

func TestLabelTruncatesOnRuneBoundary(t *testing.T) {
	testlog.Start(t)
	// 31 ASCII bytes followed by a 3-byte rune: the rune does not fit.
	in := strings.Repeat("b", 31) + "€"
	got := TruncateLabel(in, LabelSize)
	if got != strings.Repeat("b", 31) {
		t.Fatalf("got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid utf-8")
	}
}

func TestLabelFromWireStopsAtNul(t *testing.T) {
	testlog.Start(t)
	var c LabelConverter
	raw := make([]byte, LabelSize)
	copy(raw, "desk\x00junk")
	out, err := c.FromWire(bitfield.Value{Kind: bitfield.KindBytes, Bytes: raw})
	if err != nil {
		t.Fatalf("from wire: %v", err)
	}
	if out != "desk" {
		t.Fatalf("got %q", out)
	}
}

func TestLabelInvalidEncoding(t *testing.T) {
	testlog.Start(t)
	var c LabelConverter
	raw := make([]byte, LabelSize)
	raw[0] = 0xff
	raw[1] = 0xfe
	if _, err := c.FromWire(bitfield.Value{Kind: bitfield.KindBytes, Bytes: raw}); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
	if _, err := c.ToWire(labelField, "\xff"); !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("expected ErrInvalidEncoding on invalid input, got %v", err)
	}
	if _, err := c.ToWire(labelField, 42); !errors.Is(err, bitfield.ErrValueType) {
		t.Fatalf("expected ErrValueType, got %v", err)
	}
}

func TestEnumConverter(t *testing.T) {
	testlog.Start(t)
	f := bitfield.Uint("waveform", 8)
	v, err := Waveform.ToWire(f, "half_sine")
	if err != nil {
		t.Fatalf("to wire: %v", err)
	}
	if v.Uint != 2 {
		t.Fatalf("half_sine should be 2, got %d", v.Uint)
	}
	name, err := Waveform.FromWire(bitfield.Value{Kind: bitfield.KindUint, Uint: 4})
	if err != nil || name != "pulse" {
		t.Fatalf("from wire: %v %v", name, err)
	}
	if _, err := Waveform.ToWire(f, "square"); !errors.Is(err, ErrUnknownEnumName) {
		t.Fatalf("expected ErrUnknownEnumName, got %v", err)
	}
	if _, err := Waveform.FromWire(bitfield.Value{Kind: bitfield.KindUint, Uint: 9}); !errors.Is(err, ErrUnknownEnumValue) {
		t.Fatalf("expected ErrUnknownEnumValue, got %v", err)
	}
	if _, err := Waveform.ToWire(f, 1); !errors.Is(err, bitfield.ErrValueType) {
		t.Fatalf("raw integers are not accepted, got %v", err)
	}
}

func TestEnumNamesOrderedByValue(t *testing.T) {
	testlog.Start(t)
	got := strings.Join(Waveform.Names(), ",")
	if got != "saw,sine,half_sine,triangle,pulse" {
		t.Fatalf("got %s", got)
	}
}

func TestNewEnumPanicsOnDuplicateName(t *testing.T) {
	testlog.Start(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewEnum(map[uint64]string{0: "x", 1: "x"})
}
