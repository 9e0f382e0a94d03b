package header

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// Target is the 8-byte device address carried in the frame address. The
// first six bytes are the device MAC; the all-zero target addresses every
// device.
type Target [8]byte

// Broadcast reports whether t is the all-zero target.
func (t Target) Broadcast() bool {
	return t == Target{}
}

// MAC returns the six address bytes.
func (t Target) MAC() net.HardwareAddr {
	return net.HardwareAddr(t[:6])
}

func (t Target) String() string {
	return t.MAC().String()
}

// ParseTarget accepts a 6 or 8 byte address written as plain hex or with
// ':' / '-' separators. The empty string is the broadcast target.
func ParseTarget(s string) (Target, error) {
	var t Target
	clean := strings.NewReplacer(":", "", "-", "", ".", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return t, nil
	}
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return t, fmt.Errorf("header: parse target %q: %w", s, err)
	}
	if len(raw) != 6 && len(raw) != 8 {
		return t, fmt.Errorf("header: parse target %q: want 6 or 8 bytes, got %d", s, len(raw))
	}
	copy(t[:], raw)
	return t, nil
}

// TargetFromBytes copies up to eight bytes into a Target.
func TargetFromBytes(b []byte) (Target, error) {
	var t Target
	if len(b) > len(t) {
		return t, fmt.Errorf("header: target holds 8 bytes, got %d", len(b))
	}
	copy(t[:], b)
	return t, nil
}
