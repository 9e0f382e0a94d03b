package protocol

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/lifxctl/internal/protocol/schema"
)

// SetText parses text according to the field's kind and assigns it.
// Integers accept any strconv base prefix and true/false; bytes accept hex
// with optional ':' or '-' separators; labels and enums are used verbatim.
func (m *Message) SetText(name, text string) error {
	kind, err := m.Kind(name)
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	switch kind {
	case schema.KindLabel, schema.KindEnum:
		return m.Set(name, text)
	case schema.KindFloat:
		f, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return &FieldError{Field: name, Err: fmt.Errorf("%w: %v", ErrValueType, err)}
		}
		return m.Set(name, f)
	case schema.KindBytes:
		raw, err := hex.DecodeString(strings.NewReplacer(":", "", "-", "").Replace(text))
		if err != nil {
			return &FieldError{Field: name, Err: fmt.Errorf("%w: %v", ErrValueType, err)}
		}
		return m.Set(name, raw)
	default:
		if b, err := strconv.ParseBool(text); err == nil && !isDigits(text) {
			return m.Set(name, b)
		}
		if strings.HasPrefix(text, "-") {
			i, err := strconv.ParseInt(text, 0, 64)
			if err != nil {
				return &FieldError{Field: name, Err: fmt.Errorf("%w: %v", ErrValueType, err)}
			}
			return m.Set(name, i)
		}
		u, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return &FieldError{Field: name, Err: fmt.Errorf("%w: %v", ErrValueType, err)}
		}
		return m.Set(name, u)
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
