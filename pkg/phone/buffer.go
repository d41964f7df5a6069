package phone

import "strings"

// KeyResult tells an input widget what to do with the native key event.
type KeyResult int

const (
	// KeyAllowed lets the widget handle the key itself (navigation, tab).
	KeyAllowed KeyResult = iota
	// KeyConsumed means the buffer changed, or deliberately ignored the key.
	KeyConsumed
	// KeyRejected means the key is not valid phone input.
	KeyRejected
)

var navigationKeys = map[string]bool{
	"Tab":        true,
	"ArrowLeft":  true,
	"ArrowRight": true,
	"ArrowUp":    true,
	"ArrowDown":  true,
	"Home":       true,
	"End":        true,
	"Enter":      true,
	"Escape":     true,
}

// Buffer holds the digits typed so far. Editing always acts on the end of the
// buffer, never on an arbitrary cursor position.
type Buffer struct {
	digits []byte
}

// NewBuffer seeds a buffer from an existing stored value.
func NewBuffer(initial string) *Buffer {
	return &Buffer{digits: []byte(Digits(strings.TrimPrefix(initial, CountryPrefix)))}
}

// Press applies one key name, as reported by a browser KeyboardEvent.key.
func (b *Buffer) Press(key string) KeyResult {
	if navigationKeys[key] {
		return KeyAllowed
	}

	if key == "Backspace" || key == "Delete" {
		if len(b.digits) > 0 {
			b.digits = b.digits[:len(b.digits)-1]
		}
		return KeyConsumed
	}

	if len(key) != 1 || key[0] < '0' || key[0] > '9' {
		return KeyRejected
	}

	if len(b.digits) >= NationalLen {
		return KeyConsumed
	}
	b.digits = append(b.digits, key[0])
	return KeyConsumed
}

func (b *Buffer) Len() int {
	return len(b.digits)
}

func (b *Buffer) Complete() bool {
	return len(b.digits) == NationalLen
}

// Canonical returns "+1" plus the buffered digits, or "" when empty.
func (b *Buffer) Canonical() string {
	if len(b.digits) == 0 {
		return ""
	}
	return CountryPrefix + string(b.digits)
}

func (b *Buffer) Display() string {
	return Display(string(b.digits))
}
