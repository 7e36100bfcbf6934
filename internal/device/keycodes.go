// File: internal/device/keycodes.go
package device

// Android KEYCODE_0 is 7 and KEYCODE_A is 29; digits and letters are contiguous.
const (
	keyCode0 = 7
	keyCodeA = 29
)

// KeyCodeFor maps an ASCII letter or digit to its Android key code.
// Letters map case-insensitively. Anything else reports false.
func KeyCodeFor(r rune) (int, bool) {
	switch {
	case r >= '0' && r <= '9':
		return keyCode0 + int(r-'0'), true
	case r >= 'a' && r <= 'z':
		return keyCodeA + int(r-'a'), true
	case r >= 'A' && r <= 'Z':
		return keyCodeA + int(r-'A'), true
	}
	return 0, false
}
