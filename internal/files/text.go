package files

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeText interprets raw file bytes as UTF-8, falling back to
// Windows-1252 for files exported by older Windows clients.
func DecodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		// Lossy pass-through; the parser classifies the file either way.
		return string(raw)
	}
	return string(decoded)
}
