// Package hexutil parses the loose hex notation accepted by the CLI and TUI,
// e.g. "48656C6C6F", "48 65 6c 6c 6f" or "0x48 0x65".
package hexutil

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Parse decodes s, ignoring whitespace and 0x prefixes.
func Parse(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, "0x", "")
	s = strings.ReplaceAll(s, "0X", "")

	if len(s)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return data, nil
}

// Printable replaces bytes outside printable ASCII with '.'
func Printable(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
