package worker

import (
	"fmt"
	"strings"
)

// normalizeTicker validates and canonicalizes a ticker symbol for use in
// etcd keys and output paths. Symbols are uppercased; anything outside
// A-Z, 0-9, '.', '-', '^' is rejected.
func normalizeTicker(sym string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(sym))
	if s == "" {
		return "", fmt.Errorf("empty ticker symbol")
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '^':
		default:
			return "", fmt.Errorf("invalid character %q in ticker %q", r, sym)
		}
	}
	return s, nil
}
