package sink

import (
	"io"
	"strings"
)

type pipeSinkWriter struct {
	io.Writer
	io.Closer
}

func toBool(val interface{}) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		return v == "1" || v == "true" || v == "on"
	default:
		return false
	}
}

// buildKey joins an object prefix and name, normalizing duplicate slashes.
func buildKey(prefix, name string) string {
	p := strings.Trim(prefix, "/")
	n := strings.Trim(name, "/")
	if p == "" {
		return n
	}
	return p + "/" + n
}
