// Package headers parses the extra request headers sent with every website
// page load.
package headers

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// reserved headers are set by the page loaders themselves. Accept-Encoding in
// particular must match the decoders the static loader has.
var reserved = map[string]bool{
	"Accept-Encoding": true,
	"Content-Length":  true,
	"Host":            true,
	"Connection":      true,
}

// ParseHeaders converts "Key: Value" lines into a map keyed by canonical
// header name. A later line for the same header replaces an earlier one.
func ParseHeaders(lines []string) (map[string]string, error) {
	m := make(map[string]string, len(lines))
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("header %q is not in \"Key: Value\" form", line)
		}
		name = http.CanonicalHeaderKey(strings.TrimSpace(name))
		m[name] = strings.TrimSpace(value)
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks header names and values from any config source.
func Validate(h map[string]string) error {
	for name, value := range h {
		if !httpguts.ValidHeaderFieldName(name) {
			return fmt.Errorf("invalid header name %q", name)
		}
		if reserved[http.CanonicalHeaderKey(name)] {
			return fmt.Errorf("header %s is managed by the page loader", http.CanonicalHeaderKey(name))
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return fmt.Errorf("invalid value for header %s", name)
		}
	}
	return nil
}
