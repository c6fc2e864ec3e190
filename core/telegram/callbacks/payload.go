package callbacks

import (
	"strconv"
	"strings"
)

// Choice reports whether payload is one of allowed and returns it normalised.
func Choice(payload string, allowed ...string) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(payload))
	for _, a := range allowed {
		if p == a {
			return p, true
		}
	}
	return "", false
}

// PayloadInt64 parses a numeric payload such as a chain id.
func PayloadInt64(payload string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
}
