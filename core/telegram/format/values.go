package format

import (
	"strconv"
	"strings"
)

// OrDefault returns s, or def when s is blank.
func OrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Address shortens addresses longer than 16 characters to first8...last8.
func Address(addr string) string {
	if addr == "" {
		return "Not set"
	}
	if len(addr) > 16 {
		return addr[:8] + "..." + addr[len(addr)-8:]
	}
	return addr
}

// Amount renders a balance with two decimals.
func Amount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FullName joins first and last name, skipping blanks.
func FullName(first, last string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	return OrDefault(name, "Not set")
}
