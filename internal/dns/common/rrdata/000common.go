package rrdata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/haukened/zonediff/internal/dns/common/utils"
)

// ErrUnsupportedType is returned for record types outside the compared set.
var ErrUnsupportedType = errors.New("unsupported record type")

// canonicalTarget renders a domain-name-valued field: lower-case, no trailing
// dot, and "." for the root (e.g. a null MX).
func canonicalTarget(name string) string {
	c := utils.CanonicalDNSName(name)
	if c == "" {
		return "."
	}
	return c
}

// parseTarget normalizes a single domain name given in presentation form.
func parseTarget(text string) (string, error) {
	fields := strings.Fields(text)
	if len(fields) != 1 {
		return "", fmt.Errorf("expected a single domain name, got %q", text)
	}
	return canonicalTarget(fields[0]), nil
}

// parseUint16 parses a numeric rdata field such as an MX preference or SRV port.
func parseUint16(field, text string) (uint16, error) {
	v, err := strconv.ParseUint(text, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, text)
	}
	return uint16(v), nil
}
