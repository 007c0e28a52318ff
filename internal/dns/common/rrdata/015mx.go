package rrdata

import (
	"fmt"
	"strings"
)

// mxValue renders an MX record as "preference exchange". The preference is
// part of the identity: a changed preference is a different record.
func mxValue(pref uint16, exchange string) string {
	return fmt.Sprintf("%d %s", pref, canonicalTarget(exchange))
}

// normalizeMX parses "10 mail.example.com." style text.
func normalizeMX(text string) (string, error) {
	parts := strings.Fields(text)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid MX record format (expected: preference domain): %s", text)
	}
	pref, err := parseUint16("MX preference", parts[0])
	if err != nil {
		return "", err
	}
	return mxValue(pref, parts[1]), nil
}
