package utils

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// CanonicalDNSName returns a DNS name in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot, so "WWW.Example.com." and "www.example.com" compare equal.
func CanonicalDNSName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	// remove all trailing dots
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// ASCIIDNSName converts a possibly internationalized name to its canonical
// A-label form ("bücher.example" becomes "xn--bcher-kva.example").
func ASCIIDNSName(name string) (string, error) {
	name = CanonicalDNSName(name)
	if name == "" {
		return "", fmt.Errorf("empty domain name")
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("invalid domain name %q: %w", name, err)
	}
	return CanonicalDNSName(ascii), nil
}

// InZone reports whether name is the zone apex or below it.
// Both arguments are canonicalized before comparison.
func InZone(name, zone string) bool {
	name = CanonicalDNSName(name)
	zone = CanonicalDNSName(zone)
	if name == "" || zone == "" {
		return false
	}
	return name == zone || strings.HasSuffix(name, "."+zone)
}

// ExpandName returns the canonical owner name for a label relative to zone:
// "@" is the apex, a label ending in a dot is absolute, anything else has the
// zone appended.
func ExpandName(label, zone string) string {
	label = strings.TrimSpace(label)
	switch {
	case label == "@" || label == "":
		return CanonicalDNSName(zone)
	case strings.HasSuffix(label, "."):
		return CanonicalDNSName(label)
	default:
		return CanonicalDNSName(label + "." + CanonicalDNSName(zone))
	}
}
