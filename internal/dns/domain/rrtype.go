package domain

import (
	"fmt"
	"strings"
)

// RRType represents a DNS resource record type (e.g. A, AAAA, MX).
// Values match the IANA DNS Parameters codes so they convert directly to
// and from wire types.
type RRType uint16

// DNS Resource Record Type constants
const (
	RRTypeA     RRType = 1  // A - IPv4 address
	RRTypeNS    RRType = 2  // NS - Name server
	RRTypeCNAME RRType = 5  // CNAME - Canonical name
	RRTypeSOA   RRType = 6  // SOA - Start of authority
	RRTypePTR   RRType = 12 // PTR - Pointer
	RRTypeMX    RRType = 15 // MX - Mail exchange
	RRTypeTXT   RRType = 16 // TXT - Text
	RRTypeAAAA  RRType = 28 // AAAA - IPv6 address
	RRTypeSRV   RRType = 33 // SRV - Service
)

// ComparedTypes is the closed set of record types that take part in a zone
// comparison, in probe order. NS is absent: delegation records
// are expected to differ between the old and the new nameserver.
var ComparedTypes = []RRType{
	RRTypeA,
	RRTypeAAAA,
	RRTypeCNAME,
	RRTypeMX,
	RRTypeTXT,
	RRTypeSRV,
	RRTypePTR,
}

// IsValid returns true if the RRType is one this tool knows how to query.
func (t RRType) IsValid() bool {
	switch t {
	case RRTypeA, RRTypeNS, RRTypeCNAME, RRTypeSOA, RRTypePTR, RRTypeMX, RRTypeTXT,
		RRTypeAAAA, RRTypeSRV:
		return true
	default:
		return false
	}
}

// IsCompared reports whether records of this type belong in a snapshot.
func (t RRType) IsCompared() bool {
	switch t {
	case RRTypeA, RRTypeAAAA, RRTypeCNAME, RRTypeMX, RRTypeTXT, RRTypeSRV, RRTypePTR:
		return true
	default:
		return false
	}
}

// String returns the textual representation of the RRType.
// For unknown types, it returns "UNKNOWN(<value>)".
func (t RRType) String() string {
	switch t {
	case RRTypeA:
		return "A"
	case RRTypeNS:
		return "NS"
	case RRTypeCNAME:
		return "CNAME"
	case RRTypeSOA:
		return "SOA"
	case RRTypePTR:
		return "PTR"
	case RRTypeMX:
		return "MX"
	case RRTypeTXT:
		return "TXT"
	case RRTypeAAAA:
		return "AAAA"
	case RRTypeSRV:
		return "SRV"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", t)
	}
}

// MarshalText renders the type mnemonic, so reports show "MX" rather than 15.
func (t RRType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid RRType: %d", t)
	}
	return []byte(t.String()), nil
}

// RRTypeFromString converts a record type string to its corresponding RRType value.
func RRTypeFromString(s string) RRType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return RRTypeA
	case "NS":
		return RRTypeNS
	case "CNAME":
		return RRTypeCNAME
	case "SOA":
		return RRTypeSOA
	case "PTR":
		return RRTypePTR
	case "MX":
		return RRTypeMX
	case "TXT":
		return RRTypeTXT
	case "AAAA":
		return RRTypeAAAA
	case "SRV":
		return RRTypeSRV
	default:
		return 0 // invalid/unknown
	}
}

// UnmarshalText parses a type mnemonic such as "MX".
func (t *RRType) UnmarshalText(text []byte) error {
	v := RRTypeFromString(string(text))
	if !v.IsValid() {
		return fmt.Errorf("invalid RRType: %q", text)
	}
	*t = v
	return nil
}
