package rrdata

import (
	"fmt"

	"github.com/miekg/dns"

	"github.com/haukened/zonediff/internal/dns/common/utils"
	"github.com/haukened/zonediff/internal/dns/domain"
)

// FromRR converts a resource record from a DNS answer into a normalized
// domain.Record. Records of types outside domain.ComparedTypes yield an error
// wrapping ErrUnsupportedType.
func FromRR(rr dns.RR) (domain.Record, error) {
	if rr == nil {
		return domain.Record{}, fmt.Errorf("nil resource record")
	}
	h := rr.Header()
	value, err := Value(rr)
	if err != nil {
		return domain.Record{}, err
	}
	return domain.NewRecord(h.Name, domain.RRType(h.Rrtype), h.Ttl, value)
}

// Value renders the canonical value of a resource record.
func Value(rr dns.RR) (string, error) {
	switch v := rr.(type) {
	case *dns.A:
		return aValue(v.A)
	case *dns.AAAA:
		return aaaaValue(v.AAAA)
	case *dns.CNAME:
		return cnameValue(v.Target), nil
	case *dns.PTR:
		return ptrValue(v.Ptr), nil
	case *dns.MX:
		return mxValue(v.Preference, v.Mx), nil
	case *dns.TXT:
		return txtValue(v.Txt), nil
	case *dns.SRV:
		return srvValue(v.Priority, v.Weight, v.Port, v.Target), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, dns.TypeToString[rr.Header().Rrtype])
	}
}

// NormalizeValue canonicalizes a value given in presentation form, e.g. as
// typed by a user or read back from a report. Normalizing an already
// normalized value returns it unchanged.
func NormalizeValue(rrtype domain.RRType, text string) (string, error) {
	switch rrtype {
	case domain.RRTypeA:
		return normalizeA(text)
	case domain.RRTypeAAAA:
		return normalizeAAAA(text)
	case domain.RRTypeCNAME:
		return normalizeCNAME(text)
	case domain.RRTypePTR:
		return normalizePTR(text)
	case domain.RRTypeMX:
		return normalizeMX(text)
	case domain.RRTypeTXT:
		return normalizeTXT(text)
	case domain.RRTypeSRV:
		return normalizeSRV(text)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, rrtype)
	}
}

// NormalizeKey canonicalizes both the owner name and the value of a key.
func NormalizeKey(k domain.RecordKey) (domain.RecordKey, error) {
	value, err := NormalizeValue(k.Type, k.Value)
	if err != nil {
		return domain.RecordKey{}, err
	}
	return domain.NewRecordKey(k.Name, k.Type, value)
}

// Target returns the canonical domain name a record points at, for the
// record types whose value references another name (CNAME, MX, SRV).
// The root target of a null MX or SRV is not reported.
func Target(rr dns.RR) (string, bool) {
	var target string
	switch v := rr.(type) {
	case *dns.CNAME:
		target = v.Target
	case *dns.MX:
		target = v.Mx
	case *dns.SRV:
		target = v.Target
	default:
		return "", false
	}
	target = utils.CanonicalDNSName(target)
	return target, target != ""
}
