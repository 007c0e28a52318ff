package rrdata

import (
	"fmt"
	"net"
	"net/netip"
)

// aaaaValue renders an IPv6 address in RFC 5952 form. IPv4-mapped addresses
// keep their ::ffff: prefix.
func aaaaValue(ip net.IP) (string, error) {
	ip16 := ip.To16()
	if ip16 == nil {
		return "", fmt.Errorf("invalid AAAA record IP: %v", ip)
	}
	return netip.AddrFrom16([16]byte(ip16)).String(), nil
}

// normalizeAAAA parses and re-renders an AAAA record value.
func normalizeAAAA(text string) (string, error) {
	addr, err := netip.ParseAddr(text)
	if err != nil || !addr.Is6() || addr.Zone() != "" {
		return "", fmt.Errorf("invalid AAAA record IP: %s", text)
	}
	return addr.String(), nil
}
