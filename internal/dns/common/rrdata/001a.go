package rrdata

import (
	"fmt"
	"net"
	"net/netip"
)

// aValue renders an IPv4 address as a dotted quad.
func aValue(ip net.IP) (string, error) {
	ip4 := ip.To4()
	if ip4 == nil {
		return "", fmt.Errorf("invalid A record IP: %v", ip)
	}
	return netip.AddrFrom4([4]byte(ip4)).String(), nil
}

// normalizeA parses and re-renders an A record value.
func normalizeA(text string) (string, error) {
	addr, err := netip.ParseAddr(text)
	if err != nil || !addr.Is4() {
		return "", fmt.Errorf("invalid A record IP: %s", text)
	}
	return addr.String(), nil
}
