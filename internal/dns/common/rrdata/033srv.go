package rrdata

import (
	"fmt"
	"strings"
)

// srvValue renders an SRV record as "priority weight port target".
func srvValue(priority, weight, port uint16, target string) string {
	return fmt.Sprintf("%d %d %d %s", priority, weight, port, canonicalTarget(target))
}

// normalizeSRV parses "priority weight port target" text.
func normalizeSRV(text string) (string, error) {
	parts := strings.Fields(text)
	if len(parts) != 4 {
		return "", fmt.Errorf("invalid SRV record format (expected 4 fields): %s", text)
	}
	var nums [3]uint16
	for i, field := range []string{"SRV priority", "SRV weight", "SRV port"} {
		v, err := parseUint16(field, parts[i])
		if err != nil {
			return "", err
		}
		nums[i] = v
	}
	return srvValue(nums[0], nums[1], nums[2], parts[3]), nil
}
