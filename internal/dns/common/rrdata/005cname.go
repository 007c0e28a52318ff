package rrdata

import "fmt"

func cnameValue(target string) string {
	return canonicalTarget(target)
}

func normalizeCNAME(text string) (string, error) {
	target, err := parseTarget(text)
	if err != nil {
		return "", fmt.Errorf("invalid CNAME target: %w", err)
	}
	return target, nil
}
