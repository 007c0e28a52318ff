package rrdata

import "fmt"

func ptrValue(target string) string {
	return canonicalTarget(target)
}

func normalizePTR(text string) (string, error) {
	target, err := parseTarget(text)
	if err != nil {
		return "", fmt.Errorf("invalid PTR target: %w", err)
	}
	return target, nil
}
