package rrdata

import "testing"

func TestCNAMEValue(t *testing.T) {
	if got := cnameValue("Web.Example.COM."); got != "web.example.com" {
		t.Errorf("cnameValue = %q", got)
	}
}

func TestNormalizeCNAME(t *testing.T) {
	got, err := normalizeCNAME(" Alias.Example.com. ")
	if err != nil || got != "alias.example.com" {
		t.Errorf("normalizeCNAME = %q, %v", got, err)
	}
	if _, err := normalizeCNAME(""); err == nil {
		t.Error("expected error for empty target")
	}
	if _, err := normalizeCNAME("a.example.com b.example.com"); err == nil {
		t.Error("expected error for two targets")
	}
}
