package utils

import (
	"strings"
	"testing"
)

func TestCanonicalDNSName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple domain without trailing dot",
			input:    "example.com",
			expected: "example.com",
		},
		{
			name:     "simple domain with trailing dot",
			input:    "example.com.",
			expected: "example.com",
		},
		{
			name:     "mixed case with trailing dot",
			input:    "WWW.Example.com.",
			expected: "www.example.com",
		},
		{
			name:     "surrounding whitespace",
			input:    "  example.com \t",
			expected: "example.com",
		},
		{
			name:     "multiple trailing dots",
			input:    "example.com...",
			expected: "example.com",
		},
		{
			name:     "root",
			input:    ".",
			expected: "",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "underscore labels are preserved",
			input:    "_SIP._TCP.example.com.",
			expected: "_sip._tcp.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanonicalDNSName(tt.input)
			if got != tt.expected {
				t.Errorf("CanonicalDNSName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		for _, tt := range tests {
			once := CanonicalDNSName(tt.input)
			if twice := CanonicalDNSName(once); twice != once {
				t.Errorf("CanonicalDNSName not idempotent for %q: %q then %q", tt.input, once, twice)
			}
		}
	})

	t.Run("output has no trailing dot or uppercase", func(t *testing.T) {
		for _, tt := range tests {
			got := CanonicalDNSName(tt.input)
			if strings.HasSuffix(got, ".") || strings.ToLower(got) != got {
				t.Errorf("CanonicalDNSName(%q) = %q is not canonical", tt.input, got)
			}
		}
	})
}

func TestASCIIDNSName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "ascii passes through", input: "Example.COM.", expected: "example.com"},
		{name: "unicode label converted", input: "bücher.example", expected: "xn--bcher-kva.example"},
		{name: "already punycode", input: "xn--bcher-kva.example", expected: "xn--bcher-kva.example"},
		{name: "empty", input: " ", wantErr: true},
		{name: "space in label", input: "exa mple.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ASCIIDNSName(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ASCIIDNSName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInZone(t *testing.T) {
	tests := []struct {
		name string
		zone string
		want bool
	}{
		{"example.com", "example.com", true},
		{"WWW.example.com.", "example.com", true},
		{"a.b.example.com", "example.com.", true},
		{"badexample.com", "example.com", false},
		{"example.org", "example.com", false},
		{"", "example.com", false},
		{"example.com", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name+"_in_"+tt.zone, func(t *testing.T) {
			if got := InZone(tt.name, tt.zone); got != tt.want {
				t.Errorf("InZone(%q, %q) = %v, want %v", tt.name, tt.zone, got, tt.want)
			}
		})
	}
}

func TestExpandName(t *testing.T) {
	tests := []struct {
		label    string
		expected string
	}{
		{"@", "example.com"},
		{"", "example.com"},
		{"www", "www.example.com"},
		{"_sip._tcp", "_sip._tcp.example.com"},
		{"Mail.Example.com.", "mail.example.com"},
		{"other.org.", "other.org"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := ExpandName(tt.label, "Example.com."); got != tt.expected {
				t.Errorf("ExpandName(%q) = %q, want %q", tt.label, got, tt.expected)
			}
		})
	}
}
