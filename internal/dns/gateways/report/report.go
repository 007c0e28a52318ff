// Package report renders comparison reports for people and for machines.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haukened/zonediff/internal/dns/services/compare"
)

// Format selects how a report is rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const (
	errUnknownFormat = "unknown output format %q (want text, json or yaml)"
	errNilReport     = "nothing to render"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

// ParseFormat returns the Format named by s, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf(errUnknownFormat, s)
	}
}

// Render writes r to w in the given format.
func Render(w io.Writer, format Format, r *compare.Report) error {
	if r == nil {
		return fmt.Errorf(errNilReport)
	}
	switch format {
	case FormatText:
		return renderText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf(errUnknownFormat, format)
	}
}

func renderText(w io.Writer, r *compare.Report) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Comparing %s between current nameserver %s and new nameserver %s\n", r.Zone, r.CurrentServer, r.NewServer)

	d := r.Diff
	if d.Identical() {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "Zones are identical")
	}
	if len(d.Missing) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "Records missing from new nameserver:")
		for _, rec := range d.Missing {
			fmt.Fprintf(bw, "MISSING %s\n", rec)
		}
	}
	if len(d.Extra) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "Extra records in new nameserver:")
		for _, rec := range d.Extra {
			fmt.Fprintf(bw, "EXTRA %s\n", rec)
		}
	}
	if len(d.TTLMismatches) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "TTL differences:")
		for _, m := range d.TTLMismatches {
			fmt.Fprintf(bw, "TTL %s: current %d, new %d\n", m.Key, m.CurrentTTL, m.CandidateTTL)
		}
	}
	if len(r.Failures) > 0 {
		fmt.Fprintln(bw)
		fmt.Fprintln(bw, "Probes treated as no data:")
		for _, f := range r.Failures {
			fmt.Fprintf(bw, "FAILED %s %s @%s: %s\n", f.Name, f.Type, f.Server, f.Reason)
		}
	}
	return bw.Flush()
}
