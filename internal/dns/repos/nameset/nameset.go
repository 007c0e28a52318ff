// Package nameset loads the owner names a user wants compared from names
// files in YAML, JSON or TOML.
package nameset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/zonediff/internal/dns/common/utils"
	"github.com/haukened/zonediff/internal/dns/domain"
)

const (
	errUnsupportedFile = "unsupported names file %s: expected .yaml, .yml, .json or .toml"
	errLoadFile        = "failed to load names file %s: %w"
	errZoneMismatch    = "names file %s is for zone %q, not %q"
	errOutOfZone       = "name %q in %s is outside zone %s"
	errParseFile       = "error parsing names file %s: %w"
)

// Load reads names for zone from path. A directory is walked and every
// supported file in it is loaded; unsupported files inside a directory are
// skipped. Labels are expanded relative to zone ("@" is the apex).
func Load(path, zone string) (*domain.NameSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf(errLoadFile, path, err)
	}
	if !info.IsDir() {
		if parserFor(path) == nil {
			return nil, fmt.Errorf(errUnsupportedFile, path)
		}
		return loadFile(path, zone)
	}

	names := domain.NewNameSet()
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || parserFor(p) == nil {
			return err
		}
		set, err := loadFile(p, zone)
		if err != nil {
			return fmt.Errorf(errParseFile, p, err)
		}
		names.Union(set)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// parserFor returns the koanf parser for a file extension, or nil.
func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	case ".toml":
		return toml.Parser()
	default:
		return nil
	}
}

// loadFile parses one names file. The optional "zone_root" key must match
// zone when present; "names" holds the labels.
func loadFile(path, zone string) (*domain.NameSet, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, fmt.Errorf(errLoadFile, path, err)
	}

	zone = utils.CanonicalDNSName(zone)
	if root := k.String("zone_root"); root != "" && utils.CanonicalDNSName(root) != zone {
		return nil, fmt.Errorf(errZoneMismatch, path, utils.CanonicalDNSName(root), zone)
	}

	names := domain.NewNameSet()
	for _, label := range toStringValues(k.Get("names")) {
		fqdn := utils.ExpandName(label, zone)
		if !utils.InZone(fqdn, zone) {
			return nil, fmt.Errorf(errOutOfZone, label, path, zone)
		}
		names.Add(fqdn)
	}
	return names, nil
}

// toStringValues converts a raw koanf-parsed value (string or list) into a
// slice of non-empty strings, skipping empty or non-string elements.
func toStringValues(val any) []string {
	switch v := val.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return []string{s}
	case []string:
		return toStringValues(anySlice(v))
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
