package domain

import (
	"maps"
	"slices"

	"github.com/haukened/zonediff/internal/dns/common/utils"
)

// NameSet is the set of owner names probed for one comparison.
// Names are stored canonical; the zero value is not usable, use NewNameSet.
type NameSet struct {
	names map[string]struct{}
}

// NewNameSet returns a set holding the given names.
func NewNameSet(names ...string) *NameSet {
	s := &NameSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name and reports whether it was new. Empty names are ignored.
func (s *NameSet) Add(name string) bool {
	name = utils.CanonicalDNSName(name)
	if name == "" {
		return false
	}
	if _, ok := s.names[name]; ok {
		return false
	}
	s.names[name] = struct{}{}
	return true
}

// Union adds every name of o to s.
func (s *NameSet) Union(o *NameSet) {
	if o == nil {
		return
	}
	for n := range o.names {
		s.names[n] = struct{}{}
	}
}

func (s *NameSet) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[utils.CanonicalDNSName(name)]
	return ok
}

func (s *NameSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the names in lexical order.
func (s *NameSet) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.names))
}
