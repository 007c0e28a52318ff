// Package discovery decides which owner names of a zone are probed.
//
// The universe is the apex, the names supplied by the caller and, when
// following is enabled, the in-zone MX, SRV and CNAME targets of those seed
// names as answered by each server. Names nobody mentions are never guessed.
package discovery

import (
	"context"
	"errors"
	"slices"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/haukened/zonediff/internal/dns/common/log"
	"github.com/haukened/zonediff/internal/dns/common/retry"
	"github.com/haukened/zonediff/internal/dns/common/rrdata"
	"github.com/haukened/zonediff/internal/dns/common/utils"
	"github.com/haukened/zonediff/internal/dns/domain"
)

const (
	errQuerierRequired = "querier is required"
	errNoServers       = "no servers to discover from"
	errNoNS            = "no NS records for the zone"
)

// followTypes are the record types whose targets are followed one level.
var followTypes = []domain.RRType{domain.RRTypeMX, domain.RRTypeSRV, domain.RRTypeCNAME}

// Querier sends one query to a nameserver.
type Querier interface {
	Query(ctx context.Context, name string, rrtype domain.RRType, server string) ([]dns.RR, error)
}

// Options configures a Discoverer.
type Options struct {
	Querier Querier
	Retry   retry.Policy
	// Follow adds in-zone targets of the seed names' MX, SRV and CNAME records.
	Follow bool
	Logger log.Logger
}

// Discoverer computes the name universe of a comparison.
type Discoverer struct {
	querier Querier
	retry   retry.Policy
	follow  bool
	logger  log.Logger
}

// ServerInfo is what a server said about the zone itself.
type ServerInfo struct {
	Server      string   `json:"server" yaml:"server"`
	Nameservers []string `json:"nameservers" yaml:"nameservers"`
	// Serial is the SOA serial, zero when the server returned no SOA.
	Serial uint32 `json:"serial,omitempty" yaml:"serial,omitempty"`
	// Addresses maps each NS host to its addresses. Discovery leaves it
	// empty; the comparer fills it through the system resolver.
	Addresses map[string][]string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
}

// Result is the outcome of discovery.
type Result struct {
	Names   *domain.NameSet
	Servers []ServerInfo
}

// NewDiscoverer creates a Discoverer. A Querier is required.
func NewDiscoverer(opts Options) (*Discoverer, error) {
	if opts.Querier == nil {
		return nil, errors.New(errQuerierRequired)
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Discoverer{querier: opts.Querier, retry: opts.Retry, follow: opts.Follow, logger: opts.Logger}, nil
}

// Discover returns the names to probe for zone. names are caller-supplied
// owner names, already expanded and inside the zone.
//
// Every server must answer NS for the zone; a failed or empty NS answer from
// any of them is an *domain.AuthorityError. Follow probes never fail the run.
func (d *Discoverer) Discover(ctx context.Context, zone string, names []string, servers ...string) (Result, error) {
	zone = utils.CanonicalDNSName(zone)
	if len(servers) == 0 {
		return Result{}, errors.New(errNoServers)
	}

	seeds := domain.NewNameSet(zone)
	for _, n := range names {
		seeds.Add(n)
	}

	infos := make([]ServerInfo, len(servers))
	found := make([]*domain.NameSet, len(servers))
	g, gctx := errgroup.WithContext(ctx)
	for i, server := range servers {
		g.Go(func() error {
			info, err := d.authority(gctx, zone, server)
			if err != nil {
				return err
			}
			infos[i] = info
			if d.follow {
				found[i] = d.targets(gctx, zone, seeds.Names(), server)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	universe := domain.NewNameSet()
	universe.Union(seeds)
	for _, set := range found {
		universe.Union(set)
	}
	d.logger.Debug(map[string]any{"zone": zone, "names": universe.Len(), "follow": d.follow}, "name universe discovered")
	return Result{Names: universe, Servers: infos}, nil
}

// authority checks that server answers NS for zone and reads its SOA serial.
func (d *Discoverer) authority(ctx context.Context, zone, server string) (ServerInfo, error) {
	info := ServerInfo{Server: server}

	answers, err := retry.Do(ctx, d.retry, func(ctx context.Context) ([]dns.RR, error) {
		return d.querier.Query(ctx, zone, domain.RRTypeNS, server)
	})
	if err != nil {
		if ctx.Err() != nil {
			return info, ctx.Err()
		}
		return info, &domain.AuthorityError{Zone: zone, Server: server, Err: err}
	}
	for _, rr := range answers {
		if ns, ok := rr.(*dns.NS); ok && utils.CanonicalDNSName(ns.Hdr.Name) == zone {
			info.Nameservers = append(info.Nameservers, utils.CanonicalDNSName(ns.Ns))
		}
	}
	if len(info.Nameservers) == 0 {
		return info, &domain.AuthorityError{Zone: zone, Server: server, Err: errors.New(errNoNS)}
	}
	slices.Sort(info.Nameservers)
	info.Nameservers = slices.Compact(info.Nameservers)

	soa, ok := retry.Probe(ctx, d.retry, func(ctx context.Context) ([]dns.RR, error) {
		return d.querier.Query(ctx, zone, domain.RRTypeSOA, server)
	}, func(err error) {
		d.logger.Warn(map[string]any{"zone": zone, "server": server, "error": err.Error()}, "SOA probe failed")
	})
	if ok {
		for _, rr := range soa {
			if v, isSOA := rr.(*dns.SOA); isSOA {
				info.Serial = v.Serial
				break
			}
		}
	}
	return info, nil
}

// targets follows the MX, SRV and CNAME records of seeds one level.
func (d *Discoverer) targets(ctx context.Context, zone string, seeds []string, server string) *domain.NameSet {
	set := domain.NewNameSet()
	for _, name := range seeds {
		for _, rrtype := range followTypes {
			answers, ok := retry.Probe(ctx, d.retry, func(ctx context.Context) ([]dns.RR, error) {
				return d.querier.Query(ctx, name, rrtype, server)
			}, func(err error) {
				if ctx.Err() == nil {
					d.logger.Warn(map[string]any{"name": name, "type": rrtype.String(), "server": server, "error": err.Error()}, "follow probe failed")
				}
			})
			if !ok {
				continue
			}
			for _, rr := range answers {
				target, ok := rrdata.Target(rr)
				if !ok {
					continue
				}
				if !utils.InZone(target, zone) {
					d.logger.Debug(map[string]any{"name": name, "target": target}, "ignoring out-of-zone target")
					continue
				}
				if set.Add(target) {
					d.logger.Debug(map[string]any{"name": name, "type": rrtype.String(), "target": target, "server": server}, "following target")
				}
			}
		}
	}
	return set
}
