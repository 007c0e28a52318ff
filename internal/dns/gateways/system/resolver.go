// Package system discovers a zone's current nameserver through the host's
// default resolver.
package system

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"slices"
	"time"

	"github.com/miekg/dns"

	"github.com/haukened/zonediff/internal/dns/common/retry"
	"github.com/haukened/zonediff/internal/dns/common/utils"
	"github.com/haukened/zonediff/internal/dns/domain"
)

const (
	errQuerierRequired = "querier is required"
	errNoNameservers   = "no NS records for %s"
	errNoAddresses     = "no addresses for %s"
	errLookup          = "lookup %s %s: %w"
)

// Querier sends one query; an empty server means the default resolver.
type Querier interface {
	Query(ctx context.Context, name string, rrtype domain.RRType, server string) ([]dns.RR, error)
}

// HostCache remembers host addresses for the lifetime of their TTL.
type HostCache interface {
	Get(host string) ([]netip.Addr, bool)
	Set(host string, addrs []netip.Addr, ttl time.Duration)
}

// Options configures a Resolver.
type Options struct {
	Querier Querier
	// Cache is optional; without it every Addresses call hits the network.
	Cache HostCache
	Retry retry.Policy
}

// Resolver answers the two questions needed to find a zone's current
// nameserver: which hosts serve the zone, and where those hosts are.
type Resolver struct {
	querier Querier
	cache   HostCache
	retry   retry.Policy
}

// NewResolver creates a Resolver. A Querier is required.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.Querier == nil {
		return nil, errors.New(errQuerierRequired)
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	return &Resolver{querier: opts.Querier, cache: opts.Cache, retry: opts.Retry}, nil
}

// Nameservers returns the NS host names of zone, canonical, sorted and unique.
func (r *Resolver) Nameservers(ctx context.Context, zone string) ([]string, error) {
	zone = utils.CanonicalDNSName(zone)
	answers, err := r.query(ctx, zone, domain.RRTypeNS)
	if err != nil {
		return nil, err
	}
	var hosts []string
	for _, rr := range answers {
		ns, ok := rr.(*dns.NS)
		if !ok || utils.CanonicalDNSName(ns.Hdr.Name) != zone {
			continue
		}
		if host := utils.CanonicalDNSName(ns.Ns); host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		return nil, fmt.Errorf(errNoNameservers, zone)
	}
	slices.Sort(hosts)
	return slices.Compact(hosts), nil
}

// Addresses returns the IPv4 then IPv6 addresses of host. An IP literal is
// returned as is.
func (r *Resolver) Addresses(ctx context.Context, host string) ([]netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{addr}, nil
	}
	host = utils.CanonicalDNSName(host)
	if r.cache != nil {
		if addrs, ok := r.cache.Get(host); ok {
			return addrs, nil
		}
	}

	var (
		addrs  []netip.Addr
		minTTL uint32
		errs   []error
	)
	for _, rrtype := range []domain.RRType{domain.RRTypeA, domain.RRTypeAAAA} {
		answers, err := r.query(ctx, host, rrtype)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		for _, rr := range answers {
			var ip []byte
			switch v := rr.(type) {
			case *dns.A:
				ip = v.A
			case *dns.AAAA:
				ip = v.AAAA
			default:
				continue
			}
			addr, ok := netip.AddrFromSlice(ip)
			if !ok {
				continue
			}
			addrs = append(addrs, addr.Unmap())
			if ttl := rr.Header().Ttl; minTTL == 0 || ttl < minTTL {
				minTTL = ttl
			}
		}
	}
	if len(addrs) == 0 {
		errs = append(errs, fmt.Errorf(errNoAddresses, host))
		return nil, errors.Join(errs...)
	}
	if r.cache != nil {
		r.cache.Set(host, addrs, time.Duration(minTTL)*time.Second)
	}
	return addrs, nil
}

func (r *Resolver) query(ctx context.Context, name string, rrtype domain.RRType) ([]dns.RR, error) {
	answers, err := retry.Do(ctx, r.retry, func(ctx context.Context) ([]dns.RR, error) {
		return r.querier.Query(ctx, name, rrtype, "")
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf(errLookup, name, rrtype, err)
	}
	return answers, nil
}
