// Package compare runs one zone comparison: find the current nameserver,
// decide which names to probe, snapshot both servers and diff the snapshots.
package compare

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/haukened/zonediff/internal/dns/common/clock"
	"github.com/haukened/zonediff/internal/dns/common/log"
	"github.com/haukened/zonediff/internal/dns/common/utils"
	"github.com/haukened/zonediff/internal/dns/domain"
	"github.com/haukened/zonediff/internal/dns/services/diff"
	"github.com/haukened/zonediff/internal/dns/services/discovery"
)

const (
	errMissingDependency = "compare: %s is required"
	errNoAddress         = "no nameserver of %s has an address"
	errNotDomainName     = "not a valid domain name"
	errPublicSuffix      = "is a public suffix, not a zone you can migrate"
	errNotIP             = "not an IP address"
	errOutsideZone       = "outside zone %s"
)

// SystemResolver finds where a zone is served today.
type SystemResolver interface {
	Nameservers(ctx context.Context, zone string) ([]string, error)
	Addresses(ctx context.Context, host string) ([]netip.Addr, error)
}

// Discoverer decides which names are probed.
type Discoverer interface {
	Discover(ctx context.Context, zone string, names []string, servers ...string) (discovery.Result, error)
}

// Snapshotter builds one server's snapshot of the zone.
type Snapshotter interface {
	Build(ctx context.Context, zone string, names []string, server string) (*domain.Snapshot, error)
}

// NamesLoader reads caller names for zone from a file or directory.
type NamesLoader func(path, zone string) (*domain.NameSet, error)

// Request describes one comparison.
type Request struct {
	// Zone is the zone apex, Unicode or ASCII, with or without a trailing dot.
	Zone string
	// NewServer is the IP address of the candidate nameserver.
	NewServer string
	// CurrentServer skips system discovery of the current nameserver when set.
	CurrentServer string
	// Names are extra owner names relative to Zone ("@", "www", "mail.example.com.").
	Names []string
	// NamesFiles are loaded with the NamesLoader.
	NamesFiles []string
}

// Report is the outcome of a completed comparison.
type Report struct {
	RunID             string                 `json:"run_id" yaml:"run_id"`
	Zone              string                 `json:"zone" yaml:"zone"`
	CurrentServer     string                 `json:"current_server" yaml:"current_server"`
	CurrentNameserver string                 `json:"current_nameserver,omitempty" yaml:"current_nameserver,omitempty"`
	NewServer         string                 `json:"new_server" yaml:"new_server"`
	StartedAt         time.Time              `json:"started_at" yaml:"started_at"`
	FinishedAt        time.Time              `json:"finished_at" yaml:"finished_at"`
	Names             []string               `json:"names" yaml:"names"`
	Servers           []discovery.ServerInfo `json:"servers" yaml:"servers"`
	Diff              domain.DiffResult      `json:"diff" yaml:"diff"`
	Failures          []domain.ProbeFailure  `json:"probe_failures,omitempty" yaml:"probe_failures,omitempty"`
}

// Options wires a Comparer.
type Options struct {
	System      SystemResolver
	Discoverer  Discoverer
	Snapshotter Snapshotter
	LoadNames   NamesLoader
	Clock       clock.Clock
	Logger      log.Logger
	// NewID returns the run id; defaults to a random UUID.
	NewID func() string
}

// Comparer orchestrates comparisons.
type Comparer struct {
	system      SystemResolver
	discoverer  Discoverer
	snapshotter Snapshotter
	loadNames   NamesLoader
	clock       clock.Clock
	logger      log.Logger
	newID       func() string
	validate    *validator.Validate
}

// NewComparer creates a Comparer. System may be nil when every request names
// its current server.
func NewComparer(opts Options) (*Comparer, error) {
	if opts.Discoverer == nil {
		return nil, fmt.Errorf(errMissingDependency, "discoverer")
	}
	if opts.Snapshotter == nil {
		return nil, fmt.Errorf(errMissingDependency, "snapshotter")
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Comparer{
		system:      opts.System,
		discoverer:  opts.Discoverer,
		snapshotter: opts.Snapshotter,
		loadNames:   opts.LoadNames,
		clock:       opts.Clock,
		logger:      opts.Logger,
		newID:       opts.NewID,
		validate:    validator.New(),
	}, nil
}

// Compare runs one comparison.
//
// Invalid input yields *domain.ArgumentError before any query is sent. A
// current nameserver that cannot be found yields *domain.ResolutionError, and
// a server not answering NS for the zone yields *domain.AuthorityError.
// Differences between the servers are not errors.
func (c *Comparer) Compare(ctx context.Context, req Request) (*Report, error) {
	started := c.clock.Now()
	zone, names, err := c.normalize(req)
	if err != nil {
		return nil, err
	}

	runID := c.newID()
	logger := c.logger.With(map[string]any{"run_id": runID, "zone": zone})

	report := &Report{
		RunID:         runID,
		Zone:          zone,
		NewServer:     canonicalIP(req.NewServer),
		CurrentServer: canonicalIP(req.CurrentServer),
		StartedAt:     started,
	}

	if report.CurrentServer == "" {
		report.CurrentServer, report.CurrentNameserver, err = c.current(ctx, zone)
		if err != nil {
			return nil, err
		}
	}
	logger.Info(map[string]any{"current": report.CurrentServer, "ns": report.CurrentNameserver, "new": report.NewServer}, "comparing nameservers")

	found, err := c.discoverer.Discover(ctx, zone, names, report.CurrentServer, report.NewServer)
	if err != nil {
		return nil, err
	}
	report.Names = found.Names.Names()
	report.Servers = found.Servers
	if err := c.addresses(ctx, logger, report.Servers); err != nil {
		return nil, err
	}
	logger.Debug(map[string]any{"names": report.Names}, "probing names")

	var current, candidate *domain.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = c.snapshotter.Build(gctx, zone, report.Names, report.CurrentServer)
		return err
	})
	g.Go(func() error {
		var err error
		candidate, err = c.snapshotter.Build(gctx, zone, report.Names, report.NewServer)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	report.Diff = diff.Diff(current, candidate)
	report.Failures = append(current.Failures(), candidate.Failures()...)
	report.FinishedAt = c.clock.Now()
	logger.Info(map[string]any{
		"missing":  len(report.Diff.Missing),
		"extra":    len(report.Diff.Extra),
		"ttl":      len(report.Diff.TTLMismatches),
		"failures": len(report.Failures),
	}, "comparison complete")
	return report, nil
}

// normalize validates the request and returns the ASCII zone and the expanded caller names.
func (c *Comparer) normalize(req Request) (string, []string, error) {
	zone, err := utils.ASCIIDNSName(req.Zone)
	if err != nil || c.validate.Var(zone, "hostname_rfc1123,max=253") != nil {
		return "", nil, &domain.ArgumentError{Field: "zone", Value: req.Zone, Reason: errNotDomainName}
	}
	if utils.IsPublicSuffix(zone) {
		return "", nil, &domain.ArgumentError{Field: "zone", Value: req.Zone, Reason: errPublicSuffix}
	}
	if c.validate.Var(req.NewServer, "required,ip") != nil {
		return "", nil, &domain.ArgumentError{Field: "new nameserver", Value: req.NewServer, Reason: errNotIP}
	}
	if c.validate.Var(req.CurrentServer, "omitempty,ip") != nil {
		return "", nil, &domain.ArgumentError{Field: "current nameserver", Value: req.CurrentServer, Reason: errNotIP}
	}
	if req.CurrentServer == "" && c.system == nil {
		return "", nil, &domain.ArgumentError{Field: "current nameserver", Value: "", Reason: "required when system resolution is unavailable"}
	}

	set := domain.NewNameSet()
	for _, label := range req.Names {
		name := utils.ExpandName(label, zone)
		if !utils.InZone(name, zone) {
			return "", nil, &domain.ArgumentError{Field: "name", Value: label, Reason: fmt.Sprintf(errOutsideZone, zone)}
		}
		set.Add(name)
	}
	for _, path := range req.NamesFiles {
		if c.loadNames == nil {
			return "", nil, fmt.Errorf(errMissingDependency, "names loader")
		}
		loaded, err := c.loadNames(path, zone)
		if err != nil {
			return "", nil, &domain.ArgumentError{Field: "names file", Value: path, Reason: err.Error()}
		}
		set.Union(loaded)
	}
	return zone, set.Names(), nil
}

// current resolves the zone's NS hosts through the system resolver and
// returns the first address of the first host, in name order, that has one.
func (c *Comparer) current(ctx context.Context, zone string) (string, string, error) {
	hosts, err := c.system.Nameservers(ctx, zone)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", &domain.ResolutionError{Zone: zone, Err: err}
	}
	var errs []error
	for _, host := range hosts {
		addrs, err := c.system.Addresses(ctx, host)
		if err != nil {
			if ctx.Err() != nil {
				return "", "", ctx.Err()
			}
			c.logger.Warn(map[string]any{"zone": zone, "ns": host, "error": err.Error()}, "nameserver has no usable address")
			errs = append(errs, err)
			continue
		}
		if len(addrs) > 0 {
			return addrs[0].String(), host, nil
		}
	}
	errs = append(errs, fmt.Errorf(errNoAddress, zone))
	return "", "", &domain.ResolutionError{Zone: zone, Err: errors.Join(errs...)}
}

// addresses resolves the NS hosts each server announced. Hosts are usually
// shared between the servers and with the zone's delegation, so most lookups
// are answered by the system resolver's host cache. A host without an address
// is only logged; the only error returned is cancellation.
func (c *Comparer) addresses(ctx context.Context, logger log.Logger, servers []discovery.ServerInfo) error {
	if c.system == nil {
		return nil
	}
	for i := range servers {
		for _, host := range servers[i].Nameservers {
			addrs, err := c.system.Addresses(ctx, host)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Debug(map[string]any{"server": servers[i].Server, "ns": host, "error": err.Error()}, "cannot resolve announced nameserver")
				continue
			}
			if servers[i].Addresses == nil {
				servers[i].Addresses = make(map[string][]string, len(servers[i].Nameservers))
			}
			for _, addr := range addrs {
				servers[i].Addresses[host] = append(servers[i].Addresses[host], addr.String())
			}
		}
	}
	return nil
}

// canonicalIP renders an IP literal in its canonical form; anything else is returned unchanged.
func canonicalIP(s string) string {
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap().String()
	}
	return s
}
