// Package snapshot queries every (name, type) pair of a zone against one
// nameserver and assembles the normalized answers into a domain.Snapshot.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/haukened/zonediff/internal/dns/common/clock"
	"github.com/haukened/zonediff/internal/dns/common/log"
	"github.com/haukened/zonediff/internal/dns/common/retry"
	"github.com/haukened/zonediff/internal/dns/common/rrdata"
	"github.com/haukened/zonediff/internal/dns/common/utils"
	"github.com/haukened/zonediff/internal/dns/domain"
)

const (
	errQuerierRequired = "querier is required"
	errBuild           = "snapshot of %s on %s: %w"
)

// DefaultConcurrency is the number of in-flight probes per snapshot.
const DefaultConcurrency = 8

// Querier sends one query to a nameserver.
type Querier interface {
	Query(ctx context.Context, name string, rrtype domain.RRType, server string) ([]dns.RR, error)
}

// Options configures a Snapshotter.
type Options struct {
	Querier     Querier
	Retry       retry.Policy
	Concurrency int
	Clock       clock.Clock
	Logger      log.Logger
}

// Snapshotter builds zone snapshots.
type Snapshotter struct {
	querier     Querier
	retry       retry.Policy
	concurrency int
	clock       clock.Clock
	logger      log.Logger
}

// NewSnapshotter creates a Snapshotter. A Querier is required.
func NewSnapshotter(opts Options) (*Snapshotter, error) {
	if opts.Querier == nil {
		return nil, errors.New(errQuerierRequired)
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = retry.DefaultPolicy()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLogger()
	}
	return &Snapshotter{
		querier:     opts.Querier,
		retry:       opts.Retry,
		concurrency: opts.Concurrency,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}, nil
}

type probe struct {
	name   string
	rrtype domain.RRType
}

type outcome struct {
	records []domain.Record
	failure *domain.ProbeFailure
}

// Build probes every name for every compared type on server.
//
// A probe that exhausts its retries is logged and treated as no data. Answers
// of types that are not compared (NS, SOA, RRSIG...) are dropped, as are
// answers owned by names outside zone. In-zone answers for an owner other
// than the probed name are kept under their own owner name.
// Cancelling ctx aborts the build and returns ctx.Err(); nothing partial is
// returned.
func (s *Snapshotter) Build(ctx context.Context, zone string, names []string, server string) (*domain.Snapshot, error) {
	zone = utils.CanonicalDNSName(zone)
	logger := s.logger.With(map[string]any{"zone": zone, "server": server})

	probes := make([]probe, 0, len(names)*len(domain.ComparedTypes))
	for _, name := range names {
		for _, rrtype := range domain.ComparedTypes {
			probes = append(probes, probe{name: utils.CanonicalDNSName(name), rrtype: rrtype})
		}
	}

	outcomes := make([]outcome, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, p := range probes {
		g.Go(func() error {
			out, err := s.probe(gctx, logger, zone, p, server)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf(errBuild, zone, server, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// merge in probe order so a later observation of the same key wins deterministically
	b := domain.NewSnapshotBuilder(zone, server)
	for _, out := range outcomes {
		for _, r := range out.records {
			b.Add(r)
		}
		if out.failure != nil {
			b.AddFailure(*out.failure)
		}
	}
	snap := b.Build(s.clock.Now())
	logger.Debug(map[string]any{"probes": len(probes), "records": snap.Len(), "failures": len(snap.Failures())}, "snapshot complete")
	return snap, nil
}

// probe runs one (name, type) query under the retry policy and normalizes the answers.
// The only error it returns is cancellation.
func (s *Snapshotter) probe(ctx context.Context, logger log.Logger, zone string, p probe, server string) (outcome, error) {
	var reason error
	answers, ok := retry.Probe(ctx, s.retry, func(ctx context.Context) ([]dns.RR, error) {
		return s.querier.Query(ctx, p.name, p.rrtype, server)
	}, func(err error) { reason = err })
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	if !ok {
		logger.Warn(map[string]any{"name": p.name, "type": p.rrtype.String(), "error": reason.Error()}, "probe failed, treating as no data")
		return outcome{failure: &domain.ProbeFailure{
			Name:   p.name,
			Type:   p.rrtype,
			Server: server,
			Reason: reason.Error(),
		}}, nil
	}

	var out outcome
	for _, rr := range answers {
		rec, err := rrdata.FromRR(rr)
		if err != nil {
			if !errors.Is(err, rrdata.ErrUnsupportedType) {
				logger.Warn(map[string]any{"name": p.name, "type": p.rrtype.String(), "rr": rr.String(), "error": err.Error()}, "dropping unparseable answer")
			}
			continue
		}
		if !utils.InZone(rec.Name, zone) {
			logger.Debug(map[string]any{"name": p.name, "type": p.rrtype.String(), "owner": rec.Name}, "dropping out-of-zone answer")
			continue
		}
		out.records = append(out.records, rec)
	}
	return out, nil
}
