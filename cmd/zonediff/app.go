package main

import (
	"fmt"

	"github.com/haukened/zonediff/internal/dns/common/clock"
	"github.com/haukened/zonediff/internal/dns/common/log"
	"github.com/haukened/zonediff/internal/dns/common/retry"
	"github.com/haukened/zonediff/internal/dns/config"
	"github.com/haukened/zonediff/internal/dns/gateways/system"
	"github.com/haukened/zonediff/internal/dns/gateways/upstream"
	"github.com/haukened/zonediff/internal/dns/repos/hostcache"
	"github.com/haukened/zonediff/internal/dns/repos/nameset"
	"github.com/haukened/zonediff/internal/dns/services/compare"
	"github.com/haukened/zonediff/internal/dns/services/discovery"
	"github.com/haukened/zonediff/internal/dns/services/snapshot"
)

// Application holds the wired components of one zonediff invocation.
type Application struct {
	config   *config.AppConfig
	comparer *compare.Comparer
}

// querier is what every service needs from the DNS client.
type querier interface {
	system.Querier
	discovery.Querier
	snapshot.Querier
}

// buildApplication constructs all components against the real network.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	q := upstream.NewResolver(upstream.Options{
		Port:       cfg.Port,
		Timeout:    cfg.Timeout,
		ResolvConf: cfg.ResolvConf,
	})
	return wireApplication(cfg, q, clock.RealClock{})
}

// wireApplication builds the service graph on top of a querier.
func wireApplication(cfg *config.AppConfig, q querier, clk clock.Clock) (*Application, error) {
	logger := log.GetLogger()
	policy := retry.Policy{Attempts: cfg.Attempts, Backoff: cfg.Backoff, Clock: clk}

	cache, err := hostcache.New(cfg.HostCacheSize, clk)
	if err != nil {
		return nil, fmt.Errorf("failed to create host cache: %w", err)
	}
	sys, err := system.NewResolver(system.Options{Querier: q, Cache: cache, Retry: policy})
	if err != nil {
		return nil, fmt.Errorf("failed to create system resolver: %w", err)
	}
	disc, err := discovery.NewDiscoverer(discovery.Options{Querier: q, Retry: policy, Follow: cfg.Follow, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("failed to create discoverer: %w", err)
	}
	snap, err := snapshot.NewSnapshotter(snapshot.Options{
		Querier:     q,
		Retry:       policy,
		Concurrency: cfg.Concurrency,
		Clock:       clk,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshotter: %w", err)
	}
	comparer, err := compare.NewComparer(compare.Options{
		System:      sys,
		Discoverer:  disc,
		Snapshotter: snap,
		LoadNames:   nameset.Load,
		Clock:       clk,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create comparer: %w", err)
	}

	return &Application{config: cfg, comparer: comparer}, nil
}
