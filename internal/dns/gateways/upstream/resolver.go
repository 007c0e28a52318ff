package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/miekg/dns"

	"github.com/haukened/zonediff/internal/dns/common/log"
	"github.com/haukened/zonediff/internal/dns/domain"
)

// Error message constants for consistent error handling
const (
	errNoDefaultServers = "no nameservers in %s"
	errReadResolvConf   = "read %s: %w"
	errRcode            = "server answered %s"
	errNilResponse      = "empty response"
)

const (
	// DefaultTimeout bounds one exchange when Options.Timeout is unset.
	DefaultTimeout = 5 * time.Second
	// DefaultUDPSize is the advertised EDNS0 buffer size.
	DefaultUDPSize = 4096
	// DefaultResolvConf is read to find the system default resolver.
	DefaultResolvConf = "/etc/resolv.conf"
)

// Exchanger sends one DNS message and waits for the reply.
// *dns.Client satisfies it.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

var _ Exchanger = (*dns.Client)(nil)

// Options configures a Resolver.
type Options struct {
	// Port is the port used for an explicitly named server. Defaults to 53.
	Port int
	// Timeout bounds a single exchange. Defaults to 5s.
	Timeout time.Duration
	// UDPSize is the EDNS0 buffer size. Defaults to 4096.
	UDPSize uint16
	// ResolvConf is read lazily for the default resolver when DefaultServers is empty.
	ResolvConf string
	// DefaultServers overrides the resolv.conf nameservers ("ip:port").
	DefaultServers []string

	// options to inject for testing purposes
	UDP Exchanger
	TCP Exchanger
}

// Resolver queries one nameserver at a time for a single name and type.
// It never caches.
type Resolver struct {
	port       int
	timeout    time.Duration
	udpSize    uint16
	resolvConf string
	udp        Exchanger
	tcp        Exchanger

	defaultsOnce sync.Once
	defaults     []string
	defaultsErr  error
}

// NewResolver creates a Resolver, filling unset options with their defaults.
func NewResolver(opts Options) *Resolver {
	if opts.Port <= 0 {
		opts.Port = 53
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UDPSize == 0 {
		opts.UDPSize = DefaultUDPSize
	}
	if opts.ResolvConf == "" {
		opts.ResolvConf = DefaultResolvConf
	}
	if opts.UDP == nil {
		opts.UDP = &dns.Client{Net: "udp", UDPSize: opts.UDPSize, Timeout: opts.Timeout}
	}
	if opts.TCP == nil {
		opts.TCP = &dns.Client{Net: "tcp", Timeout: opts.Timeout}
	}
	r := &Resolver{
		port:       opts.Port,
		timeout:    opts.Timeout,
		udpSize:    opts.UDPSize,
		resolvConf: opts.ResolvConf,
		udp:        opts.UDP,
		tcp:        opts.TCP,
	}
	if len(opts.DefaultServers) > 0 {
		r.defaults = opts.DefaultServers
		r.defaultsOnce.Do(func() {})
	}
	return r
}

// Query asks server for the records of the given name and type and returns the
// answer section. An empty server means the system default resolver.
//
// NOERROR and NXDOMAIN with no answers are a valid empty result. Every other
// failure is a *domain.QueryError, except cancellation of ctx itself, which is
// returned as ctx.Err().
func (r *Resolver) Query(ctx context.Context, name string, rrtype domain.RRType, server string) ([]dns.RR, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), uint16(rrtype))
	// authoritative data is wanted from a named server; the default resolver recurses
	m.RecursionDesired = server == ""
	m.SetEdns0(r.udpSize, false)

	if server != "" {
		return r.exchange(ctx, m, net.JoinHostPort(server, strconv.Itoa(r.port)), name, rrtype, server)
	}

	servers, err := r.defaultServers()
	if err != nil {
		return nil, &domain.QueryError{Kind: domain.QueryServerUnreachable, Name: name, Type: rrtype, Err: err}
	}
	var lastErr error
	for _, addr := range servers {
		answers, err := r.exchange(ctx, m.Copy(), addr, name, rrtype, "")
		if err == nil {
			return answers, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// exchange performs one query over UDP, repeating it over TCP when the answer is truncated.
func (r *Resolver) exchange(ctx context.Context, m *dns.Msg, addr, name string, rrtype domain.RRType, server string) ([]dns.RR, error) {
	resp, err := r.roundTrip(ctx, r.udp, m, addr)
	if err == nil && resp.Truncated {
		log.Debug(map[string]any{"name": name, "type": rrtype.String(), "server": addr}, "truncated answer, retrying over TCP")
		resp, err = r.roundTrip(ctx, r.tcp, m, addr)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.QueryError{Kind: classify(err), Name: name, Type: rrtype, Server: server, Err: err}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
		return resp.Answer, nil
	default:
		return nil, &domain.QueryError{
			Kind:   domain.QueryRefused,
			Name:   name,
			Type:   rrtype,
			Server: server,
			Err:    fmt.Errorf(errRcode, dns.RcodeToString[resp.Rcode]),
		}
	}
}

func (r *Resolver) roundTrip(ctx context.Context, ex Exchanger, m *dns.Msg, addr string) (*dns.Msg, error) {
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	resp, _, err := ex.ExchangeContext(qctx, m, addr)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errors.New(errNilResponse)
	}
	return resp, nil
}

// defaultServers reads resolv.conf once and returns its nameservers as "ip:port".
func (r *Resolver) defaultServers() ([]string, error) {
	r.defaultsOnce.Do(func() {
		cfg, err := dns.ClientConfigFromFile(r.resolvConf)
		if err != nil {
			r.defaultsErr = fmt.Errorf(errReadResolvConf, r.resolvConf, err)
			return
		}
		if len(cfg.Servers) == 0 {
			r.defaultsErr = fmt.Errorf(errNoDefaultServers, r.resolvConf)
			return
		}
		for _, s := range cfg.Servers {
			r.defaults = append(r.defaults, net.JoinHostPort(s, cfg.Port))
		}
	})
	return r.defaults, r.defaultsErr
}

// classify maps a transport error onto a QueryErrorKind.
func classify(err error) domain.QueryErrorKind {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.QueryTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.QueryServerUnreachable
	}
	return domain.QueryMalformed
}
