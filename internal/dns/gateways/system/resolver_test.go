package system

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/zonediff/internal/dns/common/clock"
	"github.com/haukened/zonediff/internal/dns/common/retry"
	"github.com/haukened/zonediff/internal/dns/domain"
	"github.com/haukened/zonediff/internal/dns/repos/hostcache"
)

type MockQuerier struct {
	mock.Mock
}

func (m *MockQuerier) Query(ctx context.Context, name string, rrtype domain.RRType, server string) ([]dns.RR, error) {
	args := m.Called(name, rrtype, server)
	rrs, _ := args.Get(0).([]dns.RR)
	return rrs, args.Error(1)
}

func rrs(t *testing.T, lines ...string) []dns.RR {
	t.Helper()
	out := make([]dns.RR, 0, len(lines))
	for _, l := range lines {
		rr, err := dns.NewRR(l)
		require.NoError(t, err)
		out = append(out, rr)
	}
	return out
}

func testPolicy() retry.Policy {
	return retry.Policy{Attempts: 3, Backoff: time.Millisecond, Clock: &clock.MockClock{}}
}

func TestNewResolver_RequiresQuerier(t *testing.T) {
	_, err := NewResolver(Options{})
	assert.EqualError(t, err, errQuerierRequired)
}

func TestNameservers_SortedUniqueCanonical(t *testing.T) {
	q := new(MockQuerier)
	q.On("Query", "example.com", domain.RRTypeNS, "").Return(rrs(t,
		"example.com. 3600 IN NS NS2.Example.NET.",
		"example.com. 3600 IN NS ns1.example.net.",
		"example.com. 3600 IN NS ns1.example.net.",
		"other.example. 3600 IN NS ns9.example.net.",
		"example.com. 3600 IN A 192.0.2.1",
	), nil)

	r, err := NewResolver(Options{Querier: q, Retry: testPolicy()})
	require.NoError(t, err)

	hosts, err := r.Nameservers(context.Background(), "Example.COM.")
	require.NoError(t, err)
	assert.Equal(t, []string{"ns1.example.net", "ns2.example.net"}, hosts)
}

func TestNameservers_EmptyAnswer(t *testing.T) {
	q := new(MockQuerier)
	q.On("Query", "example.com", domain.RRTypeNS, "").Return(nil, nil)

	r, _ := NewResolver(Options{Querier: q, Retry: testPolicy()})
	_, err := r.Nameservers(context.Background(), "example.com")
	assert.ErrorContains(t, err, "no NS records for example.com")
}

func TestNameservers_RetriesTemporaryErrors(t *testing.T) {
	q := new(MockQuerier)
	timeout := &domain.QueryError{Kind: domain.QueryTimeout, Name: "example.com", Type: domain.RRTypeNS}
	q.On("Query", "example.com", domain.RRTypeNS, "").Return(nil, timeout).Twice()
	q.On("Query", "example.com", domain.RRTypeNS, "").Return(rrs(t, "example.com. 60 IN NS ns1.example.com."), nil).Once()

	r, _ := NewResolver(Options{Querier: q, Retry: testPolicy()})
	hosts, err := r.Nameservers(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"ns1.example.com"}, hosts)
	q.AssertNumberOfCalls(t, "Query", 3)
}

func TestNameservers_GivesUp(t *testing.T) {
	q := new(MockQuerier)
	timeout := &domain.QueryError{Kind: domain.QueryTimeout, Name: "example.com", Type: domain.RRTypeNS}
	q.On("Query", "example.com", domain.RRTypeNS, "").Return(nil, timeout)

	r, _ := NewResolver(Options{Querier: q, Retry: testPolicy()})
	_, err := r.Nameservers(context.Background(), "example.com")

	var qerr *domain.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, domain.QueryTimeout, qerr.Kind)
	q.AssertNumberOfCalls(t, "Query", 3)
}

func TestAddresses_IPLiteral(t *testing.T) {
	q := new(MockQuerier)
	r, _ := NewResolver(Options{Querier: q})

	addrs, err := r.Addresses(context.Background(), "2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("2001:db8::1")}, addrs)
	q.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddresses_IPv4ThenIPv6AndCached(t *testing.T) {
	q := new(MockQuerier)
	q.On("Query", "ns1.example.com", domain.RRTypeA, "").Return(rrs(t, "ns1.example.com. 300 IN A 192.0.2.53"), nil).Once()
	q.On("Query", "ns1.example.com", domain.RRTypeAAAA, "").Return(rrs(t, "ns1.example.com. 60 IN AAAA 2001:db8::53"), nil).Once()

	clk := &clock.MockClock{CurrentTime: time.Unix(0, 0)}
	cache, err := hostcache.New(4, clk)
	require.NoError(t, err)
	r, _ := NewResolver(Options{Querier: q, Cache: cache, Retry: testPolicy()})

	want := []netip.Addr{netip.MustParseAddr("192.0.2.53"), netip.MustParseAddr("2001:db8::53")}
	addrs, err := r.Addresses(context.Background(), "NS1.example.com.")
	require.NoError(t, err)
	assert.Equal(t, want, addrs)

	addrs, err = r.Addresses(context.Background(), "ns1.example.com")
	require.NoError(t, err)
	assert.Equal(t, want, addrs)
	q.AssertExpectations(t)

	// the shortest TTL bounds the cache entry
	clk.Advance(61 * time.Second)
	_, ok := cache.Get("ns1.example.com")
	assert.False(t, ok)
}

func TestAddresses_OneFamilyFailing(t *testing.T) {
	q := new(MockQuerier)
	q.On("Query", "ns1.example.com", domain.RRTypeA, "").Return(rrs(t, "ns1.example.com. 300 IN A 192.0.2.53"), nil)
	q.On("Query", "ns1.example.com", domain.RRTypeAAAA, "").Return(nil, &domain.QueryError{Kind: domain.QueryRefused})

	r, _ := NewResolver(Options{Querier: q, Retry: testPolicy()})
	addrs, err := r.Addresses(context.Background(), "ns1.example.com")
	require.NoError(t, err)
	assert.Equal(t, []netip.Addr{netip.MustParseAddr("192.0.2.53")}, addrs)
}

func TestAddresses_NoneFound(t *testing.T) {
	q := new(MockQuerier)
	q.On("Query", "ns1.example.com", mock.Anything, "").Return(nil, nil)

	r, _ := NewResolver(Options{Querier: q, Retry: testPolicy()})
	_, err := r.Addresses(context.Background(), "ns1.example.com")
	assert.ErrorContains(t, err, "no addresses for ns1.example.com")
}

func TestAddresses_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := new(MockQuerier)
	q.On("Query", "ns1.example.com", domain.RRTypeA, "").Return(nil, context.Canceled)

	r, _ := NewResolver(Options{Querier: q, Retry: testPolicy()})
	_, err := r.Addresses(ctx, "ns1.example.com")
	assert.ErrorIs(t, err, context.Canceled)
	q.AssertNumberOfCalls(t, "Query", 1)
}
