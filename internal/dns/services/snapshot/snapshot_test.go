package snapshot

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/zonediff/internal/dns/common/clock"
	"github.com/haukened/zonediff/internal/dns/common/log"
	"github.com/haukened/zonediff/internal/dns/common/retry"
	"github.com/haukened/zonediff/internal/dns/domain"
	"github.com/haukened/zonediff/internal/dns/services/diff"
)

// fakeQuerier answers from a table keyed by "name TYPE".
type fakeQuerier struct {
	mu      sync.Mutex
	answers map[string][]dns.RR
	errs    map[string]error
	calls   map[string]int

	delay       time.Duration
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{answers: map[string][]dns.RR{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeQuerier) answer(t *testing.T, name string, rrtype domain.RRType, lines ...string) {
	t.Helper()
	for _, l := range lines {
		rr, err := dns.NewRR(l)
		require.NoError(t, err)
		f.answers[name+" "+rrtype.String()] = append(f.answers[name+" "+rrtype.String()], rr)
	}
}

func (f *fakeQuerier) Query(ctx context.Context, name string, rrtype domain.RRType, server string) ([]dns.RR, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := name + " " + rrtype.String()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.answers[key], nil
}

func (f *fakeQuerier) callCount(name string, rrtype domain.RRType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name+" "+rrtype.String()]
}

func newTestSnapshotter(t *testing.T, q Querier, concurrency int) (*Snapshotter, *clock.MockClock) {
	t.Helper()
	clk := &clock.MockClock{CurrentTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	s, err := NewSnapshotter(Options{
		Querier:     q,
		Retry:       retry.Policy{Attempts: 3, Backoff: 200 * time.Millisecond, Clock: clk},
		Concurrency: concurrency,
		Clock:       clk,
		Logger:      log.NewNoopLogger(),
	})
	require.NoError(t, err)
	return s, clk
}

func TestNewSnapshotter_RequiresQuerier(t *testing.T) {
	_, err := NewSnapshotter(Options{})
	assert.EqualError(t, err, errQuerierRequired)
}

func TestBuild_CollectsNormalizedRecords(t *testing.T) {
	q := newFakeQuerier()
	q.answer(t, "example.com", domain.RRTypeA, "EXAMPLE.com. 300 IN A 192.0.2.1")
	q.answer(t, "example.com", domain.RRTypeMX, "example.com. 3600 IN MX 10 Mail.Example.com.")
	q.answer(t, "example.com", domain.RRTypeTXT,
		`example.com. 300 IN TXT "v=spf1 " "-all"`,
		"example.com. 86400 IN NS ns1.example.com.",
		"example.com. 86400 IN SOA ns1.example.com. hostmaster.example.com. 1 7200 3600 1209600 300",
	)
	q.answer(t, "www.example.com", domain.RRTypeA,
		"www.example.com. 300 IN CNAME web.example.com.",
		"web.example.com. 60 IN A 192.0.2.10",
	)

	s, _ := newTestSnapshotter(t, q, 4)
	snap, err := s.Build(context.Background(), "Example.com.", []string{"example.com", "www.example.com"}, "192.0.2.53")
	require.NoError(t, err)

	want := []string{
		"example.com A 300 192.0.2.1",
		"example.com MX 3600 10 mail.example.com",
		`example.com TXT 300 "v=spf1 -all"`,
		"web.example.com A 60 192.0.2.10",
		"www.example.com CNAME 300 web.example.com",
	}
	var got []string
	for _, r := range snap.Records() {
		got = append(got, r.String())
	}
	assert.Equal(t, want, got)
	assert.Equal(t, "example.com", snap.Zone())
	assert.Equal(t, "192.0.2.53", snap.Server())
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), snap.TakenAt())
	assert.Empty(t, snap.Failures())

	// every compared type is probed once for every name
	for _, name := range []string{"example.com", "www.example.com"} {
		for _, rrtype := range domain.ComparedTypes {
			assert.Equal(t, 1, q.callCount(name, rrtype), "%s %s", name, rrtype)
		}
	}
}

func TestBuild_DropsOutOfZoneOwners(t *testing.T) {
	// the current server is also authoritative for example.net and adds its A record
	current := newFakeQuerier()
	current.answer(t, "www.example.com", domain.RRTypeA,
		"www.example.com. 300 IN CNAME www.example.net.",
		"www.example.net. 60 IN A 203.0.113.9",
	)
	current.answer(t, "www.example.com", domain.RRTypeCNAME, "www.example.com. 300 IN CNAME www.example.net.")
	candidate := newFakeQuerier()
	candidate.answer(t, "www.example.com", domain.RRTypeA, "www.example.com. 300 IN CNAME www.example.net.")
	candidate.answer(t, "www.example.com", domain.RRTypeCNAME, "www.example.com. 300 IN CNAME www.example.net.")

	names := []string{"www.example.com"}
	s, _ := newTestSnapshotter(t, current, 2)
	currentSnap, err := s.Build(context.Background(), "example.com", names, "192.0.2.1")
	require.NoError(t, err)
	s, _ = newTestSnapshotter(t, candidate, 2)
	candidateSnap, err := s.Build(context.Background(), "example.com", names, "198.51.100.7")
	require.NoError(t, err)

	require.Equal(t, 1, currentSnap.Len())
	assert.Equal(t, "www.example.com CNAME 300 www.example.net", currentSnap.Records()[0].String())

	result := diff.Diff(currentSnap, candidateSnap)
	assert.True(t, result.Identical(), "unexpected differences: %+v", result)
}

func TestBuild_NeverContainsNS(t *testing.T) {
	q := newFakeQuerier()
	for _, rrtype := range domain.ComparedTypes {
		q.answer(t, "example.com", rrtype, "example.com. 86400 IN NS ns1.example.com.")
	}
	s, _ := newTestSnapshotter(t, q, 2)
	snap, err := s.Build(context.Background(), "example.com", []string{"example.com"}, "192.0.2.53")
	require.NoError(t, err)
	for _, k := range snap.Keys() {
		assert.NotEqual(t, domain.RRTypeNS, k.Type)
	}
	assert.Zero(t, snap.Len())
}

func TestBuild_TimeoutsDegradeToAbsent(t *testing.T) {
	q := newFakeQuerier()
	q.answer(t, "example.com", domain.RRTypeA, "example.com. 300 IN A 192.0.2.1")
	q.errs["example.com TXT"] = &domain.QueryError{Kind: domain.QueryTimeout, Name: "example.com", Type: domain.RRTypeTXT, Server: "198.51.100.7"}

	s, clk := newTestSnapshotter(t, q, 1)
	snap, err := s.Build(context.Background(), "example.com", []string{"example.com"}, "198.51.100.7")
	require.NoError(t, err)

	assert.Equal(t, 3, q.callCount("example.com", domain.RRTypeTXT))
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, clk.Waits())
	assert.Equal(t, 1, snap.Len())

	failures := snap.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "example.com", failures[0].Name)
	assert.Equal(t, domain.RRTypeTXT, failures[0].Type)
	assert.Equal(t, "198.51.100.7", failures[0].Server)
	assert.Contains(t, failures[0].Reason, "timeout")
}

func TestBuild_PermanentErrorsAreNotRetried(t *testing.T) {
	q := newFakeQuerier()
	q.errs["example.com SRV"] = &domain.QueryError{Kind: domain.QueryRefused, Name: "example.com", Type: domain.RRTypeSRV}

	s, clk := newTestSnapshotter(t, q, 1)
	snap, err := s.Build(context.Background(), "example.com", []string{"example.com"}, "192.0.2.53")
	require.NoError(t, err)
	assert.Equal(t, 1, q.callCount("example.com", domain.RRTypeSRV))
	assert.Empty(t, clk.Waits())
	assert.Len(t, snap.Failures(), 1)
}

func TestBuild_LaterProbeWinsDeterministically(t *testing.T) {
	q := newFakeQuerier()
	// the A probe sees the CNAME with one TTL, the later CNAME probe with another
	q.answer(t, "www.example.com", domain.RRTypeA, "www.example.com. 300 IN CNAME web.example.com.")
	q.answer(t, "www.example.com", domain.RRTypeCNAME, "www.example.com. 600 IN CNAME web.example.com.")

	for i := 0; i < 20; i++ {
		s, _ := newTestSnapshotter(t, q, 8)
		snap, err := s.Build(context.Background(), "example.com", []string{"www.example.com"}, "192.0.2.53")
		require.NoError(t, err)
		key, err := domain.NewRecordKey("www.example.com", domain.RRTypeCNAME, "web.example.com")
		require.NoError(t, err)
		ttl, ok := snap.TTL(key)
		require.True(t, ok)
		assert.Equal(t, uint32(600), ttl)
	}
}

func TestBuild_RespectsConcurrencyLimit(t *testing.T) {
	q := newFakeQuerier()
	q.delay = 2 * time.Millisecond
	names := []string{"a.example.com", "b.example.com", "c.example.com", "d.example.com"}

	s, _ := newTestSnapshotter(t, q, 3)
	_, err := s.Build(context.Background(), "example.com", names, "192.0.2.53")
	require.NoError(t, err)
	assert.LessOrEqual(t, q.maxInFlight.Load(), int32(3))
	assert.Positive(t, q.maxInFlight.Load())
}

func TestBuild_CancelledContextDiscardsSnapshot(t *testing.T) {
	q := newFakeQuerier()
	q.delay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	s, _ := newTestSnapshotter(t, q, 2)
	snap, err := s.Build(ctx, "example.com", []string{"example.com", "www.example.com"}, "192.0.2.53")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, snap)
}

func TestBuild_NoNames(t *testing.T) {
	s, _ := newTestSnapshotter(t, newFakeQuerier(), 2)
	snap, err := s.Build(context.Background(), "example.com", nil, "192.0.2.53")
	require.NoError(t, err)
	assert.Zero(t, snap.Len())
}
