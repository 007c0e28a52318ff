package hostcache

import (
	"net/netip"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/haukened/zonediff/internal/dns/common/clock"
	"github.com/haukened/zonediff/internal/dns/common/utils"
)

type entry struct {
	addrs     []netip.Addr
	expiresAt time.Time
}

// hostCache is an in-memory TTL-aware LRU of host name to addresses.
// The system resolver uses it so a nameserver host shared by the delegation
// and by both compared servers is looked up once per run.
type hostCache struct {
	lru   *lru.Cache[string, entry]
	clock clock.Clock
}

// New returns a new hostCache instance of the given size using an LRU backing store.
func New(size int, clk clock.Clock) (*hostCache, error) {
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &hostCache{lru: cache, clock: clk}, nil
}

// Set stores the addresses for host until ttl elapses. Empty address lists are not cached.
func (c *hostCache) Set(host string, addrs []netip.Addr, ttl time.Duration) {
	if len(addrs) == 0 || ttl <= 0 {
		return
	}
	c.lru.Add(utils.CanonicalDNSName(host), entry{
		addrs:     append([]netip.Addr(nil), addrs...),
		expiresAt: c.clock.Now().Add(ttl),
	})
}

// Get returns the addresses for host if present and not expired.
// Expired entries are removed.
func (c *hostCache) Get(host string) ([]netip.Addr, bool) {
	key := utils.CanonicalDNSName(host)
	e, found := c.lru.Get(key)
	if !found {
		return nil, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return append([]netip.Addr(nil), e.addrs...), true
}

// Len returns the number of hosts currently stored in the cache.
func (c *hostCache) Len() int {
	return c.lru.Len()
}
