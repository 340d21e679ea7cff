package netroute

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// MemoryManager is an in-memory RouteManager (useful for tests, check runs
// or embedding). Unlike a real table it accepts several records with the
// same identity through Seed, so ambiguous OS state can be modelled.
type MemoryManager struct {
	mu      sync.Mutex
	records map[uint64][]RouteRecord // identity hash -> records
	ops     []string
}

func NewMemoryManager(seed ...RouteRecord) *MemoryManager {
	m := &MemoryManager{}
	m.Seed(seed...)
	return m
}

// Seed inserts records without any identity check and without recording ops.
func (m *MemoryManager) Seed(records ...RouteRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	for _, r := range records {
		r = canonicalRecord(r)
		h := identityHash(r.Destination, r.Gateway)
		m.records[h] = append(m.records[h], r)
	}
}

// Routes returns every record, sorted by key.
func (m *MemoryManager) Routes() []RouteRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RouteRecord
	for _, rr := range m.records {
		out = append(out, rr...)
	}
	sortRecords(out)
	return out
}

// Ops returns the mutating operations performed so far, e.g.
// "add dst=10.0.0.0/24|gw=192.168.1.1".
func (m *MemoryManager) Ops() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ops...)
}

func (m *MemoryManager) List(ctx context.Context, dst netip.Prefix) ([]RouteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	dst = dst.Masked()
	var out []RouteRecord
	for _, rr := range m.records {
		for _, r := range rr {
			if r.Destination == dst {
				out = append(out, r)
			}
		}
	}
	sortRecords(out)
	return out, nil
}

// InterfaceForGateway picks the record with the longest prefix containing
// gw, then the lowest metric.
func (m *MemoryManager) InterfaceForGateway(ctx context.Context, gw netip.Addr) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	gw = gw.Unmap()
	var best *RouteRecord
	for _, rr := range m.records {
		for i := range rr {
			r := &rr[i]
			if r.InterfaceAlias == "" || !r.Destination.Contains(gw) {
				continue
			}
			if best == nil || betterRoute(r, best) {
				best = r
			}
		}
	}
	if best == nil {
		return "", fmt.Errorf("no route to %s", gw)
	}
	return best.InterfaceAlias, nil
}

// DefaultGateway returns the gateway of the lowest-metric default route on alias.
func (m *MemoryManager) DefaultGateway(ctx context.Context, alias string, ipv6 bool) (netip.Addr, bool, error) {
	if err := ctx.Err(); err != nil {
		return netip.Addr{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *RouteRecord
	for _, rr := range m.records {
		for i := range rr {
			r := &rr[i]
			if r.Destination.Bits() != 0 || r.Destination.Addr().Is6() != ipv6 || r.OnLink() {
				continue
			}
			if !strings.EqualFold(r.InterfaceAlias, alias) {
				continue
			}
			if best == nil || r.Metric < best.Metric {
				best = r
			}
		}
	}
	if best == nil {
		return netip.Addr{}, false, nil
	}
	return best.Gateway, true, nil
}

func (m *MemoryManager) Add(ctx context.Context, r RouteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	r = canonicalRecord(r)
	h := identityHash(r.Destination, r.Gateway)
	if len(m.records[h]) > 0 {
		return fmt.Errorf("route %s already exists", r.Key())
	}
	m.records[h] = []RouteRecord{r}
	m.ops = append(m.ops, "add "+r.Key())
	return nil
}

func (m *MemoryManager) Delete(ctx context.Context, dst netip.Prefix, gw netip.Addr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := RouteRecord{Destination: dst, Gateway: gw}
	h := identityHash(dst, gw)
	if len(m.records[h]) == 0 {
		return fmt.Errorf("route %s not found", key.Key())
	}
	delete(m.records, h)
	m.ops = append(m.ops, "del "+key.Key())
	return nil
}

func (m *MemoryManager) Modify(ctx context.Context, dst netip.Prefix, gw netip.Addr, attrs RouteAttrs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := RouteRecord{Destination: dst, Gateway: gw}
	h := identityHash(dst, gw)
	rr := m.records[h]
	switch len(rr) {
	case 0:
		return fmt.Errorf("route %s not found", key.Key())
	case 1:
	default:
		return fmt.Errorf("route %s is not unique", key.Key())
	}
	rr[0].InterfaceAlias = attrs.InterfaceAlias
	rr[0].Metric = attrs.Metric
	m.ops = append(m.ops, "modify "+key.Key())
	return nil
}

func (m *MemoryManager) init() {
	if m.records == nil {
		m.records = make(map[uint64][]RouteRecord)
	}
}

func canonicalRecord(r RouteRecord) RouteRecord {
	r.Destination = r.Destination.Masked()
	if !r.Gateway.IsValid() {
		r.Gateway = unspecifiedFor(r.Destination)
	}
	r.Gateway = r.Gateway.Unmap()
	return r
}

// identityHash hashes the (destination, gateway) identity of a route.
func identityHash(dst netip.Prefix, gw netip.Addr) uint64 {
	dst = dst.Masked()
	if !gw.IsValid() {
		gw = unspecifiedFor(dst)
	}
	h := xxhash.New()
	a := dst.Addr().As16()
	_, _ = h.Write(a[:])
	_, _ = h.Write([]byte{byte(dst.Bits())})
	g := gw.Unmap().As16()
	_, _ = h.Write(g[:])
	return h.Sum64()
}

// betterRoute orders candidates for a longest-prefix lookup.
func betterRoute(a, b *RouteRecord) bool {
	if a.Destination.Bits() != b.Destination.Bits() {
		return a.Destination.Bits() > b.Destination.Bits()
	}
	if a.Metric != b.Metric {
		return a.Metric < b.Metric
	}
	return a.Key() < b.Key()
}

func sortRecords(rr []RouteRecord) {
	sort.Slice(rr, func(i, j int) bool {
		ki, kj := rr[i].Key(), rr[j].Key()
		if ki != kj {
			return ki < kj
		}
		return rr[i].String() < rr[j].String()
	})
}
