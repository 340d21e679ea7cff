//go:build linux

package netroute

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

// IPRouteManager implements RouteManager on top of netlink
// (github.com/vishvananda/netlink), optionally inside a named network namespace.
type IPRouteManager struct {
	opts  SystemOptions
	links *linkCache[int]
}

func NewIPRouteManager(opts SystemOptions) (*IPRouteManager, error) {
	if opts.Table < 0 {
		return nil, fmt.Errorf("table must be >= 0")
	}
	m := &IPRouteManager{opts: opts}
	m.links = newLinkCache(opts.LinkCacheTTL, m.loadLinkIndex)
	return m, nil
}

func (m *IPRouteManager) List(ctx context.Context, dst netip.Prefix) ([]RouteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, done, err := m.handle()
	if err != nil {
		return nil, err
	}
	defer done()

	nlRoutes, err := m.listDst(h, dst)
	if err != nil {
		return nil, err
	}
	var out []RouteRecord
	for _, nr := range nlRoutes {
		out = append(out, m.fromNetlinkRoute(h, dst, nr)...)
	}
	sortRecords(out)
	return out, nil
}

func (m *IPRouteManager) InterfaceForGateway(ctx context.Context, gw netip.Addr) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fd, closeNS, err := m.namespaceFD()
	if err != nil {
		return "", err
	}
	defer closeNS()

	idx, err := lookupOutIface(fd, gw)
	if err != nil {
		return "", err
	}

	h, done, err := m.handle()
	if err != nil {
		return "", err
	}
	defer done()
	link, err := h.LinkByIndex(idx)
	if err != nil {
		return "", fmt.Errorf("link #%d: %w", idx, err)
	}
	return link.Attrs().Name, nil
}

func (m *IPRouteManager) DefaultGateway(ctx context.Context, alias string, ipv6 bool) (netip.Addr, bool, error) {
	if err := ctx.Err(); err != nil {
		return netip.Addr{}, false, err
	}
	idx, err := m.links.Get(alias)
	if err != nil {
		return netip.Addr{}, false, err
	}
	h, done, err := m.handle()
	if err != nil {
		return netip.Addr{}, false, err
	}
	defer done()

	family := netlink.FAMILY_V4
	if ipv6 {
		family = netlink.FAMILY_V6
	}
	routes, err := h.RouteListFiltered(family,
		&netlink.Route{LinkIndex: idx, Table: m.table()},
		netlink.RT_FILTER_OIF|netlink.RT_FILTER_TABLE)
	if err != nil {
		m.links.Forget(alias)
		return netip.Addr{}, false, err
	}

	var (
		best  netip.Addr
		prio  int
		found bool
	)
	for _, nr := range routes {
		if nr.Dst != nil {
			if ones, _ := nr.Dst.Mask.Size(); ones != 0 {
				continue
			}
		}
		gw, ok := netip.AddrFromSlice(nr.Gw)
		if !ok || gw.Unmap().IsUnspecified() {
			continue
		}
		if !found || nr.Priority < prio {
			best, prio, found = gw.Unmap(), nr.Priority, true
		}
	}
	return best, found, nil
}

func (m *IPRouteManager) Add(ctx context.Context, r RouteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, done, err := m.handle()
	if err != nil {
		return err
	}
	defer done()

	nlr, err := m.toNetlinkRoute(r)
	if err != nil {
		return err
	}
	if err := h.RouteAdd(&nlr); err != nil {
		m.links.Forget(r.InterfaceAlias)
		return err
	}
	return nil
}

func (m *IPRouteManager) Delete(ctx context.Context, dst netip.Prefix, gw netip.Addr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, done, err := m.handle()
	if err != nil {
		return err
	}
	defer done()

	cur, err := m.findExact(h, dst, gw)
	if err != nil {
		return err
	}
	if err := h.RouteDel(&cur); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return fmt.Errorf("route %s via %s vanished: %w", dst, gw, err)
		}
		return err
	}
	return nil
}

// Modify changes link and priority of an existing route. The kernel keys
// routes by priority, so a metric change adds the new route before deleting
// the old one; a link change at the same priority deletes first. A failed
// second step is rolled back.
func (m *IPRouteManager) Modify(ctx context.Context, dst netip.Prefix, gw netip.Addr, attrs RouteAttrs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h, done, err := m.handle()
	if err != nil {
		return err
	}
	defer done()

	cur, err := m.findExact(h, dst, gw)
	if err != nil {
		return err
	}
	next, err := m.toNetlinkRoute(RouteRecord{
		Destination:    dst,
		Gateway:        gw,
		InterfaceAlias: attrs.InterfaceAlias,
		Metric:         attrs.Metric,
	})
	if err != nil {
		return err
	}
	if next.LinkIndex == cur.LinkIndex && next.Priority == cur.Priority {
		return nil
	}
	if next.Priority == cur.Priority {
		// Other gateways may share the (dst, tos, priority) key, so cur is
		// removed by its exact attributes and next appended beside them.
		return replaceSteps(
			func() error { return h.RouteDel(&cur) },
			func() error { return h.RouteAppend(&next) },
			func() error { return h.RouteAppend(&cur) })
	}
	return replaceSteps(
		func() error { return h.RouteAdd(&next) },
		func() error { return h.RouteDel(&cur) },
		func() error { return h.RouteDel(&next) })
}

func (m *IPRouteManager) handle() (*netlink.Handle, func(), error) {
	if m.opts.Namespace == "" {
		h, err := netlink.NewHandle()
		if err != nil {
			return nil, nil, err
		}
		return h, h.Delete, nil
	}
	ns, err := netns.GetFromName(m.opts.Namespace)
	if err != nil {
		return nil, nil, fmt.Errorf("netns %q: %w", m.opts.Namespace, err)
	}
	h, err := netlink.NewHandleAt(ns)
	if err != nil {
		ns.Close()
		return nil, nil, fmt.Errorf("netlink handle in netns %q: %w", m.opts.Namespace, err)
	}
	return h, func() {
		h.Delete()
		ns.Close()
	}, nil
}

// namespaceFD returns the netns file descriptor for rtnetlink (0 = current).
func (m *IPRouteManager) namespaceFD() (int, func(), error) {
	if m.opts.Namespace == "" {
		return 0, func() {}, nil
	}
	ns, err := netns.GetFromName(m.opts.Namespace)
	if err != nil {
		return 0, nil, fmt.Errorf("netns %q: %w", m.opts.Namespace, err)
	}
	return int(ns), func() { ns.Close() }, nil
}

func (m *IPRouteManager) loadLinkIndex(alias string) (int, error) {
	h, done, err := m.handle()
	if err != nil {
		return 0, err
	}
	defer done()
	link, err := h.LinkByName(alias)
	if err != nil {
		return 0, fmt.Errorf("link %q: %w", alias, err)
	}
	return link.Attrs().Index, nil
}

func (m *IPRouteManager) table() int {
	if m.opts.Table == 0 {
		return unix.RT_TABLE_MAIN
	}
	return m.opts.Table
}

func (m *IPRouteManager) listDst(h *netlink.Handle, dst netip.Prefix) ([]netlink.Route, error) {
	dst = dst.Masked()
	filter := &netlink.Route{Table: m.table()}
	mask := netlink.RT_FILTER_TABLE
	if dst.Bits() > 0 {
		filter.Dst = prefixToIPNet(dst)
		mask |= netlink.RT_FILTER_DST
	}
	routes, err := h.RouteListFiltered(familyOf(dst), filter, mask)
	if err != nil {
		return nil, err
	}
	out := routes[:0]
	for _, nr := range routes {
		if dstPrefix(nr.Dst, dst.Addr().Is6()) == dst {
			out = append(out, nr)
		}
	}
	return out, nil
}

// findExact returns the single-path route with identity (dst, gw).
func (m *IPRouteManager) findExact(h *netlink.Handle, dst netip.Prefix, gw netip.Addr) (netlink.Route, error) {
	routes, err := m.listDst(h, dst)
	if err != nil {
		return netlink.Route{}, err
	}
	want := gw.Unmap()
	if !want.IsValid() {
		want = unspecifiedFor(dst)
	}
	for _, nr := range routes {
		if len(nr.MultiPath) > 0 {
			continue
		}
		if gatewayAddr(nr.Gw, dst) == want {
			return nr, nil
		}
	}
	return netlink.Route{}, fmt.Errorf("route %s via %s not found", dst, want)
}

func (m *IPRouteManager) toNetlinkRoute(r RouteRecord) (netlink.Route, error) {
	dst := r.Destination.Masked()
	nr := netlink.Route{
		Dst:      prefixToIPNet(dst),
		Table:    m.table(),
		Priority: r.Metric,
		Protocol: unix.RTPROT_STATIC,
		Type:     unix.RTN_UNICAST,
		Scope:    netlink.SCOPE_UNIVERSE,
	}
	if dst.Bits() == 0 {
		nr.Dst = nil
	}
	if r.OnLink() {
		nr.Scope = netlink.SCOPE_LINK
	} else {
		nr.Gw = net.IP(r.Gateway.Unmap().AsSlice())
	}
	if r.InterfaceAlias != "" {
		idx, err := m.links.Get(r.InterfaceAlias)
		if err != nil {
			return netlink.Route{}, err
		}
		nr.LinkIndex = idx
	}
	return nr, nil
}

// fromNetlinkRoute expands a netlink route into records, one per next hop.
func (m *IPRouteManager) fromNetlinkRoute(h *netlink.Handle, dst netip.Prefix, nr netlink.Route) []RouteRecord {
	if len(nr.MultiPath) == 0 {
		return []RouteRecord{{
			Destination:    dst,
			Gateway:        gatewayAddr(nr.Gw, dst),
			InterfaceAlias: linkName(h, nr.LinkIndex),
			Metric:         nr.Priority,
		}}
	}
	out := make([]RouteRecord, 0, len(nr.MultiPath))
	for _, nh := range nr.MultiPath {
		out = append(out, RouteRecord{
			Destination:    dst,
			Gateway:        gatewayAddr(nh.Gw, dst),
			InterfaceAlias: linkName(h, nh.LinkIndex),
			Metric:         nr.Priority,
		})
	}
	return out
}

func linkName(h *netlink.Handle, idx int) string {
	if idx == 0 {
		return ""
	}
	link, err := h.LinkByIndex(idx)
	if err != nil || link == nil || link.Attrs() == nil {
		return ""
	}
	return link.Attrs().Name
}

func familyOf(p netip.Prefix) int {
	if p.Addr().Is6() {
		return netlink.FAMILY_V6
	}
	return netlink.FAMILY_V4
}

func prefixToIPNet(p netip.Prefix) *net.IPNet {
	p = p.Masked()
	return &net.IPNet{
		IP:   net.IP(p.Addr().AsSlice()),
		Mask: net.CIDRMask(p.Bits(), p.Addr().BitLen()),
	}
}

func dstPrefix(n *net.IPNet, ipv6 bool) netip.Prefix {
	if n == nil {
		if ipv6 {
			return netip.PrefixFrom(netip.IPv6Unspecified(), 0)
		}
		return netip.PrefixFrom(netip.IPv4Unspecified(), 0)
	}
	addr, ok := netip.AddrFromSlice(n.IP)
	if !ok {
		return netip.Prefix{}
	}
	ones, _ := n.Mask.Size()
	return netip.PrefixFrom(addr.Unmap(), ones).Masked()
}

func gatewayAddr(gw net.IP, dst netip.Prefix) netip.Addr {
	if a, ok := netip.AddrFromSlice(gw); ok {
		return a.Unmap()
	}
	return unspecifiedFor(dst)
}
