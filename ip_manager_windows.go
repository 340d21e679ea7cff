//go:build windows

package netroute

import (
	"context"
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/sys/windows"
	"golang.zx2c4.com/wireguard/windows/tunnel/winipcfg"
)

// IPRouteManager implements RouteManager with the IP Helper API
// (GetIPForwardTable2 / CreateIpForwardEntry2 through winipcfg).
// Interface aliases are the names shown by Get-NetAdapter.
type IPRouteManager struct {
	opts  SystemOptions
	luids *linkCache[winipcfg.LUID]
}

func NewIPRouteManager(opts SystemOptions) (*IPRouteManager, error) {
	if opts.Namespace != "" {
		return nil, fmt.Errorf("network namespaces are not supported on windows")
	}
	if opts.Table != 0 {
		return nil, fmt.Errorf("routing tables are not supported on windows")
	}
	m := &IPRouteManager{opts: opts}
	m.luids = newLinkCache(opts.LinkCacheTTL, luidByAlias)
	return m, nil
}

func (m *IPRouteManager) List(ctx context.Context, dst netip.Prefix) ([]RouteRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dst = dst.Masked()
	rows, err := winipcfg.GetIPForwardTable2(familyOf(dst))
	if err != nil {
		return nil, fmt.Errorf("GetIPForwardTable2: %w", err)
	}
	var out []RouteRecord
	for i := range rows {
		r := &rows[i]
		if r.DestinationPrefix.Prefix().Masked() != dst {
			continue
		}
		out = append(out, recordFromRow(r, dst))
	}
	sortRecords(out)
	return out, nil
}

// InterfaceForGateway mirrors Find-NetRoute: the row with the longest prefix
// containing gw wins, ties broken by route metric plus interface metric.
func (m *IPRouteManager) InterfaceForGateway(ctx context.Context, gw netip.Addr) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	gw = gw.Unmap()
	family := winipcfg.AddressFamily(windows.AF_INET)
	if gw.Is6() {
		family = winipcfg.AddressFamily(windows.AF_INET6)
	}
	rows, err := winipcfg.GetIPForwardTable2(family)
	if err != nil {
		return "", fmt.Errorf("GetIPForwardTable2: %w", err)
	}

	var (
		best       *winipcfg.MibIPforwardRow2
		bestPL     = -1
		bestMetric = uint32(math.MaxUint32)
	)
	for i := range rows {
		pfx := rows[i].DestinationPrefix.Prefix()
		if !pfx.Contains(gw) {
			continue
		}
		pl := pfx.Bits()
		metric := rows[i].Metric
		if ifRow, _ := rows[i].InterfaceLUID.IPInterface(family); ifRow != nil {
			metric += ifRow.Metric
		}
		if pl > bestPL || (pl == bestPL && metric < bestMetric) {
			best, bestPL, bestMetric = &rows[i], pl, metric
		}
	}
	if best == nil {
		return "", fmt.Errorf("no route to %s", gw)
	}
	return aliasOf(best.InterfaceLUID, best.InterfaceIndex), nil
}

func (m *IPRouteManager) DefaultGateway(ctx context.Context, alias string, ipv6 bool) (netip.Addr, bool, error) {
	if err := ctx.Err(); err != nil {
		return netip.Addr{}, false, err
	}
	luid, err := m.luids.Get(alias)
	if err != nil {
		return netip.Addr{}, false, err
	}
	family := winipcfg.AddressFamily(windows.AF_INET)
	if ipv6 {
		family = winipcfg.AddressFamily(windows.AF_INET6)
	}
	rows, err := winipcfg.GetIPForwardTable2(family)
	if err != nil {
		return netip.Addr{}, false, fmt.Errorf("GetIPForwardTable2: %w", err)
	}

	var (
		best   netip.Addr
		metric uint32
		found  bool
	)
	for i := range rows {
		r := &rows[i]
		if r.InterfaceLUID != luid || r.DestinationPrefix.Prefix().Bits() != 0 {
			continue
		}
		nh := r.NextHop.Addr().Unmap()
		if !nh.IsValid() || nh.IsUnspecified() {
			continue
		}
		if !found || r.Metric < metric {
			best, metric, found = nh, r.Metric, true
		}
	}
	return best, found, nil
}

func (m *IPRouteManager) Add(ctx context.Context, r RouteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.InterfaceAlias == "" {
		return fmt.Errorf("an interface alias is required to add %s", r.Destination)
	}
	luid, err := m.luids.Get(r.InterfaceAlias)
	if err != nil {
		return err
	}
	if err := luid.AddRoute(r.Destination.Masked(), nextHop(r.Destination, r.Gateway), uint32(r.Metric)); err != nil {
		m.luids.Forget(r.InterfaceAlias)
		return err
	}
	return nil
}

func (m *IPRouteManager) Delete(ctx context.Context, dst netip.Prefix, gw netip.Addr) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row, err := findRow(dst, gw)
	if err != nil {
		return err
	}
	return row.Delete()
}

// Modify updates the metric of the row in place. A row belongs to one
// interface, so moving the route re-creates it on the new interface.
func (m *IPRouteManager) Modify(ctx context.Context, dst netip.Prefix, gw netip.Addr, attrs RouteAttrs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	row, err := findRow(dst, gw)
	if err != nil {
		return err
	}

	luid := row.InterfaceLUID
	if attrs.InterfaceAlias != "" {
		if luid, err = m.luids.Get(attrs.InterfaceAlias); err != nil {
			return err
		}
	}
	if luid == row.InterfaceLUID {
		row.Metric = uint32(attrs.Metric)
		return row.Set()
	}

	return replaceSteps(
		func() error { return luid.AddRoute(dst.Masked(), nextHop(dst, gw), uint32(attrs.Metric)) },
		func() error {
			if err := row.Delete(); err != nil {
				return fmt.Errorf("delete route on old interface: %w", err)
			}
			return nil
		},
		func() error { return luid.DeleteRoute(dst.Masked(), nextHop(dst, gw)) })
}

func findRow(dst netip.Prefix, gw netip.Addr) (*winipcfg.MibIPforwardRow2, error) {
	dst = dst.Masked()
	want := nextHop(dst, gw)
	rows, err := winipcfg.GetIPForwardTable2(familyOf(dst))
	if err != nil {
		return nil, fmt.Errorf("GetIPForwardTable2: %w", err)
	}
	for i := range rows {
		r := &rows[i]
		if r.DestinationPrefix.Prefix().Masked() == dst && rowNextHop(r, dst) == want {
			return r, nil
		}
	}
	return nil, fmt.Errorf("route %s via %s not found", dst, want)
}

func recordFromRow(r *winipcfg.MibIPforwardRow2, dst netip.Prefix) RouteRecord {
	return RouteRecord{
		Destination:    dst,
		Gateway:        rowNextHop(r, dst),
		InterfaceAlias: aliasOf(r.InterfaceLUID, r.InterfaceIndex),
		Metric:         int(r.Metric),
	}
}

func rowNextHop(r *winipcfg.MibIPforwardRow2, dst netip.Prefix) netip.Addr {
	nh := r.NextHop.Addr().Unmap()
	if !nh.IsValid() {
		return unspecifiedFor(dst)
	}
	return nh
}

func nextHop(dst netip.Prefix, gw netip.Addr) netip.Addr {
	if !gw.IsValid() {
		return unspecifiedFor(dst)
	}
	return gw.Unmap()
}

func familyOf(p netip.Prefix) winipcfg.AddressFamily {
	if p.Addr().Is6() {
		return winipcfg.AddressFamily(windows.AF_INET6)
	}
	return winipcfg.AddressFamily(windows.AF_INET)
}

// luidByAlias resolves an interface by alias, falling back to the adapter
// FriendlyName. Names compare case-insensitively.
func luidByAlias(alias string) (winipcfg.LUID, error) {
	want := strings.TrimSpace(alias)
	if want == "" {
		return 0, fmt.Errorf("empty interface alias")
	}
	addrs, err := winipcfg.GetAdaptersAddresses(winipcfg.AddressFamily(windows.AF_UNSPEC), 0)
	if err != nil {
		return 0, err
	}
	for _, a := range addrs {
		if ifRow, _ := a.LUID.Interface(); ifRow != nil && strings.EqualFold(strings.TrimSpace(ifRow.Alias()), want) {
			return a.LUID, nil
		}
	}
	for _, a := range addrs {
		if strings.EqualFold(strings.TrimSpace(a.FriendlyName()), want) {
			return a.LUID, nil
		}
	}
	return 0, fmt.Errorf("interface %q not found", alias)
}

func aliasOf(luid winipcfg.LUID, ifIndex uint32) string {
	if ifRow, _ := luid.Interface(); ifRow != nil {
		if s := strings.TrimSpace(ifRow.Alias()); s != "" {
			return s
		}
	}
	if ifIndex != 0 {
		return strconv.Itoa(int(ifIndex))
	}
	return ""
}
