//go:build linux

package netroute

import (
	"fmt"
	"net/netip"

	"github.com/jsimonetti/rtnetlink"
	mdnetlink "github.com/mdlayher/netlink"
	"golang.org/x/sys/unix"
)

// fetchRoutesTo asks the kernel (RTM_GETROUTE) which route it would use to
// reach ip, inside the network namespace nsFD (0 = current).
// Variable for mocking in tests.
var fetchRoutesTo = func(nsFD int, ip netip.Addr) ([]rtnetlink.RouteMessage, error) {
	c, err := rtnetlink.Dial(&mdnetlink.Config{NetNS: nsFD})
	if err != nil {
		return nil, err
	}
	defer c.Close()

	af := unix.AF_INET
	if ip.Is6() {
		af = unix.AF_INET6
	}
	tx := &rtnetlink.RouteMessage{
		Family:    uint8(af),
		DstLength: uint8(ip.BitLen()),
		Table:     unix.RT_TABLE_MAIN,
		Attributes: rtnetlink.RouteAttributes{
			Dst: ip.AsSlice(),
		},
	}
	return c.Route.Get(tx)
}

// lookupOutIface returns the index of the interface of the most specific
// route to ip.
func lookupOutIface(nsFD int, ip netip.Addr) (int, error) {
	ip = ip.Unmap()
	msgs, err := fetchRoutesTo(nsFD, ip)
	if err != nil {
		return 0, fmt.Errorf("route lookup for %s: %w", ip, err)
	}
	return outIfaceOf(ip, msgs)
}

func outIfaceOf(ip netip.Addr, msgs []rtnetlink.RouteMessage) (int, error) {
	// RTM_GETROUTE answers with the single most specific route.
	switch len(msgs) {
	case 0:
		return 0, fmt.Errorf("no route to %s", ip)
	case 1:
	default:
		return 0, fmt.Errorf("multiple routes found for %s", ip)
	}
	m := msgs[0]
	switch m.Type {
	case unix.RTN_UNREACHABLE, unix.RTN_BLACKHOLE, unix.RTN_PROHIBIT:
		return 0, fmt.Errorf("%s is unreachable", ip)
	}
	if m.Attributes.OutIface == 0 {
		return 0, fmt.Errorf("route to %s has no output interface", ip)
	}
	return int(m.Attributes.OutIface), nil
}
