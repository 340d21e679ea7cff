//go:build !linux && !windows

package netroute

import (
	"context"
	"fmt"
	"net/netip"
	"runtime"
)

var errUnsupported = fmt.Errorf("IPRouteManager is not supported on %s", runtime.GOOS)

// IPRouteManager is not supported on this platform.
type IPRouteManager struct{}

func NewIPRouteManager(opts SystemOptions) (*IPRouteManager, error) {
	return nil, errUnsupported
}

func (m *IPRouteManager) List(ctx context.Context, dst netip.Prefix) ([]RouteRecord, error) {
	return nil, errUnsupported
}

func (m *IPRouteManager) InterfaceForGateway(ctx context.Context, gw netip.Addr) (string, error) {
	return "", errUnsupported
}

func (m *IPRouteManager) DefaultGateway(ctx context.Context, alias string, ipv6 bool) (netip.Addr, bool, error) {
	return netip.Addr{}, false, errUnsupported
}

func (m *IPRouteManager) Add(ctx context.Context, r RouteRecord) error {
	return errUnsupported
}

func (m *IPRouteManager) Delete(ctx context.Context, dst netip.Prefix, gw netip.Addr) error {
	return errUnsupported
}

func (m *IPRouteManager) Modify(ctx context.Context, dst netip.Prefix, gw netip.Addr, attrs RouteAttrs) error {
	return errUnsupported
}
