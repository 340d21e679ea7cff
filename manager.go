package netroute

import (
	"context"
	"net/netip"
)

// RouteManager reads and mutates the OS routing table.
//
// A reconciliation uses it as follows:
// - InterfaceForGateway / DefaultGateway to fill in a partial RouteSpec
// - List to observe the records for the destination
// - at most one of Add, Delete or Modify to apply the decision
type RouteManager interface {
	// List returns the routes whose destination equals dst exactly.
	List(ctx context.Context, dst netip.Prefix) ([]RouteRecord, error)
	// InterfaceForGateway returns the alias of the interface a packet to gw
	// would leave through (longest-prefix match).
	InterfaceForGateway(ctx context.Context, gw netip.Addr) (string, error)
	// DefaultGateway returns the default gateway configured on the interface
	// for the given address family. found is false when there is none.
	DefaultGateway(ctx context.Context, alias string, ipv6 bool) (gw netip.Addr, found bool, err error)

	Add(ctx context.Context, r RouteRecord) error
	Delete(ctx context.Context, dst netip.Prefix, gw netip.Addr) error
	// Modify changes the interface and metric of the route identified by (dst, gw).
	Modify(ctx context.Context, dst netip.Prefix, gw netip.Addr, attrs RouteAttrs) error
}
