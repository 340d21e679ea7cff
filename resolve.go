package netroute

import (
	"context"
	"fmt"
)

// Resolve fills in the gateway or interface alias a spec leaves unset.
// The spec is validated first; the returned record is fully resolved except
// that InterfaceAlias stays empty for an on-link route given without an
// interface.
//
//   - no gateway, interface set: the interface's default gateway
//   - no gateway or an unspecified one, no interface: the unspecified address (on-link)
//   - gateway set, no interface: the interface of the longest-prefix route to the gateway
//   - both set: used as-is
//
// Resolve only queries the routing table.
func (c Controller) Resolve(ctx context.Context, spec RouteSpec) (RouteRecord, error) {
	n, err := spec.Normalize()
	if err != nil {
		return RouteRecord{}, err
	}
	if c.Manager == nil {
		return RouteRecord{}, ErrNoManager
	}
	return c.resolve(ctx, n)
}

func (c Controller) resolve(ctx context.Context, n RouteSpec) (RouteRecord, error) {
	r, err := n.partial()
	if err != nil {
		return RouteRecord{}, err
	}

	switch {
	case r.Gateway.IsValid() && r.InterfaceAlias != "":
		return r, nil

	case r.Gateway.IsValid() && r.Gateway.IsUnspecified():
		r.Gateway = unspecifiedFor(r.Destination)

	case r.Gateway.IsValid():
		alias, err := c.Manager.InterfaceForGateway(ctx, r.Gateway)
		if err != nil {
			return RouteRecord{}, resolutionError(r, fmt.Errorf("find interface for gateway %s: %w", r.Gateway, err))
		}
		if alias == "" {
			return RouteRecord{}, resolutionError(r, fmt.Errorf("no interface reaches gateway %s", r.Gateway))
		}
		r.InterfaceAlias = alias

	case r.InterfaceAlias != "":
		gw, found, err := c.Manager.DefaultGateway(ctx, r.InterfaceAlias, r.Destination.Addr().Is6())
		if err != nil {
			return RouteRecord{}, resolutionError(r, fmt.Errorf("default gateway of %q: %w", r.InterfaceAlias, err))
		}
		if !found || !gw.IsValid() {
			return RouteRecord{}, resolutionError(r, fmt.Errorf("interface %q has no default gateway", r.InterfaceAlias))
		}
		r.Gateway = gw.Unmap()

	default:
		r.Gateway = unspecifiedFor(r.Destination)
	}

	c.logger().DebugContext(ctx, "route resolved",
		"destination", r.Destination.String(),
		"gateway", r.Gateway.String(),
		"interface_alias", r.InterfaceAlias)
	return r, nil
}
