package netroute

import (
	"fmt"
	"math"
	"net/netip"
	"strings"
)

// State is the desired presence of a route.
type State string

const (
	StatePresent State = "present"
	StateAbsent  State = "absent"
)

// DefaultMetric is used when a RouteSpec leaves Metric unset.
const DefaultMetric = 1

// MaxMetric is the largest metric the routing table can store (32 bits).
const MaxMetric = math.MaxUint32

// RouteSpec describes the desired state of one static route.
//
// Notes:
// - Destination is required and must be a CIDR (e.g. "192.168.2.10/32", "2001:db8::/64").
// - Gateway is optional. When empty it is resolved from InterfaceAlias, or set to the
//   unspecified address (on-link) when InterfaceAlias is empty too.
// - InterfaceAlias is optional. When empty and Gateway is set, it is resolved by a
//   longest-prefix lookup of the gateway.
// - Metric 0 means "unspecified" and becomes DefaultMetric.
// - State defaults to StatePresent.
type RouteSpec struct {
	Destination    string `json:"destination" yaml:"destination"`
	Gateway        string `json:"gateway,omitempty" yaml:"gateway,omitempty"`
	InterfaceAlias string `json:"interface_alias,omitempty" yaml:"interface_alias,omitempty"`
	Metric         int    `json:"metric,omitempty" yaml:"metric,omitempty"`
	State          State  `json:"state,omitempty" yaml:"state,omitempty"`
}

// Normalize canonicalizes and validates the spec. It returns a copy of s.
// All failures are ValidationErrors.
func (s RouteSpec) Normalize() (RouteSpec, error) {
	out := s

	out.Destination = strings.TrimSpace(out.Destination)
	out.Gateway = strings.TrimSpace(out.Gateway)
	out.InterfaceAlias = strings.TrimSpace(out.InterfaceAlias)
	out.State = State(strings.ToLower(strings.TrimSpace(string(out.State))))

	if out.Destination == "" {
		return RouteSpec{}, validationError(s, fmt.Errorf("destination is required"))
	}
	dst, err := netip.ParsePrefix(out.Destination)
	if err != nil {
		return RouteSpec{}, validationError(s, fmt.Errorf("invalid destination %q: %w", out.Destination, err))
	}
	dst = dst.Masked()
	out.Destination = dst.String()

	if out.Gateway != "" {
		gw, err := netip.ParseAddr(out.Gateway)
		if err != nil {
			return RouteSpec{}, validationError(s, fmt.Errorf("invalid gateway %q: %w", out.Gateway, err))
		}
		gw = gw.Unmap()
		if gw.Zone() != "" {
			return RouteSpec{}, validationError(s, fmt.Errorf("gateway %q must not carry a zone", out.Gateway))
		}
		if gw.Is4() != dst.Addr().Is4() {
			return RouteSpec{}, validationError(s, fmt.Errorf("gateway %s and destination %s differ in address family", gw, dst))
		}
		out.Gateway = gw.String()
	}

	switch {
	case out.Metric < 0:
		return RouteSpec{}, validationError(s, fmt.Errorf("metric must be >= 0, got %d", out.Metric))
	case int64(out.Metric) > MaxMetric:
		return RouteSpec{}, validationError(s, fmt.Errorf("metric must be <= %d, got %d", uint32(MaxMetric), out.Metric))
	case out.Metric == 0:
		out.Metric = DefaultMetric
	}

	switch out.State {
	case "":
		out.State = StatePresent
	case StatePresent, StateAbsent:
	default:
		return RouteSpec{}, validationError(s, fmt.Errorf("state must be %q or %q, got %q", StatePresent, StateAbsent, s.State))
	}

	return out, nil
}

// partial returns the parsed form of a normalized spec. Gateway is the zero
// Addr when the spec leaves it unset.
func (s RouteSpec) partial() (RouteRecord, error) {
	dst, err := netip.ParsePrefix(s.Destination)
	if err != nil {
		return RouteRecord{}, validationError(s, err)
	}
	r := RouteRecord{
		Destination:    dst,
		InterfaceAlias: s.InterfaceAlias,
		Metric:         s.Metric,
	}
	if s.Gateway != "" {
		gw, err := netip.ParseAddr(s.Gateway)
		if err != nil {
			return RouteRecord{}, validationError(s, err)
		}
		r.Gateway = gw
	}
	return r, nil
}

// RouteRecord is a fully resolved routing table entry.
//
// (Destination, Gateway) is the identity of a record; InterfaceAlias and
// Metric are attributes that can change in place. An on-link route has the
// unspecified address of its family as Gateway.
type RouteRecord struct {
	Destination    netip.Prefix `json:"destination"`
	Gateway        netip.Addr   `json:"gateway"`
	InterfaceAlias string       `json:"interface_alias"`
	Metric         int          `json:"metric"`
}

// RouteAttrs are the mutable attributes of an existing route.
type RouteAttrs struct {
	InterfaceAlias string `json:"interface_alias"`
	Metric         int    `json:"metric"`
}

// Attrs returns the mutable attributes of r.
func (r RouteRecord) Attrs() RouteAttrs {
	return RouteAttrs{InterfaceAlias: r.InterfaceAlias, Metric: r.Metric}
}

// Key returns the identity of r: destination and gateway.
func (r RouteRecord) Key() string {
	return fmt.Sprintf("dst=%s|gw=%s", r.Destination.Masked(), r.Gateway.Unmap())
}

// SameIdentity reports whether r and o address the same routing table entry.
func (r RouteRecord) SameIdentity(o RouteRecord) bool {
	return r.Destination.Masked() == o.Destination.Masked() && r.Gateway.Unmap() == o.Gateway.Unmap()
}

// OnLink reports whether r has no next hop.
func (r RouteRecord) OnLink() bool {
	return !r.Gateway.IsValid() || r.Gateway.IsUnspecified()
}

func (r RouteRecord) String() string {
	return fmt.Sprintf("%s via %s dev %q metric %d", r.Destination, r.Gateway, r.InterfaceAlias, r.Metric)
}

// unspecifiedFor returns the on-link gateway value for dst's address family.
func unspecifiedFor(dst netip.Prefix) netip.Addr {
	if dst.Addr().Is6() {
		return netip.IPv6Unspecified()
	}
	return netip.IPv4Unspecified()
}
