package netroute

import (
	"errors"
	"strconv"
	"testing"
)

func TestRouteSpecNormalize(t *testing.T) {
	r, err := (RouteSpec{
		Destination:    " 10.0.0.1/24 ",
		Gateway:        "192.168.1.1",
		InterfaceAlias: " eth0 ",
		State:          "Present",
	}).Normalize()
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if r.Destination != "10.0.0.0/24" {
		t.Fatalf("Destination not normalized, got %q", r.Destination)
	}
	if r.InterfaceAlias != "eth0" {
		t.Fatalf("InterfaceAlias not trimmed, got %q", r.InterfaceAlias)
	}
	if r.Metric != DefaultMetric {
		t.Fatalf("Metric = %d, want %d", r.Metric, DefaultMetric)
	}
	if r.State != StatePresent {
		t.Fatalf("State = %q, want %q", r.State, StatePresent)
	}
}

func TestRouteSpecNormalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		spec RouteSpec
	}{
		{"missing destination", RouteSpec{}},
		{"destination without prefix", RouteSpec{Destination: "192.168.2.10"}},
		{"destination bad prefix length", RouteSpec{Destination: "192.168.2.10/33"}},
		{"bad gateway", RouteSpec{Destination: "192.168.2.10/32", Gateway: "192.168.1"}},
		{"family mismatch", RouteSpec{Destination: "192.168.2.10/32", Gateway: "fe80::1"}},
		{"negative metric", RouteSpec{Destination: "192.168.2.10/32", Metric: -1}},
		{"unknown state", RouteSpec{Destination: "192.168.2.10/32", State: "enabled"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Normalize()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("Normalize() err = %v, want Validation", err)
			}
		})
	}
}

func TestRouteSpecNormalize_MetricRange(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("int cannot hold metrics above 32 bits")
	}
	maxMetric := int64(MaxMetric)

	r, err := RouteSpec{Destination: "192.168.2.10/32", Metric: int(maxMetric)}.Normalize()
	if err != nil || int64(r.Metric) != maxMetric {
		t.Fatalf("Normalize() = %d, %v; want %d accepted", r.Metric, err, maxMetric)
	}

	// 1<<32+5 would be stored as 5 and reported as a change on every run.
	_, err = RouteSpec{Destination: "192.168.2.10/32", Metric: int(maxMetric + 6)}.Normalize()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Normalize() err = %v, want Validation", err)
	}
}

func TestRouteRecordKey(t *testing.T) {
	a := rec("192.168.2.10/32", "192.168.1.1", "eth1", 1)
	b := rec("192.168.2.10/32", "192.168.1.1", "eth0", 16)
	if a.Key() != b.Key() || !a.SameIdentity(b) {
		t.Fatalf("interface and metric must not be part of the identity: %q vs %q", a.Key(), b.Key())
	}
	c := rec("192.168.2.10/32", "192.168.1.2", "eth1", 1)
	if a.SameIdentity(c) {
		t.Fatal("gateway must be part of the identity")
	}
	if !rec("10.0.0.0/8", "0.0.0.0", "", 1).OnLink() {
		t.Fatal("unspecified gateway must be on-link")
	}
}
