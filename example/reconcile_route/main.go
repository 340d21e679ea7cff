package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/netip"
	"os"
	"strings"

	"github.com/jursonmo/netroute"
)

func main() {
	ctx := context.Background()

	// The in-memory table stands in for the OS: a default route on eth0 and a
	// connected /24 on eth1.
	manager := netroute.NewMemoryManager(
		netroute.RouteRecord{
			Destination:    netip.MustParsePrefix("0.0.0.0/0"),
			Gateway:        netip.MustParseAddr("10.0.0.1"),
			InterfaceAlias: "eth0",
			Metric:         100,
		},
		netroute.RouteRecord{
			Destination:    netip.MustParsePrefix("192.168.50.0/24"),
			Gateway:        netip.IPv4Unspecified(),
			InterfaceAlias: "eth1",
			Metric:         0,
		},
	)

	ctrl := netroute.NewController(manager)

	steps := []netroute.RouteSpec{
		// interface resolved from the gateway (192.168.50.1 is on eth1)
		{Destination: "10.10.0.0/16", Gateway: "192.168.50.1", Metric: 10},
		// same route again: nothing to do
		{Destination: "10.10.0.0/16", Gateway: "192.168.50.1", Metric: 10},
		// metric change: modified in place
		{Destination: "10.10.0.0/16", Gateway: "192.168.50.1", Metric: 20},
		// gateway resolved from eth0's default route
		{Destination: "172.16.0.0/12", InterfaceAlias: "eth0"},
		// removed
		{Destination: "10.10.0.0/16", Gateway: "192.168.50.1", State: netroute.StateAbsent},
	}

	// Resolve shows what a spec turns into without touching the table.
	resolved, err := ctrl.Resolve(ctx, steps[0])
	if err != nil {
		log.Fatalf("resolve %s: %v", steps[0].Destination, err)
	}
	fmt.Println("Resolved: " + resolved.String())

	enc := json.NewEncoder(os.Stdout)
	for _, spec := range steps {
		res, err := ctrl.Reconcile(ctx, spec)
		if err != nil {
			log.Fatalf("reconcile %s: %v", spec.Destination, err)
		}
		if err := enc.Encode(res); err != nil {
			log.Fatal(err)
		}
	}

	fmt.Println("Operations:")
	fmt.Println("  " + strings.Join(manager.Ops(), "\n  "))
	fmt.Println("Final table:")
	for _, r := range manager.Routes() {
		fmt.Println("  " + r.String())
	}
}
