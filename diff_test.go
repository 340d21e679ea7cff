package netroute

import (
	"errors"
	"testing"
)

func TestPlanRoute(t *testing.T) {
	desired := rec("192.168.2.10/32", "192.168.1.1", "eth1", 1)

	tests := []struct {
		name     string
		state    State
		observed []RouteRecord
		action   Action
		message  string
	}{
		{
			name:    "present, no route",
			state:   StatePresent,
			action:  ActionAdd,
			message: MsgAdded,
		},
		{
			name:  "present, other gateway only",
			state: StatePresent,
			observed: []RouteRecord{
				rec("192.168.2.10/32", "192.168.1.2", "eth1", 1),
			},
			action:  ActionAdd,
			message: MsgAdded,
		},
		{
			name:     "present, identical",
			state:    StatePresent,
			observed: []RouteRecord{desired},
			action:   ActionNone,
			message:  MsgAlreadyExists,
		},
		{
			name:     "present, metric differs",
			state:    StatePresent,
			observed: []RouteRecord{rec("192.168.2.10/32", "192.168.1.1", "eth1", 16)},
			action:   ActionModify,
			message:  MsgUpdated,
		},
		{
			name:     "present, interface differs",
			state:    StatePresent,
			observed: []RouteRecord{rec("192.168.2.10/32", "192.168.1.1", "eth0", 1)},
			action:   ActionModify,
			message:  MsgUpdated,
		},
		{
			name:    "absent, no route",
			state:   StateAbsent,
			action:  ActionNone,
			message: MsgNotFound,
		},
		{
			name:     "absent, route exists with other attributes",
			state:    StateAbsent,
			observed: []RouteRecord{rec("192.168.2.10/32", "192.168.1.1", "eth0", 99)},
			action:   ActionRemove,
			message:  MsgRemoved,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := PlanRoute(desired, tt.state, tt.observed)
			if err != nil {
				t.Fatalf("PlanRoute() error: %v", err)
			}
			if p.Action != tt.action {
				t.Fatalf("Action = %s, want %s", p.Action, tt.action)
			}
			if p.Message != tt.message {
				t.Fatalf("Message = %q, want %q", p.Message, tt.message)
			}
			if p.Changed() != (tt.action != ActionNone) {
				t.Fatalf("Changed() = %v for %s", p.Changed(), p.Action)
			}
		})
	}
}

func TestPlanRoute_NoInterfaceConstraint(t *testing.T) {
	desired := rec("192.168.2.10/32", "0.0.0.0", "", 1)
	p, err := PlanRoute(desired, StatePresent, []RouteRecord{rec("192.168.2.10/32", "0.0.0.0", "eth0", 1)})
	if err != nil {
		t.Fatalf("PlanRoute() error: %v", err)
	}
	if p.Action != ActionNone {
		t.Fatalf("Action = %s, want none when desired names no interface", p.Action)
	}
}

func TestPlanRoute_Ambiguous(t *testing.T) {
	desired := rec("192.168.2.10/32", "192.168.1.1", "eth1", 1)
	observed := []RouteRecord{
		rec("192.168.2.10/32", "192.168.1.1", "eth1", 1),
		rec("192.168.2.10/32", "192.168.1.1", "eth1", 2),
	}
	for _, state := range []State{StatePresent, StateAbsent} {
		_, err := PlanRoute(desired, state, observed)
		if !errors.Is(err, ErrAmbiguousState) {
			t.Fatalf("state %s: err = %v, want AmbiguousState", state, err)
		}
	}
}
