package netroute

import (
	"fmt"
	"sort"
	"strings"
)

// Action is the single routing table change a Plan applies.
type Action int

const (
	ActionNone Action = iota
	ActionAdd
	ActionModify
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionAdd:
		return "add"
	case ActionModify:
		return "modify"
	case ActionRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Result messages.
const (
	MsgAdded         = "Route added"
	MsgAlreadyExists = "Route already exists"
	MsgUpdated       = "Route updated"
	MsgRemoved       = "Route removed"
	MsgNotFound      = "No route found"
)

// Plan is the decision computed from a desired route and the observed records.
type Plan struct {
	Action Action
	// Desired is the resolved desired route.
	Desired RouteRecord
	// Current is the observed record with the identity of Desired, if any.
	Current *RouteRecord
	Message string
}

// Changed reports whether applying p mutates the routing table.
func (p Plan) Changed() bool { return p.Action != ActionNone }

// PlanRoute decides what to do with desired given the records observed for
// its destination. observed may contain records for other gateways; only
// records with the identity (destination, gateway) of desired are matched.
//
// More than one match is an AmbiguousStateError: the order of OS-returned
// records is not stable, so neither can be picked.
func PlanRoute(desired RouteRecord, state State, observed []RouteRecord) (Plan, error) {
	var matches []RouteRecord
	for _, r := range observed {
		if r.SameIdentity(desired) {
			matches = append(matches, r)
		}
	}

	if len(matches) > 1 {
		sort.Slice(matches, func(i, j int) bool { return matches[i].String() < matches[j].String() })
		return Plan{}, &RouteError{
			Kind:        KindAmbiguousState,
			Destination: desired.Destination.String(),
			Gateway:     addrString(desired.Gateway),
			Err:         fmt.Errorf("%d routes match: %s", len(matches), joinRecords(matches)),
		}
	}

	p := Plan{Desired: desired}
	if len(matches) == 1 {
		cur := matches[0]
		p.Current = &cur
	}

	switch state {
	case StatePresent:
		switch {
		case p.Current == nil:
			p.Action, p.Message = ActionAdd, MsgAdded
		case attrsDiffer(desired, *p.Current):
			p.Action, p.Message = ActionModify, MsgUpdated
		default:
			p.Message = MsgAlreadyExists
		}
	case StateAbsent:
		if p.Current == nil {
			p.Message = MsgNotFound
		} else {
			p.Action, p.Message = ActionRemove, MsgRemoved
		}
	default:
		return Plan{}, &RouteError{Kind: KindValidation, Destination: desired.Destination.String(), Err: fmt.Errorf("unknown state %q", state)}
	}
	return p, nil
}

// attrsDiffer reports whether the mutable attributes of cur must change to
// match desired. An empty desired alias places no constraint on the interface.
func attrsDiffer(desired, cur RouteRecord) bool {
	if desired.Metric != cur.Metric {
		return true
	}
	return desired.InterfaceAlias != "" && !strings.EqualFold(desired.InterfaceAlias, cur.InterfaceAlias)
}

func joinRecords(rr []RouteRecord) string {
	s := make([]string, 0, len(rr))
	for _, r := range rr {
		s = append(s, r.String())
	}
	return strings.Join(s, "; ")
}
