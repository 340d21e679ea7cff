package netroute

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

// ErrorKind is the category of a reconciliation failure.
type ErrorKind int

const (
	// KindValidation: malformed destination/gateway/metric/state. Detected before any OS query.
	KindValidation ErrorKind = iota
	// KindResolution: gateway or interface could not be determined from partial input.
	KindResolution
	// KindAmbiguousState: more than one observed record has the identity of the desired route.
	KindAmbiguousState
	// KindSystemCall: the routing table query or mutation failed.
	KindSystemCall
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindResolution:
		return "Resolution"
	case KindAmbiguousState:
		return "AmbiguousState"
	case KindSystemCall:
		return "SystemCall"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrValidation     = &RouteError{Kind: KindValidation}
	ErrResolution     = &RouteError{Kind: KindResolution}
	ErrAmbiguousState = &RouteError{Kind: KindAmbiguousState}
	ErrSystemCall     = &RouteError{Kind: KindSystemCall}
)

// ErrNoManager is returned by a Controller that has no RouteManager.
var ErrNoManager = errors.New("netroute: controller has no route manager")

// RouteError is returned by every Controller operation.
type RouteError struct {
	Kind        ErrorKind
	Op          string // collaborator operation for KindSystemCall, e.g. "add"
	Destination string
	Gateway     string
	Err         error
}

func (e *RouteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "route error [%s]", e.Kind)
	if e.Op != "" {
		fmt.Fprintf(&b, " %s", e.Op)
	}
	if e.Destination != "" {
		fmt.Fprintf(&b, " %s", e.Destination)
		if e.Gateway != "" {
			fmt.Fprintf(&b, " via %s", e.Gateway)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *RouteError) Unwrap() error { return e.Err }

// Is matches any *RouteError of the same Kind.
func (e *RouteError) Is(target error) bool {
	t, ok := target.(*RouteError)
	return ok && t.Kind == e.Kind
}

func validationError(s RouteSpec, err error) error {
	return &RouteError{Kind: KindValidation, Destination: s.Destination, Gateway: s.Gateway, Err: err}
}

func resolutionError(r RouteRecord, err error) error {
	return &RouteError{Kind: KindResolution, Destination: r.Destination.String(), Gateway: addrString(r.Gateway), Err: err}
}

func systemCallError(op string, r RouteRecord, err error) error {
	return &RouteError{Kind: KindSystemCall, Op: op, Destination: r.Destination.String(), Gateway: addrString(r.Gateway), Err: err}
}

func addrString(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}
