package netroute

import (
	"context"
	"log/slog"
	"time"
)

// Controller reconciles one desired route against the live routing table
// behind Manager. It holds no state between calls: every Reconcile re-reads
// the table.
type Controller struct {
	Manager RouteManager
	// CheckMode computes and reports the decision without applying it.
	CheckMode bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Result is the outcome of one reconciliation.
type Result struct {
	Changed        bool   `json:"changed"`
	Output         string `json:"output"`
	Destination    string `json:"destination"`
	Gateway        string `json:"gateway"`
	InterfaceAlias string `json:"interface_alias"`
	Metric         int    `json:"metric"`
	State          State  `json:"state"`
	// Previous is the observed record before a modify or remove.
	Previous  *RouteRecord `json:"previous,omitempty"`
	CheckMode bool         `json:"check_mode,omitempty"`
}

func NewController(manager RouteManager) *Controller {
	return &Controller{Manager: manager}
}

// NewSystemController returns a Controller for the host routing table.
func NewSystemController(opts SystemOptions) (*Controller, error) {
	m, err := NewIPRouteManager(opts)
	if err != nil {
		return nil, err
	}
	return NewController(m), nil
}

// Reconcile brings the route described by spec to its desired state:
// - validates and resolves spec
// - lists the routes for the destination
// - decides add / modify / remove / nothing (see PlanRoute)
// - applies at most one change (none in CheckMode)
//
// Every error is a *RouteError, except ErrNoManager for a Controller built
// without a Manager. Nothing is retried. A failed apply can be
// recovered by calling Reconcile again, which re-observes the table.
func (c Controller) Reconcile(ctx context.Context, spec RouteSpec) (Result, error) {
	n, err := spec.Normalize()
	if err != nil {
		return Result{}, err
	}
	if c.Manager == nil {
		return Result{}, ErrNoManager
	}

	desired, err := c.resolve(ctx, n)
	if err != nil {
		return Result{}, err
	}

	observed, err := c.Manager.List(ctx, desired.Destination)
	if err != nil {
		return Result{}, systemCallError("list", desired, err)
	}

	plan, err := PlanRoute(desired, n.State, observed)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	if !c.CheckMode {
		if err := c.apply(ctx, plan); err != nil {
			c.logger().ErrorContext(ctx, "route operation failed",
				"action", plan.Action.String(),
				"destination", desired.Destination.String(),
				"gateway", desired.Gateway.String(),
				"error", err)
			return Result{}, err
		}
	}

	res := report(plan, n.State)
	res.CheckMode = c.CheckMode
	c.logger().InfoContext(ctx, "route reconciled",
		"action", plan.Action.String(),
		"destination", res.Destination,
		"gateway", res.Gateway,
		"interface_alias", res.InterfaceAlias,
		"metric", res.Metric,
		"changed", res.Changed,
		"check_mode", c.CheckMode,
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

func (c Controller) apply(ctx context.Context, p Plan) error {
	d := p.Desired
	switch p.Action {
	case ActionAdd:
		if err := c.Manager.Add(ctx, d); err != nil {
			return systemCallError("add", d, err)
		}
	case ActionModify:
		if err := c.Manager.Modify(ctx, d.Destination, d.Gateway, mergeAttrs(d, *p.Current)); err != nil {
			return systemCallError("modify", d, err)
		}
	case ActionRemove:
		if err := c.Manager.Delete(ctx, p.Current.Destination, p.Current.Gateway); err != nil {
			return systemCallError("remove", *p.Current, err)
		}
	}
	return nil
}

// mergeAttrs returns the attributes a modify sets: desired values, keeping
// the current interface when desired does not name one.
func mergeAttrs(desired, cur RouteRecord) RouteAttrs {
	a := desired.Attrs()
	if a.InterfaceAlias == "" {
		a.InterfaceAlias = cur.InterfaceAlias
	}
	return a
}

func report(p Plan, state State) Result {
	final := p.Desired
	switch p.Action {
	case ActionRemove:
		final = *p.Current
	case ActionModify:
		final.InterfaceAlias = mergeAttrs(p.Desired, *p.Current).InterfaceAlias
	case ActionNone:
		if p.Current != nil && final.InterfaceAlias == "" {
			final.InterfaceAlias = p.Current.InterfaceAlias
		}
	}

	res := Result{
		Changed:        p.Changed(),
		Output:         p.Message,
		Destination:    final.Destination.String(),
		Gateway:        final.Gateway.String(),
		InterfaceAlias: final.InterfaceAlias,
		Metric:         final.Metric,
		State:          state,
	}
	if p.Action == ActionModify || p.Action == ActionRemove {
		prev := *p.Current
		res.Previous = &prev
	}
	return res
}

func (c Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
