package schemas

import "context"

// Planner turns a goal plus a page snapshot into a step sequence. The
// rule-based planner is the built-in implementation; model-backed planners
// satisfy the same contract behind the planning backend.
type Planner interface {
	// Name identifies the planner, e.g. "rule_based".
	Name() string
	// Plan never fabricates selectors that are not drawn from the
	// snapshot's candidates. An empty step list with an explanatory
	// summary is the "no confident plan" outcome, not an error.
	Plan(ctx context.Context, req PlanRequest) (PlanResponse, error)
}

// Observer produces a bounded snapshot of the active document.
type Observer interface {
	Observe(ctx context.Context) (PageSnapshot, error)
}

// Actuator dispatches approved low-level actions against the active
// document. Implementations own the interactable wait; a selector that
// never becomes interactable within the wait budget is a terminal failure
// for that action.
type Actuator interface {
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	ScrollBy(ctx context.Context, deltaY int) error
	Navigate(ctx context.Context, url string) error
}
