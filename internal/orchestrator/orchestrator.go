// Package orchestrator ties the observer, planners, safety gate, plan state
// machine and actuator into the message contract exposed to the UI caller.
// It owns all mutable automation state for the process lifetime.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
	"github.com/zentab/tabagent/internal/plan"
	"github.com/zentab/tabagent/internal/planclient"
)

// RestrictedRefusal is the fixed message returned for privileged document
// address schemes, before any observation or network call is made.
const RestrictedRefusal = "Automation is not allowed on this page."

// restrictedPrefixes are browser-internal and extension-internal address
// schemes that must never be observed or automated.
var restrictedPrefixes = []string{
	"chrome://",
	"chrome-extension://",
	"edge://",
	"moz-extension://",
	"about:",
	"view-source:",
	"devtools://",
}

// PageSource is the orchestrator's view of the active document: a cheap
// address probe plus full observation.
type PageSource interface {
	schemas.Observer
	Location(ctx context.Context) (string, error)
}

// PlanService is the orchestrator's view of the planning backend client.
type PlanService interface {
	RequestPlan(ctx context.Context, req schemas.PlanRequest) (schemas.PlanResponse, error)
	CheckHealth(ctx context.Context) schemas.HealthStatus
	ConnectionStatus() schemas.ConnectionStatus
}

// Orchestrator handles AGENT_REQUEST, RUN_NEXT_STEP, GET_CONNECTION_STATUS
// and CHECK_SERVER_HEALTH.
type Orchestrator struct {
	page     PageSource
	service  PlanService
	fallback schemas.Planner
	machine  *plan.Machine
	logger   *zap.Logger
}

// New wires the orchestrator. fallback is the local rule-based planner used
// when the planning service is exhausted; it may not be nil.
func New(page PageSource, service PlanService, fallback schemas.Planner, machine *plan.Machine, logger *zap.Logger) (*Orchestrator, error) {
	if page == nil || service == nil || fallback == nil || machine == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		page:     page,
		service:  service,
		fallback: fallback,
		machine:  machine,
		logger:   logger.Named("orchestrator"),
	}, nil
}

// HandleAgentRequest observes the page, plans toward the goal and loads the
// resulting plan, replacing any prior plan wholesale.
func (o *Orchestrator) HandleAgentRequest(ctx context.Context, req schemas.AgentRequest) schemas.AgentResponse {
	goal := strings.TrimSpace(req.Text)
	if goal == "" {
		return schemas.AgentResponse{Error: "empty request"}
	}

	url, err := o.page.Location(ctx)
	if err != nil {
		return schemas.AgentResponse{Error: fmt.Sprintf("could not read the active page: %v", err)}
	}
	if IsRestricted(url) {
		o.logger.Warn("refusing restricted origin", zap.String("url", url))
		return schemas.AgentResponse{Error: RestrictedRefusal}
	}

	snap, err := o.page.Observe(ctx)
	if err != nil {
		return schemas.AgentResponse{Error: fmt.Sprintf("could not observe the active page: %v", err)}
	}

	resp, err := o.requestPlan(ctx, schemas.PlanRequest{UserRequest: goal, Page: snap})
	if err != nil {
		return schemas.AgentResponse{Error: err.Error()}
	}

	o.machine.Load(resp.Summary, resp.Steps)
	return schemas.AgentResponse{Summary: resp.Summary, Steps: resp.Steps}
}

// requestPlan asks the planning service, degrading to the local rule-based
// planner when the service is exhausted. A malformed response or an open
// breaker is surfaced as-is; local planning does not apply there.
func (o *Orchestrator) requestPlan(ctx context.Context, req schemas.PlanRequest) (schemas.PlanResponse, error) {
	resp, err := o.service.RequestPlan(ctx, req)
	if err == nil {
		return resp, nil
	}

	var breakerErr *planclient.BreakerOpenError
	if errors.As(err, &breakerErr) {
		return schemas.PlanResponse{}, breakerErr
	}
	if errors.Is(err, planclient.ErrMalformedPlan) {
		return schemas.PlanResponse{}, err
	}

	o.logger.Warn("planning service exhausted, falling back to rule-based planner", zap.Error(err))
	local, localErr := o.fallback.Plan(ctx, req)
	if localErr != nil {
		return schemas.PlanResponse{}, fmt.Errorf("%v (local fallback also failed: %v)", err, localErr)
	}

	if len(local.Steps) > 0 {
		local.Summary = "[Fallback] " + local.Summary
	} else {
		local.Summary = fmt.Sprintf("Planning service unavailable (%s). %s",
			unavailableReason(err), local.Summary)
	}
	return local, nil
}

// unavailableReason phrases the failure category without leaking raw
// transport errors to the caller.
func unavailableReason(err error) string {
	switch {
	case errors.Is(err, planclient.ErrTimeout):
		return "request timed out"
	case errors.Is(err, planclient.ErrServerError):
		return "service returned an error"
	default:
		return "cannot reach service"
	}
}

// RunNextStep executes one step of the current plan under the safety gate.
func (o *Orchestrator) RunNextStep(ctx context.Context) (schemas.RunNextResult, error) {
	return o.machine.RunNext(ctx)
}

// ConnectionStatus reports the planning backend link state.
func (o *Orchestrator) ConnectionStatus() schemas.ConnectionStatus {
	return o.service.ConnectionStatus()
}

// CheckServerHealth probes the planning backend.
func (o *Orchestrator) CheckServerHealth(ctx context.Context) schemas.HealthStatus {
	return o.service.CheckHealth(ctx)
}

// Plan returns a copy of the current plan for display, or nil when idle.
func (o *Orchestrator) Plan() *schemas.Plan {
	return o.machine.Current()
}

// IsRestricted reports whether the address uses a privileged scheme.
func IsRestricted(url string) bool {
	lowered := strings.ToLower(strings.TrimSpace(url))
	for _, prefix := range restrictedPrefixes {
		if strings.HasPrefix(lowered, prefix) {
			return true
		}
	}
	return false
}
