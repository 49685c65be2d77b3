package planner

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
)

// NoMatchSummary is returned when no goal pattern applied. It doubles as the
// usage hint surfaced to the operator.
const NoMatchSummary = "No confident automation plan. Try: 'search <term>', 'click <button text>', or 'scroll down'."

// ScrollDeltaY is the fixed scroll distance for a "scroll down" goal.
const ScrollDeltaY = 900

// RuleBased recognizes a small set of goal patterns (search, scroll, click)
// and plans against the snapshot's candidates. It never fabricates a
// selector that is not drawn from the snapshot.
type RuleBased struct {
	logger *zap.Logger
}

// NewRuleBased returns the built-in heuristic planner.
func NewRuleBased(logger *zap.Logger) *RuleBased {
	return &RuleBased{logger: logger.Named("planner.rule_based")}
}

// Name implements schemas.Planner.
func (p *RuleBased) Name() string { return "rule_based" }

// Plan implements schemas.Planner. Pattern checks are case-insensitive and
// first match wins: search, then scroll, then click.
func (p *RuleBased) Plan(_ context.Context, req schemas.PlanRequest) (schemas.PlanResponse, error) {
	goal := strings.TrimSpace(req.UserRequest)
	goalLower := strings.ToLower(goal)
	candidates := req.Page.Candidates

	switch {
	case strings.Contains(goalLower, "search"):
		return p.planSearch(goal, goalLower, candidates), nil
	case strings.Contains(goalLower, "scroll"),
		strings.Contains(goalLower, "go down"),
		strings.Contains(goalLower, "down"):
		return p.planScroll(), nil
	case strings.HasPrefix(goalLower, "click "):
		return p.planClick(goal, candidates), nil
	}

	p.logger.Debug("no goal pattern matched", zap.String("goal", goal))
	return schemas.PlanResponse{Summary: NoMatchSummary, Steps: []schemas.Step{}}, nil
}

func (p *RuleBased) planSearch(goal, goalLower string, candidates []schemas.Candidate) schemas.PlanResponse {
	// The query is whatever follows the "search" token; an empty remainder
	// falls back to the whole goal. The byte index comes from the lowered
	// goal, which can differ in length from the original, so it is mapped
	// back through rune positions (lowercasing is rune for rune).
	idx := strings.Index(goalLower, "search")
	after := utf8.RuneCountInString(goalLower[:idx]) + len("search")
	query := strings.Trim(string([]rune(goal)[after:]), " :,-")
	if query == "" {
		query = goal
	}

	input := findSearchInput(candidates)
	if input == nil {
		return schemas.PlanResponse{
			Summary: "Could not find a search input on this page.",
			Steps:   []schemas.Step{},
		}
	}

	steps := []schemas.Step{
		{Tool: schemas.ToolClick, Selector: input.Selector, Note: "Focus the search box"},
		{Tool: schemas.ToolType, Selector: input.Selector, Text: query, Note: fmt.Sprintf("Type: %q", query)},
	}

	// A missing submit control is fine; the page's default form submission
	// takes over. Never fabricate one. The input being typed into is not a
	// submit control, so it is excluded from the match.
	if submit := findSubmitControl(withoutSelector(candidates, input.Selector)); submit != nil {
		steps = append(steps, schemas.Step{
			Tool:     schemas.ToolClick,
			Selector: submit.Selector,
			Note:     "Submit search",
		})
	}

	return schemas.PlanResponse{
		Summary: fmt.Sprintf("Planned search for %q.", query),
		Steps:   steps,
	}
}

func (p *RuleBased) planScroll() schemas.PlanResponse {
	return schemas.PlanResponse{
		Summary: "Scrolling down.",
		Steps: []schemas.Step{
			{Tool: schemas.ToolScroll, DeltaY: ScrollDeltaY, Note: "Scroll down"},
		},
	}
}

func (p *RuleBased) planClick(goal string, candidates []schemas.Candidate) schemas.PlanResponse {
	target := strings.TrimSpace(goal[len("click "):])

	btn := findClickable(candidates, target)
	if btn == nil {
		return schemas.PlanResponse{
			Summary: fmt.Sprintf("Could not find element matching %q.", target),
			Steps:   []schemas.Step{},
		}
	}

	return schemas.PlanResponse{
		Summary: fmt.Sprintf("Clicking %q.", target),
		Steps: []schemas.Step{
			{
				Tool:     schemas.ToolClick,
				Selector: btn.Selector,
				Note:     fmt.Sprintf("Click something matching %q", target),
			},
		},
	}
}
