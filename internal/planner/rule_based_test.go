package planner

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
)

func newTestPlanner() *RuleBased {
	return NewRuleBased(zap.NewNop())
}

func planFor(t *testing.T, goal string, candidates []schemas.Candidate) schemas.PlanResponse {
	t.Helper()
	resp, err := newTestPlanner().Plan(context.Background(), schemas.PlanRequest{
		UserRequest: goal,
		Page: schemas.PageSnapshot{
			URL:        "https://example.com",
			Title:      "Example",
			Candidates: candidates,
		},
	})
	require.NoError(t, err)
	return resp
}

func TestPlanSearch(t *testing.T) {
	t.Parallel()
	candidates := []schemas.Candidate{
		{Selector: "#q", Tag: "input", Placeholder: "Search"},
		{Selector: "#btn", Tag: "button", Text: "Search"},
	}

	resp := planFor(t, "search cats", candidates)

	assert.Equal(t, `Planned search for "cats".`, resp.Summary)
	want := []schemas.Step{
		{Tool: schemas.ToolClick, Selector: "#q", Note: "Focus the search box"},
		{Tool: schemas.ToolType, Selector: "#q", Text: "cats", Note: `Type: "cats"`},
		{Tool: schemas.ToolClick, Selector: "#btn", Note: "Submit search"},
	}
	if diff := cmp.Diff(want, resp.Steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanSearchWithoutSubmitControl(t *testing.T) {
	t.Parallel()
	candidates := []schemas.Candidate{
		{Selector: "#q", Tag: "input", Placeholder: "Search"},
	}

	resp := planFor(t, "search dogs", candidates)

	// No submit control found; default form submission takes over rather
	// than fabricating a selector.
	require.Len(t, resp.Steps, 2)
	assert.Equal(t, schemas.ToolClick, resp.Steps[0].Tool)
	assert.Equal(t, schemas.ToolType, resp.Steps[1].Tool)
	assert.Equal(t, "dogs", resp.Steps[1].Text)
}

func TestPlanSearchNonASCIIGoal(t *testing.T) {
	t.Parallel()
	candidates := []schemas.Candidate{
		{Selector: "#q", Tag: "input", Placeholder: "Search"},
	}

	// Lowercasing can change a goal's byte length (U+023A grows, the Kelvin
	// sign shrinks), so query extraction must not reuse byte offsets from
	// the lowered goal.
	cases := []struct {
		name string
		goal string
		want string
	}{
		{"byte-growing prefix", "Ⱥ search cats", "cats"},
		{"byte-shrinking prefix", "K search cats", "cats"},
		{"non-ascii query kept verbatim", "search Ⱥcats", "Ⱥcats"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resp := planFor(t, tc.goal, candidates)
			require.Len(t, resp.Steps, 2)
			assert.Equal(t, tc.want, resp.Steps[1].Text)
		})
	}
}

func TestPlanSearchQueryFallsBackToGoal(t *testing.T) {
	t.Parallel()
	candidates := []schemas.Candidate{
		{Selector: "#q", Tag: "input", Placeholder: "Search"},
	}

	resp := planFor(t, "search", candidates)

	require.Len(t, resp.Steps, 2)
	assert.Equal(t, "search", resp.Steps[1].Text)
}

func TestPlanSearchNoInput(t *testing.T) {
	t.Parallel()
	resp := planFor(t, "search cats", nil)

	assert.Equal(t, "Could not find a search input on this page.", resp.Summary)
	assert.Empty(t, resp.Steps)
}

func TestPlanScroll(t *testing.T) {
	t.Parallel()
	resp := planFor(t, "scroll down", nil)

	assert.Equal(t, "Scrolling down.", resp.Summary)
	want := []schemas.Step{
		{Tool: schemas.ToolScroll, DeltaY: 900, Note: "Scroll down"},
	}
	if diff := cmp.Diff(want, resp.Steps); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanClick(t *testing.T) {
	t.Parallel()
	candidates := []schemas.Candidate{
		{Selector: "#btn1", Tag: "button", Text: "Sign In"},
	}

	resp := planFor(t, "click Sign in", candidates)

	assert.Equal(t, `Clicking "Sign in".`, resp.Summary)
	require.Len(t, resp.Steps, 1)
	assert.Equal(t, schemas.ToolClick, resp.Steps[0].Tool)
	assert.Equal(t, "#btn1", resp.Steps[0].Selector)
}

func TestPlanClickNotFound(t *testing.T) {
	t.Parallel()
	resp := planFor(t, "click Missing", nil)

	assert.Equal(t, `Could not find element matching "Missing".`, resp.Summary)
	assert.Empty(t, resp.Steps)
}

func TestPlanNoPatternMatched(t *testing.T) {
	t.Parallel()
	resp := planFor(t, "make me a sandwich", nil)

	assert.Equal(t, NoMatchSummary, resp.Summary)
	assert.Empty(t, resp.Steps)
}

func TestPlanPatternPriorityOrder(t *testing.T) {
	t.Parallel()
	// "search" wins over "down" when both appear.
	candidates := []schemas.Candidate{
		{Selector: "#q", Tag: "input", Placeholder: "Search"},
	}
	resp := planFor(t, "search down jackets", candidates)
	require.NotEmpty(t, resp.Steps)
	assert.Equal(t, schemas.ToolClick, resp.Steps[0].Tool)
}
