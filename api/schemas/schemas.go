// Package schemas defines the data model shared by the observer, planners,
// the plan state machine and the planning wire protocol. Everything here is
// plain data; behavior lives in the internal packages.
package schemas

import (
	"errors"
	"fmt"
)

// Bounds applied to every snapshot regardless of document size.
const (
	// MaxCandidates caps the number of interactive elements kept per
	// snapshot, first-discovered-first-kept.
	MaxCandidates = 60
	// MaxPageTextLen caps the visible page text carried in a snapshot.
	MaxPageTextLen = 40000
	// MaxFieldLen caps text-like candidate fields (text, ariaLabel, ...).
	MaxFieldLen = 80
	// MaxHrefLen caps link targets, which are useful at slightly greater
	// length than labels.
	MaxHrefLen = 120
)

// Candidate is a bounded description of one interactive page element. It is
// produced fresh on every observation and never mutated afterward.
type Candidate struct {
	Selector    string `json:"selector"`
	Tag         string `json:"tag"`
	Text        string `json:"text,omitempty"`
	AriaLabel   string `json:"ariaLabel,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	Href        string `json:"href,omitempty"`
}

// PageSnapshot is a bounded, point-in-time description of the active
// document: address, title, truncated visible text and the interactive
// candidates, in document order.
type PageSnapshot struct {
	URL        string      `json:"url"`
	Title      string      `json:"title"`
	Text       string      `json:"text"`
	Candidates []Candidate `json:"candidates"`
}

// Tool identifies the operation a Step performs.
type Tool string

const (
	ToolClick    Tool = "CLICK"
	ToolType     Tool = "TYPE"
	ToolScroll   Tool = "SCROLL"
	ToolNavigate Tool = "NAVIGATE"
)

// Step is one atomic action. Tool selects the variant; only the fields
// relevant to that variant are set. Validate enforces the per-variant
// required fields.
type Step struct {
	Tool     Tool   `json:"tool"`
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
	DeltaY   int    `json:"deltaY,omitempty"`
	URL      string `json:"url,omitempty"`
	Note     string `json:"note,omitempty"`
}

// ErrUnknownTool is returned when a step carries a tool tag outside the
// CLICK/TYPE/SCROLL/NAVIGATE set, e.g. from a malformed backend response.
var ErrUnknownTool = errors.New("unknown step tool")

// Validate checks that the step's required fields are non-empty for its tool.
func (s Step) Validate() error {
	switch s.Tool {
	case ToolClick:
		if s.Selector == "" {
			return fmt.Errorf("CLICK step requires a selector")
		}
	case ToolType:
		if s.Selector == "" {
			return fmt.Errorf("TYPE step requires a selector")
		}
	case ToolScroll:
		if s.DeltaY == 0 {
			return fmt.Errorf("SCROLL step requires a non-zero deltaY")
		}
	case ToolNavigate:
		if s.URL == "" {
			return fmt.Errorf("NAVIGATE step requires a url")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTool, string(s.Tool))
	}
	return nil
}

// StepStatus tracks the lifecycle of a single plan step. Statuses move
// pending -> running -> completed|failed and are never reset.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
)

// Plan is an ordered step sequence plus a forward-only cursor. A new plan
// always replaces the old one wholesale; plans are never merged.
type Plan struct {
	ID       string       `json:"id"`
	Summary  string       `json:"summary"`
	Steps    []Step       `json:"steps"`
	Cursor   int          `json:"cursor"`
	Statuses []StepStatus `json:"statuses"`
}

// Exhausted reports whether every step has been visited.
func (p *Plan) Exhausted() bool {
	return p == nil || p.Cursor >= len(p.Steps)
}
