package schemas

// -- Planning backend wire contract --
//
// The orchestrator speaks this contract to any planning backend, local or
// remote; a 2xx with a PlanResponse body is success, anything else is a
// retryable failure.

// PlanRequest asks a planning backend for a step sequence toward a goal.
type PlanRequest struct {
	UserRequest       string       `json:"userRequest"`
	Page              PageSnapshot `json:"page"`
	ScreenshotDataURL string       `json:"screenshotDataUrl,omitempty"`
	Provider          string       `json:"provider,omitempty"`
}

// PlanResponse is the backend's answer. Steps is empty when no confident
// plan exists; Error is set only when planning itself failed.
type PlanResponse struct {
	Summary string `json:"summary"`
	Steps   []Step `json:"steps"`
	Error   string `json:"error,omitempty"`
}

// -- Orchestrator message contract --
//
// These are the request/response shapes the orchestrator exposes to its UI
// caller.

// AgentRequest carries the user's free-text goal. It triggers observation,
// planning and a plan load.
type AgentRequest struct {
	Text string `json:"text"`
}

// AgentResponse reports the loaded plan, or an error explaining why no plan
// was loaded.
type AgentResponse struct {
	Summary string `json:"summary"`
	Steps   []Step `json:"steps"`
	Error   string `json:"error,omitempty"`
}

// RunNextResult reports the outcome of one RUN_NEXT_STEP message.
//
// A safety block is a refusal, not a failure: Blocked is set, RanIndex is
// nil and the same step will be re-evaluated on the next call. A true
// execution failure sets Error, consumes the step and advances the cursor.
type RunNextResult struct {
	RanIndex *int   `json:"ranIndex,omitempty"`
	Message  string `json:"message,omitempty"`
	Done     bool   `json:"done"`
	Blocked  bool   `json:"blocked,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ConnectionStatus describes the planning backend link. It is derived from
// the most recent network attempt or health probe, never set directly.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// HealthStatus is the response to CHECK_SERVER_HEALTH.
type HealthStatus struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
}
