// Package safety implements the pre-execution gate that refuses steps
// matching heuristic risk patterns. A block is a deliberate refusal, not a
// failure: it consumes nothing and the same step is re-evaluated on the next
// attempt.
package safety

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
	"github.com/zentab/tabagent/internal/config"
)

// defaultRiskWords flags page addresses and step notes that suggest an
// irreversible or high-stakes action.
var defaultRiskWords = []string{
	"pay", "checkout", "purchase", "order", "delete",
	"cancel", "unsubscribe", "send", "publish", "confirm",
}

// defaultSensitiveMarkers flags TYPE targets that would receive credentials.
var defaultSensitiveMarkers = []string{"password", "otp", "2fa"}

// Gate evaluates the next step against the snapshot taken immediately
// before execution; the planning-time snapshot is never consulted because
// the page may have changed in the interim.
type Gate struct {
	riskWords        []string
	sensitiveMarkers []string
	logger           *zap.Logger
}

// NewGate builds a gate from config, falling back to the built-in rule sets
// when the config lists are empty.
func NewGate(cfg config.SafetyConfig, logger *zap.Logger) *Gate {
	riskWords := cfg.RiskWords
	if len(riskWords) == 0 {
		riskWords = defaultRiskWords
	}
	markers := cfg.SensitiveMarkers
	if len(markers) == 0 {
		markers = defaultSensitiveMarkers
	}
	return &Gate{
		riskWords:        riskWords,
		sensitiveMarkers: markers,
		logger:           logger.Named("safety"),
	}
}

// Check returns whether the step must be refused, and a human-readable
// reason when it is.
func (g *Gate) Check(step schemas.Step, snap schemas.PageSnapshot) (bool, string) {
	url := strings.ToLower(snap.URL)
	for _, word := range g.riskWords {
		if strings.Contains(url, word) {
			g.logger.Warn("refusing step on risky page",
				zap.String("url", snap.URL), zap.String("word", word))
			return true, fmt.Sprintf("refusing to act on this page: its address contains %q", word)
		}
	}

	switch step.Tool {
	case schemas.ToolType:
		selector := strings.ToLower(step.Selector)
		for _, marker := range g.sensitiveMarkers {
			if strings.Contains(selector, marker) {
				g.logger.Warn("refusing to type into sensitive field",
					zap.String("selector", step.Selector), zap.String("marker", marker))
				return true, fmt.Sprintf("refusing to type into a field that looks sensitive (%q)", marker)
			}
		}
	case schemas.ToolClick:
		note := strings.ToLower(step.Note)
		for _, word := range g.riskWords {
			if strings.Contains(note, word) {
				g.logger.Warn("refusing risky click",
					zap.String("note", step.Note), zap.String("word", word))
				return true, fmt.Sprintf("refusing a click that looks risky (%q)", word)
			}
		}
	}

	return false, ""
}
