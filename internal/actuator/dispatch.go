package actuator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
)

// StepExecutor adapts a schemas.Actuator to the plan machine's Executor
// contract, with the exhaustive tool dispatch in one place.
type StepExecutor struct {
	act    schemas.Actuator
	logger *zap.Logger
}

// NewStepExecutor wires the dispatcher to an actuator.
func NewStepExecutor(act schemas.Actuator, logger *zap.Logger) *StepExecutor {
	return &StepExecutor{act: act, logger: logger.Named("executor")}
}

// Execute validates the step and dispatches on its tool. A malformed or
// unknown tool never reaches the page.
func (e *StepExecutor) Execute(ctx context.Context, step schemas.Step) error {
	if err := step.Validate(); err != nil {
		return err
	}

	e.logger.Info("executing step",
		zap.String("tool", string(step.Tool)),
		zap.String("selector", step.Selector),
		zap.String("note", step.Note))

	switch step.Tool {
	case schemas.ToolClick:
		return e.act.Click(ctx, step.Selector)
	case schemas.ToolType:
		return e.act.Type(ctx, step.Selector, step.Text)
	case schemas.ToolScroll:
		return e.act.ScrollBy(ctx, step.DeltaY)
	case schemas.ToolNavigate:
		return e.act.Navigate(ctx, step.URL)
	}
	// Validate rejects unknown tools; this is unreachable but keeps the
	// switch honest if a tool is ever added.
	return fmt.Errorf("%w: %q", schemas.ErrUnknownTool, string(step.Tool))
}
