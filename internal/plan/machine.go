// Package plan owns the current plan and its forward-only execution cursor.
// The machine is the only writer of plan state; callers drive it one
// user-approved step at a time.
package plan

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
)

// Gate vetoes a step against a freshly observed snapshot.
type Gate interface {
	Check(step schemas.Step, snap schemas.PageSnapshot) (blocked bool, reason string)
}

// Executor dispatches one approved step to the environment.
type Executor interface {
	Execute(ctx context.Context, step schemas.Step) error
}

// DoneMessage is returned by RunNext once the plan is exhausted.
const DoneMessage = "done, no steps left"

// Machine is the plan lifecycle state machine. Load replaces the current
// plan wholesale; RunNext executes exactly one step. Only one RunNext may be
// in flight at a time.
type Machine struct {
	observer schemas.Observer
	gate     Gate
	executor Executor
	logger   *zap.Logger

	mu  sync.Mutex // guards current
	run sync.Mutex // in-flight guard, TryLock'd by RunNext

	current *schemas.Plan
}

// NewMachine wires the machine to its collaborators.
func NewMachine(observer schemas.Observer, gate Gate, executor Executor, logger *zap.Logger) *Machine {
	return &Machine{
		observer: observer,
		gate:     gate,
		executor: executor,
		logger:   logger.Named("plan"),
	}
}

// Load unconditionally replaces the current plan and resets the cursor to
// zero. It is always allowed, regardless of prior state.
func (m *Machine) Load(summary string, steps []schemas.Step) *schemas.Plan {
	statuses := make([]schemas.StepStatus, len(steps))
	for i := range statuses {
		statuses[i] = schemas.StatusPending
	}

	p := &schemas.Plan{
		ID:       uuid.New().String(),
		Summary:  summary,
		Steps:    steps,
		Cursor:   0,
		Statuses: statuses,
	}

	m.mu.Lock()
	m.current = p
	m.mu.Unlock()

	m.logger.Info("plan loaded",
		zap.String("plan_id", p.ID),
		zap.Int("steps", len(steps)),
		zap.String("summary", summary))
	return m.snapshotLocked(p)
}

// Current returns a copy of the current plan, or nil when idle.
func (m *Machine) Current() *schemas.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.snapshotLocked(m.current)
}

// RunNext executes the step at the cursor. The step is gated against a
// freshly observed snapshot; a blocked step leaves the cursor unchanged so
// the identical step is re-evaluated on the next call. An executed step
// advances the cursor exactly once whether it completed or failed.
func (m *Machine) RunNext(ctx context.Context) (schemas.RunNextResult, error) {
	if !m.run.TryLock() {
		return schemas.RunNextResult{Message: "another step is already running"}, nil
	}
	defer m.run.Unlock()

	m.mu.Lock()
	p := m.current
	if p == nil || p.Cursor >= len(p.Steps) {
		m.mu.Unlock()
		return schemas.RunNextResult{Done: true, Message: DoneMessage}, nil
	}
	index := p.Cursor
	step := p.Steps[index]
	p.Statuses[index] = schemas.StatusRunning
	m.mu.Unlock()

	snap, err := m.observer.Observe(ctx)
	if err != nil {
		// Observation trouble is transient; the step stays at the cursor
		// and is retried verbatim on the next call.
		m.resetStatus(p, index)
		return schemas.RunNextResult{}, fmt.Errorf("could not observe the page before step %d: %w", index, err)
	}

	if blocked, reason := m.gate.Check(step, snap); blocked {
		m.logger.Info("step blocked by safety gate",
			zap.Int("index", index), zap.String("reason", reason))
		m.resetStatus(p, index)
		return schemas.RunNextResult{Blocked: true, Message: reason}, nil
	}

	execErr := m.executor.Execute(ctx, step)

	m.mu.Lock()
	if execErr != nil {
		p.Statuses[index] = schemas.StatusFailed
	} else {
		p.Statuses[index] = schemas.StatusCompleted
	}
	// Forward-only: a failed step is not auto-retried.
	p.Cursor = index + 1
	done := p.Cursor >= len(p.Steps)
	m.mu.Unlock()

	result := schemas.RunNextResult{RanIndex: &index, Done: done}
	if execErr != nil {
		result.Error = execErr.Error()
		result.Message = fmt.Sprintf("step %d failed: %v", index, execErr)
		m.logger.Warn("step failed", zap.Int("index", index), zap.Error(execErr))
		return result, nil
	}

	result.Message = fmt.Sprintf("step %d completed", index)
	m.logger.Info("step completed", zap.Int("index", index), zap.Bool("done", done))
	return result, nil
}

func (m *Machine) resetStatus(p *schemas.Plan, index int) {
	m.mu.Lock()
	p.Statuses[index] = schemas.StatusPending
	m.mu.Unlock()
}

// snapshotLocked copies a plan so callers cannot mutate machine state.
// Callers must hold m.mu, or p must not yet be shared.
func (m *Machine) snapshotLocked(p *schemas.Plan) *schemas.Plan {
	cp := *p
	cp.Steps = append([]schemas.Step(nil), p.Steps...)
	cp.Statuses = append([]schemas.StepStatus(nil), p.Statuses...)
	return &cp
}
