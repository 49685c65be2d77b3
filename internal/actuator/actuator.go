// Package actuator dispatches approved steps to the live page via
// chromedp. Before a click or type it polls until the target selector is
// visible and interactable, accommodating asynchronously rendered content.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
	"github.com/zentab/tabagent/internal/browser"
	"github.com/zentab/tabagent/internal/config"
)

// ErrNotInteractable is returned when the wait budget elapses without the
// selector becoming visible and interactable. The action is not retried
// internally; the step is a terminal failure.
var ErrNotInteractable = errors.New("element not found or not interactable")

// Actuator implements schemas.Actuator over a chromedp session.
type Actuator struct {
	runner browser.ActionRunner
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// New builds an actuator bound to a session.
func New(runner browser.ActionRunner, cfg config.BrowserConfig, logger *zap.Logger) *Actuator {
	return &Actuator{
		runner: runner,
		cfg:    cfg,
		logger: logger.Named("actuator"),
	}
}

var _ schemas.Actuator = (*Actuator)(nil)

// Click waits for the selector and clicks it.
func (a *Actuator) Click(ctx context.Context, selector string) error {
	if err := a.waitInteractable(ctx, selector); err != nil {
		return err
	}
	return a.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// Type waits for the selector, focuses it and types the text.
func (a *Actuator) Type(ctx context.Context, selector, text string) error {
	if err := a.waitInteractable(ctx, selector); err != nil {
		return err
	}
	return a.run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// ScrollBy scrolls the window vertically by deltaY pixels.
func (a *Actuator) ScrollBy(ctx context.Context, deltaY int) error {
	script := fmt.Sprintf("window.scrollBy(0, %d)", deltaY)
	return a.run(ctx, chromedp.Evaluate(script, nil))
}

// Navigate loads the URL and gives the page a moment to settle.
func (a *Actuator) Navigate(ctx context.Context, url string) error {
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if a.cfg.NavigateWait > 0 {
		actions = append(actions, chromedp.Sleep(a.cfg.NavigateWait))
	}
	return a.run(ctx, actions...)
}

func (a *Actuator) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(ctx, a.cfg.ActionTimeout)
	defer cancel()
	return a.runner.Run(opCtx, actions...)
}

// waitInteractable polls the page at a fixed interval until an element
// matching the selector is visible, enabled and accepts pointer events, or
// the wait budget runs out.
func (a *Actuator) waitInteractable(ctx context.Context, selector string) error {
	deadline := time.Now().Add(a.cfg.WaitTimeout)
	script := interactableScript(selector)

	for {
		var ok bool
		err := a.runner.Run(ctx, chromedp.Evaluate(script, &ok))
		if err == nil && ok {
			return nil
		}
		if err != nil {
			a.logger.Debug("interactable probe failed", zap.String("selector", selector), zap.Error(err))
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %q after %s", ErrNotInteractable, selector, a.cfg.WaitTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(a.cfg.WaitPoll):
		}
	}
}

// interactableScript builds the per-selector probe. Interactable means
// attached, visibly rendered, not disabled and receiving pointer events.
func interactableScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	if (el.disabled) return false;
	const rect = el.getBoundingClientRect();
	if (rect.width === 0 || rect.height === 0) return false;
	const style = window.getComputedStyle(el);
	return style.display !== 'none' &&
		style.visibility !== 'hidden' &&
		style.opacity !== '0' &&
		style.pointerEvents !== 'none';
})()`, selector)
}
