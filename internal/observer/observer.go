// Package observer produces bounded snapshots of the active document: URL,
// title, truncated visible text and a capped list of interactive-element
// candidates with generated selectors.
package observer

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
	"github.com/zentab/tabagent/internal/browser"
	"github.com/zentab/tabagent/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Observer implements schemas.Observer over a live chromedp session.
type Observer struct {
	runner browser.ActionRunner
	cfg    config.ObserverConfig
	logger *zap.Logger
}

// New builds an observer bound to a session.
func New(runner browser.ActionRunner, cfg config.ObserverConfig, logger *zap.Logger) *Observer {
	return &Observer{
		runner: runner,
		cfg:    cfg,
		logger: logger.Named("observer"),
	}
}

var _ schemas.Observer = (*Observer)(nil)

// Observe evaluates the collector script in the page and parses its result.
// The caps are enforced twice: in the script and again here, so a hostile or
// buggy page can never inflate the snapshot.
func (o *Observer) Observe(ctx context.Context) (schemas.PageSnapshot, error) {
	script := collectorScript(o.cfg)

	var raw string
	if err := o.runner.Run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return schemas.PageSnapshot{}, fmt.Errorf("snapshot script failed: %w", err)
	}

	var snap schemas.PageSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return schemas.PageSnapshot{}, fmt.Errorf("snapshot result did not parse: %w", err)
	}

	snap = CapSnapshot(snap, o.cfg)
	o.logger.Debug("observed page",
		zap.String("url", snap.URL),
		zap.Int("candidates", len(snap.Candidates)))
	return snap, nil
}

// Location returns just the document address, without collecting a full
// snapshot. Used for the restricted-origin check that must run before any
// observation or network call.
func (o *Observer) Location(ctx context.Context) (string, error) {
	var url string
	if err := o.runner.Run(ctx, chromedp.Evaluate("location.href", &url)); err != nil {
		return "", fmt.Errorf("could not read page location: %w", err)
	}
	return url, nil
}

// CapSnapshot clamps every bounded field of a snapshot to the configured
// limits, keeping the earliest candidates.
func CapSnapshot(snap schemas.PageSnapshot, cfg config.ObserverConfig) schemas.PageSnapshot {
	snap.Text = clampField(snap.Text, cfg.MaxTextLen)
	if len(snap.Candidates) > cfg.MaxCandidates {
		snap.Candidates = snap.Candidates[:cfg.MaxCandidates]
	}
	for i := range snap.Candidates {
		c := &snap.Candidates[i]
		c.Text = clampField(c.Text, cfg.MaxFieldLen)
		c.AriaLabel = clampField(c.AriaLabel, cfg.MaxFieldLen)
		c.Placeholder = clampField(c.Placeholder, cfg.MaxFieldLen)
		c.Name = clampField(c.Name, cfg.MaxFieldLen)
		c.Type = clampField(c.Type, cfg.MaxFieldLen)
		c.Href = clampField(c.Href, cfg.MaxHrefLen)
	}
	return snap
}

// clampField truncates to at most max bytes, backing off to a rune boundary
// so a clipped multi-byte character never leaves invalid UTF-8 behind.
func clampField(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
