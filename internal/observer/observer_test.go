package observer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zentab/tabagent/api/schemas"
	"github.com/zentab/tabagent/internal/config"
)

func testObserverConfig() config.ObserverConfig {
	return config.ObserverConfig{
		MaxCandidates:  60,
		MaxTextLen:     40000,
		MaxFieldLen:    80,
		MaxHrefLen:     120,
		AncestorLevels: 4,
		MinBoxSize:     2,
	}
}

type failingRunner struct{ err error }

func (r failingRunner) Run(context.Context, ...chromedp.Action) error { return r.err }

func TestObserveRunnerFailure(t *testing.T) {
	t.Parallel()
	o := New(failingRunner{err: errors.New("target closed")}, testObserverConfig(), zap.NewNop())

	_, err := o.Observe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot script failed")

	_, err = o.Location(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not read page location")
}

func TestCapSnapshotCandidateCount(t *testing.T) {
	t.Parallel()
	cfg := testObserverConfig()
	cfg.MaxCandidates = 3

	snap := schemas.PageSnapshot{URL: "https://example.com"}
	for i := 0; i < 10; i++ {
		snap.Candidates = append(snap.Candidates, schemas.Candidate{
			Selector: "a:nth-of-type(" + string(rune('1'+i)) + ")",
			Tag:      "a",
		})
	}

	capped := CapSnapshot(snap, cfg)
	require.Len(t, capped.Candidates, 3)
	// First discovered, first kept.
	assert.Equal(t, "a:nth-of-type(1)", capped.Candidates[0].Selector)
	assert.Equal(t, "a:nth-of-type(3)", capped.Candidates[2].Selector)
}

func TestCapSnapshotFieldLengths(t *testing.T) {
	t.Parallel()
	cfg := testObserverConfig()
	cfg.MaxTextLen = 100
	cfg.MaxFieldLen = 8
	cfg.MaxHrefLen = 16

	long := strings.Repeat("x", 200)
	snap := schemas.PageSnapshot{
		Text: long,
		Candidates: []schemas.Candidate{{
			Selector:    "#a",
			Tag:         "a",
			Text:        long,
			AriaLabel:   long,
			Placeholder: long,
			Name:        long,
			Type:        long,
			Href:        long,
		}},
	}

	capped := CapSnapshot(snap, cfg)
	assert.Len(t, capped.Text, 100)
	c := capped.Candidates[0]
	assert.Len(t, c.Text, 8)
	assert.Len(t, c.AriaLabel, 8)
	assert.Len(t, c.Placeholder, 8)
	assert.Len(t, c.Name, 8)
	assert.Len(t, c.Type, 8)
	assert.Len(t, c.Href, 16)
	// Selectors are never truncated; a clipped selector would match nothing.
	assert.Equal(t, "#a", c.Selector)
}

func TestCapSnapshotKeepsValidUTF8(t *testing.T) {
	t.Parallel()
	cfg := testObserverConfig()
	cfg.MaxTextLen = 7
	cfg.MaxFieldLen = 7

	// "é" is two bytes, so a byte cap of 7 lands mid-rune; truncation must
	// back off to the boundary instead of emitting a broken sequence.
	accented := strings.Repeat("é", 10)
	snap := schemas.PageSnapshot{
		Text: accented,
		Candidates: []schemas.Candidate{
			{Selector: "#a", Tag: "a", Text: accented, AriaLabel: accented},
		},
	}

	capped := CapSnapshot(snap, cfg)
	assert.True(t, utf8.ValidString(capped.Text))
	assert.Equal(t, strings.Repeat("é", 3), capped.Text)
	c := capped.Candidates[0]
	assert.True(t, utf8.ValidString(c.Text))
	assert.True(t, utf8.ValidString(c.AriaLabel))
	assert.LessOrEqual(t, len(c.Text), 7)
}

func TestCapSnapshotLeavesSmallSnapshotsAlone(t *testing.T) {
	t.Parallel()
	snap := schemas.PageSnapshot{
		URL:   "https://example.com",
		Title: "Example",
		Text:  "hello",
		Candidates: []schemas.Candidate{
			{Selector: "#q", Tag: "input", Placeholder: "Search"},
		},
	}

	capped := CapSnapshot(snap, testObserverConfig())
	assert.Equal(t, snap, capped)
}

func TestCollectorScriptRendersBounds(t *testing.T) {
	t.Parallel()
	cfg := config.ObserverConfig{
		MaxCandidates:  7,
		MaxTextLen:     1234,
		MaxFieldLen:    21,
		MaxHrefLen:     42,
		AncestorLevels: 3,
		MinBoxSize:     5,
	}

	script := collectorScript(cfg)
	assert.Contains(t, script, "const MIN_BOX = 5;")
	assert.Contains(t, script, "const MAX_CANDIDATES = 7;")
	assert.Contains(t, script, "const MAX_FIELD = 21;")
	assert.Contains(t, script, "const MAX_HREF = 42;")
	assert.Contains(t, script, "const MAX_TEXT = 1234;")
	assert.Contains(t, script, "const ANCESTOR_LEVELS = 3;")
	// No format verbs left behind.
	assert.NotContains(t, script, "%d")
	assert.NotContains(t, script, "%!")
}
