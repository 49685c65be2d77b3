// Package planner implements the rule-based candidate-matching planner. It
// maps free-text goal fragments onto interactive page elements by keyword
// scoring, without invoking any model.
package planner

import (
	"strings"

	"github.com/zentab/tabagent/api/schemas"
)

// Scoring weights. A keyword substring hit is worth two points; well-labeled
// elements get one presence point per labeled field so they beat anonymous
// ones on ties.
const (
	keywordWeight  = 2
	presenceWeight = 1
)

// bestMatch returns the highest-scoring candidate whose tag is in
// allowedTags, or nil. A candidate only qualifies if at least one keyword
// matched its text fields; presence bonuses alone are never enough. Ties go
// to the earlier candidate in document order.
func bestMatch(candidates []schemas.Candidate, allowedTags map[string]bool, keywords []string) *schemas.Candidate {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			normalized = append(normalized, k)
		}
	}
	if len(normalized) == 0 {
		return nil
	}

	var best *schemas.Candidate
	bestScore := -1

	for i := range candidates {
		c := &candidates[i]
		if !allowedTags[strings.ToLower(c.Tag)] {
			continue
		}

		haystack := strings.ToLower(strings.Join([]string{
			c.Text, c.AriaLabel, c.Placeholder, c.Name, c.Href,
		}, " "))

		hits := 0
		for _, k := range normalized {
			if strings.Contains(haystack, k) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}

		score := hits * keywordWeight
		if c.AriaLabel != "" {
			score += presenceWeight
		}
		if c.Placeholder != "" {
			score += presenceWeight
		}
		if c.Text != "" {
			score += presenceWeight
		}

		if score > bestScore {
			bestScore = score
			best = c
		}
	}

	return best
}

var (
	inputTags     = map[string]bool{"input": true, "textarea": true}
	clickableTags = map[string]bool{"button": true, "a": true, "input": true}

	searchInputKeywords = []string{"search", "q", "query", "find", "looking for"}
	submitKeywords      = []string{"search", "submit", "go", "find"}
)

// withoutSelector filters out candidates carrying the given selector.
func withoutSelector(candidates []schemas.Candidate, selector string) []schemas.Candidate {
	filtered := make([]schemas.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Selector != selector {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// findSearchInput locates a search-like input or textarea.
func findSearchInput(candidates []schemas.Candidate) *schemas.Candidate {
	return bestMatch(candidates, inputTags, searchInputKeywords)
}

// findSubmitControl locates a control that submits a search.
func findSubmitControl(candidates []schemas.Candidate) *schemas.Candidate {
	return bestMatch(candidates, clickableTags, submitKeywords)
}

// findClickable locates a clickable element matching the target label.
func findClickable(candidates []schemas.Candidate, target string) *schemas.Candidate {
	return bestMatch(candidates, clickableTags, []string{target})
}
