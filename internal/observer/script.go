package observer

import (
	"fmt"

	"github.com/zentab/tabagent/internal/config"
)

// collectorScript renders the in-page collector with the configured bounds
// baked in. The script returns a JSON string so the Go side can parse it
// with one unmarshal.
//
// Selector generation prefers attributes that survive re-renders: a stable
// id first, then name, aria-label and placeholder forms, and only then a
// positional nth-of-type path over a bounded number of ancestors.
func collectorScript(cfg config.ObserverConfig) string {
	return fmt.Sprintf(collectorTemplate,
		cfg.MinBoxSize,
		cfg.MaxCandidates,
		cfg.MaxFieldLen,
		cfg.MaxHrefLen,
		cfg.MaxTextLen,
		cfg.AncestorLevels,
	)
}

const collectorTemplate = `(() => {
	const MIN_BOX = %d;
	const MAX_CANDIDATES = %d;
	const MAX_FIELD = %d;
	const MAX_HREF = %d;
	const MAX_TEXT = %d;
	const ANCESTOR_LEVELS = %d;

	function clip(value, max) {
		if (!value) return '';
		const cleaned = String(value).replace(/\s+/g, ' ').trim();
		return cleaned.length > max ? cleaned.slice(0, max) : cleaned;
	}

	function isVisible(el) {
		if (!el.getBoundingClientRect) return false;
		const rect = el.getBoundingClientRect();
		if (rect.width < MIN_BOX || rect.height < MIN_BOX) return false;
		if (rect.bottom < 0 || rect.right < 0 ||
			rect.top > window.innerHeight || rect.left > window.innerWidth) {
			return false;
		}
		const style = window.getComputedStyle(el);
		return style.display !== 'none' &&
			style.visibility !== 'hidden' &&
			style.opacity !== '0';
	}

	function attrSelector(tag, attr, value) {
		return tag + '[' + attr + '="' + value.replace(/"/g, '\\"') + '"]';
	}

	function positionalSelector(el) {
		const parts = [];
		let cur = el;
		for (let depth = 0; cur && cur !== document.body && depth <= ANCESTOR_LEVELS; depth++) {
			let k = 1;
			let sib = cur;
			while ((sib = sib.previousElementSibling)) {
				if (sib.tagName === cur.tagName) k++;
			}
			parts.unshift(cur.tagName.toLowerCase() + ':nth-of-type(' + k + ')');
			cur = cur.parentElement;
		}
		return parts.join(' ');
	}

	function selectorFor(el) {
		const tag = el.tagName.toLowerCase();
		if (el.id) return '#' + CSS.escape(el.id);
		const name = el.getAttribute('name');
		if (name) return attrSelector(tag, 'name', name);
		const aria = el.getAttribute('aria-label');
		if (aria) return attrSelector(tag, 'aria-label', aria);
		const placeholder = el.getAttribute('placeholder');
		if (placeholder) return attrSelector(tag, 'placeholder', placeholder);
		return positionalSelector(el);
	}

	const interactive = document.querySelectorAll(
		'a, button, input, textarea, select, [role="button"]');
	const candidates = [];
	for (const el of interactive) {
		if (candidates.length >= MAX_CANDIDATES) break;
		if (!isVisible(el)) continue;
		candidates.push({
			selector: selectorFor(el),
			tag: el.tagName.toLowerCase(),
			text: clip(el.innerText || el.textContent, MAX_FIELD),
			ariaLabel: clip(el.getAttribute('aria-label'), MAX_FIELD),
			placeholder: clip(el.getAttribute('placeholder'), MAX_FIELD),
			name: clip(el.getAttribute('name'), MAX_FIELD),
			type: clip(el.getAttribute('type'), MAX_FIELD),
			href: clip(el.getAttribute('href'), MAX_HREF),
		});
	}

	return JSON.stringify({
		url: location.href,
		title: document.title,
		text: clip(document.body ? document.body.innerText : '', MAX_TEXT),
		candidates: candidates,
	});
})()`
