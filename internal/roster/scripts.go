package roster

// badgeCountScript reads the numeric badge rendered near the roster
// button. Returns 0 when no badge is visible.
const badgeCountScript = `() => {
	const peopleButton = Array.from(document.querySelectorAll('button')).find(btn => {
		const label = (btn.getAttribute('aria-label') || '').toLowerCase();
		return label.includes('people') || label.includes('show everyone');
	});
	if (peopleButton) {
		const parent = peopleButton.parentElement;
		if (parent) {
			for (const badge of parent.querySelectorAll('span, div')) {
				const text = (badge.textContent || '').trim();
				if (/^\d+$/.test(text)) return parseInt(text, 10);
			}
		}
		const label = peopleButton.getAttribute('aria-label') || '';
		const m = label.match(/\d+/);
		if (m) return parseInt(m[0], 10);
	}
	return 0;
}`

// rosterScrapeScript collects roster candidates from list items inside
// the people panel: self-name data attributes first, then auto-direction
// text nodes, then the row's first text line. Rows carrying obvious UI
// chrome are skipped; the Go-side validator does the strict filtering.
const rosterScrapeScript = `() => {
	const participants = [];
	const seen = new Set();
	const youPattern = /\s*\(you\)$/i;
	const uiIndicators = ['backgrounds and effects', 'your microphone is off',
		'your camera is off', 'settings', 'more options', 'add people', 'search for people'];

	const push = (raw, source) => {
		const originalName = (raw || '').trim();
		if (!originalName) return;
		let name = originalName;
		let isBot = false;
		if (youPattern.test(name)) {
			name = name.replace(youPattern, '').trim();
			isBot = true;
		}
		if (name.length < 2) return;
		const key = name.toLowerCase();
		if (seen.has(key)) return;
		seen.add(key);
		participants.push({ name, originalName, isBot, source });
	};

	const scrapeItem = (item, source) => {
		const text = item.innerText || item.textContent || '';
		if (!text || text.trim().length < 2) return;
		const lower = text.toLowerCase();
		if (uiIndicators.some(u => lower.includes(u))) return;

		const selfEl = item.querySelector('[data-self-name]');
		if (selfEl && selfEl.getAttribute('data-self-name')) {
			push(selfEl.getAttribute('data-self-name'), source);
			return;
		}
		const span = item.querySelector('span[dir="auto"]') || item.querySelector('div[dir="auto"]');
		if (span && (span.innerText || span.textContent)) {
			push(span.innerText || span.textContent, source);
			return;
		}
		const labelled = item.querySelector('[aria-label]');
		if (labelled && labelled.getAttribute('aria-label')) {
			push(labelled.getAttribute('aria-label'), source);
			return;
		}
		const lines = text.split('\n').map(l => l.trim()).filter(l => l);
		if (lines.length > 0) push(lines[0], source);
	};

	const section = Array.from(document.querySelectorAll('div, section')).find(el => {
		const t = (el.textContent || '').toUpperCase();
		return t.includes('CONTRIBUTORS') || t.includes('IN THE MEETING');
	});
	if (section) {
		section.querySelectorAll('[role="listitem"]').forEach(item =>
			scrapeItem(item, 'contributors-section'));
	}
	if (participants.length === 0) {
		document.querySelectorAll('[role="listitem"]').forEach(item =>
			scrapeItem(item, 'listitem'));
	}
	return participants;
}`
