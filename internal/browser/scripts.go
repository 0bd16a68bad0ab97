package browser

import (
	"fmt"

	json "github.com/json-iterator/go"
)

// harvestScript collects visible controls in reading order, tags each with a
// stable id attribute, and reads the page's progress signal.
const harvestScript = `(function(successSelector, progressFn, attr) {
	const visible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') return false;
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	const labelFor = (el) => {
		if (el.labels && el.labels.length) return el.labels[0].innerText;
		return el.getAttribute('aria-label') || el.placeholder || el.innerText || el.value || '';
	};
	const buttonTypes = ['submit', 'button', 'reset', 'image'];
	const seen = new Set();
	const used = new Set();
	const found = [];
	document.querySelectorAll("input, button, select, textarea, a[href], [onclick], [role='button']").forEach((el, i) => {
		if (seen.has(el)) return;
		seen.add(el);
		const type = (el.getAttribute('type') || '').toLowerCase();
		if (type === 'hidden' || !visible(el)) return;

		let id = el.id || el.getAttribute(attr) || '';
		if (!id && type === 'radio' && el.name) id = el.name + '_' + el.value;
		if (!id) id = el.name || (el.tagName.toLowerCase() + '_' + i);
		let unique = id;
		for (let n = 2; used.has(unique); n++) unique = id + '_' + n;
		used.add(unique);
		el.setAttribute(attr, unique);

		const tag = el.tagName.toLowerCase();
		const valued = (tag === 'input' && !buttonTypes.includes(type)) || tag === 'textarea' || tag === 'select';
		const r = el.getBoundingClientRect();
		found.push({top: r.top + window.scrollY, left: r.left + window.scrollX, raw: {
			id: unique,
			tag: tag,
			type: type,
			role: el.getAttribute('role') || '',
			label: String(labelFor(el) || '').trim().slice(0, 80),
			required: !!el.required || el.getAttribute('aria-required') === 'true',
			disabled: !!el.disabled,
			readOnly: !!el.readOnly,
			value: valued ? String(el.value || '') : '',
			checked: !!el.checked,
			options: tag === 'select' ? Array.from(el.options).map((o) => o.value) : [],
			clicky: el.hasAttribute('onclick'),
		}});
	});
	found.sort((a, b) => (a.top - b.top) || (a.left - b.left));

	const progress = {completion: 0, complete: false, success: false, aux: {}};
	const panel = successSelector ? document.querySelector(successSelector) : null;
	if (panel && visible(panel)) {
		progress.completion = 100;
		progress.complete = true;
		progress.success = true;
	} else if (progressFn && typeof window[progressFn] === 'function') {
		try {
			const st = window[progressFn]() || {};
			progress.completion = Number(st.progress) || 0;
			progress.complete = !!st.isComplete;
			progress.aux = st.values || {};
		} catch (e) {}
	}
	return {elements: found.map((f) => f.raw), progress: progress};
})(%s, %s, %s)`

// signatureScript summarises everything a training step can change. Two
// equal signatures mean the surface did not move in between.
const signatureScript = `(function() {
	const parts = [document.readyState, document.body ? document.body.innerHTML.length : 0];
	document.querySelectorAll('input, select, textarea').forEach((el) => {
		parts.push(el.value, el.checked ? 1 : 0, el.disabled ? 1 : 0);
	});
	return parts.join('\u0001');
})()`

// probeScript re-reads a single control right before it is acted on.
const probeScript = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el) return {found: false};
	return {found: true, enabled: !el.disabled && !el.readOnly, value: String(el.value || ''), checked: !!el.checked};
})(%s)`

// clearScript empties a text control and lets frameworks see the change.
const clearScript = `(function(sel) {
	const el = document.querySelector(sel);
	if (!el || el.disabled || el.readOnly) return false;
	el.value = '';
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})(%s)`

// selectScript sets a dropdown's value and fires the events a user
// selection would.
const selectScript = `(function(sel, value) {
	const el = document.querySelector(sel);
	if (!el || el.disabled) return false;
	el.value = value;
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return el.value === value;
})(%s, %s)`

type probeResult struct {
	Found   bool   `json:"found"`
	Enabled bool   `json:"enabled"`
	Value   string `json:"value"`
	Checked bool   `json:"checked"`
}

// script fills a template with JSON-encoded arguments.
func script(tmpl string, args ...any) string {
	encoded := make([]any, len(args))
	for i, a := range args {
		encoded[i] = jsonEncode(a)
	}
	return fmt.Sprintf(tmpl, encoded...)
}

func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}
