package browser

// overlayID is the DOM id of the injected badge container. The snapshot and
// clear scripts must agree on it.
const overlayID = "__tabpilot_overlay__"

// snapshotScript walks the page for interactable elements, tags each with a
// sequential data-agent-id, draws the red numbered badges, and returns the
// element listing. Runs inside the page via Evaluate.
const snapshotScript = `() => {
    try {
        const OVERLAY_ID = '` + overlayID + `';
        const MAX_ELEMENTS = 400;

        const oldOverlay = document.getElementById(OVERLAY_ID);
        if (oldOverlay) oldOverlay.remove();
        document.querySelectorAll('[data-agent-id]').forEach(el => el.removeAttribute('data-agent-id'));

        const viewportHeight = window.innerHeight;
        const viewportWidth = window.innerWidth;

        const isVisible = (el, rect) => {
            try {
                const style = window.getComputedStyle(el);
                if (style.visibility === 'hidden' || style.display === 'none' || style.pointerEvents === 'none') return false;
                if (rect.width < 3 || rect.height < 3) return false;
                const buffer = viewportHeight * 0.5;
                if (rect.bottom < -buffer || rect.top > viewportHeight + buffer) return false;
                if (rect.right < 0 || rect.left > viewportWidth) return false;
                return true;
            } catch (e) {
                return false;
            }
        };

        const getLabel = (el) => {
            let label = el.getAttribute('aria-label') ||
                        el.getAttribute('placeholder') ||
                        el.title || el.value || "";
            if (!label && (el.isContentEditable || el.getAttribute('contenteditable') === 'true')) label = "[editable]";
            if (!label) label = el.innerText.replace(/\s+/g, ' ').trim();
            return label.substring(0, 50);
        };

        if (!document.body) throw new Error("page has no body element");

        const overlay = document.createElement('div');
        overlay.id = OVERLAY_ID;
        Object.assign(overlay.style, {
            position: 'fixed', top: '0', left: '0',
            width: '100vw', height: '100vh',
            zIndex: '2147483647', pointerEvents: 'none'
        });
        document.body.appendChild(overlay);

        const selector = 'a, button, input, textarea, select, details, summary, [contenteditable="true"], [role="button"], [role="link"], [onclick], [tabindex], div, span';
        const potentialElements = document.querySelectorAll(selector);

        const validEntries = [];
        let count = 0;

        for (let i = 0; i < potentialElements.length; i++) {
            if (count >= MAX_ELEMENTS) break;
            const el = potentialElements[i];
            try {
                const rect = el.getBoundingClientRect();
                if (!isVisible(el, rect)) continue;

                const tagName = el.tagName.toLowerCase();
                if (['div', 'span'].includes(tagName)) {
                    const style = window.getComputedStyle(el);
                    const hasPointer = style.cursor === 'pointer';
                    const hasClick = el.getAttribute('onclick') || el.getAttribute('role') || el.getAttribute('tabindex');
                    const isEditable = el.isContentEditable;
                    if (!hasPointer && !hasClick && !isEditable && !getLabel(el)) continue;
                }

                let label = getLabel(el);
                const isInput = ['input', 'textarea', 'select'].includes(tagName) || el.isContentEditable;
                if (!label && !isInput) {
                    if (el.querySelector('img, svg')) label = "[icon]";
                    else continue;
                }

                validEntries.push({ el, rect, label: label || (isInput ? "[input]" : "[click]") });
                count++;
            } catch (innerError) {
                continue;
            }
        }

        const elementMap = [];
        validEntries.forEach((entry, index) => {
            const { el, rect, label } = entry;
            const id = index + 1;
            el.setAttribute('data-agent-id', id);

            const box = document.createElement('div');
            Object.assign(box.style, {
                position: 'absolute',
                top: rect.top + 'px', left: rect.left + 'px',
                width: rect.width + 'px', height: rect.height + 'px',
                border: '2px solid #ff4757', borderRadius: '4px',
                boxSizing: 'border-box'
            });
            overlay.appendChild(box);

            const tag = document.createElement('div');
            tag.innerText = id;
            Object.assign(tag.style, {
                position: 'absolute',
                top: rect.top + 'px', left: rect.left + 'px',
                transform: 'translateY(-100%)',
                backgroundColor: '#ff4757', color: 'white',
                fontSize: '11px', fontWeight: 'bold', padding: '1px 4px',
                borderRadius: '4px', zIndex: '2147483647',
                whiteSpace: 'nowrap'
            });
            if (rect.top < 20) { tag.style.top = rect.top + 'px'; tag.style.transform = 'translateY(0)'; }

            overlay.appendChild(tag);
            elementMap.push('[ID: ' + id + '] <' + el.tagName.toLowerCase() + '> "' + label + '"');
        });

        return {
            title: document.title,
            url: window.location.href,
            elements: elementMap.join('\n')
        };
    } catch (e) {
        return { error: e.toString() };
    }
}`

// clearOverlayScript removes the badge container and the data-agent-id
// attributes from every tagged element.
const clearOverlayScript = `() => {
    const overlay = document.getElementById('` + overlayID + `');
    if (overlay) overlay.remove();
    document.querySelectorAll('[data-agent-id]').forEach(el => el.removeAttribute('data-agent-id'));
    return "overlay cleared";
}`

// typeScript injects text into the element with the given agent ID using the
// native value setter so framework-bound inputs observe the change, then
// fires input and change events. With pressEnter it synthesizes the Enter
// key sequence and, after a short delay, clicks the enclosing form's submit
// control if one exists.
const typeScript = `(args) => {
    const el = document.querySelector('[data-agent-id="' + args.id + '"]');
    if (!el) return { error: 'element not found' };

    el.focus();
    if (el.isContentEditable) {
        el.innerText = args.text;
    } else {
        const proto = el.tagName === 'TEXTAREA' ? window.HTMLTextAreaElement.prototype : window.HTMLInputElement.prototype;
        const setter = Object.getOwnPropertyDescriptor(proto, 'value');
        if (setter && setter.set) setter.set.call(el, args.text);
        else el.value = args.text;
    }
    el.dispatchEvent(new Event('input', { bubbles: true }));
    el.dispatchEvent(new Event('change', { bubbles: true }));

    if (args.pressEnter) {
        const opts = { key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, cancelable: true };
        el.dispatchEvent(new KeyboardEvent('keydown', opts));
        el.dispatchEvent(new KeyboardEvent('keypress', opts));
        el.dispatchEvent(new KeyboardEvent('keyup', opts));
        const form = el.closest('form');
        if (form) {
            setTimeout(() => {
                const submit = form.querySelector('button[type="submit"], input[type="submit"], button:not([type])');
                if (submit) submit.click();
            }, 150);
        }
    }
    return { ok: true };
}`

// readContentScript returns the page's main text, preferring the article or
// main regions over the full body.
const readContentScript = `() => {
    const root = document.querySelector('article') || document.querySelector('main') || document.body;
    return {
        title: document.title,
        url: window.location.href,
        content: root ? root.innerText : ''
    };
}`
