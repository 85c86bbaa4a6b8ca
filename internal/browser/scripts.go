package browser

// PrettyPrintElementScript renders an element as short HTML for humans and LLMs.
// The body element yields null since it stands for the whole page.
const PrettyPrintElementScript = `(node) => {
  if (!node || !node.tagName) return null;
  const tag = node.tagName.toLowerCase();
  const id = node.id || '';
  const text = (node.innerText || '').slice(0, 50);
  if (tag === 'body') return null;
  if (tag === 'a') return '<a href="' + node.href + '" id="' + id + '">' + text + '</a>';
  if (tag === 'input') {
    return '<input type="' + node.type + '" id="' + id + '" name="' + (node.name || '') +
      '" placeholder="' + (node.placeholder || '') + '" value="' + text + '">';
  }
  return '<' + tag + ' id="' + id + '">' + text + '</' + tag + '>';
}`

// FocusedElementScript pretty-prints document.activeElement.
const FocusedElementScript = `() => (` + PrettyPrintElementScript + `)(document.activeElement)`

// RemoveLinkTargetsScript keeps links in the current tab.
const RemoveLinkTargetsScript = `() => document.querySelectorAll('a[target]').forEach(a => a.removeAttribute('target'))`

const HasFocusedElementScript = `() => !!document.activeElement && document.activeElement.tagName !== 'BODY'`

// FocusedHasValueScript reads the live value property; typing does not
// update the value attribute.
const FocusedHasValueScript = `() => {
  const el = document.activeElement;
  return !!el && typeof el.value === 'string' && el.value !== '';
}`

const ClearFocusedValueScript = `() => {
  const el = document.activeElement;
  el.value = '';
  el.dispatchEvent(new Event('input', { bubbles: true }));
}`

const ScrollOffsetScript = `() => window.scrollY`

const DevicePixelRatioScript = `() => window.devicePixelRatio || 1`

// installMutationWatchJS flags visible DOM changes that usually follow a
// meaningful click: alerts, modals, validation messages and added nodes.
const installMutationWatchJS = `() => {
  window.__agentDomChanged = false;
  if (window.__agentObserver) window.__agentObserver.disconnect();
  const interesting = (n) => n.nodeType === 1 && (
    n.matches('[role="alert"], [role="dialog"], [role="alertdialog"], [aria-modal="true"], .modal, .toast, .error, [aria-invalid="true"]') ||
    n.offsetWidth > 0 || n.offsetHeight > 0);
  window.__agentObserver = new MutationObserver((records) => {
    for (const r of records) {
      if (r.type === 'attributes' && (r.attributeName === 'aria-invalid' || r.attributeName === 'aria-expanded' || r.attributeName === 'open')) {
        window.__agentDomChanged = true;
        return;
      }
      for (const n of r.addedNodes) {
        if (interesting(n)) { window.__agentDomChanged = true; return; }
      }
    }
  });
  window.__agentObserver.observe(document.documentElement, { childList: true, subtree: true, attributes: true });
}`

const readMutationWatchJS = `() => {
  const changed = !!window.__agentDomChanged;
  if (window.__agentObserver) window.__agentObserver.disconnect();
  return changed;
}`
