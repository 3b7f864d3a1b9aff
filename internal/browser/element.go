// File: internal/browser/element.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"github.com/xkilldash9x/guestpass/internal/dom"
)

// ErrNotInteractable is returned when the page refuses an interaction.
var ErrNotInteractable = errors.New("element not interactable")

// Each function runs with `this` bound to the element and returns a JSON
// string so results decode the same way regardless of the value type.
const (
	jsAttribute = `function(name) {
		if (name === 'value' && 'value' in this) return JSON.stringify({ok: true, v: String(this.value)});
		if (!this.hasAttribute(name)) return JSON.stringify({ok: false, v: ''});
		return JSON.stringify({ok: true, v: this.getAttribute(name)});
	}`
	jsText = `function() {
		const t = this.innerText !== undefined ? this.innerText : this.textContent;
		return JSON.stringify({ok: true, v: (t || '').replace(/\s+/g, ' ').trim()});
	}`
	jsChecked = `function() {
		if (this.tagName === 'OPTION') return JSON.stringify({ok: true, v: !!this.selected});
		if ('checked' in this) return JSON.stringify({ok: true, v: !!this.checked});
		return JSON.stringify({ok: false, v: false});
	}`
	jsInteractable = `function() {
		if (!this.isConnected || this.disabled) return JSON.stringify({ok: true, v: false});
		const t = (this.type || '').toLowerCase();
		if (t === 'checkbox' || t === 'radio') return JSON.stringify({ok: true, v: true});
		const r = this.getBoundingClientRect();
		const st = window.getComputedStyle(this);
		return JSON.stringify({ok: true, v: r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none'});
	}`
	jsClick = `function() {
		if (this.disabled) return JSON.stringify({ok: false, v: false});
		this.click();
		return JSON.stringify({ok: true, v: true});
	}`
	jsSelectOption = `function() {
		const sel = this.closest('select');
		if (this.disabled || (sel && sel.disabled)) return JSON.stringify({ok: false, v: false});
		this.selected = true;
		if (sel) {
			sel.dispatchEvent(new Event('input', {bubbles: true}));
			sel.dispatchEvent(new Event('change', {bubbles: true}));
		}
		return JSON.stringify({ok: true, v: true});
	}`
	jsClear = `function() {
		if (!('value' in this) || this.disabled || this.readOnly) return JSON.stringify({ok: false, v: false});
		this.value = '';
		this.dispatchEvent(new Event('input', {bubbles: true}));
		this.dispatchEvent(new Event('change', {bubbles: true}));
		return JSON.stringify({ok: true, v: true});
	}`
)

type stringResult struct {
	OK bool   `json:"ok"`
	V  string `json:"v"`
}

type boolResult struct {
	OK bool `json:"ok"`
	V  bool `json:"v"`
}

// Element is a dom.Element backed by a CDP node.
type Element struct {
	s    *Session
	node *cdp.Node
}

var _ dom.Element = (*Element)(nil)

// ID is the backend node id, which stays stable across queries.
func (e *Element) ID() dom.ElementID { return dom.ElementID(e.node.BackendNodeID) }

func (e *Element) TagName() string {
	if e.node.LocalName != "" {
		return strings.ToLower(e.node.LocalName)
	}
	return strings.ToLower(e.node.NodeName)
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool) {
	var res stringResult
	if err := e.call(ctx, jsAttribute, &res, name); err != nil {
		return "", false
	}
	return res.V, res.OK
}

func (e *Element) Text(ctx context.Context) (string, bool) {
	var res stringResult
	if err := e.call(ctx, jsText, &res); err != nil {
		return "", false
	}
	return res.V, res.OK
}

func (e *Element) Checked(ctx context.Context) (bool, bool) {
	var res boolResult
	if err := e.call(ctx, jsChecked, &res); err != nil {
		return false, false
	}
	return res.V, res.OK
}

func (e *Element) Options(ctx context.Context) ([]dom.Element, error) {
	var nodes []*cdp.Node
	err := e.s.run(ctx, chromedp.Nodes("option", &nodes, chromedp.ByQueryAll, chromedp.FromNode(e.node), chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("options of %s: %w", e.TagName(), err)
	}
	return e.s.wrap(nodes), nil
}

// WaitInteractable polls until the element is attached, enabled and visible.
// Checkboxes and radios only need to be enabled since they are often styled
// invisible behind a label.
func (e *Element) WaitInteractable(ctx context.Context) error {
	ticker := time.NewTicker(e.s.poll)
	defer ticker.Stop()
	for {
		var res boolResult
		if err := e.call(ctx, jsInteractable, &res); err == nil && res.V {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s not interactable", dom.ErrTimeout, e.TagName())
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Click dispatches a real mouse click at the element center, falling back to
// a scripted click when the element has no box (hidden custom controls).
// Options are selected through their parent select.
func (e *Element) Click(ctx context.Context) error {
	if e.TagName() == "option" {
		return e.script(ctx, jsSelectOption)
	}
	if err := e.s.run(ctx, chromedp.MouseClickNode(e.node)); err == nil {
		return nil
	} else if ctx.Err() != nil {
		return ctx.Err()
	}
	return e.script(ctx, jsClick)
}

func (e *Element) Clear(ctx context.Context) error {
	return e.script(ctx, jsClear)
}

func (e *Element) Type(ctx context.Context, text string) error {
	err := e.s.run(ctx, chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, text, chromedp.ByNodeID))
	if err != nil {
		return fmt.Errorf("type into %s: %w", e.TagName(), err)
	}
	return nil
}

// script runs a mutating function that reports ok=false when refused.
func (e *Element) script(ctx context.Context, fn string) error {
	var res boolResult
	if err := e.call(ctx, fn, &res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("%s: %w", e.TagName(), ErrNotInteractable)
	}
	return nil
}

// call resolves the node to a remote object and invokes fn on it.
func (e *Element) call(ctx context.Context, fn string, out interface{}, args ...interface{}) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := cdpdom.ResolveNode().WithBackendNodeID(e.node.BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		var raw string
		err = chromedp.CallFunctionOn(fn, &raw, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		}, args...).Do(ctx)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(raw), out)
	}))
}
