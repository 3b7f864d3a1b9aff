// File: internal/snapshot/element.go
package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/xkilldash9x/guestpass/internal/dom"
	"golang.org/x/net/html"
)

// Element is a node inside a Page.
type Element struct {
	page *Page
	node *html.Node
	id   dom.ElementID
}

var _ dom.Element = (*Element)(nil)

func (e *Element) ID() dom.ElementID { return e.id }

func (e *Element) TagName() string { return strings.ToLower(e.node.Data) }

func (e *Element) String() string {
	var b strings.Builder
	b.WriteString(e.TagName())
	if id, ok := getAttr(e.node, "id"); ok {
		b.WriteString("#" + id)
	} else if name, ok := getAttr(e.node, "name"); ok {
		b.WriteString("[name=" + name + "]")
	}
	return b.String()
}

// Attribute returns the attribute value. For a textarea, "value" is its text.
func (e *Element) Attribute(ctx context.Context, name string) (string, bool) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.page.liveLocked(e) != nil {
		return "", false
	}
	if name == "value" && e.TagName() == "textarea" {
		return htmlquery.InnerText(e.node), true
	}
	return getAttr(e.node, name)
}

// Text approximates innerText: descendant text with whitespace collapsed.
// Form controls without children have no text.
func (e *Element) Text(ctx context.Context) (string, bool) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.page.liveLocked(e) != nil {
		return "", false
	}
	switch e.TagName() {
	case "input", "textarea":
		return "", true
	}
	return strings.Join(strings.Fields(htmlquery.InnerText(e.node)), " "), true
}

// Checked reports the checked attribute of inputs and selected of options.
func (e *Element) Checked(ctx context.Context) (bool, bool) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.page.liveLocked(e) != nil {
		return false, false
	}
	if e.TagName() == "option" {
		_, ok := getAttr(e.node, "selected")
		return ok, true
	}
	_, ok := getAttr(e.node, "checked")
	return ok, true
}

func (e *Element) Options(ctx context.Context) ([]dom.Element, error) {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.page.liveLocked(e); err != nil {
		return nil, err
	}
	return e.page.wrapLocked(htmlquery.Find(e.node, ".//option")), nil
}

// WaitInteractable fails fast for disabled elements; the document is static.
func (e *Element) WaitInteractable(ctx context.Context) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.page.liveLocked(e); err != nil {
		return err
	}
	if disabled(e.node) {
		return ErrNotInteractable
	}
	return ctx.Err()
}

// Click applies the default action of the element: toggling a checkbox,
// selecting a radio within its name group, or selecting an option.
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	if err := e.page.liveLocked(e); err != nil {
		e.page.mu.Unlock()
		return err
	}
	if disabled(e.node) {
		e.page.mu.Unlock()
		return fmt.Errorf("click %s: %w", e, ErrNotInteractable)
	}

	switch e.TagName() {
	case "input":
		typ, _ := getAttr(e.node, "type")
		switch strings.ToLower(typ) {
		case "checkbox":
			if _, on := getAttr(e.node, "checked"); on {
				removeAttr(e.node, "checked")
			} else {
				setAttr(e.node, "checked", "")
			}
		case "radio":
			e.selectRadioLocked()
		}
	case "option":
		e.selectOptionLocked()
	default:
		if role, _ := getAttr(e.node, "role"); role == "checkbox" {
			state, _ := getAttr(e.node, "aria-checked")
			if state == "true" {
				setAttr(e.node, "aria-checked", "false")
			} else {
				setAttr(e.node, "aria-checked", "true")
			}
		}
	}
	e.page.clicks = append(e.page.clicks, e.String())
	e.page.mu.Unlock()

	e.page.afterClick(e)
	return nil
}

// Clear empties the value of inputs and the text of a textarea.
func (e *Element) Clear(ctx context.Context) error {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.page.liveLocked(e); err != nil {
		return err
	}
	switch e.TagName() {
	case "input":
		setAttr(e.node, "value", "")
	case "textarea":
		setText(e.node, "")
	default:
		return fmt.Errorf("clear %s: %w", e, ErrNotInteractable)
	}
	return nil
}

// Type appends text to the element value like a keyboard would. Typing into a
// select moves the selection to the first option whose text starts with text.
func (e *Element) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if err := e.page.liveLocked(e); err != nil {
		return err
	}
	if disabled(e.node) {
		return fmt.Errorf("type into %s: %w", e, ErrNotInteractable)
	}
	switch e.TagName() {
	case "input":
		cur, _ := getAttr(e.node, "value")
		setAttr(e.node, "value", cur+text)
	case "textarea":
		setText(e.node, htmlquery.InnerText(e.node)+text)
	case "select":
		prefix := strings.ToLower(text)
		for _, opt := range htmlquery.Find(e.node, ".//option") {
			if prefix != "" && strings.HasPrefix(strings.ToLower(strings.TrimSpace(htmlquery.InnerText(opt))), prefix) {
				(&Element{page: e.page, node: opt}).selectOptionLocked()
				break
			}
		}
	default:
		return fmt.Errorf("type into %s: %w", e, ErrNotInteractable)
	}
	return nil
}

func (e *Element) selectRadioLocked() {
	name, _ := getAttr(e.node, "name")
	if name != "" {
		for _, other := range htmlquery.Find(e.page.doc, "//input[@type='radio'][@name="+dom.XPathLiteral(name)+"]") {
			removeAttr(other, "checked")
		}
	}
	setAttr(e.node, "checked", "")
}

func (e *Element) selectOptionLocked() {
	sel := e.node.Parent
	for sel != nil && !(sel.Type == html.ElementNode && sel.Data == "select") {
		sel = sel.Parent
	}
	if sel != nil {
		for _, opt := range htmlquery.Find(sel, ".//option") {
			removeAttr(opt, "selected")
		}
	}
	setAttr(e.node, "selected", "")
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, name, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

func removeAttr(n *html.Node, name string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != name {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// disabled reports a disabled attribute on n or an enclosing fieldset.
func disabled(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if _, ok := getAttr(cur, "disabled"); ok && (cur == n || cur.Data == "fieldset") {
			return true
		}
	}
	return false
}
