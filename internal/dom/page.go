// File: internal/dom/page.go
package dom

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned (wrapped) when a bounded wait expires before its
// condition holds.
var ErrTimeout = errors.New("dom: wait timed out")

// ElementID is a driver assigned handle that stays stable for a node for as
// long as the node is attached to the document. Two queries returning the same
// node yield the same ElementID, independent of the node's attributes.
type ElementID int64

// Element is a live reference to one DOM node.
//
// Reads return an optional result: ok=false means the value is absent or
// could not be read, which callers treat as a normal outcome.
type Element interface {
	ID() ElementID
	// TagName is the lowercase tag name, e.g. "input".
	TagName() string
	Attribute(ctx context.Context, name string) (string, bool)
	// Text is the element's rendered text.
	Text(ctx context.Context) (string, bool)
	// Checked reports the selected state of radios, checkboxes and options.
	Checked(ctx context.Context) (bool, bool)
	// Options returns the option children of a select element.
	Options(ctx context.Context) ([]Element, error)
	// WaitInteractable blocks until the element can receive input or ctx ends.
	WaitInteractable(ctx context.Context) error

	Click(ctx context.Context) error
	Clear(ctx context.Context) error
	Type(ctx context.Context, text string) error
}

// Page is the browser capability surface a run consumes.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// QueryAll returns every element matching a CSS selector in document order.
	// Zero matches is not an error.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Search returns every element matching an XPath expression in document order.
	Search(ctx context.Context, xpath string) ([]Element, error)
	// WaitFor blocks until at least one element matches selector, returning a
	// wrapped ErrTimeout when timeout elapses first.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Close() error
}

// Kind classifies an element for the value setter.
type Kind int

const (
	KindOther Kind = iota
	KindText
	KindRadio
	KindCheckbox
	KindSelect
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindRadio:
		return "radio"
	case KindCheckbox:
		return "checkbox"
	case KindSelect:
		return "select"
	default:
		return "other"
	}
}

// KindOf inspects the tag name and type attribute of el.
func KindOf(ctx context.Context, el Element) Kind {
	switch el.TagName() {
	case "select":
		return KindSelect
	case "textarea":
		return KindText
	case "input":
		typ, _ := el.Attribute(ctx, "type")
		switch Normalize(typ) {
		case "radio":
			return KindRadio
		case "checkbox":
			return KindCheckbox
		case "button", "submit", "reset", "image", "hidden", "file":
			return KindOther
		default:
			return KindText
		}
	default:
		return KindOther
	}
}

// attr reads name from el, returning "" when absent.
func attr(ctx context.Context, el Element, name string) string {
	v, _ := el.Attribute(ctx, name)
	return v
}

// text reads the rendered text of el, returning "" when unavailable.
func text(ctx context.Context, el Element) string {
	v, _ := el.Text(ctx)
	return v
}
