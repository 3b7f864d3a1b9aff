// File: internal/snapshot/page.go
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/xkilldash9x/guestpass/internal/dom"
	"golang.org/x/net/html"
)

var (
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("snapshot: page closed")
	// ErrStale is returned when an element no longer belongs to the loaded document.
	ErrStale = errors.New("snapshot: stale element reference")
	// ErrNotInteractable is returned when clicking or typing into a disabled element.
	ErrNotInteractable = errors.New("snapshot: element not interactable")
)

// ClickHook runs after a successful click. It may call Load to simulate a
// navigation.
type ClickHook func(p *Page, el *Element)

// Page is an in-memory dom.Page over a parsed HTML document. Clicks, typing
// and option selection mutate the tree, so a run against a Page can be
// inspected afterwards with Render.
type Page struct {
	mu      sync.Mutex
	doc     *html.Node
	ids     map[*html.Node]dom.ElementID
	nextID  dom.ElementID
	closed  bool
	sites   map[string]string
	onClick ClickHook
	clicks  []string
	poll    time.Duration
}

var _ dom.Page = (*Page)(nil)

// New parses markup into a page.
func New(markup string) (*Page, error) {
	p := &Page{sites: make(map[string]string), poll: 10 * time.Millisecond}
	if err := p.Load(markup); err != nil {
		return nil, err
	}
	return p, nil
}

// FromReader parses r into a page.
func FromReader(r io.Reader) (*Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return New(string(b))
}

// FromFile parses the HTML file at path.
func FromFile(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return FromReader(f)
}

// Register makes markup available to Navigate under rawURL.
func (p *Page) Register(rawURL, markup string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sites[rawURL] = markup
}

// OnClick installs a hook that runs after every successful click.
func (p *Page) OnClick(hook ClickHook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onClick = hook
}

// Load replaces the current document. Elements from the previous document
// become stale.
func (p *Page) Load(markup string) error {
	doc, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc = doc
	p.ids = make(map[*html.Node]dom.ElementID)
	return nil
}

// Navigate loads a registered site, or a file:// URL from disk.
func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	markup, ok := p.sites[rawURL]
	p.mu.Unlock()
	if ok {
		return p.Load(markup)
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "file" {
		return fmt.Errorf("snapshot: no page registered for %q", rawURL)
	}
	b, err := os.ReadFile(u.Path)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return p.Load(string(b))
}

// QueryAll evaluates a CSS selector with goquery.
func (p *Page) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	nodes := goquery.NewDocumentFromNode(p.doc).Find(selector).Nodes
	return p.wrapLocked(nodes), nil
}

// Search evaluates an XPath expression with htmlquery.
func (p *Page) Search(ctx context.Context, xpath string) ([]dom.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	nodes, err := htmlquery.QueryAll(p.doc, xpath)
	if err != nil {
		return nil, fmt.Errorf("snapshot: invalid xpath %q: %w", xpath, err)
	}
	return p.wrapLocked(nodes), nil
}

// WaitFor polls until selector matches. The document only changes through
// Load, so this mostly matters when a click hook swaps pages.
func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		found, err := p.QueryAll(ctx, selector)
		if err != nil {
			return err
		}
		if len(found) > 0 {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", dom.ErrTimeout, selector, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the page. Close is idempotent.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Clicks returns a description of every clicked element, in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Render serializes the current document.
func (p *Page) Render() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, p.doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// wrapLocked assigns stable handles to nodes. Callers hold p.mu.
func (p *Page) wrapLocked(nodes []*html.Node) []dom.Element {
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		id, ok := p.ids[n]
		if !ok {
			p.nextID++
			id = p.nextID
			p.ids[n] = id
		}
		out = append(out, &Element{page: p, node: n, id: id})
	}
	return out
}

// liveLocked reports whether e still belongs to the loaded document.
func (p *Page) liveLocked(e *Element) error {
	if p.closed {
		return ErrClosed
	}
	if id, ok := p.ids[e.node]; !ok || id != e.id {
		return ErrStale
	}
	return nil
}

func (p *Page) afterClick(e *Element) {
	p.mu.Lock()
	hook := p.onClick
	p.mu.Unlock()
	if hook != nil {
		hook(p, e)
	}
}
