// File: internal/browser/session.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/xkilldash9x/guestpass/internal/config"
	"github.com/xkilldash9x/guestpass/internal/dom"
	"go.uber.org/zap"
)

const (
	launchTimeout = 30 * time.Second
	closeTimeout  = 10 * time.Second
)

// Launcher starts one Chromium process per page it opens.
type Launcher struct {
	browserCfg    config.BrowserConfig
	timing        config.TimingConfig
	logger        *zap.Logger
	launchTimeout time.Duration
	// start runs the first action on a tab, which launches the browser.
	// The context it receives owns the process for the session's lifetime.
	start func(tabCtx context.Context) error
}

// NewLauncher creates a launcher for the given browser settings.
func NewLauncher(browserCfg config.BrowserConfig, timing config.TimingConfig, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{
		browserCfg:    browserCfg,
		timing:        timing,
		logger:        logger.Named("browser"),
		launchTimeout: launchTimeout,
		start:         func(tabCtx context.Context) error { return chromedp.Run(tabCtx) },
	}
}

// Open launches a browser with a single tab. The returned page owns the
// process; Close terminates it. The browser outlives cancellation of ctx so
// the caller stays in charge of teardown.
func (l *Launcher) Open(ctx context.Context) (dom.Page, error) {
	id := uuid.NewString()
	log := l.logger.With(zap.String("session_id", id))

	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), AllocatorOptions(l.browserCfg)...)

	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Debugf),
	}
	if l.browserCfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(log.Sugar().Debugf))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &Session{
		id:          id,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		poll:        l.timing.PollInterval,
		logger:      log,
	}

	// The first Run starts the browser process and binds it to the context it
	// is given, so it must run on tabCtx itself. A watchdog bounds the launch
	// instead of a derived deadline.
	started := make(chan error, 1)
	go func() { started <- l.start(tabCtx) }()

	watchdog := time.NewTimer(l.launchTimeout)
	defer watchdog.Stop()
	select {
	case err := <-started:
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	case <-watchdog.C:
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: no response within %s", l.launchTimeout)
	case <-ctx.Done():
		s.Close()
		return nil, fmt.Errorf("failed to launch browser: %w", ctx.Err())
	}

	log.Info("Browser session started.", zap.Bool("headless", l.browserCfg.Headless))
	return s, nil
}

// Session is a dom.Page backed by a Chromium tab driven over CDP.
type Session struct {
	id          string
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	poll        time.Duration
	logger      *zap.Logger
	closeOnce   sync.Once
	closeErr    error
}

var _ dom.Page = (*Session)(nil)

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// run executes actions on the tab, bounded by op.
func (s *Session) run(op context.Context, actions ...chromedp.Action) error {
	ctx, cancel := CombineContext(s.tabCtx, op)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Session) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return s.wrap(nodes), nil
}

func (s *Session) Search(ctx context.Context, xpath string) ([]dom.Element, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("search %q: %w", xpath, err)
	}
	return s.wrap(nodes), nil
}

// WaitFor waits until selector matches a node that is ready in the DOM.
func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s after %s", dom.ErrTimeout, selector, timeout)
	}
	return fmt.Errorf("wait for %q: %w", selector, err)
}

// Close shuts the tab and the browser process. It is safe to call repeatedly.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(Detach(s.tabCtx), closeTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.tabCtx) }()
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				s.closeErr = fmt.Errorf("closing browser: %w", err)
			}
		case <-ctx.Done():
			s.closeErr = fmt.Errorf("closing browser: %w", ctx.Err())
		}
		s.tabCancel()
		s.allocCancel()
		s.logger.Debug("Browser session closed.")
	})
	return s.closeErr
}

func (s *Session) wrap(nodes []*cdp.Node) []dom.Element {
	out := make([]dom.Element, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.NodeType != cdp.NodeTypeElement {
			continue
		}
		out = append(out, &Element{s: s, node: n})
	}
	return out
}
