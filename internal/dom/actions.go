// File: internal/dom/actions.go
package dom

import (
	"context"

	"go.uber.org/zap"
)

const (
	actionXPath      = "//button | //input[@type='submit']"
	actionAnchorPath = "//button | //input[@type='submit'] | //a"
	submitFallback   = "button[type=submit], input[type=submit]"
)

// LocateOptions tunes a Locate call.
type LocateOptions struct {
	// IncludeAnchors adds <a> elements to the candidates.
	IncludeAnchors bool
	// FallbackSubmit returns the first submit button when no phrase matches.
	FallbackSubmit bool
}

// Locator finds the clickable control that advances the form.
type Locator struct {
	page   Page
	logger *zap.Logger
}

func NewLocator(page Page, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{page: page, logger: logger.Named("locator")}
}

// Locate returns the first control in document order whose caption contains
// any of phrases. Document order outranks phrase order: an earlier button
// matching a later phrase wins over a later button matching an earlier one.
func (l *Locator) Locate(ctx context.Context, phrases []string, opts LocateOptions) (Element, bool) {
	path := actionXPath
	if opts.IncludeAnchors {
		path = actionAnchorPath
	}

	candidates, err := l.page.Search(ctx, path)
	if err != nil {
		l.logger.Debug("Action query failed.", zap.Error(err))
	}
	arena := NewArena(candidates)
	for i := 0; i < arena.Len(); i++ {
		el := arena.At(i)
		caption := Caption(ctx, el)
		if caption == "" {
			continue
		}
		if phrase, ok := firstContained(caption, phrases); ok {
			l.logger.Debug("Located action.", zap.String("phrase", phrase), zap.String("caption", caption))
			return el, true
		}
	}

	if !opts.FallbackSubmit {
		return nil, false
	}
	submits, err := l.page.QueryAll(ctx, submitFallback)
	if err != nil || len(submits) == 0 {
		return nil, false
	}
	l.logger.Debug("Falling back to first submit control.")
	return submits[0], true
}

// Caption is the normalized text of a control, else its value, else its
// aria-label.
func Caption(ctx context.Context, el Element) string {
	if t := Normalize(text(ctx, el)); t != "" {
		return t
	}
	if v := Normalize(attr(ctx, el, "value")); v != "" {
		return v
	}
	return Normalize(attr(ctx, el, "aria-label"))
}
