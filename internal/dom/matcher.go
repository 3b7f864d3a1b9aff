// File: internal/dom/matcher.go
package dom

import (
	"context"

	"go.uber.org/zap"
)

// fieldSelector selects every element the matcher considers a form field.
const fieldSelector = "input, textarea, select"

// Matcher binds keyword sets to form fields on a page.
type Matcher struct {
	page   Page
	logger *zap.Logger
}

// NewMatcher creates a matcher for page. A nil logger discards output.
func NewMatcher(page Page, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{page: page, logger: logger.Named("matcher")}
}

// Find returns the first field in document order whose signature contains any
// of keywords and that is not in used. The match is greedy: there is no
// scoring across several keyword hits. A field matching a keyword but already
// consumed is skipped, and the scan continues with the next field.
func (m *Matcher) Find(ctx context.Context, keywords []string, used *UsedSet) (Element, bool) {
	fields, err := m.page.QueryAll(ctx, fieldSelector)
	if err != nil {
		m.logger.Debug("Field query failed.", zap.Error(err))
		return nil, false
	}

	arena := NewArena(fields)
	for i := 0; i < arena.Len(); i++ {
		if ctx.Err() != nil {
			return nil, false
		}
		el := arena.At(i)
		sig := Signature(ctx, m.page, el)
		if sig == "" {
			continue
		}
		kw, ok := firstContained(sig, keywords)
		if !ok {
			continue
		}
		if used.Has(el.ID()) {
			m.logger.Debug("Skipping consumed field.",
				zap.Int("index", i),
				zap.String("keyword", kw),
				zap.String("identifier", LegacyIdentifier(ctx, el)))
			continue
		}
		m.logger.Debug("Matched field.",
			zap.Int("index", i),
			zap.String("keyword", kw),
			zap.String("signature", sig))
		return el, true
	}
	return nil, false
}

// FindFirst returns the first element matching selector without waiting.
func (m *Matcher) FindFirst(ctx context.Context, selector string, used *UsedSet) (Element, bool) {
	elems, err := m.page.QueryAll(ctx, selector)
	if err != nil {
		return nil, false
	}
	for _, el := range elems {
		if !used.Has(el.ID()) {
			return el, true
		}
	}
	return nil, false
}
