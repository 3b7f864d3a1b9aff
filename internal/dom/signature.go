// File: internal/dom/signature.go
package dom

import (
	"context"
	"strings"
)

// signatureAttributes are read in this order when building a signature.
var signatureAttributes = []string{"name", "id", "placeholder", "aria-label", "title", "class"}

// Signature builds the normalized text blob used for keyword matching: the
// element's identifying attributes, the text of any <label for=id>, and its
// own rendered text. Unreadable parts contribute nothing; the result is ""
// when nothing could be read.
func Signature(ctx context.Context, page Page, el Element) string {
	parts := make([]string, 0, len(signatureAttributes)+2)
	for _, name := range signatureAttributes {
		parts = append(parts, attr(ctx, el, name))
	}

	if id := attr(ctx, el, "id"); id != "" {
		parts = append(parts, labelTexts(ctx, page, id)...)
	}

	if txt, ok := el.Text(ctx); ok && txt != "" {
		parts = append(parts, txt)
	}
	return Normalize(strings.Join(parts, " "))
}

// LabelText joins the text of every <label for=id> that points at el.
func LabelText(ctx context.Context, page Page, el Element) string {
	id := attr(ctx, el, "id")
	if id == "" {
		return ""
	}
	var nonEmpty []string
	for _, t := range labelTexts(ctx, page, id) {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func labelTexts(ctx context.Context, page Page, id string) []string {
	labels, err := page.Search(ctx, "//label[@for="+XPathLiteral(id)+"]")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		out = append(out, text(ctx, l))
	}
	return out
}

// LegacyIdentifier returns the first non-empty of id, name, placeholder and
// aria-label. It is used for log output only; consumption is tracked by
// ElementID.
func LegacyIdentifier(ctx context.Context, el Element) string {
	for _, name := range []string{"id", "name", "placeholder", "aria-label"} {
		if v := attr(ctx, el, name); v != "" {
			return v
		}
	}
	return ""
}
