// File: internal/dom/options.go
package dom

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const noNameGroup = "__no_name__"

// Resolver selects choices in radio groups and dropdowns.
type Resolver struct {
	page   Page
	setter *Setter
	logger *zap.Logger
}

func NewResolver(page Page, setter *Setter, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{page: page, setter: setter, logger: logger.Named("resolver")}
}

// ResolveRadio picks a radio whose signature contains keyword. The first pass
// looks for a radio whose value equals preferred. If none does, the first
// radio mentioning keyword is selected whatever its value.
func (r *Resolver) ResolveRadio(ctx context.Context, keyword, preferred string) bool {
	keyword = Normalize(keyword)
	if keyword == "" {
		return false
	}
	radios, err := r.page.QueryAll(ctx, "input[type=radio]")
	if err != nil || len(radios) == 0 {
		return false
	}
	arena := NewArena(radios)
	want := Normalize(preferred)

	matching := make([]Element, 0, arena.Len())
	for i := 0; i < arena.Len(); i++ {
		el := arena.At(i)
		if strings.Contains(Signature(ctx, r.page, el), keyword) {
			matching = append(matching, el)
		}
	}

	for _, el := range matching {
		if Normalize(attr(ctx, el, "value")) != want {
			continue
		}
		if err := r.setter.Check(ctx, el); err != nil {
			r.logger.Debug("Exact radio click failed.", zap.Error(err))
			continue
		}
		r.logger.Info("Selected radio by value.", zap.String("keyword", keyword), zap.String("value", preferred))
		return true
	}

	for _, el := range matching {
		if err := r.setter.Check(ctx, el); err != nil {
			r.logger.Debug("Fallback radio click failed.", zap.Error(err))
			continue
		}
		r.logger.Info("Selected first radio for keyword.",
			zap.String("keyword", keyword),
			zap.String("value", attr(ctx, el, "value")))
		return true
	}
	return false
}

type radioGroup struct {
	key     string
	members []Element
}

// ResolveGroup selects preferred in the first radio group related to
// keywords, then falls back to dropdowns. Inside a group an option whose
// value or label equals preferred wins over one that merely contains it.
func (r *Resolver) ResolveGroup(ctx context.Context, keywords []string, preferred string) bool {
	want := Normalize(preferred)
	if want == "" {
		return false
	}

	for _, g := range r.radioGroups(ctx, keywords) {
		if r.resolveInGroup(ctx, g, want) {
			return true
		}
	}
	return r.resolveSelect(ctx, keywords, want)
}

// radioGroups groups keyword-related radios by name, then id, in first-seen order.
func (r *Resolver) radioGroups(ctx context.Context, keywords []string) []*radioGroup {
	radios, err := r.page.QueryAll(ctx, "input[type=radio]")
	if err != nil {
		return nil
	}
	arena := NewArena(radios)

	var groups []*radioGroup
	byKey := make(map[string]*radioGroup)
	for i := 0; i < arena.Len(); i++ {
		el := arena.At(i)
		if _, ok := firstContained(Signature(ctx, r.page, el), keywords); !ok {
			continue
		}
		key := attr(ctx, el, "name")
		if key == "" {
			key = attr(ctx, el, "id")
		}
		if key == "" {
			key = noNameGroup
		}
		g, ok := byKey[key]
		if !ok {
			g = &radioGroup{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, el)
	}
	return groups
}

func (r *Resolver) resolveInGroup(ctx context.Context, g *radioGroup, want string) bool {
	type candidate struct {
		el           Element
		value, label string
	}
	cands := make([]candidate, 0, len(g.members))
	for _, el := range g.members {
		cands = append(cands, candidate{
			el:    el,
			value: Normalize(attr(ctx, el, "value")),
			label: Normalize(LabelText(ctx, r.page, el)),
		})
	}

	passes := []func(c candidate) bool{
		func(c candidate) bool { return c.value == want || (c.label != "" && c.label == want) },
		func(c candidate) bool {
			return strings.Contains(c.value, want) || (c.label != "" && strings.Contains(c.label, want))
		},
	}
	for _, matches := range passes {
		for _, c := range cands {
			if !matches(c) {
				continue
			}
			if err := r.setter.Check(ctx, c.el); err != nil {
				r.logger.Debug("Group option click failed.", zap.String("group", g.key), zap.Error(err))
				continue
			}
			r.logger.Info("Selected option in radio group.",
				zap.String("group", g.key),
				zap.String("value", c.value))
			return true
		}
	}
	return false
}

func (r *Resolver) resolveSelect(ctx context.Context, keywords []string, want string) bool {
	selects, err := r.page.QueryAll(ctx, "select")
	if err != nil {
		return false
	}
	for _, sel := range selects {
		if _, ok := firstContained(Signature(ctx, r.page, sel), keywords); !ok {
			continue
		}
		options, err := sel.Options(ctx)
		if err != nil {
			continue
		}
		for _, opt := range options {
			if Normalize(text(ctx, opt)) != want && Normalize(attr(ctx, opt, "value")) != want {
				continue
			}
			if err := opt.Click(ctx); err != nil {
				r.logger.Debug("Select option click failed.", zap.Error(err))
				continue
			}
			r.logger.Info("Selected dropdown option.", zap.String("option", want))
			return true
		}
	}
	return false
}
