// File: internal/dom/setter.go
package dom

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Setter writes values into form fields.
type Setter struct {
	logger *zap.Logger
	// wait bounds how long an interaction waits for its element to become
	// interactable before attempting it anyway.
	wait time.Duration
}

// NewSetter creates a setter. A non-positive wait disables the readiness wait.
func NewSetter(logger *zap.Logger, wait time.Duration) *Setter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Setter{logger: logger.Named("setter"), wait: wait}
}

// Fill sets el to value according to its kind and reports whether the
// interaction went through. Radios and checkboxes are only clicked when not
// already checked, so repeated calls never toggle them off. Errors are logged
// and reported as false.
func (s *Setter) Fill(ctx context.Context, el Element, value string) bool {
	if el == nil {
		return false
	}
	s.awaitReady(ctx, el)

	var err error
	kind := KindOf(ctx, el)
	switch kind {
	case KindRadio, KindCheckbox:
		err = s.Check(ctx, el)
	case KindSelect:
		err = s.selectOption(ctx, el, value)
	default:
		if cerr := el.Clear(ctx); cerr != nil {
			s.logger.Debug("Clear failed; typing anyway.", zap.Error(cerr))
		}
		err = el.Type(ctx, value)
	}

	if err != nil {
		s.logger.Warn("Fill failed.",
			zap.String("kind", kind.String()),
			zap.String("identifier", LegacyIdentifier(ctx, el)),
			zap.Error(err))
		return false
	}
	return true
}

// Check clicks el unless it already reports checked.
func (s *Setter) Check(ctx context.Context, el Element) error {
	if checked, ok := el.Checked(ctx); ok && checked {
		return nil
	}
	return el.Click(ctx)
}

// Click waits for el to become interactable and clicks it.
func (s *Setter) Click(ctx context.Context, el Element) error {
	s.awaitReady(ctx, el)
	return el.Click(ctx)
}

// selectOption clicks the first option whose text or value equals value.
// When none does, the raw value is typed into the select, which native
// selects may ignore.
func (s *Setter) selectOption(ctx context.Context, sel Element, value string) error {
	want := Normalize(value)
	options, err := sel.Options(ctx)
	if err != nil {
		s.logger.Debug("Could not list options.", zap.Error(err))
	}
	for _, opt := range options {
		if Normalize(text(ctx, opt)) == want || Normalize(attr(ctx, opt, "value")) == want {
			return opt.Click(ctx)
		}
	}
	s.logger.Debug("No option matched; typing into select.", zap.String("value", value))
	return sel.Type(ctx, value)
}

// awaitReady blocks until el is interactable or the wait budget is spent. An
// expired wait is not an error: the interaction is attempted regardless.
func (s *Setter) awaitReady(ctx context.Context, el Element) {
	if s.wait <= 0 {
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()
	if err := el.WaitInteractable(waitCtx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("Element not interactable within wait budget.",
			zap.Duration("wait", s.wait), zap.Error(err))
	}
}
