// File: internal/dom/consent.go
package dom

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// consentReadySelector matches anything a consent page is expected to show.
const consentReadySelector = "input[type=checkbox], [role=checkbox], button, input[type=submit], a"

const detachPoll = 50 * time.Millisecond

// SweepResult summarizes a consent sweep.
type SweepResult struct {
	Checked       int  `json:"checked"`
	SubmitFound   bool `json:"submit_found"`
	SubmitClicked bool `json:"submit_clicked"`
}

// Sweeper ticks every checkbox-like control on a follow-up page and submits it.
type Sweeper struct {
	page    Page
	setter  *Setter
	locator *Locator
	logger  *zap.Logger
	wait    time.Duration
}

// NewSweeper creates a sweeper that waits up to renderWait for the follow-up
// page to replace the one that was submitted.
func NewSweeper(page Page, setter *Setter, locator *Locator, logger *zap.Logger, renderWait time.Duration) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{page: page, setter: setter, locator: locator, logger: logger.Named("consent"), wait: renderWait}
}

// Sweep checks every unchecked checkbox, clicks every [role=checkbox] whose
// aria-checked is absent or false, then clicks the first control whose
// caption contains one of phrases.
//
// trigger is the control that was clicked to leave the previous page. The
// sweep starts once it has left the document and the new page shows a
// control. Without a trigger the sweep sleeps the full render wait. If the
// trigger is still attached when the wait runs out, the current page is swept.
func (s *Sweeper) Sweep(ctx context.Context, phrases []string, trigger Element) SweepResult {
	var res SweepResult

	if s.wait > 0 {
		s.awaitRender(ctx, trigger)
	}

	handled := make(map[ElementID]struct{})
	boxes, err := s.page.QueryAll(ctx, "input[type=checkbox]")
	if err != nil {
		s.logger.Debug("Checkbox query failed.", zap.Error(err))
	}
	for _, box := range boxes {
		handled[box.ID()] = struct{}{}
		if checked, ok := box.Checked(ctx); ok && checked {
			continue
		}
		if err := s.setter.Click(ctx, box); err != nil {
			s.logger.Debug("Checkbox click failed.", zap.Error(err))
			continue
		}
		res.Checked++
	}

	roleBoxes, err := s.page.QueryAll(ctx, "[role=checkbox]")
	if err != nil {
		s.logger.Debug("Role checkbox query failed.", zap.Error(err))
	}
	for _, rb := range roleBoxes {
		if _, done := handled[rb.ID()]; done {
			continue
		}
		aria, ok := rb.Attribute(ctx, "aria-checked")
		if ok {
			if v := Normalize(aria); v != "false" && v != "0" {
				continue
			}
		}
		if err := s.setter.Click(ctx, rb); err != nil {
			s.logger.Debug("Role checkbox click failed.", zap.Error(err))
			continue
		}
		res.Checked++
	}

	if res.Checked == 0 {
		s.logger.Info("No checkboxes found to check (still attempting to submit).")
	}

	submit, found := s.locator.Locate(ctx, phrases, LocateOptions{IncludeAnchors: true})
	if !found {
		s.logger.Info("No final Submit button found")
		return res
	}
	res.SubmitFound = true
	if err := s.setter.Click(ctx, submit); err != nil {
		s.logger.Warn("Found final submit but could not click it", zap.Error(err))
		return res
	}
	res.SubmitClicked = true
	s.logger.Info("Clicked final Submit")
	return res
}

func (s *Sweeper) awaitRender(ctx context.Context, trigger Element) {
	deadline := time.Now().Add(s.wait)
	if trigger == nil {
		sleepCtx(ctx, s.wait)
		return
	}
	if !waitDetached(ctx, s.page, trigger, deadline) {
		s.logger.Debug("Clicked control is still attached; sweeping the current page.")
		return
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return
	}
	if err := s.page.WaitFor(ctx, consentReadySelector, remaining); err != nil && !errors.Is(err, ErrTimeout) {
		s.logger.Debug("Consent page wait ended early.", zap.Error(err))
	}
}

// waitDetached polls until no element with el's tag carries el's ID, which
// happens once the page holding el has been replaced.
func waitDetached(ctx context.Context, page Page, el Element, deadline time.Time) bool {
	tag := el.TagName()
	if tag == "" {
		tag = "*"
	}
	for {
		found, err := page.QueryAll(ctx, tag)
		if err == nil && !containsID(found, el.ID()) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		if !sleepCtx(ctx, min(detachPoll, time.Until(deadline))) {
			return false
		}
	}
}

func containsID(elems []Element, id ElementID) bool {
	for _, e := range elems {
		if e.ID() == id {
			return true
		}
	}
	return false
}

// sleepCtx waits d and reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
