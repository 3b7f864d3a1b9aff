// File: internal/autofill/runner.go
package autofill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xkilldash9x/guestpass/internal/config"
	"github.com/xkilldash9x/guestpass/internal/dom"
	"github.com/xkilldash9x/guestpass/internal/observability"
	"go.uber.org/zap"
)

const (
	dateSelector  = "input[type=date]"
	readySelector = "body"
)

// PageFactory opens a fresh page for one run. The run owns the page and
// closes it on every exit path.
type PageFactory interface {
	Open(ctx context.Context) (dom.Page, error)
}

// PageFactoryFunc adapts a function to PageFactory.
type PageFactoryFunc func(ctx context.Context) (dom.Page, error)

func (f PageFactoryFunc) Open(ctx context.Context) (dom.Page, error) { return f(ctx) }

// Runner drives one form-fill pass per call to Run.
type Runner struct {
	form    config.FormConfig
	timing  config.TimingConfig
	pages   PageFactory
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRunner creates a runner. The form profile is copied, so later changes by
// the caller are not seen by runs. metrics may be nil.
func NewRunner(form config.FormConfig, timing config.TimingConfig, pages PageFactory, metrics *observability.Metrics, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		form:    form.Clone(),
		timing:  timing,
		pages:   pages,
		metrics: metrics,
		logger:  logger.Named("autofill"),
	}
}

// Run opens a page, fills the form at target and submits it. An empty target
// uses the profile's target URL.
//
// Every step is attempted once. Missing fields and failed interactions are
// recorded in the report and do not stop the run. Failing to open the page or
// to navigate is fatal and returned as an error together with the partial
// report, as is cancellation of ctx.
func (r *Runner) Run(ctx context.Context, target string) (report *Report, err error) {
	if target == "" {
		target = r.form.TargetURL
	}
	report = newReport(target, time.Now())
	log := r.logger.With(zap.String("target", target))
	defer func() { report.finish(time.Now(), err) }()

	page, err := r.pages.Open(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn("Failed to close page.", zap.Error(cerr))
		}
	}()

	if err := page.Navigate(ctx, target); err != nil {
		return report, fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitFor(ctx, readySelector, r.timing.NavigationSettle); err != nil {
		if !errors.Is(err, dom.ErrTimeout) {
			return report, fmt.Errorf("waiting for page: %w", err)
		}
		log.Warn("Page not ready within settle time, continuing.", zap.Duration("wait", r.timing.NavigationSettle))
	}
	report.advance(StateNavigated)
	log.Info("Page loaded.")

	p := r.newPass(page, log)
	steps := []struct {
		state State
		run   func(context.Context, *Report)
	}{
		{StateDOBFilled, p.fillDOB},
		{StateFieldsFilled, p.fillFields},
		{StateGenderResolved, p.resolveGender},
		{StateGoalResolved, p.resolveGoal},
	}
	for _, step := range steps {
		step.run(ctx, report)
		if ctx.Err() != nil {
			return report, fmt.Errorf("run interrupted: %w", ctx.Err())
		}
		report.advance(step.state)
	}

	btn, clicked := p.clickAction(ctx, report)
	if ctx.Err() != nil {
		return report, fmt.Errorf("run interrupted: %w", ctx.Err())
	}
	report.advance(StateActionClicked)
	if clicked {
		p.sweepConsent(ctx, report, btn)
		report.advance(StateConsentSwept)
	}

	if err := settle(ctx, r.timing.FinalSettle); err != nil {
		return report, fmt.Errorf("run interrupted: %w", err)
	}
	report.advance(StateDone)

	counts := report.Counts()
	log.Info("Auto-fill completed (heuristic-based).",
		zap.Int("filled", counts[OutcomeFilled]+counts[OutcomeResolved]),
		zap.Int("missed", counts[OutcomeNotFound]+counts[OutcomeFillFailed]+counts[OutcomeUnresolved]),
		zap.Bool("submitted", report.Action.Clicked))
	return report, nil
}

// bounded limits a single step to the configured action timeout, plus extra.
func (r *Runner) bounded(ctx context.Context, extra time.Duration) (context.Context, context.CancelFunc) {
	if r.timing.ActionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timing.ActionTimeout+extra)
}

// settle waits d, returning early with an error when ctx ends.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// pass holds the per-run collaborators and the set of consumed fields.
type pass struct {
	r        *Runner
	matcher  *dom.Matcher
	setter   *dom.Setter
	resolver *dom.Resolver
	locator  *dom.Locator
	sweeper  *dom.Sweeper
	used     *dom.UsedSet
	log      *zap.Logger
}

func (r *Runner) newPass(page dom.Page, log *zap.Logger) *pass {
	setter := dom.NewSetter(log, r.timing.InteractionWait)
	locator := dom.NewLocator(page, log)
	return &pass{
		r:        r,
		matcher:  dom.NewMatcher(page, log),
		setter:   setter,
		resolver: dom.NewResolver(page, setter, log),
		locator:  locator,
		sweeper:  dom.NewSweeper(page, setter, locator, log, r.timing.ConsentWait),
		used:     dom.NewUsedSet(),
		log:      log,
	}
}

func (p *pass) record(report *Report, res FieldResult) {
	report.record(res)
	p.r.metrics.FieldOutcome(string(res.Field), string(res.Outcome))
}

// fillDOB prefers a native date input and falls back to keyword matching.
func (p *pass) fillDOB(ctx context.Context, report *Report) {
	ctx, cancel := p.r.bounded(ctx, 0)
	defer cancel()

	el, ok := p.matcher.FindFirst(ctx, dateSelector, p.used)
	if !ok {
		el, ok = p.matcher.Find(ctx, p.r.form.KeywordsFor(config.FieldDOB), p.used)
	}
	p.fill(ctx, report, config.FieldDOB, el, ok)
}

func (p *pass) fillFields(ctx context.Context, report *Report) {
	for _, key := range p.r.form.FillOrder {
		if ctx.Err() != nil {
			return
		}
		func() {
			stepCtx, cancel := p.r.bounded(ctx, 0)
			defer cancel()
			el, ok := p.matcher.Find(stepCtx, p.r.form.KeywordsFor(key), p.used)
			p.fill(stepCtx, report, key, el, ok)
		}()
	}
}

// fill writes the profile value for key into el and consumes el whether or
// not the write succeeded.
func (p *pass) fill(ctx context.Context, report *Report, key config.FieldKey, el dom.Element, found bool) {
	if !found {
		p.log.Warn("Field not found.", zap.String("field", string(key)))
		p.record(report, FieldResult{Field: key, Outcome: OutcomeNotFound})
		return
	}

	ident := dom.LegacyIdentifier(ctx, el)
	ok := p.setter.Fill(ctx, el, p.r.form.Value(key))
	p.used.Add(el)

	res := FieldResult{Field: key, Element: ident, Outcome: OutcomeFilled}
	if !ok {
		res.Outcome = OutcomeFillFailed
		p.log.Warn("Couldn't fill field.", zap.String("field", string(key)), zap.String("element", ident))
	} else {
		p.log.Debug("Filled field.", zap.String("field", string(key)), zap.String("element", ident))
	}
	p.record(report, res)
}

func (p *pass) resolveGender(ctx context.Context, report *Report) {
	ctx, cancel := p.r.bounded(ctx, 0)
	defer cancel()

	want := p.r.form.Value(config.FieldGender)
	res := FieldResult{Field: config.FieldGender, Outcome: OutcomeUnresolved}
	for _, kw := range []string{p.r.form.GenderKeyword, p.r.form.GenderFallbackKeyword} {
		if kw == "" {
			continue
		}
		if p.resolver.ResolveRadio(ctx, kw, want) {
			res.Outcome, res.Keyword = OutcomeResolved, kw
			break
		}
	}
	if res.Outcome == OutcomeUnresolved {
		p.log.Warn("Gender could not be selected.", zap.String("value", want))
	}
	p.record(report, res)
}

func (p *pass) resolveGoal(ctx context.Context, report *Report) {
	ctx, cancel := p.r.bounded(ctx, 0)
	defer cancel()

	want := p.r.form.Value(config.FieldGoal)
	res := FieldResult{Field: config.FieldGoal, Outcome: OutcomeUnresolved}
	for _, kws := range [][]string{p.r.form.KeywordsFor(config.FieldGoal), p.r.form.GoalFallbackKeywords} {
		if len(kws) == 0 {
			continue
		}
		if p.resolver.ResolveGroup(ctx, kws, want) {
			res.Outcome, res.Keyword = OutcomeResolved, strings.Join(kws, ",")
			break
		}
	}
	if res.Outcome == OutcomeUnresolved {
		p.log.Warn("Goal could not be selected.", zap.String("value", want))
	}
	p.record(report, res)
}

// clickAction finds the Next/Submit control and clicks it, returning the
// control when the click went through.
func (p *pass) clickAction(ctx context.Context, report *Report) (dom.Element, bool) {
	ctx, cancel := p.r.bounded(ctx, 0)
	defer cancel()

	btn, ok := p.locator.Locate(ctx, p.r.form.ActionPhrases, dom.LocateOptions{FallbackSubmit: true})
	if !ok {
		p.log.Warn("No Next/Submit button found automatically")
		return nil, false
	}
	report.Action.Found = true
	report.Action.Caption = dom.Caption(ctx, btn)

	if err := p.setter.Click(ctx, btn); err != nil {
		p.log.Warn("Found button but could not click it", zap.Error(err))
		return nil, false
	}
	report.Action.Clicked = true
	p.log.Info("Clicked next/submit button", zap.String("caption", report.Action.Caption))
	return btn, true
}

func (p *pass) sweepConsent(ctx context.Context, report *Report, trigger dom.Element) {
	ctx, cancel := p.r.bounded(ctx, p.r.timing.ConsentWait)
	defer cancel()

	res := p.sweeper.Sweep(ctx, p.r.form.ConsentPhrases, trigger)
	report.Consent = &res
}
