// File: internal/autofill/runner_test.go
package autofill_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/guestpass/internal/autofill"
	"github.com/xkilldash9x/guestpass/internal/config"
	"github.com/xkilldash9x/guestpass/internal/dom"
	"github.com/xkilldash9x/guestpass/internal/observability"
	"github.com/xkilldash9x/guestpass/internal/snapshot"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const targetURL = "https://gym.example/guest"

const registrationHTML = `<html><body>
<form>
  <label for="dob">Date of Birth</label><input id="dob" name="dob" type="text">
  <input name="firstName" placeholder="First Name">
  <input name="lastName" placeholder="Last Name">
  <input name="phone" type="tel">
  <input name="email" type="email">
  <input type="radio" name="gender" value="Female" id="gf"><label for="gf">Female</label>
  <input type="radio" name="gender" value="Male" id="gm"><label for="gm">Male</label>
  <input name="address1" placeholder="Street Address">
  <input name="city">
  <input name="state">
  <input name="zip">
  <select name="fitnessGoal">
    <option value="">Choose</option>
    <option value="lose">Lose Weight</option>
    <option value="gain">Gain Muscle/Weight</option>
  </select>
  <button type="button">Help</button>
  <button type="submit" id="next">Next</button>
</form>
</body></html>`

const consentHTML = `<html><body>
<input type="checkbox" id="terms"><label for="terms">I accept</label>
<div role="checkbox" aria-checked="false" id="sms">Texts</div>
<button id="finish">Complete Registration</button>
</body></html>`

func testTiming() config.TimingConfig {
	return config.TimingConfig{
		NavigationSettle: time.Second,
		InteractionWait:  100 * time.Millisecond,
		ConsentWait:      200 * time.Millisecond,
		PollInterval:     10 * time.Millisecond,
		ActionTimeout:    2 * time.Second,
	}
}

func sitePage(t *testing.T, markup string) *snapshot.Page {
	t.Helper()
	p, err := snapshot.New("<html><body></body></html>")
	require.NoError(t, err)
	p.Register(targetURL, markup)
	return p
}

func factoryFor(p dom.Page) autofill.PageFactory {
	return autofill.PageFactoryFunc(func(context.Context) (dom.Page, error) { return p, nil })
}

// reload parses the rendered document so it can be inspected after the run
// closed the page.
func reload(t *testing.T, p *snapshot.Page) *snapshot.Page {
	t.Helper()
	markup, err := p.Render()
	require.NoError(t, err)
	out, err := snapshot.New(markup)
	require.NoError(t, err)
	return out
}

func attrOf(t *testing.T, p *snapshot.Page, selector, name string) (string, bool) {
	t.Helper()
	els, err := p.QueryAll(context.Background(), selector)
	require.NoError(t, err)
	require.NotEmpty(t, els, "no match for %s", selector)
	return els[0].Attribute(context.Background(), name)
}

func TestRun_FillsRegistrationForm(t *testing.T) {
	page := sitePage(t, registrationHTML)
	metrics := observability.NewMetrics()
	runner := autofill.NewRunner(config.DefaultForm(), testTiming(), factoryFor(page), metrics, zaptest.NewLogger(t))

	report, err := runner.Run(context.Background(), targetURL)
	require.NoError(t, err)

	want := []autofill.FieldResult{
		{Field: config.FieldDOB, Outcome: autofill.OutcomeFilled, Element: "dob"},
		{Field: config.FieldFirst, Outcome: autofill.OutcomeFilled, Element: "firstName"},
		{Field: config.FieldLast, Outcome: autofill.OutcomeFilled, Element: "lastName"},
		{Field: config.FieldPhone, Outcome: autofill.OutcomeFilled, Element: "phone"},
		{Field: config.FieldEmail, Outcome: autofill.OutcomeFilled, Element: "email"},
		{Field: config.FieldStreet, Outcome: autofill.OutcomeFilled, Element: "address1"},
		{Field: config.FieldCity, Outcome: autofill.OutcomeFilled, Element: "city"},
		{Field: config.FieldState, Outcome: autofill.OutcomeFilled, Element: "state"},
		{Field: config.FieldPostal, Outcome: autofill.OutcomeFilled, Element: "zip"},
		{Field: config.FieldGender, Outcome: autofill.OutcomeResolved, Keyword: "gender"},
		{Field: config.FieldGoal, Outcome: autofill.OutcomeResolved, Keyword: "goal,fitness,fitness goal,reg. fitness,reg,guest reg"},
	}
	if diff := cmp.Diff(want, report.Fields); diff != "" {
		t.Errorf("field results mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, []autofill.State{
		autofill.StateStart, autofill.StateNavigated, autofill.StateDOBFilled,
		autofill.StateFieldsFilled, autofill.StateGenderResolved, autofill.StateGoalResolved,
		autofill.StateActionClicked, autofill.StateConsentSwept, autofill.StateDone,
	}, report.States)

	assert.Equal(t, autofill.ActionResult{Found: true, Clicked: true, Caption: "next"}, report.Action)
	assert.Equal(t, targetURL, report.Target)
	assert.Empty(t, report.Error)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	assert.True(t, page.Closed(), "the run must close its page")

	filled := reload(t, page)
	for selector, value := range map[string]string{
		"#dob":             "02/05/2004",
		"[name=firstName]": "Michael",
		"[name=lastName]":  "Tse",
		"[name=phone]":     "626-367-8923",
		"[name=email]":     "mmtse12@gmail.com",
		"[name=address1]":  "38 east forest ave",
		"[name=city]":      "Arcadia",
		"[name=state]":     "CA",
		"[name=zip]":       "91006",
	} {
		got, _ := attrOf(t, filled, selector, "value")
		assert.Equal(t, value, got, selector)
	}
	_, maleChecked := attrOf(t, filled, "#gm", "checked")
	assert.True(t, maleChecked)
	_, femaleChecked := attrOf(t, filled, "#gf", "checked")
	assert.False(t, femaleChecked)
	_, gainSelected := attrOf(t, filled, "option[value=gain]", "selected")
	assert.True(t, gainSelected)

	series, err := testutil.GatherAndCount(metrics.Registry(), "guestpass_fields_total")
	require.NoError(t, err)
	assert.Equal(t, 11, series)
}

func TestRun_FollowsConsentPage(t *testing.T) {
	page := sitePage(t, registrationHTML)
	page.OnClick(func(p *snapshot.Page, el *snapshot.Element) {
		if el.String() == "button#next" {
			require.NoError(t, p.Load(consentHTML))
		}
	})
	core, logs := observer.New(zap.InfoLevel)
	runner := autofill.NewRunner(config.DefaultForm(), testTiming(), factoryFor(page), nil, zap.New(core))

	report, err := runner.Run(context.Background(), targetURL)
	require.NoError(t, err)

	require.NotNil(t, report.Consent)
	assert.Equal(t, dom.SweepResult{Checked: 2, SubmitFound: true, SubmitClicked: true}, *report.Consent)
	assert.True(t, report.Reached(autofill.StateConsentSwept))
	assert.Equal(t, "button#finish", page.Clicks()[len(page.Clicks())-1])
	assert.Equal(t, 1, logs.FilterMessage("Clicked next/submit button").Len())
	assert.Equal(t, 1, logs.FilterMessage("Clicked final Submit").Len())

	after := reload(t, page)
	_, termsChecked := attrOf(t, after, "#terms", "checked")
	assert.True(t, termsChecked)
	sms, _ := attrOf(t, after, "#sms", "aria-checked")
	assert.Equal(t, "true", sms)
}

func TestRun_WaitsForSlowConsentPage(t *testing.T) {
	page := sitePage(t, registrationHTML)
	page.OnClick(func(p *snapshot.Page, el *snapshot.Element) {
		if el.String() != "button#next" {
			return
		}
		time.AfterFunc(150*time.Millisecond, func() { _ = p.Load(consentHTML) })
	})
	timing := testTiming()
	timing.ConsentWait = 2 * time.Second
	runner := autofill.NewRunner(config.DefaultForm(), timing, factoryFor(page), nil, zaptest.NewLogger(t))

	report, err := runner.Run(context.Background(), targetURL)
	require.NoError(t, err)

	require.NotNil(t, report.Consent)
	assert.Equal(t, dom.SweepResult{Checked: 2, SubmitFound: true, SubmitClicked: true}, *report.Consent)
	assert.Equal(t, "button#finish", page.Clicks()[len(page.Clicks())-1])
}

func TestRun_MissingFieldsAreRecorded(t *testing.T) {
	page := sitePage(t, `<form><input name="email"><button type="button">Help</button></form>`)
	core, logs := observer.New(zap.WarnLevel)
	runner := autofill.NewRunner(config.DefaultForm(), testTiming(), factoryFor(page), nil, zap.New(core))

	report, err := runner.Run(context.Background(), targetURL)
	require.NoError(t, err, "missing fields never abort a run")

	counts := report.Counts()
	assert.Equal(t, 1, counts[autofill.OutcomeFilled])
	assert.Equal(t, 8, counts[autofill.OutcomeNotFound])
	assert.Equal(t, 2, counts[autofill.OutcomeUnresolved])

	email, ok := report.Field(config.FieldEmail)
	require.True(t, ok)
	assert.Equal(t, autofill.OutcomeFilled, email.Outcome)

	assert.Equal(t, autofill.ActionResult{}, report.Action)
	assert.True(t, report.Reached(autofill.StateActionClicked))
	assert.False(t, report.Reached(autofill.StateConsentSwept))
	assert.True(t, report.Reached(autofill.StateDone))
	assert.Nil(t, report.Consent)

	assert.Equal(t, 8, logs.FilterMessage("Field not found.").Len())
	assert.Equal(t, 1, logs.FilterMessage("No Next/Submit button found automatically").Len())
}

func TestRun_ConsumesElementsWithoutIdentifyingAttributes(t *testing.T) {
	form := config.DefaultForm()
	form.Keywords[config.FieldFirst] = []string{"name"}
	form.Keywords[config.FieldLast] = []string{"name"}
	form.FillOrder = []config.FieldKey{config.FieldFirst, config.FieldLast}

	page := sitePage(t, `<form><input placeholder="Name"><input placeholder="Name"></form>`)
	runner := autofill.NewRunner(form, testTiming(), factoryFor(page), nil, zaptest.NewLogger(t))

	report, err := runner.Run(context.Background(), targetURL)
	require.NoError(t, err)

	first, _ := report.Field(config.FieldFirst)
	last, _ := report.Field(config.FieldLast)
	assert.Equal(t, autofill.OutcomeFilled, first.Outcome)
	assert.Equal(t, autofill.OutcomeFilled, last.Outcome)

	els, err := reload(t, page).QueryAll(context.Background(), "input")
	require.NoError(t, err)
	require.Len(t, els, 2)
	v0, _ := els[0].Attribute(context.Background(), "value")
	v1, _ := els[1].Attribute(context.Background(), "value")
	assert.Equal(t, "Michael", v0)
	assert.Equal(t, "Tse", v1, "the second field must not be refilled through the first")
}

func TestRun_FormIsCopied(t *testing.T) {
	form := config.DefaultForm()
	page := sitePage(t, `<form><input name="firstName"></form>`)
	runner := autofill.NewRunner(form, testTiming(), factoryFor(page), nil, nil)

	form.Values[config.FieldFirst] = "Mallory"

	_, err := runner.Run(context.Background(), targetURL)
	require.NoError(t, err)
	v, _ := attrOf(t, reload(t, page), "input", "value")
	assert.Equal(t, "Michael", v)
}

func TestRun_DefaultTarget(t *testing.T) {
	form := config.DefaultForm()
	page, err := snapshot.New("<html></html>")
	require.NoError(t, err)
	page.Register(form.TargetURL, `<form><input name="city"></form>`)

	report, err := autofill.NewRunner(form, testTiming(), factoryFor(page), nil, nil).Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultTargetURL, report.Target)
}

func TestRun_FatalErrors(t *testing.T) {
	t.Run("page cannot be opened", func(t *testing.T) {
		boom := errors.New("no chromium")
		factory := autofill.PageFactoryFunc(func(context.Context) (dom.Page, error) { return nil, boom })

		report, err := autofill.NewRunner(config.DefaultForm(), testTiming(), factory, nil, nil).Run(context.Background(), targetURL)
		require.ErrorIs(t, err, boom)
		require.NotNil(t, report)
		assert.Equal(t, []autofill.State{autofill.StateStart}, report.States)
		assert.Contains(t, report.Error, "no chromium")
		assert.False(t, report.FinishedAt.IsZero())
	})

	t.Run("navigation fails", func(t *testing.T) {
		page, err := snapshot.New("<html></html>")
		require.NoError(t, err)

		report, err := autofill.NewRunner(config.DefaultForm(), testTiming(), factoryFor(page), nil, nil).Run(context.Background(), "https://unknown.example/")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "navigation failed")
		assert.Equal(t, []autofill.State{autofill.StateStart}, report.States)
		assert.True(t, page.Closed(), "the page is closed on the error path too")
	})

	t.Run("canceled context", func(t *testing.T) {
		page := sitePage(t, registrationHTML)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		report, err := autofill.NewRunner(config.DefaultForm(), testTiming(), factoryFor(page), nil, nil).Run(ctx, targetURL)
		require.ErrorIs(t, err, context.Canceled)
		assert.False(t, report.Reached(autofill.StateDone))
		assert.True(t, page.Closed())
	})
}

func TestRun_FinalSettleHonoursCancellation(t *testing.T) {
	timing := testTiming()
	timing.FinalSettle = time.Hour
	page := sitePage(t, `<form><input name="city"></form>`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	report, err := autofill.NewRunner(config.DefaultForm(), timing, factoryFor(page), nil, nil).Run(ctx, targetURL)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, report.Reached(autofill.StateActionClicked))
	assert.False(t, report.Reached(autofill.StateDone))
}
