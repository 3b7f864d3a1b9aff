// File: internal/config/form.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FieldKey identifies one semantic form field.
type FieldKey string

const (
	FieldDOB    FieldKey = "dob"
	FieldFirst  FieldKey = "first"
	FieldLast   FieldKey = "last"
	FieldPhone  FieldKey = "phone"
	FieldEmail  FieldKey = "email"
	FieldGender FieldKey = "gender"
	FieldStreet FieldKey = "street"
	FieldCity   FieldKey = "city"
	FieldState  FieldKey = "state"
	FieldPostal FieldKey = "postal"
	FieldGoal   FieldKey = "goal"
)

// DefaultTargetURL is the registration page used when no URL is supplied.
const DefaultTargetURL = "https://socal.eosfitness.com/westcovina-guest-vip"

// AllFields lists every known key in canonical order.
var AllFields = []FieldKey{
	FieldDOB, FieldFirst, FieldLast, FieldPhone, FieldEmail, FieldGender,
	FieldStreet, FieldCity, FieldState, FieldPostal, FieldGoal,
}

// textFields are filled one after another by the matcher. dob, gender and goal
// have dedicated steps.
var textFields = []FieldKey{
	FieldFirst, FieldLast, FieldPhone, FieldEmail,
	FieldStreet, FieldCity, FieldState, FieldPostal,
}

var defaultValues = map[FieldKey]string{
	FieldDOB:    "02/05/2004",
	FieldFirst:  "Michael",
	FieldLast:   "Tse",
	FieldPhone:  "626-367-8923",
	FieldEmail:  "mmtse12@gmail.com",
	FieldGender: "Male",
	FieldStreet: "38 east forest ave",
	FieldCity:   "Arcadia",
	FieldState:  "CA",
	FieldPostal: "91006",
	FieldGoal:   "Gain Muscle/Weight",
}

var defaultKeywords = map[FieldKey][]string{
	FieldDOB:    {"dob", "dateofbirth", "birth", "birthday", "date"},
	FieldFirst:  {"first", "given"},
	FieldLast:   {"last", "surname", "family"},
	FieldPhone:  {"phone", "mobile", "cell", "tel"},
	FieldEmail:  {"email", "e-mail", "mail"},
	FieldGender: {"gender", "sex"},
	FieldStreet: {"address", "street", "addr"},
	FieldCity:   {"city", "town"},
	FieldState:  {"state", "region", "province"},
	FieldPostal: {"zip", "postal", "postcode", "postalcode"},
	FieldGoal:   {"goal", "fitness", "fitness goal", "reg. fitness", "reg", "guest reg"},
}

// FormConfig is the profile a run fills the page with: values, matching
// keywords and the phrases used to find buttons.
type FormConfig struct {
	TargetURL             string                `mapstructure:"target_url" yaml:"target_url"`
	Values                map[FieldKey]string   `mapstructure:"values" yaml:"values"`
	Keywords              map[FieldKey][]string `mapstructure:"keywords" yaml:"keywords"`
	FillOrder             []FieldKey            `mapstructure:"fill_order" yaml:"fill_order"`
	GenderKeyword         string                `mapstructure:"gender_keyword" yaml:"gender_keyword"`
	GenderFallbackKeyword string                `mapstructure:"gender_fallback_keyword" yaml:"gender_fallback_keyword"`
	GoalFallbackKeywords  []string              `mapstructure:"goal_fallback_keywords" yaml:"goal_fallback_keywords"`
	ActionPhrases         []string              `mapstructure:"action_phrases" yaml:"action_phrases"`
	ConsentPhrases        []string              `mapstructure:"consent_phrases" yaml:"consent_phrases"`
}

func setFormDefaults(v *viper.Viper) {
	v.SetDefault("form.target_url", DefaultTargetURL)
	for key, val := range defaultValues {
		v.SetDefault("form.values."+string(key), val)
	}
	for key, kws := range defaultKeywords {
		v.SetDefault("form.keywords."+string(key), kws)
	}
	order := make([]string, len(textFields))
	for i, k := range textFields {
		order[i] = string(k)
	}
	v.SetDefault("form.fill_order", order)
	v.SetDefault("form.gender_keyword", "gender")
	v.SetDefault("form.gender_fallback_keyword", "sex")
	v.SetDefault("form.goal_fallback_keywords", []string{"fitness", "goal"})
	v.SetDefault("form.action_phrases", []string{"next", "continue", "submit", "join", "get pass", "get started"})
	v.SetDefault("form.consent_phrases", []string{"submit", "finish", "confirm", "complete"})
}

// DefaultForm returns the built-in form profile.
func DefaultForm() FormConfig {
	return NewDefaultConfig().Form()
}

// Value returns the configured value for key.
func (f FormConfig) Value(key FieldKey) string {
	return f.Values[key]
}

// KeywordsFor returns a copy of the keywords registered for key.
func (f FormConfig) KeywordsFor(key FieldKey) []string {
	return append([]string(nil), f.Keywords[key]...)
}

// WithValues returns a copy of f with the given values overlaid.
func (f FormConfig) WithValues(overrides map[FieldKey]string) FormConfig {
	out := f.Clone()
	for k, v := range overrides {
		out.Values[k] = v
	}
	return out
}

// Clone returns a deep copy so callers can never alias the shared profile.
func (f FormConfig) Clone() FormConfig {
	out := f
	out.Values = make(map[FieldKey]string, len(f.Values))
	for k, v := range f.Values {
		out.Values[k] = v
	}
	out.Keywords = make(map[FieldKey][]string, len(f.Keywords))
	for k, v := range f.Keywords {
		out.Keywords[k] = append([]string(nil), v...)
	}
	out.FillOrder = append([]FieldKey(nil), f.FillOrder...)
	out.GoalFallbackKeywords = append([]string(nil), f.GoalFallbackKeywords...)
	out.ActionPhrases = append([]string(nil), f.ActionPhrases...)
	out.ConsentPhrases = append([]string(nil), f.ConsentPhrases...)
	return out
}

// normalize lowercases and trims every keyword and phrase so matching can use
// plain substring checks against normalized signatures.
func (f *FormConfig) normalize() {
	for k, kws := range f.Keywords {
		f.Keywords[k] = lowerAll(kws)
	}
	f.GenderKeyword = strings.ToLower(strings.TrimSpace(f.GenderKeyword))
	f.GenderFallbackKeyword = strings.ToLower(strings.TrimSpace(f.GenderFallbackKeyword))
	f.GoalFallbackKeywords = lowerAll(f.GoalFallbackKeywords)
	f.ActionPhrases = lowerAll(f.ActionPhrases)
	f.ConsentPhrases = lowerAll(f.ConsentPhrases)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseFieldKey maps a user supplied name onto a known FieldKey.
func ParseFieldKey(s string) (FieldKey, error) {
	k := FieldKey(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllFields {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown field %q", s)
}

// ParseOverrides turns "key=value" pairs into a value table.
func ParseOverrides(pairs []string) (map[FieldKey]string, error) {
	out := make(map[FieldKey]string, len(pairs))
	for _, p := range pairs {
		name, val, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("override %q must have the form key=value", p)
		}
		key, err := ParseFieldKey(name)
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

// Validate reports configuration that would leave a step without keywords.
func (f FormConfig) Validate() error {
	if len(f.FillOrder) == 0 {
		return fmt.Errorf("form.fill_order must list at least one field")
	}
	for _, key := range f.FillOrder {
		if _, err := ParseFieldKey(string(key)); err != nil {
			return fmt.Errorf("form.fill_order: %w", err)
		}
		switch key {
		case FieldDOB, FieldGender, FieldGoal:
			return fmt.Errorf("form.fill_order: %q is handled by its own step", key)
		}
	}
	for _, key := range append([]FieldKey{FieldDOB, FieldGoal}, f.FillOrder...) {
		if len(f.Keywords[key]) == 0 {
			return fmt.Errorf("form.keywords.%s must not be empty", key)
		}
	}
	if f.GenderKeyword == "" {
		return fmt.Errorf("form.gender_keyword is required")
	}
	if len(f.ActionPhrases) == 0 {
		return fmt.Errorf("form.action_phrases must not be empty")
	}
	if len(f.ConsentPhrases) == 0 {
		return fmt.Errorf("form.consent_phrases must not be empty")
	}
	return nil
}
