// Package classify assigns exactly one session type to a record using an ordered
// table of pattern rules.
package classify

import (
	"fmt"

	"github.com/jonathan/session-indexer/internal/types"
)

// ConfigError reports an invalid rule table.
type ConfigError struct {
	Message string
	Cause   error
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("classifier config error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("classifier config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// Input is what the classifier needs from a parsed record.
type Input struct {
	Text        string
	SessionWeek *int
	TypeHint    string
	// Generic is true when the record is recognizably a coaching session
	// (a participant or week was extracted) even if no pattern matched.
	Generic bool
}

// Result is the chosen type together with its table metadata.
type Result struct {
	Type     types.SessionType
	Priority int
	Required bool
}

// Classifier evaluates the rule table against record text.
type Classifier struct {
	rules       []compiledRule
	meta        map[types.SessionType]TypeMeta
	fallback    types.SessionType
	hour168Rule *compiledRule
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithFallback sets the type used for generic coaching records that match no pattern.
func WithFallback(t types.SessionType) Option {
	return func(c *Classifier) {
		c.fallback = t
	}
}

// New compiles the rule table. Rules are evaluated in the order given.
func New(rules []Rule, opts ...Option) (*Classifier, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}

	c := &Classifier{
		rules:    compiled,
		meta:     make(map[types.SessionType]TypeMeta, len(compiled)+len(defaultMeta)),
		fallback: types.SessionTypeExecution,
	}
	for t, m := range defaultMeta {
		c.meta[t] = m
	}
	for i := range c.rules {
		r := c.rules[i].rule
		c.meta[r.Type] = TypeMeta{Priority: r.Priority, Required: r.Required}
		if r.Type == types.SessionTypeHour168 {
			c.hour168Rule = &c.rules[i]
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	if _, ok := c.meta[c.fallback]; !ok {
		return nil, &ConfigError{Message: fmt.Sprintf("fallback type %s has no table entry", c.fallback)}
	}
	return c, nil
}

// MustNew is like New but panics on an invalid table. Intended for the built-in defaults.
func MustNew(rules []Rule, opts ...Option) *Classifier {
	c, err := New(rules, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the session type for the input. It is a pure function of the
// rule table and the input.
func (c *Classifier) Classify(in Input) Result {
	text := in.Text
	if in.TypeHint != "" {
		text += " " + in.TypeHint
	}

	// Early program weeks force HOUR_168, but only with a corroborating text pattern.
	if in.SessionWeek != nil && (*in.SessionWeek == 1 || *in.SessionWeek == 2) &&
		c.hour168Rule != nil && c.hour168Rule.matches(text) {
		return c.result(types.SessionTypeHour168)
	}

	for i := range c.rules {
		if c.rules[i].matches(text) {
			return c.result(c.rules[i].rule.Type)
		}
	}

	if hinted, ok := types.ParseSessionType(in.TypeHint); ok && hinted == types.SessionTypeRegular {
		return c.result(types.SessionTypeRegular)
	}
	if in.Generic {
		return c.result(c.fallback)
	}
	return c.result(types.SessionTypeUnclassified)
}

// Meta returns the static metadata for a session type.
func (c *Classifier) Meta(t types.SessionType) TypeMeta {
	return c.meta[t]
}

// RequiredTypes lists the types flagged required for onboarding, in table order.
func (c *Classifier) RequiredTypes() []types.SessionType {
	required := make([]types.SessionType, 0, len(c.rules))
	for _, cr := range c.rules {
		if cr.rule.Required {
			required = append(required, cr.rule.Type)
		}
	}
	return required
}

func (c *Classifier) result(t types.SessionType) Result {
	m := c.meta[t]
	return Result{Type: t, Priority: m.Priority, Required: m.Required}
}
