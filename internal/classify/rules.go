package classify

import (
	"fmt"
	"regexp"

	"github.com/jonathan/session-indexer/internal/types"
)

// Rule is one entry of the classification table.
type Rule struct {
	Type     types.SessionType `koanf:"type" yaml:"type"`
	Patterns []string          `koanf:"patterns" yaml:"patterns"`
	Priority int               `koanf:"priority" yaml:"priority"`
	Required bool              `koanf:"required" yaml:"required"`
}

// TypeMeta is the static metadata attached to a session type.
type TypeMeta struct {
	Priority int
	Required bool
}

// DefaultRules returns the production classification table. Order matters:
// the first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{
			Type: types.SessionTypeGamePlan,
			Patterns: []string{
				`game[\s_-]?plan`,
				`strategy[\s_-]+(session|plan)`,
				`initial[\s_-]+plan`,
			},
			Priority: 1,
			Required: true,
		},
		{
			Type: types.SessionTypeHour168,
			Patterns: []string{
				`hour[\s_-]?168`,
				`168[\s_-]?(hours?|hrs?|h)\b`,
				`(^|[^0-9])168([^0-9]|$)`,
				`first[\s_-]+(session|meeting|call)`,
				`kick[\s_-]?off`,
				`intro(ductory)?[\s_-]+(session|call|meeting)`,
			},
			Priority: 2,
			Required: true,
		},
		{
			Type: types.SessionTypeExecution,
			Patterns: []string{
				`execution`,
				`exec[\s_-]+session`,
				`check[\s_-]?ins?([^a-z]|$)`,
				`progress[\s_-]+(review|update|session)`,
				`work[\s_-]?session`,
			},
			Priority: 3,
			Required: true,
		},
		{
			Type: types.SessionTypeParent,
			Patterns: []string{
				`(^|[^a-z])parents?([^a-z]|$)`,
				`family[\s_-]+(session|meeting|call)`,
				`(^|[^a-z])(mom|dad|guardian)([^a-z]|$)`,
			},
			Priority: 4,
			Required: false,
		},
		{
			Type: types.SessionTypeMilestone,
			Patterns: []string{
				`milestone`,
				`mid[\s_-]?point`,
				`final[\s_-]+review`,
				`wrap[\s_-]?up`,
				`graduation`,
			},
			Priority: 5,
			Required: false,
		},
	}
}

// defaultMeta covers types that never appear as pattern rules.
var defaultMeta = map[types.SessionType]TypeMeta{
	types.SessionTypeRegular:      {Priority: 6, Required: false},
	types.SessionTypeUnclassified: {Priority: 7, Required: false},
}

// compiledRule is a Rule with its patterns compiled case-insensitively.
type compiledRule struct {
	rule     Rule
	patterns []*regexp.Regexp
}

func compileRules(rules []Rule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	seen := make(map[types.SessionType]struct{}, len(rules))
	for _, rule := range rules {
		if _, dup := seen[rule.Type]; dup {
			return nil, &ConfigError{Message: fmt.Sprintf("duplicate rule for type %s", rule.Type)}
		}
		seen[rule.Type] = struct{}{}

		cr := compiledRule{rule: rule, patterns: make([]*regexp.Regexp, 0, len(rule.Patterns))}
		for _, pattern := range rule.Patterns {
			re, err := regexp.Compile(`(?i)` + pattern)
			if err != nil {
				return nil, &ConfigError{
					Message: fmt.Sprintf("invalid pattern %q for type %s", pattern, rule.Type),
					Cause:   err,
				}
			}
			cr.patterns = append(cr.patterns, re)
		}
		compiled = append(compiled, cr)
	}
	return compiled, nil
}

func (cr *compiledRule) matches(text string) bool {
	for _, re := range cr.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
