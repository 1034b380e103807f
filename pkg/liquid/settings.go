package liquid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neurodesk/liquid/pkg/validator"
)

// DefaultMaxDepth bounds how deeply loop bodies may re-enter the pipeline.
const DefaultMaxDepth = 100

// ConditionsMode selects how condition tags are resolved.
type ConditionsMode int

const (
	ConditionsOff ConditionsMode = iota
	ConditionsOn
	// ConditionsStrict leaves a condition group untouched when one of its
	// expressions refers to an undefined variable.
	ConditionsStrict
)

func (m ConditionsMode) String() string {
	switch m {
	case ConditionsOff:
		return "false"
	case ConditionsOn:
		return "true"
	case ConditionsStrict:
		return "strict"
	}
	return fmt.Sprintf("ConditionsMode(%d)", int(m))
}

// MarshalText encodes the mode as true, false or strict.
func (m ConditionsMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText accepts a boolean or "strict".
func (m *ConditionsMode) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if strings.EqualFold(s, "strict") {
		*m = ConditionsStrict
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("conditions must be true, false or strict, got %q", s)
	}
	if b {
		*m = ConditionsOn
	} else {
		*m = ConditionsOff
	}
	return nil
}

type Settings struct {
	Conditions                ConditionsMode `yaml:"conditions" json:"conditions"`
	Cycles                    bool           `yaml:"cycles" json:"cycles"`
	Substitutions             bool           `yaml:"substitutions" json:"substitutions"`
	ConditionsInCode          bool           `yaml:"conditionsInCode" json:"conditionsInCode"`
	KeepConditionSyntaxOnTrue bool           `yaml:"keepConditionSyntaxOnTrue" json:"keepConditionSyntaxOnTrue"`
	KeepNotVar                bool           `yaml:"keepNotVar" json:"keepNotVar"`
	LegacyConditions          bool           `yaml:"legacyConditions" json:"legacyConditions"`
	MaxDepth                  int            `yaml:"maxDepth,omitempty" json:"maxDepth,omitempty"`
}

// DefaultSettings enables conditions, cycles and substitutions.
func DefaultSettings() Settings {
	return Settings{
		Conditions:    ConditionsOn,
		Cycles:        true,
		Substitutions: true,
		MaxDepth:      DefaultMaxDepth,
	}
}

func (s Settings) Validate() error {
	return validator.All(
		validator.MatchesAllowed(s.Conditions, []ConditionsMode{ConditionsOff, ConditionsOn, ConditionsStrict}, "conditions"),
		validator.NotNegative(s.MaxDepth, "maxDepth"),
	)
}

func (s Settings) maxDepth() int {
	if s.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return s.MaxDepth
}
