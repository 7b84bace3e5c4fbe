package configuration

import (
	"sort"
	"strings"

	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
)

const DefaultInitSteps = "dtpfvg"

// InitStep is one of the single-letter initialisation steps.
type InitStep rune

const (
	StepDrop         InitStep = 'd'
	StepCreate       InitStep = 't'
	StepPrimary      InitStep = 'p'
	StepForeign      InitStep = 'f'
	StepVacuum       InitStep = 'v'
	StepGenerateData InitStep = 'g'
)

// InitSteps is the set of initialisation steps to run.
type InitSteps struct {
	steps map[InitStep]bool
}

// ParseInitSteps parses a string such as "dtpfvg". Upper case G is accepted as an alias for g.
func ParseInitSteps(s string) (InitSteps, error) {
	steps := make(map[InitStep]bool, len(s))
	for _, ch := range s {
		switch InitStep(ch) {
		case StepDrop, StepCreate, StepPrimary, StepForeign, StepVacuum, StepGenerateData:
			steps[InitStep(ch)] = true
		case 'G':
			steps[StepGenerateData] = true
		default:
			return InitSteps{}, &ttbencherrors.ErrConfiguration{
				Name:    "initSteps",
				Value:   s,
				Message: "unknown init step '" + string(ch) + "'",
			}
		}
	}
	return InitSteps{steps: steps}, nil
}

// Contains reports whether step should run.
func (s InitSteps) Contains(step InitStep) bool {
	return s.steps[step]
}

func (s InitSteps) String() string {
	letters := make([]string, 0, len(s.steps))
	for step := range s.steps {
		letters = append(letters, string(step))
	}
	sort.Strings(letters)
	return strings.Join(letters, "")
}

func (s InitSteps) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *InitSteps) UnmarshalText(text []byte) error {
	parsed, err := ParseInitSteps(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Mode bounds the transaction phase.
type Mode string

const (
	ModeIterations Mode = "iterations"
	ModeTime       Mode = "time"
)
