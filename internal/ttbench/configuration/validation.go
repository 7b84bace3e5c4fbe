package configuration

import (
	"github.com/go-playground/validator/v10"

	"github.com/armadaproject/ttbench/internal/common/ttbencherrors"
	"github.com/armadaproject/ttbench/internal/ttbench/routing"
)

// Validate checks struct tags first and then the rules which span several fields.
// Struct tag failures are returned as validator.ValidationErrors so they can be passed to LogValidationErrors.
func (c Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Scale == 0 {
		return &ttbencherrors.ErrConfiguration{Name: "scale", Value: c.Scale, Message: "scale can't be 0"}
	}
	if c.Backend == BackendTarantool && len(c.Instances) == 0 {
		return &ttbencherrors.ErrConfiguration{Name: "instances", Value: c.Instances, Message: "instance list can't be empty"}
	}
	if _, err := routing.ParseHash(c.Routing.Hash); err != nil {
		return &ttbencherrors.ErrConfiguration{Name: "routing.hash", Value: c.Routing.Hash, Message: err.Error()}
	}
	switch c.Mode {
	case ModeIterations:
		if c.Transactions == 0 {
			return &ttbencherrors.ErrConfiguration{
				Name:    "transactions",
				Value:   c.Transactions,
				Message: "iterations mode needs at least one transaction per job",
			}
		}
	case ModeTime:
		if c.Duration <= 0 {
			return &ttbencherrors.ErrConfiguration{
				Name:    "duration",
				Value:   c.Duration,
				Message: "time mode needs a positive duration",
			}
		}
	}
	return nil
}
