package config

import (
	"fmt"

	"github.com/danielpatrickdp/feedback-layer/internal/association"
)

// #region constants
// KeySeparator joins mode and token in a beta_seeds document key.
const KeySeparator = "|"

// #endregion constants

// #region error
// Error reports malformed or missing configuration. It is always fatal.
type Error struct {
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "config"
	if e.Field != "" {
		msg += " " + e.Field
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// #endregion error

// #region params
// Params are the tuning parameters of the decision layer.
type Params struct {
	LearningRate float64
	ClampMin     float64
	ClampMax     float64
	Reward       float64
}

// #endregion params

// #region config
// Config is the validated, immutable configuration of one session.
type Config struct {
	Modes     []string // ordered; the first declared mode wins ties
	Tokens    []string
	BetaSeeds map[association.Key]float64
	Params    Params
}

// #endregion config

// #region document
// Document is the on-disk shape shared by the JSON, YAML and TOML encodings.
type Document struct {
	Modes     []string           `json:"modes" yaml:"modes" toml:"modes" validate:"required,min=1,dive,required"`
	Tokens    []string           `json:"tokens" yaml:"tokens" toml:"tokens" validate:"dive,required"`
	BetaSeeds map[string]float64 `json:"beta_seeds" yaml:"beta_seeds" toml:"beta_seeds"`
	Params    *DocumentParams    `json:"params" yaml:"params" toml:"params" validate:"required"`
}

// DocumentParams mirrors Params with presence tracking.
type DocumentParams struct {
	LearningRate *float64 `json:"learning_rate" yaml:"learning_rate" toml:"learning_rate" validate:"required"`
	ClampMin     *float64 `json:"clamp_min" yaml:"clamp_min" toml:"clamp_min" validate:"required"`
	ClampMax     *float64 `json:"clamp_max" yaml:"clamp_max" toml:"clamp_max" validate:"required"`
	Reward       *float64 `json:"reward" yaml:"reward" toml:"reward" validate:"required"`
}

// #endregion document
