package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct constraints and the cross-field rules the tags
// cannot express. Every returned error wraps ErrValidation.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.StructNamespace() == "Config.Telegram.Token" {
					return fmt.Errorf("%w: %w", ErrValidation, ErrMissingToken)
				}
			}
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if c.UsesGemini() && c.Gemini.APIKey == "" {
		return fmt.Errorf("%w: gemini.api_key is required when the gemini delegate is selected", ErrValidation)
	}
	return nil
}
