package validation

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxLabelLength bounds node labels in runes
	MaxLabelLength = 200
)

func init() {
	validate = validator.New()
}

// Color accepts an empty string (meaning "inherit") or a hex color.
type colorCheck struct {
	Color string `validate:"omitempty,hexcolor"`
}

// ValidateColor checks a color override
func ValidateColor(color string) error {
	if err := validate.Struct(colorCheck{Color: color}); err != nil {
		return fmt.Errorf("color %q is not a hex color", color)
	}
	return nil
}

// ValidateLabel checks a node label
func ValidateLabel(label string) error {
	if !utf8.ValidString(label) {
		return errors.New("label is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(label); n > MaxLabelLength {
		return fmt.Errorf("label has %d characters, maximum is %d", n, MaxLabelLength)
	}
	return nil
}

// Struct validates struct tags and returns every violation joined together.
func Struct(v any) error {
	return errors.Join(structErrors(v)...)
}

func structErrors(v any) []error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return []error{err}
	}

	out := make([]error, 0, len(validationErrs))
	for _, e := range validationErrs {
		out = append(out, formatFieldError(e))
	}
	return out
}

// formatFieldError converts a validator error to a user-friendly message
func formatFieldError(e validator.FieldError) error {
	field := e.Field()
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Errorf("%s: field is required", field)
	case "hexcolor":
		return fmt.Errorf("%s: %q is not a hex color", field, e.Value())
	case "gt":
		return fmt.Errorf("%s: must be greater than %s", field, param)
	case "gte", "min":
		return fmt.Errorf("%s: must be at least %s", field, param)
	case "lt":
		return fmt.Errorf("%s: must be less than %s", field, param)
	case "lte", "max":
		return fmt.Errorf("%s: must not exceed %s", field, param)
	case "oneof":
		return fmt.Errorf("%s: must be one of [%s]", field, param)
	default:
		return fmt.Errorf("%s: validation failed (%s)", field, e.Tag())
	}
}
