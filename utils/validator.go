package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", NotBlank)
	_ = v.RegisterValidation("date", IsDate)
	return v
}

func NotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func IsDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

// ParseDate accepts RFC3339 timestamps and plain YYYY-MM-DD dates (UTC).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// ValidationMessage renders validator errors as "field: reason" pairs.
func ValidationMessage(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		var reason string
		switch fe.Tag() {
		case "required", "notblank":
			reason = "is required"
		case "email":
			reason = "must be a valid email"
		case "min":
			reason = "must be at least " + fe.Param() + " characters"
		case "gt":
			reason = "must be greater than " + fe.Param()
		case "date":
			reason = "must be a date (YYYY-MM-DD or RFC3339)"
		default:
			reason = "is invalid"
		}
		msgs = append(msgs, fe.Field()+" "+reason)
	}
	return strings.Join(msgs, "; ")
}
