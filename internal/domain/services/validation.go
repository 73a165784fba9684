package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"cloudsyncpro/internal/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ToValidationError converts ozzo-validation output into a domain.ValidationError
// listing every failing field. Other errors pass through unchanged.
func ToValidationError(err error) error {
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if !errors.As(err, &errs) {
		var single validation.Error
		if errors.As(err, &single) {
			return &domain.ValidationError{
				Message: "validation failed",
				Fields:  []domain.FieldError{{Field: "request", Message: single.Error()}},
			}
		}
		return err
	}

	fields := make([]domain.FieldError, 0, len(errs))
	for field, fieldErr := range errs {
		fields = append(fields, domain.FieldError{Field: field, Message: fieldErr.Error()})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })

	return &domain.ValidationError{Message: "validation failed", Fields: fields}
}

// notBlank rejects empty and whitespace-only strings, including through pointers
func notBlank(value interface{}) error {
	s, ok := stringValue(value)
	if !ok {
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

// trimmedLength checks rune length after trimming surrounding whitespace
func trimmedLength(min, max int) func(interface{}) error {
	return func(value interface{}) error {
		s, ok := stringValue(value)
		if !ok {
			return nil
		}
		n := utf8.RuneCountInString(strings.TrimSpace(s))
		if n < min || n > max {
			return fmt.Errorf("the length must be between %d and %d", min, max)
		}
		return nil
	}
}

func stringValue(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	default:
		return "", false
	}
}
