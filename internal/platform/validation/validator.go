// Package validation checks request payloads with struct tags. Besides the stock
// validator tags it understands "hhmm" (a 24h HH:MM time of day) and "weekday"
// (a weekday name in any case).
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	domain "github.com/menuslot/api/internal/domain"
)

var (
	instanceOnce sync.Once
	instance     *validator.Validate
)

func engine() *validator.Validate {
	instanceOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseClockTime(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
			_, err := domain.ParseWeekday(fl.Field().String())
			return err == nil
		})
		instance = v
	})
	return instance
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}

// Error lists every failing field with a readable message. It matches
// domain.ErrInvalidInput under errors.Is.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, e.Fields[name])
	}
	return strings.Join(parts, "; ")
}

func (e *Error) Is(target error) bool {
	return target == domain.ErrInvalidInput
}

// Struct validates v. A nil return means every tag passed.
func Struct(v any) error {
	err := engine().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	out := &Error{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		path := fieldPath(fe)
		if _, seen := out.Fields[path]; seen {
			continue
		}
		out.Fields[path] = message(path, fe)
	}
	return out
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func message(path string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "hhmm":
		return fmt.Sprintf("%s must be in HH:MM format", path)
	case "weekday":
		return fmt.Sprintf("%s must be a weekday name", path)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", path)
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", path, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", path)
	}
}
