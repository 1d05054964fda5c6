// Package form binds submitted HTML form values to domain types.
package form

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"gopkg.in/guregu/null.v3"

	"github.com/vyrodovalexey/itemservice/internal/model"
)

// Item form field names.
const (
	FieldItemName = "itemName"
	FieldPrice    = "price"
	FieldQuantity = "quantity"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError describes rejected form fields.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}

	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Field returns the message for the named field, or an empty string.
func (e *ValidationError) Field(name string) string {
	if e == nil {
		return ""
	}
	return e.Fields[name]
}

// ParseItem builds an unsaved item from submitted form values.
// Numeric fields left empty stay unset. When any field is rejected the
// returned item still carries every value that could be parsed, so the
// form can be redisplayed, and the error is a *ValidationError.
func ParseItem(values url.Values) (*model.Item, error) {
	fields := make(map[string]string)

	item := &model.Item{
		ItemName: strings.TrimSpace(values.Get(FieldItemName)),
	}

	var err error
	if item.Price, err = parseOptionalInt(values.Get(FieldPrice)); err != nil {
		fields[FieldPrice] = err.Error()
	}
	if item.Quantity, err = parseOptionalInt(values.Get(FieldQuantity)); err != nil {
		fields[FieldQuantity] = err.Error()
	}

	if err := item.Validate(); err != nil {
		var errs validation.Errors
		if !errors.As(err, &errs) {
			return item, fmt.Errorf("validating item: %w", err)
		}
		for name, fieldErr := range errs {
			// A parse failure is more specific than a rule failure.
			if _, exists := fields[name]; !exists {
				fields[name] = fieldErr.Error()
			}
		}
	}

	if len(fields) > 0 {
		return item, &ValidationError{Fields: fields}
	}

	return item, nil
}

// Submitted returns the raw item field values, for redisplaying a rejected form.
func Submitted(values url.Values) map[string]string {
	return map[string]string{
		FieldItemName: values.Get(FieldItemName),
		FieldPrice:    values.Get(FieldPrice),
		FieldQuantity: values.Get(FieldQuantity),
	}
}

// parseOptionalInt parses a base-10 integer, treating blank input as unset.
func parseOptionalInt(raw string) (null.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return null.Int{}, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return null.Int{}, errors.New("must be a whole number")
	}

	return null.IntFrom(n), nil
}
