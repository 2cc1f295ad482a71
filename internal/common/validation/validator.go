// Package validation validates request payloads with go-playground/validator.
package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"task-dashboard/internal/common/errors"
)

// TaskStatuses are the accepted values of the task_status tag.
var TaskStatuses = []string{"Not Started", "In Progress", "Done"}

// Validator wraps a configured validator.Validate.
type Validator struct {
	validate *validator.Validate
}

// Result contains validation results with structured errors
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

// FieldError represents a single validation error with context
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// New creates a validator with the task-specific tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	registerTaskValidators(v)

	// Report JSON names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateStruct validates a struct using its validate tags.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single value against tag.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	if err := v.validate.Var(field, tag); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// ValidateStructResult validates a struct and returns every field error.
func (v *Validator) ValidateStructResult(s interface{}) *Result {
	err := v.validate.Struct(s)
	if err == nil {
		return &Result{Valid: true, Errors: []FieldError{}}
	}
	return &Result{Valid: false, Errors: extractFieldErrors(err)}
}

// formatValidationErrors converts validator errors into a validation AppError.
func formatValidationErrors(err error) error {
	fieldErrors := extractFieldErrors(err)
	if len(fieldErrors) == 1 {
		return errors.ValidationError(fieldErrors[0].Message)
	}

	messages := make([]string, len(fieldErrors))
	for i, e := range fieldErrors {
		messages[i] = e.Message
	}
	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

func extractFieldErrors(err error) []FieldError {
	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return []FieldError{{Field: "unknown", Tag: "error", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: formatFieldError(fe),
			Param:   fe.Param(),
		})
	}
	return out
}

func formatFieldError(err validator.FieldError) string {
	field := err.Field()
	if field == "" {
		field = "value"
	}
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, err.Param())
	case "task_status":
		return fmt.Sprintf("field '%s' must be one of: %s", field, strings.Join(TaskStatuses, ", "))
	case "notion_id":
		return fmt.Sprintf("field '%s' must be a Notion id", field)
	case "notion_id_or_empty":
		return fmt.Sprintf("field '%s' must be a Notion id or empty", field)
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", field, err.Tag())
	}
}

func registerTaskValidators(v *validator.Validate) {
	_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		status := fl.Field().String()
		for _, valid := range TaskStatuses {
			if status == valid {
				return true
			}
		}
		return false
	})

	// Notion ids are UUIDs, with or without dashes
	_ = v.RegisterValidation("notion_id", func(fl validator.FieldLevel) bool {
		return IsNotionID(fl.Field().String())
	})

	_ = v.RegisterValidation("notion_id_or_empty", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		return id == "" || IsNotionID(id)
	})
}

// IsNotionID reports whether id is a Notion object id.
func IsNotionID(id string) bool {
	if len(id) != 32 && len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

var defaultValidator = New()

// ValidateStruct validates s with the package validator.
func ValidateStruct(s interface{}) error {
	return defaultValidator.ValidateStruct(s)
}

// ValidateVar validates field with the package validator.
func ValidateVar(field interface{}, tag string) error {
	return defaultValidator.ValidateVar(field, tag)
}
