package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/BradenHooton/courier/internal/models"
	"github.com/go-playground/validator/v10"
)

// FieldError names one request field that failed validation
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// RequestValidationError carries every failing field of a request body
type RequestValidationError struct {
	Fields []FieldError
}

func (e *RequestValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var validate = newValidator()

// enumRules ties a validator tag to the parser that accepts its values
var enumRules = map[string]func(string) error{
	"account_status": func(s string) error { _, err := models.ParseStatus(s); return err },
	"plan":           func(s string) error { _, err := models.ParsePlan(s); return err },
	"device_type":    func(s string) error { _, err := models.ParseDeviceType(s); return err },
	"audit_action":   func(s string) error { _, err := models.ParseAuditAction(s); return err },
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names rather than Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	for tag, parse := range enumRules {
		parse := parse
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return parse(fl.Field().String()) == nil
		}); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// ValidateRequest runs the struct tags of req and returns a
// *RequestValidationError listing every failing field
func ValidateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validation failed: %w", err)
	}
	fields := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return &RequestValidationError{Fields: fields}
}

var tagMessages = map[string]string{
	"required":       "this field is required",
	"email":          "must be a valid email address",
	"e164":           "must be an E.164 phone number",
	"min":            "must have at least %s characters",
	"max":            "must have at most %s characters",
	"oneof":          "must be one of: %s",
	"gte":            "must be greater than or equal to %s",
	"lte":            "must be less than or equal to %s",
	"account_status": "must be one of: active inactive suspended deleted",
	"plan":           "must be one of: free basic professional enterprise custom",
	"device_type":    "must be one of: desktop mobile tablet unknown",
	"audit_action":   "must be a known activity",
}

func fieldMessage(fe validator.FieldError) string {
	msg, ok := tagMessages[fe.Tag()]
	if !ok {
		return "failed validation: " + fe.Tag()
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}
