package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "jobqueue-service/internal/pkg/errors"
)

// EnqueueInput is the decoded body of POST /api/jobs
type EnqueueInput struct {
	Command    string `json:"command" validate:"required,notblank"`
	Priority   string `json:"priority" validate:"omitempty,oneof=high normal low"`
	Timeout    *int   `json:"timeout" validate:"omitempty,gt=0"`
	MaxRetries *int   `json:"max_retries" validate:"omitempty,gte=0"`
}

// ListInput is the decoded query of GET /api/jobs
type ListInput struct {
	Status string `form:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
	Limit  *int   `form:"limit" validate:"omitempty,gte=1"`
	Offset *int   `form:"offset" validate:"omitempty,gte=0"`
}

// Validator is the centralised request validator shared by all handlers
type Validator struct {
	validate *validator.Validate
}

// New creates the validator with the custom rules registered
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})

	// required catches missing strings but not whitespace-only ones
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{validate: v}
}

// ValidateEnqueue checks an enqueue body and returns a 400 envelope with
// per-field details on failure
func (v *Validator) ValidateEnqueue(in *EnqueueInput) *apierrors.APIError {
	if err := v.validate.Struct(in); err != nil {
		return invalid(err)
	}
	return nil
}

// ValidateList checks list query parameters
func (v *Validator) ValidateList(in *ListInput) *apierrors.APIError {
	if err := v.validate.Struct(in); err != nil {
		return invalid(err)
	}
	return nil
}

func invalid(err error) *apierrors.APIError {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apierrors.InvalidArgument("Request validation failed")
	}

	details := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fe.Field()] = describe(fe)
	}

	return apierrors.InvalidArgument("Request validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required and cannot be blank"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}
