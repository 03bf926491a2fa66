package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/internal/apperr"
)

// Validator adapts go-playground/validator to echo.Validator. Failures come
// back as a single invalid error listing every field.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Invalid("%s", err.Error())
	}
	var errs error
	for _, fe := range fieldErrs {
		errs = multierr.Append(errs, fmt.Errorf("%s %s", fe.Field(), describe(fe)))
	}
	return &apperr.Error{Code: apperr.EInvalid, Msg: errs.Error(), Err: errs}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "url":
		return "must be a valid URL"
	}
	return "failed " + fe.Tag() + " validation"
}
