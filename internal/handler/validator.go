package handler

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// RequestValidator adapts go-playground/validator to echo.Validator so
// handlers can call c.Validate on bound request bodies.
type RequestValidator struct {
    v *validator.Validate
}

// NewRequestValidator returns a validator with required-struct checks on.
// Field names in errors come from the json tags.
func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i interface{}) error {
    return rv.v.Struct(i)
}

// validationMessage flattens validator errors into one readable line such
// as "password must be at least 8 characters long".  Other errors are
// returned as-is.
func validationMessage(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err.Error()
    }
    parts := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        parts = append(parts, fe.Field()+" "+fieldMessage(fe))
    }
    return strings.Join(parts, "; ")
}

func fieldMessage(fe validator.FieldError) string {
    switch fe.Tag() {
    case "required":
        return "is required"
    case "email":
        return "must be a valid email address"
    case "min":
        if fe.Kind() == reflect.String {
            return fmt.Sprintf("must be at least %s characters long", fe.Param())
        }
        return fmt.Sprintf("must be at least %s", fe.Param())
    case "max":
        if fe.Kind() == reflect.String {
            return fmt.Sprintf("must be at most %s characters long", fe.Param())
        }
        return fmt.Sprintf("must be at most %s", fe.Param())
    case "gt":
        return fmt.Sprintf("must be greater than %s", fe.Param())
    case "datetime":
        return fmt.Sprintf("must match the layout %s", fe.Param())
    default:
        return "is invalid"
    }
}
