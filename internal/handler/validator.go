package handler

import (
    "errors"
    "fmt"
    "reflect"
    "strings"
    "time"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-reservation/internal/service"
)

const dateLayout = "2006-01-02"

var isoDate validator.Func = func(fl validator.FieldLevel) bool {
    s, ok := fl.Field().Interface().(string)
    if !ok {
        return false
    }
    _, err := time.Parse(dateLayout, s)
    return err == nil
}

var clock validator.Func = func(fl validator.FieldLevel) bool {
    s, ok := fl.Field().Interface().(string)
    if !ok {
        return false
    }
    _, err := service.ParseClock(s)
    return err == nil
}

// RequestValidator adapts validator/v10 to echo.Validator.  Field names in
// errors are the JSON names.
type RequestValidator struct {
    v *validator.Validate
}

// NewValidator builds the validator used by every route, with the custom
// isodate and clock tags.  It panics if a tag cannot be registered, the
// same way the handler constructors panic on missing dependencies.
func NewValidator() *RequestValidator {
    v := validator.New()
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        return name
    })
    if err := registerTags(v, map[string]validator.Func{"isodate": isoDate, "clock": clock}); err != nil {
        panic(err)
    }
    return &RequestValidator{v: v}
}

func registerTags(v *validator.Validate, tags map[string]validator.Func) error {
    for tag, fn := range tags {
        if err := v.RegisterValidation(tag, fn); err != nil {
            return fmt.Errorf("register validation %q: %w", tag, err)
        }
    }
    return nil
}

// Validate runs the struct tags of i.
func (rv *RequestValidator) Validate(i interface{}) error {
    return rv.v.Struct(i)
}

var _ echo.Validator = (*RequestValidator)(nil)

// validationCode turns the first validator failure into the stable code
// sent to clients.
func validationCode(err error) service.ValidationError {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) || len(verrs) == 0 {
        return service.ValidationError{Code: CodeMalformedBody}
    }
    fe := verrs[0]
    field := fe.Field()
    switch {
    case field == "rooms":
        return service.ValidationError{Code: service.CodeNoRooms, Field: field}
    case field == "roomCount":
        return service.ValidationError{Code: service.CodeInvalidRoomCount, Field: field}
    case field == "roomTypeId":
        return service.ValidationError{Code: service.CodeInvalidRoomType, Field: field}
    case fe.Tag() == "required":
        return service.ValidationError{Code: service.CodeMissingField, Field: field}
    case fe.Tag() == "isodate":
        return service.ValidationError{Code: CodeInvalidDate, Field: field}
    case fe.Tag() == "clock":
        return service.ValidationError{Code: service.CodeInvalidArrivalTime, Field: field}
    case fe.Tag() == "email":
        return service.ValidationError{Code: CodeInvalidEmail, Field: field}
    }
    return service.ValidationError{Code: CodeInvalidField, Field: field}
}
