package middleware

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ctxBodyKey is where the validated request body is stashed so handlers
// can fetch it without re-binding.
const ctxBodyKey = "validatedBody"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names from json tags so validation errors match the
	// wire format the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// password: at least one uppercase letter, one lowercase letter, one digit.
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		var upper, lower, digit bool
		for _, r := range fl.Field().String() {
			switch {
			case unicode.IsUpper(r):
				upper = true
			case unicode.IsLower(r):
				lower = true
			case unicode.IsDigit(r):
				digit = true
			}
		}
		return upper && lower && digit
	})
	return v
}

// fieldError is one entry of the 422 response body.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateBody binds the JSON body into a fresh T and runs struct
// validation. Violations short-circuit with 422 and field-level messages;
// on success the parsed value is stored in context for the handler.
func ValidateBody[T any]() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			body := new(T)
			if err := c.Bind(body); err != nil {
				return c.JSON(http.StatusUnprocessableEntity, echo.Map{
					"success": false,
					"message": "Request body validation failed",
					"errors":  []fieldError{{Field: "body", Message: "malformed JSON body"}},
				})
			}
			if err := validate.Struct(body); err != nil {
				verrs, ok := err.(validator.ValidationErrors)
				if !ok {
					return err
				}
				errs := make([]fieldError, 0, len(verrs))
				for _, fe := range verrs {
					errs = append(errs, fieldError{Field: fe.Field(), Message: messageFor(fe)})
				}
				return c.JSON(http.StatusUnprocessableEntity, echo.Map{
					"success": false,
					"message": "Request body validation failed",
					"errors":  errs,
				})
			}
			c.Set(ctxBodyKey, body)
			return next(c)
		}
	}
}

// Body returns the value stored by ValidateBody. Panics if the route was
// registered without the matching ValidateBody[T], which is a wiring bug.
func Body[T any](c echo.Context) *T {
	return c.Get(ctxBodyKey).(*T)
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please provide a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must only contain numbers", fe.Field())
	case "password":
		return "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	case "eq":
		return fmt.Sprintf("%s must be %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
