package validate

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// Struct validates a request struct against its `validate` tags and returns a
// single human-readable error naming the first offending fields.
func Struct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	parts := make([]string, len(ve))
	for i, fe := range ve {
		if fe.Param() != "" {
			parts[i] = fe.Field() + " failed on " + fe.Tag() + "=" + fe.Param()
		} else {
			parts[i] = fe.Field() + " failed on " + fe.Tag()
		}
	}
	return &Error{message: strings.Join(parts, "; ")}
}

// Error is a request validation failure.
type Error struct {
	message string
}

func (e *Error) Error() string {
	return e.message
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}
