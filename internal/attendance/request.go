package attendance

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// EnrollRequest is the input of Service.Enroll.
type EnrollRequest struct {
	Name         string `form:"name" validate:"required,max=100"`
	EmployeeCode string `form:"employee_id" validate:"required,max=50"`
	Image        []byte `form:"image" validate:"required,min=1"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// normalize trims surrounding whitespace so blank values fail "required".
func (r *EnrollRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.EmployeeCode = strings.TrimSpace(r.EmployeeCode)
}

// validationError turns validator output into an ErrValidation with a readable message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "min":
			msgs = append(msgs, fe.Field()+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
}
