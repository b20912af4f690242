package registration

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/tamasbrandstadter/teller/cmd/teller/account"
	"github.com/tamasbrandstadter/teller/cmd/teller/form"
	"github.com/tamasbrandstadter/teller/cmd/teller/validate"
)

var checker = newValidator()

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for _, fe := range v {
		fields = append(fields, fe.Field)
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

func (v ValidationErrors) Message(field string) string {
	for _, fe := range v {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for tag, check := range map[string]func(string) bool{
		validate.Text:   validate.IsNonEmptyText,
		validate.Amount: validate.IsValidAmount,
		validate.Phone:  validate.IsValidPhoneNumber,
		validate.DPI:    validate.IsValidIdentityDocument,
		validate.NIT:    validate.IsValidNIT,
		"accounttype":   func(s string) bool { return account.ParseType(s).Openable() },
	} {
		register(v, tag, check)
	}

	return v
}

func register(v *validator.Validate, tag string, check func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return check(fl.Field().String())
	})
	if err != nil {
		log.WithError(err).WithField("tag", tag).Panic("failed to register validation")
	}
}

func Validate(obj any) ValidationErrors {
	err := checker.Struct(obj)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Message: err.Error(), Type: "invalid"}}
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

func Check(tag string) func(string) error {
	return func(s string) error {
		err := checker.Var(s, tag)
		if err == nil {
			return nil
		}
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return FieldError{Message: errorMessage(verrs[0]), Type: verrs[0].Tag()}
		}
		return err
	}
}

func (f FieldError) Error() string {
	return f.Message
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return form.MsgRequired
	case "email":
		return validate.Messages[validate.Email]
	case "min":
		return "value is too short"
	case "accounttype":
		return "only savings or checking accounts can be opened"
	case "oneof":
		return "must be one of " + fe.Param()
	}

	if msg, ok := validate.Messages[fe.Tag()]; ok {
		return msg
	}
	return "invalid value"
}
