// Package validate provides a singleton struct validator with English messages
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"discordsearch/internal/core/snowflake"
	perr "discordsearch/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// FieldLevel aliases validator.FieldLevel
type FieldLevel = validator.FieldLevel

// Svc holds a singleton validator and translator
type Svc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *Svc
)

// Init initializes the singleton validator with english translations and flag tag names
func Init() *Svc {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// messages name the CLI flag (--guild) rather than the Go field
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("flag")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return "--" + tag
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerRequired(v, trans)
		registerSnowflake(v, trans)

		vSvc = &Svc{Validator: v, Translator: trans}
	})
	return vSvc
}

// Get returns the validator singleton, initializing on first use
func Get() *Svc {
	if vSvc == nil {
		return Init()
	}
	return vSvc
}

// Struct validates s and maps the first failure to a Validation error carrying the field
func Struct(s any) error {
	err := Get().Validator.Struct(s)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return perr.Wrap(inv, perr.ErrorCodeUnknown, "validator internal error")
	}
	field, msg := FieldAndMessage(err)
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
}

// FieldAndMessage returns the first field and translated message
func FieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			return fe.Field(), fe.Translate(Get().Translator)
		}
	}
	return "", err.Error()
}

// snowflakeTag checks string and *string fields; pointers are dereferenced by the validator
func snowflakeTag(fl FieldLevel) bool {
	return snowflake.IsValid(fl.Field().String())
}

// custom translations with short messages

func registerRequired(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterTranslation("required", trans,
		func(ut ut.Translator) error {
			return ut.Add("required", "{0} is required", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("required", fe.Field())
			return msg
		},
	)
}

func registerSnowflake(v *validator.Validate, trans ut.Translator) {
	_ = v.RegisterValidation("snowflake", snowflakeTag)
	_ = v.RegisterTranslation("snowflake", trans,
		func(ut ut.Translator) error {
			return ut.Add("snowflake", "{0} must be a snowflake id (17 to 19 digits), got {1}", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T("snowflake", fe.Field(), valueString(fe.Value()))
			return msg
		},
	)
}

func valueString(v any) string {
	switch s := v.(type) {
	case string:
		return "\"" + s + "\""
	case *string:
		if s == nil {
			return "nothing"
		}
		return "\"" + *s + "\""
	}
	return "an invalid value"
}
