// internal/platform/validate/validate.go

// Package validate holds the shared struct validator with english messages and json field names.
package validate

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Service bundles the validator and its translator.
type Service struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	once sync.Once
	svc  *Service
)

// Get returns the process-wide validator.
func Get() *Service {
	once.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		trans, _ := uni.GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerFieldComparisons(v, trans)

		svc = &Service{Validator: v, Translator: trans}
	})
	return svc
}

// FieldError is one failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors is returned by Struct when constraints fail.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(msgs, "; ")
}

// registerFieldComparisons replaces the cross-field messages so the compared
// field is named by its json name rather than its Go name.
func registerFieldComparisons(v *validator.Validate, trans ut.Translator) {
	texts := map[string]string{
		"gtfield":  "{0} must be greater than {1}",
		"gtefield": "{0} must be greater than or equal to {1}",
		"ltfield":  "{0} must be less than {1}",
		"ltefield": "{0} must be less than or equal to {1}",
	}
	for tag, text := range texts {
		_ = v.RegisterTranslation(tag, trans,
			func(tr ut.Translator) error { return tr.Add(tag, text, true) },
			func(tr ut.Translator, fe validator.FieldError) string {
				msg, err := tr.T(fe.Tag(), fe.Field(), jsonName(fe.Param()))
				if err != nil {
					return fe.Error()
				}
				return msg
			})
	}
}

// jsonName lower-cases the leading letter of a Go field name, matching the
// camelCase json tags used by every validated document.
func jsonName(goName string) string {
	if goName == "" {
		return goName
	}
	return strings.ToLower(goName[:1]) + goName[1:]
}

// Struct validates v and translates failures into Errors.
func Struct(v any) error {
	s := Get()
	err := s.Validator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Message: fe.Translate(s.Translator)})
	}
	return out
}

// fieldPath drops the root struct name from a namespace like "Document.loansPolicy.period".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
