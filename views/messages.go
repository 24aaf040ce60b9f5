package views

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/dmitrymomot/bookkeeper/pkg/i18n"
	"github.com/dmitrymomot/bookkeeper/pkg/validator"
)

const lang = "pt"

//go:embed messages/*.yaml
var catalogs embed.FS

var translator = mustTranslator()

func mustTranslator() *i18n.Translator {
	sub, err := fs.Sub(catalogs, "messages")
	if err != nil {
		panic(err)
	}
	t, err := i18n.New(sub, lang)
	if err != nil {
		panic(err)
	}
	return t
}

// T translates key into the interface language.
func T(key string, args ...string) string {
	return translator.T(lang, key, args...)
}

func N(key string, n int, args ...string) string {
	return translator.N(lang, key, n, args...)
}

// ErrorMessage translates an HTTPError key such as "not_found".
func ErrorMessage(key string) string {
	if !translator.Has(lang, "errors."+key) {
		key = "internal_server_error"
	}
	return T("errors." + key)
}

// FieldError is the localized message of the first failure on field,
// or "" when the field is valid.
func FieldError(errs validator.ValidationErrors, field string) string {
	ve, ok := errs.First(field)
	if !ok {
		return ""
	}

	args := make([]string, 0, 2*len(ve.TranslationValues))
	for k, v := range ve.TranslationValues {
		s := fmt.Sprint(v)
		if k == "field" {
			s = T("fields." + s)
		}
		args = append(args, k, s)
	}
	if !translator.Has(lang, ve.TranslationKey) {
		return ve.Message
	}
	return T(ve.TranslationKey, args...)
}
