// Package i18n loads nested YAML message catalogs, one file per language,
// and resolves dot-separated keys with %{name} substitution and simple
// zero/one/other pluralization.
package i18n

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/bookkeeper/pkg/logger"
)

type Translator struct {
	catalogs    map[string]map[string]any
	defaultLang string
	log         *slog.Logger
}

type Option func(*Translator)

// WithLogger logs missing keys at warn level.
func WithLogger(log *slog.Logger) Option {
	return func(t *Translator) {
		t.log = log
	}
}

// New reads every *.yaml / *.yml file at the root of fsys. The file name
// without extension is the language code.
func New(fsys fs.FS, defaultLang string, opts ...Option) (*Translator, error) {
	t := &Translator{
		catalogs:    make(map[string]map[string]any),
		defaultLang: defaultLang,
	}
	for _, opt := range opts {
		opt(t)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, errors.Join(ErrFailedToReadFile, err)
	}
	for _, e := range entries {
		ext := path.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		raw, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			return nil, errors.Join(ErrFailedToReadFile, fmt.Errorf("%s: %w", e.Name(), err))
		}
		var catalog map[string]any
		if err := yaml.Unmarshal(raw, &catalog); err != nil {
			return nil, errors.Join(ErrFailedToParseYAML, fmt.Errorf("%s: %w", e.Name(), err))
		}
		t.catalogs[strings.TrimSuffix(e.Name(), ext)] = catalog
	}

	if len(t.catalogs) == 0 {
		return nil, ErrNoTranslations
	}
	if _, ok := t.catalogs[defaultLang]; !ok {
		return nil, ErrDefaultLangNotPresent
	}
	return t, nil
}

// T resolves key in lang, falling back to the default language and then
// to the key itself. args are name/value pairs for %{name} placeholders.
func (t *Translator) T(lang, key string, args ...string) string {
	msg, ok := t.lookup(lang, key)
	if !ok {
		if t.log != nil {
			t.log.Warn("translation not found", slog.String("lang", lang), slog.String("key", key), logger.Component("i18n"))
		}
		msg = key
	}
	return substitute(msg, args)
}

// N picks key.zero, key.one or key.other by n; %{count} is always set.
func (t *Translator) N(lang, key string, n int, args ...string) string {
	args = append(args, "count", strconv.Itoa(n))

	forms := []string{"other"}
	switch n {
	case 0:
		forms = []string{"zero", "other"}
	case 1:
		forms = []string{"one", "other"}
	}
	for _, form := range forms {
		if msg, ok := t.lookup(lang, key+"."+form); ok {
			return substitute(msg, args)
		}
	}
	return t.T(lang, key, args...)
}

// Has reports whether key resolves in lang or the default language.
func (t *Translator) Has(lang, key string) bool {
	_, ok := t.lookup(lang, key)
	return ok
}

func (t *Translator) lookup(lang, key string) (string, bool) {
	if msg, ok := resolve(t.catalogs[lang], key); ok {
		return msg, true
	}
	if lang != t.defaultLang {
		return resolve(t.catalogs[t.defaultLang], key)
	}
	return "", false
}

func resolve(catalog map[string]any, key string) (string, bool) {
	var cur any = catalog
	for part := range strings.SplitSeq(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[part]; !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

var placeholder = regexp.MustCompile(`%\{([^}]+)\}`)

func substitute(msg string, args []string) string {
	if len(args) < 2 || !strings.Contains(msg, "%{") {
		return msg
	}
	params := make(map[string]string, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		params[args[i]] = args[i+1]
	}
	return placeholder.ReplaceAllStringFunc(msg, func(m string) string {
		if v, ok := params[m[2:len(m)-1]]; ok {
			return v
		}
		return m
	})
}
