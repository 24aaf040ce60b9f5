package i18n

import "errors"

var (
	ErrNoTranslations        = errors.New("no translations found")
	ErrFailedToReadFile      = errors.New("failed to read translation file")
	ErrFailedToParseYAML     = errors.New("failed to parse YAML content")
	ErrDefaultLangNotPresent = errors.New("default language has no translations")
)
