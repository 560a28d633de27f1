package routing

import (
	"os"
	"strings"

	"golang.org/x/text/language"
)

// Language is an instruction language supported by the directions service.
type Language string

const (
	English Language = "en"
	German  Language = "de"
	French  Language = "fr"
	Spanish Language = "es"
)

var supportedLanguages = []Language{English, German, French, Spanish}

// LanguageFor maps a locale onto a supported instruction language by its
// base language. Unsupported locales fall back to English.
func LanguageFor(tag language.Tag) Language {
	base, _ := tag.Base()
	for _, l := range supportedLanguages {
		if base.String() == string(l) {
			return l
		}
	}
	return English
}

// ParseLanguage is LanguageFor on a BCP 47 or POSIX locale string such as
// "de-AT" or "fr_FR.UTF-8".
func ParseLanguage(locale string) Language {
	return LanguageFor(parseLocale(locale))
}

// LanguageFromEnv resolves the instruction language from the POSIX locale
// variables, in the order the C library consults them.
func LanguageFromEnv() Language {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(key); v != "" {
			return ParseLanguage(v)
		}
	}
	return English
}

func parseLocale(locale string) language.Tag {
	// strip codeset and modifier: de_DE.UTF-8@euro
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")
	if locale == "" || locale == "C" || locale == "POSIX" {
		return language.English
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}
