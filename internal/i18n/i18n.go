// Package i18n resolves languages for customers and suppliers and renders
// the localized strings used when contacting them. Lookups are static tables
// and regex substitution; there is no pluralization engine and the fallback
// chain is deliberately shallow.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

var supportedTags = []language.Tag{
	language.MustParse("pt-BR"),
	language.Portuguese,
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Italian,
}

var tagMatcher = language.NewMatcher(supportedTags)

// dialCodeLanguages maps international dial codes (digits only) to the
// language usually spoken by customers calling from them. Longest prefix wins.
var dialCodeLanguages = map[string]string{
	"55":  "pt-BR",
	"351": "pt",
	"1":   "en",
	"44":  "en",
	"61":  "en",
	"353": "en",
	"34":  "es",
	"52":  "es",
	"54":  "es",
	"56":  "es",
	"57":  "es",
	"33":  "fr",
	"32":  "fr",
	"49":  "de",
	"43":  "de",
	"41":  "de",
	"39":  "it",
}

// Supported returns the supported language tags, best match order.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the language used when nothing else matches.
func Default() language.Tag {
	return language.English
}

// FromPhone maps an E.164 phone number to a language via its dial code.
func FromPhone(phone string) (language.Tag, bool) {
	digits := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	if digits == "" {
		return language.Und, false
	}

	// Dial codes are one to three digits; try the longest first.
	max := 3
	if len(digits) < max {
		max = len(digits)
	}
	for l := max; l >= 1; l-- {
		if code, ok := dialCodeLanguages[digits[:l]]; ok {
			return language.MustParse(code), true
		}
	}
	return language.Und, false
}

// Resolve picks the best supported language for a customer. Candidates are
// tried in order: the explicit preference, the phone dial code, the country
// default. English when none resolve.
func Resolve(preferred, phone, countryDefault string) language.Tag {
	var candidates []language.Tag

	if preferred != "" {
		if tag, err := language.Parse(preferred); err == nil {
			candidates = append(candidates, tag)
		}
	}
	if tag, ok := FromPhone(phone); ok {
		candidates = append(candidates, tag)
	}
	if countryDefault != "" {
		if tag, err := language.Parse(countryDefault); err == nil {
			candidates = append(candidates, tag)
		}
	}

	if len(candidates) == 0 {
		return Default()
	}

	_, idx, conf := tagMatcher.Match(candidates...)
	if conf == language.No {
		return Default()
	}
	return supportedTags[idx]
}
