package domain

import "time"

// Translation is one localized string, unique per (key, language) pair.
// Values may contain {{placeholder}} markers resolved at render time.
type Translation struct {
	ID           string
	Key          string
	LanguageCode string
	Value        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateInvariants checks the translation fields and returns every violation found.
func (t *Translation) ValidateInvariants() []error {
	var errs []error

	if t.Key == "" {
		errs = append(errs, ErrTranslationKeyRequired)
	}
	if !languageRe.MatchString(t.LanguageCode) {
		errs = append(errs, ErrLanguageInvalid)
	}
	if t.Value == "" {
		errs = append(errs, ErrTranslationValueRequired)
	}

	return errs
}
