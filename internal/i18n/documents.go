package i18n

import (
	"regexp"
	"strings"

	"github.com/pedidohub/backoffice/internal/domain"
)

// documentPatterns lists the accepted national document formats per country.
// A country may accept several formats (Brazil takes CPF and CNPJ, punctuated
// or bare digits).
var documentPatterns = map[string][]*regexp.Regexp{
	"BR": {
		regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`), // CPF
		regexp.MustCompile(`^\d{11}$`),
		regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`), // CNPJ
		regexp.MustCompile(`^\d{14}$`),
	},
	"PT": {
		regexp.MustCompile(`^\d{9}$`), // NIF
	},
	"ES": {
		regexp.MustCompile(`^\d{8}[A-Z]$`),      // DNI
		regexp.MustCompile(`^[XYZ]\d{7}[A-Z]$`), // NIE
	},
	"US": {
		regexp.MustCompile(`^\d{3}-\d{2}-\d{4}$`), // SSN
		regexp.MustCompile(`^\d{2}-\d{7}$`),       // EIN
	},
	"DE": {
		regexp.MustCompile(`^\d{11}$`), // Steuer-ID
	},
	"FR": {
		regexp.MustCompile(`^\d{13}$`), // INSEE, without the key
		regexp.MustCompile(`^\d{15}$`), // INSEE, with the key
	},
	"IT": {
		regexp.MustCompile(`^[A-Z]{6}\d{2}[A-Z]\d{2}[A-Z]\d{3}[A-Z]$`), // codice fiscale
	},
	"GB": {
		regexp.MustCompile(`^[A-Z]{2}\d{6}[A-Z]$`), // NINO
	},
	"MX": {
		regexp.MustCompile(`^[A-Z]{4}\d{6}[A-Z]{6}[0-9A-Z]\d$`), // CURP
		regexp.MustCompile(`^[A-Z&Ñ]{3,4}\d{6}[A-Z0-9]{3}$`),    // RFC
	},
	"AR": {
		regexp.MustCompile(`^\d{7,8}$`),          // DNI
		regexp.MustCompile(`^\d{2}-\d{8}-\d{1}$`), // CUIT
	},
}

// ValidateDocument checks a national document against the formats accepted
// for the country. Countries without a registered format only require a
// non-empty value.
func ValidateDocument(countryCode, document string) error {
	doc := strings.TrimSpace(document)
	if doc == "" {
		return domain.ErrDocumentRequired
	}

	patterns, ok := documentPatterns[strings.ToUpper(countryCode)]
	if !ok {
		return nil
	}

	for _, re := range patterns {
		if re.MatchString(doc) {
			return nil
		}
	}
	return domain.ErrDocumentInvalid
}
