package domain

import "testing"

func TestCountry_ValidateInvariants(t *testing.T) {
	tests := []struct {
		name     string
		country  *Country
		errCount int
	}{
		{
			name: "valid country",
			country: &Country{
				Code:         "BR",
				Name:         "Brazil",
				LanguageCode: "pt-BR",
				CurrencyCode: "BRL",
				PhonePrefix:  "+55",
			},
			errCount: 0,
		},
		{
			name: "bad code and prefix",
			country: &Country{
				Code:         "BRA",
				Name:         "Brazil",
				LanguageCode: "pt-BR",
				CurrencyCode: "BRL",
				PhonePrefix:  "55",
			},
			errCount: 2,
		},
		{
			name:     "empty country",
			country:  &Country{},
			errCount: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.country.ValidateInvariants()
			if len(errs) != tt.errCount {
				t.Errorf("expected %d errors, got %d: %v", tt.errCount, len(errs), errs)
			}
		})
	}
}
