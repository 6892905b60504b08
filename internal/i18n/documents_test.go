package i18n

import (
	"errors"
	"testing"

	"github.com/pedidohub/backoffice/internal/domain"
)

func TestValidateDocument(t *testing.T) {
	tests := []struct {
		name    string
		country string
		doc     string
		wantErr error
	}{
		{name: "brazilian cpf punctuated", country: "BR", doc: "123.456.789-09"},
		{name: "brazilian cpf bare", country: "BR", doc: "12345678909"},
		{name: "brazilian cnpj", country: "BR", doc: "12.345.678/0001-95"},
		{name: "brazilian cpf malformed", country: "BR", doc: "123.456.789", wantErr: domain.ErrDocumentInvalid},
		{name: "portuguese nif", country: "PT", doc: "123456789"},
		{name: "spanish dni", country: "ES", doc: "12345678Z"},
		{name: "spanish nie", country: "ES", doc: "X1234567L"},
		{name: "us ssn", country: "US", doc: "123-45-6789"},
		{name: "italian codice fiscale", country: "IT", doc: "RSSMRA85M01H501Z"},
		{name: "uk nino", country: "GB", doc: "QQ123456C"},
		{name: "argentinian cuit", country: "AR", doc: "20-12345678-9"},
		{name: "wrong shape for country", country: "PT", doc: "12345678Z", wantErr: domain.ErrDocumentInvalid},
		{name: "lowercase country code accepted", country: "br", doc: "12345678909"},
		{name: "unknown country only needs a value", country: "JP", doc: "AB-1234"},
		{name: "empty document", country: "BR", doc: "", wantErr: domain.ErrDocumentRequired},
		{name: "blank document", country: "JP", doc: "   ", wantErr: domain.ErrDocumentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocument(tt.country, tt.doc)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateDocument(%q, %q) = %v, want %v", tt.country, tt.doc, err, tt.wantErr)
			}
		})
	}
}
