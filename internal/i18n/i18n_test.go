package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestFromPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  string
		ok    bool
	}{
		{phone: "+5511987654321", want: "pt-BR", ok: true},
		{phone: "+351912345678", want: "pt", ok: true},
		{phone: "+14155550100", want: "en", ok: true},
		{phone: "+442071838750", want: "en", ok: true},
		{phone: "+34600000000", want: "es", ok: true},
		{phone: "+4915123456789", want: "de", ok: true},
		{phone: "+390612345678", want: "it", ok: true},
		{phone: "+99912345", want: "", ok: false},
		{phone: "", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			got, ok := FromPhone(tt.phone)
			if ok != tt.ok {
				t.Fatalf("FromPhone(%q) ok = %v, want %v", tt.phone, ok, tt.ok)
			}
			if ok && got.String() != tt.want {
				t.Fatalf("FromPhone(%q) = %s, want %s", tt.phone, got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name           string
		preferred      string
		phone          string
		countryDefault string
		want           string
	}{
		{
			name:      "explicit preference wins",
			preferred: "es",
			phone:     "+5511987654321",
			want:      "es",
		},
		{
			name:  "phone prefix when no preference",
			phone: "+5511987654321",
			want:  "pt-BR",
		},
		{
			name:           "country default when phone unknown",
			phone:          "+99912345",
			countryDefault: "fr",
			want:           "fr",
		},
		{
			name: "english fallback",
			want: "en",
		},
		{
			name:      "unsupported preference falls through to phone",
			preferred: "ja",
			phone:     "+351912345678",
			want:      "pt",
		},
		{
			name:      "regional variant matches base",
			preferred: "pt-PT",
			want:      "pt",
		},
		{
			name:      "garbage preference ignored",
			preferred: "???",
			phone:     "+5511987654321",
			want:      "pt-BR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.preferred, tt.phone, tt.countryDefault)
			if got.String() != tt.want {
				t.Fatalf("Resolve(%q, %q, %q) = %s, want %s",
					tt.preferred, tt.phone, tt.countryDefault, got, tt.want)
			}
		})
	}
}

func TestSupportedIncludesBrazilianPortuguese(t *testing.T) {
	for _, tag := range Supported() {
		if tag == language.MustParse("pt-BR") {
			return
		}
	}
	t.Fatal("pt-BR must be a supported language")
}
