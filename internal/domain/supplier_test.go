package domain

import (
	"testing"
)

func validSupplier() *Supplier {
	return &Supplier{
		ID:           "supplier-1",
		CompanyName:  "Importadora Atlas Ltda",
		ContactEmail: "vendas@atlas.example.com",
		Phone:        "+5511912340000",
		CountryCode:  "BR",
		Rating:       4.5,
		APIEndpoint:  "https://api.atlas.example.com/v1/orders",
		Active:       true,
	}
}

func TestSupplier_ValidateInvariants(t *testing.T) {
	tests := []struct {
		name     string
		mut      func(s *Supplier)
		errCount int
	}{
		{
			name:     "valid supplier",
			mut:      func(s *Supplier) {},
			errCount: 0,
		},
		{
			name:     "missing company name",
			mut:      func(s *Supplier) { s.CompanyName = "" },
			errCount: 1,
		},
		{
			name:     "bad contact email",
			mut:      func(s *Supplier) { s.ContactEmail = "vendas" },
			errCount: 1,
		},
		{
			name:     "empty phone is allowed",
			mut:      func(s *Supplier) { s.Phone = "" },
			errCount: 0,
		},
		{
			name:     "bad phone",
			mut:      func(s *Supplier) { s.Phone = "011-9123" },
			errCount: 1,
		},
		{
			name:     "rating above range",
			mut:      func(s *Supplier) { s.Rating = 5.1 },
			errCount: 1,
		},
		{
			name:     "rating below range",
			mut:      func(s *Supplier) { s.Rating = -0.1 },
			errCount: 1,
		},
		{
			name:     "missing endpoint",
			mut:      func(s *Supplier) { s.APIEndpoint = "" },
			errCount: 1,
		},
		{
			name:     "relative endpoint",
			mut:      func(s *Supplier) { s.APIEndpoint = "/v1/orders" },
			errCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSupplier()
			tt.mut(s)

			errs := s.ValidateInvariants()
			if len(errs) != tt.errCount {
				t.Errorf("expected %d errors, got %d: %v", tt.errCount, len(errs), errs)
			}
		})
	}
}
