package supplierapi

import (
	"context"

	"github.com/pedidohub/backoffice/internal/domain"
)

// Mock is a configurable SupplierAPI stub for tests.
type Mock struct {
	Ref string
	Err error

	Calls        int
	LastSupplier domain.Supplier
	LastOrder    domain.Order
}

// NewMock returns a mock that succeeds with a fixed reference.
func NewMock() *Mock {
	return &Mock{Ref: "ext-mock"}
}

// PlaceOrder returns the configured result and records the call.
func (m *Mock) PlaceOrder(ctx context.Context, supplier domain.Supplier, order domain.Order) (string, error) {
	m.Calls++
	m.LastSupplier = supplier
	m.LastOrder = order
	if m.Err != nil {
		return "", m.Err
	}
	return m.Ref, nil
}

var _ domain.SupplierAPI = (*Mock)(nil)
