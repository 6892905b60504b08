package domain

import "time"

// OrderStatus describes the lifecycle of an order in the back office.
type OrderStatus string

const (
	// OrderStatusReceived — the payload was accepted and a processing job is queued.
	OrderStatusReceived OrderStatus = "received"
	// OrderStatusValidated — the payload passed validation but is not persisted yet.
	OrderStatusValidated OrderStatus = "validated"
	// OrderStatusRegistered — the order record exists in storage.
	OrderStatusRegistered OrderStatus = "registered"
	// OrderStatusSupplierAssigned — a supplier accepted the order.
	OrderStatusSupplierAssigned OrderStatus = "supplier_assigned"
	// OrderStatusNotified — the customer was notified about fulfillment.
	OrderStatusNotified OrderStatus = "notified"
	// OrderStatusCancelled — the order was cancelled by an operator. Orders are
	// never deleted, cancellation is a status flag.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusFailed — pipeline processing gave up on the order.
	OrderStatusFailed OrderStatus = "failed"
)

// Valid reports whether the status is one of the supported values.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusReceived, OrderStatusValidated, OrderStatusRegistered,
		OrderStatusSupplierAssigned, OrderStatusNotified,
		OrderStatusCancelled, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// OrderItem represents a single order line.
type OrderItem struct {
	// ID identifies the line for auditing.
	ID string
	// SKU is the external product identifier.
	SKU string
	// Name is the product title as received from the storefront.
	Name string
	// Qty is the number of units.
	Qty int32
	// PriceMinor is the unit price in minor currency units (cents, centavos).
	PriceMinor int64
	// CreatedAt records when the line was added to the order.
	CreatedAt time.Time
}

// Order aggregates the state of a customer order and its lines.
type Order struct {
	ID string
	// ShopifyOrderID is the storefront reference the order was imported under.
	// Unique across all orders.
	ShopifyOrderID string
	CustomerID     string
	// SupplierID stays empty until the pipeline assigns a supplier.
	SupplierID    string
	Status        OrderStatus
	Currency      string
	TotalMinor    int64
	ShippingMinor int64
	Notes         string
	Items         []OrderItem
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateInvariants checks the basic order invariants and returns every violation found.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.ShopifyOrderID == "" {
		errs = append(errs, ErrShopifyRefRequired)
	}
	if o.CustomerID == "" {
		errs = append(errs, ErrCustomerRequired)
	}
	if !currencyRe.MatchString(o.Currency) {
		errs = append(errs, ErrCurrencyInvalid)
	}
	if o.Status != "" && !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrAmountNegative)
	}
	if o.ShippingMinor < 0 {
		errs = append(errs, ErrShippingNegative)
	}

	// The order total must equal the lines sum plus shipping.
	var lines int64
	for _, item := range o.Items {
		if item.SKU == "" {
			errs = append(errs, ErrItemSKURequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		lines += int64(item.Qty) * item.PriceMinor
	}
	if len(o.Items) > 0 && lines+o.ShippingMinor != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
