package memory_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/storage/memory"
)

func newOrder() domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:             "order-1",
		ShopifyOrderID: "shopify-1001",
		CustomerID:     "customer-1",
		Status:         domain.OrderStatusRegistered,
		Currency:       "BRL",
		TotalMinor:     5500,
		ShippingMinor:  500,
		Items: []domain.OrderItem{
			{ID: "item-1", SKU: "sku-1", Name: "Mug", Qty: 5, PriceMinor: 1000, CreatedAt: now},
		},
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder()

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.ID != order.ID {
		t.Fatalf("expected id %s, got %s", order.ID, stored.ID)
	}
	if len(stored.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(stored.Items))
	}
}

func TestOrderRepository_CreateDuplicateShopifyRef(t *testing.T) {
	repo := memory.NewOrderRepository()
	if err := repo.Create(newOrder()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	dupe := newOrder()
	dupe.ID = "order-2"
	if err := repo.Create(dupe); !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}
}

func TestOrderRepository_ListFilters(t *testing.T) {
	repo := memory.NewOrderRepository()

	for i := 0; i < 5; i++ {
		order := newOrder()
		order.ID = fmt.Sprintf("order-%d", i)
		order.ShopifyOrderID = fmt.Sprintf("shopify-%d", i)
		order.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			order.Status = domain.OrderStatusNotified
		}
		if err := repo.Create(order); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	orders, total, err := repo.List(domain.OrderFilter{Status: domain.OrderStatusNotified}, domain.PageRequest{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}
	// Newest first.
	if orders[0].ID != "order-4" {
		t.Fatalf("expected order-4 first, got %s", orders[0].ID)
	}
}

func TestOrderRepository_ListPagination(t *testing.T) {
	repo := memory.NewOrderRepository()

	for i := 0; i < 7; i++ {
		order := newOrder()
		order.ID = fmt.Sprintf("order-%d", i)
		order.ShopifyOrderID = fmt.Sprintf("shopify-%d", i)
		if err := repo.Create(order); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	page2, total, err := repo.List(domain.OrderFilter{}, domain.PageRequest{Page: 2, PerPage: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 7 {
		t.Fatalf("expected total 7, got %d", total)
	}
	if len(page2) != 3 {
		t.Fatalf("expected 3 orders on page 2, got %d", len(page2))
	}

	page3, _, err := repo.List(domain.OrderFilter{}, domain.PageRequest{Page: 3, PerPage: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page3) != 1 {
		t.Fatalf("expected 1 order on page 3, got %d", len(page3))
	}
}

func TestOrderRepository_Save(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder()
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	stored.Status = domain.OrderStatusSupplierAssigned
	stored.SupplierID = "supplier-1"
	if err := repo.Save(stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	updated, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if updated.SupplierID != "supplier-1" {
		t.Fatalf("expected supplier-1, got %s", updated.SupplierID)
	}
	if updated.Version != stored.Version+1 {
		t.Fatalf("expected version increment, got %d", updated.Version)
	}
}

func TestOrderRepository_SaveReindexesShopifyRef(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder()
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	stored.ShopifyOrderID = "shopify-2002"
	if err := repo.Save(stored); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// The old reference must be free again, the new one taken.
	reuse := newOrder()
	reuse.ID = "order-2"
	if err := repo.Create(reuse); err != nil {
		t.Fatalf("expected old shopify ref to be reusable, got %v", err)
	}

	taken := newOrder()
	taken.ID = "order-3"
	taken.ShopifyOrderID = "shopify-2002"
	if err := repo.Create(taken); !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("expected duplicate order error, got %v", err)
	}
}

func TestOrderRepository_SaveRejectsTakenShopifyRef(t *testing.T) {
	repo := memory.NewOrderRepository()
	first := newOrder()
	if err := repo.Create(first); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second := newOrder()
	second.ID = "order-2"
	second.ShopifyOrderID = "shopify-2002"
	if err := repo.Create(second); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.Get(second.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	stored.ShopifyOrderID = first.ShopifyOrderID
	if err := repo.Save(stored); !errors.Is(err, domain.ErrDuplicateOrder) {
		t.Fatalf("expected duplicate order error, got %v", err)
	}
}

func TestOrderRepository_SaveVersionConflict(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder()
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	order.Version = 42
	if err := repo.Save(order); !domain.IsVersionConflict(err) {
		t.Fatalf("expected version conflict error, got %v", err)
	}
}

func TestOrderRepository_Stats(t *testing.T) {
	repo := memory.NewOrderRepository()

	notified := newOrder()
	notified.Status = domain.OrderStatusNotified
	if err := repo.Create(notified); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled := newOrder()
	cancelled.ID = "order-2"
	cancelled.ShopifyOrderID = "shopify-1002"
	cancelled.Status = domain.OrderStatusCancelled
	if err := repo.Create(cancelled); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.CountByStatus[domain.OrderStatusNotified] != 1 {
		t.Fatalf("expected 1 notified order, got %d", stats.CountByStatus[domain.OrderStatusNotified])
	}
	if stats.CountByStatus[domain.OrderStatusCancelled] != 1 {
		t.Fatalf("expected 1 cancelled order, got %d", stats.CountByStatus[domain.OrderStatusCancelled])
	}
	// Cancelled orders are excluded from revenue.
	if stats.RevenueByCurrency["BRL"] != 5500 {
		t.Fatalf("expected BRL revenue 5500, got %d", stats.RevenueByCurrency["BRL"])
	}
}
