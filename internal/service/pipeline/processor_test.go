package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pedidohub/backoffice/internal/domain"
	"github.com/pedidohub/backoffice/internal/i18n"
	"github.com/pedidohub/backoffice/internal/service/notify"
	"github.com/pedidohub/backoffice/internal/service/supplierapi"
	"github.com/pedidohub/backoffice/internal/storage/memory"
)

type fixture struct {
	orders      domain.OrderRepository
	customers   domain.CustomerRepository
	suppliers   domain.SupplierRepository
	countries   domain.CountryRepository
	jobs        domain.JobRepository
	outbox      domain.OutboxRepository
	timeline    domain.TimelineRepository
	supplierAPI *supplierapi.Mock
	notifier    *notify.Mock
	processor   Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		orders:      memory.NewOrderRepository(),
		customers:   memory.NewCustomerRepository(),
		suppliers:   memory.NewSupplierRepository(),
		countries:   memory.NewCountryRepository(),
		jobs:        memory.NewJobRepository(time.Hour),
		outbox:      memory.NewOutboxRepository(),
		timeline:    memory.NewTimelineRepository(),
		supplierAPI: supplierapi.NewMock(),
		notifier:    notify.NewMock(),
	}

	countries := []domain.Country{
		{Code: "BR", Name: "Brazil", LanguageCode: "pt-BR", CurrencyCode: "BRL", PhonePrefix: "+55"},
		{Code: "US", Name: "United States", LanguageCode: "en", CurrencyCode: "USD", PhonePrefix: "+1"},
	}
	for _, country := range countries {
		if err := f.countries.Create(country); err != nil {
			t.Fatalf("seed country %s: %v", country.Code, err)
		}
	}

	customer := domain.Customer{
		ID:          "cust-1",
		Name:        "Ana Souza",
		Email:       "ana@example.com",
		Phone:       "+5511998765432",
		Document:    "123.456.789-09",
		CountryCode: "BR",
	}
	if err := f.customers.Create(customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	suppliers := []domain.Supplier{
		{
			ID: "sup-br-1", CompanyName: "Paulista Fulfillment",
			ContactEmail: "ops@paulista.example", CountryCode: "BR",
			Rating: 4.8, APIEndpoint: "https://api.paulista.example/orders", Active: true,
		},
		{
			ID: "sup-br-2", CompanyName: "Carioca Express",
			ContactEmail: "ops@carioca.example", CountryCode: "BR",
			Rating: 4.1, APIEndpoint: "https://api.carioca.example/orders", Active: true,
		},
		{
			ID: "sup-us-1", CompanyName: "Atlantic Dropship",
			ContactEmail: "ops@atlantic.example", CountryCode: "US",
			Rating: 4.9, APIEndpoint: "https://api.atlantic.example/orders", Active: true,
		},
	}
	for _, supplier := range suppliers {
		if err := f.suppliers.Create(supplier); err != nil {
			t.Fatalf("seed supplier %s: %v", supplier.ID, err)
		}
	}

	f.processor = NewProcessorWithoutMetrics(Deps{
		Orders:      f.orders,
		Customers:   f.customers,
		Suppliers:   f.suppliers,
		Countries:   f.countries,
		Jobs:        f.jobs,
		Outbox:      f.outbox,
		Timeline:    f.timeline,
		SupplierAPI: f.supplierAPI,
		Notifier:    f.notifier,
		Catalog:     i18n.NewCatalog(nil),
	}, WithStepDelay(0))

	return f
}

func (f *fixture) enqueue(t *testing.T, payload ImportPayload) domain.Job {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	job, err := f.jobs.Enqueue(domain.Job{
		Type:        domain.JobTypeOrderProcess,
		Payload:     data,
		MaxAttempts: 3,
	})
	if err != nil {
		t.Fatalf("enqueue job: %v", err)
	}
	return job
}

func validPayload() ImportPayload {
	return ImportPayload{
		ShopifyOrderID: "SH-1001",
		CustomerID:     "cust-1",
		Currency:       "BRL",
		TotalMinor:     6000,
		ShippingMinor:  500,
		Items: []ImportItem{
			{SKU: "mug-11oz", Name: "Caneca 11oz", Qty: 2, PriceMinor: 1500},
			{SKU: "tee-classic", Name: "Camiseta", Qty: 1, PriceMinor: 2500},
		},
	}
}

func TestProcessorHappyPath(t *testing.T) {
	f := newFixture(t)
	job := f.enqueue(t, validPayload())

	var progress []int
	err := f.processor.Process(context.Background(), job, func(p int) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if got, want := fmt.Sprint(progress), fmt.Sprint([]int{25, 50, 75, 100}); got != want {
		t.Fatalf("progress reports = %s, want %s", got, want)
	}

	stored, err := f.jobs.Get(job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.OrderID == "" {
		t.Fatal("job was not linked to the created order")
	}

	order, err := f.orders.Get(stored.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusNotified {
		t.Fatalf("order status = %s, want %s", order.Status, domain.OrderStatusNotified)
	}
	if order.SupplierID != "sup-br-1" {
		t.Fatalf("supplier = %s, want the best rated local one", order.SupplierID)
	}
	if order.Version != 2 {
		t.Fatalf("order version = %d, want 2 after two status updates", order.Version)
	}

	if f.supplierAPI.Calls != 1 {
		t.Fatalf("supplier api calls = %d, want 1", f.supplierAPI.Calls)
	}
	if f.supplierAPI.LastSupplier.ID != "sup-br-1" {
		t.Fatalf("order was placed with %s, want sup-br-1", f.supplierAPI.LastSupplier.ID)
	}

	if len(f.notifier.Sent) != 1 {
		t.Fatalf("notifications sent = %d, want 1", len(f.notifier.Sent))
	}
	sent := f.notifier.Sent[0]
	if sent.Language != "pt-BR" {
		t.Fatalf("notification language = %s, want pt-BR", sent.Language)
	}
	if sent.Channel != domain.NotificationChannelEmail {
		t.Fatalf("notification channel = %s, want email", sent.Channel)
	}
	if sent.Recipient != "ana@example.com" {
		t.Fatalf("notification recipient = %s", sent.Recipient)
	}
	if sent.Subject != "Pedido SH-1001 confirmado" {
		t.Fatalf("notification subject = %q", sent.Subject)
	}
	if !strings.Contains(sent.Body, "60.00 BRL") {
		t.Fatalf("notification body misses the total: %q", sent.Body)
	}
	if !strings.Contains(sent.Body, "Paulista Fulfillment") {
		t.Fatalf("notification body misses the supplier: %q", sent.Body)
	}

	events, err := f.timeline.List(order.ID)
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	wantEvents := []string{
		domain.EventOrderRegistered,
		domain.EventOrderSupplierAssigned,
		domain.EventOrderNotified,
	}
	if len(events) != len(wantEvents) {
		t.Fatalf("timeline has %d events, want %d", len(events), len(wantEvents))
	}
	for i, want := range wantEvents {
		if events[i].Type != want {
			t.Fatalf("timeline[%d] = %s, want %s", i, events[i].Type, want)
		}
	}

	pending, err := f.outbox.PullPending(10)
	if err != nil {
		t.Fatalf("pull outbox: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("outbox has %d pending events, want 3", len(pending))
	}
}

func TestProcessorRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)

	payload := validPayload()
	payload.Items = nil
	job := f.enqueue(t, payload)

	err := f.processor.Process(context.Background(), job, nil)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if kind := domain.Classify(err).Kind; kind != domain.ErrorKindValidation {
		t.Fatalf("error kind = %s, want validation", kind)
	}

	if _, total, _ := f.orders.List(domain.OrderFilter{}, domain.PageRequest{}); total != 0 {
		t.Fatalf("orders created = %d, want none", total)
	}
	if f.supplierAPI.Calls != 0 {
		t.Fatalf("supplier api was called %d times on invalid payload", f.supplierAPI.Calls)
	}
}

func TestProcessorRejectsUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	payload := validPayload()
	payload.CustomerID = "cust-missing"
	job := f.enqueue(t, payload)

	err := f.processor.Process(context.Background(), job, nil)
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("err = %v, want ErrCustomerNotFound", err)
	}
}

func TestProcessorRejectsBadDocument(t *testing.T) {
	f := newFixture(t)

	customer := domain.Customer{
		ID: "cust-2", Name: "Bruno Lima", Email: "bruno@example.com",
		Phone: "+5511912345678", Document: "not-a-cpf", CountryCode: "BR",
	}
	if err := f.customers.Create(customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	payload := validPayload()
	payload.CustomerID = "cust-2"
	job := f.enqueue(t, payload)

	err := f.processor.Process(context.Background(), job, nil)
	if err == nil {
		t.Fatal("expected document validation failure")
	}
	classified := domain.Classify(err)
	if classified.Kind != domain.ErrorKindValidation {
		t.Fatalf("error kind = %s, want validation", classified.Kind)
	}
	if !strings.Contains(classified.Error(), domain.ErrDocumentInvalid.Error()) {
		t.Fatalf("violations miss the document problem: %v", classified)
	}
}

func TestProcessorSupplierFailureLeavesOrderRegistered(t *testing.T) {
	f := newFixture(t)
	f.supplierAPI.Err = fmt.Errorf("%w: rejected", domain.ErrSupplierAPIFailure)
	job := f.enqueue(t, validPayload())

	err := f.processor.Process(context.Background(), job, nil)
	if !errors.Is(err, domain.ErrSupplierAPIFailure) {
		t.Fatalf("err = %v, want ErrSupplierAPIFailure", err)
	}

	stored, err := f.jobs.Get(job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if stored.OrderID == "" {
		t.Fatal("order link should survive the supplier failure")
	}

	order, err := f.orders.Get(stored.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusRegistered {
		t.Fatalf("order status = %s, want registered", order.Status)
	}
	if f.notifier.Calls != 0 {
		t.Fatalf("notifier called %d times after supplier failure", f.notifier.Calls)
	}
}

func TestProcessorNoSupplierAvailable(t *testing.T) {
	f := newFixture(t)
	// A fresh supplier repository: nobody active anywhere.
	deps := Deps{
		Orders:      f.orders,
		Customers:   f.customers,
		Suppliers:   memory.NewSupplierRepository(),
		Countries:   f.countries,
		Jobs:        f.jobs,
		Outbox:      f.outbox,
		Timeline:    f.timeline,
		SupplierAPI: f.supplierAPI,
		Notifier:    f.notifier,
		Catalog:     i18n.NewCatalog(nil),
	}
	processor := NewProcessorWithoutMetrics(deps, WithStepDelay(0))
	job := f.enqueue(t, validPayload())

	err := processor.Process(context.Background(), job, nil)
	if !errors.Is(err, domain.ErrNoSupplierAvailable) {
		t.Fatalf("err = %v, want ErrNoSupplierAvailable", err)
	}
}

func TestProcessorFallsBackToForeignSupplier(t *testing.T) {
	f := newFixture(t)

	customer := domain.Customer{
		ID: "cust-pt", Name: "Marta Alves", Email: "marta@example.com",
		Phone: "+351912345678", Document: "123456789", CountryCode: "PT",
	}
	if err := f.customers.Create(customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	if err := f.countries.Create(domain.Country{
		Code: "PT", Name: "Portugal", LanguageCode: "pt", CurrencyCode: "EUR", PhonePrefix: "+351",
	}); err != nil {
		t.Fatalf("seed country: %v", err)
	}

	payload := validPayload()
	payload.ShopifyOrderID = "SH-2001"
	payload.CustomerID = "cust-pt"
	payload.Currency = "EUR"
	job := f.enqueue(t, payload)

	if err := f.processor.Process(context.Background(), job, nil); err != nil {
		t.Fatalf("process: %v", err)
	}

	// No Portuguese supplier is registered, so the best rated supplier from
	// any country takes the order.
	if f.supplierAPI.LastSupplier.ID != "sup-us-1" {
		t.Fatalf("supplier = %s, want the foreign fallback sup-us-1", f.supplierAPI.LastSupplier.ID)
	}
	if got := f.notifier.Sent[0].Language; got != "pt" {
		t.Fatalf("notification language = %s, want pt", got)
	}
}

func TestProcessorSendsSMSWhenEmailMissing(t *testing.T) {
	f := newFixture(t)

	customer := domain.Customer{
		ID: "cust-sms", Name: "Carla Dias", Phone: "+5521955554444",
		Document: "98765432100", CountryCode: "BR",
	}
	if err := f.customers.Create(customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	payload := validPayload()
	payload.ShopifyOrderID = "SH-3001"
	payload.CustomerID = "cust-sms"
	job := f.enqueue(t, payload)

	if err := f.processor.Process(context.Background(), job, nil); err != nil {
		t.Fatalf("process: %v", err)
	}

	sent := f.notifier.Sent[0]
	if sent.Channel != domain.NotificationChannelSMS {
		t.Fatalf("channel = %s, want sms", sent.Channel)
	}
	if sent.Recipient != "+5521955554444" {
		t.Fatalf("recipient = %s, want the phone number", sent.Recipient)
	}
}

func TestProcessorPrefersCustomerLanguage(t *testing.T) {
	f := newFixture(t)

	customer := domain.Customer{
		ID: "cust-es", Name: "Lucia Perez", Email: "lucia@example.com",
		Phone: "+5511933334444", Document: "111.444.777-35",
		PreferredLanguage: "es", CountryCode: "BR",
	}
	if err := f.customers.Create(customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	payload := validPayload()
	payload.ShopifyOrderID = "SH-4001"
	payload.CustomerID = "cust-es"
	job := f.enqueue(t, payload)

	if err := f.processor.Process(context.Background(), job, nil); err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := f.notifier.Sent[0].Language; got != "es" {
		t.Fatalf("notification language = %s, want the customer preference es", got)
	}
}

func TestProcessorRejectsUnsupportedJobType(t *testing.T) {
	f := newFixture(t)

	job, err := f.jobs.Enqueue(domain.Job{
		Type:    domain.JobType("email.send"),
		Payload: []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("enqueue job: %v", err)
	}

	processErr := f.processor.Process(context.Background(), job, nil)
	if processErr == nil {
		t.Fatal("expected unsupported job type failure")
	}
	if code := domain.Classify(processErr).Code; code != "unsupported_job_type" {
		t.Fatalf("error code = %s, want unsupported_job_type", code)
	}
}

func TestProcessorHonorsContext(t *testing.T) {
	f := newFixture(t)
	processor := NewProcessorWithoutMetrics(Deps{
		Orders:      f.orders,
		Customers:   f.customers,
		Suppliers:   f.suppliers,
		Countries:   f.countries,
		Jobs:        f.jobs,
		Outbox:      f.outbox,
		Timeline:    f.timeline,
		SupplierAPI: f.supplierAPI,
		Notifier:    f.notifier,
		Catalog:     i18n.NewCatalog(nil),
	}, WithStepDelay(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job := f.enqueue(t, validPayload())
	started := time.Now()
	err := processor.Process(ctx, job, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(started) > time.Second {
		t.Fatal("cancelled run should return without waiting the step delay")
	}
}

func TestProcessorFailOrder(t *testing.T) {
	f := newFixture(t)
	f.supplierAPI.Err = fmt.Errorf("%w: rejected", domain.ErrSupplierAPIFailure)
	job := f.enqueue(t, validPayload())

	if err := f.processor.Process(context.Background(), job, nil); err == nil {
		t.Fatal("expected supplier failure")
	}
	stored, _ := f.jobs.Get(job.ID)

	f.processor.FailOrder(stored.OrderID, "redelivery limit reached")

	order, err := f.orders.Get(stored.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Status != domain.OrderStatusFailed {
		t.Fatalf("order status = %s, want failed", order.Status)
	}

	events, _ := f.timeline.List(order.ID)
	last := events[len(events)-1]
	if last.Type != domain.EventOrderFailed {
		t.Fatalf("last timeline event = %s, want %s", last.Type, domain.EventOrderFailed)
	}
	if last.Reason != "redelivery limit reached" {
		t.Fatalf("failure reason = %q", last.Reason)
	}

	// Flagging again is a no-op on a terminal order.
	f.processor.FailOrder(stored.OrderID, "second call")
	events, _ = f.timeline.List(order.ID)
	if events[len(events)-1].Reason != "redelivery limit reached" {
		t.Fatal("terminal order must not be flagged twice")
	}
}
