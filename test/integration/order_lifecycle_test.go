package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/pedidohub/backoffice/internal/app"
)

// OrderLifecycleTestSuite drives a full back office process through the HTTP
// API: memory storage, in-process queue, real pipeline.
type OrderLifecycleTestSuite struct {
	suite.Suite
	baseURL string
	client  *http.Client
	cancel  context.CancelFunc
	done    chan error
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type jobView struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
	OrderID   string `json:"order_id"`
}

type orderView struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	SupplierID string `json:"supplier_id"`
	CustomerID string `json:"customer_id"`
	TotalMinor int64  `json:"total_minor"`
}

type timelineEventView struct {
	Type       string    `json:"type"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (suite *OrderLifecycleTestSuite) SetupTest() {
	log.SetLevel(log.WarnLevel) // keep the test output quiet

	cfg := app.DefaultConfig()
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", freePort(suite.T()))
	cfg.OpsAddr = fmt.Sprintf("127.0.0.1:%d", freePort(suite.T()))
	cfg.StepDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	suite.cancel = cancel
	suite.baseURL = "http://" + cfg.HTTPAddr
	suite.client = &http.Client{Timeout: 5 * time.Second}
	suite.done = make(chan error, 1)

	go func() {
		suite.done <- app.Run(ctx, cfg)
	}()

	suite.waitForAPI()
}

func (suite *OrderLifecycleTestSuite) TearDownTest() {
	suite.cancel()
	select {
	case err := <-suite.done:
		require.True(suite.T(), err == nil || errors.Is(err, context.Canceled), "unexpected run error: %v", err)
	case <-time.After(5 * time.Second):
		suite.T().Fatal("application did not stop after cancellation")
	}
}

func (suite *OrderLifecycleTestSuite) TestImportedOrderReachesNotified() {
	suite.seedCountry()
	customerID := suite.seedCustomer()
	supplierID := suite.seedSupplier()

	jobID := suite.importOrder(customerID, "shop-1001", 25000)

	job := suite.waitForJobStatus(jobID, "completed", 10*time.Second)
	require.Equal(suite.T(), 100, job.Progress)
	require.NotEmpty(suite.T(), job.OrderID)

	var order orderView
	suite.getJSON("/api/pedidos/"+job.OrderID, http.StatusOK, &order)
	require.Equal(suite.T(), "notified", order.Status)
	require.Equal(suite.T(), supplierID, order.SupplierID)
	require.Equal(suite.T(), customerID, order.CustomerID)
	require.Equal(suite.T(), int64(25000), order.TotalMinor)

	var timeline []timelineEventView
	suite.getJSON("/api/pedidos/"+job.OrderID+"/timeline", http.StatusOK, &timeline)
	require.GreaterOrEqual(suite.T(), len(timeline), 3)
	suite.requireTimelineEvent(timeline, "order.registered")
	suite.requireTimelineEvent(timeline, "order.supplier_assigned")
	suite.requireTimelineEvent(timeline, "order.customer_notified")
}

func (suite *OrderLifecycleTestSuite) TestImportFailsWithoutSupplier() {
	suite.seedCountry()
	customerID := suite.seedCustomer()
	// No supplier seeded: the assignment step has nobody to hand the order to.

	jobID := suite.importOrder(customerID, "shop-2001", 5000)

	job := suite.waitForJobStatus(jobID, "failed", 10*time.Second)
	require.Contains(suite.T(), job.LastError, "supplier")
	require.NotEmpty(suite.T(), job.OrderID)

	var order orderView
	suite.getJSON("/api/pedidos/"+job.OrderID, http.StatusOK, &order)
	require.Equal(suite.T(), "failed", order.Status)

	var timeline []timelineEventView
	suite.getJSON("/api/pedidos/"+job.OrderID+"/timeline", http.StatusOK, &timeline)
	suite.requireTimelineEvent(timeline, "order.failed")
}

func (suite *OrderLifecycleTestSuite) TestImportRejectsUnknownCustomer() {
	jobID := suite.importOrder("customer-that-does-not-exist", "shop-3001", 5000)

	job := suite.waitForJobStatus(jobID, "failed", 10*time.Second)
	require.Contains(suite.T(), job.LastError, "validate")
}

func (suite *OrderLifecycleTestSuite) TestDashboardStatsReflectImports() {
	suite.seedCountry()
	customerID := suite.seedCustomer()
	suite.seedSupplier()

	jobID := suite.importOrder(customerID, "shop-4001", 12000)
	suite.waitForJobStatus(jobID, "completed", 10*time.Second)

	var stats struct {
		OrdersByStatus  map[string]int64 `json:"orders_by_status"`
		ActiveSuppliers int64            `json:"active_suppliers"`
		JobsByStatus    map[string]int64 `json:"jobs_by_status"`
	}
	suite.getJSON("/api/dashboard/stats", http.StatusOK, &stats)

	require.GreaterOrEqual(suite.T(), stats.OrdersByStatus["notified"], int64(1))
	require.GreaterOrEqual(suite.T(), stats.JobsByStatus["completed"], int64(1))
	require.GreaterOrEqual(suite.T(), stats.ActiveSuppliers, int64(1))
}

// Helpers

func (suite *OrderLifecycleTestSuite) seedCountry() {
	suite.postJSON("/api/countries", map[string]any{
		"code":          "ES",
		"name":          "Spain",
		"language_code": "es",
		"currency_code": "EUR",
		"phone_prefix":  "+34",
	}, http.StatusCreated, nil)
}

func (suite *OrderLifecycleTestSuite) seedCustomer() string {
	var customer struct {
		ID string `json:"id"`
	}
	suite.postJSON("/api/customers", map[string]any{
		"name":               "Carmen Diaz",
		"email":              "carmen@example.es",
		"phone":              "+34911234567",
		"document":           "12345678Z",
		"preferred_language": "es",
		"country_code":       "ES",
	}, http.StatusCreated, &customer)
	require.NotEmpty(suite.T(), customer.ID)
	return customer.ID
}

func (suite *OrderLifecycleTestSuite) seedSupplier() string {
	var supplier struct {
		ID string `json:"id"`
	}
	suite.postJSON("/api/suppliers", map[string]any{
		"company_name":  "Iberia Fulfillment SL",
		"contact_email": "ops@iberiafulfillment.es",
		"phone":         "+34910000000",
		"country_code":  "ES",
		"rating":        4.8,
		"api_endpoint":  "https://api.iberiafulfillment.es/orders",
	}, http.StatusCreated, &supplier)
	require.NotEmpty(suite.T(), supplier.ID)
	return supplier.ID
}

func (suite *OrderLifecycleTestSuite) importOrder(customerID, shopifyRef string, totalMinor int64) string {
	var accepted struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	suite.postJSON("/api/pedidos/import", map[string]any{
		"shopify_order_id": shopifyRef,
		"customer_id":      customerID,
		"currency":         "EUR",
		"total_minor":      totalMinor,
		"items": []map[string]any{
			{"sku": "SKU-1", "name": "ceramic mug", "qty": 1, "price_minor": totalMinor},
		},
	}, http.StatusAccepted, &accepted)
	require.NotEmpty(suite.T(), accepted.JobID)
	require.Equal(suite.T(), "queued", accepted.Status)
	return accepted.JobID
}

func (suite *OrderLifecycleTestSuite) waitForJobStatus(jobID, expected string, timeout time.Duration) jobView {
	deadline := time.Now().Add(timeout)

	var job jobView
	for time.Now().Before(deadline) {
		suite.getJSON("/api/jobs/"+jobID, http.StatusOK, &job)
		if job.Status == expected {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}

	suite.T().Fatalf("job %s did not reach status %s within %v, current status: %s (attempts=%d last_error=%q)",
		jobID, expected, timeout, job.Status, job.Attempts, job.LastError)
	return jobView{}
}

func (suite *OrderLifecycleTestSuite) requireTimelineEvent(timeline []timelineEventView, eventType string) {
	for _, event := range timeline {
		if event.Type == eventType {
			return
		}
	}
	suite.T().Fatalf("timeline is missing event %s: %+v", eventType, timeline)
}

func (suite *OrderLifecycleTestSuite) postJSON(path string, body any, wantStatus int, out any) {
	payload, err := json.Marshal(body)
	require.NoError(suite.T(), err)

	resp, err := suite.client.Post(suite.baseURL+path, "application/json", bytes.NewReader(payload))
	require.NoError(suite.T(), err)
	suite.decodeEnvelope(resp, path, wantStatus, out)
}

func (suite *OrderLifecycleTestSuite) getJSON(path string, wantStatus int, out any) {
	resp, err := suite.client.Get(suite.baseURL + path)
	require.NoError(suite.T(), err)
	suite.decodeEnvelope(resp, path, wantStatus, out)
}

func (suite *OrderLifecycleTestSuite) decodeEnvelope(resp *http.Response, path string, wantStatus int, out any) {
	defer resp.Body.Close()

	var wrapped envelope
	require.NoError(suite.T(), json.NewDecoder(resp.Body).Decode(&wrapped), "decode response for %s", path)
	require.Equal(suite.T(), wantStatus, resp.StatusCode,
		"%s: unexpected status (code=%s message=%s)", path, wrapped.Code, wrapped.Message)
	require.True(suite.T(), wrapped.Success, "%s: expected success envelope", path)

	if out != nil {
		require.NoError(suite.T(), json.Unmarshal(wrapped.Data, out), "decode data for %s", path)
	}
}

func (suite *OrderLifecycleTestSuite) waitForAPI() {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := suite.client.Get(suite.baseURL + "/api/pedidos")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	suite.T().Fatal("API did not come up in time")
}

func freePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	return listener.Addr().(*net.TCPAddr).Port
}

func TestOrderLifecycle(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}
