package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

type orderItemPayload struct {
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

// orderPayload is the body of POST and PUT order requests.
type orderPayload struct {
	ShopifyOrderID string             `json:"shopify_order_id"`
	CustomerID     string             `json:"customer_id"`
	SupplierID     string             `json:"supplier_id"`
	Status         string             `json:"status"`
	Currency       string             `json:"currency"`
	TotalMinor     int64              `json:"total_minor"`
	ShippingMinor  int64              `json:"shipping_minor"`
	Notes          string             `json:"notes"`
	Items          []orderItemPayload `json:"items"`
}

// orderPatchPayload carries the fields PATCH may change. Pointers separate
// "not sent" from zero values.
type orderPatchPayload struct {
	Status        *string `json:"status"`
	SupplierID    *string `json:"supplier_id"`
	TotalMinor    *int64  `json:"total_minor"`
	ShippingMinor *int64  `json:"shipping_minor"`
	Notes         *string `json:"notes"`
}

type orderItemResponse struct {
	ID         string `json:"id"`
	SKU        string `json:"sku"`
	Name       string `json:"name"`
	Qty        int32  `json:"qty"`
	PriceMinor int64  `json:"price_minor"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	ShopifyOrderID string              `json:"shopify_order_id"`
	CustomerID     string              `json:"customer_id"`
	SupplierID     string              `json:"supplier_id,omitempty"`
	Status         domain.OrderStatus  `json:"status"`
	Currency       string              `json:"currency"`
	TotalMinor     int64               `json:"total_minor"`
	ShippingMinor  int64               `json:"shipping_minor"`
	Notes          string              `json:"notes,omitempty"`
	Items          []orderItemResponse `json:"items"`
	Version        int64               `json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func newOrderResponse(order domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			ID:         item.ID,
			SKU:        item.SKU,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}
	return orderResponse{
		ID:             order.ID,
		ShopifyOrderID: order.ShopifyOrderID,
		CustomerID:     order.CustomerID,
		SupplierID:     order.SupplierID,
		Status:         order.Status,
		Currency:       order.Currency,
		TotalMinor:     order.TotalMinor,
		ShippingMinor:  order.ShippingMinor,
		Notes:          order.Notes,
		Items:          items,
		Version:        order.Version,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

type timelineEventResponse struct {
	Type       string    `json:"type"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type importResponse struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
}

type orderHandlers struct {
	orders      domain.OrderRepository
	customers   domain.CustomerRepository
	suppliers   domain.SupplierRepository
	jobs        domain.JobRepository
	queue       domain.JobQueue
	outbox      domain.OutboxRepository
	timeline    domain.TimelineRepository
	logger      *log.Entry
	maxAttempts int
}

func (h *orderHandlers) register(router *mux.Router) {
	router.HandleFunc("/pedidos/import", h.importOrder).Methods(http.MethodPost)
	router.HandleFunc("/pedidos", h.create).Methods(http.MethodPost)
	router.HandleFunc("/pedidos", h.list).Methods(http.MethodGet)
	router.HandleFunc("/pedidos/{id}", h.get).Methods(http.MethodGet)
	router.HandleFunc("/pedidos/{id}", h.update).Methods(http.MethodPut)
	router.HandleFunc("/pedidos/{id}", h.patch).Methods(http.MethodPatch)
	router.HandleFunc("/pedidos/{id}", h.cancel).Methods(http.MethodDelete)
	router.HandleFunc("/pedidos/{id}/timeline", h.listTimeline).Methods(http.MethodGet)
}

// importOrder accepts a raw storefront payload and queues the processing
// job. The payload itself is validated by the pipeline, not here; the import
// endpoint only guards against garbage that could never be a payload.
func (h *orderHandlers) importOrder(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, domain.WrapError(domain.ErrorKindValidation, "unreadable_body", "failed to read request body", err))
		return
	}
	if len(payload) == 0 {
		writeError(w, h.logger, domain.NewError(domain.ErrorKindValidation, "empty_body", "request body is required"))
		return
	}
	if !json.Valid(payload) {
		writeError(w, h.logger, domain.NewError(domain.ErrorKindValidation, "invalid_json", "request body is not valid JSON"))
		return
	}

	job, err := h.jobs.Enqueue(domain.Job{
		Type:        domain.JobTypeOrderProcess,
		Payload:     payload,
		MaxAttempts: h.maxAttempts,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.queue.Enqueue(job); err != nil {
		// The record exists but the queue refused it; settle the record so it
		// does not sit in queued forever.
		if markErr := h.jobs.MarkFailed(job.ID, "enqueue: "+err.Error()); markErr != nil {
			h.logger.WithError(markErr).WithField("job_id", job.ID).Warn("failed to settle unqueued job")
		}
		writeError(w, h.logger, domain.WrapError(domain.ErrorKindExternalService, "queue_unavailable", "failed to hand the job to the queue", err))
		return
	}

	h.logger.WithField("job_id", job.ID).Info("order import accepted")
	writeData(w, http.StatusAccepted, importResponse{JobID: job.ID, Status: job.Status})
}

// create registers an order synchronously, skipping the pipeline. Operators
// use it to backfill orders that already have a supplier arrangement.
func (h *orderHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req orderPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	order := req.toOrder()
	if order.Status == "" {
		order.Status = domain.OrderStatusRegistered
	}
	if violations := order.ValidateInvariants(); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("order validation failed", violations))
		return
	}
	// Same referential checks the pipeline makes.
	if _, err := h.customers.Get(order.CustomerID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if order.SupplierID != "" {
		if _, err := h.suppliers.Get(order.SupplierID); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	now := time.Now().UTC()
	order.ID = uuid.NewString()
	order.Version = 0
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		order.Items[i].ID = uuid.NewString()
		order.Items[i].CreatedAt = now
	}

	if err := h.orders.Create(order); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.emitEvent(order, domain.EventOrderRegistered, "created by operator")

	stored, err := h.orders.Get(order.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, newOrderResponse(stored))
}

func (h *orderHandlers) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := domain.OrderFilter{CustomerID: query.Get("customer_id")}
	if status := query.Get("status"); status != "" {
		filter.Status = domain.OrderStatus(status)
		if !filter.Status.Valid() {
			writeError(w, h.logger, domain.NewError(domain.ErrorKindValidation, "invalid_status_filter", "status filter is not a known order status"))
			return
		}
	}

	page := pageFromQuery(r)
	orders, total, err := h.orders.List(filter, page)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		data = append(data, newOrderResponse(order))
	}
	writeList(w, data, page, total)
}

func (h *orderHandlers) get(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newOrderResponse(order))
}

// update replaces the mutable fields of an order. The shopify reference is
// the storefront identity and cannot change.
func (h *orderHandlers) update(w http.ResponseWriter, r *http.Request) {
	var req orderPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, err := h.orders.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.ShopifyOrderID != "" && req.ShopifyOrderID != order.ShopifyOrderID {
		writeError(w, h.logger, domain.NewError(domain.ErrorKindValidation, "immutable_field", "shopify_order_id cannot be changed"))
		return
	}

	previousSupplier := order.SupplierID
	order.CustomerID = req.CustomerID
	order.SupplierID = req.SupplierID
	// An omitted status keeps the stored one, like create defaults it.
	if req.Status != "" {
		order.Status = domain.OrderStatus(req.Status)
	}
	order.Currency = req.Currency
	order.TotalMinor = req.TotalMinor
	order.ShippingMinor = req.ShippingMinor
	order.Notes = req.Notes

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OrderItem{
			ID:         uuid.NewString(),
			SKU:        item.SKU,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
			CreatedAt:  now,
		})
	}
	order.Items = items

	h.saveAndRespond(w, order, previousSupplier)
}

// patch changes only the fields present in the body.
func (h *orderHandlers) patch(w http.ResponseWriter, r *http.Request) {
	var req orderPatchPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	order, err := h.orders.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	previousSupplier := order.SupplierID
	if req.Status != nil {
		order.Status = domain.OrderStatus(*req.Status)
	}
	if req.SupplierID != nil {
		order.SupplierID = *req.SupplierID
	}
	if req.TotalMinor != nil {
		order.TotalMinor = *req.TotalMinor
	}
	if req.ShippingMinor != nil {
		order.ShippingMinor = *req.ShippingMinor
	}
	if req.Notes != nil {
		order.Notes = *req.Notes
	}

	h.saveAndRespond(w, order, previousSupplier)
}

// saveAndRespond validates, persists and returns the updated order. Version
// conflicts surface as 409; the operator reloads and retries.
func (h *orderHandlers) saveAndRespond(w http.ResponseWriter, order domain.Order, previousSupplier string) {
	if violations := order.ValidateInvariants(); len(violations) > 0 {
		writeError(w, h.logger, domain.NewValidationError("order validation failed", violations))
		return
	}
	if _, err := h.customers.Get(order.CustomerID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if order.SupplierID != "" && order.SupplierID != previousSupplier {
		if _, err := h.suppliers.Get(order.SupplierID); err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	order.UpdatedAt = time.Now().UTC()
	if err := h.orders.Save(order); err != nil {
		writeError(w, h.logger, err)
		return
	}

	stored, err := h.orders.Get(order.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newOrderResponse(stored))
}

// cancel flags the order as cancelled. Orders are never deleted.
func (h *orderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if order.Status == domain.OrderStatusCancelled {
		writeData(w, http.StatusOK, newOrderResponse(order))
		return
	}

	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "cancelled by operator"
	}

	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()
	if err := h.orders.Save(order); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.emitEvent(order, domain.EventOrderCancelled, reason)

	stored, err := h.orders.Get(order.ID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newOrderResponse(stored))
}

func (h *orderHandlers) listTimeline(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["id"]
	if _, err := h.orders.Get(orderID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	events, err := h.timeline.List(orderID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		data = append(data, timelineEventResponse{
			Type:       event.Type,
			Reason:     event.Reason,
			OccurredAt: event.Occurred,
		})
	}
	writeData(w, http.StatusOK, data)
}

// emitEvent mirrors what the pipeline records for its own steps: an outbox
// message for downstream consumers and a timeline entry for the dashboard.
// Neither failure blocks the response; the order change already happened.
func (h *orderHandlers) emitEvent(order domain.Order, eventType, reason string) {
	occurred := time.Now().UTC()

	payload, err := json.Marshal(map[string]any{
		"order_id": order.ID,
		"status":   string(order.Status),
		"reason":   reason,
		"ts":       occurred.Format(time.RFC3339Nano),
	})
	if err == nil {
		_, err = h.outbox.Enqueue(domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     eventType,
			Payload:       payload,
		})
	}
	if err != nil {
		h.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Warn("failed to enqueue outbox event")
	}

	if err := h.timeline.Append(domain.TimelineEvent{
		OrderID:  order.ID,
		Type:     eventType,
		Reason:   reason,
		Occurred: occurred,
	}); err != nil {
		h.logger.WithError(err).WithFields(log.Fields{
			"order_id": order.ID,
			"event":    eventType,
		}).Warn("failed to append timeline event")
	}
}

func (p orderPayload) toOrder() domain.Order {
	items := make([]domain.OrderItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, domain.OrderItem{
			SKU:        item.SKU,
			Name:       item.Name,
			Qty:        item.Qty,
			PriceMinor: item.PriceMinor,
		})
	}
	return domain.Order{
		ShopifyOrderID: p.ShopifyOrderID,
		CustomerID:     p.CustomerID,
		SupplierID:     p.SupplierID,
		Status:         domain.OrderStatus(p.Status),
		Currency:       p.Currency,
		TotalMinor:     p.TotalMinor,
		ShippingMinor:  p.ShippingMinor,
		Notes:          p.Notes,
		Items:          items,
	}
}
