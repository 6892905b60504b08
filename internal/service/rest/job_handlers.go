package rest

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/pedidohub/backoffice/internal/domain"
)

type jobResponse struct {
	ID          string           `json:"id"`
	Type        domain.JobType   `json:"type"`
	Status      domain.JobStatus `json:"status"`
	Progress    int              `json:"progress"`
	Attempts    int              `json:"attempts"`
	MaxAttempts int              `json:"max_attempts"`
	LastError   string           `json:"last_error,omitempty"`
	OrderID     string           `json:"order_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func newJobResponse(job domain.Job) jobResponse {
	return jobResponse{
		ID:          job.ID,
		Type:        job.Type,
		Status:      job.Status,
		Progress:    job.Progress,
		Attempts:    job.Attempts,
		MaxAttempts: job.MaxAttempts,
		LastError:   job.LastError,
		OrderID:     job.OrderID,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}

type dashboardStatsResponse struct {
	OrdersByStatus    map[domain.OrderStatus]int64 `json:"orders_by_status"`
	RevenueByCurrency map[string]int64             `json:"revenue_by_currency"`
	ActiveSuppliers   int64                        `json:"active_suppliers"`
	JobsByStatus      map[domain.JobStatus]int64   `json:"jobs_by_status"`
}

type jobHandlers struct {
	jobs      domain.JobRepository
	orders    domain.OrderRepository
	suppliers domain.SupplierRepository
	logger    *log.Entry
}

func (h *jobHandlers) register(router *mux.Router) {
	router.HandleFunc("/jobs/{id}", h.get).Methods(http.MethodGet)
	router.HandleFunc("/dashboard/stats", h.dashboardStats).Methods(http.MethodGet)
}

// get serves the progress ledger of one import job. Clients poll it after a
// 202 from the import endpoint.
func (h *jobHandlers) get(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, newJobResponse(job))
}

func (h *jobHandlers) dashboardStats(w http.ResponseWriter, r *http.Request) {
	orderStats, err := h.orders.Stats()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	activeSuppliers, err := h.suppliers.CountActive()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	jobCounts, err := h.jobs.CountByStatus()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeData(w, http.StatusOK, dashboardStatsResponse{
		OrdersByStatus:    orderStats.CountByStatus,
		RevenueByCurrency: orderStats.RevenueByCurrency,
		ActiveSuppliers:   activeSuppliers,
		JobsByStatus:      jobCounts,
	})
}
