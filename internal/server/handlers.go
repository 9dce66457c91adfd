package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashita-ai/kanshi/internal/adjudication"
	"github.com/ashita-ai/kanshi/internal/credential"
	"github.com/ashita-ai/kanshi/internal/ctxutil"
	"github.com/ashita-ai/kanshi/internal/customer"
	"github.com/ashita-ai/kanshi/internal/engine"
	"github.com/ashita-ai/kanshi/internal/model"
)

// CustomerSource reads raw records from the record API. *customer.Client
// satisfies it.
type CustomerSource interface {
	List(ctx context.Context) ([]customer.Record, error)
	Get(ctx context.Context, id string) (*customer.Record, error)
}

// Adjudicator opens adjudication sessions. *adjudication.Service satisfies it.
type Adjudicator interface {
	Start(ctx context.Context, customerID string) (*adjudication.Session, error)
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	customers   CustomerSource
	adjudicator Adjudicator
	pool        *credential.Pool
	logger      *slog.Logger
	version     string
	runHooks    []RunHook
	startedAt   time.Time
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	Customers   CustomerSource
	Adjudicator Adjudicator
	Pool        *credential.Pool
	Logger      *slog.Logger
	Version     string
	RunHooks    []RunHook
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		customers:   d.Customers,
		adjudicator: d.Adjudicator,
		pool:        d.Pool,
		logger:      d.Logger,
		version:     d.Version,
		runHooks:    d.RunHooks,
		startedAt:   time.Now(),
	}
}

// HandleListCustomers handles GET /customers.
func (h *Handlers) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	recs, err := h.customers.List(r.Context())
	if err != nil {
		h.logger.Warn("list customers failed", "error", err, "request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstream, "Failed to fetch customers")
		return
	}
	out := customer.NormalizeAll(recs)
	writeList(w, r, out, len(out))
}

// HandleGetCustomer handles GET /customers/{customer_id}.
func (h *Handlers) HandleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("customer_id")
	if err := model.ValidateCustomerID(id); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	rec, err := h.customers.Get(r.Context(), id)
	if errors.Is(err, customer.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "Customer not found")
		return
	}
	if err != nil {
		h.logger.Warn("get customer failed", "customer_id", id, "error", err,
			"request_id", RequestIDFromContext(r.Context()))
		writeError(w, r, http.StatusBadGateway, model.ErrCodeUpstream, "Failed to fetch customer")
		return
	}
	writeJSON(w, r, http.StatusOK, customer.Normalize(rec))
}

// HandleAdjudicate handles GET /adjudicate/{customer_id} (SSE). The stream
// always opens with run_started and, unless the client goes away, ends with
// exactly one run_finished or error event.
func (h *Handlers) HandleAdjudicate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("customer_id")
	if err := model.ValidateCustomerID(id); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "streaming not supported")
		return
	}

	ctx := r.Context()
	sess, err := h.adjudicator.Start(ctx, id)
	if errors.Is(err, adjudication.ErrMissingCustomerID) {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("adjudication: start failed", "customer_id", id, "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to start adjudication")
		return
	}
	defer sess.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Disable the server's WriteTimeout for this long-lived connection.
	// Investigations routinely outlast it.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	rec := newSummaryRecorder(sess, ctxutil.Subject(ctx))
	defer func() { fireRunHooks(h.runHooks, rec.finish(), h.logger) }()

	err = adjudication.Translate(ctx, sess, func(ev adjudication.Event) error {
		rec.observe(ev)
		if err := adjudication.WriteSSE(w, ev); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil && !engine.IsCanceled(err) {
		h.logger.Warn("adjudication stream aborted",
			"session_id", sess.ID, "customer_id", id, "error", err,
			"request_id", RequestIDFromContext(ctx))
	}
}

// HandleHealth handles GET /health. A pool running on the placeholder
// credential reports degraded but still answers 200.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Status:  "healthy",
		Version: h.version,
		Uptime:  int64(time.Since(h.startedAt).Seconds()),
	}
	if h.pool != nil {
		if h.pool.Degraded() {
			resp.Status = "degraded"
			resp.Degraded = true
		} else {
			resp.Credentials = h.pool.Len()
		}
	}
	writeJSON(w, r, http.StatusOK, resp)
}
