package console

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-ops/meridian/internal/payment"
	"github.com/meridian-ops/meridian/internal/platform/httpx"
	"github.com/meridian-ops/meridian/internal/reconcile"
	"github.com/meridian-ops/meridian/internal/transfer"
	"github.com/meridian-ops/meridian/internal/upstream"
)

// Handler manages console endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// MountRoutes registers console routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.handleSummary)
	r.Get("/purchase-orders", h.handleListPurchaseOrders)
	r.Get("/purchase-invoices", h.handleListInvoices)
	r.Get("/purchase-invoices/export", h.handleExportInvoices)
	r.Get("/purchase-invoices/{id}", h.handleGetInvoice)
	r.Post("/purchase-invoices/{id}/pay", h.handlePayInvoice)
	r.Get("/payrolls", h.handleListPayrolls)
	r.Post("/payrolls/{id}/pay", h.handlePayPayroll)
	r.Get("/suppliers", h.handleListSuppliers)
	r.Post("/stock-transfers", h.handleSubmitTransfer)
}

func (h *Handler) handleListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	query := url.Values{}
	if status := r.URL.Query().Get("status"); status != "" {
		query.Set("status", status)
	}
	orders, err := h.service.PurchaseOrders(r.Context(), query)
	if err != nil {
		h.respondError(w, "list purchase orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginated(orders, r))
}

func (h *Handler) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	var tier reconcile.Tier
	if raw := r.URL.Query().Get("tier"); raw != "" {
		parsed, ok := reconcile.ParseTier(raw)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tier must be one of unpaid, partial, paid")
			return
		}
		tier = parsed
	}
	views, err := h.service.InvoicesByTier(r.Context(), tier)
	if err != nil {
		h.respondError(w, "list purchase invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginated(views, r))
}

func (h *Handler) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Invoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get purchase invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type payRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

func (h *Handler) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be greater than zero")
		return
	}

	id := chi.URLParam(r, "id")
	receipt, view, err := h.service.PayInvoice(r.Context(), id, decimal.NewFromFloat(req.Amount))
	if err != nil {
		h.respondError(w, "pay invoice", err)
		return
	}
	resp := map[string]any{"receipt": receipt}
	if view.ID != "" {
		resp["invoice"] = view
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePayPayroll(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be greater than zero")
		return
	}

	receipt, err := h.service.PayPayroll(r.Context(), chi.URLParam(r, "id"), decimal.NewFromFloat(req.Amount))
	if err != nil {
		h.respondError(w, "pay payroll", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"receipt": receipt})
}

func (h *Handler) handleListPayrolls(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.Payrolls(r.Context())
	if err != nil {
		h.respondError(w, "list payrolls", err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginated(views, r))
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.Suppliers(r.Context())
	if err != nil {
		h.respondError(w, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, paginated(suppliers, r))
}

type transferRowRequest struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name"`
	Units     int64   `json:"units" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
}

type transferRequest struct {
	SourceID      string               `json:"sourceId" validate:"required"`
	DestinationID string               `json:"destinationId" validate:"required"`
	Rows          []transferRowRequest `json:"rows" validate:"required,min=1,dive"`
}

func (h *Handler) handleSubmitTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	rows := make([]transfer.Row, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, transfer.Row{
			ProductID: row.ProductID,
			Name:      row.Name,
			Units:     row.Units,
			Price:     decimal.NewFromFloat(row.Price),
		})
	}

	lines, err := h.service.SubmitTransfer(r.Context(), TransferSubmission{
		SourceID:      req.SourceID,
		DestinationID: req.DestinationID,
		Rows:          rows,
	})
	if err != nil {
		h.respondError(w, "submit transfer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"products": lines})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.BuildSummary(r.Context())
	if err != nil {
		h.respondError(w, "build summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleExportInvoices(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.InvoiceViews(r.Context())
	if err != nil {
		h.respondError(w, "export invoices", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reconciliation.xlsx"`)
	if err := WriteReconciliationWorkbook(w, views); err != nil {
		h.logger.Error("write workbook", slog.Any("error", err))
	}
}

// respondError translates domain errors into problem responses. The
// console-specific cases keep their own status mapping; everything
// terminal funnels through the shared httpx sentinels.
func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var stockErr *transfer.StockError
	var apiErr *upstream.APIError
	switch {
	case errors.As(err, &stockErr):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", stockErr.Error())
	case errors.Is(err, payment.ErrInvalidAmount), errors.Is(err, payment.ErrMissingTarget), errors.Is(err, transfer.ErrNoRows):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
	case IsNotFound(err):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		httpx.Problem(w, status, "Backend Error", apiErr.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrBadGateway)
	}
}
