package console

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/meridian-ops/meridian/internal/canonical"
)

func newTestRouter(t *testing.T, backend *fakeBackend) http.Handler {
	t.Helper()
	h := NewHandler(nil, newTestService(t, backend))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListInvoicesTierFilter(t *testing.T) {
	backend := newFakeBackend()
	backend.invoices["a"] = canonical.PurchaseInvoice{ID: "a", RawStatus: "paid"}
	backend.invoices["b"] = canonical.PurchaseInvoice{ID: "b", RawStatus: "partially_paid"}
	router := newTestRouter(t, backend)

	rec := doJSON(t, router, http.MethodGet, "/purchase-invoices?tier=partial", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []map[string]any `json:"data"`
		Pagination Pagination       `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "b", resp.Data[0]["id"])
	require.Equal(t, "partial", resp.Data[0]["tier"])
	require.Equal(t, 1, resp.Pagination.Total)

	rec = doJSON(t, router, http.MethodGet, "/purchase-invoices?tier=bogus", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetInvoiceNotFound(t *testing.T) {
	router := newTestRouter(t, newFakeBackend())
	rec := doJSON(t, router, http.MethodGet, "/purchase-invoices/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPayInvoiceEndpoint(t *testing.T) {
	backend := newFakeBackend()
	remaining := dec("250")
	backend.invoices["INV-1"] = canonical.PurchaseInvoice{
		ID: "INV-1", TotalPayment: dec("1000"), PaidAmount: dec("750"),
		Remaining: &remaining, RawStatus: "partially_paid",
	}
	router := newTestRouter(t, backend)

	rec := doJSON(t, router, http.MethodPost, "/purchase-invoices/INV-1/pay", `{"amount":250}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Receipt map[string]any `json:"receipt"`
		Invoice map[string]any `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "rcpt-INV-1", resp.Receipt["_id"])
	require.Equal(t, "paid", resp.Invoice["tier"])
	require.Equal(t, "0", resp.Invoice["remaining"])
}

func TestPayInvoiceValidation(t *testing.T) {
	router := newTestRouter(t, newFakeBackend())

	for _, body := range []string{`{"amount":0}`, `{"amount":-5}`, `{}`, `{"amount":`} {
		rec := doJSON(t, router, http.MethodPost, "/purchase-invoices/INV-1/pay", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestSubmitTransferEndpoint(t *testing.T) {
	backend := newFakeBackend()
	backend.stock = map[string]int64{"A": 5}
	router := newTestRouter(t, backend)

	// Overdraw: merged 7 against 5 available.
	rec := doJSON(t, router, http.MethodPost, "/stock-transfers",
		`{"sourceId":"loc-1","destinationId":"loc-2","rows":[
			{"productId":"A","name":"Widget","units":3},
			{"productId":"A","name":"Widget","units":4}
		]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "Widget")
	require.Contains(t, rec.Body.String(), "requested 7")
	require.Contains(t, rec.Body.String(), "available 5")

	// Within stock.
	rec = doJSON(t, router, http.MethodPost, "/stock-transfers",
		`{"sourceId":"loc-1","destinationId":"loc-2","rows":[{"productId":"A","units":5,"price":10}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Structural validation.
	rec = doJSON(t, router, http.MethodPost, "/stock-transfers", `{"rows":[]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPurchaseOrdersPagination(t *testing.T) {
	backend := newFakeBackend()
	for i := 0; i < 25; i++ {
		backend.orders = append(backend.orders, canonical.PurchaseOrder{ID: string(rune('a' + i))})
	}
	router := newTestRouter(t, backend)

	rec := doJSON(t, router, http.MethodGet, "/purchase-orders?page=2&perPage=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []map[string]any `json:"data"`
		Pagination Pagination       `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 10)
	require.Equal(t, 25, resp.Pagination.Total)
	require.Equal(t, 3, resp.Pagination.TotalPages)
}

func TestExportInvoicesEndpoint(t *testing.T) {
	backend := newFakeBackend()
	backend.invoices["a"] = canonical.PurchaseInvoice{
		ID: "a", InvoiceNumber: "INV-001", TotalPayment: dec("100"), RawStatus: "paid",
	}
	router := newTestRouter(t, backend)

	rec := doJSON(t, router, http.MethodGet, "/purchase-invoices/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(reconciliationSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2, "header plus one invoice")
	require.Equal(t, "Invoice Number", rows[0][0])
	require.Equal(t, "INV-001", rows[1][0])
	require.Equal(t, "paid", rows[1][5])
}

func TestBackendDownIsBadGateway(t *testing.T) {
	backend := newFakeBackend()
	backend.err = errors.New("connection refused")
	router := newTestRouter(t, backend)

	rec := doJSON(t, router, http.MethodGet, "/purchase-orders", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "could not reach the operations backend")
}

func TestSummaryEndpoint(t *testing.T) {
	backend := newFakeBackend()
	backend.invoices["a"] = canonical.PurchaseInvoice{ID: "a", RawStatus: "paid"}
	router := newTestRouter(t, backend)

	rec := doJSON(t, router, http.MethodGet, "/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sum Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	require.Equal(t, 1, sum.Invoices)
	require.Equal(t, 1, sum.TierCounts["paid"])
}
