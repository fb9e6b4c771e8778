package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func TestListPurchaseInvoicesAcrossEnvelopes(t *testing.T) {
	bodies := []string{
		`{"status":"ok","results":2,"data":{"purchaseInvoices":[{"_id":"a","totalPayment":100},{"_id":"b","totalPayment":"200"}]}}`,
		`{"data":{"items":[{"_id":"a","totalPayment":100},{"_id":"b","totalPayment":"200"}]}}`,
		`[{"_id":"a","totalPayment":100},{"_id":"b","totalPayment":"200"}]`,
	}
	for _, body := range bodies {
		payload := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/purchase-invoices", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(payload))
		})
		invoices, err := c.ListPurchaseInvoices(context.Background(), nil)
		require.NoError(t, err)
		require.Len(t, invoices, 2, "body %s", payload)
		require.Equal(t, "a", invoices[0].ID)
		require.True(t, invoices[1].TotalPayment.Equal(decimal.NewFromInt(200)))
	}
}

func TestListPurchaseOrdersQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "approved", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	q := url.Values{"status": []string{"approved"}}
	orders, err := c.ListPurchaseOrders(context.Background(), q)
	require.NoError(t, err)
	require.Empty(t, orders)
}

func TestShapeMismatchIsSilent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	invoices, err := c.ListPurchaseInvoices(context.Background(), nil)
	require.NoError(t, err, "an unrecognizable envelope is empty data, not a failure")
	require.Empty(t, invoices)
}

func TestGetPurchaseInvoiceNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.GetPurchaseInvoice(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPayInvoiceSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotPath, gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get(IdempotencyHeader)
		gotPath = r.URL.Path
		gotMethod = r.Method
		_, _ = w.Write([]byte(`{"data":{"receipt":{"_id":"rcpt-1","amount":250}}}`))
	})
	receipt, err := c.PayInvoice(context.Background(), "INV-1", decimal.NewFromInt(250), "key-123")
	require.NoError(t, err)
	require.Equal(t, "key-123", gotKey)
	require.Equal(t, "/invoice-pay/INV-1/pay", gotPath)
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "rcpt-1", receipt["_id"])
}

func TestPayPayrollUsesPatch(t *testing.T) {
	var gotMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusOK)
	})
	receipt, err := c.PayPayroll(context.Background(), "pr-1", decimal.NewFromInt(100), "k")
	require.NoError(t, err)
	require.Equal(t, http.MethodPatch, gotMethod)
	require.Nil(t, receipt, "empty ack body is tolerated")
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"msg":"amount is required"},{"msg":"amount must be positive"}]}`))
	})
	_, err := c.PayInvoice(context.Background(), "INV-1", decimal.Zero, "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "amount is required; amount must be positive", apiErr.Error())

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"invoice already settled"}`))
	})
	_, err = c.PayInvoice(context.Background(), "INV-1", decimal.NewFromInt(5), "")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "invoice already settled", apiErr.Error())

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})
	_, err = c.PayInvoice(context.Background(), "INV-1", decimal.NewFromInt(5), "")
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "request failed", apiErr.Error())
}

func TestStockAvailability(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stocks/stocks/inv-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":{"stocks":[
			{"product":{"_id":"A","name":"Widget"},"quantity":5},
			{"product":"B","quantity":"3"},
			{"quantity":99}
		]}}`))
	})
	levels, err := c.StockAvailability(context.Background(), "inv-1")
	require.NoError(t, err)
	require.EqualValues(t, 5, levels["A"])
	require.EqualValues(t, 3, levels["B"])
	require.Len(t, levels, 2, "rows without a product are skipped")
}

func TestContextCancellationAbandonsCall(t *testing.T) {
	started := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()
	_, err := c.ListPayrolls(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
