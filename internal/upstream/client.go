// Package upstream is the REST client for the legacy operations backend.
// It is the only place that talks to the wire: every response body goes
// through envelope extraction and canonical normalization on the way in,
// so nothing above this package ever sees a raw payload.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-ops/meridian/internal/canonical"
	"github.com/meridian-ops/meridian/internal/envelope"
	"github.com/meridian-ops/meridian/internal/transfer"
)

// IdempotencyHeader carries the client-generated key on payment requests.
// The legacy backend ignores it; a future backend can enforce it.
const IdempotencyHeader = "X-Idempotency-Key"

// Config collects client dependencies.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	Logger       *slog.Logger
	DiscountMode canonical.DiscountMode
}

// Client talks to the legacy backend.
type Client struct {
	baseURL string
	httpc   *http.Client
	logger  *slog.Logger
	mode    canonical.DiscountMode
}

// New constructs a Client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := cfg.DiscountMode
	if mode == "" {
		mode = canonical.DiscountAbsolute
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
		mode:    mode,
	}
}

// StockTransferRequest is the submission payload for /stock-transfers.
type StockTransferRequest struct {
	SourceID      string                `json:"sourceId"`
	DestinationID string                `json:"destinationId"`
	Products      []transfer.MergedLine `json:"products"`
}

// ListPurchaseOrders fetches and normalizes purchase orders.
func (c *Client) ListPurchaseOrders(ctx context.Context, query url.Values) ([]canonical.PurchaseOrder, error) {
	body, err := c.do(ctx, http.MethodGet, withQuery("/purchase-orders", query), nil, nil)
	if err != nil {
		return nil, err
	}
	rows, shape := envelope.ExtractJSON(body, "purchaseOrders")
	c.logShape("purchase-orders", shape)
	out := make([]canonical.PurchaseOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, canonical.PurchaseOrderFromRaw(row, c.mode))
	}
	return out, nil
}

// ListPurchaseInvoices fetches and normalizes purchase invoices.
func (c *Client) ListPurchaseInvoices(ctx context.Context, query url.Values) ([]canonical.PurchaseInvoice, error) {
	body, err := c.do(ctx, http.MethodGet, withQuery("/purchase-invoices", query), nil, nil)
	if err != nil {
		return nil, err
	}
	rows, shape := envelope.ExtractJSON(body, "purchaseInvoices")
	c.logShape("purchase-invoices", shape)
	out := make([]canonical.PurchaseInvoice, 0, len(rows))
	for _, row := range rows {
		out = append(out, canonical.InvoiceFromRaw(row))
	}
	return out, nil
}

// GetPurchaseInvoice fetches one invoice by ID.
func (c *Client) GetPurchaseInvoice(ctx context.Context, id string) (canonical.PurchaseInvoice, error) {
	body, err := c.do(ctx, http.MethodGet, "/purchase-invoices/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return canonical.PurchaseInvoice{}, err
	}
	raw, _ := envelope.ExtractOneJSON(body, "purchaseInvoice")
	if raw == nil {
		return canonical.PurchaseInvoice{}, ErrNotFound
	}
	return canonical.InvoiceFromRaw(raw), nil
}

// ListPayrolls fetches and normalizes payroll records.
func (c *Client) ListPayrolls(ctx context.Context) ([]canonical.Payroll, error) {
	body, err := c.do(ctx, http.MethodGet, "/payrolls", nil, nil)
	if err != nil {
		return nil, err
	}
	rows, shape := envelope.ExtractJSON(body, "payrolls")
	c.logShape("payrolls", shape)
	out := make([]canonical.Payroll, 0, len(rows))
	for _, row := range rows {
		out = append(out, canonical.PayrollFromRaw(row))
	}
	return out, nil
}

// ListSuppliers fetches and normalizes supplier records.
func (c *Client) ListSuppliers(ctx context.Context) ([]canonical.Supplier, error) {
	body, err := c.do(ctx, http.MethodGet, "/suppliers", nil, nil)
	if err != nil {
		return nil, err
	}
	rows, shape := envelope.ExtractJSON(body, "suppliers")
	c.logShape("suppliers", shape)
	out := make([]canonical.Supplier, 0, len(rows))
	for _, row := range rows {
		out = append(out, canonical.SupplierFromRaw(row))
	}
	return out, nil
}

// StockAvailability returns available units per product at one inventory
// location.
func (c *Client) StockAvailability(ctx context.Context, inventoryID string) (map[string]int64, error) {
	body, err := c.do(ctx, http.MethodGet, "/stocks/stocks/"+url.PathEscape(inventoryID), nil, nil)
	if err != nil {
		return nil, err
	}
	rows, shape := envelope.ExtractJSON(body, "stocks")
	c.logShape("stocks", shape)
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		level := canonical.StockLevelFromRaw(row)
		if level.ProductID == "" {
			continue
		}
		out[level.ProductID] += level.Quantity
	}
	return out, nil
}

// SubmitStockTransfer posts a validated transfer. The backend may answer
// with the created entity or an empty ack; both are tolerated.
func (c *Client) SubmitStockTransfer(ctx context.Context, req StockTransferRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/stock-transfers", req, nil)
	return err
}

// PayInvoice applies a payment to a purchase invoice and returns the
// backend's receipt payload, already run through envelope extraction.
func (c *Client) PayInvoice(ctx context.Context, id string, amount decimal.Decimal, idempotencyKey string) (map[string]any, error) {
	return c.pay(ctx, http.MethodPost, "/invoice-pay/"+url.PathEscape(id)+"/pay", amount, idempotencyKey)
}

// PayPayroll applies a payment to a payroll record.
func (c *Client) PayPayroll(ctx context.Context, id string, amount decimal.Decimal, idempotencyKey string) (map[string]any, error) {
	return c.pay(ctx, http.MethodPatch, "/payrolls/"+url.PathEscape(id)+"/pay", amount, idempotencyKey)
}

func (c *Client) pay(ctx context.Context, method, path string, amount decimal.Decimal, idempotencyKey string) (map[string]any, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set(IdempotencyHeader, idempotencyKey)
	}
	body, err := c.do(ctx, method, path, map[string]any{"amount": amount.InexactFloat64()}, header)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if receipt, _ := envelope.ExtractOneJSON(body, "receipt"); receipt != nil {
		return receipt, nil
	}
	// Ack bodies without a recognizable receipt are passed through as-is.
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, header http.Header) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("upstream: encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vals := range header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, decodeAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func (c *Client) logShape(resource string, shape envelope.Shape) {
	if shape == envelope.ShapeScan || shape == envelope.ShapeNone {
		c.logger.Debug("envelope fallback", slog.String("resource", resource), slog.String("shape", string(shape)))
	}
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
