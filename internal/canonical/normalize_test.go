package canonical

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPurchaseOrderFromRaw(t *testing.T) {
	raw := map[string]any{
		"_id":          "po-1",
		"supplier":     map[string]any{"_id": "sup-9", "name": "Acme"},
		"organization": "org-1",
		"status":       "approved",
		"totalAmount":  "1500.50",
		"products": []any{
			map[string]any{"product": "p-1", "name": "Widget", "quantity": float64(3), "wholesalePrice": float64(100), "total": float64(300)},
			"junk",
		},
	}
	po := PurchaseOrderFromRaw(raw, DiscountAbsolute)
	require.Equal(t, "po-1", po.ID)
	require.Equal(t, "po-1", po.LegacyID)
	require.Equal(t, "sup-9", po.SupplierID)
	require.Equal(t, "org-1", po.OrganizationID)
	require.Equal(t, POStatusApproved, po.Status)
	require.True(t, po.TotalAmount.Equal(decimal.RequireFromString("1500.50")))
	require.Len(t, po.Products, 1)
}

func TestPurchaseOrderTotalFallsBackToLineSum(t *testing.T) {
	raw := map[string]any{
		"id": "po-2",
		"products": []any{
			map[string]any{"productId": "a", "quantity": float64(2), "wholesalePrice": float64(10)},
			map[string]any{"productId": "b", "quantity": float64(1), "wholesalePrice": float64(5)},
		},
	}
	po := PurchaseOrderFromRaw(raw, DiscountAbsolute)
	require.True(t, po.TotalAmount.Equal(decimal.NewFromInt(25)), po.TotalAmount.String())
}

func TestProductLineTotalFallbackOrder(t *testing.T) {
	// Explicit total wins over any derivation.
	line := ProductLineFromRaw(map[string]any{
		"productId": "a", "quantity": float64(3), "wholesalePrice": float64(100), "lineTotal": float64(42),
	}, DiscountAbsolute)
	require.True(t, line.Total.Equal(decimal.NewFromInt(42)))

	// Absolute discount: price*qty - discount.
	line = ProductLineFromRaw(map[string]any{
		"productId": "a", "quantity": float64(3), "wholesalePrice": float64(100), "discount": float64(50),
	}, DiscountAbsolute)
	require.True(t, line.Total.Equal(decimal.NewFromInt(250)))

	// Percent discount: price*qty reduced by discount%.
	line = ProductLineFromRaw(map[string]any{
		"productId": "a", "quantity": float64(4), "wholesalePrice": float64(100), "discount": float64(25),
	}, DiscountPercent)
	require.True(t, line.Total.Equal(decimal.NewFromInt(300)))

	// A derived total never goes negative.
	line = ProductLineFromRaw(map[string]any{
		"productId": "a", "quantity": float64(1), "wholesalePrice": float64(10), "discount": float64(999),
	}, DiscountAbsolute)
	require.True(t, line.Total.IsZero())
}

func TestNumericCoercionCollapsesGarbage(t *testing.T) {
	inv := InvoiceFromRaw(map[string]any{
		"id":           "inv-1",
		"totalPayment": "not-a-number",
		"paidAmount":   math.NaN(),
		"remaining":    "garbage",
	})
	require.True(t, inv.TotalPayment.IsZero())
	require.True(t, inv.PaidAmount.IsZero())
	require.Nil(t, inv.Remaining, "uncoercible remaining counts as absent")
}

func TestInvoiceFromRaw(t *testing.T) {
	inv := InvoiceFromRaw(map[string]any{
		"_id":           "inv-2",
		"invoiceNumber": "INV-2026-001",
		"purchaseOrder": map[string]any{"id": "po-7"},
		"totalPayment":  float64(1000),
		"paidAmount":    float64(400),
		"paymentStatus": "Partially_Paid",
	})
	require.Equal(t, "inv-2", inv.ID)
	require.Equal(t, "INV-2026-001", inv.InvoiceNumber)
	require.Equal(t, "po-7", inv.PurchaseOrderID)
	require.Equal(t, "Partially_Paid", inv.RawStatus)
	require.Nil(t, inv.Remaining)
}

func TestMalformedInputYieldsEmptyEntity(t *testing.T) {
	po := PurchaseOrderFromRaw(nil, DiscountAbsolute)
	require.Empty(t, po.ID)
	require.NotNil(t, po.Products)

	require.Empty(t, InvoiceFromRaw(nil).ID)
	require.Empty(t, PayrollFromRaw(nil).ID)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := map[string]any{
		"_id":      "po-1",
		"supplier": map[string]any{"_id": "sup-1"},
		"status":   "draft",
		"products": []any{
			map[string]any{"productId": "a", "name": "Widget", "quantity": float64(2), "wholesalePrice": float64(30), "discount": float64(10)},
		},
	}
	once := PurchaseOrderFromRaw(raw, DiscountAbsolute)

	data, err := json.Marshal(once)
	require.NoError(t, err)
	var round map[string]any
	require.NoError(t, json.Unmarshal(data, &round))

	twice := PurchaseOrderFromRaw(round, DiscountAbsolute)
	require.Equal(t, once.ID, twice.ID)
	require.Equal(t, once.SupplierID, twice.SupplierID)
	require.True(t, once.TotalAmount.Equal(twice.TotalAmount))
	require.Len(t, twice.Products, len(once.Products))
	require.True(t, once.Products[0].Total.Equal(twice.Products[0].Total))

	inv := InvoiceFromRaw(map[string]any{
		"id": "inv-1", "totalPayment": float64(900), "paidAmount": float64(200), "remaining": float64(700), "paymentStatus": "partial",
	})
	data, err = json.Marshal(inv)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &round))
	again := InvoiceFromRaw(round)
	require.Equal(t, inv.ID, again.ID)
	require.True(t, inv.TotalPayment.Equal(again.TotalPayment))
	require.NotNil(t, again.Remaining)
	require.True(t, inv.Remaining.Equal(*again.Remaining))
	require.Equal(t, inv.RawStatus, again.RawStatus)
}

func TestRefIDNumericIDs(t *testing.T) {
	po := PurchaseOrderFromRaw(map[string]any{"id": float64(42), "supplierId": float64(7)}, DiscountAbsolute)
	require.Equal(t, "42", po.ID)
	require.Equal(t, "7", po.SupplierID)
}
