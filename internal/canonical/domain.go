// Package canonical defines the stable entity shapes produced after
// normalizing the legacy backend's loosely-typed payloads, plus the
// normalization itself. Every entity is a transient view model; nothing
// here is persisted.
package canonical

import "github.com/shopspring/decimal"

// PurchaseOrderStatus enumerates purchase order statuses.
type PurchaseOrderStatus string

const (
	POStatusDraft     PurchaseOrderStatus = "draft"
	POStatusApproved  PurchaseOrderStatus = "approved"
	POStatusDelivered PurchaseOrderStatus = "delivered"
	POStatusCanceled  PurchaseOrderStatus = "canceled"
)

// DiscountMode states how a line discount is to be interpreted. The
// backend never discriminates between the two, so callers must.
type DiscountMode string

const (
	DiscountAbsolute DiscountMode = "absolute"
	DiscountPercent  DiscountMode = "percent"
)

// PurchaseOrder model. ID and LegacyID carry the same value so that
// consumers keyed on either `id` or `_id` keep working.
type PurchaseOrder struct {
	ID             string              `json:"id"`
	LegacyID       string              `json:"_id"`
	SupplierID     string              `json:"supplierId"`
	OrganizationID string              `json:"organizationId"`
	Products       []ProductLine       `json:"products"`
	Status         PurchaseOrderStatus `json:"status"`
	TotalAmount    decimal.Decimal     `json:"totalAmount"`
	CreatedAt      string              `json:"createdAt,omitempty"`
	UpdatedAt      string              `json:"updatedAt,omitempty"`
}

// ProductLine is a single product entry on an order, invoice or transfer.
type ProductLine struct {
	ProductID      string          `json:"productId"`
	Name           string          `json:"name"`
	Quantity       int64           `json:"quantity"`
	WholesalePrice decimal.Decimal `json:"wholesalePrice"`
	RetailPrice    decimal.Decimal `json:"retailPrice"`
	Discount       decimal.Decimal `json:"discount"`
	DiscountMode   DiscountMode    `json:"discountMode"`
	Total          decimal.Decimal `json:"total"`
}

// PurchaseInvoice model. RawStatus preserves the backend's free-text
// payment status for audit; tier classification lives in reconcile.
type PurchaseInvoice struct {
	ID              string           `json:"id"`
	LegacyID        string           `json:"_id"`
	InvoiceNumber   string           `json:"invoiceNumber"`
	PurchaseOrderID string           `json:"purchaseOrder"`
	SupplierID      string           `json:"supplierId"`
	TotalPayment    decimal.Decimal  `json:"totalPayment"`
	PaidAmount      decimal.Decimal  `json:"paidAmount"`
	Remaining       *decimal.Decimal `json:"remaining,omitempty"`
	RawStatus       string           `json:"paymentStatus,omitempty"`
	CreatedAt       string           `json:"createdAt,omitempty"`
}

// Payroll model, normalized from /payrolls records.
type Payroll struct {
	ID           string          `json:"id"`
	LegacyID     string          `json:"_id"`
	EmployeeID   string          `json:"employee"`
	EmployeeName string          `json:"employeeName,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	PaidAmount   decimal.Decimal `json:"paidAmount"`
	RawStatus    string          `json:"paymentStatus,omitempty"`
}

// Supplier is the minimal reference record the console needs.
type Supplier struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
}

// StockLevel is the available quantity of one product at a location.
type StockLevel struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Quantity  int64  `json:"quantity"`
}
