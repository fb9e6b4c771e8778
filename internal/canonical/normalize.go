package canonical

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// PurchaseOrderFromRaw maps a raw backend object onto the canonical
// purchase order. Malformed input yields an empty-shaped entity; the UI
// must never crash on a normalization failure.
func PurchaseOrderFromRaw(raw map[string]any, mode DiscountMode) PurchaseOrder {
	po := PurchaseOrder{Products: []ProductLine{}}
	if raw == nil {
		return po
	}
	po.ID = identity(raw)
	po.LegacyID = po.ID
	po.SupplierID = refID(first(raw, "supplier", "supplierId"))
	po.OrganizationID = refID(first(raw, "organization", "organizationId"))
	po.Status = PurchaseOrderStatus(asString(raw["status"]))
	po.CreatedAt = asString(raw["createdAt"])
	po.UpdatedAt = asString(raw["updatedAt"])

	if lines, ok := raw["products"].([]any); ok {
		for _, l := range lines {
			if obj, ok := l.(map[string]any); ok {
				po.Products = append(po.Products, ProductLineFromRaw(obj, mode))
			}
		}
	}

	if v, ok := present(raw, "totalAmount", "total"); ok {
		po.TotalAmount = num(v)
	} else {
		sum := decimal.Zero
		for _, l := range po.Products {
			sum = sum.Add(l.Total)
		}
		po.TotalAmount = sum
	}
	if po.TotalAmount.IsNegative() {
		po.TotalAmount = decimal.Zero
	}
	return po
}

// ProductLineFromRaw maps a raw line-item object onto the canonical line.
// mode states how the discount is interpreted; a discountMode field on the
// raw object overrides it when recognizable.
func ProductLineFromRaw(raw map[string]any, mode DiscountMode) ProductLine {
	line := ProductLine{DiscountMode: mode}
	if raw == nil {
		line.DiscountMode = DiscountAbsolute
		return line
	}
	line.ProductID = refID(first(raw, "product", "productId"))
	line.Name = asString(first(raw, "name", "productName"))
	line.Quantity = qty(first(raw, "quantity", "qty", "units"))
	line.WholesalePrice = num(raw["wholesalePrice"])
	line.RetailPrice = num(raw["retailPrice"])
	line.Discount = num(raw["discount"])
	switch DiscountMode(asString(raw["discountMode"])) {
	case DiscountPercent:
		line.DiscountMode = DiscountPercent
	case DiscountAbsolute:
		line.DiscountMode = DiscountAbsolute
	}
	if line.DiscountMode == "" {
		line.DiscountMode = DiscountAbsolute
	}

	if v, ok := present(raw, "total", "lineTotal", "amount"); ok {
		line.Total = num(v)
	} else {
		line.Total = lineTotal(line, unitPrice(raw, line))
	}
	if line.Total.IsNegative() {
		line.Total = decimal.Zero
	}
	return line
}

// InvoiceFromRaw maps a raw backend object onto the canonical invoice.
func InvoiceFromRaw(raw map[string]any) PurchaseInvoice {
	inv := PurchaseInvoice{}
	if raw == nil {
		return inv
	}
	inv.ID = identity(raw)
	inv.LegacyID = inv.ID
	inv.InvoiceNumber = asString(first(raw, "invoiceNumber", "number"))
	inv.PurchaseOrderID = refID(first(raw, "purchaseOrder", "purchaseOrderId"))
	inv.SupplierID = refID(first(raw, "supplier", "supplierId"))
	inv.TotalPayment = num(first(raw, "totalPayment", "totalAmount", "total"))
	inv.PaidAmount = num(first(raw, "paidAmount", "paid"))
	inv.Remaining = numPtr(first(raw, "remaining", "remainingAmount"))
	inv.RawStatus = asString(raw["paymentStatus"])
	inv.CreatedAt = asString(raw["createdAt"])
	return inv
}

// PayrollFromRaw maps a raw payroll record onto the canonical payroll.
func PayrollFromRaw(raw map[string]any) Payroll {
	p := Payroll{}
	if raw == nil {
		return p
	}
	p.ID = identity(raw)
	p.LegacyID = p.ID
	p.EmployeeID = refID(first(raw, "employee", "employeeId"))
	p.EmployeeName = asString(first(raw, "employeeName", "name"))
	p.Amount = num(first(raw, "amount", "netSalary", "total"))
	p.PaidAmount = num(first(raw, "paidAmount", "paid"))
	p.RawStatus = asString(raw["paymentStatus"])
	return p
}

// SupplierFromRaw maps a raw supplier record onto the canonical supplier.
func SupplierFromRaw(raw map[string]any) Supplier {
	s := Supplier{}
	if raw == nil {
		return s
	}
	s.ID = identity(raw)
	s.LegacyID = s.ID
	s.Name = asString(raw["name"])
	s.Phone = asString(raw["phone"])
	return s
}

// StockLevelFromRaw maps a raw stock record onto the canonical level.
func StockLevelFromRaw(raw map[string]any) StockLevel {
	s := StockLevel{}
	if raw == nil {
		return s
	}
	s.ProductID = refID(first(raw, "product", "productId"))
	s.Name = asString(first(raw, "name", "productName"))
	s.Quantity = qty(first(raw, "quantity", "qty", "units", "stock"))
	return s
}

// --- coercion helpers ---

// identity resolves _id ?? id, tolerating either convention.
func identity(raw map[string]any) string {
	if v := asString(raw["_id"]); v != "" {
		return v
	}
	return asString(raw["id"])
}

// refID accepts a bare ID string or an embedded object and always yields
// a string ID.
func refID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		return identity(t)
	default:
		return asString(v)
	}
}

// num coerces any monetary or quantity value to a decimal; anything
// unparseable collapses to zero.
func num(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(t)
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero
		}
		return d
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	default:
		return decimal.Zero
	}
}

// numPtr distinguishes "absent" from zero; garbage counts as absent.
func numPtr(v any) *decimal.Decimal {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
	case string:
		if _, err := decimal.NewFromString(t); err != nil {
			return nil
		}
	case nil:
		return nil
	default:
		return nil
	}
	d := num(v)
	return &d
}

func qty(v any) int64 {
	q := num(v).IntPart()
	if q < 0 {
		return 0
	}
	return q
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// first returns the value of the first key present on the object.
func first(raw map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func present(raw map[string]any, keys ...string) (any, bool) {
	v := first(raw, keys...)
	return v, v != nil
}

// unitPrice picks the price used when a line total must be derived.
func unitPrice(raw map[string]any, line ProductLine) decimal.Decimal {
	if v, ok := present(raw, "price"); ok {
		return num(v)
	}
	if !line.WholesalePrice.IsZero() {
		return line.WholesalePrice
	}
	return line.RetailPrice
}

func lineTotal(line ProductLine, price decimal.Decimal) decimal.Decimal {
	gross := price.Mul(decimal.NewFromInt(line.Quantity))
	if line.DiscountMode == DiscountPercent {
		return gross.Sub(gross.Mul(line.Discount).Div(decimal.NewFromInt(100)))
	}
	return gross.Sub(line.Discount)
}
