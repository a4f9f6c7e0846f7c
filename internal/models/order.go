// internal/models/order.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeletedProductName is shown for order lines whose resource no longer exists.
const DeletedProductName = "Deleted product"

type Order struct {
	BaseModel
	CustomerName    string          `json:"customer_name" gorm:"size:255;not null"`
	CustomerPhone   string          `json:"customer_phone" gorm:"size:50"`
	CustomerEmail   string          `json:"customer_email" gorm:"size:255"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentMethod   string          `json:"payment_method" gorm:"size:50;default:'TRANSFER'"`
	PaymentProofURL string          `json:"payment_proof_url" gorm:"size:1024"`
	InvoiceURL      string          `json:"invoice_url" gorm:"size:1024"`
	PaidAt          *time.Time      `json:"paid_at"`
	CancelledAt     *time.Time      `json:"cancelled_at"`

	// Relationships
	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem references its resource weakly: no foreign key, the resource
// may be deleted while the line keeps its snapshot.
type OrderItem struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	OrderID     uint            `json:"order_id" gorm:"index;not null"`
	ResourceID  uint            `json:"resource_id" gorm:"index;not null"`
	ItemName    string          `json:"item_name" gorm:"size:255"`
	Quantity    int             `json:"quantity" gorm:"not null;check:chk_order_items_quantity,quantity > 0"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`
	Subtotal    decimal.Decimal `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Size        string          `json:"size" gorm:"size:50"`
	ProductName string          `json:"product_name" gorm:"-"`
}

// DisplayName prefers the resolved product name, then the checkout snapshot.
func (i *OrderItem) DisplayName() string {
	if i.ProductName != "" && i.ProductName != DeletedProductName {
		return i.ProductName
	}
	if i.ItemName != "" {
		return i.ItemName
	}
	return "Product"
}
