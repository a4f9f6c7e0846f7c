// internal/models/finance.go
package models

import (
	"github.com/shopspring/decimal"
)

// FinancialTransaction is a manual or system-booked ledger entry. Sales of
// PAID orders are read from the orders table and never duplicated here.
type FinancialTransaction struct {
	BaseModel
	Type        TransactionType   `json:"type" gorm:"type:varchar(10);not null;index"`
	Category    FinancialCategory `json:"category" gorm:"type:varchar(20);not null;index"`
	Amount      decimal.Decimal   `json:"amount" gorm:"type:decimal(10,2);not null"`
	Description string            `json:"description" gorm:"size:255"`
	RecordedBy  string            `json:"recorded_by" gorm:"size:255"`
	Reference   *string           `json:"reference,omitempty" gorm:"size:255;uniqueIndex"`
}
