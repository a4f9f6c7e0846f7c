// internal/models/donation.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Donation struct {
	BaseModel
	DonorName       string          `json:"donor_name" gorm:"size:255;not null"`
	DonorEmail      string          `json:"donor_email" gorm:"size:255"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency        string          `json:"currency" gorm:"size:3;not null"`
	PaymentIntentID string          `json:"payment_intent_id" gorm:"size:255;uniqueIndex;not null"`
	Status          DonationStatus  `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Message         string          `json:"message" gorm:"type:text"`
	SucceededAt     *time.Time      `json:"succeeded_at"`
}
