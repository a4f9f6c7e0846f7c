// internal/models/membership.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Membership is a member's yearly enrolment. A user holds at most one.
type Membership struct {
	BaseModel
	UserID                  uint               `json:"user_id" gorm:"uniqueIndex;not null"`
	Type                    MembershipType     `json:"membership_type" gorm:"column:membership_type;type:varchar(20);not null"`
	Status                  MembershipStatus   `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	StartDate               time.Time          `json:"start_date" gorm:"not null"`
	EndDate                 time.Time          `json:"end_date" gorm:"not null;index"`
	EmergencyContact        string             `json:"emergency_contact" gorm:"size:100"`
	EmergencyPhone          string             `json:"emergency_phone" gorm:"size:15"`
	MedicalConditions       string             `json:"medical_conditions" gorm:"type:text"`
	ParticipationLevel      ParticipationLevel `json:"participation_level" gorm:"type:varchar(20)"`
	ReactivationRequestedAt *time.Time         `json:"reactivation_requested_at"`

	Payments []MembershipPayment `json:"payments,omitempty" gorm:"foreignKey:MembershipID"`
}

// Lapsed reports whether an ACTIVE membership has run past its end date.
func (m *Membership) Lapsed(now time.Time) bool {
	return m.Status == MembershipStatusActive && now.After(m.EndDate)
}

type MembershipPayment struct {
	ID            uint                    `json:"id" gorm:"primaryKey"`
	MembershipID  uint                    `json:"membership_id" gorm:"not null;index"`
	Amount        decimal.Decimal         `json:"amount" gorm:"type:decimal(10,2);not null"`
	Method        PaymentMethod           `json:"payment_method" gorm:"column:payment_method;type:varchar(20);not null"`
	TransactionID string                  `json:"transaction_id" gorm:"size:100"`
	Status        MembershipPaymentStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING'"`
	DueDate       time.Time               `json:"due_date"`
	PaidAt        *time.Time              `json:"paid_at"`
	RecordedBy    string                  `json:"recorded_by" gorm:"size:255"`
	CreatedAt     time.Time               `json:"created_at"`
}
