// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB is stored as jsonb on PostgreSQL and as text elsewhere.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleAdmin  UserRole = "Admin"
	UserRoleNormal UserRole = "Normal"
)

type ResourceKind string

const (
	ResourceKindCommercial  ResourceKind = "COMMERCIAL"
	ResourceKindOperational ResourceKind = "OPERATIONAL"
)

type AssetStatus string

const (
	AssetStatusAvailable      AssetStatus = "AVAILABLE"
	AssetStatusAssigned       AssetStatus = "ASSIGNED"
	AssetStatusInMaintenance  AssetStatus = "IN_MAINTENANCE"
	AssetStatusDecommissioned AssetStatus = "DECOMMISSIONED"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// canTransition lists the allowed order status moves. CANCELLED is terminal.
var canTransition = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusCancelled},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range canTransition[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

type FinancialCategory string

const (
	// Income
	CategoryProductSale FinancialCategory = "PRODUCT_SALE"
	CategoryMembership  FinancialCategory = "MEMBERSHIP"
	CategorySponsorship FinancialCategory = "SPONSORSHIP"
	CategoryDonation    FinancialCategory = "DONATION"
	CategoryOtherIncome FinancialCategory = "OTHER_INCOME"

	// Expense
	CategoryOperational  FinancialCategory = "OPERATIONAL"
	CategoryMaintenance  FinancialCategory = "MAINTENANCE"
	CategoryEquipment    FinancialCategory = "EQUIPMENT"
	CategoryMarketing    FinancialCategory = "MARKETING"
	CategoryOtherExpense FinancialCategory = "OTHER_EXPENSE"
)

// TypeOf returns the transaction type a category belongs to.
func (c FinancialCategory) TypeOf() (TransactionType, bool) {
	switch c {
	case CategoryProductSale, CategoryMembership, CategorySponsorship, CategoryDonation, CategoryOtherIncome:
		return TransactionTypeIncome, true
	case CategoryOperational, CategoryMaintenance, CategoryEquipment, CategoryMarketing, CategoryOtherExpense:
		return TransactionTypeExpense, true
	}
	return "", false
}

type DocumentType string

const (
	DocumentTypeStatute    DocumentType = "statute"
	DocumentTypeRegulation DocumentType = "regulation"
	DocumentTypeMinutes    DocumentType = "minutes"
	DocumentTypeReport     DocumentType = "report"
	DocumentTypeContract   DocumentType = "contract"
	DocumentTypeOther      DocumentType = "other"
)

type SponsorStatus string

const (
	SponsorStatusNew       SponsorStatus = "NEW"
	SponsorStatusContacted SponsorStatus = "CONTACTED"
	SponsorStatusAccepted  SponsorStatus = "ACCEPTED"
	SponsorStatusRejected  SponsorStatus = "REJECTED"
)

type DonationStatus string

const (
	DonationStatusPending   DonationStatus = "PENDING"
	DonationStatusSucceeded DonationStatus = "SUCCEEDED"
	DonationStatusFailed    DonationStatus = "FAILED"
)

type MembershipType string

const (
	MembershipTypeCoach   MembershipType = "ENTRENADOR"
	MembershipTypeRider   MembershipType = "CICLISTA"
	MembershipTypeEPNTeam MembershipType = "EQUIPO_EPN"
)

type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "ACTIVE"
	MembershipStatusExpired   MembershipStatus = "EXPIRED"
	MembershipStatusPending   MembershipStatus = "PENDING"
	MembershipStatusCancelled MembershipStatus = "CANCELLED"
)

type ParticipationLevel string

const (
	LevelBeginner     ParticipationLevel = "BEGINNER"
	LevelIntermediate ParticipationLevel = "INTERMEDIATE"
	LevelAdvanced     ParticipationLevel = "ADVANCED"
	LevelCompetitive  ParticipationLevel = "COMPETITIVE"
)

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodPaypal   PaymentMethod = "PAYPAL"
)

type MembershipPaymentStatus string

const (
	MembershipPaymentPending   MembershipPaymentStatus = "PENDING"
	MembershipPaymentCompleted MembershipPaymentStatus = "COMPLETED"
	MembershipPaymentFailed    MembershipPaymentStatus = "FAILED"
	MembershipPaymentRefunded  MembershipPaymentStatus = "REFUNDED"
)
