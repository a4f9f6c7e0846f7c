// internal/services/donation_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/database"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

var minDonation = decimal.NewFromInt(1)

type DonationService struct {
	db         *gorm.DB
	gateway    PaymentGateway
	dispatcher queue.Dispatcher
	config     config.PaymentConfig
}

type CreateDonationRequest struct {
	DonorName  string          `json:"donor_name" validate:"required,max=255"`
	DonorEmail string          `json:"donor_email" validate:"omitempty,email,max=255"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency" validate:"omitempty,len=3,alpha"`
	Message    string          `json:"message" validate:"max=1000"`
}

type ConfirmDonationRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type DonationIntentResponse struct {
	DonationID      uint   `json:"donation_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	PublishableKey  string `json:"publishable_key"`
}

// NewDonationService accepts a nil gateway when card payments are not configured.
func NewDonationService(db *gorm.DB, gateway PaymentGateway, dispatcher queue.Dispatcher, cfg config.PaymentConfig) *DonationService {
	return &DonationService{
		db:         db,
		gateway:    gateway,
		dispatcher: dispatcher,
		config:     cfg,
	}
}

func (s *DonationService) CreateIntent(ctx context.Context, req *CreateDonationRequest) (*DonationIntentResponse, error) {
	if s.gateway == nil {
		return nil, newError(ErrUnavailable, "card donations are not enabled")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}
	amount := req.Amount.Round(2)
	if amount.LessThan(minDonation) {
		return nil, newError(ErrValidation, "amount must be at least %s", minDonation.StringFixed(2))
	}

	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = s.config.Currency
	}

	intent, err := s.gateway.CreateIntent(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart(), currency, map[string]string{
		"donor_name": req.DonorName,
		"purpose":    "donation",
	})
	if err != nil {
		return nil, err
	}

	donation := &models.Donation{
		DonorName:       strings.TrimSpace(req.DonorName),
		DonorEmail:      req.DonorEmail,
		Amount:          amount,
		Currency:        currency,
		PaymentIntentID: intent.ID,
		Status:          models.DonationStatusPending,
		Message:         req.Message,
	}
	if err := s.db.Create(donation).Error; err != nil {
		return nil, storeError(err, "donation")
	}

	return &DonationIntentResponse{
		DonationID:      donation.ID,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		PublishableKey:  s.config.StripePublishableKey,
	}, nil
}

// Confirm syncs a donation with its payment intent. A succeeded intent is
// booked as DONATION income exactly once, keyed by the intent id.
func (s *DonationService) Confirm(ctx context.Context, paymentIntentID string) (*models.Donation, error) {
	if s.gateway == nil {
		return nil, newError(ErrUnavailable, "card donations are not enabled")
	}
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, newError(ErrValidation, "payment_intent_id is required")
	}

	donation, err := s.byIntent(paymentIntentID)
	if err != nil {
		return nil, err
	}
	if donation.Status == models.DonationStatusSucceeded {
		return donation, nil
	}

	intent, err := s.gateway.GetIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}

	switch {
	case intent.Status == IntentSucceeded:
		booked := false
		err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
			now := time.Now().UTC()
			result := tx.Model(&models.Donation{}).
				Where("id = ? AND status <> ?", donation.ID, models.DonationStatusSucceeded).
				Updates(map[string]interface{}{"status": models.DonationStatusSucceeded, "succeeded_at": now})
			if result.Error != nil {
				return fmt.Errorf("failed to update donation: %w", result.Error)
			}
			if result.RowsAffected == 0 {
				return nil
			}

			ref := paymentIntentID
			description := fmt.Sprintf("Donation from %s", donation.DonorName)
			if _, err := bookTransaction(tx, models.CategoryDonation, donation.Amount, description, "stripe", &ref); err != nil {
				return err
			}
			booked = true
			return nil
		})
		if err != nil {
			return nil, err
		}

		if booked {
			enqueue(ctx, s.dispatcher, queue.TaskDonationReceived, DonationTaskPayload{
				DonationID: donation.ID,
				DonorName:  donation.DonorName,
				DonorEmail: donation.DonorEmail,
				Amount:     donation.Amount,
				Currency:   donation.Currency,
				Message:    donation.Message,
			})
		}

	case intent.Status == IntentCanceled,
		intent.Status == IntentRequiresPaymentMethod && intent.LastError != "":
		if err := s.db.Model(&models.Donation{}).
			Where("id = ? AND status = ?", donation.ID, models.DonationStatusPending).
			Update("status", models.DonationStatusFailed).Error; err != nil {
			return nil, fmt.Errorf("failed to update donation: %w", err)
		}
	}

	return s.byIntent(paymentIntentID)
}

func (s *DonationService) byIntent(paymentIntentID string) (*models.Donation, error) {
	var donation models.Donation
	if err := s.db.Where("payment_intent_id = ?", paymentIntentID).First(&donation).Error; err != nil {
		return nil, storeError(err, "donation")
	}
	return &donation, nil
}
