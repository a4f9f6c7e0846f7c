// internal/services/membership_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/database"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

// renewalWindow is how close to its end an active membership may be renewed.
const renewalWindow = 30 * 24 * time.Hour

type MembershipService struct {
	db         *gorm.DB
	dispatcher queue.Dispatcher
	now        func() time.Time
}

type MembershipRequest struct {
	Type               models.MembershipType     `json:"membership_type" validate:"required,oneof=ENTRENADOR CICLISTA EQUIPO_EPN"`
	ParticipationLevel models.ParticipationLevel `json:"participation_level" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED COMPETITIVE"`
	EmergencyContact   string                    `json:"emergency_contact" validate:"max=100"`
	EmergencyPhone     string                    `json:"emergency_phone" validate:"max=15"`
	MedicalConditions  string                    `json:"medical_conditions" validate:"max=2000"`
}

type UpdateMembershipRequest struct {
	Type               *models.MembershipType     `json:"membership_type,omitempty" validate:"omitempty,oneof=ENTRENADOR CICLISTA EQUIPO_EPN"`
	ParticipationLevel *models.ParticipationLevel `json:"participation_level,omitempty" validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED COMPETITIVE"`
	EmergencyContact   *string                    `json:"emergency_contact,omitempty" validate:"omitempty,max=100"`
	EmergencyPhone     *string                    `json:"emergency_phone,omitempty" validate:"omitempty,max=15"`
	MedicalConditions  *string                    `json:"medical_conditions,omitempty" validate:"omitempty,max=2000"`
}

type MembershipStatusRequest struct {
	Status models.MembershipStatus `json:"status" validate:"required,oneof=ACTIVE EXPIRED PENDING CANCELLED"`
}

type ReactivationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type MembershipPaymentRequest struct {
	Amount        decimal.Decimal                `json:"amount"`
	Method        models.PaymentMethod           `json:"payment_method" validate:"required,oneof=CASH TRANSFER CARD PAYPAL"`
	TransactionID string                         `json:"transaction_id" validate:"max=100"`
	Status        models.MembershipPaymentStatus `json:"status" validate:"omitempty,oneof=PENDING COMPLETED FAILED REFUNDED"`
	DueDate       *time.Time                     `json:"due_date"`
}

type MembershipListParams struct {
	utils.PaginationParams
	Status models.MembershipStatus
	Type   models.MembershipType
}

type MembershipStats struct {
	Total        int64                             `json:"total"`
	ByStatus     map[models.MembershipStatus]int64 `json:"by_status"`
	ByType       map[models.MembershipType]int64   `json:"by_type"`
	ExpiringSoon int64                             `json:"expiring_soon"`
}

type ParticipationStats struct {
	UserID         uint       `json:"user_id"`
	TotalEvents    int64      `json:"total_events"`
	UpcomingEvents int64      `json:"upcoming_events"`
	PastEvents     int64      `json:"past_events"`
	LastEventDate  *time.Time `json:"last_event_date"`
}

func NewMembershipService(db *gorm.DB, dispatcher queue.Dispatcher) *MembershipService {
	return &MembershipService{
		db:         db,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Create enrols a user. The membership waits in PENDING until a completed
// payment is recorded.
func (s *MembershipService) Create(userID uint, req *MembershipRequest) (*models.Membership, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, storeError(err, "user")
	}

	var existing int64
	if err := s.db.Model(&models.Membership{}).Where("user_id = ?", userID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing > 0 {
		return nil, newError(ErrConflict, "user already has a membership")
	}

	start := s.now().UTC()
	membership := &models.Membership{
		UserID:             userID,
		Type:               req.Type,
		Status:             models.MembershipStatusPending,
		StartDate:          start,
		EndDate:            start.AddDate(1, 0, 0),
		EmergencyContact:   strings.TrimSpace(req.EmergencyContact),
		EmergencyPhone:     strings.TrimSpace(req.EmergencyPhone),
		MedicalConditions:  req.MedicalConditions,
		ParticipationLevel: req.ParticipationLevel,
	}
	if membership.ParticipationLevel == "" {
		membership.ParticipationLevel = models.LevelBeginner
	}
	if err := s.db.Create(membership).Error; err != nil {
		return nil, storeError(err, "membership")
	}
	return membership, nil
}

// Get returns the user's membership, expiring it first when its period ended.
func (s *MembershipService) Get(userID uint) (*models.Membership, error) {
	if err := s.expireLapsed(); err != nil {
		return nil, err
	}
	return s.byUser(s.db, userID)
}

func (s *MembershipService) Update(userID uint, req *UpdateMembershipRequest) (*models.Membership, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	membership, err := s.byUser(s.db, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Type != nil {
		updates["membership_type"] = *req.Type
	}
	if req.ParticipationLevel != nil {
		updates["participation_level"] = *req.ParticipationLevel
	}
	if req.EmergencyContact != nil {
		updates["emergency_contact"] = strings.TrimSpace(*req.EmergencyContact)
	}
	if req.EmergencyPhone != nil {
		updates["emergency_phone"] = strings.TrimSpace(*req.EmergencyPhone)
	}
	if req.MedicalConditions != nil {
		updates["medical_conditions"] = *req.MedicalConditions
	}
	if len(updates) == 0 {
		return membership, nil
	}

	if err := s.db.Model(membership).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update membership: %w", err)
	}
	return s.byUser(s.db, userID)
}

// Renew starts the next yearly period. An expired membership restarts today
// and waits for payment; an active one inside the renewal window is extended
// from its current end date.
func (s *MembershipService) Renew(userID uint) (*models.Membership, error) {
	membership, err := s.Get(userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	updates := map[string]interface{}{}
	switch membership.Status {
	case models.MembershipStatusExpired:
		updates["status"] = models.MembershipStatusPending
		updates["start_date"] = now
		updates["end_date"] = now.AddDate(1, 0, 0)
	case models.MembershipStatusActive:
		if membership.EndDate.Sub(now) > renewalWindow {
			return nil, newError(ErrConflict, "membership can be renewed from %s", membership.EndDate.Add(-renewalWindow).Format("2006-01-02"))
		}
		updates["end_date"] = membership.EndDate.AddDate(1, 0, 0)
	case models.MembershipStatusPending:
		return nil, newError(ErrConflict, "membership is already awaiting payment")
	default:
		return nil, newError(ErrConflict, "a cancelled membership must request reactivation")
	}

	if err := s.db.Model(membership).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to renew membership: %w", err)
	}
	return s.byUser(s.db, userID)
}

// RequestReactivation moves an expired or cancelled membership back to
// PENDING with a fresh period and alerts staff.
func (s *MembershipService) RequestReactivation(ctx context.Context, userID uint, req *ReactivationRequest) (*models.Membership, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	membership, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	previous := membership.Status
	if previous != models.MembershipStatusExpired && previous != models.MembershipStatusCancelled {
		return nil, newError(ErrConflict, "only expired or cancelled memberships can be reactivated, this one is %s", previous)
	}

	now := s.now().UTC()
	result := s.db.Model(&models.Membership{}).
		Where("id = ? AND status = ?", membership.ID, previous).
		Updates(map[string]interface{}{
			"status":                    models.MembershipStatusPending,
			"start_date":                now,
			"end_date":                  now.AddDate(1, 0, 0),
			"reactivation_requested_at": now,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to request reactivation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, newError(ErrConflict, "membership is no longer %s", previous)
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, storeError(err, "user")
	}
	enqueue(ctx, s.dispatcher, queue.TaskMembershipReactivation, MembershipTaskPayload{
		MembershipID: membership.ID,
		UserID:       userID,
		MemberName:   user.FullName(),
		MemberEmail:  user.Email,
		Type:         membership.Type,
		Previous:     previous,
	})

	return s.byUser(s.db, userID)
}

func (s *MembershipService) SetStatus(userID uint, req *MembershipStatusRequest) (*models.Membership, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	membership, err := s.byUser(s.db, userID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(membership).Update("status", req.Status).Error; err != nil {
		return nil, fmt.Errorf("failed to update membership status: %w", err)
	}
	return s.byUser(s.db, userID)
}

// RecordPayment stores a membership payment. A COMPLETED payment activates
// the membership and is booked as MEMBERSHIP income in the same transaction.
func (s *MembershipService) RecordPayment(userID uint, req *MembershipPaymentRequest, recordedBy string) (*models.MembershipPayment, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, newError(ErrValidation, "amount must be greater than zero")
	}
	status := req.Status
	if status == "" {
		status = models.MembershipPaymentCompleted
	}

	membership, err := s.Get(userID)
	if err != nil {
		return nil, err
	}
	if membership.Status == models.MembershipStatusCancelled {
		return nil, newError(ErrConflict, "membership is cancelled")
	}

	now := s.now().UTC()
	payment := &models.MembershipPayment{
		MembershipID:  membership.ID,
		Amount:        amount,
		Method:        req.Method,
		TransactionID: strings.TrimSpace(req.TransactionID),
		Status:        status,
		DueDate:       membership.StartDate,
		RecordedBy:    recordedBy,
	}
	if req.DueDate != nil {
		payment.DueDate = req.DueDate.UTC()
	}
	if status == models.MembershipPaymentCompleted {
		payment.PaidAt = &now
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return storeError(err, "membership payment")
		}
		if status != models.MembershipPaymentCompleted {
			return nil
		}

		reference := fmt.Sprintf("membership-payment:%d", payment.ID)
		description := fmt.Sprintf("Membresía %s - usuario #%d", membership.Type, userID)
		if _, err := bookTransaction(tx, models.CategoryMembership, amount, description, recordedBy, &reference); err != nil {
			return err
		}

		updates := map[string]interface{}{"status": models.MembershipStatusActive}
		if membership.Status == models.MembershipStatusExpired {
			updates["start_date"] = now
			updates["end_date"] = now.AddDate(1, 0, 0)
		}
		if err := tx.Model(&models.Membership{}).Where("id = ?", membership.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to activate membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *MembershipService) Payments(userID uint) ([]models.MembershipPayment, error) {
	membership, err := s.byUser(s.db, userID)
	if err != nil {
		return nil, err
	}

	var payments []models.MembershipPayment
	if err := s.db.Where("membership_id = ?", membership.ID).
		Order("created_at DESC, id DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to list membership payments: %w", err)
	}
	return payments, nil
}

func (s *MembershipService) List(params MembershipListParams) ([]models.Membership, int64, error) {
	if err := s.expireLapsed(); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Membership{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Type != "" {
		query = query.Where("membership_type = ?", params.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count memberships: %w", err)
	}

	var memberships []models.Membership
	if err := utils.ApplyPagination(query.Order("created_at DESC, id DESC"), params.PaginationParams).Find(&memberships).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list memberships: %w", err)
	}
	return memberships, total, nil
}

func (s *MembershipService) Stats() (*MembershipStats, error) {
	if err := s.expireLapsed(); err != nil {
		return nil, err
	}

	stats := &MembershipStats{
		ByStatus: map[models.MembershipStatus]int64{},
		ByType:   map[models.MembershipType]int64{},
	}

	var byStatus []struct {
		Status models.MembershipStatus
		Count  int64
	}
	if err := s.db.Model(&models.Membership{}).
		Select("status, COUNT(*) AS count").Group("status").Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("failed to count memberships by status: %w", err)
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
		stats.Total += row.Count
	}

	var byType []struct {
		MembershipType models.MembershipType
		Count          int64
	}
	if err := s.db.Model(&models.Membership{}).
		Select("membership_type, COUNT(*) AS count").Group("membership_type").Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("failed to count memberships by type: %w", err)
	}
	for _, row := range byType {
		stats.ByType[row.MembershipType] = row.Count
	}

	now := s.now().UTC()
	if err := s.db.Model(&models.Membership{}).
		Where("status = ? AND end_date <= ?", models.MembershipStatusActive, now.Add(renewalWindow)).
		Count(&stats.ExpiringSoon).Error; err != nil {
		return nil, fmt.Errorf("failed to count expiring memberships: %w", err)
	}
	return stats, nil
}

// ParticipationStats summarises the events a member has signed up for.
func (s *MembershipService) ParticipationStats(userID uint) (*ParticipationStats, error) {
	if _, err := s.byUser(s.db, userID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	stats := &ParticipationStats{UserID: userID}
	joined := func() *gorm.DB {
		return s.db.Table("event_participants").
			Joins("JOIN events ON events.id = event_participants.event_id").
			Where("event_participants.user_id = ?", userID)
	}

	if err := joined().Count(&stats.TotalEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to count participations: %w", err)
	}
	if err := joined().Where("events.event_date >= ?", now).Count(&stats.UpcomingEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to count upcoming participations: %w", err)
	}
	stats.PastEvents = stats.TotalEvents - stats.UpcomingEvents

	if stats.PastEvents > 0 {
		var last models.Event
		if err := s.db.Model(&models.Event{}).
			Joins("JOIN event_participants ON event_participants.event_id = events.id").
			Where("event_participants.user_id = ? AND events.event_date < ?", userID, now).
			Order("events.event_date DESC").First(&last).Error; err != nil {
			return nil, storeError(err, "event")
		}
		stats.LastEventDate = &last.EventDate
	}
	return stats, nil
}

// expireLapsed marks every ACTIVE membership whose period ended as EXPIRED.
func (s *MembershipService) expireLapsed() error {
	err := s.db.Model(&models.Membership{}).
		Where("status = ? AND end_date < ?", models.MembershipStatusActive, s.now().UTC()).
		Update("status", models.MembershipStatusExpired).Error
	if err != nil {
		return fmt.Errorf("failed to expire memberships: %w", err)
	}
	return nil
}

func (s *MembershipService) byUser(db *gorm.DB, userID uint) (*models.Membership, error) {
	var membership models.Membership
	if err := db.Where("user_id = ?", userID).First(&membership).Error; err != nil {
		return nil, storeError(err, "membership")
	}
	return &membership, nil
}
