// internal/services/sponsor_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type SponsorService struct {
	db         *gorm.DB
	dispatcher queue.Dispatcher
}

type SponsorApplicationRequest struct {
	CompanyName         string `json:"company_name" validate:"required,max=255"`
	ContactName         string `json:"contact_name" validate:"required,max=255"`
	Position            string `json:"position" validate:"max=255"`
	ContactEmail        string `json:"contact_email" validate:"required,email,max=255"`
	ContactPhone        string `json:"contact_phone" validate:"max=50"`
	ProposalDescription string `json:"proposal_description" validate:"required"`
	Documentation       string `json:"documentation"`
}

type UpdateSponsorStatusRequest struct {
	Status models.SponsorStatus `json:"status" validate:"required,oneof=NEW CONTACTED ACCEPTED REJECTED"`
}

type SponsorListParams struct {
	utils.PaginationParams
	Status models.SponsorStatus
}

func NewSponsorService(db *gorm.DB, dispatcher queue.Dispatcher) *SponsorService {
	return &SponsorService{
		db:         db,
		dispatcher: dispatcher,
	}
}

func (s *SponsorService) Apply(ctx context.Context, req *SponsorApplicationRequest) (*models.SponsorApplication, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.ContactName = strings.TrimSpace(req.ContactName)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	app := &models.SponsorApplication{
		CompanyName:         req.CompanyName,
		ContactName:         req.ContactName,
		Position:            req.Position,
		ContactEmail:        strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContactPhone:        req.ContactPhone,
		ProposalDescription: req.ProposalDescription,
		Documentation:       req.Documentation,
		Status:              models.SponsorStatusNew,
	}
	if err := s.db.Create(app).Error; err != nil {
		return nil, fmt.Errorf("failed to save sponsor application: %w", err)
	}

	enqueue(ctx, s.dispatcher, queue.TaskSponsorApplied, SponsorTaskPayload{
		ApplicationID: app.ID,
		CompanyName:   app.CompanyName,
		ContactName:   app.ContactName,
		ContactEmail:  app.ContactEmail,
		ContactPhone:  app.ContactPhone,
		Proposal:      app.ProposalDescription,
	})
	return app, nil
}

func (s *SponsorService) List(params SponsorListParams) ([]models.SponsorApplication, int64, error) {
	query := s.db.Model(&models.SponsorApplication{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count sponsor applications: %w", err)
	}

	var apps []models.SponsorApplication
	if err := utils.ApplyPagination(query.Order("created_at DESC, id DESC"), params.PaginationParams).Find(&apps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list sponsor applications: %w", err)
	}
	return apps, total, nil
}

func (s *SponsorService) UpdateStatus(id uint, req *UpdateSponsorStatusRequest) (*models.SponsorApplication, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	var app models.SponsorApplication
	if err := s.db.First(&app, id).Error; err != nil {
		return nil, storeError(err, "sponsor application")
	}

	if err := s.db.Model(&app).Update("status", req.Status).Error; err != nil {
		return nil, fmt.Errorf("failed to update sponsor application: %w", err)
	}
	return &app, nil
}
