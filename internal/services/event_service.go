// internal/services/event_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/database"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type EventService struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

type EventRequest struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=255"`
	EventType    *string    `json:"event_type" validate:"omitempty,max=50"`
	EventDate    *time.Time `json:"event_date"`
	MeetingPoint *string    `json:"meeting_point" validate:"omitempty,max=255"`
	RouteName    *string    `json:"route_name" validate:"omitempty,max=255"`
	Level        *string    `json:"event_level" validate:"omitempty,max=50"`
	Mode         *string    `json:"event_mode" validate:"omitempty,max=50"`
	Description  *string    `json:"description"`
}

type EventListParams struct {
	utils.PaginationParams
	Upcoming bool
}

// Participant is a registration joined with the member's contact details.
type Participant struct {
	ID           uint      `json:"id"`
	EventID      uint      `json:"event_id"`
	UserID       uint      `json:"user_id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Phone        string    `json:"phone"`
	RegisteredAt time.Time `json:"registered_at"`
}

// NewEventService counts registration deadlines in loc.
func NewEventService(db *gorm.DB, loc *time.Location) *EventService {
	return &EventService{db: db, loc: loc, now: time.Now}
}

func (s *EventService) Create(req *EventRequest) (*models.Event, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, newError(ErrValidation, "title is required")
	}
	if req.EventDate == nil || req.EventDate.IsZero() {
		return nil, newError(ErrValidation, "event_date is required")
	}

	event := &models.Event{
		Title:     strings.TrimSpace(*req.Title),
		EventDate: req.EventDate.UTC(),
	}
	applyEventFields(event, req)
	if err := s.db.Create(event).Error; err != nil {
		return nil, storeError(err, "event")
	}
	return event, nil
}

func (s *EventService) Get(id uint) (*models.Event, error) {
	var event models.Event
	if err := s.db.First(&event, id).Error; err != nil {
		return nil, storeError(err, "event")
	}
	if err := s.countParticipants([]*models.Event{&event}); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventService) List(params EventListParams) ([]models.Event, int64, error) {
	query := s.db.Model(&models.Event{})
	order := "event_date DESC, id DESC"
	if params.Upcoming {
		query = query.Where("event_date >= ?", s.now().UTC())
		order = "event_date ASC, id ASC"
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	var events []models.Event
	if err := utils.ApplyPagination(query.Order(order), params.PaginationParams).Find(&events).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	if err := s.countParticipants(eventRefs(events)); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Upcoming lists the next events for the public site.
func (s *EventService) Upcoming(limit int) ([]models.Event, error) {
	if limit < 1 || limit > 50 {
		limit = 6
	}
	events, _, err := s.List(EventListParams{
		PaginationParams: utils.PaginationParams{Limit: limit},
		Upcoming:         true,
	})
	return events, err
}

// Next returns the soonest event that has not started yet.
func (s *EventService) Next() (*models.Event, error) {
	events, err := s.Upcoming(1)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, newError(ErrNotFound, "no upcoming events")
	}
	return &events[0], nil
}

func (s *EventService) Update(id uint, req *EventRequest) (*models.Event, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	var event models.Event
	if err := s.db.First(&event, id).Error; err != nil {
		return nil, storeError(err, "event")
	}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, newError(ErrValidation, "title cannot be empty")
		}
		event.Title = strings.TrimSpace(*req.Title)
	}
	if req.EventDate != nil && !req.EventDate.IsZero() {
		event.EventDate = req.EventDate.UTC()
	}
	applyEventFields(&event, req)

	if err := s.db.Save(&event).Error; err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return s.Get(id)
}

// Delete removes the event together with its registrations.
func (s *EventService) Delete(id uint) error {
	return database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventParticipant{}).Error; err != nil {
			return fmt.Errorf("failed to delete registrations: %w", err)
		}
		result := tx.Delete(&models.Event{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete event: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return newError(ErrNotFound, "event not found")
		}
		return nil
	})
}

// Register signs a member up. Only members with an ACTIVE membership may
// register, once per event, until 23:59:59 the day before it.
func (s *EventService) Register(userID uint, role models.UserRole, eventID uint) (*models.EventParticipant, error) {
	if role != models.UserRoleNormal {
		return nil, newError(ErrForbidden, "only members can register for events")
	}

	var membership models.Membership
	if err := s.db.Where("user_id = ?", userID).First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrForbidden, "an active membership is required to register")
		}
		return nil, storeError(err, "membership")
	}
	now := s.now()
	if membership.Status != models.MembershipStatusActive || membership.Lapsed(now) {
		return nil, newError(ErrForbidden, "an active membership is required to register")
	}

	var existing int64
	if err := s.db.Model(&models.EventParticipant{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check registration: %w", err)
	}
	if existing > 0 {
		return nil, newError(ErrConflict, "already registered for this event")
	}

	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		return nil, storeError(err, "event")
	}
	if deadline := event.RegistrationDeadline(s.loc); now.After(deadline) {
		return nil, newError(ErrForbidden, "registration for this event closed on %s", deadline.Format("2006-01-02 15:04"))
	}

	participant := &models.EventParticipant{EventID: eventID, UserID: userID}
	if err := s.db.Create(participant).Error; err != nil {
		return nil, storeError(err, "registration")
	}
	return participant, nil
}

func (s *EventService) Unregister(userID, eventID uint) error {
	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		return storeError(err, "event")
	}

	result := s.db.Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&models.EventParticipant{})
	if result.Error != nil {
		return fmt.Errorf("failed to unregister: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return newError(ErrNotFound, "not registered for this event")
	}
	return nil
}

func (s *EventService) Participants(eventID uint) ([]Participant, error) {
	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		return nil, storeError(err, "event")
	}

	var participants []Participant
	err := s.db.Table("event_participants").
		Select("event_participants.id, event_participants.event_id, event_participants.user_id, "+
			"users.email, users.first_name, users.last_name, users.phone, event_participants.registered_at").
		Joins("JOIN users ON users.id = event_participants.user_id").
		Where("event_participants.event_id = ?", eventID).
		Order("event_participants.registered_at ASC, event_participants.id ASC").
		Scan(&participants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

// MyEvents returns the ids of the events the member is registered for.
func (s *EventService) MyEvents(userID uint, role models.UserRole) ([]uint, error) {
	if role != models.UserRoleNormal {
		return nil, newError(ErrForbidden, "only members have event registrations")
	}

	ids := []uint{}
	if err := s.db.Model(&models.EventParticipant{}).
		Where("user_id = ?", userID).Order("event_id").Pluck("event_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return ids, nil
}

func (s *EventService) countParticipants(events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]uint, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}

	var rows []struct {
		EventID uint
		Count   int64
	}
	if err := s.db.Model(&models.EventParticipant{}).
		Select("event_id, COUNT(*) AS count").
		Where("event_id IN ?", ids).Group("event_id").Scan(&rows).Error; err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}

	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.EventID] = row.Count
	}
	for _, e := range events {
		e.Participants = counts[e.ID]
	}
	return nil
}

func applyEventFields(event *models.Event, req *EventRequest) {
	if req.EventType != nil {
		event.EventType = strings.TrimSpace(*req.EventType)
	}
	if req.MeetingPoint != nil {
		event.MeetingPoint = strings.TrimSpace(*req.MeetingPoint)
	}
	if req.RouteName != nil {
		event.RouteName = strings.TrimSpace(*req.RouteName)
	}
	if req.Level != nil {
		event.Level = strings.TrimSpace(*req.Level)
	}
	if req.Mode != nil {
		event.Mode = strings.TrimSpace(*req.Mode)
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
}

func eventRefs(events []models.Event) []*models.Event {
	refs := make([]*models.Event, len(events))
	for i := range events {
		refs[i] = &events[i]
	}
	return refs
}
