// internal/handlers/event.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/middleware"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type EventHandler struct {
	eventService *services.EventService
}

type registerEventRequest struct {
	EventID uint `json:"event_id" binding:"required"`
}

func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// GET /event
func (h *EventHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	upcoming, _ := strconv.ParseBool(c.Query("upcoming"))

	events, total, err := h.eventService.List(services.EventListParams{
		PaginationParams: params,
		Upcoming:         upcoming,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(events, total, params))
}

// GET /event/:id
func (h *EventHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	event, err := h.eventService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, event)
}

// GET /event/next
func (h *EventHandler) Next(c *gin.Context) {
	event, err := h.eventService.Next()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, event)
}

// GET /event/public_upcoming
func (h *EventHandler) PublicUpcoming(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	events, err := h.eventService.Upcoming(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, events)
}

// POST /event/create
func (h *EventHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	event, err := h.eventService.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyEventCreated),
		"event":   event,
	})
}

// PUT /event/update/:id
func (h *EventHandler) Update(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req services.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	event, err := h.eventService.Update(id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyEventUpdated),
		"event":   event,
	})
}

// DELETE /event/delete/:id
func (h *EventHandler) Delete(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.eventService.Delete(id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyEventDeleted)})
}

// POST /participants/register_event
func (h *EventHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req registerEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	participant, err := h.eventService.Register(id.UserID, id.Role, req.EventID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyEventRegistered),
		"participant": participant,
	})
}

// DELETE /participants/unregister_event/:event_id
func (h *EventHandler) Unregister(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	eventID, ok := idParam(c, "event_id")
	if !ok {
		return
	}

	if err := h.eventService.Unregister(userID, eventID); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyEventUnregistered)})
}

// GET /participants/event/:event_id
func (h *EventHandler) Participants(c *gin.Context) {
	eventID, ok := idParam(c, "event_id")
	if !ok {
		return
	}

	participants, err := h.eventService.Participants(eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, participants)
}

// GET /participants/my_events
func (h *EventHandler) MyEvents(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	ids, err := h.eventService.MyEvents(id.UserID, id.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"event_ids": ids})
}
