// internal/handlers/membership.go
package handlers

import (
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/middleware"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type MembershipHandler struct {
	membershipService *services.MembershipService
}

func NewMembershipHandler(membershipService *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// POST /memberships/
func (h *MembershipHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.MembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	normalizeMembership(&req.Type, &req.ParticipationLevel)

	membership, err := h.membershipService.Create(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyMembershipCreated),
		"membership": membership,
	})
}

// GET /memberships/my-status
func (h *MembershipHandler) MyStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	membership, err := h.membershipService.Get(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, membership)
}

// GET /memberships
func (h *MembershipHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	memberships, total, err := h.membershipService.List(services.MembershipListParams{
		PaginationParams: params,
		Status:           models.MembershipStatus(strings.ToUpper(c.Query("status"))),
		Type:             models.MembershipType(strings.ToUpper(c.Query("membership_type"))),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(memberships, total, params))
}

// GET /memberships/stats
func (h *MembershipHandler) Stats(c *gin.Context) {
	stats, err := h.membershipService.Stats()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, stats)
}

// PUT /memberships/:user_id
func (h *MembershipHandler) Update(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := memberParam(c)
	if !ok {
		return
	}

	var req services.UpdateMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.Type != nil {
		*req.Type = models.MembershipType(strings.ToUpper(string(*req.Type)))
	}
	if req.ParticipationLevel != nil {
		*req.ParticipationLevel = models.ParticipationLevel(strings.ToUpper(string(*req.ParticipationLevel)))
	}

	membership, err := h.membershipService.Update(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyMembershipUpdated),
		"membership": membership,
	})
}

// PUT /memberships/:user_id/status
func (h *MembershipHandler) SetStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}

	var req services.MembershipStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	req.Status = models.MembershipStatus(strings.ToUpper(string(req.Status)))

	membership, err := h.membershipService.SetStatus(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyMembershipStatus),
		"membership": membership,
	})
}

// POST /memberships/:user_id/renew
func (h *MembershipHandler) Renew(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := memberParam(c)
	if !ok {
		return
	}

	membership, err := h.membershipService.Renew(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyMembershipRenewed),
		"membership": membership,
	})
}

// POST /memberships/:user_id/request-reactivation
func (h *MembershipHandler) RequestReactivation(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := memberParam(c)
	if !ok {
		return
	}

	// The body is optional.
	var req services.ReactivationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return
	}

	membership, err := h.membershipService.RequestReactivation(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyMembershipReactivation),
		"membership": membership,
	})
}

// POST /memberships/:user_id/payments
func (h *MembershipHandler) RecordPayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := idParam(c, "user_id")
	if !ok {
		return
	}

	var req services.MembershipPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	req.Method = models.PaymentMethod(strings.ToUpper(string(req.Method)))
	req.Status = models.MembershipPaymentStatus(strings.ToUpper(string(req.Status)))

	payment, err := h.membershipService.RecordPayment(userID, &req, actorEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyMembershipPayment),
		"payment": payment,
	})
}

// GET /memberships/:user_id/payments
func (h *MembershipHandler) Payments(c *gin.Context) {
	userID, ok := memberParam(c)
	if !ok {
		return
	}

	payments, err := h.membershipService.Payments(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, payments)
}

// GET /memberships/:user_id/participation-stats
func (h *MembershipHandler) ParticipationStats(c *gin.Context) {
	userID, ok := memberParam(c)
	if !ok {
		return
	}

	stats, err := h.membershipService.ParticipationStats(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, stats)
}

// memberParam reads :user_id and lets only that member or an admin through.
func memberParam(c *gin.Context) (uint, bool) {
	userID, ok := idParam(c, "user_id")
	if !ok {
		return 0, false
	}
	id, _ := middleware.CurrentIdentity(c)
	if id.UserID != userID && !id.IsAdmin() {
		lang := utils.GetLangFromContext(c)
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyMembershipNotOwner))
		return 0, false
	}
	return userID, true
}

func normalizeMembership(typ *models.MembershipType, level *models.ParticipationLevel) {
	*typ = models.MembershipType(strings.ToUpper(string(*typ)))
	*level = models.ParticipationLevel(strings.ToUpper(string(*level)))
}
