// internal/handlers/donation.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type DonationHandler struct {
	donationService *services.DonationService
}

func NewDonationHandler(donationService *services.DonationService) *DonationHandler {
	return &DonationHandler{donationService: donationService}
}

func (h *DonationHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrUnavailable) {
		lang := utils.GetLangFromContext(c)
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", i18n.T(lang, i18n.KeyDonationDisabled), nil)
		return
	}
	respondError(c, err)
}

// POST /donaciones/intent
func (h *DonationHandler) CreateIntent(c *gin.Context) {
	var req services.CreateDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	intent, err := h.donationService.CreateIntent(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, err)
		return
	}

	utils.CreatedResponse(c, intent)
}

// POST /donaciones/confirm
func (h *DonationHandler) Confirm(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ConfirmDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	donation, err := h.donationService.Confirm(c.Request.Context(), req.PaymentIntentID)
	if err != nil {
		h.fail(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyDonationPending)
	if donation.Status == models.DonationStatusSucceeded {
		message = i18n.T(lang, i18n.KeyDonationThanks)
	}
	utils.SuccessResponse(c, gin.H{
		"message":  message,
		"donation": donation,
	})
}
