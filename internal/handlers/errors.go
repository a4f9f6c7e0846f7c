// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/middleware"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

// respondError translates a service error into the response envelope.
func respondError(c *gin.Context, err error) {
	var (
		fieldErrs validator.ValidationErrors
		stockErr  *services.StockError
	)

	switch {
	case errors.As(err, &fieldErrs):
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(fieldErrs))
	case errors.As(err, &stockErr):
		utils.ErrorResponse(c, http.StatusBadRequest, "INSUFFICIENT_STOCK", err.Error(), gin.H{
			"resource_id": stockErr.ResourceID,
			"item":        stockErr.Item,
			"available":   stockErr.Available,
			"requested":   stockErr.Requested,
		})
	case errors.Is(err, services.ErrInsufficientStock):
		utils.ErrorResponse(c, http.StatusBadRequest, "INSUFFICIENT_STOCK", err.Error(), nil)
	case errors.Is(err, services.ErrValidation):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrInvalidState):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_ORDER_STATE", err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		utils.UnauthorizedResponse(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error(), nil)
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

func bindError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
}

// idParam reads a positive numeric path parameter and answers 400 otherwise.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return userID, ok
}

func actorEmail(c *gin.Context) string {
	id, _ := middleware.CurrentIdentity(c)
	return id.Email
}
