// internal/handlers/finance.go
package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type FinanceHandler struct {
	financeService *services.FinanceService
	now            func() time.Time
}

func NewFinanceHandler(financeService *services.FinanceService) *FinanceHandler {
	return &FinanceHandler{
		financeService: financeService,
		now:            time.Now,
	}
}

// POST /finanzas/
func (h *FinanceHandler) RecordTransaction(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RecordTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	req.Type = models.TransactionType(strings.ToUpper(string(req.Type)))
	req.Category = models.FinancialCategory(strings.ToUpper(string(req.Category)))

	txn, err := h.financeService.Record(&req, actorEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyTransactionRecorded),
		"transaction": txn,
	})
}

// GET /finanzas/
func (h *FinanceHandler) ListTransactions(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	txns, total, err := h.financeService.List(services.TransactionListParams{
		PaginationParams: params,
		Type:             models.TransactionType(strings.ToUpper(c.Query("type"))),
		Category:         models.FinancialCategory(strings.ToUpper(c.Query("category"))),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(txns, total, params))
}

// GET /finanzas/balance
func (h *FinanceHandler) GetBalance(c *gin.Context) {
	report, err := h.financeService.Balance(h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}
