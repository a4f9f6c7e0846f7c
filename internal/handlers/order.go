// internal/handlers/order.go
package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// cartLine accepts the storefront's field names as well as the API's own.
type cartLine struct {
	ResourceID uint   `json:"resource_id"`
	IDRecurso  uint   `json:"id_recurso"`
	Quantity   int    `json:"quantity"`
	Size       string `json:"size"`
	Talla      string `json:"talla"`
	Name       string `json:"name"`
	Nombre     string `json:"nombre"`
}

func (l cartLine) item() services.CartItem {
	item := services.CartItem{
		ResourceID: l.ResourceID,
		Quantity:   l.Quantity,
		Size:       strings.TrimSpace(l.Size),
		Name:       l.Name,
	}
	if item.ResourceID == 0 {
		item.ResourceID = l.IDRecurso
	}
	if item.Size == "" {
		item.Size = strings.TrimSpace(l.Talla)
	}
	if item.Name == "" {
		item.Name = l.Nombre
	}
	return item
}

func parseItems(raw string) ([]services.CartItem, error) {
	var lines []cartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, err
	}
	items := make([]services.CartItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, line.item())
	}
	return items, nil
}

// POST /ventas/checkout
func (h *OrderHandler) Checkout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	items, err := parseItems(c.PostForm("items_json"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyInvalidItems), err.Error())
		return
	}

	total, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("total")))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "total"), nil)
		return
	}

	proof, err := c.FormFile("payment_proof")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyProofRequired), nil)
		return
	}

	req := services.CheckoutRequest{
		CustomerName:  c.PostForm("customer_name"),
		CustomerPhone: c.PostForm("customer_phone"),
		CustomerEmail: strings.TrimSpace(c.PostForm("customer_email")),
		PaymentMethod: c.PostForm("payment_method"),
		Total:         total,
		Items:         items,
	}

	order, err := h.orderService.Checkout(c.Request.Context(), &req, proof)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"order_id": order.ID,
		"message":  i18n.T(lang, i18n.KeyOrderCreated),
	})
}

// GET /ventas/?status=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orderService.List(c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, orders)
}

// GET /ventas/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// PUT /ventas/:id/confirmar
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.orderService.Confirm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyOrderConfirmed, id),
		"invoice_url": result.InvoiceURL,
		"order":       result.Order,
	})
}

// PUT /ventas/:id/cancelar
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	result, err := h.orderService.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyOrderCancelled, id)
	if !result.Changed {
		message = i18n.T(lang, i18n.KeyOrderAlready, id)
	}
	utils.SuccessResponse(c, gin.H{
		"message": message,
		"order":   result.Order,
	})
}
