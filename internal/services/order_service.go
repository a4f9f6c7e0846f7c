// internal/services/order_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ciclismo-epn/club-backend/internal/database"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

// InvoiceGenerator renders and stores an invoice, returning its URL.
type InvoiceGenerator interface {
	Generate(order *models.Order) (string, error)
}

type OrderService struct {
	db             *gorm.DB
	storageService *StorageService
	invoices       InvoiceGenerator
	dispatcher     queue.Dispatcher
}

type CartItem struct {
	ResourceID uint   `json:"resource_id" validate:"required"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
	Size       string `json:"size,omitempty" validate:"max=50"`
	Name       string `json:"name,omitempty"`
}

type CheckoutRequest struct {
	CustomerName  string          `json:"customer_name" validate:"required,max=255"`
	CustomerPhone string          `json:"customer_phone" validate:"max=50"`
	CustomerEmail string          `json:"customer_email" validate:"omitempty,email,max=255"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,max=50"`
	Total         decimal.Decimal `json:"total"`
	Items         []CartItem      `json:"items" validate:"required,min=1,dive"`
}

type ConfirmResult struct {
	Order      *models.Order `json:"order"`
	InvoiceURL *string       `json:"invoice_url"`
}

type CancelResult struct {
	Order   *models.Order `json:"order"`
	Changed bool          `json:"changed"`
}

func NewOrderService(db *gorm.DB, storageService *StorageService, invoices InvoiceGenerator, dispatcher queue.Dispatcher) *OrderService {
	return &OrderService{
		db:             db,
		storageService: storageService,
		invoices:       invoices,
		dispatcher:     dispatcher,
	}
}

func (i CartItem) label() string {
	if i.Name != "" {
		return i.Name
	}
	return fmt.Sprintf("#%d", i.ResourceID)
}

// Checkout validates the cart against current stock and records a PENDING
// order. Stock is read, not reserved.
func (s *OrderService) Checkout(ctx context.Context, req *CheckoutRequest, proof *multipart.FileHeader) (*models.Order, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}
	if req.Total.IsNegative() {
		return nil, newError(ErrValidation, "total must be non-negative")
	}
	if proof == nil {
		return nil, newError(ErrValidation, "payment proof is required")
	}

	stored, err := s.storageService.UploadHeader(proof, s.storageService.GetDefaultUploadOptions(FolderPaymentProofs))
	if err != nil {
		return nil, err
	}

	order := models.Order{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		TotalAmount:     req.Total.Round(2),
		Status:          models.OrderStatusPending,
		PaymentMethod:   "TRANSFER",
		PaymentProofURL: stored.URL,
	}
	if req.PaymentMethod != "" {
		order.PaymentMethod = req.PaymentMethod
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, line := range req.Items {
			var resource models.Resource
			err := tx.Preload("Commercial").First(&resource, line.ResourceID).Error
			if err != nil || resource.Commercial == nil {
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("failed to load product %s: %w", line.label(), err)
				}
				return newError(ErrNotFound, "product %s not found", line.label())
			}

			if line.Quantity > resource.Commercial.Stock {
				return &StockError{
					ResourceID: resource.ID,
					Item:       resource.Name,
					Available:  resource.Commercial.Stock,
					Requested:  line.Quantity,
				}
			}
			if line.Size != "" && !resource.OffersSize(line.Size) {
				return newError(ErrValidation, "size %s is not available for %s", line.Size, resource.Name)
			}

			price := resource.Commercial.SalePrice
			items = append(items, models.OrderItem{
				ResourceID: resource.ID,
				ItemName:   resource.Name,
				Quantity:   line.Quantity,
				UnitPrice:  price,
				Subtotal:   price.Mul(decimal.NewFromInt(int64(line.Quantity))),
				Size:       line.Size,
			})
		}

		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return storeError(err, "order item")
		}
		return nil
	})
	if err != nil {
		if derr := s.storageService.DeleteFile(stored.URL); derr != nil {
			logrus.WithError(derr).WithField("url", stored.URL).Warn("Failed to remove payment proof")
		}
		return nil, err
	}

	created, err := s.Get(order.ID)
	if err != nil {
		return nil, err
	}

	enqueue(ctx, s.dispatcher, queue.TaskOrderCreated, orderPayload(created))
	return created, nil
}

// List returns orders newest first. An empty status or "ALL" disables the filter.
func (s *OrderService) List(status string) ([]models.Order, error) {
	query := s.db.Model(&models.Order{})
	if status != "" && !strings.EqualFold(status, "ALL") {
		st := models.OrderStatus(strings.ToUpper(status))
		if !st.Valid() {
			return nil, newError(ErrValidation, "unknown order status %s", status)
		}
		query = query.Where("status = ?", st)
	}

	var orders []models.Order
	if err := s.withItems(query).Order("id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	if err := s.annotate(orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) Get(id uint) (*models.Order, error) {
	var order models.Order
	if err := s.withItems(s.db).First(&order, id).Error; err != nil {
		return nil, storeError(err, fmt.Sprintf("order #%d", id))
	}

	orders := []models.Order{order}
	if err := s.annotate(orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// Confirm moves a PENDING order to PAID and takes its lines out of stock.
// The invoice is rendered after commit; failing to render it leaves the
// order PAID with no invoice.
func (s *OrderService) Confirm(ctx context.Context, id uint) (*ConfirmResult, error) {
	order, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	if !previous.CanTransitionTo(models.OrderStatusPaid) {
		return nil, newError(ErrInvalidState, "order #%d is %s and cannot be confirmed", id, previous)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, previous).
			Updates(map[string]interface{}{"status": models.OrderStatusPaid, "paid_at": now})
		if result.Error != nil {
			return fmt.Errorf("failed to update order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return newError(ErrInvalidState, "order #%d is no longer %s", id, previous)
		}

		for _, item := range order.Items {
			var resource models.Resource
			err := tx.Preload("Commercial").First(&resource, item.ResourceID).Error
			if err != nil || resource.Commercial == nil {
				if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("failed to load product %d: %w", item.ResourceID, err)
				}
				return newError(ErrValidation, "product %d no longer exists", item.ResourceID)
			}
			if err := decrementStock(tx, &resource, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	paid, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	result := &ConfirmResult{Order: paid}
	if s.invoices != nil {
		url, err := s.invoices.Generate(paid)
		if err != nil {
			logrus.WithError(err).WithField("order_id", id).Error("Invoice generation failed")
		} else {
			if err := s.db.Model(&models.Order{}).Where("id = ?", id).Update("invoice_url", url).Error; err != nil {
				logrus.WithError(err).WithField("order_id", id).Error("Failed to store invoice URL")
			}
			paid.InvoiceURL = url
			result.InvoiceURL = &url
		}
	}

	enqueue(ctx, s.dispatcher, queue.TaskOrderPaid, orderPayload(paid))
	return result, nil
}

// Cancel is idempotent. Stock is restored only when the order had been paid;
// lines whose product no longer exists are skipped.
func (s *OrderService) Cancel(ctx context.Context, id uint) (*CancelResult, error) {
	order, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCancelled {
		return &CancelResult{Order: order, Changed: false}, nil
	}

	previous := order.Status
	if !previous.CanTransitionTo(models.OrderStatusCancelled) {
		return nil, newError(ErrInvalidState, "order #%d is %s and cannot be cancelled", id, previous)
	}
	restored := false
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if previous == models.OrderStatusPaid {
			for _, item := range order.Items {
				ok, err := incrementStock(tx, item.ResourceID, item.Quantity)
				if err != nil {
					return err
				}
				restored = restored || ok
			}
		}

		// Written last, guarded on the status the decision was made on.
		now := time.Now().UTC()
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", id, previous).
			Updates(map[string]interface{}{"status": models.OrderStatusCancelled, "cancelled_at": now})
		if result.Error != nil {
			return fmt.Errorf("failed to update order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return newError(ErrInvalidState, "order #%d changed while cancelling, retry", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cancelled, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	payload := orderPayload(cancelled)
	payload.StockRestored = restored
	enqueue(ctx, s.dispatcher, queue.TaskOrderCancelled, payload)

	return &CancelResult{Order: cancelled, Changed: true}, nil
}

func (s *OrderService) withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// annotate resolves each line's current product name, or the placeholder
// when the product was deleted.
func (s *OrderService) annotate(orders []models.Order) error {
	ids := make(map[uint]struct{})
	for _, o := range orders {
		for _, item := range o.Items {
			ids[item.ResourceID] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return nil
	}

	list := make([]uint, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}

	var resources []models.Resource
	if err := s.db.Select("id", "name").Where("id IN ?", list).Find(&resources).Error; err != nil {
		return fmt.Errorf("failed to resolve product names: %w", err)
	}
	names := make(map[uint]string, len(resources))
	for _, r := range resources {
		names[r.ID] = r.Name
	}

	for i := range orders {
		for j := range orders[i].Items {
			item := &orders[i].Items[j]
			if name, ok := names[item.ResourceID]; ok {
				item.ProductName = name
			} else {
				item.ProductName = models.DeletedProductName
			}
		}
	}
	return nil
}
