// internal/services/tasks.go
package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
)

// Task payloads carry everything the notifier needs; it never reads the DB.

type TaskLine struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Size     string          `json:"size,omitempty"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type OrderTaskPayload struct {
	OrderID       uint            `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Items         []TaskLine      `json:"items"`
	ProofURL      string          `json:"proof_url,omitempty"`
	InvoiceURL    string          `json:"invoice_url,omitempty"`
	StockRestored bool            `json:"stock_restored,omitempty"`
}

type SponsorTaskPayload struct {
	ApplicationID uint   `json:"application_id"`
	CompanyName   string `json:"company_name"`
	ContactName   string `json:"contact_name"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone"`
	Proposal      string `json:"proposal"`
}

type DonationTaskPayload struct {
	DonationID uint            `json:"donation_id"`
	DonorName  string          `json:"donor_name"`
	DonorEmail string          `json:"donor_email,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Message    string          `json:"message,omitempty"`
}

type PasswordResetPayload struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	ExpiresIn string `json:"expires_in"`
}

type MembershipTaskPayload struct {
	MembershipID uint                    `json:"membership_id"`
	UserID       uint                    `json:"user_id"`
	MemberName   string                  `json:"member_name"`
	MemberEmail  string                  `json:"member_email"`
	Type         models.MembershipType   `json:"membership_type"`
	Previous     models.MembershipStatus `json:"previous_status"`
}

func orderPayload(order *models.Order) OrderTaskPayload {
	p := OrderTaskPayload{
		OrderID:       order.ID,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		CustomerEmail: order.CustomerEmail,
		Total:         order.TotalAmount,
		ProofURL:      order.PaymentProofURL,
		InvoiceURL:    order.InvoiceURL,
	}
	for i := range order.Items {
		item := &order.Items[i]
		p.Items = append(p.Items, TaskLine{
			Name:     item.DisplayName(),
			Quantity: item.Quantity,
			Size:     item.Size,
			Subtotal: item.Subtotal,
		})
	}
	return p
}

// enqueue hands a task to the dispatcher. Failures are logged, never returned:
// deferred side effects must not fail the request that produced them.
func enqueue(ctx context.Context, d queue.Dispatcher, taskType string, payload interface{}) {
	if d == nil {
		return
	}
	task, err := queue.NewTask(taskType, payload)
	if err != nil {
		logrus.WithError(err).WithField("task_type", taskType).Error("Failed to build task")
		return
	}
	if err := d.Enqueue(ctx, task); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"task_type": taskType,
			"task_id":   task.ID,
		}).Error("Failed to enqueue task")
	}
}
