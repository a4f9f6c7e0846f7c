package services

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciclismo-epn/club-backend/internal/models"
)

func paidOrder() *models.Order {
	paid := time.Date(2024, 6, 3, 15, 4, 0, 0, time.UTC)
	order := &models.Order{
		CustomerName:  "José Peña",
		CustomerPhone: "0999999999",
		TotalAmount:   money("58.50"),
		Status:        models.OrderStatusPaid,
		PaidAt:        &paid,
		Items: []models.OrderItem{
			{ItemName: "Jersey", ProductName: "Jersey Oficial", Quantity: 2, UnitPrice: money("25"), Subtotal: money("50"), Size: "M"},
			{ItemName: "Bottle", ProductName: models.DeletedProductName, Quantity: 1, UnitPrice: money("8.5"), Subtotal: money("8.5")},
		},
	}
	order.ID = 42
	return order
}

func TestInvoiceRender(t *testing.T) {
	cfg := testConfig(t)
	invoices := NewInvoiceService(newStorage(t, cfg), cfg.Club)

	data, err := invoices.Render(paidOrder())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestInvoiceGenerateStoresPDF(t *testing.T) {
	cfg := testConfig(t)
	storage := newStorage(t, cfg)
	invoices := NewInvoiceService(storage, cfg.Club)

	url, err := invoices.Generate(paidOrder())
	require.NoError(t, err)
	assert.Contains(t, url, "/uploads/invoices/")
	assert.Contains(t, url, ".pdf")

	path, ok := storage.LocalPath(url)
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}
