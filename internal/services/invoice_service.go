// internal/services/invoice_service.go
package services

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/models"
)

// InvoiceService renders paid orders as a one-page PDF and stores it.
type InvoiceService struct {
	storageService *StorageService
	club           config.ClubConfig
}

func NewInvoiceService(storageService *StorageService, club config.ClubConfig) *InvoiceService {
	return &InvoiceService{
		storageService: storageService,
		club:           club,
	}
}

func (s *InvoiceService) Generate(order *models.Order) (string, error) {
	data, err := s.Render(order)
	if err != nil {
		return "", err
	}

	result, err := s.storageService.SaveBytes(data, ".pdf", FolderInvoices, "application/pdf")
	if err != nil {
		return "", fmt.Errorf("failed to store invoice: %w", err)
	}
	return result.URL, nil
}

func (s *InvoiceService) Render(order *models.Order) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Order %d", order.ID), true)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 10, tr(s.club.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr("Web purchase order"), "", 1, "L", false, 0, "")
	if s.club.Address != "" {
		pdf.CellFormat(0, 5, tr(s.club.Address), "", 1, "L", false, 0, "")
	}
	if s.club.Phone != "" {
		pdf.CellFormat(0, 5, tr(s.club.Phone), "", 1, "L", false, 0, "")
	}

	pdf.Ln(3)
	y := pdf.GetY()
	pdf.Line(left, y, pageWidth-right, y)
	pdf.Ln(6)

	date := order.CreatedAt
	if order.PaidAt != nil {
		date = *order.PaidAt
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("Order #: %d", order.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Date: "+date.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Customer: "+order.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, tr("Phone: "+order.CustomerPhone), "", 1, "L", false, 0, "")

	pdf.Ln(6)
	pdf.CellFormat(0, 7, "DETAIL:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for i := range order.Items {
		item := &order.Items[i]
		line := fmt.Sprintf("%d x %s", item.Quantity, item.DisplayName())
		if item.Size != "" {
			line += " (" + item.Size + ")"
		}
		line += " - $" + item.Subtotal.StringFixed(2)
		pdf.SetX(left + 5)
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "TOTAL: $"+order.TotalAmount.StringFixed(2), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}
	return buf.Bytes(), nil
}
