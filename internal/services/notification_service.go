// internal/services/notification_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"io"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/queue"
)

// NotificationService delivers deferred tasks to the staff Telegram chat and
// by email. Channels that are not configured are skipped with a log line.
type NotificationService struct {
	config   *config.Config
	client   *http.Client
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

type InlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type telegramMessage struct {
	ChatID      string                 `json:"chat_id"`
	Text        string                 `json:"text"`
	ParseMode   string                 `json:"parse_mode"`
	ReplyMarkup map[string]interface{} `json:"reply_markup,omitempty"`
}

func NewNotificationService(config *config.Config) *NotificationService {
	return &NotificationService{
		config:   config,
		client:   &http.Client{Timeout: 10 * time.Second},
		sendMail: smtp.SendMail,
	}
}

// Register binds the notification handlers to their task types.
func (s *NotificationService) Register(mux *queue.Mux) {
	mux.Handle(queue.TaskOrderCreated, s.handleOrderCreated)
	mux.Handle(queue.TaskOrderPaid, s.handleOrderPaid)
	mux.Handle(queue.TaskOrderCancelled, s.handleOrderCancelled)
	mux.Handle(queue.TaskSponsorApplied, s.handleSponsorApplied)
	mux.Handle(queue.TaskDonationReceived, s.handleDonationReceived)
	mux.Handle(queue.TaskPasswordReset, s.handlePasswordReset)
	mux.Handle(queue.TaskMembershipReactivation, s.handleMembershipReactivation)
}

// Order notifications
func (s *NotificationService) handleOrderCreated(ctx context.Context, t queue.Task) error {
	p, err := queue.Decode[OrderTaskPayload](t)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("🔔 <b>NUEVA SOLICITUD DE PEDIDO</b>\n\n")
	fmt.Fprintf(&b, "🆔 <b>Orden:</b> #%d\n", p.OrderID)
	fmt.Fprintf(&b, "👤 <b>Cliente:</b> %s\n", html.EscapeString(p.CustomerName))
	fmt.Fprintf(&b, "📞 <b>Telf:</b> %s\n", html.EscapeString(p.CustomerPhone))
	fmt.Fprintf(&b, "💰 <b>Total a pagar:</b> $%s\n\n", p.Total.StringFixed(2))
	for _, item := range p.Items {
		fmt.Fprintf(&b, "• %d x %s\n", item.Quantity, html.EscapeString(item.Name))
	}
	b.WriteString("\n<i>Estado: PENDIENTE. Verifica el pago y autoriza en el panel.</i>")

	var button *InlineButton
	if url := s.absoluteURL(p.ProofURL); url != "" {
		button = &InlineButton{Text: "🧾 Ver comprobante", URL: url}
	}
	return s.SendTelegram(ctx, b.String(), button)
}

func (s *NotificationService) handleOrderPaid(ctx context.Context, t queue.Task) error {
	p, err := queue.Decode[OrderTaskPayload](t)
	if err != nil {
		return err
	}

	invoiceURL := s.absoluteURL(p.InvoiceURL)

	var b strings.Builder
	b.WriteString("✅ <b>VENTA AUTORIZADA Y PROCESADA</b>\n\n")
	fmt.Fprintf(&b, "🆔 <b>Orden:</b> #%d\n", p.OrderID)
	b.WriteString("📦 <b>Stock:</b> descontado del inventario\n")
	var button *InlineButton
	if invoiceURL != "" {
		b.WriteString("📄 <b>Factura:</b> generada\n")
		button = &InlineButton{Text: "📂 Abrir factura PDF", URL: invoiceURL}
	} else {
		b.WriteString("⚠️ No se pudo generar la factura PDF.\n")
	}

	var errs []string
	if err := s.SendTelegram(ctx, b.String(), button); err != nil {
		errs = append(errs, err.Error())
	}

	if p.CustomerEmail != "" {
		body, err := s.renderTemplate(s.getEmailTemplate("order_paid").Body, map[string]interface{}{
			"CustomerName": p.CustomerName,
			"OrderID":      p.OrderID,
			"Items":        p.Items,
			"Total":        p.Total.StringFixed(2),
			"InvoiceURL":   invoiceURL,
			"ClubName":     s.config.Club.Name,
		})
		if err != nil {
			return fmt.Errorf("failed to render email template: %w", err)
		}
		subject := fmt.Sprintf("%s - Pedido #%d confirmado", s.config.Club.Name, p.OrderID)
		if err := s.sendEmail(p.CustomerEmail, subject, body); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("order.paid notification: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (s *NotificationService) handleOrderCancelled(ctx context.Context, t queue.Task) error {
	p, err := queue.Decode[OrderTaskPayload](t)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("❌ <b>ORDEN CANCELADA</b>\n\n")
	fmt.Fprintf(&b, "🆔 <b>Orden:</b> #%d\n", p.OrderID)
	fmt.Fprintf(&b, "👤 <b>Cliente:</b> %s\n", html.EscapeString(p.CustomerName))
	if p.StockRestored {
		b.WriteString("📦 <b>Stock:</b> restaurado al inventario\n")
	}
	return s.SendTelegram(ctx, b.String(), nil)
}

// Intake notifications
func (s *NotificationService) handleSponsorApplied(ctx context.Context, t queue.Task) error {
	p, err := queue.Decode[SponsorTaskPayload](t)
	if err != nil {
		return err
	}

	body, err := s.renderTemplate(s.getEmailTemplate("sponsor_applied").Body, p)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.sendEmail(s.config.Admin.Email, "Nueva solicitud de auspicio - "+p.CompanyName, body)
}

func (s *NotificationService) handleDonationReceived(ctx context.Context, t queue.Task) error {
	p, err := queue.Decode[DonationTaskPayload](t)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("💚 <b>DONACIÓN RECIBIDA</b>\n\n👤 %s\n💰 %s %s",
		html.EscapeString(p.DonorName), p.Amount.StringFixed(2), strings.ToUpper(p.Currency))
	if err := s.SendTelegram(ctx, text, nil); err != nil {
		return err
	}

	body, err := s.renderTemplate(s.getEmailTemplate("donation_received").Body, map[string]interface{}{
		"DonorName": p.DonorName,
		"Amount":    p.Amount.StringFixed(2),
		"Currency":  strings.ToUpper(p.Currency),
		"Message":   p.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.sendEmail(s.config.Admin.Email, "Nueva donación - "+p.DonorName, body)
}

func (s *NotificationService) handleMembershipReactivation(ctx context.Context, t queue.Task) error {
	p, err := queue.Decode[MembershipTaskPayload](t)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("🚴 <b>SOLICITUD DE REACTIVACIÓN</b>\n\n")
	fmt.Fprintf(&b, "👤 <b>Socio:</b> %s\n", html.EscapeString(p.MemberName))
	fmt.Fprintf(&b, "📧 <b>Email:</b> %s\n", html.EscapeString(p.MemberEmail))
	fmt.Fprintf(&b, "🏷 <b>Membresía:</b> %s (antes %s)\n", p.Type, p.Previous)
	b.WriteString("\n<i>Registra el pago para activarla.</i>")
	return s.SendTelegram(ctx, b.String(), nil)
}

func (s *NotificationService) handlePasswordReset(ctx context.Context, t queue.Task) error {
	p, err := queue.Decode[PasswordResetPayload](t)
	if err != nil {
		return err
	}

	body, err := s.renderTemplate(s.getEmailTemplate("password_reset").Body, p)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	return s.sendEmail(p.Email, "Recuperación de contraseña", body)
}

// SendTelegram posts an HTML message to the staff chat.
func (s *NotificationService) SendTelegram(ctx context.Context, text string, button *InlineButton) error {
	tg := s.config.Telegram
	if tg.BotToken == "" || tg.ChatID == "" {
		logrus.WithField("chars", len(text)).Info("Telegram not configured, skipping message")
		return nil
	}

	msg := telegramMessage{ChatID: tg.ChatID, Text: text, ParseMode: "HTML"}
	if button != nil {
		msg.ReplyMarkup = map[string]interface{}{
			"inline_keyboard": [][]InlineButton{{*button}},
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(tg.APIBaseURL, "/"), tg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email not configured, skipping message")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	from := s.config.Email.FromEmail
	if s.config.Email.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	}
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	if err := s.sendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// absoluteURL turns a stored relative upload URL into one Telegram accepts.
func (s *NotificationService) absoluteURL(url string) string {
	switch {
	case url == "":
		return ""
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		return url
	case s.config.Server.PublicBaseURL == "":
		return ""
	}
	return strings.TrimRight(s.config.Server.PublicBaseURL, "/") + "/" + strings.TrimLeft(url, "/")
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"order_paid": {
			Subject: "Pedido confirmado",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>¡Gracias por tu compra, {{.CustomerName}}!</h2>
	<p>Tu pedido #{{.OrderID}} fue confirmado.</p>
	<ul>
	{{range .Items}}<li>{{.Quantity}} x {{.Name}}{{if .Size}} ({{.Size}}){{end}}</li>{{end}}
	</ul>
	<p><b>Total:</b> ${{.Total}}</p>
	{{if .InvoiceURL}}<p><a href="{{.InvoiceURL}}">Descargar factura</a></p>{{end}}
	<p>Saludos,<br>{{.ClubName}}</p>
</body>
</html>`,
		},
		"sponsor_applied": {
			Subject: "Nueva solicitud de auspicio",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Nueva solicitud de auspicio</h2>
	<p><b>Empresa:</b> {{.CompanyName}}</p>
	<p><b>Contacto:</b> {{.ContactName}} ({{.ContactEmail}}, {{.ContactPhone}})</p>
	<p><b>Propuesta:</b></p>
	<p>{{.Proposal}}</p>
</body>
</html>`,
		},
		"donation_received": {
			Subject: "Nueva donación",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Donación recibida</h2>
	<p>{{.DonorName}} donó {{.Amount}} {{.Currency}}.</p>
	{{if .Message}}<p>"{{.Message}}"</p>{{end}}
</body>
</html>`,
		},
		"password_reset": {
			Subject: "Recuperación de contraseña",
			Body: `
<!DOCTYPE html>
<html>
<body>
	<h2>Hola {{.Name}}</h2>
	<p>Tu código de recuperación es <b>{{.Code}}</b>. Expira en {{.ExpiresIn}}.</p>
	<p>Si no solicitaste este cambio, ignora este mensaje.</p>
</body>
</html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	return EmailTemplate{
		Subject: "Notificación",
		Body:    "<p>{{.Message}}</p>",
	}
}
