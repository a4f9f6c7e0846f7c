package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
)

type sentMail struct {
	addr string
	to   []string
	msg  string
}

type notifierHarness struct {
	service  *NotificationService
	mux      *queue.Mux
	mu       sync.Mutex
	messages []telegramMessage
	paths    []string
	mails    []sentMail
	status   int
}

func newNotifier(t *testing.T) *notifierHarness {
	t.Helper()
	h := &notifierHarness{status: http.StatusOK}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg telegramMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		h.mu.Lock()
		h.messages = append(h.messages, msg)
		h.paths = append(h.paths, r.URL.Path)
		status := h.status
		h.mu.Unlock()
		w.WriteHeader(status)
		w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	cfg := testConfig(t)
	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "-100"
	cfg.Telegram.APIBaseURL = server.URL
	cfg.Email.SMTPHost = "smtp.club.test"
	cfg.Email.SMTPPort = "587"
	cfg.Email.FromEmail = "noreply@club.test"
	cfg.Server.PublicBaseURL = "https://api.club.test/"

	h.service = NewNotificationService(cfg)
	h.service.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.mails = append(h.mails, sentMail{addr: addr, to: to, msg: string(msg)})
		return nil
	}
	h.mux = queue.NewMux()
	h.service.Register(h.mux)
	return h
}

func (h *notifierHarness) dispatch(t *testing.T, taskType string, payload interface{}) error {
	t.Helper()
	task, err := queue.NewTask(taskType, payload)
	require.NoError(t, err)
	return h.mux.Dispatch(context.Background(), task)
}

func samplePayload() OrderTaskPayload {
	return OrderTaskPayload{
		OrderID:       7,
		CustomerName:  "Ana <b>",
		CustomerPhone: "0999",
		CustomerEmail: "ana@example.com",
		Total:         money("50"),
		Items:         []TaskLine{{Name: "Jersey", Quantity: 2, Size: "M", Subtotal: money("50")}},
		ProofURL:      "/uploads/payment_proofs/p.png",
	}
}

func TestNotifyOrderCreated(t *testing.T) {
	h := newNotifier(t)

	require.NoError(t, h.dispatch(t, queue.TaskOrderCreated, samplePayload()))

	require.Len(t, h.messages, 1)
	msg := h.messages[0]
	assert.Equal(t, "/bot123:abc/sendMessage", h.paths[0])
	assert.Equal(t, "-100", msg.ChatID)
	assert.Equal(t, "HTML", msg.ParseMode)
	assert.Contains(t, msg.Text, "#7")
	assert.Contains(t, msg.Text, "Ana &lt;b&gt;")
	assert.Contains(t, msg.Text, "$50.00")
	assert.Contains(t, msg.Text, "2 x Jersey")

	keyboard := msg.ReplyMarkup["inline_keyboard"].([]interface{})
	button := keyboard[0].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "https://api.club.test/uploads/payment_proofs/p.png", button["url"])
}

func TestNotifyOrderPaidSendsTelegramAndEmail(t *testing.T) {
	h := newNotifier(t)
	p := samplePayload()
	p.InvoiceURL = "/uploads/invoices/7.pdf"

	require.NoError(t, h.dispatch(t, queue.TaskOrderPaid, p))

	require.Len(t, h.messages, 1)
	assert.Contains(t, h.messages[0].Text, "Factura")
	require.Len(t, h.mails, 1)
	assert.Equal(t, "smtp.club.test:587", h.mails[0].addr)
	assert.Equal(t, []string{"ana@example.com"}, h.mails[0].to)
	assert.Contains(t, h.mails[0].msg, "Pedido #7 confirmado")
	assert.Contains(t, h.mails[0].msg, "https://api.club.test/uploads/invoices/7.pdf")
}

func TestNotifyOrderPaidWithoutInvoice(t *testing.T) {
	h := newNotifier(t)
	p := samplePayload()
	p.CustomerEmail = ""

	require.NoError(t, h.dispatch(t, queue.TaskOrderPaid, p))
	require.Len(t, h.messages, 1)
	assert.Contains(t, h.messages[0].Text, "No se pudo generar la factura")
	assert.Nil(t, h.messages[0].ReplyMarkup)
	assert.Empty(t, h.mails)
}

func TestNotifyCancelledMentionsRestoredStock(t *testing.T) {
	h := newNotifier(t)
	p := samplePayload()
	p.StockRestored = true

	require.NoError(t, h.dispatch(t, queue.TaskOrderCancelled, p))
	require.Len(t, h.messages, 1)
	assert.Contains(t, h.messages[0].Text, "restaurado")
}

func TestNotifyTelegramErrorIsReturned(t *testing.T) {
	h := newNotifier(t)
	h.status = http.StatusBadRequest

	err := h.dispatch(t, queue.TaskOrderCreated, samplePayload())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestNotifyEmailsAdminForIntake(t *testing.T) {
	h := newNotifier(t)

	require.NoError(t, h.dispatch(t, queue.TaskSponsorApplied, SponsorTaskPayload{
		ApplicationID: 1, CompanyName: "Bicis", ContactName: "María", ContactEmail: "m@b.ec", Proposal: "Uniformes",
	}))
	require.NoError(t, h.dispatch(t, queue.TaskDonationReceived, DonationTaskPayload{
		DonationID: 1, DonorName: "Ana", Amount: money("20"), Currency: "usd",
	}))
	require.NoError(t, h.dispatch(t, queue.TaskPasswordReset, PasswordResetPayload{
		Email: "ana@example.com", Name: "Ana", Code: "123456", ExpiresIn: "15 minutos",
	}))

	require.Len(t, h.mails, 3)
	assert.Equal(t, []string{"admin@club.test"}, h.mails[0].to)
	assert.Contains(t, h.mails[0].msg, "Uniformes")
	assert.Contains(t, h.mails[1].msg, "20.00 USD")
	assert.Equal(t, []string{"ana@example.com"}, h.mails[2].to)
	assert.Contains(t, h.mails[2].msg, "123456")

	require.Len(t, h.messages, 1, "donations also go to the staff chat")
}

func TestNotifyReactivationRequest(t *testing.T) {
	h := newNotifier(t)

	require.NoError(t, h.dispatch(t, queue.TaskMembershipReactivation, MembershipTaskPayload{
		MembershipID: 4, UserID: 7, MemberName: "Luis <Vélez>", MemberEmail: "luis@epn.edu.ec",
		Type: models.MembershipTypeRider, Previous: models.MembershipStatusExpired,
	}))

	require.Len(t, h.messages, 1)
	assert.Contains(t, h.messages[0].Text, "Luis &lt;Vélez&gt;")
	assert.Contains(t, h.messages[0].Text, "CICLISTA (antes EXPIRED)")
	assert.Empty(t, h.mails)
}

func TestNotifySkipsUnconfiguredChannels(t *testing.T) {
	service := NewNotificationService(testConfig(t))
	called := false
	service.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	require.NoError(t, service.SendTelegram(context.Background(), "hola", nil))
	require.NoError(t, service.sendEmail("ana@example.com", "Hola", "<p>hola</p>"))
	assert.False(t, called)
	assert.Empty(t, service.absoluteURL("/uploads/a.png"), "no public base url")
	assert.Equal(t, "https://cdn.test/a.png", service.absoluteURL("https://cdn.test/a.png"))
}
