package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/database"
	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/testutil"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

type taskRecorder struct {
	mu    sync.Mutex
	types []string
}

func (r *taskRecorder) Enqueue(_ context.Context, t queue.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, t.Type)
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type RouterTestSuite struct {
	suite.Suite
	db         *gorm.DB
	cfg        *config.Config
	tasks      *taskRecorder
	router     *gin.Engine
	adminToken string
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(i18n.Initialize("es"))
}

func (s *RouterTestSuite) SetupTest() {
	s.db = testutil.NewDB(s.T())
	s.cfg = &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{AllowedOrigins: []string{"*"}},
		JWT:         config.JWTConfig{SecretKey: "router-secret", AccessTokenTTL: 1, RefreshTokenTTL: 24},
		Storage:     config.StorageConfig{UploadDir: s.T().TempDir(), PublicURL: "/uploads"},
		Payment:     config.PaymentConfig{Currency: "usd"},
		Club:        config.ClubConfig{Name: "Club de Ciclismo", Address: "Quito, Ecuador"},
		Admin: config.AdminConfig{
			Email:     "admin@club.test",
			Password:  "Admin-123!",
			FirstName: "Ada",
			LastName:  "Admin",
		},
	}
	s.Require().NoError(database.SeedAdmin(s.db, s.cfg.Admin))

	s.tasks = &taskRecorder{}
	r, err := Initialize(s.db, s.cfg, Options{Dispatcher: s.tasks})
	s.Require().NoError(err)
	s.router = r

	s.adminToken = s.login("admin@club.test", "Admin-123!")
}

func (s *RouterTestSuite) do(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (s *RouterTestSuite) doJSON(method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

func (s *RouterTestSuite) doMultipart(method, path string, fields map[string]string, files map[string][]byte, token string) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	for name, content := range files {
		part, err := mw.CreateFormFile(name, name+fileExt(content))
		s.Require().NoError(err)
		_, err = part.Write(content)
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req, token)
}

func fileExt(content []byte) string {
	if bytes.HasPrefix(content, []byte("%PDF")) {
		return ".pdf"
	}
	return ".png"
}

func (s *RouterTestSuite) login(email, password string) string {
	w, env := s.doJSON(http.MethodPost, "/auth/token", map[string]string{"email": email, "password": password}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data struct {
		AccessToken string `json:"access_token"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	return data.AccessToken
}

func (s *RouterTestSuite) memberToken() string {
	w, _ := s.doJSON(http.MethodPost, "/auth/register", map[string]string{
		"email":      "rider@club.test",
		"password":   "Rider-123!",
		"first_name": "Rita",
		"last_name":  "Rider",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return s.login("rider@club.test", "Rider-123!")
}

func (s *RouterTestSuite) createProduct(name, sku string, stock int) uint {
	w, env := s.doJSON(http.MethodPost, "/recursos/", map[string]interface{}{
		"kind":          "COMMERCIAL",
		"name":          name,
		"sale_price":    "25.00",
		"initial_stock": stock,
		"sku":           sku,
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Resource models.Resource `json:"resource"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	return data.Resource.ID
}

func (s *RouterTestSuite) stock(id uint) int {
	var item models.CommercialItem
	s.Require().NoError(s.db.First(&item, "resource_id = ?", id).Error)
	return item.Stock
}

func (s *RouterTestSuite) checkout(resourceID uint, qty int) (*httptest.ResponseRecorder, envelope) {
	return s.doMultipart(http.MethodPost, "/ventas/checkout", map[string]string{
		"customer_name":  "Carla Cliente",
		"customer_phone": "0999999999",
		"total":          fmt.Sprintf("%d.00", 25*qty),
		"items_json":     fmt.Sprintf(`[{"id_recurso": %d, "quantity": %d, "nombre": "Jersey"}]`, resourceID, qty),
	}, map[string][]byte{"payment_proof": pngBytes}, "")
}

func orderID(s *RouterTestSuite, env envelope) uint {
	var data struct {
		OrderID uint `json:"order_id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &data))
	return data.OrderID
}

func (s *RouterTestSuite) TestHealth() {
	w, _ := s.doJSON(http.MethodGet, "/health", nil, "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"database":"up"`)
}

func (s *RouterTestSuite) TestOrderLifecycle() {
	id := s.createProduct("Jersey", "JER-01", 5)

	w, env := s.checkout(id, 3)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	order := orderID(s, env)
	s.NotZero(order)
	s.Equal(5, s.stock(id))

	req := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/ventas/%d/confirmar", order), nil)
	req.Header.Set("Accept-Language", "en")
	w, env = s.do(req, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var confirmed struct {
		Message    string  `json:"message"`
		InvoiceURL *string `json:"invoice_url"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &confirmed))
	s.Equal(fmt.Sprintf("Order #%d authorized and stock deducted", order), confirmed.Message)
	s.Require().NotNil(confirmed.InvoiceURL)
	s.True(strings.HasPrefix(*confirmed.InvoiceURL, "/uploads/invoices/"))
	s.Equal(2, s.stock(id))

	// the invoice is served from local storage
	w, _ = s.do(httptest.NewRequest(http.MethodGet, *confirmed.InvoiceURL, nil), "")
	s.Equal(http.StatusOK, w.Code)
	s.True(bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w, env = s.doJSON(http.MethodPut, fmt.Sprintf("/ventas/%d/confirmar", order), nil, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("INVALID_ORDER_STATE", env.Error.Code)
	s.Equal(2, s.stock(id))

	w, _ = s.doJSON(http.MethodPut, fmt.Sprintf("/ventas/%d/cancelar", order), nil, s.adminToken)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(5, s.stock(id))

	w, _ = s.doJSON(http.MethodPut, fmt.Sprintf("/ventas/%d/cancelar", order), nil, s.adminToken)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(5, s.stock(id))

	s.Equal([]string{queue.TaskOrderCreated, queue.TaskOrderPaid, queue.TaskOrderCancelled}, s.tasks.types)

	w, env = s.doJSON(http.MethodGet, "/ventas/?status=CANCELLED", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var orders []models.Order
	s.Require().NoError(json.Unmarshal(env.Data, &orders))
	s.Require().Len(orders, 1)
	s.Equal("Jersey", orders[0].Items[0].ProductName)
}

func (s *RouterTestSuite) TestCheckoutInsufficientStock() {
	id := s.createProduct("Casco", "CAS-01", 2)

	w, env := s.checkout(id, 3)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("INSUFFICIENT_STOCK", env.Error.Code)
	s.Contains(string(env.Error.Details), `"available":2`)

	var count int64
	s.db.Model(&models.Order{}).Count(&count)
	s.Zero(count)
	s.db.Model(&models.OrderItem{}).Count(&count)
	s.Zero(count)
}

func (s *RouterTestSuite) TestCheckoutRejectsBadInput() {
	id := s.createProduct("Guantes", "GUA-01", 4)

	w, _ := s.doMultipart(http.MethodPost, "/ventas/checkout", map[string]string{
		"customer_name": "Carla",
		"total":         "10",
		"items_json":    "not json",
	}, map[string][]byte{"payment_proof": pngBytes}, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.doMultipart(http.MethodPost, "/ventas/checkout", map[string]string{
		"customer_name": "Carla",
		"total":         "10",
		"items_json":    fmt.Sprintf(`[{"resource_id": %d, "quantity": 1}]`, id),
	}, nil, "")
	s.Equal(http.StatusBadRequest, w.Code)

	w, _ = s.doMultipart(http.MethodPost, "/ventas/checkout", map[string]string{
		"customer_name": "Carla",
		"total":         "10",
		"items_json":    `[{"resource_id": 999, "quantity": 1}]`,
	}, map[string][]byte{"payment_proof": pngBytes}, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterTestSuite) TestConfirmUnknownOrder() {
	w, env := s.doJSON(http.MethodPut, "/ventas/4040/confirmar", nil, s.adminToken)
	s.Equal(http.StatusNotFound, w.Code)
	s.False(env.Success)

	w, _ = s.doJSON(http.MethodPut, "/ventas/abc/confirmar", nil, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestAdminRoutesRequireAdmin() {
	w, _ := s.doJSON(http.MethodGet, "/ventas/", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	member := s.memberToken()
	w, _ = s.doJSON(http.MethodGet, "/ventas/", nil, member)
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.doJSON(http.MethodGet, "/auth/me", nil, member)
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.doJSON(http.MethodGet, "/documentos/", nil, member)
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.doJSON(http.MethodDelete, "/documentos/1", nil, member)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *RouterTestSuite) TestCatalogRoutes() {
	id := s.createProduct("Bidón", "BID-01", 1)

	w, env := s.doJSON(http.MethodPost, "/recursos/", map[string]interface{}{
		"kind":          "COMMERCIAL",
		"name":          "Otro bidón",
		"sale_price":    "5",
		"initial_stock": 1,
		"sku":           "BID-01",
	}, s.adminToken)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal("CONFLICT", env.Error.Code)

	w, _ = s.doJSON(http.MethodPut, fmt.Sprintf("/recursos/%d", id), map[string]interface{}{"kind": "OPERATIONAL"}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)

	w, env = s.doJSON(http.MethodGet, "/recursos/publicos", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var public []models.Resource
	s.Require().NoError(json.Unmarshal(env.Data, &public))
	s.Len(public, 1)

	w, _ = s.doJSON(http.MethodPost, fmt.Sprintf("/recursos/%d/comprar", id), nil, s.adminToken)
	s.Equal(http.StatusOK, w.Code)
	w, env = s.doJSON(http.MethodPost, fmt.Sprintf("/recursos/%d/comprar", id), nil, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("INSUFFICIENT_STOCK", env.Error.Code)

	w, env = s.doMultipart(http.MethodPost, "/recursos/", map[string]string{
		"data": `{"kind":"OPERATIONAL","name":"Bicicleta de ruta","asset_code":"BIC-001"}`,
	}, map[string][]byte{"image": pngBytes}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Resource models.Resource `json:"resource"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &created))
	s.True(strings.HasPrefix(created.Resource.ImageURL, "/uploads/products/"))
	s.Require().NotNil(created.Resource.Operational)

	w, env = s.doJSON(http.MethodGet, "/recursos/?kind=operational", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	var listed []models.Resource
	s.Require().NoError(json.Unmarshal(env.Data, &listed))
	s.Require().Len(listed, 1)
	s.Equal("BIC-001", listed[0].Operational.AssetCode)

	w, _ = s.doJSON(http.MethodDelete, fmt.Sprintf("/recursos/%d", created.Resource.ID), nil, s.adminToken)
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.doJSON(http.MethodGet, fmt.Sprintf("/recursos/%d", created.Resource.ID), nil, "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *RouterTestSuite) TestFinanceRoutes() {
	w, _ := s.doJSON(http.MethodPost, "/finanzas/", map[string]interface{}{
		"type":        "income",
		"category":    "membership",
		"amount":      "40",
		"description": "Cuotas de enero",
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.doJSON(http.MethodPost, "/finanzas/", map[string]interface{}{
		"type":     "EXPENSE",
		"category": "MEMBERSHIP",
		"amount":   "10",
	}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)

	w, env := s.doJSON(http.MethodGet, "/finanzas/balance", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var report struct {
		MembershipIncome decimal.Decimal `json:"membership_income"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &report))
	s.True(report.MembershipIncome.Equal(decimal.NewFromInt(40)), report.MembershipIncome.String())
}

func (s *RouterTestSuite) TestDocumentRoutes() {
	pdf := []byte("%PDF-1.4\n1 0 obj<<>>endobj\ntrailer<<>>\n%%EOF\n")

	w, env := s.doMultipart(http.MethodPost, "/documentos/", map[string]string{
		"name":          "Estatuto",
		"entry_date":    "2024-03-01",
		"responsible":   "Secretaría",
		"document_type": "statute",
	}, map[string][]byte{"file": pdf}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Document models.Document `json:"document"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &created))

	w, _ = s.do(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/documentos/%d/descargar", created.Document.ID), nil), s.adminToken)
	s.Equal(http.StatusOK, w.Code)
	s.Equal(pdf, w.Body.Bytes())
	s.Contains(w.Header().Get("Content-Disposition"), "attachment")

	w, _ = s.doMultipart(http.MethodPost, "/documentos/", map[string]string{
		"name":          "Acta",
		"entry_date":    "2024-03-01",
		"responsible":   "undefined",
		"document_type": "minutes",
	}, map[string][]byte{"file": pdf}, s.adminToken)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *RouterTestSuite) TestSponsorAndDonationRoutes() {
	w, _ := s.doJSON(http.MethodPost, "/sponsors/apply", map[string]string{
		"company_name":         "Pedal SA",
		"contact_name":         "Pablo",
		"contact_email":        "pablo@pedal.test",
		"proposal_description": "Uniformes 2025",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Contains(s.tasks.types, queue.TaskSponsorApplied)

	w, env := s.doJSON(http.MethodGet, "/sponsors?status=new", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var apps []models.SponsorApplication
	s.Require().NoError(json.Unmarshal(env.Data, &apps))
	s.Len(apps, 1)

	w, env = s.doJSON(http.MethodPost, "/donaciones/intent", map[string]interface{}{
		"donor_name": "Dora",
		"amount":     "10",
	}, "")
	s.Equal(http.StatusServiceUnavailable, w.Code)
	s.Equal("SERVICE_UNAVAILABLE", env.Error.Code)
}

func (s *RouterTestSuite) TestLoginAcceptsPasswordForm() {
	form := url.Values{"username": {"admin@club.test"}, "password": {"Admin-123!"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, _ := s.do(req, "")
	s.Equal(http.StatusOK, w.Code)

	w, env := s.doJSON(http.MethodPost, "/auth/token", map[string]string{"email": "admin@club.test", "password": "wrong"}, "")
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("UNAUTHORIZED", env.Error.Code)
}

func (s *RouterTestSuite) TestAdminDashboardAndAuditLog() {
	s.createProduct("Medias", "MED-01", 2)

	w, env := s.doJSON(http.MethodGet, "/admin/dashboard", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(string(env.Data), `"commercial_items":1`)
	s.Contains(string(env.Data), `"low_stock_items":1`)

	w, env = s.doJSON(http.MethodGet, "/admin/audit-logs?resource_type=recursos", nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var logs []models.AuditLog
	s.Require().NoError(json.Unmarshal(env.Data, &logs))
	s.Require().Len(logs, 1)
	s.Equal("POST /recursos/", logs[0].Action)
	s.Require().NotNil(logs[0].UserID)
}

func (s *RouterTestSuite) TestPublicRoutesAttributeSignedInCaller() {
	member := s.memberToken()
	apply := map[string]string{
		"company_name":         "Pedal SA",
		"contact_name":         "Pablo",
		"contact_email":        "pablo@pedal.test",
		"proposal_description": "Uniformes 2025",
	}

	w, _ := s.doJSON(http.MethodPost, "/sponsors/apply", apply, member)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.doJSON(http.MethodPost, "/sponsors/apply", apply, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.doJSON(http.MethodPost, "/sponsors/apply", apply, "not-a-token")
	s.Require().Equal(http.StatusCreated, w.Code, "a bad token does not block public routes")

	var rider models.User
	s.Require().NoError(s.db.Where("email = ?", "rider@club.test").First(&rider).Error)

	var logs []models.AuditLog
	s.Require().NoError(s.db.Where("action = ?", "POST /sponsors/apply").Order("id ASC").Find(&logs).Error)
	s.Require().Len(logs, 3)
	s.Require().NotNil(logs[0].UserID)
	s.Equal(rider.ID, *logs[0].UserID)
	s.Nil(logs[1].UserID)
	s.Nil(logs[2].UserID)
}

func (s *RouterTestSuite) TestMembershipAndEventRoutes() {
	member := s.memberToken()
	var rider, admin models.User
	s.Require().NoError(s.db.Where("email = ?", "rider@club.test").First(&rider).Error)
	s.Require().NoError(s.db.Where("email = ?", "admin@club.test").First(&admin).Error)

	w, _ := s.doJSON(http.MethodPost, "/memberships/", map[string]string{"membership_type": "ciclista"}, member)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.doJSON(http.MethodPost, "/memberships/", map[string]string{"membership_type": "CICLISTA"}, member)
	s.Equal(http.StatusConflict, w.Code)

	w, env := s.doJSON(http.MethodGet, "/memberships/my-status", nil, member)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var membership models.Membership
	s.Require().NoError(json.Unmarshal(env.Data, &membership))
	s.Equal(models.MembershipStatusPending, membership.Status)

	w, _ = s.doJSON(http.MethodPut, fmt.Sprintf("/memberships/%d", admin.ID), map[string]string{"emergency_phone": "0990000000"}, member)
	s.Equal(http.StatusForbidden, w.Code, "members only edit their own membership")
	w, _ = s.doJSON(http.MethodGet, "/memberships/stats", nil, member)
	s.Equal(http.StatusForbidden, w.Code)

	w, env = s.doJSON(http.MethodPost, "/event/create", map[string]interface{}{
		"title":      "Rodada Cotopaxi",
		"event_date": time.Now().AddDate(0, 0, 7).UTC().Format(time.RFC3339),
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Event models.Event `json:"event"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &created))
	eventID := created.Event.ID

	register := map[string]uint{"event_id": eventID}
	w, env = s.doJSON(http.MethodPost, "/participants/register_event", register, member)
	s.Require().Equal(http.StatusForbidden, w.Code, "membership is still pending")
	s.Equal("FORBIDDEN", env.Error.Code)

	w, _ = s.doJSON(http.MethodPost, fmt.Sprintf("/memberships/%d/payments", rider.ID), map[string]string{
		"amount":         "25.00",
		"payment_method": "cash",
	}, s.adminToken)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w, _ = s.doJSON(http.MethodPost, "/participants/register_event", register, member)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.doJSON(http.MethodPost, "/participants/register_event", register, member)
	s.Equal(http.StatusConflict, w.Code)
	w, _ = s.doJSON(http.MethodPost, "/participants/register_event", register, s.adminToken)
	s.Equal(http.StatusForbidden, w.Code, "admins do not register")

	w, env = s.doJSON(http.MethodGet, "/participants/my_events", nil, member)
	s.Require().Equal(http.StatusOK, w.Code)
	var mine struct {
		EventIDs []uint `json:"event_ids"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &mine))
	s.Equal([]uint{eventID}, mine.EventIDs)

	path := fmt.Sprintf("/participants/event/%d", eventID)
	w, _ = s.doJSON(http.MethodGet, path, nil, member)
	s.Equal(http.StatusForbidden, w.Code)
	w, env = s.doJSON(http.MethodGet, path, nil, s.adminToken)
	s.Require().Equal(http.StatusOK, w.Code)
	var participants []struct {
		Email string `json:"email"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &participants))
	s.Require().Len(participants, 1)
	s.Equal("rider@club.test", participants[0].Email)

	w, env = s.doJSON(http.MethodGet, "/event/next", nil, "")
	s.Require().Equal(http.StatusOK, w.Code, "next event is public")
	var next models.Event
	s.Require().NoError(json.Unmarshal(env.Data, &next))
	s.Equal(eventID, next.ID)
	s.EqualValues(1, next.Participants)

	w, _ = s.doJSON(http.MethodGet, fmt.Sprintf("/event/%d", eventID), nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.doJSON(http.MethodDelete, fmt.Sprintf("/participants/unregister_event/%d", eventID), nil, member)
	s.Equal(http.StatusOK, w.Code)
	w, _ = s.doJSON(http.MethodDelete, fmt.Sprintf("/participants/unregister_event/%d", eventID), nil, member)
	s.Equal(http.StatusNotFound, w.Code)

	var income models.FinancialTransaction
	s.Require().NoError(s.db.Where("category = ?", models.CategoryMembership).First(&income).Error)
	s.Equal("admin@club.test", income.RecordedBy)
}

func TestInitializeSetsUpStaticUploads(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, i18n.Initialize("es"))

	dir := t.TempDir()
	cfg := &config.Config{
		JWT:     config.JWTConfig{SecretKey: "x", AccessTokenTTL: 1, RefreshTokenTTL: 1},
		Storage: config.StorageConfig{UploadDir: dir, PublicURL: "/uploads"},
	}
	r, err := Initialize(testutil.NewDB(t), cfg, Options{})
	require.NoError(t, err)

	found := false
	for _, route := range r.Routes() {
		if route.Path == "/uploads/*filepath" {
			found = true
		}
	}
	require.True(t, found)
}
