package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/testutil"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

// pngBytes is enough of a PNG for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	utils.SetJWTSecret("test-secret")
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:       "test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Storage: config.StorageConfig{
			UploadDir: t.TempDir(),
			PublicURL: "/uploads",
		},
		Payment: config.PaymentConfig{
			Currency:             "usd",
			StripePublishableKey: "pk_test_123",
		},
		Club: config.ClubConfig{
			Name:    "Club de Ciclismo",
			Address: "Quito, Ecuador",
		},
		Admin: config.AdminConfig{Email: "admin@club.test"},
	}
}

func newStorage(t *testing.T, cfg *config.Config) *StorageService {
	t.Helper()
	s, err := NewStorageService(cfg)
	require.NoError(t, err)
	return s
}

// recordingDispatcher keeps every enqueued task for inspection.
type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []queue.Task
	err   error
}

func (d *recordingDispatcher) Enqueue(_ context.Context, t queue.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, t)
	return nil
}

func (d *recordingDispatcher) types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.tasks))
	for _, t := range d.tasks {
		out = append(out, t.Type)
	}
	return out
}

func (d *recordingDispatcher) last() queue.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tasks[len(d.tasks)-1]
}

type fakeInvoices struct {
	url   string
	err   error
	calls int
}

func (f *fakeInvoices) Generate(order *models.Order) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

var errGateway = errors.New("gateway down")

type fakeGateway struct {
	mu      sync.Mutex
	intents map[string]*PaymentIntent
	next    int
	fail    bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: make(map[string]*PaymentIntent)}
}

func (g *fakeGateway) CreateIntent(_ context.Context, amountCents int64, currency string, _ map[string]string) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return nil, errGateway
	}
	g.next++
	id := fmt.Sprintf("pi_%d", g.next)
	pi := &PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       IntentRequiresPaymentMethod,
		Amount:       amountCents,
		Currency:     currency,
	}
	g.intents[id] = pi
	return pi, nil
}

func (g *fakeGateway) GetIntent(_ context.Context, id string) (*PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	pi, ok := g.intents[id]
	if !ok {
		return nil, errGateway
	}
	out := *pi
	return &out, nil
}

func (g *fakeGateway) setStatus(id, status, lastError string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[id].Status = status
	g.intents[id].LastError = lastError
}

// fileHeader builds a parsed multipart file the way gin hands it to handlers.
func fileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["file"][0]
}

func ptr[T any](v T) *T { return &v }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedProduct inserts a commercial item directly.
func seedProduct(t *testing.T, db *gorm.DB, name string, price string, stock int) *models.Resource {
	t.Helper()
	r := &models.Resource{Name: name, Kind: models.ResourceKindCommercial, Category: "apparel"}
	require.NoError(t, db.Omit("Commercial", "Operational", "Images").Create(r).Error)
	require.NoError(t, db.Create(&models.CommercialItem{
		ResourceID: r.ID,
		SalePrice:  money(price),
		Stock:      stock,
	}).Error)
	return r
}

func stockOf(t *testing.T, db *gorm.DB, resourceID uint) int {
	t.Helper()
	var item models.CommercialItem
	require.NoError(t, db.First(&item, "resource_id = ?", resourceID).Error)
	return item.Stock
}

func seedUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{Email: email, Role: role, FirstName: "Test", LastName: "User"}
	require.NoError(t, u.SetPassword("Secret-123"))
	require.NoError(t, db.Create(u).Error)
	return u
}

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}
