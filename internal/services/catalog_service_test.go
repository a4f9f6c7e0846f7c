package services

import (
	"mime/multipart"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

func newCatalog(t *testing.T) (*CatalogService, *StorageService) {
	t.Helper()
	db := newTestDB(t)
	storage := newStorage(t, testConfig(t))
	return NewCatalogService(db, storage), storage
}

func commercialRequest(name, sku string) *ResourceRequest {
	return &ResourceRequest{
		Kind:         ptr(models.ResourceKindCommercial),
		Name:         ptr(name),
		Category:     ptr("apparel"),
		SalePrice:    ptr(money("25.00")),
		InitialStock: ptr(10),
		SKU:          ptr(sku),
	}
}

func operationalRequest(name, code string) *ResourceRequest {
	return &ResourceRequest{
		Kind:      ptr(models.ResourceKindOperational),
		Name:      ptr(name),
		AssetCode: ptr(code),
		Location:  ptr("Bodega"),
	}
}

func fileExists(t *testing.T, storage *StorageService, url string) bool {
	t.Helper()
	path, ok := storage.LocalPath(url)
	require.True(t, ok, "url %s is not local", url)
	_, err := os.Stat(path)
	return err == nil
}

func TestCatalogCreateCommercial(t *testing.T) {
	catalog, storage := newCatalog(t)

	req := commercialRequest("Jersey", "JER-01")
	req.AcquiredOn = ptr("2024-03-01")
	req.AvailableSizes = ptr("S, M ,L")
	res, err := catalog.Create(req, ResourceMedia{
		Image:   fileHeader(t, "front.png", pngBytes),
		Gallery: []*multipart.FileHeader{fileHeader(t, "back.png", pngBytes)},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ResourceKindCommercial, res.Kind)
	require.NotNil(t, res.Commercial)
	assert.Nil(t, res.Operational)
	assert.Equal(t, 10, res.Commercial.Stock)
	assert.True(t, money("25.00").Equal(res.Commercial.SalePrice))
	assert.Equal(t, "JER-01", *res.Commercial.SKU)
	assert.Equal(t, "S,M,L", res.AvailableSizes)
	require.NotNil(t, res.AcquiredOn)
	assert.Equal(t, "2024-03-01", res.AcquiredOn.Format("2006-01-02"))

	assert.True(t, fileExists(t, storage, res.ImageURL))
	require.Len(t, res.Images, 1)
	assert.True(t, fileExists(t, storage, res.Images[0].ImageURL))
}

func TestCatalogCreateOperationalWithResponsible(t *testing.T) {
	catalog, _ := newCatalog(t)
	user := seedUser(t, catalog.db, "coach@club.test", models.UserRoleNormal)

	req := operationalRequest("Carpa", "AS-001")
	req.ResponsibleUserID = &user.ID
	res, err := catalog.Create(req, ResourceMedia{})
	require.NoError(t, err)

	require.NotNil(t, res.Operational)
	assert.Nil(t, res.Commercial)
	assert.Equal(t, models.AssetStatusAvailable, res.Operational.Status)
	assert.Equal(t, "Bodega", res.Operational.Location)
	assert.Equal(t, "Test User", res.Operational.ResponsibleName)

	missing := operationalRequest("Bomba", "AS-002")
	missing.ResponsibleUserID = ptr(uint(999))
	_, err = catalog.Create(missing, ResourceMedia{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCatalogCreateValidation(t *testing.T) {
	catalog, _ := newCatalog(t)

	cases := map[string]*ResourceRequest{
		"missing kind": {Name: ptr("Jersey")},
		"missing name": {Kind: ptr(models.ResourceKindCommercial), SalePrice: ptr(money("1")), InitialStock: ptr(1)},
		"missing price": {
			Kind: ptr(models.ResourceKindCommercial), Name: ptr("Jersey"), InitialStock: ptr(1),
		},
		"missing stock": {
			Kind: ptr(models.ResourceKindCommercial), Name: ptr("Jersey"), SalePrice: ptr(money("1")),
		},
		"negative stock": {
			Kind: ptr(models.ResourceKindCommercial), Name: ptr("Jersey"), SalePrice: ptr(money("1")), InitialStock: ptr(-1),
		},
		"missing asset code": {Kind: ptr(models.ResourceKindOperational), Name: ptr("Carpa")},
		"mixed attributes": {
			Kind: ptr(models.ResourceKindOperational), Name: ptr("Carpa"), AssetCode: ptr("AS-1"), SalePrice: ptr(money("1")),
		},
		"bad date": {
			Kind: ptr(models.ResourceKindOperational), Name: ptr("Carpa"), AssetCode: ptr("AS-1"), AcquiredOn: ptr("01/03/2024"),
		},
		"unknown kind": {Kind: ptr(models.ResourceKind("SERVICE")), Name: ptr("Clase")},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.Create(req, ResourceMedia{})
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCatalogDuplicateIdentifiersConflict(t *testing.T) {
	catalog, _ := newCatalog(t)

	_, err := catalog.Create(commercialRequest("Jersey", "JER-01"), ResourceMedia{})
	require.NoError(t, err)
	_, err = catalog.Create(commercialRequest("Jersey 2", "JER-01"), ResourceMedia{})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = catalog.Create(operationalRequest("Carpa", "AS-1"), ResourceMedia{})
	require.NoError(t, err)
	_, err = catalog.Create(operationalRequest("Carpa 2", "AS-1"), ResourceMedia{})
	assert.ErrorIs(t, err, ErrConflict)

	// The failed creates leave no orphan base rows.
	_, total, err := catalog.List(ResourceListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// Blank SKUs are stored as NULL and never collide.
	_, err = catalog.Create(commercialRequest("Gorra", " "), ResourceMedia{})
	require.NoError(t, err)
	_, err = catalog.Create(commercialRequest("Medias", ""), ResourceMedia{})
	require.NoError(t, err)
}

func TestCatalogUpdate(t *testing.T) {
	catalog, storage := newCatalog(t)

	res, err := catalog.Create(commercialRequest("Jersey", "JER-01"), ResourceMedia{Image: fileHeader(t, "a.png", pngBytes)})
	require.NoError(t, err)
	oldImage := res.ImageURL

	updated, err := catalog.Update(res.ID, &ResourceRequest{
		Name:  ptr("Jersey Pro"),
		Stock: ptr(4),
	}, ResourceMedia{Image: fileHeader(t, "b.png", pngBytes)})
	require.NoError(t, err)

	assert.Equal(t, "Jersey Pro", updated.Name)
	assert.Equal(t, 4, updated.Commercial.Stock)
	assert.Equal(t, "apparel", updated.Category, "untouched fields survive")
	assert.True(t, money("25.00").Equal(updated.Commercial.SalePrice))
	assert.NotEqual(t, oldImage, updated.ImageURL)
	assert.False(t, fileExists(t, storage, oldImage))
	assert.True(t, fileExists(t, storage, updated.ImageURL))

	_, err = catalog.Update(res.ID, &ResourceRequest{Kind: ptr(models.ResourceKindOperational)}, ResourceMedia{})
	assert.ErrorIs(t, err, ErrValidation, "kind cannot change")

	_, err = catalog.Update(res.ID, &ResourceRequest{AssetCode: ptr("AS-9")}, ResourceMedia{})
	assert.ErrorIs(t, err, ErrValidation, "operational fields on a commercial item")

	_, err = catalog.Update(999, &ResourceRequest{Name: ptr("x")}, ResourceMedia{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogUpdateClearsResponsible(t *testing.T) {
	catalog, _ := newCatalog(t)
	user := seedUser(t, catalog.db, "coach@club.test", models.UserRoleNormal)

	req := operationalRequest("Carpa", "AS-001")
	req.ResponsibleUserID = &user.ID
	res, err := catalog.Create(req, ResourceMedia{})
	require.NoError(t, err)
	require.NotNil(t, res.Operational.ResponsibleUserID)

	updated, err := catalog.Update(res.ID, &ResourceRequest{Location: ptr("Pista")}, ResourceMedia{})
	require.NoError(t, err)
	require.NotNil(t, updated.Operational.ResponsibleUserID, "omitted field keeps the assignment")
	assert.Equal(t, user.ID, *updated.Operational.ResponsibleUserID)

	updated, err = catalog.Update(res.ID, &ResourceRequest{ResponsibleUserID: ptr(uint(0))}, ResourceMedia{})
	require.NoError(t, err)
	assert.Nil(t, updated.Operational.ResponsibleUserID)
	assert.Empty(t, updated.Operational.ResponsibleName)
	assert.Equal(t, "Pista", updated.Operational.Location)

	reloaded, err := catalog.Get(res.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.Operational.ResponsibleUserID)
}

func TestCatalogVariantUpdateTouchesResource(t *testing.T) {
	catalog, _ := newCatalog(t)

	res, err := catalog.Create(commercialRequest("Jersey", "JER-01"), ResourceMedia{})
	require.NoError(t, err)

	past := time.Now().UTC().Add(-24 * time.Hour)
	require.NoError(t, catalog.db.Model(&models.Resource{}).Where("id = ?", res.ID).
		UpdateColumn("updated_at", past).Error)

	updated, err := catalog.Update(res.ID, &ResourceRequest{SalePrice: ptr(money("30.00"))}, ResourceMedia{})
	require.NoError(t, err)
	assert.True(t, money("30.00").Equal(updated.Commercial.SalePrice))
	assert.True(t, updated.UpdatedAt.After(past.Add(time.Hour)), "updated_at was %s", updated.UpdatedAt)
}

func TestCatalogUpdateSKUConflict(t *testing.T) {
	catalog, _ := newCatalog(t)

	_, err := catalog.Create(commercialRequest("Jersey", "JER-01"), ResourceMedia{})
	require.NoError(t, err)
	other, err := catalog.Create(commercialRequest("Gorra", "GOR-01"), ResourceMedia{})
	require.NoError(t, err)

	_, err = catalog.Update(other.ID, &ResourceRequest{SKU: ptr("JER-01")}, ResourceMedia{})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCatalogDeleteRemovesEverything(t *testing.T) {
	catalog, storage := newCatalog(t)

	res, err := catalog.Create(commercialRequest("Jersey", "JER-01"), ResourceMedia{
		Image:   fileHeader(t, "a.png", pngBytes),
		Gallery: []*multipart.FileHeader{fileHeader(t, "b.png", pngBytes)},
	})
	require.NoError(t, err)

	require.NoError(t, catalog.Delete(res.ID))

	_, err = catalog.Get(res.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, fileExists(t, storage, res.ImageURL))
	assert.False(t, fileExists(t, storage, res.Images[0].ImageURL))

	var variants int64
	catalog.db.Model(&models.CommercialItem{}).Count(&variants)
	assert.Zero(t, variants)

	assert.ErrorIs(t, catalog.Delete(res.ID), ErrNotFound)
}

func TestCatalogListAndPublic(t *testing.T) {
	catalog, _ := newCatalog(t)

	jersey, err := catalog.Create(commercialRequest("Jersey", "JER-01"), ResourceMedia{})
	require.NoError(t, err)
	soldOut := commercialRequest("Gorra", "GOR-01")
	soldOut.InitialStock = ptr(0)
	_, err = catalog.Create(soldOut, ResourceMedia{})
	require.NoError(t, err)
	_, err = catalog.Create(operationalRequest("Carpa", "AS-1"), ResourceMedia{})
	require.NoError(t, err)

	all, total, err := catalog.List(ResourceListParams{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, "Jersey", all[0].Name)

	ops, total, err := catalog.List(ResourceListParams{Kind: models.ResourceKindOperational})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Carpa", ops[0].Name)

	page, total, err := catalog.List(ResourceListParams{PaginationParams: utils.PaginationParams{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "Gorra", page[0].Name)

	public, err := catalog.ListPublic()
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, jersey.ID, public[0].ID)
	require.NotNil(t, public[0].Commercial)
}

func TestCatalogPurchaseOne(t *testing.T) {
	catalog, _ := newCatalog(t)

	req := commercialRequest("Jersey", "JER-01")
	req.InitialStock = ptr(1)
	res, err := catalog.Create(req, ResourceMedia{})
	require.NoError(t, err)

	bought, err := catalog.PurchaseOne(res.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, bought.Commercial.Stock)

	_, err = catalog.PurchaseOne(res.ID)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	asset, err := catalog.Create(operationalRequest("Carpa", "AS-1"), ResourceMedia{})
	require.NoError(t, err)
	_, err = catalog.PurchaseOne(asset.ID)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = catalog.PurchaseOne(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogGallery(t *testing.T) {
	catalog, storage := newCatalog(t)

	res, err := catalog.Create(commercialRequest("Jersey", "JER-01"), ResourceMedia{})
	require.NoError(t, err)

	images, err := catalog.AddImages(res.ID, []*multipart.FileHeader{
		fileHeader(t, "a.png", pngBytes),
		fileHeader(t, "b.png", pngBytes),
	})
	require.NoError(t, err)
	require.Len(t, images, 2)

	_, err = catalog.AddImages(res.ID, []*multipart.FileHeader{fileHeader(t, "a.txt", []byte("hello"))})
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, catalog.DeleteImage(res.ID, images[0].ID))
	assert.False(t, fileExists(t, storage, images[0].ImageURL))
	assert.ErrorIs(t, catalog.DeleteImage(res.ID, images[0].ID), ErrNotFound)

	reloaded, err := catalog.Get(res.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Images, 1)
	assert.Equal(t, images[1].ID, reloaded.Images[0].ID)
}
