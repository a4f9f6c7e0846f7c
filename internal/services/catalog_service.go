// internal/services/catalog_service.go
package services

import (
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
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type CatalogService struct {
	db             *gorm.DB
	storageService *StorageService
}

// ResourceRequest carries both create and update attributes. On update only
// non-nil fields change. Commercial and operational fields are exclusive.
// A responsible_user_id of 0 clears the assignment.
type ResourceRequest struct {
	Kind            *models.ResourceKind `json:"kind,omitempty" validate:"omitempty,oneof=COMMERCIAL OPERATIONAL"`
	Name            *string              `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description     *string              `json:"description,omitempty"`
	Category        *string              `json:"category,omitempty" validate:"omitempty,max=100"`
	AcquiredOn      *string              `json:"acquired_on,omitempty" validate:"omitempty,datetime=2006-01-02"`
	AcquisitionCost *decimal.Decimal     `json:"acquisition_cost,omitempty"`
	Notes           *string              `json:"notes,omitempty"`
	AvailableSizes  *string              `json:"available_sizes,omitempty" validate:"omitempty,max=255"`

	// Commercial
	SalePrice    *decimal.Decimal `json:"sale_price,omitempty"`
	InitialStock *int             `json:"initial_stock,omitempty"`
	Stock        *int             `json:"stock,omitempty"`
	SKU          *string          `json:"sku,omitempty" validate:"omitempty,max=100"`

	// Operational
	AssetCode         *string             `json:"asset_code,omitempty" validate:"omitempty,max=100"`
	Status            *models.AssetStatus `json:"status,omitempty" validate:"omitempty,oneof=AVAILABLE ASSIGNED IN_MAINTENANCE DECOMMISSIONED"`
	Location          *string             `json:"location,omitempty" validate:"omitempty,max=255"`
	ResponsibleUserID *uint               `json:"responsible_user_id,omitempty"`
}

// ResourceMedia holds the files sent alongside a create or update.
type ResourceMedia struct {
	Image   *multipart.FileHeader
	Gallery []*multipart.FileHeader
}

type ResourceListParams struct {
	utils.PaginationParams
	Kind     models.ResourceKind
	Category string
}

func NewCatalogService(db *gorm.DB, storageService *StorageService) *CatalogService {
	return &CatalogService{
		db:             db,
		storageService: storageService,
	}
}

func (r *ResourceRequest) hasCommercialFields() bool {
	return r.SalePrice != nil || r.InitialStock != nil || r.Stock != nil || r.SKU != nil
}

func (r *ResourceRequest) hasOperationalFields() bool {
	return r.AssetCode != nil || r.Status != nil || r.Location != nil || r.ResponsibleUserID != nil
}

// checkAttributes enforces the rules shared by create and update for a
// resource of the given kind.
func (r *ResourceRequest) checkAttributes(kind models.ResourceKind) error {
	if err := utils.ValidateStruct(r); err != nil {
		return invalid(err)
	}

	switch kind {
	case models.ResourceKindCommercial:
		if r.hasOperationalFields() {
			return newError(ErrValidation, "operational fields are not allowed on a commercial resource")
		}
	case models.ResourceKindOperational:
		if r.hasCommercialFields() {
			return newError(ErrValidation, "commercial fields are not allowed on an operational resource")
		}
	}

	if r.AcquisitionCost != nil && r.AcquisitionCost.IsNegative() {
		return newError(ErrValidation, "acquisition_cost must be non-negative")
	}
	if r.SalePrice != nil && r.SalePrice.IsNegative() {
		return newError(ErrValidation, "sale_price must be non-negative")
	}
	if r.InitialStock != nil && *r.InitialStock < 0 {
		return newError(ErrValidation, "initial_stock must be non-negative")
	}
	if r.Stock != nil && *r.Stock < 0 {
		return newError(ErrValidation, "stock must be non-negative")
	}
	return nil
}

func (s *CatalogService) Create(req *ResourceRequest, media ResourceMedia) (*models.Resource, error) {
	if req.Kind == nil {
		return nil, newError(ErrValidation, "kind is required")
	}
	kind := *req.Kind
	if err := req.checkAttributes(kind); err != nil {
		return nil, err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, newError(ErrValidation, "name is required")
	}
	switch kind {
	case models.ResourceKindCommercial:
		if req.SalePrice == nil {
			return nil, newError(ErrValidation, "sale_price is required for commercial resources")
		}
		if req.InitialStock == nil && req.Stock == nil {
			return nil, newError(ErrValidation, "initial_stock is required for commercial resources")
		}
	case models.ResourceKindOperational:
		if req.AssetCode == nil || strings.TrimSpace(*req.AssetCode) == "" {
			return nil, newError(ErrValidation, "asset_code is required for operational resources")
		}
	}

	resource := models.Resource{
		Name: strings.TrimSpace(*req.Name),
		Kind: kind,
	}
	if err := applyBaseFields(&resource, req); err != nil {
		return nil, err
	}

	uploaded, err := s.uploadMedia(media)
	if err != nil {
		return nil, err
	}
	if uploaded.image != "" {
		resource.ImageURL = uploaded.image
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := checkResponsible(tx, req.ResponsibleUserID); err != nil {
			return err
		}

		// Variant rows are created explicitly so uniqueness violations surface.
		if err := tx.Omit(clause.Associations).Create(&resource).Error; err != nil {
			return storeError(err, "resource")
		}

		switch kind {
		case models.ResourceKindCommercial:
			stock := req.InitialStock
			if stock == nil {
				stock = req.Stock
			}
			item := models.CommercialItem{
				ResourceID: resource.ID,
				SalePrice:  *req.SalePrice,
				Stock:      *stock,
				SKU:        normalizeOptional(req.SKU),
			}
			if err := tx.Create(&item).Error; err != nil {
				return storeError(err, "resource with this SKU")
			}
		case models.ResourceKindOperational:
			asset := models.OperationalAsset{
				ResourceID:        resource.ID,
				AssetCode:         strings.TrimSpace(*req.AssetCode),
				Status:            models.AssetStatusAvailable,
				ResponsibleUserID: responsibleValue(req.ResponsibleUserID),
			}
			if req.Status != nil {
				asset.Status = *req.Status
			}
			if req.Location != nil {
				asset.Location = *req.Location
			}
			if err := tx.Create(&asset).Error; err != nil {
				return storeError(err, "resource with this asset code")
			}
		}

		return createGallery(tx, resource.ID, uploaded.gallery)
	})
	if err != nil {
		s.removeFiles(uploaded.all()...)
		return nil, err
	}

	return s.Get(resource.ID)
}

func (s *CatalogService) Get(id uint) (*models.Resource, error) {
	var resource models.Resource
	if err := s.preloaded(s.db).First(&resource, id).Error; err != nil {
		return nil, storeError(err, "resource")
	}

	s.resolveResponsibles([]*models.Resource{&resource})
	return &resource, nil
}

func (s *CatalogService) Update(id uint, req *ResourceRequest, media ResourceMedia) (*models.Resource, error) {
	var resource models.Resource
	if err := s.db.First(&resource, id).Error; err != nil {
		return nil, storeError(err, "resource")
	}

	if req.Kind != nil && *req.Kind != resource.Kind {
		return nil, newError(ErrValidation, "resource kind cannot be changed from %s to %s", resource.Kind, *req.Kind)
	}
	if req.InitialStock != nil && req.Stock == nil {
		req.Stock = req.InitialStock
	}
	if err := req.checkAttributes(resource.Kind); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, newError(ErrValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.AcquiredOn != nil {
		acquired, err := parseDate(*req.AcquiredOn)
		if err != nil {
			return nil, err
		}
		updates["acquired_on"] = acquired
	}
	if req.AcquisitionCost != nil {
		updates["acquisition_cost"] = *req.AcquisitionCost
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.AvailableSizes != nil {
		updates["available_sizes"] = models.JoinSizes(strings.Split(*req.AvailableSizes, ","))
	}

	variant := make(map[string]interface{})
	switch resource.Kind {
	case models.ResourceKindCommercial:
		if req.SalePrice != nil {
			variant["sale_price"] = *req.SalePrice
		}
		if req.Stock != nil {
			variant["stock"] = *req.Stock
		}
		if req.SKU != nil {
			variant["sku"] = normalizeOptional(req.SKU)
		}
	case models.ResourceKindOperational:
		if req.AssetCode != nil {
			code := strings.TrimSpace(*req.AssetCode)
			if code == "" {
				return nil, newError(ErrValidation, "asset_code cannot be empty")
			}
			variant["asset_code"] = code
		}
		if req.Status != nil {
			variant["status"] = *req.Status
		}
		if req.Location != nil {
			variant["location"] = *req.Location
		}
		if req.ResponsibleUserID != nil {
			variant["responsible_user_id"] = responsibleValue(req.ResponsibleUserID)
		}
	}

	// Variant-only edits still touch the parent row.
	if len(variant) > 0 && len(updates) == 0 {
		updates["updated_at"] = time.Now().UTC()
	}

	uploaded, err := s.uploadMedia(media)
	if err != nil {
		return nil, err
	}
	oldImage := resource.ImageURL
	if uploaded.image != "" {
		updates["image_url"] = uploaded.image
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := checkResponsible(tx, req.ResponsibleUserID); err != nil {
			return err
		}

		if len(updates) > 0 {
			if err := tx.Model(&resource).Updates(updates).Error; err != nil {
				return storeError(err, "resource")
			}
		}

		if len(variant) > 0 {
			var model interface{} = &models.CommercialItem{}
			what := "resource with this SKU"
			if resource.Kind == models.ResourceKindOperational {
				model = &models.OperationalAsset{}
				what = "resource with this asset code"
			}
			if err := tx.Model(model).Where("resource_id = ?", id).Updates(variant).Error; err != nil {
				return storeError(err, what)
			}
		}

		return createGallery(tx, id, uploaded.gallery)
	})
	if err != nil {
		s.removeFiles(uploaded.all()...)
		return nil, err
	}

	if uploaded.image != "" && oldImage != "" {
		s.removeFiles(oldImage)
	}

	return s.Get(id)
}

func (s *CatalogService) Delete(id uint) error {
	var resource models.Resource
	if err := s.db.Preload("Images").First(&resource, id).Error; err != nil {
		return storeError(err, "resource")
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", id).Delete(&models.ResourceImage{}).Error; err != nil {
			return fmt.Errorf("failed to delete gallery: %w", err)
		}
		if err := tx.Where("resource_id = ?", id).Delete(&models.CommercialItem{}).Error; err != nil {
			return fmt.Errorf("failed to delete commercial item: %w", err)
		}
		if err := tx.Where("resource_id = ?", id).Delete(&models.OperationalAsset{}).Error; err != nil {
			return fmt.Errorf("failed to delete operational asset: %w", err)
		}
		if err := tx.Delete(&models.Resource{}, id).Error; err != nil {
			return fmt.Errorf("failed to delete resource: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	files := []string{resource.ImageURL}
	for _, img := range resource.Images {
		files = append(files, img.ImageURL)
	}
	s.removeFiles(files...)

	return nil
}

func (s *CatalogService) List(params ResourceListParams) ([]models.Resource, int64, error) {
	query := s.db.Model(&models.Resource{})
	if params.Kind != "" {
		query = query.Where("kind = ?", params.Kind)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count resources: %w", err)
	}

	var resources []models.Resource
	query = utils.ApplyPagination(s.preloaded(query).Order("id ASC"), params.PaginationParams)
	if err := query.Find(&resources).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list resources: %w", err)
	}

	ptrs := make([]*models.Resource, len(resources))
	for i := range resources {
		ptrs[i] = &resources[i]
	}
	s.resolveResponsibles(ptrs)

	return resources, total, nil
}

// ListPublic returns the commercial items currently in stock.
func (s *CatalogService) ListPublic() ([]models.Resource, error) {
	var resources []models.Resource
	err := s.db.
		Select("resources.*").
		Joins("JOIN commercial_items ON commercial_items.resource_id = resources.id").
		Where("resources.kind = ? AND commercial_items.stock > 0", models.ResourceKindCommercial).
		Preload("Commercial").
		Preload("Images").
		Order("resources.id ASC").
		Find(&resources).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list public resources: %w", err)
	}
	return resources, nil
}

// PurchaseOne takes one unit out of stock.
func (s *CatalogService) PurchaseOne(id uint) (*models.Resource, error) {
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var resource models.Resource
		if err := tx.Preload("Commercial").First(&resource, id).Error; err != nil {
			return storeError(err, "resource")
		}
		if !resource.IsCommercial() || resource.Commercial == nil {
			return newError(ErrValidation, "resource %d is not a commercial item", id)
		}
		return decrementStock(tx, &resource, 1)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(id)
}

func (s *CatalogService) AddImages(id uint, files []*multipart.FileHeader) ([]models.ResourceImage, error) {
	if len(files) == 0 {
		return nil, newError(ErrValidation, "at least one image is required")
	}

	var resource models.Resource
	if err := s.db.First(&resource, id).Error; err != nil {
		return nil, storeError(err, "resource")
	}

	uploaded, err := s.uploadMedia(ResourceMedia{Gallery: files})
	if err != nil {
		return nil, err
	}

	if err := createGallery(s.db, id, uploaded.gallery); err != nil {
		s.removeFiles(uploaded.gallery...)
		return nil, err
	}

	var images []models.ResourceImage
	if err := s.db.Where("resource_id = ?", id).Order("id ASC").Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to load gallery: %w", err)
	}
	return images, nil
}

func (s *CatalogService) DeleteImage(id, imageID uint) error {
	var image models.ResourceImage
	if err := s.db.Where("id = ? AND resource_id = ?", imageID, id).First(&image).Error; err != nil {
		return storeError(err, "image")
	}

	if err := s.db.Delete(&image).Error; err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	s.removeFiles(image.ImageURL)
	return nil
}

func (s *CatalogService) preloaded(db *gorm.DB) *gorm.DB {
	return db.Preload("Commercial").Preload("Operational").Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

// resolveResponsibles fills the display name of each asset's responsible user.
func (s *CatalogService) resolveResponsibles(resources []*models.Resource) {
	ids := make([]uint, 0)
	for _, r := range resources {
		if r.Operational != nil && r.Operational.ResponsibleUserID != nil {
			ids = append(ids, *r.Operational.ResponsibleUserID)
		}
	}
	if len(ids) == 0 {
		return
	}

	var users []models.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		logrus.WithError(err).Warn("Failed to resolve responsible users")
		return
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		name := u.FullName()
		if name == "" {
			name = u.Email
		}
		names[u.ID] = name
	}

	for _, r := range resources {
		if r.Operational != nil && r.Operational.ResponsibleUserID != nil {
			r.Operational.ResponsibleName = names[*r.Operational.ResponsibleUserID]
		}
	}
}

type uploadedMedia struct {
	image   string
	gallery []string
}

func (m uploadedMedia) all() []string {
	if m.image == "" {
		return m.gallery
	}
	return append([]string{m.image}, m.gallery...)
}

func (s *CatalogService) uploadMedia(media ResourceMedia) (uploadedMedia, error) {
	var out uploadedMedia
	opts := s.storageService.GetDefaultUploadOptions(FolderProducts)

	if media.Image != nil {
		res, err := s.storageService.UploadHeader(media.Image, opts)
		if err != nil {
			return out, err
		}
		out.image = res.URL
	}

	for _, fh := range media.Gallery {
		res, err := s.storageService.UploadHeader(fh, opts)
		if err != nil {
			s.removeFiles(out.all()...)
			return uploadedMedia{}, err
		}
		out.gallery = append(out.gallery, res.URL)
	}

	return out, nil
}

func (s *CatalogService) removeFiles(urls ...string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := s.storageService.DeleteFile(url); err != nil {
			logrus.WithError(err).WithField("url", url).Warn("Failed to remove stored file")
		}
	}
}

func createGallery(tx *gorm.DB, resourceID uint, urls []string) error {
	for _, url := range urls {
		img := models.ResourceImage{ResourceID: resourceID, ImageURL: url}
		if err := tx.Create(&img).Error; err != nil {
			return fmt.Errorf("failed to save gallery image: %w", err)
		}
	}
	return nil
}

func checkResponsible(tx *gorm.DB, userID *uint) error {
	if responsibleValue(userID) == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", *userID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check responsible user: %w", err)
	}
	if count == 0 {
		return newError(ErrValidation, "responsible user %d does not exist", *userID)
	}
	return nil
}

// responsibleValue maps the requested responsible user to the stored column,
// nil when unassigned.
func responsibleValue(userID *uint) *uint {
	if userID == nil || *userID == 0 {
		return nil
	}
	return userID
}

func applyBaseFields(resource *models.Resource, req *ResourceRequest) error {
	if req.Description != nil {
		resource.Description = *req.Description
	}
	if req.Category != nil {
		resource.Category = *req.Category
	}
	if req.AcquiredOn != nil {
		acquired, err := parseDate(*req.AcquiredOn)
		if err != nil {
			return err
		}
		resource.AcquiredOn = acquired
	}
	if req.AcquisitionCost != nil {
		resource.AcquisitionCost = *req.AcquisitionCost
	}
	if req.Notes != nil {
		resource.Notes = *req.Notes
	}
	if req.AvailableSizes != nil {
		resource.AvailableSizes = models.JoinSizes(strings.Split(*req.AvailableSizes, ","))
	}
	return nil
}

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, newError(ErrValidation, "invalid date %q, expected YYYY-MM-DD", value)
	}
	return &t, nil
}

func normalizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// decrementStock takes qty units from a commercial item with a guarded
// update; the row is only touched when enough stock remains.
func decrementStock(tx *gorm.DB, resource *models.Resource, qty int) error {
	result := tx.Model(&models.CommercialItem{}).
		Where("resource_id = ? AND stock >= ?", resource.ID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return fmt.Errorf("failed to update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var item models.CommercialItem
		available := 0
		if err := tx.First(&item, "resource_id = ?", resource.ID).Error; err == nil {
			available = item.Stock
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read stock: %w", err)
		}
		return &StockError{ResourceID: resource.ID, Item: resource.Name, Available: available, Requested: qty}
	}
	return nil
}

func incrementStock(tx *gorm.DB, resourceID uint, qty int) (bool, error) {
	result := tx.Model(&models.CommercialItem{}).
		Where("resource_id = ?", resourceID).
		Update("stock", gorm.Expr("stock + ?", qty))
	if result.Error != nil {
		return false, fmt.Errorf("failed to restore stock: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
