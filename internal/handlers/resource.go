// internal/handlers/resource.go
package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type ResourceHandler struct {
	catalogService *services.CatalogService
}

func NewResourceHandler(catalogService *services.CatalogService) *ResourceHandler {
	return &ResourceHandler{catalogService: catalogService}
}

// bindResource reads either a JSON body or a multipart form whose "data"
// field holds the JSON attributes next to "image" and "gallery[]" files.
func bindResource(c *gin.Context) (*services.ResourceRequest, services.ResourceMedia, error) {
	var (
		req   services.ResourceRequest
		media services.ResourceMedia
	)

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		err := c.ShouldBindJSON(&req)
		return &req, media, err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, media, err
	}
	if data := c.PostForm("data"); data != "" {
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			return nil, media, err
		}
	}
	if files := form.File["image"]; len(files) > 0 {
		media.Image = files[0]
	}
	media.Gallery = galleryFiles(form)
	return &req, media, nil
}

func galleryFiles(form *multipart.Form) []*multipart.FileHeader {
	var files []*multipart.FileHeader
	for _, field := range []string{"gallery[]", "gallery", "files"} {
		files = append(files, form.File[field]...)
	}
	return files
}

// GET /recursos/
func (h *ResourceHandler) ListResources(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	resources, total, err := h.catalogService.List(services.ResourceListParams{
		PaginationParams: params,
		Kind:             models.ResourceKind(strings.ToUpper(c.Query("kind"))),
		Category:         c.Query("category"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(resources, total, params))
}

// GET /recursos/publicos
func (h *ResourceHandler) ListPublic(c *gin.Context) {
	resources, err := h.catalogService.ListPublic()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, resources)
}

// GET /recursos/:id
func (h *ResourceHandler) GetResource(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resource, err := h.catalogService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, resource)
}

// POST /recursos/
func (h *ResourceHandler) CreateResource(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	req, media, err := bindResource(c)
	if err != nil {
		bindError(c, err)
		return
	}

	resource, err := h.catalogService.Create(req, media)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyResourceCreated),
		"resource": resource,
	})
}

// PUT /recursos/:id
func (h *ResourceHandler) UpdateResource(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	req, media, err := bindResource(c)
	if err != nil {
		bindError(c, err)
		return
	}

	resource, err := h.catalogService.Update(id, req, media)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyResourceUpdated),
		"resource": resource,
	})
}

// DELETE /recursos/:id
func (h *ResourceHandler) DeleteResource(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyResourceDeleted)})
}

// POST /recursos/:id/comprar
func (h *ResourceHandler) PurchaseOne(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	resource, err := h.catalogService.PurchaseOne(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyResourcePurchased),
		"resource": resource,
	})
}

// POST /recursos/:id/imagenes
func (h *ResourceHandler) AddImages(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileRequired), nil)
		return
	}
	files := galleryFiles(form)
	if len(files) == 0 {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileRequired), nil)
		return
	}

	images, err := h.catalogService.AddImages(id, files)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyImagesAdded),
		"images":  images,
	})
}

// DELETE /recursos/:id/imagenes/:image_id
func (h *ResourceHandler) DeleteImage(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	imageID, ok := idParam(c, "image_id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteImage(id, imageID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyImageDeleted)})
}
