// internal/handlers/document.go
package handlers

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/middleware"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func documentForm(c *gin.Context) (*services.DocumentRequest, *multipart.FileHeader, error) {
	var req services.DocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		return nil, nil, err
	}
	req.DocumentType = models.DocumentType(strings.ToLower(string(req.DocumentType)))

	file, err := c.FormFile("file")
	if err != nil {
		// file is optional on update
		return &req, nil, nil
	}
	return &req, file, nil
}

// POST /documentos/
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	req, file, err := documentForm(c)
	if err != nil {
		bindError(c, err)
		return
	}
	if file == nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileRequired), nil)
		return
	}

	var createdBy *uint
	if userID, ok := middleware.CurrentUserID(c); ok {
		createdBy = &userID
	}

	doc, err := h.documentService.Create(req, file, createdBy)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyDocumentCreated),
		"document": doc,
	})
}

// GET /documentos/
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	docs, total, err := h.documentService.List(services.DocumentListParams{
		PaginationParams: params,
		DocumentType:     models.DocumentType(strings.ToLower(c.Query("document_type"))),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(docs, total, params))
}

// GET /documentos/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.documentService.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, doc)
}

// PUT /documentos/:id
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	req, file, err := documentForm(c)
	if err != nil {
		bindError(c, err)
		return
	}

	doc, err := h.documentService.Update(id, req, file)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyDocumentUpdated),
		"document": doc,
	})
}

// DELETE /documentos/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.documentService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyDocumentDeleted)})
}

// GET /documentos/:id/descargar
func (h *DocumentHandler) DownloadDocument(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	target, err := h.documentService.Download(id)
	if err != nil {
		respondError(c, err)
		return
	}

	if target.LocalPath == "" {
		c.Redirect(http.StatusTemporaryRedirect, target.RedirectURL)
		return
	}

	if target.MimeType != "" {
		c.Header("Content-Type", target.MimeType)
	}
	c.FileAttachment(target.LocalPath, target.FileName)
}
