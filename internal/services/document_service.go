// internal/services/document_service.go
package services

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

const presignTTL = 15 * time.Minute

type DocumentService struct {
	db             *gorm.DB
	storageService *StorageService
}

type DocumentRequest struct {
	Name         string              `json:"name" form:"name" validate:"required,max=255"`
	EntryDate    string              `json:"entry_date" form:"entry_date" validate:"required"`
	Responsible  string              `json:"responsible" form:"responsible" validate:"required,not_undefined,max=255"`
	DocumentType models.DocumentType `json:"document_type" form:"document_type" validate:"required,oneof=statute regulation minutes report contract other"`
	Description  string              `json:"description" form:"description"`
}

type DocumentListParams struct {
	utils.PaginationParams
	DocumentType models.DocumentType
}

// DownloadTarget is either a local file to stream or a URL to redirect to.
type DownloadTarget struct {
	LocalPath   string
	RedirectURL string
	FileName    string
	MimeType    string
}

func NewDocumentService(db *gorm.DB, storageService *StorageService) *DocumentService {
	return &DocumentService{
		db:             db,
		storageService: storageService,
	}
}

func (r *DocumentRequest) parse() (time.Time, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Responsible = strings.TrimSpace(r.Responsible)
	if err := utils.ValidateStruct(r); err != nil {
		return time.Time{}, invalid(err)
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, r.EntryDate); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, newError(ErrValidation, "invalid entry_date %q", r.EntryDate)
}

func (s *DocumentService) Create(req *DocumentRequest, file *multipart.FileHeader, createdBy *uint) (*models.Document, error) {
	entryDate, err := req.parse()
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, newError(ErrValidation, "file is required")
	}

	stored, err := s.storageService.UploadHeader(file, s.storageService.GetDefaultUploadOptions(FolderDocuments))
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		Name:         req.Name,
		EntryDate:    entryDate,
		Responsible:  req.Responsible,
		DocumentType: req.DocumentType,
		Description:  req.Description,
		FileURL:      stored.URL,
		FileName:     filepath.Base(file.Filename),
		FileSize:     stored.Size,
		MimeType:     documentMIME(file.Filename, stored.MimeType),
		Checksum:     stored.Checksum,
		CreatedBy:    createdBy,
	}

	if err := s.db.Create(doc).Error; err != nil {
		s.removeFile(stored.URL)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func (s *DocumentService) List(params DocumentListParams) ([]models.Document, int64, error) {
	query := s.db.Model(&models.Document{})
	if params.DocumentType != "" {
		query = query.Where("document_type = ?", params.DocumentType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	var docs []models.Document
	query = utils.ApplySort(query, params.PaginationParams, []string{"name", "entry_date", "created_at"}, "created_at DESC, id DESC")
	if err := utils.ApplyPagination(query, params.PaginationParams).Find(&docs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, total, nil
}

func (s *DocumentService) Get(id uint) (*models.Document, error) {
	var doc models.Document
	if err := s.db.First(&doc, id).Error; err != nil {
		return nil, storeError(err, "document")
	}
	return &doc, nil
}

// Update replaces the metadata and, when a file is given, the stored file.
func (s *DocumentService) Update(id uint, req *DocumentRequest, file *multipart.FileHeader) (*models.Document, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	entryDate, err := req.parse()
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":          req.Name,
		"entry_date":    entryDate,
		"responsible":   req.Responsible,
		"document_type": req.DocumentType,
		"description":   req.Description,
	}

	oldURL := ""
	var stored *UploadResult
	if file != nil {
		stored, err = s.storageService.UploadHeader(file, s.storageService.GetDefaultUploadOptions(FolderDocuments))
		if err != nil {
			return nil, err
		}
		oldURL = doc.FileURL
		updates["file_url"] = stored.URL
		updates["file_name"] = filepath.Base(file.Filename)
		updates["file_size"] = stored.Size
		updates["mime_type"] = documentMIME(file.Filename, stored.MimeType)
		updates["checksum"] = stored.Checksum
	}

	if err := s.db.Model(doc).Updates(updates).Error; err != nil {
		if stored != nil {
			s.removeFile(stored.URL)
		}
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	if oldURL != "" {
		s.removeFile(oldURL)
	}
	return s.Get(id)
}

func (s *DocumentService) Delete(id uint) error {
	doc, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.db.Delete(&models.Document{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.removeFile(doc.FileURL)
	return nil
}

func (s *DocumentService) Download(id uint) (*DownloadTarget, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	target := &DownloadTarget{FileName: doc.FileName, MimeType: doc.MimeType}
	if path, ok := s.storageService.LocalPath(doc.FileURL); ok {
		target.LocalPath = path
		return target, nil
	}

	if key, ok := s.storageService.KeyFromURL(doc.FileURL); ok && s.storageService.IsRemote() {
		url, err := s.storageService.GeneratePresignedURL(key, presignTTL)
		if err != nil {
			return nil, err
		}
		target.RedirectURL = url
		return target, nil
	}

	target.RedirectURL = doc.FileURL
	return target, nil
}

func (s *DocumentService) removeFile(url string) {
	if err := s.storageService.DeleteFile(url); err != nil {
		logrus.WithError(err).WithField("url", url).Warn("Failed to remove document file")
	}
}

var documentMIMEs = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
	".odt":  "application/vnd.oasis.opendocument.text",
}

func documentMIME(filename, fallback string) string {
	if mime, ok := documentMIMEs[strings.ToLower(filepath.Ext(filename))]; ok {
		return mime
	}
	return fallback
}
