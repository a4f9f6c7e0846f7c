// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

const (
	FolderProfiles      = "profiles"
	FolderPaymentProofs = "payment_proofs"
	FolderDocuments     = "documents"
	FolderProducts      = "products"
	FolderInvoices      = "invoices"
)

var allowedImageMIMEs = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type StorageService struct {
	s3Client s3iface.S3API
	config   *config.Config
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Checksum string `json:"checksum,omitempty"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	ImageOnly    bool
	IsPublic     bool
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Local disk under Storage.UploadDir
		return &StorageService{config: config}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// IsRemote reports whether files live in S3 rather than on local disk.
func (s *StorageService) IsRemote() bool {
	return s.s3Client != nil
}

func (s *StorageService) UploadFile(file multipart.File, header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	if header.Size == 0 {
		return nil, newError(ErrValidation, "file %s is empty", header.Filename)
	}
	if options.MaxSize > 0 && header.Size > options.MaxSize {
		return nil, newError(ErrValidation, "file size %d bytes exceeds maximum allowed size %d bytes", header.Size, options.MaxSize)
	}

	if len(options.AllowedTypes) > 0 {
		fileExt := strings.ToLower(filepath.Ext(header.Filename))
		allowed := false
		for _, allowedType := range options.AllowedTypes {
			if fileExt == allowedType {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, newError(ErrValidation, "file type %s is not allowed", fileExt)
		}
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	ext := filepath.Ext(header.Filename)
	if options.ImageOnly {
		mime, err := DetectImage(bytes.NewReader(fileBytes))
		if err != nil {
			return nil, err
		}
		contentType = mime.String()
		if ext == "" {
			ext = mime.Extension()
		}
	}

	return s.store(fileBytes, ext, contentType, options)
}

// UploadHeader opens a parsed multipart file and uploads it.
func (s *StorageService) UploadHeader(header *multipart.FileHeader, options UploadOptions) (*UploadResult, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	return s.UploadFile(file, header, options)
}

// SaveBytes stores generated content (invoices) the same way as uploads,
// with the default options of the folder.
func (s *StorageService) SaveBytes(data []byte, ext, folder, contentType string) (*UploadResult, error) {
	options := s.GetDefaultUploadOptions(folder)
	options.Folder = folder
	return s.store(data, ext, contentType, options)
}

func (s *StorageService) store(data []byte, ext, contentType string, options UploadOptions) (*UploadResult, error) {
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}
	key := s.generateKey(ext, options.Folder)

	var (
		result *UploadResult
		err    error
	)
	if s.s3Client != nil {
		result, err = s.uploadToS3(data, key, contentType, options.IsPublic)
	} else {
		result, err = s.uploadToLocal(data, key, contentType)
	}
	if err != nil {
		return nil, err
	}

	result.Checksum = utils.HashBytes(data)
	return result, nil
}

func (s *StorageService) uploadToS3(fileBytes []byte, key, contentType string, isPublic bool) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	if isPublic {
		params.ACL = aws.String("public-read")
	}

	if _, err := s.s3Client.PutObject(params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	dst := filepath.Join(s.config.Storage.UploadDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(dst, fileBytes, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &UploadResult{
		URL:      strings.TrimRight(s.config.Storage.PublicURL, "/") + "/" + key,
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

// DeleteFile removes a stored file given the URL returned at upload time.
// Unknown URLs are ignored.
func (s *StorageService) DeleteFile(url string) error {
	key, ok := s.KeyFromURL(url)
	if !ok {
		return nil
	}

	if s.s3Client == nil {
		err := os.Remove(filepath.Join(s.config.Storage.UploadDir, filepath.FromSlash(key)))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("S3 client not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

// KeyFromURL recovers the storage key from a public URL.
func (s *StorageService) KeyFromURL(url string) (string, bool) {
	if url == "" {
		return "", false
	}

	prefixes := []string{strings.TrimRight(s.config.Storage.PublicURL, "/") + "/"}
	if s.s3Client != nil {
		prefixes = append(prefixes, s.getS3URL(""))
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(url, prefix) {
			key := path.Clean(strings.TrimPrefix(url, prefix))
			if key == "." || strings.HasPrefix(key, "..") {
				return "", false
			}
			return key, true
		}
	}
	return "", false
}

// LocalPath returns the on-disk path of a locally stored file.
func (s *StorageService) LocalPath(url string) (string, bool) {
	if s.s3Client != nil {
		return "", false
	}
	key, ok := s.KeyFromURL(url)
	if !ok {
		return "", false
	}
	return filepath.Join(s.config.Storage.UploadDir, filepath.FromSlash(key)), true
}

func (s *StorageService) GetDefaultUploadOptions(category string) UploadOptions {
	switch category {
	case FolderProducts:
		return UploadOptions{
			Folder:    FolderProducts,
			MaxSize:   10 * 1024 * 1024, // 10MB
			ImageOnly: true,
			IsPublic:  true,
		}
	case FolderPaymentProofs:
		// Staff open proofs from the Telegram notification.
		return UploadOptions{
			Folder:    FolderPaymentProofs,
			MaxSize:   10 * 1024 * 1024,
			ImageOnly: true,
			IsPublic:  true,
		}
	case FolderInvoices:
		return UploadOptions{
			Folder:   FolderInvoices,
			IsPublic: true,
		}
	case FolderProfiles:
		return UploadOptions{
			Folder:    FolderProfiles,
			MaxSize:   5 * 1024 * 1024,
			ImageOnly: true,
			IsPublic:  true,
		}
	case FolderDocuments:
		// Private; downloads go through presigned URLs.
		return UploadOptions{
			Folder:       FolderDocuments,
			MaxSize:      50 * 1024 * 1024, // 50MB
			AllowedTypes: []string{".pdf", ".doc", ".docx", ".txt", ".odt"},
		}
	default:
		return UploadOptions{
			Folder:       "general",
			MaxSize:      5 * 1024 * 1024,
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
		}
	}
}

func (s *StorageService) generateKey(ext, folder string) string {
	id := uuid.New()
	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], strings.ToLower(ext))

	if folder != "" {
		return folder + "/" + filename
	}
	return filename
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

// DetectImage sniffs the content and accepts jpeg, png, gif and webp.
func DetectImage(r io.Reader) (*mimetype.MIME, error) {
	mime, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	for _, allowed := range allowedImageMIMEs {
		if mime.Is(allowed) {
			return mime, nil
		}
	}
	return nil, newError(ErrValidation, "invalid image file (%s)", mime.String())
}
