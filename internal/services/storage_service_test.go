package services

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageUploadImage(t *testing.T) {
	storage := newStorage(t, testConfig(t))
	assert.False(t, storage.IsRemote())

	res, err := storage.UploadHeader(fileHeader(t, "photo", pngBytes), storage.GetDefaultUploadOptions(FolderProducts))
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.MimeType)
	assert.True(t, strings.HasPrefix(res.Key, FolderProducts+"/"))
	assert.True(t, strings.HasSuffix(res.Key, ".png"), "extension comes from the sniffed type")
	assert.Equal(t, "/uploads/"+res.Key, res.URL)
	assert.Len(t, res.Checksum, 64)

	path, ok := storage.LocalPath(res.URL)
	require.True(t, ok)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	require.NoError(t, storage.DeleteFile(res.URL))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, storage.DeleteFile(res.URL), "deleting twice is harmless")
}

func TestStorageRejections(t *testing.T) {
	storage := newStorage(t, testConfig(t))

	_, err := storage.UploadHeader(fileHeader(t, "empty.png", nil), storage.GetDefaultUploadOptions(FolderProducts))
	assert.ErrorIs(t, err, ErrValidation)

	big := bytes.Repeat([]byte("a"), 2048)
	_, err = storage.UploadHeader(fileHeader(t, "big.pdf", big), UploadOptions{Folder: FolderDocuments, MaxSize: 1024})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = storage.UploadHeader(fileHeader(t, "fake.png", []byte("<html></html>")), storage.GetDefaultUploadOptions(FolderProfiles))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStorageKeyFromURL(t *testing.T) {
	storage := newStorage(t, testConfig(t))

	key, ok := storage.KeyFromURL("/uploads/documents/a.pdf")
	assert.True(t, ok)
	assert.Equal(t, "documents/a.pdf", key)

	for _, url := range []string{"", "/uploads/../etc/passwd", "https://elsewhere.test/a.pdf", "/uploads/"} {
		_, ok := storage.KeyFromURL(url)
		assert.False(t, ok, url)
	}

	assert.NoError(t, storage.DeleteFile("https://elsewhere.test/a.pdf"))
}

func TestSaveBytesDetectsContentType(t *testing.T) {
	storage := newStorage(t, testConfig(t))

	res, err := storage.SaveBytes(pdfBytes, ".pdf", FolderInvoices, "")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.MimeType)
	assert.True(t, strings.HasPrefix(res.URL, "/uploads/invoices/"))
}

type recordingS3 struct {
	s3iface.S3API
	puts []*s3.PutObjectInput
}

func (r *recordingS3) PutObject(in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
	r.puts = append(r.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func TestStorageS3ACLFollowsVisibility(t *testing.T) {
	cfg := testConfig(t)
	cfg.AWS.S3Bucket = "club-files"
	cfg.AWS.Region = "us-east-1"
	client := &recordingS3{}
	storage := &StorageService{s3Client: client, config: cfg}
	require.True(t, storage.IsRemote())

	photo, err := storage.UploadHeader(fileHeader(t, "photo.png", pngBytes), storage.GetDefaultUploadOptions(FolderProducts))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(photo.URL, "https://club-files.s3.us-east-1.amazonaws.com/products/"))

	_, err = storage.UploadHeader(fileHeader(t, "acta.pdf", pdfBytes), storage.GetDefaultUploadOptions(FolderDocuments))
	require.NoError(t, err)

	_, err = storage.SaveBytes(pdfBytes, ".pdf", FolderInvoices, "application/pdf")
	require.NoError(t, err)

	require.Len(t, client.puts, 3)
	assert.Equal(t, "public-read", aws.StringValue(client.puts[0].ACL))
	assert.Nil(t, client.puts[1].ACL, "documents stay private")
	assert.Equal(t, "public-read", aws.StringValue(client.puts[2].ACL))
	assert.Equal(t, "club-files", aws.StringValue(client.puts[2].Bucket))
}
