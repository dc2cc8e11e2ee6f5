package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/petconnect/petconnect-api/utils"
)

// DocumentURLTTL is how long a presigned document URL stays valid
const DocumentURLTTL = time.Hour

// DocumentService stores scanned health-record documents
type DocumentService struct {
	store ObjectStore
}

// NewDocumentService creates a document service on top of store
func NewDocumentService(store ObjectStore) *DocumentService {
	return &DocumentService{store: store}
}

var documentServiceInstance *DocumentService

// GetDocumentService returns the document service used by request handlers
func GetDocumentService() *DocumentService {
	return documentServiceInstance
}

// SetDocumentService sets the document service (nil disables uploads)
func SetDocumentService(service *DocumentService) {
	documentServiceInstance = service
}

// Upload validates an image and stores it under health-documents/<pet id>/
func (s *DocumentService) Upload(ctx context.Context, petID uint, fileHeader *multipart.FileHeader) (string, error) {
	content, err := utils.ReadUploadedFile(fileHeader)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	key := fmt.Sprintf("health-documents/%d/%s%s", petID, uuid.NewString(), ext)
	if err := s.store.PutObject(ctx, key, utils.ContentType(fileHeader.Filename), content); err != nil {
		return "", fmt.Errorf("failed to upload document: %w", err)
	}
	return key, nil
}

// URL returns a presigned URL for a stored document
func (s *DocumentService) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	url, err := s.store.PresignGet(ctx, key, DocumentURLTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate document URL: %w", err)
	}
	return url, nil
}

// Delete removes a stored document
func (s *DocumentService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.store.DeleteObject(ctx, key); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
