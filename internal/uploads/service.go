package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Proof artifacts are photos, scanned signatures or PDF certificates.
var allowedProofTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// ErrUnsupportedType is returned for proof uploads outside the accepted
// image and PDF types.
var ErrUnsupportedType = errors.New("unsupported proof file type")

// UploadService stores proof binaries via the driver and their metadata in
// the database.
type UploadService struct {
	Driver StorageDriver
	db     *gorm.DB
}

func NewUploadService(driver StorageDriver, db *gorm.DB) *UploadService {
	return &UploadService{Driver: driver, db: db}
}

// UploadProof stores a proof file for an item completion and returns its
// metadata. The returned key is what goes into the progress row's proof
// reference.
func (s *UploadService) UploadProof(ctx context.Context, instanceID, itemID, userID uuid.UUID, filename string, reader io.Reader, size int64, mime string) (*ProofFile, error) {
	if mime == "" {
		mime = "application/octet-stream"
	}
	if !allowedProofTypes[mime] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	id := uuid.New()
	ext := filepath.Ext(filename)
	key := fmt.Sprintf("proofs/%s/%s%s", instanceID, id, ext)

	if err := s.Driver.Save(ctx, key, reader, mime); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned file", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	proof := &ProofFile{
		ID:         id,
		InstanceID: instanceID,
		ItemID:     itemID,
		UserID:     userID,
		Name:       filename,
		Key:        key,
		URL:        url,
		Size:       size,
		MimeType:   mime,
	}
	if result := s.db.WithContext(ctx).Create(proof); result.Error != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned file", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to store proof metadata: %w", result.Error)
	}

	slog.InfoContext(ctx, "proof uploaded", "id", id, "key", key, "instance_id", instanceID, "item_id", itemID)
	return proof, nil
}

// Download streams a proof binary and its recorded MIME type.
func (s *UploadService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	var proof ProofFile
	result := s.db.WithContext(ctx).Where("key = ?", key).First(&proof)
	if result.Error != nil {
		return nil, "", result.Error
	}

	reader, err := s.Driver.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return reader, proof.MimeType, nil
}

// GetByKey returns the metadata row for a proof key.
func (s *UploadService) GetByKey(ctx context.Context, key string) (*ProofFile, error) {
	var proof ProofFile
	result := s.db.WithContext(ctx).Where("key = ?", key).First(&proof)
	if result.Error != nil {
		return nil, result.Error
	}
	return &proof, nil
}
