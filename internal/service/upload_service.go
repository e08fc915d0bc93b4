package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rushibamb/dig-village-sub001/internal/dto"
	"github.com/rushibamb/dig-village-sub001/pkg/config"
	appErrors "github.com/rushibamb/dig-village-sub001/pkg/errors"
	"github.com/rushibamb/dig-village-sub001/pkg/imaging"
	"github.com/rushibamb/dig-village-sub001/pkg/storage"
)

// UploadService validates, compresses and stores photos.
type UploadService struct {
	store   storage.ObjectStore
	cfg     config.UploadsConfig
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewUploadService constructs the service.
func NewUploadService(store storage.ObjectStore, cfg config.UploadsConfig, metrics *MetricsService, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{store: store, cfg: cfg, metrics: metrics, logger: logger, now: time.Now}
}

// MaxBytes returns the size ceiling for purpose, or 0 when purpose is unknown.
func (s *UploadService) MaxBytes(purpose string) int64 {
	switch purpose {
	case dto.UploadPurposeIDProof:
		return s.cfg.IDProofMaxBytes
	case dto.UploadPurposeGrievance:
		return s.cfg.GrievanceMaxBytes
	case dto.UploadPurposeResolution:
		return s.cfg.ResolutionMaxBytes
	}
	return 0
}

// Upload stores an image for purpose and returns its URL with a thumbnail.
func (s *UploadService) Upload(ctx context.Context, purpose string, data []byte) (*dto.UploadResult, error) {
	limit := s.MaxBytes(purpose)
	if limit == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "purpose must be one of id-proof, grievance, resolution")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if int64(len(data)) > limit {
		s.metrics.RecordUpload(purpose, "too_large", int64(len(data)))
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("file exceeds %d bytes", limit))
	}
	mimeType := imaging.DetectMIME(data)
	if !imaging.IsImageMIME(mimeType) {
		s.metrics.RecordUpload(purpose, "unsupported", int64(len(data)))
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("%s is not an accepted image type", mimeType))
	}

	compressed, err := imaging.Compress(data, imaging.Options{
		MaxEdge:   s.cfg.MaxEdge,
		Quality:   s.cfg.JPEGQuality,
		Threshold: s.cfg.CompressThreshold,
		MaxPixels: s.cfg.MaxPixels,
	})
	if errors.Is(err, imaging.ErrTooManyPixels) {
		s.metrics.RecordUpload(purpose, "too_large", int64(len(data)))
		return nil, appErrors.Wrap(err, appErrors.ErrPayloadTooLarge.Code, appErrors.ErrPayloadTooLarge.Status, "image dimensions are too large")
	}
	if err != nil {
		s.metrics.RecordUpload(purpose, "unsupported", int64(len(data)))
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedMedia.Code, appErrors.ErrUnsupportedMedia.Status, "image could not be decoded")
	}

	base := fmt.Sprintf("%s/%s/%s", purpose, s.now().UTC().Format("2006/01"), uuid.NewString())
	fileURL, err := s.store.Put(ctx, base+extension(compressed.MIMEType), compressed.Data, compressed.MIMEType)
	if err != nil {
		s.metrics.RecordUpload(purpose, "failed", int64(len(compressed.Data)))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to store file")
	}
	result := &dto.UploadResult{FileURL: fileURL, MimeType: compressed.MIMEType, Size: int64(len(compressed.Data))}

	if thumb, err := imaging.Thumbnail(compressed.Data, s.cfg.ThumbnailEdge); err != nil {
		s.logger.Warn("thumbnail generation failed", zap.String("purpose", purpose), zap.Error(err))
	} else if thumbURL, err := s.store.Put(ctx, base+"_thumb.jpg", thumb, "image/jpeg"); err != nil {
		s.logger.Warn("thumbnail store failed", zap.String("purpose", purpose), zap.Error(err))
	} else {
		result.ThumbnailURL = thumbURL
	}

	s.metrics.RecordUpload(purpose, "stored", result.Size)
	s.logger.Debug("upload stored",
		zap.String("purpose", purpose),
		zap.Int("original_bytes", len(data)),
		zap.Int64("stored_bytes", result.Size),
		zap.Bool("compressed", compressed.Changed),
	)
	return result, nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".jpg"
}
