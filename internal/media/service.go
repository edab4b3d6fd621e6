package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

const bytesPerMB = 1 << 20

// mimeTypesByKind lists the accepted content types per media kind.
var mimeTypesByKind = map[enums.MediaKind][]string{
	enums.MediaKindProductImage:    {"image/png", "image/jpeg"},
	enums.MediaKindDetectionSource: {"image/png", "image/jpeg"},
	enums.MediaKindImportCSV:       {"text/csv"},
	enums.MediaKindImportArchive:   {"application/zip"},
}

type mediaRepository interface {
	Create(ctx context.Context, media *models.Media) (*models.Media, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// gcsSigner is the slice of the storage client the media service needs.
type gcsSigner interface {
	SignedURL(bucket, object, method, contentType string, expires time.Time) (string, error)
	DownloadObject(ctx context.Context, bucket, object string) ([]byte, error)
	DeleteObject(ctx context.Context, bucket, object string) error
}

// PresignUploadInput describes a client upload request.
type PresignUploadInput struct {
	Kind      enums.MediaKind
	FileName  string
	MimeType  string
	SizeBytes int64
	UserID    *uuid.UUID
}

// PresignUploadResult carries the signed PUT URL and the pending media row.
type PresignUploadResult struct {
	MediaID   uuid.UUID `json:"media_id"`
	UploadURL string    `json:"upload_url"`
	GCSKey    string    `json:"gcs_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MediaDTO is the API representation of a media record.
type MediaDTO struct {
	ID         uuid.UUID         `json:"id"`
	Kind       enums.MediaKind   `json:"kind"`
	Status     enums.MediaStatus `json:"status"`
	FileName   string            `json:"file_name"`
	MimeType   string            `json:"mime_type"`
	SizeBytes  int64             `json:"size_bytes"`
	WidthPX    *int              `json:"width_px,omitempty"`
	HeightPX   *int              `json:"height_px,omitempty"`
	UploadedAt *time.Time        `json:"uploaded_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Service covers upload presigning and media lifecycle management.
type Service interface {
	PresignUpload(ctx context.Context, input PresignUploadInput) (*PresignUploadResult, error)
	GetMedia(ctx context.Context, id uuid.UUID) (*MediaDTO, error)
	SignedReadURL(ctx context.Context, id uuid.UUID) (string, error)
	Download(ctx context.Context, id uuid.UUID) ([]byte, *models.Media, error)
	DeleteMedia(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo   mediaRepository
	gcs    gcsSigner
	logg   *logger.Logger
	bucket string
	cfg    config.MediaConfig
	gcsCfg config.GCSConfig
}

// NewService wires the media service with its dependencies.
func NewService(repo mediaRepository, gcs gcsSigner, logg *logger.Logger, cfg config.MediaConfig, gcsCfg config.GCSConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media service requires a repository")
	}
	if gcs == nil {
		return nil, fmt.Errorf("media service requires a storage client")
	}
	if logg == nil {
		return nil, fmt.Errorf("media service requires a logger")
	}
	if gcsCfg.BucketName == "" {
		return nil, fmt.Errorf("media service requires a bucket name")
	}
	return &service{
		repo:   repo,
		gcs:    gcs,
		logg:   logg,
		bucket: gcsCfg.BucketName,
		cfg:    cfg,
		gcsCfg: gcsCfg,
	}, nil
}

func (s *service) PresignUpload(ctx context.Context, input PresignUploadInput) (*PresignUploadResult, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown media kind %q", input.Kind))
	}
	mime := strings.ToLower(strings.TrimSpace(input.MimeType))
	if err := validateMimeType(input.Kind, mime); err != nil {
		return nil, err
	}
	if err := validateSize(s.cfg, input.Kind, input.SizeBytes); err != nil {
		return nil, err
	}
	fileName := sanitizeFileName(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
	}

	id := uuid.New()
	gcsKey := buildGCSKey(input.Kind, id, fileName)
	row := &models.Media{
		ID:        id,
		UserID:    input.UserID,
		Kind:      input.Kind,
		Status:    enums.MediaStatusPending,
		GCSKey:    gcsKey,
		FileName:  fileName,
		MimeType:  mime,
		SizeBytes: input.SizeBytes,
	}
	if _, err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating media record")
	}

	expires := time.Now().Add(s.gcsCfg.UploadURLExpiry)
	url, err := s.gcs.SignedURL(s.bucket, gcsKey, "PUT", mime, expires)
	if err != nil {
		if delErr := s.repo.Delete(ctx, id); delErr != nil {
			cleanupCtx := s.logg.WithField(ctx, "media_id", id.String())
			s.logg.Error(cleanupCtx, "failed to clean up media row after signing failure", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing upload URL")
	}

	return &PresignUploadResult{
		MediaID:   id,
		UploadURL: url,
		GCSKey:    gcsKey,
		ExpiresAt: expires,
	}, nil
}

func (s *service) GetMedia(ctx context.Context, id uuid.UUID) (*MediaDTO, error) {
	row, err := s.findMedia(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := newMediaDTO(row)
	return &dto, nil
}

func (s *service) SignedReadURL(ctx context.Context, id uuid.UUID) (string, error) {
	row, err := s.findMedia(ctx, id)
	if err != nil {
		return "", err
	}
	if row.Status != enums.MediaStatusUploaded {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "media has not finished uploading")
	}
	url, err := s.gcs.SignedURL(s.bucket, row.GCSKey, "GET", "", time.Now().Add(s.gcsCfg.DownloadURLExpiry))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "signing download URL")
	}
	return url, nil
}

func (s *service) Download(ctx context.Context, id uuid.UUID) ([]byte, *models.Media, error) {
	row, err := s.findMedia(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if row.Status != enums.MediaStatusUploaded {
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "media has not finished uploading")
	}
	data, err := s.gcs.DownloadObject(ctx, s.bucket, row.GCSKey)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "downloading media object")
	}
	return data, row, nil
}

func (s *service) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	row, err := s.findMedia(ctx, id)
	if err != nil {
		return err
	}
	if err := s.gcs.DeleteObject(ctx, s.bucket, row.GCSKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deleting media object")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting media record")
	}
	return nil
}

func (s *service) findMedia(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "media not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading media")
	}
	return row, nil
}

func validateMimeType(kind enums.MediaKind, mime string) error {
	allowed, ok := mimeTypesByKind[kind]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown media kind %q", kind))
	}
	for _, a := range allowed {
		if mime == a {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("mime type %q is not allowed for kind %q, expected one of %s", mime, kind, strings.Join(allowed, ", ")))
}

func validateSize(cfg config.MediaConfig, kind enums.MediaKind, sizeBytes int64) error {
	if sizeBytes <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	limitMB := cfg.MaxUploadMB
	if kind == enums.MediaKindImportArchive {
		limitMB = cfg.MaxArchiveMB
	}
	if sizeBytes > int64(limitMB)*bytesPerMB {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file exceeds the %dMB limit for kind %q", limitMB, kind))
	}
	return nil
}

func buildGCSKey(kind enums.MediaKind, id uuid.UUID, fileName string) string {
	return path.Join("media", string(kind), id.String(), fileName)
}

// sanitizeFileName strips directory components and squashes characters that
// are awkward in object keys or signed URLs.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}

func newMediaDTO(m *models.Media) MediaDTO {
	return MediaDTO{
		ID:         m.ID,
		Kind:       m.Kind,
		Status:     m.Status,
		FileName:   m.FileName,
		MimeType:   m.MimeType,
		SizeBytes:  m.SizeBytes,
		WidthPX:    m.WidthPX,
		HeightPX:   m.HeightPX,
		UploadedAt: m.UploadedAt,
		CreatedAt:  m.CreatedAt,
	}
}
