package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	pkgerrors "github.com/printforge/printforge-backend/pkg/errors"
	"github.com/printforge/printforge-backend/pkg/logger"
)

type stubMediaRepo struct {
	created   *models.Media
	rows      map[uuid.UUID]*models.Media
	deleteID  uuid.UUID
	createErr error
	deleteErr error
}

func (s *stubMediaRepo) Create(ctx context.Context, media *models.Media) (*models.Media, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = media
	return media, nil
}

func (s *stubMediaRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	if row, ok := s.rows[id]; ok {
		return row, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubMediaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deleteID = id
	return s.deleteErr
}

type stubGCS struct {
	url          string
	signErr      error
	downloadErr  error
	data         []byte
	lastObject   string
	lastMethod   string
	lastMimeType string
	deleted      []string
}

func (s *stubGCS) SignedURL(bucket, object, method, contentType string, expires time.Time) (string, error) {
	s.lastObject = object
	s.lastMethod = method
	s.lastMimeType = contentType
	if s.signErr != nil {
		return "", s.signErr
	}
	return s.url, nil
}

func (s *stubGCS) DownloadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	return s.data, nil
}

func (s *stubGCS) DeleteObject(ctx context.Context, bucket, object string) error {
	s.deleted = append(s.deleted, object)
	return nil
}

func testService(t *testing.T, repo *stubMediaRepo, gcs *stubGCS) Service {
	t.Helper()
	svc, err := NewService(repo, gcs, testLogger(), testMediaConfig(), testGCSConfig())
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "media-test", Output: io.Discard})
}

func testMediaConfig() config.MediaConfig {
	return config.MediaConfig{MaxUploadMB: 50, MaxArchiveMB: 200, ImageMaxWidthPX: 8192, ImageMaxHeightPX: 8192}
}

func testGCSConfig() config.GCSConfig {
	return config.GCSConfig{BucketName: "pf-media", UploadURLExpiry: 15 * time.Minute, DownloadURLExpiry: time.Hour}
}

func TestPresignUploadSuccess(t *testing.T) {
	repo := &stubMediaRepo{}
	gcs := &stubGCS{url: "https://signed.example/upload"}
	svc := testService(t, repo, gcs)

	out, err := svc.PresignUpload(context.Background(), PresignUploadInput{
		Kind:      enums.MediaKindProductImage,
		FileName:  "Logo Mock (final).PNG",
		MimeType:  "image/PNG",
		SizeBytes: 1024,
	})
	if err != nil {
		t.Fatalf("PresignUpload returned error: %v", err)
	}
	if out.UploadURL != gcs.url {
		t.Fatalf("expected upload url %q, got %q", gcs.url, out.UploadURL)
	}
	if repo.created == nil {
		t.Fatal("expected a media row to be created")
	}
	if repo.created.Status != enums.MediaStatusPending {
		t.Fatalf("expected pending status, got %q", repo.created.Status)
	}
	if repo.created.MimeType != "image/png" {
		t.Fatalf("expected mime type lowered, got %q", repo.created.MimeType)
	}
	if gcs.lastMethod != "PUT" {
		t.Fatalf("expected PUT signature, got %q", gcs.lastMethod)
	}
	wantPrefix := "media/product_image/" + out.MediaID.String() + "/"
	if !strings.HasPrefix(out.GCSKey, wantPrefix) {
		t.Fatalf("expected gcs key prefix %q, got %q", wantPrefix, out.GCSKey)
	}
	if strings.Contains(out.GCSKey, " ") || strings.Contains(out.GCSKey, "(") {
		t.Fatalf("expected sanitized file name in key, got %q", out.GCSKey)
	}
}

func TestPresignUploadRejectsMimeMismatch(t *testing.T) {
	svc := testService(t, &stubMediaRepo{}, &stubGCS{url: "u"})

	_, err := svc.PresignUpload(context.Background(), PresignUploadInput{
		Kind:      enums.MediaKindImportCSV,
		FileName:  "products.csv",
		MimeType:  "application/zip",
		SizeBytes: 10,
	})
	if err == nil {
		t.Fatal("expected error for mime mismatch")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPresignUploadSizeLimits(t *testing.T) {
	svc := testService(t, &stubMediaRepo{}, &stubGCS{url: "u"})

	cases := []struct {
		name    string
		kind    enums.MediaKind
		mime    string
		size    int64
		wantErr bool
	}{
		{name: "imageWithinLimit", kind: enums.MediaKindProductImage, mime: "image/png", size: 50 * bytesPerMB, wantErr: false},
		{name: "imageOverLimit", kind: enums.MediaKindProductImage, mime: "image/png", size: 50*bytesPerMB + 1, wantErr: true},
		{name: "archiveUsesLargerLimit", kind: enums.MediaKindImportArchive, mime: "application/zip", size: 120 * bytesPerMB, wantErr: false},
		{name: "archiveOverLimit", kind: enums.MediaKindImportArchive, mime: "application/zip", size: 200*bytesPerMB + 1, wantErr: true},
		{name: "zeroSize", kind: enums.MediaKindProductImage, mime: "image/png", size: 0, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PresignUpload(context.Background(), PresignUploadInput{
				Kind:      tc.kind,
				FileName:  "file.bin",
				MimeType:  tc.mime,
				SizeBytes: tc.size,
			})
			if tc.wantErr && err == nil {
				t.Fatal("expected size validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestPresignUploadCleansUpOnSignFailure(t *testing.T) {
	repo := &stubMediaRepo{}
	gcs := &stubGCS{signErr: fmt.Errorf("signer unavailable")}
	svc := testService(t, repo, gcs)

	_, err := svc.PresignUpload(context.Background(), PresignUploadInput{
		Kind:      enums.MediaKindProductImage,
		FileName:  "art.png",
		MimeType:  "image/png",
		SizeBytes: 10,
	})
	if err == nil {
		t.Fatal("expected signing error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if repo.created == nil || repo.deleteID != repo.created.ID {
		t.Fatal("expected the pending media row to be deleted")
	}
}

func TestSignedReadURLRequiresUploadedStatus(t *testing.T) {
	id := uuid.New()
	repo := &stubMediaRepo{rows: map[uuid.UUID]*models.Media{
		id: {ID: id, Kind: enums.MediaKindProductImage, Status: enums.MediaStatusPending, GCSKey: "media/k"},
	}}
	svc := testService(t, repo, &stubGCS{url: "u"})

	_, err := svc.SignedReadURL(context.Background(), id)
	if err == nil {
		t.Fatal("expected error for pending media")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestGetMediaNotFound(t *testing.T) {
	svc := testService(t, &stubMediaRepo{}, &stubGCS{url: "u"})

	_, err := svc.GetMedia(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "logo.png", want: "logo.png"},
		{in: "  My Logo (v2).PNG ", want: "My_Logo__v2_.PNG"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: "C:\\uploads\\shirt.jpg", want: "shirt.jpg"},
		{in: "...", want: ""},
	}
	for _, tc := range cases {
		if got := sanitizeFileName(tc.in); got != tc.want {
			t.Errorf("sanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
