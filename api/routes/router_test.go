package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/printforge/printforge-backend/internal/auth"
	category "github.com/printforge/printforge-backend/internal/categories"
	constraint "github.com/printforge/printforge-backend/internal/constraints"
	"github.com/printforge/printforge-backend/internal/imaging"
	"github.com/printforge/printforge-backend/internal/imports"
	"github.com/printforge/printforge-backend/internal/media"
	product "github.com/printforge/printforge-backend/internal/products"
	"github.com/printforge/printforge-backend/internal/users"
	pkgAuth "github.com/printforge/printforge-backend/pkg/auth"
	"github.com/printforge/printforge-backend/pkg/auth/session"
	"github.com/printforge/printforge-backend/pkg/config"
	"github.com/printforge/printforge-backend/pkg/db/models"
	"github.com/printforge/printforge-backend/pkg/enums"
	"github.com/printforge/printforge-backend/pkg/logger"
	"github.com/printforge/printforge-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{}, nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: uuid.New()}, nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubMediaService struct{}

func (stubMediaService) PresignUpload(ctx context.Context, input media.PresignUploadInput) (*media.PresignUploadResult, error) {
	return &media.PresignUploadResult{}, nil
}

func (stubMediaService) GetMedia(ctx context.Context, id uuid.UUID) (*media.MediaDTO, error) {
	return &media.MediaDTO{ID: id}, nil
}

func (stubMediaService) SignedReadURL(ctx context.Context, id uuid.UUID) (string, error) {
	return "https://example.com/signed", nil
}

func (stubMediaService) Download(ctx context.Context, id uuid.UUID) ([]byte, *models.Media, error) {
	return nil, nil, nil
}

func (stubMediaService) DeleteMedia(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubProductService struct{}

func (stubProductService) CreateProduct(ctx context.Context, input product.CreateProductInput) (*product.ProductDTO, error) {
	return &product.ProductDTO{ID: uuid.New()}, nil
}

func (stubProductService) UpdateProduct(ctx context.Context, productID uuid.UUID, input product.UpdateProductInput) (*product.ProductDTO, error) {
	return &product.ProductDTO{ID: productID}, nil
}

func (stubProductService) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	return nil
}

func (stubProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*product.ProductDTO, error) {
	return &product.ProductDTO{ID: productID}, nil
}

func (stubProductService) ListProducts(ctx context.Context, input product.ListProductsInput) (*product.ProductListResult, error) {
	return &product.ProductListResult{}, nil
}

func (stubProductService) ExportCatalogCSV(ctx context.Context) ([]byte, error) {
	return []byte("name,category,sku\n"), nil
}

type stubCategoryService struct{}

func (stubCategoryService) CreateCategory(ctx context.Context, input category.CreateCategoryInput) (*category.CategoryDTO, error) {
	return &category.CategoryDTO{ID: uuid.New()}, nil
}

func (stubCategoryService) UpdateCategory(ctx context.Context, categoryID uuid.UUID, input category.UpdateCategoryInput) (*category.CategoryDTO, error) {
	return &category.CategoryDTO{ID: categoryID}, nil
}

func (stubCategoryService) DeleteCategory(ctx context.Context, categoryID uuid.UUID) error {
	return nil
}

func (stubCategoryService) ListCategories(ctx context.Context) ([]category.CategoryDTO, error) {
	return nil, nil
}

type stubConstraintService struct{}

func (stubConstraintService) CreateConstraint(ctx context.Context, productID uuid.UUID, input constraint.ConstraintInput) (*constraint.ConstraintDTO, error) {
	return &constraint.ConstraintDTO{ID: uuid.New(), ProductID: productID}, nil
}

func (stubConstraintService) UpdateConstraint(ctx context.Context, constraintID uuid.UUID, input constraint.UpdateConstraintInput) (*constraint.ConstraintDTO, error) {
	return &constraint.ConstraintDTO{ID: constraintID}, nil
}

func (stubConstraintService) DeleteConstraint(ctx context.Context, constraintID uuid.UUID) error {
	return nil
}

func (stubConstraintService) ListConstraints(ctx context.Context, productID uuid.UUID) ([]constraint.ConstraintDTO, error) {
	return nil, nil
}

func (stubConstraintService) ValidatePlacement(ctx context.Context, productID uuid.UUID, candidate constraint.Rect) (*constraint.PlacementReport, error) {
	return &constraint.PlacementReport{Valid: true}, nil
}

type stubImportService struct{}

func (stubImportService) CreateImportJob(ctx context.Context, input imports.CreateImportJobInput) (*imports.ImportJobDTO, error) {
	return &imports.ImportJobDTO{ID: uuid.New()}, nil
}

func (stubImportService) GetImportJob(ctx context.Context, id uuid.UUID) (*imports.ImportJobDTO, []imports.ImportItemDTO, error) {
	return &imports.ImportJobDTO{ID: id}, nil, nil
}

func (stubImportService) ListImportJobs(ctx context.Context, limit int) ([]imports.ImportJobDTO, error) {
	return nil, nil
}

func (stubImportService) RollbackImportJob(ctx context.Context, id uuid.UUID) (*imports.ImportJobDTO, error) {
	return &imports.ImportJobDTO{ID: id}, nil
}

func (stubImportService) TemplateCSV() []byte {
	return []byte("name,category,sku,price,status,description,tags\n")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:            cfg,
		Logger:            logg,
		DB:                stubPinger{},
		Redis:             (*redis.Client)(nil),
		GCS:               stubPinger{},
		SessionManager:    stubSessionManager{},
		AuthService:       stubAuthService{},
		RegisterService:   stubRegisterService{},
		MediaService:      stubMediaService{},
		ProductService:    stubProductService{},
		CategoryService:   stubCategoryService{},
		ConstraintService: stubConstraintService{},
		ImportService:     stubImportService{},
		Detector:          imaging.NewDetector(config.DetectionConfig{MinGreen: 100, Dominance: 40, CoverageFloor: 0.5}),
		QualityValidator:  imaging.NewValidator(config.QualityConfig{MinWidthPX: 8, MinHeightPX: 8, WarnScore: 70, FailScore: 40}),
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.MemberRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicCatalogNeedsNoToken(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/api/v1/catalog/products", "/api/v1/catalog/categories"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleViewer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProductMutationRequiresEditorRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := `{"sku":"TEE-1","name":"Tee","price_cents":1000}`
	viewer := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	viewer.Header.Set("Content-Type", "application/json")
	viewer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleViewer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, viewer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer got %d", resp.Code)
	}

	editor := httptest.NewRequest(http.MethodPost, "/api/v1/products", bytes.NewBufferString(body))
	editor.Header.Set("Content-Type", "application/json")
	editor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleEditor))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, editor)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for editor got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestRegisterRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","password":"a-long-password","role":"editor"}`
	editor := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString(body))
	editor.Header.Set("Content-Type", "application/json")
	editor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleEditor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, editor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for editor got %d", resp.Code)
	}
}

func TestRollbackRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	path := "/api/v1/imports/" + uuid.NewString() + "/rollback"
	editor := httptest.NewRequest(http.MethodPost, path, nil)
	editor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleEditor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, editor)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for editor got %d", resp.Code)
	}
}

func TestImportTemplateDownload(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/template", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.MemberRoleViewer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Disposition"); got == "" {
		t.Fatal("expected attachment disposition")
	}
}
