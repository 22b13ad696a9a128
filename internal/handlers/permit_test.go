package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/naciremadream81/permitpro-v1/internal/middleware"
	"github.com/naciremadream81/permitpro-v1/internal/models"
	"github.com/naciremadream81/permitpro-v1/internal/repository"
	"github.com/naciremadream81/permitpro-v1/internal/service"
	"github.com/naciremadream81/permitpro-v1/internal/storage"
	"github.com/naciremadream81/permitpro-v1/internal/validation"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validation.RegisterBinding(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// =============================================================================
// Test Helpers
// =============================================================================

type apiFixture struct {
	router      *gin.Engine
	contractors service.ContractorService
}

var testIdentities = map[string]*models.Identity{
	"owner": {UserID: 1, Name: "Owner", Email: "owner@example.com", Role: models.RoleUser},
	"other": {UserID: 2, Name: "Other", Email: "other@example.com", Role: models.RoleUser},
	"admin": {UserID: 3, Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin},
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	return newAPIFixtureWithStore(t, blobs)
}

func newAPIFixtureWithStore(t *testing.T, blobs storage.BlobStore) *apiFixture {
	t.Helper()

	contractorRepo := repository.NewMemoryContractorRepository()
	permitService := service.NewPermitService(repository.NewMemoryPermitRepository(), contractorRepo, blobs,
		service.WithClock(func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }))
	contractorService := service.NewContractorService(contractorRepo)

	auth := &mockAuthService{
		authenticateFunc: func(_ context.Context, token string) (*models.Identity, error) {
			if identity, ok := testIdentities[token]; ok {
				return identity, nil
			}
			return nil, service.ErrUnauthenticated
		},
	}

	permits := NewPermitHandler(permitService, 1024, testLogger())
	contractors := NewContractorHandler(contractorService, testLogger())
	catalogHandler := NewCatalogHandler()

	router := gin.New()
	api := router.Group("/api")
	api.GET("/permit-types", catalogHandler.PermitTypes)
	api.GET("/permit-types/:key", catalogHandler.PermitType)
	api.GET("/counties", catalogHandler.Counties)

	protected := api.Group("")
	protected.Use(middleware.Auth(auth, AccessTokenCookie))
	protected.GET("/permits", permits.List)
	protected.POST("/permits", permits.Create)
	protected.GET("/permits/export.xlsx", permits.Export)
	protected.GET("/permits/:id", permits.Get)
	protected.PATCH("/permits/:id/status", permits.UpdateStatus)
	protected.PUT("/permits/:id/status", permits.UpdateStatus)
	protected.POST("/permits/:id/documents", permits.AddDocument)
	protected.GET("/permits/:id/documents/:docId/content", permits.DocumentContent)
	protected.PATCH("/permits/:id/checklist/:itemId", permits.UpdateChecklistItem)
	protected.GET("/permits/:id/download-all", permits.DownloadAll)
	protected.GET("/dashboard/stats", permits.Stats)

	protected.GET("/contractors", contractors.List)
	protected.GET("/contractors/:id", contractors.Get)
	writes := protected.Group("", middleware.RequireRole(models.RoleAdmin))
	writes.POST("/contractors", contractors.Create)
	writes.PUT("/contractors/:id", contractors.Update)
	writes.DELETE("/contractors/:id", contractors.Delete)
	writes.PATCH("/contractors/:id/status", contractors.UpdateStatus)

	return &apiFixture{router: router, contractors: contractorService}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) createShed(t *testing.T, token string) models.PermitPackage {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/permits", token, shedBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var pkg models.PermitPackage
	decode(t, w, &pkg)
	return pkg
}

func shedBody() map[string]interface{} {
	return map[string]interface{}{
		"customer":   map[string]string{"name": "Jane Doe", "phone": "(407) 836-3111"},
		"property":   map[string]string{"address": "1 Main St, Orlando"},
		"county":     "Orange",
		"permitType": "shed",
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to parse response %q: %v", w.Body.String(), err)
	}
}

// =============================================================================
// Package Endpoint Tests
// =============================================================================

func TestCreatePackage(t *testing.T) {
	f := newAPIFixture(t)

	pkg := f.createShed(t, "owner")

	if pkg.Status != models.StatusDraft || pkg.County != "Orange" || pkg.PermitType != "shed" {
		t.Errorf("package = %+v", pkg)
	}
	if len(pkg.ChecklistItems) != 5 {
		t.Errorf("checklist items = %d, want 5", len(pkg.ChecklistItems))
	}
	if pkg.PermitNumber != "SHED-2026-001" {
		t.Errorf("permit number = %q", pkg.PermitNumber)
	}
}

func TestCreatePackage_Rejected(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name       string
		mutate     func(body map[string]interface{})
		wantStatus int
	}{
		{name: "unknown permit type", mutate: func(b map[string]interface{}) { b["permitType"] = "not-a-type" }, wantStatus: http.StatusBadRequest},
		{name: "unknown county", mutate: func(b map[string]interface{}) { b["county"] = "Atlantis" }, wantStatus: http.StatusBadRequest},
		{name: "missing customer name", mutate: func(b map[string]interface{}) { b["customer"] = map[string]string{} }, wantStatus: http.StatusBadRequest},
		{name: "bad phone", mutate: func(b map[string]interface{}) {
			b["customer"] = map[string]string{"name": "Jane", "phone": "12"}
		}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := shedBody()
			tt.mutate(body)
			w := f.do(t, http.MethodPost, "/api/permits", "owner", body)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			var resp ErrorResponse
			decode(t, w, &resp)
			if resp.Error == "" {
				t.Error("error body should carry a message")
			}
		})
	}

	w := f.do(t, http.MethodGet, "/api/permits", "owner", nil)
	var list PackageListResponse
	decode(t, w, &list)
	if len(list.Packages) != 0 {
		t.Errorf("rejected creates left %d packages", len(list.Packages))
	}
}

func TestCreatePackage_FieldErrors(t *testing.T) {
	f := newAPIFixture(t)
	body := shedBody()
	body["county"] = "Atlantis"

	w := f.do(t, http.MethodPost, "/api/permits", "owner", body)

	var resp ErrorResponse
	decode(t, w, &resp)
	if resp.Fields["county"] != "must be a Florida county" {
		t.Errorf("fields = %v", resp.Fields)
	}
}

func TestPackages_RequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	for _, token := range []string{"", "forged"} {
		w := f.do(t, http.MethodGet, "/api/permits", token, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, w.Code)
		}
	}
}

func TestListAndOwnership(t *testing.T) {
	f := newAPIFixture(t)
	mine := f.createShed(t, "owner")
	theirs := f.createShed(t, "other")

	w := f.do(t, http.MethodGet, "/api/permits", "owner", nil)
	var list PackageListResponse
	decode(t, w, &list)
	if len(list.Packages) != 1 || list.Packages[0].ID != mine.ID {
		t.Errorf("owner list = %+v", list.Packages)
	}
	if list.User == nil || list.User.UserID != 1 {
		t.Errorf("list user = %+v", list.User)
	}

	w = f.do(t, http.MethodGet, "/api/permits", "admin", nil)
	decode(t, w, &list)
	if len(list.Packages) != 2 {
		t.Errorf("admin sees %d packages, want 2", len(list.Packages))
	}

	theirsPath := "/api/permits/" + jsonNumber(theirs.ID)
	paths := []struct{ method, path string }{
		{http.MethodGet, theirsPath},
		{http.MethodGet, theirsPath + "/download-all"},
		{http.MethodGet, "/api/permits/999"},
		{http.MethodGet, "/api/permits/abc"},
	}
	for _, p := range paths {
		if w := f.do(t, p.method, p.path, "owner", nil); w.Code != http.StatusNotFound {
			t.Errorf("%s %s status = %d, want 404", p.method, p.path, w.Code)
		}
	}
	if w := f.do(t, http.MethodGet, theirsPath, "admin", nil); w.Code != http.StatusOK {
		t.Errorf("admin get other's package status = %d", w.Code)
	}
}

func TestUpdateStatus(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.createShed(t, "owner")
	path := "/api/permits/1/status"

	w := f.do(t, http.MethodPatch, path, "owner", StatusRequest{Status: models.StatusCompleted})
	if w.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d, body %s", w.Code, w.Body.String())
	}
	var updated models.PermitPackage
	decode(t, w, &updated)
	if updated.Status != models.StatusCompleted || updated.ID != pkg.ID {
		t.Errorf("updated = %+v", updated)
	}

	w = f.do(t, http.MethodPut, path, "owner", StatusRequest{Status: models.StatusDraft})
	if w.Code != http.StatusOK {
		t.Errorf("PUT Completed->Draft status = %d", w.Code)
	}

	w = f.do(t, http.MethodPatch, path, "owner", map[string]string{"status": "Approved"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown status = %d, want 400", w.Code)
	}
	w = f.do(t, http.MethodPatch, path, "owner", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing status = %d, want 400", w.Code)
	}
}

func TestDocuments(t *testing.T) {
	f := newAPIFixture(t)
	f.createShed(t, "owner")

	w := f.do(t, http.MethodPost, "/api/permits/1/documents", "owner", service.DocumentInput{Name: "plan.pdf", URL: "https://files.example/plan.pdf"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add document status = %d, body %s", w.Code, w.Body.String())
	}
	var doc models.Document
	decode(t, w, &doc)
	if doc.Version != 1 || doc.ID == "" {
		t.Errorf("document = %+v", doc)
	}

	w = f.do(t, http.MethodPost, "/api/permits/1/documents", "owner", map[string]string{"url": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing name status = %d, want 400", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/permits/1", "owner", nil)
	var pkg models.PermitPackage
	decode(t, w, &pkg)
	if len(pkg.Documents) != 1 || pkg.Documents[0].ID != doc.ID {
		t.Errorf("documents = %+v", pkg.Documents)
	}
}

func multipartRequest(t *testing.T, path, token, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write([]byte(content))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestUploadAndDownloadDocument(t *testing.T) {
	f := newAPIFixture(t)
	f.createShed(t, "owner")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, multipartRequest(t, "/api/permits/1/documents", "owner", "survey.pdf", "survey-bytes"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}
	var doc models.Document
	decode(t, w, &doc)
	if doc.Name != "survey.pdf" || doc.Size != int64(len("survey-bytes")) {
		t.Errorf("document = %+v", doc)
	}

	w = f.do(t, http.MethodGet, doc.URL, "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("content status = %d", w.Code)
	}
	if w.Body.String() != "survey-bytes" {
		t.Errorf("content = %q", w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "survey.pdf") {
		t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}

	if w := f.do(t, http.MethodGet, doc.URL, "other", nil); w.Code != http.StatusNotFound {
		t.Errorf("other user content status = %d, want 404", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/permits/1/download-all", "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("download-all status = %d", w.Code)
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "Jane_Doe_SHED-2026-001_Documents.zip") {
		t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("invalid zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Errorf("zip has %d entries, want document plus manifest", len(zr.File))
	}
}

func TestUploadDocument_TooLarge(t *testing.T) {
	f := newAPIFixture(t)
	f.createShed(t, "owner")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, multipartRequest(t, "/api/permits/1/documents", "owner", "big.bin", strings.Repeat("x", 4096)))

	if w.Code != http.StatusRequestEntityTooLarge && w.Code != http.StatusBadRequest {
		t.Errorf("oversized upload status = %d, want 413 or 400", w.Code)
	}
}

func TestDownloadAll_NoDocuments(t *testing.T) {
	f := newAPIFixture(t)
	f.createShed(t, "owner")

	w := f.do(t, http.MethodGet, "/api/permits/1/download-all", "owner", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var resp ErrorResponse
	decode(t, w, &resp)
	if resp.Error != "no documents found for this package" {
		t.Errorf("error = %q", resp.Error)
	}
}

// unreadableStore accepts uploads but can no longer open them.
type unreadableStore struct {
	storage.BlobStore
}

func (unreadableStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("failed to open object %s: %w", key, storage.ErrObjectNotFound)
}

func TestDownloadAll_StoredFileMissing(t *testing.T) {
	local, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	f := newAPIFixtureWithStore(t, unreadableStore{BlobStore: local})
	f.createShed(t, "owner")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, multipartRequest(t, "/api/permits/1/documents", "owner", "plan.pdf", "plan-bytes"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/permits/1/download-all", "owner", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("download-all status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); strings.Contains(ct, "zip") {
		t.Errorf("Content-Type = %q, want a JSON error", ct)
	}
	if w.Header().Get("Content-Disposition") != "" {
		t.Errorf("Content-Disposition = %q, want none", w.Header().Get("Content-Disposition"))
	}
	var resp ErrorResponse
	decode(t, w, &resp)
	if resp.Error != "internal server error" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestUpdateChecklistItem(t *testing.T) {
	f := newAPIFixture(t)
	pkg := f.createShed(t, "owner")
	itemPath := "/api/permits/1/checklist/" + jsonNumber(pkg.ChecklistItems[0].ID)

	w := f.do(t, http.MethodPatch, itemPath, "owner", map[string]interface{}{"completed": true, "notes": "done"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var item models.ChecklistItem
	decode(t, w, &item)
	if !item.Completed || item.CompletedAt == nil || item.Notes != "done" {
		t.Errorf("item = %+v", item)
	}

	w = f.do(t, http.MethodPatch, itemPath, "owner", map[string]interface{}{"completed": false})
	decode(t, w, &item)
	if item.Completed || item.CompletedAt != nil || item.Notes != "done" {
		t.Errorf("item after uncomplete = %+v", item)
	}

	w = f.do(t, http.MethodPatch, "/api/permits/1/checklist/9999", "owner", map[string]interface{}{"completed": true})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown item status = %d, want 404", w.Code)
	}
}

func TestExportAndStats(t *testing.T) {
	f := newAPIFixture(t)
	f.createShed(t, "owner")
	f.createShed(t, "owner")
	_ = f.do(t, http.MethodPatch, "/api/permits/1/status", "owner", StatusRequest{Status: models.StatusCompleted})

	w := f.do(t, http.MethodGet, "/api/dashboard/stats", "owner", nil)
	var stats models.PackageStats
	decode(t, w, &stats)
	if stats.TotalPackages != 2 || stats.CompletedPackages != 1 || stats.CompletionRate != 50 {
		t.Errorf("stats = %+v", stats)
	}

	w = f.do(t, http.MethodGet, "/api/permits/export.xlsx", "owner", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d", w.Code)
	}
	if w.Header().Get("Content-Type") != xlsxContentType {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Error("export is not a zip-based xlsx file")
	}
}

// =============================================================================
// Error Mapping Tests
// =============================================================================

func TestRespondServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrItemNotFound, http.StatusNotFound},
		{service.ErrNoDocuments, http.StatusNotFound},
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrInvalidPermitType, http.StatusBadRequest},
		{errors.Join(errors.New("wrapped"), service.ErrNotFound), http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			w, c := createTestContext(http.MethodGet, "/", nil)
			respondServiceError(c, testLogger(), "handlers", "test", tt.err)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func jsonNumber(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
