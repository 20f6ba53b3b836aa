package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/catalog/internal/catalog/domain"
)

type fakeCatalogService struct {
	createReq *catalogdomain.CreateRequest
	updateReq *catalogdomain.UpdateRequest
	listReq   *catalogdomain.ListRequest
	getID     int64
	deleteID  int64

	resp *catalogdomain.Response
	list []catalogdomain.Response
	err  error
}

func (f *fakeCatalogService) Create(ctx context.Context, req catalogdomain.CreateRequest) (*catalogdomain.Response, error) {
	_ = ctx
	f.createReq = &req
	return f.resp, f.err
}

func (f *fakeCatalogService) List(ctx context.Context, req catalogdomain.ListRequest) ([]catalogdomain.Response, error) {
	_ = ctx
	f.listReq = &req
	return f.list, f.err
}

func (f *fakeCatalogService) Get(ctx context.Context, id int64) (*catalogdomain.Response, error) {
	_ = ctx
	f.getID = id
	return f.resp, f.err
}

func (f *fakeCatalogService) Update(ctx context.Context, req catalogdomain.UpdateRequest) (*catalogdomain.Response, error) {
	_ = ctx
	f.updateReq = &req
	return f.resp, f.err
}

func (f *fakeCatalogService) Delete(ctx context.Context, id int64) error {
	_ = ctx
	f.deleteID = id
	return f.err
}

func newTestServer(fake *fakeCatalogService) *Server {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	s := &Server{
		engine:     engine,
		catalogSvc: fake,
	}
	s.registerProductRoutes()
	return s
}

func productFormBody(t *testing.T, fields map[string]string, fileName, fileType, fileContent string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, fileName))
		h.Set("Content-Type", fileType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := io.WriteString(part, fileContent); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func strPtr(v string) *string { return &v }

func TestCreateProductParsesMultipartForm(t *testing.T) {
	fake := &fakeCatalogService{
		resp: &catalogdomain.Response{
			ID:          42,
			Name:        "Chair",
			Description: "Oak",
			Price:       49.99,
			Image:       strPtr("/uploads/gen.png"),
		},
	}
	s := newTestServer(fake)

	body, contentType := productFormBody(t, map[string]string{
		"name":        "  Chair  ",
		"description": "Oak",
		"price":       "49.99",
	}, "chair.png", "image/png", "fake image data")

	req := httptest.NewRequest(http.MethodPost, "/products/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fake.createReq == nil {
		t.Fatal("service not called")
	}
	if fake.createReq.Name != "Chair" {
		t.Fatalf("expected trimmed name, got %q", fake.createReq.Name)
	}
	if fake.createReq.Price != 49.99 {
		t.Fatalf("expected price 49.99, got %v", fake.createReq.Price)
	}
	if fake.createReq.Image == nil {
		t.Fatal("expected upload forwarded")
	}
	if fake.createReq.Image.Filename != "chair.png" || fake.createReq.Image.ContentType != "image/png" {
		t.Fatalf("unexpected upload metadata %+v", fake.createReq.Image)
	}

	var resp catalogdomain.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 42 || resp.Image == nil || *resp.Image != "/uploads/gen.png" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreateProductWithoutImage(t *testing.T) {
	fake := &fakeCatalogService{
		resp: &catalogdomain.Response{ID: 7, Name: "Chair", Price: 49.99},
	}
	s := newTestServer(fake)

	body, contentType := productFormBody(t, map[string]string{
		"name":  "Chair",
		"price": "49.99",
	}, "", "", "")

	req := httptest.NewRequest(http.MethodPost, "/products/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.createReq.Image != nil {
		t.Fatal("expected no upload")
	}
	// image must serialize as an explicit null
	var raw map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if v, ok := raw["image"]; !ok || v != nil {
		t.Fatalf("expected image null, got %v (present=%v)", v, ok)
	}
}

func TestCreateProductMissingPriceIsRejected(t *testing.T) {
	fake := &fakeCatalogService{}
	s := newTestServer(fake)

	body, contentType := productFormBody(t, map[string]string{"name": "Chair"}, "", "", "")

	req := httptest.NewRequest(http.MethodPost, "/products/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if fake.createReq != nil {
		t.Fatal("service must not be called")
	}
}

func TestCreateProductMissingNameIsRejected(t *testing.T) {
	fake := &fakeCatalogService{}
	s := newTestServer(fake)

	body, contentType := productFormBody(t, map[string]string{"price": "10"}, "", "", "")

	req := httptest.NewRequest(http.MethodPost, "/products/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListProductsAppliesDefaults(t *testing.T) {
	fake := &fakeCatalogService{list: []catalogdomain.Response{}}
	s := newTestServer(fake)

	req := httptest.NewRequest(http.MethodGet, "/products/", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.listReq == nil {
		t.Fatal("service not called")
	}
	if fake.listReq.Offset != 0 || fake.listReq.Limit != 100 {
		t.Fatalf("expected defaults skip=0 limit=100, got %+v", fake.listReq)
	}
}

func TestListProductsForwardsQuery(t *testing.T) {
	fake := &fakeCatalogService{list: []catalogdomain.Response{}}
	s := newTestServer(fake)

	req := httptest.NewRequest(http.MethodGet, "/products/?skip=3&limit=5", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.listReq.Offset != 3 || fake.listReq.Limit != 5 {
		t.Fatalf("expected skip=3 limit=5, got %+v", fake.listReq)
	}
}

func TestGetProductNotFound(t *testing.T) {
	fake := &fakeCatalogService{err: catalogdomain.ErrNotFound}
	s := newTestServer(fake)

	req := httptest.NewRequest(http.MethodGet, "/products/123", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if fake.getID != 123 {
		t.Fatalf("expected id 123, got %d", fake.getID)
	}
}

func TestGetProductRejectsNonIntegerID(t *testing.T) {
	fake := &fakeCatalogService{}
	s := newTestServer(fake)

	req := httptest.NewRequest(http.MethodGet, "/products/abc", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateProductNotFound(t *testing.T) {
	fake := &fakeCatalogService{err: catalogdomain.ErrNotFound}
	s := newTestServer(fake)

	body, contentType := productFormBody(t, map[string]string{
		"name":  "Chair",
		"price": "10",
	}, "", "", "")

	req := httptest.NewRequest(http.MethodPut, "/products/55", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if fake.updateReq == nil || fake.updateReq.ID != 55 {
		t.Fatalf("expected update for id 55, got %+v", fake.updateReq)
	}
}

func TestDeleteProductConfirms(t *testing.T) {
	fake := &fakeCatalogService{}
	s := newTestServer(fake)

	req := httptest.NewRequest(http.MethodDelete, "/products/9", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.deleteID != 9 {
		t.Fatalf("expected id 9, got %d", fake.deleteID)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["message"] != "Product deleted" {
		t.Fatalf("unexpected message %q", resp["message"])
	}
}

func TestDeleteProductNotFound(t *testing.T) {
	fake := &fakeCatalogService{err: catalogdomain.ErrNotFound}
	s := newTestServer(fake)

	req := httptest.NewRequest(http.MethodDelete, "/products/9", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBadImageMapsToValidationError(t *testing.T) {
	fake := &fakeCatalogService{err: catalogdomain.ErrInvalidImageType}
	s := newTestServer(fake)

	body, contentType := productFormBody(t, map[string]string{
		"name":  "Chair",
		"price": "10",
	}, "virus.exe", "application/octet-stream", "nope")

	req := httptest.NewRequest(http.MethodPost, "/products/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp struct {
		Error struct {
			Type   string `json:"type"`
			Errors []struct {
				Field string `json:"field"`
				Code  string `json:"code"`
			} `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Type != "validation_error" {
		t.Fatalf("expected validation_error, got %q", resp.Error.Type)
	}
	if len(resp.Error.Errors) != 1 || resp.Error.Errors[0].Field != "image" {
		t.Fatalf("unexpected errors %+v", resp.Error.Errors)
	}
}

func TestInternalErrorsDoNotLeakDetail(t *testing.T) {
	fake := &fakeCatalogService{err: errors.New("pq: connection refused on 10.0.0.5")}
	s := newTestServer(fake)

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("10.0.0.5")) {
		t.Fatalf("internal detail leaked: %s", rec.Body.String())
	}
}
