package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfsense/backend/config"
	"github.com/shelfsense/backend/internal/domain"
	"github.com/shelfsense/backend/internal/infrastructure/metrics"
	"github.com/shelfsense/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

// MockCatalog is a scripted CatalogUsecase
type MockCatalog struct {
	products    map[string]*domain.Product
	err         error
	lastHTML    string
	lastPageURL string
	lastTopK    int
	resolved    map[string]*domain.Product
}

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{products: make(map[string]*domain.Product)}
}

func (m *MockCatalog) Extract(ctx context.Context, html, pageURL string, topK int) (*usecase.Extraction, error) {
	m.lastHTML, m.lastPageURL, m.lastTopK = html, pageURL, topK
	if m.err != nil {
		return nil, m.err
	}
	return &usecase.Extraction{
		Context:    &domain.CandidateContext{TitleCandidates: []string{"Cordless Drill"}},
		Categories: []string{"Hardware > Power Tools"},
	}, nil
}

func (m *MockCatalog) Ingest(ctx context.Context, html, pageURL string) (string, *domain.Product, error) {
	m.lastHTML, m.lastPageURL = html, pageURL
	if m.err != nil {
		return "", nil, m.err
	}
	product := &domain.Product{Name: "Cordless Drill", Brand: "DeWalt"}
	m.products["abc123"] = product
	return "abc123", product, nil
}

func (m *MockCatalog) Get(ctx context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	product, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (m *MockCatalog) List(ctx context.Context) ([]domain.ProductSummary, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.ProductSummary
	for id, product := range m.products {
		out = append(out, product.Summary(id))
	}
	return out, nil
}

func (m *MockCatalog) Resolve(records map[string]*domain.Product) (map[string]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.resolved = records
	return records, nil
}

func (m *MockCatalog) ResolveCatalog(ctx context.Context) (map[string]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"chrome-extension://*", "http://localhost:3000"},
		},
	}
}

// setupTestRouter creates a test router around the given catalog
func setupTestRouter(catalog CatalogUsecase) *gin.Engine {
	handler := NewHandler(catalog, zerolog.Nop())
	return SetupRouter(testConfig(), handler, nil, zerolog.Nop())
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(NewMockCatalog())

		w := doJSON(router, "GET", "/health", "")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "shelfsense-backend" {
			t.Errorf("service = %v, want shelfsense-backend", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(NewMockCatalog())

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doJSON(router, method, "/health", "")

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestExtractEndpoint(t *testing.T) {
	t.Run("returns context and categories", func(t *testing.T) {
		catalog := NewMockCatalog()
		router := setupTestRouter(catalog)

		w := doJSON(router, "POST", "/api/v1/extract",
			`{"html":"<html></html>","pageUrl":"https://shop.example/p/1","topK":5}`)

		require.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Context    domain.CandidateContext `json:"context"`
			Categories []string                `json:"categories"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, []string{"Cordless Drill"}, response.Context.TitleCandidates)
		assert.Equal(t, []string{"Hardware > Power Tools"}, response.Categories)
		assert.Equal(t, "https://shop.example/p/1", catalog.lastPageURL)
		assert.Equal(t, 5, catalog.lastTopK)
	})

	t.Run("rejects bad bodies", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{name: "malformed json", body: `{"html":`},
			{name: "missing html", body: `{"pageUrl":"https://shop.example"}`},
			{name: "negative topK", body: `{"html":"<p></p>","topK":-1}`},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				router := setupTestRouter(NewMockCatalog())

				w := doJSON(router, "POST", "/api/v1/extract", tt.body)

				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), "invalid request body")
			})
		}
	})
}

func TestIngestEndpoint(t *testing.T) {
	catalog := NewMockCatalog()
	router := setupTestRouter(catalog)

	w := doJSON(router, "POST", "/api/v1/products", `{"html":"<html></html>","pageUrl":"https://shop.example/p/1"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var response struct {
		ID      string         `json:"id"`
		Product domain.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "abc123", response.ID)
	assert.Equal(t, "Cordless Drill", response.Product.Name)
	assert.Equal(t, "<html></html>", catalog.lastHTML)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid request", err: domain.ErrInvalidRequest, wantStatus: http.StatusBadRequest},
		{name: "not found", err: domain.ErrProductNotFound, wantStatus: http.StatusNotFound},
		{name: "schema validation", err: fmt.Errorf("%w: bad category", domain.ErrSchemaValidation), wantStatus: http.StatusUnprocessableEntity},
		{name: "rate limited", err: domain.ErrRateLimited, wantStatus: http.StatusTooManyRequests},
		{name: "generator unavailable", err: domain.ErrGeneratorUnavailable, wantStatus: http.StatusServiceUnavailable},
		{name: "generation failed", err: fmt.Errorf("%w: status 500", domain.ErrGenerationFailed), wantStatus: http.StatusBadGateway},
		{name: "deadline", err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout},
		{name: "unknown", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := NewMockCatalog()
			catalog.err = tt.err
			router := setupTestRouter(catalog)

			w := doJSON(router, "POST", "/api/v1/products", `{"html":"<p></p>"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.err.Error(), response.Error)
		})
	}
}

func TestProductEndpoints(t *testing.T) {
	catalog := NewMockCatalog()
	catalog.products["p1"] = &domain.Product{Name: "Floor Lamp", Brand: "Article"}
	router := setupTestRouter(catalog)

	t.Run("lists products", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/products", "")

		require.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Products []domain.ProductSummary `json:"products"`
			Count    int                     `json:"count"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 1, response.Count)
		assert.Equal(t, "p1", response.Products[0].ID)
	})

	t.Run("gets one product", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/products/p1", "")

		require.Equal(t, http.StatusOK, w.Code)
		var product domain.Product
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &product))
		assert.Equal(t, "Floor Lamp", product.Name)
	})

	t.Run("unknown product is 404", func(t *testing.T) {
		w := doJSON(router, "GET", "/api/v1/products/nope", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestIdentityEndpoints(t *testing.T) {
	t.Run("resolves posted records", func(t *testing.T) {
		catalog := NewMockCatalog()
		router := setupTestRouter(catalog)

		w := doJSON(router, "POST", "/api/v1/identity/resolve",
			`{"products":{"a":{"name":"Drill","brand":"DeWalt"},"b":{"name":"Drill","brand":"DeWalt"}}}`)

		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, catalog.resolved, 2)
		assert.Equal(t, "DeWalt", catalog.resolved["a"].Brand)
	})

	t.Run("requires products", func(t *testing.T) {
		router := setupTestRouter(NewMockCatalog())

		w := doJSON(router, "POST", "/api/v1/identity/resolve", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("resolves the stored catalog", func(t *testing.T) {
		catalog := NewMockCatalog()
		catalog.products["p1"] = &domain.Product{Name: "Floor Lamp"}
		router := setupTestRouter(catalog)

		w := doJSON(router, "POST", "/api/v1/identity/resolve-catalog", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Floor Lamp")
	})
}

func TestMetricsEndpoint(t *testing.T) {
	recorder := metrics.NewRecorder()
	router := SetupRouter(testConfig(), NewHandler(NewMockCatalog(), zerolog.Nop()), recorder, zerolog.Nop())

	doJSON(router, "GET", "/health", "")
	w := doJSON(router, "GET", "/metrics", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `shelfsense_http_requests_total{method="GET",route="/health",status="200"} 1`)
}
