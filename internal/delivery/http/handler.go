package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/shelfsense/backend/internal/domain"
	"github.com/shelfsense/backend/internal/usecase"
)

// maxBodyBytes bounds request bodies; product pages are rarely above a few MB
const maxBodyBytes = 16 << 20

// CatalogUsecase is the catalog pipeline the handlers drive
type CatalogUsecase interface {
	Extract(ctx context.Context, html, pageURL string, topK int) (*usecase.Extraction, error)
	Ingest(ctx context.Context, html, pageURL string) (string, *domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context) ([]domain.ProductSummary, error)
	Resolve(records map[string]*domain.Product) (map[string]*domain.Product, error)
	ResolveCatalog(ctx context.Context) (map[string]*domain.Product, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog CatalogUsecase
	logger  zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(catalog CatalogUsecase, logger zerolog.Logger) *Handler {
	return &Handler{
		catalog: catalog,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

// ExtractRequest is the body of the extract and ingest endpoints
type ExtractRequest struct {
	HTML    string `json:"html" binding:"required"`
	PageURL string `json:"pageUrl"`
	TopK    int    `json:"topK" binding:"gte=0,lte=200"`
}

// ResolveRequest is the body of the identity resolve endpoint
type ResolveRequest struct {
	Products map[string]*domain.Product `json:"products" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "shelfsense-backend",
		"version": "1.0.0",
	})
}

// Extract runs signal extraction and category ranking without generation
func (h *Handler) Extract(c *gin.Context) {
	var req ExtractRequest
	if !h.bind(c, &req) {
		return
	}

	extraction, err := h.catalog.Extract(c.Request.Context(), req.HTML, req.PageURL, req.TopK)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, extraction)
}

// IngestProduct assembles a product from a page and stores it
func (h *Handler) IngestProduct(c *gin.Context) {
	var req ExtractRequest
	if !h.bind(c, &req) {
		return
	}

	id, product, err := h.catalog.Ingest(c.Request.Context(), req.HTML, req.PageURL)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      id,
		"product": product,
	})
}

// ListProducts returns summaries of all stored products
func (h *Handler) ListProducts(c *gin.Context) {
	summaries, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": summaries,
		"count":    len(summaries),
	})
}

// GetProduct returns one stored product
func (h *Handler) GetProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// ResolveIdentities assigns canonical ids across the posted records
func (h *Handler) ResolveIdentities(c *gin.Context) {
	var req ResolveRequest
	if !h.bind(c, &req) {
		return
	}

	resolved, err := h.catalog.Resolve(req.Products)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": resolved})
}

// ResolveCatalog recomputes canonical ids for every stored product
func (h *Handler) ResolveCatalog(c *gin.Context) {
	resolved, err := h.catalog.ResolveCatalog(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": resolved})
}

func (h *Handler) bind(c *gin.Context, req any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// respondError maps domain errors to status codes
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSchemaValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGeneratorUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrGenerationFailed):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	event := h.logger.Warn()
	if status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).Int("status", status).Str("path", c.FullPath()).Msg("request failed")

	c.JSON(status, ErrorResponse{Error: err.Error()})
}
