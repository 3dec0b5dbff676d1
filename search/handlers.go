package search

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler handles search HTTP requests.
type Handler struct {
	store        *Store
	queryLimiter *rateLimiter
}

// NewHandler creates a new search handler.
// The query endpoint is rate-limited to 30 requests per IP per minute.
func NewHandler(store *Store) *Handler {
	return &Handler{
		store:        store,
		queryLimiter: newRateLimiter(30, time.Minute),
	}
}

// Close stops the handler's background work.
func (h *Handler) Close() {
	h.queryLimiter.close()
}

// Input validation limits for the query endpoint.
const (
	maxQueryLen  = 256
	defaultLimit = 20
	maxLimit     = 50
)

// QueryResponse is the JSON response for the query endpoint.
type QueryResponse struct {
	Query   string   `json:"query"`
	Count   int      `json:"count"`
	Results []Result `json:"results"`
}

// Query answers a search query as JSON.
func (h *Handler) Query(c echo.Context) error {
	// Rate limit by IP to keep expensive FTS queries in check.
	if !h.queryLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}

	q := strings.TrimSpace(c.QueryParam("q"))
	if len(q) > maxQueryLen {
		return c.String(http.StatusBadRequest, "Query too long")
	}

	limit := defaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.String(http.StatusBadRequest, "Invalid limit")
		}
		if n > maxLimit {
			n = maxLimit
		}
		limit = n
	}

	results, err := h.store.Query(q, limit)
	if err != nil {
		c.Logger().Errorf("Search query failed: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if results == nil {
		results = []Result{}
	}

	return c.JSON(http.StatusOK, QueryResponse{
		Query:   q,
		Count:   len(results),
		Results: results,
	})
}

// RegisterRoutes registers search routes with the Echo router.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/search", h.Query)
}
