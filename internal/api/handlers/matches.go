package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"planmatch-backend/internal/api/dto"
	"planmatch-backend/internal/api/middleware"
	"planmatch-backend/internal/application/matching"
	"planmatch-backend/internal/domain/match"
	"planmatch-backend/internal/infrastructure/storage"
)

// MatchesHandler exposes the match lifecycle over HTTP.
type MatchesHandler struct {
	service *matching.Service
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(service *matching.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

// Pending handles GET /api/matches/pending - the review queue.
func (h *MatchesHandler) Pending(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 50)

	pending, err := h.service.GetPendingMatches(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	c.JSON(http.StatusOK, dto.PendingMatchListResponse{Pending: pending, Count: len(pending)})
}

// Confirm handles POST /api/matches/confirm - accept a suggestion.
func (h *MatchesHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	method := match.Method(req.Method)
	if req.Method == "" {
		method = match.MethodAutoReviewed
	}
	if !method.Valid() {
		c.JSON(http.StatusBadRequest, dto.BadRequestError("unknown match method "+req.Method))
		return
	}

	m, err := h.service.ConfirmMatch(c.Request.Context(), middleware.UserID(c),
		req.TransactionID, req.OccurrenceID, req.Confidence, method)
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMatchResponse(m))
}

// Auto handles POST /api/matches/auto/:transactionId - single auto-match.
func (h *MatchesHandler) Auto(c *gin.Context) {
	result, err := h.service.AutoMatch(c.Request.Context(), middleware.UserID(c), c.Param("transactionId"))
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	c.JSON(http.StatusOK, result)
}

// BatchAuto handles POST /api/matches/auto-batch - auto-match a set of
// transactions, tolerating per-item failures.
func (h *MatchesHandler) BatchAuto(c *gin.Context) {
	var req dto.BatchAutoMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	result, err := h.service.BatchAutoMatch(c.Request.Context(), middleware.UserID(c), req.TransactionIDs)
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Manual handles POST /api/matches/manual - explicit user override.
func (h *MatchesHandler) Manual(c *gin.Context) {
	var req dto.ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	m, err := h.service.ManualMatch(c.Request.Context(), middleware.UserID(c), req.TransactionID, req.OccurrenceID)
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMatchResponse(m))
}

// Dismiss handles POST /api/matches/dismiss - suppress a suggestion.
func (h *MatchesHandler) Dismiss(c *gin.Context) {
	var req dto.DismissMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	err := h.service.DismissMatch(c.Request.Context(), middleware.UserID(c), req.TransactionID, req.OccurrenceID)
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// Unmatch handles DELETE /api/matches/:id - remove a match record.
func (h *MatchesHandler) Unmatch(c *gin.Context) {
	err := h.service.Unmatch(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// History handles GET /api/matches/history - paginated past matches.
func (h *MatchesHandler) History(c *gin.Context) {
	filters := storage.HistoryFilters{
		Limit:  parseIntQuery(c, "limit", 50),
		Offset: parseIntQuery(c, "offset", 0),
	}

	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid start_date, want YYYY-MM-DD"))
			return
		}
		filters.StartDate = t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.BadRequestError("invalid end_date, want YYYY-MM-DD"))
			return
		}
		// Inclusive end-of-day bound.
		filters.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}

	history, err := h.service.GetMatchHistory(c.Request.Context(), middleware.UserID(c), filters)
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	resp := dto.HistoryResponse{
		Items:  make([]dto.MatchResponse, 0, len(history.Items)),
		Total:  history.Total,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}
	for i := range history.Items {
		resp.Items = append(resp.Items, dto.ToMatchResponse(&history.Items[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// Stats handles GET /api/matches/stats - aggregate match counts.
func (h *MatchesHandler) Stats(c *gin.Context) {
	stats, err := h.service.GetMatchStats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		status, apiErr := dto.FromDomainError(err)
		c.JSON(status, apiErr)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(c *gin.Context, name string, defaultVal int) int {
	val := c.Query(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
