package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tasktrack/backend/internal/apperrors"
	"tasktrack/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AnalyticsHandler struct {
	db        *gorm.DB
	analytics services.AnalyticsService
}

func NewAnalyticsHandler(db *gorm.DB, analytics services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{db: db, analytics: analytics}
}

func (h *AnalyticsHandler) Overview(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	stats, err := h.analytics.Overview(h.db, userID, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, stats)
}

func (h *AnalyticsHandler) CompletionRates(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	period, ok := periodParam(c, services.DefaultSeriesPeriodDays)
	if !ok {
		return
	}

	points, err := h.analytics.CompletionRateSeries(h.db, userID, period, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, points)
}

func (h *AnalyticsHandler) OverdueTasks(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	report, err := h.analytics.OverdueBreakdown(h.db, userID, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, report)
}

func (h *AnalyticsHandler) Productivity(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	period, ok := periodParam(c, services.DefaultProductivityPeriodDays)
	if !ok {
		return
	}

	stats, err := h.analytics.Productivity(h.db, userID, period, time.Now().UTC())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, stats)
}

func (h *AnalyticsHandler) Categories(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	rollup, err := h.analytics.CategoryRollup(h.db, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondData(c, http.StatusOK, rollup)
}

func periodParam(c *gin.Context, defaultDays int) (int, bool) {
	raw := c.Query("period")
	if raw == "" {
		return defaultDays, true
	}

	period, err := strconv.Atoi(raw)
	if err != nil || period < 1 {
		respondServiceError(c, apperrors.NewValidationError("period", "must be a positive integer"))
		return 0, false
	}
	return period, true
}
