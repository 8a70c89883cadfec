package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"harambee-pay/internal/models"
	"harambee-pay/internal/service"
)

type EventHandler struct {
	events        *service.EventService
	contributions *service.ContributionService
	logger        *zap.Logger
}

func NewEventHandler(events *service.EventService, contributions *service.ContributionService, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		events:        events,
		contributions: contributions,
		logger:        logger,
	}
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req models.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.events.Create(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("failed to create event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// ListEvents handles GET /api/v1/events
func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.events.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

// GetEvent handles GET /api/v1/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	event, err := h.events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to get event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get event"})
		return
	}
	if event == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"event":            event,
		"progress_percent": event.ProgressPercent(),
	})
}

// ListEventContributions handles GET /api/v1/events/:id/contributions
func (h *EventHandler) ListEventContributions(c *gin.Context) {
	contributions, err := h.contributions.ListCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list contributions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list contributions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributions": contributions})
}

// AddExpenditure handles POST /api/v1/events/:id/expenditures
func (h *EventHandler) AddExpenditure(c *gin.Context) {
	var req models.ExpenditureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.events.AddExpenditure(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		h.logger.Error("failed to add expenditure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add expenditure"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expenditure": exp})
}

// ListExpenditures handles GET /api/v1/events/:id/expenditures
func (h *EventHandler) ListExpenditures(c *gin.Context) {
	expenditures, err := h.events.ListExpenditures(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to list expenditures", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list expenditures"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expenditures": expenditures})
}

// ExpenditureSummary handles GET /api/v1/events/:id/expenditures/summary
func (h *EventHandler) ExpenditureSummary(c *gin.Context) {
	summary, err := h.events.ExpenditureSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		h.logger.Error("failed to build expenditure summary", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build summary"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
