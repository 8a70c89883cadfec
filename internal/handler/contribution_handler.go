package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"harambee-pay/internal/models"
	"harambee-pay/internal/mpesa"
	"harambee-pay/internal/service"
)

type ContributionHandler struct {
	service *service.ContributionService
	logger  *zap.Logger
}

func NewContributionHandler(service *service.ContributionService, logger *zap.Logger) *ContributionHandler {
	return &ContributionHandler{
		service: service,
		logger:  logger,
	}
}

// CreateContribution handles POST /api/v1/contributions
func (h *ContributionHandler) CreateContribution(c *gin.Context) {
	var req models.ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *ContributionHandler) writeCreateError(c *gin.Context, err error) {
	var initErr *mpesa.InitiationError

	switch {
	case errors.Is(err, mpesa.ErrInvalidPhone):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number format"})
	case errors.Is(err, service.ErrEventNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
	case errors.Is(err, service.ErrEventClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "event is not accepting contributions"})
	case errors.As(err, &initErr):
		h.logger.Error("payment initiation failed",
			zap.String("stage", string(initErr.Stage)),
			zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to initiate payment"})
	default:
		h.logger.Error("failed to create contribution", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create contribution"})
	}
}

// GetContribution handles GET /api/v1/contributions/:id
func (h *ContributionHandler) GetContribution(c *gin.Context) {
	contribution, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed to get contribution", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get contribution"})
		return
	}
	if contribution == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "contribution not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contribution": contribution})
}
