package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/services"
	"github.com/temcen/signalrank/pkg/models"
)

type RankingHandler struct {
	logger     *logrus.Logger
	rankingSvc services.RankingServiceInterface
	validator  *validator.Validate
}

func NewRankingHandler(logger *logrus.Logger, rankingSvc services.RankingServiceInterface) *RankingHandler {
	return &RankingHandler{
		logger:     logger,
		rankingSvc: rankingSvc,
		validator:  validator.New(),
	}
}

// Rank handles POST /api/v1/rankings/:entityId. An empty body ranks the
// active catalog with the default configuration.
func (h *RankingHandler) Rank(c *gin.Context) {
	entityID := c.Param("entityId")
	if entityID == "" {
		badRequest(c, "INVALID_ENTITY_ID", "Entity ID is required", nil)
		return
	}

	var req models.RankingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WithError(err).Debug("Failed to bind ranking request")
		badRequest(c, "INVALID_REQUEST", "Invalid request format", err)
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		badRequest(c, "VALIDATION_FAILED", "Request validation failed", err)
		return
	}

	list, err := h.rankingSvc.Rank(c.Request.Context(), entityID, &req)
	if err != nil {
		writeError(c, h.logger, err, "Ranking failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": list,
		"meta": gin.H{
			"entity_id":        entityID,
			"count":            len(list.Items),
			"eligible":         list.Eligible,
			"degraded_sources": list.DegradedSources,
		},
	})
}
