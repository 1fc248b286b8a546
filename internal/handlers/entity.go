package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/services"
	"github.com/temcen/signalrank/pkg/models"
)

type EntityHandler struct {
	logger    *logrus.Logger
	entitySvc services.EntityServiceInterface
	validator *validator.Validate
}

func NewEntityHandler(logger *logrus.Logger, entitySvc services.EntityServiceInterface) *EntityHandler {
	return &EntityHandler{
		logger:    logger,
		entitySvc: entitySvc,
		validator: validator.New(),
	}
}

func (h *EntityHandler) Get(c *gin.Context) {
	entity, err := h.entitySvc.Get(c.Request.Context(), c.Param("entityId"))
	if err != nil {
		writeError(c, h.logger, err, "Failed to get entity")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entity})
}

func (h *EntityHandler) Register(c *gin.Context) {
	var entity models.Entity
	if err := c.ShouldBindJSON(&entity); err != nil {
		badRequest(c, "INVALID_REQUEST", "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(&entity); err != nil {
		badRequest(c, "VALIDATION_FAILED", "Request validation failed", err)
		return
	}

	created, err := h.entitySvc.Register(c.Request.Context(), &entity)
	if err != nil {
		writeError(c, h.logger, err, "Failed to register entity")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":    created,
		"message": "Entity registered successfully",
	})
}

func (h *EntityHandler) UpdatePreferences(c *gin.Context) {
	var update models.PreferenceUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, "INVALID_REQUEST", "Invalid request format", err)
		return
	}
	if err := h.validator.Struct(&update); err != nil {
		badRequest(c, "VALIDATION_FAILED", "Request validation failed", err)
		return
	}

	entity, err := h.entitySvc.UpdatePreferences(c.Request.Context(), c.Param("entityId"), &update)
	if err != nil {
		writeError(c, h.logger, err, "Failed to update preferences")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entity})
}

// ExtractPreferences derives preferences from history. With ?apply=true the
// merged result is stored on the entity.
func (h *EntityHandler) ExtractPreferences(c *gin.Context) {
	apply := false
	if raw := c.Query("apply"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "INVALID_APPLY", "apply must be a boolean", err)
			return
		}
		apply = parsed
	}

	result, err := h.entitySvc.ExtractPreferences(c.Request.Context(), c.Param("entityId"), apply)
	if err != nil {
		writeError(c, h.logger, err, "Failed to extract preferences")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *EntityHandler) Deactivate(c *gin.Context) {
	if err := h.entitySvc.Deactivate(c.Request.Context(), c.Param("entityId")); err != nil {
		writeError(c, h.logger, err, "Failed to deactivate entity")
		return
	}

	c.Status(http.StatusNoContent)
}
