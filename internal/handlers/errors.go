package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/signalrank/internal/ranking"
	"github.com/temcen/signalrank/internal/repository"
	"github.com/temcen/signalrank/internal/services"
)

type apiError struct {
	status  int
	code    string
	message string
}

func classify(err error) apiError {
	switch {
	case errors.Is(err, ranking.ErrInvalidConfiguration), errors.Is(err, ranking.ErrInvalidInput):
		return apiError{http.StatusBadRequest, "INVALID_RANKING_CONFIG", err.Error()}
	case errors.Is(err, repository.ErrNotFound):
		return apiError{http.StatusNotFound, "ENTITY_NOT_FOUND", "Entity not found"}
	case errors.Is(err, services.ErrEntityInactive):
		return apiError{http.StatusConflict, "ENTITY_INACTIVE", "Entity is inactive"}
	case errors.Is(err, repository.ErrConflict):
		return apiError{http.StatusConflict, "ENTITY_EXISTS", "Entity already exists"}
	case errors.Is(err, ranking.ErrAllSignalsFailed):
		return apiError{http.StatusUnprocessableEntity, "ALL_SIGNALS_FAILED", "No signal source could score the candidates"}
	default:
		return apiError{http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"}
	}
}

// writeError maps service errors onto the API error envelope.
func writeError(c *gin.Context, logger *logrus.Logger, err error, action string) {
	e := classify(err)

	entry := logger.WithError(err).WithField("path", c.FullPath())
	if e.status >= http.StatusInternalServerError {
		entry.Error(action)
	} else {
		entry.Warn(action)
	}

	c.JSON(e.status, gin.H{
		"error": gin.H{
			"code":    e.code,
			"message": e.message,
		},
	})
}

func badRequest(c *gin.Context, code, message string, err error) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": body})
}
