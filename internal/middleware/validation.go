package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/temcen/signalrank/internal/validation"
)

const maxBodyBytes = 8 << 20

// ValidateBody checks the JSON request body against a schema and restores it
// for the handler. An empty body is validated as an empty object when
// allowEmpty is set.
func ValidateBody(validator *validation.SchemaValidator, schemaName string, allowEmpty bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
		if err != nil {
			sendValidationError(c, http.StatusBadRequest, "BODY_READ_ERROR", "Failed to read request body", nil)
			return
		}
		if len(bodyBytes) > maxBodyBytes {
			sendValidationError(c, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Request body is too large", nil)
			return
		}

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			if !allowEmpty {
				sendValidationError(c, http.StatusBadRequest, "EMPTY_BODY", "Request body is required", nil)
				return
			}
			bodyBytes = []byte("{}")
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		result := validator.ValidateJSON(schemaName, bodyBytes)
		if !result.Valid {
			apiError := result.ToAPIError()
			if errorObj, ok := apiError["error"].(map[string]interface{}); ok {
				errorObj["timestamp"] = time.Now().UTC().Format(time.RFC3339)
				errorObj["requestId"] = RequestIDFromContext(c)
				errorObj["path"] = c.Request.URL.Path
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, apiError)
			return
		}

		c.Next()
	}
}

func sendValidationError(c *gin.Context, status int, code, message string, details map[string]interface{}) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":      code,
			"message":   message,
			"details":   details,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"requestId": RequestIDFromContext(c),
			"path":      c.Request.URL.Path,
		},
	})
}
