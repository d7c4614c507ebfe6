package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/relay-chat/internal/handlers/dto"
	"github.com/thereayou/relay-chat/internal/services"
)

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders the last error attached to the context as an
// ErrorResponse. Internal details are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		kind := services.KindOf(err)
		status := statusFor(kind)
		body := dto.ErrorResponse{
			Timestamp: time.Now().UTC(),
			Status:    status,
			Error:     http.StatusText(status),
			Message:   "internal server error",
			Path:      c.Request.URL.Path,
		}

		var svcErr *services.Error
		if kind != services.KindInternal && errors.As(err, &svcErr) {
			body.Message = svcErr.Message
			body.Field = svcErr.Field
		} else {
			log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		}

		c.JSON(status, body)
	}
}

// WriteError renders a status that is not part of the service error taxonomy.
func WriteError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request.URL.Path,
	})
}
