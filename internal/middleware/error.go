package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/optiplus/clinic-api/pkg/errors"
)

// ErrorResponse is the body returned for errors attached to the gin context.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler turns errors collected on the context into a single response,
// mapping application error codes to HTTP statuses.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := http.StatusInternalServerError
		message := "internal server error"
		switch apperrors.CodeOf(err) {
		case apperrors.ErrNotFound:
			status, message = http.StatusNotFound, err.Error()
		case apperrors.ErrValidation:
			status, message = http.StatusBadRequest, err.Error()
		case apperrors.ErrPrecondition:
			status, message = http.StatusConflict, err.Error()
		}

		c.JSON(status, ErrorResponse{
			Code:      status,
			Message:   message,
			RequestID: requestID,
		})
	}
}
