package handler

import (
	"net/http"

	"complaintdesk/backend/internal/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorPayload struct {
	Kind    apperrors.Kind `json:"kind"`
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// statusFor maps an error onto an HTTP status. A duplicate active complaint
// is reported as 400 to match what clients already expect.
func statusFor(e *apperrors.Error) int {
	switch e.Kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindConflict:
		if e.Code == apperrors.CodeActiveComplaintExists {
			return http.StatusBadRequest
		}
		return http.StatusConflict
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func errorBody(e *apperrors.Error) gin.H {
	return gin.H{"error": errorPayload{Kind: e.Kind, Code: e.Code, Message: e.Message}}
}

// respondError writes err in the common error shape. Unclassified errors are
// logged and reported as a store failure.
func respondError(c *gin.Context, err error) {
	e, ok := apperrors.As(err)
	if !ok {
		e = apperrors.Transient("request", err)
	}
	status := statusFor(e)
	if status >= http.StatusInternalServerError {
		if l, ok := c.Get(loggerKey); ok {
			l.(*zap.Logger).Error("request failed",
				zap.String("path", c.FullPath()),
				zap.String("request_id", c.GetString("request_id")),
				zap.Error(err),
			)
		}
	}
	c.JSON(status, errorBody(e))
}
