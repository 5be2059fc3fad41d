package server

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/errors"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError derives status and body from an *errors.AppError. A
// cancelled or timed-out request context answers 499 or 504; anything else
// is a generic 500.
func RespondWithError(c *gin.Context, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.JSON(status, appErr.ToResponse())
		return
	}
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errors.New(errors.ErrCodeUnknown, "request timed out", http.StatusGatewayTimeout).ToResponse())
	case stderrors.Is(err, context.Canceled):
		c.JSON(499, errors.New(errors.ErrCodeUnknown, "request cancelled", 499).ToResponse())
	default:
		c.JSON(http.StatusInternalServerError, errors.Internal("", err).ToResponse())
	}
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondMultiStatus sends a 207 response wrapping data, for batches with
// mixed outcomes.
func RespondMultiStatus(c *gin.Context, data any) {
	c.JSON(http.StatusMultiStatus, DataResponse{Data: data})
}
