package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet-report-builder/internal/artifact"
	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/store"
	"fleet-report-builder/internal/wizard"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, wizard.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errSessionNotFound), errors.Is(err, artifact.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrNetwork), errors.Is(err, errs.ErrBackend), errors.Is(err, errs.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// logFailure logs server side failures and returns the message shown to
// the client. Configuration and unknown errors are not exposed.
func (h *Handler) logFailure(c *gin.Context, status int, err error) string {
	switch status {
	case http.StatusBadGateway:
		h.log.Warn().Err(err).Str("path", c.FullPath()).Msg("backend request failed")
	case http.StatusInternalServerError:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		return "internal error"
	}
	return err.Error()
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": h.logFailure(c, status, err)}
	if fields := errs.Fields(err); len(fields) > 0 {
		body["fields"] = fields
	}
	c.JSON(status, body)
}
