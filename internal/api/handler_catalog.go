package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleet-report-builder/internal/mw"
)

// GetReportTypes lists the supported report variants.
func (h *Handler) GetReportTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.deps.Catalog.Types())
}

// GetSubmissions lists the caller's recent submissions.
func (h *Handler) GetSubmissions(c *gin.Context) {
	principal, ok := mw.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.store.ListSubmissions(c.Request.Context(), principal.OwnerID, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Health reports liveness and database reachability.
func (h *Handler) Health(c *gin.Context) {
	status := gin.H{"status": "ok", "wizards": h.sessions.Len()}
	if h.store != nil {
		sqlDB, err := h.store.DB().DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			h.log.Warn().Err(err).Msg("database ping failed")
			status["status"] = "degraded"
			status["database"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
	}
	c.JSON(http.StatusOK, status)
}
