package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fleet-report-builder/internal/artifact"
	"fleet-report-builder/internal/model"
)

func artifactResponse(a *model.GeneratedArtifact) gin.H {
	resp := gin.H{
		"id":        a.ID,
		"title":     a.Title,
		"fileName":  a.FileName,
		"mimeType":  a.MimeType,
		"size":      a.Size,
		"createdAt": a.CreatedAt,
		"url":       "/api/artifacts/" + a.ID.String(),
	}
	if a.ReportID != nil {
		resp["reportId"] = *a.ReportID
	}
	return resp
}

func (h *Handler) lookupArtifact(c *gin.Context) (*model.GeneratedArtifact, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.handleError(c, fmt.Errorf("%w: %s", artifact.ErrNotFound, c.Param("id")))
		return nil, false
	}
	a, err := h.deps.Artifacts.Get(id)
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}
	return a, true
}

// GetArtifact serves the artifact bytes inline, or as an attachment with
// ?download=1.
func (h *Handler) GetArtifact(c *gin.Context) {
	a, ok := h.lookupArtifact(c)
	if !ok {
		return
	}
	disposition := "inline"
	if c.Query("download") != "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, a.FileName))
	c.Data(http.StatusOK, a.MimeType, a.Bytes)
}

func (h *Handler) DeleteArtifact(c *gin.Context) {
	a, ok := h.lookupArtifact(c)
	if !ok {
		return
	}
	h.deps.Artifacts.Release(a)
	c.Status(http.StatusNoContent)
}
