package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-report-builder/internal/dispatch"
	"fleet-report-builder/internal/errs"
	"fleet-report-builder/internal/model"
	"fleet-report-builder/internal/mw"
	"fleet-report-builder/internal/report"
	"fleet-report-builder/internal/wizard"
)

// CreateWizard starts a wizard at the reports home and loads the owner's
// report list.
func (h *Handler) CreateWizard(c *gin.Context) {
	principal, ok := mw.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	ctrl := wizard.New(principal, h.deps)
	if err := ctrl.Board().Refresh(c.Request.Context()); err != nil {
		h.log.Warn().Err(err).Str("owner", principal.OwnerID).Msg("initial report list failed to load")
	}
	h.sessions.Add(ctrl)
	c.JSON(http.StatusCreated, ctrl.View())
}

func (h *Handler) wizard(c *gin.Context) (*wizard.Controller, bool) {
	principal, ok := mw.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return nil, false
	}
	ctrl, err := h.sessions.Get(c.Param("id"), principal.OwnerID)
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}
	return ctrl, true
}

func (h *Handler) GetWizard(c *gin.Context) {
	ctrl, ok := h.wizard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.View())
}

func (h *Handler) DeleteWizard(c *gin.Context) {
	ctrl, ok := h.wizard(c)
	if !ok {
		return
	}
	h.sessions.Remove(ctrl)
	c.Status(http.StatusNoContent)
}

// step wraps a wizard operation that only changes state.
func (h *Handler) step(op func(ctrl *wizard.Controller, c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl, ok := h.wizard(c)
		if !ok {
			return
		}
		if err := op(ctrl, c); err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, ctrl.View())
	}
}

func (h *Handler) CreateReport() gin.HandlerFunc {
	return h.step(func(ctrl *wizard.Controller, _ *gin.Context) error {
		return ctrl.CreateReport()
	})
}

func (h *Handler) Back() gin.HandlerFunc {
	return h.step(func(ctrl *wizard.Controller, _ *gin.Context) error {
		return ctrl.Back()
	})
}

func (h *Handler) CloseViewer() gin.HandlerFunc {
	return h.step(func(ctrl *wizard.Controller, _ *gin.Context) error {
		return ctrl.CloseViewer()
	})
}

func (h *Handler) Reload() gin.HandlerFunc {
	return h.step(func(ctrl *wizard.Controller, c *gin.Context) error {
		return ctrl.Reload(c.Request.Context())
	})
}

type selectTypeRequest struct {
	Kind string `json:"kind" binding:"required"`
}

func (h *Handler) SelectType() gin.HandlerFunc {
	return h.step(func(ctrl *wizard.Controller, c *gin.Context) error {
		var req selectTypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return errs.Validation("kind")
		}
		return ctrl.SelectType(c.Request.Context(), report.Kind(strings.TrimSpace(req.Kind)))
	})
}

type openReportRequest struct {
	ReportID int64  `json:"reportId" binding:"required"`
	Title    string `json:"title"`
}

func (h *Handler) OpenReport() gin.HandlerFunc {
	return h.step(func(ctrl *wizard.Controller, c *gin.Context) error {
		var req openReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return errs.Validation("reportId")
		}
		_, err := ctrl.OpenReport(c.Request.Context(), req.ReportID, req.Title)
		return err
	})
}

type downloadRequest struct {
	Format string `json:"format"`
}

// Download fetches the open report in another format and registers it as
// an artifact.
func (h *Handler) Download(c *gin.Context) {
	ctrl, ok := h.wizard(c)
	if !ok {
		return
	}
	var req downloadRequest
	_ = c.ShouldBindJSON(&req)
	if req.Format == "" {
		req.Format = c.Query("format")
	}
	format, valid := model.ParseFormat(strings.ToLower(req.Format))
	if !valid {
		h.handleError(c, errs.Validation("format"))
		return
	}

	a, err := ctrl.Download(c.Request.Context(), format)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, artifactResponse(a))
}

type attemptResponse struct {
	State    dispatch.State   `json:"state"`
	History  []dispatch.State `json:"history"`
	Artifact gin.H            `json:"artifact,omitempty"`
	Error    string           `json:"error,omitempty"`
	Fields   []string         `json:"fields,omitempty"`
}

// Submit generates the configured report.
func (h *Handler) Submit(c *gin.Context) {
	ctrl, ok := h.wizard(c)
	if !ok {
		return
	}
	attempt, err := ctrl.Submit(c.Request.Context())
	if attempt == nil {
		h.handleError(c, err)
		return
	}

	resp := attemptResponse{State: attempt.State, History: attempt.History}
	if attempt.Artifact != nil {
		resp.Artifact = artifactResponse(attempt.Artifact)
	}
	if err != nil {
		status := statusFor(err)
		resp.Error = h.logFailure(c, status, err)
		resp.Fields = errs.Fields(err)
		c.JSON(status, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Objects(c *gin.Context) {
	ctrl, ok := h.wizard(c)
	if !ok {
		return
	}
	listing, err := ctrl.Objects()
	if err != nil {
		h.handleError(c, err)
		return
	}
	view := ctrl.View()
	c.JSON(http.StatusOK, gin.H{"groups": listing, "selected": view.Selected})
}

type selectionRequest struct {
	Scope    string `json:"scope" binding:"required"`
	ID       int64  `json:"id"`
	Selected bool   `json:"selected"`
}

// Selection applies one selection change: scope "all", "group" or
// "tracker".
func (h *Handler) Selection() gin.HandlerFunc {
	return h.step(func(ctrl *wizard.Controller, c *gin.Context) error {
		var req selectionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return errs.Validation("scope")
		}
		switch req.Scope {
		case "all":
			return ctrl.SelectAll(req.Selected)
		case "group":
			return ctrl.SelectGroup(req.ID, req.Selected)
		case "tracker":
			return ctrl.Toggle(req.ID, req.Selected)
		default:
			return errs.Validation("scope")
		}
	})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	ctrl, ok := h.wizard(c)
	if !ok {
		return
	}
	var req wizard.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings, err := ctrl.UpdateSettings(req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) Reports(c *gin.Context) {
	ctrl, ok := h.wizard(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.Reports())
}
