package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grader-api/internal/models"
	"github.com/noah-isme/grader-api/internal/service"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
	"github.com/noah-isme/grader-api/pkg/response"
)

type exportJobService interface {
	CreateJob(ctx context.Context, rc models.RequestContext, activityID string, params models.ExportJobParams) (*models.ExportJob, error)
	GetStatus(ctx context.Context, rc models.RequestContext, id string) (*models.ExportJob, error)
	ResolveDownload(ctx context.Context, token string) (*service.ExportDownload, error)
}

// ExportHandler exposes grading export job endpoints.
type ExportHandler struct {
	exports exportJobService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportJobService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CreateExport godoc
// @Summary Queue a grading export for an activity
// @Tags Exports
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param activityId path string true "Activity ID"
// @Param payload body models.ExportJobParams true "Export options"
// @Success 202 {object} response.Envelope
// @Router /courses/{courseId}/activities/{activityId}/exports [post]
func (h *ExportHandler) CreateExport(c *gin.Context) {
	var params models.ExportJobParams
	if err := c.ShouldBindJSON(&params); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rc := models.ContextFromClaims(claimsFromContext(c), c.Param("courseId"))
	job, err := h.exports.CreateJob(c.Request.Context(), rc, c.Param("activityId"), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// ExportStatus godoc
// @Summary Check export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) ExportStatus(c *gin.Context) {
	rc := models.ContextFromClaims(claimsFromContext(c), "")
	job, err := h.exports.GetStatus(c.Request.Context(), rc, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a finished export via its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Download token"
// @Success 200 {file} binary
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close()

	contentType := "text/csv"
	if download.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, download.File); err != nil {
		c.Abort()
	}
}
