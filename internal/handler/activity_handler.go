package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grader-api/internal/models"
	"github.com/noah-isme/grader-api/internal/service"
	"github.com/noah-isme/grader-api/pkg/response"
)

// ActivityHandler exposes gradable activity endpoints.
type ActivityHandler struct {
	activities *service.ActivityService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(activities *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List gradable activities in a course
// @Tags Activities
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	rc := models.ContextFromClaims(claimsFromContext(c), c.Param("courseId"))
	activities, err := h.activities.ListGradable(c.Request.Context(), rc)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

// Report godoc
// @Summary Per-user grading report for an activity
// @Tags Activities
// @Produce json
// @Param courseId path string true "Course ID"
// @Param activityId path string true "Activity ID"
// @Param needsGrading query bool false "Only users still needing a grade"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/activities/{activityId}/report [get]
func (h *ActivityHandler) Report(c *gin.Context) {
	rc := models.ContextFromClaims(claimsFromContext(c), c.Param("courseId"))
	needsGrading := c.Query("needsGrading") == "true"
	rows, err := h.activities.GradingReport(c.Request.Context(), rc, c.Param("activityId"), needsGrading)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}
