package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grader-api/internal/models"
	"github.com/noah-isme/grader-api/internal/service"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
	"github.com/noah-isme/grader-api/pkg/response"
)

type gradingService interface {
	LoadSession(ctx context.Context, rc models.RequestContext, activityID, userID string) (*service.GradingSession, error)
	SubmitGrade(ctx context.Context, rc models.RequestContext, req service.SubmitGradeRequest) (*service.SubmitGradeResult, error)
}

// GradingHandler exposes the grading pane endpoints.
type GradingHandler struct {
	grading gradingService
}

// NewGradingHandler constructs handler.
func NewGradingHandler(grading gradingService) *GradingHandler {
	return &GradingHandler{grading: grading}
}

// Session godoc
// @Summary Load the grading pane for one user
// @Tags Grading
// @Produce json
// @Param courseId path string true "Course ID"
// @Param activityId path string true "Activity ID"
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/activities/{activityId}/users/{userId}/grading [get]
func (h *GradingHandler) Session(c *gin.Context) {
	rc := models.ContextFromClaims(claimsFromContext(c), c.Param("courseId"))
	session, err := h.grading.LoadSession(c.Request.Context(), rc, c.Param("activityId"), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Submit godoc
// @Summary Submit a grade for one user
// @Tags Grading
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param activityId path string true "Activity ID"
// @Param userId path string true "User ID"
// @Param payload body service.SubmitGradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/activities/{activityId}/users/{userId}/grading [post]
func (h *GradingHandler) Submit(c *gin.Context) {
	var req service.SubmitGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.ActivityID = c.Param("activityId")
	req.UserID = c.Param("userId")

	rc := models.ContextFromClaims(claimsFromContext(c), c.Param("courseId"))
	result, err := h.grading.SubmitGrade(c.Request.Context(), rc, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if len(result.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	response.JSON(c, status, result, nil)
}
