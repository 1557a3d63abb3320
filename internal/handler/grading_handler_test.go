package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grader-api/internal/middleware"
	"github.com/noah-isme/grader-api/internal/models"
	"github.com/noah-isme/grader-api/internal/service"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
)

type gradingServiceMock struct {
	session    *service.GradingSession
	sessionErr error
	result     *service.SubmitGradeResult
	submitErr  error
	lastReq    service.SubmitGradeRequest
	lastRC     models.RequestContext
}

func (m *gradingServiceMock) LoadSession(ctx context.Context, rc models.RequestContext, activityID, userID string) (*service.GradingSession, error) {
	m.lastRC = rc
	return m.session, m.sessionErr
}

func (m *gradingServiceMock) SubmitGrade(ctx context.Context, rc models.RequestContext, req service.SubmitGradeRequest) (*service.SubmitGradeResult, error) {
	m.lastRC = rc
	m.lastReq = req
	return m.result, m.submitErr
}

func newGradingContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func gradingParams() gin.Params {
	return gin.Params{
		{Key: "courseId", Value: "course-1"},
		{Key: "activityId", Value: "act-1"},
		{Key: "userId", Value: "student-1"},
	}
}

func TestGradingHandlerSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gradingServiceMock{
		session: &service.GradingSession{
			Activity:     &models.Activity{ID: "act-1", GradeField: 20},
			Scale:        models.GradeScale{Kind: models.KindNumeric, Max: 20},
			CurrentGrade: 17,
		},
	}
	h := NewGradingHandler(mockSvc)

	c, w := newGradingContext(http.MethodGet, "/grading", nil)
	c.Params = gradingParams()
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	h.Session(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "teacher-1", mockSvc.lastRC.GraderID)
	assert.Equal(t, "course-1", mockSvc.lastRC.CourseID)
	assert.True(t, mockSvc.lastRC.TeacherCap)
}

func TestGradingHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gradingServiceMock{
		result: &service.SubmitGradeResult{Applied: 1, Redirect: models.RedirectInstruction{UserID: "student-1"}},
	}
	h := NewGradingHandler(mockSvc)

	payload, _ := json.Marshal(map[string]interface{}{"grade": "17", "save_and_next": true})
	c, w := newGradingContext(http.MethodPost, "/grading", payload)
	c.Params = gradingParams()
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	h.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "act-1", mockSvc.lastReq.ActivityID)
	assert.Equal(t, "student-1", mockSvc.lastReq.UserID)
	assert.Equal(t, "17", mockSvc.lastReq.Grade)
	assert.True(t, mockSvc.lastReq.SaveAndNext)
}

func TestGradingHandlerSubmitPartialFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gradingServiceMock{
		result: &service.SubmitGradeResult{
			Applied:  2,
			Failures: []service.GradeTargetFailure{{UserID: "student-3", Code: "LOCAL_WRITE_FAILED"}},
		},
	}
	h := NewGradingHandler(mockSvc)

	payload, _ := json.Marshal(map[string]interface{}{"grade": "17", "apply_to_group": true})
	c, w := newGradingContext(http.MethodPost, "/grading", payload)
	c.Params = gradingParams()
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	h.Submit(c)
	require.Equal(t, http.StatusMultiStatus, w.Code)
}

func TestGradingHandlerSubmitRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gradingServiceMock{
		submitErr: appErrors.Clone(appErrors.ErrGradeOutOfRange, ""),
	}
	h := NewGradingHandler(mockSvc)

	payload, _ := json.Marshal(map[string]interface{}{"grade": "999"})
	c, w := newGradingContext(http.MethodPost, "/grading", payload)
	c.Params = gradingParams()
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher})

	h.Submit(c)
	require.Equal(t, appErrors.ErrGradeOutOfRange.Status, w.Code)
}

func TestGradingHandlerSubmitInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewGradingHandler(&gradingServiceMock{})

	c, w := newGradingContext(http.MethodPost, "/grading", []byte("{not json"))
	c.Params = gradingParams()

	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
