package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/grader-api/internal/models"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
)

type activityListRepo interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	ListGradable(ctx context.Context, courseID string) ([]models.Activity, error)
}

type gradeReportRepo interface {
	GradingReport(ctx context.Context, activityID string, needsGradingOnly bool) ([]models.ActivityGradeRow, error)
}

// ActivityService serves the gradable activity list and grading reports.
type ActivityService struct {
	activities activityListRepo
	grades     gradeReportRepo
	logger     *zap.Logger
}

// NewActivityService constructs an ActivityService.
func NewActivityService(activities activityListRepo, grades gradeReportRepo, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{activities: activities, grades: grades, logger: logger}
}

// ListGradable returns the course's activities that accept grades.
func (s *ActivityService) ListGradable(ctx context.Context, rc models.RequestContext) ([]models.Activity, error) {
	if !rc.TeacherCap {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grading requires the teacher capability")
	}
	activities, err := s.activities.ListGradable(ctx, rc.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return activities, nil
}

// GradingReport returns the per-user grading state for one activity,
// optionally restricted to users still needing a grade.
func (s *ActivityService) GradingReport(ctx context.Context, rc models.RequestContext, activityID string, needsGradingOnly bool) ([]models.ActivityGradeRow, error) {
	if !rc.TeacherCap {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grading requires the teacher capability")
	}
	rows, err := s.grades.GradingReport(ctx, activityID, needsGradingOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build grading report")
	}
	return rows, nil
}
