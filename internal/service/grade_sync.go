package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grader-api/internal/models"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
)

// saveGrade persists an already-computed grade for one target. The activity
// record is the source of truth and is always written first; the gradebook is
// synchronised afterwards according to its override state.
func (s *GradingService) saveGrade(ctx context.Context, rc models.RequestContext, activity *models.Activity, scale models.GradeScale, info *models.GradingInfo, record *models.UserGradeRecord, override, blind bool) error {
	record.GraderID = rc.GraderID
	record.TimeModified = time.Now().UTC()

	if err := s.grades.UpdateUserGrade(ctx, record); err != nil {
		return appErrors.Wrap(err, appErrors.ErrLocalWriteFailed.Code, appErrors.ErrLocalWriteFailed.Status, appErrors.ErrLocalWriteFailed.Message)
	}

	// With blind marking active no identity may leak into the course
	// gradebook until identities are revealed.
	if blind {
		return nil
	}

	entry := info.Entry(record.UserID)
	if !entry.Overridden {
		payload := models.GradebookPayload{
			UserID:       record.UserID,
			RawGrade:     convertForGradebook(record.Grade),
			UserModified: rc.GraderID,
			DateGraded:   record.TimeModified,
		}
		if err := s.gradebook.UpdateGradeItem(ctx, info.ItemID, payload); err != nil {
			s.logger.Warn("gradebook push failed",
				zap.String("activity_id", activity.ID),
				zap.String("user_id", record.UserID),
				zap.Error(err))
			return appErrors.Clone(appErrors.ErrGradebookSync, "")
		}
		return nil
	}

	// The gradebook entry is overridden: only an explicit override request
	// may touch the final grade.
	if !override {
		return nil
	}

	item, err := s.ensureGradeItem(ctx, activity, scale)
	if err != nil {
		return err
	}
	if err := s.gradebook.UpdateFinalGrade(ctx, item.ID, record.UserID, convertForGradebook(record.Grade), rc.GraderID); err != nil {
		s.logger.Warn("final grade override failed",
			zap.String("activity_id", activity.ID),
			zap.String("user_id", record.UserID),
			zap.Error(err))
		return appErrors.Clone(appErrors.ErrGradebookSync, "")
	}
	return nil
}

// convertForGradebook maps the internal not-graded sentinel to a cleared
// gradebook value.
func convertForGradebook(grade int) *float64 {
	if grade == models.NoGrade {
		return nil
	}
	v := float64(grade)
	return &v
}

// ensureGradeItem fetches the activity's gradebook item, creating it when the
// activity has never been pushed to the gradebook.
func (s *GradingService) ensureGradeItem(ctx context.Context, activity *models.Activity, scale models.GradeScale) (*models.GradeItem, error) {
	item, err := s.gradebook.FetchGradeItem(ctx, activity.CourseID, itemModule(activity), activity.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrGradebookSync.Code, appErrors.ErrGradebookSync.Status, "failed to load grade item")
	}
	if item != nil {
		return item, nil
	}

	spec := models.GradeItemSpec{
		CourseID:   activity.CourseID,
		ItemModule: itemModule(activity),
		ActivityID: activity.ID,
		ItemName:   activity.Name,
		IDNumber:   activity.IDNumber,
	}
	switch scale.Kind {
	case models.KindScale:
		scaleID := activity.ScaleID()
		spec.GradeType = models.GradeItemScale
		spec.ScaleID = &scaleID
		spec.GradeMax = len(scale.Labels)
		spec.GradeMin = 1
	case models.KindNumeric:
		spec.GradeType = models.GradeItemValue
		spec.GradeMax = scale.Max
		spec.GradeMin = 0
	default:
		spec.GradeType = models.GradeItemText
	}

	item, err = s.gradebook.CreateGradeItem(ctx, spec)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrGradebookSync.Code, appErrors.ErrGradebookSync.Status, "failed to create grade item")
	}
	return item, nil
}
