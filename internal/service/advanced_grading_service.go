package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/grader-api/internal/models"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
)

type advancedGradingRepo interface {
	FindDefinition(ctx context.Context, activityID string) (*models.AdvancedDefinition, error)
	FindInstance(ctx context.Context, id string) (*models.AdvancedInstance, error)
	FindCurrentInstance(ctx context.Context, definitionID, graderID, itemID string) (*models.AdvancedInstance, error)
	CreateInstance(ctx context.Context, definitionID, graderID, itemID string) (*models.AdvancedInstance, error)
	SaveInstance(ctx context.Context, id string, filling json.RawMessage, rawScore float64, itemID string) error
}

// AdvancedGradingService fronts the host's rubric/guide/checklist engines.
// It stores instances and converts their scored range into the activity's
// grade range; the structured scoring itself belongs to the host forms.
type AdvancedGradingService struct {
	repo   advancedGradingRepo
	logger *zap.Logger
}

// NewAdvancedGradingService constructs the service.
func NewAdvancedGradingService(repo advancedGradingRepo, logger *zap.Logger) *AdvancedGradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdvancedGradingService{repo: repo, logger: logger}
}

// Definition returns the activity's advanced grading definition, or nil when
// the activity grades without an advanced method.
func (s *AdvancedGradingService) Definition(ctx context.Context, activityID string) (*models.AdvancedDefinition, error) {
	definition, err := s.repo.FindDefinition(ctx, activityID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advanced grading definition")
	}
	return definition, nil
}

// FormAvailable reports whether the configured advanced form is usable. An
// incomplete definition surfaces as AdvancedFormUnavailable so the pane can
// downgrade to manual entry with a warning.
func (s *AdvancedGradingService) FormAvailable(definition *models.AdvancedDefinition) error {
	if definition == nil {
		return nil
	}
	if !definition.Complete {
		return appErrors.Clone(appErrors.ErrAdvancedFormUnavailable, "")
	}
	return nil
}

// GetOrCreateInstance resolves the grading instance for one grader and grade
// record. A supplied instance id wins when it belongs to the same definition;
// otherwise the grader's current instance is reused or a fresh one created.
func (s *AdvancedGradingService) GetOrCreateInstance(ctx context.Context, definition *models.AdvancedDefinition, instanceID, graderID, itemID string) (*models.AdvancedInstance, error) {
	if definition == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity has no advanced grading method")
	}

	if instanceID != "" {
		instance, err := s.repo.FindInstance(ctx, instanceID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advanced grading instance")
		}
		if instance != nil && instance.DefinitionID == definition.ID {
			return instance, nil
		}
	}

	instance, err := s.repo.FindCurrentInstance(ctx, definition.ID, graderID, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load advanced grading instance")
	}
	if instance != nil {
		return instance, nil
	}

	instance, err = s.repo.CreateInstance(ctx, definition.ID, graderID, itemID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create advanced grading instance")
	}
	return instance, nil
}

// SubmitAndGetGrade stores the submitted form filling against the instance
// and maps the filled score proportionally into the activity grade range.
func (s *AdvancedGradingService) SubmitAndGetGrade(ctx context.Context, definition *models.AdvancedDefinition, instance *models.AdvancedInstance, filling json.RawMessage, itemID string, scale models.GradeScale) (int, error) {
	score, err := scoreFromFilling(filling)
	if err != nil {
		return 0, err
	}
	if score < definition.MinScore || score > definition.MaxScore {
		return 0, appErrors.Clone(appErrors.ErrGradeOutOfRange, "advanced grading score is outside the form range")
	}

	if err := s.repo.SaveInstance(ctx, instance.ID, filling, score, itemID); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save advanced grading instance")
	}

	span := definition.MaxScore - definition.MinScore
	if span <= 0 {
		return models.NoGrade, nil
	}
	proportion := (score - definition.MinScore) / span
	if scale.Kind == models.KindScale {
		// Scale grades index labels from 1; a zero proportion maps to the lowest label.
		grade := roundHalfUp(proportion*float64(scale.Max-1)) + 1
		return grade, nil
	}
	return roundHalfUp(proportion * float64(scale.Max)), nil
}

type advancedFilling struct {
	Criteria []struct {
		CriterionID string  `json:"criterion_id"`
		Score       float64 `json:"score"`
	} `json:"criteria"`
}

func scoreFromFilling(filling json.RawMessage) (float64, error) {
	if len(filling) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "advanced grading filling is empty")
	}
	var parsed advancedFilling
	if err := json.Unmarshal(filling, &parsed); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid advanced grading filling")
	}
	if len(parsed.Criteria) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "advanced grading filling has no criteria")
	}
	var total float64
	for _, criterion := range parsed.Criteria {
		total += criterion.Score
	}
	return total, nil
}
