package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grader-api/internal/models"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
)

type activityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

type activityGradeRepo interface {
	GetUserGrade(ctx context.Context, activityID, userID string, createIfMissing bool) (*models.UserGradeRecord, error)
	UpdateUserGrade(ctx context.Context, record *models.UserGradeRecord) error
	NextUngraded(ctx context.Context, activityID, afterUserID string) (string, error)
}

type gradebookRepo interface {
	GradingInfo(ctx context.Context, courseID, itemModule, activityID string, userIDs []string) (*models.GradingInfo, error)
	UpdateGradeItem(ctx context.Context, itemID string, payload models.GradebookPayload) error
	FetchGradeItem(ctx context.Context, courseID, itemModule, activityID string) (*models.GradeItem, error)
	CreateGradeItem(ctx context.Context, spec models.GradeItemSpec) (*models.GradeItem, error)
	UpdateFinalGrade(ctx context.Context, itemID, userID string, grade *float64, graderID string) error
}

type groupReader interface {
	GetSubmissionGroup(ctx context.Context, courseID, userID string) (string, error)
	GetGroupMembers(ctx context.Context, groupID string) ([]string, error)
}

type letterReader interface {
	LoadByCourse(ctx context.Context, courseID string) (models.LetterTable, error)
	FindScale(ctx context.Context, scaleID int) (*models.Scale, error)
}

type advancedGrader interface {
	Definition(ctx context.Context, activityID string) (*models.AdvancedDefinition, error)
	FormAvailable(definition *models.AdvancedDefinition) error
	GetOrCreateInstance(ctx context.Context, definition *models.AdvancedDefinition, instanceID, graderID, itemID string) (*models.AdvancedInstance, error)
	SubmitAndGetGrade(ctx context.Context, definition *models.AdvancedDefinition, instance *models.AdvancedInstance, filling json.RawMessage, itemID string, scale models.GradeScale) (int, error)
}

// SubmitGradeRequest is one user-facing grading action against an activity.
// A manual grade token and an advanced grading submission are mutually
// exclusive paths.
type SubmitGradeRequest struct {
	ActivityID         string          `json:"-" validate:"required"`
	UserID             string          `json:"-" validate:"required"`
	Grade              string          `json:"grade"`
	AdvancedInstanceID string          `json:"advanced_instance_id,omitempty"`
	AdvancedFilling    json.RawMessage `json:"advanced_filling,omitempty"`
	ApplyToGroup       bool            `json:"apply_to_group,omitempty"`
	Override           bool            `json:"override,omitempty"`
	SaveAndNext        bool            `json:"save_and_next,omitempty"`
	NeedsGrading       bool            `json:"needs_grading,omitempty"`
}

// GradeTargetFailure captures one target user's persistence failure.
type GradeTargetFailure struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// SubmitGradeResult summarises a grading batch.
type SubmitGradeResult struct {
	Applied  int                        `json:"applied"`
	Failures []GradeTargetFailure       `json:"failures,omitempty"`
	Redirect models.RedirectInstruction `json:"redirect"`
}

// GradingSession is the loaded grading pane state for one (activity, user).
type GradingSession struct {
	Activity           *models.Activity       `json:"activity"`
	Scale              models.GradeScale      `json:"scale"`
	CurrentGrade       int                    `json:"current_grade"`
	Gradebook          models.GradebookEntry  `json:"gradebook"`
	GradingDisabled    bool                   `json:"grading_disabled"`
	Overridden         bool                   `json:"overridden"`
	NotGraded          bool                   `json:"not_graded"`
	AdvancedMethod     *models.GradingMethod  `json:"advanced_method,omitempty"`
	AdvancedInstanceID string                 `json:"advanced_instance_id,omitempty"`
	NeedsUpdate        bool                   `json:"needs_update,omitempty"`
	Warning            string                 `json:"warning,omitempty"`
	NextUserID         string                 `json:"next_user_id,omitempty"`
	LetterTable        models.LetterTable     `json:"letter_table,omitempty"`
}

// GradingService orchestrates the grading pane: it composes the grade
// parser, target propagation and persistence into one submit operation.
type GradingService struct {
	activities activityReader
	grades     activityGradeRepo
	gradebook  gradebookRepo
	groups     groupReader
	letters    letterReader
	advanced   advancedGrader
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGradingService constructs GradingService.
func NewGradingService(activities activityReader, grades activityGradeRepo, gradebook gradebookRepo, groups groupReader, letters letterReader, advanced advancedGrader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{
		activities: activities,
		grades:     grades,
		gradebook:  gradebook,
		groups:     groups,
		letters:    letters,
		advanced:   advanced,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// LoadSession fetches everything the grading pane needs for one user.
func (s *GradingService) LoadSession(ctx context.Context, rc models.RequestContext, activityID, userID string) (*GradingSession, error) {
	if !rc.TeacherCap {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grading requires the teacher capability")
	}

	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	scale, err := s.gradeScale(ctx, activity)
	if err != nil {
		return nil, err
	}

	record, err := s.grades.GetUserGrade(ctx, activity.ID, userID, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user grade")
	}

	info, err := s.gradebook.GradingInfo(ctx, activity.CourseID, itemModule(activity), activity.ID, []string{userID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook state")
	}
	entry := info.Entry(userID)

	session := &GradingSession{
		Activity:        activity,
		Scale:           scale,
		CurrentGrade:    models.NoGrade,
		Gradebook:       entry,
		GradingDisabled: entry.Locked,
		Overridden:      !entry.Locked && entry.Overridden,
	}
	if record != nil {
		session.CurrentGrade = record.Grade
	}
	session.NotGraded = activity.HasGrading() && (!record.Graded() || entry.Grade == nil)

	if scale.Kind == models.KindNumeric {
		table, err := s.courseLetters(ctx, activity.CourseID)
		if err != nil {
			return nil, err
		}
		session.LetterTable = table
	}

	if err := s.attachAdvanced(ctx, rc, activity, record, session); err != nil {
		return nil, err
	}

	next, err := s.grades.NextUngraded(ctx, activity.ID, userID)
	if err != nil {
		s.logger.Warn("failed to resolve next ungraded user", zap.String("activity_id", activity.ID), zap.Error(err))
	} else {
		session.NextUserID = next
	}

	return session, nil
}

// attachAdvanced resolves the advanced grading state for the session. An
// unavailable form downgrades the pane to manual entry with a warning.
func (s *GradingService) attachAdvanced(ctx context.Context, rc models.RequestContext, activity *models.Activity, record *models.UserGradeRecord, session *GradingSession) error {
	if activity.GradingMethod == nil {
		return nil
	}
	definition, err := s.advanced.Definition(ctx, activity.ID)
	if err != nil {
		return err
	}
	if definition == nil {
		return nil
	}
	session.AdvancedMethod = &definition.Method

	if err := s.advanced.FormAvailable(definition); err != nil {
		session.Warning = appErrors.FromError(err).Message
		return nil
	}
	if session.GradingDisabled && record == nil {
		return nil
	}

	itemID := ""
	if record != nil {
		itemID = record.ID
	}
	instance, err := s.advanced.GetOrCreateInstance(ctx, definition, "", rc.GraderID, itemID)
	if err != nil {
		return err
	}
	session.AdvancedInstanceID = instance.ID
	session.NeedsUpdate = instance.Status == models.AdvancedStatusNeedUpdate
	return nil
}

// SubmitGrade applies one grading action to its propagated target set.
func (s *GradingService) SubmitGrade(ctx context.Context, rc models.RequestContext, req SubmitGradeRequest) (*SubmitGradeResult, error) {
	if !rc.TeacherCap {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "grading requires the teacher capability")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading payload")
	}

	activity, err := s.loadActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if !activity.HasGrading() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "activity is not graded")
	}

	advancedPath := req.AdvancedInstanceID != "" || len(req.AdvancedFilling) > 0
	if advancedPath && strings.TrimSpace(req.Grade) != "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "manual grade and advanced grading submission are mutually exclusive")
	}

	scale, err := s.gradeScale(ctx, activity)
	if err != nil {
		return nil, err
	}

	var definition *models.AdvancedDefinition
	manualGrade := models.NoGrade
	if advancedPath {
		definition, err = s.advanced.Definition(ctx, activity.ID)
		if err != nil {
			return nil, err
		}
		if definition == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "activity has no advanced grading method")
		}
		if err := s.advanced.FormAvailable(definition); err != nil {
			return nil, err
		}
	} else {
		var table models.LetterTable
		if scale.Kind == models.KindNumeric {
			if table, err = s.courseLetters(ctx, activity.CourseID); err != nil {
				return nil, err
			}
		}
		if manualGrade, err = ParseGrade(req.Grade, scale, table); err != nil {
			s.metrics.RecordGradingAction("rejected")
			return nil, err
		}
	}

	targets, err := s.resolveTargets(ctx, activity, req.UserID, req.ApplyToGroup)
	if err != nil {
		return nil, err
	}

	blind := activity.BlindMarking
	override := false
	if !blind {
		override = req.Override || (activity.TeamSubmission && req.ApplyToGroup)
	}

	info, err := s.gradebook.GradingInfo(ctx, activity.CourseID, itemModule(activity), activity.ID, targets)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook state")
	}

	result := &SubmitGradeResult{}
	for _, target := range targets {
		if err := s.gradeTarget(ctx, rc, activity, scale, definition, info, req, target, manualGrade, override, blind); err != nil {
			if errors.Is(err, appErrors.ErrGradebookSync) {
				// Local write already succeeded; report the stale gradebook.
				result.Applied++
			}
			result.Failures = append(result.Failures, GradeTargetFailure{
				UserID: target,
				Code:   appErrors.FromError(err).Code,
				Reason: appErrors.FromError(err).Message,
			})
			continue
		}
		result.Applied++
	}

	result.Redirect = s.redirect(ctx, activity, req)
	s.metrics.RecordGradingAction(outcomeLabel(result))
	return result, nil
}

// gradeTarget computes and persists the grade for a single target user.
// Each target gets its own advanced grading instance even under group
// propagation.
func (s *GradingService) gradeTarget(ctx context.Context, rc models.RequestContext, activity *models.Activity, scale models.GradeScale, definition *models.AdvancedDefinition, info *models.GradingInfo, req SubmitGradeRequest, target string, manualGrade int, override, blind bool) error {
	record, err := s.grades.GetUserGrade(ctx, activity.ID, target, true)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrLocalWriteFailed.Code, appErrors.ErrLocalWriteFailed.Status, appErrors.ErrLocalWriteFailed.Message)
	}

	if definition != nil {
		instanceID := ""
		if target == req.UserID {
			instanceID = req.AdvancedInstanceID
		}
		instance, err := s.advanced.GetOrCreateInstance(ctx, definition, instanceID, rc.GraderID, record.ID)
		if err != nil {
			return err
		}
		grade, err := s.advanced.SubmitAndGetGrade(ctx, definition, instance, req.AdvancedFilling, record.ID, scale)
		if err != nil {
			return err
		}
		record.Grade = grade
	} else {
		record.Grade = manualGrade
	}

	return s.saveGrade(ctx, rc, activity, scale, info, record, override, blind)
}

// resolveTargets decides which users receive the computed grade.
func (s *GradingService) resolveTargets(ctx context.Context, activity *models.Activity, userID string, applyToGroup bool) ([]string, error) {
	if !applyToGroup || !activity.TeamSubmission {
		return []string{userID}, nil
	}

	groupID, err := s.groups.GetSubmissionGroup(ctx, activity.CourseID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve submission group")
	}
	if groupID == "" {
		return []string{userID}, nil
	}

	members, err := s.groups.GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group members")
	}
	if len(members) == 0 {
		return []string{userID}, nil
	}
	return members, nil
}

func (s *GradingService) redirect(ctx context.Context, activity *models.Activity, req SubmitGradeRequest) models.RedirectInstruction {
	redirect := models.RedirectInstruction{
		CourseID:     activity.CourseID,
		ActivityID:   activity.ID,
		UserID:       req.UserID,
		NeedsGrading: req.NeedsGrading,
	}
	if !req.SaveAndNext {
		return redirect
	}
	next, err := s.grades.NextUngraded(ctx, activity.ID, req.UserID)
	if err != nil {
		s.logger.Warn("failed to resolve next ungraded user", zap.String("activity_id", activity.ID), zap.Error(err))
		return redirect
	}
	if next != "" {
		redirect.UserID = next
	}
	return redirect
}

func (s *GradingService) loadActivity(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "activity not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity")
	}
	return activity, nil
}

// gradeScale derives the activity's scale descriptor, resolving scale labels
// through the cache when the activity grades against a scale.
func (s *GradingService) gradeScale(ctx context.Context, activity *models.Activity) (models.GradeScale, error) {
	if !activity.UsesScale() {
		return activity.GradeScale(nil), nil
	}

	key := fmt.Sprintf("grading:scale:%d", activity.ScaleID())
	var labels []string
	if hit, _ := s.cache.Get(ctx, key, &labels); hit && len(labels) > 0 {
		return activity.GradeScale(labels), nil
	}

	scaleRow, err := s.letters.FindScale(ctx, activity.ScaleID())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.GradeScale{}, appErrors.Clone(appErrors.ErrNotFound, "grade scale not found")
		}
		return models.GradeScale{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade scale")
	}
	if err := s.cache.Set(ctx, key, scaleRow.Labels, 0); err != nil {
		s.logger.Warn("failed to cache scale labels", zap.String("key", key), zap.Error(err))
	}
	return activity.GradeScale(scaleRow.Labels), nil
}

// courseLetters loads the course letter table through the cache and rejects
// non-contiguous schemes up front.
func (s *GradingService) courseLetters(ctx context.Context, courseID string) (models.LetterTable, error) {
	key := fmt.Sprintf("grading:letters:%s", courseID)
	var table models.LetterTable
	if hit, _ := s.cache.Get(ctx, key, &table); !hit {
		var err error
		if table, err = s.letters.LoadByCourse(ctx, courseID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load letter table")
		}
		if err := s.cache.Set(ctx, key, table, 0); err != nil {
			s.logger.Warn("failed to cache letter table", zap.String("key", key), zap.Error(err))
		}
	}
	if len(table) > 0 && !table.Contiguous() {
		return nil, appErrors.Clone(appErrors.ErrLetterTableGap, "")
	}
	return table, nil
}

func itemModule(activity *models.Activity) string {
	return strings.ToLower(string(activity.Type))
}

func outcomeLabel(result *SubmitGradeResult) string {
	switch {
	case len(result.Failures) == 0:
		return "applied"
	case result.Applied > 0:
		return "partial"
	default:
		return "rejected"
	}
}
