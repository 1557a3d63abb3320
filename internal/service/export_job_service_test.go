package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grader-api/internal/models"
	"github.com/noah-isme/grader-api/internal/repository"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
	"github.com/noah-isme/grader-api/pkg/jobs"
	"github.com/noah-isme/grader-api/pkg/storage"
)

type mockExportJobStore struct {
	jobs      map[string]*models.ExportJob
	createErr error
	updates   []repository.UpdateExportJobParams
	listCalls int
}

func newMockExportJobStore() *mockExportJobStore {
	return &mockExportJobStore{jobs: map[string]*models.ExportJob{}}
}

func (m *mockExportJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	if m.createErr != nil {
		return m.createErr
	}
	job.ID = fmt.Sprintf("job-%d", len(m.jobs)+1)
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *mockExportJobStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (m *mockExportJobStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	m.updates = append(m.updates, params)
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (m *mockExportJobStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockExportJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	m.listCalls++
	var out []models.ExportJob
	for _, job := range m.jobs {
		if job.Status != models.ExportStatusFinished || job.FinishedAt == nil || !job.FinishedAt.Before(cutoff) {
			continue
		}
		out = append(out, *job)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type mockExportActivityChecker struct {
	activities map[string]*models.Activity
}

func (m *mockExportActivityChecker) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	activity, ok := m.activities[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return activity, nil
}

type mockJobDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockJobDispatcher) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type mockExportGenerator struct {
	result *ExportResult
	err    error
	calls  int
}

func (m *mockExportGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func exportTeacherContext() models.RequestContext {
	return models.RequestContext{GraderID: "teacher-1", CourseID: "course-1", Role: models.RoleTeacher, TeacherCap: true}
}

func newExportJobFixture() (*ExportJobService, *mockExportJobStore, *mockJobDispatcher) {
	store := newMockExportJobStore()
	activities := &mockExportActivityChecker{activities: map[string]*models.Activity{
		"act-1": {ID: "act-1", CourseID: "course-1", Type: models.ActivityAssignment, GradeField: 20},
		"act-2": {ID: "act-2", CourseID: "course-1", Type: models.ActivityAssignment, GradeField: 0},
	}}
	dispatcher := &mockJobDispatcher{}
	svc := NewExportJobService(store, activities, dispatcher, nil, zap.NewNop(), ExportJobConfig{MaxRetries: 2})
	return svc, store, dispatcher
}

func TestCreateJobEnqueues(t *testing.T) {
	svc, store, dispatcher := newExportJobFixture()

	job, err := svc.CreateJob(context.Background(), exportTeacherContext(), "act-1", models.ExportJobParams{Format: models.ExportFormatCSV})
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Equal(t, "teacher-1", job.CreatedBy)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, job.ID, dispatcher.enqueued[0].ID)
	assert.Contains(t, store.jobs, job.ID)
}

func TestCreateJobRequiresTeacherCapability(t *testing.T) {
	svc, _, _ := newExportJobFixture()
	rc := models.RequestContext{GraderID: "student-1", Role: models.RoleStudent}

	_, err := svc.CreateJob(context.Background(), rc, "act-1", models.ExportJobParams{Format: models.ExportFormatCSV})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestCreateJobRejectsUnknownFormat(t *testing.T) {
	svc, _, dispatcher := newExportJobFixture()

	_, err := svc.CreateJob(context.Background(), exportTeacherContext(), "act-1", models.ExportJobParams{Format: "xlsx"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, dispatcher.enqueued)
}

func TestCreateJobRejectsUngradedActivity(t *testing.T) {
	svc, _, _ := newExportJobFixture()

	_, err := svc.CreateJob(context.Background(), exportTeacherContext(), "act-2", models.ExportJobParams{Format: models.ExportFormatPDF})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestCreateJobActivityNotFound(t *testing.T) {
	svc, _, _ := newExportJobFixture()

	_, err := svc.CreateJob(context.Background(), exportTeacherContext(), "missing", models.ExportJobParams{Format: models.ExportFormatCSV})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCreateJobMarksFailedWhenEnqueueFails(t *testing.T) {
	svc, store, dispatcher := newExportJobFixture()
	dispatcher.err = errors.New("queue closed")

	_, err := svc.CreateJob(context.Background(), exportTeacherContext(), "act-1", models.ExportJobParams{Format: models.ExportFormatCSV})
	require.Error(t, err)

	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
		require.NotNil(t, job.ErrorMessage)
		require.NotNil(t, job.FinishedAt)
	}
}

func TestGetStatusEnforcesOwnership(t *testing.T) {
	svc, store, _ := newExportJobFixture()
	store.jobs["job-1"] = &models.ExportJob{ID: "job-1", ActivityID: "act-1", Status: models.ExportStatusFinished, CreatedBy: "teacher-1"}

	job, err := svc.GetStatus(context.Background(), exportTeacherContext(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)

	other := models.RequestContext{GraderID: "teacher-2", Role: models.RoleTeacher, TeacherCap: true}
	_, err = svc.GetStatus(context.Background(), other, "job-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	admin := models.RequestContext{GraderID: "admin-1", Role: models.RoleAdmin, TeacherCap: true}
	job, err = svc.GetStatus(context.Background(), admin, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
}

func TestGetStatusNotFound(t *testing.T) {
	svc, _, _ := newExportJobFixture()

	_, err := svc.GetStatus(context.Background(), exportTeacherContext(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func newCleanupFixture(t *testing.T, store *mockExportJobStore) (*ExportJobService, *storage.LocalStorage, *storage.SignedURLSigner) {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("cleanup-secret", time.Hour)
	exporter := NewExportService(nil, nil, nil, local, signer, ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop(), nil, nil)
	svc := NewExportJobService(store, &mockExportActivityChecker{}, &mockJobDispatcher{}, exporter, zap.NewNop(), ExportJobConfig{ResultTTL: time.Hour})
	return svc, local, signer
}

func TestCleanupExpiredTerminatesOnFullPages(t *testing.T) {
	store := newMockExportJobStore()
	finished := time.Now().Add(-48 * time.Hour)
	for i := 0; i < 250; i++ {
		id := fmt.Sprintf("job-%d", i)
		at := finished
		store.jobs[id] = &models.ExportJob{ID: id, ActivityID: "act-1", Status: models.ExportStatusFinished, FinishedAt: &at}
	}
	svc, _, _ := newCleanupFixture(t, store)

	svc.cleanupExpired(context.Background())

	for id, job := range store.jobs {
		assert.Equal(t, models.ExportStatusExpired, job.Status, "job %s left unmarked", id)
	}
	assert.LessOrEqual(t, store.listCalls, 4)
}

func TestCleanupExpiredDeletesStoredFile(t *testing.T) {
	store := newMockExportJobStore()
	svc, local, signer := newCleanupFixture(t, store)

	_, err := local.Save("grading_act-1.csv", []byte("User ID,Grade\n"))
	require.NoError(t, err)
	token, _, err := signer.Generate("job-1", "grading_act-1.csv")
	require.NoError(t, err)
	url := "/api/v1/export/" + token
	finished := time.Now().Add(-48 * time.Hour)
	store.jobs["job-1"] = &models.ExportJob{ID: "job-1", ActivityID: "act-1", Status: models.ExportStatusFinished, ResultURL: &url, FinishedAt: &finished}

	svc.cleanupExpired(context.Background())

	assert.Equal(t, models.ExportStatusExpired, store.jobs["job-1"].Status)
	_, err = os.Stat(local.Path("grading_act-1.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestWorkerFinishesJob(t *testing.T) {
	store := newMockExportJobStore()
	store.jobs["job-1"] = &models.ExportJob{ID: "job-1", ActivityID: "act-1", Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatCSV}}
	generator := &mockExportGenerator{result: &ExportResult{URL: "/api/v1/export/token-1", Token: "token-1", Format: models.ExportFormatCSV}}
	worker := NewExportWorker(store, generator, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.NoError(t, err)

	job := store.jobs["job-1"]
	assert.Equal(t, models.ExportStatusFinished, job.Status)
	require.NotNil(t, job.ResultURL)
	assert.Equal(t, "/api/v1/export/token-1", *job.ResultURL)
	require.NotNil(t, job.FinishedAt)
}

func TestWorkerRequeuesBeforeRetryLimit(t *testing.T) {
	store := newMockExportJobStore()
	store.jobs["job-1"] = &models.ExportJob{ID: "job-1", ActivityID: "act-1", Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatCSV}}
	generator := &mockExportGenerator{err: errors.New("render failed")}
	worker := NewExportWorker(store, generator, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)

	job := store.jobs["job-1"]
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Nil(t, job.FinishedAt)
}

func TestWorkerFailsJobAtRetryLimit(t *testing.T) {
	store := newMockExportJobStore()
	store.jobs["job-1"] = &models.ExportJob{ID: "job-1", ActivityID: "act-1", Status: models.ExportStatusQueued, Params: models.ExportJobParams{Format: models.ExportFormatCSV}}
	generator := &mockExportGenerator{err: errors.New("render failed")}
	worker := NewExportWorker(store, generator, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 3})
	require.Error(t, err)

	job := store.jobs["job-1"]
	assert.Equal(t, models.ExportStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "render failed", *job.ErrorMessage)
	require.NotNil(t, job.FinishedAt)
}
