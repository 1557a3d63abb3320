package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grader-api/internal/models"
)

func TestGradebookRepositoryGradingInfo(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db, "grader-api")

	mock.ExpectQuery("SELECT id FROM grade_items").
		WithArgs("course-1", "assignment", "act-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("item-1"))

	rows := sqlmock.NewRows([]string{"user_id", "final_grade", "overridden", "hidden", "locked"}).
		AddRow("student-1", 17.0, false, false, false).
		AddRow("student-2", nil, true, false, false)
	mock.ExpectQuery("SELECT user_id, final_grade, overridden, hidden, locked").
		WithArgs("item-1", "student-1", "student-2").
		WillReturnRows(rows)

	info, err := repo.GradingInfo(context.Background(), "course-1", "assignment", "act-1", []string{"student-1", "student-2"})
	require.NoError(t, err)
	assert.Equal(t, "item-1", info.ItemID)
	require.Len(t, info.Entries, 2)
	require.NotNil(t, info.Entries["student-1"].Grade)
	assert.Equal(t, 17.0, *info.Entries["student-1"].Grade)
	assert.True(t, info.Entries["student-2"].Overridden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradebookRepositoryGradingInfoNoItem(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db, "grader-api")

	mock.ExpectQuery("SELECT id FROM grade_items").
		WithArgs("course-1", "assignment", "act-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	info, err := repo.GradingInfo(context.Background(), "course-1", "assignment", "act-1", []string{"student-1"})
	require.NoError(t, err)
	assert.Empty(t, info.ItemID)
	assert.Empty(t, info.Entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradebookRepositoryUpdateGradeItem(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db, "grader-api")

	grade := 17.0
	mock.ExpectExec("INSERT INTO grade_finals").
		WithArgs(sqlmock.AnyArg(), "item-1", "student-1", 17.0, "grader-api", "teacher-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateGradeItem(context.Background(), "item-1", models.GradebookPayload{
		UserID:       "student-1",
		RawGrade:     &grade,
		UserModified: "teacher-1",
		DateGraded:   time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradebookRepositoryUpdateGradeItemOverriddenEntry(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db, "grader-api")

	// A conflicting overridden row defeats the guarded upsert: zero rows.
	mock.ExpectExec("INSERT INTO grade_finals").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGradeItem(context.Background(), "item-1", models.GradebookPayload{UserID: "student-1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradebookRepositoryFetchGradeItemMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db, "grader-api")

	mock.ExpectQuery("SELECT id, course_id, item_type").
		WithArgs("course-1", "assignment", "act-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	item, err := repo.FetchGradeItem(context.Background(), "course-1", "assignment", "act-1")
	require.NoError(t, err)
	assert.Nil(t, item)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradebookRepositoryCreateGradeItem(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db, "grader-api")

	mock.ExpectExec("INSERT INTO grade_items").
		WillReturnResult(sqlmock.NewResult(1, 1))

	item, err := repo.CreateGradeItem(context.Background(), models.GradeItemSpec{
		CourseID:   "course-1",
		ItemModule: "assignment",
		ActivityID: "act-1",
		ItemName:   "Essay",
		GradeType:  models.GradeItemValue,
		GradeMax:   20,
	})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "mod", item.ItemType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradebookRepositoryUpdateFinalGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db, "grader-api")

	mock.ExpectExec("INSERT INTO grade_finals").
		WithArgs(sqlmock.AnyArg(), "item-1", "student-1", nil, "grader-api", "teacher-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// nil clears the entry instead of writing zero
	err := repo.UpdateFinalGrade(context.Background(), "item-1", "student-1", nil, "teacher-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
