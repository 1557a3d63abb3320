package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grader-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestActivityGradeRepositoryGetUserGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityGradeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "activity_id", "user_id", "grade", "grader_id", "time_modified", "created_at"}).
		AddRow("ug-1", "act-1", "student-1", 17, "teacher-1", time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, activity_id, user_id, grade, grader_id, time_modified, created_at").
		WithArgs("act-1", "student-1").
		WillReturnRows(rows)

	record, err := repo.GetUserGrade(context.Background(), "act-1", "student-1", false)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 17, record.Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityGradeRepositoryGetUserGradeMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityGradeRepository(db)

	mock.ExpectQuery("SELECT id, activity_id, user_id, grade, grader_id, time_modified, created_at").
		WithArgs("act-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	record, err := repo.GetUserGrade(context.Background(), "act-1", "student-1", false)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityGradeRepositoryGetUserGradeCreates(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityGradeRepository(db)

	mock.ExpectQuery("SELECT id, activity_id, user_id, grade, grader_id, time_modified, created_at").
		WithArgs("act-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO activity_grades").
		WillReturnResult(sqlmock.NewResult(1, 1))

	record, err := repo.GetUserGrade(context.Background(), "act-1", "student-1", true)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, models.NoGrade, record.Grade)
	assert.Equal(t, "student-1", record.UserID)
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityGradeRepositoryUpdateUserGrade(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityGradeRepository(db)

	mock.ExpectExec("UPDATE activity_grades SET grade").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateUserGrade(context.Background(), &models.UserGradeRecord{ID: "ug-1", Grade: 17, GraderID: "teacher-1", TimeModified: time.Now()})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityGradeRepositoryUpdateUserGradeMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityGradeRepository(db)

	mock.ExpectExec("UPDATE activity_grades SET grade").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateUserGrade(context.Background(), &models.UserGradeRecord{ID: "ug-missing"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityGradeRepositoryGradingReportNeedsGradingFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityGradeRepository(db)

	rows := sqlmock.NewRows([]string{"user_id", "user_name", "grade", "grader_id", "time_modified", "final_grade", "overridden"}).
		AddRow("student-1", "Student One", -1, "", nil, nil, false)
	mock.ExpectQuery(`AND g\.grade = -1`).
		WithArgs("act-1").
		WillReturnRows(rows)

	report, err := repo.GradingReport(context.Background(), "act-1", true)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, models.NoGrade, report[0].Grade)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityGradeRepositoryNextUngraded(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewActivityGradeRepository(db)

	mock.ExpectQuery(`SELECT g\.user_id FROM activity_grades g`).
		WithArgs("act-1", "student-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("student-2"))

	next, err := repo.NextUngraded(context.Background(), "act-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, "student-2", next)

	mock.ExpectQuery(`SELECT g\.user_id FROM activity_grades g`).
		WithArgs("act-1", "student-2").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	next, err = repo.NextUngraded(context.Background(), "act-1", "student-2")
	require.NoError(t, err)
	assert.Empty(t, next)
	assert.NoError(t, mock.ExpectationsWereMet())
}
