package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grader-api/internal/models"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
)

func numericScale(max int) models.GradeScale {
	return models.GradeScale{Kind: models.KindNumeric, Max: max}
}

func labelScale(labels ...string) models.GradeScale {
	return models.GradeScale{Kind: models.KindScale, ScaleID: 1, Labels: labels, Max: len(labels)}
}

func defaultLetters() models.LetterTable {
	return models.LetterTable{
		{Threshold: 90, Letter: "A"},
		{Threshold: 80, Letter: "B"},
		{Threshold: 70, Letter: "C"},
		{Threshold: 60, Letter: "D"},
		{Threshold: 0, Letter: "F"},
	}
}

func TestParseGradeNumeric(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		max  int
		want int
	}{
		{"plain integer", "85", 100, 85},
		{"decimal truncates toward zero", "16.9", 20, 16},
		{"zero", "0", 20, 0},
		{"at max", "20", 20, 20},
		{"empty means not graded", "", 100, models.NoGrade},
		{"whitespace only", "   ", 100, models.NoGrade},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGrade(tt.raw, numericScale(tt.max), defaultLetters())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGradeNumericOutOfRange(t *testing.T) {
	for _, raw := range []string{"21", "-1", "100.5"} {
		_, err := ParseGrade(raw, numericScale(20), defaultLetters())
		require.Error(t, err, "input %q", raw)
		assert.True(t, errors.Is(err, appErrors.ErrGradeOutOfRange), "input %q", raw)
	}
}

func TestParseGradeNotNumeric(t *testing.T) {
	_, err := ParseGrade("abc%", numericScale(20), defaultLetters())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrGradeNotNumeric))
}

func TestParseGradeRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"nan", "NaN"},
		{"nan lowercase", "nan"},
		{"positive infinity", "Inf"},
		{"negative infinity", "-Inf"},
		{"nan percent", "nan%"},
		{"inf percent", "Inf%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGrade(tt.raw, numericScale(20), defaultLetters())
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrGradeNotNumeric))
		})
	}
}

func TestParseGradePercent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		max  int
		want int
	}{
		{"rounds half up", "45%", 50, 23},
		{"whole percent", "85%", 20, 17},
		{"hundred percent", "100%", 20, 20},
		{"zero percent", "0%", 20, 0},
		{"spaced prefix", " 50 %", 20, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGrade(tt.raw, numericScale(tt.max), defaultLetters())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGradePercentOutOfRange(t *testing.T) {
	for _, raw := range []string{"101%", "-5%"} {
		_, err := ParseGrade(raw, numericScale(20), defaultLetters())
		require.Error(t, err, "input %q", raw)
		assert.True(t, errors.Is(err, appErrors.ErrGradeOutOfRange), "input %q", raw)
	}
}

func TestParseGradeLetter(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		max  int
		want int
	}{
		// B lands on the midpoint of [80,89] -> 84%, then 20*0.84 rounds to 17.
		{"midpoint of band", "B", 20, 17},
		{"top band keeps 100 upper bound", "A", 20, 19},
		{"case insensitive", "b", 20, 17},
		{"bottom band", "F", 100, 29},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGrade(tt.raw, numericScale(tt.max), defaultLetters())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGradeLetterUnknown(t *testing.T) {
	_, err := ParseGrade("Z", numericScale(20), defaultLetters())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidLetter))
}

func TestParseGradeLetterTableGap(t *testing.T) {
	broken := models.LetterTable{
		{Threshold: 90, Letter: "A"},
		{Threshold: 80, Letter: "B"},
	}
	_, err := ParseGrade("B", numericScale(20), broken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrLetterTableGap))
}

func TestParseGradeLetterNoTable(t *testing.T) {
	_, err := ParseGrade("B", numericScale(20), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidLetter))
}

func TestParseGradeScale(t *testing.T) {
	scale := labelScale("Poor", "Fair", "Good", "Excellent")

	got, err := ParseGrade("3", scale, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	got, err = ParseGrade("", scale, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NoGrade, got)

	got, err = ParseGrade("-1", scale, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NoGrade, got)
}

func TestParseGradeScaleRejectsBadIndex(t *testing.T) {
	scale := labelScale("Poor", "Fair", "Good")

	_, err := ParseGrade("0", scale, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrGradeOutOfRange))

	_, err = ParseGrade("4", scale, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrGradeOutOfRange))

	_, err = ParseGrade("Good", scale, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrGradeNotNumeric))
}

func TestParseGradeUngradedActivity(t *testing.T) {
	got, err := ParseGrade("15", models.GradeScale{Kind: models.KindNone}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NoGrade, got)
}
