package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/grader-api/internal/models"
	appErrors "github.com/noah-isme/grader-api/pkg/errors"
)

// ParseGrade converts a raw user-submitted grade token into the canonical
// integer grade for the activity. Accepted forms depend on the scale kind:
//
//   - scale activities take a 1-based label index or the no-grade sentinel;
//   - numeric activities take a plain number in [0,max], a percentage
//     ("85%"), or a letter from the course letter table;
//   - empty input always means "no grade" (-1).
//
// Percent and letter input rounds half-up into the activity range; plain
// numeric input is truncated toward zero like the host's integer cleaning.
func ParseGrade(raw string, scale models.GradeScale, letters models.LetterTable) (int, error) {
	raw = strings.TrimSpace(raw)

	if scale.Kind == models.KindScale {
		return parseScaleGrade(raw, scale)
	}

	if raw == "" {
		return models.NoGrade, nil
	}

	if scale.Kind == models.KindNone {
		return models.NoGrade, nil
	}

	if value, err := strconv.ParseFloat(raw, 64); err == nil {
		// ParseFloat accepts "NaN" and "Inf", which compare false against
		// every bound and would truncate to garbage.
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, appErrors.Clone(appErrors.ErrGradeNotNumeric, "grade must be a finite number")
		}
		if value < 0 || value > float64(scale.Max) {
			return 0, appErrors.Clone(appErrors.ErrGradeOutOfRange, "")
		}
		return int(value), nil
	}

	if strings.Contains(raw, "%") {
		return parsePercentGrade(raw, scale)
	}

	return parseLetterGrade(raw, scale, letters)
}

func parseScaleGrade(raw string, scale models.GradeScale) (int, error) {
	if raw == "" {
		return models.NoGrade, nil
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrGradeNotNumeric, "scale grade must be an integer index")
	}
	if index == models.NoGrade {
		return models.NoGrade, nil
	}
	if index < 1 || index > scale.Max {
		return 0, appErrors.Clone(appErrors.ErrGradeOutOfRange, "scale grade does not index the scale")
	}
	return index, nil
}

func parsePercentGrade(raw string, scale models.GradeScale) (int, error) {
	prefix := strings.TrimSpace(strings.SplitN(raw, "%", 2)[0])
	percent, err := strconv.ParseFloat(prefix, 64)
	if err != nil || math.IsNaN(percent) || math.IsInf(percent, 0) {
		return 0, appErrors.Clone(appErrors.ErrGradeNotNumeric, "percentage grade must be numeric")
	}
	if percent < 0 || percent > 100 {
		return 0, appErrors.Clone(appErrors.ErrGradeOutOfRange, "percentage grade must be between 0 and 100")
	}
	return roundHalfUp(float64(scale.Max) * percent / 100), nil
}

// parseLetterGrade walks the descending letter table with an explicit running
// upper bound: each non-matching band lowers the bound to threshold-1, and a
// match lands on the floored midpoint of [threshold, upperBound].
func parseLetterGrade(raw string, scale models.GradeScale, letters models.LetterTable) (int, error) {
	if len(letters) == 0 {
		return 0, appErrors.Clone(appErrors.ErrInvalidLetter, "")
	}
	if !letters.Contiguous() {
		return 0, appErrors.Clone(appErrors.ErrLetterTableGap, "")
	}

	upperBound := 100
	for _, band := range letters {
		if strings.EqualFold(raw, band.Letter) {
			percent := (upperBound + band.Threshold) / 2
			return roundHalfUp(float64(scale.Max) * float64(percent) / 100), nil
		}
		upperBound = band.Threshold - 1
	}
	return 0, appErrors.Clone(appErrors.ErrInvalidLetter, "")
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
