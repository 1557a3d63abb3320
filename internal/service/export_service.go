package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grader-api/internal/models"
	"github.com/noah-isme/grader-api/pkg/export"
	"github.com/noah-isme/grader-api/pkg/storage"
)

type gradingReportSource interface {
	GradingReport(ctx context.Context, activityID string, needsGradingOnly bool) ([]models.ActivityGradeRow, error)
}

type exportActivityReader interface {
	FindByID(ctx context.Context, id string) (*models.Activity, error)
}

type exportScaleReader interface {
	FindScale(ctx context.Context, scaleID int) (*models.Scale, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService builds grading report datasets and persists rendered files.
type ExportService struct {
	grades     gradingReportSource
	activities exportActivityReader
	scales     exportScaleReader
	storage    fileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(grades gradingReportSource, activities exportActivityReader, scales exportScaleReader, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		grades:     grades,
		activities: activities,
		scales:     scales,
		storage:    storage,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds the grading dataset for the job's activity and stores the
// rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	activityPart := sanitizeFilename(job.ActivityID)
	return fmt.Sprintf("grading_%s_%s.%s", activityPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	activity, err := s.activities.FindByID(ctx, job.ActivityID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	var labels []string
	if activity.UsesScale() && s.scales != nil {
		scale, err := s.scales.FindScale(ctx, activity.ScaleID())
		if err != nil {
			return export.Dataset{}, "", err
		}
		labels = scale.Labels
	}

	rows, err := s.grades.GradingReport(ctx, job.ActivityID, job.Params.NeedsGrading)
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"User ID":     row.UserID,
			"Name":        row.UserName,
			"Grade":       displayGrade(row.Grade, labels),
			"Final Grade": displayFinalGrade(row.FinalGrade),
			"Overridden":  fmt.Sprintf("%t", row.Overridden),
			"Graded At":   formatReportTime(row.TimeModified),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"User ID", "Name", "Grade", "Final Grade", "Overridden", "Graded At"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Grading Report %s", activity.Name)
	return dataset, title, nil
}

// displayGrade renders the activity-local grade: scale grades show their
// label, the sentinel shows as not graded.
func displayGrade(grade int, labels []string) string {
	if grade == models.NoGrade {
		return "-"
	}
	if len(labels) > 0 {
		if grade >= 1 && grade <= len(labels) {
			return labels[grade-1]
		}
		return "-"
	}
	return fmt.Sprintf("%d", grade)
}

func displayFinalGrade(grade *float64) string {
	if grade == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *grade)
}

func formatReportTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
