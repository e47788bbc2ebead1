package service

import (
	"bytes"
	"fmt"
	"time"

	"github.com/unimarket/unimarket-backend/internal/app/model"
	"github.com/unimarket/unimarket-backend/internal/app/repository"
	"github.com/unimarket/unimarket-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

// ReportService builds admin exports of verification activity.
type ReportService interface {
	ExportVerificationsXLSX(status *model.VerificationStatus) ([]byte, string, error)
}

type reportService struct {
	verificationRepo repository.VerificationRepository
}

func NewReportService(verificationRepo repository.VerificationRepository) ReportService {
	return &reportService{verificationRepo: verificationRepo}
}

var exportHeaders = []string{
	"ID", "User ID", "Status", "Submitted At", "Completed At",
	"Face Match Score", "Face Match Confidence", "OCR Confidence",
	"OCR Name", "OCR College", "College Recognized", "ID Looks Valid",
	"Retry Count", "Processing Time (ms)", "Review Notes", "Rejection Reason",
}

// ExportVerificationsXLSX renders verification requests to an xlsx workbook,
// optionally filtered by status. Returns the file bytes and a suggested
// filename.
func (s *reportService) ExportVerificationsXLSX(status *model.VerificationStatus) ([]byte, string, error) {
	requests, err := s.verificationRepo.FindAll(status)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Verifications"
	f.SetSheetName("Sheet1", sheet)

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i := range requests {
		req := &requests[i]
		row := []interface{}{
			req.ID,
			req.UserID,
			string(req.Status),
			req.SubmittedAt.Format(time.RFC3339),
			formatTimePtr(req.ProcessingCompletedAt),
			formatFloatPtr(req.FaceMatchScore),
			formatFloatPtr(req.FaceMatchConfidence),
			formatFloatPtr(req.OCRConfidence),
			derefString(req.OCRName),
			derefString(req.OCRCollege),
			req.CollegeRecognized,
			req.IDLooksValid,
			req.RetryCount,
			req.ProcessingTimeMs,
			req.ReviewNotes,
			derefString(req.RejectionReason),
		}

		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("failed to write row %d: %w", i+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("verifications_%s.xlsx", time.Now().Format("20060102_150405"))
	logger.Info("Verification export generated", map[string]interface{}{
		"rows":     len(requests),
		"filename": filename,
	})
	return buf.Bytes(), filename, nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
