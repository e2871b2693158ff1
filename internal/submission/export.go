package submission

import (
	"context"
	"encoding/json"
	"fmt"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Submission"

// Export renders one stored submission as a two column workbook for the
// clinical team.
func (s *Service) Export(ctx context.Context, id uuid.UUID) ([]byte, error) {
	traceCtx, span := s.tracer.Start(ctx, "Export")
	defer span.End()
	logger := logutil.WithContext(traceCtx, s.logger)

	row, err := s.GetByID(traceCtx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var pairs []Pair
	if err := json.Unmarshal(row.Answers, &pairs); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("decode stored answers: %w", err)
	}

	data, err := renderWorkbook(row, pairs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Info("Exported submission", zap.String("id", id.String()), zap.Int("answers", len(pairs)))
	return data, nil
}

func renderWorkbook(row QuizSubmission, pairs []Pair) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	header := [][]interface{}{
		{"Submission ID", row.SubmissionID.String()},
		{"Mobile number", row.MobileNumber.String},
		{"Name", row.Name},
		{"Insurance provider", row.InsuranceProviderID},
		{"Coverage", row.CoverageStatus},
		{},
		{"Question", "Answer"},
	}
	for _, p := range pairs {
		header = append(header, []interface{}{p.Question, p.Answer})
	}

	for i, values := range header {
		if len(values) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "A", 48); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "B", "B", 64); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
