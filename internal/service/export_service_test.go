package service

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type subjectListerStub struct {
	items map[string]models.Subject
}

func (s subjectListerStub) ListByIDs(_ context.Context, ids []string) ([]models.Subject, error) {
	var out []models.Subject
	for _, id := range ids {
		if subject, ok := s.items[id]; ok {
			out = append(out, subject)
		}
	}
	return out, nil
}

func newExportServiceFixture() (*ExportService, *planSlotStoreStub) {
	art := "art"
	planSlots := &planSlotStoreStub{existing: []models.TimetablePlanSlot{
		{TimetablePlanID: "plan-1", Weekday: models.Tuesday, DaySlotIndex: 1, SubjectID: &art},
		{TimetablePlanID: "plan-1", Weekday: models.Tuesday, DaySlotIndex: 2},
	}}
	svc := NewExportService(
		termStub{items: map[string]*models.Term{"term-1": {ID: "term-1", Name: "2024/2025 Odd"}}},
		subjectListerStub{items: map[string]models.Subject{
			"math": {ID: "math", Name: "Mathematics"},
			"art":  {ID: "art", Name: "Art"},
		}},
		&fixedSlotStoreStub{existing: []models.FixedTimetableSlot{
			{Weekday: models.Monday, DaySlotIndex: 1, SubjectID: "math"},
			{Weekday: models.Friday, DaySlotIndex: 2, SubjectID: "art"},
			{Weekday: models.Wednesday, DaySlotIndex: 2, SubjectID: "legacy"},
		}},
		&planStub{items: map[string]*models.TimetablePlan{"plan-1": {ID: "plan-1", TermID: "term-1", Name: "Draft A"}}},
		planSlots,
		nil,
		nil,
	)
	return svc, planSlots
}

func TestExportServiceFixedTimetableCSV(t *testing.T) {
	svc, _ := newExportServiceFixture()

	file, err := svc.Export(context.Background(), dto.TimetableExportRequest{TermID: "term-1", Format: "CSV"})
	require.NoError(t, err)

	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "fixed_timetable_2024-2025_odd_"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(file.Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Slot,Mon,Tue,Wed,Thu,Fri", lines[0])
	assert.Equal(t, "1,Mathematics,,,,", lines[1])
	assert.Equal(t, "2,,,legacy,,Art", lines[2])
}

func TestExportServicePlanXLSX(t *testing.T) {
	svc, _ := newExportServiceFixture()

	file, err := svc.Export(context.Background(), dto.TimetableExportRequest{TermID: "term-1", PlanID: "plan-1", Format: dto.ExportFormatXLSX})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(file.Filename, "timetable_plan_draft_a_"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("PK")))
}

func TestExportServicePlanPDF(t *testing.T) {
	svc, _ := newExportServiceFixture()

	file, err := svc.Export(context.Background(), dto.TimetableExportRequest{TermID: "term-1", PlanID: "plan-1", Format: dto.ExportFormatPDF})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportServiceFixture()

	_, err := svc.Export(context.Background(), dto.TimetableExportRequest{TermID: "term-1", Format: "docx"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestExportServiceNotFound(t *testing.T) {
	svc, _ := newExportServiceFixture()

	_, err := svc.Export(context.Background(), dto.TimetableExportRequest{TermID: "term-404", Format: dto.ExportFormatCSV})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.Export(context.Background(), dto.TimetableExportRequest{TermID: "term-1", PlanID: "plan-404", Format: dto.ExportFormatCSV})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "2024-2025_odd", sanitizeFilename("2024/2025 Odd"))
	assert.Len(t, sanitizeFilename(strings.Repeat("a", 150)), 100)
}
