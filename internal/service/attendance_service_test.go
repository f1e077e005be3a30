package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-escalation-api/internal/dto"
	"github.com/noah-isme/sma-escalation-api/internal/models"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
)

func newAttendanceFixture(current *models.CurrentClass) (*AttendanceService, *ledgerStub) {
	ledger := newLedgerStub()
	students := &studentStub{students: map[string]*models.StudentWithMentor{
		"stu-1": {Student: models.Student{ID: "stu-1", ClassID: "10A"}},
	}}
	svc := NewAttendanceService(ledger, students, &subjectStub{current: current}, nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 11, 9, 15, 0, 0, time.UTC) }
	return svc, ledger
}

func TestMarkPresentUsesOngoingClass(t *testing.T) {
	svc, ledger := newAttendanceFixture(&models.CurrentClass{SubjectID: "math", SubjectName: "Math"})

	record, current, err := svc.MarkPresent(context.Background(), dto.MarkPresentRequest{StudentID: "stu-1"})
	require.NoError(t, err)
	assert.Equal(t, "math", record.SubjectID)
	assert.Equal(t, models.AttendanceStatusPresent, record.Status)
	assert.Equal(t, day("2024-03-11"), record.Date)
	assert.Equal(t, "Math", current.SubjectName)
	assert.Len(t, ledger.upserts, 1)
}

func TestMarkPresentWithoutOngoingClass(t *testing.T) {
	svc, ledger := newAttendanceFixture(nil)

	_, _, err := svc.MarkPresent(context.Background(), dto.MarkPresentRequest{StudentID: "stu-1"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Empty(t, ledger.upserts)
}

func TestMarkPresentValidation(t *testing.T) {
	svc, _ := newAttendanceFixture(nil)

	_, _, err := svc.MarkPresent(context.Background(), dto.MarkPresentRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.MarkPresent(context.Background(), dto.MarkPresentRequest{StudentID: "ghost"})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestHistory(t *testing.T) {
	svc, ledger := newAttendanceFixture(nil)
	ledger.history = []models.AttendanceHistoryEntry{{SubjectID: "math", Status: models.AttendanceStatusAbsent}}

	rows, err := svc.History(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = svc.History(context.Background(), "")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
