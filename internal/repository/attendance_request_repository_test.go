package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-escalation-api/internal/models"
)

func TestAttendanceRequestRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO attendance_requests`)).
		WithArgs(sqlmock.AnyArg(), "stu-1", "sub-1", "tch-1", "2024-03-04", models.RequestStatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.AttendanceRequest{StudentID: "stu-1", SubjectID: "sub-1", TeacherID: "tch-1", ClassDate: day("2024-03-04")}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRequestRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO attendance_requests`)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.AttendanceRequest{StudentID: "stu-1", SubjectID: "sub-1", TeacherID: "tch-1", ClassDate: day("2024-03-04")})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestAttendanceRequestRepositoryLockForResolution(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE OF ar`)).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "subject_id", "teacher_id", "class_date", "status", "request_time", "response_time", "subject_teacher_id", "subject_name"}).
			AddRow("req-1", "stu-1", "sub-1", "tch-1", day("2024-03-04"), "pending", now, nil, "tch-1", "Physics"))
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE OF ar`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)
	row, err := repo.LockForResolution(context.Background(), tx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "tch-1", row.SubjectTeacherID)
	assert.Equal(t, models.RequestStatusPending, row.Status)
	assert.Nil(t, row.ResponseTime)

	_, err = repo.LockForResolution(context.Background(), tx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRequestRepositoryResolve(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE attendance_requests SET status = $2, response_time = $3`)).
		WithArgs("req-1", models.RequestStatusRejected, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE attendance_requests SET status = $2, response_time = $3`)).
		WithArgs("req-1", models.RequestStatusApproved, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Resolve(context.Background(), nil, "req-1", models.RequestStatusRejected, at))
	assert.ErrorIs(t, repo.Resolve(context.Background(), nil, "req-1", models.RequestStatusApproved, at), ErrRequestNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceRequestRepositoryListForTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAttendanceRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE s.teacher_id = $1 AND ar.class_date = $2::date`)).
		WithArgs("tch-1", "2024-03-04").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "subject_id", "teacher_id", "class_date", "status", "request_time", "response_time", "student_name", "roll_number", "subject_name", "subject_code"}).
			AddRow("req-1", "stu-1", "sub-1", "tch-1", day("2024-03-04"), "pending", time.Now(), nil, "Asha", "R-01", "Physics", "PHY"))

	rows, err := repo.ListForTeacher(context.Background(), "tch-1", day("2024-03-04"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asha", rows[0].StudentName)
	assert.Equal(t, "req-1", rows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
