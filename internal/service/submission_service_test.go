package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-escalation-api/internal/models"
	"github.com/noah-isme/sma-escalation-api/internal/repository"
	appErrors "github.com/noah-isme/sma-escalation-api/pkg/errors"
	"github.com/noah-isme/sma-escalation-api/pkg/storage"
)

type submissionStoreStub struct {
	saved []*models.Submission
	err   error
}

func (s *submissionStoreStub) CreateAndComplete(ctx context.Context, sub *models.Submission) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, sub)
	return nil
}

type assignmentLookupStub struct {
	known     map[string]bool
	submitted bool
}

func (a assignmentLookupStub) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	if a.known[id] {
		return &models.Assignment{ID: id}, nil
	}
	return nil, sql.ErrNoRows
}

func (a assignmentLookupStub) SubmittedBy(ctx context.Context, assignmentID, studentID string) (bool, error) {
	return a.submitted, nil
}

func newSubmissionFixture(t *testing.T, lookup assignmentLookupStub) (*SubmissionService, *submissionStoreStub, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	store := &submissionStoreStub{}
	svc := NewSubmissionService(store, lookup, files, nil, SubmissionConfig{MaxFileSizeBytes: 1024})
	return svc, store, dir
}

func TestSubmitStoresFile(t *testing.T) {
	svc, store, dir := newSubmissionFixture(t, assignmentLookupStub{known: map[string]bool{"asg-1": true}})

	sub, err := svc.Submit(context.Background(), "asg-1", "stu-1", "Answers.PDF", 5, strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusSubmitted, sub.Status)
	assert.Equal(t, "submissions/asg-1/stu-1.pdf", sub.FilePath)
	require.Len(t, store.saved, 1)

	data, err := os.ReadFile(filepath.Join(dir, "submissions", "asg-1", "stu-1.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestSubmitRejectsBadInput(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t, assignmentLookupStub{known: map[string]bool{"asg-1": true}})

	_, err := svc.Submit(context.Background(), "asg-1", "stu-1", "virus.exe", 5, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Submit(context.Background(), "asg-1", "stu-1", "big.pdf", 4096, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Submit(context.Background(), "missing", "stu-1", "a.pdf", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSubmitTwiceConflicts(t *testing.T) {
	svc, _, _ := newSubmissionFixture(t, assignmentLookupStub{known: map[string]bool{"asg-1": true}, submitted: true})

	_, err := svc.Submit(context.Background(), "asg-1", "stu-1", "a.docx", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestSubmitDuplicateRowRemovesFile(t *testing.T) {
	svc, store, dir := newSubmissionFixture(t, assignmentLookupStub{known: map[string]bool{"asg-1": true}})
	store.err = repository.ErrDuplicateKey

	_, err := svc.Submit(context.Background(), "asg-1", "stu-1", "a.doc", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	_, statErr := os.Stat(filepath.Join(dir, "submissions", "asg-1", "stu-1.doc"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestSubmitPersistenceFailure(t *testing.T) {
	svc, store, _ := newSubmissionFixture(t, assignmentLookupStub{known: map[string]bool{"asg-1": true}})
	store.err = errors.New("connection reset")

	_, err := svc.Submit(context.Background(), "asg-1", "stu-1", "a.pdf", 1, strings.NewReader("x"))
	assert.ErrorIs(t, err, appErrors.ErrPersistence)
}
