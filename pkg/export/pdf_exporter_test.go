package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderQuestionSheet(t *testing.T) {
	out, err := NewPDFExporter().Render(QuestionSheet{
		Title:     "Recovery Assignment - Physics",
		Subject:   "Physics",
		DueDate:   time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		Questions: []string{"What is inertia?", "Derive v = u + at."},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRequiresQuestions(t *testing.T) {
	_, err := NewPDFExporter().Render(QuestionSheet{Title: "x"})
	assert.Error(t, err)
}
