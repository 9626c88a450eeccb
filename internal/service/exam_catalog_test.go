package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRemoveQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, "A", "B")

	require.NoError(t, f.catalog.RemoveQuestion(ctx, f.exam.ID, f.questions[0].ID))

	redacted, err := f.catalog.GetQuestionsWithoutAnswers(ctx, f.exam.ID)
	require.NoError(t, err)
	require.Len(t, redacted, 1)
	assert.Equal(t, f.questions[1].ID, redacted[0].ID)

	exam, err := f.catalog.GetExam(ctx, f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, exam.TotalQuestions)

	assert.ErrorIs(t, f.catalog.RemoveQuestion(ctx, f.exam.ID, f.questions[0].ID), ErrNotFound)
	assert.ErrorIs(t, f.catalog.RemoveQuestion(ctx, uuid.New(), f.questions[1].ID), ErrNotFound)
}

func TestCatalogSetExamActive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50, "A")

	require.NoError(t, f.catalog.SetExamActive(ctx, f.exam.ID, false))
	_, err := f.catalog.GetExamForCourse(ctx, f.course.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Retired exams stay readable by id for grading and certificates.
	exam, err := f.catalog.GetExam(ctx, f.exam.ID)
	require.NoError(t, err)
	assert.False(t, exam.IsActive)

	require.NoError(t, f.catalog.SetExamActive(ctx, f.exam.ID, true))
	active, err := f.catalog.GetExamForCourse(ctx, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, f.exam.ID, active.ID)

	assert.ErrorIs(t, f.catalog.SetExamActive(ctx, uuid.New(), false), ErrNotFound)
}
