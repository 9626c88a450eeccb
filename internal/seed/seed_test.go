package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/akademi-backend/internal/model"
	"github.com/stemsi/akademi-backend/internal/repository/memory"
	"github.com/stemsi/akademi-backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoExamIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	store := mem.Bundle()
	mem.PutCourse(DemoCourse)
	catalog := service.NewExamCatalog(store.Exams, store.Questions, nil, 0, zerolog.Nop())

	exam, created, err := DemoExam(ctx, store.Exams, catalog, DemoCourse.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, len(demoQuestions), exam.TotalQuestions)

	again, created, err := DemoExam(ctx, store.Exams, catalog, DemoCourse.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, exam.ID, again.ID)

	qs, err := catalog.GetQuestions(ctx, exam.ID)
	require.NoError(t, err)
	assert.Len(t, qs, len(demoQuestions))
}

func TestDemoQuestionsAreValid(t *testing.T) {
	for _, dq := range demoQuestions {
		assert.Contains(t, dq.options, dq.answer, dq.text)
	}
}

func TestSyncDemoQuestions(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	store := mem.Bundle()
	mem.PutCourse(DemoCourse)
	catalog := service.NewExamCatalog(store.Exams, store.Questions, nil, 0, zerolog.Nop())

	exam, _, err := DemoExam(ctx, store.Exams, catalog, DemoCourse.ID)
	require.NoError(t, err)

	qs, err := catalog.GetQuestions(ctx, exam.ID)
	require.NoError(t, err)
	require.NoError(t, catalog.RemoveQuestion(ctx, exam.ID, qs[0].ID))
	stale := &model.ExamQuestion{ExamID: exam.ID, QuestionText: "Retired question?", Options: []string{"a", "b"}, CorrectAnswer: "a", OrderNum: 5}
	require.NoError(t, catalog.AddQuestion(ctx, stale))

	added, removed, err := SyncDemoQuestions(ctx, catalog, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)

	synced, err := catalog.GetQuestions(ctx, exam.ID)
	require.NoError(t, err)
	require.Len(t, synced, len(demoQuestions))
	assert.Equal(t, demoQuestions[0].text, synced[len(synced)-1].QuestionText)

	added, removed, err = SyncDemoQuestions(ctx, catalog, exam.ID)
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, removed)
}

func TestRetiredDemoExamIsReplaced(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	store := mem.Bundle()
	mem.PutCourse(DemoCourse)
	catalog := service.NewExamCatalog(store.Exams, store.Questions, nil, 0, zerolog.Nop())

	first, _, err := DemoExam(ctx, store.Exams, catalog, DemoCourse.ID)
	require.NoError(t, err)
	require.NoError(t, catalog.SetExamActive(ctx, first.ID, false))

	second, created, err := DemoExam(ctx, store.Exams, catalog, DemoCourse.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}
