package history

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyros-projects/zxplorer/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:             "run-1",
		Prompt:         "a __style__ harbor",
		ResolvedPrompt: "a watercolor harbor",
		Seeds:          []int64{100, 101, 102},
		OutputCount:    3,
		Warnings:       []string{"variable \"light\" is not defined, using its name literally"},
	}
	require.NoError(t, s.Record(ctx, run))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.Prompt, got.Prompt)
	assert.Equal(t, run.ResolvedPrompt, got.ResolvedPrompt)
	assert.Equal(t, run.Seeds, got.Seeds)
	assert.Equal(t, run.OutputCount, got.OutputCount)
	assert.Equal(t, run.Warnings, got.Warnings)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetMissingRun(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(context.Background(), "absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRecordRejectsEmptyID(t *testing.T) {
	s := openTestStore(t)

	err := s.Record(context.Background(), Run{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestRecordRejectsDuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := Run{ID: "dup", Prompt: "p", ResolvedPrompt: "p", OutputCount: 1}
	require.NoError(t, s.Record(ctx, run))
	assert.Error(t, s.Record(ctx, run))
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.Record(ctx, Run{
			ID:             id,
			Prompt:         "p",
			ResolvedPrompt: "p",
			OutputCount:    1,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
		}))
	}

	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[2].ID)

	runs, err = s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestListEmptyStore(t *testing.T) {
	s := openTestStore(t)

	runs, err := s.List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecordQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO runs").
		WillReturnError(errors.New("disk I/O error"))

	s := NewWithDB(db, nil)
	err = s.Record(context.Background(), Run{ID: "x", Prompt: "p", ResolvedPrompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, prompt").
		WillReturnError(errors.New("database is locked"))

	s := NewWithDB(db, nil)
	_, err = s.List(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}
