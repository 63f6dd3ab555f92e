package storage

import (
	"context"
	"database/sql"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/internal/task"
)

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "studyhub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustInsert(t *testing.T, s *Store, tk task.Task) int64 {
	t.Helper()
	id, err := s.InsertTask(context.Background(), tk)
	require.NoError(t, err)
	return id
}

func ids(ts []task.Task) []int64 {
	out := make([]int64, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := task.Task{
		Title:     "Essay draft",
		Content:   task.NullString("intro + two sections"),
		Due:       task.DueAt(now.Add(day)),
		Category:  task.NullString("History"),
		Completed: false,
		EmojiIcon: "📝",
	}
	id := mustInsert(t, s, in)
	assert.NotZero(t, id)

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	in.ID = id
	assert.Equal(t, in, got)
}

func TestInsertKeepsEmptyTitleAndDefaultsEmoji(t *testing.T) {
	s := openTestStore(t)
	id := mustInsert(t, s, task.Task{})

	got, err := s.GetTask(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "", got.Title)
	assert.Equal(t, task.DefaultEmoji, got.EmojiIcon)
	assert.False(t, got.Content.Valid)
	assert.False(t, got.Category.Valid)
}

func TestGetTaskNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetTask(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := mustInsert(t, s, task.Task{Title: "old"})

	upd := task.Task{ID: id, Title: "new", Content: task.NullString("body"), Due: task.DueAt(now), Completed: true, EmojiIcon: "✅"}
	require.NoError(t, s.UpdateTask(ctx, upd))

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, upd, got)

	assert.ErrorIs(t, s.UpdateTask(ctx, task.Task{ID: id + 100, Title: "ghost"}), ErrNotFound)
}

func TestSetCompletedTouchesOnlyCompletion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	in := task.Task{Title: "Lab report", Content: task.NullString("x"), Due: task.DueAt(now), Category: task.NullString("Chem"), EmojiIcon: "🧪"}
	id := mustInsert(t, s, in)

	require.NoError(t, s.SetCompleted(ctx, id, true))

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	want := in
	want.ID = id
	want.Completed = true
	assert.Equal(t, want, got)

	assert.ErrorIs(t, s.SetCompleted(ctx, 999, true), ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := mustInsert(t, s, task.Task{Title: "a"})
	mustInsert(t, s, task.Task{Title: "b"})

	err := s.DeleteTask(ctx, id+1000)
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := s.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.DeleteTask(ctx, id))
	n, err = s.CountTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.GetTask(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoDueDateIsOngoing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := mustInsert(t, s, task.Task{Title: "Read ch.3", Due: task.NoDueDate})

	ongoing, err := s.OngoingTasks(ctx, now)
	require.NoError(t, err)
	assert.Contains(t, ids(ongoing), id)

	missed, err := s.MissedTasks(ctx, now)
	require.NoError(t, err)
	assert.NotContains(t, ids(missed), id)
}

func TestOverdueThenCompleted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := mustInsert(t, s, task.Task{Title: "Problem set", Due: task.DueAt(now.Add(-day))})

	missed, err := s.MissedTasks(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids(missed))
	ongoing, err := s.OngoingTasks(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, ongoing)
	completed, err := s.CompletedTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, completed)

	require.NoError(t, s.SetCompleted(ctx, id, true))

	completed, err = s.CompletedTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids(completed))
	missed, err = s.MissedTasks(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, missed)
	ongoing, err = s.OngoingTasks(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, ongoing)

	got, err := s.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, task.Completed, task.Classify(got, now))
}

func TestQueryOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	late := mustInsert(t, s, task.Task{Title: "late", Due: task.DueAt(now.Add(3 * day))})
	none := mustInsert(t, s, task.Task{Title: "none"})
	soon := mustInsert(t, s, task.Task{Title: "soon", Due: task.DueAt(now.Add(day))})
	old := mustInsert(t, s, task.Task{Title: "old", Due: task.DueAt(now.Add(-3 * day))})
	recent := mustInsert(t, s, task.Task{Title: "recent", Due: task.DueAt(now.Add(-day))})

	all, err := s.AllTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{none, old, recent, soon, late}, ids(all))

	ongoing, err := s.OngoingTasks(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{none, soon, late}, ids(ongoing))

	missed, err := s.MissedTasks(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{recent, old}, ids(missed))

	require.NoError(t, s.SetCompleted(ctx, old, true))
	require.NoError(t, s.SetCompleted(ctx, late, true))
	completed, err := s.CompletedTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{late, old}, ids(completed))
}

// The store queries and Classify must agree on every task.
func TestFilteredQueriesMatchClassify(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		tk := task.Task{Title: "t", Completed: rng.Intn(2) == 0}
		switch rng.Intn(4) {
		case 0:
			tk.Due = task.NoDueDate
		case 1:
			tk.Due = task.DueAt(now)
		default:
			tk.Due = task.DueAt(now.Add(time.Duration(rng.Intn(20)-10) * time.Hour))
		}
		mustInsert(t, s, tk)
	}

	all, err := s.AllTasks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 200)

	total := 0
	for _, f := range []task.Filter{task.Ongoing, task.Completed, task.Missed} {
		got, err := s.TasksByFilter(ctx, f, now)
		require.NoError(t, err)
		want := task.Select(all, f, now)
		assert.ElementsMatch(t, ids(want), ids(got), "filter %s", f)
		for _, tk := range got {
			assert.Equal(t, f, task.Classify(tk, now))
		}
		total += len(got)
	}
	assert.Equal(t, len(all), total)
}

func TestTasksByCategory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustInsert(t, s, task.Task{Title: "a", Category: task.NullString("Math")})
	mustInsert(t, s, task.Task{Title: "b", Category: task.NullString("Art")})
	mustInsert(t, s, task.Task{Title: "c"})

	got, err := s.TasksByCategory(ctx, "Math")
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, ids(got))
}

func TestTasksByFilterInKeepsFilterOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	math := task.NullString("Math")
	old := mustInsert(t, s, task.Task{Title: "old", Category: math, Due: task.DueAt(now.Add(-3 * day))})
	recent := mustInsert(t, s, task.Task{Title: "recent", Category: math, Due: task.DueAt(now.Add(-day))})
	mustInsert(t, s, task.Task{Title: "other", Category: task.NullString("Art"), Due: task.DueAt(now.Add(-2 * day))})
	soon := mustInsert(t, s, task.Task{Title: "soon", Category: math, Due: task.DueAt(now.Add(day))})

	missed, err := s.TasksByFilterIn(ctx, task.Missed, now, "Math")
	require.NoError(t, err)
	assert.Equal(t, []int64{recent, old}, ids(missed))

	ongoing, err := s.TasksByFilterIn(ctx, task.Ongoing, now, "Math")
	require.NoError(t, err)
	assert.Equal(t, []int64{soon}, ids(ongoing))

	all, err := s.TasksByFilterIn(ctx, task.All, now, "Math")
	require.NoError(t, err)
	assert.Equal(t, []int64{old, recent, soon}, ids(all))

	unscoped, err := s.TasksByFilterIn(ctx, task.Missed, now, "")
	require.NoError(t, err)
	assert.Len(t, unscoped, 3)
}

func TestEnsureTaskColumnsUpgradesOldTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", sqliteDSN(path))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	due_date INTEGER NOT NULL DEFAULT 0,
	is_completed INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tasks (title) VALUES ('legacy');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	all, err := s.AllTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "legacy", all[0].Title)
	assert.Equal(t, task.DefaultEmoji, all[0].EmojiIcon)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
