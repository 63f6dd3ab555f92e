package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"studyhub/internal/task"
)

const taskColumns = `id, title, content, due_date, category, is_completed, emoji_icon`

func (s *Store) InsertTask(ctx context.Context, t task.Task) (int64, error) {
	t = t.WithDefaults()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, content, due_date, category, is_completed, emoji_icon) VALUES (?, ?, ?, ?, ?, ?);`,
		t.Title, t.Content, int64(t.Due), t.Category, boolInt(t.Completed), t.EmojiIcon)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

// UpdateTask overwrites every field of the row with t.ID.
func (s *Store) UpdateTask(ctx context.Context, t task.Task) error {
	t = t.WithDefaults()
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, content = ?, due_date = ?, category = ?, is_completed = ?, emoji_icon = ? WHERE id = ?;`,
		t.Title, t.Content, int64(t.Due), t.Category, boolInt(t.Completed), t.EmojiIcon, t.ID)
	if err != nil {
		return fmt.Errorf("update task %d: %w", t.ID, err)
	}
	return expectRow(res, "update task", t.ID)
}

func (s *Store) SetCompleted(ctx context.Context, id int64, completed bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET is_completed = ? WHERE id = ?;`, boolInt(completed), id)
	if err != nil {
		return fmt.Errorf("set completed %d: %w", id, err)
	}
	return expectRow(res, "set completed", id)
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return expectRow(res, "delete task", id)
}

func (s *Store) GetTask(ctx context.Context, id int64) (task.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

// AllTasks returns every task, earliest due date first.
func (s *Store) AllTasks(ctx context.Context) ([]task.Task, error) {
	return s.TasksByFilter(ctx, task.All, time.Time{})
}

func (s *Store) OngoingTasks(ctx context.Context, now time.Time) ([]task.Task, error) {
	return s.TasksByFilter(ctx, task.Ongoing, now)
}

func (s *Store) CompletedTasks(ctx context.Context) ([]task.Task, error) {
	return s.TasksByFilter(ctx, task.Completed, time.Time{})
}

func (s *Store) MissedTasks(ctx context.Context, now time.Time) ([]task.Task, error) {
	return s.TasksByFilter(ctx, task.Missed, now)
}

// TasksByFilter runs the query for f. The WHERE and ORDER BY clauses come
// from task.RuleFor, the same rule table Classify evaluates.
func (s *Store) TasksByFilter(ctx context.Context, f task.Filter, now time.Time) ([]task.Task, error) {
	tasks, err := s.filteredTasks(ctx, f, now, "")
	if err != nil {
		return nil, fmt.Errorf("list %s tasks: %w", f, err)
	}
	return tasks, nil
}

// TasksByFilterIn is TasksByFilter restricted to one category, in the same order.
func (s *Store) TasksByFilterIn(ctx context.Context, f task.Filter, now time.Time, category string) ([]task.Task, error) {
	tasks, err := s.filteredTasks(ctx, f, now, category)
	if err != nil {
		return nil, fmt.Errorf("list %s tasks in %q: %w", f, category, err)
	}
	return tasks, nil
}

func (s *Store) TasksByCategory(ctx context.Context, category string) ([]task.Task, error) {
	return s.TasksByFilterIn(ctx, task.All, time.Time{}, category)
}

func (s *Store) filteredTasks(ctx context.Context, f task.Filter, now time.Time, category string) ([]task.Task, error) {
	where, args, order := ruleClause(f, now)
	var conds []string
	if where != "" {
		conds = append(conds, where)
	}
	if category != "" {
		conds = append(conds, "category = ?")
		args = append(args, category)
	}
	q := `SELECT ` + taskColumns + ` FROM tasks`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY ` + order + `;`
	return s.queryTasks(ctx, q, args...)
}

func ruleClause(f task.Filter, now time.Time) (where string, args []any, order string) {
	r, ok := task.RuleFor(f)
	if !ok {
		return "", nil, "due_date ASC, id ASC"
	}
	conds := []string{"is_completed = ?"}
	args = append(args, boolInt(r.Completed))
	switch r.Due {
	case task.DuePast:
		conds = append(conds, "due_date != 0 AND due_date < ?")
		args = append(args, now.UnixMilli())
	case task.DueNotPast:
		conds = append(conds, "(due_date = 0 OR due_date >= ?)")
		args = append(args, now.UnixMilli())
	}
	dir := "ASC"
	if r.Order == task.Descending {
		dir = "DESC"
	}
	return strings.Join(conds, " AND "), args, fmt.Sprintf("due_date %s, id %s", dir, dir)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var t task.Task
	var due int64
	var completed int
	if err := row.Scan(&t.ID, &t.Title, &t.Content, &due, &t.Category, &completed, &t.EmojiIcon); err != nil {
		return task.Task{}, err
	}
	t.Due = task.DueDate(due)
	t.Completed = completed == 1
	return t.WithDefaults(), nil
}

func (s *Store) queryTasks(ctx context.Context, q string, args ...any) ([]task.Task, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func expectRow(res sql.Result, op string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %v: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %v: %w", op, id, ErrNotFound)
	}
	return nil
}
