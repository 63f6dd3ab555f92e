package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Subject is a named folder; tasks belong to it through their category.
type Subject struct {
	ID        int64
	Name      string
	Emoji     string
	CreatedAt time.Time
}

var ErrDuplicateSubject = errors.New("subject already exists")

func (s *Store) CreateSubject(ctx context.Context, name, emoji string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("subject name is empty")
	}
	created := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx, `INSERT INTO subjects (name, emoji, created_at) VALUES (?, ?, ?);`, name, emoji, created)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("create subject %q: %w", name, ErrDuplicateSubject)
		}
		return 0, fmt.Errorf("create subject %q: %w", name, err)
	}
	return res.LastInsertId()
}

func (s *Store) Subjects(ctx context.Context) ([]Subject, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, emoji, created_at FROM subjects ORDER BY name COLLATE NOCASE;`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []Subject
	for rows.Next() {
		var sub Subject
		var created string
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Emoji, &created); err != nil {
			return nil, fmt.Errorf("list subjects: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			sub.CreatedAt = ts
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// RenameSubject renames the subject and moves its tasks along with it.
func (s *Store) RenameSubject(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return errors.New("subject name is empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE subjects SET name = ? WHERE name = ?;`, newName, oldName)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rename subject %q: %w", oldName, ErrDuplicateSubject)
		}
		return fmt.Errorf("rename subject %q: %w", oldName, err)
	}
	if err := expectRow(res, "rename subject", oldName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET category = ? WHERE category = ?;`, newName, oldName); err != nil {
		return fmt.Errorf("rename subject %q: %w", oldName, err)
	}
	return tx.Commit()
}

// DeleteSubject removes the subject and clears the category of its tasks.
// The tasks themselves are kept.
func (s *Store) DeleteSubject(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE name = ?;`, name)
	if err != nil {
		return fmt.Errorf("delete subject %q: %w", name, err)
	}
	if err := expectRow(res, "delete subject", name); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET category = NULL WHERE category = ?;`, name); err != nil {
		return fmt.Errorf("delete subject %q: %w", name, err)
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
