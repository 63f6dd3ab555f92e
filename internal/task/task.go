package task

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultEmoji tags tasks created without an icon.
const DefaultEmoji = "📌"

const dueLayout = "Jan 02, 2006 | 03:04 PM"

// DueDate is a deadline in milliseconds since the Unix epoch. The zero value
// means the task has no due date; it is never a point in time.
type DueDate int64

const NoDueDate DueDate = 0

func DueAt(t time.Time) DueDate {
	if t.IsZero() {
		return NoDueDate
	}
	return DueDate(t.UnixMilli())
}

func (d DueDate) IsSet() bool {
	return d != NoDueDate
}

func (d DueDate) Time() time.Time {
	return time.UnixMilli(int64(d))
}

// Before reports whether d is set and lies strictly before now.
func (d DueDate) Before(now time.Time) bool {
	return d.IsSet() && int64(d) < now.UnixMilli()
}

// Relative renders d as "3 days ago" or "2 hours from now".
func (d DueDate) Relative(now time.Time) string {
	if !d.IsSet() {
		return ""
	}
	return humanize.RelTime(d.Time(), now, "ago", "from now")
}

type Task struct {
	ID        int64
	Title     string
	Content   sql.NullString
	Due       DueDate
	Category  sql.NullString
	Completed bool
	EmojiIcon string
}

// WithDefaults returns t with unset optional fields filled in.
func (t Task) WithDefaults() Task {
	if t.EmojiIcon == "" {
		t.EmojiIcon = DefaultEmoji
	}
	return t
}

// FormatDueDate renders the due date in loc, or "No Due Date" when unset.
// A nil loc means time.Local.
func FormatDueDate(t Task, loc *time.Location) string {
	if !t.Due.IsSet() {
		return "No Due Date"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.Due.Time().In(loc).Format(dueLayout)
}

func NullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var dueLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02"}

// ParseDue reads a date or date-time in loc. A bare date means the end of
// that day; an empty string means no due date.
func ParseDue(v string, loc *time.Location) (DueDate, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return NoDueDate, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for i, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err != nil {
			continue
		}
		if i == len(dueLayouts)-1 {
			t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, loc)
		}
		return DueAt(t), nil
	}
	return NoDueDate, fmt.Errorf("want YYYY-MM-DD or YYYY-MM-DD HH:MM, got %q", v)
}

// Input renders d the way ParseDue reads it back.
func (d DueDate) Input(loc *time.Location) string {
	if !d.IsSet() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return d.Time().In(loc).Format(dueLayouts[0])
}
