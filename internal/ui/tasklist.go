package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"studyhub/internal/config"
	"studyhub/internal/task"
)

// TaskActivatedMsg reports that the user opened a row.
type TaskActivatedMsg struct {
	Task task.Task
}

// CompletionToggledMsg reports a checkbox flip. Completed is the new value.
type CompletionToggledMsg struct {
	Task      task.Task
	Completed bool
}

// TaskList renders a sequence of tasks and turns key presses into
// TaskActivatedMsg and CompletionToggledMsg. It never writes to the store;
// its owner does that and hands back fresh data with SetTasks.
type TaskList struct {
	tasks  []task.Task
	cursor int
	keys   config.Keymap
	theme  config.Theme
	clock  task.Clock
	loc    *time.Location
	active bool
}

func NewTaskList(keys config.Keymap, theme config.Theme, clock task.Clock) TaskList {
	if clock == nil {
		clock = task.SystemClock{}
	}
	return TaskList{keys: keys, theme: theme, clock: clock, loc: time.Local, active: true}
}

// SetTasks replaces the displayed tasks wholesale.
func (l *TaskList) SetTasks(tasks []task.Task) {
	l.tasks = append([]task.Task(nil), tasks...)
	l.cursor = clampCursor(l.cursor, len(l.tasks))
}

func (l TaskList) Tasks() []task.Task {
	return append([]task.Task(nil), l.tasks...)
}

func (l TaskList) Len() int { return len(l.tasks) }

func (l TaskList) Cursor() int { return l.cursor }

// Select moves the cursor to the task with id, if present.
func (l *TaskList) Select(id int64) {
	for i, t := range l.tasks {
		if t.ID == id {
			l.cursor = i
			return
		}
	}
}

func (l TaskList) Selected() (task.Task, bool) {
	if len(l.tasks) == 0 {
		return task.Task{}, false
	}
	return l.tasks[l.cursor], true
}

func (l *TaskList) SetActive(active bool) { l.active = active }

func (l TaskList) Update(msg tea.Msg) (TaskList, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(l.tasks) == 0 {
		return l, nil
	}
	switch key.String() {
	case l.keys.Down, "down":
		l.cursor = clampCursor(l.cursor+1, len(l.tasks))
	case l.keys.Up, "up":
		l.cursor = clampCursor(l.cursor-1, len(l.tasks))
	case l.keys.Toggle:
		t := l.tasks[l.cursor]
		return l, func() tea.Msg {
			return CompletionToggledMsg{Task: t, Completed: !t.Completed}
		}
	case l.keys.Detail:
		t := l.tasks[l.cursor]
		return l, func() tea.Msg {
			return TaskActivatedMsg{Task: t}
		}
	}
	return l, nil
}

func (l TaskList) View() string {
	if len(l.tasks) == 0 {
		return "Nothing here. Press '" + l.keys.Add + "' to add a task."
	}
	now := l.clock.Now()
	var b strings.Builder
	for i, t := range l.tasks {
		b.WriteString(l.renderRow(t, i == l.cursor && l.active, now))
		b.WriteString("\n")
	}
	return b.String()
}

func (l TaskList) renderRow(t task.Task, selected bool, now time.Time) string {
	cursor := " "
	if selected {
		cursor = ">"
	}
	checkbox := "[ ]"
	if t.Completed {
		checkbox = "[x]"
	}
	body := fmt.Sprintf("%s %s %s %s\n      %s", cursor, checkbox, t.EmojiIcon, t.Title, task.FormatDueDate(t, l.loc))
	if t.Category.Valid {
		body += "  #" + t.Category.String
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(l.accent(task.Classify(t, now))).
		PaddingLeft(1)
	if t.Completed {
		style = style.Faint(true)
	}
	return style.Render(body)
}

func (l TaskList) accent(f task.Filter) lipgloss.Color {
	switch f {
	case task.Missed:
		return lipgloss.Color(l.theme.Missed)
	case task.Completed:
		return lipgloss.Color(l.theme.Completed)
	default:
		return lipgloss.Color(l.theme.Ongoing)
	}
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
