package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"studyhub/internal/task"
)

const (
	fieldTitle = iota
	fieldContent
	fieldDue
	fieldCategory
	fieldEmoji
	fieldCount
)

var errEmptyTitle = errors.New("title cannot be empty")

type formState struct {
	base   task.Task
	values [fieldCount]string
	index  int
}

func formFields() [fieldCount]string {
	return [fieldCount]string{"title", "notes", "due (YYYY-MM-DD HH:MM)", "subject", "emoji"}
}

func newFormState(t task.Task) *formState {
	fs := &formState{base: t}
	fs.values[fieldTitle] = t.Title
	fs.values[fieldContent] = t.Content.String
	fs.values[fieldDue] = t.Due.Input(time.Local)
	fs.values[fieldCategory] = t.Category.String
	fs.values[fieldEmoji] = t.EmojiIcon
	return fs
}

func (fs *formState) heading() string {
	if fs.base.ID == 0 {
		return "New task"
	}
	return fmt.Sprintf("Edit task #%d", fs.base.ID)
}

func (fs *formState) currentLabel() string {
	return formFields()[fs.index]
}

func (fs *formState) render() string {
	var b strings.Builder
	for i, name := range formFields() {
		prefix := " "
		if i == fs.index {
			prefix = ">"
		}
		val := fs.values[i]
		if strings.TrimSpace(val) == "" {
			val = "(empty)"
		}
		b.WriteString(fmt.Sprintf("%s %-24s : %s\n", prefix, name, val))
	}
	return b.String()
}

// build turns the form into a task, keeping ID and completion from the
// task being edited.
func (fs *formState) build() (task.Task, error) {
	title := strings.TrimSpace(fs.values[fieldTitle])
	if title == "" {
		return task.Task{}, errEmptyTitle
	}
	due, err := task.ParseDue(fs.values[fieldDue], time.Local)
	if err != nil {
		return task.Task{}, fmt.Errorf("due date invalid: %w", err)
	}
	t := fs.base
	t.Title = title
	t.Content = task.NullString(strings.TrimSpace(fs.values[fieldContent]))
	t.Due = due
	t.Category = task.NullString(strings.TrimSpace(fs.values[fieldCategory]))
	t.EmojiIcon = strings.TrimSpace(fs.values[fieldEmoji])
	return t.WithDefaults(), nil
}

func (m Model) startForm(t task.Task) (tea.Model, tea.Cmd) {
	m.form = newFormState(t)
	m.list.SetActive(false)
	m.input.SetValue(m.form.values[m.form.index])
	m.input.Placeholder = m.form.currentLabel()
	cmd := m.input.Focus()
	m.status = m.formPrompt()
	return m, cmd
}

func (m Model) closeForm(status string) Model {
	m.form = nil
	m.list.SetActive(true)
	m.input.SetValue("")
	m.input.Blur()
	m.status = status
	return m
}

func (m Model) moveField(delta int) Model {
	m.form.values[m.form.index] = m.input.Value()
	m.form.index = wrapIndex(m.form.index+delta, fieldCount)
	m.input.SetValue(m.form.values[m.form.index])
	m.input.Placeholder = m.form.currentLabel()
	m.status = m.formPrompt()
	return m
}

func (m Model) updateFormMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel, "esc":
		return m.closeForm("Cancelled"), nil
	case "tab", "down":
		return m.moveField(1), nil
	case "shift+tab", "up":
		return m.moveField(-1), nil
	case m.cfg.Keys.Confirm, "enter":
		if m.form.index >= fieldCount-1 {
			m.form.values[m.form.index] = m.input.Value()
			return m.saveForm()
		}
		return m.moveField(1), nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) saveForm() (tea.Model, tea.Cmd) {
	t, err := m.form.build()
	if errors.Is(err, errEmptyTitle) {
		m.form.index = fieldTitle
		m.input.SetValue(m.form.values[fieldTitle])
		m.input.Placeholder = m.form.currentLabel()
		m.status = "Title cannot be empty"
		return m, nil
	}
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	status := "Updated task"
	if t.ID == 0 {
		id, err := m.store.InsertTask(m.ctx, t)
		if err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
			return m, nil
		}
		t.ID = id
		status = "Added task"
	} else if err := m.store.UpdateTask(m.ctx, t); err != nil {
		m.status = fmt.Sprintf("save failed: %v", err)
		return m, nil
	}

	m = m.closeForm(status)
	if m.detail != nil && m.detail.ID == t.ID {
		m.detail = &t
	}
	if err := m.reload(); err != nil {
		m.status = fmt.Sprintf("reload failed: %v", err)
		return m, nil
	}
	m.list.Select(t.ID)
	return m, nil
}

func (m Model) formPrompt() string {
	if m.form == nil {
		return ""
	}
	return fmt.Sprintf("Editing %s (field %d of %d). Enter to advance, Esc to cancel.",
		m.form.currentLabel(), m.form.index+1, fieldCount)
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}
