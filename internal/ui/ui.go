package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"studyhub/internal/config"
	"studyhub/internal/storage"
	"studyhub/internal/task"
)

// Store is what the task screens need from storage.Store.
type Store interface {
	InsertTask(ctx context.Context, t task.Task) (int64, error)
	UpdateTask(ctx context.Context, t task.Task) error
	SetCompleted(ctx context.Context, id int64, completed bool) error
	DeleteTask(ctx context.Context, id int64) error
	GetTask(ctx context.Context, id int64) (task.Task, error)
	TasksByFilter(ctx context.Context, f task.Filter, now time.Time) ([]task.Task, error)
}

type Model struct {
	ctx        context.Context
	store      Store
	cfg        config.Config
	clock      task.Clock
	list       TaskList
	filter     task.Filter
	input      textinput.Model
	status     string
	confirmDel bool
	pendingDel *task.Task
	form       *formState
	detail     *task.Task
}

func NewModel(ctx context.Context, store Store, cfg config.Config, clock task.Clock) (Model, error) {
	if clock == nil {
		clock = task.SystemClock{}
	}
	filter, err := task.ParseFilter(cfg.DefaultFilter)
	if err != nil {
		filter = task.Ongoing
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		ctx:    ctx,
		store:  store,
		cfg:    cfg,
		clock:  clock,
		list:   NewTaskList(cfg.Keys, cfg.Theme, clock),
		filter: filter,
		input:  ti,
		status: fmt.Sprintf("Press '%s' to add, space to toggle, '%s' to delete.", cfg.Keys.Add, cfg.Keys.Delete),
	}
	if err := m.reload(); err != nil {
		return m, err
	}
	return m, nil
}

func Run(ctx context.Context, store Store, cfg config.Config) error {
	m, err := NewModel(ctx, store, cfg, task.SystemClock{})
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m *Model) reload() error {
	tasks, err := m.store.TasksByFilter(m.ctx, m.filter, m.clock.Now())
	if err != nil {
		return err
	}
	m.list.SetTasks(tasks)
	return nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.form != nil {
			return m.updateFormMode(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		return m.updateListMode(msg)
	case CompletionToggledMsg:
		return m.handleToggle(msg)
	case TaskActivatedMsg:
		return m.handleActivate(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	}
	return m, nil
}

func (m Model) updateListMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", m.cfg.Keys.Quit:
		return m, tea.Quit
	case m.cfg.Keys.Cancel:
		m.detail = nil
		return m, nil
	case m.cfg.Keys.NextFilter:
		return m.switchFilter(m.filter.Next())
	case m.cfg.Keys.PrevFilter:
		return m.switchFilter(m.filter.Prev())
	case m.cfg.Keys.Add:
		return m.startForm(task.Task{})
	case m.cfg.Keys.Edit:
		t, ok := m.list.Selected()
		if !ok {
			m.status = "No tasks to edit"
			return m, nil
		}
		return m.startForm(t)
	case m.cfg.Keys.Delete:
		t, ok := m.list.Selected()
		if !ok {
			return m, nil
		}
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Title)
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) switchFilter(f task.Filter) (tea.Model, tea.Cmd) {
	m.filter = f
	m.detail = nil
	if err := m.reload(); err != nil {
		m.status = fmt.Sprintf("reload failed: %v", err)
		return m, nil
	}
	m.status = fmt.Sprintf("Showing %s tasks", f)
	return m, nil
}

func (m Model) handleToggle(msg CompletionToggledMsg) (tea.Model, tea.Cmd) {
	if err := m.store.SetCompleted(m.ctx, msg.Task.ID, msg.Completed); err != nil {
		m.status = fmt.Sprintf("toggle failed: %v", err)
		return m, nil
	}
	if err := m.reload(); err != nil {
		m.status = fmt.Sprintf("reload failed: %v", err)
		return m, nil
	}
	if m.detail != nil && m.detail.ID == msg.Task.ID {
		m.detail.Completed = msg.Completed
	}
	if msg.Completed {
		m.status = fmt.Sprintf("Completed \"%s\"", msg.Task.Title)
	} else {
		m.status = fmt.Sprintf("Reopened \"%s\"", msg.Task.Title)
	}
	return m, nil
}

func (m Model) handleActivate(msg TaskActivatedMsg) (tea.Model, tea.Cmd) {
	t, err := m.store.GetTask(m.ctx, msg.Task.ID)
	if errors.Is(err, storage.ErrNotFound) {
		m.status = "Task no longer exists"
		if err := m.reload(); err != nil {
			m.status = fmt.Sprintf("reload failed: %v", err)
		}
		return m, nil
	}
	if err != nil {
		m.status = fmt.Sprintf("load failed: %v", err)
		return m, nil
	}
	m.detail = &t
	m.status = ""
	return m, nil
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.status = "Nothing to delete"
			m.confirmDel = false
			return m, nil
		}
		deleted := *m.pendingDel
		m.confirmDel = false
		m.pendingDel = nil
		if err := m.store.DeleteTask(m.ctx, deleted.ID); err != nil {
			m.status = fmt.Sprintf("delete failed: %v", err)
			return m, nil
		}
		if m.detail != nil && m.detail.ID == deleted.ID {
			m.detail = nil
		}
		if err := m.reload(); err != nil {
			m.status = fmt.Sprintf("reload failed: %v", err)
			return m, nil
		}
		m.status = "Deleted task"
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(lipgloss.NewStyle().Bold(true).Render("StudyHub"))
	b.WriteString("  ")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")
	b.WriteString(m.list.View())
	b.WriteString("\n---\n")

	switch {
	case m.form != nil:
		b.WriteString(m.form.heading())
		b.WriteString(" (tab/shift+tab to move, enter to save/next, esc to cancel)")
		b.WriteString("\n\n")
		b.WriteString(m.form.render())
		b.WriteString("\n")
		b.WriteString("Field: " + m.form.currentLabel())
		b.WriteString("\n")
		b.WriteString(m.input.View())
	case m.detail != nil:
		b.WriteString(renderDetail(*m.detail, m.clock.Now()))
	}

	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(renderHelp(m.cfg.Keys))

	return b.String()
}

func (m Model) renderTabs() string {
	active := lipgloss.NewStyle().Bold(true).Underline(true)
	var parts []string
	for _, f := range []task.Filter{task.All, task.Ongoing, task.Completed, task.Missed} {
		name := f.String()
		if f == m.filter {
			name = active.Render("[" + name + "]")
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

func renderDetail(t task.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s %s\n", t.EmojiIcon, t.Title))
	b.WriteString(fmt.Sprintf("Status   : %s\n", task.Classify(t, now)))
	due := task.FormatDueDate(t, time.Local)
	if rel := t.Due.Relative(now); rel != "" {
		due += " (" + rel + ")"
	}
	b.WriteString(fmt.Sprintf("Due      : %s\n", due))
	b.WriteString(fmt.Sprintf("Subject  : %s\n", emptyPlaceholder(t.Category.String)))
	b.WriteString(fmt.Sprintf("Notes    : %s\n", emptyPlaceholder(t.Content.String)))
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s/%s filter • %s add • %s detail • space toggle • %s edit • %s delete • %s quit",
		k.Up, k.Down, k.NextFilter, k.PrevFilter, k.Add, k.Detail, k.Edit, k.Delete, k.Quit)
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}
