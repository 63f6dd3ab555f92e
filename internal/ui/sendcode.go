package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// CodeSender issues a verification code, typically account.Service.
type CodeSender interface {
	SendCode(ctx context.Context, email string) error
}

type codeSentMsg struct {
	err error
}

// SendCodeModel shows a spinner while the code is sent off the update loop.
// The result arrives as a codeSentMsg before anything else on screen changes.
type SendCodeModel struct {
	ctx     context.Context
	sender  CodeSender
	email   string
	spinner spinner.Model
	done    bool
	err     error
}

func NewSendCodeModel(ctx context.Context, sender CodeSender, email string) SendCodeModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return SendCodeModel{ctx: ctx, sender: sender, email: email, spinner: sp}
}

func (m SendCodeModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.send)
}

func (m SendCodeModel) send() tea.Msg {
	return codeSentMsg{err: m.sender.SendCode(m.ctx, m.email)}
}

func (m SendCodeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case codeSentMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = context.Canceled
			return m, tea.Quit
		}
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m SendCodeModel) View() string {
	switch {
	case !m.done:
		return fmt.Sprintf("%s Sending verification code to %s...\n", m.spinner.View(), m.email)
	case m.err != nil:
		return fmt.Sprintf("Could not send code: %v\n", m.err)
	default:
		return fmt.Sprintf("Code sent to %s. Run `studyhub verify` with it.\n", m.email)
	}
}

func (m SendCodeModel) Err() error { return m.err }

// SendCode runs SendCodeModel to completion and returns the send result.
func SendCode(ctx context.Context, sender CodeSender, email string, opts ...tea.ProgramOption) error {
	final, err := tea.NewProgram(NewSendCodeModel(ctx, sender, email), opts...).Run()
	if err != nil {
		return err
	}
	return final.(SendCodeModel).Err()
}
