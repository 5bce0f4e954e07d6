// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package progress reports fetch progress on the terminal.
package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/confighub/env-status/internal/clierr"
	"github.com/confighub/env-status/internal/statussvc"
)

// ErrInterrupted is returned by Run when the user quits before the work
// finished.
var ErrInterrupted = errors.New("interrupted")

const doneText = "All required data fetched"

var (
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Messages sent from the fetch loop to the model.
type (
	fetchingMsg struct {
		index, total int
		env          string
	}
	failedMsg struct {
		env string
		err error
	}
	doneMsg struct{}
)

type keyMap struct {
	Quit key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "abort")),
	}
}

// Model is the spinner shown while environments are fetched.
type Model struct {
	keys        keyMap
	spinner     spinner.Model
	text        string
	failed      []string
	notices     []string
	done        bool
	interrupted bool
}

// New creates the progress model.
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	return Model{
		keys:    defaultKeyMap(),
		spinner: s,
		text:    "Fetching data",
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil

	case fetchingMsg:
		m.text = fetchingText(msg.index, msg.total, msg.env)
		return m, nil

	case failedMsg:
		m.failed = append(m.failed, msg.env)
		m.notices = append(m.notices, failureText(msg.env, msg.err))
		return m, nil

	case doneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View keeps failure notices above the status line so they survive the
// final frame.
func (m Model) View() string {
	var b strings.Builder
	for _, n := range m.notices {
		b.WriteString(failStyle.Render(n) + "\n")
	}
	switch {
	case m.done:
		b.WriteString(doneStyle.Render("✔ "+doneText) + "\n")
	case m.interrupted:
		b.WriteString(failStyle.Render("✖ Aborted") + "\n")
	default:
		b.WriteString(m.spinner.View() + " " + m.text + "\n")
	}
	return b.String()
}

// Failed returns the environments reported as failed so far.
func (m Model) Failed() []string {
	return m.failed
}

func fetchingText(i, total int, env string) string {
	return fmt.Sprintf("(%d/%d) Fetching data about %s", i, total, env)
}

func failureText(env string, err error) string {
	return fmt.Sprintf("✖ Failed to fetch %s data: %s", env, clierr.Short(err))
}

// programObserver forwards fetch events to a running program.
type programObserver struct {
	p *tea.Program
}

var _ statussvc.Observer = (*programObserver)(nil)

func (o *programObserver) Fetching(i, total int, env string) {
	o.p.Send(fetchingMsg{index: i, total: total, env: env})
}

func (o *programObserver) Failed(env string, err error) {
	o.p.Send(failedMsg{env: env, err: err})
}

func (o *programObserver) Done() {
	o.p.Send(doneMsg{})
}

// Run shows the spinner while work runs. work must call the observer's Done
// when it finishes. If the user aborts, work's context is cancelled, Run
// waits for work to return and reports ErrInterrupted.
func Run(ctx context.Context, work func(ctx context.Context, obs statussvc.Observer), opts ...tea.ProgramOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(New(), opts...)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		work(ctx, &programObserver{p: p})
	}()

	final, err := p.Run()
	if m, ok := final.(Model); (ok && m.interrupted) || errors.Is(err, tea.ErrInterrupted) {
		cancel()
		<-finished
		return ErrInterrupted
	}
	// A display failure does not stop the work; Send is a no-op once the
	// program has exited.
	<-finished
	if err != nil {
		return fmt.Errorf("progress display: %w", err)
	}
	return nil
}

// lineObserver prints one line per event, for output that is not a
// terminal.
type lineObserver struct {
	w io.Writer
}

// Lines returns an observer that writes plain progress lines to w.
func Lines(w io.Writer) statussvc.Observer {
	return &lineObserver{w: w}
}

func (o *lineObserver) Fetching(i, total int, env string) {
	fmt.Fprintln(o.w, fetchingText(i, total, env))
}

func (o *lineObserver) Failed(env string, err error) {
	fmt.Fprintln(o.w, failureText(env, err))
}

func (o *lineObserver) Done() {
	fmt.Fprintln(o.w, "✔ "+doneText)
}
