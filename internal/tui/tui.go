package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/ragcookbook/server/internal/deploy"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const defaultWidth = 80

// instructions is markdown shown once the endpoint is ready; cancel stops
// the poller when the user quits early
func NewWatch(d deploy.Deployment, instructions string, cancel context.CancelFunc) *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := &WatchModel{
		deployment: d,
		cancel:     cancel,
		spinner:    s,
		width:      defaultWidth,
		now:        time.Now,
	}

	m.started = m.now()
	m.markdown = instructions
	m.renderInstructions()

	return m
}

func (m *WatchModel) renderInstructions() {
	if m.markdown == "" {
		return
	}

	rendered, err := RenderMarkdown(m.markdown, m.width)
	if err != nil {
		rendered = m.markdown
	}

	m.instructions = rendered
}

func (m *WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.phase == PhaseWaiting {
				m.phase = PhaseCanceled

				if m.cancel != nil {
					m.cancel()
				}
			}

			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.renderInstructions()

		return m, nil

	case StatusMsg:
		if msg.Endpoint != nil {
			m.state = msg.Endpoint.State
		}

		m.polls++
		m.elapsed = m.now().Sub(m.started)

		return m, nil

	case DoneMsg:
		m.elapsed = m.now().Sub(m.started)

		switch {
		case msg.Err == nil:
			m.phase = PhaseReady
		case errors.Is(msg.Err, context.Canceled):
			m.phase = PhaseCanceled
		default:
			m.phase = PhaseFailed
			m.err = msg.Err
		}

		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m *WatchModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("Deploying %s version %s", m.deployment.ModelName, m.deployment.ModelVersion)
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	switch m.phase {
	case PhaseWaiting:
		ready := string(m.state.Ready)
		if ready == "" {
			ready = "UNKNOWN"
		}

		fmt.Fprintf(&b, "%s waiting for %s\n", m.spinner.View(), m.deployment.EndpointName)
		b.WriteString(row("ready", ready))
		b.WriteString(row("config update", string(m.state.ConfigUpdate)))
		b.WriteString(row("polls", fmt.Sprintf("%d (%s)", m.polls, m.elapsed.Round(time.Second))))
		b.WriteString(infoStyle.Render("endpoints usually take about 15 minutes to become ready"))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("[q/Ctrl+C: stop waiting]"))

	case PhaseReady:
		b.WriteString(successStyle.Render("endpoint is ready"))
		b.WriteString("\n\n")

		summary := row("endpoint", m.deployment.EndpointURL) +
			row("query", m.deployment.QueryEndpoint) +
			row("review app", m.deployment.ReviewAppURL)

		b.WriteString(borderStyle.Render(strings.TrimRight(summary, "\n")))
		b.WriteString("\n")

		if m.instructions != "" {
			b.WriteString(m.instructions)
		}

	case PhaseFailed:
		b.WriteString(errorStyle.Render("deployment failed: " + m.err.Error()))
		b.WriteString("\n")

	case PhaseCanceled:
		b.WriteString(infoStyle.Render("stopped waiting; the endpoint keeps deploying in the background"))
		b.WriteString("\n")
	}

	return b.String() + "\n"
}

func (m *WatchModel) Phase() Phase {
	return m.phase
}

// error that ended the watch, if any
func (m *WatchModel) Err() error {
	return m.err
}

func row(label, value string) string {
	if value == "" {
		value = "-"
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), valueStyle.Render(value)) + "\n"
}

// renders markdown for the terminal
func RenderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}

	return r.Render(md)
}
