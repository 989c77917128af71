// Package pager is the full-screen scrolling view used by the read
// command when stdout is a terminal.
package pager

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mailcheck/mailcheck/internal/keys"
	"github.com/mailcheck/mailcheck/internal/theme"
)

// Message is the displayable form of a fetched message. Attachment
// lines arrive preformatted so the plain (non-terminal) output path
// can share them.
type Message struct {
	Subject     string
	From        string
	Date        string
	Mailbox     string
	UID         string
	Unread      bool
	FromHTML    bool
	Body        string
	Attachments []string
}

// Model is the pager component: a viewport over one rendered message
// with a title bar and a scroll position footer.
type Model struct {
	msg      Message
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	ready    bool
}

// New creates a pager model for the given message.
func New(msg Message) Model {
	return Model{msg: msg, keys: keys.DefaultKeyMap()}
}

// Init returns the initial command for the pager.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the pager.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inner := msg.Height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.footerView())
		if !m.ready {
			m.viewport = viewport.New(msg.Width, inner)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = inner
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the pager.
func (m Model) View() string {
	if !m.ready {
		return "Loading message..."
	}
	return lipgloss.JoinVertical(
		lipgloss.Left, m.headerView(), m.viewport.View(), m.footerView(),
	)
}

func (m Model) headerView() string {
	title := theme.TitleStyle.Render(m.msg.Subject)
	fill := max(0, m.width-lipgloss.Width(title))
	line := theme.SeparatorStyle.Render(strings.Repeat("─", fill))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, line)
}

func (m Model) footerView() string {
	percent := theme.StatusBarStyle.Render(
		fmt.Sprintf("%3.0f%%", m.viewport.ScrollPercent()*100),
	)

	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	hints := theme.HelpStyle.Render(strings.Join(parts, " · "))

	gap := max(1, m.width-lipgloss.Width(percent)-lipgloss.Width(hints))
	return hints + strings.Repeat(" ", gap) + percent
}

// renderContent builds the full message content string for the
// viewport.
func (m Model) renderContent() string {
	var sections []string

	badge := theme.FieldStyle.Render(
		fmt.Sprintf("%s message %s", m.msg.Mailbox, m.msg.UID),
	)
	if m.msg.Unread {
		badge = lipgloss.JoinHorizontal(
			lipgloss.Top, badge, "  ", theme.UnreadStyle.Render("UNREAD"),
		)
	}
	sections = append(sections, badge)
	sections = append(sections, "")

	if m.msg.From != "" {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			theme.FieldStyle.Render("From:"),
			theme.ValueStyle.Render(m.msg.From),
		))
	}
	if m.msg.Date != "" {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			theme.FieldStyle.Render("Date:"),
			theme.ValueStyle.Render(m.msg.Date),
		))
	}

	separator := theme.SeparatorStyle.Render(
		strings.Repeat("─", min(max(m.width-4, 10), 80)),
	)
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	body := m.msg.Body
	if body == "" {
		body = theme.HelpStyle.Render("No text body")
	} else if m.msg.FromHTML {
		sections = append(sections, theme.HelpStyle.Render("(converted from HTML)"))
		sections = append(sections, "")
	}
	bodyStyle := lipgloss.NewStyle().Width(max(m.width-2, 20))
	sections = append(sections, bodyStyle.Render(body))

	if len(m.msg.Attachments) > 0 {
		sections = append(sections, "")
		sections = append(sections, separator)
		sections = append(sections, "")
		sections = append(sections, theme.ValueStyle.Bold(true).Render(
			fmt.Sprintf("Attachments (%d)", len(m.msg.Attachments)),
		))
		for _, line := range m.msg.Attachments {
			sections = append(sections, theme.AttachmentStyle.Render(line))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Run displays the message in an alternate-screen pager and blocks
// until the user quits.
func Run(msg Message) error {
	p := tea.NewProgram(New(msg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running pager: %w", err)
	}
	return nil
}
