package pager

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func testMessage() Message {
	return Message{
		Subject:     "lunch plans",
		From:        "Bob <bob@example.com>",
		Date:        "2024-03-05 14:30",
		Mailbox:     "INBOX",
		UID:         "457",
		Unread:      true,
		Body:        "are you free thursday?",
		Attachments: []string{"[1] menu.pdf (application/pdf, 12.5 KB)"},
	}
}

func sized(t *testing.T, m Model, width, height int) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	resized, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return resized
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestViewBeforeFirstResize(t *testing.T) {
	m := New(testMessage())
	if got := m.View(); !strings.Contains(got, "Loading") {
		t.Errorf("View() = %q before the window size is known", got)
	}
}

func TestViewShowsMessage(t *testing.T) {
	m := sized(t, New(testMessage()), 80, 24)

	view := m.View()
	for _, want := range []string{
		"lunch plans",
		"bob@example.com",
		"thursday",
		"menu.pdf",
		"UNREAD",
		"INBOX",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestViewMarksHTMLFallback(t *testing.T) {
	msg := testMessage()
	msg.FromHTML = true
	m := sized(t, New(msg), 80, 24)

	if !strings.Contains(m.View(), "converted from HTML") {
		t.Error("View() missing the HTML conversion note")
	}
}

func TestQuitKey(t *testing.T) {
	m := sized(t, New(testMessage()), 80, 24)

	_, cmd := m.Update(keyPress('q'))
	if cmd == nil {
		t.Fatal("q produced no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("q produced %T, want tea.QuitMsg", cmd())
	}
}

func TestTopAndBottomKeys(t *testing.T) {
	msg := testMessage()
	msg.Body = strings.Repeat("line\n", 100)
	m := sized(t, New(msg), 80, 10)

	next, _ := m.Update(keyPress('G'))
	m = next.(Model)
	if !m.viewport.AtBottom() {
		t.Error("G did not scroll to the bottom")
	}

	next, _ = m.Update(keyPress('g'))
	m = next.(Model)
	if !m.viewport.AtTop() {
		t.Error("g did not scroll back to the top")
	}
}

func TestResizeKeepsContent(t *testing.T) {
	m := sized(t, New(testMessage()), 40, 12)
	m = sized(t, m, 120, 40)

	if !strings.Contains(m.View(), "thursday") {
		t.Error("View() lost the body after a resize")
	}
}
