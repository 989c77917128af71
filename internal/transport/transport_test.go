package transport

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

// scriptedClient wires a Client to an in-process peer that answers
// each received command with the next canned reply, substituting the
// command's tag for "{tag}". Received command lines are delivered on
// the returned channel.
func scriptedClient(t *testing.T, replies []string) (*Client, <-chan string) {
	t.Helper()

	serverConn, clientConn := net.Pipe()
	received := make(chan string, len(replies))

	go func() {
		defer serverConn.Close()
		br := bufio.NewReader(serverConn)
		bw := bufio.NewWriter(serverConn)

		_, _ = bw.WriteString("* OK ready\r\n")
		_ = bw.Flush()

		for _, reply := range replies {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			received <- line

			tag := strings.Fields(line)[0]
			_, _ = bw.WriteString(strings.ReplaceAll(reply, "{tag}", tag))
			_ = bw.Flush()
		}
	}()

	c, err := NewClient(clientConn, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	t.Cleanup(func() { _ = clientConn.Close() })

	return c, received
}

func TestCmdCollectsUntaggedLines(t *testing.T) {
	c, _ := scriptedClient(t, []string{
		"* LIST () \"/\" \"INBOX\"\r\n* LIST () \"/\" \"Work\"\r\n{tag} OK LIST completed\r\n",
	})

	resp, err := c.Cmd(`LIST "" "*"`)
	if err != nil {
		t.Fatalf("Cmd() error: %v", err)
	}
	if !resp.IsOK() {
		t.Fatalf("Status = %q, want OK", resp.Status)
	}
	if resp.Info != "LIST completed" {
		t.Errorf("Info = %q", resp.Info)
	}
	if len(resp.Lines) != 2 {
		t.Fatalf("len(Lines) = %d, want 2", len(resp.Lines))
	}
	if !strings.Contains(resp.Lines[1].Text, "Work") {
		t.Errorf("Lines[1].Text = %q", resp.Lines[1].Text)
	}
}

func TestCmdReadsLiterals(t *testing.T) {
	c, _ := scriptedClient(t, []string{
		"* 1 FETCH (UID 9 RFC822 {13}\r\nHello, world!)\r\n{tag} OK Fetch completed\r\n",
	})

	resp, err := c.Cmd("UID FETCH 9 (RFC822)")
	if err != nil {
		t.Fatalf("Cmd() error: %v", err)
	}
	if len(resp.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(resp.Lines))
	}

	line := resp.Lines[0]
	if string(line.Literal) != "Hello, world!" {
		t.Errorf("Literal = %q", line.Literal)
	}
	if !strings.Contains(line.Text, "FETCH") {
		t.Errorf("Text = %q", line.Text)
	}
	if !strings.HasSuffix(line.Text, ")") {
		t.Errorf("Text = %q, want folded closing paren", line.Text)
	}
}

func TestCmdSurfacesNoCompletion(t *testing.T) {
	c, _ := scriptedClient(t, []string{
		"{tag} NO [NONEXISTENT] Unknown Mailbox: nope\r\n",
	})

	resp, err := c.Cmd(`SELECT "nope"`)
	if err != nil {
		t.Fatalf("Cmd() error: %v", err)
	}
	if resp.IsOK() {
		t.Fatal("IsOK() = true for NO completion")
	}
	if resp.Status != "NO" {
		t.Errorf("Status = %q, want NO", resp.Status)
	}
	if resp.Info != "[NONEXISTENT] Unknown Mailbox: nope" {
		t.Errorf("Info = %q", resp.Info)
	}
}

func TestTagsIncrement(t *testing.T) {
	c, received := scriptedClient(t, []string{
		"{tag} OK done\r\n",
		"{tag} OK done\r\n",
	})

	if _, err := c.Cmd("NOOP"); err != nil {
		t.Fatalf("Cmd() error: %v", err)
	}
	if _, err := c.Cmd("NOOP"); err != nil {
		t.Fatalf("Cmd() error: %v", err)
	}

	first := <-received
	second := <-received
	if !strings.HasPrefix(first, "A0001 ") {
		t.Errorf("first command = %q, want A0001 tag", first)
	}
	if !strings.HasPrefix(second, "A0002 ") {
		t.Errorf("second command = %q, want A0002 tag", second)
	}
}

func TestLoginQuotesCredentials(t *testing.T) {
	c, received := scriptedClient(t, []string{
		"{tag} OK LOGIN completed\r\n",
	})

	resp, err := c.Login(`user"x`, "hunter2")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if !resp.IsOK() {
		t.Fatalf("Status = %q, want OK", resp.Status)
	}

	sent := <-received
	want := `A0001 LOGIN "user\"x" "hunter2"`
	if sent != want {
		t.Errorf("sent = %q, want %q", sent, want)
	}
}

func TestNewClientRejectsBadGreeting(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	go func() {
		defer serverConn.Close()
		bw := bufio.NewWriter(serverConn)
		_, _ = bw.WriteString("garbage greeting\r\n")
		_ = bw.Flush()
	}()

	if _, err := NewClient(clientConn, time.Second, nil); err == nil {
		t.Error("NewClient() = nil error for invalid greeting")
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"INBOX", `"INBOX"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
		{"", `""`},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
