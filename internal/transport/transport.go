// Package transport implements the wire-level IMAP request/response
// primitive: an encrypted connection carrying tagged commands and
// collecting untagged response lines, including literal payloads.
//
// The transport knows nothing about mailboxes or messages; it moves
// command strings out and response lines back. One command may be
// outstanding at a time.
package transport

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds the greeting read and each command exchange.
const DefaultTimeout = 30 * time.Second

var literalRe = regexp.MustCompile(`\{(\d+)\}$`)

// Config describes how to reach an IMAP server.
type Config struct {
	Host string
	Port int

	// TLSConfig overrides the default TLS settings. Nil means verify
	// against Host.
	TLSConfig *tls.Config

	// Timeout is the per-command socket deadline. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	Logger *slog.Logger
}

// Line is one untagged response line. Literal holds the bytes of the
// first {n} literal the line carried, if any; text following a
// literal is folded back into Text.
type Line struct {
	Text    string
	Literal []byte
}

// Response is the outcome of one tagged command exchange.
type Response struct {
	// Status is the completion result: "OK", "NO" or "BAD".
	Status string

	// Info is the human-readable text of the completion line,
	// verbatim from the server.
	Info string

	// Lines are the untagged responses received before completion.
	Lines []Line
}

// IsOK reports whether the command completed successfully.
func (r *Response) IsOK() bool {
	return r.Status == "OK"
}

// Client is a single IMAP connection. It is not safe for concurrent
// use; the caller owns serialization.
type Client struct {
	conn    net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	tag     int
	timeout time.Duration
	logger  *slog.Logger
	closed  bool
}

// Dial connects to the server over TLS, reads the greeting and
// returns a ready client. Unencrypted connections are not supported
// at this layer.
func Dial(cfg Config) (*Client, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: cfg.Host}
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	client, err := NewClient(conn, timeout, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return client, nil
}

// NewClient wraps an established connection, reading and validating
// the server greeting.
func NewClient(conn net.Conn, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		conn:    conn,
		r:       bufio.NewReader(conn),
		w:       bufio.NewWriter(conn),
		tag:     1,
		timeout: timeout,
		logger:  logger,
	}

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	greeting, err := c.readLine()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("reading greeting: %w", err)
	}
	if !strings.HasPrefix(greeting, "*") {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected greeting: %s", greeting)
	}
	c.logger.Debug("imap greeting", "text", greeting)

	return c, nil
}

// Cmd sends one tagged command and collects its response. A returned
// error means the exchange itself failed; protocol-level NO and BAD
// completions come back inside the Response for the caller to
// interpret.
func (c *Client) Cmd(format string, args ...any) (*Response, error) {
	cmd := fmt.Sprintf(format, args...)
	return c.exchange(cmd, cmd)
}

// Login authenticates with the LOGIN command. The password never
// reaches the log.
func (c *Client) Login(username, password string) (*Response, error) {
	cmd := fmt.Sprintf("LOGIN %s %s", Quote(username), Quote(password))
	logged := fmt.Sprintf("LOGIN %s ****", Quote(username))
	return c.exchange(cmd, logged)
}

func (c *Client) exchange(cmd, logged string) (*Response, error) {
	if c.closed {
		return nil, fmt.Errorf("sending %q: connection closed", logged)
	}

	tag := c.nextTag()
	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}

	if _, err := c.w.WriteString(tag + " " + cmd + "\r\n"); err != nil {
		return nil, fmt.Errorf("writing command: %w", err)
	}
	if err := c.w.Flush(); err != nil {
		return nil, fmt.Errorf("writing command: %w", err)
	}
	c.logger.Debug("imap send", "tag", tag, "cmd", logged)

	resp := &Response{}
	for {
		line, err := c.readUnit()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		c.logger.Debug("imap recv", "text", line.Text, "literal", len(line.Literal))

		if status, info, ok := completion(line.Text, tag); ok {
			resp.Status = status
			resp.Info = info
			return resp, nil
		}
		resp.Lines = append(resp.Lines, line)
	}
}

// readUnit reads one response line together with any {n} literals it
// announces. Text after a literal is folded into the same unit, so a
// FETCH response spanning a literal comes back as a single Line.
func (c *Client) readUnit() (Line, error) {
	text, err := c.readLine()
	if err != nil {
		return Line{}, err
	}

	unit := Line{Text: text}
	segment := text
	for {
		m := literalRe.FindStringSubmatch(segment)
		if m == nil {
			return unit, nil
		}

		n, err := strconv.Atoi(m[1])
		if err != nil {
			return unit, nil
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(c.r, buf); err != nil {
			return Line{}, fmt.Errorf("reading %d-byte literal: %w", n, err)
		}
		if unit.Literal == nil {
			unit.Literal = buf
		}

		segment, err = c.readLine()
		if err != nil {
			return Line{}, err
		}
		if segment != "" {
			unit.Text += " " + segment
		}
	}
}

// completion parses a tagged completion line. Returns ok=false for
// untagged lines.
func completion(line, tag string) (status, info string, ok bool) {
	rest, found := strings.CutPrefix(line, tag+" ")
	if !found {
		return "", "", false
	}
	status, info, _ = strings.Cut(rest, " ")
	switch status {
	case "OK", "NO", "BAD":
		return status, info, true
	}
	return "", "", false
}

func (c *Client) nextTag() string {
	t := fmt.Sprintf("A%04d", c.tag)
	c.tag++
	return t
}

func (c *Client) readLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close logs out best-effort and closes the connection. Safe to call
// more than once.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	_, _ = c.exchange("LOGOUT", "LOGOUT")
	c.closed = true
	return c.conn.Close()
}

// Quote wraps s in an IMAP quoted string, escaping backslashes and
// double quotes.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '\\' || ch == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	b.WriteByte('"')
	return b.String()
}
