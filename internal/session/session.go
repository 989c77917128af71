// Package session manages one authenticated IMAP connection and the
// mailbox state machine on top of it: select, search, fetch and flag
// mutation. It compiles queries to wire syntax, parses response lines
// into values and translates failures into typed errors, but performs
// no retries and never reinterprets server text.
package session

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/mailcheck/mailcheck/internal/message"
	"github.com/mailcheck/mailcheck/internal/query"
	"github.com/mailcheck/mailcheck/internal/transport"
)

// Transport is the wire primitive a Session drives: tagged commands
// in, status plus raw response lines out.
type Transport interface {
	Cmd(format string, args ...any) (*transport.Response, error)
	Login(username, password string) (*transport.Response, error)
	Close() error
}

// Config describes a connection to establish.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// UseTLS must be true; the unencrypted path is refused before any
	// dial.
	UseTLS bool

	// TLSConfig optionally overrides certificate verification.
	TLSConfig *tls.Config

	// Timeout bounds each command exchange. Zero means the transport
	// default.
	Timeout time.Duration

	Logger *slog.Logger
}

// Session owns one connection and the currently selected mailbox.
// It is not safe for concurrent use: operations are sequential
// request/response exchanges on an exclusively owned connection, and
// callers wanting concurrency must serialize access themselves.
type Session struct {
	tr       Transport
	mailbox  string
	readOnly bool
	logger   *slog.Logger
}

// New wraps an established transport in an unauthenticated session.
func New(tr Transport, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{tr: tr, logger: logger}
}

// Connect dials the server and authenticates, returning a session
// ready for SelectMailbox. Connection and authentication failures are
// fatal; nothing is retried.
func Connect(cfg Config) (*Session, error) {
	if !cfg.UseTLS {
		return nil, fmt.Errorf("connecting to %s:%d: %w", cfg.Host, cfg.Port, ErrUnsupportedMode)
	}

	client, err := transport.Dial(transport.Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		TLSConfig: cfg.TLSConfig,
		Timeout:   cfg.Timeout,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	s := New(client, cfg.Logger)
	if err := s.Login(cfg.Username, cfg.Password); err != nil {
		_ = client.Close()
		return nil, err
	}
	return s, nil
}

// Login authenticates the session. A rejected login surfaces the
// server's text inside an AuthError.
func (s *Session) Login(username, password string) error {
	if s.tr == nil {
		return ErrNotConnected
	}
	resp, err := s.tr.Login(username, password)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if !resp.IsOK() {
		return &AuthError{Username: username, Message: resp.Info}
	}
	s.logger.Debug("imap login", "user", username)
	return nil
}

// Connected reports whether the session still owns a transport.
func (s *Session) Connected() bool {
	return s.tr != nil
}

// Mailbox returns the currently selected mailbox name, or "".
func (s *Session) Mailbox() string {
	return s.mailbox
}

// ReadOnly reports whether the current selection is read-only.
func (s *Session) ReadOnly() bool {
	return s.readOnly
}

// Close releases the transport. Every later operation fails with
// ErrNotConnected. Closing an already closed session is a no-op.
func (s *Session) Close() error {
	if s.tr == nil {
		return nil
	}
	err := s.tr.Close()
	s.tr = nil
	s.mailbox = ""
	s.readOnly = false
	if err != nil {
		return fmt.Errorf("closing transport: %w", err)
	}
	return nil
}

func (s *Session) ensureConnected() error {
	if s.tr == nil {
		return ErrNotConnected
	}
	return nil
}

func (s *Session) ensureSelected() error {
	if err := s.ensureConnected(); err != nil {
		return err
	}
	if s.mailbox == "" {
		return ErrNoMailbox
	}
	return nil
}

// SelectMailbox selects the named mailbox, replacing any prior
// selection and its read-only mode. Read-only selections use EXAMINE.
// On failure the prior selection is kept.
func (s *Session) SelectMailbox(name string, readOnly bool) error {
	if err := s.ensureConnected(); err != nil {
		return err
	}

	verb := "SELECT"
	if readOnly {
		verb = "EXAMINE"
	}
	resp, err := s.tr.Cmd("%s %s", verb, transport.Quote(name))
	if err != nil {
		return fmt.Errorf("selecting %s: %w", name, err)
	}
	if !resp.IsOK() {
		return &MailboxError{Mailbox: name, Message: resp.Info}
	}

	s.mailbox = name
	s.readOnly = readOnly
	return nil
}

// SearchIDs compiles q and runs it against the selected mailbox,
// returning message identifiers in the order the server reports them
// (typically ascending arrival order; reverse for newest-first).
// Query construction errors surface here, before any network I/O.
// An empty query compiles to the implicit match-everything request.
func (s *Session) SearchIDs(q query.Query) ([]string, error) {
	if err := s.ensureSelected(); err != nil {
		return nil, err
	}

	program, err := q.Build()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	if program == "" {
		program = "ALL"
	}
	return s.searchIDs(program)
}

// FetchUnreadIDs returns the identifiers of unseen messages, in
// server order. Fast path for the no-query case.
func (s *Session) FetchUnreadIDs() ([]string, error) {
	if err := s.ensureSelected(); err != nil {
		return nil, err
	}
	return s.searchIDs("(UNSEEN)")
}

func (s *Session) searchIDs(program string) ([]string, error) {
	resp, err := s.tr.Cmd("UID SEARCH %s", program)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", s.mailbox, err)
	}
	if !resp.IsOK() {
		return nil, &CommandError{Command: "UID SEARCH", Status: resp.Status, Message: resp.Info}
	}
	return parseSearchIDs(resp.Lines), nil
}

var unseenCountRe = regexp.MustCompile(`UNSEEN\s+(\d+)`)

// FetchUnreadCount asks the server for the mailbox's unseen count via
// STATUS, an O(1) remote operation that never lists identifiers.
func (s *Session) FetchUnreadCount() (int, error) {
	if err := s.ensureSelected(); err != nil {
		return 0, err
	}

	resp, err := s.tr.Cmd("STATUS %s (UNSEEN)", transport.Quote(s.mailbox))
	if err != nil {
		return 0, fmt.Errorf("querying status of %s: %w", s.mailbox, err)
	}
	if !resp.IsOK() {
		return 0, &CommandError{Command: "STATUS", Status: resp.Status, Message: resp.Info}
	}

	for _, line := range resp.Lines {
		if m := unseenCountRe.FindStringSubmatch(line.Text); m != nil {
			count, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, fmt.Errorf("parsing status of %s: %w", s.mailbox, err)
			}
			return count, nil
		}
	}
	return 0, fmt.Errorf("status of %s: response missing UNSEEN count", s.mailbox)
}

// FetchMessageBody fetches the raw wire-format message. The peek
// form leaves \Seen untouched; marking a message read is always an
// explicit store. The boolean is false when the identifier no longer
// exists on the server, which is a skip condition for callers, not an
// error.
func (s *Session) FetchMessageBody(id string) ([]byte, bool, error) {
	if err := s.ensureSelected(); err != nil {
		return nil, false, err
	}

	resp, err := s.tr.Cmd("UID FETCH %s (BODY.PEEK[])", id)
	if err != nil {
		return nil, false, fmt.Errorf("fetching message %s: %w", id, err)
	}
	if !resp.IsOK() {
		return nil, false, &CommandError{Command: "UID FETCH", Status: resp.Status, Message: resp.Info}
	}

	for _, line := range resp.Lines {
		if isFetchLine(line.Text) && line.Literal != nil {
			return line.Literal, true, nil
		}
	}
	return nil, false, nil
}

var messageSizeRe = regexp.MustCompile(`RFC822\.SIZE\s+(\d+)`)

// FetchMessageSize fetches the message's size in bytes without
// transferring the body. The boolean is false when the identifier no
// longer exists.
func (s *Session) FetchMessageSize(id string) (int64, bool, error) {
	if err := s.ensureSelected(); err != nil {
		return 0, false, err
	}

	resp, err := s.tr.Cmd("UID FETCH %s (RFC822.SIZE)", id)
	if err != nil {
		return 0, false, fmt.Errorf("fetching size of %s: %w", id, err)
	}
	if !resp.IsOK() {
		return 0, false, &CommandError{Command: "UID FETCH", Status: resp.Status, Message: resp.Info}
	}

	for _, line := range resp.Lines {
		if !isFetchLine(line.Text) {
			continue
		}
		if m := messageSizeRe.FindStringSubmatch(line.Text); m != nil {
			size, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return 0, false, fmt.Errorf("parsing size of %s: %w", id, err)
			}
			return size, true, nil
		}
	}
	return 0, false, nil
}

// FetchMessageHeaders fetches and parses only the message's header
// section. The boolean is false when the identifier no longer exists.
func (s *Session) FetchMessageHeaders(id string) (*message.Message, bool, error) {
	if err := s.ensureSelected(); err != nil {
		return nil, false, err
	}

	resp, err := s.tr.Cmd("UID FETCH %s (RFC822.HEADER)", id)
	if err != nil {
		return nil, false, fmt.Errorf("fetching headers of %s: %w", id, err)
	}
	if !resp.IsOK() {
		return nil, false, &CommandError{Command: "UID FETCH", Status: resp.Status, Message: resp.Info}
	}

	for _, line := range resp.Lines {
		if !isFetchLine(line.Text) || line.Literal == nil {
			continue
		}
		m, err := message.Parse(line.Literal)
		if err != nil {
			return nil, false, fmt.Errorf("parsing headers of %s: %w", id, err)
		}
		return m, true, nil
	}
	return nil, false, nil
}

// SetFlags adds flag to every message in ids in one batch store.
func (s *Session) SetFlags(ids []string, flag imap.Flag) error {
	return s.storeFlags(ids, flag, "+FLAGS.SILENT")
}

// ClearFlags removes flag from every message in ids in one batch
// store.
func (s *Session) ClearFlags(ids []string, flag imap.Flag) error {
	return s.storeFlags(ids, flag, "-FLAGS.SILENT")
}

func (s *Session) storeFlags(ids []string, flag imap.Flag, op string) error {
	if err := s.ensureSelected(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	resp, err := s.tr.Cmd("UID STORE %s %s (%s)", strings.Join(ids, ","), op, NormalizeFlag(flag))
	if err != nil {
		return fmt.Errorf("storing flags on %s: %w", strings.Join(ids, ","), err)
	}
	if !resp.IsOK() {
		return &CommandError{Command: "UID STORE", Status: resp.Status, Message: resp.Info}
	}
	return nil
}

// ListMailboxes returns the names of all mailboxes on the server.
func (s *Session) ListMailboxes() ([]string, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	resp, err := s.tr.Cmd(`LIST "" "*"`)
	if err != nil {
		return nil, fmt.Errorf("listing mailboxes: %w", err)
	}
	if !resp.IsOK() {
		return nil, &CommandError{Command: "LIST", Status: resp.Status, Message: resp.Info}
	}

	var names []string
	for _, line := range resp.Lines {
		if !strings.HasPrefix(line.Text, "* LIST") {
			continue
		}
		if name, ok := listMailboxName(line.Text); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// NormalizeFlag prefixes the system-flag marker when it is missing,
// so callers may pass "Seen" and "\Seen" interchangeably.
func NormalizeFlag(flag imap.Flag) imap.Flag {
	if flag == "" || strings.HasPrefix(string(flag), "\\") {
		return flag
	}
	return imap.Flag("\\" + string(flag))
}

// isFetchLine reports whether an untagged line is a FETCH data
// response.
func isFetchLine(text string) bool {
	return strings.HasPrefix(text, "*") && strings.Contains(text, "FETCH")
}

// parseSearchIDs extracts identifiers from SEARCH responses in both
// the classic form ("* SEARCH 12 15 20") and the extended form
// ("* ESEARCH (TAG ...) UID ALL 12,15:20").
func parseSearchIDs(lines []transport.Line) []string {
	ids := []string{}
	for _, line := range lines {
		fields := strings.Fields(line.Text)
		if len(fields) < 2 || fields[0] != "*" {
			continue
		}
		switch strings.ToUpper(fields[1]) {
		case "SEARCH":
			for _, f := range fields[2:] {
				if strings.HasPrefix(f, "(") {
					break
				}
				ids = append(ids, f)
			}
		case "ESEARCH":
			for i := 2; i < len(fields)-1; i++ {
				if strings.EqualFold(fields[i], "ALL") {
					ids = append(ids, expandIDSet(fields[i+1])...)
				}
			}
		}
	}
	return ids
}

// expandIDSet expands a UID set token like "12,15:17" into individual
// identifiers. Malformed pieces pass through untouched.
func expandIDSet(set string) []string {
	var ids []string
	for _, part := range strings.Split(set, ",") {
		lo, hi, isRange := strings.Cut(part, ":")
		if !isRange {
			ids = append(ids, part)
			continue
		}
		a, errA := strconv.ParseUint(lo, 10, 32)
		b, errB := strconv.ParseUint(hi, 10, 32)
		if errA != nil || errB != nil {
			ids = append(ids, part)
			continue
		}
		if a > b {
			a, b = b, a
		}
		for n := a; n <= b; n++ {
			ids = append(ids, strconv.FormatUint(n, 10))
		}
	}
	return ids
}

// listMailboxName pulls the trailing name out of a LIST response
// line, which is either a quoted string or a bare atom.
func listMailboxName(text string) (string, bool) {
	if strings.HasSuffix(text, `"`) {
		body := text[:len(text)-1]
		if i := strings.LastIndex(body, `"`); i >= 0 {
			return strings.ReplaceAll(body[i+1:], `\"`, `"`), true
		}
		return "", false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}
	name := fields[len(fields)-1]
	if name == "LIST" || name == "*" {
		return "", false
	}
	return name, true
}
