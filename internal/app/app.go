// Package app implements the mailcheck command line: argument
// parsing, configuration assembly, and the commands themselves.
package app

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/mailcheck/mailcheck/internal/config"
	"github.com/mailcheck/mailcheck/internal/credential"
	"github.com/mailcheck/mailcheck/internal/session"
)

// App carries the streams a single invocation writes to.
type App struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	// tlsConfig overrides certificate verification when dialing, so
	// tests can trust a server with a throwaway certificate.
	tlsConfig *tls.Config
}

// usageError marks errors caused by the command line itself, which
// exit with code 2 instead of 1.
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// Run executes one invocation and returns the process exit code:
// 0 on success, 1 on runtime errors, 2 on usage errors.
func Run(argv []string, stdout, stderr io.Writer) int {
	a := &App{stdout: stdout, stderr: stderr}
	return a.run(argv)
}

func (a *App) run(argv []string) int {
	command := "check"
	if len(argv) > 0 && !strings.HasPrefix(argv[0], "-") {
		command = argv[0]
		argv = argv[1:]
	}

	opts, err := parseOptions(argv, time.Now())
	if err != nil {
		return a.usage(err)
	}
	if opts.help {
		printUsage(a.stdout)
		return 0
	}

	cfg, err := a.loadConfig(opts)
	if err != nil {
		fmt.Fprintf(a.stderr, "mailcheck: %v\n", err)
		return 1
	}
	a.logger = newLogger(a.stderr, max(cfg.Verbose, opts.verbose))

	switch command {
	case "check":
		err = a.cmdCheck(cfg, opts)
	case "read":
		err = a.cmdRead(cfg, opts)
	case "count":
		err = a.cmdCount(cfg)
	case "flag":
		err = a.cmdStore(cfg, opts, true)
	case "unflag":
		err = a.cmdStore(cfg, opts, false)
	case "auth":
		err = a.cmdAuth(cfg, opts)
	case "mailboxes":
		err = a.cmdMailboxes(cfg)
	default:
		return a.usage(fmt.Errorf("unknown command %q (known: check, read, count, flag, unflag, auth, mailboxes)", command))
	}

	if err != nil {
		var ue *usageError
		if errors.As(err, &ue) {
			return a.usage(ue)
		}
		fmt.Fprintf(a.stderr, "mailcheck: %v\n", err)
		return 1
	}
	return 0
}

func (a *App) usage(err error) int {
	fmt.Fprintf(a.stderr, "mailcheck: %v\n", err)
	fmt.Fprintln(a.stderr, "run 'mailcheck --help' for usage")
	return 2
}

// loadConfig resolves the layered configuration and applies the
// command-line overrides on top.
func (a *App) loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configs, opts.account)
	if err != nil {
		return nil, err
	}
	if opts.username != "" {
		cfg.IMAPUsername = opts.username
	}
	if opts.password != "" {
		cfg.IMAPPassword = opts.password
	}
	if opts.host != "" {
		cfg.IMAPHostname = opts.host
	}
	if opts.portSet {
		cfg.IMAPPort = opts.port
	}
	if opts.mailbox != "" {
		cfg.IMAPMailbox = opts.mailbox
	}
	if opts.noSSL {
		cfg.IMAPSSL = false
	}
	if opts.suppress {
		cfg.SuppressSummary = true
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// dial resolves credentials and opens an authenticated session with
// no mailbox selected.
func (a *App) dial(cfg *config.Config) (*session.Session, error) {
	username, err := a.resolveUsername(cfg)
	if err != nil {
		return nil, err
	}
	password, err := a.resolvePassword(cfg)
	if err != nil {
		return nil, err
	}

	return session.Connect(session.Config{
		Host:      cfg.IMAPHostname,
		Port:      cfg.IMAPPort,
		Username:  username,
		Password:  password,
		UseTLS:    cfg.IMAPSSL,
		TLSConfig: a.tlsConfig,
		Logger:    a.logger,
	})
}

// connect dials and selects the configured mailbox.
func (a *App) connect(cfg *config.Config, readOnly bool) (*session.Session, error) {
	s, err := a.dial(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.SelectMailbox(cfg.IMAPMailbox, readOnly); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// resolveUsername returns the configured username, prompting when
// interactive and nothing is configured. The answer is written back
// to cfg so AccountName picks it up.
func (a *App) resolveUsername(cfg *config.Config) (string, error) {
	if strings.TrimSpace(cfg.IMAPUsername) != "" {
		return cfg.IMAPUsername, nil
	}
	if !stdinIsTTY() {
		return "", errors.New("no username configured (set imap_username or pass -u)")
	}

	var username string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("IMAP username").
			Value(&username).
			Validate(required("username")),
	))
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("reading username: %w", err)
	}
	cfg.IMAPUsername = username
	return username, nil
}

// resolvePassword walks the chain: configuration (which includes the
// -p flag), the system keyring, then an interactive prompt.
func (a *App) resolvePassword(cfg *config.Config) (string, error) {
	if cfg.IMAPPassword != "" {
		return cfg.IMAPPassword, nil
	}

	account := cfg.AccountName()
	pw, err := credential.GetPassword(account)
	if err == nil && pw != "" {
		a.logger.Debug("using stored credential", "account", account)
		return pw, nil
	}
	if err != nil && !credential.IsNotFound(err) {
		a.logger.Warn("keyring unavailable", "account", account, "error", err)
	}

	if !stdinIsTTY() {
		return "", fmt.Errorf("no password for %s (store one with 'mailcheck auth set')", account)
	}
	return a.promptPassword(account, true)
}

// promptPassword asks interactively. When offerStore is set the form
// also asks whether to keep the answer in the keyring.
func (a *App) promptPassword(account string, offerStore bool) (string, error) {
	var password string
	var store bool

	fields := []huh.Field{
		huh.NewInput().
			Title(fmt.Sprintf("Password for %s", account)).
			EchoMode(huh.EchoModePassword).
			Value(&password).
			Validate(required("password")),
	}
	if offerStore {
		fields = append(fields, huh.NewConfirm().
			Title("Store in the system keyring?").
			Value(&store))
	}
	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if store {
		if err := credential.SetPassword(account, password); err != nil {
			a.logger.Warn("could not store credential", "account", account, "error", err)
		}
	}
	return password, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

func stdinIsTTY() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// writerIsTTY reports whether w is a terminal, which decides between
// the pager and plain output.
func writerIsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `mailcheck - check and triage an IMAP mailbox from the command line

Usage:
  mailcheck [command] [flags]

Commands:
  check       list unread messages, or search with query flags (default)
  read        show one message: mailcheck read <uid> [--part <n> [viewer args]]
  count       print the unread count for the mailbox
  flag        add a flag: mailcheck flag <flag> <uid>...
  unflag      remove a flag: mailcheck unflag <flag> <uid>...
  auth        manage the stored password: mailcheck auth set|clear
  mailboxes   list the mailboxes on the server

Connection flags:
  -c, --config <path>     extra configuration file (repeatable)
      --account <name>    account section to apply
  -u, --username <user>   IMAP username
  -p, --password <pass>   IMAP password
  -h, --host <host>       IMAP hostname
      --port <n>          IMAP port
  -i, --inbox <name>      mailbox to operate on
      --no-ssl            plaintext IMAP (refused at connect)
  -l, --limit <n>         print at most n status lines
  -s, --suppress          skip the summary line
  -v, --verbose           more logging (repeat for debug)
      --help              show this help

Query flags (check):
  --all --answered --bcc <a> --before <date> --body <s> --cc <a>
  --contains <s> --deleted --draft --flagged --from <s> --gmail <s>
  --header <Name:value> --keyword <k> --larger <bytes> --new --not
  --old --on <date> --or --recent --seen --sent-before <date>
  --sent-on <date> --sent-since <date> --since <date> --smaller <bytes>
  --subject <s> --text <s> --to <s> --uid <set> --unanswered
  --undeleted --undraft --unflagged --unkeyword <k> --unseen

Dates accept 02-Jan-2006, 2006-01-02, or phrases like "yesterday" and
"last tuesday". --or joins the neighboring conditions, operands in the
order given; --not negates the next condition.

Read flags:
      --keep-unread       do not mark the message seen
      --part <n>          open attachment n with its configured viewer
      --status-only       (check) fetch headers only, skip the cache
`)
}
