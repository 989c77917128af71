package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mailcheck/mailcheck/internal/dates"
	"github.com/mailcheck/mailcheck/internal/query"
)

// options holds everything the command line can express: connection
// overrides, per-command switches, positional arguments, and the
// assembled search query.
type options struct {
	configs  []string
	account  string
	username string
	password string
	host     string
	port     int
	portSet  bool
	mailbox  string
	noSSL    bool
	limit    int
	limitSet bool
	suppress bool
	verbose  int

	statusOnly bool
	keepUnread bool
	part       int

	help bool

	query query.Query
	args  []string
}

// queryParser assembles search predicates in command-line order.
// The --or and --not flags are connectives: --not negates the next
// predicate, --or joins the previous predicate group with the next
// one, operands in the order given.
type queryParser struct {
	built    query.Query
	pending  query.Query
	orArmed  bool
	notArmed bool
}

func (p *queryParser) atom(q query.Query) {
	if p.notArmed {
		q = query.New().Not(q)
		p.notArmed = false
	}
	if p.orArmed {
		p.pending = query.New().Or(p.pending, q)
		p.orArmed = false
		return
	}
	p.built = p.built.Append(p.pending)
	p.pending = q
}

func (p *queryParser) or() error {
	if p.orArmed || p.notArmed {
		return errors.New("--or cannot follow another connective")
	}
	if p.pending.Empty() {
		return errors.New("--or needs a preceding search condition")
	}
	p.orArmed = true
	return nil
}

func (p *queryParser) not() error {
	if p.notArmed {
		return errors.New("--not cannot follow --not")
	}
	p.notArmed = true
	return nil
}

func (p *queryParser) finish() (query.Query, error) {
	if p.orArmed {
		return query.Query{}, errors.New("--or needs a following search condition")
	}
	if p.notArmed {
		return query.Query{}, errors.New("--not needs a following search condition")
	}
	return p.built.Append(p.pending), nil
}

// parseOptions reads the argument list after the command word. now
// anchors natural-language dates.
func parseOptions(argv []string, now time.Time) (*options, error) {
	opts := &options{}
	qp := &queryParser{}

	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(argv) {
			return "", fmt.Errorf("missing value for %s", flag)
		}
		return argv[i], nil
	}

	for ; i < len(argv); i++ {
		token := argv[i]

		if token == "--" {
			opts.args = append(opts.args, argv[i+1:]...)
			break
		}

		if strings.HasPrefix(token, "--") {
			name, inline, hasInline := strings.Cut(token[2:], "=")
			value := func() (string, error) {
				if hasInline {
					return inline, nil
				}
				return next("--" + name)
			}
			if err := parseLong(opts, qp, name, value, now); err != nil {
				return nil, err
			}
			continue
		}

		if strings.HasPrefix(token, "-") && len(token) > 1 {
			if err := parseShort(opts, token, next); err != nil {
				return nil, err
			}
			continue
		}

		opts.args = append(opts.args, token)
	}

	q, err := qp.finish()
	if err != nil {
		return nil, err
	}
	if _, err := q.Build(); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	opts.query = q
	return opts, nil
}

// parseLong handles one --name flag. value lazily consumes the flag's
// argument so no-value flags never eat the next token.
func parseLong(opts *options, qp *queryParser, name string, value func() (string, error), now time.Time) error {
	// Connectives and flag-only predicates first.
	switch name {
	case "or":
		return qp.or()
	case "not":
		return qp.not()
	case "all":
		qp.atom(query.New().All())
		return nil
	case "answered":
		qp.atom(query.New().Answered())
		return nil
	case "deleted":
		qp.atom(query.New().Deleted())
		return nil
	case "draft":
		qp.atom(query.New().Draft())
		return nil
	case "flagged":
		qp.atom(query.New().Flagged())
		return nil
	case "new":
		qp.atom(query.New().New())
		return nil
	case "old":
		qp.atom(query.New().Old())
		return nil
	case "recent":
		qp.atom(query.New().Recent())
		return nil
	case "seen":
		qp.atom(query.New().Seen())
		return nil
	case "unanswered":
		qp.atom(query.New().Unanswered())
		return nil
	case "undeleted":
		qp.atom(query.New().Undeleted())
		return nil
	case "undraft":
		qp.atom(query.New().Undraft())
		return nil
	case "unflagged":
		qp.atom(query.New().Unflagged())
		return nil
	case "unseen":
		qp.atom(query.New().Unseen())
		return nil

	case "no-ssl":
		opts.noSSL = true
		return nil
	case "suppress":
		opts.suppress = true
		return nil
	case "verbose":
		opts.verbose++
		return nil
	case "status-only":
		opts.statusOnly = true
		return nil
	case "keep-unread":
		opts.keepUnread = true
		return nil
	case "help":
		opts.help = true
		return nil
	}

	if !longValueFlags[name] {
		return fmt.Errorf("unknown flag --%s", name)
	}
	val, err := value()
	if err != nil {
		return err
	}

	switch name {
	case "bcc":
		qp.atom(query.New().Bcc(val))
	case "body":
		qp.atom(query.New().Body(val))
	case "cc":
		qp.atom(query.New().Cc(val))
	case "contains":
		qp.atom(query.New().Contains(val))
	case "from":
		qp.atom(query.New().From(val))
	case "gmail":
		qp.atom(query.New().GmailRaw(val))
	case "keyword":
		qp.atom(query.New().Keyword(val))
	case "subject":
		qp.atom(query.New().Subject(val))
	case "text":
		qp.atom(query.New().Text(val))
	case "to":
		qp.atom(query.New().To(val))
	case "uid":
		qp.atom(query.New().UID(val))
	case "unkeyword":
		qp.atom(query.New().Unkeyword(val))

	case "header":
		field, s, ok := strings.Cut(val, ":")
		if !ok || strings.TrimSpace(field) == "" {
			return fmt.Errorf("--header wants Name:value, got %q", val)
		}
		qp.atom(query.New().Header(strings.TrimSpace(field), s))

	case "before", "on", "since", "sent-before", "sent-on", "sent-since":
		dstr, err := dates.ToIMAP(val, now)
		if err != nil {
			return err
		}
		switch name {
		case "before":
			qp.atom(query.New().Before(dstr))
		case "on":
			qp.atom(query.New().On(dstr))
		case "since":
			qp.atom(query.New().Since(dstr))
		case "sent-before":
			qp.atom(query.New().SentBefore(dstr))
		case "sent-on":
			qp.atom(query.New().SentOn(dstr))
		case "sent-since":
			qp.atom(query.New().SentSince(dstr))
		}

	case "larger", "smaller":
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("--%s wants a size in bytes, got %q", name, val)
		}
		if name == "larger" {
			qp.atom(query.New().Larger(n))
		} else {
			qp.atom(query.New().Smaller(n))
		}

	case "config":
		opts.configs = append(opts.configs, val)
	case "account":
		opts.account = val
	case "username":
		opts.username = val
	case "password":
		opts.password = val
	case "host":
		opts.host = val
	case "inbox":
		opts.mailbox = val

	case "port":
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("--port wants a number, got %q", val)
		}
		opts.port = n
		opts.portSet = true
	case "limit":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("--limit wants a non-negative number, got %q", val)
		}
		opts.limit = n
		opts.limitSet = true
	case "part":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return fmt.Errorf("--part wants an attachment number, got %q", val)
		}
		opts.part = n
	}
	return nil
}

// longValueFlags lists every long flag that consumes an argument, so
// unknown flags are rejected before eating the next token.
var longValueFlags = map[string]bool{
	"bcc": true, "body": true, "cc": true, "contains": true,
	"from": true, "gmail": true, "header": true, "keyword": true,
	"subject": true, "text": true, "to": true, "uid": true,
	"unkeyword": true,
	"before": true, "on": true, "since": true,
	"sent-before": true, "sent-on": true, "sent-since": true,
	"larger": true, "smaller": true,
	"config": true, "account": true, "username": true,
	"password": true, "host": true, "inbox": true,
	"port": true, "limit": true, "part": true,
}

// parseShort handles one -x flag. Repeated -v may be bundled (-vv).
func parseShort(opts *options, token string, next func(string) (string, error)) error {
	if strings.Trim(token[1:], "v") == "" {
		opts.verbose += len(token) - 1
		return nil
	}
	if token == "-s" {
		opts.suppress = true
		return nil
	}

	switch token {
	case "-c", "-u", "-p", "-h", "-i", "-l":
	default:
		return fmt.Errorf("unknown flag %s", token)
	}

	val, err := next(token)
	if err != nil {
		return err
	}
	switch token {
	case "-c":
		opts.configs = append(opts.configs, val)
	case "-u":
		opts.username = val
	case "-p":
		opts.password = val
	case "-h":
		opts.host = val
	case "-i":
		opts.mailbox = val
	case "-l":
		n, convErr := strconv.Atoi(val)
		if convErr != nil || n < 0 {
			return fmt.Errorf("-l wants a non-negative number, got %q", val)
		}
		opts.limit = n
		opts.limitSet = true
	}
	return nil
}
