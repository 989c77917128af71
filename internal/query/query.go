// Package query builds IMAP SEARCH programs from composable predicates.
//
// A Query is an immutable sequence of phrases, where each phrase is the
// ordered token list of one search key (or of an OR/NOT application).
// Every predicate method returns a new Query; the receiver is never
// mutated, so partially built queries can be shared and extended from
// loosely ordered command-line arguments without aliasing surprises.
// Sequencing phrases implies conjunction on the server side.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateFormat is the layout the SEARCH grammar requires for date
// arguments, e.g. "05-Mar-2024".
const DateFormat = "02-Jan-2006"

var (
	// ErrInvalidShape is returned when Or is applied to an operand
	// that does not reduce to exactly one phrase.
	ErrInvalidShape = errors.New("OR operands must each hold exactly one phrase")

	// ErrMissingArgument is returned when a predicate is called
	// without its required value.
	ErrMissingArgument = errors.New("missing required argument")
)

// Query is an immutable IMAP search program under construction.
// The zero value is the empty query, which compiles to the empty
// string (the implicit match-everything request). Construction errors
// are sticky: the first one rides the value and is reported by Build,
// so a malformed query never reaches the wire.
type Query struct {
	phrases [][]string
	err     error
}

// New returns the empty query.
func New() Query {
	return Query{}
}

// Err returns the first construction error, if any.
func (q Query) Err() error {
	return q.err
}

// Empty reports whether the query holds no phrases and no error.
// Callers that want "no query" to mean something other than
// match-everything must check this and substitute their own default.
func (q Query) Empty() bool {
	return q.err == nil && len(q.phrases) == 0
}

// Build compiles the query into wire syntax: every token of every
// phrase, in insertion order, space-joined.
func (q Query) Build() (string, error) {
	if q.err != nil {
		return "", q.err
	}
	tokens := make([]string, 0, len(q.phrases)*2)
	for _, phrase := range q.phrases {
		tokens = append(tokens, phrase...)
	}
	return strings.Join(tokens, " "), nil
}

// String returns the compiled query, or the empty string if the
// query carries a construction error. For display only.
func (q Query) String() string {
	s, _ := q.Build()
	return s
}

// extend returns a copy of q with one phrase appended. The phrase
// spine and the new phrase are both copied so no backing array is
// shared with the receiver or the caller.
func (q Query) extend(tokens ...string) Query {
	if q.err != nil {
		return q
	}
	phrases := make([][]string, len(q.phrases), len(q.phrases)+1)
	copy(phrases, q.phrases)
	phrase := make([]string, len(tokens))
	copy(phrase, tokens)
	return Query{phrases: append(phrases, phrase)}
}

// fail returns a copy of q carrying err. Further predicate calls on
// the result are no-ops.
func (q Query) fail(err error) Query {
	if q.err != nil {
		return q
	}
	return Query{phrases: q.phrases, err: err}
}

// Append extends q with every phrase of other, preserving order.
func (q Query) Append(other Query) Query {
	if q.err != nil {
		return q
	}
	if other.err != nil {
		return q.fail(other.err)
	}
	out := q
	for _, phrase := range other.phrases {
		out = out.extend(phrase...)
	}
	return out
}

// Or extends q with a single disjunction phrase: the literal token
// "OR" followed by the tokens of a, then the tokens of b. Each
// operand must itself reduce to exactly one phrase; OR cannot join
// compound sub-queries.
func (q Query) Or(a, b Query) Query {
	if q.err != nil {
		return q
	}
	if a.err != nil {
		return q.fail(a.err)
	}
	if b.err != nil {
		return q.fail(b.err)
	}
	if len(a.phrases) != 1 || len(b.phrases) != 1 {
		return q.fail(ErrInvalidShape)
	}
	tokens := make([]string, 0, 1+len(a.phrases[0])+len(b.phrases[0]))
	tokens = append(tokens, "OR")
	tokens = append(tokens, a.phrases[0]...)
	tokens = append(tokens, b.phrases[0]...)
	return q.extend(tokens...)
}

// Not extends q with every phrase of sub prefixed by the literal
// token "NOT". Negation distributes over conjunction: a two-phrase
// sub-query yields two independently negated phrases.
func (q Query) Not(sub Query) Query {
	if q.err != nil {
		return q
	}
	if sub.err != nil {
		return q.fail(sub.err)
	}
	out := q
	for _, phrase := range sub.phrases {
		tokens := make([]string, 0, 1+len(phrase))
		tokens = append(tokens, "NOT")
		tokens = append(tokens, phrase...)
		out = out.extend(tokens...)
	}
	return out
}

// Contains matches messages whose subject or body contains s.
// Sugar for Or(Subject(s), Text(s)).
func (q Query) Contains(s string) Query {
	var atom Query
	return q.Or(atom.Subject(s), atom.Text(s))
}

// quote wraps s in double quotes, escaping backslashes and embedded
// quotes. The builder owns quoting; callers pass raw values.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '"' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

// date appends a keyword phrase with a preformatted date argument.
// Dates are bare tokens, never quoted.
func (q Query) date(keyword, dstr string) Query {
	if q.err != nil {
		return q
	}
	if dstr == "" {
		return q.fail(fmt.Errorf("%s: %w", keyword, ErrMissingArgument))
	}
	return q.extend(keyword, dstr)
}

// dateTime appends a keyword phrase formatting t per DateFormat.
func (q Query) dateTime(keyword string, t time.Time) Query {
	if q.err != nil {
		return q
	}
	if t.IsZero() {
		return q.fail(fmt.Errorf("%s: %w", keyword, ErrMissingArgument))
	}
	return q.extend(keyword, t.Format(DateFormat))
}

// All matches every message in the mailbox.
func (q Query) All() Query { return q.extend("ALL") }

// Answered matches messages with the \Answered flag set.
func (q Query) Answered() Query { return q.extend("ANSWERED") }

// Bcc matches messages whose BCC field contains addr.
func (q Query) Bcc(addr string) Query { return q.extend("BCC", quote(addr)) }

// Before matches messages received before the given date, which must
// already be in DateFormat.
func (q Query) Before(dstr string) Query { return q.date("BEFORE", dstr) }

// BeforeTime is Before with a structured date value.
func (q Query) BeforeTime(t time.Time) Query { return q.dateTime("BEFORE", t) }

// Body matches messages whose body contains s.
func (q Query) Body(s string) Query { return q.extend("BODY", quote(s)) }

// Cc matches messages whose CC field contains addr.
func (q Query) Cc(addr string) Query { return q.extend("CC", quote(addr)) }

// Deleted matches messages with the \Deleted flag set.
func (q Query) Deleted() Query { return q.extend("DELETED") }

// Draft matches messages with the \Draft flag set.
func (q Query) Draft() Query { return q.extend("DRAFT") }

// Flagged matches messages with the \Flagged flag set.
func (q Query) Flagged() Query { return q.extend("FLAGGED") }

// From matches messages whose FROM field contains s.
func (q Query) From(s string) Query { return q.extend("FROM", quote(s)) }

// GmailRaw passes s through Gmail's X-GM-RAW search extension.
func (q Query) GmailRaw(s string) Query { return q.extend("X-GM-RAW", quote(s)) }

// Header matches messages whose named header field contains s. The
// field name is a bare token; the value is quoted.
func (q Query) Header(field, s string) Query {
	if q.err != nil {
		return q
	}
	if field == "" {
		return q.fail(fmt.Errorf("HEADER: %w", ErrMissingArgument))
	}
	return q.extend("HEADER", field, quote(s))
}

// Keyword matches messages carrying the given keyword flag.
func (q Query) Keyword(s string) Query { return q.extend("KEYWORD", quote(s)) }

// Larger matches messages larger than n bytes.
func (q Query) Larger(n int64) Query {
	return q.extend("LARGER", strconv.FormatInt(n, 10))
}

// New matches messages that are recent and unseen.
func (q Query) New() Query { return q.extend("NEW") }

// Old matches messages that are not recent.
func (q Query) Old() Query { return q.extend("OLD") }

// On matches messages received on the given date.
func (q Query) On(dstr string) Query { return q.date("ON", dstr) }

// OnTime is On with a structured date value.
func (q Query) OnTime(t time.Time) Query { return q.dateTime("ON", t) }

// Recent matches messages with the \Recent flag set.
func (q Query) Recent() Query { return q.extend("RECENT") }

// Seen matches messages with the \Seen flag set.
func (q Query) Seen() Query { return q.extend("SEEN") }

// SentBefore matches messages whose Date header is before the given date.
func (q Query) SentBefore(dstr string) Query { return q.date("SENTBEFORE", dstr) }

// SentBeforeTime is SentBefore with a structured date value.
func (q Query) SentBeforeTime(t time.Time) Query { return q.dateTime("SENTBEFORE", t) }

// SentOn matches messages whose Date header is on the given date.
func (q Query) SentOn(dstr string) Query { return q.date("SENTON", dstr) }

// SentOnTime is SentOn with a structured date value.
func (q Query) SentOnTime(t time.Time) Query { return q.dateTime("SENTON", t) }

// SentSince matches messages whose Date header is on or after the given date.
func (q Query) SentSince(dstr string) Query { return q.date("SENTSINCE", dstr) }

// SentSinceTime is SentSince with a structured date value.
func (q Query) SentSinceTime(t time.Time) Query { return q.dateTime("SENTSINCE", t) }

// Since matches messages received on or after the given date.
func (q Query) Since(dstr string) Query { return q.date("SINCE", dstr) }

// SinceTime is Since with a structured date value.
func (q Query) SinceTime(t time.Time) Query { return q.dateTime("SINCE", t) }

// Smaller matches messages smaller than n bytes.
func (q Query) Smaller(n int64) Query {
	return q.extend("SMALLER", strconv.FormatInt(n, 10))
}

// Subject matches messages whose subject contains s.
func (q Query) Subject(s string) Query { return q.extend("SUBJECT", quote(s)) }

// Text matches messages whose header or body contains s.
func (q Query) Text(s string) Query { return q.extend("TEXT", quote(s)) }

// To matches messages whose TO field contains s.
func (q Query) To(s string) Query { return q.extend("TO", quote(s)) }

// UID matches messages in the given UID set, e.g. "457" or "100:200".
func (q Query) UID(set string) Query {
	if q.err != nil {
		return q
	}
	if set == "" {
		return q.fail(fmt.Errorf("UID: %w", ErrMissingArgument))
	}
	return q.extend("UID", set)
}

// Unanswered matches messages without the \Answered flag.
func (q Query) Unanswered() Query { return q.extend("UNANSWERED") }

// Undeleted matches messages without the \Deleted flag.
func (q Query) Undeleted() Query { return q.extend("UNDELETED") }

// Undraft matches messages without the \Draft flag.
func (q Query) Undraft() Query { return q.extend("UNDRAFT") }

// Unflagged matches messages without the \Flagged flag.
func (q Query) Unflagged() Query { return q.extend("UNFLAGGED") }

// Unkeyword matches messages not carrying the given keyword flag.
func (q Query) Unkeyword(s string) Query { return q.extend("UNKEYWORD", quote(s)) }

// Unseen matches messages without the \Seen flag.
func (q Query) Unseen() Query { return q.extend("UNSEEN") }
