// Package format renders message status lines from a user-supplied
// template. The template expands $status, $uid, $sender_name,
// $sender_addr, $subject and $date, and may contain one <> slot that
// receives the subject padded or truncated so the finished line fills
// the column limit exactly.
package format

import (
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mailcheck/mailcheck/internal/status"
)

const defaultDateFormat = "2006-01-02 15:04"

// Formatter holds the rendering settings for status lines.
type Formatter struct {
	Template   string
	Limit      int // 0 disables all width handling
	DateFormat string
	Encoding   string // "ascii" drops non-ASCII characters from field values
	Normalize  bool   // decompose accented characters and strip the marks
}

// Line renders one status line. Field values are normalized before
// width calculations so padding stays in columns, not bytes.
func (f Formatter) Line(p status.Projection, uid string) string {
	subject := f.clean(p.Subject)
	values := map[string]string{
		"status":      string(p.Marker),
		"uid":         uid,
		"sender_name": f.clean(p.SenderName),
		"sender_addr": f.clean(p.SenderAddr),
		"subject":     subject,
		"date":        p.Date.Format(f.dateFormat()),
	}
	preLine := os.Expand(f.Template, func(key string) string {
		return values[key]
	})

	ellipsis := "..."
	if f.Encoding != "ascii" {
		ellipsis = "…"
	}

	line := preLine
	if strings.Contains(preLine, "<>") {
		if f.Limit > 0 {
			slot := f.Limit - utf8.RuneCountInString(preLine) + len("<>")
			subject = fit(subject, slot, ellipsis)
		}
		line = strings.ReplaceAll(preLine, "<>", subject)
	}

	if f.Limit > 0 && utf8.RuneCountInString(line) > f.Limit {
		line = truncate(line, f.Limit, ellipsis)
	}
	return line
}

func (f Formatter) dateFormat() string {
	if f.DateFormat == "" {
		return defaultDateFormat
	}
	return f.DateFormat
}

var marks = runes.Remove(runes.In(unicode.Mn))

func (f Formatter) clean(s string) string {
	if !f.Normalize {
		return s
	}
	out, _, err := transform.String(transform.Chain(norm.NFD, marks), s)
	if err != nil {
		out = s
	}
	if f.Encoding == "ascii" {
		out = strings.Map(func(r rune) rune {
			if r > unicode.MaxASCII {
				return -1
			}
			return r
		}, out)
	}
	return out
}

// fit pads or truncates s to exactly width columns.
func fit(s string, width int, ellipsis string) string {
	if width <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) > width {
		return truncate(s, width, ellipsis)
	}
	return s + strings.Repeat(" ", width-len(rs))
}

func truncate(s string, width int, ellipsis string) string {
	keep := width - utf8.RuneCountInString(ellipsis)
	if keep < 0 {
		keep = 0
	}
	return string([]rune(s)[:keep]) + ellipsis
}
