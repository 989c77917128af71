// Package dates turns user-facing date expressions into the search
// wire format. Accepted inputs are the wire format itself, ISO dates,
// and English phrases like "yesterday" or "last tuesday".
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/mailcheck/mailcheck/internal/query"
)

var parser = newParser()

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ToIMAP resolves a date expression against now and renders it in
// the wire date format.
func ToIMAP(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("empty date")
	}

	for _, layout := range []string{query.DateFormat, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(query.DateFormat), nil
		}
	}

	r, err := parser.Parse(s, now)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", s, err)
	}
	if r == nil {
		return "", fmt.Errorf("unrecognized date %q", s)
	}
	return r.Time.Format(query.DateFormat), nil
}
