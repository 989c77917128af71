// Package status derives compact display records from parsed messages.
package status

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/mailcheck/mailcheck/internal/message"
)

// MissingHeaderError indicates a message that cannot be projected
// because a required header is absent or unparseable. This is a
// malformed-message condition, not an absent-data default.
type MissingHeaderError struct {
	Header string
	Err    error
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("missing required header %s: %v", e.Header, e.Err)
}

func (e *MissingHeaderError) Unwrap() error { return e.Err }

// IsMissingHeader reports whether err (or any error in its chain) is a
// MissingHeaderError.
func IsMissingHeader(err error) bool {
	var headerErr *MissingHeaderError
	return errors.As(err, &headerErr)
}

// Projection is the one-line status view of a message. It is derived
// per display and never persisted.
type Projection struct {
	SenderName string
	SenderAddr string
	Subject    string
	Date       time.Time

	// Marker is '!' for unread messages and ' ' otherwise.
	Marker byte
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Project extracts a Projection from a full or header-only message.
// The subject has embedded line breaks and whitespace runs collapsed
// to single spaces; subjects decoded from loose encodings can carry
// raw CR/LF. From and Date are required headers.
func Project(m *message.Message, seen bool) (Projection, error) {
	name, addr, err := m.From()
	if err != nil {
		return Projection{}, &MissingHeaderError{Header: "From", Err: err}
	}

	date, err := m.Date()
	if err != nil {
		return Projection{}, &MissingHeaderError{Header: "Date", Err: err}
	}

	marker := byte('!')
	if seen {
		marker = ' '
	}

	return Projection{
		SenderName: name,
		SenderAddr: addr,
		Subject:    whitespaceRun.ReplaceAllString(m.Subject(), " "),
		Date:       date,
		Marker:     marker,
	}, nil
}
