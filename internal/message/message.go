// Package message is the boundary between raw wire bytes and parsed
// mail. It wraps go-message so the rest of the codebase never touches
// MIME header syntax directly.
package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Message is a parsed mail message. It keeps the original wire bytes
// alongside the parsed header so callers can re-read the body or
// persist the message without a lossy round-trip.
type Message struct {
	raw    []byte
	header mail.Header
}

// Parse reads a raw RFC 822 message (full or header-only). Unknown
// charsets in the header are tolerated; empty input and malformed
// headers are errors.
func Parse(raw []byte) (*Message, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("parsing message: empty input")
	}

	entity, err := gomessage.Read(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	return &Message{
		raw:    raw,
		header: mail.Header{Header: entity.Header},
	}, nil
}

// Raw returns the original wire bytes.
func (m *Message) Raw() []byte {
	return m.raw
}

// Header returns the parsed header.
func (m *Message) Header() mail.Header {
	return m.header
}

// From returns the display name and address of the first From entry.
func (m *Message) From() (name, addr string, err error) {
	list, err := m.header.AddressList("From")
	if err != nil {
		return "", "", fmt.Errorf("parsing From header: %w", err)
	}
	if len(list) == 0 {
		return "", "", errors.New("parsing From header: no addresses")
	}
	return list[0].Name, list[0].Address, nil
}

// Subject returns the decoded subject, falling back to the raw header
// value when RFC 2047 decoding fails.
func (m *Message) Subject() string {
	subject, err := m.header.Subject()
	if err != nil {
		return m.header.Get("Subject")
	}
	return subject
}

// Date returns the parsed Date header.
func (m *Message) Date() (time.Time, error) {
	date, err := m.header.Date()
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing Date header: %w", err)
	}
	return date, nil
}

// BodyReader returns a reader over the full wire bytes, positioned at
// the start of the message for a MIME walk.
func (m *Message) BodyReader() io.Reader {
	return bytes.NewReader(m.raw)
}
