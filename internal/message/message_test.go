package message

import (
	"strings"
	"testing"
	"time"
)

const sampleMessage = "From: Alice Example <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Quarterly report\r\n" +
	"Date: Tue, 05 Mar 2024 10:30:00 +0000\r\n" +
	"\r\n" +
	"The numbers are in.\r\n"

func TestParseFullMessage(t *testing.T) {
	m, err := Parse([]byte(sampleMessage))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	name, addr, err := m.From()
	if err != nil {
		t.Fatalf("From() error: %v", err)
	}
	if name != "Alice Example" || addr != "alice@example.com" {
		t.Errorf("From() = %q, %q", name, addr)
	}

	if got := m.Subject(); got != "Quarterly report" {
		t.Errorf("Subject() = %q", got)
	}

	date, err := m.Date()
	if err != nil {
		t.Fatalf("Date() error: %v", err)
	}
	want := time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC)
	if !date.Equal(want) {
		t.Errorf("Date() = %v, want %v", date, want)
	}

	if string(m.Raw()) != sampleMessage {
		t.Error("Raw() does not round-trip the input bytes")
	}
}

func TestParseHeaderOnly(t *testing.T) {
	headers := "From: carol@example.com\r\n" +
		"Subject: No body here\r\n" +
		"Date: Mon, 04 Mar 2024 08:00:00 -0500\r\n" +
		"\r\n"

	m, err := Parse([]byte(headers))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := m.Subject(); got != "No body here" {
		t.Errorf("Subject() = %q", got)
	}
	if _, _, err := m.From(); err != nil {
		t.Errorf("From() error: %v", err)
	}
}

func TestParseDecodesEncodedSubject(t *testing.T) {
	raw := "From: a@b.c\r\n" +
		"Subject: =?UTF-8?Q?Caf=C3=A9_news?=\r\n" +
		"Date: Tue, 05 Mar 2024 10:30:00 +0000\r\n" +
		"\r\n"

	m, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := m.Subject(); got != "Café news" {
		t.Errorf("Subject() = %q, want %q", got, "Café news")
	}
}

func TestParseEmptyInput(t *testing.T) {
	if _, err := Parse(nil); err == nil {
		t.Error("Parse(nil) = nil error, want error")
	}
	if _, err := Parse([]byte("  \r\n \t")); err == nil {
		t.Error("Parse(blank) = nil error, want error")
	}
}

func TestFromMissingHeader(t *testing.T) {
	raw := "Subject: orphan\r\nDate: Tue, 05 Mar 2024 10:30:00 +0000\r\n\r\n"
	m, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if _, _, err := m.From(); err == nil {
		t.Error("From() = nil error for message without From header")
	}
	if !strings.Contains(m.Subject(), "orphan") {
		t.Errorf("Subject() = %q", m.Subject())
	}
}

func TestDateMissingHeader(t *testing.T) {
	raw := "From: a@b.c\r\nSubject: undated\r\n\r\n"
	m, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if _, err := m.Date(); err == nil {
		t.Error("Date() = nil error for message without Date header")
	}
}
