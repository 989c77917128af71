package status

import (
	"errors"
	"testing"
	"time"

	"github.com/mailcheck/mailcheck/internal/message"
)

func parse(t *testing.T, raw string) *message.Message {
	t.Helper()
	m, err := message.Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return m
}

func TestProject(t *testing.T) {
	m := parse(t, "From: Alice Example <alice@example.com>\r\n"+
		"Subject: Quarterly report\r\n"+
		"Date: Tue, 05 Mar 2024 10:30:00 +0000\r\n"+
		"\r\n"+
		"body\r\n")

	p, err := Project(m, false)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}

	if p.SenderName != "Alice Example" {
		t.Errorf("SenderName = %q", p.SenderName)
	}
	if p.SenderAddr != "alice@example.com" {
		t.Errorf("SenderAddr = %q", p.SenderAddr)
	}
	if p.Subject != "Quarterly report" {
		t.Errorf("Subject = %q", p.Subject)
	}
	if want := time.Date(2024, time.March, 5, 10, 30, 0, 0, time.UTC); !p.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", p.Date, want)
	}
	if p.Marker != '!' {
		t.Errorf("Marker = %q, want '!'", p.Marker)
	}
}

func TestProjectSeenMarker(t *testing.T) {
	m := parse(t, "From: a@b.c\r\nSubject: s\r\nDate: Tue, 05 Mar 2024 10:30:00 +0000\r\n\r\n")
	p, err := Project(m, true)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if p.Marker != ' ' {
		t.Errorf("Marker = %q, want ' '", p.Marker)
	}
}

func TestProjectCollapsesSubjectWhitespace(t *testing.T) {
	// An encoded word may decode to a subject containing raw line
	// breaks; they must collapse to single spaces.
	m := parse(t, "From: a@b.c\r\n"+
		"Subject: =?UTF-8?Q?line1=0Aline2=09tabbed?=\r\n"+
		"Date: Tue, 05 Mar 2024 10:30:00 +0000\r\n\r\n")

	p, err := Project(m, false)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if p.Subject != "line1 line2 tabbed" {
		t.Errorf("Subject = %q, want %q", p.Subject, "line1 line2 tabbed")
	}
}

func TestProjectMissingDate(t *testing.T) {
	m := parse(t, "From: a@b.c\r\nSubject: undated\r\n\r\n")

	_, err := Project(m, false)
	if err == nil {
		t.Fatal("Project() = nil error for message without Date")
	}

	var headerErr *MissingHeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("Project() error = %T, want *MissingHeaderError", err)
	}
	if headerErr.Header != "Date" {
		t.Errorf("Header = %q, want %q", headerErr.Header, "Date")
	}
	if !IsMissingHeader(err) {
		t.Error("IsMissingHeader() = false")
	}
}

func TestProjectMissingFrom(t *testing.T) {
	m := parse(t, "Subject: orphan\r\nDate: Tue, 05 Mar 2024 10:30:00 +0000\r\n\r\n")

	_, err := Project(m, false)
	var headerErr *MissingHeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("Project() error = %v, want *MissingHeaderError", err)
	}
	if headerErr.Header != "From" {
		t.Errorf("Header = %q, want %q", headerErr.Header, "From")
	}
}
