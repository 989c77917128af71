package format

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mailcheck/mailcheck/internal/status"
)

func projection(subject string) status.Projection {
	return status.Projection{
		SenderName: "Alice",
		SenderAddr: "alice@example.com",
		Subject:    subject,
		Date:       time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC),
		Marker:     '!',
	}
}

func TestLineExpandsAllFields(t *testing.T) {
	f := Formatter{
		Template:   "[$status] $uid $subject ($sender_name <$sender_addr>) $date",
		DateFormat: "2006-01-02 15:04",
	}

	got := f.Line(projection("hello"), "42")
	want := "[!] 42 hello (Alice <alice@example.com>) 2024-03-05 14:30"
	if got != want {
		t.Errorf("Line() = %q, want %q", got, want)
	}
}

func TestLinePadsSubjectSlotToLimit(t *testing.T) {
	f := Formatter{
		Template: "[$status] $uid <>    <$sender_name>",
		Limit:    60,
		Encoding: "ascii",
	}

	got := f.Line(projection("hello"), "42")
	if n := utf8.RuneCountInString(got); n != 60 {
		t.Errorf("line width = %d, want 60: %q", n, got)
	}
	if !strings.HasPrefix(got, "[!] 42 hello ") {
		t.Errorf("Line() = %q", got)
	}
	if !strings.HasSuffix(got, "    <Alice>") {
		t.Errorf("Line() = %q, want trailing template text kept", got)
	}
}

func TestLineTruncatesLongSubject(t *testing.T) {
	f := Formatter{
		Template: "[$status] $uid <>    <$sender_name>",
		Limit:    40,
		Encoding: "ascii",
	}

	got := f.Line(projection(strings.Repeat("subject words ", 10)), "42")
	if n := utf8.RuneCountInString(got); n != 40 {
		t.Errorf("line width = %d, want 40: %q", n, got)
	}
	if !strings.Contains(got, "...") {
		t.Errorf("Line() = %q, want ascii ellipsis", got)
	}
	if !strings.HasSuffix(got, "    <Alice>") {
		t.Errorf("Line() = %q, want trailing template text kept", got)
	}
}

func TestLineUsesUnicodeEllipsisOutsideASCII(t *testing.T) {
	f := Formatter{
		Template: "$uid <>",
		Limit:    20,
		Encoding: "utf-8",
	}

	got := f.Line(projection(strings.Repeat("x", 50)), "42")
	if !strings.HasSuffix(got, "…") {
		t.Errorf("Line() = %q, want unicode ellipsis", got)
	}
	if n := utf8.RuneCountInString(got); n != 20 {
		t.Errorf("line width = %d, want 20", n)
	}
}

func TestLineClampsTemplatesWithoutSlot(t *testing.T) {
	f := Formatter{
		Template: "$uid: $subject",
		Limit:    10,
		Encoding: "ascii",
	}

	got := f.Line(projection("a very long subject line"), "42")
	if n := utf8.RuneCountInString(got); n != 10 {
		t.Errorf("line width = %d, want 10: %q", n, got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Line() = %q", got)
	}
}

func TestLineZeroLimitDisablesWidthHandling(t *testing.T) {
	f := Formatter{Template: "$uid <>"}

	got := f.Line(projection("untouched subject"), "42")
	if got != "42 untouched subject" {
		t.Errorf("Line() = %q", got)
	}
}

func TestLineNormalizesAccentedSubject(t *testing.T) {
	f := Formatter{
		Template:  "$subject",
		Encoding:  "ascii",
		Normalize: true,
	}

	if got := f.Line(projection("Déjà vu"), "42"); got != "Deja vu" {
		t.Errorf("Line() = %q, want %q", got, "Deja vu")
	}
}

func TestLineDropsNonASCIIWhenNormalizing(t *testing.T) {
	f := Formatter{
		Template:  "$subject",
		Encoding:  "ascii",
		Normalize: true,
	}

	if got := f.Line(projection("日本語 ok"), "42"); got != " ok" {
		t.Errorf("Line() = %q, want %q", got, " ok")
	}
}

func TestLineKeepsAccentsWhenNormalizeDisabled(t *testing.T) {
	f := Formatter{Template: "$subject", Encoding: "utf-8"}

	if got := f.Line(projection("Déjà vu"), "42"); got != "Déjà vu" {
		t.Errorf("Line() = %q", got)
	}
}

func TestLineSeenMarker(t *testing.T) {
	p := projection("hello")
	p.Marker = ' '
	f := Formatter{Template: "[$status]"}

	if got := f.Line(p, "42"); got != "[ ]" {
		t.Errorf("Line() = %q", got)
	}
}
