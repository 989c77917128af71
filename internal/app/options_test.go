package app

import (
	"strings"
	"testing"
	"time"
)

var parseNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

func parse(t *testing.T, args ...string) *options {
	t.Helper()
	opts, err := parseOptions(args, parseNow)
	if err != nil {
		t.Fatalf("parseOptions(%q): %v", args, err)
	}
	return opts
}

func TestParseQueryFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single flag", []string{"--unseen"}, "UNSEEN"},
		{"single value", []string{"--from", "alice"}, `FROM "alice"`},
		{"inline value", []string{"--from=alice"}, `FROM "alice"`},
		{"conjunction keeps order", []string{"--from", "alice", "--unseen"}, `FROM "alice" UNSEEN`},
		{"or keeps operand order", []string{"--from", "a", "--or", "--from", "b"}, `OR FROM "a" FROM "b"`},
		{"not negates next", []string{"--not", "--seen"}, "NOT SEEN"},
		{"or with negated operand", []string{"--from", "a", "--or", "--not", "--from", "b"}, `OR FROM "a" NOT FROM "b"`},
		{"negated first operand", []string{"--not", "--from", "a", "--or", "--to", "b"}, `OR NOT FROM "a" TO "b"`},
		{"chained or nests", []string{"--from", "a", "--or", "--from", "b", "--or", "--from", "c"}, `OR OR FROM "a" FROM "b" FROM "c"`},
		{"or binds neighbors only", []string{"--flagged", "--seen", "--or", "--unseen"}, "FLAGGED OR SEEN UNSEEN"},
		{"not then conjunction", []string{"--not", "--from", "spam", "--to", "me"}, `NOT FROM "spam" TO "me"`},
		{"contains expands", []string{"--contains", "invoice"}, `OR SUBJECT "invoice" TEXT "invoice"`},
		{"header splits on colon", []string{"--header", "List-Id:golang-nuts"}, `HEADER "List-Id" "golang-nuts"`},
		{"larger", []string{"--larger", "1024"}, "LARGER 1024"},
		{"uid set", []string{"--uid", "100:200"}, "UID 100:200"},
		{"imap date passes through", []string{"--since", "15-Mar-2024"}, "SINCE 15-Mar-2024"},
		{"iso date converted", []string{"--since", "2024-03-15"}, "SINCE 15-Mar-2024"},
		{"natural date resolved", []string{"--before", "yesterday"}, "BEFORE 19-Mar-2024"},
		{"gmail raw", []string{"--gmail", "has:attachment"}, `X-GM-RAW "has:attachment"`},
		{"no flags no query", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := parse(t, tt.args...)
			got, err := opts.query.Build()
			if tt.want == "" {
				if !opts.query.Empty() {
					t.Fatalf("query = %q, want empty", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got != tt.want {
				t.Errorf("query = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseQueryErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"leading or", []string{"--or", "--from", "a"}, "preceding"},
		{"trailing or", []string{"--from", "a", "--or"}, "following"},
		{"trailing not", []string{"--not"}, "following"},
		{"double or", []string{"--from", "a", "--or", "--or", "--from", "b"}, "connective"},
		{"double not", []string{"--not", "--not", "--seen"}, "--not"},
		{"or after not", []string{"--from", "a", "--not", "--or", "--seen"}, "connective"},
		{"header without colon", []string{"--header", "novalue"}, "Name:value"},
		{"larger not a number", []string{"--larger", "big"}, "size"},
		{"bad date", []string{"--since", "purple monkey dishwasher"}, "date"},
		{"missing value", []string{"--from"}, "missing value"},
		{"unknown long flag", []string{"--frobnicate"}, "unknown flag"},
		{"unknown short flag", []string{"-z"}, "unknown flag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOptions(tt.args, parseNow)
			if err == nil {
				t.Fatalf("parseOptions(%q) succeeded, want error", tt.args)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestParseConnectionFlags(t *testing.T) {
	opts := parse(t,
		"-c", "a.json", "--config", "b.json",
		"--account", "work",
		"-u", "bob", "-p", "hunter2",
		"-h", "mail.example.com", "--port", "1993",
		"-i", "Archive", "--no-ssl",
		"-l", "5", "-s", "-vv",
		"--status-only", "--keep-unread", "--part", "2",
		"457", "458",
	)

	if got, want := strings.Join(opts.configs, ","), "a.json,b.json"; got != want {
		t.Errorf("configs = %q, want %q", got, want)
	}
	if opts.account != "work" {
		t.Errorf("account = %q, want work", opts.account)
	}
	if opts.username != "bob" || opts.password != "hunter2" {
		t.Errorf("credentials = %q/%q", opts.username, opts.password)
	}
	if opts.host != "mail.example.com" {
		t.Errorf("host = %q", opts.host)
	}
	if !opts.portSet || opts.port != 1993 {
		t.Errorf("port = %d (set=%v), want 1993", opts.port, opts.portSet)
	}
	if opts.mailbox != "Archive" {
		t.Errorf("mailbox = %q", opts.mailbox)
	}
	if !opts.noSSL {
		t.Error("noSSL not set")
	}
	if !opts.limitSet || opts.limit != 5 {
		t.Errorf("limit = %d (set=%v), want 5", opts.limit, opts.limitSet)
	}
	if !opts.suppress {
		t.Error("suppress not set")
	}
	if opts.verbose != 2 {
		t.Errorf("verbose = %d, want 2", opts.verbose)
	}
	if !opts.statusOnly || !opts.keepUnread {
		t.Errorf("statusOnly=%v keepUnread=%v", opts.statusOnly, opts.keepUnread)
	}
	if opts.part != 2 {
		t.Errorf("part = %d, want 2", opts.part)
	}
	if got, want := strings.Join(opts.args, ","), "457,458"; got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestParseVerboseAccumulates(t *testing.T) {
	opts := parse(t, "-v", "-v", "--verbose")
	if opts.verbose != 3 {
		t.Errorf("verbose = %d, want 3", opts.verbose)
	}
}

func TestParseDoubleDashStopsFlags(t *testing.T) {
	opts := parse(t, "--", "--from", "-v")
	if got, want := strings.Join(opts.args, ","), "--from,-v"; got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
	if !opts.query.Empty() {
		t.Error("query should be empty")
	}
}

func TestParseZeroLimit(t *testing.T) {
	opts := parse(t, "-l", "0")
	if !opts.limitSet || opts.limit != 0 {
		t.Errorf("limit = %d (set=%v), want 0 set", opts.limit, opts.limitSet)
	}
}

func TestParseBadNumbers(t *testing.T) {
	for _, args := range [][]string{
		{"--port", "nine"},
		{"-l", "-3"},
		{"--part", "0"},
		{"--part", "x"},
	} {
		if _, err := parseOptions(args, parseNow); err == nil {
			t.Errorf("parseOptions(%q) succeeded, want error", args)
		}
	}
}
