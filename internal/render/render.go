// Package render extracts displayable text and attachment metadata
// from raw messages and launches external viewers for parts.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html"
)

// Content is the displayable view of a message body: the best
// available text rendering plus metadata for every attachment.
type Content struct {
	Text string

	// FromHTML is true when Text was produced by stripping a
	// text/html part because no text/plain part was present.
	FromHTML bool

	Attachments []Attachment
}

// Attachment describes one attachment part. Index is the 1-based
// position used by Part and the read command's --part flag. Size is
// the decoded size, after the transfer encoding is removed.
type Attachment struct {
	Index    int
	Filename string
	MIMEType string
	Size     int64
}

// Extract walks the MIME structure of a raw message. The first inline
// text/plain part becomes Text; if there is none, the first text/html
// part is stripped of tags instead. Extraction is best effort and
// always returns a usable Content, even for messages go-message
// cannot parse.
func Extract(raw []byte) *Content {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable MIME: show whatever follows the header block.
		return &Content{Text: fallbackText(raw)}
	}
	defer mr.Close()

	var c Content
	var htmlBody string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				if c.Text == "" && !c.FromHTML {
					c.Text = string(body)
				}
			case strings.HasPrefix(contentType, "text/html"):
				if htmlBody == "" {
					htmlBody = string(body)
				}
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			// Read to get the decoded size without keeping the bytes.
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			c.Attachments = append(c.Attachments, Attachment{
				Index:    len(c.Attachments) + 1,
				Filename: filename,
				MIMEType: contentType,
				Size:     int64(len(body)),
			})
		}
	}

	if c.Text == "" && htmlBody != "" {
		c.Text = stripHTML(htmlBody)
		c.FromHTML = true
	}

	return &c
}

// Part decodes attachment n (1-based, matching Attachment.Index) from
// a raw message and returns its bytes alongside its metadata.
func Part(raw []byte, n int) ([]byte, Attachment, error) {
	if n < 1 {
		return nil, Attachment{}, fmt.Errorf("message has no attachment %d", n)
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, Attachment{}, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	seen := 0
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Attachment{}, fmt.Errorf("walking message parts: %w", err)
		}

		h, ok := part.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		seen++
		if seen != n {
			continue
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, Attachment{}, fmt.Errorf("decoding attachment %d: %w", n, err)
		}

		filename, _ := h.Filename()
		contentType, _, _ := h.ContentType()
		return body, Attachment{
			Index:    n,
			Filename: filename,
			MIMEType: contentType,
			Size:     int64(len(body)),
		}, nil
	}

	return nil, Attachment{}, fmt.Errorf("message has no attachment %d", n)
}

func fallbackText(raw []byte) string {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return string(raw[i+4:])
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return string(raw[i+2:])
	}
	return string(raw)
}

// blockEnds are the closing tags that force a line break in the
// stripped rendering.
var blockEnds = map[string]bool{
	"p":   true,
	"div": true,
	"li":  true,
	"tr":  true,
}

// stripHTML renders HTML as plain text: tags are dropped, entities
// decoded, script and style contents skipped, and block boundaries
// turned into line breaks.
func stripHTML(src string) string {
	z := html.NewTokenizer(strings.NewReader(src))
	var b strings.Builder
	skip := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tt == html.StartTagToken && (tag == "script" || tag == "style") {
				skip++
			} else if tag == "br" {
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skip > 0 {
					skip--
				}
			} else if blockEnds[tag] {
				b.WriteByte('\n')
			}

		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := strings.TrimSpace(string(z.Text()))
			if text == "" {
				continue
			}
			if s := b.String(); s != "" && !strings.HasSuffix(s, "\n") {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}

	out := b.String()
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(out)
}
