package app

import (
	"fmt"
	"slices"

	"github.com/emersion/go-imap/v2"

	"github.com/mailcheck/mailcheck/internal/cache"
	"github.com/mailcheck/mailcheck/internal/config"
	"github.com/mailcheck/mailcheck/internal/message"
	"github.com/mailcheck/mailcheck/internal/query"
	"github.com/mailcheck/mailcheck/internal/render"
	"github.com/mailcheck/mailcheck/internal/ui/pager"
)

// cmdRead displays a single message, or opens one of its attachments
// when --part is given. Reading marks the message seen unless
// --keep-unread was passed.
func (a *App) cmdRead(cfg *config.Config, opts *options) error {
	if len(opts.args) == 0 {
		return usagef("read requires a message id")
	}
	id := opts.args[0]

	s, err := a.connect(cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := cache.New(cfg.CacheRoot(), cfg.CacheEnabled, cfg.FileEncoding, a.logger)
	if err != nil {
		return err
	}
	raw, err := c.FetchOrPopulate(s, cfg.AccountName(), id, cfg.CacheThreshold)
	if err != nil {
		return err
	}

	// Record the unread state before we change it.
	unread := false
	if unseen, err := s.SearchIDs(query.New().UID(id).Unseen()); err == nil && len(unseen) > 0 {
		unread = true
	}

	if !opts.keepUnread {
		if err := s.SetFlags([]string{id}, imap.FlagSeen); err != nil {
			a.logger.Warn("could not mark message seen", "id", id, "error", err)
		}
	}

	if opts.part > 0 {
		return a.openPart(cfg, opts, raw)
	}

	content := render.Extract(raw)

	m, err := message.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing message %s: %w", id, err)
	}

	view := pager.Message{
		Subject:     m.Subject(),
		Mailbox:     s.Mailbox(),
		UID:         id,
		Unread:      unread,
		FromHTML:    content.FromHTML,
		Body:        content.Text,
		Attachments: attachmentLines(content.Attachments),
	}
	if name, addr, err := m.From(); err == nil {
		view.From = formatAddress(name, addr)
	}
	if date, err := m.Date(); err == nil {
		view.Date = date.Format(cfg.DateFormat)
	}

	if writerIsTTY(a.stdout) {
		return pager.Run(view)
	}
	a.writePlain(view)
	return nil
}

// openPart extracts the requested attachment to a temporary file and
// hands it to the configured viewer. Positional arguments after the
// message id become extra viewer arguments.
func (a *App) openPart(cfg *config.Config, opts *options, raw []byte) error {
	data, att, err := render.Part(raw, opts.part)
	if err != nil {
		return err
	}

	argv, err := render.NewRegistry(cfg.Viewers).Lookup(att.MIMEType)
	if err != nil {
		return err
	}
	argv = append(slices.Clone(argv), opts.args[1:]...)

	path, err := render.WriteTemp(data, att.Filename)
	if err != nil {
		return err
	}
	if err := render.Launch(argv, path); err != nil {
		return err
	}

	name := att.Filename
	if name == "" {
		name = "attachment " + fmt.Sprint(att.Index)
	}
	fmt.Fprintf(a.stdout, "opened %s (%s) with %s\n", name, att.MIMEType, argv[0])
	return nil
}

func (a *App) writePlain(view pager.Message) {
	fmt.Fprintf(a.stdout, "Subject: %s\n", view.Subject)
	if view.From != "" {
		fmt.Fprintf(a.stdout, "From: %s\n", view.From)
	}
	if view.Date != "" {
		fmt.Fprintf(a.stdout, "Date: %s\n", view.Date)
	}
	fmt.Fprintln(a.stdout)
	if view.FromHTML {
		fmt.Fprintln(a.stdout, "(converted from HTML)")
		fmt.Fprintln(a.stdout)
	}
	fmt.Fprintln(a.stdout, view.Body)
	if len(view.Attachments) > 0 {
		fmt.Fprintln(a.stdout)
		fmt.Fprintf(a.stdout, "Attachments (%d):\n", len(view.Attachments))
		for _, line := range view.Attachments {
			fmt.Fprintln(a.stdout, line)
		}
	}
}

func attachmentLines(atts []render.Attachment) []string {
	lines := make([]string, 0, len(atts))
	for _, att := range atts {
		name := att.Filename
		if name == "" {
			name = "unnamed"
		}
		lines = append(lines, fmt.Sprintf("[%d] %s (%s, %s)", att.Index, name, att.MIMEType, formatSize(att.Size)))
	}
	return lines
}

func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

func formatSize(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
