package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/mailcheck/mailcheck/internal/cache"
	"github.com/mailcheck/mailcheck/internal/config"
	"github.com/mailcheck/mailcheck/internal/format"
	"github.com/mailcheck/mailcheck/internal/message"
	"github.com/mailcheck/mailcheck/internal/session"
	"github.com/mailcheck/mailcheck/internal/status"
)

// cmdCheck lists unread messages, or the results of the command-line
// query when one was given. One status line per message, newest first.
func (a *App) cmdCheck(cfg *config.Config, opts *options) error {
	s, err := a.connect(cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	var ids []string
	if opts.query.Empty() {
		ids, err = s.FetchUnreadIDs()
		if err != nil {
			return err
		}
		if !cfg.SuppressSummary {
			fmt.Fprintf(a.stdout, "%d new message(s).\n", len(ids))
		}
	} else {
		fmt.Fprintf(a.stdout, "QUERY: %s\n", opts.query.String())
		ids, err = s.SearchIDs(opts.query)
		if err != nil {
			return err
		}
		if !cfg.SuppressSummary {
			fmt.Fprintf(a.stdout, "%d message(s) found.\n", len(ids))
		}
	}

	// The summary reports the full result; the limit only trims what
	// gets printed below it.
	slices.Reverse(ids)
	if opts.limitSet && len(ids) > opts.limit {
		ids = ids[:opts.limit]
	}

	return a.printStatusLines(s, cfg, opts, ids)
}

func (a *App) printStatusLines(s *session.Session, cfg *config.Config, opts *options, ids []string) error {
	c, err := cache.New(cfg.CacheRoot(), cfg.CacheEnabled, cfg.FileEncoding, a.logger)
	if err != nil {
		return err
	}

	formatter := format.Formatter{
		Template:   cfg.LineFormat,
		Limit:      cfg.LineLimit,
		DateFormat: cfg.DateFormat,
		Encoding:   cfg.PrintEncoding,
		Normalize:  cfg.NormalizeEnabled,
	}
	account := cfg.AccountName()

	for _, id := range ids {
		m, err := a.resolveMessage(s, c, account, id, opts.statusOnly, cfg.CacheThreshold)
		if err != nil {
			if errors.Is(err, cache.ErrMessageGone) {
				a.logger.Warn("message disappeared from the server", "id", id)
				continue
			}
			return err
		}
		if m == nil {
			a.logger.Warn("no headers for message", "id", id)
			continue
		}

		p, err := status.Project(m, false)
		if err != nil {
			fmt.Fprintf(a.stderr, "mailcheck: cannot display message %s: %v\n", id, err)
			continue
		}
		fmt.Fprintln(a.stdout, formatter.Line(p, id))
	}
	return nil
}

// resolveMessage produces a parsed message for one status line. The
// status-only path fetches headers without touching the cache; the
// default path goes through the cache and so keeps the full body for
// a later read.
func (a *App) resolveMessage(s *session.Session, c *cache.Cache, account, id string, headersOnly bool, threshold int64) (*message.Message, error) {
	if headersOnly {
		m, found, err := s.FetchMessageHeaders(id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return m, nil
	}

	raw, err := c.FetchOrPopulate(s, account, id, threshold)
	if err != nil {
		return nil, err
	}
	return message.Parse(raw)
}
