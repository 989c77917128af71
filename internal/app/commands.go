package app

import (
	"errors"
	"fmt"

	"github.com/emersion/go-imap/v2"

	"github.com/mailcheck/mailcheck/internal/config"
	"github.com/mailcheck/mailcheck/internal/credential"
	"github.com/mailcheck/mailcheck/internal/session"
)

// cmdCount prints the unread count for the configured mailbox.
func (a *App) cmdCount(cfg *config.Config) error {
	s, err := a.connect(cfg, true)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.FetchUnreadCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d unread message(s) in %s.\n", count, cfg.IMAPMailbox)
	return nil
}

// cmdStore adds or removes a flag on a batch of messages. The flag
// name comes first so the uid list can be arbitrarily long.
func (a *App) cmdStore(cfg *config.Config, opts *options, add bool) error {
	verb := "unflag"
	if add {
		verb = "flag"
	}
	if len(opts.args) < 2 {
		return usagef("%s requires a flag name and at least one message id", verb)
	}
	flag := session.NormalizeFlag(imap.Flag(opts.args[0]))
	ids := opts.args[1:]

	s, err := a.connect(cfg, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if add {
		err = s.SetFlags(ids, flag)
	} else {
		err = s.ClearFlags(ids, flag)
	}
	if err != nil {
		return err
	}

	if !cfg.SuppressSummary {
		if add {
			fmt.Fprintf(a.stdout, "stored %s on %d message(s).\n", flag, len(ids))
		} else {
			fmt.Fprintf(a.stdout, "removed %s from %d message(s).\n", flag, len(ids))
		}
	}
	return nil
}

// cmdAuth manages the password stored in the system keyring.
func (a *App) cmdAuth(cfg *config.Config, opts *options) error {
	if len(opts.args) == 0 {
		return usagef("auth requires an action: set or clear")
	}
	account := cfg.AccountName()
	if account == "" {
		return usagef("auth requires an account (--account or -u)")
	}

	switch action := opts.args[0]; action {
	case "set":
		password := cfg.IMAPPassword
		if password == "" {
			if !stdinIsTTY() {
				return errors.New("a password is required (pass -p or run interactively)")
			}
			pw, err := a.promptPassword(account, false)
			if err != nil {
				return err
			}
			password = pw
		}
		if err := credential.SetPassword(account, password); err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "stored credential for %s.\n", account)
		return nil

	case "clear":
		if err := credential.DeletePassword(account); err != nil {
			if credential.IsNotFound(err) {
				fmt.Fprintf(a.stdout, "no stored credential for %s.\n", account)
				return nil
			}
			return err
		}
		fmt.Fprintf(a.stdout, "cleared credential for %s.\n", account)
		return nil

	default:
		return usagef("unknown auth action %q (known: set, clear)", action)
	}
}

// cmdMailboxes lists the mailboxes the account can select.
func (a *App) cmdMailboxes(cfg *config.Config) error {
	s, err := a.dial(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	names, err := s.ListMailboxes()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(a.stdout, name)
	}
	return nil
}
