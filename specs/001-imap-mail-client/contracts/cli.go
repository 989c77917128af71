// Package contracts/cli defines the command-line surface: commands,
// flag handling, configuration layering, and exit codes.
//
// Libraries: spf13/viper (configuration), charmbracelet/huh
// (interactive prompts), charmbracelet/bubbletea + bubbles + lipgloss
// (pager), 99designs/keyring (stored passwords), log/slog (logging).
package contracts

// Invocation:
//
//   mailcheck [command] [flags]
//
//   The first positional argument selects the command; flags may
//   appear anywhere. Default command: check.
//
// Commands:
//
//   check       empty query: list unread, "N new message(s)." summary.
//               with query flags: print QUERY: <compiled>, search,
//               "N message(s) found." The summary counts the full
//               result; -l/--limit trims the listing after it.
//               Listing is newest-first, one formatted status line per
//               message, resolved through the cache (--status-only
//               fetches headers only and skips the cache).
//   read <uid>  fetch via cache, extract the text body (first
//               text/plain part, else stripped text/html), list
//               attachments; mark \Seen unless --keep-unread. Pager on
//               a TTY, plain sections otherwise. --part <n> extracts
//               attachment n to a temp file and launches the
//               configured viewer (exact MIME type, then major/*,
//               else a no-viewer error); extra positionals become
//               viewer arguments.
//   count       "N unread message(s) in <mailbox>." via STATUS.
//   flag <flag> <uid>...    batch STORE +FLAGS.SILENT.
//   unflag <flag> <uid>...  batch STORE -FLAGS.SILENT.
//   auth set|clear          manage the keyring password entry.
//   mailboxes   LIST, one name per line.
//
// Configuration layering (first to last wins):
//
//   defaults -> /etc/mailcheck.json -> ~/.mailcheck.json -> -c files
//   in order -> --account section overlay -> command-line flags.
//
// Password resolution:
//
//   configuration (including -p) -> keyring -> interactive prompt
//   (offers to store the answer). Non-interactive stdin fails with a
//   pointer at 'mailcheck auth set'.
//
// Exit codes:
//
//   0 success; 1 runtime error (network, server, configuration file);
//   2 usage error (unknown command or flag, dangling --or/--not,
//   missing positionals). Usage errors add a --help hint on stderr.
//
// Logging:
//
//   slog text handler on stderr. Warn by default; -v raises to Info,
//   -vv to Debug. The verbose configuration key and repeated flags
//   take the higher of the two.
