// Package contracts/session defines the IMAP session contract: one
// authenticated connection, one selected mailbox, UID-addressed
// operations.
//
// Library: emersion/go-imap v2 (flag vocabulary, test server) over a
// line-oriented TLS transport.
// Auth: username + password (stored in system keyring).
package contracts

// Connection lifecycle:
//
// Connect:
//   Refuse UseTLS=false before dialing (plaintext IMAP unsupported).
//   TLS dial host:port, read the server greeting.
//   LOGIN with quoted username and password.
//   Return: authenticated session, no mailbox selected.
//
// SelectMailbox:
//   SELECT (read-write) or EXAMINE (read-only) the quoted mailbox name.
//   Failure leaves the previous selection untouched.
//
// Close:
//   Drop the transport. Idempotent; later operations report not-connected.
//
// Message operations (all UID-addressed, mailbox must be selected):
//
// SearchIDs:
//   UID SEARCH <compiled query>
//   Accept both the classic "* SEARCH n n n" response and ESEARCH.
//   Return: UIDs in server order (ascending; callers reverse for
//   newest-first display).
//
// FetchUnreadIDs:
//   SearchIDs with the single predicate UNSEEN.
//
// FetchUnreadCount:
//   STATUS <mailbox> (UNSEEN), parsed from the untagged STATUS line.
//
// FetchMessageHeaders:
//   UID FETCH <id> (RFC822.HEADER), parsed into a Message.
//   Absence (no untagged FETCH) is a false flag, not an error.
//
// FetchMessageBody / FetchMessageSize:
//   UID FETCH <id> (BODY.PEEK[]) / (RFC822.SIZE), same absence
//   convention. The peek form keeps body fetches free of flag side
//   effects; \Seen only ever changes through an explicit store.
//
// SetFlags / ClearFlags:
//   UID STORE <id,...> +FLAGS.SILENT (<flag>) / -FLAGS.SILENT (<flag>)
//   Flag names normalize to the go-imap vocabulary: "Seen" -> \Seen.
//
// ListMailboxes:
//   LIST "" "*", names from the untagged LIST lines; needs only a
//   connection, not a selection.
