package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by every operation attempted on a
	// session whose transport is gone.
	ErrNotConnected = errors.New("not connected")

	// ErrNoMailbox is returned by message operations attempted before
	// a mailbox has been selected.
	ErrNoMailbox = errors.New("no mailbox selected")

	// ErrUnsupportedMode is returned by Connect when an unencrypted
	// transport is requested.
	ErrUnsupportedMode = errors.New("unencrypted transport not supported")
)

// AuthError indicates the server rejected authentication. Message
// carries the server's completion text verbatim.
type AuthError struct {
	Username string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Username, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an
// AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// MailboxError indicates a mailbox selection the server refused.
// Message carries the server's completion text verbatim.
type MailboxError struct {
	Mailbox string
	Message string
}

func (e *MailboxError) Error() string {
	return fmt.Sprintf("mailbox error (%s): %s", e.Mailbox, e.Message)
}

// CommandError indicates a NO or BAD completion for a message
// operation. Message carries the server's completion text verbatim.
type CommandError struct {
	Command string
	Status  string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed (%s): %s", e.Command, e.Status, e.Message)
}
