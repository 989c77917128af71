// Package contracts/cache defines the message cache contract: raw
// RFC822 bodies cached on disk so a message is downloaded once.
package contracts

// Layout:
//
//   <root>/<account>/<uid>.msg
//
//   root defaults to ~/.mailcheck/; account is the configured account
//   name or the IMAP username. Both path components are sanitized so
//   no input can escape the root. Entries are written to a temp name
//   and renamed into place.
//
// FetchOrPopulate:
//
//   1. Disabled cache: fetch from the server, never touch disk.
//   2. Hit: return the cached bytes.
//   3. Miss: probe RFC822.SIZE first; bodies over the configured
//      threshold are fetched but not cached (threshold <= 0 caches
//      regardless). A message absent from the server is the sentinel
//      gone-error.
//   4. A failed save is logged and the fetched body returned anyway;
//      the network copy is authoritative.
//
// Encodings:
//
//   file_encoding names how entries are stored: utf-8 writes bytes
//   through; other names round-trip the body through the matching
//   golang.org/x/text character encoding.
