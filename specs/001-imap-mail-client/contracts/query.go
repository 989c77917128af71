// Package contracts/query defines the search query builder contract:
// an immutable value that accumulates SEARCH phrases and compiles them
// to one wire string.
package contracts

// Grammar:
//
//   query  := phrase (" " phrase)*        adjacent phrases AND together
//   phrase := KEYWORD [arg]               e.g. UNSEEN, FROM "alice"
//           | OR phrase phrase            operands in the order given
//           | NOT phrase
//
// Builder rules:
//
//   - Every method returns a new value; errors stick to the value and
//     surface at Build, so chains never need mid-expression checks.
//   - The builder owns quoting: string arguments arrive raw and are
//     wrapped in escaped double quotes.
//   - OR operands must each compile to exactly one phrase; compound
//     sub-queries are rejected.
//   - NOT distributes over conjunction: negating a two-phrase query
//     yields two independently negated phrases.
//   - Dates render as 02-Jan-2006. UID takes a set (457, 100:200,
//     1,3,5) validated against the set syntax.
//   - UNFLAGGED compiles to UNFLAGGED.
//   - Contains(s) is sugar for OR SUBJECT "s" TEXT "s".
//   - GmailRaw(s) compiles to X-GM-RAW "s" for Gmail servers.
//
// Command-line mapping (internal/app):
//
//   Each --flag appends one phrase. --not negates the next phrase;
//   --or joins the previous phrase with the next one:
//     --from a --or --from b        =>  OR FROM "a" FROM "b"
//     --not --seen                  =>  NOT SEEN
//     --from a --or --not --from b  =>  OR FROM "a" NOT FROM "b"
//   A dangling connective is a usage error.
