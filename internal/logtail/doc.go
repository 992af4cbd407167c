// Package logtail reads and formats the tail of the atlas log file.
//
// # Overview
//
// atlas owns the terminal while the TUI runs, so the logging package writes
// JSON lines to a file instead. This package gets them back out for the
// `atlas logs` command and the in-app log view.
//
// # Reading Log Files
//
// Read uses a ring buffer of size maxLines:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	   - Track total lines seen
//	3. If total < maxLines:
//	   - Return first 'count' entries from buffer
//	4. If total >= maxLines:
//	   - Return buffer starting from current index (oldest line)
//
// Memory stays O(maxLines) whatever the file size. A non-positive maxLines
// returns the whole file.
//
// # Parsing
//
// Parse decodes one zerolog JSON line into an Entry. The standard keys
// (time, level, message, error) get their own fields; everything else lands
// in Fields. Lines that are not JSON, such as a panic trace, are kept with
// Level NoLevel so nothing in the file is hidden.
//
// # Formatting
//
// Format renders an Entry as a single console line:
//
//	12:00:00 WRN page load failed page=2 error="dial tcp: refused"
//
// Levels are colored with fatih/color, which honors NO_COLOR and non-TTY
// output on its own.
//
// # Error Handling
//
// Read returns nil, nil for non-existent files. Other errors (permission
// denied, I/O errors) are returned wrapped.
package logtail
