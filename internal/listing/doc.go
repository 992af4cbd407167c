// Package listing owns the ordered sequence of countries shown in the
// browser and the rules for growing, replacing, and filtering it.
//
// # Modes
//
// In browse mode the sequence grows one page at a time through
// LoadNextPage. The cursor is the last page appended, and hasMore stays true
// while full pages come back. Duplicate codes are skipped, so a sequence
// never lists a country twice.
//
// Search swaps the whole sequence for one server-side result set and turns
// pagination off. Reset returns to browse mode at page one.
//
// # Concurrency
//
// At most one page request is outstanding; extra triggers return false
// without a request. Search and Reset bump an epoch, and a page or search
// completion from an older epoch is discarded without touching state. The
// loading flag is owned by the epoch, so a superseded request can never
// leave it stuck.
//
// BoundaryReached is the infinite-scroll hook. On top of the in-flight gate
// it passes through a token-bucket limiter so a held-down key does not turn
// into a burst of triggers.
//
// # Keyword filter
//
// The keyword filter is purely client-side. FilterByKeyword keeps countries
// whose region, subregion, or one of whose languages equals the keyword,
// ignoring case. The sequence itself is never modified by the filter.
package listing
