// Package editdist measures how far apart two strings are and uses that to relocate a chunk of text inside a larger body.
//
// Compute is a bounded Levenshtein search: callers pass a LimitFunc that prunes the search, so distances that are "too large to matter" cost little. FindBestMatch
// builds on it to find the best-aligned block of lines for a needle inside a haystack, tolerating edits, which is what is needed to find where a previously seen chunk
// moved to after a rewrite.
//
// All offsets and lengths are in runes. Neither function keeps state between calls.
package editdist
