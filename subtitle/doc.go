// Package subtitle parses SRT, ASS/SSA and WebVTT subtitle files into a
// normalized sequence of timed entries.
//
// Parsing is lenient per block and strict per file: a block or cue that does
// not look like subtitle content is dropped, while a malformed timestamp or a
// structural violation aborts the whole file with a *ParseError that carries
// the path and the 1-based line or block number.
package subtitle
