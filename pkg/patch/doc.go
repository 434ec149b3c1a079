// Package patch parses and applies SEARCH/REPLACE patch documents.
//
// A patch document is a sequence of blocks, each naming an exact run of text to find and the
// text to put in its place. Blocks are applied in order against a private working copy of the
// target, so a later block may depend on text introduced by an earlier one. Application is all
// or nothing: the caller either receives the fully patched text or an error describing which
// block failed, and the input is never modified.
//
// Matching is byte-exact and replaces only the first occurrence of each block's search text.
// There is no fuzzy or whitespace-insensitive fallback.
package patch
