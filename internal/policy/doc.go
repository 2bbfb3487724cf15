// Package policy decides which discovered URLs the crawler may visit.
//
// A Policy holds two immutable lists:
//
//   - block: substrings; a URL containing any of them is rejected
//   - allow: prefixes; a URL is accepted only if it starts with one of them
//
// The block-list is checked first, so a URL that matches both lists is
// rejected. An empty allow-list admits nothing.
//
// Design decision: The lists are plain strings rather than globs or regular
// expressions. Substring and prefix checks are easy to predict from a
// configuration file, and they cannot fail to compile at runtime.
package policy
