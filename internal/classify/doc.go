// Package classify maps each changed file to one or more review domains using
// a declarative rule table.
//
// Matching runs in two stages: path rules (globs and path substrings) first,
// then content-marker rules that promote an ambiguous domain to a specialized
// one. The result depends only on paths, content, and rules.
package classify
