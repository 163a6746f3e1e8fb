// Package review holds the core data model of a review run (findings, module
// results, coverage, gate decisions) and the aggregation engine that turns a
// set of module results into a report.
//
// Aggregate is pure: it validates each result, deduplicates findings raised
// by different modules against the same lines, orders them by priority, path,
// and line, and computes a per-domain coverage map so that "no findings" can
// always be told apart from "not reviewed". Finding IDs are stable SHA-256
// prefixes of the finding's location, category, and summary.
package review
