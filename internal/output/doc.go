// Package output renders a review report as styled text, JSON, Markdown, or
// SARIF 2.1.0.
//
// Every writer states the verdict and the rule that produced it, every
// finding, and every module or domain that was not fully evaluated, so a
// reader can tell "no issues" from "not reviewed".
package output
