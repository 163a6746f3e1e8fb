// Package dispatch turns a classification result, the module registry, and a
// run mode into an invocation plan. Planning is pure: no I/O and no
// goroutines, so the same inputs always yield the same plan.
//
// A module whose domains intersect several observed domains still receives a
// single invocation covering the union of its files. Domains no selected
// module covers are recorded in Plan.Uncovered rather than treated as errors.
package dispatch
