// Package engine drives a single review run through its lifecycle:
// init, classified, planned, executing, aggregating, reported. An external
// abort or an expired run deadline moves an executing run to cancelled; a
// changeset that cannot be read moves it from init to failed with no report.
//
// The lifecycle is modelled with statekit so that illegal transitions are
// rejected rather than silently taken.
package engine
