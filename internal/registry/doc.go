// Package registry defines the reviewer module contract and the frozen table
// of modules available to a run, along with the mapping from run mode to the
// cost classes that mode may execute.
package registry
