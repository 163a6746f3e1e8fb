// Package reviewers holds the review modules that ship with revgate and the
// Command reviewer that runs an external executable as a module.
//
// The built-in reviewers are line scanners over added lines: they emit each
// finding as soon as it is found so a timed-out scan keeps what it saw.
package reviewers
