// Package gate turns aggregated priority counts and domain coverage into a
// Ready, NeedsFixes, or Blocked decision.
//
// Rules are evaluated in a fixed order and the first one that fires decides.
// The decision records that rule and a trace of every rule considered. A
// policy file may override the verdict of a rule, but each override must
// carry a reason and an approver and is recorded on the decision.
package gate
