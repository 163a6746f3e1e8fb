package engine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Run states. These stay untyped string constants for statekit.StateID.
const (
	StateInit        = "init"
	StateClassified  = "classified"
	StatePlanned     = "planned"
	StateExecuting   = "executing"
	StateAggregating = "aggregating"
	StateReported    = "reported"
	StateCancelled   = "cancelled"
	StateFailed      = "failed"
)

const (
	eventClassify  = "classify"
	eventPlan      = "plan"
	eventExecute   = "execute"
	eventAggregate = "aggregate"
	eventReport    = "report"
	eventCancel    = "cancel"
	eventFail      = "fail"
)

type runContext struct {
	RunID string
}

// runMachine tracks one run's lifecycle. Reported, Cancelled, and Failed are
// terminal: they accept no events.
type runMachine struct {
	interpreter *statekit.Interpreter[runContext]
}

func newRunMachine(runID string) (*runMachine, error) {
	builder := statekit.NewMachine[runContext]("review-run").
		WithInitial(statekit.StateID(StateInit)).
		WithContext(runContext{RunID: runID})

	builder.State(StateInit).
		On(eventClassify).Target(StateClassified).
		On(eventFail).Target(StateFailed).
		Done()

	builder.State(StateClassified).
		On(eventPlan).Target(StatePlanned).
		On(eventCancel).Target(StateCancelled).
		Done()

	builder.State(StatePlanned).
		On(eventExecute).Target(StateExecuting).
		On(eventCancel).Target(StateCancelled).
		Done()

	builder.State(StateExecuting).
		On(eventAggregate).Target(StateAggregating).
		On(eventCancel).Target(StateCancelled).
		Done()

	builder.State(StateAggregating).
		On(eventReport).Target(StateReported).
		Done()

	builder.State(StateReported).Done()
	builder.State(StateCancelled).Done()
	builder.State(StateFailed).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build run state machine: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return &runMachine{interpreter: interpreter}, nil
}

// fire sends event and reports an error if the run did not move.
func (m *runMachine) fire(event string) error {
	before := m.Current()
	m.interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	if m.Current() == before {
		return fmt.Errorf("event %q is not allowed in run state %q", event, before)
	}
	return nil
}

func (m *runMachine) Current() string {
	return string(m.interpreter.State().Value)
}
