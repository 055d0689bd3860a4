package workflow

import (
	"context"
	"fmt"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachine tracks the current state of one document and validates
// transitions against the configured transition table.
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers that can be fired in the current state
	PermittedTriggers() []Trigger
}

// Builder assembles a transition table and stamps out machine instances.
type Builder struct {
	transitions map[State]map[Trigger][]transition
}

type transition struct {
	toState State
	guard   GuardFunc
}

// NewBuilder creates an empty state machine builder
func NewBuilder() *Builder {
	return &Builder{transitions: make(map[State]map[Trigger][]transition)}
}

// Permit allows a trigger to move fromState to toState unconditionally.
func (b *Builder) Permit(fromState State, trigger Trigger, toState State) *Builder {
	return b.PermitIf(fromState, trigger, toState, nil)
}

// PermitIf allows a trigger to move fromState to toState when the guard passes.
func (b *Builder) PermitIf(fromState State, trigger Trigger, toState State, guard GuardFunc) *Builder {
	if !fromState.IsValid() {
		panic(fmt.Sprintf("invalid source state: %s", fromState))
	}
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	if b.transitions[fromState] == nil {
		b.transitions[fromState] = make(map[Trigger][]transition)
	}
	b.transitions[fromState][trigger] = append(b.transitions[fromState][trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return b
}

// Build creates a machine instance positioned at initialState. The
// transition table is shared read-only between instances.
func (b *Builder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	return &stateMachine{
		currentState: initialState,
		transitions:  b.transitions,
	}
}

type stateMachine struct {
	currentState State
	transitions  map[State]map[Trigger][]transition
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the trigger is permitted in the current state
func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.transitions[m.currentState][trigger]) > 0
}

// Fire attempts the trigger. Guards are evaluated in registration
// order; the first passing transition wins.
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.transitions[m.currentState][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

// PermittedTriggers returns all triggers that can be fired in the current state
func (m *stateMachine) PermittedTriggers() []Trigger {
	byTrigger := m.transitions[m.currentState]

	triggers := make([]Trigger, 0, len(byTrigger))
	for trigger := range byTrigger {
		triggers = append(triggers, trigger)
	}

	return triggers
}
