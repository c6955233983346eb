package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/miradorstack/mirador-intel/internal/models"
)

// State is a step of the confirm-and-execute flow of one UI instance.
type State string

const (
	StateIdle      State = "idle"
	StatePreview   State = "preview"
	StateExecuting State = "executing"
	StateSuccess   State = "success"
)

// UndoCapability describes what Undo actually does.
type UndoCapability string

// LocalUndoOnly means Undo resets the flow but never reverses the mutation.
const LocalUndoOnly UndoCapability = "local_only"

// ErrInvalidTransition is returned when a step is requested from the wrong state.
var ErrInvalidTransition = errors.New("invalid session transition")

// Session tracks the state of one action flow.
type Session struct {
	mu     sync.Mutex
	state  State
	action *models.ExecutableAction
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{state: StateIdle}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Action returns the action being previewed or executed.
func (s *Session) Action() *models.ExecutableAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

// UndoCapability reports the undo semantics of this session.
func (s *Session) UndoCapability() UndoCapability {
	return LocalUndoOnly
}

// Preview shows an action for confirmation.
func (s *Session) Preview(action *models.ExecutableAction) error {
	if action == nil {
		return fmt.Errorf("%w: nothing to preview", ErrInvalidTransition)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle && s.state != StatePreview {
		return s.invalid("preview")
	}
	s.state = StatePreview
	s.action = action
	return nil
}

// Cancel abandons a preview.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePreview {
		return s.invalid("cancel")
	}
	s.state = StateIdle
	s.action = nil
	return nil
}

// Confirm runs the previewed action once. Success moves to StateSuccess;
// failure returns to StatePreview so the user must confirm again.
func (s *Session) Confirm(ctx context.Context, executor *Executor, ec ExecutionContext) (bool, error) {
	s.mu.Lock()
	if s.state != StatePreview {
		defer s.mu.Unlock()
		return false, s.invalid("confirm")
	}
	if executor == nil {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: confirm without an executor", ErrInvalidTransition)
	}
	s.state = StateExecuting
	action := s.action
	s.mu.Unlock()

	ok := executor.Execute(ctx, action, ec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.state = StateSuccess
	} else {
		s.state = StatePreview
	}
	return ok, nil
}

// Undo acknowledges a successful action and resets the flow. The stored
// mutation is left in place; see LocalUndoOnly.
func (s *Session) Undo() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateSuccess {
		return s.invalid("undo")
	}
	s.state = StateIdle
	s.action = nil
	return nil
}

func (s *Session) invalid(step string) error {
	return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, step, s.state)
}
