// Package model provides lifecycle state management and the contracts shared
// by graph kernels, relabeling stages and pipelines.
package model

import (
	"sync"

	"github.com/tsdalton/GraKeL/pkg/errors"
)

// StateManager manages the fitted state of a kernel in a thread-safe manner.
type StateManager struct {
	mu    sync.RWMutex
	state EstimatorState
}

// NewStateManager creates a new StateManager instance.
func NewStateManager() *StateManager {
	return &StateManager{state: Unfitted}
}

// State returns the current lifecycle state.
func (s *StateManager) State() EstimatorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsFitted returns whether the kernel has been fitted.
func (s *StateManager) IsFitted() bool {
	return s.State() == Fitted
}

// SetFitted marks the kernel as fitted. A re-fit keeps it fitted.
func (s *StateManager) SetFitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Fitted
}

// RequireFitted returns a NotFittedError naming kernel and method if the
// kernel has not been fitted.
func (s *StateManager) RequireFitted(kernel, method string) error {
	if !s.IsFitted() {
		return errors.NewNotFittedError(kernel, method)
	}
	return nil
}
