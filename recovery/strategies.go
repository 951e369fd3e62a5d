package recovery

import (
	"context"
	"fmt"
	"sync"

	"github.com/wudi/pdfedit/observability"
)

// StrictStrategy implements a fail-fast recovery strategy.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx context.Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy records every problem and asks the caller to repair what it
// can. Cross-reference problems are fixed by rescanning, broken objects are skipped.
type LenientStrategy struct {
	mu     sync.Mutex
	errors []error
	log    observability.Logger
}

func NewLenientStrategy(log observability.Logger) *LenientStrategy {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &LenientStrategy{log: log}
}

func (s *LenientStrategy) OnError(ctx context.Context, err error, location Location) Action {
	s.mu.Lock()
	s.errors = append(s.errors, fmt.Errorf("[%s] offset %d: %w", location.Component, location.ByteOffset, err))
	s.mu.Unlock()

	action := ActionSkip
	if location.Component == "xref" || location.Component == "trailer" {
		action = ActionFix
	}
	s.log.Warn("recovering from malformed input",
		observability.String("component", location.Component),
		observability.Int64("offset", location.ByteOffset),
		observability.Int("object", location.ObjectNum),
		observability.String("action", action.String()),
		observability.Error("error", err),
	)
	return action
}

// Errors returns the problems seen so far.
func (s *LenientStrategy) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errors...)
}
