package engine

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	appErrors "github.com/eduvoyage/admin-gateway/pkg/errors"
)

// Supervisor routes triggers to per-entity listeners. Each entity gets its
// own buffered channel and accept loop; every accepted trigger then runs in
// its own goroutine, so an in-flight upstream request never delays the next
// trigger for the same entity. Same-entity effects interleave at the network
// boundary and the last terminal transition wins. Listeners stay up for the
// process lifetime; a recovered panic is logged and the listener keeps
// consuming.
type Supervisor struct {
	logger *zap.Logger
	buffer int

	mu       sync.Mutex
	entities map[string]Entity
	channels map[string]chan Trigger
	started  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// OnTerminal, when set before Start, runs after every handled trigger.
	// The snapshot persister hangs off this hook.
	OnTerminal func(entity string)
}

// NewSupervisor builds an empty supervisor. buffer sizes each entity's
// trigger channel.
func NewSupervisor(buffer int, logger *zap.Logger) *Supervisor {
	if buffer <= 0 {
		buffer = 32
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		logger:   logger,
		buffer:   buffer,
		entities: make(map[string]Entity),
		channels: make(map[string]chan Trigger),
	}
}

// Register adds an entity before Start. Registering twice is an error.
func (s *Supervisor) Register(e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("cannot register %s after start", e.Name())
	}
	if _, exists := s.entities[e.Name()]; exists {
		return fmt.Errorf("entity %s already registered", e.Name())
	}
	s.entities[e.Name()] = e
	s.channels[e.Name()] = make(chan Trigger, s.buffer)
	return nil
}

// Entities returns the registered entity names.
func (s *Supervisor) Entities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entities))
	for name := range s.entities {
		names = append(names, name)
	}
	return names
}

// Lookup returns the registered entity by name.
func (s *Supervisor) Lookup(name string) (Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[name]
	return e, ok
}

// Start launches one listener per registered entity. Safe to call once.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	for name, e := range s.entities {
		s.wg.Add(1)
		go s.listen(e, s.channels[name])
	}
	s.started = true
	s.logger.Sugar().Infow("supervisor started", "entities", len(s.entities))
}

// Stop cancels listeners and waits for them and any in-flight triggers to
// finish.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("supervisor stopped")
}

// Dispatch queues a trigger for its entity's listener.
func (s *Supervisor) Dispatch(t Trigger) error {
	if !KnownOperation(t.Op) {
		return appErrors.Validation(fmt.Sprintf("unknown operation %q", t.Op))
	}

	s.mu.Lock()
	ch, ok := s.channels[t.Entity]
	started := s.started
	ctx := s.ctx
	s.mu.Unlock()

	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown entity %q", t.Entity))
	}
	if !started {
		return fmt.Errorf("supervisor not started")
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("supervisor stopped: %w", ctx.Err())
	case ch <- t:
		return nil
	}
}

func (s *Supervisor) listen(e Entity, ch chan Trigger) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case t := <-ch:
			s.wg.Add(1)
			go func(t Trigger) {
				defer s.wg.Done()
				s.handleSafely(e, t)
				if s.OnTerminal != nil {
					s.OnTerminal(e.Name())
				}
			}(t)
		}
	}
}

// handleSafely isolates the supervisor from handler panics. The handler
// already converts its own panics into failed transitions; this is the outer
// belt keeping a trigger goroutine from taking the process down.
func (s *Supervisor) handleSafely(e Entity, t Trigger) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("entity listener recovered",
				zap.String("entity", e.Name()),
				zap.String("trigger_id", t.ID),
				zap.Any("panic", r),
			)
		}
	}()
	e.Handle(s.ctx, t)
}
