package router

import (
	"context"
	"fmt"
)

// Handler performs the work for one intent. It must always leave a
// human-readable Response on the state, including on failure, and must not
// let errors escape.
type Handler interface {
	Handle(ctx context.Context, s *CommandState)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, s *CommandState)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, s *CommandState) { f(ctx, s) }

// Handlers is the closed set of collaborators, one per intent.
type Handlers struct {
	Scheduler    Handler
	NoteTaker    Handler
	Presenter    Handler
	Communicator Handler
	Reader       Handler
	Suggestor    Handler
}

func (h Handlers) validate() error {
	slots := []struct {
		name string
		h    Handler
	}{
		{"scheduler", h.Scheduler},
		{"notetaker", h.NoteTaker},
		{"presenter", h.Presenter},
		{"communicator", h.Communicator},
		{"document_reader", h.Reader},
		{"suggestor", h.Suggestor},
	}
	for _, s := range slots {
		if s.h == nil {
			return fmt.Errorf("%w: %s", ErrMissingHandler, s.name)
		}
	}
	return nil
}

// Dispatch maps an intent to its handler. Unknown has no handler and reports
// false, which terminates the pass.
func (h Handlers) Dispatch(intent Intent) (Handler, bool) {
	switch intent {
	case Schedule:
		return h.Scheduler, true
	case Notes:
		return h.NoteTaker, true
	case Present:
		return h.Presenter, true
	case Message:
		return h.Communicator, true
	case Read:
		return h.Reader, true
	case Suggest:
		return h.Suggestor, true
	default:
		return nil, false
	}
}
