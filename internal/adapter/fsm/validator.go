package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/docsign/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

var (
	collectionEvents = buildEvents(domain.CollectionTransitions)
	signerEvents     = buildEvents(domain.SignerTransitions)
)

// buildEvents converts a domain transition table into looplab/fsm EventDesc format.
// Transitions sharing an event and destination collapse into one EventDesc with
// several source states (e.g., cancel from "created", "sent" and "viewed").
func buildEvents[S ~string, E ~string](transitions []domain.Transition[S, E]) []loopfsm.EventDesc {
	type key struct {
		event string
		dst   string
	}
	grouped := make(map[key][]string)
	order := make([]key, 0)

	for _, t := range transitions {
		k := key{event: string(t.Event), dst: string(t.Dst)}
		if _, exists := grouped[k]; !exists {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], string(t.Src))
	}

	out := make([]loopfsm.EventDesc, 0, len(order))
	for _, k := range order {
		out = append(out, loopfsm.EventDesc{
			Name: k.event,
			Src:  grouped[k],
			Dst:  k.dst,
		})
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// looplab/fsm keeps the current state inside the machine, so every Apply call
// builds a short-lived machine starting at the entity's stored state.
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// ApplyCollection returns the collection status reached by event, or a
// *domain.TransitionError if the event is not valid from current.
func (v *Validator) ApplyCollection(ctx context.Context, current domain.Status, event domain.CollectionEvent) (domain.Status, error) {
	dst, err := apply(ctx, collectionEvents, string(current), string(event))
	return domain.Status(dst), err
}

// ApplySigner returns the signer status reached by event, or a
// *domain.TransitionError if the event is not valid from current.
func (v *Validator) ApplySigner(ctx context.Context, current domain.SignerStatus, event domain.SignerEvent) (domain.SignerStatus, error) {
	dst, err := apply(ctx, signerEvents, string(current), string(event))
	return domain.SignerStatus(dst), err
}

func apply(ctx context.Context, events []loopfsm.EventDesc, current, event string) (string, error) {
	machine := loopfsm.NewFSM(current, events, nil)

	if err := machine.Event(ctx, event); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var unknownEvent loopfsm.UnknownEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &unknownEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{
				Event:   event,
				Current: current,
			}
		}
		return "", err
	}

	return machine.Current(), nil
}
