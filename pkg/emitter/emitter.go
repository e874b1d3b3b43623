// Package emitter is the type-dispatched subscription registry the
// recognizer publishes its entity/remove/diagnostic event stream through.
// It is grounded on the in-pack in-memory event bus examples: a mutex-
// guarded map of channel to an ordered slice of subscriptions, each
// addressable by an id independent of the handler's identity.
package emitter

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/textsense/recognizer/pkg/types"
)

// Handler receives whatever event value was published on its channel:
// types.EntityEvent for ChannelEntity, types.RemoveEvent for ChannelRemove,
// types.Diagnostic for ChannelDiagnostic.
type Handler func(event any)

// SubscriptionID identifies one registration, letting Off target a single
// handler even when the same func value was registered more than once.
type SubscriptionID string

type registration struct {
	id      SubscriptionID
	handler Handler
}

// Emitter is the three-channel (entity/remove/diagnostic) pub/sub registry
// described in spec.md §4.3.
type Emitter struct {
	mu   sync.RWMutex
	subs map[types.Channel][]registration
}

// New returns an Emitter with no registered handlers.
func New() *Emitter {
	return &Emitter{subs: make(map[types.Channel][]registration)}
}

// On registers handler on channel, returning a SubscriptionID that Off can
// later use to remove exactly this registration.
func (e *Emitter) On(channel types.Channel, handler Handler) SubscriptionID {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := SubscriptionID(uuid.NewString())
	e.subs[channel] = append(e.subs[channel], registration{id: id, handler: handler})
	return id
}

// Off removes the registration identified by id from channel, if present.
func (e *Emitter) Off(channel types.Channel, id SubscriptionID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	regs := e.subs[channel]
	for i, r := range regs {
		if r.id == id {
			e.subs[channel] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// RemoveAllListeners clears every handler on channel. If channel is nil, it
// clears every channel.
func (e *Emitter) RemoveAllListeners(channel *types.Channel) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if channel == nil {
		e.subs = make(map[types.Channel][]registration)
		return
	}
	delete(e.subs, *channel)
}

// ListenerCount returns the number of handlers currently registered on
// channel.
func (e *Emitter) ListenerCount(channel types.Channel) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs[channel])
}

// Emit dispatches event to every handler registered on channel, in
// registration order, synchronously: every handler has run by the time Emit
// returns. A handler that panics does not prevent its siblings from
// running; a panic from a non-diagnostic handler is converted into an
// error Diagnostic (source "emitter") and dispatched to diagnostic
// handlers. A panic from a diagnostic handler itself is swallowed, to
// avoid infinite recursion.
func (e *Emitter) Emit(channel types.Channel, event any) {
	e.mu.RLock()
	regs := append([]registration(nil), e.subs[channel]...)
	e.mu.RUnlock()

	for _, r := range regs {
		e.invoke(channel, r.handler, event)
	}
}

func (e *Emitter) invoke(channel types.Channel, handler Handler, event any) {
	defer func() {
		if rec := recover(); rec != nil {
			if channel == types.ChannelDiagnostic {
				// Swallow: a diagnostic handler panicking must not recurse.
				return
			}
			e.Emit(types.ChannelDiagnostic, types.Diagnostic{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("handler panic on %s: %v", channel, rec),
				Source:   "emitter",
			})
		}
	}()
	handler(event)
}
