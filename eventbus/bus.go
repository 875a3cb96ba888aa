// Package eventbus passes named events to the handlers registered for them.
package eventbus

import (
	"fmt"
	"sync"

	"github.com/mit-dci/litd/logging"
)

// EventHandleResult is what a handler says about the event it saw.
type EventHandleResult uint8

const (
	// EHANDLE_OK lets the event go ahead.
	EHANDLE_OK EventHandleResult = 0

	// EHANDLE_CANCEL asks the publisher to abandon the event.
	EHANDLE_CANCEL EventHandleResult = 1
)

// HandlerFunc reacts to one event.
type HandlerFunc func(Event) EventHandleResult

type handler struct {
	fn  HandlerFunc
	mtx sync.Mutex // a handler never runs concurrently with itself
}

// EventBus is safe for concurrent use. Events of the same name are
// published one at a time.
type EventBus struct {
	mtx      sync.Mutex
	handlers map[string][]*handler
	nameMtx  map[string]*sync.Mutex
}

// NewEventBus returns a bus with no handlers.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[string][]*handler),
		nameMtx:  make(map[string]*sync.Mutex),
	}
}

// RegisterHandler adds fn for events called name.
func (b *EventBus) RegisterHandler(name string, fn HandlerFunc) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if _, ok := b.nameMtx[name]; !ok {
		b.nameMtx[name] = &sync.Mutex{}
	}
	b.handlers[name] = append(b.handlers[name], &handler{fn: fn})
	logging.Debugf("eventbus: handler registered for %s", name)
}

// Publish hands e to its handlers. It returns false if a handler cancelled
// a cancellable event. Async events return true at once.
func (b *EventBus) Publish(e Event) (bool, error) {
	if err := checkFlags(e); err != nil {
		return false, err
	}
	name := e.Name()

	b.mtx.Lock()
	nm, ok := b.nameMtx[name]
	if !ok {
		b.mtx.Unlock()
		return true, nil
	}
	hs := make([]*handler, len(b.handlers[name]))
	copy(hs, b.handlers[name])
	b.mtx.Unlock()

	logging.Debugf("eventbus: %s to %d handlers", name, len(hs))

	f := e.Flags()
	if f&EFLAG_ASYNC_UNSAFE != 0 {
		for _, h := range hs {
			go h.call(e)
		}
		return true, nil
	}

	nm.Lock()
	defer nm.Unlock()
	proceed := true
	for _, h := range hs {
		if h.call(e) == EHANDLE_CANCEL && f&EFLAG_UNCANCELLABLE == 0 {
			proceed = false
		}
	}
	return proceed, nil
}

// PublishNonblocking is Publish for async events that doesn't wait at all.
func (b *EventBus) PublishNonblocking(e Event) error {
	if e.Flags()&EFLAG_ASYNC_UNSAFE == 0 {
		return fmt.Errorf("event %s is not async", e.Name())
	}
	go b.Publish(e)
	return nil
}

// call runs the handler, turning a panic into a logged EHANDLE_OK.
func (h *handler) call(e Event) (res EventHandleResult) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	defer func() {
		if r := recover(); r != nil {
			logging.Errorf("eventbus: handler for %s panicked: %v", e.Name(), r)
			res = EHANDLE_OK
		}
	}()
	return h.fn(e)
}

func checkFlags(e Event) error {
	f := e.Flags()
	if f&EFLAG_ASYNC_UNSAFE != 0 && f&EFLAG_UNCANCELLABLE == 0 {
		return fmt.Errorf("event %s is async but cancellable, use EFLAG_ASYNC", e.Name())
	}
	return nil
}
