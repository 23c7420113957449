// Package eventbus implements the synchronous, named (sender, args) event
// primitive the typed graph uses to announce that a node or edge appeared,
// changed, or disappeared.
//
// Handlers run on the calling goroutine, in the order they subscribed, so a
// caller that triggers onNew then onChanged for the same node observes them
// strictly in that order; nothing is buffered or reordered across a channel.
package eventbus

import (
	"log/slog"
	"sync"
)

// Args carries the payload of an event. Callers populate whichever of these
// fields are meaningful for the event: a "set" change carries Member/Value,
// a "new" event carries ObjectType/Values, a part-of membership change
// carries Member/Association.
type Args struct {
	Type        string
	Member      string
	Value       interface{}
	Association string
	ObjectType  string
	Values      map[string]interface{}
}

// Handler receives a triggered event. sender is whatever object raised the
// event (typically a core.GraphNode entity), args carries the event payload.
type Handler func(sender interface{}, args Args)

// Event is a single named signal with a set of subscribed handlers. It is
// safe for concurrent use; Trigger takes a snapshot of the handler list
// before invoking so a handler may subscribe/unsubscribe without deadlocking
// itself.
type Event struct {
	mu       sync.Mutex
	handlers []subscribedHandler
	nextID   uint64
	log      *slog.Logger
	name     string
}

type subscribedHandler struct {
	id uint64
	fn Handler
}

// New creates an Event. name is used only for log messages.
func New(name string, log *slog.Logger) *Event {
	if log == nil {
		log = slog.Default()
	}
	return &Event{name: name, log: log}
}

// Add subscribes a handler with no way to unsubscribe it later. Handlers
// are never deduplicated; subscribing the same function twice calls it
// twice.
func (e *Event) Add(h Handler) {
	e.Subscribe(h)
}

func (e *Event) removeAt(idx int) {
	e.handlers = append(e.handlers[:idx], e.handlers[idx+1:]...)
}

// Trigger calls every subscribed handler in subscription order with sender
// and args. Panics inside a handler are logged and do not stop the
// remaining handlers from running, so a misbehaving exporter can't corrupt
// graph-kernel state transitions for the rest of the subscribers.
func (e *Event) Trigger(sender interface{}, args Args) {
	e.mu.Lock()
	snapshot := make([]Handler, len(e.handlers))
	for i, sh := range e.handlers {
		snapshot[i] = sh.fn
	}
	e.mu.Unlock()

	for _, h := range snapshot {
		e.callSafely(h, sender, args)
	}
}

func (e *Event) callSafely(h Handler, sender interface{}, args Args) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("event handler panicked", "event", e.name, "recover", r)
		}
	}()
	h(sender, args)
}

// Subscription is a token returned by Subscribe, used to later Unsubscribe
// the exact handler that was registered.
type Subscription struct {
	event *Event
	id    uint64
}

// Subscribe registers h and returns a token that can later be passed to
// Unsubscribe. Prefer this over Add when the caller may need to stop
// listening, e.g. when a node's onChanged/onDeleted subscription on another
// node's events must be torn down once the node itself is deleted.
func (e *Event) Subscribe(h Handler) Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, subscribedHandler{id: id, fn: h})
	return Subscription{event: e, id: id}
}

// Unsubscribe removes the handler identified by sub, if it is still
// registered on this event.
func (e *Event) Unsubscribe(sub Subscription) {
	if sub.event != e {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.handlers {
		if e.handlers[i].id == sub.id {
			e.removeAt(i)
			return
		}
	}
}
