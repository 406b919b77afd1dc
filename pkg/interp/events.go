package interp

import (
	"github.com/haivivi/starside/pkg/value"
)

// Event is data a script pushed to the host with starside.send.
type Event struct {
	// Name is the first argument to send when it is a string, else "".
	Name string
	// Args holds the remaining arguments, or all of them when Name is "".
	Args []value.Value
}

// Subscribe registers fn to receive script events. fn runs on the
// goroutine executing the script with the GIL held and must not block.
// The event's values are released once every subscriber returned, so fn
// clones any handles it keeps. The returned function removes the
// subscription.
func (i *Interpreter) Subscribe(fn func(Event)) (cancel func()) {
	i.subsMu.Lock()
	defer i.subsMu.Unlock()
	i.nextSub++
	id := i.nextSub
	i.subs[id] = fn
	return func() {
		i.subsMu.Lock()
		defer i.subsMu.Unlock()
		delete(i.subs, id)
	}
}

func (i *Interpreter) emit(ev Event) {
	i.subsMu.Lock()
	fns := make([]func(Event), 0, len(i.subs))
	for _, fn := range i.subs {
		fns = append(fns, fn)
	}
	i.subsMu.Unlock()

	if len(fns) == 0 {
		i.logger.Warn("interp: event dropped, no subscribers", "event", ev.Name)
	}
	for _, fn := range fns {
		fn(ev)
	}
	for _, a := range ev.Args {
		a.Release()
	}
}
