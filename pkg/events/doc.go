/*
Package events is an in-memory, best-effort pub/sub broker for cache
lifecycle notifications.

It is deliberately separate from the core's synchronous {poll, up,
down} event_impl dispatch in pkg/route/pkg/cache: that dispatch drives
the cache's own state transitions and must never block on an external
observer. This broker exists purely for observers on the side — tests,
a future audit log, an alerting subscriber — to watch what the cache
did without influencing how it did it.

# Usage

	bus := events.NewBroker()
	bus.Start()
	defer bus.Stop()

	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)

	go func() {
		for ev := range sub {
			fmt.Printf("[%s] %s: %s\n", ev.Type, ev.Flow, ev.Message)
		}
	}()

	bus.Publish(&events.Event{Type: events.TypeEntryStored, Flow: "ipn:100.1", Message: "bundle admitted"})

Publish never blocks the caller: a full subscriber buffer drops the
event for that subscriber rather than stalling the cache's event loop.
*/
package events
