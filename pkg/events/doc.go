/*
Package events provides in-process pub/sub distribution of pool events.

Every mutation in the pool is recorded twice: a durable row in the store's
events table, and a best-effort broadcast through this broker for anything
watching live (dashboard refreshes, debugging tails). The broker is not a
delivery guarantee; a slow subscriber misses events rather than slowing
the pool down.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for event := range sub {
			fmt.Printf("%s %s\n", event.Type, event.TaskID)
		}
	}()

	broker.Publish(&types.Event{Type: types.EventTaskLeased, TaskID: id})

# Delivery Semantics

  - Publish buffers up to 100 events centrally and never blocks callers
    once the buffer has room
  - Each subscriber gets a 50-event buffer; a full buffer drops events
    for that subscriber only
  - No replay: subscribers see events published after they subscribe;
    history comes from the store's events table

# Integration Points

  - pkg/pool publishes service-level events after each mutation
  - pkg/types defines the Event shape and type tags
*/
package events
