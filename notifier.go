package main

import "sync"

// subscriberBuffer is how many undelivered events a slow subscriber may lag
// behind before further events are dropped for it.
const subscriberBuffer = 8

// ChangeNotifier fans committed updates out to the subscribed sessions of a
// tenant. Delivery is best-effort: there is no replay for disconnected or
// late-joining subscribers, and a subscriber whose buffer is full misses the
// event. A reconnecting client must re-fetch the ledger before resuming.
type ChangeNotifier struct {
	mu   sync.Mutex
	subs map[string]map[chan UpdateEvent]struct{}
}

func NewChangeNotifier() *ChangeNotifier {
	return &ChangeNotifier{subs: make(map[string]map[chan UpdateEvent]struct{})}
}

// Subscribe registers a new subscriber channel for a tenant. The returned
// cancel function removes and closes the channel; call it when the
// subscriber's connection goes away.
func (n *ChangeNotifier) Subscribe(tenant string) (<-chan UpdateEvent, func()) {
	ch := make(chan UpdateEvent, subscriberBuffer)

	n.mu.Lock()
	if n.subs[tenant] == nil {
		n.subs[tenant] = make(map[chan UpdateEvent]struct{})
	}
	n.subs[tenant][ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[tenant][ch]; ok {
			delete(n.subs[tenant], ch)
			if len(n.subs[tenant]) == 0 {
				delete(n.subs, tenant)
			}
			close(ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish pushes an event to every current subscriber of the tenant without
// ever blocking the writer.
func (n *ChangeNotifier) Publish(tenant string, ev UpdateEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs[tenant] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many sessions are subscribed for a tenant.
func (n *ChangeNotifier) SubscriberCount(tenant string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[tenant])
}
