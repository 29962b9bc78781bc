// Package progress is the in-process event channel between the job pipeline
// and connected realtime clients. Topics are owning-user ids; delivery is
// at-most-once and best-effort. The record store, not the bus, is the durable
// source of progress and final state.
package progress

import "sync"

// subscriberBuffer bounds how far a subscriber may lag before events are
// dropped for it. Publishing never blocks.
const subscriberBuffer = 16

type Event struct {
	Name    string
	Payload any
}

type Subscription struct {
	topic string
	ch    chan Event
}

// Events yields published events until Unsubscribe closes the channel.
func (s *Subscription) Events() <-chan Event { return s.ch }

type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[*Subscription]struct{})}
}

func (b *Bus) Subscribe(topic string) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan Event, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	return sub
}

func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[sub.topic]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, sub.topic)
	}
	close(sub.ch)
}

// Publish delivers the event to every current subscriber on topic. Events for
// topics with no subscriber, or for subscribers whose buffer is full, are
// dropped.
func (b *Bus) Publish(topic string, name string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[topic] {
		select {
		case sub.ch <- Event{Name: name, Payload: payload}:
		default:
		}
	}
}
