package events

import (
	"sync"
	"time"

	"github.com/scmregistry/core/pkg/datanode"
)

// Type is the event vocabulary the registry emits, per spec.md §4.8.
type Type string

const (
	TypeNewNode                   Type = "NEW_NODE"
	TypeNodeAddressUpdate         Type = "NODE_ADDRESS_UPDATE"
	TypeNodeStale                 Type = "NODE_STALE"
	TypeNodeDead                  Type = "NODE_DEAD"
	TypeNodeHealthy               Type = "NODE_HEALTHY"
	TypeDatanodeCommand           Type = "DATANODE_COMMAND"
	TypeDatanodeCommandCountUpdate Type = "DATANODE_COMMAND_COUNT_UPDATED"
)

// Event is a single domain occurrence published on the bridge.
type Event struct {
	Type      Type
	Timestamp time.Time
	DatanodeUUID datanode.ID
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker is a topic-agnostic, non-blocking pub/sub bus: Publish never
// blocks on a slow subscriber, and a full subscriber buffer drops the
// event for that subscriber rather than stalling the broadcast loop.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]bool
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new, unstarted broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's broadcast loop.
func (b *Broker) Start() { go b.run() }

// Stop halts the broadcast loop. Subscriber channels remain open; callers
// should still Unsubscribe.
func (b *Broker) Stop() { close(b.stopCh) }

// Subscribe registers a new subscription.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := make(Subscriber, 64)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes and closes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[sub] {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish hands an event to the broadcast loop. It blocks only while the
// 256-slot event channel is full; once the broker is stopped it returns
// immediately and the event is dropped.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// subscriber buffer full, drop for this subscriber
		}
	}
}

// SubscriberCount reports the number of active subscriptions.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
