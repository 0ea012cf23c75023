package events

import "github.com/scmregistry/core/pkg/datanode"

// CommandForDatanode is an inbound message asking the registry to queue a
// command for a datanode — e.g. from an admin action or another
// subsystem that doesn't hold a direct reference to the CommandQueue.
type CommandForDatanode struct {
	Command datanode.Command
}

// CommandSink is the minimal surface Bridge needs to forward
// CommandForDatanode messages onto the registry's command queue. Defined
// here (rather than imported from pkg/registry) to avoid a dependency
// cycle — pkg/registry is the one thing that implements it.
type CommandSink interface {
	Add(uuid datanode.ID, cmd datanode.Command)
}

// Bridge is the EventBridge of spec.md §4.8: a Broker wrapper that knows
// the registry's event vocabulary and also subscribes itself to
// CommandForDatanode messages, forwarding them into a CommandSink.
type Bridge struct {
	*Broker
	sink   CommandSink
	inbox  chan CommandForDatanode
	stopCh chan struct{}
}

// NewBridge wraps a Broker with the datanode-command forwarding loop. sink
// is typically the registry's CommandQueue.
func NewBridge(sink CommandSink) *Bridge {
	return &Bridge{
		Broker: NewBroker(),
		sink:   sink,
		inbox:  make(chan CommandForDatanode, 256),
		stopCh: make(chan struct{}),
	}
}

// Start starts both the broadcast loop and the command-forwarding loop.
func (b *Bridge) Start() {
	b.Broker.Start()
	go b.forwardLoop()
}

// Stop stops both loops.
func (b *Bridge) Stop() {
	b.Broker.Stop()
	close(b.stopCh)
}

// SubmitCommand enqueues a CommandForDatanode message. It never calls
// directly into the sink on the caller's goroutine: the forwarding loop
// does that asynchronously, so a caller inside a Fire* callback can never
// re-enter the sink while the broker's subscriber-map lock is held.
func (b *Bridge) SubmitCommand(msg CommandForDatanode) {
	select {
	case b.inbox <- msg:
	case <-b.stopCh:
	}
}

func (b *Bridge) forwardLoop() {
	for {
		select {
		case msg := <-b.inbox:
			b.sink.Add(msg.Command.DatanodeUUID, msg.Command)
			b.Publish(&Event{
				Type:         TypeDatanodeCommand,
				DatanodeUUID: msg.Command.DatanodeUUID,
				Message:      string(msg.Command.Type),
			})
		case <-b.stopCh:
			return
		}
	}
}

// FireNewNode announces a first-contact registration.
func (b *Bridge) FireNewNode(uuid datanode.ID, hostName string) {
	b.Publish(&Event{Type: TypeNewNode, DatanodeUUID: uuid, Message: hostName})
}

// FireAddressUpdate announces a hostname/IP change on re-registration.
func (b *Bridge) FireAddressUpdate(uuid datanode.ID, hostName string) {
	b.Publish(&Event{Type: TypeNodeAddressUpdate, DatanodeUUID: uuid, Message: hostName})
}

// FireNodeStale announces a HEALTHY -> STALE scanner transition.
func (b *Bridge) FireNodeStale(uuid datanode.ID) {
	b.Publish(&Event{Type: TypeNodeStale, DatanodeUUID: uuid})
}

// FireNodeDead announces a scanner transition to DEAD (from STALE, or
// directly from HEALTHY/HEALTHY_READONLY when a scan first sees the node
// past the dead threshold).
func (b *Bridge) FireNodeDead(uuid datanode.ID) {
	b.Publish(&Event{Type: TypeNodeDead, DatanodeUUID: uuid})
}

// FireNodeHealthy announces any state -> HEALTHY transition, including a
// DEAD node's recovery.
func (b *Bridge) FireNodeHealthy(uuid datanode.ID) {
	b.Publish(&Event{Type: TypeNodeHealthy, DatanodeUUID: uuid})
}

// FireCommandCountUpdated announces a merged command-queue report.
func (b *Bridge) FireCommandCountUpdated(uuid datanode.ID) {
	b.Publish(&Event{Type: TypeDatanodeCommandCountUpdate, DatanodeUUID: uuid})
}
