package event

import "time"

type Type string

const (
	TypeRoutingResolved Type = "routing_resolved"
	TypeRoutingFailover Type = "routing_failover"
	TypeRoutingNoRoute  Type = "routing_no_route"
	TypeCircuitOpened   Type = "circuit_opened"
	TypeCircuitHalfOpen Type = "circuit_half_open"
	TypeCircuitClosed   Type = "circuit_closed"
	TypeNodeDown        Type = "node_down"
	TypeNodeUp          Type = "node_up"
	TypeDelivered       Type = "delivered"
	TypeDeliveryFailed  Type = "delivery_failed"
)

// Channel is a domain-scoped bus channel. All event types within a domain
// share one subscription.
type Channel string

const (
	ChannelRouting  Channel = "routing"
	ChannelCircuit  Channel = "circuit"
	ChannelHealth   Channel = "health"
	ChannelDelivery Channel = "delivery"
)

var typeToChannel = map[Type]Channel{
	TypeRoutingResolved: ChannelRouting,
	TypeRoutingFailover: ChannelRouting,
	TypeRoutingNoRoute:  ChannelRouting,
	TypeCircuitOpened:   ChannelCircuit,
	TypeCircuitHalfOpen: ChannelCircuit,
	TypeCircuitClosed:   ChannelCircuit,
	TypeNodeDown:        ChannelHealth,
	TypeNodeUp:          ChannelHealth,
	TypeDelivered:       ChannelDelivery,
	TypeDeliveryFailed:  ChannelDelivery,
}

// ChannelFor returns the domain channel for a given event type.
func ChannelFor(t Type) Channel { return typeToChannel[t] }

// Event describes one observable mesh occurrence. NodeID is the peer the
// event is about; Detail carries type-specific fields (chosen destination,
// skip reasons, failure counts) for observers.
type Event struct {
	Type          Type           `json:"type"`
	NodeID        string         `json:"node_id"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Detail        map[string]any `json:"detail,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}

func New(eventType Type, nodeID string) Event {
	return Event{
		Type:      eventType,
		NodeID:    nodeID,
		Detail:    map[string]any{},
		Timestamp: time.Now().UTC(),
	}
}

// With adds one detail field and returns the event for chaining.
func (e Event) With(key string, value any) Event {
	e.Detail[key] = value
	return e
}
