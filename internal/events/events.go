// Package events publishes ledger lifecycle events to interested consumers.
package events

import "time"

// Event describes a committed ledger mutation. Routing keys follow the
// "<entity>.<action>" convention, e.g. "milestone.approved".
type Event struct {
	RoutingKey string         `json:"routing_key"`
	Entity     string         `json:"entity"`
	EntityID   string         `json:"entity_id"`
	ProjectID  string         `json:"project_id,omitempty"`
	ActorID    string         `json:"actor_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// Publisher delivers events after commit. Delivery is best-effort; a publish
// failure never rolls back the ledger transaction that produced the event.
type Publisher interface {
	Publish(event Event) error
	Close()
}

// NoopPublisher discards all events. Used when no broker is configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(Event) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() {}
