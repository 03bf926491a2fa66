package events

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kpssolutions52-cloud/friendly-umbrella-sub002/prometheus"
)

// Event names on the wire.
const (
	TypeRFQCreated   = "rfq:created"
	TypeQuoteUpdated = "quote:updated"
	TypePriceUpdated = "price:updated"
)

type ScopeKind string

const (
	ScopeTenant ScopeKind = "tenant"
	ScopeUser   ScopeKind = "user"
)

// Scope names the recipients of an event.
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func TenantScope(id uuid.UUID) Scope { return Scope{Kind: ScopeTenant, ID: id} }
func UserScope(id uuid.UUID) Scope   { return Scope{Kind: ScopeUser, ID: id} }

func (s Scope) String() string { return string(s.Kind) + ":" + s.ID.String() }

type Event struct {
	Type    string `json:"type"`
	Scope   Scope  `json:"scope"`
	Payload any    `json:"payload"`
}

// Envelope is the payload of quote:updated events. Event carries the
// specific transition (quote:responded, quote:accepted, ...).
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Publisher delivers events to connected clients. Delivery is at most once;
// callers publish only after their transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Outbox collects the events of one operation so they can be published
// after the surrounding transaction commits. The zero value is ready to use.
type Outbox struct {
	events []Event
}

func (o *Outbox) Add(ev Event) {
	o.events = append(o.events, ev)
}

func (o *Outbox) Len() int { return len(o.events) }

// Flush publishes every collected event in order and empties the outbox.
// Failures are logged and counted; they never reach the caller because the
// state change they describe is already durable.
func (o *Outbox) Flush(ctx context.Context, pub Publisher, log *zap.Logger) {
	pending := o.events
	o.events = nil
	if pub == nil {
		return
	}
	for _, ev := range pending {
		if err := pub.Publish(ctx, ev); err != nil {
			prometheus.RecordEventPublish(ev.Type, "failed")
			log.Warn("Failed to publish event",
				zap.String("type", ev.Type),
				zap.String("scope", ev.Scope.String()),
				zap.Error(err))
		}
	}
}
