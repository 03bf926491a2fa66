package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuoteStatus string

const (
	QuotePending   QuoteStatus = "pending"
	QuoteResponded QuoteStatus = "responded"
	QuoteCountered QuoteStatus = "countered"
	QuoteAccepted  QuoteStatus = "accepted"
	QuoteRejected  QuoteStatus = "rejected"
	QuoteCancelled QuoteStatus = "cancelled"
	QuoteExpired   QuoteStatus = "expired"
)

func (s QuoteStatus) Valid() bool {
	switch s {
	case QuotePending, QuoteResponded, QuoteCountered,
		QuoteAccepted, QuoteRejected, QuoteCancelled, QuoteExpired:
		return true
	}
	return false
}

// IsTerminal reports whether no further action applies to s.
func (s QuoteStatus) IsTerminal() bool {
	switch s {
	case QuoteAccepted, QuoteRejected, QuoteCancelled, QuoteExpired:
		return true
	}
	return false
}

type QuoteAction string

const (
	ActionCreate  QuoteAction = "create"
	ActionRespond QuoteAction = "respond"
	ActionCounter QuoteAction = "counter"
	ActionAccept  QuoteAction = "accept"
	ActionReject  QuoteAction = "reject"
	ActionCancel  QuoteAction = "cancel"
	ActionExpire  QuoteAction = "expire"
)

// Side is the party of a negotiation an actor speaks for.
type Side string

const (
	SideCompany  Side = "company"
	SideSupplier Side = "supplier"
)

// Counterpart returns the other party.
func (s Side) Counterpart() Side {
	if s == SideCompany {
		return SideSupplier
	}
	return SideCompany
}

type quoteRule struct {
	to    QuoteStatus
	sides map[QuoteStatus][]Side
}

var bothSides = []Side{SideCompany, SideSupplier}

// quoteRules maps an action to its target status and, per source status,
// the sides allowed to take it.
var quoteRules = map[QuoteAction]quoteRule{
	ActionRespond: {to: QuoteResponded, sides: map[QuoteStatus][]Side{
		QuotePending: {SideSupplier},
	}},
	ActionCounter: {to: QuoteCountered, sides: map[QuoteStatus][]Side{
		QuotePending:   {SideSupplier},
		QuoteResponded: bothSides,
		QuoteCountered: bothSides,
	}},
	ActionAccept: {to: QuoteAccepted, sides: map[QuoteStatus][]Side{
		QuoteResponded: bothSides,
		QuoteCountered: bothSides,
	}},
	ActionReject: {to: QuoteRejected, sides: map[QuoteStatus][]Side{
		QuotePending:   bothSides,
		QuoteResponded: bothSides,
		QuoteCountered: bothSides,
	}},
	ActionCancel: {to: QuoteCancelled, sides: map[QuoteStatus][]Side{
		QuotePending: {SideCompany},
	}},
	ActionExpire: {to: QuoteExpired, sides: map[QuoteStatus][]Side{
		QuotePending:   bothSides,
		QuoteResponded: bothSides,
		QuoteCountered: bothSides,
	}},
}

// QuoteTransition returns the status reached by applying action to a quote
// in status from. ok is false when the action does not apply to from.
func QuoteTransition(action QuoteAction, from QuoteStatus) (to QuoteStatus, ok bool) {
	rule, found := quoteRules[action]
	if !found {
		return "", false
	}
	if _, allowed := rule.sides[from]; !allowed {
		return "", false
	}
	return rule.to, true
}

// SideMayAct reports whether side may take action on a quote in status from.
// It does not consider who made the last offer.
func SideMayAct(action QuoteAction, from QuoteStatus, side Side) bool {
	rule, found := quoteRules[action]
	if !found {
		return false
	}
	for _, s := range rule.sides[from] {
		if s == side {
			return true
		}
	}
	return false
}

// QuoteRequest is a company's request for a custom price on a product.
// Status is the stored status; use EffectiveStatus for reads.
type QuoteRequest struct {
	ID              uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID       uuid.UUID           `json:"product_id" gorm:"type:uuid;not null;index"`
	SupplierID      uuid.UUID           `json:"supplier_id" gorm:"type:uuid;not null;index"`
	CompanyID       uuid.UUID           `json:"company_id" gorm:"type:uuid;not null;index"`
	RequestedBy     uuid.UUID           `json:"requested_by" gorm:"type:uuid;not null"`
	Quantity        decimal.NullDecimal `json:"quantity" gorm:"type:numeric(12,2)"`
	Unit            string              `json:"unit" gorm:"type:varchar(32);not null"`
	RequestedPrice  decimal.NullDecimal `json:"requested_price" gorm:"type:numeric(12,2)"`
	QuotedPrice     decimal.NullDecimal `json:"quoted_price" gorm:"type:numeric(12,2)"`
	Currency        string              `json:"currency" gorm:"type:char(3);not null"`
	Message         string              `json:"message,omitempty" gorm:"type:text"`
	ResponseMessage string              `json:"response_message,omitempty" gorm:"type:text"`
	LastOfferBy     Side                `json:"last_offer_by,omitempty" gorm:"type:varchar(16)"`
	Status          QuoteStatus         `json:"status" gorm:"type:varchar(16);not null;index"`
	ExpiresAt       *time.Time          `json:"expires_at,omitempty" gorm:"index"`
	RespondedAt     *time.Time          `json:"responded_at,omitempty"`
	ClosedAt        *time.Time          `json:"closed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`

	Product *Product `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
}

func (q *QuoteRequest) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// EffectiveStatus is the status a reader observes at now: a non-terminal
// quote whose expiry has passed reads as expired. It never mutates q.
func EffectiveStatus(q *QuoteRequest, now time.Time) QuoteStatus {
	if q.Status.IsTerminal() {
		return q.Status
	}
	if q.ExpiresAt != nil && !now.Before(*q.ExpiresAt) {
		return QuoteExpired
	}
	return q.Status
}

// SideOf returns the side an actor takes on q, or false when the actor is
// neither the requesting company nor the owning supplier.
func (q *QuoteRequest) SideOf(a Actor) (Side, bool) {
	switch {
	case a.BelongsTo(q.CompanyID):
		return SideCompany, true
	case a.BelongsTo(q.SupplierID):
		return SideSupplier, true
	}
	return "", false
}

// QuoteActivity is one entry of a quote's negotiation history.
type QuoteActivity struct {
	ID         uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	QuoteID    uuid.UUID           `json:"quote_id" gorm:"type:uuid;not null;index"`
	Action     QuoteAction         `json:"action" gorm:"type:varchar(16);not null"`
	FromStatus QuoteStatus         `json:"from_status,omitempty" gorm:"type:varchar(16)"`
	ToStatus   QuoteStatus         `json:"to_status" gorm:"type:varchar(16);not null"`
	ActorID    *uuid.UUID          `json:"actor_id,omitempty" gorm:"type:uuid"`
	ActorSide  Side                `json:"actor_side,omitempty" gorm:"type:varchar(16)"`
	Price      decimal.NullDecimal `json:"price" gorm:"type:numeric(12,2)"`
	Message    string              `json:"message,omitempty" gorm:"type:text"`
	Metadata   datatypes.JSONMap   `json:"metadata,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`

	Quote *QuoteRequest `json:"-" gorm:"foreignKey:QuoteID;constraint:OnDelete:CASCADE"`
}

func (a *QuoteActivity) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
