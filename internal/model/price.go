package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultPrice is the public list price of a product over a time window.
type DefaultPrice struct {
	ID             uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID      uuid.UUID       `json:"product_id" gorm:"type:uuid;not null;index:idx_default_price_lookup,priority:1"`
	Price          decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Currency       string          `json:"currency" gorm:"type:char(3);not null"`
	EffectiveFrom  time.Time       `json:"effective_from" gorm:"not null"`
	EffectiveUntil *time.Time      `json:"effective_until,omitempty"`
	IsActive       bool            `json:"is_active" gorm:"not null;index:idx_default_price_lookup,priority:2"`
	CreatedBy      uuid.UUID       `json:"created_by" gorm:"type:uuid"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Product *Product `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (p *DefaultPrice) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PrivatePrice is a price negotiated between a supplier and one company.
type PrivatePrice struct {
	ID                 uuid.UUID           `json:"id" gorm:"type:uuid;primaryKey"`
	ProductID          uuid.UUID           `json:"product_id" gorm:"type:uuid;not null;index:idx_private_price_lookup,priority:1"`
	CompanyID          uuid.UUID           `json:"company_id" gorm:"type:uuid;not null;index:idx_private_price_lookup,priority:2"`
	Price              decimal.Decimal     `json:"price" gorm:"type:numeric(12,2);not null"`
	DiscountPercentage decimal.NullDecimal `json:"discount_percentage" gorm:"type:numeric(5,2)"`
	Currency           string              `json:"currency" gorm:"type:char(3);not null"`
	EffectiveFrom      time.Time           `json:"effective_from" gorm:"not null"`
	EffectiveUntil     *time.Time          `json:"effective_until,omitempty"`
	IsActive           bool                `json:"is_active" gorm:"not null;index:idx_private_price_lookup,priority:3"`
	Notes              string              `json:"notes,omitempty" gorm:"type:text"`
	CreatedBy          uuid.UUID           `json:"created_by" gorm:"type:uuid"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`

	Product *Product `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Company *Tenant  `json:"-" gorm:"foreignKey:CompanyID;constraint:OnDelete:RESTRICT"`
}

func (p *PrivatePrice) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EffectiveAt reports whether a window [from, until] contains t. A nil
// until means open-ended. Both bounds are inclusive.
func EffectiveAt(from time.Time, until *time.Time, t time.Time) bool {
	if from.After(t) {
		return false
	}
	return until == nil || !until.Before(t)
}

func (p *DefaultPrice) EffectiveAt(t time.Time) bool {
	return p.IsActive && EffectiveAt(p.EffectiveFrom, p.EffectiveUntil, t)
}

func (p *PrivatePrice) EffectiveAt(t time.Time) bool {
	return p.IsActive && EffectiveAt(p.EffectiveFrom, p.EffectiveUntil, t)
}

// PriceType tags where a resolved price came from.
type PriceType string

const (
	PriceDefault PriceType = "default"
	PricePrivate PriceType = "private"
)
