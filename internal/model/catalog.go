package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductType string

const (
	ProductTypeProduct ProductType = "product"
	ProductTypeService ProductType = "service"
)

type RateType string

const (
	RateHourly  RateType = "hourly"
	RateDaily   RateType = "daily"
	RateFixed   RateType = "fixed"
	RatePerUnit RateType = "per_unit"
)

func (r RateType) Valid() bool {
	switch r {
	case RateHourly, RateDaily, RateFixed, RatePerUnit:
		return true
	}
	return false
}

// CategoryKind separates the product-category tree from the
// service-category tree. Both live in one table.
type CategoryKind string

const (
	CategoryProduct CategoryKind = "product"
	CategoryService CategoryKind = "service"
)

func (k CategoryKind) Valid() bool {
	return k == CategoryProduct || k == CategoryService
}

// Category is a node in a product or service classification tree.
type Category struct {
	ID           uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	Kind         CategoryKind `json:"kind" gorm:"type:varchar(16);not null;uniqueIndex:idx_category_kind_parent_name,priority:1"`
	ParentID     *uuid.UUID   `json:"parent_id,omitempty" gorm:"type:uuid;index;uniqueIndex:idx_category_kind_parent_name,priority:2"`
	Name         string       `json:"name" gorm:"type:varchar(100);not null;uniqueIndex:idx_category_kind_parent_name,priority:3"`
	Description  string       `json:"description,omitempty" gorm:"type:text"`
	DisplayOrder int          `json:"display_order" gorm:"not null"`
	IsActive     bool         `json:"is_active" gorm:"not null"`
	ImageURL     string       `json:"image_url,omitempty" gorm:"type:varchar(500)"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Product is a product or service listed by a selling tenant.
type Product struct {
	ID                uuid.UUID            `json:"id" gorm:"type:uuid;primaryKey"`
	SupplierID        uuid.UUID            `json:"supplier_id" gorm:"type:uuid;not null;uniqueIndex:idx_product_supplier_sku,priority:1"`
	SKU               string               `json:"sku" gorm:"type:varchar(100);not null;uniqueIndex:idx_product_supplier_sku,priority:2"`
	Name              string               `json:"name" gorm:"type:varchar(255);not null;index"`
	Description       string               `json:"description,omitempty" gorm:"type:text"`
	Type              ProductType          `json:"type" gorm:"type:varchar(16);not null;index"`
	CategoryID        *uuid.UUID           `json:"category_id,omitempty" gorm:"type:uuid;index"`
	ServiceCategoryID *uuid.UUID           `json:"service_category_id,omitempty" gorm:"type:uuid;index"`
	Unit              string               `json:"unit" gorm:"type:varchar(32);not null"`
	IsActive          bool                 `json:"is_active" gorm:"not null"`
	RatePerHour       decimal.NullDecimal  `json:"rate_per_hour" gorm:"type:numeric(12,2)"`
	RateType          RateType             `json:"rate_type,omitempty" gorm:"type:varchar(16)"`
	CreatedBy         uuid.UUID            `json:"created_by" gorm:"type:uuid"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
	DeletedAt         gorm.DeletedAt       `json:"-" gorm:"index"`

	Supplier *Tenant `json:"-" gorm:"foreignKey:SupplierID;constraint:OnDelete:RESTRICT"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
