// internal/models/resource.go
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Resource is a catalog entry. Kind selects which of Commercial or
// Operational is populated; the other is always nil.
type Resource struct {
	BaseModel
	Name            string          `json:"name" gorm:"size:255;not null"`
	Description     string          `json:"description" gorm:"type:text"`
	ImageURL        string          `json:"image_url" gorm:"size:1024"`
	Kind            ResourceKind    `json:"kind" gorm:"type:varchar(20);not null;index"`
	Category        string          `json:"category" gorm:"size:100;index"`
	AcquiredOn      *time.Time      `json:"acquired_on" gorm:"type:date"`
	AcquisitionCost decimal.Decimal `json:"acquisition_cost" gorm:"type:decimal(10,2);not null;default:0"`
	Notes           string          `json:"notes" gorm:"type:text"`
	AvailableSizes  string          `json:"available_sizes" gorm:"size:255"`

	// Relationships
	Commercial  *CommercialItem   `json:"commercial,omitempty" gorm:"foreignKey:ResourceID"`
	Operational *OperationalAsset `json:"operational,omitempty" gorm:"foreignKey:ResourceID"`
	Images      []ResourceImage   `json:"images" gorm:"foreignKey:ResourceID"`
}

type CommercialItem struct {
	ResourceID uint            `json:"-" gorm:"primaryKey;autoIncrement:false"`
	SalePrice  decimal.Decimal `json:"sale_price" gorm:"type:decimal(10,2);not null"`
	Stock      int             `json:"stock" gorm:"not null;default:0;check:chk_commercial_items_stock,stock >= 0"`
	SKU        *string         `json:"sku" gorm:"size:100;uniqueIndex"`
}

type OperationalAsset struct {
	ResourceID        uint        `json:"-" gorm:"primaryKey;autoIncrement:false"`
	AssetCode         string      `json:"asset_code" gorm:"size:100;uniqueIndex;not null"`
	Status            AssetStatus `json:"status" gorm:"type:varchar(20);not null;default:'AVAILABLE'"`
	Location          string      `json:"location" gorm:"size:255"`
	ResponsibleUserID *uint       `json:"responsible_user_id" gorm:"index"`
	ResponsibleName   string      `json:"responsible_name,omitempty" gorm:"-"`
}

type ResourceImage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	ResourceID uint      `json:"resource_id" gorm:"index;not null"`
	ImageURL   string    `json:"image_url" gorm:"size:1024;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r *Resource) IsCommercial() bool {
	return r.Kind == ResourceKindCommercial
}

// Sizes returns the offered size variants, empty when the resource has none.
func (r *Resource) Sizes() []string {
	var sizes []string
	for _, s := range strings.Split(r.AvailableSizes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

func (r *Resource) OffersSize(size string) bool {
	sizes := r.Sizes()
	if len(sizes) == 0 {
		return true
	}
	for _, s := range sizes {
		if strings.EqualFold(s, size) {
			return true
		}
	}
	return false
}

// JoinSizes normalizes a size list into the stored representation.
func JoinSizes(sizes []string) string {
	var clean []string
	for _, s := range sizes {
		if s = strings.TrimSpace(s); s != "" {
			clean = append(clean, s)
		}
	}
	return strings.Join(clean, ",")
}
