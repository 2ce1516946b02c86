package model

import (
	"time"

	"gorm.io/gorm"
)

// Product 在售商品：名称、归属卖家、标价、议价规则
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `gorm:"size:128;not null" json:"name"`
	VendorID uint   `gorm:"not null;index" json:"vendor_id"`
	Price    int64  `gorm:"not null" json:"price"` // 单位：分

	// Negotiable=false 表示一口价商品，任何出价直接拒绝。
	Negotiable bool `gorm:"not null;default:true" json:"negotiable"`
	// MinOfferRatio 为 0 表示卖家未设置，按平台默认 0.9 计算价格下限。
	MinOfferRatio float64 `gorm:"not null;default:0" json:"min_offer_ratio"`
}

func (Product) TableName() string { return "products" }
