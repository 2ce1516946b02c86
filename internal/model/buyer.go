package model

import (
	"time"

	"gorm.io/gorm"
)

// Role 区分账号身份：买家 / 卖家 / 平台管理员。
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Buyer 账号档案。议价资格只读取这里的字段，不做任何扣减。
type Buyer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"size:128;not null" json:"name"`
	Role Role   `gorm:"size:16;not null;default:customer" json:"role"`

	// LoyaltyPoints 决定议价折扣档位；积分扣减由下单/结算流程负责。
	LoyaltyPoints   int64 `gorm:"not null;default:0" json:"loyalty_points"`
	PaymentVerified bool  `gorm:"not null;default:false" json:"payment_verified"`
}

func (Buyer) TableName() string { return "buyers" }
