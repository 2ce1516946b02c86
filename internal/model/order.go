package model

import (
	"time"

	"gorm.io/gorm"
)

// OrderStatus 订单状态。
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Order 成交订单。议价资格检查只统计 delivered 订单数量。
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrderNo   string      `gorm:"size:64;uniqueIndex;not null" json:"order_no"`
	BuyerID   uint        `gorm:"not null;index" json:"buyer_id"`
	ProductID uint        `gorm:"not null;index" json:"product_id"`
	Amount    int64       `gorm:"not null" json:"amount"` // 总金额，单位分
	Status    OrderStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
}

func (Order) TableName() string { return "orders" }
