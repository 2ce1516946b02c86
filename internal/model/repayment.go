package model

import (
	"time"

	"gorm.io/gorm"
)

// RepaymentStatus 还款记录状态。
type RepaymentStatus string

const (
	RepaymentOK     RepaymentStatus = "ok"
	RepaymentFailed RepaymentStatus = "failed"
)

// Repayment 买家还款记录。近 6 个月内存在 failed 记录的买家
// 在议价时会被施加 0.95 的风险下限。
type Repayment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	BuyerID uint            `gorm:"not null;index" json:"buyer_id"`
	Amount  int64           `gorm:"not null" json:"amount"` // 单位：分
	Status  RepaymentStatus `gorm:"size:16;not null;index" json:"status"`
}

func (Repayment) TableName() string { return "repayments" }
