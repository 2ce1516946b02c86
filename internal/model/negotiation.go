package model

import (
	"time"

	"gorm.io/gorm"
)

// MessageType 聊天消息类型：普通文本或出价。
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageOffer MessageType = "offer"
)

// NegotiationStatus 描述出价状态机。
// 文本消息恒为 none；出价创建即 pending，accepted/rejected 均为终态。
type NegotiationStatus string

const (
	StatusNone     NegotiationStatus = "none"
	StatusPending  NegotiationStatus = "pending"
	StatusAccepted NegotiationStatus = "accepted"
	StatusRejected NegotiationStatus = "rejected"
)

// Negotiation 买卖双方围绕单个商品的一条消息记录。
// SellerID 在创建时从商品的 VendorID 快照，之后商品换主也不回填。
type Negotiation struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	ProductID uint `gorm:"not null;index" json:"product_id"`
	BuyerID   uint `gorm:"not null;index" json:"buyer_id"`
	SellerID  uint `gorm:"not null;index" json:"seller_id"`
	SenderID  uint `gorm:"not null" json:"sender_id"`

	Type MessageType `gorm:"size:8;not null" json:"type"`
	// Amount 仅在 Type=offer 时有效且必须 > 0，单位分。
	Amount  int64             `gorm:"not null;default:0" json:"amount"`
	Status  NegotiationStatus `gorm:"size:16;not null;default:none;index" json:"status"`
	Message string            `gorm:"size:512" json:"message"`
}

func (Negotiation) TableName() string { return "negotiations" }

// IsTerminal 报告状态是否已终结（不允许再迁移）。
func (s NegotiationStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}
