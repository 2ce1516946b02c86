package queue

import "fmt"

// 事件类型：出价提交 / 出价被接受 / 出价被拒绝 / 普通聊天消息。
const (
	EventOfferSubmitted = "offer_submitted"
	EventOfferAccepted  = "offer_accepted"
	EventOfferRejected  = "offer_rejected"
	EventChatMessage    = "chat_message"
)

// NegotiationEvent 是写入 Kafka 的议价状态变更事件。
// 权威状态永远以 negotiations 表为准，事件只做尽力而为的通知。
type NegotiationEvent struct {
	EventID       string `json:"event_id"`
	Type          string `json:"type"`
	NegotiationID uint   `json:"negotiation_id"`
	ProductID     uint   `json:"product_id"`
	BuyerID       uint   `json:"buyer_id"`
	SellerID      uint   `json:"seller_id"`
	Amount        int64  `json:"amount"` // 分；文本消息为 0
	Status        string `json:"status"`
}

// Validate 做最小字段校验，防止消费者处理脏消息。
func (e NegotiationEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	switch e.Type {
	case EventOfferSubmitted, EventOfferAccepted, EventOfferRejected, EventChatMessage:
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.NegotiationID == 0 {
		return fmt.Errorf("negotiation_id is required")
	}
	if e.ProductID == 0 {
		return fmt.Errorf("product_id is required")
	}
	if e.BuyerID == 0 {
		return fmt.Errorf("buyer_id is required")
	}
	if e.SellerID == 0 {
		return fmt.Errorf("seller_id is required")
	}
	if e.Type != EventChatMessage && e.Amount <= 0 {
		return fmt.Errorf("amount must be > 0 for offer events")
	}
	return nil
}

// Fields 展开为 Redis Stream 的扁平字段。
func (e NegotiationEvent) Fields() map[string]any {
	return map[string]any{
		"event_id":       e.EventID,
		"type":           e.Type,
		"negotiation_id": uint64(e.NegotiationID),
		"product_id":     uint64(e.ProductID),
		"buyer_id":       uint64(e.BuyerID),
		"seller_id":      uint64(e.SellerID),
		"amount":         e.Amount,
		"status":         e.Status,
	}
}
