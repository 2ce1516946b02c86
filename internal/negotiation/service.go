// Package negotiation 实现出价准入、议价状态机与议价查询。
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"snafleshub/internal/model"
	"snafleshub/internal/policy"
	"snafleshub/internal/queue"
	rediskey "snafleshub/pkg/redis"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// failedRepaymentLookback 还款失败记录的回溯窗口。
const failedRepaymentLookback = 6 // 月

// Options 议价策略的平台级配置。
type Options struct {
	// MinOrdersRequired 买家发起出价所需的最少 delivered 订单数。
	MinOrdersRequired int64
	// MaxDiscountAbsolute 平台级绝对折扣上限，单位分。
	MaxDiscountAbsolute int64
}

// Actor 当前请求的操作者。
type Actor struct {
	ID   uint
	Role model.Role
}

// Action 状态机动作。
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// Service 显式构造并注入依赖；outbox 为 nil 时关闭事件通知（测试场景）。
type Service struct {
	db     *gorm.DB
	outbox *rediskey.Outbox
	opts   Options
}

func NewService(db *gorm.DB, outbox *rediskey.Outbox, opts Options) *Service {
	return &Service{db: db, outbox: outbox, opts: opts}
}

// eligibility 采集买家资格快照：积分、已送达订单数、支付验证、近期还款失败。
// 快照只读不落库，每次出价实时计算。
func (s *Service) eligibility(ctx context.Context, buyer *model.Buyer) (policy.Eligibility, error) {
	var delivered int64
	err := s.db.WithContext(ctx).Model(&model.Order{}).
		Where("buyer_id = ? AND status = ?", buyer.ID, model.OrderDelivered).
		Count(&delivered).Error
	if err != nil {
		return policy.Eligibility{}, err
	}

	since := time.Now().AddDate(0, -failedRepaymentLookback, 0)
	var failed int64
	err = s.db.WithContext(ctx).Model(&model.Repayment{}).
		Where("buyer_id = ? AND status = ? AND updated_at >= ?", buyer.ID, model.RepaymentFailed, since).
		Count(&failed).Error
	if err != nil {
		return policy.Eligibility{}, err
	}

	return policy.Eligibility{
		LoyaltyPoints:         buyer.LoyaltyPoints,
		PastDeliveredOrders:   delivered,
		PaymentVerified:       buyer.PaymentVerified,
		RecentFailedRepayment: failed > 0,
	}, nil
}

func (s *Service) getProduct(ctx context.Context, productID uint) (*model.Product, error) {
	var p model.Product
	if err := s.db.WithContext(ctx).First(&p, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) getBuyer(ctx context.Context, buyerID uint) (*model.Buyer, error) {
	var b model.Buyer
	if err := s.db.WithContext(ctx).First(&b, buyerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// FloorQuote 返回买家对某商品当前的最低可出价金额。
func (s *Service) FloorQuote(ctx context.Context, buyerID, productID uint) (int64, error) {
	prod, err := s.getProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	buyer, err := s.getBuyer(ctx, buyerID)
	if err != nil {
		return 0, err
	}
	elig, err := s.eligibility(ctx, buyer)
	if err != nil {
		return 0, err
	}
	return policy.MinAllowed(prod.Price, prod.MinOfferRatio, elig, s.opts.MaxDiscountAbsolute), nil
}

// SubmitOffer 出价准入：按顺序检查，首个失败即返回，落库前无任何副作用。
// 1. 商品存在
// 2. 商品可议价
// 3. 历史送达订单数达标
// 4. 支付方式已验证
// 5. 出价不低于策略下限
// 通过后写入一条 pending 出价记录；积分只读取、不扣减。
func (s *Service) SubmitOffer(ctx context.Context, buyerID, productID uint, amount int64, message string) (*model.Negotiation, error) {
	if amount <= 0 {
		return nil, &ValidationError{Reason: "出价金额必须大于 0"}
	}

	prod, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	buyer, err := s.getBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if buyer.ID == prod.VendorID {
		return nil, &ForbiddenError{Reason: "不能对自己的商品出价"}
	}
	if !prod.Negotiable {
		return nil, &ForbiddenError{Reason: "该商品为一口价，不支持议价"}
	}

	elig, err := s.eligibility(ctx, buyer)
	if err != nil {
		return nil, err
	}
	if elig.PastDeliveredOrders < s.opts.MinOrdersRequired {
		return nil, &ForbiddenError{Reason: "历史成交订单数不足，暂不支持议价"}
	}
	if !elig.PaymentVerified {
		return nil, &ForbiddenError{Reason: "支付方式未验证，暂不支持议价"}
	}

	minAllowed := policy.MinAllowed(prod.Price, prod.MinOfferRatio, elig, s.opts.MaxDiscountAbsolute)
	if amount < minAllowed {
		return nil, &ValidationError{Reason: "出价过低", MinAllowed: minAllowed}
	}

	if message == "" {
		message = fmt.Sprintf("买家出价 %.2f 元", float64(amount)/100)
	}

	// SellerID 在此刻从商品归属快照；后续商品换主不回填历史议价。
	neg := &model.Negotiation{
		ProductID: prod.ID,
		BuyerID:   buyer.ID,
		SellerID:  prod.VendorID,
		SenderID:  buyer.ID,
		Type:      model.MessageOffer,
		Amount:    amount,
		Status:    model.StatusPending,
		Message:   message,
	}
	if err := s.db.WithContext(ctx).Create(neg).Error; err != nil {
		return nil, err
	}

	s.emit(ctx, queue.EventOfferSubmitted, neg)
	return neg, nil
}

// SendText 发送普通聊天消息：无策略检查，仅校验商品存在与买卖双方不同。
func (s *Service) SendText(ctx context.Context, senderID, productID uint, text string) (*model.Negotiation, error) {
	if text == "" {
		return nil, &ValidationError{Reason: "消息内容不能为空"}
	}

	prod, err := s.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	sender, err := s.getBuyer(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if sender.ID == prod.VendorID {
		return nil, &ForbiddenError{Reason: "不能给自己的商品留言"}
	}

	neg := &model.Negotiation{
		ProductID: prod.ID,
		BuyerID:   sender.ID,
		SellerID:  prod.VendorID,
		SenderID:  sender.ID,
		Type:      model.MessageText,
		Status:    model.StatusNone,
		Message:   text,
	}
	if err := s.db.WithContext(ctx).Create(neg).Error; err != nil {
		return nil, err
	}

	s.emit(ctx, queue.EventChatMessage, neg)
	return neg, nil
}

// Transition 执行 pending → accepted/rejected 状态迁移。
// 授权：管理员或该议价的卖家；买家永远无权操作。
// 写入用条件更新实现 CAS：仅当存量状态仍为 pending 时生效，
// 并发双写时只有一方成功，另一方得到 ErrInvalidState。
func (s *Service) Transition(ctx context.Context, negotiationID uint, actor Actor, action Action) (*model.Negotiation, error) {
	var target model.NegotiationStatus
	switch action {
	case ActionAccept:
		target = model.StatusAccepted
	case ActionReject:
		target = model.StatusRejected
	default:
		return nil, &ValidationError{Reason: "无效的操作，仅支持 accept / reject"}
	}

	var neg model.Negotiation
	if err := s.db.WithContext(ctx).First(&neg, negotiationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if actor.Role != model.RoleAdmin && actor.ID != neg.SellerID {
		return nil, &ForbiddenError{Reason: "无权处理该出价"}
	}
	if neg.Type != model.MessageOffer || neg.Status != model.StatusPending {
		return nil, ErrInvalidState
	}

	res := s.db.WithContext(ctx).Model(&model.Negotiation{}).
		Where("id = ? AND type = ? AND status = ?", neg.ID, model.MessageOffer, model.StatusPending).
		Update("status", target)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 读到 pending 之后被并发请求抢先终结。
		return nil, ErrInvalidState
	}

	neg.Status = target
	eventType := queue.EventOfferAccepted
	if target == model.StatusRejected {
		eventType = queue.EventOfferRejected
	}
	s.emit(ctx, eventType, &neg)
	return &neg, nil
}

// emit 尽力而为地写事件出口；失败只记日志，不影响已落库的议价。
func (s *Service) emit(ctx context.Context, eventType string, neg *model.Negotiation) {
	if s.outbox == nil {
		return
	}
	evt := queue.NegotiationEvent{
		EventID:       uuid.New().String(),
		Type:          eventType,
		NegotiationID: neg.ID,
		ProductID:     neg.ProductID,
		BuyerID:       neg.BuyerID,
		SellerID:      neg.SellerID,
		Amount:        neg.Amount,
		Status:        string(neg.Status),
	}
	if err := s.outbox.Publish(ctx, evt.Fields()); err != nil {
		log.Printf("negotiation emit %s id=%d: %v", eventType, neg.ID, err)
	}
}
