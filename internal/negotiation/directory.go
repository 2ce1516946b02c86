package negotiation

import (
	"context"
	"errors"

	"snafleshub/internal/model"

	"gorm.io/gorm"
)

// 分页边界：用户侧单页最多 50 条，管理侧 100 条。
const (
	DefaultPageSize  = 20
	MaxPageSize      = 50
	MaxAdminPageSize = 100
)

// ListFilters 目录查询的显式筛选条件，与角色隐式条件取 AND。
type ListFilters struct {
	// Status 可选，取值 pending / accepted / rejected / completed。
	Status string
	Page   int
	Limit  int
}

// AdminFilters 管理端查询条件；OffersOnly 为审核视图，只看出价。
type AdminFilters struct {
	Status     string
	Page       int
	Limit      int
	OffersOnly bool
}

// Pagination 分页元信息。
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalCount  int64 `json:"total_count"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// Page 一页议价记录。
type Page struct {
	Negotiations []model.Negotiation `json:"negotiations"`
	Pagination   Pagination          `json:"pagination"`
}

// validStatusFilter 校验显式状态筛选。
// completed 是历史遗留的合法取值：状态机产生不了它，筛选结果恒为空。
func validStatusFilter(status string) bool {
	switch status {
	case "", "pending", "accepted", "rejected", "completed":
		return true
	}
	return false
}

func clampPage(page, limit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// List 按调用方角色查询议价目录。
// 隐式过滤不可被调用方覆盖：vendor 只看自己卖出的，其余只看自己买入的。
// 排序固定为创建时间倒序。
func (s *Service) List(ctx context.Context, actor Actor, f ListFilters) (Page, error) {
	if !validStatusFilter(f.Status) {
		return Page{}, &ValidationError{Reason: "无效的状态筛选"}
	}
	page, limit := clampPage(f.Page, f.Limit, MaxPageSize)

	q := s.db.WithContext(ctx).Model(&model.Negotiation{})
	if actor.Role == model.RoleVendor {
		q = q.Where("seller_id = ?", actor.ID)
	} else {
		q = q.Where("buyer_id = ?", actor.ID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	return s.fetchPage(q, page, limit)
}

// AdminList 管理端全量可见，外加仅出价的审核视图。
func (s *Service) AdminList(ctx context.Context, f AdminFilters) (Page, error) {
	if !validStatusFilter(f.Status) {
		return Page{}, &ValidationError{Reason: "无效的状态筛选"}
	}
	page, limit := clampPage(f.Page, f.Limit, MaxAdminPageSize)

	q := s.db.WithContext(ctx).Model(&model.Negotiation{})
	if f.OffersOnly {
		q = q.Where("type = ?", model.MessageOffer)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	return s.fetchPage(q, page, limit)
}

func (s *Service) fetchPage(q *gorm.DB, page, limit int) (Page, error) {
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return Page{}, err
	}

	var items []model.Negotiation
	err := q.Order("created_at DESC, id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return Page{}, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Page{
		Negotiations: items,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalCount:  total,
			HasNext:     page < totalPages,
			HasPrev:     page > 1,
		},
	}, nil
}

// Get 单条读取：管理员或买卖双方之一可见。
func (s *Service) Get(ctx context.Context, actor Actor, negotiationID uint) (*model.Negotiation, error) {
	var neg model.Negotiation
	if err := s.db.WithContext(ctx).First(&neg, negotiationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if actor.Role != model.RoleAdmin && actor.ID != neg.BuyerID && actor.ID != neg.SellerID {
		return nil, &ForbiddenError{Reason: "无权查看该议价"}
	}
	return &neg, nil
}
