package negotiation

import (
	"context"
	"errors"
	"testing"

	"snafleshub/internal/model"
)

// seedDirectory 构造目录测试数据：
// vendor 名下 1 个商品；buyerA 两条出价 + 一条文本，buyerB 一条出价。
func seedDirectory(t *testing.T) (*Service, Actor, Actor, Actor, Actor) {
	t.Helper()
	svc, db := newTestService(t, Options{MaxDiscountAbsolute: 100000})
	vendor := seedBuyer(t, db, model.RoleVendor, 0, true)
	buyerA := seedBuyer(t, db, model.RoleCustomer, 0, true)
	buyerB := seedBuyer(t, db, model.RoleCustomer, 0, true)
	admin := seedBuyer(t, db, model.RoleAdmin, 0, true)
	prod := seedProduct(t, db, vendor.ID, 3000, true, 0)
	ctx := context.Background()

	submitPendingOffer(t, svc, buyerA.ID, prod.ID, 2800)
	submitPendingOffer(t, svc, buyerA.ID, prod.ID, 2900)
	if _, err := svc.SendText(ctx, buyerA.ID, prod.ID, "在吗"); err != nil {
		t.Fatalf("send text: %v", err)
	}
	submitPendingOffer(t, svc, buyerB.ID, prod.ID, 3000)

	return svc,
		Actor{ID: vendor.ID, Role: model.RoleVendor},
		Actor{ID: buyerA.ID, Role: model.RoleCustomer},
		Actor{ID: buyerB.ID, Role: model.RoleCustomer},
		Actor{ID: admin.ID, Role: model.RoleAdmin}
}

func TestList_RoleFilters(t *testing.T) {
	svc, vendor, buyerA, buyerB, _ := seedDirectory(t)
	ctx := context.Background()

	page, err := svc.List(ctx, vendor, ListFilters{})
	if err != nil {
		t.Fatalf("vendor list: %v", err)
	}
	if page.Pagination.TotalCount != 4 {
		t.Errorf("vendor sees %d, want 4 (all rows on own product)", page.Pagination.TotalCount)
	}

	page, err = svc.List(ctx, buyerA, ListFilters{})
	if err != nil {
		t.Fatalf("buyerA list: %v", err)
	}
	if page.Pagination.TotalCount != 3 {
		t.Errorf("buyerA sees %d, want 3 (own rows only)", page.Pagination.TotalCount)
	}

	page, err = svc.List(ctx, buyerB, ListFilters{})
	if err != nil {
		t.Fatalf("buyerB list: %v", err)
	}
	if page.Pagination.TotalCount != 1 {
		t.Errorf("buyerB sees %d, want 1", page.Pagination.TotalCount)
	}
}

func TestList_StatusFilter(t *testing.T) {
	svc, _, buyerA, _, _ := seedDirectory(t)
	ctx := context.Background()

	page, err := svc.List(ctx, buyerA, ListFilters{Status: "pending"})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if page.Pagination.TotalCount != 2 {
		t.Errorf("pending count = %d, want 2", page.Pagination.TotalCount)
	}

	// completed is a legal filter value that no state machine path produces.
	page, err = svc.List(ctx, buyerA, ListFilters{Status: "completed"})
	if err != nil {
		t.Fatalf("list completed: %v", err)
	}
	if page.Pagination.TotalCount != 0 {
		t.Errorf("completed count = %d, want 0", page.Pagination.TotalCount)
	}

	if _, err := svc.List(ctx, buyerA, ListFilters{Status: "bogus"}); err == nil {
		t.Fatal("expected validation error for unknown status filter")
	}
}

func TestList_PaginationAndOrder(t *testing.T) {
	svc, vendor, _, _, _ := seedDirectory(t)
	ctx := context.Background()

	page, err := svc.List(ctx, vendor, ListFilters{Limit: 3})
	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}
	p := page.Pagination
	if p.CurrentPage != 1 || p.TotalPages != 2 || p.TotalCount != 4 {
		t.Errorf("pagination = %+v, want page 1/2 of 4", p)
	}
	if !p.HasNext || p.HasPrev {
		t.Errorf("hasNext=%v hasPrev=%v, want true/false", p.HasNext, p.HasPrev)
	}
	if len(page.Negotiations) != 3 {
		t.Fatalf("page size = %d, want 3", len(page.Negotiations))
	}
	// 固定按创建时间倒序；同秒内以 id 倒序兜底。
	for i := 1; i < len(page.Negotiations); i++ {
		prev, cur := page.Negotiations[i-1], page.Negotiations[i]
		if cur.CreatedAt.After(prev.CreatedAt) {
			t.Errorf("rows not in descending creation order at %d", i)
		}
	}

	page, err = svc.List(ctx, vendor, ListFilters{Page: 2, Limit: 3})
	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}
	p = page.Pagination
	if len(page.Negotiations) != 1 || p.HasNext || !p.HasPrev {
		t.Errorf("page 2: len=%d hasNext=%v hasPrev=%v", len(page.Negotiations), p.HasNext, p.HasPrev)
	}
}

func TestList_LimitClamp(t *testing.T) {
	svc, vendor, _, _, _ := seedDirectory(t)

	// 用户侧 limit 超过 50 会被钳制，而不是报错。
	page, err := svc.List(context.Background(), vendor, ListFilters{Limit: 500})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.TotalPages != 1 {
		t.Errorf("totalPages = %d, want 1", page.Pagination.TotalPages)
	}
}

func TestAdminList(t *testing.T) {
	svc, _, _, _, _ := seedDirectory(t)
	ctx := context.Background()

	page, err := svc.AdminList(ctx, AdminFilters{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if page.Pagination.TotalCount != 4 {
		t.Errorf("admin sees %d, want 4 (full visibility)", page.Pagination.TotalCount)
	}

	page, err = svc.AdminList(ctx, AdminFilters{OffersOnly: true})
	if err != nil {
		t.Fatalf("admin offers view: %v", err)
	}
	if page.Pagination.TotalCount != 3 {
		t.Errorf("moderation view sees %d, want 3 offers", page.Pagination.TotalCount)
	}
	for _, n := range page.Negotiations {
		if n.Type != model.MessageOffer {
			t.Errorf("moderation view leaked type=%s", n.Type)
		}
	}
}

func TestGet_Authorization(t *testing.T) {
	svc, vendor, buyerA, buyerB, admin := seedDirectory(t)
	ctx := context.Background()

	page, err := svc.List(ctx, buyerA, ListFilters{Status: "pending", Limit: 1})
	if err != nil || len(page.Negotiations) == 0 {
		t.Fatalf("seed lookup failed: %v", err)
	}
	id := page.Negotiations[0].ID

	if _, err := svc.Get(ctx, buyerA, id); err != nil {
		t.Errorf("buyer party read: %v", err)
	}
	if _, err := svc.Get(ctx, vendor, id); err != nil {
		t.Errorf("seller party read: %v", err)
	}
	if _, err := svc.Get(ctx, admin, id); err != nil {
		t.Errorf("admin read: %v", err)
	}

	var forbidden *ForbiddenError
	if _, err := svc.Get(ctx, buyerB, id); !errors.As(err, &forbidden) {
		t.Errorf("expected ForbiddenError for third party, got %v", err)
	}

	if _, err := svc.Get(ctx, admin, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
