package router

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"snafleshub/internal/config"
	"snafleshub/internal/middleware"
	"snafleshub/internal/model"
	"snafleshub/internal/negotiation"
	"snafleshub/internal/realtime"
	rediskey "snafleshub/pkg/redis"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Setup 注册全部 HTTP 路由。
func Setup(r *gin.Engine, db *gorm.DB, rdb *rd.Client, svc *negotiation.Service, reg *realtime.Registry, cfg config.AppConfig) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "pong"})
	})

	// Products
	r.GET("/api/products", listProducts(db))
	r.POST("/api/products", createProduct(db))

	// Buyers
	r.POST("/api/buyers", createBuyer(db))
	r.GET("/api/buyers/:id", getBuyer(db))

	// Negotiations
	r.GET("/api/negotiations/floor/:product_id", floorQuote(db, rdb, svc, cfg.FloorCacheTTL))
	r.POST("/api/negotiations",
		middleware.RedisRateLimit(rdb, cfg.OfferRateLimit, cfg.OfferRateWindow),
		submitOffer(db, svc))
	r.GET("/api/negotiations", listNegotiations(db, svc))
	r.GET("/api/negotiations/events", negotiationEvents(db, reg))
	r.GET("/api/negotiations/:id", getNegotiation(db, svc))
	r.PUT("/api/negotiations/:id/status", transitionNegotiation(db, svc))

	// Chat
	r.POST("/api/chat/messages", sendText(db, svc))

	// Admin
	r.GET("/api/admin/negotiations", adminListNegotiations(db, svc, false))
	r.GET("/api/admin/negotiations/offers", adminListNegotiations(db, svc, true))
}

// currentActor 从 X-User-ID 头解析操作者并加载账号档案。
// 解析失败时直接写 401 并返回 ok=false。
func currentActor(c *gin.Context, db *gorm.DB) (negotiation.Actor, bool) {
	raw := c.GetHeader("X-User-ID")
	id, err := strconv.ParseUint(raw, 10, 32)
	if raw == "" || err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "缺少或无效的 X-User-ID"})
		return negotiation.Actor{}, false
	}

	var buyer model.Buyer
	if err := db.WithContext(c.Request.Context()).First(&buyer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "msg": "账号不存在"})
			return negotiation.Actor{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "服务器内部错误"})
		return negotiation.Actor{}, false
	}
	return negotiation.Actor{ID: buyer.ID, Role: buyer.Role}, true
}

// writeServiceError 将业务错误映射到 HTTP 状态码。
// 未识别的错误记完整日志后对外只返回通用提示。
func writeServiceError(c *gin.Context, err error) {
	var forbidden *negotiation.ForbiddenError
	var validation *negotiation.ValidationError

	switch {
	case errors.Is(err, negotiation.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "资源不存在"})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": forbidden.Reason})
	case errors.As(err, &validation):
		resp := gin.H{"code": 400, "msg": validation.Reason}
		if validation.MinAllowed > 0 {
			resp["data"] = gin.H{"min_allowed": validation.MinAllowed}
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, negotiation.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "该出价不在待处理状态"})
	default:
		log.Printf("negotiation handler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": "服务器内部错误"})
	}
}

// listProducts 查询商品列表。
func listProducts(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []model.Product
		if err := db.WithContext(c.Request.Context()).Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": list})
	}
}

// createProduct 上架商品（卖家或管理员）。
func createProduct(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}
		if actor.Role != model.RoleVendor && actor.Role != model.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "仅卖家或管理员可上架商品"})
			return
		}

		var req struct {
			Name          string  `json:"name" binding:"required"`
			Price         int64   `json:"price" binding:"required,min=1"`
			Negotiable    *bool   `json:"negotiable"`
			MinOfferRatio float64 `json:"min_offer_ratio" binding:"omitempty,gt=0,lte=1"`
			VendorID      uint    `json:"vendor_id"` // 管理员代卖家上架时指定
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		vendorID := actor.ID
		if actor.Role == model.RoleAdmin && req.VendorID > 0 {
			vendorID = req.VendorID
		}
		negotiable := true
		if req.Negotiable != nil {
			negotiable = *req.Negotiable
		}

		p := &model.Product{
			Name:          req.Name,
			VendorID:      vendorID,
			Price:         req.Price,
			Negotiable:    negotiable,
			MinOfferRatio: req.MinOfferRatio,
		}
		if err := db.WithContext(c.Request.Context()).Create(p).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": p})
	}
}

// createBuyer 录入账号档案（仅管理员，用于开通买家/卖家）。
func createBuyer(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}
		if actor.Role != model.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "仅管理员可创建账号"})
			return
		}

		var req struct {
			Name            string     `json:"name" binding:"required"`
			Role            model.Role `json:"role" binding:"omitempty,oneof=customer vendor admin"`
			LoyaltyPoints   int64      `json:"loyalty_points" binding:"omitempty,min=0"`
			PaymentVerified bool       `json:"payment_verified"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}
		if req.Role == "" {
			req.Role = model.RoleCustomer
		}

		b := &model.Buyer{
			Name:            req.Name,
			Role:            req.Role,
			LoyaltyPoints:   req.LoyaltyPoints,
			PaymentVerified: req.PaymentVerified,
		}
		if err := db.WithContext(c.Request.Context()).Create(b).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": b})
	}
}

// getBuyer 查询账号档案（本人或管理员）。
func getBuyer(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "账号ID无效"})
			return
		}
		if actor.Role != model.RoleAdmin && actor.ID != uint(id) {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "无权查看该账号"})
			return
		}

		var b model.Buyer
		if err := db.WithContext(c.Request.Context()).First(&b, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"code": 404, "msg": "账号不存在"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"code": 500, "msg": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": b})
	}
}

// floorQuote 查询当前买家对某商品的最低可出价，带短 TTL 缓存。
// 积分/订单/还款都会变动，缓存只为挡住报价页的高频刷新。
func floorQuote(db *gorm.DB, rdb *rd.Client, svc *negotiation.Service, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}
		productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "商品ID无效"})
			return
		}

		ctx := c.Request.Context()
		if cached, found, err := rediskey.GetFloorQuote(ctx, rdb, uint(productID), actor.ID); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"min_allowed": cached, "cached": true}})
			return
		}

		minAllowed, err := svc.FloorQuote(ctx, actor.ID, uint(productID))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		// 缓存写失败不影响响应。
		_ = rediskey.PutFloorQuote(ctx, rdb, uint(productID), actor.ID, minAllowed, ttl)
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{"min_allowed": minAllowed, "cached": false}})
	}
}

// submitOffer 买家提交出价。通过准入检查后创建 pending 议价记录。
func submitOffer(db *gorm.DB, svc *negotiation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}

		var req struct {
			ProductID     uint   `json:"product_id" binding:"required,min=1"`
			ProposedPrice int64  `json:"proposed_price" binding:"required,min=1"`
			Message       string `json:"message" binding:"omitempty,max=512"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		neg, err := svc.SubmitOffer(c.Request.Context(), actor.ID, req.ProductID, req.ProposedPrice, req.Message)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": 0, "data": neg})
	}
}

// sendText 发送普通聊天消息。
func sendText(db *gorm.DB, svc *negotiation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}

		var req struct {
			ProductID uint   `json:"product_id" binding:"required,min=1"`
			Message   string `json:"message" binding:"required,max=512"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		neg, err := svc.SendText(c.Request.Context(), actor.ID, req.ProductID, req.Message)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"code": 0, "data": neg})
	}
}

// listNegotiations 按操作者角色查询议价目录。
func listNegotiations(db *gorm.DB, svc *negotiation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}

		f, ok := parseListFilters(c)
		if !ok {
			return
		}
		page, err := svc.List(c.Request.Context(), actor, f)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": page})
	}
}

// getNegotiation 单条读取（买卖双方或管理员）。
func getNegotiation(db *gorm.DB, svc *negotiation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "议价ID无效"})
			return
		}

		neg, err := svc.Get(c.Request.Context(), actor, uint(id))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": neg})
	}
}

// transitionNegotiation 接受/拒绝出价（卖家或管理员）。
func transitionNegotiation(db *gorm.DB, svc *negotiation.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "议价ID无效"})
			return
		}

		var req struct {
			Status string `json:"status" binding:"required,oneof=accepted rejected"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": err.Error()})
			return
		}

		action := negotiation.ActionAccept
		if req.Status == "rejected" {
			action = negotiation.ActionReject
		}

		neg, err := svc.Transition(c.Request.Context(), uint(id), actor, action)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": neg})
	}
}

// adminListNegotiations 管理端全量目录；offersOnly=true 为审核视图。
func adminListNegotiations(db *gorm.DB, svc *negotiation.Service, offersOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}
		if actor.Role != model.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"code": 403, "msg": "仅管理员可访问"})
			return
		}

		f, ok := parseListFilters(c)
		if !ok {
			return
		}
		page, err := svc.AdminList(c.Request.Context(), negotiation.AdminFilters{
			Status:     f.Status,
			Page:       f.Page,
			Limit:      f.Limit,
			OffersOnly: offersOnly,
		})
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": page})
	}
}

// negotiationEvents 通过 SSE 推送实时议价事件。
// 通道是尽力而为的：断线丢消息，客户端以查询接口的结果为准。
func negotiationEvents(db *gorm.DB, reg *realtime.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := currentActor(c, db)
		if !ok {
			return
		}

		ch, cancel := reg.Subscribe(actor.ID)
		defer cancel()

		c.Stream(func(w io.Writer) bool {
			select {
			case evt, open := <-ch:
				if !open {
					return false
				}
				c.SSEvent("negotiation", evt)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

// parseListFilters 解析分页与状态筛选参数；非法数字直接 400。
func parseListFilters(c *gin.Context) (negotiation.ListFilters, bool) {
	f := negotiation.ListFilters{Status: c.Query("status")}

	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "page 参数无效"})
			return negotiation.ListFilters{}, false
		}
		f.Page = page
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "msg": "limit 参数无效"})
			return negotiation.ListFilters{}, false
		}
		f.Limit = limit
	}
	return f, true
}
