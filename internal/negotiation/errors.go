package negotiation

import "errors"

// ErrNotFound 目标实体不存在（商品、账号或议价记录）。
var ErrNotFound = errors.New("resource not found")

// ErrInvalidState 状态机前置条件不满足：出价不在 pending 状态。
var ErrInvalidState = errors.New("offer is not pending")

// ForbiddenError 授权或业务规则排除，Reason 面向调用方展示。
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

// ValidationError 入参不满足议价策略。
// MinAllowed 回传当前最低可接受出价，供客户端修正后重试。
type ValidationError struct {
	Reason     string
	MinAllowed int64
}

func (e *ValidationError) Error() string { return e.Reason }
