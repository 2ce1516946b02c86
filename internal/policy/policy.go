// Package policy 计算单次出价的最低可接受金额。
// 全部是对已取到数据的同步纯算术，不做任何 I/O。
package policy

import "math"

// DefaultMinOfferRatio 商品未设置 MinOfferRatio 时的平台默认值。
const DefaultMinOfferRatio = 0.9

// RiskMinRatio 近期还款失败买家的风险下限，优先于积分折扣。
const RiskMinRatio = 0.95

// Eligibility 单次出价时的买家资格快照，临时计算、不落库。
type Eligibility struct {
	LoyaltyPoints         int64
	PastDeliveredOrders   int64
	PaymentVerified       bool
	RecentFailedRepayment bool
}

// MinRatio 解析最终生效的最低出价比例：
// 1. 起点为商品 MinOfferRatio（未设置按 0.9）
// 2. 积分档位只降不升（取与当前值的较小者）
// 3. 还款风险惩罚只升不降（取与当前值的较大者），可覆盖积分折扣
func MinRatio(minOfferRatio float64, e Eligibility) float64 {
	ratio := minOfferRatio
	if ratio <= 0 {
		ratio = DefaultMinOfferRatio
	}

	// 积分档位互斥，只有命中的那一档生效。
	switch {
	case e.LoyaltyPoints >= 2500:
		ratio = math.Min(ratio, 0.5)
	case e.LoyaltyPoints >= 1000:
		ratio = math.Min(ratio, 0.6)
	case e.LoyaltyPoints >= 500:
		ratio = math.Min(ratio, 0.7)
	case e.LoyaltyPoints >= 100:
		ratio = math.Min(ratio, 0.8)
	}

	if e.RecentFailedRepayment {
		ratio = math.Max(ratio, RiskMinRatio)
	}
	return ratio
}

// MinAllowed 返回买家最低可出价金额（单位分）。
// 比例下限与绝对折扣上限取较严（较高）者，两条规则互相兜底。
func MinAllowed(basePrice int64, minOfferRatio float64, e Eligibility, maxDiscountAbsolute int64) int64 {
	ratio := MinRatio(minOfferRatio, e)

	// math.Round 对正数即四舍五入，与金额恒为正的前提一致。
	floorByRatio := int64(math.Round(float64(basePrice) * ratio))

	floorByAbsolute := basePrice - maxDiscountAbsolute
	if floorByAbsolute < 0 {
		floorByAbsolute = 0
	}

	if floorByRatio > floorByAbsolute {
		return floorByRatio
	}
	return floorByAbsolute
}
