package redis

import "fmt"

// FloorQuoteKey 缓存某买家对某商品的实时最低出价。
func FloorQuoteKey(productID, buyerID uint) string {
	return fmt.Sprintf("negotiation:floor:%d:%d", productID, buyerID)
}

// RateLimitUserKey 出价接口按账号限流的键名。
func RateLimitUserKey(userID uint) string {
	return fmt.Sprintf("rate_limit:negotiation:user:%d", userID)
}

// RateLimitIPKey 账号解析失败时按 IP 降级限流的键名。
func RateLimitIPKey(ip string) string {
	return fmt.Sprintf("rate_limit:negotiation:ip:%s", ip)
}
