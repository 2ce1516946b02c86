package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// GetFloorQuote 查询缓存的最低出价。found=false 表示缓存未命中。
func GetFloorQuote(ctx context.Context, rdb *rd.Client, productID, buyerID uint) (int64, bool, error) {
	key := FloorQuoteKey(productID, buyerID)
	val, err := rdb.Get(ctx, key).Int64()
	if err != nil {
		if err == rd.Nil {
			return 0, false, nil
		}
		return 0, false, err
	}
	return val, true, nil
}

// PutFloorQuote 写入最低出价缓存并设置短 TTL。
// 积分、订单、还款记录都会变动，TTL 必须保持较短以免报价失真。
func PutFloorQuote(ctx context.Context, rdb *rd.Client, productID, buyerID uint, minAllowed int64, ttl time.Duration) error {
	key := FloorQuoteKey(productID, buyerID)
	return rdb.Set(ctx, key, minAllowed, ttl).Err()
}
