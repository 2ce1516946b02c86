package redis

import (
	"context"

	rd "github.com/redis/go-redis/v9"
)

// Outbox 议价事件出口：API 写入 Redis Stream，Relay 异步转发 Kafka。
// 写入失败只影响通知，不影响已落库的议价记录。
type Outbox struct {
	rdb    *rd.Client
	stream string
}

func NewOutbox(rdb *rd.Client, stream string) *Outbox {
	return &Outbox{rdb: rdb, stream: stream}
}

// Publish 将事件字段追加到出口流。
func (o *Outbox) Publish(ctx context.Context, fields map[string]any) error {
	return o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		Values: fields,
	}).Err()
}
