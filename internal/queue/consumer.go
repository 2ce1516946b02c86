package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/segmentio/kafka-go"
)

// EventSink 接收投递给单个用户的事件，由实时推送层实现。
// 投递是尽力而为的：掉线或消费慢的订阅者允许丢消息。
type EventSink interface {
	Publish(userID uint, evt NegotiationEvent)
}

// Consumer 消费 Kafka 议价事件并推给买卖双方的实时订阅。
type Consumer struct {
	r    *kafka.Reader
	sink EventSink
}

func NewConsumer(brokers []string, topic, groupID string, sink EventSink) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		sink: sink,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancel / 连接断开等
		}

		var evt NegotiationEvent
		if err := json.Unmarshal(m.Value, &evt); err != nil {
			log.Printf("consumer unmarshal: %v", err)
			continue
		}
		if err := evt.Validate(); err != nil {
			log.Printf("consumer drop invalid event: %v", err)
			continue
		}

		// 买卖双方各推一份；文本消息也走同一条通道。
		c.sink.Publish(evt.BuyerID, evt)
		c.sink.Publish(evt.SellerID, evt)
	}
}
