// Package realtime 维护在线订阅者登记表，向买卖双方推送议价事件。
// 推送是尽力而为的通知通道；权威状态以 negotiations 表为准。
package realtime

import (
	"sync"

	"snafleshub/internal/queue"
)

// subscriberBuffer 每个订阅 channel 的缓冲大小，写满即丢弃。
const subscriberBuffer = 16

// Registry 以用户 ID 为键登记实时订阅。
// 显式构造、依赖注入，连接时 Subscribe、断开时调用返回的取消函数。
type Registry struct {
	mu     sync.RWMutex
	nextID int
	subs   map[uint]map[int]chan queue.NegotiationEvent
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[uint]map[int]chan queue.NegotiationEvent)}
}

// Subscribe 为用户注册一条推送通道，返回取消函数。
// 取消后 channel 会被关闭，同一用户可以有多个并存订阅（多端在线）。
func (r *Registry) Subscribe(userID uint) (<-chan queue.NegotiationEvent, func()) {
	ch := make(chan queue.NegotiationEvent, subscriberBuffer)

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	if r.subs[userID] == nil {
		r.subs[userID] = make(map[int]chan queue.NegotiationEvent)
	}
	r.subs[userID][id] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if chans, ok := r.subs[userID]; ok {
			if c, ok := chans[id]; ok {
				delete(chans, id)
				close(c)
			}
			if len(chans) == 0 {
				delete(r.subs, userID)
			}
		}
	}
	return ch, cancel
}

// Publish 向某用户的全部在线订阅非阻塞投递，缓冲满则丢弃。
func (r *Registry) Publish(userID uint, evt queue.NegotiationEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ch := range r.subs[userID] {
		select {
		case ch <- evt:
		default:
			// 消费慢的订阅者丢消息，不阻塞投递方。
		}
	}
}

// Subscribers 返回某用户当前在线订阅数，便于观测。
func (r *Registry) Subscribers(userID uint) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[userID])
}
