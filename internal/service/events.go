package service

import (
	"sync"
	"time"

	"github.com/jaydheshiv/uyir-sub000/internal/model"
	"github.com/jaydheshiv/uyir-sub000/pkg/logger"
)

// EventBus 按消息ID分发生成进度/打字帧/播放地址事件。
// SSE handler订阅，service侧发布；慢消费者丢帧不阻塞发布方。
type EventBus struct {
	mu   sync.Mutex
	subs map[string]map[chan model.ChatEvent]struct{}
}

func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[string]map[chan model.ChatEvent]struct{}),
	}
}

// Subscribe 订阅一条消息的事件流，返回通道和退订函数
func (b *EventBus) Subscribe(messageID string) (<-chan model.ChatEvent, func()) {
	ch := make(chan model.ChatEvent, 64)

	b.mu.Lock()
	if b.subs[messageID] == nil {
		b.subs[messageID] = make(map[chan model.ChatEvent]struct{})
	}
	b.subs[messageID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[messageID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, messageID)
			}
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

// Publish 发布事件，自动补时间戳
func (b *EventBus) Publish(event model.ChatEvent) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[event.MessageID] {
		select {
		case ch <- event:
		default:
			// 订阅方消费太慢，丢帧保发布方
			logger.Debugf("event dropped for slow subscriber, message=%s type=%s",
				event.MessageID, event.Type)
		}
	}
}
