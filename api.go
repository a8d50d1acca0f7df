// Package chord 统一API入口
package chord

import (
	"github.com/uniyakcom/chord/core"
	"github.com/uniyakcom/chord/fanout"
	"github.com/uniyakcom/chord/topic"
)

// Topic 导出 Topic 类型
type Topic[T any] = topic.Topic[T]

// Reader 导出 Reader 类型
type Reader[T any] = topic.Reader[T]

// Broadcaster 导出 Broadcaster 类型
type Broadcaster[T any] = fanout.Broadcaster[T]

// Sink 导出 Sink 类型
type Sink[T any] = fanout.Sink[T]

// Handler 导出 Handler 类型
type Handler[T any] = fanout.Handler[T]

// TopicStats 导出主题统计
type TopicStats = core.TopicStats

// SinkStats 导出分发统计
type SinkStats = core.SinkStats

// 错误哨兵导出 — errors.Is 判别
var (
	ErrInvalidCapacity = core.ErrInvalidCapacity
	ErrClosed          = core.ErrClosed
)

// ═══════════════════════════════════════════════════════════════════
// 第零层：New() 主题入口
// ═══════════════════════════════════════════════════════════════════

// New 创建有界多播主题（capacity 为条目数硬上界）
//
// 用法:
//
//	top, _ := chord.New[string](64)
//	r, _ := top.Subscribe()
//	top.Write(ctx, "hello")
//	v, _ := r.Read(ctx)
func New[T any](capacity int) (*Topic[T], error) {
	return topic.New[T](capacity)
}

// ═══════════════════════════════════════════════════════════════════
// 第一层：转发便捷层
// ═══════════════════════════════════════════════════════════════════

// NewBroadcaster 创建单源多下游转发器
// 用途: 流复制、多级主题级联
func NewBroadcaster[T any](src *Topic[T], dst []*Topic[T], opts ...fanout.BroadcastOption) *Broadcaster[T] {
	return fanout.NewBroadcaster(src, dst, opts...)
}

// WithCloseDownstream 转发完成后连带关闭下游
var WithCloseDownstream = fanout.WithCloseDownstream

// NewSink 创建有界并发处理器分发（workers <= 0 取 NumCPU）
// 用途: 消费侧并行处理；workers == 1 时保序
func NewSink[T any](r *Reader[T], h Handler[T], workers int) (*Sink[T], error) {
	return fanout.NewSink(r, h, workers)
}
