// Package fanout 提供主题之上的薄转发层：
//
//   - Broadcaster 把一个源主题复制转发到多个下游主题（纯转发循环，
//     无新语义 — 背压、关闭、取消全部继承自两端主题）
//   - Sink 把一个读者接到用户 handler，在有界 goroutine 池上并发执行
//
// 两者都不引入缓冲：转发速度受限于最慢的下游 — 这正是主题背压
// 语义的组合结果。
package fanout

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/uniyakcom/chord/core"
	"github.com/uniyakcom/chord/topic"
)

// BroadcastOption Broadcaster 构造选项
type BroadcastOption func(*broadcastConfig)

type broadcastConfig struct {
	closeDownstream bool
}

// WithCloseDownstream 源主题关闭且转发完成后，连带关闭下游主题
func WithCloseDownstream() BroadcastOption {
	return func(c *broadcastConfig) { c.closeDownstream = true }
}

// Broadcaster 单源多下游转发器。
// 每个下游拥有源主题上的独立读者，消费节奏互不影响（多播语义），
// 各自的转发循环只做 Read → Write。
type Broadcaster[T any] struct {
	src *topic.Topic[T]
	dst []*topic.Topic[T]
	cfg broadcastConfig
}

// NewBroadcaster 创建转发器，尚未订阅源主题 — 订阅发生在 Run 起点，
// 下游只看到 Run 之后写入源的条目。
func NewBroadcaster[T any](src *topic.Topic[T], dst []*topic.Topic[T], opts ...BroadcastOption) *Broadcaster[T] {
	b := &Broadcaster[T]{src: src, dst: dst}
	for _, opt := range opts {
		opt(&b.cfg)
	}
	return b
}

// Run 启动全部转发循环并阻塞，直到源主题关闭且各下游转发完毕（返回 nil）、
// ctx 取消，或任一下游写入失败（其余循环随 errgroup 联动取消）。
func (b *Broadcaster[T]) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, d := range b.dst {
		r, err := b.src.Subscribe()
		if err != nil {
			return err
		}
		g.Go(func() error {
			return b.forward(ctx, r, d)
		})
	}
	return g.Wait()
}

// forward 单下游转发循环。源读尽且关闭视为正常完成。
func (b *Broadcaster[T]) forward(ctx context.Context, r *topic.Reader[T], dst *topic.Topic[T]) error {
	for {
		v, err := r.Read(ctx)
		if errors.Is(err, core.ErrClosed) {
			if b.cfg.closeDownstream {
				return dst.Close()
			}
			return nil
		}
		if err != nil {
			return err
		}
		if err := dst.Write(ctx, v); err != nil {
			return err
		}
	}
}
