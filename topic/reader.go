package topic

import (
	"context"
	"iter"

	"github.com/uniyakcom/chord/core"
	"github.com/uniyakcom/chord/internal/support/onesig"
)

// Reader 主题读者。持有该订阅者私有的读取游标，对主题仅保留
// 非拥有型回引 — 读者不延长主题生命周期。
//
// 游标为读者独占，同一 Reader 不支持并发调用；不同 Reader 之间
// 完全独立，消费节奏互不影响。
type Reader[T any] struct {
	t      *Topic[T]
	cursor uint64         // 下一条未读条目的序列号
	wake   *onesig.Signal // 挂起等待时注册的唤醒信号，未挂起为 nil
}

// WaitForData 等待数据就绪。
// 游标落后于 tailSeq 时立即返回 true；主题关闭且无剩余数据返回 false；
// 否则注册唤醒信号挂起，被唤醒后复查谓词（唤醒只是提示）。
// 取消时注销唤醒注册后返回 ctx.Err()，不留死等待者。
func (r *Reader[T]) WaitForData(ctx context.Context) (bool, error) {
	tok, err := r.t.mu.Acquire(ctx)
	if err != nil {
		return false, err
	}
	for {
		if r.cursor < r.t.ring.TailSeq() {
			tok.Release()
			return true, nil
		}
		if r.t.closed {
			tok.Release()
			return false, nil
		}

		sig := onesig.New()
		r.wake = sig
		tok.Release()

		select {
		case <-sig.Done():
		case <-ctx.Done():
			t2 := r.t.mu.AcquireBlocking()
			if r.wake == sig {
				r.wake = nil
			}
			t2.Release()
			return false, ctx.Err()
		}

		tok, err = r.t.mu.Acquire(ctx)
		if err != nil {
			return false, err
		}
	}
}

// TryPeek 窥视下一条未读条目，不推进游标。无待读数据返回 false。
func (r *Reader[T]) TryPeek() (T, bool) {
	tok := r.t.mu.AcquireBlocking()
	defer tok.Release()
	var zero T
	if r.cursor >= r.t.ring.TailSeq() {
		return zero, false
	}
	return r.t.ring.At(r.cursor), true
}

// TryRead 读取下一条未读条目并推进游标，随后执行主题的头部推进策略。
// 推进自身游标本身不释放缓冲内存 — 只有当本读者是（或成为）最慢读者
// 时驱逐才发生。无待读数据返回 false。
func (r *Reader[T]) TryRead() (T, bool) {
	tok := r.t.mu.AcquireBlocking()
	defer tok.Release()
	var zero T
	if r.cursor >= r.t.ring.TailSeq() {
		return zero, false
	}
	v := r.t.ring.At(r.cursor)
	r.cursor++
	r.t.delivered++
	r.t.advanceHeadLocked()
	return v, true
}

// Read 阻塞读取下一条条目。
// WaitForData 后 TryRead，陈旧唤醒统一走谓词复查循环；
// 主题关闭且本读者数据耗尽返回 ErrClosed。
func (r *Reader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	for {
		ok, err := r.WaitForData(ctx)
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, core.ErrClosed
		}
		if v, got := r.TryRead(); got {
			return v, nil
		}
	}
}

// Pending 当前待读条目数（tailSeq - cursor）
func (r *Reader[T]) Pending() int {
	tok := r.t.mu.AcquireBlocking()
	defer tok.Release()
	return int(r.t.ring.TailSeq() - r.cursor)
}

// All 返回持续消费序列：产出当前可读条目，耗尽后挂起等待更多，
// 主题关闭且数据读尽时序列结束（关闭后有限，否则无界）；
// ctx 取消同样终止序列。序列不可重启 — 从"现在"重新消费需创建新读者。
func (r *Reader[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := r.Read(ctx)
			if err != nil {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}
