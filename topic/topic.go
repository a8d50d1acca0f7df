// Package topic 提供有界多播背压主题。
//
// 语义模型：
//   - 多播：订阅后写入的每个条目，每个读者各自完整读到一次，顺序一致
//   - 有界：capacity 为硬上界，缓冲区满时写者协作挂起而非无界增长
//   - 驱逐：条目只有在最慢读者越过后才可释放（head = min(各读者游标)）
//   - 关闭：单向终态，拒绝新写入但不丢弃已缓冲未读数据
//
// 并发纪律（全部共享状态归单一互斥域管辖）：
//   - 环形缓冲区、读者集合、写者等待队列的每次变更都在持锁下进行
//   - 任何挂起操作先释放锁再挂起，恢复后重新获取 — 禁止跨挂起点持锁
//   - 唤醒只是提示，不是保证：每个挂起-恢复序列都在循环中复查谓词
//   - 写者唤醒按 FIFO，限制饥饿；读者唤醒为广播
//
// 已知取舍：永不推进游标的读者会阻止 head 推进，缓冲区填满后写者
// 全部挂起 — 这是有意的背压语义，本包不引入读者超时或驱逐策略。
package topic

import (
	"context"
	"fmt"

	"github.com/uniyakcom/chord/core"
	"github.com/uniyakcom/chord/internal/support/amutex"
	"github.com/uniyakcom/chord/internal/support/onesig"
	"github.com/uniyakcom/chord/internal/support/seqring"
)

// Topic 有界多播主题
type Topic[T any] struct {
	mu   *amutex.Mutex
	ring *seqring.Ring[T]

	readers []*Reader[T]
	writerQ []*onesig.Signal // 阻塞写者唤醒信号，FIFO
	closed  bool

	// 统计（互斥域内更新）
	written      int64
	delivered    int64
	writerBlocks int64
}

// New 创建主题。capacity 为缓冲区条目数硬上界，必须为正。
func New[T any](capacity int) (*Topic[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", core.ErrInvalidCapacity, capacity)
	}
	return &Topic[T]{
		mu:   amutex.New(),
		ring: seqring.New[T](capacity),
	}, nil
}

// TryWrite 非挂起写入尝试。
// 主题已关闭返回 (false, ErrClosed)；缓冲区满返回 (false, nil)；
// 成功时追加条目并唤醒所有挂起读者。
func (t *Topic[T]) TryWrite(v T) (bool, error) {
	tok := t.mu.AcquireBlocking()
	defer tok.Release()
	return t.tryWriteLocked(v)
}

// tryWriteLocked 持锁写入。成功后广播唤醒挂起读者，并防御性唤醒一个
// 排队写者（容量释放时的常规唤醒在 advanceHeadLocked，此处兜底）。
func (t *Topic[T]) tryWriteLocked(v T) (bool, error) {
	if t.closed {
		return false, core.ErrClosed
	}
	if !t.ring.Append(v) {
		return false, nil
	}
	t.written++
	for _, r := range t.readers {
		if r.wake != nil {
			r.wake.Fire()
			r.wake = nil
		}
	}
	// 无读者时条目即刻视为全员已消费：head 跟随 tail，写入永不积压
	if len(t.readers) == 0 {
		t.advanceHeadLocked()
	}
	t.fireOneWriterLocked()
	return true, nil
}

// Write 写入条目，缓冲区满时挂起等待容量。
// 唤醒只是容量可能存在的提示 — 并发写者会竞争释放出的槽位，
// 因此被唤醒后必须重试 TryWrite，失败则重新排队。
// 任一时刻观察到主题关闭返回 ErrClosed；挂起期间取消返回 ctx.Err()，
// 且等待者被确定性地从队列摘除，共享状态不留痕迹。
func (t *Topic[T]) Write(ctx context.Context, v T) error {
	tok, err := t.mu.Acquire(ctx)
	if err != nil {
		return err
	}
	for {
		ok, werr := t.tryWriteLocked(v)
		if werr != nil || ok {
			tok.Release()
			return werr
		}

		// 缓冲区满：注册唤醒信号入 FIFO 队列，释放锁后挂起
		sig := onesig.New()
		t.writerQ = append(t.writerQ, sig)
		t.writerBlocks++
		tok.Release()

		select {
		case <-sig.Done():
			tok, err = t.mu.Acquire(ctx)
			if err != nil {
				// 唤醒已消费却被取消：让渡给下一个等待者，容量提示不丢失
				t.forwardWake()
				return err
			}
		case <-ctx.Done():
			t.abandonWait(sig)
			return ctx.Err()
		}
	}
}

// abandonWait 取消路径清理：仍在队列则摘除自身；
// 已被弹出（唤醒与取消竞争）则让渡唤醒，保证唤起另一个仍在等待的写者。
func (t *Topic[T]) abandonWait(sig *onesig.Signal) {
	tok := t.mu.AcquireBlocking()
	defer tok.Release()
	for i, s := range t.writerQ {
		if s == sig {
			t.writerQ = append(t.writerQ[:i], t.writerQ[i+1:]...)
			return
		}
	}
	t.fireOneWriterLocked()
}

// forwardWake 持锁让渡一次写者唤醒
func (t *Topic[T]) forwardWake() {
	tok := t.mu.AcquireBlocking()
	t.fireOneWriterLocked()
	tok.Release()
}

// fireOneWriterLocked 弹出并触发队首写者信号（唤醒即出队，在队 ⇔ 未触发）
func (t *Topic[T]) fireOneWriterLocked() {
	if len(t.writerQ) > 0 {
		sig := t.writerQ[0]
		t.writerQ = t.writerQ[1:]
		sig.Fire()
	}
}

// advanceHeadLocked 头部推进策略：每次成功读取后调用。
// head 推进到 min(各读者游标)（无读者时为 tailSeq），释放出容量时
// 按 FIFO 唤醒一个排队写者。
func (t *Topic[T]) advanceHeadLocked() {
	lowest := t.ring.TailSeq()
	for _, r := range t.readers {
		if r.cursor < lowest {
			lowest = r.cursor
		}
	}
	freed, err := t.ring.AdvanceHeadTo(lowest)
	if err != nil {
		// min 恒在 [head, tail] 内，越界意味着游标不变式已被破坏
		panic(err)
	}
	if freed {
		t.fireOneWriterLocked()
	}
}

// Subscribe 注册新读者，游标定位在当前 tailSeq — 只看到订阅之后的写入，
// 不回放历史。主题已关闭返回 ErrClosed。
//
// 注意：读者注册后即参与驱逐决策，长期不消费的读者会令写者背压挂起。
func (t *Topic[T]) Subscribe() (*Reader[T], error) {
	tok := t.mu.AcquireBlocking()
	defer tok.Release()
	if t.closed {
		return nil, core.ErrClosed
	}
	r := &Reader[T]{t: t, cursor: t.ring.TailSeq()}
	t.readers = append(t.readers, r)
	return r, nil
}

// Close 关闭主题。幂等。
// 唤醒所有挂起读者（各自观察剩余数据或关闭态），所有排队写者以
// ErrClosed 失败。已缓冲未读条目保持完整可读 — 关闭只拒绝新写入。
func (t *Topic[T]) Close() error {
	tok := t.mu.AcquireBlocking()
	defer tok.Release()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, r := range t.readers {
		if r.wake != nil {
			r.wake.Fire()
			r.wake = nil
		}
	}
	for _, sig := range t.writerQ {
		sig.Fire()
	}
	t.writerQ = nil
	return nil
}

// Closed 是否已关闭
func (t *Topic[T]) Closed() bool {
	tok := t.mu.AcquireBlocking()
	defer tok.Release()
	return t.closed
}

// Len 当前缓冲区积压条目数
func (t *Topic[T]) Len() int {
	tok := t.mu.AcquireBlocking()
	defer tok.Release()
	return t.ring.Len()
}

// Cap 容量上界
func (t *Topic[T]) Cap() int { return t.ring.Cap() }

// Stats 返回运行时统计快照
func (t *Topic[T]) Stats() core.TopicStats {
	tok := t.mu.AcquireBlocking()
	defer tok.Release()
	return core.TopicStats{
		Written:        t.written,
		Delivered:      t.delivered,
		WriterBlocks:   t.writerBlocks,
		Readers:        len(t.readers),
		Depth:          t.ring.Len(),
		PendingWriters: len(t.writerQ),
		Closed:         t.closed,
	}
}
