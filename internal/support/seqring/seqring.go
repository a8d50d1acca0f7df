// Package seqring 提供按序列号寻址的可增长环形缓冲区。
//
// 逻辑地址模型：
//   - head/tail 为单调递增的逻辑序列号，永不回绕复用
//   - 物理槽位 = seq % len(buf)，扩容时重映射全部存活条目
//   - size = tail - head，恒有 0 ≤ size ≤ capacity
//
// 存储从 min(4, capacity) 起步，按 2 倍向 capacity 增长，只增不缩。
// 增长只是填满声明上界前的分配优化，不放宽 capacity 硬上界。
//
// 本包不含任何并发控制 — 调用方必须持有外部互斥。
package seqring

import (
	"fmt"
	"iter"

	"github.com/uniyakcom/chord/core"
)

// Ring 序列号寻址环形缓冲区
type Ring[T any] struct {
	buf      []T
	capacity int
	head     uint64 // 最旧存活条目的序列号
	tail     uint64 // 下一条写入的序列号
}

// New 创建 Ring。capacity 必须为正（内部契约，违反即 panic）。
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("seqring: capacity must be positive")
	}
	initial := capacity
	if initial > 4 {
		initial = 4
	}
	return &Ring[T]{
		buf:      make([]T, initial),
		capacity: capacity,
	}
}

// Len 当前存活条目数（tail - head）
func (r *Ring[T]) Len() int { return int(r.tail - r.head) }

// Cap 声明容量上界
func (r *Ring[T]) Cap() int { return r.capacity }

// Remaining 剩余可写容量
func (r *Ring[T]) Remaining() int { return r.capacity - r.Len() }

// HeadSeq 最旧存活条目的序列号
func (r *Ring[T]) HeadSeq() uint64 { return r.head }

// TailSeq 下一条写入的序列号
func (r *Ring[T]) TailSeq() uint64 { return r.tail }

// Append 追加条目。缓冲区满（size == capacity）时返回 false。
// 存储用尽但未达 capacity 时先倍增扩容，再写入 tail 槽位。
func (r *Ring[T]) Append(v T) bool {
	if r.Len() == r.capacity {
		return false
	}
	if r.Len() == len(r.buf) {
		r.grow()
	}
	r.buf[r.tail%uint64(len(r.buf))] = v
	r.tail++
	return true
}

// grow 存储倍增（封顶 capacity），按 seq % newLen 重映射存活条目。
// 逐条重映射保持 At 的取模寻址在扩容前后一致 — 逻辑顺序不受影响。
func (r *Ring[T]) grow() {
	n := len(r.buf) * 2
	if n > r.capacity {
		n = r.capacity
	}
	nb := make([]T, n)
	old := uint64(len(r.buf))
	for s := r.head; s < r.tail; s++ {
		nb[s%uint64(n)] = r.buf[s%old]
	}
	r.buf = nb
}

// AdvanceHeadTo 将 head 推进到 seq，释放 [head, seq) 的容量。
// seq 超出 [head, tail] 时返回 ErrSeqOutOfRange；seq == head 为空操作，返回 false。
// 不压缩、不清零已释放槽位。
func (r *Ring[T]) AdvanceHeadTo(seq uint64) (bool, error) {
	if seq < r.head || seq > r.tail {
		return false, fmt.Errorf("%w: advance to %d outside [%d, %d]", core.ErrSeqOutOfRange, seq, r.head, r.tail)
	}
	if seq == r.head {
		return false, nil
	}
	r.head = seq
	return true, nil
}

// At 返回序列号 seq 对应的条目。
// 仅对 head ≤ seq < tail 有效，越界即 panic（跳过等待步骤属调用方缺陷）。
func (r *Ring[T]) At(seq uint64) T {
	if seq < r.head || seq >= r.tail {
		panic(fmt.Sprintf("seqring: At(%d) outside readable window [%d, %d)", seq, r.head, r.tail))
	}
	return r.buf[seq%uint64(len(r.buf))]
}

// All 惰性正向遍历 [head, tail) 的存活条目。
// 不防御并发修改 — 遍历期间调用方必须持有外部互斥。
func (r *Ring[T]) All() iter.Seq2[uint64, T] {
	return func(yield func(uint64, T) bool) {
		for s := r.head; s < r.tail; s++ {
			if !yield(s, r.buf[s%uint64(len(r.buf))]) {
				return
			}
		}
	}
}
