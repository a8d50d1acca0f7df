// Package util 提供通用的无锁统计工具
package util

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// maxShards 分片数上限（覆盖常见 GOMAXPROCS）
const maxShards = 256

// ShardedCounter 分片无竞争计数器。
// 并发 goroutine 的 Add 按 goroutine 栈地址哈希落到不同 cache line，
// 避免单一 atomic 热点的跨核争用；Read 汇总全部分片。
type ShardedCounter struct {
	shards [maxShards]counterShard
	mask   int
}

type counterShard struct {
	n atomic.Int64
	_ [56]byte // cache line padding
}

// NewShardedCounter 创建计数器。
// 分片数取 GOMAXPROCS 向上取 2 的幂，最少 8 片 — 低核环境下
// 栈地址哈希冲突率过高，8 片足以摊薄。
func NewShardedCounter() *ShardedCounter {
	n := runtime.GOMAXPROCS(0)
	sz := 8
	for sz < n {
		sz *= 2
	}
	if sz > maxShards {
		sz = maxShards
	}
	return &ShardedCounter{mask: sz - 1}
}

// Add 累加 delta。
// 栈变量地址右移 13 位（goroutine 最小栈 8KB）后取模映射分片，
// 不同 goroutine 天然落在不同分片。
//
//go:nosplit
func (c *ShardedCounter) Add(delta int64) {
	var x uintptr
	id := int(uintptr(unsafe.Pointer(&x)) >> 13)
	c.shards[id&c.mask].n.Add(delta)
}

// Read 汇总全部分片的累计值
func (c *ShardedCounter) Read() int64 {
	var sum int64
	for i := 0; i <= c.mask; i++ {
		sum += c.shards[i].n.Load()
	}
	return sum
}
