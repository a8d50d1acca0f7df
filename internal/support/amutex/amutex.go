// Package amutex 提供可取消获取的互斥锁。
//
// 实现为容量 1 的 channel 信号量：
//   - 快速路径：非阻塞 send，无竞争时零挂起（常见情形）
//   - 慢路径：阻塞 send 挂起 goroutine，runtime 按到达顺序排队阻塞发送者，
//     Release 的 receive 直接把槽位交给最老的等待者 — 天然 FIFO，且
//     快速路径无法插队（锁空闲时必然无排队等待者）
//   - 取消：ctx 在获取前触发则失败返回 ctx.Err()，锁不会被取走
//
// Acquire 返回 Token，Release 由 CAS 守护 — 重复释放为空操作，
// 不会重复归还可用额度。典型用法 defer tok.Release() 保证作用域内持锁。
package amutex

import (
	"context"
	"sync/atomic"
)

// Mutex 可取消互斥锁
type Mutex struct {
	sem chan struct{}
}

// New 创建未持有的 Mutex
func New() *Mutex {
	return &Mutex{sem: make(chan struct{}, 1)}
}

// Acquire 获取锁。锁空闲时同步获取不挂起；被持有时挂起等待，
// 每次 Release 恰好唤醒一个等待者（到达顺序）。
// ctx 在获取前取消则返回 ctx.Err()，锁保持原状。
func (m *Mutex) Acquire(ctx context.Context) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case m.sem <- struct{}{}:
		return &Token{m: m}, nil
	default:
	}
	select {
	case m.sem <- struct{}{}:
		return &Token{m: m}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AcquireBlocking 不可取消获取，用于确定短暂持锁且必须成功的内部路径
// （如取消清理、非挂起的 Try 系列操作）。
func (m *Mutex) AcquireBlocking() *Token {
	m.sem <- struct{}{}
	return &Token{m: m}
}

// TryAcquire 非阻塞尝试获取，失败返回 nil
func (m *Mutex) TryAcquire() *Token {
	select {
	case m.sem <- struct{}{}:
		return &Token{m: m}
	default:
		return nil
	}
}

// Token 单次持锁凭据
type Token struct {
	m        *Mutex
	released atomic.Bool
}

// Release 释放锁，至多唤醒一个等待者。重复调用为空操作。
func (t *Token) Release() {
	if t.released.CompareAndSwap(false, true) {
		<-t.m.sem
	}
}
