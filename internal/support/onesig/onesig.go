// Package onesig 提供单次触发唤醒原语。
//
// Signal 等价于一次性 promise：Fire 至多生效一次（CAS + close），
// Done 返回的 channel 可被任意数量的等待者重复 select。无重置语义 —
// 需要下一轮唤醒时创建新 Signal。
//
// 幂等保证：
//   - 无人等待时 Fire 为空操作（close 的 channel 随后仍可观察到）
//   - 重复 Fire 为空操作（CAS 失败即返回，不会二次 close panic）
package onesig

import "sync/atomic"

// Signal 单次触发信号
type Signal struct {
	fired atomic.Bool
	ch    chan struct{}
}

// New 创建未触发的 Signal
func New() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Fire 触发信号，唤醒所有当前与未来的等待者。幂等。
func (s *Signal) Fire() {
	if s.fired.CompareAndSwap(false, true) {
		close(s.ch)
	}
}

// Fired 是否已触发
func (s *Signal) Fired() bool { return s.fired.Load() }

// Done 返回触发时关闭的 channel，可重复获取、重复等待
func (s *Signal) Done() <-chan struct{} { return s.ch }
