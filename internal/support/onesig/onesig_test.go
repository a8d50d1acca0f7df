package onesig

import (
	"sync"
	"testing"
	"time"
)

// TestFireWakesWaiter 测试触发唤醒等待者
func TestFireWakesWaiter(t *testing.T) {
	s := New()

	done := make(chan struct{})
	go func() {
		<-s.Done()
		close(done)
	}()

	s.Fire()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken after Fire")
	}
}

// TestFireIdempotent 测试重复触发为空操作（不得二次 close panic）
func TestFireIdempotent(t *testing.T) {
	s := New()
	s.Fire()
	s.Fire()
	s.Fire()
	if !s.Fired() {
		t.Error("Fired() should report true after Fire")
	}
}

// TestFireNoWaiter 测试无人等待时触发，后续等待者仍可立即观察到
func TestFireNoWaiter(t *testing.T) {
	s := New()
	s.Fire()

	select {
	case <-s.Done():
	default:
		t.Error("Done() should be ready after Fire with no waiter")
	}
}

// TestMultipleWaiters 测试单次触发唤醒任意数量等待者
func TestMultipleWaiters(t *testing.T) {
	s := New()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			<-s.Done()
		}()
	}

	s.Fire()

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("not all waiters woken")
	}
}

// TestConcurrentFire 测试并发触发安全
func TestConcurrentFire(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Fire()
		}()
	}
	wg.Wait()
	<-s.Done()
}
