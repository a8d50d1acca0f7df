package chord

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestConcurrentWritersSingleReader 测试多写者单读者：总量正确、序列全局有序
func TestConcurrentWritersSingleReader(t *testing.T) {
	ctx := context.Background()
	top, _ := New[int](16)
	r, _ := top.Subscribe()

	const writers = 8
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if err := top.Write(ctx, base+i); err != nil {
					t.Errorf("write failed: %v", err)
					return
				}
			}
		}(w * 10000)
	}

	go func() {
		wg.Wait()
		top.Close()
	}()

	// 每个写者内部的相对顺序必须保持（互斥序即全局序）
	lastPer := make(map[int]int)
	count := 0
	for v := range r.All(ctx) {
		count++
		base := v / 10000 * 10000
		if last, ok := lastPer[base]; ok && v <= last {
			t.Errorf("writer %d order violated: %d after %d", base, v, last)
		}
		lastPer[base] = v
	}
	if count != writers*perWriter {
		t.Errorf("received %d items, want %d", count, writers*perWriter)
	}
}

// TestConcurrentReadersIndependent 测试多读者并发独立消费全量
func TestConcurrentReadersIndependent(t *testing.T) {
	ctx := context.Background()
	top, _ := New[int](8)

	const readers = 6
	const items = 200

	var wg sync.WaitGroup
	var total atomic.Int64
	for i := 0; i < readers; i++ {
		r, err := top.Subscribe()
		if err != nil {
			t.Fatal(err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			want := 0
			for v := range r.All(ctx) {
				if v != want {
					t.Errorf("reader observed %d, want %d", v, want)
					return
				}
				want++
				total.Add(1)
			}
		}()
	}

	for i := 0; i < items; i++ {
		if err := top.Write(ctx, i); err != nil {
			t.Fatal(err)
		}
	}
	top.Close()
	wg.Wait()

	if n := total.Load(); n != readers*items {
		t.Errorf("total deliveries %d, want %d", n, readers*items)
	}
}

// TestConcurrentMixedChurn 测试写者/读者/订阅混合并发压力
func TestConcurrentMixedChurn(t *testing.T) {
	ctx := context.Background()
	top, _ := New[int](32)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	// 基础读者保证写入不被即时丢弃
	base, _ := top.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range base.All(ctx) {
		}
	}()

	// 滚动写者 — 可取消 ctx：被放弃的读者会令 head 停滞，
	// 写者可能在背压中挂起，结束时靠取消退出
	wctx, wcancel := context.WithCancel(ctx)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			i := 0
			for {
				if err := top.Write(wctx, i); err != nil {
					return
				}
				i++
			}
		}()
	}

	// 滚动订阅者：订阅、读若干条、放弃
	for s := 0; s < 3; s++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				r, err := top.Subscribe()
				if err != nil {
					return
				}
				for i := 0; i < 10; i++ {
					rctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
					_, err := r.Read(rctx)
					cancel()
					if err != nil {
						break
					}
				}
			}
		}()
	}

	time.Sleep(300 * time.Millisecond)
	close(stop)
	wcancel()
	top.Close()
	wg.Wait()

	if d := top.Stats().Depth; d > top.Cap() {
		t.Errorf("depth %d exceeds capacity after churn", d)
	}
}

// TestConcurrentCancelStorm 测试大量挂起写者被集中取消后主题仍一致
func TestConcurrentCancelStorm(t *testing.T) {
	bg := context.Background()
	top, _ := New[int](1)
	r, _ := top.Subscribe()

	top.Write(bg, 0)

	ctx, cancel := context.WithCancel(bg)
	const blocked = 16
	var wg sync.WaitGroup
	errs := make(chan error, blocked)
	for i := 0; i < blocked; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			errs <- top.Write(ctx, v)
		}(i + 1)
	}
	time.Sleep(50 * time.Millisecond)

	cancel()
	wg.Wait()
	for i := 0; i < blocked; i++ {
		if err := <-errs; err != context.Canceled {
			t.Errorf("want context.Canceled, got %v", err)
		}
	}

	// 取消风暴后状态未腐化：读写照常
	if v, ok := r.TryRead(); !ok || v != 0 {
		t.Fatalf("TryRead = (%d, %v)", v, ok)
	}
	if err := top.Write(bg, 42); err != nil {
		t.Fatalf("write after cancel storm failed: %v", err)
	}
	if v, err := r.Read(bg); err != nil || v != 42 {
		t.Errorf("read after cancel storm = (%d, %v)", v, err)
	}
	if pw := top.Stats().PendingWriters; pw != 0 {
		t.Errorf("dead waiters retained: %d", pw)
	}
}
