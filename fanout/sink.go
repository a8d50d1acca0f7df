package fanout

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/uniyakcom/chord/core"
	"github.com/uniyakcom/chord/topic"
	"github.com/uniyakcom/chord/util"
)

// Handler 条目处理器
type Handler[T any] func(T) error

// Sink 有界并发处理器分发：消费单个读者，handler 提交到 ants
// goroutine 池执行。workers > 1 时处理并发进行，不保证完成顺序；
// workers == 1 时保序。
//
// handler panic 被逐任务隔离并计数，不影响其他任务与消费循环。
type Sink[T any] struct {
	r    *topic.Reader[T]
	h    Handler[T]
	pool *ants.Pool
	wg   sync.WaitGroup

	// 并发 handler goroutine 各自计数 — 无锁分片计数器避免跨核争用
	processed *util.ShardedCounter
	panics    *util.ShardedCounter

	errMu   sync.Mutex
	lastErr error
}

// NewSink 创建 Sink。workers <= 0 时取 NumCPU。
func NewSink[T any](r *topic.Reader[T], h Handler[T], workers int) (*Sink[T], error) {
	if h == nil {
		return nil, errors.New("fanout: nil handler")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &Sink[T]{
		r:         r,
		h:         h,
		pool:      pool,
		processed: util.NewShardedCounter(),
		panics:    util.NewShardedCounter(),
	}, nil
}

// Run 消费循环：阻塞读取并分发，直到主题关闭且本读者数据耗尽
// （等待在途任务后返回 nil）或 ctx 取消（返回 ctx.Err()）。
func (s *Sink[T]) Run(ctx context.Context) error {
	defer s.pool.Release()
	for {
		v, err := s.r.Read(ctx)
		if err != nil {
			s.wg.Wait()
			if errors.Is(err, core.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		if perr := s.pool.Submit(func() { s.invoke(v) }); perr != nil {
			s.wg.Done()
			s.wg.Wait()
			return perr
		}
	}
}

// invoke 执行单条 handler，panic 隔离，错误记入 last-error 槽
func (s *Sink[T]) invoke(v T) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
		}
	}()
	if err := s.h(v); err != nil {
		s.errMu.Lock()
		s.lastErr = err
		s.errMu.Unlock()
	}
	s.processed.Add(1)
}

// LastError 最近一次 handler 返回的错误
func (s *Sink[T]) LastError() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

// Stats 返回处理统计快照
func (s *Sink[T]) Stats() core.SinkStats {
	return core.SinkStats{
		Processed: s.processed.Read(),
		Panics:    s.panics.Read(),
	}
}
