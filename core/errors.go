// Package core 提供多播有界通道的共享类型定义
package core

import "errors"

// 错误哨兵值 — 调用方使用 errors.Is 判断失败类别。
//
// 取消类失败不在此定义：挂起操作被取消时直接返回 ctx.Err()
// （context.Canceled / context.DeadlineExceeded），不做二次包装。
var (
	// ErrInvalidCapacity 构造参数非法：capacity 必须为正整数
	ErrInvalidCapacity = errors.New("chord: capacity must be positive")

	// ErrClosed 主题已关闭：写入失败；读取在该读者剩余数据耗尽后失败
	ErrClosed = errors.New("chord: topic closed")

	// ErrSeqOutOfRange 序列号越界：AdvanceHeadTo 的目标不在 [headSeq, tailSeq] 内
	ErrSeqOutOfRange = errors.New("chord: sequence out of range")
)
