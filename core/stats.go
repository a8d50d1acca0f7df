package core

// TopicStats 主题运行时统计
type TopicStats struct {
	Written        int64 // 成功写入条目总数
	Delivered      int64 // 已投递条目总数（每读者每条计 1）
	WriterBlocks   int64 // 写者因缓冲区满而挂起的次数
	Readers        int   // 当前注册读者数
	Depth          int   // 当前缓冲区积压条目数（tailSeq - headSeq）
	PendingWriters int   // 当前排队等待容量的写者数
	Closed         bool  // 是否已关闭
}

// SinkStats 处理器分发统计
type SinkStats struct {
	Processed int64 // handler 执行完成总数
	Panics    int64 // handler panic 次数
}
