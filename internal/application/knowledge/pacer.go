package knowledge

import (
	"context"
	"sync"
	"time"
)

// 编排器使用的节流 key
const (
	PaceKeyVideo = "video"
	PaceKeyBatch = "batch"
)

// FixedIntervalPacer 进程内固定间隔节流器。
// 对每个 key 保证相邻两次放行至少间隔配置时长；等待可被 ctx 取消。
// 节奏策略收敛在 Pacer 抽象后面，测试里可注入零延迟实现。
type FixedIntervalPacer struct {
	mu        sync.Mutex
	intervals map[string]time.Duration
	last      map[string]time.Time
}

// NewFixedIntervalPacer 创建节流器，intervals 里没有的 key 不限流
func NewFixedIntervalPacer(intervals map[string]time.Duration) *FixedIntervalPacer {
	cp := make(map[string]time.Duration, len(intervals))
	for k, v := range intervals {
		cp[k] = v
	}
	return &FixedIntervalPacer{
		intervals: cp,
		last:      make(map[string]time.Time),
	}
}

// Wait 阻塞到该 key 允许下一次调用
func (p *FixedIntervalPacer) Wait(ctx context.Context, key string) error {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	interval := p.intervals[key]
	if interval <= 0 {
		p.last[key] = time.Now()
		p.mu.Unlock()
		return nil
	}
	// 首次调用 last 为零值，wait 为负，直接放行
	wait := interval - time.Since(p.last[key])
	if wait < 0 {
		wait = 0
	}
	p.last[key] = time.Now().Add(wait)
	p.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NopPacer 不做任何等待，用于测试与关闭节流的场景
type NopPacer struct{}

// Wait 立即返回
func (NopPacer) Wait(ctx context.Context, key string) error {
	return ctx.Err()
}
