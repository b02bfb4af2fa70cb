package grid

import "sync"

// CompoundTracker 记录上次重建网格时的资金基线，决定何时用变大的本金重排网格。
// 只有利润越过阈值才触发重排，避免对资金的小幅噪声波动来回撤挂。
// 基线只存在于进程内存：重启后首次观测即成为新基线。
type CompoundTracker struct {
	mu          sync.Mutex
	threshold   float64
	baseline    float64
	initialized bool
}

// NewCompoundTracker 创建追踪器，threshold 必须为正（配置层已校验）。
func NewCompoundTracker(threshold float64) *CompoundTracker {
	return &CompoundTracker{threshold: threshold}
}

// ShouldReplan 首次观测恒为 true（建立基线），之后仅当
// capital - baseline >= threshold 时为 true。
func (t *CompoundTracker) ShouldReplan(capital float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return true
	}
	return capital-t.baseline >= t.threshold
}

// Record 重排完成后更新基线。调用方只应在 ShouldReplan 为 true 后调用，
// 基线因此跨重排单调不减。
func (t *CompoundTracker) Record(capital float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseline = capital
	t.initialized = true
}

// Baseline 返回当前基线；第二个返回值表示是否已建立。
func (t *CompoundTracker) Baseline() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.baseline, t.initialized
}

// ProfitSince 返回相对基线的浮动利润，未建立基线时为 0。
func (t *CompoundTracker) ProfitSince(capital float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.initialized {
		return 0
	}
	return capital - t.baseline
}
