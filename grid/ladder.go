package grid

import "math"

// Levels 生成几何等比的网格价格序列。
// 相邻档位比例恒定为 (upper/lower)^(1/(count-1))，首档 = lower，末档 = upper。
// 等比而非等差：币价在窄幅区间震荡时，每一轮买卖的百分比利润保持一致，
// 等差间距会把流动性过度堆在某一侧边界附近。
func Levels(b Bounds, count int) ([]float64, error) {
	if b.Lower <= 0 || b.Lower >= b.Upper {
		return nil, ErrInvalidBounds
	}
	if count < 2 {
		count = 2
	}

	ratio := math.Pow(b.Upper/b.Lower, 1/float64(count-1))
	levels := make([]float64, count)
	for i := range levels {
		levels[i] = b.Lower * math.Pow(ratio, float64(i))
	}
	// Pow 会有浮点漂移，末档钉在上界
	levels[count-1] = b.Upper
	return levels, nil
}

// OptimalLevelCount 根据资金量推导网格档数。
// 档数 = clamp(floor(capital/minOrder), 2, maxLevels)：档越多价差越密、单笔越小；
// 下限 2（至少一买一卖），上限由交易所网格规模限制给定。
// 第二个返回值表示资金是否足以支撑最小两档网格。
func OptimalLevelCount(totalCapital, minOrderSize float64, maxLevels int) (int, bool) {
	if minOrderSize <= 0 || maxLevels < 2 {
		return 2, false
	}
	affordable := int(totalCapital / minOrderSize)
	if affordable < 2 {
		return 2, false
	}
	if affordable > maxLevels {
		affordable = maxLevels
	}
	return affordable, true
}

// SpacingPct 返回首两档之间的百分比价差，用于日志与模拟报告。
func SpacingPct(levels []float64) float64 {
	if len(levels) < 2 || levels[0] <= 0 {
		return 0
	}
	return (levels[1]/levels[0] - 1) * 100
}
