package grid

import (
	"fmt"

	"grid-bot-go/logs"
)

// Plan 一次规划周期的完整产出。
type Plan struct {
	Capital    float64 // 折算为计价币的总资金
	LevelCount int
	Levels     []float64
	Intents    []OrderIntent
}

// Allocate 把网格档位按 mid 拆成买卖两侧，并在各侧内均分资金。
// 规则：
//   - price < mid 归买侧，price > mid 归卖侧，恰好等于 mid 的档位两侧都不挂；
//   - 买侧把 quoteAvail 按买侧均价（而非 mid）折算成基础币数量再均分，
//     买侧跨度较大时均价更接近实际混合成交价；
//   - 卖侧 baseAvail 已是基础币，直接均分；
//   - 任一侧单笔数量低于 minOrderSize 时整侧丢弃（而不是缩减档数凑大单），
//     保证每张挂单各自满足交易所最小名义，也不会悄悄改变网格密度。
func Allocate(levels []float64, mid, quoteAvail, baseAvail, minOrderSize float64, log logs.Logger) []OrderIntent {
	if log == nil {
		log = logs.DefaultLogger
	}

	var buyPrices, sellPrices []float64
	for _, p := range levels {
		switch {
		case p < mid:
			buyPrices = append(buyPrices, p)
		case p > mid:
			sellPrices = append(sellPrices, p)
		}
	}

	intents := make([]OrderIntent, 0, len(buyPrices)+len(sellPrices))

	if len(buyPrices) > 0 && quoteAvail > 0 {
		avg := 0.0
		for _, p := range buyPrices {
			avg += p
		}
		avg /= float64(len(buyPrices))
		size := quoteAvail / avg / float64(len(buyPrices))
		if size < minOrderSize {
			log.Warn("side_dropped: per-order size below minimum",
				"side", string(SideBuy), "size", size, "min", minOrderSize, "levels", len(buyPrices))
		} else {
			for _, p := range buyPrices {
				intents = append(intents, OrderIntent{Side: SideBuy, Price: p, Size: size})
			}
		}
	}

	if len(sellPrices) > 0 && baseAvail > 0 {
		size := baseAvail / float64(len(sellPrices))
		if size < minOrderSize {
			log.Warn("side_dropped: per-order size below minimum",
				"side", string(SideSell), "size", size, "min", minOrderSize, "levels", len(sellPrices))
		} else {
			for _, p := range sellPrices {
				intents = append(intents, OrderIntent{Side: SideSell, Price: p, Size: size})
			}
		}
	}

	return intents
}

// BuildPlan 由当前余额与 mid 推导完整期望订单集：
// 档数策略 -> 等比阶梯 -> 两侧分配。规划是纯计算，不触网络。
func BuildPlan(b Bounds, mid, quoteAvail, baseAvail, minOrderSize float64, maxLevels int, log logs.Logger) (Plan, error) {
	if mid <= 0 {
		return Plan{}, fmt.Errorf("invalid mid price: %f", mid)
	}

	capital := quoteAvail + baseAvail*mid
	count, ok := OptimalLevelCount(capital, minOrderSize, maxLevels)
	if !ok {
		return Plan{Capital: capital}, ErrInsufficientCapital
	}

	levels, err := Levels(b, count)
	if err != nil {
		return Plan{Capital: capital}, err
	}

	return Plan{
		Capital:    capital,
		LevelCount: count,
		Levels:     levels,
		Intents:    Allocate(levels, mid, quoteAvail, baseAvail, minOrderSize, log),
	}, nil
}
